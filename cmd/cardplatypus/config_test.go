package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	require.Nil(t, cfg.Train)
	require.Nil(t, cfg.Search)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cardplatypus.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
train {
  mode             = "external"
  iterations       = 500000
  workers          = 4
  seed             = 42
  checkpoint_every = 50000
}

search {
  worlds    = 100
  budget_ms = 250
}
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Train)
	require.Equal(t, "external", cfg.Train.Mode)
	require.Equal(t, uint64(500_000), cfg.Train.Iterations)
	require.Equal(t, 4, cfg.Train.Workers)
	require.Equal(t, int64(42), cfg.Train.Seed)
	require.Equal(t, uint64(50_000), cfg.Train.CheckpointEvery)

	require.NotNil(t, cfg.Search)
	require.Equal(t, 100, cfg.Search.Worlds)
	require.Equal(t, 250, cfg.Search.BudgetMs)
	require.Zero(t, cfg.Search.Workers)
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`train { mode = `), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestSearchConfigMerge(t *testing.T) {
	worlds := 7
	budget := 50

	cfg := searchConfig(&SearchSettings{Worlds: 100, BudgetMs: 250}, &worlds, nil, &budget, nil, nil)
	require.Equal(t, 7, cfg.Worlds)
	require.Equal(t, int64(50*1e6), int64(cfg.Solver.Budget))
	require.NotNil(t, cfg.Solver.Table)
}
