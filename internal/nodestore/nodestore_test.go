package nodestore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeStrategy(t *testing.T) {
	n := NewNode(3)

	// untrained: uniform
	strat := n.Strategy(nil)
	require.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, strat, 1e-12)

	n.RegretSum = []float64{3, -5, 1}
	strat = n.Strategy(strat)
	require.InDeltaSlice(t, []float64{0.75, 0, 0.25}, strat, 1e-12)

	// all negative: uniform again
	n.RegretSum = []float64{-1, -2, -3}
	strat = n.Strategy(strat)
	require.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, strat, 1e-12)
}

func TestNodeAverageStrategy(t *testing.T) {
	n := NewNode(2)

	avg := n.AverageStrategy(nil)
	require.InDeltaSlice(t, []float64{0.5, 0.5}, avg, 1e-12)

	n.StrategySum = []float64{9, 1}
	avg = n.AverageStrategy(avg)
	require.InDeltaSlice(t, []float64{0.9, 0.1}, avg, 1e-12)
}

func TestMapStore(t *testing.T) {
	s := NewMapStore()

	got, err := s.Get(7)
	require.NoError(t, err)
	require.Nil(t, got)

	n := NewNode(2)
	n.RegretSum[0] = 1.5
	n.LastTouched = 42
	require.NoError(t, s.Put(7, n))

	// mutating the caller's node does not affect the store
	n.RegretSum[0] = -9

	got, err = s.Get(7)
	require.NoError(t, err)
	require.Equal(t, 1.5, got.RegretSum[0])
	require.Equal(t, uint64(42), got.LastTouched)
	require.Equal(t, 1, s.Len())
}

func TestMapStoreConcurrent(t *testing.T) {
	s := NewMapStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := uint64(0); i < 500; i++ {
				n := NewNode(2)
				n.RegretSum[0] = float64(w)
				assert.NoError(t, s.Put(i, n))
				got, err := s.Get(i)
				assert.NoError(t, err)
				assert.NotNil(t, got)
			}
		}(w)
	}
	wg.Wait()
	require.Equal(t, 500, s.Len())
}

func TestMMapConfigValidation(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenMMap(filepath.Join(dir, "a.bin"), MMapConfig{Slots: 0, MaxActions: 5})
	require.Error(t, err)

	_, err = OpenMMap(filepath.Join(dir, "b.bin"), MMapConfig{Slots: 10, MaxActions: 0})
	require.Error(t, err)

	// record size too small for the action bound
	_, err = OpenMMap(filepath.Join(dir, "c.bin"), MMapConfig{
		Slots:      10,
		MaxActions: 6,
		RecordSize: recordBytes(6) - 1,
	})
	require.Error(t, err)
}

func TestMMapStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.bin")
	cfg := MMapConfig{Slots: 100, MaxActions: 6, FlushEvery: 8}

	s, err := OpenMMap(path, cfg)
	require.NoError(t, err)

	n := NewNode(3)
	n.RegretSum = []float64{1, -2, 3.5}
	n.StrategySum = []float64{0.25, 0.5, 0.25}
	n.LastTouched = 99
	require.NoError(t, s.Put(17, n))

	// visible through the write-behind buffer before any flush
	got, err := s.Get(17)
	require.NoError(t, err)
	require.Equal(t, n.RegretSum, got.RegretSum)

	require.NoError(t, s.Close())

	// survives reopen
	s, err = OpenMMap(path, cfg)
	require.NoError(t, err)
	defer s.Close()

	got, err = s.Get(17)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, n.RegretSum, got.RegretSum)
	require.Equal(t, n.StrategySum, got.StrategySum)
	require.Equal(t, uint64(99), got.LastTouched)

	// untouched slots read as empty
	got, err = s.Get(18)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMMapStoreOutOfRange(t *testing.T) {
	s, err := OpenMMap(filepath.Join(t.TempDir(), "nodes.bin"), MMapConfig{Slots: 4, MaxActions: 2})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(4)
	require.Error(t, err)
	require.Error(t, s.Put(4, NewNode(2)))
	require.Error(t, s.Put(0, NewNode(3)))
}

func TestMMapStoreCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.bin")
	cfg := MMapConfig{Slots: 8, MaxActions: 4}

	s, err := OpenMMap(path, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Put(3, NewNode(2)))
	require.NoError(t, s.Close())

	// stomp the record's magic
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xde, 0xad}, int64(3*recordBytes(4)))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s, err = OpenMMap(path, cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(3)
	require.ErrorIs(t, err, ErrCorruptRecord)

	// the caller can reset the slot
	require.NoError(t, s.Put(3, NewNode(2)))
	require.NoError(t, s.Flush())
	got, err := s.Get(3)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestMMapStoreBatchedFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.bin")
	s, err := OpenMMap(path, MMapConfig{Slots: 64, MaxActions: 2, FlushEvery: 4})
	require.NoError(t, err)

	for i := uint64(0); i < 10; i++ {
		n := NewNode(2)
		n.RegretSum[0] = float64(i)
		require.NoError(t, s.Put(i, n))
	}
	require.NoError(t, s.Close())

	s, err = OpenMMap(path, MMapConfig{Slots: 64, MaxActions: 2, FlushEvery: 4})
	require.NoError(t, err)
	defer s.Close()
	for i := uint64(0); i < 10; i++ {
		got, err := s.Get(i)
		require.NoError(t, err)
		require.Equal(t, float64(i), got.RegretSum[0])
	}
}
