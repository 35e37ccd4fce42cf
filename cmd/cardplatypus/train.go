package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/lox/cardplatypus/internal/bestresponse"
	"github.com/lox/cardplatypus/internal/cfr"
	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/game/euchre"
	"github.com/lox/cardplatypus/internal/index"
	"github.com/lox/cardplatypus/internal/nodestore"
	"github.com/lox/cardplatypus/internal/search"
)

// TrainCmd trains a CFR policy. Euchre trains against a built istate index
// with an mmap-backed node store; the small games train in memory and
// report exploitability when done.
type TrainCmd struct {
	Game       string  `default:"euchre" enum:"euchre,kuhn,bluff" help:"Game to train"`
	Mode       *string `help:"Traversal mode: external, chance or vanilla"`
	Iterations *uint64 `help:"Training iterations"`
	Workers    *int    `help:"Concurrent traversal workers"`
	Seed       *int64  `help:"RNG seed"`
	NoDiscount bool    `help:"Disable linear regret discounting"`

	IndexPath  string `default:"euchre.idx" help:"Built istate index (euchre only)"`
	StorePath  string `default:"nodes.bin" help:"Node store file (euchre only)"`
	Checkpoint string `help:"Checkpoint file for resumable training"`
	NoProgress bool   `help:"Disable the progress bar"`
}

func (c *TrainCmd) Run(cli *CLI) error {
	logger := setupLogger(cli.Debug)

	file, err := LoadConfig(cli.Config)
	if err != nil {
		return err
	}

	cfg := cfr.DefaultConfig()
	cfg.Logger = logger
	cfg.LinearDiscount = !c.NoDiscount
	cfg.CheckpointPath = c.Checkpoint
	if ts := file.Train; ts != nil {
		if ts.Mode != "" {
			cfg.Mode = cfr.Mode(ts.Mode)
		}
		if ts.Iterations != 0 {
			cfg.Iterations = ts.Iterations
		}
		if ts.Workers != 0 {
			cfg.Workers = ts.Workers
		}
		if ts.Seed != 0 {
			cfg.Seed = ts.Seed
		}
		if ts.CheckpointEvery != 0 {
			cfg.CheckpointEvery = ts.CheckpointEvery
		}
	}
	if c.Mode != nil {
		cfg.Mode = cfr.Mode(*c.Mode)
	}
	if c.Iterations != nil {
		cfg.Iterations = *c.Iterations
	}
	if c.Workers != nil {
		cfg.Workers = *c.Workers
	}
	if c.Seed != nil {
		cfg.Seed = *c.Seed
	}

	root, err := rootFor(c.Game)
	if err != nil {
		return err
	}

	var store nodestore.Store
	var indexer index.Indexer

	switch c.Game {
	case "euchre":
		ix, err := index.ReadFile(c.IndexPath)
		if err != nil {
			return fmt.Errorf("loading index (run build-index first): %w", err)
		}
		logger.Info("index loaded", "path", c.IndexPath, "istates", ix.Len(),
			"max_cards_played", ix.MaxCardsPlayed())

		mm, err := nodestore.OpenMMap(c.StorePath, nodestore.MMapConfig{
			Slots:      ix.Len(),
			MaxActions: euchre.MaxLegalActions,
		})
		if err != nil {
			return err
		}
		defer mm.Close()

		store, indexer = mm, ix

		// beyond the indexed depth, score the sampled world exactly
		maxPlayed := ix.MaxCardsPlayed()
		cfg.MaxDepth = func(st game.State) bool {
			e := st.(*euchre.State)
			return e.Phase() == euchre.PhasePlay && e.CardsPlayed() >= maxPlayed
		}
		cfg.Solver = search.SolverConfig{Table: search.NewTable(1 << 22)}

	default:
		store = nodestore.NewMapStore()
		indexer = index.NewDynamic()
	}

	trainer, err := cfr.NewTrainer(cfg, root, store, indexer)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	progress := func(cfr.Progress) {}
	if !c.NoProgress {
		bar = progressbar.NewOptions64(int64(cfg.Iterations),
			progressbar.OptionSetDescription("training"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
		)
		progress = func(p cfr.Progress) {
			_ = bar.Set64(int64(p.Iteration))
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("training", "game", c.Game, "mode", cfg.Mode,
		"iterations", cfg.Iterations, "workers", cfg.Workers, "seed", cfg.Seed)

	start := time.Now()
	if err := trainer.Run(ctx, progress); err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	logger.Info("training complete",
		"iterations", trainer.Iteration(),
		"nodes_touched", trainer.NodesTouched(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	// the small games are cheap enough to score exactly
	if c.Game != "euchre" {
		e, err := bestresponse.Exploitability(root, func(st game.State) ([]float64, error) {
			probs, err := trainer.ActionProbabilities(st)
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(probs))
			for i, p := range probs {
				out[i] = p.Prob
			}
			return out, nil
		})
		if err != nil {
			return err
		}
		logger.Info("policy scored", "exploitability", fmt.Sprintf("%.4f", e))
	}
	return nil
}
