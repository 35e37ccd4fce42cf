package main

import (
	"fmt"
	"math"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/lox/cardplatypus/internal/agent"
	"github.com/lox/cardplatypus/internal/cfr"
	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/game/euchre"
	"github.com/lox/cardplatypus/internal/index"
	"github.com/lox/cardplatypus/internal/nodestore"
	"github.com/lox/cardplatypus/internal/randutil"
	"github.com/lox/cardplatypus/internal/search"
)

// BenchmarkCmd plays two agents against each other. In Euchre the even
// seats play agent A and the odd seats agent B; scores are reported for
// agent A's team.
type BenchmarkCmd struct {
	Game  string `default:"euchre" enum:"euchre,kuhn,bluff" help:"Game to play"`
	Games int    `default:"100" help:"Number of deals to play"`
	A     string `default:"search" enum:"search,policy,random" help:"Agent on even seats"`
	B     string `default:"random" enum:"search,policy,random" help:"Agent on odd seats"`

	IndexPath string `default:"euchre.idx" help:"Built istate index (policy agent)"`
	StorePath string `default:"nodes.bin" help:"Trained node store (policy agent)"`

	Worlds     *int   `help:"Worlds to resample per decision (search agent)"`
	Workers    *int   `help:"Concurrent solver workers"`
	BudgetMs   *int   `help:"Per-world solve budget in milliseconds"`
	TableSize  *int   `help:"Transposition table slots"`
	Seed       *int64 `help:"RNG seed"`
	NoProgress bool   `help:"Disable the progress bar"`
}

func (c *BenchmarkCmd) Run(cli *CLI) error {
	logger := setupLogger(cli.Debug)

	file, err := LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	searchCfg := searchConfig(file.Search, c.Worlds, c.Workers, c.BudgetMs, c.TableSize, c.Seed)

	seed := searchCfg.Seed
	root, err := rootFor(c.Game)
	if err != nil {
		return err
	}

	agentA, err := c.makeAgent(c.A, searchCfg, seed+1)
	if err != nil {
		return err
	}
	agentB, err := c.makeAgent(c.B, searchCfg, seed+2)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var bar *progressbar.ProgressBar
	if !c.NoProgress {
		bar = progressbar.NewOptions(c.Games,
			progressbar.OptionSetDescription(fmt.Sprintf("%s vs %s", c.A, c.B)),
			progressbar.OptionShowCount(),
		)
	}

	logger.Info("benchmarking", "game", c.Game, "games", c.Games, "a", c.A, "b", c.B, "seed", seed)

	rng := randutil.New(seed)
	var stats runStats
	start := time.Now()

	for g := 0; g < c.Games; g++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := root()
		for !st.IsTerminal() {
			if st.IsChance() {
				legal := st.LegalActions(nil)
				st.Apply(legal[rng.IntN(len(legal))])
				continue
			}
			who := agentA
			if game.TeamOf(st.CurrentPlayer()) == 1 {
				who = agentB
			}
			a, err := who.Act(ctx, st)
			if err != nil {
				return err
			}
			st.Apply(a)
		}
		stats.add(st.Evaluate(0))
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	lo, hi := stats.confidenceInterval95()
	fmt.Println(headerStyle.Render(fmt.Sprintf("%s vs %s over %d games", c.A, c.B, stats.games)))
	fmt.Printf("mean score for %s: %s (95%% CI %+.3f to %+.3f, stddev %.3f)\n",
		actionStyle.Render(c.A),
		bestStyle.Render(fmt.Sprintf("%+.3f", stats.mean())),
		lo, hi, stats.stdDev())
	fmt.Printf("elapsed: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func (c *BenchmarkCmd) makeAgent(kind string, searchCfg search.PIMCTSConfig, seed int64) (agent.Agent, error) {
	switch kind {
	case "random":
		return agent.NewRandom(seed), nil
	case "search":
		cfg := searchCfg
		cfg.Seed = seed
		p, err := search.NewPIMCTS(cfg)
		if err != nil {
			return nil, err
		}
		return agent.NewSearcher(p), nil
	case "policy":
		if c.Game != "euchre" {
			return nil, fmt.Errorf("the policy agent needs a trained euchre store")
		}
		ix, err := index.ReadFile(c.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("loading index: %w", err)
		}
		store, err := nodestore.OpenMMap(c.StorePath, nodestore.MMapConfig{
			Slots:      ix.Len(),
			MaxActions: euchre.MaxLegalActions,
		})
		if err != nil {
			return nil, fmt.Errorf("opening node store: %w", err)
		}
		return agent.NewPolicy(cfr.NewPolicy(store, ix), seed), nil
	default:
		return nil, fmt.Errorf("unknown agent %q", kind)
	}
}

// runStats accumulates per-game scores with a running sum of squares.
type runStats struct {
	games int
	sum   float64
	sum2  float64
}

func (s *runStats) add(v float64) {
	s.games++
	s.sum += v
	s.sum2 += v * v
}

func (s *runStats) mean() float64 {
	if s.games == 0 {
		return 0
	}
	return s.sum / float64(s.games)
}

func (s *runStats) variance() float64 {
	if s.games < 2 {
		return 0
	}
	mean := s.mean()
	return (s.sum2 - float64(s.games)*mean*mean) / float64(s.games-1)
}

func (s *runStats) stdDev() float64 {
	return math.Sqrt(s.variance())
}

func (s *runStats) stdError() float64 {
	if s.games == 0 {
		return 0
	}
	return s.stdDev() / math.Sqrt(float64(s.games))
}

func (s *runStats) confidenceInterval95() (float64, float64) {
	mean := s.mean()
	margin := 1.96 * s.stdError()
	return mean - margin, mean + margin
}
