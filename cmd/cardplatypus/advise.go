package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/cardplatypus/internal/game/euchre"
	"github.com/lox/cardplatypus/internal/search"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	actionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	bestStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))
)

// AdviseCmd recommends an action for the player to move in a Euchre deal by
// solving resampled worlds.
type AdviseCmd struct {
	Deal string `arg:"" help:"Deal history, e.g. 'TcQs9hJdQd|QcThJhKhKd|AcTsAhTdAd|9cKc9sKsQh|Jc|T|Kc'"`

	Worlds    *int   `help:"Worlds to resample"`
	Workers   *int   `help:"Concurrent solver workers"`
	BudgetMs  *int   `help:"Per-world solve budget in milliseconds"`
	TableSize *int   `help:"Transposition table slots"`
	Seed      *int64 `help:"RNG seed for world sampling"`
}

func (c *AdviseCmd) Run(cli *CLI) error {
	logger := setupLogger(cli.Debug)

	file, err := LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	cfg := searchConfig(file.Search, c.Worlds, c.Workers, c.BudgetMs, c.TableSize, c.Seed)

	st, err := euchre.FromString(c.Deal)
	if err != nil {
		return err
	}
	if st.IsChance() {
		return fmt.Errorf("deal is still being dealt, nothing to advise on")
	}
	if st.IsTerminal() {
		return fmt.Errorf("deal is already decided")
	}

	player := st.CurrentPlayer()
	logger.Info("advising", "player", player, "istate", st.InfoString(player),
		"worlds", cfg.Worlds)

	p, err := search.NewPIMCTS(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	values, err := p.Recommend(ctx, st)
	if err != nil && !errors.Is(err, search.ErrSearchBudgetExceeded) {
		return err
	}
	if errors.Is(err, search.ErrSearchBudgetExceeded) {
		logger.Warn("search budget exceeded, results are partial")
	}

	best := search.Best(values)
	fmt.Println(headerStyle.Render(fmt.Sprintf("Player %d to act (%s)", player, st.InfoString(player))))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t\n", headerStyle.Render("Action"), headerStyle.Render("Mean value"))
	for _, v := range values {
		name := actionStyle.Render(euchre.ActionString(v.Action))
		if v.Action == best {
			name = bestStyle.Render(euchre.ActionString(v.Action) + " *")
		}
		fmt.Fprintf(w, "%s\t%s\t\n", name, valueStyle.Render(fmt.Sprintf("%+.3f", v.Value)))
	}
	w.Flush()

	fmt.Printf("\n%s in %s\n",
		bestStyle.Render("recommend "+euchre.ActionString(best)),
		time.Since(start).Round(time.Millisecond))
	return nil
}

// searchConfig merges file settings and flag overrides over the defaults.
func searchConfig(ss *SearchSettings, worlds, workers, budgetMs, tableSize *int, seed *int64) search.PIMCTSConfig {
	cfg := search.DefaultPIMCTSConfig()
	slots := 1 << 20

	if ss != nil {
		if ss.Worlds != 0 {
			cfg.Worlds = ss.Worlds
		}
		if ss.Workers != 0 {
			cfg.Workers = ss.Workers
		}
		if ss.BudgetMs != 0 {
			cfg.Solver.Budget = time.Duration(ss.BudgetMs) * time.Millisecond
		}
		if ss.TableSize != 0 {
			slots = ss.TableSize
		}
	}
	if worlds != nil {
		cfg.Worlds = *worlds
	}
	if workers != nil {
		cfg.Workers = *workers
	}
	if budgetMs != nil {
		cfg.Solver.Budget = time.Duration(*budgetMs) * time.Millisecond
	}
	if tableSize != nil {
		slots = *tableSize
	}
	if seed != nil {
		cfg.Seed = *seed
	}

	cfg.Solver.Table = search.NewTable(slots)
	return cfg
}
