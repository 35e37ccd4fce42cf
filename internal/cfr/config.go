// Package cfr trains regret-minimization policies over the games in this
// module. Three traversal modes are provided: external-sampling MCCFR (the
// default, and the only one practical for Euchre), chance-sampled CFR, and
// vanilla CFR with full chance expansion. Node state lives in a
// nodestore.Store keyed by a dense istate index, so training can run against
// either the in-memory store or the mmap-backed one.
package cfr

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/search"
)

// Mode selects the CFR traversal variant.
type Mode string

const (
	// ModeExternal is external-sampling MCCFR: one update player per
	// episode, chance and opponents sampled, the update player's actions
	// enumerated.
	ModeExternal Mode = "external"
	// ModeChance is chance-sampled CFR: one sampled chance history per
	// traversal, full expansion of player actions.
	ModeChance Mode = "chance"
	// ModeVanilla is vanilla CFR: full expansion of chance and player
	// actions. Only feasible for small games.
	ModeVanilla Mode = "vanilla"
)

// LinearDiscountCutoff is the iteration past which linear regret
// discounting stops being applied.
const LinearDiscountCutoff = 1_000_000

// Config configures a Trainer.
type Config struct {
	Mode Mode
	// Iterations is the total number of training iterations. Each
	// iteration runs one traversal per seat.
	Iterations uint64
	// Workers is the number of concurrent traversal goroutines. Zero
	// means one.
	Workers int
	// Seed makes chance and opponent sampling deterministic per worker.
	Seed int64

	// MaxDepth reports whether traversal should stop at a state and score
	// the current sampled world exactly with the open-hand solver. Nil
	// disables the cutoff.
	MaxDepth func(st game.State) bool
	// Solver configures the leaf evaluator used at the depth cutoff.
	Solver search.SolverConfig

	// LinearDiscount scales stored regrets by i/(i+1) per elapsed
	// iteration, up to DiscountCutoff.
	LinearDiscount bool
	DiscountCutoff uint64

	// CheckpointPath, when set, persists training progress every
	// CheckpointEvery iterations and on completion, and resumes from it.
	CheckpointPath  string
	CheckpointEvery uint64

	Logger *log.Logger
}

// DefaultConfig returns the external-sampling defaults.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeExternal,
		Iterations:      100_000,
		Workers:         1,
		LinearDiscount:  true,
		DiscountCutoff:  LinearDiscountCutoff,
		CheckpointEvery: 10_000,
	}
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeExternal, ModeChance, ModeVanilla:
	default:
		return fmt.Errorf("cfr: unknown mode %q", c.Mode)
	}
	if c.Iterations == 0 {
		return fmt.Errorf("cfr: iterations must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("cfr: workers must be non-negative, got %d", c.Workers)
	}
	if c.LinearDiscount && c.DiscountCutoff == 0 {
		return fmt.Errorf("cfr: discount cutoff must be positive when discounting")
	}
	if c.CheckpointPath != "" && c.CheckpointEvery == 0 {
		return fmt.Errorf("cfr: checkpoint interval must be positive")
	}
	return nil
}

// Progress reports training progress to the Run callback.
type Progress struct {
	Iteration    uint64
	Total        uint64
	NodesTouched uint64
	Elapsed      time.Duration
}
