package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/randutil"
)

// PIMCTSConfig configures perfect-information Monte Carlo action selection.
type PIMCTSConfig struct {
	// Worlds is the number of deals resampled per decision.
	Worlds int
	// Workers bounds solver parallelism; zero means one per world.
	Workers int
	// Seed makes world sampling deterministic.
	Seed int64
	// Solver settings shared by all worlds.
	Solver SolverConfig
}

func DefaultPIMCTSConfig() PIMCTSConfig {
	return PIMCTSConfig{
		Worlds: 50,
		Solver: SolverConfig{Table: NewTable(1 << 20)},
	}
}

func (c PIMCTSConfig) Validate() error {
	if c.Worlds <= 0 {
		return fmt.Errorf("search: pimcts needs at least one world, got %d", c.Worlds)
	}
	if c.Workers < 0 {
		return fmt.Errorf("search: workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// ActionValue is an action's mean solved value across sampled worlds.
type ActionValue struct {
	Action game.Action
	Value  float64
}

// PIMCTS recommends actions by determinizing: sample worlds consistent with
// the player's information state, solve every root action in every world
// exactly, and pick the action with the best mean. The same worlds are used
// for all actions so the comparison is paired.
type PIMCTS struct {
	cfg    PIMCTSConfig
	solver *OpenHandSolver
}

func NewPIMCTS(cfg PIMCTSConfig) (*PIMCTS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PIMCTS{cfg: cfg, solver: NewOpenHandSolver(cfg.Solver)}, nil
}

// Recommend returns the best action for the state's current player, with the
// per-action means. The state must expose resampling. On a blown budget the
// result so far is returned along with ErrSearchBudgetExceeded.
func (p *PIMCTS) Recommend(ctx context.Context, st game.State) ([]ActionValue, error) {
	resampler, ok := st.(game.Resampler)
	if !ok {
		return nil, fmt.Errorf("search: %T does not support resampling", st)
	}

	player := st.CurrentPlayer()
	actions := st.LegalActions(nil)
	if len(actions) == 0 {
		return nil, fmt.Errorf("search: no legal actions to recommend from")
	}

	// worlds are sampled up front, deterministically from the seed
	worlds := make([]game.State, p.cfg.Worlds)
	rng := randutil.New(p.cfg.Seed)
	for i := range worlds {
		worlds[i] = resampler.Resample(player, rng)
	}

	workers := p.cfg.Workers
	if workers == 0 {
		workers = len(worlds)
	}

	// values[w][i] = value of actions[i] in world w; summed after the pool
	// completes so results do not depend on scheduling
	values := make([][]float64, len(worlds))
	var budgetBlown atomic.Bool

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for w := range worlds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vals := make([]float64, len(actions))
			for i, a := range actions {
				world := worlds[w].Clone()
				world.Apply(a)
				var value float64
				if world.IsTerminal() {
					value = world.Evaluate(player)
				} else {
					res, err := p.solver.Solve(world, player)
					if err != nil {
						if errors.Is(err, ErrSearchBudgetExceeded) {
							budgetBlown.Store(true)
						} else {
							return err
						}
					}
					value = res.Value
				}
				vals[i] = value
			}
			values[w] = vals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ActionValue, len(actions))
	for i, a := range actions {
		sum := 0.0
		for w := range values {
			sum += values[w][i]
		}
		out[i] = ActionValue{Action: a, Value: sum / float64(len(worlds))}
	}
	if budgetBlown.Load() {
		return out, ErrSearchBudgetExceeded
	}
	return out, nil
}

// Best returns the first action attaining the maximum mean value.
func Best(values []ActionValue) game.Action {
	best := values[0]
	for _, v := range values[1:] {
		if v.Value > best.Value {
			best = v
		}
	}
	return best.Action
}

// Evaluate returns the mean solved value of the state for a player across
// resampled worlds, without expanding root actions.
func (p *PIMCTS) Evaluate(ctx context.Context, st game.State, player game.Player) (float64, error) {
	resampler, ok := st.(game.Resampler)
	if !ok {
		return 0, fmt.Errorf("search: %T does not support resampling", st)
	}

	rng := randutil.New(p.cfg.Seed)
	worlds := make([]game.State, p.cfg.Worlds)
	for i := range worlds {
		worlds[i] = resampler.Resample(st.CurrentPlayer(), rng)
	}

	workers := p.cfg.Workers
	if workers == 0 {
		workers = len(worlds)
	}

	values := make([]float64, len(worlds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for w := range worlds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.solver.Solve(worlds[w], player)
			if err != nil && !errors.Is(err, ErrSearchBudgetExceeded) {
				return err
			}
			values[w] = res.Value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(worlds)), nil
}
