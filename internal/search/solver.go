package search

import (
	"errors"
	"math"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/cardplatypus/internal/game"
)

// ErrSearchBudgetExceeded is returned when the configured time budget runs
// out. The accompanying result is the best found so far.
var ErrSearchBudgetExceeded = errors.New("search: budget exceeded")

// SolverConfig configures an OpenHandSolver.
type SolverConfig struct {
	// Table shares perfect-information values across searches and
	// isomorphic worlds. Nil disables transpositions.
	Table *Table
	// Budget bounds one Solve call; zero means no limit.
	Budget time.Duration
	// Clock defaults to the real clock. Injected for budget tests.
	Clock quartz.Clock
}

// OpenHandSolver computes the exact value of a perfect-information world by
// repeated zero-window alpha-beta probes (MTD-f). Payoffs in the games here
// are small integers, so the zero-window bracket closes in a handful of
// probes.
type OpenHandSolver struct {
	cfg SolverConfig
}

func NewOpenHandSolver(cfg SolverConfig) *OpenHandSolver {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	return &OpenHandSolver{cfg: cfg}
}

// Result is a solved value with the action that achieves it.
type Result struct {
	Value float64
	Best  game.Action
}

type searchCtx struct {
	table    *Table
	clock    quartz.Clock
	deadline time.Time
	checked  int
}

func (sc *searchCtx) overBudget() bool {
	if sc.deadline.IsZero() {
		return false
	}
	// amortize the clock call
	sc.checked++
	if sc.checked%256 != 0 {
		return false
	}
	return sc.clock.Now().After(sc.deadline)
}

// Solve returns the game value of the world for the given player's team,
// with play continuing from the world's current player. The world must be
// fully determined (no chance nodes remaining).
func (s *OpenHandSolver) Solve(world game.State, player game.Player) (Result, error) {
	sc := &searchCtx{table: s.cfg.Table, clock: s.cfg.Clock}
	if s.cfg.Budget > 0 {
		sc.deadline = s.cfg.Clock.Now().Add(s.cfg.Budget)
	}

	maximizing := game.TeamOf(player)
	best := Result{}
	haveResult := false

	// MTD-f: walk a guess toward the true value with zero-window probes,
	// each probe tightening one side of the bracket.
	guess := 0.0
	lower, upper := math.Inf(-1), math.Inf(1)
	for lower < upper {
		beta := guess
		if guess == lower {
			beta = guess + 1
		}

		st := world.Clone()
		value, action, err := alphaBeta(sc, st, maximizing, beta-1, beta)
		if err != nil {
			if haveResult {
				return best, ErrSearchBudgetExceeded
			}
			return Result{}, ErrSearchBudgetExceeded
		}

		guess = value
		if value < beta {
			upper = value
		} else {
			lower = value
			best = Result{Value: value, Best: action}
			haveResult = true
		}
	}
	best.Value = guess
	return best, nil
}

// alphaBeta is a fail-soft team minimax with memory. It mutates st in place
// via apply/undo.
func alphaBeta(sc *searchCtx, st game.State, maximizing game.Team, alpha, beta float64) (float64, game.Action, error) {
	if st.IsTerminal() {
		return st.Evaluate(game.Player(maximizing)), 0, nil
	}
	if st.IsChance() {
		panic("search: open-hand solver reached a chance node")
	}
	if sc.overBudget() {
		return 0, 0, ErrSearchBudgetExceeded
	}

	actions := st.LegalActions(nil)

	// a forced action changes nothing; skip straight through
	if len(actions) == 1 {
		st.Apply(actions[0])
		v, _, err := alphaBeta(sc, st, maximizing, alpha, beta)
		st.Undo()
		return v, actions[0], err
	}

	// transposition probe, only at states that define a hash
	var hash uint64
	var hashed bool
	if sc.table != nil {
		if h, ok := st.(game.TranspositionHasher); ok {
			if hash, hashed = h.TranspositionHash(); hashed {
				if lo, hi, tbest, ok := sc.table.Lookup(hash); ok {
					if lo >= beta {
						return lo, tbest, nil
					}
					if hi <= alpha {
						return hi, tbest, nil
					}
					alpha = math.Max(alpha, lo)
					beta = math.Min(beta, hi)
					moveToFront(actions, tbest)
				}
			}
		}
	}

	alphaOrig, betaOrig := alpha, beta
	maximizingNode := game.TeamOf(st.CurrentPlayer()) == maximizing

	value := math.Inf(1)
	if maximizingNode {
		value = math.Inf(-1)
	}
	var bestAction game.Action

	for _, a := range actions {
		st.Apply(a)
		childValue, _, err := alphaBeta(sc, st, maximizing, alpha, beta)
		st.Undo()
		if err != nil {
			return 0, 0, err
		}

		if maximizingNode {
			if childValue > value {
				value, bestAction = childValue, a
			}
			alpha = math.Max(alpha, value)
		} else {
			if childValue < value {
				value, bestAction = childValue, a
			}
			beta = math.Min(beta, value)
		}
		if alpha >= beta {
			break
		}
	}

	if hashed {
		switch {
		case value <= alphaOrig:
			sc.table.Store(hash, math.Inf(-1), value, bestAction)
		case value >= betaOrig:
			sc.table.Store(hash, value, math.Inf(1), bestAction)
		default:
			sc.table.Store(hash, value, value, bestAction)
		}
	}
	return value, bestAction, nil
}

func moveToFront(actions []game.Action, best game.Action) {
	for i, a := range actions {
		if a == best {
			copy(actions[1:i+1], actions[:i])
			actions[0] = best
			return
		}
	}
}
