// Package agent provides table-ready decision makers: uniform random play,
// sampling from a trained average policy, and PIMCTS search.
package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/lox/cardplatypus/internal/cfr"
	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/randutil"
	"github.com/lox/cardplatypus/internal/search"
)

// Agent decides an action for the state's current player.
type Agent interface {
	Act(ctx context.Context, st game.State) (game.Action, error)
}

// Random plays uniformly among the legal actions.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: randutil.New(seed)}
}

func (r *Random) Act(_ context.Context, st game.State) (game.Action, error) {
	legal := st.LegalActions(nil)
	if len(legal) == 0 {
		return 0, fmt.Errorf("agent: no legal actions")
	}
	return legal[r.rng.IntN(len(legal))], nil
}

// PolicySource supplies average-policy probabilities, typically a
// cfr.Trainer over a loaded node store.
type PolicySource interface {
	ActionProbabilities(st game.State) ([]cfr.ActionProb, error)
}

// Policy samples actions from a trained average policy.
type Policy struct {
	src PolicySource
	rng *rand.Rand
}

func NewPolicy(src PolicySource, seed int64) *Policy {
	return &Policy{src: src, rng: randutil.New(seed)}
}

func (p *Policy) Act(_ context.Context, st game.State) (game.Action, error) {
	probs, err := p.src.ActionProbabilities(st)
	if err != nil {
		return 0, err
	}
	if len(probs) == 0 {
		return 0, fmt.Errorf("agent: policy returned no actions")
	}
	r := p.rng.Float64()
	acc := 0.0
	for _, ap := range probs {
		acc += ap.Prob
		if r < acc {
			return ap.Action, nil
		}
	}
	return probs[len(probs)-1].Action, nil
}

// Searcher plays the PIMCTS recommendation. A blown search budget is not an
// error; the best recommendation found so far is used.
type Searcher struct {
	pimcts *search.PIMCTS
}

func NewSearcher(p *search.PIMCTS) *Searcher {
	return &Searcher{pimcts: p}
}

func (s *Searcher) Act(ctx context.Context, st game.State) (game.Action, error) {
	values, err := s.pimcts.Recommend(ctx, st)
	if err != nil && !errors.Is(err, search.ErrSearchBudgetExceeded) {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("agent: search produced no recommendation")
	}
	return search.Best(values), nil
}
