package cfr

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/index"
	"github.com/lox/cardplatypus/internal/nodestore"
)

// ActionProb pairs a legal action with its probability under the average
// policy.
type ActionProb struct {
	Action game.Action
	Prob   float64
}

// Policy reads the trained average strategy out of a node store. It is the
// read-only view used by agents and the export tooling; a Trainer exposes
// the same view over its own store.
type Policy struct {
	store   nodestore.Store
	indexer index.Indexer
}

func NewPolicy(store nodestore.Store, indexer index.Indexer) *Policy {
	return &Policy{store: store, indexer: indexer}
}

// ActionProbabilities returns the average policy for the state's current
// player, in legal-action order. Untrained istates, and istates outside the
// index universe, get the uniform policy; the average strategy is the one
// with the convergence guarantee.
func (p *Policy) ActionProbabilities(st game.State) ([]ActionProb, error) {
	cur := st.CurrentPlayer()
	actions := st.LegalActions(nil)
	if len(actions) == 0 {
		return nil, fmt.Errorf("cfr: no legal actions")
	}

	uniform := func() []ActionProb {
		out := make([]ActionProb, len(actions))
		for i, a := range actions {
			out[i] = ActionProb{Action: a, Prob: 1.0 / float64(len(actions))}
		}
		return out
	}
	if len(actions) == 1 {
		return uniform(), nil
	}

	key, pairs := istatePairs(st, cur, actions)
	idx, err := p.indexer.Index(key)
	if errors.Is(err, index.ErrKeyNotInUniverse) {
		return uniform(), nil
	}
	if err != nil {
		return nil, err
	}
	node, err := p.store.Get(idx)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return uniform(), nil
	}
	if node.NumActions() != len(pairs) {
		return nil, fmt.Errorf("cfr: node %d holds %d actions, istate has %d", idx, node.NumActions(), len(pairs))
	}

	avg := node.AverageStrategy(nil)
	out := make([]ActionProb, len(pairs))
	for i, pr := range pairs {
		out[i] = ActionProb{Action: pr.raw, Prob: avg[i]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out, nil
}

// Policy returns the read-only average-strategy view over the trainer's
// store.
func (t *Trainer) Policy() *Policy {
	return &Policy{store: t.store, indexer: t.indexer}
}

// ActionProbabilities returns the trainer's current average policy for the
// state's current player.
func (t *Trainer) ActionProbabilities(st game.State) ([]ActionProb, error) {
	return t.Policy().ActionProbabilities(st)
}
