package cfr

import (
	"math/rand/v2"

	"github.com/lox/cardplatypus/internal/game"
)

// external runs one external-sampling episode for an update player and
// returns the sampled counterfactual value of st for that player.
//
// Chance outcomes and actions of other seats are sampled; the update
// player's actions are enumerated. Regrets accumulate at the update
// player's own nodes, the average strategy at opposing-team nodes (simple
// averaging, which reduces to the standard opponent-node rule in
// two-player games).
func (t *Trainer) external(st game.State, player game.Player, it uint64, rng *rand.Rand) (float64, error) {
	if st.IsTerminal() {
		return st.Evaluate(player), nil
	}

	if st.IsChance() {
		legal := st.LegalActions(nil)
		st.Apply(legal[rng.IntN(len(legal))])
		v, err := t.external(st, player, it, rng)
		st.Undo()
		return v, err
	}

	if t.cfg.MaxDepth != nil && t.cfg.MaxDepth(st) {
		return t.leafValue(st, player)
	}

	cur := st.CurrentPlayer()
	actions := st.LegalActions(nil)

	// a forced action carries no regret; pass through without touching
	// the store
	if len(actions) == 1 {
		st.Apply(actions[0])
		v, err := t.external(st, player, it, rng)
		st.Undo()
		return v, err
	}

	idx, node, pairs, err := t.fetch(st, cur, actions)
	if err != nil {
		return 0, err
	}
	policy := node.Strategy(nil)

	var value float64
	dirty := false

	if cur != player {
		i := sampleIndex(rng, policy)
		st.Apply(pairs[i].raw)
		value, err = t.external(st, player, it, rng)
		st.Undo()
		if err != nil {
			return 0, err
		}
	} else {
		children := make([]float64, len(pairs))
		for i, pr := range pairs {
			st.Apply(pr.raw)
			children[i], err = t.external(st, player, it, rng)
			st.Undo()
			if err != nil {
				return 0, err
			}
			value += policy[i] * children[i]
		}
		t.discount(node, it)
		for i := range pairs {
			node.RegretSum[i] += children[i] - value
		}
		dirty = true
	}

	if game.TeamOf(cur) != game.TeamOf(player) {
		for i := range pairs {
			node.StrategySum[i] += policy[i]
		}
		dirty = true
	}

	if dirty {
		if err := t.store.Put(idx, node); err != nil {
			return 0, err
		}
	}
	return value, nil
}
