package cfr

import (
	"math/rand/v2"

	"github.com/lox/cardplatypus/internal/game"
)

// Traversal phases for reach-weighted CFR. Once the opposing team's reach
// hits zero every regret update below is zero-weighted, so the traversal
// drops to the averaging phase; once the update player's own reach is also
// zero there is nothing left to accumulate.
type phase int

const (
	phaseRegrets phase = iota
	phaseAverageOnly
)

// reachCFR is the full-width traversal shared by vanilla and chance-sampled
// CFR. reach holds the product of action probabilities per team,
// chanceReach the product of chance probabilities. Values are always for
// the update player.
//
// Vanilla weights regret updates by chanceReach times the opposing reach;
// the chance-sampled variant samples one chance history per traversal and
// drops chanceReach from the weight, where it cancels against the sampling
// probability.
func (t *Trainer) reachCFR(st game.State, player game.Player, it uint64, reach [2]float64, chanceReach float64, ph phase, sampleChance bool, rng *rand.Rand) (float64, error) {
	if st.IsTerminal() {
		return st.Evaluate(player), nil
	}

	if st.IsChance() {
		legal := st.LegalActions(nil)
		if sampleChance {
			st.Apply(legal[rng.IntN(len(legal))])
			v, err := t.reachCFR(st, player, it, reach, chanceReach, ph, sampleChance, rng)
			st.Undo()
			return v, err
		}
		p := 1.0 / float64(len(legal))
		ev := 0.0
		for _, a := range legal {
			st.Apply(a)
			v, err := t.reachCFR(st, player, it, reach, chanceReach*p, ph, sampleChance, rng)
			st.Undo()
			if err != nil {
				return 0, err
			}
			ev += p * v
		}
		return ev, nil
	}

	if t.cfg.MaxDepth != nil && t.cfg.MaxDepth(st) {
		return t.leafValue(st, player)
	}

	cur := st.CurrentPlayer()
	myTeam := game.TeamOf(cur)
	myReach, oppReach := reach[myTeam], reach[1-myTeam]

	if cur == player {
		if ph == phaseRegrets && oppReach == 0 {
			ph = phaseAverageOnly
		}
		if ph == phaseAverageOnly && myReach == 0 {
			return 0, nil
		}
	}

	actions := st.LegalActions(nil)
	idx, node, pairs, err := t.fetch(st, cur, actions)
	if err != nil {
		return 0, err
	}
	policy := node.Strategy(nil)

	children := make([]float64, len(pairs))
	stratEV := 0.0
	for i, pr := range pairs {
		childReach := reach
		childReach[myTeam] *= policy[i]
		st.Apply(pr.raw)
		children[i], err = t.reachCFR(st, player, it, childReach, chanceReach, ph, sampleChance, rng)
		st.Undo()
		if err != nil {
			return 0, err
		}
		stratEV += policy[i] * children[i]
	}

	if cur == player {
		if ph == phaseRegrets {
			weight := oppReach
			if !sampleChance {
				weight *= chanceReach
			}
			t.discount(node, it)
			for i := range pairs {
				node.RegretSum[i] += weight * (children[i] - stratEV)
			}
		}
		for i := range pairs {
			node.StrategySum[i] += myReach * policy[i]
		}
		if err := t.store.Put(idx, node); err != nil {
			return 0, err
		}
	}
	return stratEV, nil
}
