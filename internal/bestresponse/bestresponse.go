// Package bestresponse computes tabular best-response values against a
// fixed policy by enumerating the full game tree. It exists to measure
// convergence of trained policies on small games; it is not feasible for
// full Euchre.
package bestresponse

import (
	"fmt"
	"math"

	"github.com/lox/cardplatypus/internal/game"
)

// Policy returns action probabilities for the state's current player,
// aligned with the state's legal actions.
type Policy func(st game.State) ([]float64, error)

// Uniform is the uniform random policy.
func Uniform(st game.State) ([]float64, error) {
	n := len(st.LegalActions(nil))
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = 1.0 / float64(n)
	}
	return probs, nil
}

// Value returns the expected value achieved by the responder's team playing
// a best response while every other seat follows pol. The response is
// chosen per information set, weighted by the opposing reach of each
// history in the set.
func Value(newRoot func() game.State, responder game.Player, pol Policy) (float64, error) {
	r := &solver{
		newRoot:   newRoot,
		pol:       pol,
		player:    responder,
		histories: make(map[game.Key][]weightedHistory),
		chosen:    make(map[game.Key]game.Action),
		values:    make(map[game.Key]float64),
	}
	if err := r.collect(newRoot(), 1); err != nil {
		return 0, err
	}
	return r.value(newRoot())
}

// Exploitability returns the mean best-response value across all seats.
// Zero-sum games yield zero exactly at equilibrium.
func Exploitability(newRoot func() game.State, pol Policy) (float64, error) {
	st := newRoot()
	sum := 0.0
	for p := 0; p < st.NumPlayers(); p++ {
		v, err := Value(newRoot, game.Player(p), pol)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(st.NumPlayers()), nil
}

type weightedHistory struct {
	key   game.Key
	reach float64
}

type solver struct {
	newRoot func() game.State
	pol     Policy
	player  game.Player

	// histories groups the responder team's decision histories by istate,
	// each carrying the reach contributed by chance and the other team.
	histories map[game.Key][]weightedHistory
	chosen    map[game.Key]game.Action
	values    map[game.Key]float64
}

func (s *solver) replay(k game.Key) game.State {
	st := s.newRoot()
	for i := 0; i < k.Len(); i++ {
		st.Apply(k.At(i))
	}
	return st
}

// collect walks the whole tree accumulating opposing reach per responder
// istate. The responder's own actions do not scale the reach.
func (s *solver) collect(st game.State, reach float64) error {
	if st.IsTerminal() {
		return nil
	}

	if st.IsChance() {
		legal := st.LegalActions(nil)
		p := 1.0 / float64(len(legal))
		for _, a := range legal {
			st.Apply(a)
			err := s.collect(st, reach*p)
			st.Undo()
			if err != nil {
				return err
			}
		}
		return nil
	}

	cur := st.CurrentPlayer()
	legal := st.LegalActions(nil)

	if game.TeamOf(cur) == game.TeamOf(s.player) {
		ik := st.InfoKey(cur)
		s.histories[ik] = append(s.histories[ik], weightedHistory{key: st.Key(), reach: reach})
		for _, a := range legal {
			st.Apply(a)
			err := s.collect(st, reach)
			st.Undo()
			if err != nil {
				return err
			}
		}
		return nil
	}

	probs, err := s.pol(st)
	if err != nil {
		return err
	}
	if len(probs) != len(legal) {
		return fmt.Errorf("bestresponse: policy returned %d probabilities for %d actions", len(probs), len(legal))
	}
	for i, a := range legal {
		st.Apply(a)
		err := s.collect(st, reach*probs[i])
		st.Undo()
		if err != nil {
			return err
		}
	}
	return nil
}

// value evaluates a history with the responder team playing its chosen
// response and everyone else following the policy.
func (s *solver) value(st game.State) (float64, error) {
	if st.IsTerminal() {
		return st.Evaluate(s.player), nil
	}
	key := st.Key()
	if v, ok := s.values[key]; ok {
		return v, nil
	}

	legal := st.LegalActions(nil)
	var v float64

	switch {
	case st.IsChance():
		p := 1.0 / float64(len(legal))
		for _, a := range legal {
			st.Apply(a)
			cv, err := s.value(st)
			st.Undo()
			if err != nil {
				return 0, err
			}
			v += p * cv
		}

	case game.TeamOf(st.CurrentPlayer()) == game.TeamOf(s.player):
		a, err := s.action(st.InfoKey(st.CurrentPlayer()))
		if err != nil {
			return 0, err
		}
		st.Apply(a)
		cv, err := s.value(st)
		st.Undo()
		if err != nil {
			return 0, err
		}
		v = cv

	default:
		probs, err := s.pol(st)
		if err != nil {
			return 0, err
		}
		for i, a := range legal {
			if probs[i] == 0 {
				continue
			}
			st.Apply(a)
			cv, err := s.value(st)
			st.Undo()
			if err != nil {
				return 0, err
			}
			v += probs[i] * cv
		}
	}

	s.values[key] = v
	return v, nil
}

// action picks the response at an istate: the action maximizing the
// reach-weighted value over every history in the set.
func (s *solver) action(ik game.Key) (game.Action, error) {
	if a, ok := s.chosen[ik]; ok {
		return a, nil
	}
	hists := s.histories[ik]
	if len(hists) == 0 {
		return 0, fmt.Errorf("bestresponse: istate %v never collected", ik)
	}

	// perfect recall: every history in the set shares its legal actions
	legal := s.replay(hists[0].key).LegalActions(nil)

	best := legal[0]
	bestScore := math.Inf(-1)
	for _, a := range legal {
		score := 0.0
		for _, h := range hists {
			st := s.replay(h.key)
			st.Apply(a)
			v, err := s.value(st)
			if err != nil {
				return 0, err
			}
			score += h.reach * v
		}
		if score > bestScore {
			best, bestScore = a, score
		}
	}
	s.chosen[ik] = best
	return best, nil
}
