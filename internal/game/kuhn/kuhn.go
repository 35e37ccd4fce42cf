// Package kuhn implements Kuhn poker, the standard three-card test game for
// regret-minimization algorithms. Both chance deals and betting are encoded
// in a single action history, so the state is just the key.
package kuhn

import (
	"math/rand/v2"
	"strings"

	"github.com/lox/cardplatypus/internal/game"
)

const (
	Bet game.Action = iota
	Pass
	Jack
	Queen
	King
)

// State holds a Kuhn poker hand. The first two actions are the chance deals
// for players 0 and 1, the rest is the betting history.
type State struct {
	key game.Key
}

// NewState returns the root state, ready to deal.
func NewState() *State {
	return &State{}
}

// FromActions replays a sequence of actions from the root.
func FromActions(actions ...game.Action) *State {
	s := NewState()
	for _, a := range actions {
		s.Apply(a)
	}
	return s
}

func (s *State) Apply(a game.Action) {
	if s.IsChance() {
		if a != Jack && a != Queen && a != King {
			panic("kuhn: deal action must be a card")
		}
		if s.key.Len() == 1 && s.key.At(0) == a {
			panic("kuhn: cannot deal the same card twice")
		}
	}
	s.key.Push(a)
}

func (s *State) Undo() {
	s.key.Pop()
}

func (s *State) LegalActions(buf []game.Action) []game.Action {
	buf = buf[:0]
	if s.IsTerminal() {
		return buf
	}
	if s.IsChance() {
		for _, c := range []game.Action{Jack, Queen, King} {
			if s.key.Len() > 0 && s.key.At(0) == c {
				continue
			}
			buf = append(buf, c)
		}
		return buf
	}
	return append(buf, Bet, Pass)
}

func (s *State) IsTerminal() bool {
	n := s.key.Len()
	if n == 5 {
		return true
	}
	if n != 4 {
		return false
	}
	// bb, pp or bp end the hand; pb gives player 0 another decision
	return s.key.At(2) == s.key.At(3) || (s.key.At(2) == Bet && s.key.At(3) == Pass)
}

func (s *State) IsChance() bool {
	return s.key.Len() < 2
}

func (s *State) CurrentPlayer() game.Player {
	return game.Player(s.key.Len() % 2)
}

func (s *State) NumPlayers() int {
	return 2
}

// Evaluate returns the payoff for player p. Card actions are ordered
// Jack < Queen < King, so deals compare directly.
func (s *State) Evaluate(p game.Player) float64 {
	if !s.IsTerminal() {
		panic("kuhn: evaluate called on non-terminal state")
	}

	highDealWins := func(stake float64) float64 {
		if s.key.At(0) > s.key.At(1) {
			return stake
		}
		return -stake
	}

	var p0 float64
	switch {
	case s.key.Len() == 4 && s.key.At(2) == Pass && s.key.At(3) == Pass:
		p0 = highDealWins(1)
	case s.key.Len() == 4 && s.key.At(2) == Bet && s.key.At(3) == Bet:
		p0 = highDealWins(2)
	case s.key.Len() == 5 && s.key.At(4) == Bet:
		p0 = highDealWins(2)
	case s.key.Len() == 5 && s.key.At(4) == Pass:
		p0 = -1
	case s.key.Len() == 4 && s.key.At(2) == Bet && s.key.At(3) == Pass:
		p0 = 1
	default:
		panic("kuhn: invalid terminal history")
	}

	if p%2 == 0 {
		return p0
	}
	return -p0
}

// InfoKey hides the opponent's card: the player's own deal followed by the
// public betting history.
func (s *State) InfoKey(p game.Player) game.Key {
	var k game.Key
	if s.key.Len() > int(p) {
		k.Push(s.key.At(int(p)))
	}
	for i := 2; i < s.key.Len(); i++ {
		k.Push(s.key.At(i))
	}
	return k
}

func (s *State) InfoString(p game.Player) string {
	k := s.InfoKey(p)
	var sb strings.Builder
	for i := 0; i < k.Len(); i++ {
		switch k.At(i) {
		case Jack:
			sb.WriteString("J")
		case Queen:
			sb.WriteString("Q")
		case King:
			sb.WriteString("K")
		case Bet:
			sb.WriteString("b")
		case Pass:
			sb.WriteString("p")
		}
	}
	return sb.String()
}

func (s *State) Key() game.Key {
	return s.key
}

func (s *State) Clone() game.State {
	c := *s
	return &c
}

// Resample deals a new hand consistent with player p's information state:
// their own card is preserved, the opponent redraws.
func (s *State) Resample(p game.Player, rng *rand.Rand) game.State {
	own := s.key.At(int(p))
	ns := NewState()
	var buf []game.Action
	for i := 0; i < s.key.Len(); i++ {
		switch {
		case i == int(p):
			ns.Apply(own)
		case ns.IsChance():
			buf = ns.LegalActions(buf)
			rng.Shuffle(len(buf), func(i, j int) { buf[i], buf[j] = buf[j], buf[i] })
			for _, a := range buf {
				if a != own {
					ns.Apply(a)
					break
				}
			}
		default:
			ns.Apply(s.key.At(i))
		}
	}
	return ns
}

var _ game.State = (*State)(nil)
var _ game.Resampler = (*State)(nil)
