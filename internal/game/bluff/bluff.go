// Package bluff implements a two-player bluffing dice game (liar's dice).
// Each player secretly rolls startingDice dice, then the players alternate
// raising bids of the form "at least n dice show face f" until one calls.
// Sixes are wild and count for every face.
package bluff

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/lox/cardplatypus/internal/game"
)

const (
	startingDice = 2
	numPlayers   = 2
	totalDice    = startingDice * numPlayers
	wildFace     = 6
)

// Action numbering. Rolls and bids share one space so the whole game fits a
// single action history: Call is 0, Roll(face) is 1..6 and Bid(n, face) is
// 6 + totalDice*face + n.
const (
	Call game.Action = 0
)

// Roll returns the chance action for rolling a die showing face (1..6,
// where 6 is the wild).
func Roll(face int) game.Action {
	if face < 1 || face > 6 {
		panic("bluff: invalid die face")
	}
	return game.Action(face)
}

// Bid returns the action bidding that at least n dice show face f. Faces are
// ordered 1..5 with wilds excluded from bidding; a bid is higher than
// another when its face is higher, or the faces match and its count is
// higher.
func Bid(n, face int) game.Action {
	if n < 1 || n > totalDice || face < 1 || face > 5 {
		panic(fmt.Sprintf("bluff: invalid bid %d-%d", n, face))
	}
	return game.Action(6 + totalDice*face + n)
}

// bidParts inverts Bid.
func bidParts(a game.Action) (n, face int) {
	v := int(a) - 6
	n = v % totalDice
	face = v / totalDice
	if n == 0 {
		n = totalDice
		face--
	}
	return n, face
}

func isBid(a game.Action) bool {
	return a > 6
}

// State holds a bluff hand. The key layout is four alternating chance rolls
// (p0, p1, p0, p1) followed by the bid history.
type State struct {
	key game.Key
}

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

func (s *State) rolling() bool {
	return s.key.Len() < totalDice
}

func (s *State) Apply(a game.Action) {
	if s.rolling() {
		if a < 1 || a > 6 {
			panic("bluff: roll phase requires a die face")
		}
	} else if a != Call && !isBid(a) {
		panic("bluff: bid phase requires a bid or call")
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
	if s.rolling() {
		for f := 1; f <= 6; f++ {
			buf = append(buf, Roll(f))
		}
		return buf
	}

	lastBid := game.Action(0)
	if a, ok := s.key.Last(); ok && isBid(a) {
		lastBid = a
	}
	if lastBid != 0 {
		// calling only makes sense once a bid is on the table
		buf = append(buf, Call)
	}
	for face := 1; face <= 5; face++ {
		for n := 1; n <= totalDice; n++ {
			if b := Bid(n, face); b > lastBid {
				buf = append(buf, b)
			}
		}
	}
	return buf
}

func (s *State) IsTerminal() bool {
	a, ok := s.key.Last()
	return ok && a == Call
}

func (s *State) IsChance() bool {
	return s.rolling()
}

func (s *State) CurrentPlayer() game.Player {
	// rolls alternate p0,p1,p0,p1 and betting continues the alternation,
	// so parity of the history length gives the actor throughout
	return game.Player(s.key.Len() % numPlayers)
}

func (s *State) NumPlayers() int {
	return numPlayers
}

// Evaluate scores the hand ±1: if at least n dice show the bid face (wilds
// count), the final bidder wins the call, otherwise the caller does.
func (s *State) Evaluate(p game.Player) float64 {
	if !s.IsTerminal() {
		panic("bluff: evaluate called on non-terminal state")
	}
	if s.key.Len() < totalDice+2 {
		panic("bluff: call with no bid on the table")
	}

	n, face := bidParts(s.key.At(s.key.Len() - 2))
	count := 0
	for i := 0; i < totalDice; i++ {
		f := int(s.key.At(i))
		if f == face || f == wildFace {
			count++
		}
	}

	caller := game.Player((s.key.Len() - 1) % numPlayers)
	bidder := 1 - caller
	winner := caller
	if count >= n {
		winner = bidder
	}
	if p == winner {
		return 1
	}
	return -1
}

// InfoKey shows a player their own dice (sorted) and the public bid history.
func (s *State) InfoKey(p game.Player) game.Key {
	var k game.Key
	for i := int(p); i < s.key.Len() && i < totalDice; i += numPlayers {
		k.Push(s.key.At(i))
	}
	k.SortRange(0, k.Len())
	for i := totalDice; i < s.key.Len(); i++ {
		k.Push(s.key.At(i))
	}
	return k
}

func (s *State) InfoString(p game.Player) string {
	k := s.InfoKey(p)
	var sb strings.Builder
	i := 0
	for ; i < k.Len() && !isBid(k.At(i)) && k.At(i) != Call; i++ {
		if f := int(k.At(i)); f == wildFace {
			sb.WriteByte('*')
		} else {
			fmt.Fprintf(&sb, "%d", f)
		}
	}
	for ; i < k.Len(); i++ {
		a := k.At(i)
		if a == Call {
			sb.WriteString("|C")
			continue
		}
		n, face := bidParts(a)
		fmt.Fprintf(&sb, "|%d-%d", n, face)
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

// Resample keeps player p's own rolls and redraws the opponent's.
func (s *State) Resample(p game.Player, rng *rand.Rand) game.State {
	ns := NewState()
	for i := 0; i < s.key.Len(); i++ {
		if i < totalDice && game.Player(i%numPlayers) != p {
			ns.Apply(Roll(1 + rng.IntN(6)))
			continue
		}
		ns.Apply(s.key.At(i))
	}
	return ns
}

var _ game.State = (*State)(nil)
var _ game.Resampler = (*State)(nil)
