package euchre

import (
	"fmt"
	"math/bits"

	"github.com/lox/cardplatypus/internal/game"
)

// ActionSet is a bit mask over the action space.
type ActionSet uint32

const (
	allCardActions ActionSet = 1<<NumCards - 1
	spadeActions   ActionSet = 0b111111 << (6 * Spades)
	nonCardActions ActionSet = 1<<ActPickup | 1<<ActPass | 1<<ActClubs |
		1<<ActSpades | 1<<ActHearts | 1<<ActDiamonds | 1<<ActDiscardMarker
)

func (s *ActionSet) Add(a game.Action)    { *s |= 1 << a }
func (s *ActionSet) Remove(a game.Action) { *s &^= 1 << a }

func (s ActionSet) Contains(a game.Action) bool {
	return s&(1<<a) != 0
}

func (s ActionSet) And(o ActionSet) ActionSet {
	return s & o
}

func (s ActionSet) Len() int {
	return bits.OnesCount32(uint32(s))
}

// Pop removes and returns the lowest action in the set.
func (s *ActionSet) Pop() (game.Action, bool) {
	if *s == 0 {
		return 0, false
	}
	a := game.Action(bits.TrailingZeros32(uint32(*s)))
	s.Remove(a)
	return a, true
}

// RemoveLower drops every action at or below the highest action in other.
func (s *ActionSet) RemoveLower(other ActionSet) {
	*s &= ^ActionSet(0) << bits.Len32(uint32(other))
}

// iterState is a lightweight information state used only for enumeration. It
// tracks the action history plus masks of seen actions, enough to derive the
// phase and legal actions without simulating full game state.
type iterState struct {
	actions    [cardsPerHand * numPlayers]game.Action
	n          int
	played     ActionSet
	undealt    ActionSet
	hasDiscard bool
}

func newIterState() iterState {
	return iterState{undealt: allCardActions}
}

func (is *iterState) apply(a game.Action) {
	if is.n >= len(is.actions) {
		panic(fmt.Sprintf("euchre: istate overflow applying %d to %v", a, is.actions[:is.n]))
	}

	// the discard marker is a placeholder for the dealer's choice, so the
	// chosen card replaces it
	if is.n > 0 && is.actions[is.n-1] == ActDiscardMarker {
		is.n--
		is.hasDiscard = true
	}

	is.played.Add(a)
	is.undealt.Remove(a)
	is.actions[is.n] = a
	is.n++
}

func (is *iterState) last() (game.Action, bool) {
	if is.n == 0 {
		return 0, false
	}
	return is.actions[is.n-1], true
}

func (is *iterState) phase() Phase {
	last, _ := is.last()
	switch {
	case is.n < cardsPerHand:
		return PhaseDealHands
	case is.n == cardsPerHand:
		return PhaseDealFaceUp
	case last == ActDiscardMarker:
		return PhaseDiscard
	case (last == ActPass && is.n < 10) || is.n == 6:
		return PhasePickup
	case last == ActPass && is.n >= 10:
		return PhaseChooseTrump
	default:
		return PhasePlay
	}
}

func (is *iterState) legalActions() ActionSet {
	switch is.phase() {
	case PhaseDealHands:
		// deal ascending so each hand is enumerated once
		actions := is.undealt
		actions.RemoveLower(is.played.And(allCardActions))
		return actions
	case PhaseDealFaceUp:
		return spadeActions.And(is.undealt)
	case PhasePickup:
		return 1<<ActPass | 1<<ActPickup
	case PhaseDiscard:
		var actions ActionSet
		for _, c := range is.actions[:cardsPerHand+1] {
			actions.Add(c)
		}
		return actions
	case PhaseChooseTrump:
		var actions ActionSet
		passes := 0
		for _, a := range is.actions[:is.n] {
			if a == ActPass {
				passes++
			}
		}
		if passes <= 7 {
			actions.Add(ActPass)
		}
		faceUp := ActionCard(is.actions[cardsPerHand]).Suit()
		for s := Clubs; s <= Diamonds; s++ {
			if s != faceUp {
				actions.Add(SuitAction(s))
			}
		}
		return actions
	default: // PhasePlay
		return is.undealt
	}
}

// cardsPlayed counts card actions beyond the six a player always sees from
// the deal and the up card.
func (is *iterState) cardsPlayed() int {
	seen := (is.played &^ nonCardActions).Len()
	if seen < 6 {
		seen = 6
	}
	return seen - 6
}

func (is *iterState) key() game.Key {
	return game.KeyFromActions(is.actions[:is.n]...)
}

// Iterator enumerates every canonical information state up to a play depth,
// depth first. Only spades may appear face up; deals with other up cards are
// isomorphic to a spade one. Restricting the face-up cards shards the
// enumeration, since deals with different up cards never share istates.
type Iterator struct {
	stack     []iterState
	maxPlayed int
	faceUpSet ActionSet
}

// NewIterator enumerates istates for all six face-up spades.
func NewIterator(maxCardsPlayed int) *Iterator {
	return NewIteratorWithFaceUp(maxCardsPlayed, []Card{NS, TS, JS, QS, KS, AS})
}

// NewIteratorWithFaceUp enumerates istates whose face-up card is in the
// given set. Cards must be distinct spades and maxCardsPlayed at most 4; the
// first-trick assumptions baked into canonicalization do not extend further.
func NewIteratorWithFaceUp(maxCardsPlayed int, faceUp []Card) *Iterator {
	if maxCardsPlayed > 4 {
		panic("euchre: istate iteration only supports the first trick")
	}
	var set ActionSet
	for _, c := range faceUp {
		if c.Suit() != Spades {
			panic(fmt.Sprintf("euchre: face-up card %v is not a spade", c))
		}
		if set.Contains(CardAction(c)) {
			panic(fmt.Sprintf("euchre: duplicate face-up card %v", c))
		}
		set.Add(CardAction(c))
	}
	return &Iterator{
		stack:     []iterState{newIterState()},
		maxPlayed: maxCardsPlayed,
		faceUpSet: set,
	}
}

func (it *Iterator) nextUnfiltered() (iterState, bool) {
	var state iterState
	for {
		if len(it.stack) == 0 {
			return iterState{}, false
		}
		candidate := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		// discard decision states exist at every depth
		if last, ok := candidate.last(); ok && last == ActPickup {
			ns := candidate
			ns.apply(ActDiscardMarker)
			it.stack = append(it.stack, ns)
		}

		// dealer istates that resolved a discard are only expanded when the
		// enumeration reaches the dealer's first play
		if candidate.hasDiscard && it.maxPlayed >= 4 && candidate.cardsPlayed() < it.maxPlayed {
			for actions := candidate.legalActions(); ; {
				a, ok := actions.Pop()
				if !ok {
					break
				}
				ns := candidate
				ns.apply(a)
				it.stack = append(it.stack, ns)
			}
		}

		skip := (candidate.phase() == PhasePlay && candidate.cardsPlayed() >= it.maxPlayed) ||
			(candidate.hasDiscard && it.maxPlayed < 4) ||
			(candidate.hasDiscard && candidate.cardsPlayed() < 4)
		if !skip {
			state = candidate
			break
		}
	}

	// expanding beyond the depth cap only creates states that get skipped
	if it.maxPlayed == 0 || state.cardsPlayed() < it.maxPlayed {
		for actions := state.legalActions(); ; {
			a, ok := actions.Pop()
			if !ok {
				break
			}
			ns := state
			ns.apply(a)
			it.stack = append(it.stack, ns)
		}
	}

	return state, true
}

// Next returns the next canonical istate key, or false when exhausted.
func (it *Iterator) Next() (game.Key, bool) {
	for {
		state, ok := it.nextUnfiltered()
		if !ok {
			return game.Key{}, false
		}

		if state.n > cardsPerHand && !it.faceUpSet.Contains(state.actions[cardsPerHand]) {
			continue
		}

		phase := state.phase()
		if phase == PhaseDealHands || phase == PhaseDealFaceUp {
			continue
		}

		key := state.key()
		if key.Equal(NormalizeInfoKey(key)) {
			return key, true
		}
	}
}
