// Package euchre implements four-player Euchre: a 24-card deck, a bidding
// round over a face-up card, and five tricks with left and right bowers.
// It also provides the suit-isomorphic canonicalization, information-state
// enumeration and deal resampling the training and search layers build on.
package euchre

import (
	"fmt"

	"github.com/lox/cardplatypus/internal/game"
)

// Suit ordering matches the card numbering below.
type Suit uint8

const (
	Clubs Suit = iota
	Spades
	Hearts
	Diamonds
)

func (s Suit) String() string {
	return [...]string{"C", "S", "H", "D"}[s]
}

// Card indexes the 24-card deck: six ranks (9,T,J,Q,K,A) in each of the four
// suits, clubs first. The index doubles as the card's action value.
type Card uint8

const NumCards = 24

const (
	NC Card = iota
	TC
	JC
	QC
	KC
	AC
	NS
	TS
	JS
	QS
	KS
	AS
	NH
	TH
	JH
	QH
	KH
	AH
	ND
	TD
	JD
	QD
	KD
	AD
)

// jackRank is the rank index of the jack within a suit. Compaction of
// location words must never move a card across this boundary, because the
// jack's value depends on trump.
const jackRank = 2

func (c Card) Suit() Suit {
	return Suit(c / 6)
}

// Rank returns the rank index within the suit: 9 is 0, ace is 5.
func (c Card) Rank() int {
	return int(c % 6)
}

// Mask returns the card's bit in a Hand mask.
func (c Card) Mask() uint32 {
	return 1 << c
}

// WithSuit returns the same-rank card in another suit.
func (c Card) WithSuit(s Suit) Card {
	return Card(int(s)*6 + c.Rank())
}

func (c Card) String() string {
	ranks := "9TJQKA"
	suits := "cshd"
	return string(ranks[c.Rank()]) + string(suits[c.Suit()])
}

// CardFromString parses the two-character form used by String, e.g. "Js".
func CardFromString(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("euchre: invalid card %q", s)
	}
	rank := -1
	for i, r := range "9TJQKA" {
		if byte(r) == s[0] || byte(r)+('a'-'A') == s[0] {
			rank = i
			break
		}
	}
	suit := -1
	for i, c := range "cshd" {
		if byte(c) == s[1] || byte(c)-('a'-'A') == s[1] {
			suit = i
			break
		}
	}
	if rank < 0 || suit < 0 {
		return 0, fmt.Errorf("euchre: invalid card %q", s)
	}
	return Card(suit*6 + rank), nil
}

// Non-card actions continue the numbering after the deck.
const (
	ActPickup        game.Action = 24
	ActPass          game.Action = 25
	ActClubs         game.Action = 26
	ActSpades        game.Action = 27
	ActHearts        game.Action = 28
	ActDiamonds      game.Action = 29
	ActDiscardMarker game.Action = 30

	// NumActions bounds the action space.
	NumActions = 31
)

// CardAction converts a card to its action value.
func CardAction(c Card) game.Action {
	return game.Action(c)
}

// ActionCard converts a card action back to the card. Calling it on a
// non-card action is a programming error.
func ActionCard(a game.Action) Card {
	if a >= NumCards {
		panic(fmt.Sprintf("euchre: action %d is not a card", a))
	}
	return Card(a)
}

func isCardAction(a game.Action) bool {
	return a < NumCards
}

// SuitAction converts a suit to its trump-call action.
func SuitAction(s Suit) game.Action {
	return ActClubs + game.Action(s)
}

func actionSuit(a game.Action) Suit {
	if a < ActClubs || a > ActDiamonds {
		panic(fmt.Sprintf("euchre: action %d is not a suit call", a))
	}
	return Suit(a - ActClubs)
}

// ActionString renders an action the way game logs print them: cards as
// "Js", T for pickup, P for pass and single letters for trump calls.
func ActionString(a game.Action) string {
	switch {
	case isCardAction(a):
		return ActionCard(a).String()
	case a == ActPickup:
		return "T"
	case a == ActPass:
		return "P"
	case a >= ActClubs && a <= ActDiamonds:
		return actionSuit(a).String()
	case a == ActDiscardMarker:
		return "|Dis|"
	default:
		return fmt.Sprintf("?%d", a)
	}
}
