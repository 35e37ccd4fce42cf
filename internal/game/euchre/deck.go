package euchre

import (
	"math/bits"

	"github.com/lox/cardplatypus/internal/game"
)

// Location tracks where a card currently sits.
type Location uint8

const (
	LocNone Location = iota
	LocPlayer0
	LocPlayer1
	LocPlayer2
	LocPlayer3
	LocPlayed0
	LocPlayed1
	LocPlayed2
	LocPlayed3
	LocFaceUp
)

// PlayerLoc returns the hand location for a player.
func PlayerLoc(p game.Player) Location {
	return LocPlayer0 + Location(p)
}

// PlayedLoc returns the in-trick location for a card played by p.
func PlayedLoc(p game.Player) Location {
	return LocPlayed0 + Location(p)
}

func (l Location) isPlayed() bool {
	return l >= LocPlayed0 && l <= LocPlayed3
}

// Player returns the holder when the location is a player's hand.
func (l Location) Player() (game.Player, bool) {
	if l >= LocPlayer0 && l <= LocPlayer3 {
		return game.Player(l - LocPlayer0), true
	}
	return 0, false
}

// Deck tracks the location of all 24 cards.
type Deck [NumCards]Location

// Hand is a set of cards packed into a bit mask.
type Hand uint32

// AllCards is the mask containing the full deck.
const AllCards Hand = 1<<NumCards - 1

func (h *Hand) Add(c Card)       { *h |= Hand(c.Mask()) }
func (h *Hand) Remove(c Card)    { *h &^= Hand(c.Mask()) }
func (h *Hand) AddAll(o Hand)    { *h |= o }
func (h *Hand) RemoveAll(o Hand) { *h &^= o }

func (h Hand) Contains(c Card) bool {
	return h&Hand(c.Mask()) != 0
}

func (h Hand) Len() int {
	return bits.OnesCount32(uint32(h))
}

func (h Hand) IsEmpty() bool {
	return h == 0
}

// Highest returns the highest-indexed card in the hand.
func (h Hand) Highest() (Card, bool) {
	if h == 0 {
		return 0, false
	}
	return Card(31 - bits.LeadingZeros32(uint32(h))), true
}

// Cards appends the hand's cards in ascending order.
func (h Hand) Cards(buf []Card) []Card {
	buf = buf[:0]
	for m := uint32(h); m != 0; m &= m - 1 {
		buf = append(buf, Card(bits.TrailingZeros32(m)))
	}
	return buf
}

// SuitMask returns the cards that count as the given suit under trump,
// including the left bower and excluding a jack claimed by the other color
// suit. Pass hasTrump=false before trump is decided.
func SuitMask(suit Suit, trump Suit, hasTrump bool) Hand {
	suitBase := Hand(0b111111) << (6 * Hand(suit))
	mask := suitBase
	if !hasTrump {
		return mask
	}
	switch {
	case suit == trump:
		// the left bower counts as trump
		mask |= Hand(JC.WithSuit(sameColor(suit)).Mask())
	case sameColor(suit) == trump:
		// this suit's jack now belongs to trump
		mask &^= Hand(JC.WithSuit(suit).Mask())
	}
	return mask
}

// sameColor returns the partner suit sharing a color.
func sameColor(s Suit) Suit {
	return [...]Suit{Spades, Clubs, Diamonds, Hearts}[s]
}

// Get returns the location of a card.
func (d *Deck) Get(c Card) Location {
	return d[c]
}

// Set moves a card to a location.
func (d *Deck) Set(c Card, loc Location) {
	d[c] = loc
}

// HandOf returns the cards currently held by a player.
func (d *Deck) HandOf(p game.Player) Hand {
	return d.At(PlayerLoc(p))
}

// At returns all cards at a location.
func (d *Deck) At(loc Location) Hand {
	var h Hand
	for c := Card(0); c < NumCards; c++ {
		if d[c] == loc {
			h.Add(c)
		}
	}
	return h
}

// Play moves a card from a player's hand to the trick.
func (d *Deck) Play(c Card, p game.Player) {
	if d[c] != PlayerLoc(p) {
		panic("euchre: playing a card not in the player's hand")
	}
	d[c] = PlayedLoc(p)
}

// Unplay returns a played card to the player's hand.
func (d *Deck) Unplay(c Card, p game.Player) {
	if d[c] != PlayedLoc(p) {
		panic("euchre: unplaying a card the player did not play")
	}
	d[c] = PlayerLoc(p)
}

// Played returns the card p has contributed to the current trick.
func (d *Deck) Played(p game.Player) (Card, bool) {
	loc := PlayedLoc(p)
	for c := Card(0); c < NumCards; c++ {
		if d[c] == loc {
			return c, true
		}
	}
	return 0, false
}

// FaceUp returns the currently displayed face-up card, if any.
func (d *Deck) FaceUp() (Card, bool) {
	for c := Card(0); c < NumCards; c++ {
		if d[c] == LocFaceUp {
			return c, true
		}
	}
	return 0, false
}
