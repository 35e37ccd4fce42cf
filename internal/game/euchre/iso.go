package euchre

import (
	"sort"

	"github.com/lox/cardplatypus/internal/game"
)

// Suit-isomorphic deck canonicalization. Two deals that differ only by a
// relabelling of equal-role suits (and, below the decision points, by
// equal-rank gaps) produce the same iso deck, so perfect-information values
// computed for one can be reused for the other.

const (
	wordSize = 4
	maxWords = 7
)

// Card orderings from lowest to highest value for a suit under a given
// trump. The trump suit gains the left and right bowers at the top; the
// same-color suit loses its jack.
var (
	spadesPlain   = []Card{NS, TS, JS, QS, KS, AS}
	clubsPlain    = []Card{NC, TC, JC, QC, KC, AC}
	heartsPlain   = []Card{NH, TH, JH, QH, KH, AH}
	diamondsPlain = []Card{ND, TD, JD, QD, KD, AD}

	spadesTrumpClubs  = []Card{NS, TS, QS, KS, AS}
	clubsTrumpClubs   = []Card{NC, TC, QC, KC, AC, JS, JC}
	spadesTrumpSpades = []Card{NS, TS, QS, KS, AS, JC, JS}
	clubsTrumpSpades  = []Card{NC, TC, QC, KC, AC}

	heartsTrumpHearts     = []Card{NH, TH, QH, KH, AH, JD, JH}
	diamondsTrumpHearts   = []Card{ND, TD, QD, KD, AD}
	heartsTrumpDiamonds   = []Card{NH, TH, QH, KH, AH}
	diamondsTrumpDiamonds = []Card{ND, TD, QD, KD, AD, JH, JD}
)

// suitCards returns the cards that play as the given suit, lowest first.
func suitCards(suit Suit, trump Suit, hasTrump bool) []Card {
	if hasTrump {
		switch {
		case suit == Clubs && trump == Clubs:
			return clubsTrumpClubs
		case suit == Clubs && trump == Spades:
			return clubsTrumpSpades
		case suit == Spades && trump == Spades:
			return spadesTrumpSpades
		case suit == Spades && trump == Clubs:
			return spadesTrumpClubs
		case suit == Hearts && trump == Hearts:
			return heartsTrumpHearts
		case suit == Hearts && trump == Diamonds:
			return heartsTrumpDiamonds
		case suit == Diamonds && trump == Diamonds:
			return diamondsTrumpDiamonds
		case suit == Diamonds && trump == Hearts:
			return diamondsTrumpHearts
		}
	}
	switch suit {
	case Clubs:
		return clubsPlain
	case Spades:
		return spadesPlain
	case Hearts:
		return heartsPlain
	default:
		return diamondsPlain
	}
}

// locMask packs a card location into a 4-bit word. The values are arbitrary
// but must distinguish the perspectives that matter for play.
func locMask(loc Location) uint32 {
	switch loc {
	case LocPlayer0:
		return 0b1000
	case LocPlayer1:
		return 0b0001
	case LocPlayer2:
		return 0b0010
	case LocPlayer3:
		return 0b0011
	case LocFaceUp:
		return 0b0101
	case LocNone:
		return 0b0000
	default: // any played card
		return 0b0100
	}
}

// swapLoc exchanges the 4-bit words at positions a and b.
func swapLoc(l *uint32, a, b int) {
	i := a * wordSize
	j := b * wordSize
	x := ((*l >> i) ^ (*l >> j)) & (1<<wordSize - 1)
	*l ^= (x << i) | (x << j)
}

func wordAt(l uint32, i int) uint32 {
	return (l >> (i * wordSize)) & 0b1111
}

// IsoDeck packs each suit's card locations into a word and canonicalizes.
// With trump decided, absent cards are skipped entirely (full compaction)
// and the trump suit is pinned to the first slot; without trump, absent
// slots are compacted one step at a time but never across the jack, whose
// role is still undecided. Off-trump suit words sort so equal-role suits
// collide.
func IsoDeck(d *Deck, trump Suit, hasTrump bool) [4]uint32 {
	var locations [4]uint32
	if hasTrump {
		for s := Clubs; s <= Diamonds; s++ {
			for _, c := range suitCards(s, trump, true) {
				if d.Get(c) != LocNone {
					locations[s] <<= wordSize
					locations[s] |= locMask(d.Get(c))
				}
			}
		}
	} else {
		for s := Clubs; s <= Diamonds; s++ {
			for _, c := range suitCards(s, trump, false) {
				locations[s] <<= wordSize
				locations[s] |= locMask(d.Get(c))
			}
		}
		for s := range locations {
			for i := 0; i < maxWords-1; i++ {
				if i != jackRank && i+1 != jackRank && wordAt(locations[s], i) == locMask(LocNone) {
					swapLoc(&locations[s], i, i+1)
				}
			}
		}
	}

	if hasTrump {
		locations[0], locations[trump] = locations[trump], locations[0]
		rest := locations[1:]
		sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	} else {
		all := locations[:]
		sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	}
	return locations
}

// TransformSuit maps a suit under the involution that renames the face-up
// suit to spades. Applying it twice is the identity.
func TransformSuit(s, faceUp Suit) Suit {
	switch faceUp {
	case Spades:
		return s
	case Clubs:
		switch s {
		case Clubs:
			return Spades
		case Spades:
			return Clubs
		default:
			return s
		}
	case Hearts:
		switch s {
		case Hearts:
			return Spades
		case Spades:
			return Hearts
		case Clubs:
			return Diamonds
		default:
			return Clubs
		}
	default: // Diamonds
		switch s {
		case Diamonds:
			return Spades
		case Spades:
			return Diamonds
		case Clubs:
			return Hearts
		default:
			return Clubs
		}
	}
}

// TransformCard renames a card's suit under the face-up involution.
func TransformCard(c Card, faceUp Suit) Card {
	return c.WithSuit(TransformSuit(c.Suit(), faceUp))
}

// TransformAction applies the involution to any action: cards move suit,
// trump calls rename, everything else is untouched.
func TransformAction(a game.Action, faceUp Suit) game.Action {
	switch {
	case isCardAction(a):
		return CardAction(TransformCard(ActionCard(a), faceUp))
	case a >= ActClubs && a <= ActDiamonds:
		return SuitAction(TransformSuit(actionSuit(a), faceUp))
	default:
		return a
	}
}

// NormalizeInfoKey rewrites an information-state key into its canonical
// form: the face-up card becomes a spade and the hand slots re-sort. Keys
// too short to name a face-up card just sort their hand.
func NormalizeInfoKey(k game.Key) game.Key {
	n := k.Len()
	hand := cardsPerHand
	if n < hand {
		hand = n
	}
	if n < 6 {
		k.SortRange(0, hand)
		return k
	}

	faceUp := ActionCard(k.At(5)).Suit()
	var out game.Key
	for i := 0; i < n; i++ {
		out.Push(TransformAction(k.At(i), faceUp))
	}
	out.SortRange(0, hand)
	return out
}

// NormalizeAction maps an action into the canonical suit frame of this
// state's face-up card. Before the up card is dealt it is the identity.
func (s *State) NormalizeAction(a game.Action) game.Action {
	faceUp, ok := s.FaceUp()
	if !ok {
		return a
	}
	return TransformAction(a, faceUp.Suit())
}

// DenormalizeAction undoes NormalizeAction; the transform is its own
// inverse.
func (s *State) DenormalizeAction(a game.Action) game.Action {
	return s.NormalizeAction(a)
}

// NormalizeInfoKey canonicalizes a key for this state.
func (s *State) NormalizeInfoKey(k game.Key) game.Key {
	return NormalizeInfoKey(k)
}

var _ game.Normalizer = (*State)(nil)
