package euchre

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/cardplatypus/internal/game"
)

func TestIsoDeckNoTrump(t *testing.T) {
	var d1 Deck
	d1.Set(NS, LocPlayer0)

	d2 := d1
	require.Equal(t, IsoDeck(&d1, 0, false), IsoDeck(&d2, 0, false))

	d2.Set(TS, LocPlayer0)
	require.NotEqual(t, IsoDeck(&d1, 0, false), IsoDeck(&d2, 0, false))
}

func TestIsoDeckAcrossSuit(t *testing.T) {
	var d1 Deck
	d1.Set(NS, LocPlayer0)
	d1.Set(TS, LocPlayer0)
	d1.Set(JC, LocPlayer1)

	var d2 Deck
	d2.Set(NH, LocPlayer0)
	d2.Set(TH, LocPlayer0)
	d2.Set(JD, LocPlayer1)

	// both hold the two lowest cards of some suit
	require.Equal(t, IsoDeck(&d1, 0, false), IsoDeck(&d2, 0, false))

	require.NotEqual(t, IsoDeck(&d1, Spades, true), IsoDeck(&d2, 0, false))
	require.Equal(t, IsoDeck(&d1, Spades, true), IsoDeck(&d2, Hearts, true))
}

func TestIsoDeckTrump(t *testing.T) {
	var d1 Deck
	d1.Set(NS, LocPlayer0)
	d1.Set(TS, LocPlayer0)

	d2 := d1
	require.Equal(t, IsoDeck(&d1, Spades, true), IsoDeck(&d2, Spades, true))

	d2.Set(JS, LocPlayer0)
	require.NotEqual(t, IsoDeck(&d1, Spades, true), IsoDeck(&d2, Spades, true))

	// player 0 still holds the two highest spades
	d2.Set(NS, LocNone)
	require.Equal(t, IsoDeck(&d1, Spades, true), IsoDeck(&d2, Spades, true))

	// same again with the bowers
	d2.Set(JC, LocPlayer0)
	d2.Set(TS, LocNone)
	require.Equal(t, IsoDeck(&d1, Spades, true), IsoDeck(&d2, Spades, true))

	// unrelated deals do not disturb the equivalence
	d1.Set(TH, LocPlayer1)
	d2.Set(TH, LocPlayer1)
	require.Equal(t, IsoDeck(&d1, Spades, true), IsoDeck(&d2, Spades, true))
}

func TestSwapLoc(t *testing.T) {
	l := uint32(0b1010_0101)
	swapLoc(&l, 0, 1)
	require.Equal(t, uint32(0b0101_1010), l)

	l = 0
	swapLoc(&l, 0, 1)
	require.Equal(t, uint32(0), l)
}

func TestTransformCardInvolution(t *testing.T) {
	for faceUp := Clubs; faceUp <= Diamonds; faceUp++ {
		for c := Card(0); c < NumCards; c++ {
			normalized := TransformCard(c, faceUp)
			require.Equal(t, c, TransformCard(normalized, faceUp),
				"%v with face-up suit %v", c, faceUp)
		}
	}

	for call := ActClubs; call <= ActDiamonds; call++ {
		for faceUp := Clubs; faceUp <= Diamonds; faceUp++ {
			normalized := TransformAction(call, faceUp)
			require.Equal(t, call, TransformAction(normalized, faceUp))
		}
	}
}

func TestNormalizeInfoKeyCanonical(t *testing.T) {
	// a hearts face-up deal maps onto the spades frame
	k := game.KeyFromActions([]game.Action{
		CardAction(NC), CardAction(TC), CardAction(JC), CardAction(QC), CardAction(KC),
		CardAction(JH),
		ActPass, ActPickup,
	}...)
	norm := NormalizeInfoKey(k)
	require.Equal(t, CardAction(JS), norm.At(5))
	require.Equal(t, ActPass, norm.At(6))
	require.Equal(t, ActPickup, norm.At(7))

	// normalizing twice is stable
	require.True(t, norm.Equal(NormalizeInfoKey(norm)))

	// spades deals are already canonical
	k2 := game.KeyFromActions([]game.Action{
		CardAction(NC), CardAction(TC), CardAction(JC), CardAction(QC), CardAction(KC),
		CardAction(JS),
	}...)
	require.True(t, k2.Equal(NormalizeInfoKey(k2)))
}

func TestTranspositionHashIsomorphic(t *testing.T) {
	// the same hand with clubs and spades relabelled throughout
	a := MustFromString("9cTcJcQcKc|Ac9sTsJdQs|KsAs9hThJh|QhKhAh9dTd|Js|T|Qh|")
	b := MustFromString("9sTsJsQsKs|As9cTcJdQc|KcAc9hThJh|QhKhAh9dTd|Jc|T|Qh|")

	ha, ok := a.TranspositionHash()
	require.True(t, ok)
	hb, ok := b.TranspositionHash()
	require.True(t, ok)
	require.Equal(t, ha, hb)

	// no hash mid-trick
	a.Apply(a.LegalActions(nil)[0])
	_, ok = a.TranspositionHash()
	require.False(t, ok)
}
