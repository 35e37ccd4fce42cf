package euchre

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardplatypus/internal/game"
)

func TestActionSet(t *testing.T) {
	var s ActionSet
	s.Add(CardAction(NS))
	s.Add(ActPass)
	require.True(t, s.Contains(CardAction(NS)))
	require.True(t, s.Contains(ActPass))
	require.False(t, s.Contains(ActPickup))
	require.Equal(t, 2, s.Len())

	a, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, CardAction(NS), a)
	a, ok = s.Pop()
	require.True(t, ok)
	require.Equal(t, ActPass, a)
	_, ok = s.Pop()
	require.False(t, ok)

	// removing lower keeps only cards above the highest dealt one
	deal := allCardActions
	var dealt ActionSet
	dealt.Add(CardAction(JC))
	deal.RemoveLower(dealt)
	require.False(t, deal.Contains(CardAction(NC)))
	require.False(t, deal.Contains(CardAction(JC)))
	require.True(t, deal.Contains(CardAction(QC)))
	require.True(t, deal.Contains(CardAction(AD)))
}

func TestIteratorDepthZero(t *testing.T) {
	it := NewIteratorWithFaceUp(0, []Card{NS})

	count := 0
	seen := make(map[game.Key]bool)
	for {
		key, ok := it.Next()
		if !ok {
			break
		}
		count++
		require.False(t, seen[key], "duplicate istate %v", key)
		seen[key] = true

		// canonical form only
		assert.True(t, key.Equal(NormalizeInfoKey(key)))

		// before any card is played every istate ends with the face-up
		// deal, a bid or the discard decision
		last, ok := key.Last()
		require.True(t, ok)
		switch last {
		case CardAction(NS), ActPass, ActDiscardMarker:
		default:
			t.Fatalf("unexpected final action %v in %v", last, key)
		}
	}
	require.Positive(t, count)
}

func TestIteratorDepthOne(t *testing.T) {
	it := NewIteratorWithFaceUp(1, []Card{NS})

	count := 0
	for {
		key, ok := it.Next()
		if !ok {
			break
		}
		count++

		// trick starts are included but no istate has a card in play yet
		last, ok := key.Last()
		require.True(t, ok)
		switch {
		case last == CardAction(NS), last == ActPass, last == ActDiscardMarker,
			last == ActPickup, last >= ActClubs && last <= ActDiamonds:
		default:
			t.Fatalf("unexpected final action %v in %v", last, key)
		}
	}
	require.Positive(t, count)
}

func TestIteratorShardsAreDisjoint(t *testing.T) {
	// istates from different face-up shards never overlap
	nine := NewIteratorWithFaceUp(0, []Card{NS})
	ten := NewIteratorWithFaceUp(0, []Card{TS})

	seen := make(map[game.Key]bool)
	for {
		key, ok := nine.Next()
		if !ok {
			break
		}
		seen[key] = true
	}
	for {
		key, ok := ten.Next()
		if !ok {
			break
		}
		require.False(t, seen[key], "istate %v in both shards", key)
	}
}

func TestIteratorRejectsBadFaceUp(t *testing.T) {
	require.Panics(t, func() { NewIteratorWithFaceUp(0, []Card{NH}) })
	require.Panics(t, func() { NewIteratorWithFaceUp(0, []Card{NS, NS}) })
	require.Panics(t, func() { NewIteratorWithFaceUp(5, []Card{NS}) })
}
