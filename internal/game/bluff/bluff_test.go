package bluff

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/randutil"
)

func TestBidOrdering(t *testing.T) {
	prev := game.Action(0)
	for face := 1; face <= 5; face++ {
		for n := 1; n <= totalDice; n++ {
			b := Bid(n, face)
			require.Greater(t, b, prev, "bids must increase by face then count")

			gotN, gotFace := bidParts(b)
			require.Equal(t, n, gotN)
			require.Equal(t, face, gotFace)
			prev = b
		}
	}
}

func TestCallNeedsABid(t *testing.T) {
	st := FromActions(Roll(2), Roll(3), Roll(5), Roll(6))
	require.NotContains(t, st.LegalActions(nil), Call)

	st.Apply(Bid(1, 1))
	legal := st.LegalActions(nil)
	require.Contains(t, legal, Call)

	// only strictly higher bids remain
	for _, a := range legal[1:] {
		require.Greater(t, a, Bid(1, 1))
	}
}

func TestLegalActionsSorted(t *testing.T) {
	st := FromActions(Roll(2), Roll(3), Roll(5), Roll(6))
	for !st.IsTerminal() {
		legal := st.LegalActions(nil)
		require.NotEmpty(t, legal)
		require.True(t, sort.SliceIsSorted(legal, func(i, j int) bool { return legal[i] < legal[j] }))
		st.Apply(legal[0])
	}
}

func TestCallResolvesAgainstActualCount(t *testing.T) {
	// player 0 rolled 2,2 and player 1 rolled 3,6; twos with the wild
	// make three
	rolls := []game.Action{Roll(2), Roll(3), Roll(2), Roll(6)}

	made := FromActions(append(rolls, Bid(3, 2), Call)...)
	require.Equal(t, 1.0, made.Evaluate(0), "made bid wins the call for the bidder")
	require.Equal(t, -1.0, made.Evaluate(1))

	busted := FromActions(append(rolls, Bid(4, 2), Call)...)
	require.Equal(t, -1.0, busted.Evaluate(0), "overbid loses the call to the caller")
	require.Equal(t, 1.0, busted.Evaluate(1))
}

func TestWildsCountForEveryBidFace(t *testing.T) {
	st := FromActions(Roll(6), Roll(6), Roll(6), Roll(6), Bid(4, 3), Call)
	require.Equal(t, 1.0, st.Evaluate(0))
}

func TestApplyUndoRoundTrip(t *testing.T) {
	rng := randutil.New(1)
	for trial := 0; trial < 50; trial++ {
		st := NewState()
		var keys []game.Key
		for !st.IsTerminal() {
			keys = append(keys, st.Key())
			legal := st.LegalActions(nil)
			st.Apply(legal[rng.IntN(len(legal))])
		}
		require.Equal(t, st.Evaluate(0), -st.Evaluate(1))

		for i := len(keys) - 1; i >= 0; i-- {
			st.Undo()
			require.True(t, st.Key().Equal(keys[i]))
		}
	}
}

func TestInfoKeyHidesOpponentDice(t *testing.T) {
	a := FromActions(Roll(5), Roll(1), Roll(2), Roll(3), Bid(2, 4))
	b := FromActions(Roll(5), Roll(6), Roll(2), Roll(2), Bid(2, 4))

	require.True(t, a.InfoKey(0).Equal(b.InfoKey(0)))
	require.False(t, a.InfoKey(1).Equal(b.InfoKey(1)))

	// own dice come first, sorted
	k := a.InfoKey(0)
	require.Equal(t, Roll(2), k.At(0))
	require.Equal(t, Roll(5), k.At(1))
}

func TestResamplePreservesOwnDiceAndBids(t *testing.T) {
	st := FromActions(Roll(4), Roll(1), Roll(6), Roll(2), Bid(1, 3))
	rng := randutil.New(3)

	for i := 0; i < 20; i++ {
		rs := st.Resample(0, rng)
		require.True(t, rs.InfoKey(0).Equal(st.InfoKey(0)))
		require.Equal(t, st.Key().Len(), rs.Key().Len())
	}
}
