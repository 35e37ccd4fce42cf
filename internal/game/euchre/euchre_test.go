package euchre

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardplatypus/internal/game"
)

func dealCards(t *testing.T, s *State, cards ...Card) {
	t.Helper()
	for _, c := range cards {
		s.Apply(CardAction(c))
	}
}

func actionStrings(actions []game.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = ActionString(a)
	}
	return out
}

func TestPhasesChooseTrump(t *testing.T) {
	s := NewState()
	require.Equal(t, PhaseDealHands, s.Phase())

	dealCards(t, s, NC, TC, JC, QC, KC, AC, NS, TS, JS, QS, KS, AS, NH, TH, JH, QH, KH, AH, ND, TD)
	require.Equal(t, PhaseDealFaceUp, s.Phase())

	s.Apply(CardAction(JD))
	require.Equal(t, PhasePickup, s.Phase())
	require.False(t, s.IsChance())

	for p := game.Player(0); p < 4; p++ {
		require.Equal(t, p, s.CurrentPlayer())
		s.Apply(ActPass)
	}

	require.Equal(t, PhaseChooseTrump, s.Phase())
	require.Equal(t, game.Player(0), s.CurrentPlayer())
	s.Apply(ActPass)
	s.Apply(ActClubs)
	require.Equal(t, game.Player(0), s.CurrentPlayer())
	require.Equal(t, PhasePlay, s.Phase())
}

func TestPhasesPickup(t *testing.T) {
	s := NewState()
	dealCards(t, s, NC, TC, JC, QC, KC, AC, NS, TS, JS, QS, KS, AS, NH, TH, JH, QH, KH, AH, ND, TD)
	s.Apply(CardAction(JD))

	require.Equal(t, PhasePickup, s.Phase())
	for i := 0; i < 3; i++ {
		s.Apply(ActPass)
	}
	s.Apply(ActPickup)

	require.Equal(t, PhaseDiscard, s.Phase())
	s.Apply(CardAction(QH))

	require.Equal(t, PhasePlay, s.Phase())
	require.Equal(t, game.Player(0), s.CurrentPlayer())
}

func TestLegalActions(t *testing.T) {
	s := NewState()

	// each dealt card leaves the deck
	for c := Card(0); c < 20; c++ {
		s.Apply(CardAction(c))
		legal := s.LegalActions(nil)
		for prev := Card(0); prev <= c; prev++ {
			assert.NotContains(t, legal, CardAction(prev))
		}
	}

	s.Apply(CardAction(QD))
	faceUp, ok := s.FaceUp()
	require.True(t, ok)
	require.Equal(t, QD, faceUp)

	require.Equal(t, []game.Action{ActPickup, ActPass}, s.LegalActions(nil))

	s.Apply(ActPickup)
	require.Equal(t, PhaseDiscard, s.Phase())
	require.Equal(t, []string{"Qh", "Kh", "Ah", "9d", "Td", "Qd"}, actionStrings(s.LegalActions(nil)))

	s.Apply(CardAction(QH))
	require.Equal(t, PhasePlay, s.Phase())
	require.Equal(t, []string{"9c", "Tc", "Jc", "Qc", "Kc"}, actionStrings(s.LegalActions(nil)))

	s.Apply(CardAction(NC))
	// player 1 must follow suit
	require.Equal(t, []string{"Ac"}, actionStrings(s.LegalActions(nil)))

	// the left bower follows a trump lead
	gs := MustFromString("TcQs9hJdQd|QcThJhKhKd|AcTsAhTdAd|9cKc9sKsQh|Jc|T|Kc|QdKd")
	require.Equal(t, game.Player(2), gs.CurrentPlayer())
	require.Equal(t, []game.Action{CardAction(TD), CardAction(AD)}, gs.LegalActions(nil))
}

func TestSuitOf(t *testing.T) {
	s := NewState()

	require.Equal(t, Clubs, s.suitOf(NC))
	require.Equal(t, Spades, s.suitOf(JS))
	require.Equal(t, Spades, s.suitOf(TS))

	dealCards(t, s, TC, JC, QC, KC, AC, NS, TS, JS, QS, KS, AS, NH, TH, JH, QH, KH, AH, ND, TD, JD)
	s.Apply(CardAction(NC))
	s.Apply(ActPickup)
	s.Apply(CardAction(TD))

	trump, _, ok := s.Trump()
	require.True(t, ok)
	require.Equal(t, Clubs, trump)
	require.Equal(t, PhasePlay, s.Phase())
	// the jack of spades is now a club
	require.Equal(t, Clubs, s.suitOf(JS))
	require.Equal(t, Spades, s.suitOf(TS))
}

func TestInfoString(t *testing.T) {
	gs := MustFromString("9cTcJcQcKc|Ac9sTsJdQs|KsAs9hThJh|QhKhAh9dTd")

	require.Equal(t, "9cTcJcQcKc", gs.InfoString(0))
	require.Equal(t, "Ac9sTsQsJd", gs.InfoString(1))
	require.Equal(t, "KsAs9hThJh", gs.InfoString(2))
	require.Equal(t, "QhKhAh9dTd", gs.InfoString(3))

	gs.Apply(CardAction(JS))
	require.Equal(t, "9cTcJcQcKc|Js|", gs.InfoString(0))
	require.Equal(t, "Ac9sTsQsJd|Js|", gs.InfoString(1))
	require.Equal(t, "KsAs9hThJh|Js|", gs.InfoString(2))
	require.Equal(t, "QhKhAh9dTd|Js|", gs.InfoString(3))

	alt := gs.Clone().(*State)

	gs.Apply(ActPickup)
	require.Equal(t, "9cTcJcQcKc|Js|T|0S", gs.InfoString(0))
	require.Equal(t, "QhKhAh9dTd|Js|T|0S", gs.InfoString(3))

	gs.Apply(CardAction(QH))
	require.Equal(t, "QhKhAh9dTd|Js|T|0S|Qh|", gs.InfoString(3))

	for i := 0; i < 4; i++ {
		gs.Apply(gs.LegalActions(nil)[0])
	}
	require.Equal(t, "9cTcJcQcKc|Js|T|0S|9cAcKsJs|", gs.InfoString(0))
	require.Equal(t, "Ac9sTsQsJd|Js|T|0S|9cAcKsJs|", gs.InfoString(1))
	require.Equal(t, "KsAs9hThJh|Js|T|0S|9cAcKsJs|", gs.InfoString(2))
	require.Equal(t, "QhKhAh9dTd|Js|T|0S|Qh|9cAcKsJs|", gs.InfoString(3))
	require.Equal(t, game.Player(3), gs.CurrentPlayer())

	for !gs.IsTerminal() {
		gs.Apply(gs.LegalActions(nil)[0])
	}
	require.Equal(t, -2.0, gs.Evaluate(0))
	require.Equal(t, 2.0, gs.Evaluate(1))
	require.Equal(t, -2.0, gs.Evaluate(2))
	require.Equal(t, 2.0, gs.Evaluate(3))

	// all pass on the up card, then hearts is called
	for i := 0; i < 5; i++ {
		alt.Apply(ActPass)
	}
	alt.Apply(ActHearts)
	require.Equal(t, "9cTcJcQcKc|Js|PPPPPH|1H|", alt.InfoString(0))
}

func TestUniqueInfoStates(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))

	for i := 0; i < 200; i++ {
		s := NewState()
		for s.IsChance() {
			legal := s.LegalActions(nil)
			s.Apply(legal[rng.IntN(len(legal))])
		}

		seen := map[string]bool{s.InfoString(s.CurrentPlayer()): true}
		for !s.IsTerminal() {
			legal := s.LegalActions(nil)
			s.Apply(legal[rng.IntN(len(legal))])
			istate := s.InfoString(s.CurrentPlayer())
			require.False(t, seen[istate], "duplicate istate %q", istate)
			seen[istate] = true
		}
	}
}

func TestUndo(t *testing.T) {
	rng := rand.New(rand.NewPCG(0, 0))

	for i := 0; i < 300; i++ {
		gs := NewState()
		for !gs.IsTerminal() {
			legal := gs.LegalActions(nil)
			require.NotEmpty(t, legal)
			a := legal[rng.IntN(len(legal))]

			ngs := gs.Clone().(*State)
			ngs.Apply(a)
			ngs.Undo()
			require.True(t, ngs.Equal(gs), "undo mismatch:\n got %v\nwant %v", ngs, gs)

			gs.Apply(a)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 0))

	for i := 0; i < 100; i++ {
		gs := NewState()
		for !gs.IsTerminal() {
			legal := gs.LegalActions(nil)
			gs.Apply(legal[rng.IntN(len(legal))])

			parsed, err := FromString(gs.String())
			require.NoError(t, err, "parsing %q", gs.String())
			require.True(t, parsed.Equal(gs), "round trip mismatch for %q", gs.String())
		}
	}
}

func TestEarlyTermination(t *testing.T) {
	// once a team has three tricks and the other has one, the outcome is
	// fixed and the game ends without playing out the remaining cards
	rng := rand.New(rand.NewPCG(11, 0))

	for i := 0; i < 200; i++ {
		gs := NewState()
		for !gs.IsTerminal() {
			legal := gs.LegalActions(nil)
			gs.Apply(legal[rng.IntN(len(legal))])
		}
		score := gs.TrickScore()
		if score[0] > 0 && score[1] > 0 {
			require.True(t, (score[0] >= 3) != (score[1] >= 3))
			require.LessOrEqual(t, int(score[0]+score[1]), 5)
		}
		require.NotZero(t, gs.Evaluate(0))
		require.Equal(t, -gs.Evaluate(0), gs.Evaluate(1))
		require.Equal(t, gs.Evaluate(0), gs.Evaluate(2))
	}
}

func TestEvaluateScores(t *testing.T) {
	cases := []struct {
		tricks [2]uint8
		caller game.Player
		expect float64
	}{
		{[2]uint8{5, 0}, 0, 2},
		{[2]uint8{0, 5}, 1, -2},
		{[2]uint8{3, 2}, 0, 1},
		{[2]uint8{4, 1}, 2, 1},
		{[2]uint8{2, 3}, 0, -2},
		{[2]uint8{3, 2}, 1, 2},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v-caller%d", tc.tricks, tc.caller), func(t *testing.T) {
			s := &State{tricksWon: tc.tricks, trumpCaller: tc.caller, cardsPlayed: 20}
			require.Equal(t, tc.expect, s.Evaluate(0))
			require.Equal(t, -tc.expect, s.Evaluate(1))
		})
	}
}
