package euchre

import (
	"fmt"
	"math/rand/v2"

	"github.com/lox/cardplatypus/internal/game"
)

// Resample draws a full deal consistent with everything the given player has
// observed: their own cards, the face-up card, every public action and the
// voids revealed when someone failed to follow suit. The dealer's hidden
// discard is re-rolled uniformly among cards not seen later in play.
func (s *State) Resample(player game.Player, rng *rand.Rand) game.State {
	if s.phase == PhaseDealHands || s.phase == PhaseDealFaceUp {
		panic("euchre: resampling deal-phase states is not supported")
	}

	var known [4]Hand
	allowed := [4]Hand{AllCards, AllCards, AllCards, AllCards}
	faceUp, ok := s.FaceUp()
	if !ok {
		panic("euchre: no face-up card to resample around")
	}

	// cards seen on the table are pinned to whoever played them
	offset := s.key.Len() - s.cardsPlayed
	for i := offset; i < s.key.Len(); i++ {
		known[s.playOrder[i]].Add(ActionCard(s.key.At(i)))
	}

	// nobody is dealt the face-up card, not even the dealer who may have
	// picked it up and played it
	for p := range allowed {
		allowed[p].Remove(faceUp)
	}
	known[3].Remove(faceUp)

	// the player keeps their own deal
	for i := 0; i < cardsPerHand*numPlayers && i < s.key.Len(); i++ {
		if s.playOrder[i] == player {
			known[player].Add(ActionCard(s.key.At(i)))
		}
	}

	// a player who did not follow suit is void in the led suit
	for t := 0; t < 5; t++ {
		trickStart := offset + t*4
		if trickStart >= s.key.Len() {
			break
		}
		leadPlayer := s.playOrder[trickStart]
		leadSuit := s.suitOf(ActionCard(s.key.At(trickStart)))
		for i := 1; i < 4; i++ {
			if trickStart+i >= s.key.Len() {
				break
			}
			played := ActionCard(s.key.At(trickStart + i))
			if s.suitOf(played) != leadSuit {
				allowed[(leadPlayer+game.Player(i))%4].RemoveAll(SuitMask(leadSuit, s.trump, s.hasTrump))
			}
		}
	}

	var allKnown Hand
	for p := range known {
		allKnown.AddAll(known[p])
	}
	for p := range allowed {
		allowed[p].RemoveAll(allKnown)
	}

	// the dealer may be short a card here because of the discard, so only
	// the first three seats are checked
	for p := 0; p < 3; p++ {
		if known[p].Len()+allowed[p].Len() < cardsPerHand {
			panic(fmt.Sprintf("euchre: resample constraints unsolvable for %v: known %v allowed %v",
				s, known, allowed))
		}
	}

	ngs := NewState()
	if !searchForDeal(ngs, &known, &allowed, faceUp, 0, rng) {
		panic(fmt.Sprintf("euchre: no deal found resampling %v for player %d: known %v allowed %v",
			s, player, known, allowed))
	}

	ngs.Apply(CardAction(faceUp))

	var playedCards Hand
	for i := offset; i < s.key.Len(); i++ {
		playedCards.Add(ActionCard(s.key.At(i)))
	}

	// replay the public actions; the dealer's discard is private, so for
	// everyone else substitute a random discard not seen later
	var buf []game.Action
	lastWasPickup := false
	for i := cardsPerHand*numPlayers + 1; i < s.key.Len(); i++ {
		a := s.key.At(i)
		if lastWasPickup && player != 3 {
			buf = ngs.LegalActions(buf[:0])
			rng.Shuffle(len(buf), func(i, j int) { buf[i], buf[j] = buf[j], buf[i] })
			for _, da := range buf {
				if !playedCards.Contains(ActionCard(da)) {
					ngs.Apply(da)
					break
				}
			}
		} else {
			ngs.Apply(a)
		}
		lastWasPickup = a == ActPickup
	}

	return ngs
}

// searchForDeal walks the deal phase depth first, trying known cards before
// random allowed ones, until a complete deal satisfies the constraints.
func searchForDeal(gs *State, known, allowed *[4]Hand, faceUp Card, depth int, rng *rand.Rand) bool {
	if !meetsConstraints(gs, known, allowed) {
		return false
	}
	if depth == cardsPerHand*numPlayers {
		return true
	}

	actions := gs.LegalActions(nil)
	rng.Shuffle(len(actions), func(i, j int) { actions[i], actions[j] = actions[j], actions[i] })

	cur := gs.CurrentPlayer()
	for i, a := range actions {
		if known[cur].Contains(ActionCard(a)) {
			actions[0], actions[i] = actions[i], actions[0]
			break
		}
	}

	legal := actions[:0]
	for _, a := range actions {
		c := ActionCard(a)
		if known[cur].Contains(c) || allowed[cur].Contains(c) {
			legal = append(legal, a)
		}
	}

	// the dealer's final card may be one they will discard anyway, so any
	// card but the face up will do
	if len(legal) == 0 && depth == cardsPerHand*numPlayers-1 {
		if cur != 3 {
			panic("euchre: deal search exhausted cards for a non-dealer")
		}
		rest := gs.LegalActions(nil)
		filtered := rest[:0]
		for _, a := range rest {
			if ActionCard(a) != faceUp {
				filtered = append(filtered, a)
			}
		}
		gs.Apply(filtered[rng.IntN(len(filtered))])
		return true
	}

	for _, a := range legal {
		gs.Apply(a)
		if searchForDeal(gs, known, allowed, faceUp, depth+1, rng) {
			return true
		}
		gs.Undo()
	}
	return false
}

// meetsConstraints checks every dealt card is permitted for its holder and
// that known cards are dealt before random fill-ins.
func meetsConstraints(gs *State, known, allowed *[4]Hand) bool {
	var buf [cardsPerHand]Card
	for p := game.Player(0); p < numPlayers; p++ {
		hand := gs.deck.HandOf(p)
		dealtKnown := 0
		for _, c := range hand.Cards(buf[:0]) {
			if !allowed[p].Contains(c) && !known[p].Contains(c) {
				return false
			}
			if known[p].Contains(c) {
				dealtKnown++
			}
		}
		if dealtKnown != hand.Len() && dealtKnown != known[p].Len() {
			return false
		}
	}
	return true
}

var _ game.Resampler = (*State)(nil)
