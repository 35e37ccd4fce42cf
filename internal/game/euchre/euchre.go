package euchre

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/lox/cardplatypus/internal/game"
)

const (
	numPlayers   = 4
	cardsPerHand = 5
)

// MaxLegalActions bounds the legal actions at any decision node; the
// dealer's discard offers six cards.
const MaxLegalActions = 6

// Phase enumerates the stages of a Euchre hand.
type Phase uint8

const (
	PhaseDealHands Phase = iota
	PhaseDealFaceUp
	PhasePickup
	// PhaseDiscard is entered when the dealer is told to pick up
	PhaseDiscard
	PhaseChooseTrump
	PhasePlay
)

// State is a Euchre hand. Apply and Undo mutate in place; Clone copies.
type State struct {
	trump        Suit
	hasTrump     bool
	trumpCaller  game.Player
	curPlayer    game.Player
	trickWinners [5]game.Player
	tricksWon    [2]uint8
	key          game.Key
	playOrder    []game.Player // who acted, parallel to key
	deck         Deck
	cardsPlayed  int
	phase        Phase
}

// NewState returns the root state before any cards are dealt.
func NewState() *State {
	return &State{
		playOrder: make([]game.Player, 0, game.MaxKeyLen),
	}
}

func (s *State) Phase() Phase {
	return s.phase
}

// Trump returns the trump suit and who called it, once decided.
func (s *State) Trump() (Suit, game.Player, bool) {
	return s.trump, s.trumpCaller, s.hasTrump
}

// TrickScore returns tricks won per team so far.
func (s *State) TrickScore() [2]uint8 {
	return s.tricksWon
}

// CardsPlayed returns the number of cards played to tricks so far.
func (s *State) CardsPlayed() int {
	return s.cardsPlayed
}

// FaceUp returns the up card for the hand. It keeps answering after the card
// has been picked up or turned down, by falling back to the action history.
func (s *State) FaceUp() (Card, bool) {
	if c, ok := s.deck.FaceUp(); ok {
		return c, true
	}
	if s.key.Len() >= 21 {
		return ActionCard(s.key.At(20)), true
	}
	return 0, false
}

// HandOf returns the cards currently in a player's hand.
func (s *State) HandOf(p game.Player) Hand {
	return s.deck.HandOf(p)
}

func (s *State) Apply(a game.Action) {
	s.playOrder = append(s.playOrder, s.curPlayer)
	switch s.phase {
	case PhaseDealHands:
		s.applyDealHands(a)
	case PhaseDealFaceUp:
		s.applyDealFaceUp(a)
	case PhasePickup:
		s.applyPickup(a)
	case PhaseChooseTrump:
		s.applyChooseTrump(a)
	case PhaseDiscard:
		s.applyDiscard(a)
	case PhasePlay:
		s.applyPlay(a)
	}
	s.key.Push(a)
}

func (s *State) applyDealHands(a game.Action) {
	c := ActionCard(a)
	if s.deck.Get(c) != LocNone {
		panic(fmt.Sprintf("euchre: dealing %s which is already dealt", c))
	}
	s.deck.Set(c, PlayerLoc(s.curPlayer))

	if (s.key.Len()+1)%cardsPerHand == 0 {
		s.curPlayer = (s.curPlayer + 1) % numPlayers
	}
	if s.key.Len() == 19 {
		s.phase = PhaseDealFaceUp
	}
}

func (s *State) applyDealFaceUp(a game.Action) {
	c := ActionCard(a)
	if s.deck.Get(c) != LocNone {
		panic(fmt.Sprintf("euchre: face-up card %s already dealt", c))
	}
	s.deck.Set(c, LocFaceUp)
	s.curPlayer = 0
	s.phase = PhasePickup
}

func (s *State) applyPickup(a game.Action) {
	switch a {
	case ActPass:
		if s.curPlayer == 3 {
			// everyone passed: turn the card down and open trump calling
			s.phase = PhaseChooseTrump
			faceUp, _ := s.FaceUp()
			s.deck.Set(faceUp, LocNone)
		}
		s.curPlayer = (s.curPlayer + 1) % numPlayers
	case ActPickup:
		s.trumpCaller = s.curPlayer
		faceUp, _ := s.FaceUp()
		s.trump, s.hasTrump = faceUp.Suit(), true
		s.curPlayer = 3 // dealer must discard
		s.deck.Set(faceUp, LocPlayer3)
		s.phase = PhaseDiscard
	default:
		panic("euchre: invalid pickup action")
	}
}

func (s *State) applyChooseTrump(a game.Action) {
	if a == ActPass {
		s.curPlayer = (s.curPlayer + 1) % numPlayers
		return
	}
	suit := actionSuit(a)
	faceUp, _ := s.FaceUp()
	if faceUp.Suit() == suit {
		panic("euchre: cannot call the face-up suit")
	}
	s.trump, s.hasTrump = suit, true
	s.trumpCaller = s.curPlayer
	s.curPlayer = 0
	s.phase = PhasePlay
}

func (s *State) applyDiscard(a game.Action) {
	c := ActionCard(a)
	if s.deck.Get(c) != LocPlayer3 {
		panic(fmt.Sprintf("euchre: discarding %s which is not in the dealer's hand", c))
	}
	s.deck.Set(c, LocNone)
	s.curPlayer = 0
	s.phase = PhasePlay
}

func (s *State) applyPlay(a game.Action) {
	c := ActionCard(a)
	s.deck.Play(c, s.curPlayer)
	s.cardsPlayed++

	if s.cardsPlayed%4 == 0 {
		trick := s.lastTrickWithCard(c)
		starter := (s.curPlayer + 1) % numPlayers
		winner := s.evaluateTrick(trick, starter)
		s.curPlayer = winner

		t := s.cardsPlayed/4 - 1
		s.trickWinners[t] = winner
		s.tricksWon[winner%2]++

		// sweep the trick off the table
		for p := game.Player(0); p < numPlayers; p++ {
			if played, ok := s.deck.Played(p); ok {
				s.deck.Set(played, LocNone)
			}
		}
	} else {
		s.curPlayer = (s.curPlayer + 1) % numPlayers
	}
}

// lastTrickWithCard reconstructs the trick that c completes: the previous
// three plays from the history plus c. Called before c is pushed to the key.
func (s *State) lastTrickWithCard(c Card) [4]Card {
	var trick [4]Card
	sidx := s.key.Len() - 3
	for i := 0; i < 3; i++ {
		trick[i] = ActionCard(s.key.At(sidx + i))
	}
	trick[3] = c
	return trick
}

// leadingCard returns the card that opened the current trick.
func (s *State) leadingCard() Card {
	inTrick := s.cardsPlayed % 4
	if s.phase != PhasePlay || inTrick == 0 {
		panic("euchre: no trick in progress")
	}
	return ActionCard(s.key.At(s.key.Len() - inTrick))
}

// evaluateTrick returns the winner of a completed trick.
func (s *State) evaluateTrick(cards [4]Card, starter game.Player) game.Player {
	right := JC.WithSuit(s.trump)
	left := JC.WithSuit(sameColor(s.trump))

	// right bower always wins, then the left
	for _, bower := range []Card{right, left} {
		for i, c := range cards {
			if c == bower {
				return (starter + game.Player(i)) % numPlayers
			}
		}
	}

	var played Hand
	for _, c := range cards {
		played.Add(c)
	}
	winnerOf := func(mask Hand) (game.Player, bool) {
		highest, ok := (played & mask).Highest()
		if !ok {
			return 0, false
		}
		for i, c := range cards {
			if c == highest {
				return (starter + game.Player(i)) % numPlayers, true
			}
		}
		return 0, false
	}

	if w, ok := winnerOf(SuitMask(s.trump, s.trump, true)); ok {
		return w
	}
	w, _ := winnerOf(SuitMask(s.suitOf(cards[0]), s.trump, true))
	return w
}

// suitOf returns the effective suit of a card, counting the left bower as
// trump once trump is decided.
func (s *State) suitOf(c Card) Suit {
	suit := c.Suit()
	if c.Rank() != jackRank {
		return suit
	}
	if (s.phase == PhasePlay || s.phase == PhaseDiscard) && s.hasTrump && sameColor(suit) == s.trump {
		return s.trump
	}
	return suit
}

func (s *State) LegalActions(buf []game.Action) []game.Action {
	buf = buf[:0]
	switch s.phase {
	case PhaseDealHands, PhaseDealFaceUp:
		var cards [NumCards]Card
		for _, c := range s.deck.At(LocNone).Cards(cards[:0]) {
			buf = append(buf, CardAction(c))
		}
	case PhasePickup:
		buf = append(buf, ActPickup, ActPass)
	case PhaseDiscard:
		var cards [NumCards]Card
		for _, c := range s.deck.HandOf(3).Cards(cards[:0]) {
			buf = append(buf, CardAction(c))
		}
	case PhaseChooseTrump:
		if s.curPlayer != 3 {
			// the dealer is stuck and must call
			buf = append(buf, ActPass)
		}
		faceUp, _ := s.FaceUp()
		for suit := Clubs; suit <= Diamonds; suit++ {
			if suit != faceUp.Suit() {
				buf = append(buf, SuitAction(suit))
			}
		}
	case PhasePlay:
		buf = s.legalPlays(buf)
	}
	return buf
}

func (s *State) legalPlays(buf []game.Action) []game.Action {
	hand := s.deck.HandOf(s.curPlayer)
	if s.cardsPlayed%4 != 0 {
		// must follow suit when possible
		lead := SuitMask(s.suitOf(s.leadingCard()), s.trump, s.hasTrump)
		if suited := hand & lead; !suited.IsEmpty() {
			hand = suited
		}
	}
	var cards [NumCards]Card
	for _, c := range hand.Cards(cards[:0]) {
		buf = append(buf, CardAction(c))
	}
	return buf
}

// IsTerminal reports the hand over, including early positions where the
// outcome is decided: a defending trick once the other team has three.
func (s *State) IsTerminal() bool {
	t0, t1 := s.tricksWon[0], s.tricksWon[1]
	return s.cardsPlayed == 20 ||
		(t0 > 0 && t1 >= 3) ||
		(t0 >= 3 && t1 > 0)
}

func (s *State) IsChance() bool {
	return s.phase == PhaseDealHands || s.phase == PhaseDealFaceUp
}

func (s *State) CurrentPlayer() game.Player {
	return s.curPlayer
}

func (s *State) NumPlayers() int {
	return numPlayers
}

// Evaluate returns player p's payoff: ±2 for a march or a euchre, ±1 for the
// makers taking three or four tricks.
func (s *State) Evaluate(p game.Player) float64 {
	if !s.IsTerminal() {
		panic("euchre: evaluate called on non-terminal state")
	}
	v := s.scoreTeam0()
	if p%2 == 0 {
		return v
	}
	return -v
}

func (s *State) scoreTeam0() float64 {
	t0, t1 := s.tricksWon[0], s.tricksWon[1]
	if t0 < 3 && t1 < 3 {
		panic(fmt.Sprintf("euchre: no winner yet at %d-%d", t0, t1))
	}
	team0Called := s.trumpCaller%2 == 0
	switch {
	case t0 == 5:
		return 2
	case t1 == 5:
		return -2
	case t0 >= 3 && team0Called:
		return 1
	case t0 >= 3:
		return 2
	case team0Called:
		return -2
	default:
		return -1
	}
}

// InfoKey returns the actions visible to a player: their own deal (sorted),
// the public history, and for the dealer their hidden discard. A marker
// action distinguishes the dealer's discard decision from player 0's first
// play.
func (s *State) InfoKey(player game.Player) game.Key {
	var k game.Key
	lastWasPickup := false
	for i, p := range s.playOrder {
		a := s.key.At(i)
		visible := true
		switch {
		case i < 20:
			visible = player == p
		case lastWasPickup && player != 3:
			// the discard is private to the dealer
			visible = false
		}
		if visible {
			k.Push(a)
		}
		lastWasPickup = a == ActPickup
	}
	n := k.Len()
	if n > cardsPerHand {
		n = cardsPerHand
	}
	k.SortRange(0, n)

	if player == 3 && s.phase == PhaseDiscard {
		k.Push(ActDiscardMarker)
	}
	return k
}

// Key returns the full history with each player's deal in sorted order, so
// deals that differ only in deal order collide.
func (s *State) Key() game.Key {
	k := s.key
	for p := 0; p < numPlayers; p++ {
		start := p * cardsPerHand
		end := (p + 1) * cardsPerHand
		if end > k.Len() {
			end = k.Len()
		}
		if start >= end {
			break
		}
		k.SortRange(start, end-start)
		if (p+1)*cardsPerHand+1 > k.Len() {
			break
		}
	}
	return k
}

func (s *State) Undo() {
	s.curPlayer = s.playOrder[len(s.playOrder)-1]
	s.playOrder = s.playOrder[:len(s.playOrder)-1]
	actionNumber := s.key.Len()
	applied := s.key.Pop()

	// roll back the trick counters if the undone action closed a trick
	if s.cardsPlayed > 0 && s.cardsPlayed%4 == 0 {
		t := s.cardsPlayed/4 - 1
		lastWinner := s.trickWinners[t]
		s.trickWinners[t] = 0
		s.tricksWon[lastWinner%2]--
	}

	switch {
	case actionNumber <= 20:
		s.deck.Set(ActionCard(applied), LocNone)
		s.phase = PhaseDealHands
	case actionNumber == 21:
		s.deck.Set(ActionCard(applied), LocNone)
		s.phase = PhaseDealFaceUp
	case applied == ActPass:
		if s.key.Len() == 24 {
			// undid the final pass: the face-up card goes back on display
			s.phase = PhasePickup
			faceUp, _ := s.FaceUp()
			s.deck.Set(faceUp, LocFaceUp)
		}
	case applied >= ActClubs && applied <= ActDiamonds:
		s.phase = PhaseChooseTrump
		s.trumpCaller = 0
		s.hasTrump = false
	case applied == ActPickup:
		s.phase = PhasePickup
		s.trumpCaller = 0
		s.hasTrump = false
		faceUp, _ := s.FaceUp()
		s.deck.Set(faceUp, LocFaceUp)
	case s.lastKeyAction() == ActPickup:
		// undoing the dealer's discard
		s.deck.Set(ActionCard(applied), LocPlayer3)
		s.phase = PhaseDiscard
	case applied == ActDiscardMarker:
		panic("euchre: discard marker should never be in the history")
	default:
		c := ActionCard(applied)
		s.cardsPlayed--
		if s.cardsPlayed%4 == 3 {
			// reopen the trick the undone card completed
			s.deck.Set(c, PlayerLoc(s.curPlayer))
			n := s.key.Len()
			for i := 0; i < 3; i++ {
				played := ActionCard(s.key.At(n - 1 - i))
				s.deck.Set(played, PlayedLoc(s.playOrder[n-1-i]))
			}
		} else {
			s.deck.Unplay(c, s.curPlayer)
		}
	}
}

func (s *State) lastKeyAction() game.Action {
	a, ok := s.key.Last()
	if !ok {
		return ActDiscardMarker // sentinel that matches nothing above
	}
	return a
}

// TranspositionHash keys perfect-information values at trick starts in the
// play phase. The hash covers the isomorphic deck, tricks won, the calling
// team and the player to act; anything less loses track of who leads.
func (s *State) TranspositionHash() (uint64, bool) {
	if s.phase != PhasePlay || s.cardsPlayed%4 != 0 {
		return 0, false
	}

	h := fnv.New64a()
	iso := IsoDeck(&s.deck, s.trump, s.hasTrump)
	var b [8]byte
	for _, w := range iso {
		b[0] = byte(w)
		b[1] = byte(w >> 8)
		b[2] = byte(w >> 16)
		b[3] = byte(w >> 24)
		h.Write(b[:4])
	}
	h.Write([]byte{s.tricksWon[0], s.tricksWon[1], byte(s.trumpCaller % 2), byte(s.curPlayer)})
	return h.Sum64(), true
}

func (s *State) Clone() game.State {
	c := *s
	c.playOrder = append(make([]game.Player, 0, cap(s.playOrder)), s.playOrder...)
	return &c
}

// Equal reports whether two states are identical, including history.
func (s *State) Equal(o *State) bool {
	if !s.key.Equal(o.key) || s.phase != o.phase || s.curPlayer != o.curPlayer ||
		s.hasTrump != o.hasTrump || s.cardsPlayed != o.cardsPlayed ||
		s.tricksWon != o.tricksWon || s.trickWinners != o.trickWinners ||
		s.deck != o.deck {
		return false
	}
	if s.hasTrump && (s.trump != o.trump || s.trumpCaller != o.trumpCaller) {
		return false
	}
	return true
}

// String renders the full history with phase separators, the same format
// FromString parses.
func (s *State) String() string {
	var sb strings.Builder
	key := s.Key()
	firstPlay := -1
	lastWasPickup := false

	for i := 0; i < key.Len(); i++ {
		a := key.At(i)
		sb.WriteString(ActionString(a))

		pipe := false
		switch {
		case i < 20:
			pipe = (i+1)%5 == 0
		case i == 20:
			pipe = true
		case a == ActPickup:
			pipe = true
		case a >= ActClubs && a <= ActDiamonds:
			firstPlay = i + 1
			pipe = true
		case i > 20 && lastWasPickup:
			// the discard
			firstPlay = i + 1
			pipe = true
		case a == ActPass:
		default:
			pipe = firstPlay >= 0 && (i-firstPlay+1)%4 == 0 && i != firstPlay
		}
		if pipe {
			sb.WriteByte('|')
		}

		lastWasPickup = a == ActPickup
	}
	return sb.String()
}

var _ game.State = (*State)(nil)
var _ game.TranspositionHasher = (*State)(nil)
