package euchre

import (
	"fmt"
	"strings"

	"github.com/lox/cardplatypus/internal/game"
)

// InfoString renders a player's information state, e.g.
// "9cTcJcQcKc|Js|T|0S|9cAcKsJs|": hand, face-up card, bidding, caller and
// trump, then tricks. The dealer additionally sees their discard.
func (s *State) InfoString(player game.Player) string {
	istate := s.InfoKey(player)
	var sb strings.Builder

	n := istate.Len()
	if n > cardsPerHand {
		n = cardsPerHand
	}
	for i := 0; i < n; i++ {
		sb.WriteString(ActionString(istate.At(i)))
	}
	if s.phase == PhaseDealHands || s.phase == PhaseDealFaceUp {
		return sb.String()
	}

	sb.WriteByte('|')
	sb.WriteString(ActionString(istate.At(5)))
	sb.WriteByte('|')

	// pickup round: passes until someone picks up or everyone has passed
	pickupCalled := false
	numPickups := 0
	for i := 6; i < istate.Len() && i < 10; i++ {
		a := istate.At(i)
		sb.WriteString(ActionString(a))
		numPickups++
		if a == ActPickup {
			pickupCalled = true
		}
		if a != ActPass {
			break
		}
	}
	if s.phase == PhasePickup {
		return sb.String()
	}

	numCalls := 0
	if !pickupCalled {
		for i := 10; i < istate.Len() && i < 14; i++ {
			a := istate.At(i)
			sb.WriteString(ActionString(a))
			numCalls++
			if a != ActPass {
				break
			}
		}
		if s.phase == PhaseChooseTrump {
			return sb.String()
		}
	}

	sb.WriteByte('|')
	fmt.Fprintf(&sb, "%d%s", s.trumpCaller, s.trump)

	if s.phase == PhaseDiscard {
		return sb.String()
	}

	i := 6 + numPickups + numCalls
	if player == 3 && pickupCalled {
		sb.WriteByte('|')
		sb.WriteString(ActionString(istate.At(i)))
		i++
	}

	turn := 0
	for ; i < istate.Len(); i++ {
		if turn%4 == 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(ActionString(istate.At(i)))
		turn++
	}
	if turn%4 == 0 {
		sb.WriteByte('|')
	}
	return sb.String()
}

// FromString replays the pipe-separated history format produced by String:
// four hand groups, the face-up card, the bid letters, then the discard (if
// the up card was taken) and tricks.
func FromString(str string) (*State, error) {
	s := NewState()
	for _, group := range strings.Split(str, "|") {
		if group == "" {
			continue
		}
		if err := applyGroup(s, group); err != nil {
			return nil, fmt.Errorf("euchre: parsing %q: %w", str, err)
		}
	}
	return s, nil
}

// MustFromString is FromString for known-good literals, mostly in tests.
func MustFromString(str string) *State {
	s, err := FromString(str)
	if err != nil {
		panic(err)
	}
	return s
}

func applyGroup(s *State, group string) error {
	// card groups are pairs like "9cTc"; anything else is bid letters
	if len(group)%2 == 0 {
		if cards, ok := parseCards(group); ok {
			for _, c := range cards {
				s.Apply(CardAction(c))
			}
			return nil
		}
	}
	for _, r := range group {
		switch r {
		case 'P':
			s.Apply(ActPass)
		case 'T':
			s.Apply(ActPickup)
		case 'C':
			s.Apply(ActClubs)
		case 'S':
			s.Apply(ActSpades)
		case 'H':
			s.Apply(ActHearts)
		case 'D':
			s.Apply(ActDiamonds)
		default:
			return fmt.Errorf("invalid bid action %q", r)
		}
	}
	return nil
}

func parseCards(group string) ([]Card, bool) {
	cards := make([]Card, 0, len(group)/2)
	for i := 0; i+1 < len(group); i += 2 {
		c, err := CardFromString(group[i : i+2])
		if err != nil {
			return nil, false
		}
		cards = append(cards, c)
	}
	return cards, true
}
