// Package game defines the capability interface the training and search
// layers consume. Concrete games live in subpackages; the engine only ever
// talks to them through these interfaces, detecting optional capabilities
// with type assertions.
package game

import "math/rand/v2"

// Action is a single move in a game, encoded as a small integer. Each game
// owns its numbering; the engine treats actions as opaque.
type Action uint8

// Player indexes a seat at the table.
type Player int

// Team groups players for scoring. In the partnership games supported here
// players on even and odd seats form the two teams; in two-player games each
// player is their own team.
type Team int

// TeamOf returns the team a player belongs to.
func TeamOf(p Player) Team {
	return Team(p % 2)
}

// State is the core game capability interface. Implementations are mutable:
// Apply advances the state in place and Undo rewinds exactly one action.
//
// Legal actions are always returned sorted ascending so traversal order is
// deterministic across runs.
type State interface {
	// Apply advances the state by one action. Applying an illegal action is
	// a programming error and panics.
	Apply(a Action)

	// Undo rewinds the most recent action, restoring the exact prior state.
	Undo()

	// LegalActions appends the legal actions to buf (which it first
	// truncates) and returns it. Empty only on terminal states.
	LegalActions(buf []Action) []Action

	// IsTerminal reports whether the game is over, including positions
	// where the outcome is already decided before the last card falls.
	IsTerminal() bool

	// IsChance reports whether the next action is made by chance rather
	// than a player.
	IsChance() bool

	CurrentPlayer() Player
	NumPlayers() int

	// Evaluate returns the terminal utility for a player. Utilities are
	// zero sum across teams. Calling it on a non-terminal state panics.
	Evaluate(p Player) float64

	// InfoKey returns the information-state key for a player: the actions
	// visible to them, with their own hand slots sorted.
	InfoKey(p Player) Key

	// InfoString renders the information state in the human-readable form
	// used by logs and the advise tooling.
	InfoString(p Player) string

	// Key returns the full-history key identifying this state.
	Key() Key

	Clone() State
}

// Resampler is implemented by games that can sample a full deal consistent
// with one player's information state. The returned state reproduces the
// player's InfoKey exactly.
type Resampler interface {
	Resample(p Player, rng *rand.Rand) State
}

// TranspositionHasher is implemented by games whose perfect-information
// values can be cached across isomorphic deals. The hash is only defined at
// coarse boundaries (for Euchre, trick starts in the play phase); elsewhere
// ok is false and the position must not be cached.
type TranspositionHasher interface {
	TranspositionHash() (hash uint64, ok bool)
}

// Normalizer is implemented by games with a canonical form for actions and
// information-state keys. Normalizing twice is the identity, as is
// normalize followed by denormalize.
type Normalizer interface {
	NormalizeAction(a Action) Action
	DenormalizeAction(a Action) Action
	NormalizeInfoKey(k Key) Key
}
