// Package search provides exact evaluation of perfect-information worlds
// (an MTD-f driver over zero-window alpha-beta with a shared transposition
// table) and PIMCTS action selection over resampled worlds.
package search

import (
	"math"
	"sync"

	"github.com/lox/cardplatypus/internal/game"
)

// Table is a bounded concurrent transposition table. Slots are direct-mapped
// by hash; a colliding store overwrites (last writer wins), so memory stays
// fixed no matter how long a search runs. Entries are keyed by the game's
// transposition hash, which is only defined at coarse decision boundaries
// and already collapses suit-isomorphic worlds.
type Table struct {
	mask    uint64
	entries []tableEntry
	locks   [64]sync.RWMutex
}

type tableEntry struct {
	hash  uint64
	lower float64
	upper float64
	best  game.Action
	used  bool
}

// NewTable creates a table with at least the given number of slots, rounded
// up to a power of two.
func NewTable(minSlots int) *Table {
	size := 1
	for size < minSlots {
		size <<= 1
	}
	return &Table{
		mask:    uint64(size - 1),
		entries: make([]tableEntry, size),
	}
}

func (t *Table) lock(slot uint64) *sync.RWMutex {
	return &t.locks[slot%uint64(len(t.locks))]
}

// Lookup returns the stored bounds for a hash, if present.
func (t *Table) Lookup(hash uint64) (lower, upper float64, best game.Action, ok bool) {
	slot := hash & t.mask
	mu := t.lock(slot)
	mu.RLock()
	defer mu.RUnlock()

	e := &t.entries[slot]
	if !e.used || e.hash != hash {
		return 0, 0, 0, false
	}
	return e.lower, e.upper, e.best, true
}

// Store records bounds for a hash. An existing entry for the same hash is
// tightened rather than replaced; a colliding hash is evicted.
func (t *Table) Store(hash uint64, lower, upper float64, best game.Action) {
	slot := hash & t.mask
	mu := t.lock(slot)
	mu.Lock()
	defer mu.Unlock()

	e := &t.entries[slot]
	if e.used && e.hash == hash {
		e.lower = math.Max(e.lower, lower)
		e.upper = math.Min(e.upper, upper)
		if lower > math.Inf(-1) {
			e.best = best
		}
		return
	}
	*e = tableEntry{hash: hash, lower: lower, upper: upper, best: best, used: true}
}

// Len returns the number of occupied slots, for diagnostics.
func (t *Table) Len() int {
	n := 0
	for i := range t.entries {
		mu := t.lock(uint64(i))
		mu.RLock()
		if t.entries[i].used {
			n++
		}
		mu.RUnlock()
	}
	return n
}
