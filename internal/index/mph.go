package index

import (
	"fmt"
	"math/bits"
)

// Leveled minimal perfect hash over 64-bit key hashes. Each level hashes its
// keys into a bit vector sized gamma times the key count; keys that land
// alone are assigned the rank of their bit, colliding keys fall through to
// the next level. The handful of keys left after the last level live in a
// plain map. A fingerprint per slot rejects keys that were never built in.
const maxLevels = 32

type level struct {
	size   uint64
	bits   []uint64
	ranks  []uint64 // set bits before each word
	offset uint64   // keys assigned by earlier levels
}

func (l *level) get(pos uint64) bool {
	return l.bits[pos/64]&(1<<(pos%64)) != 0
}

// rank returns the index of the set bit at pos among all set bits.
func (l *level) rank(pos uint64) uint64 {
	return l.ranks[pos/64] + uint64(bits.OnesCount64(l.bits[pos/64]&(1<<(pos%64)-1)))
}

func (l *level) buildRanks() uint64 {
	l.ranks = make([]uint64, len(l.bits))
	var total uint64
	for i, w := range l.bits {
		l.ranks[i] = total
		total += uint64(bits.OnesCount64(w))
	}
	return total
}

type mph struct {
	n            uint64
	levels       []level
	fallback     map[uint64]uint64
	fingerprints []uint64
}

// mix is the splitmix64 finalizer, used to derive per-level positions from a
// key hash and level seed.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

func levelSeed(i int) uint64 {
	return mix(uint64(i+1) * 0x9e3779b97f4a7c15)
}

func levelPos(h uint64, lvl int, size uint64) uint64 {
	return mix(h^levelSeed(lvl)) % size
}

// buildMPH constructs a minimal perfect hash over the given key hashes,
// which must be distinct. Ranks are dense in [0, len(hashes)).
func buildMPH(hashes []uint64, gamma float64) (*mph, error) {
	m := &mph{
		n:        uint64(len(hashes)),
		fallback: make(map[uint64]uint64),
	}

	remaining := hashes
	var assigned uint64
	for lvl := 0; len(remaining) > 0 && lvl < maxLevels; lvl++ {
		size := uint64(gamma * float64(len(remaining)))
		if size < 64 {
			size = 64
		}
		words := (size + 63) / 64
		occupied := make([]uint64, words)
		collide := make([]uint64, words)

		for _, h := range remaining {
			pos := levelPos(h, lvl, size)
			w, b := pos/64, uint64(1)<<(pos%64)
			if occupied[w]&b != 0 {
				collide[w] |= b
			}
			occupied[w] |= b
		}

		l := level{size: size, bits: make([]uint64, words), offset: assigned}
		for i := range l.bits {
			l.bits[i] = occupied[i] &^ collide[i]
		}
		assigned += l.buildRanks()

		next := remaining[:0:0]
		for _, h := range remaining {
			pos := levelPos(h, lvl, size)
			if collide[pos/64]&(1<<(pos%64)) != 0 {
				next = append(next, h)
			}
		}
		m.levels = append(m.levels, l)
		remaining = next
	}

	for _, h := range remaining {
		if _, ok := m.fallback[h]; ok {
			return nil, fmt.Errorf("index: duplicate key hash %#x", h)
		}
		m.fallback[h] = assigned
		assigned++
	}
	if assigned != m.n {
		return nil, fmt.Errorf("index: assigned %d ranks for %d keys", assigned, m.n)
	}

	m.fingerprints = make([]uint64, m.n)
	seen := make([]bool, m.n)
	for _, h := range hashes {
		rank, ok := m.lookupRank(h)
		if !ok {
			return nil, fmt.Errorf("index: built key %#x not found", h)
		}
		if seen[rank] {
			return nil, fmt.Errorf("index: rank %d assigned twice", rank)
		}
		seen[rank] = true
		m.fingerprints[rank] = h
	}
	return m, nil
}

// lookupRank finds the slot a hash occupies, without fingerprint checking.
func (m *mph) lookupRank(h uint64) (uint64, bool) {
	for lvl := range m.levels {
		l := &m.levels[lvl]
		pos := levelPos(h, lvl, l.size)
		if l.get(pos) {
			return l.offset + l.rank(pos), true
		}
	}
	rank, ok := m.fallback[h]
	return rank, ok
}

// lookup returns the dense rank for a key hash, rejecting hashes that were
// not part of the build.
func (m *mph) lookup(h uint64) (uint64, bool) {
	rank, ok := m.lookupRank(h)
	if !ok || m.fingerprints[rank] != h {
		return 0, false
	}
	return rank, true
}
