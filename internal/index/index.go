// Package index assigns dense identifiers to canonical Euchre information
// states. The istate universe is enumerated per face-up card and a minimal
// perfect hash built over each shard, so a few hundred thousand istates
// address a fixed-slot node store with no per-key storage at runtime.
package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"

	"github.com/lox/cardplatypus/internal/fileutil"
	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/game/euchre"
)

// ErrKeyNotInUniverse is returned when a key falls outside the enumerated
// universe, for example a deeper trick than the index was built for.
var ErrKeyNotInUniverse = errors.New("index: key not in universe")

// Indexer maps canonical istate keys to dense indices.
type Indexer interface {
	Index(k game.Key) (uint64, error)
	Len() uint64
}

// FaceUpCards lists the shard order: one shard per spade that can be turned
// up. Deals with different face-up cards never share an istate.
var FaceUpCards = [6]euchre.Card{euchre.NS, euchre.TS, euchre.JS, euchre.QS, euchre.KS, euchre.AS}

// Config controls universe enumeration and hash construction.
type Config struct {
	// MaxCardsPlayed bounds the enumerated play depth; at most 4 (the
	// first trick).
	MaxCardsPlayed int
	// Gamma is the per-level load factor of the perfect hash.
	Gamma float64
}

func DefaultConfig() Config {
	return Config{
		MaxCardsPlayed: 1,
		Gamma:          1.7,
	}
}

func (c Config) Validate() error {
	if c.MaxCardsPlayed < 0 || c.MaxCardsPlayed > 4 {
		return fmt.Errorf("index: max cards played must be 0..4, got %d", c.MaxCardsPlayed)
	}
	if c.Gamma < 1.0 {
		return fmt.Errorf("index: gamma must be at least 1.0, got %v", c.Gamma)
	}
	return nil
}

// BuildProgress reports shard enumeration during a build.
type BuildProgress struct {
	Shard  int
	FaceUp euchre.Card
	Keys   uint64
	Done   bool
}

// Euchre is a perfect-hash index over the canonical Euchre istate universe.
type Euchre struct {
	cfg     Config
	shards  [6]*mph
	offsets [6]uint64
	total   uint64
}

// BuildEuchre enumerates the universe and builds the index. The progress
// callback, if non-nil, is invoked periodically per shard.
func BuildEuchre(cfg Config, progress func(BuildProgress)) (*Euchre, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ix := &Euchre{cfg: cfg}
	for shard, faceUp := range FaceUpCards {
		var hashes []uint64
		it := euchre.NewIteratorWithFaceUp(cfg.MaxCardsPlayed, []euchre.Card{faceUp})
		for {
			key, ok := it.Next()
			if !ok {
				break
			}
			hashes = append(hashes, keyHash(key))
			if progress != nil && len(hashes)%(1<<16) == 0 {
				progress(BuildProgress{Shard: shard, FaceUp: faceUp, Keys: uint64(len(hashes))})
			}
		}

		m, err := buildMPH(hashes, cfg.Gamma)
		if err != nil {
			return nil, fmt.Errorf("index: building shard %v: %w", faceUp, err)
		}
		ix.shards[shard] = m
		ix.offsets[shard] = ix.total
		ix.total += m.n

		if progress != nil {
			progress(BuildProgress{Shard: shard, FaceUp: faceUp, Keys: m.n, Done: true})
		}
	}
	return ix, nil
}

// Index returns the dense index of an istate key. The key is canonicalized
// first, so any suit frame is accepted.
func (ix *Euchre) Index(k game.Key) (uint64, error) {
	k = euchre.NormalizeInfoKey(k)
	if k.Len() < 6 {
		return 0, ErrKeyNotInUniverse
	}
	faceUp := k.At(5)
	if faceUp >= euchre.NumCards {
		return 0, ErrKeyNotInUniverse
	}
	card := euchre.ActionCard(faceUp)
	if card.Suit() != euchre.Spades {
		return 0, ErrKeyNotInUniverse
	}

	shard := card.Rank()
	rank, ok := ix.shards[shard].lookup(keyHash(k))
	if !ok {
		return 0, ErrKeyNotInUniverse
	}
	return ix.offsets[shard] + rank, nil
}

// Len returns the total universe size across shards.
func (ix *Euchre) Len() uint64 {
	return ix.total
}

// ShardLen returns the number of istates in a face-up shard.
func (ix *Euchre) ShardLen(shard int) uint64 {
	return ix.shards[shard].n
}

// MaxCardsPlayed returns the play depth the index was built for.
func (ix *Euchre) MaxCardsPlayed() int {
	return ix.cfg.MaxCardsPlayed
}

func keyHash(k game.Key) uint64 {
	h := fnv.New64a()
	h.Write(k.Bytes())
	return h.Sum64()
}

const (
	fileMagic   = 0x58495043 // "CPIX"
	fileVersion = 1
)

// WriteFile serializes the index atomically.
func (ix *Euchre) WriteFile(path string) error {
	var buf bytes.Buffer
	w := func(v any) {
		binary.Write(&buf, binary.LittleEndian, v)
	}

	w(uint32(fileMagic))
	w(uint16(fileVersion))
	w(uint16(ix.cfg.MaxCardsPlayed))
	w(math.Float64bits(ix.cfg.Gamma))

	for _, m := range ix.shards {
		w(m.n)
		w(uint32(len(m.levels)))
		for _, l := range m.levels {
			w(l.size)
			w(uint32(len(l.bits)))
			w(l.bits)
		}
		w(uint32(len(m.fallback)))
		// deterministic order: by rank
		ranks := make(map[uint64]uint64, len(m.fallback))
		for h, r := range m.fallback {
			ranks[r] = h
		}
		for r := m.n - uint64(len(m.fallback)); r < m.n; r++ {
			w(ranks[r])
			w(r)
		}
		w(m.fingerprints)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// ReadFile loads a serialized index, rejecting unknown versions.
func ReadFile(path string) (*Euchre, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("index: reading %s: %w", path, err)
	}

	r := bytes.NewReader(data)
	read := func(v any) error {
		return binary.Read(r, binary.LittleEndian, v)
	}

	var magic uint32
	var version, maxPlayed uint16
	var gammaBits uint64
	if err := read(&magic); err != nil || magic != fileMagic {
		return nil, fmt.Errorf("index: %s is not an index file", path)
	}
	if err := read(&version); err != nil || version != fileVersion {
		return nil, fmt.Errorf("index: %s has unsupported version %d", path, version)
	}
	if err := read(&maxPlayed); err != nil {
		return nil, fmt.Errorf("index: reading header: %w", err)
	}
	if err := read(&gammaBits); err != nil {
		return nil, fmt.Errorf("index: reading header: %w", err)
	}

	ix := &Euchre{cfg: Config{
		MaxCardsPlayed: int(maxPlayed),
		Gamma:          math.Float64frombits(gammaBits),
	}}
	if err := ix.cfg.Validate(); err != nil {
		return nil, err
	}

	for shard := range ix.shards {
		m := &mph{fallback: make(map[uint64]uint64)}
		var numLevels uint32
		if err := read(&m.n); err != nil {
			return nil, fmt.Errorf("index: reading shard %d: %w", shard, err)
		}
		if err := read(&numLevels); err != nil {
			return nil, fmt.Errorf("index: reading shard %d: %w", shard, err)
		}

		var offset uint64
		for i := 0; i < int(numLevels); i++ {
			l := level{offset: offset}
			var words uint32
			if err := read(&l.size); err != nil {
				return nil, fmt.Errorf("index: reading shard %d level %d: %w", shard, i, err)
			}
			if err := read(&words); err != nil {
				return nil, fmt.Errorf("index: reading shard %d level %d: %w", shard, i, err)
			}
			l.bits = make([]uint64, words)
			if err := read(l.bits); err != nil {
				return nil, fmt.Errorf("index: reading shard %d level %d: %w", shard, i, err)
			}
			offset += l.buildRanks()
			m.levels = append(m.levels, l)
		}

		var numFallback uint32
		if err := read(&numFallback); err != nil {
			return nil, fmt.Errorf("index: reading shard %d: %w", shard, err)
		}
		for i := 0; i < int(numFallback); i++ {
			var h, rank uint64
			if err := read(&h); err != nil {
				return nil, fmt.Errorf("index: reading shard %d fallback: %w", shard, err)
			}
			if err := read(&rank); err != nil {
				return nil, fmt.Errorf("index: reading shard %d fallback: %w", shard, err)
			}
			m.fallback[h] = rank
		}

		m.fingerprints = make([]uint64, m.n)
		if err := read(m.fingerprints); err != nil {
			return nil, fmt.Errorf("index: reading shard %d fingerprints: %w", shard, err)
		}

		ix.shards[shard] = m
		ix.offsets[shard] = ix.total
		ix.total += m.n
	}
	return ix, nil
}
