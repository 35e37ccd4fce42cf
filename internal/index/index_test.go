package index

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/game/euchre"
)

func TestMPH(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 0))

	hashes := make([]uint64, 0, 10000)
	seen := make(map[uint64]bool)
	for len(hashes) < cap(hashes) {
		h := rng.Uint64()
		if !seen[h] {
			seen[h] = true
			hashes = append(hashes, h)
		}
	}

	m, err := buildMPH(hashes, 1.7)
	require.NoError(t, err)

	ranks := make(map[uint64]bool)
	for _, h := range hashes {
		rank, ok := m.lookup(h)
		require.True(t, ok)
		require.Less(t, rank, uint64(len(hashes)))
		require.False(t, ranks[rank], "rank %d assigned twice", rank)
		ranks[rank] = true
	}

	for i := 0; i < 10000; i++ {
		h := rng.Uint64()
		if !seen[h] {
			_, ok := m.lookup(h)
			assert.False(t, ok, "unknown hash %#x accepted", h)
		}
	}
}

func TestMPHEmpty(t *testing.T) {
	m, err := buildMPH(nil, 1.7)
	require.NoError(t, err)
	_, ok := m.lookup(42)
	require.False(t, ok)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.Error(t, Config{MaxCardsPlayed: 5, Gamma: 1.7}.Validate())
	require.Error(t, Config{MaxCardsPlayed: -1, Gamma: 1.7}.Validate())
	require.Error(t, Config{MaxCardsPlayed: 0, Gamma: 0.5}.Validate())
}

func buildTestIndex(t *testing.T) *Euchre {
	t.Helper()
	ix, err := BuildEuchre(Config{MaxCardsPlayed: 0, Gamma: 1.7}, nil)
	require.NoError(t, err)
	return ix
}

func TestBuildEuchre(t *testing.T) {
	ix := buildTestIndex(t)
	require.Positive(t, ix.Len())

	// every enumerated key resolves to a distinct in-range index
	var total uint64
	for shard := range FaceUpCards {
		total += ix.ShardLen(shard)
	}
	require.Equal(t, ix.Len(), total)

	it := euchre.NewIteratorWithFaceUp(0, []euchre.Card{euchre.NS})
	seen := make(map[uint64]bool)
	for {
		key, ok := it.Next()
		if !ok {
			break
		}
		i, err := ix.Index(key)
		require.NoError(t, err)
		require.Less(t, i, ix.ShardLen(0))
		require.False(t, seen[i], "index %d assigned twice", i)
		seen[i] = true
	}
}

func TestIndexNormalizesSuits(t *testing.T) {
	ix := buildTestIndex(t)

	// a hearts face-up istate resolves via its spades-frame form
	hearts := game.KeyFromActions([]game.Action{
		euchre.CardAction(euchre.NC), euchre.CardAction(euchre.TC),
		euchre.CardAction(euchre.JC), euchre.CardAction(euchre.QC),
		euchre.CardAction(euchre.KC), euchre.CardAction(euchre.JH),
	}...)
	spades := game.KeyFromActions([]game.Action{
		euchre.CardAction(euchre.NC), euchre.CardAction(euchre.TC),
		euchre.CardAction(euchre.JC), euchre.CardAction(euchre.QC),
		euchre.CardAction(euchre.KC), euchre.CardAction(euchre.JS),
	}...)

	hi, err := ix.Index(hearts)
	require.NoError(t, err)
	si, err := ix.Index(spades)
	require.NoError(t, err)
	require.Equal(t, si, hi)
}

func TestIndexKeyNotInUniverse(t *testing.T) {
	ix := buildTestIndex(t)

	// play a deal into the first trick; istates with a card down are
	// beyond a depth-0 universe
	rng := rand.New(rand.NewPCG(1, 0))
	s := euchre.NewState()
	for s.Phase() != euchre.PhasePlay {
		legal := s.LegalActions(nil)
		s.Apply(legal[rng.IntN(len(legal))])
	}
	s.Apply(s.LegalActions(nil)[0])

	_, err := ix.Index(s.InfoKey(s.CurrentPlayer()))
	require.ErrorIs(t, err, ErrKeyNotInUniverse)

	// too short to name a face-up card
	_, err = ix.Index(game.KeyFromActions([]game.Action{euchre.CardAction(euchre.NC)}...))
	require.ErrorIs(t, err, ErrKeyNotInUniverse)
}

func TestIndexRoundTrip(t *testing.T) {
	ix := buildTestIndex(t)

	path := filepath.Join(t.TempDir(), "euchre.idx")
	require.NoError(t, ix.WriteFile(path))

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, ix.Len(), loaded.Len())
	require.Equal(t, ix.MaxCardsPlayed(), loaded.MaxCardsPlayed())

	it := euchre.NewIteratorWithFaceUp(0, []euchre.Card{euchre.JS})
	for i := 0; i < 5000; i++ {
		key, ok := it.Next()
		if !ok {
			break
		}
		want, err := ix.Index(key)
		require.NoError(t, err)
		got, err := loaded.Index(key)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestReadFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.idx")
	require.NoError(t, os.WriteFile(path, []byte("not an index"), 0o644))
	_, err := ReadFile(path)
	require.Error(t, err)
}

func TestDynamic(t *testing.T) {
	d := NewDynamic()

	k1 := game.KeyFromActions([]game.Action{1, 2, 3}...)
	k2 := game.KeyFromActions([]game.Action{3, 2, 1}...)

	i1, err := d.Index(k1)
	require.NoError(t, err)
	i2, err := d.Index(k2)
	require.NoError(t, err)
	require.NotEqual(t, i1, i2)

	again, err := d.Index(k1)
	require.NoError(t, err)
	require.Equal(t, i1, again)
	require.Equal(t, uint64(2), d.Len())
}

func TestDynamicConcurrent(t *testing.T) {
	d := NewDynamic()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				_, err := d.Index(game.KeyFromActions([]game.Action{
					game.Action(i), game.Action(i >> 8),
				}...))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, uint64(1000), d.Len())
}
