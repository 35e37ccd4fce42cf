package index

import (
	"sync"
	"sync/atomic"

	"github.com/lox/cardplatypus/internal/game"
)

const numDynamicShards = 64

// Dynamic assigns indices on first sight instead of from an enumerated
// universe. Suited to games small enough to discover their istates during
// training, and to Euchre istates beyond a built index's depth.
type Dynamic struct {
	shards [numDynamicShards]dynamicShard
	next   atomic.Uint64
}

type dynamicShard struct {
	mu  sync.Mutex
	ids map[game.Key]uint64
}

func NewDynamic() *Dynamic {
	d := &Dynamic{}
	for i := range d.shards {
		d.shards[i].ids = make(map[game.Key]uint64)
	}
	return d
}

// Index returns the key's index, assigning the next free one on first use.
func (d *Dynamic) Index(k game.Key) (uint64, error) {
	s := &d.shards[keyHash(k)%numDynamicShards]
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.ids[k]; ok {
		return id, nil
	}
	id := d.next.Add(1) - 1
	s.ids[k] = id
	return id, nil
}

// Len returns the number of keys assigned so far.
func (d *Dynamic) Len() uint64 {
	return d.next.Load()
}

var _ Indexer = (*Dynamic)(nil)
var _ Indexer = (*Euchre)(nil)
