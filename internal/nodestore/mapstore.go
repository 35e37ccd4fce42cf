package nodestore

import "sync"

const numMapShards = 64

// MapStore is a sharded in-memory store. It grows on demand, so it suits
// games whose istate space is discovered during training.
type MapStore struct {
	shards [numMapShards]mapShard
}

type mapShard struct {
	mu    sync.Mutex
	nodes map[uint64]*Node
}

func NewMapStore() *MapStore {
	s := &MapStore{}
	for i := range s.shards {
		s.shards[i].nodes = make(map[uint64]*Node)
	}
	return s
}

func (s *MapStore) shard(index uint64) *mapShard {
	return &s.shards[mixIndex(index)%numMapShards]
}

// mixIndex spreads sequential indices across shards.
func mixIndex(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	return x
}

// Get returns a copy of the stored node, or nil if the slot is empty.
func (s *MapStore) Get(index uint64) (*Node, error) {
	sh := s.shard(index)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	n, ok := sh.nodes[index]
	if !ok {
		return nil, nil
	}
	return n.Clone(), nil
}

func (s *MapStore) Put(index uint64, n *Node) error {
	sh := s.shard(index)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.nodes[index] = n.Clone()
	return nil
}

func (s *MapStore) Flush() error {
	return nil
}

func (s *MapStore) Close() error {
	return nil
}

// Len returns the number of stored nodes.
func (s *MapStore) Len() int {
	total := 0
	for i := range s.shards {
		s.shards[i].mu.Lock()
		total += len(s.shards[i].nodes)
		s.shards[i].mu.Unlock()
	}
	return total
}

var _ Store = (*MapStore)(nil)
