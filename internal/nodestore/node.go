// Package nodestore persists CFR node state: per-action regret sums and
// average-strategy sums keyed by dense istate index. Two implementations are
// provided, a sharded in-memory map for small games and tests, and a
// memory-mapped fixed-slot file sized by a perfect-hash universe.
package nodestore

import "errors"

// ErrCorruptRecord is returned when a stored record fails validation. The
// caller may treat the node as lost and reset it with a Put.
var ErrCorruptRecord = errors.New("nodestore: corrupt record")

// Node accumulates regrets and strategy sums for one information state.
// Values are kept in slices to avoid map churn during CFR traversals.
type Node struct {
	RegretSum   []float64
	StrategySum []float64
	// LastTouched is the iteration the node was last discounted at.
	LastTouched uint64
}

// NewNode returns an empty node for an istate with n legal actions.
func NewNode(n int) *Node {
	return &Node{
		RegretSum:   make([]float64, n),
		StrategySum: make([]float64, n),
	}
}

func (n *Node) NumActions() int {
	return len(n.RegretSum)
}

// Strategy fills buf with the regret-matching distribution: positive regrets
// normalized, uniform when none are positive.
func (n *Node) Strategy(buf []float64) []float64 {
	buf = append(buf[:0], n.RegretSum...)
	total := 0.0
	for i, r := range buf {
		if r > 0 {
			total += r
		} else {
			buf[i] = 0
		}
	}
	if total <= 0 {
		v := 1.0 / float64(len(buf))
		for i := range buf {
			buf[i] = v
		}
		return buf
	}
	for i := range buf {
		buf[i] /= total
	}
	return buf
}

// AverageStrategy fills buf with the normalized strategy sums. This is the
// strategy that carries the convergence guarantee; it is uniform until the
// node has been trained.
func (n *Node) AverageStrategy(buf []float64) []float64 {
	buf = append(buf[:0], n.StrategySum...)
	total := 0.0
	for _, v := range buf {
		total += v
	}
	if total <= 0 {
		v := 1.0 / float64(len(buf))
		for i := range buf {
			buf[i] = v
		}
		return buf
	}
	for i := range buf {
		buf[i] /= total
	}
	return buf
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	return &Node{
		RegretSum:   append([]float64(nil), n.RegretSum...),
		StrategySum: append([]float64(nil), n.StrategySum...),
		LastTouched: n.LastTouched,
	}
}

// Store is the node access interface the trainer consumes. Get returns nil
// for an index that has never been written. Implementations are safe for
// concurrent use; concurrent writes to one slot are last-writer-wins.
type Store interface {
	Get(index uint64) (*Node, error)
	Put(index uint64, n *Node) error
	Flush() error
	Close() error
}
