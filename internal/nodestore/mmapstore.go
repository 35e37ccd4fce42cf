package nodestore

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// recordMagic marks a written record; an all-zero slot is an empty node.
const recordMagic uint16 = 0xCF4E

const recordHeader = 11 // magic(2) + actions(1) + last touched(8)

// recordBytes returns the encoded size of a node with n actions.
func recordBytes(n int) int {
	return recordHeader + 16*n
}

// MMapConfig sizes a file-backed store.
type MMapConfig struct {
	// Slots is the number of records, normally the universe size of a
	// perfect-hash index.
	Slots uint64
	// MaxActions bounds the actions any stored node may have.
	MaxActions int
	// RecordSize is the slot width in bytes. Zero means exactly enough
	// for MaxActions; anything smaller is a configuration error.
	RecordSize int
	// FlushEvery flushes the write-behind buffer after this many puts.
	FlushEvery int
}

func (c MMapConfig) withDefaults() MMapConfig {
	if c.RecordSize == 0 {
		c.RecordSize = recordBytes(c.MaxActions)
	}
	if c.FlushEvery == 0 {
		c.FlushEvery = 4096
	}
	return c
}

func (c MMapConfig) validate() error {
	if c.Slots == 0 {
		return fmt.Errorf("nodestore: slots must be positive")
	}
	if c.MaxActions <= 0 {
		return fmt.Errorf("nodestore: max actions must be positive, got %d", c.MaxActions)
	}
	if c.RecordSize < recordBytes(c.MaxActions) {
		return fmt.Errorf("nodestore: record size %d cannot hold %d actions (need %d)",
			c.RecordSize, c.MaxActions, recordBytes(c.MaxActions))
	}
	return nil
}

// MMapStore is a fixed-slot store memory-mapped from a file. A record lives
// at index × record size, so lookups are pointer arithmetic and the kernel
// handles paging. Writes go through a write-behind buffer and reach the map
// in batches; Flush commits the buffer and syncs the mapping.
type MMapStore struct {
	cfg  MMapConfig
	f    *os.File
	data []byte

	mu     sync.Mutex
	buffer map[uint64]*Node
}

// OpenMMap opens or creates a store at path.
func OpenMMap(path string, cfg MMapConfig) (*MMapStore, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("nodestore: opening %s: %w", path, err)
	}

	size := int64(cfg.Slots) * int64(cfg.RecordSize)
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("nodestore: stat %s: %w", path, err)
	}
	if fi.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("nodestore: sizing %s to %d bytes: %w", path, size, err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("nodestore: mmap %s: %w", path, err)
	}

	return &MMapStore{
		cfg:    cfg,
		f:      f,
		data:   data,
		buffer: make(map[uint64]*Node),
	}, nil
}

// Slots returns the store capacity.
func (s *MMapStore) Slots() uint64 {
	return s.cfg.Slots
}

func (s *MMapStore) slot(index uint64) []byte {
	off := int(index) * s.cfg.RecordSize
	return s.data[off : off+s.cfg.RecordSize]
}

// Get returns the node at index, nil if the slot has never been written, or
// ErrCorruptRecord if the slot fails validation.
func (s *MMapStore) Get(index uint64) (*Node, error) {
	if index >= s.cfg.Slots {
		return nil, fmt.Errorf("nodestore: index %d out of range (%d slots)", index, s.cfg.Slots)
	}

	s.mu.Lock()
	if n, ok := s.buffer[index]; ok {
		n = n.Clone()
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()

	return decodeRecord(s.slot(index), s.cfg)
}

// Put buffers the node for writing. The batch is committed once FlushEvery
// puts accumulate.
func (s *MMapStore) Put(index uint64, n *Node) error {
	if index >= s.cfg.Slots {
		return fmt.Errorf("nodestore: index %d out of range (%d slots)", index, s.cfg.Slots)
	}
	if n.NumActions() > s.cfg.MaxActions {
		return fmt.Errorf("nodestore: node has %d actions, store allows %d", n.NumActions(), s.cfg.MaxActions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer[index] = n.Clone()
	if len(s.buffer) >= s.cfg.FlushEvery {
		s.commitLocked()
	}
	return nil
}

func (s *MMapStore) commitLocked() {
	for index, n := range s.buffer {
		encodeRecord(s.slot(index), n)
	}
	clear(s.buffer)
}

// Flush commits buffered writes and syncs the mapping to disk.
func (s *MMapStore) Flush() error {
	s.mu.Lock()
	s.commitLocked()
	s.mu.Unlock()

	if err := unix.Msync(s.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("nodestore: msync: %w", err)
	}
	return nil
}

func (s *MMapStore) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	if err := unix.Munmap(s.data); err != nil {
		return fmt.Errorf("nodestore: munmap: %w", err)
	}
	s.data = nil
	return s.f.Close()
}

func encodeRecord(b []byte, n *Node) {
	binary.LittleEndian.PutUint16(b[0:2], recordMagic)
	b[2] = uint8(n.NumActions())
	binary.LittleEndian.PutUint64(b[3:11], n.LastTouched)
	off := recordHeader
	for _, v := range n.RegretSum {
		binary.LittleEndian.PutUint64(b[off:off+8], math.Float64bits(v))
		off += 8
	}
	for _, v := range n.StrategySum {
		binary.LittleEndian.PutUint64(b[off:off+8], math.Float64bits(v))
		off += 8
	}
}

func decodeRecord(b []byte, cfg MMapConfig) (*Node, error) {
	magic := binary.LittleEndian.Uint16(b[0:2])
	if magic == 0 {
		return nil, nil
	}
	if magic != recordMagic {
		return nil, ErrCorruptRecord
	}
	actions := int(b[2])
	if actions == 0 || actions > cfg.MaxActions || recordBytes(actions) > cfg.RecordSize {
		return nil, ErrCorruptRecord
	}

	n := NewNode(actions)
	n.LastTouched = binary.LittleEndian.Uint64(b[3:11])
	off := recordHeader
	for i := range n.RegretSum {
		n.RegretSum[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+8]))
		off += 8
	}
	for i := range n.StrategySum {
		n.StrategySum[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+8]))
		off += 8
	}
	return n, nil
}

var _ Store = (*MMapStore)(nil)
