// internal/store/store.go
package store

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Store holds the current payload of every value, keyed by handle.
// Safe for concurrent use: the core writes, the transport worker reads.
type Store struct {
	mu     sync.RWMutex
	values map[uint8][]byte
}

func New() *Store {
	return &Store{values: make(map[uint8][]byte)}
}

// Set replaces the payload of handle with a copy of data.
func (s *Store) Set(handle uint8, data []byte) {
	cp := append([]byte(nil), data...)

	s.mu.Lock()
	s.values[handle] = cp
	s.mu.Unlock()
}

// Value returns a copy of the payload of handle, nil when unknown.
func (s *Store) Value(handle uint8) []byte {
	s.mu.RLock()
	v, ok := s.values[handle]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return append([]byte(nil), v...)
}

// Checksum is the low 32 bits of the xxhash64 digest of payload.
// It never returns 0xFFFFFFFF, which marks an invalid checksum.
func Checksum(payload []byte) uint32 {
	sum := uint32(xxhash.Sum64(payload))
	if sum == 0xFFFFFFFF {
		sum--
	}
	return sum
}
