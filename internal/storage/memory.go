package storage

import "sync"

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.records[key]
	if !ok {
		return nil, false
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, true
}

func (s *MemoryStore) Set(key string, value []byte) {
	copied := make([]byte, len(value))
	copy(copied, value)

	s.mu.Lock()
	s.records[key] = copied
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
}
