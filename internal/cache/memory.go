package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process cache backend used when neither Postgres
// nor Redis is configured, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	cp := Entry{Payload: append([]byte(nil), e.Payload...), FetchedAt: e.FetchedAt}
	return &cp, nil
}

func (s *MemoryStore) Put(_ context.Context, key Key, payload []byte, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{
		Payload:   append([]byte(nil), payload...),
		FetchedAt: fetchedAt,
	}
	return nil
}

// Len reports how many entries the store holds.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
