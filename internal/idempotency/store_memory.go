package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record  Record
	expires time.Time
}

// InMemoryStore is a single-process Store for development and tests.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Claim(_ context.Context, key, fingerprint string, ttl time.Duration) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		existing := e.record
		return &existing, nil
	}
	s.entries[key] = memoryEntry{
		record:  Record{Fingerprint: fingerprint, Pending: true},
		expires: now.Add(ttl),
	}
	return nil, nil
}

func (s *InMemoryStore) Complete(_ context.Context, key string, record Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Pending = false
	s.entries[key] = memoryEntry{record: record, expires: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
