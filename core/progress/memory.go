package progress

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	fields    Fields
	updatedAt time.Time
}

// MemoryStore keeps progress in process memory behind a single mutex.
// Entries not updated within the TTL are dropped.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. A ttl of zero keeps entries
// until Cleanup.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	id := uuid.NewString()
	s.entries[id] = &memoryEntry{fields: initialFields(now), updatedAt: now}
	return id, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[id]
	if !ok || s.expired(entry, now) {
		delete(s.entries, id)
		return ErrNotFound
	}
	maps.Copy(entry.fields, fields)
	entry.fields[FieldUpdatedAt] = now.UTC().Format(time.RFC3339)
	entry.updatedAt = now
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Fields, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false, nil
	}
	if s.expired(entry, s.now()) {
		delete(s.entries, id)
		return nil, false, nil
	}
	return maps.Clone(entry.fields), true, nil
}

func (s *MemoryStore) Cleanup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.updatedAt) > s.ttl
}

// sweep drops expired entries. Callers hold the lock.
func (s *MemoryStore) sweep(now time.Time) {
	for id, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, id)
		}
	}
}
