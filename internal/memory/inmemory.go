// file: internal/memory/inmemory.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// InMemoryStore keeps entries in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	byKey   map[string]int
	now     func() time.Time
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byKey: make(map[string]int), now: time.Now}
}

// List implements Store.
func (s *InMemoryStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Get implements Store.
func (s *InMemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byKey[key]
	if !ok {
		return nil, nil
	}
	e := s.entries[i]
	return &e, nil
}

// Put implements Store.
func (s *InMemoryStore) Put(ctx context.Context, e Entry) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byKey[e.Key]; ok {
		prev := s.entries[i]
		e.ID, e.CreatedAt = prev.ID, prev.CreatedAt
		s.entries[i] = e
		return &e, nil
	}
	e, err := prepare(e, s.now())
	if err != nil {
		return nil, err
	}
	s.byKey[e.Key] = len(s.entries)
	s.entries = append(s.entries, e)
	return &e, nil
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
