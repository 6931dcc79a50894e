// Package memory stores cache entries in-process.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/site-insight/internal/cache"
)

// Store keeps entries in a map. Readers run concurrently; writers are exclusive.
type Store struct {
	mu      sync.RWMutex
	entries map[string]cache.Entry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string]cache.Entry)}
}

// Name implements cache.Backend.
func (s *Store) Name() string { return "memory" }

// Load implements cache.Backend.
func (s *Store) Load(_ context.Context, key string) (cache.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return cache.Entry{}, false, nil
	}
	return clone(e), true, nil
}

// Save implements cache.Backend.
func (s *Store) Save(_ context.Context, e cache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Key] = clone(e)
	return nil
}

// Remove implements cache.Backend.
func (s *Store) Remove(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}

// Purge implements cache.Backend.
func (s *Store) Purge(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]cache.Entry)
	return nil
}

// Entries implements cache.Backend.
func (s *Store) Entries(_ context.Context) ([]cache.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cache.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, clone(e))
	}
	return out, nil
}

func clone(e cache.Entry) cache.Entry {
	e.Value = append([]byte(nil), e.Value...)
	if e.ExpiresAt != nil {
		exp := *e.ExpiresAt
		e.ExpiresAt = &exp
	}
	return e
}
