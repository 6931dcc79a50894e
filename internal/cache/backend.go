package cache

import (
	"context"
	"fmt"
	"time"
)

// Entry is the envelope persisted by every backend.
type Entry struct {
	Key            string     `json:"key"`
	Value          []byte     `json:"value"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	AccessCount    int64      `json:"access_count"`
	LastAccessedAt time.Time  `json:"last_accessed"`
}

// Expired reports whether the entry has an expiry at or before now.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// Backend is the physical storage behind a Cache. Backends store and return entries
// verbatim; expiry and eviction are enforced by Cache so every backend behaves the same.
type Backend interface {
	// Name identifies the backend in stats, e.g. "memory".
	Name() string
	// Load returns the entry for key. A missing key is (Entry{}, false, nil).
	Load(ctx context.Context, key string) (Entry, bool, error)
	// Save inserts or replaces an entry.
	Save(ctx context.Context, e Entry) error
	// Remove deletes key and reports whether it existed.
	Remove(ctx context.Context, key string) (bool, error)
	// Purge deletes every entry.
	Purge(ctx context.Context) error
	// Entries returns every stored entry, expired ones included.
	Entries(ctx context.Context) ([]Entry, error)
}

// BackendError wraps a failure reported by a backend.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("cache backend %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
