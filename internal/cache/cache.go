// Package cache implements a TTL cache with LRU eviction over pluggable backends.
//
// Expiry is lazy: entries are checked when read, listed or counted. When the cache is full
// and a new key is written, expired entries are dropped first and then the least recently
// used entry is evicted. Backend failures are logged, counted as errors and reported to the
// caller as a miss or false; they never surface as errors.
//
// Recency and expiry are tracked in an in-process index, so listing, counting and eviction
// never scan the backend. The index is seeded once from the backend's entries, ordered by
// their stored access time. The mutex guards the index and counters only; backend calls
// run outside it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/clock/system"
	"github.com/JakeFAU/site-insight/internal/hash/md5"
	"github.com/JakeFAU/site-insight/internal/metrics"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Options configures a Cache.
type Options struct {
	// MaxSize bounds the number of entries. Zero means unbounded.
	MaxSize int
	// DefaultTTL applies when Set is called with a non-positive ttl. Zero means no expiry.
	DefaultTTL time.Duration
	Clock      Clock
	Logger     *zap.Logger
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	Deletes     int64   `json:"deletes"`
	Errors      int64   `json:"errors"`
	Evictions   int64   `json:"evictions"`
	HitRate     float64 `json:"hit_rate"`
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	BackendType string  `json:"backend_type"`
}

// slot is the index record of one key.
type slot struct {
	// seq orders touches; a larger seq is more recent.
	seq       uint64
	expiresAt *time.Time
	hits      int64
}

func (s *slot) expired(now time.Time) bool {
	return s.expiresAt != nil && !now.Before(*s.expiresAt)
}

// Cache is safe for concurrent use.
type Cache struct {
	backend    Backend
	maxSize    int
	defaultTTL time.Duration
	clock      Clock
	logger     *zap.Logger

	mu      sync.Mutex
	index   map[string]*slot
	seq     uint64
	indexed bool

	hits, misses, sets, deletes, errs, evictions int64
}

// New wraps backend with TTL and LRU semantics.
func New(backend Backend, opts Options) *Cache {
	c := &Cache{
		backend:    backend,
		maxSize:    opts.MaxSize,
		defaultTTL: opts.DefaultTTL,
		clock:      opts.Clock,
		logger:     opts.Logger,
		index:      make(map[string]*slot),
	}
	if c.clock == nil {
		c.clock = system.New()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Key derives the cache key of an analysis of url under kind.
func Key(url, kind string) string {
	return md5.New().Key(url, kind)
}

// Backend returns the backend name.
func (c *Cache) Backend() string {
	return c.backend.Name()
}

// DefaultTTL returns the ttl applied when Set receives none.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Get returns the value for key if present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	return c.get(ctx, key, nil)
}

// GetJSON decodes the value for key into dst. A value that does not decode is a miss and
// is removed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) bool {
	_, ok := c.get(ctx, key, func(raw []byte) error { return json.Unmarshal(raw, dst) })
	return ok
}

// get loads key and, when decode is set, only counts a hit once decode succeeds.
func (c *Cache) get(ctx context.Context, key string, decode func([]byte) error) ([]byte, bool) {
	c.ensureIndex(ctx)

	e, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.mu.Lock()
		c.fail("get", key, err)
		c.misses++
		c.mu.Unlock()
		metrics.ObserveCache("get", "error")
		return nil, false
	}
	if ok && e.Expired(c.clock.Now()) {
		c.remove(ctx, key, "expire")
		ok = false
	}
	if ok && decode != nil {
		if derr := decode(e.Value); derr != nil {
			c.remove(ctx, key, "decode")
			c.mu.Lock()
			c.fail("decode", key, derr)
			c.misses++
			c.mu.Unlock()
			metrics.ObserveCache("get", "error")
			return nil, false
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		delete(c.index, key)
		c.misses++
		metrics.ObserveCache("get", "miss")
		return nil, false
	}
	c.touchLocked(key, e.ExpiresAt).hits++
	c.hits++
	metrics.ObserveCache("get", "hit")
	return e.Value, true
}

// Set stores value under key. A non-positive ttl uses the default ttl.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	c.ensureIndex(ctx)

	now := c.clock.Now()
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := Entry{
		Key:            key,
		Value:          append([]byte(nil), value...),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		e.ExpiresAt = &exp
	}

	c.mu.Lock()
	expired, victims := c.makeRoomLocked(key, now)
	if prev, ok := c.index[key]; ok {
		e.AccessCount = prev.hits
	}
	seq := c.touchLocked(key, e.ExpiresAt).seq
	c.mu.Unlock()

	for _, k := range expired {
		c.remove(ctx, k, "expire")
	}
	for _, k := range victims {
		c.remove(ctx, k, "evict")
		c.logger.Debug("cache eviction", zap.String("key", k))
	}

	if err := c.backend.Save(ctx, e); err != nil {
		c.mu.Lock()
		if s, ok := c.index[key]; ok && s.seq == seq {
			delete(c.index, key)
		}
		c.fail("set", key, err)
		c.mu.Unlock()
		metrics.ObserveCache("set", "error")
		return false
	}
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	metrics.ObserveCache("set", "ok")
	return true
}

// SetJSON encodes v and stores it under key.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		c.mu.Lock()
		c.fail("encode", key, err)
		c.mu.Unlock()
		return false
	}
	return c.Set(ctx, key, raw, ttl)
}

// Delete removes key and reports whether it existed.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	existed, err := c.backend.Remove(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.fail("delete", key, err)
		return false
	}
	delete(c.index, key)
	if existed {
		c.deletes++
	}
	metrics.ObserveCache("delete", "ok")
	return existed
}

// Clear removes every entry and resets the counters.
func (c *Cache) Clear(ctx context.Context) bool {
	err := c.backend.Purge(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.fail("clear", "", err)
		return false
	}
	c.index = make(map[string]*slot)
	c.indexed = true
	c.hits, c.misses, c.sets, c.deletes, c.errs, c.evictions = 0, 0, 0, 0, 0, 0
	metrics.ObserveCache("clear", "ok")
	return true
}

// Exists reports whether key is present and unexpired without touching it.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	e, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.mu.Lock()
		c.fail("exists", key, err)
		c.mu.Unlock()
		return false
	}
	if ok && e.Expired(c.clock.Now()) {
		c.remove(ctx, key, "expire")
		return false
	}
	return ok
}

// Size returns the number of unexpired entries.
func (c *Cache) Size(ctx context.Context) int {
	keys, ok := c.liveKeys(ctx, "size")
	if !ok {
		return 0
	}
	return len(keys)
}

// Keys returns the unexpired keys in sorted order.
func (c *Cache) Keys(ctx context.Context) []string {
	keys, ok := c.liveKeys(ctx, "keys")
	if !ok {
		return []string{}
	}
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the counters and the current size.
func (c *Cache) Stats(ctx context.Context) Stats {
	size := c.Size(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Sets:        c.sets,
		Deletes:     c.deletes,
		Errors:      c.errs,
		Evictions:   c.evictions,
		Size:        size,
		MaxSize:     c.maxSize,
		BackendType: c.backend.Name(),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// ensureIndex seeds the index from the backend once. A failed seed is retried by the next
// call.
func (c *Cache) ensureIndex(ctx context.Context) bool {
	c.mu.Lock()
	done := c.indexed
	c.mu.Unlock()
	if done {
		return true
	}

	entries, err := c.backend.Entries(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.fail("index", "", err)
		return false
	}
	if c.indexed {
		return true
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastAccessedAt.Before(entries[j].LastAccessedAt)
	})
	for _, e := range entries {
		if _, ok := c.index[e.Key]; ok {
			continue
		}
		c.seq++
		c.index[e.Key] = &slot{seq: c.seq, expiresAt: e.ExpiresAt, hits: e.AccessCount}
	}
	c.indexed = true
	return true
}

// liveKeys drops expired keys from the index and returns the rest.
func (c *Cache) liveKeys(ctx context.Context, op string) ([]string, bool) {
	if !c.ensureIndex(ctx) {
		return nil, false
	}
	now := c.clock.Now()

	c.mu.Lock()
	var expired []string
	keys := make([]string, 0, len(c.index))
	for k, s := range c.index {
		if s.expired(now) {
			expired = append(expired, k)
			delete(c.index, k)
			continue
		}
		keys = append(keys, k)
	}
	c.mu.Unlock()

	for _, k := range expired {
		c.remove(ctx, k, op)
	}
	return keys, true
}

// touchLocked marks key as the most recently used.
func (c *Cache) touchLocked(key string, expiresAt *time.Time) *slot {
	c.seq++
	s, ok := c.index[key]
	if !ok {
		s = &slot{}
		c.index[key] = s
	}
	s.seq = c.seq
	s.expiresAt = expiresAt
	return s
}

// makeRoomLocked picks the keys to delete so a write of key fits. Expired keys go first,
// then the least recently used. Overwrites never evict. Picked keys leave the index at once.
func (c *Cache) makeRoomLocked(key string, now time.Time) (expired, victims []string) {
	if c.maxSize <= 0 {
		return nil, nil
	}
	if _, ok := c.index[key]; ok {
		return nil, nil
	}
	for k, s := range c.index {
		if s.expired(now) {
			expired = append(expired, k)
			delete(c.index, k)
		}
	}
	for len(c.index) >= c.maxSize {
		var (
			oldest string
			lowest uint64
		)
		for k, s := range c.index {
			if oldest == "" || s.seq < lowest {
				oldest, lowest = k, s.seq
			}
		}
		delete(c.index, oldest)
		victims = append(victims, oldest)
		c.evictions++
	}
	return expired, victims
}

// remove deletes key from the backend and the index.
func (c *Cache) remove(ctx context.Context, key, op string) {
	_, err := c.backend.Remove(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.index, key)
	if err != nil {
		c.fail(op, key, err)
	}
}

// fail must be called with mu held.
func (c *Cache) fail(op, key string, err error) {
	c.errs++
	var be *BackendError
	if !errors.As(err, &be) {
		err = &BackendError{Backend: c.backend.Name(), Op: op, Err: err}
	}
	c.logger.Warn("cache operation failed",
		zap.String("backend", c.backend.Name()),
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
}
