package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-insight/internal/cache"
	"github.com/JakeFAU/site-insight/internal/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCache(t *testing.T, maxSize int, ttl time.Duration) (*cache.Cache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return cache.New(memory.New(), cache.Options{MaxSize: maxSize, DefaultTTL: ttl, Clock: clk}), clk
}

func TestCache_LRUEviction(t *testing.T) {
	t.Parallel()

	c, clk := newCache(t, 2, 0)
	ctx := context.Background()

	require.True(t, c.Set(ctx, "a", []byte("1"), 0))
	clk.Advance(time.Second)
	require.True(t, c.Set(ctx, "b", []byte("2"), 0))
	clk.Advance(time.Second)
	_, ok := c.Get(ctx, "a")
	require.True(t, ok)
	clk.Advance(time.Second)
	require.True(t, c.Set(ctx, "c", []byte("3"), 0))

	require.True(t, c.Exists(ctx, "a"))
	require.False(t, c.Exists(ctx, "b"))
	require.True(t, c.Exists(ctx, "c"))
	require.Equal(t, []string{"a", "c"}, c.Keys(ctx))
	require.Equal(t, int64(1), c.Stats(ctx).Evictions)
}

func TestCache_OverwriteAtCapacityDoesNotEvict(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t, 2, 0)
	ctx := context.Background()
	require.True(t, c.Set(ctx, "a", []byte("1"), 0))
	require.True(t, c.Set(ctx, "b", []byte("2"), 0))
	require.True(t, c.Set(ctx, "a", []byte("3"), 0))

	require.Equal(t, 2, c.Size(ctx))
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, "3", string(v))
}

func TestCache_LazyExpiry(t *testing.T) {
	t.Parallel()

	c, clk := newCache(t, 0, time.Minute)
	ctx := context.Background()
	require.True(t, c.Set(ctx, "short", []byte("x"), 10*time.Second))
	require.True(t, c.Set(ctx, "default", []byte("y"), 0))

	clk.Advance(11 * time.Second)
	_, ok := c.Get(ctx, "short")
	require.False(t, ok)
	require.True(t, c.Exists(ctx, "default"))
	require.Equal(t, 1, c.Size(ctx))

	clk.Advance(time.Minute)
	require.Empty(t, c.Keys(ctx))
}

func TestCache_ExpiredEntriesFreeCapacityBeforeEviction(t *testing.T) {
	t.Parallel()

	c, clk := newCache(t, 2, 0)
	ctx := context.Background()
	require.True(t, c.Set(ctx, "stale", []byte("1"), time.Second))
	require.True(t, c.Set(ctx, "fresh", []byte("2"), time.Hour))
	clk.Advance(2 * time.Second)

	require.True(t, c.Set(ctx, "new", []byte("3"), 0))
	require.True(t, c.Exists(ctx, "fresh"))
	require.True(t, c.Exists(ctx, "new"))
	require.Zero(t, c.Stats(ctx).Evictions)
}

func TestCache_StatsAndClear(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t, 10, 0)
	ctx := context.Background()
	c.Set(ctx, "a", []byte("1"), 0)
	c.Get(ctx, "a")
	c.Get(ctx, "missing")
	require.True(t, c.Delete(ctx, "a"))
	require.False(t, c.Delete(ctx, "a"))

	s := c.Stats(ctx)
	require.Equal(t, int64(1), s.Hits)
	require.Equal(t, int64(1), s.Misses)
	require.Equal(t, int64(1), s.Sets)
	require.Equal(t, int64(1), s.Deletes)
	require.InDelta(t, 0.5, s.HitRate, 1e-9)
	require.Equal(t, "memory", s.BackendType)

	require.True(t, c.Clear(ctx))
	s = c.Stats(ctx)
	require.Zero(t, s.Hits)
	require.Zero(t, s.Size)
}

func TestCache_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	type payload struct {
		URL string `json:"url"`
	}
	c, _ := newCache(t, 0, 0)
	ctx := context.Background()
	require.True(t, c.SetJSON(ctx, "k", payload{URL: "https://example.com"}, 0))

	var got payload
	require.True(t, c.GetJSON(ctx, "k", &got))
	require.Equal(t, "https://example.com", got.URL)
}

func TestCache_LRUEvictionWithFrozenClock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		c, _ := newCache(t, 2, 0)

		require.True(t, c.Set(ctx, "a", []byte("1"), 0))
		require.True(t, c.Set(ctx, "b", []byte("2"), 0))
		_, ok := c.Get(ctx, "b")
		require.True(t, ok)
		_, ok = c.Get(ctx, "a")
		require.True(t, ok)
		require.True(t, c.Set(ctx, "c", []byte("3"), 0))

		require.Equal(t, []string{"a", "c"}, c.Keys(ctx))
		require.Equal(t, int64(1), c.Stats(ctx).Evictions)
	}
}

func TestCache_CorruptJSONIsAMissAndRemoved(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t, 0, 0)
	ctx := context.Background()
	require.True(t, c.Set(ctx, "k", []byte("not json"), 0))

	var got map[string]any
	require.False(t, c.GetJSON(ctx, "k", &got))
	require.False(t, c.Exists(ctx, "k"))

	s := c.Stats(ctx)
	require.Zero(t, s.Hits)
	require.Equal(t, int64(1), s.Misses)
	require.Equal(t, int64(1), s.Errors)
	require.Zero(t, s.Size)
}

// countingBackend counts listings and can hold a Load of one key until released.
type countingBackend struct {
	*memory.Store

	mu      sync.Mutex
	entries int
	holdKey string
	held    chan struct{}
	release chan struct{}
}

func (b *countingBackend) Entries(ctx context.Context) ([]cache.Entry, error) {
	b.mu.Lock()
	b.entries++
	b.mu.Unlock()
	return b.Store.Entries(ctx)
}

func (b *countingBackend) Load(ctx context.Context, key string) (cache.Entry, bool, error) {
	if b.holdKey != "" && key == b.holdKey {
		close(b.held)
		<-b.release
	}
	return b.Store.Load(ctx, key)
}

func (b *countingBackend) listings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries
}

func TestCache_IndexSeededOnceFromBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := memory.New()
	require.NoError(t, store.Save(ctx, cache.Entry{Key: "recent", Value: []byte("r"), CreatedAt: base, LastAccessedAt: base.Add(time.Minute)}))
	require.NoError(t, store.Save(ctx, cache.Entry{Key: "stale", Value: []byte("s"), CreatedAt: base, LastAccessedAt: base}))

	backend := &countingBackend{Store: store}
	c := cache.New(backend, cache.Options{MaxSize: 2, Clock: &fakeClock{now: base.Add(time.Hour)}})

	require.True(t, c.Set(ctx, "fresh", []byte("f"), 0))
	require.Equal(t, []string{"fresh", "recent"}, c.Keys(ctx))

	for i := 0; i < 20; i++ {
		require.True(t, c.Set(ctx, "fresh", []byte("f"), 0))
		_ = c.Size(ctx)
	}
	require.Equal(t, 1, backend.listings())
}

func TestCache_BackendCallsDoNotBlockOtherKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &countingBackend{
		Store:   memory.New(),
		holdKey: "slow",
		held:    make(chan struct{}),
		release: make(chan struct{}),
	}
	c := cache.New(backend, cache.Options{MaxSize: 10})
	require.True(t, c.Set(ctx, "slow", []byte("s"), 0))

	done := make(chan bool)
	go func() {
		_, ok := c.Get(ctx, "slow")
		done <- ok
	}()
	<-backend.held

	require.True(t, c.Set(ctx, "other", []byte("o"), 0))
	v, ok := c.Get(ctx, "other")
	require.True(t, ok)
	require.Equal(t, "o", string(v))
	require.Equal(t, 2, c.Size(ctx))

	close(backend.release)
	require.True(t, <-done)
}

type brokenBackend struct{ memory.Store }

var errBroken = errors.New("disk on fire")

func (*brokenBackend) Name() string { return "broken" }
func (*brokenBackend) Load(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errBroken
}
func (*brokenBackend) Save(context.Context, cache.Entry) error { return errBroken }
func (*brokenBackend) Entries(context.Context) ([]cache.Entry, error) {
	return nil, errBroken
}

func TestCache_BackendErrorsDegradeToMiss(t *testing.T) {
	t.Parallel()

	c := cache.New(&brokenBackend{}, cache.Options{MaxSize: 5})
	ctx := context.Background()

	_, ok := c.Get(ctx, "k")
	require.False(t, ok)
	require.False(t, c.Set(ctx, "k", []byte("v"), 0))
	require.False(t, c.Exists(ctx, "k"))
	require.Empty(t, c.Keys(ctx))

	s := c.Stats(ctx)
	require.Equal(t, int64(1), s.Misses)
	require.GreaterOrEqual(t, s.Errors, int64(4))
}

func TestKeyIsDeterministic(t *testing.T) {
	t.Parallel()

	require.Equal(t, cache.Key("https://example.com", "full"), cache.Key("https://example.com", "full"))
	require.NotEqual(t, cache.Key("https://example.com", "full"), cache.Key("https://example.com", "quick"))
	require.Len(t, cache.Key("https://example.com", "full"), 32)
}
