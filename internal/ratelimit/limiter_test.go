package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
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

func TestLimiter_WindowAdmission(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := New(Config{MaxRequests: 5, Window: 60 * time.Second, Clock: clk})

	for i := 0; i < 5; i++ {
		require.True(t, l.TryAcquire("k"), "request %d should be admitted", i+1)
		clk.Advance(time.Second)
	}
	require.False(t, l.TryAcquire("k"))
	require.Zero(t, l.Remaining("k"))
	require.Equal(t, 55*time.Second, l.RetryAfter("k"))

	clk.Advance(61 * time.Second)
	require.True(t, l.TryAcquire("k"))
	require.Equal(t, 4, l.Remaining("k"))
}

func TestLimiter_DeniedRequestsAreNotRecorded(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := New(Config{MaxRequests: 1, Window: 10 * time.Second, Clock: clk})

	require.True(t, l.TryAcquire("k"))
	for i := 0; i < 3; i++ {
		require.False(t, l.TryAcquire("k"))
	}
	require.Equal(t, map[string]int{"k": 1}, l.Usage())

	clk.Advance(11 * time.Second)
	require.True(t, l.TryAcquire("k"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := New(Config{MaxRequests: 1, Window: time.Minute, Clock: clk})
	l.SetLimit("admin", 3)

	require.True(t, l.TryAcquire("user"))
	require.False(t, l.TryAcquire("user"))
	for i := 0; i < 3; i++ {
		require.True(t, l.TryAcquire("admin"))
	}
	require.False(t, l.TryAcquire("admin"))
}

func TestLimiter_SweepsIdleKeys(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := New(Config{MaxRequests: 2, Window: time.Minute, Clock: clk})
	require.True(t, l.TryAcquire("a"))
	require.True(t, l.TryAcquire("b"))

	clk.Advance(2 * time.Minute)
	require.True(t, l.TryAcquire("c"))

	l.mu.Lock()
	defer l.mu.Unlock()
	require.Len(t, l.windows, 1)
	require.Contains(t, l.windows, "c")
}

func TestLimiter_WaitBlocksUntilSlotFrees(t *testing.T) {
	t.Parallel()

	l := New(Config{MaxRequests: 1, Window: 80 * time.Millisecond, PollInterval: 5 * time.Millisecond, Scope: "test"})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "k"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "k"))
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	t.Parallel()

	l := New(Config{MaxRequests: 1, Window: time.Hour, PollInterval: 5 * time.Millisecond})
	require.True(t, l.TryAcquire("k"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
