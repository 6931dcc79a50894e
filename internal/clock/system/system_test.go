package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockNowIsCurrentUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New().Now()
	after := time.Now().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.After(before) && got.Before(after), "now %v outside [%v, %v]", got, before, after)
}

// Sliding windows compare successive readings, so they must not go backwards.
func TestClockNowNonDecreasing(t *testing.T) {
	t.Parallel()

	clk := New()
	prev := clk.Now()
	for i := 0; i < 100; i++ {
		next := clk.Now()
		require.False(t, next.Before(prev))
		prev = next
	}
}
