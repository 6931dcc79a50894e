// Package ratelimit implements a sliding-window admission limiter keyed by caller.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/site-insight/internal/clock/system"
	"github.com/JakeFAU/site-insight/internal/metrics"
)

// ErrRateLimited is returned when a key has exhausted its window.
var ErrRateLimited = errors.New("rate limit exceeded")

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Config holds limiter configuration.
type Config struct {
	// MaxRequests is the default number of admissions per window.
	MaxRequests int
	Window      time.Duration
	// PollInterval is how often Wait re-checks a full window.
	PollInterval time.Duration
	// Scope labels wait metrics, e.g. "orchestrator" or "api".
	Scope string
	Clock Clock
}

// Limiter tracks request timestamps per key within a trailing window.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string][]time.Time
	limits    map[string]int
	max       int
	window    time.Duration
	poll      time.Duration
	scope     string
	clock     Clock
	lastSweep time.Time
}

// New creates a Limiter. Non-positive values fall back to 60 requests per minute polled
// every second.
func New(cfg Config) *Limiter {
	l := &Limiter{
		windows: make(map[string][]time.Time),
		limits:  make(map[string]int),
		max:     cfg.MaxRequests,
		window:  cfg.Window,
		poll:    cfg.PollInterval,
		scope:   cfg.Scope,
		clock:   cfg.Clock,
	}
	if l.max <= 0 {
		l.max = 60
	}
	if l.window <= 0 {
		l.window = time.Minute
	}
	if l.poll <= 0 {
		l.poll = time.Second
	}
	if l.scope == "" {
		l.scope = "default"
	}
	if l.clock == nil {
		l.clock = system.New()
	}
	l.lastSweep = l.clock.Now()
	return l
}

// SetLimit overrides the admission count for one key.
func (l *Limiter) SetLimit(key string, maxRequests int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if maxRequests <= 0 {
		delete(l.limits, key)
		return
	}
	l.limits[key] = maxRequests
}

// TryAcquire records a request for key and reports whether it was admitted. A denied
// request is not recorded.
func (l *Limiter) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.maybeSweep(now)
	stamps := l.prune(key, now)
	if len(stamps) >= l.limitFor(key) {
		return false
	}
	l.windows[key] = append(stamps, now)
	return true
}

// Wait suspends until key is admitted or ctx ends.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	start := l.clock.Now()
	waited := false
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		if l.TryAcquire(key) {
			if waited {
				metrics.ObserveRateLimitWait(l.scope, l.clock.Now().Sub(start))
			}
			return nil
		}
		waited = true
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limit wait: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Remaining returns how many admissions key has left in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.limitFor(key) - len(l.prune(key, l.clock.Now()))
	if n < 0 {
		return 0
	}
	return n
}

// RetryAfter returns how long until key's oldest request leaves the window. It is zero when
// the key has capacity.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	stamps := l.prune(key, now)
	if len(stamps) < l.limitFor(key) || len(stamps) == 0 {
		return 0
	}
	return stamps[0].Add(l.window).Sub(now)
}

// Usage returns the number of requests recorded per key in the current window.
func (l *Limiter) Usage() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	out := make(map[string]int, len(l.windows))
	for key := range l.windows {
		if n := len(l.prune(key, now)); n > 0 {
			out[key] = n
		}
	}
	return out
}

func (l *Limiter) limitFor(key string) int {
	if n, ok := l.limits[key]; ok {
		return n
	}
	return l.max
}

// prune drops timestamps older than the window and stores the result. Callers hold mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	stamps := l.windows[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	stamps = append(stamps[:0:0], stamps[i:]...)
	if len(stamps) == 0 {
		delete(l.windows, key)
		return nil
	}
	l.windows[key] = stamps
	return stamps
}

// maybeSweep removes idle keys at most once per window. Callers hold mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key := range l.windows {
		l.prune(key, now)
	}
}
