package orchestrator

import (
	"context"

	"github.com/JakeFAU/site-insight/internal/cache"
)

// Stats is a snapshot of orchestrator activity.
type Stats struct {
	TotalAnalyses      int64          `json:"total_analyses"`
	SuccessfulAnalyses int64          `json:"successful_analyses"`
	FailedAnalyses     int64          `json:"failed_analyses"`
	CacheHits          int64          `json:"cache_hits"`
	CacheMisses        int64          `json:"cache_misses"`
	Cache              cache.Stats    `json:"cache_stats"`
	RateLimiter        map[string]int `json:"rate_limiter_stats"`
}

// CacheInfo describes the analysis cache.
type CacheInfo struct {
	Backend    string   `json:"backend_type"`
	TTLSeconds int64    `json:"ttl_seconds"`
	Size       int      `json:"size"`
	Keys       []string `json:"keys"`
}

// Stats returns counters together with cache and limiter snapshots.
func (o *Orchestrator) Stats(ctx context.Context) Stats {
	return Stats{
		TotalAnalyses:      o.total.Load(),
		SuccessfulAnalyses: o.succeeded.Load(),
		FailedAnalyses:     o.failed.Load(),
		CacheHits:          o.cacheHits.Load(),
		CacheMisses:        o.cacheMisses.Load(),
		Cache:              o.cache.Stats(ctx),
		RateLimiter:        o.limiter.Usage(),
	}
}

// CacheInfo lists the cached analysis keys.
func (o *Orchestrator) CacheInfo(ctx context.Context) CacheInfo {
	keys := o.cache.Keys(ctx)
	ttl := o.cfg.CacheTTL
	if ttl <= 0 {
		ttl = o.cache.DefaultTTL()
	}
	return CacheInfo{
		Backend:    o.cache.Backend(),
		TTLSeconds: int64(ttl.Seconds()),
		Size:       len(keys),
		Keys:       keys,
	}
}

// ClearCache removes every cached analysis.
func (o *Orchestrator) ClearCache(ctx context.Context) bool {
	return o.cache.Clear(ctx)
}
