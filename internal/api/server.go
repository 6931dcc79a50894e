package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/analysis"
	"github.com/JakeFAU/site-insight/internal/config"
	"github.com/JakeFAU/site-insight/internal/metrics"
	"github.com/JakeFAU/site-insight/internal/orchestrator"
	"github.com/JakeFAU/site-insight/internal/ratelimit"
)

// Service identity reported by /health.
const (
	ServiceName = "site-insight"
	Version     = "1.0.0"
)

// Analyzer runs analyses and reports on the cache.
type Analyzer interface {
	Analyze(
		ctx context.Context,
		url string,
		kind analysis.Kind,
		flags analysis.AgentFlags,
		useCache bool,
	) (*analysis.Record, error)
	Stats(ctx context.Context) orchestrator.Stats
	CacheInfo(ctx context.Context) orchestrator.CacheInfo
	ClearCache(ctx context.Context) bool
}

// Scraper fetches a single page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*analysis.PageData, error)
}

// Server wires HTTP handlers to the orchestrator and scraper.
type Server struct {
	router   chi.Router
	analyzer Analyzer
	scraper  Scraper
	limiter  *ratelimit.Limiter
	cfg      config.Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(analyzer Analyzer, scraper Scraper, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		analyzer: analyzer,
		scraper:  scraper,
		cfg:      cfg,
		logger:   logger.Named("api"),
		now:      func() time.Time { return time.Now().UTC() },
		limiter:  ratelimit.New(ratelimit.Config{Window: time.Minute, Scope: "api"}),
	}

	keys := make(map[string]config.APIKey, len(cfg.Auth.Keys))
	for _, k := range cfg.Auth.Keys {
		keys[k.Key] = k
		s.limiter.SetLimit(k.Key, k.RateLimitPerMinute)
	}

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", s.index)
	r.Get("/health", s.health)
	r.Get("/config", s.config)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/scrape", s.scrape)

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(keys, s.now))
		}
		r.Post("/analyze", s.analyze)
		r.Get("/stats", s.stats)
		r.Get("/cache", s.cacheInfo)
		r.Delete("/cache", s.clearCache)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"version": Version,
		"endpoints": map[string]string{
			"GET /":         "this index",
			"GET /health":   "liveness probe",
			"GET /config":   "non-sensitive configuration",
			"GET /metrics":  "Prometheus metrics",
			"POST /scrape":  "scrape a URL without analysis",
			"POST /analyze": "analyze a URL (API key required)",
			"GET /stats":    "orchestrator statistics (API key required)",
			"GET /cache":    "cache contents (API key required)",
			"DELETE /cache": "clear the cache (API key required)",
		},
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": Version,
	})
}

func (s *Server) config(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, s.cfg.Public())
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, s.analyzer.Stats(r.Context()), nil, s.now())
}

func (s *Server) cacheInfo(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, s.analyzer.CacheInfo(r.Context()), nil, s.now())
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	if !s.analyzer.ClearCache(r.Context()) {
		writeFailure(w, http.StatusInternalServerError, CodeInternal, "failed to clear cache", s.now())
		return
	}
	s.logger.Info("cache cleared", zap.String("request_id", RequestID(r.Context())))
	writeSuccess(w, map[string]string{"message": "cache cleared"}, nil, s.now())
}
