// Package metrics exposes Prometheus collectors for the analysis service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	analysesTotal              *prometheus.CounterVec
	agentRunsTotal             *prometheus.CounterVec
	agentDurationSeconds       *prometheus.HistogramVec
	scrapesTotal               *prometheus.CounterVec
	cacheOperationsTotal       *prometheus.CounterVec
	rateLimitWaitSeconds       *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		analysesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteinsight_analyses_total",
				Help: "Total number of analyses, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		agentRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteinsight_agent_runs_total",
				Help: "Total number of agent runs, labeled by agent and result.",
			},
			[]string{"agent", "result"},
		)

		agentDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "siteinsight_agent_duration_seconds",
				Help:    "Histogram of agent run latencies including retries.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"agent"},
		)

		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteinsight_scrapes_total",
				Help: "Total number of scrapes, labeled by result.",
			},
			[]string{"result"},
		)

		cacheOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteinsight_cache_operations_total",
				Help: "Total number of cache operations, labeled by operation and result.",
			},
			[]string{"op", "result"},
		)

		rateLimitWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "siteinsight_rate_limit_wait_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"scope"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAnalysis counts a finished analysis. Status is the record status or "error".
func ObserveAnalysis(kind, status string) {
	Init()
	analysesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveAgent records one agent run including its retries.
func ObserveAgent(agent string, success bool, duration time.Duration) {
	Init()
	agentRunsTotal.WithLabelValues(agent, resultLabel(success)).Inc()
	agentDurationSeconds.WithLabelValues(agent).Observe(duration.Seconds())
}

// ObserveScrape counts a scrape attempt.
func ObserveScrape(success bool) {
	Init()
	scrapesTotal.WithLabelValues(resultLabel(success)).Inc()
}

// ObserveCache counts a cache operation. Result is "hit", "miss", "ok" or "error".
func ObserveCache(op, result string) {
	Init()
	cacheOperationsTotal.WithLabelValues(op, result).Inc()
}

// ObserveRateLimitWait records the duration of a rate limit wait.
func ObserveRateLimitWait(scope string, duration time.Duration) {
	Init()
	rateLimitWaitSeconds.WithLabelValues(scope).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
