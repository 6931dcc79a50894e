package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoute(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Post("/analyze", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	limited := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "429"))
	ok := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "200"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/analyze", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, limited+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "429")))
	require.Equal(t, ok+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "200")))
	require.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}

func TestRouteOfWithoutRouter(t *testing.T) {
	t.Parallel()

	require.Equal(t, "unmatched", routeOf(httptest.NewRequest(http.MethodGet, "/x", nil)))
}
