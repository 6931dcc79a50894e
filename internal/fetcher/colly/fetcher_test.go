package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-insight/internal/fetcher"
)

func TestNewAppliesConfig(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "insight-agent"})
	require.Equal(t, "insight-agent", f.base.UserAgent)
	require.True(t, f.base.IgnoreRobotsTxt)
	require.True(t, f.base.AllowURLRevisit)
	require.Equal(t, defaultTimeout, f.cfg.Timeout)

	f = New(Config{RespectRobots: true, Timeout: time.Second})
	require.False(t, f.base.IgnoreRobotsTxt)
	require.Equal(t, time.Second, f.cfg.Timeout)
}

func TestVisitHeaders(t *testing.T) {
	t.Parallel()

	v := &visit{headers: http.Header{"Accept-Language": {"de-DE"}, "X-Trace": {"yes"}}}
	req := &colly.Request{Headers: &http.Header{}}
	v.onRequest(req)

	require.Equal(t, "yes", req.Headers.Get("X-Trace"))
	require.Equal(t, "de-DE", req.Headers.Get("Accept-Language"))
	require.Contains(t, req.Headers.Get("Accept"), "text/html")
}

func TestVisitKeepsStatusResponsesFromOnError(t *testing.T) {
	t.Parallel()

	v := &visit{start: time.Now()}
	v.onError(&colly.Response{
		StatusCode: http.StatusNotFound,
		Headers:    &http.Header{"X-Resp": {"gone"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com/missing")},
	}, errors.New("Not Found"))

	resp, err := v.result(errors.New("Not Found"))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "https://example.com/missing", resp.URL)
	require.Equal(t, "gone", resp.Headers.Get("X-Resp"))
}

func TestVisitResultErrors(t *testing.T) {
	t.Parallel()

	_, err := (&visit{}).result(colly.ErrRobotsTxtBlocked)
	require.ErrorIs(t, err, colly.ErrRobotsTxtBlocked)
	require.ErrorContains(t, err, "robots.txt")

	v := &visit{}
	v.onError(nil, errors.New("connection reset"))
	_, err = v.result(nil)
	require.ErrorContains(t, err, "connection reset")

	_, err = (&visit{}).result(nil)
	require.ErrorContains(t, err, "no response")
}

func TestFetchAgainstServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprintf(w, "<html><title>%s|%s</title></html>", r.UserAgent(), r.Header.Get("Accept-Language"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "insight-test", Timeout: 5 * time.Second})
	ctx := context.Background()

	resp, err := f.Fetch(ctx, fetcher.Request{URL: srv.URL + "/ok"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "insight-test|en-US")
	require.Equal(t, "text/html", resp.Headers.Get("Content-Type"))

	// Repeat fetches of one URL happen on retries and cache refreshes.
	_, err = f.Fetch(ctx, fetcher.Request{URL: srv.URL + "/ok"})
	require.NoError(t, err)

	resp, err = f.Fetch(ctx, fetcher.Request{URL: srv.URL + "/missing"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFetchHonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(Config{Timeout: 5 * time.Second}).Fetch(ctx, fetcher.Request{URL: srv.URL})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchUnreachableHost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	_, err := New(Config{Timeout: time.Second}).Fetch(context.Background(), fetcher.Request{URL: target})
	require.Error(t, err)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
