// Package collyfetcher fetches pages over plain HTTP with gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/site-insight/internal/fetcher"
)

const defaultTimeout = 30 * time.Second

// browserHeaders are sent unless the request overrides them. Some sites serve a stub page
// to clients that do not look like a browser.
var browserHeaders = http.Header{
	"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	"Accept-Language": {"en-US,en;q=0.9"},
}

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration

	// MaxBodySize caps the bytes read from a response. Zero keeps colly's default.
	MaxBodySize int
}

// Fetcher issues one GET per Fetch call. HTTP error statuses come back as responses.
type Fetcher struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.ParseHTTPErrorResponse = true
	if cfg.MaxBodySize > 0 {
		c.MaxBodySize = cfg.MaxBodySize
	}
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          50,
		IdleConnTimeout:       90 * time.Second,
	})
	return &Fetcher{cfg: cfg, base: c}
}

// Fetch GETs request.URL. The collector is cloned per call so callbacks never leak between
// concurrent fetches.
func (f *Fetcher) Fetch(ctx context.Context, request fetcher.Request) (fetcher.Response, error) {
	v := &visit{start: time.Now(), headers: request.Headers}
	c := f.base.Clone()
	c.OnRequest(v.onRequest)
	c.OnResponse(v.onResponse)
	c.OnError(v.onError)

	done := make(chan error, 1)
	go func() { done <- c.Visit(request.URL) }()

	select {
	case <-ctx.Done():
		return fetcher.Response{}, fmt.Errorf("fetch %s: %w", request.URL, ctx.Err())
	case err := <-done:
		return v.result(err)
	}
}

// visit collects the callbacks of a single colly request.
type visit struct {
	start   time.Time
	headers http.Header
	resp    fetcher.Response
	err     error
}

func (v *visit) onRequest(r *colly.Request) {
	for key, values := range browserHeaders {
		if _, ok := v.headers[key]; !ok {
			r.Headers.Set(key, values[0])
		}
	}
	for key, values := range v.headers {
		r.Headers.Del(key)
		for _, value := range values {
			r.Headers.Add(key, value)
		}
	}
}

func (v *visit) onResponse(r *colly.Response) {
	v.resp = fetcher.Response{
		StatusCode: r.StatusCode,
		Body:       append([]byte(nil), r.Body...),
		Duration:   time.Since(v.start),
	}
	if r.Request != nil && r.Request.URL != nil {
		v.resp.URL = r.Request.URL.String()
	}
	if r.Headers != nil {
		v.resp.Headers = r.Headers.Clone()
	}
}

func (v *visit) onError(r *colly.Response, err error) {
	if r != nil && r.StatusCode > 0 {
		v.onResponse(r)
		return
	}
	v.err = err
}

func (v *visit) result(visitErr error) (fetcher.Response, error) {
	if v.resp.StatusCode > 0 {
		return v.resp, nil
	}
	switch {
	case errors.Is(visitErr, colly.ErrRobotsTxtBlocked):
		return fetcher.Response{}, fmt.Errorf("blocked by robots.txt: %w", visitErr)
	case visitErr != nil:
		return fetcher.Response{}, fmt.Errorf("visit: %w", visitErr)
	case v.err != nil:
		return fetcher.Response{}, fmt.Errorf("response: %w", v.err)
	default:
		return fetcher.Response{}, errors.New("no response received")
	}
}
