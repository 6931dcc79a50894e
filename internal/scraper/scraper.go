// Package scraper turns a URL into analysis.PageData.
//
// Pages are fetched statically first. When a headless fetcher and a detector are
// configured and the static body looks like an unrendered script shell, the page
// is rendered in a browser and the static body is kept as a fallback.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/analysis"
	"github.com/JakeFAU/site-insight/internal/fetcher"
	"github.com/JakeFAU/site-insight/internal/metrics"
)

const (
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	// DefaultMaxContentChars bounds the extracted page text.
	DefaultMaxContentChars = 8000
)

// Pacer delays a fetch until the target host may be contacted.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// Options configures a Scraper. Headless, Detector and Pacer are optional.
type Options struct {
	Headless        fetcher.Fetcher
	Detector        fetcher.Detector
	Pacer           Pacer
	MaxContentChars int
	Headers         http.Header
	Logger          *zap.Logger
	Now             func() time.Time
}

// Scraper fetches and parses pages.
type Scraper struct {
	static   fetcher.Fetcher
	headless fetcher.Fetcher
	detector fetcher.Detector
	pacer    Pacer
	maxChars int
	headers  http.Header
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a Scraper around the static fetcher.
func New(static fetcher.Fetcher, opts Options) *Scraper {
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = DefaultMaxContentChars
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scraper{
		static:   static,
		headless: opts.Headless,
		detector: opts.Detector,
		pacer:    opts.Pacer,
		maxChars: opts.MaxContentChars,
		headers:  opts.Headers,
		logger:   opts.Logger.Named("scraper"),
		now:      opts.Now,
	}
}

// Scrape fetches rawURL and extracts its page data. Any failure to obtain a usable
// document is returned as *analysis.FetchError.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (data *analysis.PageData, err error) {
	defer func() { metrics.ObserveScrape(err == nil) }()

	target, err := ValidateURL(rawURL)
	if err != nil {
		return nil, &analysis.FetchError{URL: rawURL, Reason: "invalid url", Err: err}
	}

	if s.pacer != nil {
		if err := s.pacer.Wait(ctx, target.String()); err != nil {
			return nil, &analysis.FetchError{URL: rawURL, Reason: "host rate limit", Err: err}
		}
	}

	resp, err := s.fetch(ctx, target.String())
	if err != nil {
		return nil, err
	}

	page := target
	if resp.URL != "" {
		if final, perr := url.Parse(resp.URL); perr == nil && final.Host != "" {
			page = final
		}
	}

	data, err = extract(page, resp.Body, s.maxChars)
	if err != nil {
		return nil, &analysis.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Reason: "unparseable document", Err: err}
	}
	// The requested URL stays the identity of the record even after redirects.
	data.URL = rawURL
	data.StatusCode = resp.StatusCode
	data.RenderedHeadless = resp.UsedHeadless
	data.ScrapedAt = s.now().UTC()

	s.logger.Debug("page scraped",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
		zap.Bool("headless", resp.UsedHeadless),
		zap.Duration("duration", resp.Duration),
	)
	return data, nil
}

func (s *Scraper) fetch(ctx context.Context, target string) (fetcher.Response, error) {
	req := fetcher.Request{URL: target, Headers: s.headers}
	resp, err := s.static.Fetch(ctx, req)
	if err != nil {
		return fetcher.Response{}, &analysis.FetchError{URL: target, Reason: "request failed", Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fetcher.Response{}, &analysis.FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
		}
	}

	if s.headless != nil && s.detector != nil && s.detector.ShouldPromote(resp) {
		rendered, rerr := s.headless.Fetch(ctx, req)
		switch {
		case rerr != nil:
			s.logger.Warn("headless render failed, using static body", zap.String("url", target), zap.Error(rerr))
		case len(strings.TrimSpace(string(rendered.Body))) == 0:
			s.logger.Warn("headless render returned empty body, using static body", zap.String("url", target))
		default:
			resp = rendered
		}
	}

	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return fetcher.Response{}, &analysis.FetchError{URL: target, StatusCode: resp.StatusCode, Reason: "empty response body"}
	}
	return resp, nil
}

// ValidateURL parses raw and requires an absolute http or https URL with a host.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url must start with http:// or https://")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url has no host")
	}
	return u, nil
}
