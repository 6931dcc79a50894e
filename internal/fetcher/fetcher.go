// Package fetcher defines the contracts shared by the static and headless page fetchers.
package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Request captures everything needed to fetch a URL.
type Request struct {
	URL     string
	Headers http.Header
}

// Response is the raw result returned by a Fetcher.
type Response struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher fetches a URL and returns the body plus metadata. HTTP error statuses are returned
// as responses, not errors.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}

// Detector decides whether a static response should be re-rendered headlessly.
type Detector interface {
	ShouldPromote(resp Response) bool
}
