// Package detector decides when a statically fetched page needs a headless render.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/site-insight/internal/fetcher"
)

const (
	defaultThreshold = 2048
	// minVisibleText is the readable text, in bytes, below which a scripted page is a shell.
	minVisibleText = 64
)

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector. A non-positive threshold uses 2048 bytes.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("__nuxt"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
	[]byte("data-v-app"),
}

// ShouldPromote reports whether a 200 response looks like an unrendered script shell.
func (h *Heuristic) ShouldPromote(resp fetcher.Response) bool {
	if resp.StatusCode != http.StatusOK || resp.UsedHeadless {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptShell(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptShell reports whether a small page carries scripts but little readable text. Script
// source that outweighs the visible text counts as a shell too.
func scriptShell(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	scripts := doc.Find("script")
	if scripts.Length() == 0 {
		return false
	}
	source := 0
	scripts.Each(func(_ int, s *goquery.Selection) {
		source += len(strings.TrimSpace(s.Text()))
	})

	doc.Find("script, noscript, style, template").Remove()
	visible := len(strings.Join(strings.Fields(doc.Text()), " "))
	return visible < minVisibleText || source >= visible
}
