package headless

import (
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpValidatesAndDefaults(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{MaxParallel: -1})
	require.Error(t, err)

	f, err := NewChromedp(Config{MaxParallel: 2})
	require.NoError(t, err)
	defer f.Close()

	require.NotNil(t, f.slots)
	require.Equal(t, defaultNavTimeout, f.cfg.NavigationTimeout)
	require.Equal(t, int64(defaultWidth), f.cfg.ViewportWidth)
	require.Equal(t, int64(defaultHeight), f.cfg.ViewportHeight)
}

func TestNewChromedpUnboundedAndOverrides(t *testing.T) {
	t.Parallel()

	f, err := NewChromedp(Config{NavigationTimeout: time.Second, ViewportWidth: 800, ViewportHeight: 600})
	require.NoError(t, err)
	defer f.Close()

	require.Nil(t, f.slots)
	require.Equal(t, time.Second, f.cfg.NavigationTimeout)
	require.Equal(t, int64(800), f.cfg.ViewportWidth)
}

func TestDocumentCaptureKeepsDocumentResponses(t *testing.T) {
	t.Parallel()

	doc := &documentCapture{}
	doc.listen(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500, URL: "https://example.com/app.js"},
	})
	doc.listen("not an event")

	status, headers, url := doc.result()
	require.Zero(t, status)
	require.Empty(t, url)
	require.NotNil(t, headers)

	doc.listen(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  203,
			URL:     "https://example.com/home",
			Headers: network.Headers{"Content-Type": "text/html", "Vary": []any{"Accept", "Cookie"}},
		},
	})
	status, headers, url = doc.result()
	require.Equal(t, 203, status)
	require.Equal(t, "https://example.com/home", url)
	require.Equal(t, "text/html", headers.Get("Content-Type"))
	require.Equal(t, []string{"Accept", "Cookie"}, headers.Values("Vary"))
}

func TestNetworkHeaders(t *testing.T) {
	t.Parallel()

	got := networkHeaders(http.Header{
		"X-One":   {"a"},
		"X-Many":  {"a", "b"},
		"X-Empty": {},
	})
	require.Equal(t, "a", got["X-One"])
	require.Equal(t, []string{"a", "b"}, got["X-Many"])
	require.NotContains(t, got, "X-Empty")
}
