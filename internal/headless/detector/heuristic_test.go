package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-insight/internal/fetcher"
)

func TestHeuristic_ShouldPromote_EmptyBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.True(t, h.ShouldPromote(fetcher.Response{StatusCode: 200, Body: []byte("")}))
}

func TestHeuristic_ShouldPromote_SPAMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.True(t, h.ShouldPromote(fetcher.Response{StatusCode: 200, Body: []byte(`<div id="__next"></div>`)}))
	require.True(t, h.ShouldPromote(fetcher.Response{StatusCode: 200, Body: []byte(`<app-root ng-version="17.0.0"></app-root>`)}))
}

func TestHeuristic_ShouldPromote_ScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	require.True(t, h.ShouldPromote(fetcher.Response{
		StatusCode: 200,
		Body:       []byte(`<html><script>var a=1;</script><p>t</p></html>`),
	}))
}

func TestHeuristic_ShouldPromote_ExternalScriptShell(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	body := `<html><head><script src="/bundle.js"></script></head><body><noscript>Enable JavaScript</noscript></body></html>`
	require.True(t, h.ShouldPromote(fetcher.Response{StatusCode: 200, Body: []byte(body)}))
}

func TestHeuristic_ShouldPromote_SmallStaticPages(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	require.False(t, h.ShouldPromote(fetcher.Response{StatusCode: 200, Body: []byte(`<html><p>Hi</p></html>`)}))

	prose := strings.Repeat("Server rendered paragraph with real words. ", 4)
	body := `<html><script>track();</script><p>` + prose + `</p></html>`
	require.False(t, h.ShouldPromote(fetcher.Response{StatusCode: 200, Body: []byte(body)}))
}

func TestHeuristic_ShouldPromote_ContentRichPage(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	body := "<html><body>" + strings.Repeat("<p>Plenty of server rendered prose.</p>", 100) + "</body></html>"
	require.False(t, h.ShouldPromote(fetcher.Response{StatusCode: 200, Body: []byte(body)}))
	require.Equal(t, defaultThreshold, h.BodyLengthThreshold)
}

func TestHeuristic_ShouldPromote_DisabledForNon200(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.False(t, h.ShouldPromote(fetcher.Response{StatusCode: 404, Body: []byte("not found")}))
}

func TestHeuristic_ShouldPromote_NeverForRenderedResponses(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.False(t, h.ShouldPromote(fetcher.Response{StatusCode: 200, UsedHeadless: true}))
}
