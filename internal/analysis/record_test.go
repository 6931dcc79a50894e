package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregate_PartialSuccess(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := Aggregate(Outcome{
		ID:             "run-1",
		URL:            "https://example.com",
		Kind:           KindFull,
		Requested:      AllAgents(),
		Page:           &PageData{URL: "https://example.com"},
		Classification: Succeeded(Classification{Type: TypeBlog}, 1, now),
		Summary:        Failed[Summary](errors.New("boom"), 3, now),
		UXReview:       Succeeded(UXReview{OverallScore: 7}, 2, now),
		CompletedAt:    now,
	})

	require.Equal(t, StatusPartial, rec.Status)
	require.InDelta(t, 2.0/3.0, rec.SuccessRate, 1e-9)
	require.Nil(t, rec.DesignAdvice)
	require.Equal(t, []string{AgentClassifier, AgentSummary, AgentUXReviewer}, rec.Metadata.AgentsUsed)
	require.Equal(t, []string{AgentSummary}, rec.Metadata.FailedAgents)
	require.False(t, rec.Metadata.IsLandingPage)
	require.Equal(t, "boom", rec.Summary.Error)
	require.Equal(t, 3, rec.Summary.Attempts)
}

func TestAggregate_StatusDerivation(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ok := Succeeded(Classification{Type: TypeLandingPage}, 1, now)
	bad := Failed[Classification](errors.New("x"), 3, now)

	completed := Aggregate(Outcome{Classification: ok, DesignAdvice: Succeeded(DesignAdvice{}, 1, now)})
	require.Equal(t, StatusCompleted, completed.Status)
	require.InDelta(t, 1.0, completed.SuccessRate, 1e-9)
	require.True(t, completed.Metadata.IsLandingPage)

	failed := Aggregate(Outcome{Classification: bad})
	require.Equal(t, StatusFailed, failed.Status)
	require.Zero(t, failed.SuccessRate)

	empty := Aggregate(Outcome{})
	require.Equal(t, StatusFailed, empty.Status)
	require.Zero(t, empty.SuccessRate)
	require.Empty(t, empty.Metadata.AgentsUsed)
}

func TestCacheKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, "full", CacheKind(KindFull, AgentFlags{}))
	require.Equal(t, "quick", CacheKind(KindQuick, AllAgents()))
	require.Equal(t, "custom:classifier+ux_reviewer", CacheKind(KindCustom, AgentFlags{Classifier: true, UXReviewer: true}))
	require.Equal(t, "custom:none", CacheKind(KindCustom, AgentFlags{}))
}

func TestParseAgentList(t *testing.T) {
	t.Parallel()

	f, err := ParseAgentList("summary, design_advisor")
	require.NoError(t, err)
	require.Equal(t, AgentFlags{Summary: true, DesignAdvisor: true}, f)

	_, err = ParseAgentList("summary,oracle")
	require.Error(t, err)
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	k, err := ParseKind("")
	require.NoError(t, err)
	require.Equal(t, KindFull, k)

	k, err = ParseKind("Quick")
	require.NoError(t, err)
	require.Equal(t, KindQuick, k)

	_, err = ParseKind("deep")
	require.Error(t, err)
}

func TestFetchErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: timeout")
	err := error(&FetchError{URL: "https://x.test", Reason: "request failed", Err: cause})
	require.ErrorIs(t, err, cause)
	require.True(t, IsFetchError(err))
	require.Contains(t, err.Error(), "https://x.test")

	status := &FetchError{URL: "https://x.test", StatusCode: 503, Reason: "Service Unavailable"}
	require.Contains(t, status.Error(), "status 503")
}

func TestEventAttributes(t *testing.T) {
	t.Parallel()

	ev := Event{AnalysisType: KindQuick, Status: StatusPartial}
	attrs := ev.Attributes()
	require.Equal(t, "analysis.completed", attrs["event"])
	require.Equal(t, "quick", attrs["analysis_type"])
	require.Equal(t, "partial", attrs["status"])
}
