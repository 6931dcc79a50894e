package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseClassification_Valid(t *testing.T) {
	t.Parallel()

	c, err := ParseClassification([]byte(`{"type":"Landing Page","reason":"  single product hero with a signup form  ","confidence":0.92,"industry":"saas"}`))
	require.NoError(t, err)
	require.Equal(t, TypeLandingPage, c.Type)
	require.Equal(t, "single product hero with a signup form", c.Reason)
	require.InDelta(t, 0.92, c.Confidence, 1e-9)
	require.Equal(t, "saas", c.Industry)
	require.True(t, c.IsLandingPage())
}

func TestParseClassification_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bad json":     `{"type":`,
		"unknown type": `{"type":"spaceship","reason":"long enough reason","confidence":0.5}`,
		"short reason": `{"type":"blog","reason":"short","confidence":0.5}`,
		"confidence":   `{"type":"blog","reason":"long enough reason","confidence":1.5}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseClassification([]byte(raw))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
		})
	}
}

func TestNewSummary_CountsAndTrimsKeyPoints(t *testing.T) {
	t.Parallel()

	s, err := NewSummary("Acme sells rockets. They ship fast! Prices are fair?", []string{" rockets ", "", "shipping"})
	require.NoError(t, err)
	require.Equal(t, 3, s.SentenceCount)
	require.Equal(t, 9, s.WordCount)
	require.Equal(t, []string{"rockets", "shipping"}, s.KeyPoints)
}

func TestNewSummary_TruncatesLongText(t *testing.T) {
	t.Parallel()

	text := "One two three. Four five six. Seven eight nine " + strings.Repeat("word ", 200) + "end."
	s, err := NewSummary(text, nil)
	require.NoError(t, err)
	require.Equal(t, MaxSummaryWords, s.WordCount)
	require.Len(t, strings.Fields(s.Summary), MaxSummaryWords)
}

func TestNewSummary_RejectsSentenceCount(t *testing.T) {
	t.Parallel()

	_, err := NewSummary("Only one sentence in this summary.", nil)
	require.Error(t, err)

	_, err = NewSummary("A b. C d. E f. G h. I j. K l.", nil)
	require.Error(t, err)

	_, err = NewSummary("tiny", nil)
	require.Error(t, err)
}

func TestCountSentences(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, CountSentences("   "))
	require.Equal(t, 1, CountSentences("no terminal punctuation"))
	require.Equal(t, 2, CountSentences("Wait... what?!"))
}

const uxJSON = `{
  "strengths": ["clear headline", " "],
  "weaknesses": ["slow hero image"],
  "recommendations": [
    {"title":"Compress images","description":"Hero is 3MB","priority":"HIGH","impact":"faster load"},
    {"title":"Add alt text","description":"Images lack alt","priority":"medium","impact":"a11y"},
    {"title":"Shorter form","description":"Too many fields","priority":"high","impact":"conversion"},
    {"title":"Sticky nav","description":"Nav scrolls away","priority":"low","impact":"orientation"},
    {"title":"Contrast","description":"Grey on grey","priority":"medium","impact":"readability"}
  ],
  "overall_score": 7
}`

func TestParseUXReview_Valid(t *testing.T) {
	t.Parallel()

	r, err := ParseUXReview([]byte(uxJSON))
	require.NoError(t, err)
	require.Equal(t, []string{"clear headline"}, r.Strengths)
	require.Equal(t, PriorityHigh, r.Recommendations[0].Priority)
	require.Positive(t, r.WordCount)
	require.LessOrEqual(t, r.WordCount, MaxUXReviewWords)
}

func TestParseUXReview_Rejects(t *testing.T) {
	t.Parallel()

	_, err := ParseUXReview([]byte(`{"recommendations":[],"overall_score":5}`))
	require.Error(t, err)

	_, err = ParseUXReview([]byte(strings.Replace(uxJSON, `"overall_score": 7`, `"overall_score": 11`, 1)))
	require.Error(t, err)

	_, err = ParseUXReview([]byte(strings.Replace(uxJSON, `"priority":"low"`, `"priority":"urgent"`, 1)))
	require.Error(t, err)

	_, err = ParseUXReview([]byte(strings.Replace(uxJSON, `"overall_score": 7`, `"overall_score": 7, "word_count": 900`, 1)))
	require.Error(t, err)
}

const designJSON = `{
  "recommendations": [
    {"title":"Bigger CTA","description":"d","category":"visual","priority":"high","implementation_difficulty":"easy"},
    {"title":"Grid","description":"d","category":"Layout","priority":"medium","implementation_difficulty":"medium"},
    {"title":"Font pairing","description":"d","category":"typography","priority":"low","implementation_difficulty":"easy"},
    {"title":"Palette","description":"d","category":"color","priority":"medium","implementation_difficulty":"hard"},
    {"title":"Hover states","description":"d","category":"interaction","priority":"low","implementation_difficulty":"medium"}
  ],
  "overall_design_score": 6.5,
  "is_landing_page": true
}`

func TestParseDesignAdvice_Valid(t *testing.T) {
	t.Parallel()

	d, err := ParseDesignAdvice([]byte(designJSON))
	require.NoError(t, err)
	require.Len(t, d.Recommendations, RecommendationsCount)
	require.Equal(t, CategoryLayout, d.Recommendations[1].Category)
	require.True(t, d.IsLandingPage)
}

func TestParseDesignAdvice_Rejects(t *testing.T) {
	t.Parallel()

	_, err := ParseDesignAdvice([]byte(strings.Replace(designJSON, `"category":"visual"`, `"category":"sound"`, 1)))
	require.Error(t, err)

	_, err = ParseDesignAdvice([]byte(strings.Replace(designJSON, `"implementation_difficulty":"hard"`, `"implementation_difficulty":"impossible"`, 1)))
	require.Error(t, err)

	_, err = ParseDesignAdvice([]byte(strings.Replace(designJSON, `6.5`, `0`, 1)))
	require.Error(t, err)
}
