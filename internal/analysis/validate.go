package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Payload limits.
const (
	MinReasonLength      = 10
	MinSummaryLength     = 20
	MaxSummaryWords      = 150
	MinSummarySentences  = 3
	MaxSummarySentences  = 5
	MaxUXReviewWords     = 500
	RecommendationsCount = 5
	MinScore             = 1
	MaxScore             = 10
)

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// ParseClassification decodes and validates a classifier JSON document.
func ParseClassification(raw []byte) (Classification, error) {
	var c Classification
	if err := json.Unmarshal(raw, &c); err != nil {
		return Classification{}, invalid("", "decode classification: %v", err)
	}
	c.Type = normalizeType(string(c.Type))
	if _, ok := websiteTypes[c.Type]; !ok {
		return Classification{}, invalid("type", "unknown website type %q", c.Type)
	}
	c.Reason = strings.TrimSpace(c.Reason)
	if len([]rune(c.Reason)) < MinReasonLength {
		return Classification{}, invalid("reason", "must be at least %d characters", MinReasonLength)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return Classification{}, invalid("confidence", "%.2f outside [0,1]", c.Confidence)
	}
	c.Industry = strings.TrimSpace(c.Industry)
	c.TargetAudience = strings.TrimSpace(c.TargetAudience)
	c.BusinessModel = strings.TrimSpace(c.BusinessModel)
	return c, nil
}

func normalizeType(s string) WebsiteType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if s == "ecommerce" {
		s = string(TypeECommerce)
	}
	return WebsiteType(s)
}

// NewSummary validates summary text and builds the payload. Text longer than MaxSummaryWords
// is cut to that many words before the sentence count is checked.
func NewSummary(text string, keyPoints []string) (Summary, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < MinSummaryLength {
		return Summary{}, invalid("summary", "must be at least %d characters", MinSummaryLength)
	}
	words := strings.Fields(text)
	if len(words) > MaxSummaryWords {
		words = words[:MaxSummaryWords]
		text = strings.Join(words, " ")
	}
	sentences := CountSentences(text)
	if sentences < MinSummarySentences || sentences > MaxSummarySentences {
		return Summary{}, invalid("summary", "has %d sentences, want %d-%d",
			sentences, MinSummarySentences, MaxSummarySentences)
	}
	points := make([]string, 0, len(keyPoints))
	for _, p := range keyPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	return Summary{
		Summary:       text,
		WordCount:     len(words),
		SentenceCount: sentences,
		KeyPoints:     points,
	}, nil
}

// CountSentences counts the non-blank segments between runs of sentence-ending punctuation.
func CountSentences(text string) int {
	n := 0
	for _, part := range sentenceEnd.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

// ParseUXReview decodes and validates a UX review JSON document.
func ParseUXReview(raw []byte) (UXReview, error) {
	var r UXReview
	if err := json.Unmarshal(raw, &r); err != nil {
		return UXReview{}, invalid("", "decode ux review: %v", err)
	}
	r.Strengths = trimAll(r.Strengths)
	r.Weaknesses = trimAll(r.Weaknesses)
	if len(r.Recommendations) != RecommendationsCount {
		return UXReview{}, invalid("recommendations", "got %d, want %d", len(r.Recommendations), RecommendationsCount)
	}
	for i := range r.Recommendations {
		rec := &r.Recommendations[i]
		rec.Title = strings.TrimSpace(rec.Title)
		rec.Description = strings.TrimSpace(rec.Description)
		rec.Impact = strings.TrimSpace(rec.Impact)
		if rec.Title == "" {
			return UXReview{}, invalid("recommendations.title", "recommendation %d has no title", i+1)
		}
		p, err := parsePriority(rec.Priority)
		if err != nil {
			return UXReview{}, err
		}
		rec.Priority = p
	}
	if err := checkScore("overall_score", r.OverallScore); err != nil {
		return UXReview{}, err
	}
	if r.WordCount <= 0 {
		r.WordCount = r.countWords()
	}
	if r.WordCount > MaxUXReviewWords {
		return UXReview{}, invalid("word_count", "%d exceeds %d", r.WordCount, MaxUXReviewWords)
	}
	return r, nil
}

func (r *UXReview) countWords() int {
	n := 0
	for _, s := range r.Strengths {
		n += len(strings.Fields(s))
	}
	for _, s := range r.Weaknesses {
		n += len(strings.Fields(s))
	}
	for _, rec := range r.Recommendations {
		n += len(strings.Fields(rec.Title)) + len(strings.Fields(rec.Description)) + len(strings.Fields(rec.Impact))
	}
	return n
}

// ParseDesignAdvice decodes and validates a design advice JSON document.
func ParseDesignAdvice(raw []byte) (DesignAdvice, error) {
	var d DesignAdvice
	if err := json.Unmarshal(raw, &d); err != nil {
		return DesignAdvice{}, invalid("", "decode design advice: %v", err)
	}
	if len(d.Recommendations) != RecommendationsCount {
		return DesignAdvice{}, invalid("recommendations", "got %d, want %d", len(d.Recommendations), RecommendationsCount)
	}
	for i := range d.Recommendations {
		rec := &d.Recommendations[i]
		rec.Title = strings.TrimSpace(rec.Title)
		rec.Description = strings.TrimSpace(rec.Description)
		if rec.Title == "" {
			return DesignAdvice{}, invalid("recommendations.title", "recommendation %d has no title", i+1)
		}
		switch c := DesignCategory(strings.ToLower(strings.TrimSpace(string(rec.Category)))); c {
		case CategoryVisual, CategoryLayout, CategoryTypography, CategoryColor, CategoryInteraction:
			rec.Category = c
		default:
			return DesignAdvice{}, invalid("recommendations.category", "unknown category %q", rec.Category)
		}
		p, err := parsePriority(rec.Priority)
		if err != nil {
			return DesignAdvice{}, err
		}
		rec.Priority = p
		switch diff := Difficulty(strings.ToLower(strings.TrimSpace(string(rec.ImplementationDifficulty)))); diff {
		case DifficultyEasy, DifficultyMedium, DifficultyHard:
			rec.ImplementationDifficulty = diff
		default:
			return DesignAdvice{}, invalid("recommendations.implementation_difficulty", "unknown difficulty %q", rec.ImplementationDifficulty)
		}
	}
	if err := checkScore("overall_design_score", d.OverallDesignScore); err != nil {
		return DesignAdvice{}, err
	}
	return d, nil
}

func parsePriority(p Priority) (Priority, error) {
	switch v := Priority(strings.ToLower(strings.TrimSpace(string(p)))); v {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return v, nil
	default:
		return "", invalid("recommendations.priority", "unknown priority %q", p)
	}
}

func checkScore(field string, score float64) error {
	if score < MinScore || score > MaxScore {
		return invalid(field, "%.1f outside [%d,%d]", score, MinScore, MaxScore)
	}
	return nil
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
