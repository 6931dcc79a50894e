package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/analysis"
	"github.com/JakeFAU/site-insight/internal/llm"
)

const uxReplyShape = `Return ONLY JSON in this shape:
{
  "strengths": ["strength 1", "strength 2", "strength 3"],
  "weaknesses": ["weakness 1", "weakness 2", "weakness 3"],
  "recommendations": [
    {
      "title": "Recommendation title",
      "description": "Detailed description",
      "priority": "high/medium/low",
      "impact": "Expected effect"
    }
  ],
  "overall_score": 7.5,
  "word_count": 450
}`

// UXReviewer audits the usability of a page.
type UXReviewer struct {
	llm    Completer
	logger *zap.Logger
}

// NewUXReviewer builds a UXReviewer.
func NewUXReviewer(llm Completer, logger *zap.Logger) *UXReviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UXReviewer{llm: llm, logger: logger.Named("ux_reviewer")}
}

// Review produces a UX review. hint may be nil.
func (r *UXReviewer) Review(
	ctx context.Context,
	page *analysis.PageData,
	hint *analysis.Classification,
) (analysis.UXReview, error) {
	reply, err := r.llm.Complete(ctx, jsonOnlySystem, reviewPrompt(page, hint), UXReviewerTemperature)
	if err != nil {
		return analysis.UXReview{}, err
	}
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return analysis.UXReview{}, &analysis.ValidationError{Reason: err.Error()}
	}
	out, err := analysis.ParseUXReview(raw)
	if err != nil {
		return analysis.UXReview{}, err
	}
	r.logger.Debug("reviewed", zap.String("url", page.URL), zap.Float64("score", out.OverallScore))
	return out, nil
}

func reviewPrompt(page *analysis.PageData, hint *analysis.Classification) string {
	var b strings.Builder
	b.WriteString("Perform a detailed UX analysis of this website.\n\n")
	pageHeader(&b, page)
	classificationContext(&b, hint)
	fmt.Fprintf(&b, "Content: %s\n\n", page.ContentPreview(reviewPreviewChars))
	b.WriteString("UX data:\n")
	fmt.Fprintf(&b, "- Navigation: %d elements\n", len(page.Navigation))
	fmt.Fprintf(&b, "- Forms: %d\n", len(page.Forms))
	fmt.Fprintf(&b, "- Buttons: %d\n", len(page.Buttons))
	fmt.Fprintf(&b, "- Links: %d\n", len(page.Links))
	fmt.Fprintf(&b, "- Images: %d\n\n", len(page.Images))
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- At most %d words\n", analysis.MaxUXReviewWords)
	b.WriteString("- Use professional UX terminology\n")
	fmt.Fprintf(&b, "- Score from %d to %d\n", analysis.MinScore, analysis.MaxScore)
	fmt.Fprintf(&b, "- Exactly %d recommendations\n\n", analysis.RecommendationsCount)
	b.WriteString(uxReplyShape)
	return b.String()
}
