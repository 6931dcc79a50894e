package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/analysis"
	"github.com/JakeFAU/site-insight/internal/llm"
)

// ErrNotLandingPage is returned when design advice is requested for a page that was not
// classified as a landing page. The orchestrator never calls the advisor in that case.
var ErrNotLandingPage = errors.New("design advice requires a landing page classification")

// DesignAdvisor recommends visual improvements for landing pages.
type DesignAdvisor struct {
	llm    Completer
	logger *zap.Logger
}

// NewDesignAdvisor builds a DesignAdvisor.
func NewDesignAdvisor(llm Completer, logger *zap.Logger) *DesignAdvisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DesignAdvisor{llm: llm, logger: logger.Named("design_advisor")}
}

// Advise produces five design recommendations. hint must be a landing page classification.
func (d *DesignAdvisor) Advise(
	ctx context.Context,
	page *analysis.PageData,
	hint *analysis.Classification,
) (analysis.DesignAdvice, error) {
	if !hint.IsLandingPage() {
		return analysis.DesignAdvice{}, ErrNotLandingPage
	}
	reply, err := d.llm.Complete(ctx, jsonOnlySystem, designPrompt(page, hint), DesignAdvisorTemperature)
	if err != nil {
		return analysis.DesignAdvice{}, err
	}
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return analysis.DesignAdvice{}, &analysis.ValidationError{Reason: err.Error()}
	}
	out, err := analysis.ParseDesignAdvice(raw)
	if err != nil {
		return analysis.DesignAdvice{}, err
	}
	out.IsLandingPage = true
	d.logger.Debug("advised", zap.String("url", page.URL), zap.Float64("score", out.OverallDesignScore))
	return out, nil
}

func designPrompt(page *analysis.PageData, hint *analysis.Classification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the design of this landing page and give %d concrete recommendations.\n\n",
		analysis.RecommendationsCount)
	pageHeader(&b, page)
	classificationContext(&b, hint)
	fmt.Fprintf(&b, "Content: %s\n\n", page.ContentPreview(reviewPreviewChars))
	b.WriteString("Design data:\n")
	fmt.Fprintf(&b, "- Colors: %d (%s)\n", len(page.Colors), strings.Join(page.Colors, ", "))
	fmt.Fprintf(&b, "- Fonts: %d (%s)\n", len(page.Fonts), strings.Join(page.Fonts, ", "))
	fmt.Fprintf(&b, "- Images: %d\n", len(page.Images))
	fmt.Fprintf(&b, "- Layout elements: %s\n", strings.Join(page.LayoutElements, ", "))
	fmt.Fprintf(&b, "- Buttons: %d\n", len(page.Buttons))
	fmt.Fprintf(&b, "- Forms: %d\n\n", len(page.Forms))
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Exactly %d practical, actionable recommendations\n", analysis.RecommendationsCount)
	b.WriteString("- Categories: visual, layout, typography, color, interaction\n")
	b.WriteString("- Priorities: high, medium, low\n")
	b.WriteString("- Implementation difficulty: easy, medium, hard\n\n")
	b.WriteString(`Return ONLY JSON in this shape:
{
  "recommendations": [
    {
      "title": "Recommendation title",
      "description": "Detailed description with concrete steps",
      "category": "visual/layout/typography/color/interaction",
      "priority": "high/medium/low",
      "implementation_difficulty": "easy/medium/hard"
    }
  ],
  "overall_design_score": 7.5,
  "is_landing_page": true
}`)
	return b.String()
}
