package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/analysis"
	"github.com/JakeFAU/site-insight/internal/llm"
)

const classifierInstructions = `Possible website types:
- landing_page: a single product or campaign page built to convert visitors
- blog: a blog or personal publication
- e_commerce: an online shop
- marketplace: a multi-vendor marketplace
- corporate: a company website
- portfolio: a portfolio
- news: a news site
- educational: an educational site
- social_media: a social network
- forum: a forum
- wiki: a wiki
- other: anything else

Return ONLY JSON in this shape:
{
  "type": "website_type",
  "reason": "a detailed explanation of the classification",
  "confidence": 0.95,
  "industry": "industry (optional)",
  "target_audience": "target audience (optional)",
  "business_model": "business model (optional)"
}`

// Classifier determines the website type of a page.
type Classifier struct {
	llm    Completer
	logger *zap.Logger
}

// NewClassifier builds a Classifier.
func NewClassifier(llm Completer, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{llm: llm, logger: logger.Named("classifier")}
}

// Classify asks the model for a classification and validates it.
func (c *Classifier) Classify(ctx context.Context, page *analysis.PageData) (analysis.Classification, error) {
	reply, err := c.llm.Complete(ctx, jsonOnlySystem, classifierPrompt(page), ClassifierTemperature)
	if err != nil {
		return analysis.Classification{}, err
	}
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return analysis.Classification{}, &analysis.ValidationError{Reason: err.Error()}
	}
	out, err := analysis.ParseClassification(raw)
	if err != nil {
		return analysis.Classification{}, err
	}
	c.logger.Debug("classified", zap.String("url", page.URL), zap.String("type", string(out.Type)))
	return out, nil
}

func classifierPrompt(page *analysis.PageData) string {
	var b strings.Builder
	b.WriteString("Analyze the following website and determine its type.\n\n")
	pageHeader(&b, page)
	fmt.Fprintf(&b, "Content: %s\n\n", page.ContentPreview(classifierPreviewChars))
	b.WriteString(classifierInstructions)
	return b.String()
}
