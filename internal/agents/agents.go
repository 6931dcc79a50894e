// Package agents implements the LLM-backed page analysts.
//
// Each agent performs a single attempt: it renders a prompt from PageData, asks the model,
// and validates the reply into a typed payload. Retries and result envelopes belong to the
// caller.
package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/analysis"
)

// Completer produces one model reply for a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float32) (string, error)
}

// Sampling temperatures per agent.
const (
	ClassifierTemperature    float32 = 0.1
	SummarizerTemperature    float32 = 0.2
	UXReviewerTemperature    float32 = 0.3
	DesignAdvisorTemperature float32 = 0.4
)

const (
	classifierPreviewChars = 2000
	summarizerPreviewChars = 3000
	reviewPreviewChars     = 2000

	jsonOnlySystem = "You are a JSON generator. Reply with a single JSON object and nothing else."
	unknown        = "unknown"
)

// Set bundles the four agents.
type Set struct {
	Classifier    *Classifier
	Summarizer    *Summarizer
	UXReviewer    *UXReviewer
	DesignAdvisor *DesignAdvisor
}

// NewSet builds every agent on one completer.
func NewSet(llm Completer, logger *zap.Logger) Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("agents")
	return Set{
		Classifier:    NewClassifier(llm, logger),
		Summarizer:    NewSummarizer(llm, logger),
		UXReviewer:    NewUXReviewer(llm, logger),
		DesignAdvisor: NewDesignAdvisor(llm, logger),
	}
}

func pageHeader(b *strings.Builder, page *analysis.PageData) {
	fmt.Fprintf(b, "URL: %s\n", orNA(page.URL))
	fmt.Fprintf(b, "Title: %s\n", orNA(page.Title))
	fmt.Fprintf(b, "Description: %s\n", orNA(page.MetaDescription))
}

func classificationContext(b *strings.Builder, c *analysis.Classification) {
	if c == nil {
		return
	}
	b.WriteString("\nClassification context:\n")
	fmt.Fprintf(b, "- Website type: %s\n", orUnknown(string(c.Type)))
	fmt.Fprintf(b, "- Industry: %s\n", orUnknown(c.Industry))
	fmt.Fprintf(b, "- Target audience: %s\n", orUnknown(c.TargetAudience))
	fmt.Fprintf(b, "- Business model: %s\n", orUnknown(c.BusinessModel))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}
