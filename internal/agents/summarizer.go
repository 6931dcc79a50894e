package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/analysis"
)

var (
	summaryPattern   = regexp.MustCompile(`(?s)SUMMARY:\s*(.+?)(?:KEY_POINTS:|$)`)
	keyPointsPattern = regexp.MustCompile(`(?s)KEY_POINTS:\s*(.+)`)
)

// Summarizer writes a short summary of a page.
type Summarizer struct {
	llm    Completer
	logger *zap.Logger
}

// NewSummarizer builds a Summarizer.
func NewSummarizer(llm Completer, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{llm: llm, logger: logger.Named("summarizer")}
}

// Summarize produces a 3-5 sentence summary. hint may be nil.
func (s *Summarizer) Summarize(
	ctx context.Context,
	page *analysis.PageData,
	hint *analysis.Classification,
) (analysis.Summary, error) {
	reply, err := s.llm.Complete(ctx, "You are an experienced content analyst.", summarizerPrompt(page, hint), SummarizerTemperature)
	if err != nil {
		return analysis.Summary{}, err
	}
	text, points := parseSummaryReply(reply)
	out, err := analysis.NewSummary(text, points)
	if err != nil {
		return analysis.Summary{}, err
	}
	s.logger.Debug("summarized",
		zap.String("url", page.URL),
		zap.Int("words", out.WordCount),
		zap.Int("sentences", out.SentenceCount),
	)
	return out, nil
}

func summarizerPrompt(page *analysis.PageData, hint *analysis.Classification) string {
	var b strings.Builder
	b.WriteString("Write a summary of this website in 3 to 5 sentences.\n\n")
	pageHeader(&b, page)
	classificationContext(&b, hint)
	fmt.Fprintf(&b, "Content: %s\n\n", page.ContentPreview(summarizerPreviewChars))
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Between %d and %d sentences\n", analysis.MinSummarySentences, analysis.MaxSummarySentences)
	fmt.Fprintf(&b, "- At most %d words\n", analysis.MaxSummaryWords)
	b.WriteString("- Capture the main purpose and key points of the site\n\n")
	b.WriteString("Reply in this format:\nSUMMARY: <summary text>\nKEY_POINTS: <comma separated key points>\n")
	return b.String()
}

// parseSummaryReply splits a SUMMARY/KEY_POINTS reply. Without a SUMMARY label the whole
// reply is the summary.
func parseSummaryReply(reply string) (string, []string) {
	text := strings.TrimSpace(reply)
	if m := summaryPattern.FindStringSubmatch(reply); m != nil {
		text = strings.TrimSpace(m[1])
	}
	var points []string
	if m := keyPointsPattern.FindStringSubmatch(reply); m != nil {
		for _, p := range strings.Split(m[1], ",") {
			if p = strings.TrimSpace(p); p != "" {
				points = append(points, p)
			}
		}
	}
	return text, points
}
