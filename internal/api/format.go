package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/site-insight/internal/analysis"
)

// Output formats for analysis records.
const (
	FormatJSON     = "json"
	FormatSummary  = "summary"
	FormatDetailed = "detailed"
)

// ParseFormat validates an output format. Empty input means json.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatSummary, FormatDetailed:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// SummaryView is the condensed rendering of a record.
type SummaryView struct {
	URL            string          `json:"url"`
	Status         analysis.Status `json:"status"`
	Summary        string          `json:"summary"`
	Classification string          `json:"classification"`
	SuccessRate    float64         `json:"success_rate"`
}

// DetailedView keeps agent results but trims the scraped page to its headline fields.
type DetailedView struct {
	URL            string                                     `json:"url"`
	Status         analysis.Status                            `json:"status"`
	WebsiteData    WebsiteOverview                            `json:"website_data"`
	Classification *analysis.Result[analysis.Classification] `json:"classification"`
	Summary        *analysis.Result[analysis.Summary]        `json:"summary"`
	UXReview       *analysis.Result[analysis.UXReview]       `json:"ux_review"`
	DesignAdvice   *analysis.Result[analysis.DesignAdvice]   `json:"design_advice"`
	Metadata       analysis.Metadata                          `json:"metadata"`
	SuccessRate    float64                                    `json:"success_rate"`
}

// WebsiteOverview is the page subset carried by DetailedView.
type WebsiteOverview struct {
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description"`
	ContentLength   int       `json:"content_length"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// FormatRecord renders rec in the requested format.
func FormatRecord(rec *analysis.Record, format string) any {
	switch format {
	case FormatSummary:
		view := SummaryView{
			URL:            rec.URL,
			Status:         rec.Status,
			Summary:        "No summary available",
			Classification: "Unknown",
			SuccessRate:    rec.SuccessRate,
		}
		if rec.Summary.Succeeded() {
			view.Summary = rec.Summary.Payload.Summary
		}
		if rec.Classification.Succeeded() {
			view.Classification = string(rec.Classification.Payload.Type)
		}
		return view
	case FormatDetailed:
		view := DetailedView{
			URL:            rec.URL,
			Status:         rec.Status,
			Classification: rec.Classification,
			Summary:        rec.Summary,
			UXReview:       rec.UXReview,
			DesignAdvice:   rec.DesignAdvice,
			Metadata:       rec.Metadata,
			SuccessRate:    rec.SuccessRate,
		}
		if p := rec.WebsiteData; p != nil {
			view.WebsiteData = WebsiteOverview{
				Title:           p.Title,
				MetaDescription: p.MetaDescription,
				ContentLength:   len(p.Content),
				ScrapedAt:       p.ScrapedAt,
			}
		}
		return view
	default:
		return rec
	}
}
