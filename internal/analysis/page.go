package analysis

import "time"

// PageData is the normalized representation of one scraped page.
type PageData struct {
	URL                string             `json:"url"`
	StatusCode         int                `json:"status_code"`
	Title              string             `json:"title"`
	MetaDescription    string             `json:"meta_description"`
	MetaKeywords       string             `json:"meta_keywords"`
	Content            string             `json:"content"`
	ReadableText       string             `json:"readable_text,omitempty"`
	Headers            []Heading          `json:"headers"`
	Links              []Link             `json:"links"`
	Images             []Image            `json:"images"`
	Forms              []Form             `json:"forms"`
	Buttons            []Button           `json:"buttons"`
	Navigation         []NavElement       `json:"navigation"`
	Colors             []string           `json:"colors"`
	Fonts              []string           `json:"fonts"`
	LayoutElements     []string           `json:"layout_elements"`
	PerformanceMetrics PerformanceMetrics `json:"performance_metrics"`
	RenderedHeadless   bool               `json:"rendered_headless"`
	ScrapedAt          time.Time          `json:"scraped_at"`
}

// Heading is an h1-h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Tag   string `json:"tag"`
}

// Link is an anchor with an href.
type Link struct {
	Text        string `json:"text"`
	Href        string `json:"href"`
	AbsoluteURL string `json:"absolute_url"`
	IsExternal  bool   `json:"is_external"`
}

// Image is an img element with a non-empty src.
type Image struct {
	Src         string `json:"src"`
	AbsoluteURL string `json:"absolute_url"`
	Alt         string `json:"alt"`
	Title       string `json:"title"`
}

// Form is a form element and its fields.
type Form struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Inputs []FormInput `json:"inputs"`
}

// FormInput is an input, textarea or select inside a form.
type FormInput struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
}

// Button is a button element or a button-like input.
type Button struct {
	Text  string   `json:"text"`
	Type  string   `json:"type"`
	Class []string `json:"class"`
}

// NavElement is a navigation container matched by tag or class.
type NavElement struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	LinksCount int    `json:"links_count"`
}

// PerformanceMetrics holds rough size-based page metrics.
type PerformanceMetrics struct {
	ContentLength        int     `json:"content_length"`
	EstimatedLoadingTime float64 `json:"estimated_loading_time"`
}

// ContentPreview returns at most limit runes of the page text, preferring the readable
// main-article text when it was extracted.
func (p *PageData) ContentPreview(limit int) string {
	text := p.Content
	if p.ReadableText != "" {
		text = p.ReadableText
	}
	return truncateRunes(text, limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
