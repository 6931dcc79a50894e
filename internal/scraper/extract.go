package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/JakeFAU/site-insight/internal/analysis"
)

const (
	navTextLimit   = 100
	truncateSuffix = "..."
)

var (
	colorPattern      = regexp.MustCompile(`(?i)(?:^|[^-])color:\s*([^;]+)`)
	backgroundPattern = regexp.MustCompile(`(?i)background-color:\s*([^;]+)`)
	fontPattern       = regexp.MustCompile(`(?i)font-family:\s*([^;]+)`)

	navSelectors   = []string{"nav", ".navigation", ".nav", ".menu", ".navbar"}
	layoutTags     = []string{"header", "footer", "main", "section", "article", "aside", "div"}
	buttonSelector = "button, input[type=button], input[type=submit], input[type=reset]"
)

// extract parses body into PageData. maxChars bounds Content and ReadableText.
func extract(page *url.URL, body []byte, maxChars int) (*analysis.PageData, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	data := &analysis.PageData{
		URL:             page.String(),
		Title:           collapse(doc.Find("title").First().Text()),
		MetaDescription: metaContent(doc, "description"),
		MetaKeywords:    metaContent(doc, "keywords"),
		Headers:         headings(doc),
		Links:           links(doc, page),
		Images:          images(doc, page),
		Forms:           forms(doc),
		Buttons:         buttons(doc),
		Navigation:      navigation(doc),
		LayoutElements:  layout(doc),
		PerformanceMetrics: analysis.PerformanceMetrics{
			ContentLength:        len(body),
			EstimatedLoadingTime: float64(len(body)) / 1e6,
		},
	}
	data.Colors, data.Fonts = styles(doc)
	data.ReadableText = truncate(readableText(body, page), maxChars)

	doc.Find("script, style, noscript").Remove()
	data.Content = truncate(collapse(doc.Text()), maxChars)
	return data, nil
}

func readableText(body []byte, page *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), page)
	if err != nil {
		return ""
	}
	return collapse(article.TextContent)
}

func metaContent(doc *goquery.Document, name string) string {
	var out string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), name) {
			out = strings.TrimSpace(s.AttrOr("content", ""))
			return false
		}
		return true
	})
	return out
}

func headings(doc *goquery.Document) []analysis.Heading {
	out := []analysis.Heading{}
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		out = append(out, analysis.Heading{
			Level: int(tag[1] - '0'),
			Text:  collapse(s.Text()),
			Tag:   tag,
		})
	})
	return out
}

func links(doc *goquery.Document, page *url.URL) []analysis.Link {
	out := []analysis.Link{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		link := analysis.Link{Text: collapse(s.Text()), Href: href, AbsoluteURL: href}
		if ref, err := url.Parse(href); err == nil {
			link.AbsoluteURL = page.ResolveReference(ref).String()
			link.IsExternal = ref.IsAbs() && !strings.EqualFold(ref.Host, page.Host)
		}
		out = append(out, link)
	})
	return out
}

func images(doc *goquery.Document, page *url.URL) []analysis.Image {
	out := []analysis.Image{}
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			return
		}
		img := analysis.Image{
			Src:         src,
			AbsoluteURL: src,
			Alt:         s.AttrOr("alt", ""),
			Title:       s.AttrOr("title", ""),
		}
		if ref, err := url.Parse(src); err == nil {
			img.AbsoluteURL = page.ResolveReference(ref).String()
		}
		out = append(out, img)
	})
	return out
}

func forms(doc *goquery.Document) []analysis.Form {
	out := []analysis.Form{}
	doc.Find("form").Each(func(_ int, f *goquery.Selection) {
		form := analysis.Form{
			Action: f.AttrOr("action", ""),
			Method: strings.ToLower(f.AttrOr("method", "get")),
			Inputs: []analysis.FormInput{},
		}
		f.Find("input, textarea, select").Each(func(_ int, in *goquery.Selection) {
			_, required := in.Attr("required")
			form.Inputs = append(form.Inputs, analysis.FormInput{
				Type:        in.AttrOr("type", goquery.NodeName(in)),
				Name:        in.AttrOr("name", ""),
				Placeholder: in.AttrOr("placeholder", ""),
				Required:    required,
			})
		})
		out = append(out, form)
	})
	return out
}

func buttons(doc *goquery.Document) []analysis.Button {
	out := []analysis.Button{}
	doc.Find(buttonSelector).Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if text == "" {
			text = s.AttrOr("value", "")
		}
		out = append(out, analysis.Button{
			Text:  text,
			Type:  s.AttrOr("type", "button"),
			Class: strings.Fields(s.AttrOr("class", "")),
		})
	})
	return out
}

func navigation(doc *goquery.Document) []analysis.NavElement {
	out := []analysis.NavElement{}
	for _, sel := range navSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			out = append(out, analysis.NavElement{
				Type:       sel,
				Text:       truncateRunes(collapse(s.Text()), navTextLimit),
				LinksCount: s.Find("a").Length(),
			})
		})
	}
	return out
}

func styles(doc *goquery.Document) (colors, fonts []string) {
	colorSet := map[string]struct{}{}
	fontSet := map[string]struct{}{}
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style := s.AttrOr("style", "")
		for _, m := range colorPattern.FindAllStringSubmatch(style, -1) {
			colorSet[strings.TrimSpace(m[1])] = struct{}{}
		}
		for _, m := range backgroundPattern.FindAllStringSubmatch(style, -1) {
			colorSet[strings.TrimSpace(m[1])] = struct{}{}
		}
		for _, m := range fontPattern.FindAllStringSubmatch(style, -1) {
			fontSet[strings.TrimSpace(m[1])] = struct{}{}
		}
	})
	return sortedKeys(colorSet), sortedKeys(fontSet)
}

func layout(doc *goquery.Document) []string {
	out := []string{}
	for _, tag := range layoutTags {
		if n := doc.Find(tag).Length(); n > 0 {
			out = append(out, fmt.Sprintf("%s: %d", tag, n))
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if limit <= 0 || len([]rune(s)) <= limit {
		return s
	}
	return truncateRunes(s, limit) + truncateSuffix
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
