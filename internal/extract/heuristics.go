package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jaytaylor/html2text"
)

var domTextChrome = "script, style, nav, footer, header, aside, form, iframe, noscript, " +
	".sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner"

var domTextContainers = []string{
	"article", "main", ".main-content", ".entry-content", ".post-content",
	".post-body", ".article-body",
	"[role='main']",
	".content", "#content",
}

const domTextBlocks = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre, div"

// DOMText is a synchronous heuristic extractor: strip chrome elements, then
// collect block-level text from the first matching content container,
// falling back to the whole body.
type DOMText struct{}

func (DOMText) Name() string { return "dom_text" }

func (DOMText) Extract(_ context.Context, html, _ string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("dom_text: %w", err)
	}
	doc.Find(domTextChrome).Remove()

	var b strings.Builder
	collect := func(sel *goquery.Selection) {
		sel.Find(domTextBlocks).Each(func(_ int, item *goquery.Selection) {
			if t := strings.TrimSpace(item.Text()); t != "" {
				b.WriteString(t)
				b.WriteString("\n\n")
			}
		})
	}
	for _, container := range domTextContainers {
		doc.Find(container).Each(func(_ int, s *goquery.Selection) {
			collect(s)
		})
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		collect(doc.Find("body"))
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("dom_text: no content")
	}
	return text, nil
}

// JSONLD pulls articleBody out of schema.org structured data blocks.
type JSONLD struct{}

func (JSONLD) Name() string { return "jsonld" }

func (JSONLD) Extract(_ context.Context, html, _ string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("jsonld: %w", err)
	}

	var body string
	doc.Find(`script[type='application/ld+json']`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		var node any
		if err := json.Unmarshal([]byte(raw), &node); err != nil {
			// Malformed blocks are common in the wild; skip them.
			return true
		}
		if found := findArticleBody(node); found != "" {
			body = found
			return false
		}
		return true
	})

	if body == "" {
		return "", fmt.Errorf("jsonld: no articleBody")
	}
	return body, nil
}

// findArticleBody walks a decoded JSON-LD value looking for the first string
// articleBody, descending through arrays, mainEntity and @graph wrappers.
func findArticleBody(node any) string {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			if found := findArticleBody(item); found != "" {
				return found
			}
		}
	case map[string]any:
		if body, ok := v["articleBody"].(string); ok && body != "" {
			return body
		}
		for _, key := range []string{"mainEntity", "graph", "@graph"} {
			if child, ok := v[key]; ok {
				if found := findArticleBody(child); found != "" {
					return found
				}
			}
		}
	}
	return ""
}

// StripTags is the last-resort fallback: flatten the document to text and
// keep only lines long enough to plausibly be prose.
type StripTags struct{}

func (StripTags) Name() string { return "strip_tags" }

func (StripTags) Extract(_ context.Context, html, _ string) (string, error) {
	text, err := html2text.FromString(html, html2text.Options{TextOnly: true})
	if err != nil {
		return "", fmt.Errorf("strip_tags: %w", err)
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 40 {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return "", fmt.Errorf("strip_tags: no content")
	}
	return strings.Join(kept, "\n\n"), nil
}
