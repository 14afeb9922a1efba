package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/advancedlogic/GoOse"
	readability "github.com/go-shiori/go-readability"
	trafilatura "github.com/markusmobius/go-trafilatura"
)

// Readability wraps the go-shiori readability port. Highest-precision of the
// in-process extractors.
type Readability struct{}

func (Readability) Name() string { return "readability" }

func (Readability) Extract(_ context.Context, html, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	if strings.TrimSpace(article.TextContent) == "" {
		return "", fmt.Errorf("readability: no content")
	}
	return article.TextContent, nil
}

// Goose wraps GoOse, a general-purpose article extractor.
type Goose struct {
	g goose.Goose
}

// NewGoose builds a Goose strategy with default configuration.
func NewGoose() *Goose {
	g := goose.New()
	return &Goose{g: g}
}

func (*Goose) Name() string { return "goose" }

func (s *Goose) Extract(_ context.Context, html, pageURL string) (string, error) {
	article, err := s.g.ExtractFromRawHTML(html, pageURL)
	if err != nil {
		return "", fmt.Errorf("goose: %w", err)
	}
	if article == nil || strings.TrimSpace(article.CleanedText) == "" {
		return "", fmt.Errorf("goose: no content")
	}
	return article.CleanedText, nil
}

// Trafilatura wraps the native Go port of trafilatura. Slightly different
// heuristics than the Python original, so both run in the ladder.
type Trafilatura struct{}

func (Trafilatura) Name() string { return "trafilatura_go" }

func (Trafilatura) Extract(_ context.Context, html, pageURL string) (string, error) {
	parsed, _ := url.Parse(pageURL)
	result, err := trafilatura.Extract(strings.NewReader(html), trafilatura.Options{
		OriginalURL:     parsed,
		ExcludeComments: true,
		ExcludeTables:   true,
	})
	if err != nil {
		return "", fmt.Errorf("trafilatura_go: %w", err)
	}
	if result == nil || strings.TrimSpace(result.ContentText) == "" {
		return "", fmt.Errorf("trafilatura_go: no content")
	}
	return result.ContentText, nil
}
