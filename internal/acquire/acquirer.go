// Package acquire turns a row's URL into an ordered list of HTML candidates:
// the direct fetch, an AMP alternate when advertised, and a headless render
// when the direct page looks blocked or thin.
package acquire

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/dataset"
	"github.com/pressmill/pressmill/internal/fetcher/direct"
	"github.com/pressmill/pressmill/internal/metrics"
)

// Candidate is one HTML document worth trying extraction on. Source is the
// provenance tag stored as the row's notes on success.
type Candidate struct {
	HTML   string
	Source string
}

// Candidate source tags.
const (
	SourceDirect   = "direct"
	SourceAMP      = "amp"
	SourceHeadless = "headless"
)

// Attempt log method names.
const (
	methodDirect   = "fetch_direct"
	methodAMP      = "fetch_amp"
	methodHeadless = "fetch_headless"
)

// softBlockHints mark pages that returned HTTP 200 but hid the article
// behind a challenge or a wall. Matched case-insensitively.
var softBlockHints = []string{
	"captcha",
	"cloudflare",
	"attention required",
	"enable javascript",
	"access denied",
	"subscribe to continue",
	"sign in to continue",
	"paywall",
	"your browser is out of date",
}

// thinHTMLThreshold is the raw length below which a page is presumed to be a
// JavaScript shell worth rendering.
const thinHTMLThreshold = 2000

// Fetcher performs one direct HTTP fetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (direct.Response, error)
}

// Renderer captures a fully rendered DOM.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Config controls retry and render behavior.
type Config struct {
	MaxAttempts   int
	BackoffBase   time.Duration
	RenderEnabled bool
}

// Acquirer builds HTML candidates for a row, recording every fetch attempt
// in the row's attempt log.
type Acquirer struct {
	cfg      Config
	fetcher  Fetcher
	renderer Renderer
	logger   *zap.Logger
}

// New builds an Acquirer. renderer may be nil when rendering is disabled.
func New(cfg Config, fetcher Fetcher, renderer Renderer, logger *zap.Logger) *Acquirer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	return &Acquirer{cfg: cfg, fetcher: fetcher, renderer: renderer, logger: logger}
}

// Acquire fetches HTML for the row's URL. Candidates come back in trial
// order: direct, then AMP, then a headless render when warranted. An empty
// slice means nothing usable was obtained.
func (a *Acquirer) Acquire(ctx context.Context, row *dataset.Row) []Candidate {
	var candidates []Candidate

	directHTML, gotDirect := a.fetchDirect(ctx, row)
	if gotDirect {
		candidates = append(candidates, Candidate{HTML: directHTML, Source: SourceDirect})

		if ampURL := findAMPURL(directHTML, row.URL); ampURL != "" {
			if ampHTML, ok := a.fetchAMP(ctx, row, ampURL); ok {
				candidates = append(candidates, Candidate{HTML: ampHTML, Source: SourceAMP})
			}
		}
	}

	if a.shouldRender(gotDirect, directHTML) {
		if rendered, ok := a.render(ctx, row); ok {
			candidates = append(candidates, Candidate{HTML: rendered, Source: SourceHeadless})
		}
	}

	return candidates
}

// fetchDirect runs the retrying direct fetch. Only 5xx statuses, transport
// failures and empty bodies consume the retry budget; any non-5xx response
// that carried a body returns immediately, blocked pages included, because
// they may still be text-bearing.
func (a *Acquirer) fetchDirect(ctx context.Context, row *dataset.Row) (string, bool) {
	backoff := a.cfg.BackoffBase

	for attempt := 0; attempt < a.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", false
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := a.fetcher.Fetch(ctx, row.URL)
		if err != nil {
			metrics.ObserveFetch(SourceDirect, "error")
			row.RecordAttempt(dataset.Attempt{Method: methodDirect, Error: err.Error()})
			a.logger.Debug("direct fetch failed",
				zap.String("url", row.URL),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}

		usable := resp.StatusCode < 500 && len(resp.Body) > 0
		if !usable {
			metrics.ObserveFetch(SourceDirect, "retry")
			row.RecordAttempt(dataset.Attempt{
				Method: methodDirect,
				Error:  statusError(resp.StatusCode, len(resp.Body)),
			})
			continue
		}

		if resp.OK() {
			metrics.ObserveFetch(SourceDirect, "ok")
			row.RecordAttempt(dataset.Attempt{Method: methodDirect, OK: true})
		} else {
			metrics.ObserveFetch(SourceDirect, "salvage")
			row.RecordAttempt(dataset.Attempt{
				Method: methodDirect,
				Error:  fmt.Sprintf("status_%d", resp.StatusCode),
			})
		}
		return string(resp.Body), true
	}

	return "", false
}

// fetchAMP is a single attempt with no retry budget of its own.
func (a *Acquirer) fetchAMP(ctx context.Context, row *dataset.Row, ampURL string) (string, bool) {
	resp, err := a.fetcher.Fetch(ctx, ampURL)
	if err != nil {
		metrics.ObserveFetch(SourceAMP, "error")
		row.RecordAttempt(dataset.Attempt{Method: methodAMP, Error: err.Error()})
		return "", false
	}
	if len(resp.Body) == 0 {
		metrics.ObserveFetch(SourceAMP, "error")
		row.RecordAttempt(dataset.Attempt{
			Method: methodAMP,
			Error:  statusError(resp.StatusCode, 0),
		})
		return "", false
	}

	if resp.OK() {
		metrics.ObserveFetch(SourceAMP, "ok")
		row.RecordAttempt(dataset.Attempt{Method: methodAMP, OK: true})
	} else {
		metrics.ObserveFetch(SourceAMP, "salvage")
		row.RecordAttempt(dataset.Attempt{
			Method: methodAMP,
			Error:  fmt.Sprintf("status_%d", resp.StatusCode),
		})
	}
	return string(resp.Body), true
}

func (a *Acquirer) shouldRender(gotDirect bool, directHTML string) bool {
	if !a.cfg.RenderEnabled || a.renderer == nil {
		return false
	}
	if !gotDirect {
		return true
	}
	return detectSoftBlock(directHTML) || len(directHTML) < thinHTMLThreshold
}

// render failures are soft: logged, no candidate, never an error.
func (a *Acquirer) render(ctx context.Context, row *dataset.Row) (string, bool) {
	html, err := a.renderer.Render(ctx, row.URL)
	if err != nil || html == "" {
		metrics.ObserveFetch(SourceHeadless, "error")
		row.RecordAttempt(dataset.Attempt{Method: methodHeadless, Error: "headless_failed"})
		a.logger.Debug("headless render failed", zap.String("url", row.URL), zap.Error(err))
		return "", false
	}
	metrics.ObserveFetch(SourceHeadless, "ok")
	row.RecordAttempt(dataset.Attempt{Method: methodHeadless, OK: true})
	return html, true
}

func detectSoftBlock(html string) bool {
	lower := strings.ToLower(html)
	for _, hint := range softBlockHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// findAMPURL scans for a rel=amphtml alternate link and resolves it against
// the page URL. Empty when absent or unresolvable.
func findAMPURL(html, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	href, ok := doc.Find(`link[rel='amphtml']`).First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}

func statusError(status, bodyLen int) string {
	if bodyLen == 0 && status >= 200 && status < 300 {
		return "empty_body"
	}
	return fmt.Sprintf("status_%d", status)
}
