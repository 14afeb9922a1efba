// Package direct implements single-shot HTTP fetches using gocolly. Unlike a
// plain GET helper it hands back the status code and body even for HTTP error
// responses, which the acquirer's salvage policy depends on: blocked or
// partial pages can still carry article text.
package direct

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Response is the outcome of one fetch. StatusCode is zero only when no HTTP
// response was obtained at all.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response was a 2xx with a non-empty body.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300 && len(r.Body) > 0
}

// Fetcher performs one GET per call through a cloned Colly collector.
type Fetcher struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, base: c}
}

// Fetch executes a single HTTP GET. An error is returned only for transport
// failures; HTTP error statuses come back as a Response for the caller to
// judge.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Response, error) {
	var (
		captured Response
		fetchErr error
	)

	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 25 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	collector.OnResponse(func(r *colly.Response) {
		captured = Response{
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Colly routes non-2xx statuses here with the response populated;
		// capture it so the salvage policy can still see the body.
		if r != nil && r.StatusCode != 0 {
			captured = Response{
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
			}
			return
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, url); err != nil {
		return Response{}, err
	}
	if captured.StatusCode != 0 {
		return captured, nil
	}
	if fetchErr != nil {
		return Response{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	return Response{}, fmt.Errorf("fetch %s: no response", url)
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan struct{})
	go func() {
		// Visit errors surface through the OnError hook; the channel only
		// signals completion.
		_ = collector.Visit(url)
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
