// Package headless renders pages that hide their content behind JavaScript.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/pressmill/pressmill/internal/pool"
)

// Config controls the behavior of the renderer.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
}

// Renderer captures the fully rendered DOM using chromedp and headless
// Chrome. Renders are expensive, so they run on the shared render pool.
type Renderer struct {
	cfg         Config
	renderPool  *pool.Pool
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a renderer backed by chromedp.
func New(cfg Config, renderPool *pool.Pool) (*Renderer, error) {
	if renderPool == nil {
		return nil, fmt.Errorf("render pool is required")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 60 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		cfg:         cfg,
		renderPool:  renderPool,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (r *Renderer) Close() {
	r.allocCancel()
}

// Render navigates to the URL, waits for the page to settle and returns the
// rendered DOM as HTML. The call blocks while waiting for a render slot.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	var (
		html      string
		renderErr error
	)
	if err := r.renderPool.Do(ctx, func() {
		html, renderErr = r.render(url)
	}); err != nil {
		return "", err
	}
	if renderErr != nil {
		return "", renderErr
	}
	return html, nil
}

func (r *Renderer) render(url string) (string, error) {
	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.NavigationTimeout)
	defer cancel()

	var html string
	actions := []chromedp.Action{
		r.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Give late XHR-driven content a moment to land after body-ready.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (r *Renderer) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if r.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}
