package acquire

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/dataset"
	"github.com/pressmill/pressmill/internal/fetcher/direct"
)

type fetchReply struct {
	resp direct.Response
	err  error
}

type fakeFetcher struct {
	replies map[string][]fetchReply
	calls   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{replies: map[string][]fetchReply{}, calls: map[string]int{}}
}

func (f *fakeFetcher) script(url string, replies ...fetchReply) {
	f.replies[url] = replies
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (direct.Response, error) {
	n := f.calls[url]
	f.calls[url]++
	replies := f.replies[url]
	if len(replies) == 0 {
		return direct.Response{}, fmt.Errorf("unscripted url %s", url)
	}
	if n >= len(replies) {
		n = len(replies) - 1
	}
	return replies[n].resp, replies[n].err
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) Render(context.Context, string) (string, error) {
	return f.html, f.err
}

func testConfig(renderEnabled bool) Config {
	return Config{MaxAttempts: 3, BackoffBase: time.Millisecond, RenderEnabled: renderEnabled}
}

func articleHTML() string {
	return `<html><body><article><p>` + fmt.Sprint("A long enough body for the fixture. ") + `</p></article></body></html>`
}

func TestAcquireCleanFetch(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/a", fetchReply{
		resp: direct.Response{StatusCode: 200, Body: []byte(articleHTML())},
	})

	row := &dataset.Row{ID: "row-1", URL: "https://example.com/a"}
	a := New(testConfig(false), fetcher, nil, zap.NewNop())

	candidates := a.Acquire(context.Background(), row)
	require.Len(t, candidates, 1)
	require.Equal(t, SourceDirect, candidates[0].Source)

	require.Len(t, row.Extraction.Attempts, 1)
	require.Equal(t, "fetch_direct", row.Extraction.Attempts[0].Method)
	require.True(t, row.Extraction.Attempts[0].OK)
	require.Equal(t, 1, fetcher.calls["https://example.com/a"])
}

func TestAcquireForbiddenEmptyBodyExhaustsRetries(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/blocked", fetchReply{
		resp: direct.Response{StatusCode: 403},
	})

	row := &dataset.Row{ID: "row-1", URL: "https://example.com/blocked"}
	a := New(testConfig(false), fetcher, nil, zap.NewNop())

	candidates := a.Acquire(context.Background(), row)
	require.Empty(t, candidates)

	require.Len(t, row.Extraction.Attempts, 3)
	for _, attempt := range row.Extraction.Attempts {
		require.Equal(t, "fetch_direct", attempt.Method)
		require.False(t, attempt.OK)
		require.Equal(t, "status_403", attempt.Error)
	}
	require.Equal(t, 3, fetcher.calls["https://example.com/blocked"])
}

func TestAcquireSalvagesForbiddenWithBody(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/wall", fetchReply{
		resp: direct.Response{StatusCode: 403, Body: []byte(articleHTML())},
	})

	row := &dataset.Row{ID: "row-1", URL: "https://example.com/wall"}
	a := New(testConfig(false), fetcher, nil, zap.NewNop())

	candidates := a.Acquire(context.Background(), row)
	require.Len(t, candidates, 1)
	require.Equal(t, SourceDirect, candidates[0].Source)

	// Blocked pages with a body come back on the first attempt.
	require.Equal(t, 1, fetcher.calls["https://example.com/wall"])
	require.Len(t, row.Extraction.Attempts, 1)
	require.False(t, row.Extraction.Attempts[0].OK)
	require.Equal(t, "status_403", row.Extraction.Attempts[0].Error)
}

func TestAcquireServerErrorRetriesThenNetwork(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/flaky",
		fetchReply{resp: direct.Response{StatusCode: 503, Body: []byte("oops")}},
		fetchReply{err: fmt.Errorf("connection reset")},
		fetchReply{resp: direct.Response{StatusCode: 200, Body: []byte(articleHTML())}},
	)

	row := &dataset.Row{ID: "row-1", URL: "https://example.com/flaky"}
	a := New(testConfig(false), fetcher, nil, zap.NewNop())

	candidates := a.Acquire(context.Background(), row)
	require.Len(t, candidates, 1)

	require.Len(t, row.Extraction.Attempts, 3)
	require.Equal(t, "status_503", row.Extraction.Attempts[0].Error)
	require.Contains(t, row.Extraction.Attempts[1].Error, "connection reset")
	require.True(t, row.Extraction.Attempts[2].OK)
}

func TestAcquireAddsAMPCandidate(t *testing.T) {
	t.Parallel()

	directHTML := `<html><head><link rel="amphtml" href="/amp/a"></head><body>` +
		`<p>direct page body long enough to not look thin</p></body></html>`
	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/a", fetchReply{
		resp: direct.Response{StatusCode: 200, Body: []byte(directHTML)},
	})
	fetcher.script("https://example.com/amp/a", fetchReply{
		resp: direct.Response{StatusCode: 200, Body: []byte("<html><body>amp body</body></html>")},
	})

	row := &dataset.Row{ID: "row-1", URL: "https://example.com/a"}
	a := New(testConfig(false), fetcher, nil, zap.NewNop())

	candidates := a.Acquire(context.Background(), row)
	require.Len(t, candidates, 2)
	require.Equal(t, SourceDirect, candidates[0].Source)
	require.Equal(t, SourceAMP, candidates[1].Source)

	require.Len(t, row.Extraction.Attempts, 2)
	require.Equal(t, "fetch_amp", row.Extraction.Attempts[1].Method)
	require.True(t, row.Extraction.Attempts[1].OK)
	// The relative href resolves against the page URL.
	require.Equal(t, 1, fetcher.calls["https://example.com/amp/a"])
}

func TestAcquireLogsFailedAMPFetch(t *testing.T) {
	t.Parallel()

	directHTML := `<html><head><link rel="amphtml" href="/amp/a"></head><body>` +
		`<p>direct page body long enough to not look thin</p></body></html>`
	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/a", fetchReply{
		resp: direct.Response{StatusCode: 200, Body: []byte(directHTML)},
	})
	fetcher.script("https://example.com/amp/a", fetchReply{err: fmt.Errorf("connection refused")})

	row := &dataset.Row{ID: "row-1", URL: "https://example.com/a"}
	a := New(testConfig(false), fetcher, nil, zap.NewNop())

	candidates := a.Acquire(context.Background(), row)
	require.Len(t, candidates, 1)
	require.Equal(t, SourceDirect, candidates[0].Source)

	require.Len(t, row.Extraction.Attempts, 2)
	amp := row.Extraction.Attempts[1]
	require.Equal(t, "fetch_amp", amp.Method)
	require.False(t, amp.OK)
	require.Contains(t, amp.Error, "connection refused")
}

func TestAcquireRendersSoftBlockedPage(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/js", fetchReply{
		resp: direct.Response{StatusCode: 200, Body: []byte("<html><body>Please enable JavaScript to view this page.</body></html>")},
	})
	renderer := &fakeRenderer{html: "<html><body>rendered article body</body></html>"}

	row := &dataset.Row{ID: "row-1", URL: "https://example.com/js"}
	a := New(testConfig(true), fetcher, renderer, zap.NewNop())

	candidates := a.Acquire(context.Background(), row)
	require.Len(t, candidates, 2)
	require.Equal(t, SourceHeadless, candidates[1].Source)

	last := row.Extraction.Attempts[len(row.Extraction.Attempts)-1]
	require.Equal(t, "fetch_headless", last.Method)
	require.True(t, last.OK)
}

func TestAcquireRenderFailureIsSoft(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/thin", fetchReply{
		resp: direct.Response{StatusCode: 200, Body: []byte("<html><body>tiny</body></html>")},
	})
	renderer := &fakeRenderer{err: fmt.Errorf("browser crashed")}

	row := &dataset.Row{ID: "row-1", URL: "https://example.com/thin"}
	a := New(testConfig(true), fetcher, renderer, zap.NewNop())

	candidates := a.Acquire(context.Background(), row)
	require.Len(t, candidates, 1)

	last := row.Extraction.Attempts[len(row.Extraction.Attempts)-1]
	require.Equal(t, "fetch_headless", last.Method)
	require.False(t, last.OK)
	require.Equal(t, "headless_failed", last.Error)
}

func TestAcquireRendersWhenDirectFetchFails(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/dead", fetchReply{err: fmt.Errorf("no route to host")})
	renderer := &fakeRenderer{html: "<html><body>rendered anyway</body></html>"}

	row := &dataset.Row{ID: "row-1", URL: "https://example.com/dead"}
	a := New(testConfig(true), fetcher, renderer, zap.NewNop())

	candidates := a.Acquire(context.Background(), row)
	require.Len(t, candidates, 1)
	require.Equal(t, SourceHeadless, candidates[0].Source)
}
