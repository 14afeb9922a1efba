package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	// Observations must not panic after double init.
	ObserveRow("OK", 120*time.Millisecond)
	ObserveFetch("direct", "ok")
	ObserveExtractionAttempt("readability", "pass")
	ObserveCacheLookup(true)
	ObserveCacheLookup(false)
	ObserveBatchPoll("summary")
	ObserveBatchStage("summary", "ok")

	if Handler() == nil {
		t.Fatal("expected a metrics handler")
	}
}

func TestHandlerServesPipelineCollectors(t *testing.T) {
	Init()
	ObserveRow("ok", 80*time.Millisecond)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	if !strings.Contains(string(body), "pipeline_rows_total") {
		t.Fatal("expected pipeline_rows_total in scrape output")
	}
}
