// Package worker drives extraction for a single row: cache lookup, HTML
// acquisition, the extractor waterfall, and the resulting row state.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/acquire"
	"github.com/pressmill/pressmill/internal/cache"
	"github.com/pressmill/pressmill/internal/dataset"
	"github.com/pressmill/pressmill/internal/extract"
	"github.com/pressmill/pressmill/internal/metrics"
)

// ContentCache is the read/write slice of the content cache the processor
// needs.
type ContentCache interface {
	Read(url string) *cache.Entry
	Write(url string, entry cache.Entry)
}

// Acquirer produces HTML candidates for a row.
type Acquirer interface {
	Acquire(ctx context.Context, row *dataset.Row) []acquire.Candidate
}

// Extractor runs the strategy ladder over one HTML candidate.
type Extractor interface {
	Run(ctx context.Context, html, url string, record func(dataset.Attempt)) (*extract.Outcome, bool)
}

// Processor owns the per-row extraction flow.
type Processor struct {
	cache     ContentCache
	acquirer  Acquirer
	extractor Extractor
	logger    *zap.Logger
}

// New builds a Processor.
func New(contentCache ContentCache, acquirer Acquirer, extractor Extractor, logger *zap.Logger) *Processor {
	return &Processor{
		cache:     contentCache,
		acquirer:  acquirer,
		extractor: extractor,
		logger:    logger,
	}
}

// Process runs extraction for one row and leaves the row in a terminal
// status. Dismissed rows are untouched.
func (p *Processor) Process(ctx context.Context, row *dataset.Row) {
	if row.IsDismissed() {
		return
	}
	start := time.Now()

	if entry := p.cache.Read(row.URL); entry != nil && entry.ExtractedText != "" {
		metrics.ObserveCacheLookup(true)
		method := entry.Method
		if method == "" {
			method = "cache"
		}
		row.Extraction.Status = dataset.ExtractionOK
		row.Extraction.Method = method
		row.Extraction.Notes = "cache_hit"
		row.Extraction.Text = entry.ExtractedText
		row.Extraction.WordCount = entry.WordCount
		metrics.ObserveRow("cache_hit", time.Since(start))
		p.logger.Debug("row served from cache",
			zap.String("row", row.ID),
			zap.String("url", row.URL),
			zap.String("method", method))
		return
	}
	metrics.ObserveCacheLookup(false)

	candidates := p.acquirer.Acquire(ctx, row)
	for _, candidate := range candidates {
		outcome, ok := p.extractor.Run(ctx, candidate.HTML, row.URL, row.RecordAttempt)
		if !ok {
			continue
		}

		row.Extraction.Status = dataset.ExtractionOK
		row.Extraction.Method = outcome.Method
		row.Extraction.Notes = candidate.Source
		row.Extraction.Text = outcome.Text
		row.Extraction.WordCount = outcome.WordCount

		p.cache.Write(row.URL, cache.Entry{
			HTML:          candidate.HTML,
			ExtractedText: outcome.Text,
			Method:        outcome.Method,
			WordCount:     outcome.WordCount,
		})

		metrics.ObserveRow("ok", time.Since(start))
		p.logger.Info("row extracted",
			zap.String("row", row.ID),
			zap.String("url", row.URL),
			zap.String("method", outcome.Method),
			zap.String("source", candidate.Source),
			zap.Int("word_count", outcome.WordCount))
		return
	}

	row.Extraction.Status = dataset.ExtractionFailed
	row.Extraction.Method = ""
	row.Extraction.Notes = "extraction_failed"
	metrics.ObserveRow("failed", time.Since(start))
	p.logger.Warn("row extraction failed",
		zap.String("row", row.ID),
		zap.String("url", row.URL),
		zap.Int("attempts", len(row.Extraction.Attempts)))
}
