package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/dataset"
	"github.com/pressmill/pressmill/internal/metrics"
	"github.com/pressmill/pressmill/internal/pool"
	"github.com/pressmill/pressmill/internal/textqual"
)

// Outcome is a winning extraction: normalized text plus provenance.
type Outcome struct {
	Text      string
	Method    string
	WordCount int
}

// Waterfall walks the strategy ladder in order and stops at the first
// strategy whose output clears the quality gate.
type Waterfall struct {
	strategies []Strategy
	logger     *zap.Logger
}

// DefaultStrategies returns the full ladder in priority order, highest
// precision first. The order is fixed.
func DefaultStrategies(runner Runner, subPool *pool.Pool) []Strategy {
	return []Strategy{
		NewSubprocess(runner, subPool),
		Readability{},
		NewGoose(),
		Trafilatura{},
		DOMText{},
		JSONLD{},
		StripTags{},
	}
}

// NewWaterfall builds a waterfall over the given ladder.
func NewWaterfall(strategies []Strategy, logger *zap.Logger) *Waterfall {
	return &Waterfall{strategies: strategies, logger: logger}
}

// Run tries each strategy against one HTML candidate. Every attempt is
// reported through record, pass or fail. The boolean reports whether any
// strategy produced gate-passing text.
func (w *Waterfall) Run(ctx context.Context, html, url string, record func(dataset.Attempt)) (*Outcome, bool) {
	for _, strategy := range w.strategies {
		name := strategy.Name()

		text, err := strategy.Extract(ctx, html, url)
		if err != nil {
			metrics.ObserveExtractionAttempt(name, "error")
			record(dataset.Attempt{Method: name, Error: err.Error()})
			w.logger.Debug("extraction strategy errored",
				zap.String("strategy", name),
				zap.String("url", url),
				zap.Error(err))
			continue
		}
		if text == "" {
			metrics.ObserveExtractionAttempt(name, "empty")
			record(dataset.Attempt{Method: name, Error: "no_text"})
			continue
		}

		report := textqual.Evaluate(text)
		if !report.Passes {
			metrics.ObserveExtractionAttempt(name, "rejected")
			record(dataset.Attempt{
				Method:    name,
				Reasons:   report.Reasons,
				WordCount: report.WordCount,
			})
			w.logger.Debug("extraction rejected by quality gate",
				zap.String("strategy", name),
				zap.String("url", url),
				zap.Strings("reasons", report.Reasons),
				zap.Int("word_count", report.WordCount))
			continue
		}

		metrics.ObserveExtractionAttempt(name, "ok")
		record(dataset.Attempt{Method: name, OK: true, WordCount: report.WordCount})
		return &Outcome{
			Text:      report.Normalized,
			Method:    name,
			WordCount: report.WordCount,
		}, true
	}
	return nil, false
}
