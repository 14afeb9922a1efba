// Package metrics exposes Prometheus collectors for the pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rowsTotal               *prometheus.CounterVec
	fetchesTotal            *prometheus.CounterVec
	extractionAttemptsTotal *prometheus.CounterVec
	cacheLookupsTotal       *prometheus.CounterVec
	batchPollsTotal         *prometheus.CounterVec
	batchStagesTotal        *prometheus.CounterVec
	rowDurationSeconds      prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		rowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_rows_total",
				Help: "Rows processed, labeled by extraction outcome.",
			},
			[]string{"outcome"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_fetches_total",
				Help: "HTML fetch attempts, labeled by source and result.",
			},
			[]string{"source", "result"},
		)

		extractionAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_extraction_attempts_total",
				Help: "Extraction strategy attempts, labeled by strategy and result.",
			},
			[]string{"strategy", "result"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_cache_lookups_total",
				Help: "Content cache lookups, labeled hit or miss.",
			},
			[]string{"result"},
		)

		batchPollsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_batch_polls_total",
				Help: "Batch job status polls, labeled by stage.",
			},
			[]string{"stage"},
		)

		batchStagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_batch_stages_total",
				Help: "Batch stage runs, labeled by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		)

		rowDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pipeline_row_duration_seconds",
				Help:    "Histogram of per-row processing latency.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRow records a finished row with its extraction outcome.
func ObserveRow(outcome string, duration time.Duration) {
	Init()
	rowsTotal.WithLabelValues(outcome).Inc()
	rowDurationSeconds.Observe(duration.Seconds())
}

// ObserveFetch records one fetch attempt for a candidate source.
func ObserveFetch(source, result string) {
	Init()
	fetchesTotal.WithLabelValues(source, result).Inc()
}

// ObserveExtractionAttempt records one strategy attempt.
func ObserveExtractionAttempt(strategy, result string) {
	Init()
	extractionAttemptsTotal.WithLabelValues(strategy, result).Inc()
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	Init()
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}

// ObserveBatchPoll counts one status poll for a stage.
func ObserveBatchPoll(stage string) {
	Init()
	batchPollsTotal.WithLabelValues(stage).Inc()
}

// ObserveBatchStage records the outcome of a whole stage run.
func ObserveBatchStage(stage, outcome string) {
	Init()
	batchStagesTotal.WithLabelValues(stage, outcome).Inc()
}
