package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/dataset"
	"github.com/pressmill/pressmill/internal/metrics"
)

// ErrNotConfigured is raised immediately when a batch stage runs without an
// API credential. It is a configuration error, not a transient one.
var ErrNotConfigured = fmt.Errorf("batch: api key not configured")

// Config controls polling and retry behavior for batch stages.
type Config struct {
	PollInterval time.Duration
	PollCeiling  time.Duration
	StageRetries int
	RetryBackoff time.Duration
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.PollCeiling <= 0 {
		c.PollCeiling = time.Hour
	}
	if c.StageRetries <= 0 {
		c.StageRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 3 * time.Second
	}
}

// Persister saves a dataset snapshot after results are applied.
type Persister func(ctx context.Context, ds *dataset.Dataset) error

// Orchestrator runs one batch stage end to end: upload, create, poll,
// download, apply, persist. The whole sequence is retried with linearly
// increasing backoff.
type Orchestrator struct {
	client  Client
	cfg     Config
	persist Persister
	logger  *zap.Logger
}

// New builds an Orchestrator. A nil client means no credential was
// configured; stages fail immediately with ErrNotConfigured.
func New(client Client, cfg Config, persist Persister, logger *zap.Logger) *Orchestrator {
	cfg.applyDefaults()
	if persist == nil {
		persist = func(context.Context, *dataset.Dataset) error { return nil }
	}
	return &Orchestrator{client: client, cfg: cfg, persist: persist, logger: logger}
}

// RunStage submits the request set as one batch job and applies the results
// to the dataset via the reducer. On exhaustion the last failure is returned
// for the caller to preserve on the dataset.
func (o *Orchestrator) RunStage(ctx context.Context, ds *dataset.Dataset, stage string, requests []Request, apply Reducer) error {
	if o.client == nil {
		metrics.ObserveBatchStage(stage, "not_configured")
		return ErrNotConfigured
	}

	var lastErr error
	for attempt := 0; attempt < o.cfg.StageRetries; attempt++ {
		if attempt > 0 {
			backoff := o.cfg.RetryBackoff * time.Duration(attempt)
			o.logger.Warn("batch stage retrying",
				zap.String("stage", stage),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return fmt.Errorf("batch stage %s canceled: %w", stage, ctx.Err())
			case <-time.After(backoff):
			}
		}

		if err := o.runOnce(ctx, ds, stage, requests, apply); err != nil {
			lastErr = err
			continue
		}
		metrics.ObserveBatchStage(stage, "ok")
		return nil
	}

	metrics.ObserveBatchStage(stage, "failed")
	return lastErr
}

func (o *Orchestrator) runOnce(ctx context.Context, ds *dataset.Dataset, stage string, requests []Request, apply Reducer) error {
	payload, err := marshalJSONL(requests)
	if err != nil {
		return err
	}

	fileID, err := o.client.UploadBatchFile(ctx, fmt.Sprintf("%s-%s.jsonl", stage, ds.ID), payload)
	if err != nil {
		return err
	}

	job, err := o.client.CreateJob(ctx, fileID, map[string]string{
		"stage":      stage,
		"dataset_id": ds.ID,
	})
	if err != nil {
		return err
	}
	o.logger.Info("batch job created",
		zap.String("stage", stage),
		zap.String("dataset", ds.ID),
		zap.String("job", job.ID),
		zap.Int("requests", len(requests)))

	job, err = o.poll(ctx, stage, job)
	if err != nil {
		return err
	}
	if job.Status != StatusCompleted {
		return fmt.Errorf("batch_%s_%s", stage, job.Status)
	}
	if job.OutputFileID == "" {
		return fmt.Errorf("batch %s job %s completed without output file", stage, job.ID)
	}

	data, err := o.client.DownloadOutput(ctx, job.OutputFileID)
	if err != nil {
		return err
	}

	lines := ParseOutput(data)
	for _, line := range lines {
		apply(ds, line)
	}
	o.logger.Info("batch stage applied",
		zap.String("stage", stage),
		zap.String("dataset", ds.ID),
		zap.Int("results", len(lines)))

	return o.persist(ctx, ds)
}

// poll checks job status on a fixed interval until a terminal status or the
// wall-clock ceiling. Exceeding the ceiling is fatal for the stage.
func (o *Orchestrator) poll(ctx context.Context, stage string, job Job) (Job, error) {
	deadline := time.Now().Add(o.cfg.PollCeiling)

	for {
		metrics.ObserveBatchPoll(stage)
		current, err := o.client.GetJob(ctx, job.ID)
		if err != nil {
			return Job{}, err
		}
		if TerminalStatus(current.Status) {
			return current, nil
		}
		if time.Now().After(deadline) {
			return Job{}, fmt.Errorf("batch %s job %s polling exceeded ceiling", stage, job.ID)
		}

		select {
		case <-ctx.Done():
			return Job{}, fmt.Errorf("batch %s poll canceled: %w", stage, ctx.Err())
		case <-time.After(o.cfg.PollInterval):
		}
	}
}

func marshalJSONL(requests []Request) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, req := range requests {
		if err := enc.Encode(req); err != nil {
			return nil, fmt.Errorf("encode batch request %s: %w", req.CustomID, err)
		}
	}
	return buf.Bytes(), nil
}
