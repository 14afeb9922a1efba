// Package pipeline drives a dataset through its lifecycle: extraction,
// manual intervention, and the two batch stages.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/batch"
	"github.com/pressmill/pressmill/internal/dataset"
	"github.com/pressmill/pressmill/internal/ingest"
	"github.com/pressmill/pressmill/internal/pool"
	"github.com/pressmill/pressmill/internal/store"
	"github.com/pressmill/pressmill/internal/textqual"
)

// RowProcessor runs extraction for one row.
type RowProcessor interface {
	Process(ctx context.Context, row *dataset.Row)
}

// StageRunner executes one batch stage end to end.
type StageRunner interface {
	RunStage(ctx context.Context, ds *dataset.Dataset, stage string, requests []batch.Request, apply batch.Reducer) error
}

// Machine owns one dataset's progression. Row tasks each mutate only their
// own row; everything touching dataset-level state runs on the caller's
// goroutine.
type Machine struct {
	ds        *dataset.Dataset
	processor RowProcessor
	rowPool   *pool.Pool
	stages    StageRunner
	snapshots store.SnapshotStore
	model     string
	logger    *zap.Logger
}

// New builds a Machine around a dataset.
func New(ds *dataset.Dataset, processor RowProcessor, rowPool *pool.Pool, stages StageRunner, snapshots store.SnapshotStore, model string, logger *zap.Logger) *Machine {
	return &Machine{
		ds:        ds,
		processor: processor,
		rowPool:   rowPool,
		stages:    stages,
		snapshots: snapshots,
		model:     model,
		logger:    logger,
	}
}

// Dataset returns the machine's dataset.
func (m *Machine) Dataset() *dataset.Dataset { return m.ds }

// Start runs the pipeline from idle or error: assign columns, reset row
// statuses, extract, then either wait for manual intervention or run the
// batch stages through to completion.
func (m *Machine) Start(ctx context.Context, urlColumn string) error {
	if urlColumn == "" {
		return fmt.Errorf("url column is required")
	}
	if err := m.ds.Transition(dataset.StatusRunning); err != nil {
		return err
	}
	m.ds.Error = ""
	m.prepare(urlColumn)
	return m.runFromRunning(ctx)
}

// runFromRunning drives a running dataset through extraction and onward:
// either the manual-intervention hold or the batch stages.
func (m *Machine) runFromRunning(ctx context.Context) error {
	if err := m.ds.Transition(dataset.StatusExtracting); err != nil {
		return err
	}
	if err := m.persist(ctx); err != nil {
		return err
	}
	m.logger.Info("extraction phase started",
		zap.String("dataset", m.ds.ID),
		zap.Int("rows", len(m.ds.Rows)))

	m.runExtractionPhase(ctx)
	if err := m.persist(ctx); err != nil {
		return err
	}

	if m.ds.HasFailedRows() || !m.ds.AllRowsHaveText() {
		if err := m.ds.Transition(dataset.StatusAwaitingManual); err != nil {
			return err
		}
		m.logger.Info("dataset awaiting manual intervention", zap.String("dataset", m.ds.ID))
		return m.persist(ctx)
	}

	return m.runBatchStages(ctx)
}

// ResumeAfterManual re-checks completeness after manual edits. An errored
// dataset re-enters through running without resetting row statuses, so
// settled rows are not re-extracted. Otherwise, if any non-dismissed row
// still lacks text the dataset stays awaiting_manual; else the batch stages
// run.
func (m *Machine) ResumeAfterManual(ctx context.Context) error {
	if m.ds.Status == dataset.StatusError {
		if err := m.ds.Transition(dataset.StatusRunning); err != nil {
			return err
		}
		m.ds.Error = ""
		m.logger.Info("resuming errored dataset", zap.String("dataset", m.ds.ID))
		return m.runFromRunning(ctx)
	}
	if !m.ds.AllRowsHaveText() {
		m.logger.Info("dataset still incomplete after manual edits", zap.String("dataset", m.ds.ID))
		return m.persist(ctx)
	}
	return m.runBatchStages(ctx)
}

// prepare assigns URL and title columns to every row and resets statuses.
// Dismissed rows keep their dismissal across restarts.
func (m *Machine) prepare(urlColumn string) {
	m.ds.URLColumn = urlColumn
	m.ds.TitleColumn = ingest.FindColumn(m.ds.Columns, ingest.TitleCandidates)

	for _, row := range m.ds.Rows {
		row.URL = strings.TrimSpace(row.Input[urlColumn])
		row.Title = strings.TrimSpace(ingest.ResolveTitle(row.Input, m.ds.TitleColumn))
		if row.IsDismissed() {
			continue
		}
		if row.URL == "" {
			row.Extraction.Status = dataset.ExtractionFailed
			row.Extraction.Notes = "missing_url"
			continue
		}
		row.Extraction.Status = dataset.ExtractionPending
		row.Extraction.Notes = ""
	}
}

// runExtractionPhase fans eligible rows over the row pool and waits for the
// aggregate join. Only PENDING rows are processed, so rows already settled
// (missing_url, dismissed, previously OK) are never touched again.
func (m *Machine) runExtractionPhase(ctx context.Context) {
	for _, row := range m.ds.Rows {
		if row.IsDismissed() || row.Extraction.Status != dataset.ExtractionPending {
			continue
		}
		row.Extraction.Status = dataset.ExtractionRunning
		r := row
		m.rowPool.Go(func() {
			m.processor.Process(ctx, r)
		})
	}
	m.rowPool.Wait()
}

// runBatchStages runs summarization then classification. Requests for the
// classification stage are built only after summaries have been applied.
func (m *Machine) runBatchStages(ctx context.Context) error {
	if err := m.ds.Transition(dataset.StatusSummarizing); err != nil {
		return err
	}
	m.ds.Error = ""

	targets := m.ds.TargetRows()
	if len(targets) == 0 {
		if err := m.ds.Transition(dataset.StatusCompleted); err != nil {
			return err
		}
		m.logger.Info("no rows eligible for batch stages", zap.String("dataset", m.ds.ID))
		return m.persist(ctx)
	}

	summaryReqs := batch.BuildSummaryRequests(targets, m.model)
	if err := m.stages.RunStage(ctx, m.ds, batch.StageSummary, summaryReqs, batch.ApplySummary); err != nil {
		return m.fail(ctx, err)
	}

	if err := m.ds.Transition(dataset.StatusClassifying); err != nil {
		return err
	}
	if err := m.persist(ctx); err != nil {
		return err
	}

	classifyReqs := batch.BuildClassificationRequests(targets, m.model)
	if err := m.stages.RunStage(ctx, m.ds, batch.StageClassification, classifyReqs, batch.ApplyClassification); err != nil {
		return m.fail(ctx, err)
	}

	if err := m.ds.Transition(dataset.StatusCompleted); err != nil {
		return err
	}
	m.ds.Error = ""
	m.logger.Info("dataset completed", zap.String("dataset", m.ds.ID))
	return m.persist(ctx)
}

// fail preserves the stage's last error on the dataset.
func (m *Machine) fail(ctx context.Context, cause error) error {
	if err := m.ds.Transition(dataset.StatusError); err != nil {
		return err
	}
	m.ds.Error = cause.Error()
	m.logger.Error("pipeline stage failed",
		zap.String("dataset", m.ds.ID),
		zap.Error(cause))
	if err := m.persist(ctx); err != nil {
		return err
	}
	return cause
}

func (m *Machine) persist(ctx context.Context) error {
	if err := m.snapshots.Save(ctx, m.ds); err != nil {
		return fmt.Errorf("persist dataset %s: %w", m.ds.ID, err)
	}
	return nil
}

// SetManualText injects externally supplied text for a row.
func (m *Machine) SetManualText(id, text string) error {
	row := m.ds.RowByID(id)
	if row == nil {
		return fmt.Errorf("row %s not found", id)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("manual text is empty")
	}
	row.Extraction.Status = dataset.ExtractionManual
	row.Extraction.Text = text
	row.Extraction.Method = "manual"
	row.Extraction.Notes = "manual_paste"
	row.Extraction.WordCount = textqual.WordCount(text)
	return nil
}

// DismissRow takes a row out of processing permanently.
func (m *Machine) DismissRow(id string) error {
	row := m.ds.RowByID(id)
	if row == nil {
		return fmt.Errorf("row %s not found", id)
	}
	row.Dismissed = true
	row.Extraction.Status = dataset.ExtractionDismissed
	row.Extraction.Text = ""
	row.Extraction.Method = "dismissed"
	row.Extraction.Notes = "dismissed_by_user"
	return nil
}

// UseTitleFallback settles a row with its title as the extracted text. The
// fallback chain mirrors what an operator sees: title, any title-ish input
// value, the raw URL cell, the resolved URL, the row id.
func (m *Machine) UseTitleFallback(id string) error {
	row := m.ds.RowByID(id)
	if row == nil {
		return fmt.Errorf("row %s not found", id)
	}
	payload := row.Title
	if payload == "" {
		payload = ingest.ResolveTitle(row.Input, m.ds.TitleColumn)
	}
	if payload == "" && m.ds.URLColumn != "" {
		payload = row.Input[m.ds.URLColumn]
	}
	if payload == "" {
		payload = row.URL
	}
	if payload == "" {
		payload = row.ID
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return fmt.Errorf("row %s has no title fallback", id)
	}
	row.Extraction.Status = dataset.ExtractionManual
	row.Extraction.Text = payload
	row.Extraction.Method = "title_only"
	row.Extraction.Notes = "title_only"
	row.Extraction.WordCount = textqual.WordCount(payload)
	return nil
}
