// Package dataset defines the records shared across the pipeline subsystems.
package dataset

import (
	"strings"
	"time"
)

// ExtractionStatus represents the per-row extraction lifecycle state.
type ExtractionStatus string

// Extraction status values recorded on each row.
const (
	ExtractionPending   ExtractionStatus = "PENDING"
	ExtractionRunning   ExtractionStatus = "RUNNING"
	ExtractionOK        ExtractionStatus = "OK"
	ExtractionFailed    ExtractionStatus = "FAILED"
	ExtractionManual    ExtractionStatus = "MANUAL"
	ExtractionDismissed ExtractionStatus = "DISMISSED"
)

// Terminal reports whether automated processing may still touch the row.
func (s ExtractionStatus) Terminal() bool {
	switch s {
	case ExtractionOK, ExtractionFailed, ExtractionManual, ExtractionDismissed:
		return true
	default:
		return false
	}
}

// Attempt is one entry in a row's append-only extraction attempt log.
type Attempt struct {
	Method    string   `json:"method"`
	OK        bool     `json:"ok"`
	Error     string   `json:"error,omitempty"`
	Reasons   []string `json:"reasons,omitempty"`
	WordCount int      `json:"wordCount,omitempty"`
}

// Extraction holds the mutable extraction state of a row.
type Extraction struct {
	Status    ExtractionStatus `json:"status"`
	Method    string           `json:"method"`
	Notes     string           `json:"notes"`
	Text      string           `json:"text"`
	WordCount int              `json:"wordCount"`
	Attempts  []Attempt        `json:"attempts"`
}

// Relevance is the structured classification result for a row. Its shape is
// owned by the model; rows whose output could not be decoded carry a single
// "raw" key instead.
type Relevance map[string]any

// Row is one input record plus everything the pipeline derived from it.
// Input is read-only after ingestion; the row's ID is the correlation id used
// to join asynchronous batch results back regardless of result ordering.
type Row struct {
	ID                    string            `json:"id"`
	Input                 map[string]string `json:"input"`
	URL                   string            `json:"url"`
	Title                 string            `json:"title"`
	Dismissed             bool              `json:"dismissed"`
	Extraction            Extraction        `json:"extraction"`
	Summary               string            `json:"summary"`
	SummaryStructuredJSON string            `json:"summary_structured_json"`
	Relevance             Relevance         `json:"relevance"`
}

// RecordAttempt appends one entry to the row's attempt log.
func (r *Row) RecordAttempt(a Attempt) {
	r.Extraction.Attempts = append(r.Extraction.Attempts, a)
}

// IsDismissed reports whether the row was taken out of processing, either via
// the dismissed flag or the DISMISSED extraction status.
func (r *Row) IsDismissed() bool {
	return r.Dismissed || r.Extraction.Status == ExtractionDismissed
}

// HasText reports whether the row carries non-empty extracted text.
func (r *Row) HasText() bool {
	return strings.TrimSpace(r.Extraction.Text) != ""
}

// Dataset is the unit of work the pipeline operates on. Rows are created once
// at ingestion and never added or removed afterwards; the dataset status is
// mutated only by the pipeline state machine.
type Dataset struct {
	ID          string    `json:"id"`
	Columns     []string  `json:"columns"`
	URLColumn   string    `json:"urlColumn"`
	TitleColumn string    `json:"titleColumn"`
	CreatedAt   time.Time `json:"createdAt"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Rows        []*Row    `json:"rows"`
}

// RowByID returns the row with the given id, or nil.
func (d *Dataset) RowByID(id string) *Row {
	for _, row := range d.Rows {
		if row.ID == id {
			return row
		}
	}
	return nil
}

// TargetRows returns the rows eligible for batch stages: not dismissed and
// carrying extracted text.
func (d *Dataset) TargetRows() []*Row {
	var rows []*Row
	for _, row := range d.Rows {
		if row.IsDismissed() || !row.HasText() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// HasFailedRows reports whether any row ended extraction in FAILED.
func (d *Dataset) HasFailedRows() bool {
	for _, row := range d.Rows {
		if row.Extraction.Status == ExtractionFailed {
			return true
		}
	}
	return false
}

// AllRowsHaveText reports whether every non-dismissed row has extracted text.
// This is the completeness condition gating the batch stages.
func (d *Dataset) AllRowsHaveText() bool {
	for _, row := range d.Rows {
		if row.IsDismissed() {
			continue
		}
		if !row.HasText() {
			return false
		}
	}
	return true
}
