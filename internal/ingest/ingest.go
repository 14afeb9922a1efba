// Package ingest creates datasets from tabular input records. Parsing the
// spreadsheet itself happens upstream; this package receives columns and
// row maps.
package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pressmill/pressmill/internal/dataset"
)

// TitleCandidates are the column names tried, in order, when resolving the
// title column. Matching is case-insensitive.
var TitleCandidates = []string{
	"Article Title",
	"Title",
	"Headline",
	"article_title",
	"headline",
	"title",
}

// DefaultURLColumn is preferred as the URL column when present.
const DefaultURLColumn = "Article URL"

// NewDataset builds a dataset from input rows. Row ids are ordinal and
// stable; they double as the correlation ids for batch stages.
func NewDataset(columns []string, rows []map[string]string) *dataset.Dataset {
	ds := &dataset.Dataset{
		ID:        uuid.NewString(),
		Columns:   columns,
		URLColumn: guessURLColumn(columns),
		CreatedAt: time.Now().UTC(),
		Status:    dataset.StatusIdle,
		Rows:      make([]*dataset.Row, 0, len(rows)),
	}
	for i, input := range rows {
		ds.Rows = append(ds.Rows, &dataset.Row{
			ID:    fmt.Sprintf("row-%d", i+1),
			Input: input,
			Extraction: dataset.Extraction{
				Status: dataset.ExtractionPending,
			},
		})
	}
	return ds
}

func guessURLColumn(columns []string) string {
	for _, col := range columns {
		if col == DefaultURLColumn {
			return col
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return ""
}

// FindColumn returns the first column matching any candidate,
// case-insensitively, preserving the column's original spelling.
func FindColumn(columns, candidates []string) string {
	byLower := make(map[string]string, len(columns))
	for _, col := range columns {
		normalized := strings.ToLower(strings.TrimSpace(col))
		if normalized == "" {
			continue
		}
		if _, exists := byLower[normalized]; !exists {
			byLower[normalized] = col
		}
	}
	for _, candidate := range candidates {
		if match, ok := byLower[strings.ToLower(candidate)]; ok {
			return match
		}
	}
	return ""
}

// ResolveTitle returns the row's title value: the resolved title column if it
// has a value, else any input key containing "title".
func ResolveTitle(input map[string]string, titleColumn string) string {
	if titleColumn != "" && input[titleColumn] != "" {
		return input[titleColumn]
	}
	keys := make([]string, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.Contains(strings.ToLower(key), "title") && input[key] != "" {
			return input[key]
		}
	}
	return ""
}
