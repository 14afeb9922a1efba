package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pressmill/pressmill/internal/dataset"
)

// ResultLine is one decoded line of a batch output file.
type ResultLine struct {
	CustomID string `json:"custom_id"`
	Response struct {
		Body struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"body"`
	} `json:"response"`
}

// Content returns the first choice's message content, or empty.
func (l ResultLine) Content() string {
	if len(l.Response.Body.Choices) == 0 {
		return ""
	}
	return l.Response.Body.Choices[0].Message.Content
}

// ParseOutput splits a JSONL result file into lines, silently dropping
// malformed ones. Partial result sets are allowed.
func ParseOutput(data []byte) []ResultLine {
	var lines []ResultLine
	for _, raw := range strings.Split(string(data), "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		var line ResultLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Reducer applies one result line to the dataset. Reducers run strictly
// sequentially over a result set.
type Reducer func(ds *dataset.Dataset, line ResultLine)

// ApplySummary writes a summarization result onto its row. Undecodable
// output keeps the raw text as a diagnostic and leaves the summary empty.
func ApplySummary(ds *dataset.Dataset, line ResultLine) {
	row := ds.RowByID(line.CustomID)
	if row == nil {
		return
	}
	res := Decode(line.Content())
	row.SummaryStructuredJSON = res.Cleaned
	if !res.Decoded {
		return
	}
	if full, ok := res.Object["summary_fulltext"].(string); ok && strings.TrimSpace(full) != "" {
		row.Summary = strings.TrimSpace(full)
		return
	}
	if bullets, ok := res.Object["summary_bullets"].([]any); ok {
		var b strings.Builder
		for i, bullet := range bullets {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "- %v", bullet)
		}
		row.Summary = b.String()
	}
}

// ApplyClassification writes a classification result onto its row.
// Undecodable output is stored under a raw fallback key instead of failing.
func ApplyClassification(ds *dataset.Dataset, line ResultLine) {
	row := ds.RowByID(line.CustomID)
	if row == nil {
		return
	}
	res := Decode(line.Content())
	if res.Decoded {
		row.Relevance = dataset.Relevance(res.Object)
		return
	}
	row.Relevance = dataset.Relevance{"raw": res.Cleaned}
}
