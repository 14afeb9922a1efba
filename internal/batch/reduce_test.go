package batch

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pressmill/pressmill/internal/dataset"
)

func resultLine(t *testing.T, customID, content string) ResultLine {
	t.Helper()
	raw := fmt.Sprintf(`{"custom_id": %q, "response": {"body": {"choices": [{"message": {"content": %q}}]}}}`,
		customID, content)
	var line ResultLine
	require.NoError(t, json.Unmarshal([]byte(raw), &line))
	return line
}

func threeRowDataset() *dataset.Dataset {
	return &dataset.Dataset{
		ID: "ds-1",
		Rows: []*dataset.Row{
			{ID: "row-1", Extraction: dataset.Extraction{Text: "text one"}},
			{ID: "row-2", Extraction: dataset.Extraction{Text: "text two"}},
			{ID: "row-3", Extraction: dataset.Extraction{Text: "text three"}},
		},
	}
}

func TestApplySummaryPermutedAndPartial(t *testing.T) {
	t.Parallel()

	ds := threeRowDataset()

	// Results arrive out of order and row-2 is missing entirely.
	lines := []ResultLine{
		resultLine(t, "row-3", `{"summary_fulltext": "summary three"}`),
		resultLine(t, "row-1", `{"summary_fulltext": "summary one"}`),
	}
	for _, line := range lines {
		ApplySummary(ds, line)
	}

	require.Equal(t, "summary one", ds.RowByID("row-1").Summary)
	require.Equal(t, "summary three", ds.RowByID("row-3").Summary)
	require.Empty(t, ds.RowByID("row-2").Summary)
	require.Empty(t, ds.RowByID("row-2").SummaryStructuredJSON)
}

func TestApplySummaryBulletsFallback(t *testing.T) {
	t.Parallel()

	ds := threeRowDataset()
	ApplySummary(ds, resultLine(t, "row-1", `{"summary_bullets": ["first point", "second point"]}`))

	require.Equal(t, "- first point\n- second point", ds.RowByID("row-1").Summary)
}

func TestApplySummaryRawFallback(t *testing.T) {
	t.Parallel()

	ds := threeRowDataset()
	ApplySummary(ds, resultLine(t, "row-1", "not json at all"))

	row := ds.RowByID("row-1")
	require.Equal(t, "not json at all", row.SummaryStructuredJSON)
	require.Empty(t, row.Summary)
}

func TestApplySummaryUnknownRowIgnored(t *testing.T) {
	t.Parallel()

	ds := threeRowDataset()
	ApplySummary(ds, resultLine(t, "row-99", `{"summary_fulltext": "orphan"}`))

	for _, row := range ds.Rows {
		require.Empty(t, row.Summary)
	}
}

func TestApplyClassificationDecoded(t *testing.T) {
	t.Parallel()

	ds := threeRowDataset()
	ApplyClassification(ds, resultLine(t, "row-2", `{"relevant": true, "relevance_confidence": 0.9}`))

	rel := ds.RowByID("row-2").Relevance
	require.Equal(t, true, rel["relevant"])
	require.Equal(t, 0.9, rel["relevance_confidence"])
}

func TestApplyClassificationRawFallback(t *testing.T) {
	t.Parallel()

	ds := threeRowDataset()
	ApplyClassification(ds, resultLine(t, "row-2", "refusal text"))

	require.Equal(t, dataset.Relevance{"raw": "refusal text"}, ds.RowByID("row-2").Relevance)
}

func TestParseOutputSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	data := []byte(`{"custom_id": "row-1", "response": {"body": {"choices": []}}}
garbage line
{"custom_id": "row-2", "response": {"body": {"choices": []}}}
`)
	lines := ParseOutput(data)
	require.Len(t, lines, 2)
	require.Equal(t, "row-1", lines[0].CustomID)
	require.Equal(t, "row-2", lines[1].CustomID)
}

func TestBuildRequestsCorrelationIDs(t *testing.T) {
	t.Parallel()

	rows := threeRowDataset().Rows
	rows[0].Summary = "summary one"

	summaries := BuildSummaryRequests(rows, "gpt-4.1-mini")
	require.Len(t, summaries, 3)
	require.Equal(t, "row-1", summaries[0].CustomID)
	require.Equal(t, "/v1/chat/completions", summaries[0].URL)
	require.Equal(t, 0.2, summaries[0].Body.Temperature)
	require.Equal(t, "json_object", summaries[0].Body.ResponseFormat.Type)
	require.Equal(t, "text one", summaries[0].Body.Messages[1].Content)

	classifications := BuildClassificationRequests(rows[:1], "gpt-4.1-mini")
	require.Equal(t, 0.1, classifications[0].Body.Temperature)
	require.Contains(t, classifications[0].Body.Messages[1].Content, "summary one")
}
