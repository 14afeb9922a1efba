package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pressmill/pressmill/internal/dataset"
)

func TestNewDatasetAssignsOrdinalRowIDs(t *testing.T) {
	t.Parallel()

	ds := NewDataset([]string{"Article URL", "Article Title"}, []map[string]string{
		{"Article URL": "https://example.com/a", "Article Title": "First"},
		{"Article URL": "https://example.com/b", "Article Title": "Second"},
	})

	require.NotEmpty(t, ds.ID)
	require.Equal(t, dataset.StatusIdle, ds.Status)
	require.Equal(t, "Article URL", ds.URLColumn)
	require.Len(t, ds.Rows, 2)
	require.Equal(t, "row-1", ds.Rows[0].ID)
	require.Equal(t, "row-2", ds.Rows[1].ID)
	require.Equal(t, dataset.ExtractionPending, ds.Rows[0].Extraction.Status)
}

func TestNewDatasetGuessesURLColumn(t *testing.T) {
	t.Parallel()

	ds := NewDataset([]string{"Link", "Notes"}, nil)
	require.Equal(t, "Link", ds.URLColumn)

	ds = NewDataset(nil, nil)
	require.Empty(t, ds.URLColumn)
}

func TestFindColumnCaseInsensitive(t *testing.T) {
	t.Parallel()

	columns := []string{"Article URL", "HEADLINE", "Notes"}
	require.Equal(t, "HEADLINE", FindColumn(columns, TitleCandidates))
	require.Empty(t, FindColumn([]string{"Notes"}, TitleCandidates))
}

func TestFindColumnPrefersCandidateOrder(t *testing.T) {
	t.Parallel()

	columns := []string{"headline", "Article Title"}
	require.Equal(t, "Article Title", FindColumn(columns, TitleCandidates))
}

func TestResolveTitle(t *testing.T) {
	t.Parallel()

	input := map[string]string{"Article Title": "Explicit", "story_title": "Fuzzy"}
	require.Equal(t, "Explicit", ResolveTitle(input, "Article Title"))

	// Falls back to any key containing "title" when the column is empty.
	require.Equal(t, "Explicit", ResolveTitle(input, ""))
	require.Equal(t, "Fuzzy", ResolveTitle(map[string]string{"story_title": "Fuzzy"}, ""))
	require.Empty(t, ResolveTitle(map[string]string{"Notes": "x"}, ""))
}
