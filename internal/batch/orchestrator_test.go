package batch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/dataset"
)

type fakeClient struct {
	uploads     int
	jobs        int
	polls       int
	jobStatuses []string
	output      string
	uploadErr   error
	payload     []byte
}

func (f *fakeClient) UploadBatchFile(_ context.Context, _ string, payload []byte) (string, error) {
	f.uploads++
	f.payload = payload
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return fmt.Sprintf("file-%d", f.uploads), nil
}

func (f *fakeClient) CreateJob(_ context.Context, inputFileID string, _ map[string]string) (Job, error) {
	f.jobs++
	return Job{ID: fmt.Sprintf("job-%d", f.jobs), Status: "validating"}, nil
}

func (f *fakeClient) GetJob(context.Context, string) (Job, error) {
	status := f.jobStatuses[len(f.jobStatuses)-1]
	if f.polls < len(f.jobStatuses) {
		status = f.jobStatuses[f.polls]
	}
	f.polls++
	return Job{ID: "job", Status: status, OutputFileID: "out-file"}, nil
}

func (f *fakeClient) DownloadOutput(context.Context, string) ([]byte, error) {
	return []byte(f.output), nil
}

func fastConfig() Config {
	return Config{
		PollInterval: time.Millisecond,
		PollCeiling:  time.Second,
		StageRetries: 3,
		RetryBackoff: time.Millisecond,
	}
}

func TestRunStageAppliesResults(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		jobStatuses: []string{"in_progress", StatusCompleted},
		output:      `{"custom_id": "row-1", "response": {"body": {"choices": [{"message": {"content": "{\"summary_fulltext\": \"done\"}"}}]}}}`,
	}

	persisted := 0
	o := New(client, fastConfig(), func(context.Context, *dataset.Dataset) error {
		persisted++
		return nil
	}, zap.NewNop())

	ds := threeRowDataset()
	requests := BuildSummaryRequests(ds.Rows, "gpt-4.1-mini")

	err := o.RunStage(context.Background(), ds, StageSummary, requests, ApplySummary)
	require.NoError(t, err)
	require.Equal(t, "done", ds.RowByID("row-1").Summary)
	require.Equal(t, 1, persisted)
	require.Equal(t, 2, client.polls)

	// The uploaded payload is one JSON object per line, one per row.
	lines := strings.Split(strings.TrimSpace(string(client.payload)), "\n")
	require.Len(t, lines, 3)
}

func TestRunStageRetriesAfterFailedJob(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		jobStatuses: []string{StatusFailed, StatusCompleted},
		output:      `{"custom_id": "row-1", "response": {"body": {"choices": []}}}`,
	}
	o := New(client, fastConfig(), nil, zap.NewNop())

	ds := threeRowDataset()
	err := o.RunStage(context.Background(), ds, StageSummary, nil, ApplySummary)
	require.NoError(t, err)
	// Two full submissions: the first job failed, the retry completed.
	require.Equal(t, 2, client.uploads)
	require.Equal(t, 2, client.jobs)
}

func TestRunStageExhaustsRetries(t *testing.T) {
	t.Parallel()

	client := &fakeClient{uploadErr: fmt.Errorf("upstream unavailable")}
	o := New(client, fastConfig(), nil, zap.NewNop())

	ds := threeRowDataset()
	err := o.RunStage(context.Background(), ds, StageClassification, nil, ApplyClassification)
	require.ErrorContains(t, err, "upstream unavailable")
	require.Equal(t, 3, client.uploads)
}

func TestRunStagePollCeiling(t *testing.T) {
	t.Parallel()

	client := &fakeClient{jobStatuses: []string{"in_progress"}}
	cfg := fastConfig()
	cfg.PollCeiling = 2 * time.Millisecond
	cfg.StageRetries = 1
	o := New(client, cfg, nil, zap.NewNop())

	ds := threeRowDataset()
	err := o.RunStage(context.Background(), ds, StageSummary, nil, ApplySummary)
	require.ErrorContains(t, err, "ceiling")
}

func TestRunStageWithoutClient(t *testing.T) {
	t.Parallel()

	o := New(nil, fastConfig(), nil, zap.NewNop())

	ds := threeRowDataset()
	err := o.RunStage(context.Background(), ds, StageSummary, nil, ApplySummary)
	require.ErrorIs(t, err, ErrNotConfigured)
}
