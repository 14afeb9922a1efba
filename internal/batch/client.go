package batch

import "context"

// Job is the orchestrator's view of one batch job.
type Job struct {
	ID           string
	Status       string
	OutputFileID string
}

// Batch job statuses that end polling.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// TerminalStatus reports whether a job status ends polling.
func TerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// Client is the slice of the batch service the orchestrator needs. The real
// implementation talks to OpenAI; tests substitute a fake.
type Client interface {
	UploadBatchFile(ctx context.Context, name string, payload []byte) (fileID string, err error)
	CreateJob(ctx context.Context, inputFileID string, metadata map[string]string) (Job, error)
	GetJob(ctx context.Context, jobID string) (Job, error)
	DownloadOutput(ctx context.Context, fileID string) ([]byte, error)
}
