package batch

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements Client against the OpenAI Batch API.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI builds the client. The caller decides whether a missing key means
// a nil client (batch stages disabled) or an error.
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: openai.NewClient(apiKey)}
}

func (o *OpenAI) UploadBatchFile(ctx context.Context, name string, payload []byte) (string, error) {
	file, err := o.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   payload,
		Purpose: openai.PurposeBatch,
	})
	if err != nil {
		return "", fmt.Errorf("upload batch file: %w", err)
	}
	return file.ID, nil
}

func (o *OpenAI) CreateJob(ctx context.Context, inputFileID string, metadata map[string]string) (Job, error) {
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	resp, err := o.client.CreateBatch(ctx, openai.CreateBatchRequest{
		InputFileID:      inputFileID,
		Endpoint:         openai.BatchEndpointChatCompletions,
		CompletionWindow: "24h",
		Metadata:         meta,
	})
	if err != nil {
		return Job{}, fmt.Errorf("create batch job: %w", err)
	}
	return jobFromBatch(resp.Batch), nil
}

func (o *OpenAI) GetJob(ctx context.Context, jobID string) (Job, error) {
	resp, err := o.client.RetrieveBatch(ctx, jobID)
	if err != nil {
		return Job{}, fmt.Errorf("retrieve batch job %s: %w", jobID, err)
	}
	return jobFromBatch(resp.Batch), nil
}

func (o *OpenAI) DownloadOutput(ctx context.Context, fileID string) ([]byte, error) {
	content, err := o.client.GetFileContent(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("download batch output %s: %w", fileID, err)
	}
	defer content.Close()
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("read batch output %s: %w", fileID, err)
	}
	return data, nil
}

func jobFromBatch(b openai.Batch) Job {
	job := Job{ID: b.ID, Status: string(b.Status)}
	if b.OutputFileID != nil {
		job.OutputFileID = *b.OutputFileID
	}
	return job
}
