// Package batch submits summarization and classification work to the OpenAI
// Batch API and joins results back to rows by correlation id.
package batch

import "github.com/pressmill/pressmill/internal/dataset"

// Stage names.
const (
	StageSummary        = "summary"
	StageClassification = "classification"
)

// Message is one chat message in a batch request body.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat forces JSON-object output from the model.
type ResponseFormat struct {
	Type string `json:"type"`
}

// RequestBody is the chat-completion payload of one batch line.
type RequestBody struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat ResponseFormat `json:"response_format"`
	Messages       []Message      `json:"messages"`
}

// Request is one line of the uploaded JSONL file. CustomID carries the row
// id; results are joined back strictly by it, never by position.
type Request struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     RequestBody `json:"body"`
}

const summarySystemPrompt = "Summarise the provided article text in English in at most 4 sentences " +
	"and output valid JSON with a single field: summary_fulltext (the 4-sentence summary)."

const classificationSystemPrompt = "You are classifying whether an article is relevant for downstream coding. " +
	"Use only the provided summary; do not invent facts. " +
	"Set relevant true only when the summary clearly evidences a qualifying event. " +
	"If under-specified but plausible, set needs_manual_review true. " +
	"Reason must be a concise one-sentence justification for TRUE or FALSE. " +
	"Output valid JSON with fields: relevant, relevance_confidence, reason, needs_manual_review, notes_for_reviewer."

func newRequest(rowID, model string, temperature float64, system, user string) Request {
	return Request{
		CustomID: rowID,
		Method:   "POST",
		URL:      "/v1/chat/completions",
		Body: RequestBody{
			Model:          model,
			Temperature:    temperature,
			ResponseFormat: ResponseFormat{Type: "json_object"},
			Messages: []Message{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
		},
	}
}

// BuildSummaryRequests builds one summarization request per row over the
// row's extracted text.
func BuildSummaryRequests(rows []*dataset.Row, model string) []Request {
	requests := make([]Request, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, newRequest(row.ID, model, 0.2, summarySystemPrompt, row.Extraction.Text))
	}
	return requests
}

// BuildClassificationRequests builds one classification request per row over
// the row's summary.
func BuildClassificationRequests(rows []*dataset.Row, model string) []Request {
	requests := make([]Request, 0, len(rows))
	for _, row := range rows {
		user := "Summary:\n" + row.Summary
		requests = append(requests, newRequest(row.ID, model, 0.1, classificationSystemPrompt, user))
	}
	return requests
}
