package dataset

import "fmt"

// Status represents the dataset lifecycle state.
type Status string

// Dataset status values. The pipeline advances monotonically through them,
// with the single exception of the error -> running re-entry.
const (
	StatusIdle           Status = "idle"
	StatusRunning        Status = "running"
	StatusExtracting     Status = "extracting"
	StatusAwaitingManual Status = "awaiting_manual"
	StatusSummarizing    Status = "summarizing"
	StatusClassifying    Status = "classifying"
	StatusCompleted      Status = "completed"
	StatusError          Status = "error"
)

// transitions is the closed set of legal status moves. Anything absent here
// is rejected by Transition.
var transitions = map[Status][]Status{
	StatusIdle:           {StatusRunning},
	StatusError:          {StatusRunning},
	StatusRunning:        {StatusExtracting},
	StatusExtracting:     {StatusAwaitingManual, StatusSummarizing, StatusError},
	StatusAwaitingManual: {StatusSummarizing, StatusRunning},
	StatusSummarizing:    {StatusClassifying, StatusCompleted, StatusError},
	StatusClassifying:    {StatusCompleted, StatusError},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition moves the dataset to the next status, rejecting illegal moves.
func (d *Dataset) Transition(next Status) error {
	if !d.Status.CanTransition(next) {
		return fmt.Errorf("illegal dataset transition %q -> %q", d.Status, next)
	}
	d.Status = next
	return nil
}
