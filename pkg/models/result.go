package models

import "time"

type RunStatus string

const (
	RunningRunStatus RunStatus = "running"
	DoneRunStatus    RunStatus = "done"
	ErrorRunStatus   RunStatus = "error"
)

// RunResult is the transient outcome of one pipeline run, written by the
// background worker and read by the poll loop through the result store.
type RunResult struct {
	Status      RunStatus `json:"status"`
	Text        string    `json:"text,omitempty"`
	Document    []byte    `json:"-"`
	SourcesUsed []string  `json:"sources_used,omitempty"`
	Err         string    `json:"error,omitempty"`
	Timestamp   string    `json:"timestamp,omitempty"`
}

// Now returns the current UTC time formatted with TimestampLayout.
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// Clone returns a deep copy so callers cannot mutate stored results.
func (r RunResult) Clone() RunResult {
	out := r
	if r.Document != nil {
		out.Document = append([]byte(nil), r.Document...)
	}
	if r.SourcesUsed != nil {
		out.SourcesUsed = append([]string(nil), r.SourcesUsed...)
	}
	return out
}
