package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type TaskStatus string

const (
	IdleTaskStatus    TaskStatus = "idle"
	RunningTaskStatus TaskStatus = "running"
	DoneTaskStatus    TaskStatus = "done"
	ErrorTaskStatus   TaskStatus = "error"
)

const (
	// MinInterval is the smallest allowed recurrence interval in seconds.
	MinInterval = 60
	// MaxOutputs caps the retained output history per task, newest first.
	MaxOutputs = 5
)

// IntervalPresets maps display labels to interval seconds, in display order.
var IntervalPresets = []struct {
	Label   string
	Seconds int
}{
	{"1 min", 60},
	{"5 min", 300},
	{"15 min", 900},
	{"30 min", 1800},
	{"1 hour", 3600},
	{"6 hours", 21600},
	{"12 hours", 43200},
	{"24 hours", 86400},
}

// Upload is a user-provided file kept as raw bytes until a run extracts it.
type Upload struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// SourceSettings configures one data source on a task.
type SourceSettings struct {
	Enabled bool `json:"enabled"`
	Days    int  `json:"days,omitempty"` // look-ahead or look-back window
}

// SourceSet holds the per-source configuration of a task.
type SourceSet struct {
	Events   SourceSettings `json:"events"`
	Podcast  SourceSettings `json:"podcast"`
	CMSJobs  SourceSettings `json:"cms_jobs"`
	CMSBlogs SourceSettings `json:"cms_blogs"`
}

// Output is one retained result of a completed run.
type Output struct {
	Timestamp   string   `json:"timestamp"`
	Text        string   `json:"text"`
	Document    []byte   `json:"-"`
	Model       string   `json:"model"`
	SourcesUsed []string `json:"sources_used"`
}

// Task is a user-defined recurring automation definition plus its run state.
type Task struct {
	ID           string     `json:"id"`           // Immutable once assigned
	Name         string     `json:"name"`         // Display name
	Instructions string     `json:"instructions"` // Free-text instructions appended to the template
	Interval     int        `json:"interval"`     // Recurrence interval in seconds, >= MinInterval
	Model        string     `json:"model"`        // Generation model identifier
	Sources      SourceSet  `json:"sources"`      // Per-source configuration
	Template     *Upload    `json:"template,omitempty"`
	ContextDocs  []Upload   `json:"context_docs,omitempty"`
	Active       bool       `json:"active"` // Eligible for automatic firing
	Status       TaskStatus `json:"status"` // idle | running | done | error
	LastRun      *time.Time `json:"last_run,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"` // nil when inactive or never scheduled
	LastError    string     `json:"last_error,omitempty"`
	Outputs      []Output   `json:"outputs,omitempty"` // Newest first, at most MaxOutputs
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTask builds a task with a generated ID. The name is required; an
// interval below MinInterval is clamped to it.
func NewTask(name, instructions string, interval int, model string, sources SourceSet, template *Upload, contextDocs []Upload) (Task, error) {
	if name == "" {
		return Task{}, errors.New("task name cannot be empty")
	}
	if interval < MinInterval {
		interval = MinInterval
	}
	now := time.Now().UTC()
	return Task{
		ID:           uuid.NewString(),
		Name:         name,
		Instructions: instructions,
		Interval:     interval,
		Model:        model,
		Sources:      sources,
		Template:     template,
		ContextDocs:  contextDocs,
		Active:       true,
		Status:       IdleTaskStatus,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ScheduleNext sets the task's next due time to from + interval. A zero
// from falls back to the current time.
func ScheduleNext(t *Task, from time.Time) {
	if from.IsZero() {
		from = time.Now().UTC()
	}
	next := from.Add(time.Duration(t.Interval) * time.Second)
	t.NextRun = &next
}

// AppendOutput prepends an output record, evicting beyond MaxOutputs.
func (t *Task) AppendOutput(o Output) {
	t.Outputs = append([]Output{o}, t.Outputs...)
	if len(t.Outputs) > MaxOutputs {
		t.Outputs = t.Outputs[:MaxOutputs]
	}
}

// Due reports whether the task is eligible for automatic firing at now.
func (t *Task) Due(now time.Time) bool {
	return t.Active &&
		t.Status != RunningTaskStatus &&
		t.NextRun != nil &&
		!now.Before(*t.NextRun)
}
