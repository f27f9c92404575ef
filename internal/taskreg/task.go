package taskreg

import (
	"encoding/hex"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task.
type Status string

// Possible task status values. Pending is initial; completed and
// failed are terminal.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// UnitResult is the recorded outcome of one unit of work within a task.
type UnitResult struct {
	UnitID     string    `json:"unit_id"`
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Task is one record per logical batch run. Tasks are owned exclusively
// by the Registry: callers receive value snapshots and all mutation
// happens through Registry methods.
type Task struct {
	ID          string         `json:"task_id"`
	Key         string         `json:"task_key"`
	Fingerprint string         `json:"fingerprint"`
	Params      map[string]any `json:"params"`

	Status Status `json:"status"`

	TotalCount     int `json:"total_count"`
	CompletedCount int `json:"completed_count"`
	SuccessCount   int `json:"success_count"`
	FailedCount    int `json:"failed_count"`

	Results      []UnitResult `json:"results"`
	ErrorMessage string       `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProgressPercentage returns completion progress as a percentage
// rounded to two decimals, or 0 when the task has no units.
func (t *Task) ProgressPercentage() float64 {
	if t.TotalCount == 0 {
		return 0
	}
	pct := float64(t.CompletedCount) / float64(t.TotalCount) * 100
	return math.Round(pct*100) / 100
}

// ElapsedSeconds returns how long the task has been running: from
// StartedAt (or CreatedAt if not yet started) up to CompletedAt or now.
func (t *Task) ElapsedSeconds() float64 {
	return t.elapsedAt(time.Now())
}

func (t *Task) elapsedAt(now time.Time) float64 {
	start := t.CreatedAt
	if t.StartedAt != nil {
		start = *t.StartedAt
	}

	end := now
	if t.CompletedAt != nil {
		end = *t.CompletedAt
	}

	return end.Sub(start).Seconds()
}

// snapshot returns a value copy safe to hand outside the registry
// while units keep appending results to the original.
func (t *Task) snapshot() Task {
	copied := *t
	copied.Params = maps.Clone(t.Params)
	copied.Results = slices.Clone(t.Results)
	return copied
}

// newTaskID generates a globally unique task identifier.
func newTaskID() string {
	id := uuid.New()
	return "task_" + hex.EncodeToString(id[:])[:12]
}
