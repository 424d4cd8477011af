package jobqueue

import "time"

// Type identifies the pipeline stage a job runs.
type Type string

const (
	TypeExtract  Type = "extract"
	TypeChunk    Type = "chunk"
	TypeEmbed    Type = "embed"
	TypeClassify Type = "classify"
	TypeCommit   Type = "commit"
)

// knownTypes guards Enqueue against typo'd stage names.
var knownTypes = map[Type]struct{}{
	TypeExtract:  {},
	TypeChunk:    {},
	TypeEmbed:    {},
	TypeClassify: {},
	TypeCommit:   {},
}

// Valid reports whether the job type is one the pipeline dispatches.
func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Status is a job's queue state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status ends the job.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether the status is one the queue tracks.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job is one unit of pipeline work bound to a document.
type Job struct {
	ID         int64
	Type       Type
	DocumentID int64
	Status     Status
	Priority   int
	RetryCount int
	MaxRetries int

	PayloadJSON  string
	ResultJSON   string
	ErrorMessage string

	WorkerID     string
	LeaseExpires *time.Time

	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}
