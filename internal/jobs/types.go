package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a JobStore for an unknown job ID.
var ErrNotFound = errors.New("job not found")

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed and will not be retried.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is waiting to be retried.
	JobStatusRetrying JobStatus = "retrying"
)

// AdviceJob asks the advice service for coaching on the current ledger.
// The worker reads the ledger; it never writes it.
type AdviceJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the latest attempt started.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the latest attempt finished (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Advice holds the model's answer once the job completed.
	Advice string `json:"advice,omitempty"`

	// Error contains the last failure, if any.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Done reports whether the job reached a final state.
func (j *AdviceJob) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Publisher enqueues advice jobs.
type Publisher interface {
	// PublishAdvice enqueues a job, filling in ID, status and defaults.
	PublishAdvice(ctx context.Context, job *AdviceJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer runs workers over published jobs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// PermanentError marks a job failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the queue fails the job without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// JobHandler processes one attempt of a job and records the advice on it.
// A returned error marks the attempt failed; the queue decides on retries.
type JobHandler func(ctx context.Context, job *AdviceJob) error

// JobStore records job state so it can be polled.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *AdviceJob) error

	// GetJob retrieves a job by ID, or ErrNotFound.
	GetJob(ctx context.Context, jobID string) (*AdviceJob, error)

	// ListJobs retrieves jobs newest first with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*AdviceJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
