package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/vaultmind/internal/jobs"
	"github.com/google/uuid"
)

const (
	// DefaultWorkers is the number of concurrent workers started by Start.
	DefaultWorkers = 5
	// DefaultMaxRetries applies to jobs published without MaxRetries.
	DefaultMaxRetries = 3
	// DefaultBackoff is multiplied by the retry count before re-enqueueing.
	DefaultBackoff = time.Second
)

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// It suits a single-instance deployment.
type Queue struct {
	jobChan   chan *jobs.AdviceJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool

	workers    int
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithWorkers sets the worker count.
func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithMaxRetries sets the retry budget for jobs published without one.
func WithMaxRetries(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.maxRetries = n
		}
	}
}

// WithBackoff sets the linear retry backoff step.
func WithBackoff(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d >= 0 {
			q.backoff = d
		}
	}
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishAdvice blocks.
// store may be nil when job state does not need to be polled.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...QueueOption) *Queue {
	q := &Queue{
		jobChan:    make(chan *jobs.AdviceJob, bufferSize),
		closeChan:  make(chan struct{}),
		store:      store,
		workers:    DefaultWorkers,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// PublishAdvice fills in the job's ID, status and defaults, records it and
// enqueues a private copy. The caller's job is not touched afterwards.
func (q *Queue) PublishAdvice(ctx context.Context, job *jobs.AdviceJob) error {
	if q.isClosed() {
		return fmt.Errorf("PublishAdvice: queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.maxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishAdvice: save job: %w", err)
		}
	}

	queued := *job
	return q.enqueue(ctx, &queued)
}

func (q *Queue) enqueue(ctx context.Context, job *jobs.AdviceJob) error {
	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("PublishAdvice: queue is closed")
	}
}

func (q *Queue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Start launches the workers. Each job is handled by one worker at a time.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	if q.isClosed() {
		return fmt.Errorf("Start: queue is closed")
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs one attempt and either finishes the job or schedules a
// retry after RetryCount × backoff. Permanent errors are never retried.
func (q *Queue) processJob(ctx context.Context, job *jobs.AdviceJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	startedAt := q.now()
	job.StartedAt = &startedAt
	job.CompletedAt = nil
	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := q.now()
	job.CompletedAt = &completedAt

	var permanent *jobs.PermanentError
	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	case !errors.As(err, &permanent) && job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		q.save(ctx, job)

		retry := *job
		retry.Status = jobs.JobStatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		time.AfterFunc(time.Duration(job.RetryCount)*q.backoff, func() {
			if q.isClosed() {
				return
			}
			q.save(ctx, &retry)
			_ = q.enqueue(ctx, &retry)
		})
		return
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
	}

	q.save(ctx, job)
}

func (q *Queue) save(ctx context.Context, job *jobs.AdviceJob) {
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop closes the queue and waits for in-flight jobs to complete or ctx to
// expire. Pending retries are dropped.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
