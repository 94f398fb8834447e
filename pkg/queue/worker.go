package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerRepository defines the interface for worker operations.
type WorkerRepository interface {
	// ClaimJob atomically claims the highest-priority due job in the
	// queue, marks it active, and increments its attempt counter.
	ClaimJob(ctx context.Context, workerID uuid.UUID, queue string, lockDuration time.Duration) (*Job, error)

	// CompleteJob marks the job as completed.
	CompleteJob(ctx context.Context, jobID uuid.UUID) error

	// FailJob records the attempt failure. While attempts remain the job
	// is re-scheduled after retryDelay; on the last attempt it becomes
	// terminally failed.
	FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string, retryDelay time.Duration) error

	// DiscardJob marks the job terminally failed regardless of remaining
	// attempts. Used for policy failures that retrying cannot fix.
	DiscardJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error
}

// Processor executes one claimed job and reports the attempt outcome as
// its return value. Returning nil completes the job; returning an error
// fails the attempt and lets the queue schedule the retry. Wrapping the
// error with NonRetryable discards the job immediately.
type Processor interface {
	Process(ctx context.Context, job *Job) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, job *Job) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// Worker is a bounded-concurrency delivery pool for one channel queue.
type Worker struct {
	repo      WorkerRepository
	processor Processor
	queue     string
	workerID  uuid.UUID
	backoff   BackoffStrategy
	sem       chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	stopMu    sync.Mutex // Protects stopping state and WaitGroup operations

	pullInterval time.Duration
	lockTimeout  time.Duration
	logger       *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a worker pool for one channel queue.
func NewWorker(repo WorkerRepository, queue string, processor Processor, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if processor == nil {
		return nil, ErrProcessorNil
	}

	options := &workerOptions{
		pullInterval:   time.Second,
		lockTimeout:    2 * time.Minute,
		maxConcurrency: 1,
		backoff:        DefaultBackoffStrategy(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:         repo,
		processor:    processor,
		queue:        queue,
		workerID:     uuid.New(),
		backoff:      options.backoff,
		sem:          make(chan struct{}, options.maxConcurrency),
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		logger:       options.logger,
	}, nil
}

// Start begins processing jobs in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.String("queue", w.queue),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker, waiting for in-flight jobs.
// An active job is never preempted.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active jobs to complete",
		slog.String("worker_id", w.workerID.String()),
		slog.String("queue", w.queue))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()),
		slog.String("queue", w.queue))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main processing loop.
func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Synchronize with Stop() so we never add to the wait
				// group after it started waiting.
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.pullAndProcess(); err != nil {
						w.logger.Error("failed to process job",
							slog.String("worker_id", w.workerID.String()),
							slog.String("queue", w.queue),
							slog.String("error", err.Error()))
					}
				}()
			default:
				w.logger.Debug("all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()),
					slog.String("queue", w.queue))
			}
		}
	}
}

// pullAndProcess claims the next job and processes it.
func (w *Worker) pullAndProcess() error {
	job, err := w.repo.ClaimJob(w.ctx, w.workerID, w.queue, w.lockTimeout)
	if err != nil {
		// An empty queue is normal, not an error.
		if errors.Is(err, ErrNoJobToClaim) {
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if job == nil {
		return nil
	}

	w.logger.Debug("claimed job",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("notification_id", job.NotificationID.String()),
		slog.String("queue", job.Queue),
		slog.Int("attempt", job.Attempts))

	return w.processJob(job)
}

// processJob executes a claimed job and records its outcome.
func (w *Worker) processJob(job *Job) (retErr error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in processor: %v", r)
			w.logger.Error("processor panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("job_id", job.ID.String()),
				slog.Any("panic", r))
			_ = w.handleFailure(job, retErr, time.Since(start))
		}
	}()

	// The job context is detached from the worker lifecycle so graceful
	// shutdown lets an in-flight attempt finish.
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	err := w.processor.Process(ctx, job)
	duration := time.Since(start)

	if err != nil {
		return w.handleFailure(job, err, duration)
	}

	return w.handleSuccess(job, duration)
}

// handleFailure records a failed attempt. Non-retryable failures are
// discarded outright; otherwise the queue re-schedules the job after
// backoff until attempts are exhausted.
func (w *Worker) handleFailure(job *Job, execErr error, duration time.Duration) error {
	w.logger.Error("job attempt failed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("notification_id", job.NotificationID.String()),
		slog.Int("attempt", job.Attempts),
		slog.Int("max_attempts", job.MaxAttempts),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	if errors.Is(execErr, ErrNonRetryable) {
		if err := w.repo.DiscardJob(w.ctx, job.ID, execErr.Error()); err != nil {
			return fmt.Errorf("failed to discard job %s: %w", job.ID, err)
		}
		return nil
	}

	delay := w.backoff.NextInterval(job.Attempts)
	if err := w.repo.FailJob(w.ctx, job.ID, execErr.Error(), delay); err != nil {
		return fmt.Errorf("failed to update job %s status to failed: %w", job.ID, err)
	}

	if job.LastAttempt() {
		w.logger.Warn("job exhausted all attempts",
			slog.String("worker_id", w.workerID.String()),
			slog.String("job_id", job.ID.String()),
			slog.String("notification_id", job.NotificationID.String()),
			slog.String("queue", job.Queue))
	}

	return nil
}

// handleSuccess marks the job completed.
func (w *Worker) handleSuccess(job *Job, duration time.Duration) error {
	if err := w.repo.CompleteJob(w.ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job %s as completed: %w", job.ID, err)
	}

	w.logger.Info("job completed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("notification_id", job.NotificationID.String()),
		slog.String("queue", job.Queue),
		slog.Duration("duration", duration))

	return nil
}
