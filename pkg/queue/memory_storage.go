package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Repository for testing and single-process
// deployments. Completed jobs are pruned past a bounded count and age;
// failed jobs are kept longer (bounded count, no age eviction) to
// support operator inspection and manual retry.
type MemoryStorage struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job

	// Insertion sequence for FIFO ordering within equal priority
	seq    uint64
	seqOf  map[uuid.UUID]uint64
	ticker *time.Ticker
	done   chan struct{}

	completedMaxCount int
	completedMaxAge   time.Duration
	failedMaxCount    int
}

// MemoryStorageOption configures a MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithCompletedRetention bounds how many completed jobs are kept and
// for how long.
func WithCompletedRetention(maxCount int, maxAge time.Duration) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if maxCount > 0 {
			ms.completedMaxCount = maxCount
		}
		if maxAge > 0 {
			ms.completedMaxAge = maxAge
		}
	}
}

// WithFailedRetention bounds how many failed jobs are kept.
func WithFailedRetention(maxCount int) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if maxCount > 0 {
			ms.failedMaxCount = maxCount
		}
	}
}

// NewMemoryStorage creates a new in-memory queue storage.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	ms := &MemoryStorage{
		jobs:              make(map[uuid.UUID]*Job),
		seqOf:             make(map[uuid.UUID]uint64),
		done:              make(chan struct{}),
		completedMaxCount: 1000,
		completedMaxAge:   time.Hour,
		failedMaxCount:    5000,
	}
	for _, opt := range opts {
		opt(ms)
	}

	// Background janitor: expired claim locks and retention pruning.
	ms.ticker = time.NewTicker(time.Second)
	go ms.janitor()

	return ms
}

// Close stops the background janitor.
func (ms *MemoryStorage) Close() error {
	close(ms.done)
	ms.ticker.Stop()
	return nil
}

// CreateJob implements EnqueuerRepository.
func (ms *MemoryStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrJobNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	cp := *job
	ms.seq++
	ms.jobs[job.ID] = &cp
	ms.seqOf[job.ID] = ms.seq
	return nil
}

// ClaimJob implements WorkerRepository. Selection is priority-first,
// arrival-order-second within the requested queue; delayed jobs become
// claimable once their scheduled time passes.
func (ms *MemoryStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, queue string, lockDuration time.Duration) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Job
	var bestSeq uint64

	for id, job := range ms.jobs {
		if job.Queue != queue {
			continue
		}
		if job.Status != JobStatusPending && job.Status != JobStatusDelayed {
			continue
		}
		if job.ScheduledAt.After(now) {
			continue
		}
		seq := ms.seqOf[id]
		if best == nil ||
			job.Priority > best.Priority ||
			(job.Priority == best.Priority && seq < bestSeq) {
			best = job
			bestSeq = seq
		}
	}

	if best == nil {
		return nil, ErrNoJobToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = JobStatusActive
	best.Attempts++
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID
	best.ProcessedAt = &now

	cp := *best
	return &cp, nil
}

// CompleteJob implements WorkerRepository.
func (ms *MemoryStorage) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil
	return nil
}

// FailJob implements WorkerRepository.
func (ms *MemoryStorage) FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string, retryDelay time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}

	now := time.Now()
	job.Error = &errorMsg
	job.LockedUntil = nil
	job.LockedBy = nil

	if job.Attempts >= job.MaxAttempts {
		job.Status = JobStatusFailed
		job.FailedAt = &now
		return nil
	}

	job.Status = JobStatusDelayed
	job.ScheduledAt = now.Add(retryDelay)
	return nil
}

// DiscardJob implements WorkerRepository.
func (ms *MemoryStorage) DiscardJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}

	now := time.Now()
	job.Status = JobStatusFailed
	job.Error = &errorMsg
	job.FailedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil
	return nil
}

// GetJob implements InspectorRepository.
func (ms *MemoryStorage) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	job, ok := ms.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	cp := *job
	return &cp, nil
}

// ListJobs implements InspectorRepository.
func (ms *MemoryStorage) ListJobs(ctx context.Context, f Filter) ([]Job, int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var matched []Job
	for _, job := range ms.jobs {
		if f.Queue != "" && job.Queue != f.Queue {
			continue
		}
		if f.Status != "" && job.Status != f.Status {
			continue
		}
		matched = append(matched, *job)
	}

	// Newest first for operational inspection
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= total {
			return nil, total, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	return matched, total, nil
}

// Stats implements InspectorRepository.
func (ms *MemoryStorage) Stats(ctx context.Context, queue string) (Stats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var s Stats
	for _, job := range ms.jobs {
		if job.Queue != queue {
			continue
		}
		switch job.Status {
		case JobStatusPending:
			s.Waiting++
		case JobStatusActive:
			s.Active++
		case JobStatusCompleted:
			s.Completed++
		case JobStatusFailed:
			s.Failed++
		case JobStatusDelayed:
			s.Delayed++
		}
		s.Total++
	}
	return s, nil
}

// RetryJob implements InspectorRepository.
func (ms *MemoryStorage) RetryJob(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != JobStatusFailed {
		return ErrJobNotFailed
	}

	// Manual retry grants a fresh attempt budget.
	job.Status = JobStatusPending
	job.Attempts = 0
	job.Error = nil
	job.FailedAt = nil
	job.ScheduledAt = time.Now()
	return nil
}

// DeleteJob implements InspectorRepository.
func (ms *MemoryStorage) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status == JobStatusActive {
		return ErrJobActive
	}

	delete(ms.jobs, jobID)
	delete(ms.seqOf, jobID)
	return nil
}

// janitor recovers jobs from dead workers and enforces retention bounds.
func (ms *MemoryStorage) janitor() {
	for {
		select {
		case <-ms.ticker.C:
			ms.expireLocks()
			ms.prune()
		case <-ms.done:
			return
		}
	}
}

// expireLocks resets jobs whose claim lock has lapsed so another worker
// can pick them up. The attempt count is preserved; a crashed worker
// still consumed an attempt.
func (ms *MemoryStorage) expireLocks() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for _, job := range ms.jobs {
		if job.Status == JobStatusActive && job.LockedUntil != nil && job.LockedUntil.Before(now) {
			job.Status = JobStatusPending
			job.LockedUntil = nil
			job.LockedBy = nil
		}
	}
}

// prune evicts completed jobs beyond the count/age bounds and failed
// jobs beyond the count bound, oldest first.
func (ms *MemoryStorage) prune() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var completed, failed []*Job
	for _, job := range ms.jobs {
		switch job.Status {
		case JobStatusCompleted:
			if job.CompletedAt != nil && now.Sub(*job.CompletedAt) > ms.completedMaxAge {
				delete(ms.jobs, job.ID)
				delete(ms.seqOf, job.ID)
				continue
			}
			completed = append(completed, job)
		case JobStatusFailed:
			failed = append(failed, job)
		}
	}

	ms.pruneOldest(completed, ms.completedMaxCount, func(j *Job) time.Time {
		if j.CompletedAt != nil {
			return *j.CompletedAt
		}
		return j.CreatedAt
	})
	ms.pruneOldest(failed, ms.failedMaxCount, func(j *Job) time.Time {
		if j.FailedAt != nil {
			return *j.FailedAt
		}
		return j.CreatedAt
	})
}

func (ms *MemoryStorage) pruneOldest(jobs []*Job, maxCount int, at func(*Job) time.Time) {
	if len(jobs) <= maxCount {
		return
	}

	sort.Slice(jobs, func(i, j int) bool {
		return at(jobs[i]).Before(at(jobs[j]))
	})
	for _, job := range jobs[:len(jobs)-maxCount] {
		delete(ms.jobs, job.ID)
		delete(ms.seqOf, job.ID)
	}
}
