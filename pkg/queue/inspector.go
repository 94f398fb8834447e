package queue

import (
	"context"

	"github.com/google/uuid"
)

// InspectorRepository defines the operator-facing control surface:
// job listing with pagination, per-queue aggregate counts, manual retry
// of failed jobs, and job deletion. Deleting is refused for active jobs;
// cancellation prevents future attempts but never interrupts a call
// already in progress.
type InspectorRepository interface {
	// GetJob retrieves a single job by id.
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)

	// ListJobs returns jobs matching the filter plus the total match count.
	ListJobs(ctx context.Context, f Filter) ([]Job, int, error)

	// Stats returns aggregate counts for one queue.
	Stats(ctx context.Context, queue string) (Stats, error)

	// RetryJob re-queues a terminally failed job with a fresh attempt budget.
	RetryJob(ctx context.Context, jobID uuid.UUID) error

	// DeleteJob removes a job unless it is active.
	DeleteJob(ctx context.Context, jobID uuid.UUID) error
}

// Repository combines every queue persistence capability. Storage
// implementations satisfy the whole interface; components depend only
// on the slice they use.
type Repository interface {
	EnqueuerRepository
	WorkerRepository
	InspectorRepository
}
