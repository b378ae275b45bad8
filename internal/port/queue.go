package port

import (
	"context"

	"github.com/arturoeanton/docintel/internal/domain"
)

// ProgressFunc receives progress updates while a job runs.
type ProgressFunc func(domain.Progress)

// JobProcessor executes the work described by a job payload.
type JobProcessor interface {
	// Process walks the payload's files in order. A returned error fails the
	// whole job; per-file failures are reported inside the result.
	Process(ctx context.Context, payload domain.JobPayload, progress ProgressFunc) (*domain.JobResult, error)
}

// JobQueue is a backend able to run jobs asynchronously.
type JobQueue interface {
	// Name identifies the backend in logs.
	Name() string

	// Submit enqueues a job and returns its id.
	Submit(ctx context.Context, payload domain.JobPayload) (string, error)

	// Status returns ErrJobNotFound when the backend does not know the job.
	Status(ctx context.Context, jobID string) (*domain.JobStatus, error)

	// BatchStatus returns every job carrying the batch id.
	BatchStatus(ctx context.Context, batchID string) ([]domain.JobStatus, error)

	// Cancel removes a waiting job. Jobs in any other state yield ErrJobNotCancellable.
	Cancel(ctx context.Context, jobID string) error

	// Cleanup drops finished jobs past their retention window and returns how many went.
	Cleanup(ctx context.Context) (int, error)

	// Stats counts jobs per state.
	Stats(ctx context.Context) (domain.QueueStats, error)

	// Close stops accepting work and releases resources.
	Close() error
}
