package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

// ErrTooManyFiles is returned when a batch exceeds the configured limit.
var ErrTooManyFiles = errors.New("too many files in batch")

// ErrNoFiles is returned when a batch has no files.
var ErrNoFiles = errors.New("batch has no files")

// BatchService turns a set of uploads into one job per file and aggregates
// the jobs back into a batch view.
type BatchService struct {
	queue    *QueueService
	maxFiles int
}

// NewBatchService creates the service. maxFiles <= 0 means no limit.
func NewBatchService(queue *QueueService, maxFiles int) *BatchService {
	return &BatchService{queue: queue, maxFiles: maxFiles}
}

// SubmitBatch queues one PROCESS_BATCH_DOCUMENTS job per file, all sharing a
// fresh batch id. If any submit fails, the jobs already queued for the batch
// are cancelled and the error is returned.
func (s *BatchService) SubmitBatch(ctx context.Context, userID string, files []domain.FileDescriptor, opts domain.ProcessingOptions) (*domain.BatchSubmission, error) {
	if err := s.CheckSize(len(files)); err != nil {
		return nil, err
	}

	sub := &domain.BatchSubmission{BatchID: uuid.New().String()}
	for _, f := range files {
		o := opts
		id, err := s.queue.Submit(ctx, domain.JobPayload{
			Type:    domain.JobProcessBatchDocuments,
			BatchID: sub.BatchID,
			UserID:  userID,
			Files:   []domain.FileDescriptor{f},
			Options: &o,
		})
		if err != nil {
			s.rollback(ctx, sub)
			return nil, fmt.Errorf("submit %s: %w", f.OriginalName, err)
		}
		sub.JobIDs = append(sub.JobIDs, id)
	}
	return sub, nil
}

// rollback cancels the jobs of a partially submitted batch. Jobs a worker
// already picked up cannot be cancelled and are left to finish.
func (s *BatchService) rollback(ctx context.Context, sub *domain.BatchSubmission) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range sub.JobIDs {
		if err := s.queue.Cancel(ctx, id); err != nil {
			slog.Warn("cancel job of failed batch", "batch_id", sub.BatchID, "job_id", id, "error", err)
		}
	}
}

// CheckSize rejects empty batches and batches over the limit. Upload handlers
// call it before writing anything to disk.
func (s *BatchService) CheckSize(n int) error {
	if n == 0 {
		return ErrNoFiles
	}
	if s.maxFiles > 0 && n > s.maxFiles {
		return fmt.Errorf("%w: %d > %d", ErrTooManyFiles, n, s.maxFiles)
	}
	return nil
}

// Aggregate computes the batch status from its jobs. A batch without jobs
// is ErrBatchNotFound.
func (s *BatchService) Aggregate(ctx context.Context, batchID string) (*domain.BatchSummary, error) {
	jobs, err := s.queue.BatchStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, port.ErrBatchNotFound
	}
	return Summarize(batchID, jobs), nil
}

// Summarize folds job statuses into a batch summary.
func Summarize(batchID string, jobs []domain.JobStatus) *domain.BatchSummary {
	sum := &domain.BatchSummary{BatchID: batchID, Jobs: jobs}

	allCompleted := len(jobs) > 0
	anyFailed, anyActive := false, false
	for _, j := range jobs {
		sum.TotalFiles += j.Total
		sum.ProcessedFiles += j.Processed
		sum.FailedFiles += j.Failed

		switch j.Status {
		case domain.JobFailed:
			anyFailed = true
		case domain.JobActive:
			anyActive = true
		}
		if j.Status != domain.JobCompleted {
			allCompleted = false
		}
	}

	switch {
	case allCompleted:
		sum.Status = domain.BatchCompleted
	case anyFailed:
		sum.Status = domain.BatchPartial
	case anyActive:
		sum.Status = domain.BatchProcessing
	default:
		sum.Status = domain.BatchWaiting
	}
	sum.Progress = domain.Percent(sum.ProcessedFiles, sum.TotalFiles)
	return sum
}
