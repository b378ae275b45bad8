package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

// QueueService fronts the durable queue and the in-process one. The durable
// backend is chosen at startup; when it is missing or a call to it fails, the
// in-process backend takes over so callers never see a queue outage.
type QueueService struct {
	durable  port.JobQueue
	memory   port.JobQueue
	validate *validator.Validate
}

// NewQueueService creates the façade. durable may be nil.
func NewQueueService(durable, memory port.JobQueue) *QueueService {
	return &QueueService{
		durable:  durable,
		memory:   memory,
		validate: validator.New(),
	}
}

// Backend names the backend new jobs go to.
func (s *QueueService) Backend() string {
	if s.durable != nil {
		return s.durable.Name()
	}
	return s.memory.Name()
}

// Submit validates the payload and enqueues it.
func (s *QueueService) Submit(ctx context.Context, payload domain.JobPayload) (string, error) {
	if err := s.validate.Struct(payload); err != nil {
		return "", fmt.Errorf("invalid job payload: %w", err)
	}

	if s.durable != nil {
		id, err := s.durable.Submit(ctx, payload)
		if err == nil {
			slog.Info("job submitted", "backend", s.durable.Name(), "job_id", id, "type", payload.Type, "batch_id", payload.BatchID)
			return id, nil
		}
		slog.Warn("durable queue submit failed, using in-process queue", "error", err)
	}

	id, err := s.memory.Submit(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	slog.Info("job submitted", "backend", s.memory.Name(), "job_id", id, "type", payload.Type, "batch_id", payload.BatchID)
	return id, nil
}

// Status looks the job up in the durable backend, then the in-process one.
func (s *QueueService) Status(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	if s.durable != nil {
		st, err := s.durable.Status(ctx, jobID)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, port.ErrJobNotFound) {
			slog.Warn("durable queue status failed", "job_id", jobID, "error", err)
		}
	}
	return s.memory.Status(ctx, jobID)
}

// BatchStatus collects the batch's jobs from both backends.
func (s *QueueService) BatchStatus(ctx context.Context, batchID string) ([]domain.JobStatus, error) {
	var jobs []domain.JobStatus
	if s.durable != nil {
		found, err := s.durable.BatchStatus(ctx, batchID)
		if err != nil {
			slog.Warn("durable queue batch status failed", "batch_id", batchID, "error", err)
		}
		jobs = append(jobs, found...)
	}

	found, err := s.memory.BatchStatus(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("batch status: %w", err)
	}
	return append(jobs, found...), nil
}

// Cancel removes a waiting job from whichever backend holds it.
func (s *QueueService) Cancel(ctx context.Context, jobID string) error {
	if s.durable != nil {
		err := s.durable.Cancel(ctx, jobID)
		if err == nil || errors.Is(err, port.ErrJobNotCancellable) {
			return err
		}
		if !errors.Is(err, port.ErrJobNotFound) {
			slog.Warn("durable queue cancel failed", "job_id", jobID, "error", err)
		}
	}
	return s.memory.Cancel(ctx, jobID)
}

// Cleanup applies each backend's retention window and returns the total removed.
func (s *QueueService) Cleanup(ctx context.Context) (int, error) {
	removed := 0
	if s.durable != nil {
		n, err := s.durable.Cleanup(ctx)
		if err != nil {
			slog.Warn("durable queue cleanup failed", "error", err)
		}
		removed += n
	}

	n, err := s.memory.Cleanup(ctx)
	if err != nil {
		return removed, fmt.Errorf("cleanup: %w", err)
	}
	return removed + n, nil
}

// Stats sums both backends. If the durable one fails only in-process counts are returned.
func (s *QueueService) Stats(ctx context.Context) (domain.QueueStats, error) {
	stats, err := s.memory.Stats(ctx)
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	if s.durable != nil {
		d, err := s.durable.Stats(ctx)
		if err != nil {
			slog.Warn("durable queue stats failed", "error", err)
			return stats, nil
		}
		stats.Merge(d)
	}
	return stats, nil
}
