package queue

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

type memoryJob struct {
	seq        uint64
	payload    domain.JobPayload
	status     domain.JobStatus
	finishedAt time.Time
}

// MemoryQueue runs jobs one at a time in submission order on a single drain
// goroutine. Submitting while a drain is running only appends to the list it
// is consuming. Nothing survives a restart and failed jobs are not retried.
type MemoryQueue struct {
	processor port.JobProcessor
	now       func() time.Time

	mu       sync.Mutex
	jobs     map[string]*memoryJob
	pending  []string
	seq      uint64
	draining bool
	closed   bool
	wg       sync.WaitGroup
}

// NewMemoryQueue creates an in-process queue executing jobs with processor.
func NewMemoryQueue(processor port.JobProcessor) *MemoryQueue {
	return &MemoryQueue{
		processor: processor,
		now:       time.Now,
		jobs:      make(map[string]*memoryJob),
	}
}

func (q *MemoryQueue) Name() string { return "memory" }

// Submit appends the job and starts a drain loop if none is running.
func (q *MemoryQueue) Submit(_ context.Context, payload domain.JobPayload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", port.ErrQueueClosed
	}

	now := q.now()
	id := uuid.New().String()
	q.seq++
	q.jobs[id] = &memoryJob{
		seq:     q.seq,
		payload: payload,
		status: domain.JobStatus{
			JobID:     id,
			BatchID:   payload.BatchID,
			Status:    domain.JobWaiting,
			Total:     len(payload.Files),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	q.pending = append(q.pending, id)

	if !q.draining {
		q.draining = true
		q.wg.Add(1)
		go q.drain()
	}
	return id, nil
}

func (q *MemoryQueue) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		id := q.pending[0]
		q.pending = q.pending[1:]
		job := q.jobs[id]
		job.status.Status = domain.JobActive
		job.status.UpdatedAt = q.now()
		payload := job.payload
		q.mu.Unlock()

		q.execute(id, payload)
	}
}

func (q *MemoryQueue) execute(id string, payload domain.JobPayload) {
	slog.Info("job started", "backend", q.Name(), "job_id", id, "files", len(payload.Files))

	result, err := runJob(context.Background(), q.processor, payload, func(p domain.Progress) {
		q.mu.Lock()
		defer q.mu.Unlock()
		if job, ok := q.jobs[id]; ok {
			job.status.Progress = p.Percent()
			job.status.Total = p.Total
			job.status.Processed = p.Processed
			job.status.Failed = p.Failed
			job.status.CurrentFile = p.CurrentFile
			job.status.UpdatedAt = q.now()
		}
	})

	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return
	}
	now := q.now()
	job.finishedAt = now
	job.status.UpdatedAt = now
	job.status.CurrentFile = ""

	if err != nil {
		job.status.Status = domain.JobFailed
		job.status.Error = err.Error()
		slog.Error("job failed", "backend", q.Name(), "job_id", id, "error", err)
		return
	}

	job.status.Status = domain.JobCompleted
	job.status.Progress = 100
	job.status.Result = result
	if result != nil {
		job.status.Processed = result.Processed
		job.status.Failed = result.Failed
	}
	slog.Info("job completed", "backend", q.Name(), "job_id", id,
		"processed", job.status.Processed, "failed", job.status.Failed)
}

// Status returns a snapshot of the job's live status.
func (q *MemoryQueue) Status(_ context.Context, jobID string) (*domain.JobStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return nil, port.ErrJobNotFound
	}
	st := job.status
	return &st, nil
}

// BatchStatus scans every known job for the batch id.
func (q *MemoryQueue) BatchStatus(_ context.Context, batchID string) ([]domain.JobStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var matched []*memoryJob
	for _, job := range q.jobs {
		if job.status.BatchID == batchID {
			matched = append(matched, job)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]domain.JobStatus, 0, len(matched))
	for _, job := range matched {
		out = append(out, job.status)
	}
	return out, nil
}

// Cancel removes a job that has not started yet.
func (q *MemoryQueue) Cancel(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return port.ErrJobNotFound
	}
	if job.status.Status != domain.JobWaiting {
		return port.ErrJobNotCancellable
	}

	delete(q.jobs, jobID)
	for i, id := range q.pending {
		if id == jobID {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	slog.Info("job cancelled", "backend", q.Name(), "job_id", jobID)
	return nil
}

// Cleanup drops completed jobs finished more than 24h ago. Failed jobs are kept.
func (q *MemoryQueue) Cleanup(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-completedTTL)
	removed := 0
	for id, job := range q.jobs {
		if job.status.Status == domain.JobCompleted && job.finishedAt.Before(cutoff) {
			delete(q.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// Stats counts jobs per state.
func (q *MemoryQueue) Stats(_ context.Context) (domain.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats domain.QueueStats
	for _, job := range q.jobs {
		stats.Count(job.status.Status)
	}
	return stats, nil
}

// WaitIdle blocks until no job is pending or running, or ctx ends.
func (q *MemoryQueue) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		q.mu.Lock()
		idle := !q.draining && len(q.pending) == 0
		q.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close rejects new submissions and waits for the current drain to finish.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}
