package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

var errNoJob = errors.New("no ready job")

// BadgerOptions tunes the durable queue.
type BadgerOptions struct {
	Name          string        // key namespace
	Workers       int           // concurrent job executors
	PollInterval  time.Duration // how often idle workers look for ready jobs
	MaxAttempts   int           // executions before a job is marked failed
	Backoff       time.Duration // first retry delay, doubled per attempt
	KeepCompleted int           // completed jobs retained
	KeepFailed    int           // failed jobs retained
}

// DefaultBadgerOptions returns 3 attempts with 2s exponential backoff,
// keeping the last 10 completed and 5 failed jobs.
func DefaultBadgerOptions() BadgerOptions {
	return BadgerOptions{
		Name:          "documents",
		Workers:       2,
		PollInterval:  500 * time.Millisecond,
		MaxAttempts:   3,
		Backoff:       2 * time.Second,
		KeepCompleted: 10,
		KeepFailed:    5,
	}
}

// jobRecord is the JSON value stored per job.
type jobRecord struct {
	ID           string            `json:"id"`
	Payload      domain.JobPayload `json:"payload"`
	AttemptsMade int               `json:"attempts_made"`
	Progress     int               `json:"progress"`
	CurrentFile  string            `json:"current_file,omitempty"`
	Result       *domain.JobResult `json:"result,omitempty"`
	FailedReason string            `json:"failed_reason,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	RunAt        time.Time         `json:"run_at"`
	ProcessedOn  *time.Time        `json:"processed_on,omitempty"`
	FinishedOn   *time.Time        `json:"finished_on,omitempty"`
}

// state derives the lifecycle state from the timestamps and failure reason.
func (r *jobRecord) state() domain.JobState {
	switch {
	case r.FinishedOn != nil && r.FailedReason != "":
		return domain.JobFailed
	case r.FinishedOn != nil:
		return domain.JobCompleted
	case r.ProcessedOn != nil:
		return domain.JobActive
	default:
		return domain.JobWaiting
	}
}

// status converts the record. Per-file counts are only known once a result
// exists and otherwise stay 0.
func (r *jobRecord) status() domain.JobStatus {
	st := domain.JobStatus{
		JobID:       r.ID,
		BatchID:     r.Payload.BatchID,
		Status:      r.state(),
		Progress:    r.Progress,
		Total:       len(r.Payload.Files),
		CurrentFile: r.CurrentFile,
		Result:      r.Result,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Result != nil {
		st.Processed = r.Result.Processed
		st.Failed = r.Result.Failed
	}
	if st.Status == domain.JobFailed {
		st.Error = r.FailedReason
	}
	return st
}

// BadgerQueue is a durable queue stored in BadgerDB. Jobs survive restarts;
// a job found active at startup is put back in the ready index, so execution
// is at-least-once.
//
// Keys:
//
//	queue:{name}:job:{id}              -> jobRecord JSON
//	queue:{name}:ready:{runAtNanos}:{id} -> empty, only for waiting jobs
type BadgerQueue struct {
	db        *badger.DB
	opts      BadgerOptions
	processor port.JobProcessor
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewBadgerQueue creates the queue over an open database. The caller owns db.
// Call Start to launch the workers.
func NewBadgerQueue(db *badger.DB, processor port.JobProcessor, opts BadgerOptions) (*BadgerQueue, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	def := DefaultBadgerOptions()
	if opts.Name == "" {
		opts.Name = def.Name
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = def.Backoff
	}
	if opts.KeepCompleted <= 0 {
		opts.KeepCompleted = def.KeepCompleted
	}
	if opts.KeepFailed <= 0 {
		opts.KeepFailed = def.KeepFailed
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BadgerQueue{
		db:        db,
		opts:      opts,
		processor: processor,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (q *BadgerQueue) Name() string { return "badger" }

// Start requeues jobs interrupted by a previous shutdown and launches the workers.
func (q *BadgerQueue) Start() error {
	n, err := q.recoverInterrupted()
	if err != nil {
		return fmt.Errorf("recover interrupted jobs: %w", err)
	}
	if n > 0 {
		slog.Info("requeued interrupted jobs", "count", n)
	}

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	slog.Info("durable queue started", "workers", q.opts.Workers, "poll_interval", q.opts.PollInterval)
	return nil
}

// Submit stores the job and makes it ready immediately.
func (q *BadgerQueue) Submit(_ context.Context, payload domain.JobPayload) (string, error) {
	if q.ctx.Err() != nil {
		return "", port.ErrQueueClosed
	}

	now := q.now()
	rec := jobRecord{
		ID:        uuid.New().String(),
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
		RunAt:     now,
	}

	err := q.db.Update(func(txn *badger.Txn) error {
		if err := q.put(txn, &rec); err != nil {
			return err
		}
		return txn.Set(q.readyKey(rec.RunAt, rec.ID), []byte{})
	})
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return rec.ID, nil
}

// Status returns the job's derived status.
func (q *BadgerQueue) Status(_ context.Context, jobID string) (*domain.JobStatus, error) {
	var st domain.JobStatus
	err := q.db.View(func(txn *badger.Txn) error {
		rec, err := q.get(txn, jobID)
		if err != nil {
			return err
		}
		st = rec.status()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// BatchStatus scans every job record for the batch id.
func (q *BadgerQueue) BatchStatus(_ context.Context, batchID string) ([]domain.JobStatus, error) {
	var out []domain.JobStatus
	err := q.scan(func(rec *jobRecord) {
		if rec.Payload.BatchID == batchID {
			out = append(out, rec.status())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("batch status: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Cancel removes a job that is waiting, including one waiting for a retry.
func (q *BadgerQueue) Cancel(_ context.Context, jobID string) error {
	return q.db.Update(func(txn *badger.Txn) error {
		rec, err := q.get(txn, jobID)
		if err != nil {
			return err
		}
		if rec.state() != domain.JobWaiting {
			return port.ErrJobNotCancellable
		}
		if err := txn.Delete(q.readyKey(rec.RunAt, rec.ID)); err != nil {
			return err
		}
		return txn.Delete(q.jobKey(rec.ID))
	})
}

// Cleanup removes completed jobs finished over 24h ago and failed jobs
// finished over 7 days ago.
func (q *BadgerQueue) Cleanup(_ context.Context) (int, error) {
	now := q.now()
	var stale []string
	err := q.scan(func(rec *jobRecord) {
		if rec.FinishedOn == nil {
			return
		}
		ttl := completedTTL
		if rec.state() == domain.JobFailed {
			ttl = failedTTL
		}
		if rec.FinishedOn.Before(now.Add(-ttl)) {
			stale = append(stale, rec.ID)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup scan: %w", err)
	}
	if err := q.deleteJobs(stale); err != nil {
		return 0, fmt.Errorf("cleanup delete: %w", err)
	}
	return len(stale), nil
}

// Stats counts jobs per state.
func (q *BadgerQueue) Stats(_ context.Context) (domain.QueueStats, error) {
	var stats domain.QueueStats
	err := q.scan(func(rec *jobRecord) {
		stats.Count(rec.state())
	})
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	return stats, nil
}

// Close stops the workers. A job interrupted mid-run stays active in the
// store and is requeued by the next Start.
func (q *BadgerQueue) Close() error {
	q.once.Do(func() {
		q.cancel()
		q.wg.Wait()
	})
	return nil
}

func (q *BadgerQueue) worker(n int) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		// drain everything ready before sleeping
		for q.ctx.Err() == nil {
			rec, err := q.claim()
			if errors.Is(err, errNoJob) {
				break
			}
			if err != nil {
				slog.Error("claim job failed", "worker", n, "error", err)
				break
			}
			q.execute(rec)
		}

		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// claim atomically takes the first ready job whose run time has passed.
func (q *BadgerQueue) claim() (*jobRecord, error) {
	var claimed *jobRecord
	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := q.readyPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		now := q.now()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			runAt, id, err := q.parseReadyKey(key)
			if err != nil {
				continue
			}
			if runAt.After(now) {
				// sorted by run time, nothing later is ready either
				break
			}

			rec, err := q.get(txn, id)
			if errors.Is(err, port.ErrJobNotFound) {
				if err := txn.Delete(key); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}

			if err := txn.Delete(key); err != nil {
				return err
			}
			started := now
			rec.ProcessedOn = &started
			rec.AttemptsMade++
			rec.UpdatedAt = now
			if err := q.put(txn, rec); err != nil {
				return err
			}
			claimed = rec
			return nil
		}
		return errNoJob
	})
	return claimed, err
}

func (q *BadgerQueue) execute(rec *jobRecord) {
	slog.Info("job started", "backend", q.Name(), "job_id", rec.ID, "attempt", rec.AttemptsMade)

	result, err := runJob(q.ctx, q.processor, rec.Payload, func(p domain.Progress) {
		uerr := q.update(rec.ID, func(r *jobRecord) {
			r.Progress = p.Percent()
			r.CurrentFile = p.CurrentFile
		})
		if uerr != nil {
			slog.Warn("persist job progress failed", "job_id", rec.ID, "error", uerr)
		}
	})

	if err != nil && q.ctx.Err() != nil {
		// shutting down, leave it active for recovery
		slog.Info("job interrupted by shutdown", "job_id", rec.ID)
		return
	}

	var finishedState domain.JobState
	uerr := q.update(rec.ID, func(r *jobRecord) {
		now := q.now()
		r.CurrentFile = ""
		switch {
		case err == nil:
			r.Progress = 100
			r.Result = result
			r.FailedReason = ""
			r.FinishedOn = &now
		case r.AttemptsMade < q.opts.MaxAttempts:
			r.FailedReason = err.Error()
			r.ProcessedOn = nil
			r.RunAt = now.Add(q.backoff(r.AttemptsMade))
		default:
			r.FailedReason = err.Error()
			r.FinishedOn = &now
		}
		finishedState = r.state()
	}, func(txn *badger.Txn, r *jobRecord) error {
		if r.state() == domain.JobWaiting {
			return txn.Set(q.readyKey(r.RunAt, r.ID), []byte{})
		}
		return nil
	})
	if uerr != nil {
		slog.Error("persist job outcome failed", "job_id", rec.ID, "error", uerr)
		return
	}

	switch finishedState {
	case domain.JobCompleted:
		slog.Info("job completed", "backend", q.Name(), "job_id", rec.ID)
	case domain.JobWaiting:
		slog.Warn("job failed, retry scheduled", "job_id", rec.ID, "attempt", rec.AttemptsMade, "error", err)
	case domain.JobFailed:
		slog.Error("job failed", "backend", q.Name(), "job_id", rec.ID, "attempts", rec.AttemptsMade, "error", err)
	}

	if finishedState.Terminal() {
		if err := q.enforceRetention(); err != nil {
			slog.Warn("job retention failed", "error", err)
		}
	}
}

// backoff returns Backoff * 2^(attempt-1).
func (q *BadgerQueue) backoff(attempt int) time.Duration {
	return q.opts.Backoff << (attempt - 1)
}

// enforceRetention keeps only the most recently finished KeepCompleted and
// KeepFailed jobs.
func (q *BadgerQueue) enforceRetention() error {
	var completed, failed []*jobRecord
	err := q.scan(func(rec *jobRecord) {
		switch rec.state() {
		case domain.JobCompleted:
			completed = append(completed, rec)
		case domain.JobFailed:
			failed = append(failed, rec)
		}
	})
	if err != nil {
		return err
	}

	var drop []string
	drop = append(drop, overflow(completed, q.opts.KeepCompleted)...)
	drop = append(drop, overflow(failed, q.opts.KeepFailed)...)
	return q.deleteJobs(drop)
}

// overflow returns the ids of the oldest records beyond keep.
func overflow(recs []*jobRecord, keep int) []string {
	if len(recs) <= keep {
		return nil
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].FinishedOn.After(*recs[j].FinishedOn) })
	ids := make([]string, 0, len(recs)-keep)
	for _, r := range recs[keep:] {
		ids = append(ids, r.ID)
	}
	return ids
}

// recoverInterrupted puts active jobs back in the ready index.
func (q *BadgerQueue) recoverInterrupted() (int, error) {
	var ids []string
	if err := q.scan(func(rec *jobRecord) {
		if rec.state() == domain.JobActive {
			ids = append(ids, rec.ID)
		}
	}); err != nil {
		return 0, err
	}

	for _, id := range ids {
		err := q.update(id, func(r *jobRecord) {
			r.ProcessedOn = nil
			r.RunAt = q.now()
			r.UpdatedAt = r.RunAt
		}, func(txn *badger.Txn, r *jobRecord) error {
			return txn.Set(q.readyKey(r.RunAt, r.ID), []byte{})
		})
		if err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// update applies fn to the stored record inside one transaction, then runs
// any extra steps with the updated record.
func (q *BadgerQueue) update(id string, fn func(*jobRecord), extra ...func(*badger.Txn, *jobRecord) error) error {
	return q.db.Update(func(txn *badger.Txn) error {
		rec, err := q.get(txn, id)
		if err != nil {
			return err
		}
		fn(rec)
		rec.UpdatedAt = q.now()
		if err := q.put(txn, rec); err != nil {
			return err
		}
		for _, step := range extra {
			if err := step(txn, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (q *BadgerQueue) deleteJobs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return q.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			rec, err := q.get(txn, id)
			if errors.Is(err, port.ErrJobNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if rec.state() == domain.JobWaiting {
				if err := txn.Delete(q.readyKey(rec.RunAt, id)); err != nil {
					return err
				}
			}
			if err := txn.Delete(q.jobKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (q *BadgerQueue) scan(fn func(*jobRecord)) error {
	return q.db.View(func(txn *badger.Txn) error {
		prefix := q.jobPrefix()
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec jobRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				slog.Warn("skipping unreadable job record", "key", string(it.Item().Key()), "error", err)
				continue
			}
			fn(&rec)
		}
		return nil
	})
}

func (q *BadgerQueue) get(txn *badger.Txn, id string) (*jobRecord, error) {
	item, err := txn.Get(q.jobKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, port.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec jobRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &rec, nil
}

func (q *BadgerQueue) put(txn *badger.Txn, rec *jobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return txn.Set(q.jobKey(rec.ID), data)
}

// Keys

func (q *BadgerQueue) jobPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:job:", q.opts.Name))
}

func (q *BadgerQueue) jobKey(id string) []byte {
	return append(q.jobPrefix(), id...)
}

func (q *BadgerQueue) readyPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:ready:", q.opts.Name))
}

// readyKey zero-pads the timestamp so byte order matches time order.
func (q *BadgerQueue) readyKey(runAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:ready:%020d:%s", q.opts.Name, runAt.UnixNano(), id))
}

func (q *BadgerQueue) parseReadyKey(key []byte) (time.Time, string, error) {
	suffix := strings.TrimPrefix(string(key), string(q.readyPrefix()))
	if len(suffix) < 22 || suffix[20] != ':' {
		return time.Time{}, "", fmt.Errorf("invalid ready key %q", key)
	}
	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, ts), suffix[21:], nil
}
