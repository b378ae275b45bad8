package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

// funcProcessor adapts a function to port.JobProcessor.
type funcProcessor func(ctx context.Context, payload domain.JobPayload, progress port.ProgressFunc) (*domain.JobResult, error)

func (f funcProcessor) Process(ctx context.Context, payload domain.JobPayload, progress port.ProgressFunc) (*domain.JobResult, error) {
	return f(ctx, payload, progress)
}

// okProcessor completes every file and reports progress after each one.
func okProcessor() funcProcessor {
	return func(_ context.Context, payload domain.JobPayload, progress port.ProgressFunc) (*domain.JobResult, error) {
		res := &domain.JobResult{}
		for i, f := range payload.Files {
			res.Files = append(res.Files, domain.FileResult{FileID: f.FileID, OriginalName: f.OriginalName, Status: domain.FileCompleted})
			res.Processed++
			progress(domain.Progress{Total: len(payload.Files), Handled: i + 1, Processed: i + 1})
		}
		return res, nil
	}
}

var errBoom = errors.New("boom")

func payload(batchID string, names ...string) domain.JobPayload {
	p := domain.JobPayload{Type: domain.JobProcessBatchDocuments, BatchID: batchID}
	for _, n := range names {
		p.Files = append(p.Files, domain.FileDescriptor{
			FileID: n, OriginalName: n, FilePath: "/tmp/" + n, MimeType: "text/plain",
		})
	}
	return p
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
