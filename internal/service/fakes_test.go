package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arturoeanton/docintel/internal/domain"
)

var errUnavailable = errors.New("unavailable")

// recordingSaver remembers every SaveChunkVector call.
type recordingSaver struct {
	mu     sync.Mutex
	chunks []string
	idx    []int
}

func (r *recordingSaver) SaveChunkVector(_ context.Context, _ string, content string, _ []float32, chunkIndex int, _ *int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, content)
	r.idx = append(r.idx, chunkIndex)
	return true
}

// nilOnEmbedder returns nil for texts it was told to skip.
type nilOnEmbedder struct {
	skip map[string]bool
}

func (n *nilOnEmbedder) ModelName() string { return "test" }
func (n *nilOnEmbedder) Dimension() int    { return 2 }
func (n *nilOnEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if n.skip[text] {
		return nil, nil
	}
	return []float32{1, 0}, nil
}

type stubChat struct {
	reply string
	err   error
	calls int
}

func (s *stubChat) Chat(context.Context, string, string, []string) (string, error) {
	s.calls++
	return s.reply, s.err
}

// stubQueue is a port.JobQueue whose every call fails with err.
type stubQueue struct {
	err error
}

func (s *stubQueue) Name() string { return "stub" }

func (s *stubQueue) Submit(context.Context, domain.JobPayload) (string, error) {
	return "", s.err
}

func (s *stubQueue) Status(context.Context, string) (*domain.JobStatus, error) {
	return nil, s.err
}

func (s *stubQueue) BatchStatus(context.Context, string) ([]domain.JobStatus, error) {
	return nil, s.err
}

func (s *stubQueue) Cancel(context.Context, string) error { return s.err }

func (s *stubQueue) Cleanup(context.Context) (int, error) { return 0, s.err }

func (s *stubQueue) Stats(context.Context) (domain.QueueStats, error) {
	return domain.QueueStats{}, s.err
}

func (s *stubQueue) Close() error { return nil }

// countingQueue accepts the first accept submissions, fails the rest and
// records every cancel.
type countingQueue struct {
	stubQueue
	accept    int
	submitted []string
	cancelled []string
}

func (q *countingQueue) Submit(context.Context, domain.JobPayload) (string, error) {
	if len(q.submitted) >= q.accept {
		return "", errors.New("queue full")
	}
	id := fmt.Sprintf("job-%d", len(q.submitted)+1)
	q.submitted = append(q.submitted, id)
	return id, nil
}

func (q *countingQueue) Cancel(_ context.Context, id string) error {
	q.cancelled = append(q.cancelled, id)
	return nil
}
