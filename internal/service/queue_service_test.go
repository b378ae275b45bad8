package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/docintel/internal/adapter/queue"
	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

func validPayload() domain.JobPayload {
	return domain.JobPayload{
		Type:    domain.JobProcessSingleDocument,
		BatchID: "b1",
		Files: []domain.FileDescriptor{{
			FileID: "f1", OriginalName: "a.txt", FilePath: "/nonexistent/a.txt", FileSize: 1, MimeType: "text/plain",
		}},
	}
}

func newMemoryQueue(t *testing.T) *queue.MemoryQueue {
	t.Helper()
	mq := queue.NewMemoryQueue(newPipeline(nil).processor)
	t.Cleanup(func() { mq.Close() })
	return mq
}

func waitMemory(t *testing.T, mq *queue.MemoryQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mq.WaitIdle(ctx))
}

func TestQueueServiceRejectsInvalidPayload(t *testing.T) {
	qs := NewQueueService(nil, newMemoryQueue(t))

	tests := map[string]domain.JobPayload{
		"no files":     {Type: domain.JobProcessSingleDocument},
		"unknown type": {Type: "REINDEX", Files: validPayload().Files},
		"missing path": {Type: domain.JobProcessSingleDocument, Files: []domain.FileDescriptor{{FileID: "f", OriginalName: "a", MimeType: "text/plain"}}},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := qs.Submit(context.Background(), p)
			assert.Error(t, err)
		})
	}
}

func TestQueueServiceFallsBackWhenDurableFails(t *testing.T) {
	mq := newMemoryQueue(t)
	qs := NewQueueService(&stubQueue{err: errUnavailable}, mq)
	ctx := context.Background()

	id, err := qs.Submit(ctx, validPayload())
	require.NoError(t, err)
	waitMemory(t, mq)

	st, err := qs.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, st.Status)

	jobs, err := qs.BatchStatus(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	stats, err := qs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)

	_, err = qs.Cleanup(ctx)
	assert.NoError(t, err)

	assert.ErrorIs(t, qs.Cancel(ctx, id), port.ErrJobNotCancellable)
}

func TestQueueServiceNotFound(t *testing.T) {
	qs := NewQueueService(&stubQueue{err: port.ErrJobNotFound}, newMemoryQueue(t))

	_, err := qs.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, port.ErrJobNotFound)
	assert.ErrorIs(t, qs.Cancel(context.Background(), "missing"), port.ErrJobNotFound)
}

func TestQueueServiceDurableNotCancellable(t *testing.T) {
	qs := NewQueueService(&stubQueue{err: port.ErrJobNotCancellable}, newMemoryQueue(t))
	assert.ErrorIs(t, qs.Cancel(context.Background(), "active-job"), port.ErrJobNotCancellable)
}

func TestQueueServiceBackend(t *testing.T) {
	assert.Equal(t, "memory", NewQueueService(nil, newMemoryQueue(t)).Backend())
	assert.Equal(t, "stub", NewQueueService(&stubQueue{}, newMemoryQueue(t)).Backend())
}
