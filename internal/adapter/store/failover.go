package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

// failover runs primary and, on any error, logs and returns fallback's result.
// A not-found answer from primary still consults fallback without a warning,
// since records written during an outage only exist there.
func failover[T any](ctx context.Context, op string, primary, fallback func(context.Context) (T, error)) (T, error) {
	v, err := primary(ctx)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, port.ErrDocumentNotFound) {
		slog.Warn("durable store failed, using in-process store", "op", op, "error", err)
	}
	return fallback(ctx)
}

// FailoverChunkStore tries the durable chunk store first and degrades to the
// in-process one on any error.
type FailoverChunkStore struct {
	primary  port.ChunkStore
	fallback port.ChunkStore
}

// NewFailoverChunkStore wraps primary. A nil primary routes everything to fallback.
func NewFailoverChunkStore(primary, fallback port.ChunkStore) *FailoverChunkStore {
	if primary == nil {
		primary = fallback
	}
	return &FailoverChunkStore{primary: primary, fallback: fallback}
}

func (f *FailoverChunkStore) SaveChunk(ctx context.Context, c domain.ChunkVector) error {
	_, err := failover(ctx, "save chunk",
		func(ctx context.Context) (struct{}, error) { return struct{}{}, f.primary.SaveChunk(ctx, c) },
		func(ctx context.Context) (struct{}, error) { return struct{}{}, f.fallback.SaveChunk(ctx, c) },
	)
	return err
}

func (f *FailoverChunkStore) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return failover(ctx, "list chunks",
		func(ctx context.Context) ([]domain.Chunk, error) { return f.primary.ListChunks(ctx, documentID) },
		func(ctx context.Context) ([]domain.Chunk, error) { return f.fallback.ListChunks(ctx, documentID) },
	)
}

// DeleteChunks always clears both tiers. Only a fallback error is returned.
func (f *FailoverChunkStore) DeleteChunks(ctx context.Context, documentID string) error {
	if f.primary != f.fallback {
		if err := f.primary.DeleteChunks(ctx, documentID); err != nil {
			slog.Warn("durable store failed, using in-process store", "op", "delete chunks", "error", err)
		}
	}
	return f.fallback.DeleteChunks(ctx, documentID)
}

func (f *FailoverChunkStore) Stats(ctx context.Context) (domain.VectorStats, error) {
	return failover(ctx, "chunk stats", f.primary.Stats, f.fallback.Stats)
}

// FailoverDocumentStore applies the same policy to documents.
type FailoverDocumentStore struct {
	primary  port.DocumentStore
	fallback port.DocumentStore
}

// NewFailoverDocumentStore wraps primary. A nil primary routes everything to fallback.
func NewFailoverDocumentStore(primary, fallback port.DocumentStore) *FailoverDocumentStore {
	if primary == nil {
		primary = fallback
	}
	return &FailoverDocumentStore{primary: primary, fallback: fallback}
}

func (f *FailoverDocumentStore) CreateDocument(ctx context.Context, d domain.NewDocument) (*domain.Document, error) {
	return failover(ctx, "create document",
		func(ctx context.Context) (*domain.Document, error) { return f.primary.CreateDocument(ctx, d) },
		func(ctx context.Context) (*domain.Document, error) { return f.fallback.CreateDocument(ctx, d) },
	)
}

func (f *FailoverDocumentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return failover(ctx, "get document",
		func(ctx context.Context) (*domain.Document, error) { return f.primary.GetDocument(ctx, id) },
		func(ctx context.Context) (*domain.Document, error) { return f.fallback.GetDocument(ctx, id) },
	)
}
