package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

var errDown = errors.New("connection refused")

// brokenStore fails every call, standing in for an unreachable database.
type brokenStore struct {
	deletes int
}

func (b *brokenStore) SaveChunk(context.Context, domain.ChunkVector) error { return errDown }
func (b *brokenStore) ListChunks(context.Context, string) ([]domain.Chunk, error) {
	return nil, errDown
}
func (b *brokenStore) DeleteChunks(context.Context, string) error {
	b.deletes++
	return errDown
}
func (b *brokenStore) Stats(context.Context) (domain.VectorStats, error) {
	return domain.VectorStats{}, errDown
}
func (b *brokenStore) CreateDocument(context.Context, domain.NewDocument) (*domain.Document, error) {
	return nil, errDown
}
func (b *brokenStore) GetDocument(context.Context, string) (*domain.Document, error) {
	return nil, errDown
}

func TestFailoverChunkStoreDegrades(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	fs := NewFailoverChunkStore(&brokenStore{}, mem)

	err := fs.SaveChunk(ctx, domain.ChunkVector{Chunk: domain.Chunk{DocumentID: "d1", ChunkIndex: 0, Content: "a"}})
	require.NoError(t, err)

	chunks, err := fs.ListChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a", chunks[0].Content)

	stats, err := fs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)
}

func TestFailoverChunkStoreDeleteHitsBothTiers(t *testing.T) {
	ctx := context.Background()
	broken := &brokenStore{}
	mem := NewMemoryStore()
	fs := NewFailoverChunkStore(broken, mem)

	require.NoError(t, mem.SaveChunk(ctx, domain.ChunkVector{Chunk: domain.Chunk{DocumentID: "d1"}}))
	require.NoError(t, fs.DeleteChunks(ctx, "d1"))

	assert.Equal(t, 1, broken.deletes)
	chunks, _ := mem.ListChunks(ctx, "d1")
	assert.Empty(t, chunks)
}

func TestFailoverChunkStoreDeleteSucceedsOnBothTiers(t *testing.T) {
	ctx := context.Background()
	durable := NewMemoryStore()
	mem := NewMemoryStore()
	fs := NewFailoverChunkStore(durable, mem)

	c := domain.ChunkVector{Chunk: domain.Chunk{DocumentID: "d1"}}
	require.NoError(t, durable.SaveChunk(ctx, c))
	require.NoError(t, mem.SaveChunk(ctx, c))

	require.NoError(t, fs.DeleteChunks(ctx, "d1"))
	a, _ := durable.ListChunks(ctx, "d1")
	b, _ := mem.ListChunks(ctx, "d1")
	assert.Empty(t, a)
	assert.Empty(t, b)
}

func TestFailoverChunkStoreNilPrimary(t *testing.T) {
	ctx := context.Background()
	fs := NewFailoverChunkStore(nil, NewMemoryStore())

	require.NoError(t, fs.SaveChunk(ctx, domain.ChunkVector{Chunk: domain.Chunk{DocumentID: "d1"}}))
	chunks, err := fs.ListChunks(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestFailoverDocumentStore(t *testing.T) {
	ctx := context.Background()
	ds := NewFailoverDocumentStore(&brokenStore{}, NewMemoryStore())

	doc, err := ds.CreateDocument(ctx, domain.NewDocument{FileID: "f1", OriginalName: "a.txt", TextContent: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	got, err := ds.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.TextContent)

	_, err = ds.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, port.ErrDocumentNotFound)
}

func TestFailoverConsultsFallbackOnNotFound(t *testing.T) {
	ctx := context.Background()
	durable := NewMemoryStore()
	mem := NewMemoryStore()
	ds := NewFailoverDocumentStore(durable, mem)

	doc, err := mem.CreateDocument(ctx, domain.NewDocument{FileID: "f1"})
	require.NoError(t, err)

	got, err := ds.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "f1", got.FileID)
}
