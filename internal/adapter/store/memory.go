package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

// MemoryStore is the in-process tier. It keeps documents and chunk records,
// vectors included, for as long as the process lives.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string]map[int]domain.ChunkVector
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]map[int]domain.ChunkVector),
	}
}

// CreateDocument stores the document under a fresh UUID.
func (m *MemoryStore) CreateDocument(_ context.Context, d domain.NewDocument) (*domain.Document, error) {
	doc := domain.Document{
		ID:           uuid.New().String(),
		FileID:       d.FileID,
		OriginalName: d.OriginalName,
		FileSize:     d.FileSize,
		PageCount:    d.PageCount,
		TextContent:  d.TextContent,
		FilePath:     d.FilePath,
		UserID:       d.UserID,
		CreatedAt:    time.Now(),
	}

	m.mu.Lock()
	m.documents[doc.ID] = doc
	m.mu.Unlock()

	return &doc, nil
}

// GetDocument retrieves a document by ID.
func (m *MemoryStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[id]
	if !ok {
		return nil, port.ErrDocumentNotFound
	}
	return &doc, nil
}

// SaveChunk stores the chunk with its vector inline.
func (m *MemoryStore) SaveChunk(_ context.Context, c domain.ChunkVector) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byIndex, ok := m.chunks[c.DocumentID]
	if !ok {
		byIndex = make(map[int]domain.ChunkVector)
		m.chunks[c.DocumentID] = byIndex
	}
	byIndex[c.ChunkIndex] = c
	return nil
}

// ListChunks returns a document's chunks ordered by index.
func (m *MemoryStore) ListChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byIndex := m.chunks[documentID]
	out := make([]domain.Chunk, 0, len(byIndex))
	for _, c := range byIndex {
		out = append(out, c.Chunk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

// DeleteChunks removes all chunks of a document.
func (m *MemoryStore) DeleteChunks(_ context.Context, documentID string) error {
	m.mu.Lock()
	delete(m.chunks, documentID)
	m.mu.Unlock()
	return nil
}

// Stats counts stored chunks and documents having at least one chunk.
func (m *MemoryStore) Stats(_ context.Context) (domain.VectorStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, byIndex := range m.chunks {
		total += len(byIndex)
	}
	return domain.NewVectorStats(total, len(m.chunks)), nil
}
