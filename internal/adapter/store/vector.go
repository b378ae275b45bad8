package store

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

// VectorIndex is the process-local map of vectors keyed by (document id, chunk index).
// Iteration follows document insertion order, then chunk index, so a scan is
// deterministic.
type VectorIndex struct {
	mu    sync.RWMutex
	docs  map[string]map[int]domain.ChunkVector
	order []string
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{docs: make(map[string]map[int]domain.ChunkVector)}
}

// Put inserts or replaces one entry.
func (x *VectorIndex) Put(c domain.ChunkVector) {
	x.mu.Lock()
	defer x.mu.Unlock()

	byIndex, ok := x.docs[c.DocumentID]
	if !ok {
		byIndex = make(map[int]domain.ChunkVector)
		x.docs[c.DocumentID] = byIndex
		x.order = append(x.order, c.DocumentID)
	}
	byIndex[c.ChunkIndex] = c
}

// Delete drops every entry of a document.
func (x *VectorIndex) Delete(documentID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.docs[documentID]; !ok {
		return
	}
	delete(x.docs, documentID)
	for i, id := range x.order {
		if id == documentID {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
}

// Scan returns a snapshot of the entries, restricted to documentID when it is not empty.
func (x *VectorIndex) Scan(documentID string) []domain.ChunkVector {
	x.mu.RLock()
	defer x.mu.RUnlock()

	ids := x.order
	if documentID != "" {
		ids = []string{documentID}
	}

	var out []domain.ChunkVector
	for _, id := range ids {
		byIndex := x.docs[id]
		start := len(out)
		for _, c := range byIndex {
			out = append(out, c)
		}
		part := out[start:]
		sort.Slice(part, func(i, j int) bool { return part[i].ChunkIndex < part[j].ChunkIndex })
	}
	return out
}

// Len returns the number of vectors held.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := 0
	for _, byIndex := range x.docs {
		n += len(byIndex)
	}
	return n
}

// VectorStore persists chunk vectors and answers similarity queries.
//
// Chunk metadata goes through the ChunkStore (durable with in-process
// failover). Vectors always go to the in-process index, and search only
// scans that index: chunks whose metadata reached the durable tier but were
// written by another process, or before a restart, are not searchable.
type VectorStore struct {
	chunks   port.ChunkStore
	index    *VectorIndex
	embedder port.EmbeddingProvider
}

// NewVectorStore creates a vector store over the given chunk store and index.
func NewVectorStore(chunks port.ChunkStore, index *VectorIndex, embedder port.EmbeddingProvider) *VectorStore {
	return &VectorStore{chunks: chunks, index: index, embedder: embedder}
}

// SaveChunkVector records one chunk and its vector. Storage errors degrade
// to the in-process tier, so it reports false only when both tiers fail.
func (v *VectorStore) SaveChunkVector(ctx context.Context, documentID, content string, vector []float32, chunkIndex int, pageNumber *int) bool {
	c := domain.ChunkVector{
		Chunk: domain.Chunk{
			DocumentID: documentID,
			ChunkIndex: chunkIndex,
			Content:    content,
			TokenCount: domain.EstimateTokens(content),
			PageNumber: pageNumber,
			CreatedAt:  time.Now(),
		},
		Vector: vector,
	}

	v.index.Put(c)
	if err := v.chunks.SaveChunk(ctx, c); err != nil {
		slog.Error("save chunk vector failed on every tier", "document_id", documentID, "chunk_index", chunkIndex, "error", err)
		return false
	}
	return true
}

// GetDocumentChunks returns chunks ordered by index; empty on failure.
func (v *VectorStore) GetDocumentChunks(ctx context.Context, documentID string) []domain.Chunk {
	chunks, err := v.chunks.ListChunks(ctx, documentID)
	if err != nil {
		slog.Error("list document chunks failed", "document_id", documentID, "error", err)
		return []domain.Chunk{}
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	return chunks
}

// DeleteDocumentVectors clears the document from every tier. Deleting an
// unknown document succeeds.
func (v *VectorStore) DeleteDocumentVectors(ctx context.Context, documentID string) bool {
	v.index.Delete(documentID)
	if err := v.chunks.DeleteChunks(ctx, documentID); err != nil {
		slog.Error("delete document vectors failed", "document_id", documentID, "error", err)
		return false
	}
	return true
}

// SemanticSearch embeds the query and ranks indexed chunks by cosine
// similarity, optionally restricted to one document. Ties keep scan order.
func (v *VectorStore) SemanticSearch(ctx context.Context, query, documentID string, limit int) []domain.SearchResult {
	results := []domain.SearchResult{}
	if limit <= 0 {
		return results
	}

	queryVec, err := v.embedder.Embed(ctx, query)
	if err != nil || queryVec == nil {
		if err != nil {
			slog.Warn("embed search query failed", "error", err)
		}
		return results
	}

	for _, c := range v.index.Scan(documentID) {
		results = append(results, domain.SearchResult{
			Content:    c.Content,
			Similarity: CosineSimilarity(queryVec, c.Vector),
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			PageNumber: c.PageNumber,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Stats reports chunk and document totals; zero values on failure.
func (v *VectorStore) Stats(ctx context.Context) domain.VectorStats {
	stats, err := v.chunks.Stats(ctx)
	if err != nil {
		slog.Error("vector stats failed", "error", err)
		return domain.VectorStats{}
	}
	return stats
}

// CosineSimilarity returns dot(a,b)/(|a||b|). Zero-norm or mismatched
// vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
