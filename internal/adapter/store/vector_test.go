package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/docintel/internal/adapter/ai"
	"github.com/arturoeanton/docintel/internal/domain"
)

const testDim = 64

func newTestVectorStore(primary *brokenStore) (*VectorStore, *ai.LocalEmbedder) {
	embedder := ai.NewLocalEmbedder(testDim)
	var chunks *FailoverChunkStore
	if primary != nil {
		chunks = NewFailoverChunkStore(primary, NewMemoryStore())
	} else {
		chunks = NewFailoverChunkStore(nil, NewMemoryStore())
	}
	return NewVectorStore(chunks, NewVectorIndex(), embedder), embedder
}

func save(t *testing.T, vs *VectorStore, e *ai.LocalEmbedder, docID string, idx int, content string) {
	t.Helper()
	vec, err := e.Embed(context.Background(), content)
	require.NoError(t, err)
	require.True(t, vs.SaveChunkVector(context.Background(), docID, content, vec, idx, nil))
}

func TestSemanticSearchFiltersAndLimits(t *testing.T) {
	vs, e := newTestVectorStore(nil)
	for i := 0; i < 5; i++ {
		save(t, vs, e, "X", i, fmt.Sprintf("test chunk number %d of document X", i))
	}
	for i := 0; i < 3; i++ {
		save(t, vs, e, "Y", i, fmt.Sprintf("test chunk number %d of document Y", i))
	}

	results := vs.SemanticSearch(context.Background(), "test", "X", 2)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "X", r.DocumentID)
	}
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestSemanticSearchSortedAcrossDocuments(t *testing.T) {
	vs, e := newTestVectorStore(nil)
	save(t, vs, e, "A", 0, "alpha beta gamma")
	save(t, vs, e, "B", 0, "test")
	save(t, vs, e, "C", 0, "Completely unrelated 123!")

	results := vs.SemanticSearch(context.Background(), "test", "", 10)
	require.Len(t, results, 3)
	assert.Equal(t, "B", results[0].DocumentID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestSemanticSearchTiesKeepScanOrder(t *testing.T) {
	vs, _ := newTestVectorStore(nil)
	vec := make([]float32, testDim)
	vec[0] = 1
	for i := 0; i < 3; i++ {
		require.True(t, vs.SaveChunkVector(context.Background(), "T", fmt.Sprintf("c%d", i), vec, i, nil))
	}

	results := vs.SemanticSearch(context.Background(), "query", "T", 3)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.ChunkIndex)
	}
}

func TestSemanticSearchEmptyStore(t *testing.T) {
	vs, _ := newTestVectorStore(nil)
	assert.Empty(t, vs.SemanticSearch(context.Background(), "anything", "", 5))
	assert.Empty(t, vs.SemanticSearch(context.Background(), "anything", "", 0))
}

func TestGetDocumentChunksOrdered(t *testing.T) {
	vs, e := newTestVectorStore(nil)
	page := 2
	vec, _ := e.Embed(context.Background(), "x")
	require.True(t, vs.SaveChunkVector(context.Background(), "D", "second chunk", vec, 1, &page))
	require.True(t, vs.SaveChunkVector(context.Background(), "D", "first", vec, 0, nil))

	chunks := vs.GetDocumentChunks(context.Background(), "D")
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, 3, chunks[1].TokenCount)
	require.NotNil(t, chunks[1].PageNumber)
	assert.Equal(t, 2, *chunks[1].PageNumber)
}

func TestDeleteDocumentVectors(t *testing.T) {
	vs, e := newTestVectorStore(nil)
	save(t, vs, e, "D", 0, "to be removed")
	save(t, vs, e, "K", 0, "to be kept")

	assert.True(t, vs.DeleteDocumentVectors(context.Background(), "D"))
	assert.Empty(t, vs.GetDocumentChunks(context.Background(), "D"))

	results := vs.SemanticSearch(context.Background(), "removed", "", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "K", results[0].DocumentID)

	// idempotent
	assert.True(t, vs.DeleteDocumentVectors(context.Background(), "D"))
	assert.True(t, vs.DeleteDocumentVectors(context.Background(), "never-existed"))
}

func TestVectorStoreDegradesWhenDurableDown(t *testing.T) {
	vs, e := newTestVectorStore(&brokenStore{})
	save(t, vs, e, "D", 0, "still saved")

	assert.Len(t, vs.GetDocumentChunks(context.Background(), "D"), 1)
	assert.Len(t, vs.SemanticSearch(context.Background(), "saved", "D", 5), 1)
	assert.True(t, vs.DeleteDocumentVectors(context.Background(), "D"))
	assert.Empty(t, vs.GetDocumentChunks(context.Background(), "D"))
}

func TestVectorStats(t *testing.T) {
	vs, e := newTestVectorStore(nil)
	assert.Equal(t, domain.VectorStats{}, vs.Stats(context.Background()))

	save(t, vs, e, "A", 0, "one")
	save(t, vs, e, "A", 1, "two")
	save(t, vs, e, "A", 2, "three")
	save(t, vs, e, "B", 0, "four")

	stats := vs.Stats(context.Background())
	assert.Equal(t, 4, stats.TotalChunks)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.InDelta(t, 2.0, stats.AverageChunksPerDocument, 1e-9)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "scaled", a: []float32{1, 1}, b: []float32{3, 3}, want: 1},
		{name: "zero norm", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}
