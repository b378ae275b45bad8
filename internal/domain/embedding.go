package domain

import (
	"time"
	"unicode/utf8"
)

// EmbeddingDimension is the length of every vector stored by the system.
const EmbeddingDimension = 1536

// Chunk is one overlapping slice of a document's text.
// (DocumentID, ChunkIndex) is the join key between chunk metadata and its vector.
type Chunk struct {
	DocumentID string    `json:"document_id"           db:"document_id"`
	ChunkIndex int       `json:"chunk_index"           db:"chunk_index"`
	Content    string    `json:"content"               db:"content"`
	TokenCount int       `json:"token_count"           db:"token_count"`
	PageNumber *int      `json:"page_number,omitempty" db:"page_number"`
	CreatedAt  time.Time `json:"created_at"            db:"created_at"`
}

// ChunkVector pairs a chunk with its embedding.
type ChunkVector struct {
	Chunk
	Vector []float32 `json:"-"`
}

// SearchResult is returned by semantic search, including the similarity score.
type SearchResult struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	PageNumber *int    `json:"page_number,omitempty"`
}

// VectorStats summarizes what the vector store holds.
type VectorStats struct {
	TotalChunks              int     `json:"total_chunks"`
	TotalDocuments           int     `json:"total_documents"`
	AverageChunksPerDocument float64 `json:"average_chunks_per_document"`
}

// EstimateTokens approximates a token count as ceil(chars/4).
func EstimateTokens(content string) int {
	n := utf8.RuneCountInString(content)
	return (n + 3) / 4
}

// NewVectorStats computes the average from the two totals.
func NewVectorStats(totalChunks, totalDocuments int) VectorStats {
	stats := VectorStats{TotalChunks: totalChunks, TotalDocuments: totalDocuments}
	if totalDocuments > 0 {
		stats.AverageChunksPerDocument = float64(totalChunks) / float64(totalDocuments)
	}
	return stats
}

// RAGAnswer is an LLM answer together with the chunks it was grounded on.
type RAGAnswer struct {
	Answer  string         `json:"answer"`
	Sources []SearchResult `json:"sources"`
}
