package port

import (
	"context"

	"github.com/arturoeanton/docintel/internal/domain"
)

// DocumentStore persists extracted documents.
type DocumentStore interface {
	// CreateDocument stores a new document and returns it with its generated id.
	CreateDocument(ctx context.Context, doc domain.NewDocument) (*domain.Document, error)

	// GetDocument returns ErrDocumentNotFound when the id is unknown.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// ChunkStore persists chunk records keyed by (document id, chunk index).
// Whether the vector itself is kept depends on the implementation.
type ChunkStore interface {
	// SaveChunk inserts or replaces the chunk at its index.
	SaveChunk(ctx context.Context, chunk domain.ChunkVector) error

	// ListChunks returns a document's chunks ordered by chunk index.
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteChunks removes every chunk of a document. Unknown ids are not an error.
	DeleteChunks(ctx context.Context, documentID string) error

	// Stats counts stored chunks and distinct documents.
	Stats(ctx context.Context) (domain.VectorStats, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, path string, mimeType string) (domain.ExtractedText, error)
}
