package service

import (
	"context"
	"log/slog"

	"github.com/arturoeanton/docintel/internal/port"
)

// ChunkVectorSaver is the part of the vector store the vectorizer writes to.
type ChunkVectorSaver interface {
	SaveChunkVector(ctx context.Context, documentID, content string, vector []float32, chunkIndex int, pageNumber *int) bool
}

// Vectorizer splits a document's text, embeds every chunk and stores it.
type Vectorizer struct {
	splitter *TextSplitter
	embedder port.EmbeddingProvider
	store    ChunkVectorSaver
}

// NewVectorizer creates a vectorizer.
func NewVectorizer(splitter *TextSplitter, embedder port.EmbeddingProvider, store ChunkVectorSaver) *Vectorizer {
	return &Vectorizer{splitter: splitter, embedder: embedder, store: store}
}

// Vectorize reports true once every chunk has been attempted, even if some
// were skipped. It reports false only when the attempt itself is aborted:
// a cancelled context or a panic.
func (v *Vectorizer) Vectorize(ctx context.Context, documentID, text string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("vectorization aborted", "document_id", documentID, "panic", r)
			ok = false
		}
	}()

	chunks := v.splitter.Split(text)
	saved, skipped := 0, 0

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			slog.Error("vectorization cancelled", "document_id", documentID, "chunk_index", i, "error", err)
			return false
		}

		vec, err := v.embedder.Embed(ctx, chunk)
		if err != nil || vec == nil {
			slog.Warn("skipping chunk without embedding", "document_id", documentID, "chunk_index", i, "error", err)
			skipped++
			continue
		}

		if v.store.SaveChunkVector(ctx, documentID, chunk, vec, i, nil) {
			saved++
		} else {
			skipped++
		}
	}

	slog.Info("document vectorized", "document_id", documentID, "chunks", len(chunks), "saved", saved, "skipped", skipped)
	return true
}
