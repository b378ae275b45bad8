package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

const ragSystemPrompt = `You are a document assistant. Answer the question using only the provided document excerpts.
If the excerpts do not contain the answer, say so. Mention the excerpt numbers you relied on.`

// Searcher ranks stored chunks against a query.
type Searcher interface {
	SemanticSearch(ctx context.Context, query, documentID string, limit int) []domain.SearchResult
}

// RAGService answers questions over vectorized documents.
type RAGService struct {
	chat     port.ChatProvider
	searcher Searcher
}

// NewRAGService creates a new RAG service.
func NewRAGService(chat port.ChatProvider, searcher Searcher) *RAGService {
	return &RAGService{chat: chat, searcher: searcher}
}

// Query performs a semantic search, then asks the chat model with the hits
// as context. When the model fails the hits are still returned with the error.
func (s *RAGService) Query(ctx context.Context, question, documentID string, limit int) (*domain.RAGAnswer, error) {
	slog.Info("RAG query", "document_id", documentID, "question", question)

	// 1. Retrieve similar chunks
	hits := s.searcher.SemanticSearch(ctx, question, documentID, limit)
	answer := &domain.RAGAnswer{Sources: hits}
	if len(hits) == 0 {
		answer.Answer = "No relevant content found for this question."
		return answer, nil
	}
	if s.chat == nil {
		return answer, port.ErrNoChatProvider
	}

	// 2. Build context from retrieved chunks
	contextParts := make([]string, len(hits))
	for i, h := range hits {
		contextParts[i] = fmt.Sprintf("[document %s, chunk %d, similarity %.2f]\n%s", h.DocumentID, h.ChunkIndex, h.Similarity, h.Content)
	}

	// 3. Generate the answer
	text, err := s.chat.Chat(ctx, ragSystemPrompt, question, contextParts)
	if err != nil {
		return answer, fmt.Errorf("chat: %w", err)
	}
	answer.Answer = text
	return answer, nil
}
