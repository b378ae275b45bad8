package handler

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/docintel/internal/adapter/store"
	"github.com/arturoeanton/docintel/internal/service"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// RAGHandler handles semantic search and RAG query endpoints.
type RAGHandler struct {
	ragService *service.RAGService
	vectors    *store.VectorStore
}

// NewRAGHandler creates a new RAG handler.
func NewRAGHandler(ragService *service.RAGService, vectors *store.VectorStore) *RAGHandler {
	return &RAGHandler{ragService: ragService, vectors: vectors}
}

// Register sets up search and RAG routes.
func (h *RAGHandler) Register(router fiber.Router) {
	router.Post("/search", h.Search)
	router.Get("/vectors/stats", h.Stats)

	rag := router.Group("/rag")
	rag.Post("/query", h.Query)
}

// Search ranks stored chunks against a free-text query.
func (h *RAGHandler) Search(c fiber.Ctx) error {
	var body struct {
		Query      string `json:"query"`
		DocumentID string `json:"documentId"`
		Limit      int    `json:"limit"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}

	results := h.vectors.SemanticSearch(c.Context(), body.Query, body.DocumentID, clampLimit(body.Limit, defaultSearchLimit, maxSearchLimit))
	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}

// Stats returns chunk and document counts.
func (h *RAGHandler) Stats(c fiber.Ctx) error {
	return c.JSON(h.vectors.Stats(c.Context()))
}

// Query answers a question from the most similar chunks.
func (h *RAGHandler) Query(c fiber.Ctx) error {
	var body struct {
		Question   string `json:"question"`
		DocumentID string `json:"documentId"`
		Limit      int    `json:"limit"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Question) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question is required"})
	}

	answer, err := h.ragService.Query(c.Context(), body.Question, body.DocumentID, clampLimit(body.Limit, defaultSearchLimit, maxSearchLimit))
	if err != nil {
		// The retrieved sources are still useful without the model's answer
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   err.Error(),
			"sources": answer.Sources,
		})
	}
	return c.JSON(answer)
}
