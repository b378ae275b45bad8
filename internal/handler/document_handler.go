package handler

import (
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arturoeanton/docintel/internal/adapter/extract"
	"github.com/arturoeanton/docintel/internal/adapter/store"
	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/middleware"
	"github.com/arturoeanton/docintel/internal/port"
	"github.com/arturoeanton/docintel/internal/service"
)

// DocumentHandler handles uploads, batch status and per-document vector operations.
type DocumentHandler struct {
	batches    *service.BatchService
	queue      *service.QueueService
	documents  port.DocumentStore
	vectors    *store.VectorStore
	vectorizer *service.Vectorizer
	uploadDir  string
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(
	batches *service.BatchService,
	queue *service.QueueService,
	documents port.DocumentStore,
	vectors *store.VectorStore,
	vectorizer *service.Vectorizer,
	uploadDir string,
) *DocumentHandler {
	return &DocumentHandler{
		batches:    batches,
		queue:      queue,
		documents:  documents,
		vectors:    vectors,
		vectorizer: vectorizer,
		uploadDir:  uploadDir,
	}
}

// Register sets up document routes.
func (h *DocumentHandler) Register(router fiber.Router) {
	router.Post("/documents", h.Upload)

	docs := router.Group("/documents")
	docs.Post("/batch", h.UploadBatch)
	docs.Get("/:id/chunks", h.Chunks)
	docs.Delete("/:id/vectors", h.DeleteVectors)
	docs.Post("/:id/vectorize", h.Vectorize)

	router.Get("/batches/:id", h.BatchStatus)
}

// Upload queues a single document from the multipart field "file".
func (h *DocumentHandler) Upload(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	desc, err := h.save(c, fh)
	if err != nil {
		return fail(c, err)
	}

	opts := formOptions(c)
	jobID, err := h.queue.Submit(c.Context(), domain.JobPayload{
		Type:    jobTypeFor(opts),
		UserID:  middleware.GetUserID(c),
		Files:   []domain.FileDescriptor{desc},
		Options: &opts,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"jobId":  jobID,
		"fileId": desc.FileID,
	})
}

// UploadBatch queues one job per file from the multipart field "files".
func (h *DocumentHandler) UploadBatch(c fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "multipart form required"})
	}
	headers := form.File["files"]
	if err := h.batches.CheckSize(len(headers)); err != nil {
		return fail(c, err)
	}

	// Reject the whole batch before anything touches disk
	for _, fh := range headers {
		if mt := mimeOf(fh); !extract.Supported(mt) {
			return fail(c, fmt.Errorf("%s: %w: %s", fh.Filename, port.ErrUnsupportedMIME, mt))
		}
	}

	files := make([]domain.FileDescriptor, 0, len(headers))
	for _, fh := range headers {
		desc, err := h.save(c, fh)
		if err != nil {
			return fail(c, err)
		}
		files = append(files, desc)
	}

	sub, err := h.batches.SubmitBatch(c.Context(), middleware.GetUserID(c), files, formOptions(c))
	if err != nil {
		return fail(c, err)
	}

	slog.Info("batch accepted", "batch_id", sub.BatchID, "files", len(files))
	return c.Status(fiber.StatusAccepted).JSON(sub)
}

// BatchStatus aggregates the jobs of a batch.
func (h *DocumentHandler) BatchStatus(c fiber.Ctx) error {
	sum, err := h.batches.Aggregate(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sum)
}

// Chunks lists the stored chunks of a document.
func (h *DocumentHandler) Chunks(c fiber.Ctx) error {
	id := c.Params("id")
	chunks := h.vectors.GetDocumentChunks(c.Context(), id)
	return c.JSON(fiber.Map{
		"documentId": id,
		"chunks":     chunks,
		"count":      len(chunks),
	})
}

// DeleteVectors drops every chunk and vector of a document.
func (h *DocumentHandler) DeleteVectors(c fiber.Ctx) error {
	id := c.Params("id")
	if !h.vectors.DeleteDocumentVectors(c.Context(), id) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete vectors failed"})
	}
	return c.JSON(fiber.Map{"documentId": id, "deleted": true})
}

// Vectorize rebuilds the vectors of a stored document from its text.
func (h *DocumentHandler) Vectorize(c fiber.Ctx) error {
	doc, err := h.documents.GetDocument(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}

	h.vectors.DeleteDocumentVectors(c.Context(), doc.ID)
	ok := h.vectorizer.Vectorize(c.Context(), doc.ID, doc.TextContent)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "vectorization did not complete"})
	}

	chunks := h.vectors.GetDocumentChunks(c.Context(), doc.ID)
	return c.JSON(fiber.Map{
		"documentId": doc.ID,
		"vectorized": true,
		"chunks":     len(chunks),
	})
}

// save writes the upload under uploadDir with a fresh file id.
func (h *DocumentHandler) save(c fiber.Ctx, fh *multipart.FileHeader) (domain.FileDescriptor, error) {
	mt := mimeOf(fh)
	if !extract.Supported(mt) {
		return domain.FileDescriptor{}, fmt.Errorf("%s: %w: %s", fh.Filename, port.ErrUnsupportedMIME, mt)
	}
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return domain.FileDescriptor{}, fmt.Errorf("create upload dir: %w", err)
	}

	id := uuid.New().String()
	path := filepath.Join(h.uploadDir, id+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveFile(fh, path); err != nil {
		return domain.FileDescriptor{}, fmt.Errorf("save upload %s: %w", fh.Filename, err)
	}

	return domain.FileDescriptor{
		FileID:       id,
		OriginalName: fh.Filename,
		FilePath:     path,
		FileSize:     fh.Size,
		MimeType:     mt,
	}, nil
}

// mimeOf trusts the part's Content-Type unless it is missing or generic.
func mimeOf(fh *multipart.FileHeader) string {
	mt := fh.Header.Get("Content-Type")
	if mt == "" || strings.HasPrefix(mt, "application/octet-stream") {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); byExt != "" {
			return byExt
		}
	}
	return mt
}

func formOptions(c fiber.Ctx) domain.ProcessingOptions {
	flag := func(key string) bool {
		b, _ := strconv.ParseBool(c.FormValue(key))
		return b
	}
	return domain.ProcessingOptions{
		GenerateSummary:       flag("generateSummary"),
		ExtractKeywords:       flag("extractKeywords"),
		Vectorize:             flag("vectorize"),
		DeleteAfterProcessing: flag("deleteAfterProcessing"),
	}
}

func jobTypeFor(opts domain.ProcessingOptions) domain.JobType {
	switch {
	case opts.Vectorize && !opts.GenerateSummary && !opts.ExtractKeywords:
		return domain.JobVectorizeDocument
	default:
		return domain.JobProcessSingleDocument
	}
}
