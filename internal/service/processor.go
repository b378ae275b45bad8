package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

// JobProcessor runs the per-file pipeline shared by both queue backends:
// extract, store the document, then the optional vectorize, summary and
// keyword steps.
type JobProcessor struct {
	extractor  port.TextExtractor
	documents  port.DocumentStore
	vectorizer *Vectorizer
	summarizer *Summarizer
}

// NewJobProcessor creates the processor.
func NewJobProcessor(extractor port.TextExtractor, documents port.DocumentStore, vectorizer *Vectorizer, summarizer *Summarizer) *JobProcessor {
	return &JobProcessor{
		extractor:  extractor,
		documents:  documents,
		vectorizer: vectorizer,
		summarizer: summarizer,
	}
}

// Process handles the files in order. A file that fails is recorded and the
// next one is processed; only a cancelled context fails the whole job.
func (p *JobProcessor) Process(ctx context.Context, payload domain.JobPayload, progress port.ProgressFunc) (*domain.JobResult, error) {
	if progress == nil {
		progress = func(domain.Progress) {}
	}
	opts := payload.EffectiveOptions()
	total := len(payload.Files)
	result := &domain.JobResult{Files: make([]domain.FileResult, 0, total)}

	for i, file := range payload.Files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("job interrupted: %w", err)
		}
		progress(domain.Progress{Total: total, Handled: i, Processed: result.Processed, Failed: result.Failed, CurrentFile: file.OriginalName})

		fr := p.processFile(ctx, payload.UserID, file, opts)
		if fr.Status == domain.FileFailed && ctx.Err() != nil {
			return nil, fmt.Errorf("job interrupted: %w", ctx.Err())
		}

		result.Files = append(result.Files, fr)
		if fr.Status == domain.FileFailed {
			result.Failed++
		} else {
			result.Processed++
		}
		progress(domain.Progress{Total: total, Handled: i + 1, Processed: result.Processed, Failed: result.Failed})
	}

	return result, nil
}

func (p *JobProcessor) processFile(ctx context.Context, userID string, file domain.FileDescriptor, opts domain.ProcessingOptions) domain.FileResult {
	fr := domain.FileResult{FileID: file.FileID, OriginalName: file.OriginalName}
	fail := func(err error) domain.FileResult {
		slog.Warn("file processing failed", "file_id", file.FileID, "name", file.OriginalName, "error", err)
		fr.Status = domain.FileFailed
		fr.Error = err.Error()
		return fr
	}

	// 1. Extract text
	extracted, err := p.extractor.Extract(ctx, file.FilePath, file.MimeType)
	if err != nil {
		return fail(fmt.Errorf("extract: %w", err))
	}
	fr.PageCount = extracted.PageCount

	// 2. Persist the document
	doc, err := p.documents.CreateDocument(ctx, domain.NewDocument{
		FileID:       file.FileID,
		OriginalName: file.OriginalName,
		FileSize:     file.FileSize,
		PageCount:    extracted.PageCount,
		TextContent:  extracted.TextContent,
		FilePath:     file.FilePath,
		UserID:       userID,
	})
	if err != nil {
		return fail(fmt.Errorf("create document: %w", err))
	}
	fr.DocumentID = doc.ID

	// 3. Optional steps
	if opts.Vectorize {
		if !p.vectorizer.Vectorize(ctx, doc.ID, doc.TextContent) {
			return fail(errors.New("vectorization did not complete"))
		}
		fr.Vectorized = true
	}
	if opts.GenerateSummary {
		fr.Summary = p.summarizer.Summarize(ctx, doc.TextContent)
	}
	if opts.ExtractKeywords {
		fr.Keywords = p.summarizer.Keywords(doc.TextContent)
	}

	// 4. Drop the upload once it is no longer needed
	if opts.DeleteAfterProcessing {
		if err := os.Remove(file.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("delete processed file failed", "path", file.FilePath, "error", err)
		}
	}

	fr.Status = domain.FileCompleted
	slog.Info("file processed", "file_id", file.FileID, "document_id", doc.ID, "pages", fr.PageCount)
	return fr
}
