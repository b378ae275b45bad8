// Package extract turns uploaded files into plain text.
// PDFs are validated with pdfcpu and read page by page; text formats are read as-is.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

const mimePDF = "application/pdf"

var textMIMEs = map[string]bool{
	"application/json":     true,
	"application/xml":      true,
	"application/x-ndjson": true,
}

// Extractor implements port.TextExtractor.
type Extractor struct{}

// NewExtractor creates an extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether the mime type yields text.
func Supported(mimeType string) bool {
	mimeType = normalizeMIME(mimeType)
	return mimeType == mimePDF || strings.HasPrefix(mimeType, "text/") || textMIMEs[mimeType]
}

// Extract reads the file at path. Unsupported types yield empty text and a
// page count of 1. A file that cannot be read or a PDF that cannot be parsed
// is an error.
func (e *Extractor) Extract(ctx context.Context, path string, mimeType string) (domain.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExtractedText{}, err
	}

	mimeType = normalizeMIME(mimeType)
	switch {
	case mimeType == mimePDF:
		return e.extractPDF(path)
	case Supported(mimeType):
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.ExtractedText{}, fmt.Errorf("read text file: %w", err)
		}
		return domain.ExtractedText{TextContent: string(data), PageCount: 1}, nil
	default:
		slog.Warn("no extractor for mime type", "mime", mimeType, "path", path, "error", port.ErrUnsupportedMIME)
		return domain.ExtractedText{PageCount: 1}, nil
	}
}

// extractPDF validates the file and counts pages with pdfcpu, then pulls the
// text of each page with the pdf reader.
func (e *Extractor) extractPDF(path string) (domain.ExtractedText, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("read pdf: %w", err)
	}
	pageCount := max(pdfCtx.PageCount, 1)

	text, err := pageText(path)
	if err != nil {
		// Structure is readable but the text is not; keep the page count.
		slog.Warn("pdf text extraction failed", "path", path, "error", err)
		return domain.ExtractedText{PageCount: pageCount}, nil
	}
	return domain.ExtractedText{TextContent: text, PageCount: pageCount}, nil
}

// pageText joins the non-empty pages with a blank line. The reader panics on
// malformed objects, so a panic is turned into an error.
func pageText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fonts := make(map[string]*pdf.Font)
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}
		pt, err := p.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pt = strings.TrimSpace(pt)
		if pt == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pt)
	}
	return sb.String(), nil
}

func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
