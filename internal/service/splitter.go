package service

import "strings"

// DefaultChunkSize is the target number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the number of characters shared by consecutive chunks.
const DefaultChunkOverlap = 200

// TextSplitter cuts text into overlapping chunks, preferring to end a chunk
// right after a period, newline or space. It holds no state between calls.
type TextSplitter struct {
	size    int
	overlap int
}

// SplitterOption configures a TextSplitter.
type SplitterOption func(*TextSplitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) SplitterOption {
	return func(s *TextSplitter) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithChunkOverlap sets the overlap between chunks in characters.
func WithChunkOverlap(overlap int) SplitterOption {
	return func(s *TextSplitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// NewTextSplitter creates a splitter. An overlap not smaller than the size
// is reduced to a quarter of the size.
func NewTextSplitter(opts ...SplitterOption) *TextSplitter {
	s := &TextSplitter{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.size {
		s.overlap = s.size / 4
	}
	return s
}

// Split returns the trimmed, non-empty chunks of text in document order.
// Sizes are counted in characters, not bytes.
func (s *TextSplitter) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	chunks := []string{}

	start := 0
	for start < n {
		end := min(start+s.size, n)

		if end < n {
			// snap to the last boundary in the window if it is past the midpoint
			for i := end - 1; i > start+s.size/2; i-- {
				if isBoundary(runes[i]) {
					end = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= n {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func isBoundary(r rune) bool {
	return r == '.' || r == '\n' || r == ' '
}
