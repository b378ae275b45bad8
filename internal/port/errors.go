package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrJobNotFound       = errors.New("job not found")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrJobNotCancellable = errors.New("job is not waiting and cannot be cancelled")
	ErrQueueClosed       = errors.New("queue closed")
	ErrEmptyEmbedding    = errors.New("embedding response contained no vectors")
	ErrUnsupportedMIME   = errors.New("unsupported mime type")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrNoChatProvider    = errors.New("no chat provider configured")
)
