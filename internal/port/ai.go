package port

import "context"

// EmbeddingProvider turns text into a fixed-length vector.
// Implementations can target Ollama, a deterministic local function, or a
// combination of both.
type EmbeddingProvider interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// Dimension returns the length of every vector produced.
	Dimension() int

	// Embed generates a vector embedding for the given text.
	// A nil vector with a nil error means the text carried no content.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChatProvider abstracts the LLM used for summaries and RAG answers.
type ChatProvider interface {
	// Chat sends a prompt with optional context chunks and returns the LLM response.
	Chat(ctx context.Context, systemPrompt string, userPrompt string, contextChunks []string) (string, error)
}
