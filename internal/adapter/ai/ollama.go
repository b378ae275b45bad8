package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arturoeanton/docintel/internal/port"
)

// OllamaEndpointConfig holds the configuration for a single Ollama endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. nomic-embed-text, qwen3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// OllamaClient talks to the Ollama REST API.
// Embed and chat may point at different URLs, models and tokens.
type OllamaClient struct {
	embed      OllamaEndpointConfig
	chat       OllamaEndpointConfig
	dimension  int
	httpClient *http.Client
}

// NewOllamaClient creates a client producing vectors of the given dimension.
func NewOllamaClient(embed, chat OllamaEndpointConfig, dimension int) *OllamaClient {
	return &OllamaClient{
		embed:      embed,
		chat:       chat,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ModelName returns the embedding model identifier.
func (o *OllamaClient) ModelName() string {
	return o.embed.Model
}

// Dimension returns the expected embedding length.
func (o *OllamaClient) Dimension() int {
	return o.dimension
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates a vector embedding for the given text.
func (o *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := o.post(ctx, o.embed, "/api/embed", embedRequest{Model: o.embed.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama embed: %w", port.ErrEmptyEmbedding)
	}

	vec := resp.Embeddings[0]
	if o.dimension > 0 && len(vec) != o.dimension {
		return nil, fmt.Errorf("ollama embed: got %d want %d: %w", len(vec), o.dimension, port.ErrDimensionMismatch)
	}
	return vec, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// Chat sends a prompt with context chunks and returns the complete response.
func (o *OllamaClient) Chat(ctx context.Context, systemPrompt string, userPrompt string, contextChunks []string) (string, error) {
	payload := chatRequest{
		Model: o.chat.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(userPrompt, contextChunks)},
		},
	}

	body, err := o.post(ctx, o.chat, "/api/chat", payload)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	var resp struct {
		Message chatMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("ollama chat decode: %w", err)
	}

	return strings.TrimSpace(resp.Message.Content), nil
}

func buildPrompt(question string, contextChunks []string) string {
	if len(contextChunks) == 0 {
		return question
	}
	var sb strings.Builder
	sb.WriteString("Relevant document excerpts:\n")
	for i, chunk := range contextChunks {
		fmt.Fprintf(&sb, "\n--- Excerpt %d ---\n%s\n", i+1, chunk)
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

// post is a helper for POST requests to an Ollama endpoint (with optional bearer token).
func (o *OllamaClient) post(ctx context.Context, cfg OllamaEndpointConfig, path string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(cfg.BaseURL, "/")+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
