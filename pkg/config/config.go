package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port    string
	AppName string

	// Database (empty = in-process store only)
	DatabaseURL string

	// Queue
	QueueBackend      string // badger | memory
	QueuePath         string
	QueueConcurrency  int
	QueuePollInterval time.Duration
	CleanupSchedule   string

	// Ollama: embed endpoint
	OllamaEmbedURL   string
	OllamaEmbedModel string
	OllamaEmbedToken string // Bearer token for Ollama Cloud (empty = local)

	// Ollama: chat endpoint (summaries, RAG answers)
	OllamaChatURL   string
	OllamaChatModel string
	OllamaChatToken string // Bearer token for Ollama Cloud (empty = local)

	// Embeddings
	EmbeddingEnabled   bool
	EmbeddingDimension int
	EmbedRateLimit     float64 // requests per second

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Uploads
	UploadDir     string
	MaxBatchFiles int

	// Frontend
	FrontendURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envOrDefault("PORT", "3001"),
		AppName: envOrDefault("APP_NAME", "DocIntel"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		QueueBackend:      envOrDefault("QUEUE_BACKEND", "badger"),
		QueuePath:         envOrDefault("QUEUE_PATH", "./data/queue"),
		QueueConcurrency:  envOrDefaultInt("QUEUE_CONCURRENCY", 2),
		QueuePollInterval: envOrDefaultDuration("QUEUE_POLL_INTERVAL", 500*time.Millisecond),
		CleanupSchedule:   envOrDefault("CLEANUP_SCHEDULE", "@every 1h"),

		OllamaEmbedURL:   envOrDefault("OLLAMA_EMBED_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaEmbedModel: envOrDefault("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaEmbedToken: os.Getenv("OLLAMA_EMBED_TOKEN"),

		OllamaChatURL:   envOrDefault("OLLAMA_CHAT_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaChatModel: envOrDefault("OLLAMA_CHAT_MODEL", "qwen3"),
		OllamaChatToken: os.Getenv("OLLAMA_CHAT_TOKEN"),

		EmbeddingEnabled:   envOrDefaultBool("EMBEDDING_ENABLED", true),
		EmbeddingDimension: envOrDefaultInt("EMBEDDING_DIMENSION", 1536),
		EmbedRateLimit:     envOrDefaultFloat("EMBED_RATE_LIMIT", 10),

		ChunkSize:    envOrDefaultInt("CHUNK_SIZE", 1000),
		ChunkOverlap: envOrDefaultInt("CHUNK_OVERLAP", 200),

		UploadDir:     envOrDefault("UPLOAD_DIR", "./uploads"),
		MaxBatchFiles: envOrDefaultInt("MAX_BATCH_FILES", 10),

		FrontendURL: envOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}
}

// Validate rejects combinations the services cannot run with.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk size %d and overlap %d must satisfy size > overlap >= 0", c.ChunkSize, c.ChunkOverlap)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.EmbeddingDimension)
	}
	if c.QueueBackend != "badger" && c.QueueBackend != "memory" {
		return fmt.Errorf("unknown queue backend %q", c.QueueBackend)
	}
	return nil
}

// DSN returns a printable description of the database target (credentials masked).
func (c *Config) DSN() string {
	if c.DatabaseURL == "" {
		return "in-process"
	}
	return "postgres://***@*** (from DATABASE_URL)"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return fallback
}
