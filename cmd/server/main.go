package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arturoeanton/docintel/internal/adapter/ai"
	"github.com/arturoeanton/docintel/internal/adapter/extract"
	"github.com/arturoeanton/docintel/internal/adapter/queue"
	"github.com/arturoeanton/docintel/internal/adapter/store"
	"github.com/arturoeanton/docintel/internal/handler"
	"github.com/arturoeanton/docintel/internal/middleware"
	"github.com/arturoeanton/docintel/internal/port"
	"github.com/arturoeanton/docintel/internal/service"
	"github.com/arturoeanton/docintel/pkg/config"
	"github.com/dgraph-io/badger/v4"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("🚀 Starting DocIntel",
		"port", cfg.Port,
		"database", cfg.DSN(),
		"queue_backend", cfg.QueueBackend,
		"ollama_embed", cfg.OllamaEmbedURL,
		"ollama_chat", cfg.OllamaChatURL,
		"embedding_enabled", cfg.EmbeddingEnabled,
	)

	// ── Storage ──────────────────────────────────────────────────────────
	memStore := store.NewMemoryStore()
	var (
		durableDocs   port.DocumentStore
		durableChunks port.ChunkStore
		pgStore       *store.PostgresStore
	)
	if cfg.DatabaseURL != "" {
		var err error
		pgStore, err = store.NewPostgresStore(cfg.DatabaseURL)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = pgStore.Migrate(ctx)
			cancel()
		}
		if err != nil {
			slog.Warn("postgres unavailable, using in-process store", "error", err)
			if pgStore != nil {
				pgStore.Close()
				pgStore = nil
			}
		} else {
			durableDocs, durableChunks = pgStore, pgStore
		}
	}
	documents := store.NewFailoverDocumentStore(durableDocs, memStore)
	chunks := store.NewFailoverChunkStore(durableChunks, memStore)

	// ── AI ───────────────────────────────────────────────────────────────
	ollama := ai.NewOllamaClient(
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaEmbedURL,
			Model:   cfg.OllamaEmbedModel,
			Token:   cfg.OllamaEmbedToken,
		},
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaChatURL,
			Model:   cfg.OllamaChatModel,
			Token:   cfg.OllamaChatToken,
		},
		cfg.EmbeddingDimension,
	)
	var primary port.EmbeddingProvider
	if cfg.EmbeddingEnabled {
		primary = ollama
	}
	embedder := ai.NewResilientEmbedder(primary, ai.NewLocalEmbedder(cfg.EmbeddingDimension), cfg.EmbedRateLimit)

	// ── Services ─────────────────────────────────────────────────────────
	vectorStore := store.NewVectorStore(chunks, store.NewVectorIndex(), embedder)
	splitter := service.NewTextSplitter(service.WithChunkSize(cfg.ChunkSize), service.WithChunkOverlap(cfg.ChunkOverlap))
	vectorizer := service.NewVectorizer(splitter, embedder, vectorStore)
	processor := service.NewJobProcessor(extract.NewExtractor(), documents, vectorizer, service.NewSummarizer(ollama))
	ragService := service.NewRAGService(ollama, vectorStore)

	// ── Queues ───────────────────────────────────────────────────────────
	memQueue := queue.NewMemoryQueue(processor)
	var (
		durableQueue *queue.BadgerQueue
		queueDB      *badger.DB
	)
	if cfg.QueueBackend == "badger" {
		var err error
		durableQueue, queueDB, err = openBadgerQueue(cfg, processor)
		if err != nil {
			slog.Warn("durable queue unavailable, using in-process queue", "path", cfg.QueuePath, "error", err)
		}
	}
	var durable port.JobQueue
	if durableQueue != nil {
		durable = durableQueue
	}
	queueService := service.NewQueueService(durable, memQueue)
	batchService := service.NewBatchService(queueService, cfg.MaxBatchFiles)

	scheduler := service.NewScheduler(queueService)
	if err := scheduler.Start(cfg.CleanupSchedule); err != nil {
		slog.Error("invalid cleanup schedule", "schedule", cfg.CleanupSchedule, "error", err)
		os.Exit(1)
	}

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		BodyLimit:    100 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", middleware.UserHeader},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
	}))
	app.Use(middleware.UserMiddleware())
	app.Use(middleware.AuditMiddleware(middleware.SlogAuditWriter{}))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
			"queue":   queueService.Backend(),
			"storage": cfg.DSN(),
		})
	})

	// ── Routes ───────────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	jobsHandler := handler.NewJobsHandler(queueService, cfg.QueuePollInterval)
	jobsHandler.Register(api)

	documentHandler := handler.NewDocumentHandler(batchService, queueService, documents, vectorStore, vectorizer, cfg.UploadDir)
	documentHandler.Register(api)

	ragHandler := handler.NewRAGHandler(ragService, vectorStore)
	ragHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("🌐 Fiber listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// ── Shutdown ─────────────────────────────────────────────────────────
	slog.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	scheduler.Stop()
	if durableQueue != nil {
		if err := durableQueue.Close(); err != nil {
			slog.Warn("close durable queue", "error", err)
		}
	}
	if err := memQueue.Close(); err != nil {
		slog.Warn("close in-process queue", "error", err)
	}
	if queueDB != nil {
		if err := queueDB.Close(); err != nil {
			slog.Warn("close badger", "error", err)
		}
	}
	if pgStore != nil {
		pgStore.Close()
	}
	slog.Info("bye")
}

// openBadgerQueue opens the queue database and starts its workers.
func openBadgerQueue(cfg *config.Config, processor port.JobProcessor) (*queue.BadgerQueue, *badger.DB, error) {
	if err := os.MkdirAll(cfg.QueuePath, 0o755); err != nil {
		return nil, nil, err
	}
	db, err := badger.Open(badger.DefaultOptions(cfg.QueuePath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, nil, err
	}

	opts := queue.DefaultBadgerOptions()
	opts.Workers = cfg.QueueConcurrency
	opts.PollInterval = cfg.QueuePollInterval

	q, err := queue.NewBadgerQueue(db, processor, opts)
	if err == nil {
		err = q.Start()
	}
	if err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}
	return q, db, nil
}
