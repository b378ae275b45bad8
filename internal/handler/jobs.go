package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/docintel/internal/service"
)

const streamTimeout = 5 * time.Minute

// JobsHandler handles job status, progress streaming and cancellation.
type JobsHandler struct {
	queue        *service.QueueService
	pollInterval time.Duration
}

// NewJobsHandler creates a new jobs handler. pollInterval drives the SSE stream.
func NewJobsHandler(queue *service.QueueService, pollInterval time.Duration) *JobsHandler {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &JobsHandler{queue: queue, pollInterval: pollInterval}
}

// Register sets up job routes.
func (h *JobsHandler) Register(router fiber.Router) {
	jobs := router.Group("/jobs")
	jobs.Get("/:id", h.GetStatus)
	jobs.Get("/:id/stream", h.StreamSSE)
	jobs.Delete("/:id", h.Cancel)

	router.Get("/queue/stats", h.Stats)
	router.Post("/queue/cleanup", h.Cleanup)
}

// GetStatus returns the current job status.
func (h *JobsHandler) GetStatus(c fiber.Ctx) error {
	st, err := h.queue.Status(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(st)
}

// Cancel removes a job that has not started yet.
func (h *JobsHandler) Cancel(c fiber.Ctx) error {
	id := c.Params("id")
	if err := h.queue.Cancel(c.Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"jobId": id, "cancelled": true})
}

// Stats returns job counts per state across both backends.
func (h *JobsHandler) Stats(c fiber.Ctx) error {
	stats, err := h.queue.Stats(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"backend": h.queue.Backend(),
		"stats":   stats,
	})
}

// Cleanup applies the retention windows now instead of waiting for the scheduler.
func (h *JobsHandler) Cleanup(c fiber.Ctx) error {
	removed, err := h.queue.Cleanup(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// StreamSSE streams job updates via Server-Sent Events until the job is terminal.
func (h *JobsHandler) StreamSSE(c fiber.Ctx) error {
	id := c.Params("id")

	st, err := h.queue.Status(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// Already finished: one event and done
	if st.Status.Terminal() {
		return c.SendString(sseEvent(string(st.Status), st))
	}

	return c.SendStreamWriter(func(w *bufio.Writer) {
		fmt.Fprint(w, sseEvent("progress", st))
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(h.pollInterval)
		defer ticker.Stop()
		timeout := time.After(streamTimeout)
		last := st.Progress

		for {
			select {
			case <-ticker.C:
				cur, err := h.queue.Status(context.Background(), id)
				if err != nil {
					fmt.Fprint(w, sseEvent("error", fiber.Map{"error": err.Error()}))
					w.Flush()
					return
				}
				if cur.Status.Terminal() {
					fmt.Fprint(w, sseEvent(string(cur.Status), cur))
					w.Flush()
					return
				}
				if cur.Progress == last && cur.Status == st.Status {
					continue
				}
				last, st = cur.Progress, cur
				fmt.Fprint(w, sseEvent("progress", cur))
				if err := w.Flush(); err != nil {
					// client went away
					return
				}
			case <-timeout:
				slog.Warn("SSE timeout", "job_id", id)
				return
			}
		}
	})
}

func sseEvent(event string, v any) string {
	data, _ := json.Marshal(v)
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}
