package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
)

// AuditRecord describes one request that changed state.
type AuditRecord struct {
	UserID     string
	Method     string
	Path       string
	Status     int
	DurationMS int64
	IP         string
}

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(rec AuditRecord) error
}

// SlogAuditWriter writes audit records to the structured log.
type SlogAuditWriter struct{}

// WriteAudit implements AuditWriter.
func (SlogAuditWriter) WriteAudit(rec AuditRecord) error {
	slog.Info("audit",
		"user_id", rec.UserID,
		"method", rec.Method,
		"path", rec.Path,
		"status", rec.Status,
		"duration_ms", rec.DurationMS,
		"ip", rec.IP,
	)
	return nil
}

// AuditMiddleware records every mutating request (uploads, cancels, deletes).
// Reads are left to the access log.
func AuditMiddleware(writer AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Capture request data BEFORE handler execution (Fiber reuses context objects)
		method := c.Method()
		path := c.Path()
		ip := c.IP()

		err := c.Next()

		if method == fiber.MethodGet || method == fiber.MethodHead || method == fiber.MethodOptions {
			return err
		}

		rec := AuditRecord{
			UserID:     GetUserID(c),
			Method:     method,
			Path:       path,
			Status:     c.Response().StatusCode(),
			DurationMS: time.Since(start).Milliseconds(),
			IP:         ip,
		}
		if writeErr := writer.WriteAudit(rec); writeErr != nil {
			slog.Error("failed to write audit log", "error", writeErr)
		}
		return err
	}
}
