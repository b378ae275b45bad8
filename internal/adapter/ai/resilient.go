package ai

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/arturoeanton/docintel/internal/port"
)

// ResilientEmbedder calls a live embedding provider and falls back to the
// local embedder on any error, so callers always get a vector for text
// with content.
type ResilientEmbedder struct {
	primary  port.EmbeddingProvider
	fallback *LocalEmbedder
	limiter  *rate.Limiter
}

// NewResilientEmbedder wires a live provider behind a rate limiter.
// A nil primary makes every call use the fallback. perSecond <= 0 disables limiting.
func NewResilientEmbedder(primary port.EmbeddingProvider, fallback *LocalEmbedder, perSecond float64) *ResilientEmbedder {
	limit := rate.Inf
	burst := 0
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = max(1, int(perSecond))
	}
	return &ResilientEmbedder{
		primary:  primary,
		fallback: fallback,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// ModelName returns the live model name, or the fallback's when none is set.
func (r *ResilientEmbedder) ModelName() string {
	if r.primary != nil {
		return r.primary.ModelName()
	}
	return r.fallback.ModelName()
}

// Dimension returns the fallback dimension, which the live provider must match.
func (r *ResilientEmbedder) Dimension() int {
	return r.fallback.Dimension()
}

// Embed never returns an error. Text without content yields nil.
func (r *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if r.primary == nil {
		return r.fallback.Embed(ctx, text)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		slog.Warn("embedding rate limiter aborted, using local embedding", "error", err)
		return r.fallback.Embed(ctx, text)
	}

	vec, err := r.primary.Embed(ctx, text)
	if err != nil {
		slog.Warn("embedding API failed, using local embedding", "model", r.primary.ModelName(), "error", err)
		return r.fallback.Embed(ctx, text)
	}
	if len(vec) != r.fallback.Dimension() {
		slog.Warn("embedding API returned wrong dimension, using local embedding",
			"got", len(vec), "want", r.fallback.Dimension())
		return r.fallback.Embed(ctx, text)
	}
	return vec, nil
}
