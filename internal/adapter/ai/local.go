package ai

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// LocalEmbedder derives a deterministic pseudo-embedding from the characters
// of the text. It never calls out and never fails, so identical input always
// yields a bit-identical vector.
type LocalEmbedder struct {
	dimension int
}

// NewLocalEmbedder creates a local embedder of the given dimension.
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	return &LocalEmbedder{dimension: dimension}
}

// ModelName identifies the local function in logs.
func (l *LocalEmbedder) ModelName() string {
	return "local-fallback"
}

// Dimension returns the vector length.
func (l *LocalEmbedder) Dimension() int {
	return l.dimension
}

// Embed returns nil for text without any non-space content.
func (l *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return l.vector(text), nil
}

func (l *LocalEmbedder) vector(text string) []float32 {
	raw := make([]float64, l.dimension)

	runes := []rune(text)
	for i, r := range runes {
		if i >= l.dimension {
			break
		}
		raw[i] = math.Sin(float64(r)*float64(i+1)) * 0.1
	}

	features := []float64{
		math.Tanh(float64(len(runes)) / 1000),
		math.Tanh(float64(len(strings.Fields(text))) / 100),
		indicator(strings.IndexFunc(text, unicode.IsDigit) >= 0),
		indicator(strings.IndexFunc(text, unicode.IsUpper) >= 0),
		indicator(strings.IndexFunc(text, unicode.IsPunct) >= 0),
	}
	copy(raw, features)

	var norm float64
	for _, v := range raw {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, l.dimension)
	for i, v := range raw {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}
	return out
}

func indicator(b bool) float64 {
	if b {
		return 0.5
	}
	return -0.5
}
