package service

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmpty(t *testing.T) {
	s := NewTextSplitter()
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\t "))
}

func TestSplitShortTextIsOneChunk(t *testing.T) {
	s := NewTextSplitter()
	text := strings.Repeat("short sentence. ", 30)
	chunks := s.Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(text), chunks[0])
}

func TestSplitWithoutBoundaries(t *testing.T) {
	s := NewTextSplitter()
	text := strings.Repeat("a", 2500)

	chunks := s.Split(text)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 900)
}

func TestSplitOverlapCarriesTail(t *testing.T) {
	s := NewTextSplitter(WithChunkSize(100), WithChunkOverlap(20))
	var sb strings.Builder
	for i := 0; sb.Len() < 450; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	text := sb.String()

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		assert.True(t, strings.HasPrefix(chunks[i], prev[len(prev)-20:]), "chunk %d", i)
	}
}

func TestSplitSnapsToBoundary(t *testing.T) {
	s := NewTextSplitter(WithChunkSize(100), WithChunkOverlap(10))
	text := strings.Repeat("The quick brown fox jumps. ", 20)

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		assert.LessOrEqual(t, len(c), 100)
		last := c[len(c)-1]
		// trailing space is trimmed, so the chunk ends on a word or period
		assert.NotEqual(t, byte(' '), last)
		assert.True(t, strings.Contains(text, c))
	}
}

func TestSplitIgnoresEarlyBoundary(t *testing.T) {
	s := NewTextSplitter(WithChunkSize(100), WithChunkOverlap(0))
	// only boundary sits before the midpoint, so the window is not shortened
	text := "ab " + strings.Repeat("x", 197)

	chunks := s.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, 100, len(chunks[0]))
}

func TestSplitCountsCharacters(t *testing.T) {
	s := NewTextSplitter(WithChunkSize(10), WithChunkOverlap(2))
	text := strings.Repeat("é", 25)

	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 10, utf8.RuneCountInString(chunks[0]))
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := NewTextSplitter(WithChunkSize(50), WithChunkOverlap(10))
	text := strings.Repeat("Lorem ipsum dolor sit amet.\n", 40)
	assert.Equal(t, s.Split(text), s.Split(text))
}

func TestSplitterClampsOverlap(t *testing.T) {
	s := NewTextSplitter(WithChunkSize(40), WithChunkOverlap(40))
	assert.Equal(t, 10, s.overlap)

	chunks := s.Split(strings.Repeat("z", 200))
	assert.NotEmpty(t, chunks)
}

func TestSplitSpansCoverText(t *testing.T) {
	const size, overlap = 100, 20
	s := NewTextSplitter(WithChunkSize(size), WithChunkOverlap(overlap))

	var sb strings.Builder
	for i := range 40 {
		fmt.Fprintf(&sb, "Clause %02d sets the terms for item %02d.", i, i)
		if i%7 == 6 {
			sb.WriteString("\n")
		} else {
			sb.WriteString(" ")
		}
	}
	text := strings.TrimSpace(sb.String())

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 10)

	prevStart, prevEnd := -1, 0
	for i, chunk := range chunks {
		off := strings.Index(text[prevStart+1:], chunk)
		require.GreaterOrEqual(t, off, 0, "chunk %d not found in source", i)
		start := prevStart + 1 + off
		end := start + len(chunk)

		if i == 0 {
			assert.Zero(t, start)
		} else {
			assert.LessOrEqual(t, start, prevEnd, "gap before chunk %d", i)
			assert.LessOrEqual(t, prevEnd-start, overlap, "chunk %d overlaps too much", i)
		}
		assert.LessOrEqual(t, len(chunk), size)
		prevStart, prevEnd = start, end
	}
	assert.Equal(t, len(text), prevEnd)
}
