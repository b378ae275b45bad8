package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorizeSavesEveryChunkInOrder(t *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(50), WithChunkOverlap(10))
	saver := &recordingSaver{}
	v := NewVectorizer(splitter, &nilOnEmbedder{}, saver)

	text := strings.Repeat("Sentence number one is here. ", 10)
	require.True(t, v.Vectorize(context.Background(), "doc-1", text))

	want := splitter.Split(text)
	assert.Equal(t, want, saver.chunks)
	for i, idx := range saver.idx {
		assert.Equal(t, i, idx)
	}
}

func TestVectorizeSkipsChunksWithoutEmbedding(t *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(10), WithChunkOverlap(0))
	text := "aaaaaaaaa bbbbbbbbb ccccccccc"
	chunks := splitter.Split(text)
	require.Len(t, chunks, 3)

	saver := &recordingSaver{}
	v := NewVectorizer(splitter, &nilOnEmbedder{skip: map[string]bool{chunks[1]: true}}, saver)

	require.True(t, v.Vectorize(context.Background(), "doc-1", text))
	assert.Equal(t, []int{0, 2}, saver.idx)
}

func TestVectorizeEmptyText(t *testing.T) {
	saver := &recordingSaver{}
	v := NewVectorizer(NewTextSplitter(), &nilOnEmbedder{}, saver)

	assert.True(t, v.Vectorize(context.Background(), "doc-1", ""))
	assert.Empty(t, saver.chunks)
}

func TestVectorizeCancelled(t *testing.T) {
	v := NewVectorizer(NewTextSplitter(), &nilOnEmbedder{}, &recordingSaver{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, v.Vectorize(ctx, "doc-1", "some text"))
}

type panickingSaver struct{}

func (panickingSaver) SaveChunkVector(context.Context, string, string, []float32, int, *int) bool {
	panic("store exploded")
}

func TestVectorizeRecoversPanic(t *testing.T) {
	v := NewVectorizer(NewTextSplitter(), &nilOnEmbedder{}, panickingSaver{})
	assert.False(t, v.Vectorize(context.Background(), "doc-1", "some text"))
}
