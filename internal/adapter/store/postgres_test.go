package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresStoreFromDB(db), mock
}

func TestPostgresCreateDocument(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO documents")+".*"+regexp.QuoteMeta("RETURNING id, created_at")).
		WithArgs("f1", "report.pdf", int64(2048), 3, "body", "/uploads/f1.pdf", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("7b1c6c1e-0d5a-4a43-9a55-1f0d1c2b3a4e", created))

	doc, err := s.CreateDocument(context.Background(), domain.NewDocument{
		FileID:       "f1",
		OriginalName: "report.pdf",
		FileSize:     2048,
		PageCount:    3,
		TextContent:  "body",
		FilePath:     "/uploads/f1.pdf",
		UserID:       "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "7b1c6c1e-0d5a-4a43-9a55-1f0d1c2b3a4e", doc.ID)
	assert.Equal(t, created, doc.CreatedAt)
	assert.Equal(t, 3, doc.PageCount)
}

func TestPostgresGetDocumentByTextID(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "file_id", "original_name", "file_size", "page_count", "text_content", "file_path", "user_id", "created_at"}

	// The id is compared as text so malformed ids miss instead of failing the cast.
	lookup := regexp.QuoteMeta("FROM documents WHERE id::text = $1")
	mock.ExpectQuery(lookup).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("doc-1", "f1", "a.txt", int64(10), 1, "hello", "/u/a.txt", "", created))
	mock.ExpectQuery(lookup).
		WithArgs("not-a-uuid").
		WillReturnRows(sqlmock.NewRows(cols))

	doc, err := s.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.TextContent)
	assert.Equal(t, int64(10), doc.FileSize)

	_, err = s.GetDocument(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, port.ErrDocumentNotFound)
}

func TestPostgresGetDocumentError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM documents").WillReturnError(errors.New("connection reset"))

	_, err := s.GetDocument(context.Background(), "doc-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, port.ErrDocumentNotFound)
}

func TestPostgresSaveChunkUpserts(t *testing.T) {
	s, mock := newMockStore(t)
	upsert := regexp.QuoteMeta("ON CONFLICT (document_id, chunk_index) DO UPDATE SET")
	page := 2

	mock.ExpectExec(upsert).
		WithArgs("doc-1", 0, "first", 5, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsert).
		WithArgs("doc-1", 0, "rewritten", 7, int64(page)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	require.NoError(t, s.SaveChunk(ctx, domain.ChunkVector{Chunk: domain.Chunk{DocumentID: "doc-1", ChunkIndex: 0, Content: "first", TokenCount: 5}}))
	require.NoError(t, s.SaveChunk(ctx, domain.ChunkVector{Chunk: domain.Chunk{DocumentID: "doc-1", ChunkIndex: 0, Content: "rewritten", TokenCount: 7, PageNumber: &page}}))
}

func TestPostgresListAndDeleteChunks(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index ASC")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"document_id", "chunk_index", "content", "token_count", "page_number", "created_at"}).
			AddRow("doc-1", 0, "one", 1, nil, created).
			AddRow("doc-1", 1, "two", 1, int64(4), created))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM document_chunks WHERE document_id = $1")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	ctx := context.Background()
	chunks, err := s.ListChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Nil(t, chunks[0].PageNumber)
	require.NotNil(t, chunks[1].PageNumber)
	assert.Equal(t, 4, *chunks[1].PageNumber)

	require.NoError(t, s.DeleteChunks(ctx, "doc-1"))
}

func TestPostgresStats(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COUNT(DISTINCT document_id) FROM document_chunks")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(6, 2))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalChunks)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.InDelta(t, 3.0, stats.AverageChunksPerDocument, 1e-9)
}
