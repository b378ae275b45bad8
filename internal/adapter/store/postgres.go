package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

// schema is applied by Migrate. document_chunks intentionally has no vector
// column: vectors live in the process-local index only.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	file_id       TEXT NOT NULL,
	original_name TEXT NOT NULL,
	file_size     BIGINT NOT NULL DEFAULT 0,
	page_count    INTEGER NOT NULL DEFAULT 1,
	text_content  TEXT NOT NULL DEFAULT '',
	file_path     TEXT NOT NULL DEFAULT '',
	user_id       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS document_chunks (
	document_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content     TEXT NOT NULL,
	token_count INTEGER NOT NULL DEFAULT 0,
	page_number INTEGER,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (document_id, chunk_index)
);`

// PostgresStore is the durable tier for documents and chunk metadata.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an already opened database.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- Documents ---

// CreateDocument inserts a document and returns it with its generated id.
func (s *PostgresStore) CreateDocument(ctx context.Context, d domain.NewDocument) (*domain.Document, error) {
	query := `
		INSERT INTO documents (file_id, original_name, file_size, page_count, text_content, file_path, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	doc := domain.Document{
		FileID:       d.FileID,
		OriginalName: d.OriginalName,
		FileSize:     d.FileSize,
		PageCount:    d.PageCount,
		TextContent:  d.TextContent,
		FilePath:     d.FilePath,
		UserID:       d.UserID,
	}
	err := s.db.QueryRowContext(ctx, query,
		d.FileID, d.OriginalName, d.FileSize, d.PageCount, d.TextContent, d.FilePath, d.UserID,
	).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return &doc, nil
}

// GetDocument retrieves a document by ID.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT id, file_id, original_name, file_size, page_count, text_content, file_path, user_id, created_at
	          FROM documents WHERE id::text = $1`

	var doc domain.Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.FileID, &doc.OriginalName, &doc.FileSize, &doc.PageCount,
		&doc.TextContent, &doc.FilePath, &doc.UserID, &doc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// --- Chunks ---

// SaveChunk upserts the chunk metadata. The vector is not persisted.
func (s *PostgresStore) SaveChunk(ctx context.Context, c domain.ChunkVector) error {
	query := `
		INSERT INTO document_chunks (document_id, chunk_index, content, token_count, page_number)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_id, chunk_index) DO UPDATE SET
			content = EXCLUDED.content,
			token_count = EXCLUDED.token_count,
			page_number = EXCLUDED.page_number`

	var page sql.NullInt64
	if c.PageNumber != nil {
		page = sql.NullInt64{Int64: int64(*c.PageNumber), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query, c.DocumentID, c.ChunkIndex, c.Content, c.TokenCount, page)
	if err != nil {
		return fmt.Errorf("save chunk: %w", err)
	}
	return nil
}

// ListChunks returns a document's chunks ordered by index.
func (s *PostgresStore) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	query := `SELECT document_id, chunk_index, content, token_count, page_number, created_at
	          FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index ASC`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var page sql.NullInt64
		if err := rows.Scan(&c.DocumentID, &c.ChunkIndex, &c.Content, &c.TokenCount, &page, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if page.Valid {
			p := int(page.Int64)
			c.PageNumber = &p
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteChunks removes all chunk rows of a document.
func (s *PostgresStore) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// Stats counts chunk rows and distinct documents.
func (s *PostgresStore) Stats(ctx context.Context) (domain.VectorStats, error) {
	var chunks, docs int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT document_id) FROM document_chunks`,
	).Scan(&chunks, &docs)
	if err != nil {
		return domain.VectorStats{}, fmt.Errorf("chunk stats: %w", err)
	}
	return domain.NewVectorStats(chunks, docs), nil
}
