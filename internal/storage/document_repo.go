package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks shard-markdown/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// GetByPath gets a document by collection ID and path.
	// Returns nil and ErrNotFound if not found.
	GetByPath(ctx context.Context, collectionID int, path string) (*DocumentRecord, error)
	// Upsert inserts a new document or updates an existing one.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// CountByCollection returns the number of documents in a collection.
	CountByCollection(ctx context.Context, collectionID int) (int, error)
	// CountWithoutChunks returns the number of documents in a collection that have no chunks.
	CountWithoutChunks(ctx context.Context, collectionID int) (int, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// GetByPath gets a document by collection ID and path.
// Returns nil and ErrNotFound if not found.
func (r *DocumentRepo) GetByPath(ctx context.Context, collectionID int, path string) (*DocumentRecord, error) {
	var doc DocumentRecord
	var title sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, collection_id, path, title, hash, size, chunk_count, updated_at
		 FROM documents WHERE collection_id = ? AND path = ?`,
		collectionID, path,
	).Scan(&doc.ID, &doc.CollectionID, &doc.Path, &title, &doc.Hash, &doc.Size, &doc.ChunkCount, &doc.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	doc.Title = title.String

	return &doc, nil
}

// Upsert inserts a new document or updates an existing one.
// A document without an ID gets a new UUID; an existing row keeps its ID.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	existing, err := r.GetByPath(ctx, doc.CollectionID, doc.Path)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check existing document: %w", err)
	}

	if existing != nil {
		doc.ID = existing.ID
	} else if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection_id, path, title, hash, size, chunk_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (collection_id, path) DO UPDATE SET
		 title = excluded.title, hash = excluded.hash, size = excluded.size,
		 chunk_count = excluded.chunk_count, updated_at = CURRENT_TIMESTAMP`,
		doc.ID, doc.CollectionID, doc.Path, doc.Title, doc.Hash, doc.Size, doc.ChunkCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

// CountByCollection returns the number of documents in a collection.
func (r *DocumentRepo) CountByCollection(ctx context.Context, collectionID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE collection_id = ?",
		collectionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// CountWithoutChunks returns the number of documents in a collection that have no chunks.
func (r *DocumentRepo) CountWithoutChunks(ctx context.Context, collectionID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents
		 WHERE collection_id = ? AND id NOT IN (SELECT DISTINCT document_id FROM chunks)`,
		collectionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents without chunks: %w", err)
	}
	return count, nil
}
