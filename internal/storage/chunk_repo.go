package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks shard-markdown/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// ReplaceForDocument atomically replaces all chunks of a document.
	ReplaceForDocument(ctx context.Context, documentID string, chunks []*ChunkRecord) error
	// DeleteByDocument deletes all chunks for a given document ID.
	DeleteByDocument(ctx context.Context, documentID string) error
	// ListIDsByDocument returns all chunk IDs for a given document, ordered by chunk_index.
	ListIDsByDocument(ctx context.Context, documentID string) ([]string, error)
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// ListLengthsByCollection returns the character length of every chunk in a collection.
	ListLengthsByCollection(ctx context.Context, collectionID int) ([]int, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceForDocument deletes the document's chunks and inserts the new ones in one transaction.
// Every chunk.ID must be set before calling this method.
func (r *ChunkRepo) ReplaceForDocument(ctx context.Context, documentID string, chunks []*ChunkRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, chunk_index, start_pos, end_pos, heading_path, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, chunk := range chunks {
		if chunk.DocumentID != documentID {
			err = fmt.Errorf("chunk %s belongs to document %s, not %s", chunk.ID, chunk.DocumentID, documentID)
			return err
		}
		if _, err = stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.StartPos, chunk.EndPos, chunk.HeadingPath, chunk.Text,
		); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// DeleteByDocument deletes all chunks for a given document ID.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	return nil
}

// ListIDsByDocument returns all chunk IDs for a given document, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
func (r *ChunkRepo) ListIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	var chunk ChunkRecord
	var headingPath sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, document_id, chunk_index, start_pos, end_pos, heading_path, text
		 FROM chunks WHERE id = ?`,
		id,
	).Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.StartPos, &chunk.EndPos, &headingPath, &chunk.Text)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}
	chunk.HeadingPath = headingPath.String

	return &chunk, nil
}

// ListLengthsByCollection returns the character length of every chunk in a collection.
func (r *ChunkRepo) ListLengthsByCollection(ctx context.Context, collectionID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.end_pos - c.start_pos FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.collection_id = ?`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk lengths: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var lengths []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan chunk length: %w", err)
		}
		lengths = append(lengths, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lengths, nil
}
