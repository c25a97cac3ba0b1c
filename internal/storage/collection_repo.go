package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_collection_store.go -package=mocks shard-markdown/internal/storage CollectionStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CollectionStore defines the interface for collection storage operations.
type CollectionStore interface {
	// GetOrCreateByName gets an existing collection by name, or creates it.
	GetOrCreateByName(ctx context.Context, name string) (CollectionRecord, error)
	// GetByName gets a collection by name. Returns ErrNotFound if it does not exist.
	GetByName(ctx context.Context, name string) (CollectionRecord, error)
	// ListAll returns all collections ordered by name.
	ListAll(ctx context.Context) ([]CollectionRecord, error)
}

// CollectionRepo provides methods for collection operations.
// It implements the CollectionStore interface.
type CollectionRepo struct {
	db *sql.DB
}

// NewCollectionRepo creates a new CollectionRepo.
func NewCollectionRepo(db *sql.DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

// GetOrCreateByName gets an existing collection by name, or creates it if it doesn't exist.
// Concurrent callers creating the same collection all receive the same record.
func (r *CollectionRepo) GetOrCreateByName(ctx context.Context, name string) (CollectionRecord, error) {
	if name == "" {
		return CollectionRecord{}, fmt.Errorf("collection name is empty")
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO collections (name) VALUES (?) ON CONFLICT (name) DO NOTHING",
		name,
	)
	if err != nil {
		return CollectionRecord{}, fmt.Errorf("failed to create collection: %w", err)
	}

	return r.GetByName(ctx, name)
}

// GetByName gets a collection by name. Returns ErrNotFound if it does not exist.
func (r *CollectionRepo) GetByName(ctx context.Context, name string) (CollectionRecord, error) {
	var coll CollectionRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM collections WHERE name = ?",
		name,
	).Scan(&coll.ID, &coll.Name, &coll.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return CollectionRecord{}, ErrNotFound
	}
	if err != nil {
		return CollectionRecord{}, fmt.Errorf("failed to query collection: %w", err)
	}

	return coll, nil
}

// ListAll returns all collections ordered by name.
func (r *CollectionRepo) ListAll(ctx context.Context) ([]CollectionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM collections ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var collections []CollectionRecord
	for rows.Next() {
		var coll CollectionRecord
		if err := rows.Scan(&coll.ID, &coll.Name, &coll.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, coll)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return collections, nil
}
