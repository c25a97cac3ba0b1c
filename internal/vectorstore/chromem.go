package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"shard-markdown/internal/contextutil"
)

// ChromemStore implements VectorStore using an embedded chromem-go database.
// With an empty path the database lives in memory only.
type ChromemStore struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc

	// chromem's Delete inspects the document map before taking its own lock,
	// so deletes are serialized against writes here.
	mu sync.RWMutex
	// GetOrCreateCollection is not atomic; concurrent creators would replace each other.
	createMu sync.Mutex
}

// NewChromemStore opens (or creates) a chromem database.
// embed is used only for points without a precomputed vector and may be nil.
func NewChromemStore(path string, compress bool, embed chromem.EmbeddingFunc) (*ChromemStore, error) {
	db := chromem.NewDB()
	if path != "" {
		var err error
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem database at %s: %w", path, err)
		}
	}

	return &ChromemStore{
		db:    db,
		embed: embed,
	}, nil
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	if coll := s.db.GetCollection(name, s.embed); coll != nil {
		return coll, nil
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()
	coll, err := s.db.GetOrCreateCollection(name, nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
	}
	return coll, nil
}

// EnsureCollection creates the collection if it does not exist.
func (s *ChromemStore) EnsureCollection(ctx context.Context, collection string) error {
	if _, err := s.collection(collection); err != nil {
		return err
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "collection ready", "collection", collection)
	return nil
}

// Upsert inserts or updates points in the collection.
func (s *ChromemStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	coll, err := s.collection(collection)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(points))
	for i, point := range points {
		docs[i] = chromem.Document{
			ID:        point.ID,
			Metadata:  point.Meta,
			Embedding: point.Vec,
			Content:   point.Text,
		}
	}

	s.mu.RLock()
	err = coll.AddDocuments(ctx, docs, runtime.NumCPU())
	s.mu.RUnlock()
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.DebugContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// DeleteByDocument removes every point belonging to documentID.
func (s *ChromemStore) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	coll := s.db.GetCollection(collection, s.embed)
	if coll == nil {
		return nil
	}

	s.mu.Lock()
	err := coll.Delete(ctx, map[string]string{MetaDocumentID: documentID}, nil)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to delete points for document %s: %w", documentID, err)
	}
	return nil
}

// Count returns the number of points in the collection. A missing collection counts as empty.
func (s *ChromemStore) Count(_ context.Context, collection string) (int, error) {
	coll := s.db.GetCollection(collection, s.embed)
	if coll == nil {
		return 0, nil
	}
	return coll.Count(), nil
}

// Search performs a cosine similarity search.
func (s *ChromemStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]string) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	coll := s.db.GetCollection(collection, s.embed)
	if coll == nil {
		return []SearchResult{}, nil
	}

	// chromem rejects result counts larger than the collection
	n := min(k, coll.Count())
	if n == 0 {
		return []SearchResult{}, nil
	}

	var where map[string]string
	if len(filters) > 0 {
		where = filters
	}

	found, err := coll.QueryEmbedding(ctx, query, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]SearchResult, 0, len(found))
	for _, r := range found {
		results = append(results, SearchResult{
			PointID: r.ID,
			Score:   r.Similarity,
			Text:    r.Content,
			Meta:    r.Metadata,
		})
	}
	return results, nil
}
