package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks shard-markdown/internal/vectorstore VectorStore

import "context"

// Metadata keys shared by every backend.
const (
	// MetaDocumentID holds the identifier of the source document a point belongs to.
	// DeleteByDocument filters on it.
	MetaDocumentID = "document_id"
	// MetaText holds the chunk text in backends without a native content field.
	MetaText = "text"
)

// Point represents a chunk vector with its text and metadata.
type Point struct {
	ID   string
	Vec  []float32
	Text string
	Meta map[string]string
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Text    string
	Meta    map[string]string
}

// VectorStore defines the interface for vector storage operations.
// Implementations must be safe for concurrent use by batch workers.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// DeleteByDocument removes every point whose document_id metadata equals documentID.
	DeleteByDocument(ctx context.Context, collection, documentID string) error

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Search performs a similarity search with optional exact-match metadata filters.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]string) ([]SearchResult, error)
}
