package service

import (
	"context"
	"fmt"
	"strings"

	"shard-markdown/internal/batch"
	"shard-markdown/internal/contextutil"
	"shard-markdown/internal/ingest"
	"shard-markdown/internal/source"
	"shard-markdown/internal/vectorstore"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ingest.go -package=mocks shard-markdown/internal/service BatchProcessor,Index,IngestService

// BatchProcessor runs the chunking pipeline over a list of document ids.
type BatchProcessor interface {
	Process(ctx context.Context, collection string, ids []string) (*batch.Result, error)
}

// Index answers read-side questions about ingested collections.
type Index interface {
	Stats(ctx context.Context, collection string) (*ingest.CollectionStats, error)
	Query(ctx context.Context, collection, text string, k int, filters map[string]string) ([]vectorstore.SearchResult, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ProcessRequest represents a request to ingest markdown files.
type ProcessRequest struct {
	Paths      []string
	Collection string
	Recursive  bool
}

// QueryRequest represents a similarity search over a collection.
type QueryRequest struct {
	Collection string
	Text       string
	K          int
	Filters    map[string]string
}

// IngestService defines the interface for ingestion operations.
type IngestService interface {
	Process(ctx context.Context, req ProcessRequest) (*batch.Result, error)
	Stats(ctx context.Context, collection string) (*ingest.CollectionStats, error)
	Query(ctx context.Context, req QueryRequest) ([]vectorstore.SearchResult, error)
	// Health runs every registered check and returns each result by name.
	Health(ctx context.Context) map[string]error
}

// ingestService implements IngestService.
type ingestService struct {
	processor         BatchProcessor
	index             Index
	checks            map[string]HealthCheck
	defaultCollection string
}

// NewIngestService creates a new IngestService.
// Requests without a collection use defaultCollection.
func NewIngestService(processor BatchProcessor, index Index, defaultCollection string, checks map[string]HealthCheck) IngestService {
	return &ingestService{
		processor:         processor,
		index:             index,
		checks:            checks,
		defaultCollection: defaultCollection,
	}
}

// Process scans the requested paths and ingests every markdown file found.
// The returned result is non-nil whenever the batch ran, even if err is set.
func (s *ingestService) Process(ctx context.Context, req ProcessRequest) (*batch.Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(req.Paths) == 0 {
		logger.WarnContext(ctx, "process request without paths")
		return nil, &ValidationError{
			Field:   "paths",
			Message: "at least one path is required",
		}
	}
	for _, p := range req.Paths {
		if strings.TrimSpace(p) == "" {
			return nil, &ValidationError{
				Field:   "paths",
				Message: "paths must not be empty",
			}
		}
	}

	collection := req.Collection
	if collection == "" {
		collection = s.defaultCollection
	}

	scanner := &source.Scanner{Recursive: req.Recursive, Extensions: source.DefaultExtensions}
	files, err := scanner.Scan(ctx, req.Paths)
	if err != nil {
		return nil, scanError(err)
	}
	if len(files) == 0 {
		logger.WarnContext(ctx, "no markdown files found", "paths", req.Paths)
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, batch.ErrNoDocuments)
	}

	logger.InfoContext(ctx, "processing batch", "collection", collection, "files", len(files), "recursive", req.Recursive)

	res, err := s.processor.Process(ctx, collection, files)
	if err != nil {
		return res, batchError(err)
	}

	return res, nil
}

// Stats returns the manifest statistics of a collection.
func (s *ingestService) Stats(ctx context.Context, collection string) (*ingest.CollectionStats, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, &ValidationError{
			Field:   "collection",
			Message: "collection cannot be empty",
		}
	}

	stats, err := s.index.Stats(ctx, collection)
	if err != nil {
		return nil, statsError(collection, err)
	}
	return stats, nil
}

// Query embeds the request text and returns the most similar chunks.
func (s *ingestService) Query(ctx context.Context, req QueryRequest) ([]vectorstore.SearchResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &ValidationError{
			Field:   "text",
			Message: "query text cannot be empty",
		}
	}
	if req.K <= 0 {
		return nil, &ValidationError{
			Field:   "k",
			Message: "k must be positive",
		}
	}

	collection := req.Collection
	if collection == "" {
		collection = s.defaultCollection
	}

	results, err := s.index.Query(ctx, collection, req.Text, req.K, req.Filters)
	if err != nil {
		return nil, queryError(err)
	}
	return results, nil
}

func (s *ingestService) Health(ctx context.Context) map[string]error {
	results := make(map[string]error, len(s.checks))
	for name, check := range s.checks {
		results[name] = check(ctx)
	}
	return results
}
