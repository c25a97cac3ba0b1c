package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shard-markdown/internal/contextutil"
)

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client     *qdrant.Client
	vectorSize int
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port is derived from the HTTP port.
func NewQdrantStore(urlStr string, vectorSize int) (*QdrantStore, error) {
	host, port, err := grpcTarget(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		vectorSize: vectorSize,
	}, nil
}

// grpcTarget derives the gRPC host and port from a Qdrant HTTP URL.
// The gRPC port is the HTTP port + 1, or 6334 when no port is given.
func grpcTarget(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return "", 0, fmt.Errorf("invalid Qdrant port %q: %w", parsedURL.Port(), err)
		}
		port = httpPort + 1
	}

	return host, port, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Upsert inserts or updates points in the collection.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		if len(point.Vec) == 0 {
			return fmt.Errorf("point %s has no vector", point.ID)
		}

		payload, err := qdrant.TryValueMap(toPayload(point))
		if err != nil {
			return fmt.Errorf("invalid payload for point %s: %w", point.ID, err)
		}

		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(point.ID),
			Vectors: qdrant.NewVectors(point.Vec...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.DebugContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search performs a similarity search with optional exact-match filters.
func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]string) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	limit := uint64(k)
	queryReq := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         matchAll(filters),
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, result := range scoredPoints {
		pointID := ""
		if result.Id != nil {
			pointID = result.Id.GetUuid()
		}

		meta := convertPayload(result.Payload)
		text := meta[MetaText]
		delete(meta, MetaText)

		results = append(results, SearchResult{
			PointID: pointID,
			Score:   result.Score,
			Text:    text,
			Meta:    meta,
		})
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// DeleteByDocument removes every point whose document_id payload equals documentID.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(matchAll(map[string]string{MetaDocumentID: documentID})),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", collection, "document_id", documentID, "error", err)
		return fmt.Errorf("failed to delete points for document %s: %w", documentID, err)
	}
	return nil
}

// Count returns the exact number of points in the collection. A missing collection counts as empty.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// EnsureCollection ensures a collection exists with the store's vector size.
// If the collection exists, validates that the vector size matches.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", s.vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err == nil {
			return nil
		}
		if !isAlreadyExists(err) {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		// Another client created it between the check and the create.
		logger.DebugContext(ctx, "collection created concurrently", "collection", collection)
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	var actualSize uint64
	if config := info.GetConfig(); config != nil && config.GetParams() != nil {
		if params := config.GetParams().GetVectorsConfig().GetParams(); params != nil {
			actualSize = params.GetSize()
		}
	}
	if actualSize == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if int(actualSize) != s.vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", s.vectorSize, actualSize)
	}

	logger.DebugContext(ctx, "collection validated", "collection", collection, "vector_size", s.vectorSize)
	return nil
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// toPayload merges the point's metadata and text into a Qdrant payload map.
func toPayload(point Point) map[string]any {
	payload := make(map[string]any, len(point.Meta)+1)
	for k, v := range point.Meta {
		payload[k] = v
	}
	if point.Text != "" {
		payload[MetaText] = point.Text
	}
	return payload
}

// matchAll builds a filter requiring every key to equal its value. Nil for no filters.
func matchAll(filters map[string]string) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filters))
	for field, value := range filters {
		must = append(must, qdrant.NewMatch(field, value))
	}
	return &qdrant.Filter{Must: must}
}

// convertPayload flattens a Qdrant payload into string metadata.
func convertPayload(payload map[string]*qdrant.Value) map[string]string {
	result := make(map[string]string, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue renders a scalar Qdrant value as a string. Lists and structs are skipped.
func convertValue(v *qdrant.Value) string {
	switch val := v.GetKind().(type) {
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(val.BoolValue)
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(val.IntegerValue, 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(val.DoubleValue, 'f', -1, 64)
	case *qdrant.Value_StringValue:
		return val.StringValue
	default:
		return ""
	}
}
