package ingest

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks shard-markdown/internal/ingest Embedder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"shard-markdown/internal/batch"
	"shard-markdown/internal/chunker"
	"shard-markdown/internal/contextutil"
	"shard-markdown/internal/markdown"
	"shard-markdown/internal/source"
	"shard-markdown/internal/storage"
	"shard-markdown/internal/vectorstore"
)

// Chunk metadata keys written next to every vector point.
const (
	MetaSourcePath  = "source_path"
	MetaFileName    = "file_name"
	MetaTitle       = "title"
	MetaHeadingPath = "heading_path"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaStart       = "start_position"
	MetaEnd         = "end_position"
	MetaChunkMethod = "chunk_method"
	MetaChunkSize   = "chunk_size"
	MetaOverlap     = "chunk_overlap"
	// FrontMatterPrefix prefixes scalar front matter keys copied into chunk metadata.
	FrontMatterPrefix = "fm_"

	chunkMethod = "fixed"
)

// idNamespace derives every document and point UUID so re-ingesting a file overwrites its points.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("shard-markdown"))

// Embedder turns chunk texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Options tunes a Sink.
type Options struct {
	// Force re-ingests documents whose content hash is unchanged.
	Force bool
	// Model is the embedding model name, recorded in the index version.
	Model string
	// Chunk is the chunking configuration, recorded in metadata and the index version.
	Chunk chunker.Config
}

// Sink stores chunked documents in the vector store and the SQLite manifest.
// It implements batch.Storer and is safe for concurrent use.
type Sink struct {
	collections storage.CollectionStore
	documents   storage.DocumentStore
	chunks      storage.ChunkStore
	embedder    Embedder
	vectors     vectorstore.VectorStore
	opts        Options

	// ensured caches vector collections already created during this process.
	ensured sync.Map
	// ensuring collapses concurrent first calls for the same collection.
	ensuring singleflight.Group
}

// NewSink creates a new ingestion sink.
func NewSink(
	collections storage.CollectionStore,
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	embedder Embedder,
	vectors vectorstore.VectorStore,
	opts Options,
) *Sink {
	return &Sink{
		collections: collections,
		documents:   documents,
		chunks:      chunks,
		embedder:    embedder,
		vectors:     vectors,
		opts:        opts,
	}
}

// DocumentID returns the stable identifier of a document path within a collection.
func DocumentID(collection, path string) string {
	return uuid.NewSHA1(idNamespace, []byte(collection+"\x00"+path)).String()
}

// PointID returns the stable identifier of one chunk of a document.
func PointID(documentID string, c chunker.Chunk) string {
	name := fmt.Sprintf("%s\x00%d\x00%d\x00%d", documentID, c.Index, c.Start, c.End)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

// Store embeds the chunks of doc and writes them to the vector store and the manifest.
// Documents whose content hash matches the manifest are skipped unless Force is set.
// The document's previous points and chunk rows are replaced.
func (s *Sink) Store(ctx context.Context, collection string, doc *source.Document, chunks []chunker.Chunk) (batch.Ack, error) {
	logger := contextutil.LoggerFromContext(ctx)

	coll, err := s.collections.GetOrCreateByName(ctx, collection)
	if err != nil {
		return batch.Ack{}, fmt.Errorf("failed to resolve collection: %w", err)
	}

	existing, err := s.documents.GetByPath(ctx, coll.ID, doc.Path)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return batch.Ack{}, fmt.Errorf("failed to check existing document: %w", err)
	}

	if existing != nil && existing.Hash == doc.Hash && !s.opts.Force {
		logger.DebugContext(ctx, "skipping unchanged document", "path", doc.Path, "hash", doc.Hash)
		return batch.Ack{Skipped: true}, nil
	}

	if err := s.ensureCollection(ctx, collection); err != nil {
		return batch.Ack{}, err
	}

	documentID := DocumentID(collection, doc.Path)
	if existing != nil {
		documentID = existing.ID
	}

	fileName := filepath.Base(doc.Path)
	outline := markdown.Parse(doc.Text, fileName)

	var vecs [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vecs, err = s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return batch.Ack{}, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(vecs) != len(chunks) {
			return batch.Ack{}, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(vecs))
		}
	}

	base := s.baseMetadata(doc, documentID, fileName, outline.Title, len(chunks))
	points := make([]vectorstore.Point, len(chunks))
	records := make([]*storage.ChunkRecord, len(chunks))
	for i, c := range chunks {
		pointID := PointID(documentID, c)
		headingPath := outline.HeadingPathAt(c.Start)

		meta := make(map[string]string, len(base)+5)
		for k, v := range base {
			meta[k] = v
		}
		meta[MetaHeadingPath] = headingPath
		meta[MetaChunkIndex] = strconv.Itoa(c.Index)
		meta[MetaStart] = strconv.Itoa(c.Start)
		meta[MetaEnd] = strconv.Itoa(c.End)

		points[i] = vectorstore.Point{ID: pointID, Vec: vecs[i], Text: c.Text, Meta: meta}
		records[i] = &storage.ChunkRecord{
			ID:          pointID,
			DocumentID:  documentID,
			ChunkIndex:  c.Index,
			StartPos:    c.Start,
			EndPos:      c.End,
			HeadingPath: headingPath,
			Text:        c.Text,
		}
	}

	if err := s.vectors.DeleteByDocument(ctx, collection, documentID); err != nil {
		return batch.Ack{}, fmt.Errorf("failed to delete previous points: %w", err)
	}
	if len(points) > 0 {
		if err := s.vectors.Upsert(ctx, collection, points); err != nil {
			return batch.Ack{}, fmt.Errorf("failed to upsert vectors: %w", err)
		}
	}

	record := &storage.DocumentRecord{
		ID:           documentID,
		CollectionID: coll.ID,
		Path:         doc.Path,
		Title:        outline.Title,
		Hash:         doc.Hash,
		Size:         doc.Size,
		ChunkCount:   len(chunks),
	}
	if err := s.documents.Upsert(ctx, record); err != nil {
		return batch.Ack{}, fmt.Errorf("failed to upsert document: %w", err)
	}
	if err := s.chunks.ReplaceForDocument(ctx, record.ID, records); err != nil {
		return batch.Ack{}, fmt.Errorf("failed to store chunks: %w", err)
	}

	logger.InfoContext(ctx, "stored document", "path", doc.Path, "chunks", len(chunks), "title", outline.Title)
	return batch.Ack{ChunksStored: len(chunks)}, nil
}

// Query embeds text and returns the k most similar chunks in a collection.
// Vector candidates are reranked with a lexical score over the chunk text and heading path.
func (s *Sink) Query(ctx context.Context, collection, text string, k int, filters map[string]string) ([]vectorstore.SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("query text is empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: expected 1, got %d", len(vecs))
	}

	results, err := s.vectors.Search(ctx, collection, vecs[0], k*candidateFactor, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	return rerank(text, results, k), nil
}

func (s *Sink) ensureCollection(ctx context.Context, collection string) error {
	if _, ok := s.ensured.Load(collection); ok {
		return nil
	}
	_, err, _ := s.ensuring.Do(collection, func() (any, error) {
		if _, ok := s.ensured.Load(collection); ok {
			return nil, nil
		}
		if err := s.vectors.EnsureCollection(ctx, collection); err != nil {
			return nil, err
		}
		s.ensured.Store(collection, struct{}{})
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to ensure vector collection: %w", err)
	}
	return nil
}

// baseMetadata builds the metadata shared by every chunk of a document.
func (s *Sink) baseMetadata(doc *source.Document, documentID, fileName, title string, total int) map[string]string {
	meta := map[string]string{
		vectorstore.MetaDocumentID: documentID,
		MetaSourcePath:             doc.Path,
		MetaFileName:               fileName,
		MetaTitle:                  title,
		MetaTotalChunks:            strconv.Itoa(total),
		MetaChunkMethod:            chunkMethod,
		MetaChunkSize:              strconv.Itoa(s.opts.Chunk.Size),
		MetaOverlap:                strconv.Itoa(s.opts.Chunk.Overlap),
	}
	for k, v := range frontMatterMetadata(doc.FrontMatter) {
		meta[k] = v
	}
	return meta
}

// frontMatterMetadata flattens scalar front matter values into prefixed string metadata.
// Lists of scalars are joined with commas; nested maps are dropped.
func frontMatterMetadata(fm map[string]any) map[string]string {
	out := make(map[string]string, len(fm))
	for key, value := range fm {
		if s, ok := scalarString(value); ok {
			out[FrontMatterPrefix+key] = s
			continue
		}
		list, ok := value.([]any)
		if !ok {
			continue
		}
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := scalarString(item); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			out[FrontMatterPrefix+key] = strings.Join(parts, ",")
		}
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), true
	case time.Time:
		return val.Format(time.RFC3339), true
	default:
		return "", false
	}
}
