package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"shard-markdown/internal/batch"
)

// ChunkerVersion identifies the chunking implementation.
// Update this when chunk boundaries change for the same configuration.
const ChunkerVersion = "fixed-v1"

// CollectionStats describes what is stored for one collection.
type CollectionStats struct {
	// Collection is the collection name.
	Collection string `json:"collection"`
	// Documents is the number of documents in the manifest.
	Documents int `json:"documents"`
	// DocumentsWithoutChunks is the number of documents that produced no chunks.
	DocumentsWithoutChunks int `json:"documents_without_chunks"`
	// ChunksStored is the number of chunk rows in the manifest.
	ChunksStored int `json:"chunks_stored"`
	// Points is the number of vectors reported by the vector store.
	Points int `json:"points"`
	// ChunkLengths summarizes chunk lengths in characters.
	ChunkLengths batch.LengthStats `json:"chunk_lengths"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string `json:"index_version"`
}

// Stats computes collection statistics from the manifest and the vector store.
// It returns an error wrapping storage.ErrNotFound for an unknown collection.
func (s *Sink) Stats(ctx context.Context, collection string) (*CollectionStats, error) {
	coll, err := s.collections.GetByName(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %q: %w", collection, err)
	}

	docs, err := s.documents.CountByCollection(ctx, coll.ID)
	if err != nil {
		return nil, err
	}
	empty, err := s.documents.CountWithoutChunks(ctx, coll.ID)
	if err != nil {
		return nil, err
	}
	lengths, err := s.chunks.ListLengthsByCollection(ctx, coll.ID)
	if err != nil {
		return nil, err
	}
	points, err := s.vectors.Count(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to count points: %w", err)
	}

	return &CollectionStats{
		Collection:             collection,
		Documents:              docs,
		DocumentsWithoutChunks: empty,
		ChunksStored:           len(lengths),
		Points:                 points,
		ChunkLengths:           batch.ComputeLengthStats(lengths),
		ChunkerVersion:         ChunkerVersion,
		IndexVersion:           s.IndexVersion(),
	}, nil
}

// IndexVersion hashes the chunker version, embedding model and chunking parameters.
func (s *Sink) IndexVersion() string {
	input := fmt.Sprintf("%s|%s|size=%d|overlap=%d",
		ChunkerVersion, s.opts.Model, s.opts.Chunk.Size, s.opts.Chunk.Overlap)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}
