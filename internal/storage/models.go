package storage

import "time"

// CollectionRecord is a named group of ingested documents.
type CollectionRecord struct {
	ID        int
	Name      string
	CreatedAt time.Time
}

// DocumentRecord is an ingested markdown file.
type DocumentRecord struct {
	ID           string // UUID
	CollectionID int    // Foreign key to collections.id
	Path         string // Absolute source path
	Title        string // Extracted title from markdown
	Hash         string // SHA256 hex string of file content
	Size         int64
	ChunkCount   int
	UpdatedAt    time.Time
}

// ChunkRecord is a stored chunk of a document. Its ID is also the vector point ID.
type ChunkRecord struct {
	ID          string // UUID (same as vector point ID)
	DocumentID  string // UUID (foreign key to documents.id)
	ChunkIndex  int    // Index within document (starts at 0)
	StartPos    int    // Rune offset of the first character
	EndPos      int    // Rune offset one past the last character
	HeadingPath string // Format: "# Heading1 > ## Heading2"
	Text        string
}
