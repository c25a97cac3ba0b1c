package chunker

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when a chunk size/overlap pair cannot produce chunks.
	ErrInvalidConfiguration = errors.New("invalid chunker configuration")
	// ErrEmptyChunkList is returned when the last chunk of an empty list is requested.
	// Seeing it means the chunking loop broke its own invariant.
	ErrEmptyChunkList = errors.New("chunk list is empty")
)

// Chunk is a contiguous slice of a document's text.
// Start and End are character (rune) offsets into the document, half-open [Start, End).
type Chunk struct {
	Index int    // Position within the chunk sequence (starts at 0)
	Text  string // Chunk text content
	Start int    // Offset of the first character
	End   int    // Offset one past the last character
}

// Len returns the number of characters in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Config holds the fixed-size chunking parameters.
type Config struct {
	Size    int // Maximum characters per chunk
	Overlap int // Characters shared by consecutive chunks
}

// Validate reports whether the configuration can produce chunks.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return &ConfigError{Field: "size", Message: fmt.Sprintf("must be positive, got %d", c.Size)}
	}
	if c.Overlap < 0 {
		return &ConfigError{Field: "overlap", Message: fmt.Sprintf("must not be negative, got %d", c.Overlap)}
	}
	if c.Overlap >= c.Size {
		return &ConfigError{Field: "overlap", Message: fmt.Sprintf("must be smaller than size (%d >= %d)", c.Overlap, c.Size)}
	}
	return nil
}

// step is the distance between the starts of consecutive chunks.
func (c Config) step() int {
	return c.Size - c.Overlap
}

// ConfigError describes which chunking parameter is invalid.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid chunker configuration: %s %s", e.Field, e.Message)
}

// Unwrap lets callers match ConfigError with errors.Is(err, ErrInvalidConfiguration).
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}
