package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// DefaultMaxFileSize is the size limit applied when FSReader.MaxFileSize is zero.
const DefaultMaxFileSize int64 = 10 << 20

// FSReader reads markdown documents from the local filesystem.
// It holds no mutable state and is safe for concurrent use.
type FSReader struct {
	MaxFileSize int64 // Files larger than this are rejected with ErrTooLarge
}

// NewFSReader creates a reader with the given size limit.
func NewFSReader(maxFileSize int64) *FSReader {
	return &FSReader{MaxFileSize: maxFileSize}
}

// Read loads the document at path id, validates it and splits off its front matter.
func (r *FSReader) Read(ctx context.Context, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve path %s: %v", ErrUnreadable, id, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnreadable, absPath)
	}

	limit := r.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, absPath, info.Size(), limit)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file %s: %v", ErrUnreadable, absPath, err)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, absPath)
	}

	hash := sha256.Sum256(content)

	frontMatter, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}

	return &Document{
		ID:          id,
		Path:        absPath,
		Text:        string(body),
		FrontMatter: frontMatter,
		Hash:        hex.EncodeToString(hash[:]),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}
