package source

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnreadable is returned when a document cannot be opened or read.
	ErrUnreadable = errors.New("document unreadable")
	// ErrTooLarge is returned when a document exceeds the configured size limit.
	ErrTooLarge = errors.New("document too large")
	// ErrInvalidEncoding is returned when a document is not valid UTF-8.
	ErrInvalidEncoding = errors.New("document is not valid UTF-8")
	// ErrFrontMatter is returned when a document's YAML front matter cannot be parsed.
	ErrFrontMatter = errors.New("invalid front matter")
)

// Document is a markdown document read from disk.
type Document struct {
	ID          string         // Identifier the document was requested by (its path)
	Path        string         // Absolute path
	Text        string         // Body with front matter removed; chunk offsets index into it
	FrontMatter map[string]any // Parsed YAML front matter, nil when absent
	Hash        string         // SHA-256 of the raw file content, hex encoded
	Size        int64
	ModTime     time.Time
}

var (
	frontMatterDelim = []byte("---")
	newline          = []byte("\n")
	byteOrderMark    = []byte("\ufeff")
)

// splitFrontMatter separates a leading YAML front matter block from the body.
// Content without a complete front matter block is returned unchanged with a nil map.
func splitFrontMatter(content []byte) (map[string]any, []byte, error) {
	content = bytes.TrimPrefix(content, byteOrderMark)

	first, rest, ok := bytes.Cut(content, newline)
	if !ok || !isDelimiter(first) {
		return nil, content, nil
	}

	offset := 0
	for {
		line, next, found := bytes.Cut(rest[offset:], newline)
		if isDelimiter(line) {
			meta := map[string]any{}
			if err := yaml.Unmarshal(rest[:offset], &meta); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrFrontMatter, err)
			}
			return meta, next, nil
		}
		if !found {
			return nil, content, nil
		}
		offset += len(line) + 1
	}
}

func isDelimiter(line []byte) bool {
	return bytes.Equal(bytes.TrimRight(line, " \t\r"), frontMatterDelim)
}
