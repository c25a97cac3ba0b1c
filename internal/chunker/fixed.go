package chunker

import "fmt"

// Chunker splits document text into a chunk sequence.
type Chunker interface {
	Chunk(text string) ([]Chunk, error)
}

// Factory constructs a new Chunker. Batch workers call it once per document
// so that no chunker value is ever shared between tasks.
type Factory func() Chunker

// Fixed splits text into fixed-size, overlapping chunks.
// It holds only its immutable configuration; every call works on its own chunk list.
type Fixed struct {
	cfg Config
}

// NewFixed creates a fixed-size chunker after validating cfg.
func NewFixed(cfg Config) (*Fixed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Fixed{cfg: cfg}, nil
}

// NewFactory validates cfg once and returns a Factory producing fresh Fixed chunkers.
func NewFactory(cfg Config) (Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return func() Chunker {
		return &Fixed{cfg: cfg}
	}, nil
}

// Chunk splits text using the chunker's configuration.
func (f *Fixed) Chunk(text string) ([]Chunk, error) {
	return Split(text, f.cfg)
}

// Split divides text into chunks of at most cfg.Size characters where
// consecutive chunks share exactly cfg.Overlap characters. Only the final
// chunk may be shorter than cfg.Size. Empty text yields an empty sequence.
//
// Offsets are counted in runes, not bytes.
func Split(text string, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	chunks := []Chunk{}
	if n == 0 {
		return chunks, nil
	}

	start := 0
	for {
		end := min(start+cfg.Size, n)
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		// The next start is derived from the chunk just appended to this call's list.
		last, err := lastChunk(chunks)
		if err != nil {
			return nil, fmt.Errorf("chunking at offset %d: %w", start, err)
		}
		if last.End >= n {
			break
		}
		start = last.Start + cfg.step()
	}

	return chunks, nil
}

// lastChunk returns the most recent chunk of the list.
func lastChunk(chunks []Chunk) (Chunk, error) {
	if len(chunks) == 0 {
		return Chunk{}, ErrEmptyChunkList
	}
	return chunks[len(chunks)-1], nil
}
