package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"shard-markdown/internal/chunker"
)

// Failure records one document that did not complete.
type Failure struct {
	// Index is the document's position in the input slice.
	Index      int
	DocumentID string
	// Stage is the stage the document was in when it failed.
	Stage Stage
	// Err is always a *DocumentError.
	Err error
}

// Kind returns the failure kind sentinel, or nil if Err is not a *DocumentError.
func (f Failure) Kind() error {
	var docErr *DocumentError
	if errors.As(f.Err, &docErr) {
		return docErr.Kind
	}
	return nil
}

// MarshalJSON renders the error as text.
func (f Failure) MarshalJSON() ([]byte, error) {
	out := struct {
		Index      int    `json:"index"`
		DocumentID string `json:"document_id"`
		Stage      Stage  `json:"stage"`
		Kind       string `json:"kind,omitempty"`
		Error      string `json:"error"`
	}{
		Index:      f.Index,
		DocumentID: f.DocumentID,
		Stage:      f.Stage,
	}
	if kind := f.Kind(); kind != nil {
		out.Kind = kind.Error()
	}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	return json.Marshal(out)
}

// Result is the outcome of one Process call.
type Result struct {
	BatchID    string `json:"batch_id"`
	Collection string `json:"collection"`
	// Total is the number of document identifiers submitted.
	Total int `json:"total"`
	// Successful counts documents that reached StageSucceeded, including skipped ones.
	Successful int `json:"successful"`
	// Skipped counts successful documents whose stored content was already current.
	Skipped int `json:"skipped"`
	// Failed lists failed documents ordered by input index.
	Failed []Failure `json:"failed"`
	// ChunksStored is the sum of chunks written by the storer.
	ChunksStored int           `json:"chunks_stored"`
	ChunkStats   LengthStats   `json:"chunk_stats"`
	Duration     time.Duration `json:"duration_ns"`
}

// FailedIDs returns the identifiers of failed documents in input order.
func (r *Result) FailedIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.DocumentID
	}
	return ids
}

// OK reports whether every document succeeded.
func (r *Result) OK() bool {
	return len(r.Failed) == 0
}

// check verifies every submitted document is accounted for exactly once.
func (r *Result) check() error {
	if r.Successful+len(r.Failed) != r.Total {
		return fmt.Errorf("%w: successful=%d failed=%d total=%d", ErrAccounting, r.Successful, len(r.Failed), r.Total)
	}
	if r.Skipped > r.Successful {
		return fmt.Errorf("%w: skipped=%d exceeds successful=%d", ErrAccounting, r.Skipped, r.Successful)
	}
	return nil
}

// collector aggregates task outcomes from concurrent workers.
type collector struct {
	mu       sync.Mutex
	seen     []bool
	success  int
	skipped  int
	stored   int
	lengths  []int
	failures []Failure
	dupes    int
}

func newCollector(total int) *collector {
	return &collector{seen: make([]bool, total)}
}

// mark records index as reported and returns false if it already was. Caller holds mu.
func (c *collector) mark(index int) bool {
	if c.seen[index] {
		c.dupes++
		return false
	}
	c.seen[index] = true
	return true
}

func (c *collector) succeed(index int, ack Ack, chunks []chunker.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mark(index) {
		return
	}
	c.success++
	if ack.Skipped {
		c.skipped++
	}
	c.stored += ack.ChunksStored
	for _, ch := range chunks {
		c.lengths = append(c.lengths, ch.Len())
	}
}

func (c *collector) fail(f Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mark(f.Index) {
		return
	}
	c.failures = append(c.failures, f)
}

// result snapshots the aggregate. It must be called after all workers finished.
func (c *collector) result(batchID, collection string, started time.Time) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := slices.Clone(c.failures)
	slices.SortFunc(failures, func(a, b Failure) int { return a.Index - b.Index })
	if failures == nil {
		failures = []Failure{}
	}

	res := &Result{
		BatchID:      batchID,
		Collection:   collection,
		Total:        len(c.seen),
		Successful:   c.success,
		Skipped:      c.skipped,
		Failed:       failures,
		ChunksStored: c.stored,
		ChunkStats:   ComputeLengthStats(c.lengths),
		Duration:     time.Since(started),
	}

	if c.dupes > 0 {
		return res, fmt.Errorf("%w: %d documents reported more than once", ErrAccounting, c.dupes)
	}
	return res, res.check()
}
