package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"shard-markdown/internal/chunker"
	"shard-markdown/internal/contextutil"
	"shard-markdown/internal/source"
)

// Reader loads a document by identifier.
type Reader interface {
	Read(ctx context.Context, id string) (*source.Document, error)
}

// Storer persists the chunks of one document into a collection.
type Storer interface {
	Store(ctx context.Context, collection string, doc *source.Document, chunks []chunker.Chunk) (Ack, error)
}

// Ack is the storer's report for one document.
type Ack struct {
	// ChunksStored is the number of chunks written.
	ChunksStored int
	// Skipped is true when the stored copy was already current and nothing was written.
	Skipped bool
}

// Options tunes a Processor.
type Options struct {
	// MaxWorkers bounds the number of documents in flight.
	MaxWorkers int
	// DocumentTimeout bounds each document's read, chunk and store. Zero disables it.
	DocumentTimeout time.Duration
	// Logger overrides the logger found in the Process context.
	Logger *slog.Logger
}

// Processor runs documents through read, chunk and store with bounded concurrency.
// A Processor is safe for concurrent use; each Process call is independent.
type Processor struct {
	reader     Reader
	storer     Storer
	newChunker chunker.Factory
	opts       Options
}

// NewProcessor validates its configuration and returns a Processor.
func NewProcessor(reader Reader, storer Storer, cfg chunker.Config, opts Options) (*Processor, error) {
	if reader == nil || storer == nil {
		return nil, fmt.Errorf("%w: reader and storer are required", ErrInvalidConfiguration)
	}
	if opts.MaxWorkers < 1 {
		return nil, fmt.Errorf("%w: max workers must be at least 1, got %d", ErrInvalidConfiguration, opts.MaxWorkers)
	}
	if opts.DocumentTimeout < 0 {
		return nil, fmt.Errorf("%w: document timeout must not be negative, got %s", ErrInvalidConfiguration, opts.DocumentTimeout)
	}

	factory, err := chunker.NewFactory(cfg)
	if err != nil {
		return nil, err
	}

	return &Processor{
		reader:     reader,
		storer:     storer,
		newChunker: factory,
		opts:       opts,
	}, nil
}

// Process reads, chunks and stores every document in ids and returns the aggregate result.
// Per-document failures are reported in Result.Failed, never as the returned error.
// The returned error is non-nil only for precondition failures and accounting mismatches.
// Process returns after every dispatched document has finished; when ctx is canceled,
// documents not yet dispatched are recorded as canceled.
func (p *Processor) Process(ctx context.Context, collection string, ids []string) (*Result, error) {
	if len(ids) == 0 {
		return nil, ErrNoDocuments
	}
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", ErrInvalidConfiguration)
	}

	started := time.Now()
	batchID := uuid.NewString()

	logger := p.opts.Logger
	if logger == nil {
		logger = contextutil.LoggerFromContext(ctx)
	}
	logger = logger.With("batch_id", batchID, "collection", collection)
	ctx = contextutil.WithLogger(ctx, logger)

	logger.InfoContext(ctx, "batch started", "documents", len(ids), "max_workers", p.opts.MaxWorkers)

	agg := newCollector(len(ids))
	sem := semaphore.NewWeighted(int64(p.opts.MaxWorkers))
	var g errgroup.Group

	for i, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			canceled := 0
			for j := i; j < len(ids); j++ {
				t := &task{index: j, id: ids[j], stage: StagePending}
				agg.fail(t.fail(err))
				canceled++
			}
			logger.WarnContext(ctx, "batch canceled before dispatch completed", "undispatched", canceled, "error", err)
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			p.runTask(ctx, collection, i, id, agg)
			return nil
		})
	}

	_ = g.Wait()

	res, err := agg.result(batchID, collection, started)
	if err != nil {
		logger.ErrorContext(ctx, "batch accounting failed", "error", err)
		return res, err
	}

	logger.InfoContext(ctx, "batch finished",
		"successful", res.Successful,
		"skipped", res.Skipped,
		"failed", len(res.Failed),
		"chunks_stored", res.ChunksStored,
		"duration", res.Duration,
	)
	return res, nil
}

// runTask takes one document through every stage and reports the outcome to agg exactly once.
func (p *Processor) runTask(batchCtx context.Context, collection string, index int, id string, agg *collector) {
	// In-flight documents finish even if the batch is canceled.
	ctx := context.WithoutCancel(batchCtx)
	if p.opts.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.DocumentTimeout)
		defer cancel()
	}

	logger := contextutil.LoggerFromContext(ctx).With("document_id", id)
	ctx = contextutil.WithLogger(ctx, logger)

	t := &task{index: index, id: id, stage: StagePending}
	reported := false
	defer func() {
		if r := recover(); r != nil && !reported {
			f := t.fail(fmt.Errorf("%w: %v", ErrPanic, r))
			logger.ErrorContext(ctx, "document panicked", "stage", f.Stage, "panic", r)
			agg.fail(f)
		}
	}()

	chunks, ack, err := p.execute(ctx, collection, t)
	if err != nil {
		f := t.fail(err)
		reported = true
		logger.WarnContext(ctx, "document failed", "stage", f.Stage, "error", err)
		agg.fail(f)
		return
	}

	reported = true
	logger.DebugContext(ctx, "document stored", "stage", t.stage, "chunks", len(chunks), "skipped", ack.Skipped)
	agg.succeed(index, ack, chunks)
}

func (p *Processor) execute(ctx context.Context, collection string, t *task) ([]chunker.Chunk, Ack, error) {
	if err := t.advance(StageReading); err != nil {
		return nil, Ack{}, err
	}
	doc, err := await(ctx, func(ctx context.Context) (*source.Document, error) {
		return p.reader.Read(ctx, t.id)
	})
	if err != nil {
		return nil, Ack{}, err
	}
	if doc == nil {
		return nil, Ack{}, errors.New("reader returned no document")
	}

	if err := t.advance(StageChunking); err != nil {
		return nil, Ack{}, err
	}
	chunks, err := p.newChunker().Chunk(doc.Text)
	if err != nil {
		return nil, Ack{}, err
	}
	// Chunking a large document may outlast the deadline.
	if err := ctx.Err(); err != nil {
		return nil, Ack{}, err
	}

	if err := t.advance(StageStoring); err != nil {
		return nil, Ack{}, err
	}
	ack, err := await(ctx, func(ctx context.Context) (Ack, error) {
		return p.storer.Store(ctx, collection, doc, chunks)
	})
	if err != nil {
		return nil, Ack{}, err
	}

	if err := t.advance(StageSucceeded); err != nil {
		return nil, Ack{}, err
	}
	return chunks, ack, nil
}

// await runs fn and returns its outcome, or the context error if ctx ends first.
// An abandoned call keeps running until fn returns; its result is discarded.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		val, err := fn(ctx)
		done <- outcome{val: val, err: err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
