package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"shard-markdown/internal/batch"
	"shard-markdown/internal/config"
	"shard-markdown/internal/contextutil"
	"shard-markdown/internal/embedding"
	"shard-markdown/internal/ingest"
	"shard-markdown/internal/service"
	"shard-markdown/internal/source"
	"shard-markdown/internal/storage"
	"shard-markdown/internal/vectorstore"
)

// Options adjusts how the application is assembled for one run.
type Options struct {
	// Force re-ingests documents whose content hash is unchanged.
	Force bool
}

// App holds the wired components of the ingestion pipeline.
type App struct {
	Config    *config.Config
	DB        *sql.DB
	Embedder  *embedding.Client
	Vectors   vectorstore.VectorStore
	Sink      *ingest.Sink
	Reader    *source.FSReader
	Processor *batch.Processor
	Service   service.IngestService

	closers []io.Closer
}

// New opens the manifest, selects the vector backend and builds the ingest service.
// The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config, opts Options) (a *App, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return nil, err
	}

	a = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.DB, err = storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, a.DB)

	if err := storage.Migrate(a.DB); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.InfoContext(ctx, "database initialized", "path", cfg.DBPath)

	a.Embedder = embedding.NewClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)

	switch cfg.VectorBackend {
	case config.BackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.VectorSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		a.closers = append(a.closers, store)
		a.Vectors = store
	default:
		path := cfg.ChromemPath
		if path == config.InMemory {
			path = ""
		}
		store, err := vectorstore.NewChromemStore(path, cfg.ChromemCompress, a.Embedder.Func())
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem database: %w", err)
		}
		a.Vectors = store
	}
	logger.InfoContext(ctx, "vector store initialized", "backend", cfg.VectorBackend, "vector_size", cfg.VectorSize)

	a.Sink = ingest.NewSink(
		storage.NewCollectionRepo(a.DB),
		storage.NewDocumentRepo(a.DB),
		storage.NewChunkRepo(a.DB),
		a.Embedder,
		a.Vectors,
		ingest.Options{
			Force: opts.Force,
			Model: cfg.EmbeddingModelName,
			Chunk: cfg.ChunkConfig(),
		},
	)
	a.Reader = source.NewFSReader(cfg.MaxFileSize)

	a.Processor, err = batch.NewProcessor(a.Reader, a.Sink, cfg.ChunkConfig(), batch.Options{
		MaxWorkers:      cfg.MaxWorkers,
		DocumentTimeout: cfg.DocumentTimeout,
	})
	if err != nil {
		return nil, err
	}

	a.Service = service.NewIngestService(a.Processor, a.Sink, cfg.Collection, map[string]service.HealthCheck{
		"database": a.DB.PingContext,
		"vector_store": func(ctx context.Context) error {
			_, err := a.Vectors.Count(ctx, cfg.Collection)
			return err
		},
	})

	return a, nil
}

// CheckEmbedder embeds a probe text to verify the embeddings service and its vector size.
func (a *App) CheckEmbedder(ctx context.Context) error {
	vecs, err := a.Embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		return fmt.Errorf("failed to validate embedding client: %w", err)
	}
	if len(vecs) != 1 {
		return fmt.Errorf("embedding client returned %d vectors for one text", len(vecs))
	}
	return nil
}

// Close releases the database and the vector store connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
