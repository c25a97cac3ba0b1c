package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"shard-markdown/internal/chunker"
)

// Vector backends.
const (
	BackendChromem = "chromem"
	BackendQdrant  = "qdrant"
)

// InMemory is the path value that keeps a store in memory instead of on disk.
const InMemory = ":memory:"

// Config holds all configuration for the application.
type Config struct {
	ChunkSize       int           `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap    int           `env:"CHUNK_OVERLAP" envDefault:"200"`
	MaxWorkers      int           `env:"MAX_WORKERS" envDefault:"4"`
	DocumentTimeout time.Duration `env:"DOCUMENT_TIMEOUT" envDefault:"60s"`
	MaxFileSize     int64         `env:"MAX_FILE_SIZE" envDefault:"10485760"`
	Collection      string        `env:"COLLECTION" envDefault:"documents"`

	VectorBackend   string `env:"VECTOR_BACKEND" envDefault:"chromem"`
	ChromemPath     string `env:"CHROMEM_PATH" envDefault:"./data/chromem"`
	ChromemCompress bool   `env:"CHROMEM_COMPRESS" envDefault:"false"`
	QdrantURL       string `env:"QDRANT_URL" envDefault:"http://localhost:6333"`
	// VectorSize must match the output size of the embeddings model.
	// If it changes, existing collections must be recreated.
	VectorSize int `env:"VECTOR_SIZE" envDefault:"768"`

	EmbeddingBaseURL   string `env:"EMBEDDING_BASE_URL" envDefault:"http://localhost:8081"`
	EmbeddingModelName string `env:"EMBEDDING_MODEL_NAME" envDefault:"granite-embedding-278m-multilingual"`
	EmbeddingAPIKey    string `env:"EMBEDDING_API_KEY"`

	DBPath string `env:"DB_PATH" envDefault:"./data/shard-markdown.db"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text"`
	APIPort   string     `env:"API_PORT" envDefault:"9000"`
}

// Load reads configuration from environment variables and returns a validated Config.
// If a .env file exists in the current directory or one of its parents, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads the nearest .env file, searching at most five directories up.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// ChunkConfig returns the chunking configuration.
func (c *Config) ChunkConfig() chunker.Config {
	return chunker.Config{Size: c.ChunkSize, Overlap: c.ChunkOverlap}
}

// Validate checks field ranges and combinations. It is called again after CLI flags override values.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ChunkConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("MAX_WORKERS must be at least 1, got %d", c.MaxWorkers))
	}
	if c.DocumentTimeout < 0 {
		errs = append(errs, fmt.Errorf("DOCUMENT_TIMEOUT must not be negative, got %s", c.DocumentTimeout))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FILE_SIZE must be greater than 0"))
	}
	if c.Collection == "" {
		errs = append(errs, fmt.Errorf("COLLECTION is required"))
	}
	switch c.VectorBackend {
	case BackendChromem:
	case BackendQdrant:
		if c.QdrantURL == "" {
			errs = append(errs, fmt.Errorf("QDRANT_URL is required for the qdrant backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendChromem, BackendQdrant, c.VectorBackend))
	}
	if c.VectorSize <= 0 {
		errs = append(errs, fmt.Errorf("VECTOR_SIZE must be greater than 0"))
	}
	if c.EmbeddingBaseURL == "" {
		errs = append(errs, fmt.Errorf("EMBEDDING_BASE_URL is required"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// EnsureDataDirs creates the parent directories of the on-disk stores.
func (c *Config) EnsureDataDirs() error {
	if c.DBPath != InMemory {
		if err := os.MkdirAll(filepath.Dir(c.DBPath), 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	if c.VectorBackend == BackendChromem && c.ChromemPath != InMemory {
		if err := os.MkdirAll(c.ChromemPath, 0755); err != nil {
			return fmt.Errorf("failed to create chromem directory: %w", err)
		}
	}
	return nil
}
