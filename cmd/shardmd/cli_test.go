package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"shard-markdown/internal/batch"
	"shard-markdown/internal/chunker"
	"shard-markdown/internal/config"
	"shard-markdown/internal/ingest"
	"shard-markdown/internal/vectorstore"
)

func init() {
	color.NoColor = true
}

func baseConfig() *config.Config {
	return &config.Config{
		ChunkSize:        1000,
		ChunkOverlap:     200,
		MaxWorkers:       4,
		DocumentTimeout:  time.Minute,
		MaxFileSize:      1 << 20,
		Collection:       "documents",
		VectorBackend:    config.BackendChromem,
		VectorSize:       768,
		EmbeddingBaseURL: "http://localhost:8081",
		LogFormat:        "text",
	}
}

func TestApplyProcessFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
		check   func(*config.Config) bool
	}{
		{
			name: "no flags keeps config",
			args: nil,
			check: func(cfg *config.Config) bool {
				return cfg.ChunkSize == 1000 && cfg.ChunkOverlap == 200 && cfg.MaxWorkers == 4 && cfg.Collection == "documents"
			},
		},
		{
			name: "overrides",
			args: []string{"--collection", "notes", "-w", "8", "--chunk-size", "500", "--overlap", "50", "--timeout", "5s"},
			check: func(cfg *config.Config) bool {
				return cfg.Collection == "notes" && cfg.MaxWorkers == 8 && cfg.ChunkSize == 500 &&
					cfg.ChunkOverlap == 50 && cfg.DocumentTimeout == 5*time.Second
			},
		},
		{
			name:    "overlap not smaller than size",
			args:    []string{"--chunk-size", "100", "--overlap", "100"},
			wantErr: chunker.ErrInvalidConfiguration,
		},
		{
			name:  "explicit zero overlap is kept",
			args:  []string{"--overlap", "0"},
			check: func(cfg *config.Config) bool { return cfg.ChunkOverlap == 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "process"}
			addProcessFlags(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			cfg := baseConfig()
			err := applyProcessFlags(cmd, cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("applyProcessFlags() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("applyProcessFlags() unexpected error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("applyProcessFlags() config = %+v", cfg)
			}
		})
	}
}

func TestPrintResult(t *testing.T) {
	res := &batch.Result{
		BatchID:      "b-1",
		Collection:   "notes",
		Total:        3,
		Successful:   2,
		Skipped:      1,
		ChunksStored: 4,
		ChunkStats:   batch.LengthStats{Count: 4, Min: 10, Max: 40, Mean: 25, P95: 40},
		Failed: []batch.Failure{{
			Index:      2,
			DocumentID: "notes/c.md",
			Stage:      batch.StageReading,
			Err:        fmt.Errorf("%w: file too large", batch.ErrRead),
		}},
	}

	var buf bytes.Buffer
	printResult(&buf, res)
	out := buf.String()

	for _, want := range []string{"=== Batch b-1 ===", "Succeeded:  2 (1 unchanged)", "Failed:     1", "min 10, max 40, mean 25.00, p95 40", "notes/c.md [reading]", "file too large"} {
		if !strings.Contains(out, want) {
			t.Errorf("printResult() output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, &ingest.CollectionStats{
		Collection:     "notes",
		Documents:      2,
		ChunksStored:   5,
		Points:         4,
		ChunkerVersion: ingest.ChunkerVersion,
		IndexVersion:   "0123456789abcdef",
	})
	out := buf.String()

	for _, want := range []string{"=== Collection notes ===", "Chunks:           5", "Vector points:    4", ingest.ChunkerVersion} {
		if !strings.Contains(out, want) {
			t.Errorf("printStats() output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintMatches(t *testing.T) {
	var buf bytes.Buffer
	printMatches(&buf, nil)
	if !strings.Contains(buf.String(), "No matches") {
		t.Errorf("printMatches() = %q, want no matches", buf.String())
	}

	buf.Reset()
	printMatches(&buf, []vectorstore.SearchResult{{
		Score: 0.87654,
		Text:  "Install\n\nthe   tool",
		Meta:  map[string]string{ingest.MetaSourcePath: "docs/setup.md", ingest.MetaHeadingPath: "# Setup"},
	}})
	out := buf.String()
	if !strings.Contains(out, "1. 0.877 docs/setup.md › # Setup") || !strings.Contains(out, "Install the tool") {
		t.Errorf("printMatches() output:\n%s", out)
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{name: "short", text: "a b", n: 10, want: "a b"},
		{name: "whitespace collapsed", text: " a\n\tb ", n: 10, want: "a b"},
		{name: "truncated by rune", text: "héllo wörld", n: 4, want: "héll…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snippet(tt.text, tt.n); got != tt.want {
				t.Errorf("snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}
