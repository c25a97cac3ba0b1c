package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shard-markdown/internal/config"
	"shard-markdown/internal/contextutil"
)

var (
	cfg *config.Config

	// Global flags
	verbose    bool
	jsonOutput bool
)

// errDocumentsFailed makes the process exit non-zero after the summary is printed.
var errDocumentsFailed = errors.New("one or more documents failed")

var rootCmd = &cobra.Command{
	Use:   "shardmd",
	Short: "Chunk markdown files and index them into a vector store",
	Long: `shardmd splits markdown documents into fixed-size overlapping chunks,
embeds them and stores them in a chromem or Qdrant collection.

Configuration is read from the environment and an optional .env file.
Command line flags override the corresponding environment values.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger := newLogger(cfg)
		slog.SetDefault(logger)
		cmd.SetContext(contextutil.WithLogger(cmd.Context(), logger))
		slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger configures structured logging with the configured level and format.
// Logs go to stderr so command output on stdout stays machine readable.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errDocumentsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
