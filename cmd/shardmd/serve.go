package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"shard-markdown/internal/app"
	"shard-markdown/internal/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the ingestion API on API_PORT.

Routes:
  GET  /api/health
  POST /api/process
  POST /api/query
  GET  /api/collections/{name}/stats`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx, cfg, app.Options{})
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		// Validate embedding client vector size (fail-fast)
		if err := a.CheckEmbedder(ctx); err != nil {
			return err
		}
		slog.Info("Embedding client validated", "vector_size", cfg.VectorSize)

		router := http.NewRouter(&http.Deps{IngestService: a.Service})
		server := &nethttp.Server{
			Addr:              ":" + cfg.APIPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("Starting API server", "addr", server.Addr)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("API server failed to start: %w", err)
		case <-ctx.Done():
		}

		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down API server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	},
}
