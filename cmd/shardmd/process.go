package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shard-markdown/internal/app"
	"shard-markdown/internal/config"
	"shard-markdown/internal/service"
)

var processCmd = &cobra.Command{
	Use:   "process <paths...>",
	Short: "Chunk and index markdown files",
	Long: `Scan files, directories and glob patterns for markdown documents, split
each one into fixed-size overlapping chunks and store them in a collection.

Documents are processed by a bounded pool of workers. A failing document is
reported in the summary and does not stop the others. The command exits with
status 1 when any document failed.

Examples:
  shardmd process notes/                        # Top-level markdown files in notes/
  shardmd process -r notes/ --collection notes  # Recurse into subdirectories
  shardmd process 'docs/*.md' --chunk-size 500 --overlap 50
  shardmd process -r vault/ --workers 8 --force # Re-index unchanged documents`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	addProcessFlags(processCmd)
}

func addProcessFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("collection", "c", "", "Target collection (default: COLLECTION)")
	cmd.Flags().IntP("workers", "w", 0, "Maximum concurrent documents (default: MAX_WORKERS)")
	cmd.Flags().Int("chunk-size", 0, "Chunk size in characters (default: CHUNK_SIZE)")
	cmd.Flags().Int("overlap", 0, "Chunk overlap in characters (default: CHUNK_OVERLAP)")
	cmd.Flags().Duration("timeout", 0, "Per-document timeout, 0 disables it (default: DOCUMENT_TIMEOUT)")
	cmd.Flags().BoolP("recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().Bool("force", false, "Re-index documents whose content is unchanged")
}

// applyProcessFlags overrides configuration values with the flags the user set.
func applyProcessFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("collection") {
		cfg.Collection, _ = flags.GetString("collection")
	}
	if flags.Changed("workers") {
		cfg.MaxWorkers, _ = flags.GetInt("workers")
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("overlap") {
		cfg.ChunkOverlap, _ = flags.GetInt("overlap")
	}
	if flags.Changed("timeout") {
		cfg.DocumentTimeout, _ = flags.GetDuration("timeout")
	}
	return cfg.Validate()
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := applyProcessFlags(cmd, cfg); err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	recursive, _ := cmd.Flags().GetBool("recursive")

	a, err := app.New(ctx, cfg, app.Options{Force: force})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	res, err := a.Service.Process(ctx, service.ProcessRequest{
		Paths:      args,
		Collection: cfg.Collection,
		Recursive:  recursive,
	})
	if res != nil {
		if jsonOutput {
			if err := printJSON(os.Stdout, res); err != nil {
				return err
			}
		} else {
			printResult(os.Stdout, res)
		}
	}
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%w: %d of %d", errDocumentsFailed, len(res.Failed), res.Total)
	}
	return nil
}
