package main

import (
	"os"

	"github.com/spf13/cobra"

	"shard-markdown/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats [collection]",
	Short: "Show manifest statistics for a collection",
	Long: `Display document and chunk counts, chunk length statistics and the
chunker and index versions recorded for a collection.

Examples:
  shardmd stats             # Statistics for COLLECTION
  shardmd stats notes       # Statistics for the notes collection
  shardmd stats notes --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		collection := cfg.Collection
		if len(args) == 1 {
			collection = args[0]
		}

		a, err := app.New(ctx, cfg, app.Options{})
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		stats, err := a.Service.Stats(ctx, collection)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(os.Stdout, stats)
		}
		printStats(os.Stdout, stats)
		return nil
	},
}
