package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shard-markdown/internal/app"
	"shard-markdown/internal/service"
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search a collection for chunks similar to a text",
	Long: `Embed the query text and print the most similar chunks of a collection.

Examples:
  shardmd query "how do I install it"
  shardmd query -k 3 --collection notes "release checklist"
  shardmd query --filter file_name=setup.md "database migrations"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		k, _ := cmd.Flags().GetInt("limit")
		collection, _ := cmd.Flags().GetString("collection")
		filters, _ := cmd.Flags().GetStringToString("filter")

		a, err := app.New(ctx, cfg, app.Options{})
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		results, err := a.Service.Query(ctx, service.QueryRequest{
			Collection: collection,
			Text:       strings.Join(args, " "),
			K:          k,
			Filters:    filters,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(os.Stdout, results)
		}
		printMatches(os.Stdout, results)
		return nil
	},
}

func init() {
	queryCmd.Flags().IntP("limit", "k", 5, "Number of chunks to return")
	queryCmd.Flags().StringP("collection", "c", "", "Collection to search (default: COLLECTION)")
	queryCmd.Flags().StringToString("filter", nil, "Metadata filters as key=value pairs")
}
