package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"shard-markdown/internal/batch"
	"shard-markdown/internal/ingest"
	"shard-markdown/internal/vectorstore"
)

// maxSnippet is the number of characters of chunk text shown per match.
const maxSnippet = 160

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult writes a human readable batch summary.
func printResult(w io.Writer, res *batch.Result) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan("=== Batch "+res.BatchID+" ==="))
	fmt.Fprintf(w, "  Collection: %s\n", res.Collection)
	fmt.Fprintf(w, "  Documents:  %d\n", res.Total)
	fmt.Fprintf(w, "  Succeeded:  %s", green(res.Successful))
	if res.Skipped > 0 {
		fmt.Fprintf(w, " %s", gray(fmt.Sprintf("(%d unchanged)", res.Skipped)))
	}
	fmt.Fprintln(w)
	if len(res.Failed) > 0 {
		fmt.Fprintf(w, "  Failed:     %s\n", red(len(res.Failed)))
	} else {
		fmt.Fprintf(w, "  Failed:     0\n")
	}
	fmt.Fprintf(w, "  Chunks:     %d\n", res.ChunksStored)
	if res.ChunkStats.Count > 0 {
		fmt.Fprintf(w, "  Lengths:    %s\n", formatLengths(res.ChunkStats))
	}
	fmt.Fprintf(w, "  Duration:   %s\n", res.Duration.Round(time.Millisecond))

	if len(res.Failed) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", red("Failures:"))
	for _, f := range res.Failed {
		fmt.Fprintf(w, "  %s %s %s\n", red("✗"), f.DocumentID, gray("["+f.Stage.String()+"]"))
		fmt.Fprintf(w, "    %v\n", f.Err)
	}
}

// printStats writes the manifest statistics of a collection.
func printStats(w io.Writer, stats *ingest.CollectionStats) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan("=== Collection "+stats.Collection+" ==="))
	fmt.Fprintf(w, "  Documents:        %d\n", stats.Documents)
	if stats.DocumentsWithoutChunks > 0 {
		fmt.Fprintf(w, "  Without chunks:   %s\n", yellow(stats.DocumentsWithoutChunks))
	}
	fmt.Fprintf(w, "  Chunks:           %d\n", stats.ChunksStored)
	if stats.Points != stats.ChunksStored {
		fmt.Fprintf(w, "  Vector points:    %s\n", yellow(stats.Points))
	} else {
		fmt.Fprintf(w, "  Vector points:    %d\n", stats.Points)
	}
	if stats.ChunkLengths.Count > 0 {
		fmt.Fprintf(w, "  Chunk lengths:    %s\n", formatLengths(stats.ChunkLengths))
	}
	fmt.Fprintf(w, "  Chunker version:  %s\n", stats.ChunkerVersion)
	fmt.Fprintf(w, "  Index version:    %s\n", stats.IndexVersion)
}

// printMatches writes search results with a shortened snippet of each chunk.
func printMatches(w io.Writer, results []vectorstore.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, color.New(color.FgHiBlack).Sprint("No matches"))
		return
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	for i, r := range results {
		location := r.Meta[ingest.MetaSourcePath]
		if heading := r.Meta[ingest.MetaHeadingPath]; heading != "" {
			location += " › " + heading
		}
		fmt.Fprintf(w, "%d. %s %s\n", i+1, yellow(fmt.Sprintf("%.3f", r.Score)), location)
		fmt.Fprintf(w, "   %s\n", gray(snippet(r.Text, maxSnippet)))
	}
}

func formatLengths(s batch.LengthStats) string {
	return fmt.Sprintf("min %d, max %d, mean %.2f, p95 %d", s.Min, s.Max, s.Mean, s.P95)
}

// snippet flattens whitespace and truncates text to at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
