package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"librarian/internal/logging"
	"librarian/internal/retrieval"
)

var (
	searchLimit  int
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed documents",
	Long: `Search the document index with hybrid retrieval.

The lexical (BM25) channel always runs; the graph channel runs when a
SCIP index is configured and present. Channel rankings are merged with
reciprocal rank fusion.

Examples:
  librarian search "session token validation"
  librarian search handleRequest --limit=5
  librarian search handleRequest --format=json`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of results (default: from config)")
	searchCmd.Flags().StringVar(&searchFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(searchCmd)
}

// SearchResponseCLI contains search results for CLI output
type SearchResponseCLI struct {
	Query      string                  `json:"query"`
	Total      int                     `json:"total"`
	Results    []retrieval.FusedResult `json:"results"`
	Metrics    retrieval.Metrics       `json:"metrics"`
	DurationMs int64                   `json:"durationMs"`
}

func runSearch(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(searchFormat)
	queryStr := args[0]

	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot, logger)
	ctx := newContext()

	idx := mustGetDocumentIndex(repoRoot, logger)
	defer idx.Close()

	corpus, err := idx.Documents(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading corpus: %v\n", err)
		os.Exit(1)
	}
	if len(corpus) == 0 {
		fmt.Fprintln(os.Stderr, "Index is empty; run 'librarian index' first.")
		os.Exit(1)
	}

	engine := newEngine(repoRoot, cfg, logger)
	opts := retrievalOptions(cfg)
	if searchLimit > 0 {
		opts.MaxResults = searchLimit
	}

	output := engine.Retrieve(ctx, queryStr, corpus, opts)

	resp := &SearchResponseCLI{
		Query:      queryStr,
		Total:      len(output.Results),
		Results:    output.Results,
		Metrics:    output.Metrics,
		DurationMs: time.Since(start).Milliseconds(),
	}

	if OutputFormat(searchFormat) == FormatJSON {
		printJSON(resp)
		return
	}

	fmt.Printf("%d results for %q\n\n", resp.Total, queryStr)
	for _, r := range output.Results {
		fmt.Printf("%3d. %-50s %.4f\n", r.Rank, r.ID, r.FusedScore)
		if snippet := firstLine(r.Content); snippet != "" {
			fmt.Printf("     %s\n", snippet)
		}
	}

	logger.Debug("Search completed", logging.Fields{
		"query":    queryStr,
		"results":  resp.Total,
		"duration": resp.DurationMs,
	})
}

// firstLine returns the first non-blank line, truncated for display.
func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 100 {
			return line[:100] + "..."
		}
		return line
	}
	return ""
}
