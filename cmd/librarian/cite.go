package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"librarian/internal/citation"
)

var citeFormat string

var citeCmd = &cobra.Command{
	Use:   "cite <response-file>",
	Short: "Extract and verify citations in a response",
	Long: `Extract every citation from a response (file references, line
ranges, identifiers, URLs, commits, issues) and verify each one against
the repository, producing a quality-graded report.

Examples:
  librarian cite response.md
  librarian cite response.md --format=json`,
	Args: cobra.ExactArgs(1),
	Run:  runCite,
}

func init() {
	citeCmd.Flags().StringVar(&citeFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(citeCmd)
}

func runCite(cmd *cobra.Command, args []string) {
	logger := newLogger(citeFormat)

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading response: %v\n", err)
		os.Exit(1)
	}

	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot, logger)
	ctx := newContext()

	verifier := citation.NewVerifier(logger)
	report := verifier.GenerateReport(ctx, string(data), repoRoot, cfg.Citation.Concurrency)

	if OutputFormat(citeFormat) == FormatJSON {
		printJSON(report)
		return
	}

	s := report.Batch.Statistics
	fmt.Printf("Citation quality: %s\n", report.Quality)
	fmt.Printf("  %d citations, %d verified, %d partial, %d refuted (%.0f%% verified)\n\n",
		s.Total, s.Verified, s.PartiallyVerified, s.Refuted, s.VerificationRate*100)

	for _, r := range report.Batch.Results {
		status := "✓"
		switch r.Status {
		case citation.Refuted:
			status = "✗"
		case citation.PartiallyVerified:
			status = "~"
		}
		fmt.Printf("  %s [%-20s] %s\n", status, r.Citation.Type, r.Citation.Raw)
	}

	if len(report.GroundingChain) > 0 {
		fmt.Println("\nGrounding chain:")
		for _, link := range report.GroundingChain {
			fmt.Printf("  %s\n", link)
		}
	}

	if len(report.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range report.Recommendations {
			fmt.Printf("  [%s] %s\n", rec.Severity, rec.Message)
		}
	}
}
