package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"librarian/internal/grounding"
)

var (
	groundFormat  string
	groundSources []string
)

var groundCmd = &cobra.Command{
	Use:   "ground <claim>",
	Short: "Verify a claim against source documents",
	Long: `Check whether a claim is grounded in the given source files:
chunked evidence is scored for entailment and relevance, and
contradicting evidence lowers the score.

Examples:
  librarian ground "getUser returns a Promise" --source=src/user.ts
  librarian ground "foo returns a number" --source=src/foo.ts --source=docs/foo.md`,
	Args: cobra.ExactArgs(1),
	Run:  runGround,
}

func init() {
	groundCmd.Flags().StringArrayVar(&groundSources, "source", nil, "Source file to ground against (repeatable)")
	groundCmd.Flags().StringVar(&groundFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(groundCmd)
}

func runGround(cmd *cobra.Command, args []string) {
	logger := newLogger(groundFormat)
	claim := args[0]

	if len(groundSources) == 0 {
		fmt.Fprintln(os.Stderr, "Provide at least one --source file.")
		os.Exit(1)
	}

	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot, logger)
	ctx := newContext()

	sources := make([]string, 0, len(groundSources))
	for _, path := range groundSources {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading source %s: %v\n", path, err)
			os.Exit(1)
		}
		sources = append(sources, string(data))
	}

	opts := grounding.DefaultOptions()
	if cfg.Grounding.Threshold > 0 {
		opts.Threshold = cfg.Grounding.Threshold
	}
	if cfg.Grounding.MaxChunkSize > 0 {
		opts.MaxChunkSize = cfg.Grounding.MaxChunkSize
	}
	if cfg.Grounding.ChunkOverlap > 0 {
		opts.ChunkOverlap = cfg.Grounding.ChunkOverlap
	}
	if cfg.Grounding.CacheTtlSeconds > 0 {
		opts.CacheTTL = time.Duration(cfg.Grounding.CacheTtlSeconds) * time.Second
	}

	verifier := grounding.NewVerifier(opts, logger)
	result := verifier.VerifyClaim(ctx, grounding.Check{
		Claim:           claim,
		SourceDocuments: sources,
	})

	if OutputFormat(groundFormat) == FormatJSON {
		printJSON(result)
		return
	}

	verdict := "NOT GROUNDED"
	if result.IsGrounded {
		verdict = "GROUNDED"
	}
	fmt.Printf("%s (score %.2f)\n", verdict, result.Score)
	fmt.Println(result.Explanation)

	if len(result.SupportingEvidence) > 0 {
		fmt.Println("\nSupporting evidence:")
		for _, ev := range result.SupportingEvidence {
			fmt.Printf("  [source %d, entailment %.2f, relevance %.2f] %s\n",
				ev.SourceIndex, ev.EntailmentScore, ev.RelevanceScore, ev.Excerpt)
		}
	}
	if len(result.ContradictingEvidence) > 0 {
		fmt.Println("\nContradicting evidence:")
		for _, ev := range result.ContradictingEvidence {
			fmt.Printf("  %s\n", ev)
		}
	}
}
