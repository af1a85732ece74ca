package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"librarian/internal/eval"
)

var (
	evalFixtures string
	evalFormat   string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate retrieval quality",
	Long: `Run retrieval quality benchmarks against the configured engine.

This command measures:
  - Recall@K: percentage of tests where an expected document was in top-K
  - MRR: mean reciprocal rank of correct results
  - Latency: average query execution time

Fixture files (.json, .yaml, .toml) carry their own corpus plus the test
cases run against it; without --fixtures the indexed corpus is used.

Examples:
  librarian eval --fixtures=./fixtures
  librarian eval --fixtures=./golden.yaml --format=json`,
	Run: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalFixtures, "fixtures", "", "Path to a fixtures file or directory")
	evalCmd.Flags().StringVar(&evalFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) {
	logger := newLogger(evalFormat)

	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot, logger)
	ctx := newContext()

	engine := newEngine(repoRoot, cfg, logger)
	suite := eval.NewSuite(engine, retrievalOptions(cfg), logger)

	if evalFixtures == "" {
		builtin := filepath.Join(repoRoot, ".librarian", "fixtures")
		if _, err := os.Stat(builtin); err != nil {
			fmt.Fprintln(os.Stderr, "No fixtures found; pass --fixtures or create .librarian/fixtures.")
			os.Exit(1)
		}
		evalFixtures = builtin
	}

	info, err := os.Stat(evalFixtures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error accessing fixtures: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		err = suite.LoadFixturesDir(evalFixtures)
	} else {
		err = suite.LoadFixtures(evalFixtures)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fixtures: %v\n", err)
		os.Exit(1)
	}

	// Fixtures without their own corpus run against the indexed documents.
	idx := mustGetDocumentIndex(repoRoot, logger)
	defer idx.Close()
	if docs, err := idx.Documents(ctx); err == nil && len(docs) > 0 {
		suite.AddCorpus(docs)
	}

	result, err := suite.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running evaluation: %v\n", err)
		os.Exit(1)
	}

	if evalFormat == "json" {
		jsonBytes, err := result.JSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Println(result.FormatReport())
		if result.PassedTests == result.TotalTests {
			fmt.Printf("\n✓ All %d tests passed\n", result.TotalTests)
		} else {
			fmt.Printf("\n✗ %d of %d tests failed\n", result.FailedTests, result.TotalTests)
		}
	}

	if result.FailedTests > 0 {
		os.Exit(1)
	}
}
