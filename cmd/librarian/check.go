package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"librarian/internal/consistency"
)

var (
	checkFormat string
	checkQuick  bool
	checkStrict bool
)

var checkCmd = &cobra.Command{
	Use:   "check <response-file>",
	Short: "Check a response for consistency with the repository",
	Long: `Score a generated response against the repository by verifying its
citations, checking claim entailment against extracted AST facts, and
looking for test evidence.

Exit status is non-zero when the response fails the consistency
threshold.

Examples:
  librarian check response.md
  librarian check response.md --quick          # citations only
  librarian check response.md --strict
  librarian check response.md --format=json`,
	Args: cobra.ExactArgs(1),
	Run:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "human", "Output format (json, human)")
	checkCmd.Flags().BoolVar(&checkQuick, "quick", false, "Run citation verification only")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Fail on any score below the threshold")
	rootCmd.AddCommand(checkCmd)
}

// CheckResponseCLI contains the consistency verdict for CLI output
type CheckResponseCLI struct {
	Result     consistency.Result `json:"result"`
	DurationMs int64              `json:"durationMs"`
}

func runCheck(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(checkFormat)

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading response: %v\n", err)
		os.Exit(1)
	}

	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot, logger)
	ctx := newContext()

	checker := consistency.NewChecker(logger)

	checkCfg := consistency.Config{
		CheckCitations:      cfg.Consistency.CheckCitations,
		CheckEntailment:     cfg.Consistency.CheckEntailment,
		CheckTestEvidence:   cfg.Consistency.CheckTestEvidence,
		StrictMode:          cfg.Consistency.StrictMode || checkStrict,
		MinConsistencyScore: cfg.Consistency.MinConsistencyScore,
		Concurrency:         cfg.Citation.Concurrency,
	}
	if checkQuick {
		checkCfg.CheckEntailment = false
		checkCfg.CheckTestEvidence = false
	}

	result := checker.Check(ctx, string(data), repoRoot, checkCfg)

	resp := &CheckResponseCLI{
		Result:     result,
		DurationMs: time.Since(start).Milliseconds(),
	}

	if OutputFormat(checkFormat) == FormatJSON {
		printJSON(resp)
	} else {
		printCheckHuman(resp)
	}

	if !result.Passed {
		os.Exit(1)
	}
}

func printCheckHuman(resp *CheckResponseCLI) {
	r := resp.Result

	verdict := "FAIL"
	if r.Passed {
		verdict = "PASS"
	}
	fmt.Printf("Consistency: %s (score %.2f, confidence %s)\n\n", verdict, r.Scores.OverallScore, r.Confidence)

	printScore := func(name string, v *float64) {
		if v == nil {
			fmt.Printf("  %-14s disabled\n", name)
			return
		}
		fmt.Printf("  %-14s %.2f\n", name, *v)
	}
	printScore("citations", r.Scores.CitationScore)
	printScore("entailment", r.Scores.EntailmentScore)
	printScore("test evidence", r.Scores.TestEvidenceScore)

	if r.CitationValidation != nil {
		s := r.CitationValidation.Statistics
		fmt.Printf("\nCitations: %d total, %d verified, %d partial, %d refuted\n",
			s.Total, s.Verified, s.PartiallyVerified, s.Refuted)
	}
	if r.EntailmentCheck != nil {
		fmt.Printf("Claims: %d entailed, %d contradicted, %d neutral\n",
			r.EntailmentCheck.Entailed, r.EntailmentCheck.Contradicted, r.EntailmentCheck.Neutral)
	}
	if r.TestVerification != nil && len(r.TestVerification.Identifiers) > 0 {
		fmt.Printf("Test evidence: %d/%d identifiers covered across %d test files\n",
			len(r.TestVerification.Covered), len(r.TestVerification.Identifiers), r.TestVerification.TestFiles)
	}

	if len(r.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range r.Warnings {
			fmt.Printf("  ! %s\n", w)
		}
	}
	if len(r.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
	fmt.Printf("\nCompleted in %dms\n", resp.DurationMs)
}
