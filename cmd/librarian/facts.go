package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"librarian/internal/facts"
)

var (
	factsFormat string
	factsTypes  string
	factsVerify bool
)

var factsCmd = &cobra.Command{
	Use:   "facts <path>",
	Short: "Extract structural facts from source code",
	Long: `Parse a file or directory and print the extracted AST facts:
function definitions, classes, imports, exports, and call sites.

Requires a cgo build; without one the extractor reports no facts.

Examples:
  librarian facts src/auth/login.ts
  librarian facts ./src --format=human
  librarian facts ./src --types=function_def,class`,
	Args: cobra.ExactArgs(1),
	Run:  runFacts,
}

func init() {
	factsCmd.Flags().StringVar(&factsFormat, "format", "json", "Output format (json, human)")
	factsCmd.Flags().StringVar(&factsTypes, "types", "", "Filter by fact types (comma-separated)")
	factsCmd.Flags().BoolVar(&factsVerify, "verify", false, "Re-verify each extracted fact against the file on disk")
	rootCmd.AddCommand(factsCmd)
}

// FactsResponseCLI contains extracted facts for CLI output
type FactsResponseCLI struct {
	Path         string              `json:"path"`
	Total        int                 `json:"total"`
	Facts        []facts.ASTFact     `json:"facts"`
	Verification *VerificationSumCLI `json:"verification,omitempty"`
}

// VerificationSumCLI reports how many extracted facts still match disk.
type VerificationSumCLI struct {
	Checked  int `json:"checked"`
	Verified int `json:"verified"`
	Failed   int `json:"failed"`
}

func runFacts(cmd *cobra.Command, args []string) {
	path := args[0]
	ctx := newContext()

	extractor := facts.NewExtractor()
	if !facts.IsAvailable() {
		fmt.Fprintln(os.Stderr, "Warning: built without cgo; AST extraction is unavailable.")
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error accessing %s: %v\n", path, err)
		os.Exit(1)
	}

	var extracted []facts.ASTFact
	if info.IsDir() {
		extracted = extractor.ExtractDirectory(ctx, path)
	} else {
		extracted = extractor.ExtractFile(ctx, path)
	}

	extracted = filterFactTypes(extracted, factsTypes)

	resp := &FactsResponseCLI{Path: path, Total: len(extracted), Facts: extracted}

	if factsVerify {
		sum := &VerificationSumCLI{}
		for _, vf := range facts.ToVerifiable(extracted) {
			sum.Checked++
			if facts.VerifyFact(vf).Verified {
				sum.Verified++
			} else {
				sum.Failed++
			}
		}
		resp.Verification = sum
	}

	if OutputFormat(factsFormat) == FormatJSON {
		printJSON(resp)
		return
	}

	fmt.Printf("%d facts from %s\n\n", resp.Total, path)
	for _, f := range extracted {
		fmt.Printf("%-14s %-30s %s:%d\n", f.Type, f.Identifier, f.File, f.Line)
	}
	if resp.Verification != nil {
		fmt.Printf("\nVerification: %d/%d facts match the file on disk\n",
			resp.Verification.Verified, resp.Verification.Checked)
	}
}

func filterFactTypes(in []facts.ASTFact, typesCSV string) []facts.ASTFact {
	if typesCSV == "" {
		return in
	}
	wanted := make(map[facts.FactType]bool)
	for _, t := range splitCSV(typesCSV) {
		wanted[facts.FactType(t)] = true
	}
	out := make([]facts.ASTFact, 0, len(in))
	for _, f := range in {
		if wanted[f.Type] {
			out = append(out, f)
		}
	}
	return out
}
