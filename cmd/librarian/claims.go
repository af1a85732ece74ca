package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"librarian/internal/claims"
)

var (
	claimsFormat string
	claimsFile   string
)

var claimsCmd = &cobra.Command{
	Use:   "claims [text]",
	Short: "Decompose a response into atomic claims",
	Long: `Split a natural-language response into atomic, independently
verifiable claims and classify each one.

Examples:
  librarian claims "The parser returns an AST and caches results."
  librarian claims --file=response.md
  librarian claims --file=response.md --format=human`,
	Args: cobra.MaximumNArgs(1),
	Run:  runClaims,
}

func init() {
	claimsCmd.Flags().StringVar(&claimsFile, "file", "", "Read the response text from a file")
	claimsCmd.Flags().StringVar(&claimsFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(claimsCmd)
}

// ClaimsResponseCLI contains decomposed claims for CLI output
type ClaimsResponseCLI struct {
	Total        int                  `json:"total"`
	AtomicClaims []claims.AtomicClaim `json:"atomicClaims"`
	Extracted    []claims.Claim       `json:"extracted"`
}

func runClaims(cmd *cobra.Command, args []string) {
	text := ""
	if len(args) == 1 {
		text = args[0]
	}
	if claimsFile != "" {
		data, err := os.ReadFile(claimsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", claimsFile, err)
			os.Exit(1)
		}
		text = string(data)
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "Provide response text as an argument or via --file.")
		os.Exit(1)
	}

	decomposer := claims.NewDecomposer()
	atomic := decomposer.Decompose(text)
	extracted := claims.ExtractClaims(text)

	resp := &ClaimsResponseCLI{
		Total:        len(atomic),
		AtomicClaims: atomic,
		Extracted:    extracted,
	}

	if OutputFormat(claimsFormat) == FormatJSON {
		printJSON(resp)
		return
	}

	fmt.Printf("%d atomic claims\n\n", len(atomic))
	for _, c := range atomic {
		fmt.Printf("  [%-12s %.2f] %s\n", c.Type, c.Confidence, c.Content)
	}
	if len(extracted) > 0 {
		fmt.Printf("\n%d checkable claims\n\n", len(extracted))
		for _, c := range extracted {
			fmt.Printf("  [%-10s] %s\n", c.Type, c.Text)
		}
	}
}
