package main

import (
	"librarian/internal/version"

	"github.com/spf13/cobra"
)

var (
	// repoFlag is the CLI --repo flag value
	repoFlag string
)

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Librarian - grounded code retrieval and verification",
	Long: `Librarian retrieves code knowledge with hybrid lexical/dense/graph search
and verifies generated answers against the repository: it decomposes responses
into atomic claims, checks entailment against extracted AST facts, verifies
citations, and scores overall consistency.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("librarian version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "",
		"Repository root (default: current directory)")
}
