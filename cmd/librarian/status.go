package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"librarian/internal/facts"
	"librarian/internal/scipload"
	"librarian/internal/version"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show librarian status for this repository",
	Long: `Report the state of the local librarian setup: configuration,
document index size, SCIP index availability, and AST extraction
support.

Examples:
  librarian status
  librarian status --format=json`,
	Run: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

// StatusResponseCLI contains status information for CLI output
type StatusResponseCLI struct {
	Version       string `json:"version"`
	RepoRoot      string `json:"repoRoot"`
	ConfigFound   bool   `json:"configFound"`
	IndexedDocs   int    `json:"indexedDocs"`
	SCIPIndex     bool   `json:"scipIndex"`
	SCIPIndexPath string `json:"scipIndexPath,omitempty"`
	ASTExtraction bool   `json:"astExtraction"`
}

func runStatus(cmd *cobra.Command, args []string) {
	logger := newLogger(statusFormat)
	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot, logger)
	ctx := newContext()

	resp := &StatusResponseCLI{
		Version:       version.Info(),
		RepoRoot:      repoRoot,
		ASTExtraction: facts.IsAvailable(),
	}

	if _, err := os.Stat(repoRoot + "/.librarian/config.json"); err == nil {
		resp.ConfigFound = true
	}

	if idx, err := getDocumentIndex(repoRoot, logger); err == nil {
		if n, err := idx.Count(ctx); err == nil {
			resp.IndexedDocs = n
		}
	}

	scipPath := scipload.ResolvePath(repoRoot, cfg.Retrieval.SCIPIndexPath)
	if _, err := os.Stat(scipPath); err == nil {
		resp.SCIPIndex = true
		resp.SCIPIndexPath = scipPath
	}

	if OutputFormat(statusFormat) == FormatJSON {
		printJSON(resp)
		return
	}

	fmt.Printf("librarian %s\n\n", resp.Version)
	fmt.Printf("  Repo root:      %s\n", resp.RepoRoot)
	fmt.Printf("  Config:         %s\n", yesNo(resp.ConfigFound, "found", "missing (run 'librarian init')"))
	fmt.Printf("  Indexed docs:   %d\n", resp.IndexedDocs)
	fmt.Printf("  SCIP index:     %s\n", yesNo(resp.SCIPIndex, resp.SCIPIndexPath, "not found"))
	fmt.Printf("  AST extraction: %s\n", yesNo(resp.ASTExtraction, "available", "unavailable (built without cgo)"))
}

func yesNo(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
