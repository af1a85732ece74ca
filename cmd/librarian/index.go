package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"librarian/internal/logging"
	"librarian/internal/retrieval"
)

var (
	indexExtensions string
	indexMaxSize    int64
)

// indexedExtensions are the source file types indexed by default.
var defaultIndexExtensions = []string{
	".go", ".ts", ".tsx", ".js", ".jsx", ".py",
	".md", ".json", ".yaml", ".yml", ".toml",
}

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Index source files for retrieval",
	Long: `Walk the given paths (default: repository root) and store source files
in the persistent document index used by search.

Examples:
  librarian index
  librarian index ./src ./docs
  librarian index --ext=.go,.md`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexExtensions, "ext", "",
		"Comma-separated file extensions to index (default: common source types)")
	indexCmd.Flags().Int64Var(&indexMaxSize, "max-size", 512*1024,
		"Skip files larger than this many bytes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logger := newLogger("human")
	repoRoot := mustGetRepoRoot()
	ctx := newContext()

	roots := args
	if len(roots) == 0 {
		roots = []string{repoRoot}
	}

	exts := defaultIndexExtensions
	if indexExtensions != "" {
		exts = strings.Split(indexExtensions, ",")
	}
	wanted := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.TrimSpace(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		wanted[strings.ToLower(e)] = true
	}

	var docs []retrieval.Document
	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				name := info.Name()
				if name != "." && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if !wanted[strings.ToLower(filepath.Ext(path))] || info.Size() > indexMaxSize {
				return nil
			}

			content, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("Skipping unreadable file", logging.Fields{"path": path, "error": err.Error()})
				return nil
			}

			rel, err := filepath.Rel(repoRoot, path)
			if err != nil {
				rel = path
			}
			docs = append(docs, retrieval.Document{
				ID:      filepath.ToSlash(rel),
				Content: string(content),
			})
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	if len(docs) == 0 {
		fmt.Println("No indexable files found.")
		return nil
	}

	idx := mustGetDocumentIndex(repoRoot, logger)
	defer idx.Close()

	if err := idx.Put(ctx, docs); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}

	total, err := idx.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d files (%d total in index) in %v\n",
		len(docs), total, time.Since(start).Round(time.Millisecond))
	return nil
}
