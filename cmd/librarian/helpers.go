package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"librarian/internal/config"
	"librarian/internal/logging"
	"librarian/internal/retrieval"
	"librarian/internal/scipload"
	"librarian/internal/storage"
)

var (
	indexOnce   sync.Once
	sharedIndex *storage.DocumentIndex
	indexErr    error
)

// getDocumentIndex returns a shared persistent document index.
// The index is lazily opened on first use.
func getDocumentIndex(repoRoot string, logger *logging.Logger) (*storage.DocumentIndex, error) {
	indexOnce.Do(func() {
		db, err := storage.Open(repoRoot, logger)
		if err != nil {
			indexErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		idx, err := storage.NewDocumentIndex(db, logger)
		if err != nil {
			indexErr = fmt.Errorf("failed to initialize document index: %w", err)
			return
		}
		sharedIndex = idx
	})
	return sharedIndex, indexErr
}

// mustGetDocumentIndex returns the shared document index or exits on error.
func mustGetDocumentIndex(repoRoot string, logger *logging.Logger) *storage.DocumentIndex {
	idx, err := getDocumentIndex(repoRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	return idx
}

// newEngine builds a retrieval engine from configuration. The graph
// channel is wired only when the configured SCIP index exists.
func newEngine(repoRoot string, cfg *config.Config, logger *logging.Logger) *retrieval.Engine {
	var graphSearcher *retrieval.GraphSearcher

	scipPath := scipload.ResolvePath(repoRoot, cfg.Retrieval.SCIPIndexPath)
	if _, err := os.Stat(scipPath); err == nil {
		idx, err := scipload.Load(scipPath)
		if err != nil {
			logger.Warn("Failed to load SCIP index, graph channel disabled", logging.Fields{
				"path":  scipPath,
				"error": err.Error(),
			})
		} else {
			provider := &retrieval.ProximityProvider{Graph: idx.BuildGraph(), MaxHops: 3}
			graphSearcher = retrieval.NewGraphSearcher(provider, logger)
		}
	}

	return retrieval.NewEngine(retrieval.NewLexicalSearcher(), nil, graphSearcher, logger)
}

// retrievalOptions maps config onto retrieval options.
func retrievalOptions(cfg *config.Config) retrieval.Options {
	opts := retrieval.DefaultOptions()
	if cfg.Retrieval.RRFK > 0 {
		opts.K = cfg.Retrieval.RRFK
	}
	if cfg.Retrieval.MaxResults > 0 {
		opts.MaxResults = cfg.Retrieval.MaxResults
	}
	opts.LexicalWeight = cfg.Retrieval.LexicalWeight
	opts.DenseWeight = cfg.Retrieval.DenseWeight
	opts.GraphWeight = cfg.Retrieval.GraphWeight
	return opts
}

// loadConfig loads configuration, falling back to defaults.
func loadConfig(repoRoot string, logger *logging.Logger) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", logging.Fields{
			"error": err.Error(),
		})
		return config.DefaultConfig()
	}
	return cfg
}

// getRepoRoot resolves the repository root from --repo or the working
// directory.
func getRepoRoot() (string, error) {
	if repoFlag != "" {
		return filepath.Abs(repoFlag)
	}
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}

// splitCSV splits a comma-separated flag value, trimming whitespace and
// dropping empty entries.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger with the specified format.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	level := logging.InfoLevel
	if os.Getenv("LIBRARIAN_LOG_LEVEL") == "debug" {
		level = logging.DebugLevel
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  level,
	})
}
