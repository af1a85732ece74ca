// Package config loads and validates librarian configuration from
// .librarian/config.json under the repository root.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete librarian configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Retrieval   RetrievalConfig   `json:"retrieval" mapstructure:"retrieval"`
	Grounding   GroundingConfig   `json:"grounding" mapstructure:"grounding"`
	Citation    CitationConfig    `json:"citation" mapstructure:"citation"`
	Consistency ConsistencyConfig `json:"consistency" mapstructure:"consistency"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// RetrievalConfig controls the hybrid retrieval engine
type RetrievalConfig struct {
	// RRFK is the reciprocal rank fusion constant (default 60)
	RRFK int `json:"rrfK" mapstructure:"rrfK"`
	// MaxResults truncates the fused result list
	MaxResults int `json:"maxResults" mapstructure:"maxResults"`
	// LexicalWeight/DenseWeight/GraphWeight bias retriever invocation.
	// A weight of exactly 0 skips that retriever entirely.
	LexicalWeight float64 `json:"lexicalWeight" mapstructure:"lexicalWeight"`
	DenseWeight   float64 `json:"denseWeight" mapstructure:"denseWeight"`
	GraphWeight   float64 `json:"graphWeight" mapstructure:"graphWeight"`
	// IndexPath is the optional persistent FTS index location
	IndexPath string `json:"indexPath" mapstructure:"indexPath"`
	// SCIPIndexPath is the optional SCIP index used by the graph retriever
	SCIPIndexPath string `json:"scipIndexPath" mapstructure:"scipIndexPath"`
}

// GroundingConfig controls the grounding verifier
type GroundingConfig struct {
	Threshold       float64 `json:"threshold" mapstructure:"threshold"`
	MaxChunkSize    int     `json:"maxChunkSize" mapstructure:"maxChunkSize"`
	ChunkOverlap    int     `json:"chunkOverlap" mapstructure:"chunkOverlap"`
	CacheTtlSeconds int     `json:"cacheTtlSeconds" mapstructure:"cacheTtlSeconds"`
}

// CitationConfig controls citation verification
type CitationConfig struct {
	// Concurrency bounds parallel citation checks in a batch
	Concurrency int `json:"concurrency" mapstructure:"concurrency"`
}

// ConsistencyConfig controls the comprehensive consistency checker
type ConsistencyConfig struct {
	CheckCitations      bool    `json:"checkCitations" mapstructure:"checkCitations"`
	CheckEntailment     bool    `json:"checkEntailment" mapstructure:"checkEntailment"`
	CheckTestEvidence   bool    `json:"checkTestEvidence" mapstructure:"checkTestEvidence"`
	StrictMode          bool    `json:"strictMode" mapstructure:"strictMode"`
	MinConsistencyScore float64 `json:"minConsistencyScore" mapstructure:"minConsistencyScore"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Retrieval: RetrievalConfig{
			RRFK:          60,
			MaxResults:    20,
			LexicalWeight: 1.0,
			DenseWeight:   1.0,
			GraphWeight:   1.0,
			IndexPath:     ".librarian/index.db",
			SCIPIndexPath: ".librarian/index.scip",
		},
		Grounding: GroundingConfig{
			Threshold:       0.55,
			MaxChunkSize:    2000,
			ChunkOverlap:    200,
			CacheTtlSeconds: 300,
		},
		Citation: CitationConfig{
			Concurrency: 4,
		},
		Consistency: ConsistencyConfig{
			CheckCitations:      true,
			CheckEntailment:     true,
			CheckTestEvidence:   false,
			StrictMode:          false,
			MinConsistencyScore: 0.7,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .librarian/config.json
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".librarian"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	// Unmarshal over defaults so absent sections keep sensible values
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to .librarian/config.json
func (c *Config) Save(repoRoot string) error {
	configPath := filepath.Join(repoRoot, ".librarian", "config.json")

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// Write to file
	return os.WriteFile(configPath, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Grounding.Threshold < 0 || c.Grounding.Threshold > 1 {
		return &ConfigError{Field: "grounding.threshold", Message: "must be in [0,1]"}
	}
	if c.Grounding.ChunkOverlap >= c.Grounding.MaxChunkSize && c.Grounding.MaxChunkSize > 0 {
		return &ConfigError{Field: "grounding.chunkOverlap", Message: "must be smaller than maxChunkSize"}
	}
	if c.Citation.Concurrency < 1 {
		return &ConfigError{Field: "citation.concurrency", Message: "must be at least 1"}
	}
	if c.Consistency.MinConsistencyScore < 0 || c.Consistency.MinConsistencyScore > 1 {
		return &ConfigError{Field: "consistency.minConsistencyScore", Message: "must be in [0,1]"}
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"retrieval.lexicalWeight", c.Retrieval.LexicalWeight},
		{"retrieval.denseWeight", c.Retrieval.DenseWeight},
		{"retrieval.graphWeight", c.Retrieval.GraphWeight},
	} {
		if w.value < 0 {
			return &ConfigError{Field: w.name, Message: "must not be negative"}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
