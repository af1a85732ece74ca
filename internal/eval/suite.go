// Package eval measures retrieval quality over a fixture corpus.
// It reports recall@K, MRR, and per-type breakdowns for fused search.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"librarian/internal/logging"
	"librarian/internal/retrieval"
)

// TestCase represents a single evaluation test case.
type TestCase struct {
	// ID is a unique identifier for this test case.
	ID string `json:"id" yaml:"id" toml:"id"`

	// Type is the test type: "needle", "expansion", or "ranking".
	Type string `json:"type" yaml:"type" toml:"type"`

	// Description says in prose what the query should find.
	Description string `json:"description" yaml:"description" toml:"description"`

	// Query is the search query to execute.
	Query string `json:"query" yaml:"query" toml:"query"`

	// ExpectedDocs are document IDs or ID patterns that should be found.
	// For needle tests: at least one must be in results.
	// For expansion tests: at least 80% must be in results.
	// For ranking tests: the first one should be in top-K.
	ExpectedDocs []string `json:"expectedDocs" yaml:"expectedDocs" toml:"expectedDocs"`

	// TopK is the number of results to consider (default: 10).
	TopK int `json:"topK,omitempty" yaml:"topK,omitempty" toml:"topK,omitempty"`
}

// FixtureFile is one on-disk fixture: a corpus plus the cases run
// against it.
type FixtureFile struct {
	Corpus []retrieval.Document `json:"corpus" yaml:"corpus" toml:"corpus"`
	Cases  []TestCase           `json:"cases" yaml:"cases" toml:"cases"`
}

// TestResult captures the outcome of a single test case.
type TestResult struct {
	TestCase   TestCase      `json:"testCase"`
	Passed     bool          `json:"passed"`
	FoundAt    int           `json:"foundAt,omitempty"`
	TotalFound int           `json:"totalFound,omitempty"`
	Duration   time.Duration `json:"duration"`
	TopResults []string      `json:"topResults,omitempty"`
}

// SuiteResult aggregates results across all test cases.
type SuiteResult struct {
	TotalTests  int     `json:"totalTests"`
	PassedTests int     `json:"passedTests"`
	FailedTests int     `json:"failedTests"`
	RecallAtK   float64 `json:"recallAtK"` // % of tests where expected was in top-K
	MRR         float64 `json:"mrr"`
	AvgLatency  float64 `json:"avgLatencyMs"`

	NeedleRecall    float64 `json:"needleRecall,omitempty"`
	ExpansionRecall float64 `json:"expansionRecall,omitempty"`
	RankingRecall   float64 `json:"rankingRecall,omitempty"`

	Results []TestResult `json:"results"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Suite runs evaluation tests against a retrieval engine.
type Suite struct {
	engine   *retrieval.Engine
	opts     retrieval.Options
	logger   *logging.Logger
	corpus   []retrieval.Document
	fixtures []TestCase
}

// NewSuite creates an evaluation suite.
func NewSuite(engine *retrieval.Engine, opts retrieval.Options, logger *logging.Logger) *Suite {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Suite{
		engine:   engine,
		opts:     opts,
		logger:   logger,
		fixtures: make([]TestCase, 0),
	}
}

// SetCorpus replaces the corpus queries run against.
func (s *Suite) SetCorpus(corpus []retrieval.Document) {
	s.corpus = corpus
}

// AddCorpus appends documents to the corpus, keeping any corpus loaded
// from fixture files.
func (s *Suite) AddCorpus(corpus []retrieval.Document) {
	s.corpus = append(s.corpus, corpus...)
}

// LoadFixtures loads a fixture file; the format follows the extension
// (.json, .yaml/.yml, or .toml).
func (s *Suite) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixtures: %w", err)
	}

	var fixture FixtureFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &fixture); err != nil {
			return fmt.Errorf("failed to parse JSON fixtures: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fixture); err != nil {
			return fmt.Errorf("failed to parse YAML fixtures: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &fixture); err != nil {
			return fmt.Errorf("failed to parse TOML fixtures: %w", err)
		}
	default:
		return fmt.Errorf("unsupported fixture format: %s", filepath.Ext(path))
	}

	for i := range fixture.Cases {
		if fixture.Cases[i].ID == "" {
			fixture.Cases[i].ID = fmt.Sprintf("test-%d", len(s.fixtures)+i+1)
		}
		if fixture.Cases[i].Type == "" {
			fixture.Cases[i].Type = "needle"
		}
		if fixture.Cases[i].TopK <= 0 {
			fixture.Cases[i].TopK = 10
		}
	}

	s.corpus = append(s.corpus, fixture.Corpus...)
	s.fixtures = append(s.fixtures, fixture.Cases...)
	return nil
}

// LoadFixturesDir loads every supported fixture file in a directory.
func (s *Suite) LoadFixturesDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read fixtures directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml", ".toml":
			if err := s.LoadFixtures(filepath.Join(dir, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddFixture adds a single test case programmatically.
func (s *Suite) AddFixture(tc TestCase) {
	if tc.TopK <= 0 {
		tc.TopK = 10
	}
	if tc.Type == "" {
		tc.Type = "needle"
	}
	s.fixtures = append(s.fixtures, tc)
}

// Run executes all test cases and returns aggregated results.
func (s *Suite) Run(ctx context.Context) (*SuiteResult, error) {
	if len(s.fixtures) == 0 {
		return nil, fmt.Errorf("no test fixtures loaded")
	}

	result := &SuiteResult{
		StartTime:  time.Now(),
		TotalTests: len(s.fixtures),
		Results:    make([]TestResult, 0, len(s.fixtures)),
	}

	var totalLatency time.Duration
	var reciprocalRankSum float64
	var needleTotal, needlePassed int
	var expansionTotal, expansionPassed int
	var rankingTotal, rankingPassed int

	for _, tc := range s.fixtures {
		tr := s.runTestCase(ctx, tc)
		result.Results = append(result.Results, tr)
		totalLatency += tr.Duration

		if tr.Passed {
			result.PassedTests++
		} else {
			result.FailedTests++
		}

		if tr.FoundAt > 0 {
			reciprocalRankSum += 1.0 / float64(tr.FoundAt)
		}

		switch tc.Type {
		case "needle":
			needleTotal++
			if tr.Passed {
				needlePassed++
			}
		case "expansion":
			expansionTotal++
			if tr.Passed {
				expansionPassed++
			}
		case "ranking":
			rankingTotal++
			if tr.Passed {
				rankingPassed++
			}
		}
	}

	result.EndTime = time.Now()

	result.RecallAtK = float64(result.PassedTests) / float64(result.TotalTests) * 100
	result.MRR = reciprocalRankSum / float64(result.TotalTests)
	result.AvgLatency = float64(totalLatency.Milliseconds()) / float64(result.TotalTests)

	if needleTotal > 0 {
		result.NeedleRecall = float64(needlePassed) / float64(needleTotal) * 100
	}
	if expansionTotal > 0 {
		result.ExpansionRecall = float64(expansionPassed) / float64(expansionTotal) * 100
	}
	if rankingTotal > 0 {
		result.RankingRecall = float64(rankingPassed) / float64(rankingTotal) * 100
	}

	return result, nil
}

func (s *Suite) runTestCase(ctx context.Context, tc TestCase) TestResult {
	start := time.Now()
	result := TestResult{TestCase: tc}

	opts := s.opts
	opts.MaxResults = tc.TopK * 2 // fetch extra for margin

	output := s.engine.Retrieve(ctx, tc.Query, s.corpus, opts)
	result.Duration = time.Since(start)

	topK := min(tc.TopK, len(output.Results))
	result.TopResults = make([]string, topK)
	for i := 0; i < topK; i++ {
		result.TopResults[i] = output.Results[i].ID
	}

	switch tc.Type {
	case "ranking":
		result.Passed, result.FoundAt = evaluateRanking(output.Results, tc.ExpectedDocs, tc.TopK)
	case "expansion":
		result.Passed, result.TotalFound = evaluateExpansion(output.Results, tc.ExpectedDocs)
	default:
		result.Passed, result.FoundAt = evaluateNeedle(output.Results, tc.ExpectedDocs, tc.TopK)
	}
	return result
}

// evaluateNeedle checks if at least one expected doc is in top-K.
func evaluateNeedle(results []retrieval.FusedResult, expected []string, topK int) (bool, int) {
	if len(expected) == 0 {
		return false, 0
	}
	limit := min(topK, len(results))
	for i := 0; i < limit; i++ {
		for _, exp := range expected {
			if matchDoc(results[i].ID, exp) {
				return true, i + 1
			}
		}
	}
	return false, 0
}

// evaluateRanking checks if the primary expected doc is in top-K.
func evaluateRanking(results []retrieval.FusedResult, expected []string, topK int) (bool, int) {
	if len(expected) == 0 {
		return false, 0
	}
	primary := expected[0]
	limit := min(topK, len(results))
	for i := 0; i < limit; i++ {
		if matchDoc(results[i].ID, primary) {
			return true, i + 1
		}
	}
	return false, 0
}

// evaluateExpansion passes when at least 80% of expected docs appear.
func evaluateExpansion(results []retrieval.FusedResult, expected []string) (bool, int) {
	found := 0
	for _, exp := range expected {
		for _, r := range results {
			if matchDoc(r.ID, exp) {
				found++
				break
			}
		}
	}
	threshold := max(1, int(float64(len(expected))*0.8))
	return found >= threshold, found
}

// matchDoc supports exact, case-insensitive, suffix, and substring
// matches so fixtures can use short patterns.
func matchDoc(id, pattern string) bool {
	if id == pattern || strings.EqualFold(id, pattern) {
		return true
	}
	if strings.HasSuffix(id, pattern) {
		return true
	}
	return strings.Contains(id, pattern)
}

// FormatReport generates a human-readable report.
func (r *SuiteResult) FormatReport() string {
	var sb strings.Builder

	sb.WriteString("=== Retrieval Evaluation Report ===\n\n")
	fmt.Fprintf(&sb, "Total Tests: %d\n", r.TotalTests)
	fmt.Fprintf(&sb, "Passed:      %d (%.1f%%)\n", r.PassedTests, r.RecallAtK)
	fmt.Fprintf(&sb, "Failed:      %d\n", r.FailedTests)
	fmt.Fprintf(&sb, "MRR:         %.3f\n", r.MRR)
	fmt.Fprintf(&sb, "Avg Latency: %.1fms\n", r.AvgLatency)
	fmt.Fprintf(&sb, "Duration:    %v\n\n", r.EndTime.Sub(r.StartTime).Round(time.Millisecond))

	if r.NeedleRecall > 0 || r.ExpansionRecall > 0 || r.RankingRecall > 0 {
		sb.WriteString("By Test Type:\n")
		if r.NeedleRecall > 0 {
			fmt.Fprintf(&sb, "  Needle:    %.1f%% recall\n", r.NeedleRecall)
		}
		if r.ExpansionRecall > 0 {
			fmt.Fprintf(&sb, "  Expansion: %.1f%% recall\n", r.ExpansionRecall)
		}
		if r.RankingRecall > 0 {
			fmt.Fprintf(&sb, "  Ranking:   %.1f%% recall\n", r.RankingRecall)
		}
		sb.WriteString("\n")
	}

	var failed []TestResult
	for _, tr := range r.Results {
		if !tr.Passed {
			failed = append(failed, tr)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("Failed Tests:\n")
		for _, tr := range failed {
			fmt.Fprintf(&sb, "  [%s] %s\n", tr.TestCase.ID, tr.TestCase.Description)
			fmt.Fprintf(&sb, "    Query: %q\n", tr.TestCase.Query)
			fmt.Fprintf(&sb, "    Expected: %v\n", tr.TestCase.ExpectedDocs)
			if len(tr.TopResults) > 0 {
				fmt.Fprintf(&sb, "    Got Top-3: %v\n", tr.TopResults[:min(3, len(tr.TopResults))])
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("Success Criteria:\n")
	fmt.Fprintf(&sb, "  Recall@10 >= 75%%: %v (current: %.1f%%)\n", r.RecallAtK >= 75, r.RecallAtK)
	fmt.Fprintf(&sb, "  Avg Latency < 100ms: %v (current: %.1fms)\n", r.AvgLatency < 100, r.AvgLatency)

	return sb.String()
}

// JSON returns the result as JSON.
func (r *SuiteResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// SortResultsByDuration sorts results by duration descending.
func (r *SuiteResult) SortResultsByDuration() {
	sort.Slice(r.Results, func(i, j int) bool {
		return r.Results[i].Duration > r.Results[j].Duration
	})
}

// SortResultsByID sorts results by test case ID.
func (r *SuiteResult) SortResultsByID() {
	sort.Slice(r.Results, func(i, j int) bool {
		return r.Results[i].TestCase.ID < r.Results[j].TestCase.ID
	})
}
