// Package consistency scores a response against a repository by
// combining citation verification, claim entailment, and test evidence.
package consistency

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"librarian/internal/citation"
	"librarian/internal/entailment"
	"librarian/internal/logging"
)

// Config toggles the individual sub-checks.
type Config struct {
	CheckCitations      bool    `json:"checkCitations"`
	CheckEntailment     bool    `json:"checkEntailment"`
	CheckTestEvidence   bool    `json:"checkTestEvidence"`
	StrictMode          bool    `json:"strictMode"`
	MinConsistencyScore float64 `json:"minConsistencyScore"`
	Concurrency         int     `json:"concurrency"`
}

// DefaultConfig enables every sub-check with the standard threshold.
func DefaultConfig() Config {
	return Config{
		CheckCitations:      true,
		CheckEntailment:     true,
		CheckTestEvidence:   true,
		MinConsistencyScore: 0.7,
		Concurrency:         4,
	}
}

// Confidence tiers for the overall score.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Scores holds per-check scores and the combined score. A disabled
// check's score pointer is nil, which is distinct from a genuine zero.
type Scores struct {
	CitationScore     *float64 `json:"citationScore,omitempty"`
	EntailmentScore   *float64 `json:"entailmentScore,omitempty"`
	TestEvidenceScore *float64 `json:"testEvidenceScore,omitempty"`
	OverallScore      float64  `json:"overallScore"`
}

// TestVerification details the test-evidence sub-check: which
// identifiers named in the response appear in the repository's tests.
type TestVerification struct {
	Identifiers []string `json:"identifiers"`
	Covered     []string `json:"covered"`
	TestFiles   int      `json:"testFiles"`
}

// Result carries the scores, the combined verdict, and the detail
// output of each enabled sub-check.
type Result struct {
	Response string `json:"response"`
	RepoPath string `json:"repoPath"`
	Scores   Scores `json:"scores"`

	Passed          bool     `json:"passed"`
	Confidence      string   `json:"confidence"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`

	CitationValidation *citation.BatchResult       `json:"citationValidation,omitempty"`
	EntailmentCheck    *entailment.ResponseSummary `json:"entailmentCheck,omitempty"`
	TestVerification   *TestVerification           `json:"testVerification,omitempty"`
}

// Checker runs consistency checks.
type Checker struct {
	citations *citation.Verifier
	claims    *entailment.Checker
	logger    *logging.Logger
}

// NewChecker creates a consistency checker.
func NewChecker(logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Checker{
		citations: citation.NewVerifier(logger),
		claims:    entailment.NewChecker(logger),
		logger:    logger,
	}
}

// Check runs the enabled sub-checks over a response and combines them.
func (c *Checker) Check(ctx context.Context, response, repoPath string, cfg Config) Result {
	result := Result{Response: response, RepoPath: repoPath}

	if cfg.CheckCitations {
		batch := c.citations.VerifyBatch(ctx, citation.ExtractCitations(response), repoPath, cfg.Concurrency)
		score := citationScore(batch)
		result.Scores.CitationScore = &score
		result.CitationValidation = &batch
	}

	if cfg.CheckEntailment {
		summary := c.claims.CheckResponse(ctx, response, repoPath)
		score := entailmentScore(summary)
		result.Scores.EntailmentScore = &score
		result.EntailmentCheck = &summary
	}

	if cfg.CheckTestEvidence {
		score, detail := testEvidence(response, repoPath)
		result.Scores.TestEvidenceScore = &score
		result.TestVerification = &detail
	}

	result.Scores.OverallScore = CalculateOverallScore(
		result.Scores.CitationScore, result.Scores.EntailmentScore, result.Scores.TestEvidenceScore)
	result.Confidence = confidenceTier(result.Scores.OverallScore)
	result.Passed = c.passed(result, cfg)
	result.Warnings = collectWarnings(result)
	result.Recommendations = GenerateRecommendations(result)

	c.logger.Debug("consistency check", logging.Fields{
		"overall":    result.Scores.OverallScore,
		"confidence": result.Confidence,
		"passed":     result.Passed,
	})
	return result
}

// QuickCheck runs citation validation only.
func (c *Checker) QuickCheck(ctx context.Context, response, repoPath string) Result {
	cfg := DefaultConfig()
	cfg.CheckEntailment = false
	cfg.CheckTestEvidence = false
	return c.Check(ctx, response, repoPath, cfg)
}

// FullCheck runs every sub-check with default configuration.
func (c *Checker) FullCheck(ctx context.Context, response, repoPath string) Result {
	return c.Check(ctx, response, repoPath, DefaultConfig())
}

// CalculateOverallScore combines the three component scores with fixed
// weights 0.3/0.4/0.3. Inputs are clamped to [0,1]; nil components count
// as 0 rather than renormalizing the weights, so disabling a check
// lowers the ceiling of the overall score.
func CalculateOverallScore(citationScore, entailmentScore, testEvidenceScore *float64) float64 {
	score := 0.3*clamped(citationScore) + 0.4*clamped(entailmentScore) + 0.3*clamped(testEvidenceScore)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (c *Checker) passed(result Result, cfg Config) bool {
	threshold := cfg.MinConsistencyScore
	if threshold <= 0 {
		threshold = DefaultConfig().MinConsistencyScore
	}

	if result.Scores.OverallScore >= threshold {
		return true
	}
	if cfg.StrictMode {
		return false
	}

	// lenient mode tolerates a modest shortfall as long as nothing was
	// actively refuted or contradicted
	if result.CitationValidation != nil && result.CitationValidation.Statistics.Refuted > 0 {
		return false
	}
	if result.EntailmentCheck != nil && result.EntailmentCheck.Contradicted > 0 {
		return false
	}
	return result.Scores.OverallScore >= threshold-0.15
}

func confidenceTier(score float64) string {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// collectWarnings lists the concrete findings that argue against the
// response: refuted citations and contradicted claims.
func collectWarnings(result Result) []string {
	out := []string{}
	if result.CitationValidation != nil {
		for _, r := range result.CitationValidation.Results {
			if r.Status == citation.Refuted {
				out = append(out, fmt.Sprintf("refuted citation: %s", r.Citation.Raw))
			}
		}
	}
	if result.EntailmentCheck != nil {
		for _, r := range result.EntailmentCheck.Results {
			if r.Verdict == entailment.Contradicted {
				out = append(out, fmt.Sprintf("contradicted claim: %s", r.Claim.Text))
			}
		}
	}
	return out
}

// GenerateRecommendations emits targeted suggestions keyed to the
// weakest enabled dimension. Strong results yield none.
func GenerateRecommendations(result Result) []string {
	var out []string

	if result.Scores.CitationScore != nil && *result.Scores.CitationScore < 0.6 {
		msg := "add or correct file and line citations; several references could not be verified"
		if result.CitationValidation != nil && result.CitationValidation.Statistics.Refuted > 0 {
			msg = fmt.Sprintf("%d citation(s) were refuted; update them to match the current code", result.CitationValidation.Statistics.Refuted)
		}
		out = append(out, msg)
	}
	if result.Scores.EntailmentScore != nil && *result.Scores.EntailmentScore < 0.6 {
		msg := "several claims are not supported by the code; verify each statement against the source"
		if result.EntailmentCheck != nil && result.EntailmentCheck.Contradicted > 0 {
			msg = fmt.Sprintf("%d claim(s) contradict the code; correct or remove them", result.EntailmentCheck.Contradicted)
		}
		out = append(out, msg)
	}
	if result.Scores.TestEvidenceScore != nil && *result.Scores.TestEvidenceScore < 0.6 {
		out = append(out, "little test evidence backs the described behavior; reference or add covering tests")
	}
	return out
}

// citationScore blends verification rate and aggregate confidence. A
// response with no citations scores a middling 0.5 rather than 0.
func citationScore(batch citation.BatchResult) float64 {
	if batch.Statistics.Total == 0 {
		return 0.5
	}
	return 0.7*batch.Statistics.VerificationRate + 0.3*batch.AggregateConfidence
}

// entailmentScore is the entailment rate; a response making no checkable
// claims scores a middling 0.5.
func entailmentScore(summary entailment.ResponseSummary) float64 {
	if len(summary.Results) == 0 {
		return 0.5
	}
	return summary.EntailmentRate
}

var testFileSuffixes = []string{"_test.go", ".test.ts", ".test.js", ".spec.ts", ".spec.js"}

var backtickedIdent = regexp.MustCompile("`([A-Za-z_$][\\w$]*)`")

// testEvidence measures how many identifiers named in the response
// appear in the repository's test files. A response naming no
// identifiers, or a repository with no test files, scores a middling
// 0.5 like the sibling sub-checks; a genuine miss scores low.
func testEvidence(response, repoPath string) (float64, TestVerification) {
	detail := TestVerification{Identifiers: []string{}, Covered: []string{}}

	seen := make(map[string]bool)
	for _, m := range backtickedIdent.FindAllStringSubmatch(response, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			detail.Identifiers = append(detail.Identifiers, m[1])
		}
	}
	sort.Strings(detail.Identifiers)
	if len(detail.Identifiers) == 0 {
		return 0.5, detail
	}

	var testContent strings.Builder
	_ = filepath.Walk(repoPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		name := info.Name()
		isTest := strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py")
		for _, suffix := range testFileSuffixes {
			if strings.HasSuffix(name, suffix) {
				isTest = true
				break
			}
		}
		if !isTest {
			return nil
		}
		if data, readErr := os.ReadFile(path); readErr == nil {
			detail.TestFiles++
			testContent.Write(data)
			testContent.WriteByte('\n')
		}
		return nil
	})

	if detail.TestFiles == 0 {
		return 0.5, detail
	}

	content := testContent.String()
	for _, ident := range detail.Identifiers {
		if strings.Contains(content, ident) {
			detail.Covered = append(detail.Covered, ident)
		}
	}
	return float64(len(detail.Covered)) / float64(len(detail.Identifiers)), detail
}

func clamped(v *float64) float64 {
	if v == nil {
		return 0
	}
	s := *v
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
