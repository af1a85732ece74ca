package citation

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"librarian/internal/logging"
)

// Verifier checks citations against a repository root.
type Verifier struct {
	logger *logging.Logger
}

// NewVerifier creates a citation verifier.
func NewVerifier(logger *logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Verifier{logger: logger}
}

// VerifyCitation dispatches on citation type. Verification never errors;
// malformed or unresolvable citations come back refuted with a named
// failing check.
func (v *Verifier) VerifyCitation(ctx context.Context, c Citation, repoRoot string) VerificationResult {
	start := time.Now()

	var result VerificationResult
	switch c.Type {
	case CodeReference, LineRange:
		result = v.verifyCodeReference(c, repoRoot)
	case IdentifierReference:
		result = v.verifyIdentifier(c, repoRoot)
	case Documentation:
		result = v.verifyDocumentation(c, repoRoot)
	case ExternalURL:
		result = v.verifyURL(c)
	case CommitReference:
		result = v.verifyCommit(c)
	case IssueReference:
		result = v.verifyIssue(c)
	default:
		result = VerificationResult{
			Citation: c,
			Status:   Unverified,
			Checks:   []CheckOutcome{{Name: "known_type", Passed: false, Confidence: 1.0, Details: string(c.Type)}},
		}
	}

	result.VerifiedAt = time.Now()
	result.VerificationDurationMs = time.Since(start).Milliseconds()
	return result
}

func (v *Verifier) verifyCodeReference(c Citation, repoRoot string) VerificationResult {
	result := VerificationResult{Citation: c}
	path := filepath.Join(repoRoot, c.File)

	data, err := os.ReadFile(path)
	if err != nil {
		result.Checks = append(result.Checks, CheckOutcome{Name: "file_exists", Passed: false, Confidence: 1.0, Details: c.File})
		result.Status = Refuted
		result.Grounding = &GroundingRelation{Type: "rebutting", From: c.Raw, To: c.File, Strength: 0.9}
		return result
	}
	result.Checks = append(result.Checks, CheckOutcome{Name: "file_exists", Passed: true, Confidence: 1.0})

	lineCount := countLines(data)
	if c.StartLine < 1 || c.EndLine > lineCount || c.StartLine > c.EndLine {
		result.Checks = append(result.Checks, CheckOutcome{
			Name:       "line_in_range",
			Passed:     false,
			Confidence: 1.0,
			Details:    fmt.Sprintf("lines %d-%d, file has %d", c.StartLine, c.EndLine, lineCount),
		})
		result.Status = Refuted
		result.Grounding = &GroundingRelation{Type: "rebutting", From: c.Raw, To: c.File, Strength: 0.9}
		return result
	}

	result.Checks = append(result.Checks, CheckOutcome{Name: "line_in_range", Passed: true, Confidence: 1.0})
	result.Status = Verified
	result.Confidence = 0.95
	result.Grounding = &GroundingRelation{
		Type:     "evidential",
		From:     c.Raw,
		To:       fmt.Sprintf("%s:%d", c.File, c.StartLine),
		Strength: result.Confidence,
	}
	return result
}

func (v *Verifier) verifyIdentifier(c Citation, repoRoot string) VerificationResult {
	result := VerificationResult{Citation: c}
	path := filepath.Join(repoRoot, c.File)

	data, err := os.ReadFile(path)
	if err != nil {
		result.Checks = append(result.Checks, CheckOutcome{Name: "file_exists", Passed: false, Confidence: 1.0, Details: c.File})
		result.Status = Refuted
		result.Grounding = &GroundingRelation{Type: "rebutting", From: c.Raw, To: c.File, Strength: 0.9}
		return result
	}
	result.Checks = append(result.Checks, CheckOutcome{Name: "file_exists", Passed: true, Confidence: 1.0})

	content := string(data)
	wordRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(c.Identifier) + `\b`)
	if loc := wordRe.FindStringIndex(content); loc != nil {
		result.Checks = append(result.Checks, CheckOutcome{Name: "identifier_found", Passed: true, Confidence: 1.0})
		result.MatchedFact = lineAround(content, loc[0])
		if c.StartLine > 0 {
			if identifierOnLine(content, c.Identifier, c.StartLine) {
				result.Checks = append(result.Checks, CheckOutcome{Name: "identifier_at_line", Passed: true, Confidence: 0.9})
				result.Status = Verified
				result.Confidence = 0.95
			} else {
				result.Checks = append(result.Checks, CheckOutcome{Name: "identifier_at_line", Passed: false, Confidence: 0.9})
				result.Status = PartiallyVerified
				result.Confidence = 0.6
			}
		} else {
			result.Status = Verified
			result.Confidence = 0.9
		}
		result.Grounding = &GroundingRelation{Type: "evidential", From: c.Raw, To: c.File, Strength: result.Confidence}
		return result
	}

	result.Checks = append(result.Checks, CheckOutcome{Name: "identifier_found", Passed: false, Confidence: 1.0, Details: c.Identifier})
	result.Status = Refuted
	result.Grounding = &GroundingRelation{Type: "rebutting", From: c.Raw, To: c.File, Strength: 0.9}
	if suggestion := nearestIdentifier(c.Identifier, content); suggestion != "" {
		result.Suggestion = suggestion
	}
	return result
}

func (v *Verifier) verifyDocumentation(c Citation, repoRoot string) VerificationResult {
	result := VerificationResult{Citation: c}

	if _, err := os.Stat(filepath.Join(repoRoot, c.File)); err != nil {
		result.Checks = append(result.Checks, CheckOutcome{Name: "file_exists", Passed: false, Confidence: 1.0, Details: c.File})
		result.Status = Refuted
		result.Grounding = &GroundingRelation{Type: "rebutting", From: c.Raw, To: c.File, Strength: 0.9}
		return result
	}

	result.Checks = append(result.Checks, CheckOutcome{Name: "file_exists", Passed: true, Confidence: 1.0})
	result.Status = Verified
	result.Confidence = 0.9
	result.Grounding = &GroundingRelation{Type: "evidential", From: c.Raw, To: c.File, Strength: result.Confidence}
	return result
}

// verifyURL format-validates only; no network fetch is performed.
func (v *Verifier) verifyURL(c Citation) VerificationResult {
	result := VerificationResult{Citation: c}

	parsed, err := url.Parse(c.URL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		result.Checks = append(result.Checks, CheckOutcome{Name: "url_format_valid", Passed: false, Confidence: 1.0, Details: c.URL})
		result.Status = Refuted
		return result
	}
	result.Checks = append(result.Checks, CheckOutcome{Name: "url_format_valid", Passed: true, Confidence: 1.0})

	if parsed.Scheme == "https" {
		result.Checks = append(result.Checks, CheckOutcome{Name: "url_secure", Passed: true, Confidence: 1.0})
		result.Status = Verified
		result.Confidence = 0.85
	} else {
		result.Checks = append(result.Checks, CheckOutcome{Name: "url_secure", Passed: false, Confidence: 1.0, Details: "non-HTTPS URL"})
		result.Status = PartiallyVerified
		result.Confidence = 0.6
	}
	return result
}

var shaPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

func (v *Verifier) verifyCommit(c Citation) VerificationResult {
	result := VerificationResult{Citation: c}

	if shaPattern.MatchString(c.SHA) {
		result.Checks = append(result.Checks, CheckOutcome{Name: "sha_format_valid", Passed: true, Confidence: 1.0})
		result.Status = Verified
		result.Confidence = 0.8
	} else {
		result.Checks = append(result.Checks, CheckOutcome{Name: "sha_format_valid", Passed: false, Confidence: 1.0, Details: c.SHA})
		result.Status = Refuted
	}
	return result
}

var issueFormat = regexp.MustCompile(`^(?:[\w.-]+/[\w.-]+)?#\d+$`)

func (v *Verifier) verifyIssue(c Citation) VerificationResult {
	result := VerificationResult{Citation: c}

	if issueFormat.MatchString(c.Identifier) {
		result.Checks = append(result.Checks, CheckOutcome{Name: "issue_format_valid", Passed: true, Confidence: 1.0})
		result.Status = Verified
		result.Confidence = 0.7
	} else {
		result.Checks = append(result.Checks, CheckOutcome{Name: "issue_format_valid", Passed: false, Confidence: 1.0, Details: c.Identifier})
		result.Status = Refuted
	}
	return result
}

// VerifyBatch verifies citations with bounded concurrency, preserving
// input order in the results.
func (v *Verifier) VerifyBatch(ctx context.Context, citations []Citation, repoRoot string, concurrency int) BatchResult {
	start := time.Now()
	batch := BatchResult{
		Results:    make([]VerificationResult, len(citations)),
		Statistics: Statistics{ByType: make(map[Type]TypeStatistics)},
	}
	if len(citations) == 0 {
		batch.CompletedAt = time.Now()
		return batch
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range citations {
		g.Go(func() error {
			// one failing citation must not abort the batch
			defer func() {
				if r := recover(); r != nil {
					batch.Results[i] = VerificationResult{
						Citation:   c,
						Status:     Unverified,
						Suggestion: fmt.Sprintf("verification failed: %v", r),
						VerifiedAt: time.Now(),
					}
				}
			}()
			batch.Results[i] = v.VerifyCitation(gctx, c, repoRoot)
			return nil
		})
	}
	_ = g.Wait()

	confidenceSum := 0.0
	for _, r := range batch.Results {
		batch.Statistics.Total++
		stats := batch.Statistics.ByType[r.Citation.Type]
		stats.Total++
		switch r.Status {
		case Verified:
			batch.Statistics.Verified++
			stats.Verified++
		case PartiallyVerified:
			batch.Statistics.PartiallyVerified++
		case Refuted:
			batch.Statistics.Refuted++
			stats.Refuted++
		case Unverified:
			batch.Statistics.Unverified++
		}
		batch.Statistics.ByType[r.Citation.Type] = stats
		confidenceSum += r.Confidence
	}

	if batch.Statistics.Total > 0 {
		batch.Statistics.VerificationRate =
			float64(batch.Statistics.Verified+batch.Statistics.PartiallyVerified) / float64(batch.Statistics.Total)
		batch.AggregateConfidence = confidenceSum / float64(batch.Statistics.Total)
	}
	batch.CompletedAt = time.Now()
	batch.TotalDurationMs = time.Since(start).Milliseconds()

	v.logger.Debug("verified citation batch", logging.Fields{
		"total":   batch.Statistics.Total,
		"refuted": batch.Statistics.Refuted,
	})
	return batch
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := 1
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	if data[len(data)-1] == '\n' {
		n--
	}
	return n
}

// lineAround returns the trimmed source line containing byte offset off.
func lineAround(content string, off int) string {
	start := strings.LastIndexByte(content[:off], '\n') + 1
	end := strings.IndexByte(content[off:], '\n')
	if end < 0 {
		end = len(content)
	} else {
		end += off
	}
	return strings.TrimSpace(content[start:end])
}

func identifierOnLine(content, identifier string, line int) bool {
	lines := strings.Split(content, "\n")
	if line < 1 || line > len(lines) {
		return false
	}
	return strings.Contains(lines[line-1], identifier)
}

var identifierScan = regexp.MustCompile(`[A-Za-z_$][\w$]{2,}`)

// nearestIdentifier finds the closest identifier in the file content by
// edit distance, for "did you mean" suggestions on refuted references.
func nearestIdentifier(target, content string) string {
	best := ""
	bestDist := len(target)/3 + 1 // only suggest close misses

	seen := make(map[string]bool)
	for _, cand := range identifierScan.FindAllString(content, -1) {
		if seen[cand] || cand == target {
			continue
		}
		seen[cand] = true
		if abs(len(cand)-len(target)) >= bestDist {
			continue
		}
		if d := levenshtein(target, cand); d < bestDist {
			bestDist = d
			best = cand
		}
	}
	return best
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
