package consistency

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarian/internal/logging"
)

func fptr(v float64) *float64 { return &v }

func TestCalculateOverallScoreFormula(t *testing.T) {
	assert.InDelta(t, 0.3, CalculateOverallScore(fptr(1), fptr(0), fptr(0)), 1e-9)
	assert.InDelta(t, 0.4, CalculateOverallScore(fptr(0), fptr(1), fptr(0)), 1e-9)
	assert.InDelta(t, 0.3, CalculateOverallScore(fptr(0), fptr(0), fptr(1)), 1e-9)
	assert.InDelta(t, 1.0, CalculateOverallScore(fptr(1), fptr(1), fptr(1)), 1e-9)
	assert.Zero(t, CalculateOverallScore(fptr(0), fptr(0), fptr(0)))
}

func TestCalculateOverallScoreAbsentAndClamping(t *testing.T) {
	// absent components count as zero, they do not renormalize weights
	assert.InDelta(t, 0.4, CalculateOverallScore(nil, fptr(1), nil), 1e-9)
	assert.Zero(t, CalculateOverallScore(nil, nil, nil))

	// out-of-range inputs are clamped before combining
	assert.InDelta(t, 1.0, CalculateOverallScore(fptr(5), fptr(3), fptr(2)), 1e-9)
	assert.Zero(t, CalculateOverallScore(fptr(-1), fptr(-2), fptr(0)))
}

func TestConfidenceTiers(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, confidenceTier(0.8))
	assert.Equal(t, ConfidenceHigh, confidenceTier(0.95))
	assert.Equal(t, ConfidenceMedium, confidenceTier(0.5))
	assert.Equal(t, ConfidenceMedium, confidenceTier(0.79))
	assert.Equal(t, ConfidenceLow, confidenceTier(0.49))
}

func writeE2ERepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	var barTS string
	for i := 1; i < 10; i++ {
		barTS += "// filler line\n"
	}
	barTS += "function foo(): string {\n  return 'ok';\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "bar.ts"), []byte(barTS), 0o644))

	testTS := "import { foo } from './bar';\n\ntest('foo yields a string', () => {\n  expect(typeof foo()).toBe('string');\n});\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "bar.test.ts"), []byte(testTS), 0o644))
	return root
}

func TestFullCheckEndToEnd(t *testing.T) {
	c := NewChecker(logging.NewNopLogger())
	root := writeE2ERepo(t)

	response := "The function `foo` in `src/bar.ts:10` returns a string."
	result := c.FullCheck(context.Background(), response, root)

	require.NotNil(t, result.Scores.CitationScore)
	require.NotNil(t, result.Scores.EntailmentScore)
	require.NotNil(t, result.Scores.TestEvidenceScore)

	require.NotNil(t, result.CitationValidation)
	assert.Equal(t, 1, result.CitationValidation.Statistics.Verified)
	assert.Zero(t, result.CitationValidation.Statistics.Refuted)

	require.NotNil(t, result.TestVerification)
	assert.Contains(t, result.TestVerification.Covered, "foo")
	assert.Equal(t, 1, result.TestVerification.TestFiles)

	assert.GreaterOrEqual(t, result.Scores.OverallScore, 0.7)
	assert.Contains(t, []string{ConfidenceHigh, ConfidenceMedium}, result.Confidence)
	assert.True(t, result.Passed)
	assert.Equal(t, response, result.Response)
	assert.Equal(t, root, result.RepoPath)
	assert.Empty(t, result.Warnings)
}

func TestQuickCheckCitationsOnly(t *testing.T) {
	c := NewChecker(logging.NewNopLogger())
	root := writeE2ERepo(t)

	result := c.QuickCheck(context.Background(), "See src/bar.ts:10 for the definition.", root)

	require.NotNil(t, result.Scores.CitationScore)
	assert.Nil(t, result.Scores.EntailmentScore)
	assert.Nil(t, result.Scores.TestEvidenceScore)
	assert.Nil(t, result.EntailmentCheck)
	assert.Nil(t, result.TestVerification)
}

func TestCheckDisabledChecksAreAbsent(t *testing.T) {
	c := NewChecker(logging.NewNopLogger())

	cfg := Config{CheckTestEvidence: true, MinConsistencyScore: 0.7}
	result := c.Check(context.Background(), "response with `foo`", t.TempDir(), cfg)

	assert.Nil(t, result.Scores.CitationScore)
	assert.Nil(t, result.Scores.EntailmentScore)
	require.NotNil(t, result.Scores.TestEvidenceScore)
}

func TestStrictModeNeverMoreLenient(t *testing.T) {
	c := NewChecker(logging.NewNopLogger())
	root := writeE2ERepo(t)
	response := "The function `foo` in `src/bar.ts:10` returns a string."

	strict := DefaultConfig()
	strict.StrictMode = true
	strict.MinConsistencyScore = 0.99

	lenient := DefaultConfig()
	lenient.MinConsistencyScore = 0.99

	strictResult := c.Check(context.Background(), response, root, strict)
	lenientResult := c.Check(context.Background(), response, root, lenient)

	// lenient mode may pass where strict fails, never the reverse
	if strictResult.Passed {
		assert.True(t, lenientResult.Passed)
	}
}

func TestStrictModeRefutedCitationFails(t *testing.T) {
	c := NewChecker(logging.NewNopLogger())
	root := t.TempDir()

	cfg := DefaultConfig()
	result := c.Check(context.Background(), "See src/missing.ts:3 for details.", root, cfg)

	require.NotNil(t, result.CitationValidation)
	assert.Equal(t, 1, result.CitationValidation.Statistics.Refuted)
	assert.False(t, result.Passed)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "refuted citation")
}

func TestGenerateRecommendations(t *testing.T) {
	low := 0.2
	high := 0.9

	weak := Result{Scores: Scores{
		CitationScore:     &low,
		EntailmentScore:   &low,
		TestEvidenceScore: &low,
	}}
	recs := GenerateRecommendations(weak)
	assert.Len(t, recs, 3)

	strong := Result{Scores: Scores{
		CitationScore:     &high,
		EntailmentScore:   &high,
		TestEvidenceScore: &high,
	}}
	assert.Empty(t, GenerateRecommendations(strong))

	// disabled dimensions yield no recommendation even when weak overall
	partial := Result{Scores: Scores{EntailmentScore: &low}}
	recs = GenerateRecommendations(partial)
	assert.Len(t, recs, 1)
	assert.Contains(t, recs[0], "claim")
}

func TestTestEvidence(t *testing.T) {
	root := writeE2ERepo(t)

	score, detail := testEvidence("The `foo` helper is covered.", root)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Equal(t, []string{"foo"}, detail.Covered)
	assert.Equal(t, 1, detail.TestFiles)

	score, detail = testEvidence("The `unrelatedThing` helper.", root)
	assert.Zero(t, score)
	assert.Empty(t, detail.Covered)

	score, detail = testEvidence("no identifiers here", root)
	assert.InDelta(t, 0.5, score, 1e-9)
	assert.Empty(t, detail.Identifiers)
}

func TestTestEvidenceNeutralWithoutTestFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "bar.ts"), []byte("function foo(): string {}\n"), 0o644))

	score, detail := testEvidence("The `foo` helper.", root)
	assert.InDelta(t, 0.5, score, 1e-9)
	assert.Zero(t, detail.TestFiles)
	assert.Equal(t, []string{"foo"}, detail.Identifiers)
	assert.Empty(t, detail.Covered)
}

func TestFullCheckRepoWithoutTests(t *testing.T) {
	c := NewChecker(logging.NewNopLogger())
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	var barTS string
	for i := 1; i < 10; i++ {
		barTS += "// filler line\n"
	}
	barTS += "function foo(): string {\n  return 'ok';\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "bar.ts"), []byte(barTS), 0o644))

	result := c.FullCheck(context.Background(), "The function `foo` in `src/bar.ts:10` returns a string.", root)

	require.NotNil(t, result.Scores.TestEvidenceScore)
	assert.InDelta(t, 0.5, *result.Scores.TestEvidenceScore, 1e-9)
	assert.GreaterOrEqual(t, result.Scores.OverallScore, 0.7)
	assert.Contains(t, []string{ConfidenceHigh, ConfidenceMedium}, result.Confidence)
	assert.True(t, result.Passed)
}
