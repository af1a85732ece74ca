package citation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarian/internal/logging"
)

func fixtureRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	barTS := "// bar module\n" +
		"import { db } from './db';\n" +
		"\n" +
		"export function getUser(id: string): User {\n" +
		"  return db.load(id);\n" +
		"}\n" +
		"\n" +
		"export function listUsers(): User[] {\n" +
		"  return db.all();\n" +
		"}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "bar.ts"), []byte(barTS), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# fixture\n"), 0o644))
	return root
}

func TestExtractCitations(t *testing.T) {
	text := "The handler in `src/bar.ts:4` loads users. The range src/bar.ts:4-6 shows the body, " +
		"and src/bar.ts#L8-L10 covers listing. `getUser` in `src/bar.ts` is the entry point. " +
		"See README.md and https://example.com/docs. Fixed in commit abc1234 and tracked in owner/repo#456."

	citations := ExtractCitations(text)
	byType := make(map[Type]int)
	for _, c := range citations {
		byType[c.Type]++
	}

	assert.Equal(t, 1, byType[CodeReference], "file:line")
	assert.Equal(t, 2, byType[LineRange], "colon range plus #L range")
	assert.Equal(t, 1, byType[IdentifierReference])
	assert.Equal(t, 1, byType[Documentation])
	assert.Equal(t, 1, byType[ExternalURL])
	assert.Equal(t, 1, byType[CommitReference])
	assert.Equal(t, 1, byType[IssueReference])

	// positions are ascending and claims carry the surrounding sentence
	last := -1
	for _, c := range citations {
		assert.Greater(t, c.Position, last)
		last = c.Position
		assert.NotEmpty(t, c.Claim)
		assert.NotEmpty(t, c.ID)
		if c.Type == IssueReference {
			assert.Equal(t, 456, c.IssueNumber)
			assert.Equal(t, "owner/repo", c.Repository)
		}
	}
}

func TestExtractCitationsDetails(t *testing.T) {
	citations := ExtractCitations("See src/bar.ts:25-35 and src/qux.ts#L7.")
	require.Len(t, citations, 2)

	assert.Equal(t, LineRange, citations[0].Type)
	assert.Equal(t, "src/bar.ts", citations[0].File)
	assert.Equal(t, 25, citations[0].StartLine)
	assert.Equal(t, 35, citations[0].EndLine)

	assert.Equal(t, CodeReference, citations[1].Type)
	assert.Equal(t, 7, citations[1].StartLine)
}

func TestExtractCitationsTrimsURLPunctuation(t *testing.T) {
	citations := ExtractCitations("Docs at https://example.com/guide.")
	require.Len(t, citations, 1)
	assert.Equal(t, "https://example.com/guide", citations[0].URL)
}

func TestExtractCitationsEmpty(t *testing.T) {
	assert.Empty(t, ExtractCitations("Plain prose with no references at all"))
}

func TestVerifyCodeReference(t *testing.T) {
	v := NewVerifier(logging.NewNopLogger())
	root := fixtureRepo(t)
	ctx := context.Background()

	ok := v.VerifyCitation(ctx, Citation{
		Type: CodeReference, File: "src/bar.ts", StartLine: 4, EndLine: 4,
	}, root)
	assert.Equal(t, Verified, ok.Status)
	require.NotNil(t, ok.Grounding)
	assert.Equal(t, "evidential", ok.Grounding.Type)
	assert.Equal(t, "src/bar.ts:4", ok.Grounding.To)
	assert.InDelta(t, 0.95, ok.Grounding.Strength, 0.001)
	assert.False(t, ok.VerifiedAt.IsZero())
	assert.GreaterOrEqual(t, ok.VerificationDurationMs, int64(0))

	missing := v.VerifyCitation(ctx, Citation{
		Type: CodeReference, File: "src/gone.ts", StartLine: 1, EndLine: 1,
	}, root)
	assert.Equal(t, Refuted, missing.Status)
	require.NotNil(t, missing.Grounding)
	assert.Equal(t, "rebutting", missing.Grounding.Type)
	requireCheck(t, missing, "file_exists", false)

	outOfRange := v.VerifyCitation(ctx, Citation{
		Type: LineRange, File: "src/bar.ts", StartLine: 500, EndLine: 510,
	}, root)
	assert.Equal(t, Refuted, outOfRange.Status)
	requireCheck(t, outOfRange, "line_in_range", false)
}

func TestVerifyIdentifierReference(t *testing.T) {
	v := NewVerifier(logging.NewNopLogger())
	root := fixtureRepo(t)
	ctx := context.Background()

	ok := v.VerifyCitation(ctx, Citation{
		Type: IdentifierReference, File: "src/bar.ts", Identifier: "getUser",
	}, root)
	assert.Equal(t, Verified, ok.Status)
	assert.Contains(t, ok.MatchedFact, "getUser")

	nearMiss := v.VerifyCitation(ctx, Citation{
		Type: IdentifierReference, File: "src/bar.ts", Identifier: "getUsr",
	}, root)
	assert.Equal(t, Refuted, nearMiss.Status)
	assert.Equal(t, "getUser", nearMiss.Suggestion)
}

func TestVerifyDocumentation(t *testing.T) {
	v := NewVerifier(logging.NewNopLogger())
	root := fixtureRepo(t)
	ctx := context.Background()

	assert.Equal(t, Verified,
		v.VerifyCitation(ctx, Citation{Type: Documentation, File: "README.md"}, root).Status)
	assert.Equal(t, Refuted,
		v.VerifyCitation(ctx, Citation{Type: Documentation, File: "docs/none.md"}, root).Status)
}

func TestVerifyURL(t *testing.T) {
	v := NewVerifier(logging.NewNopLogger())
	ctx := context.Background()

	https := v.VerifyCitation(ctx, Citation{Type: ExternalURL, URL: "https://example.com"}, "")
	assert.Equal(t, Verified, https.Status)
	requireCheck(t, https, "url_secure", true)

	http := v.VerifyCitation(ctx, Citation{Type: ExternalURL, URL: "http://example.com"}, "")
	assert.Equal(t, PartiallyVerified, http.Status)
	requireCheck(t, http, "url_secure", false)

	bad := v.VerifyCitation(ctx, Citation{Type: ExternalURL, URL: "https://"}, "")
	assert.Equal(t, Refuted, bad.Status)
}

func TestVerifyCommitAndIssue(t *testing.T) {
	v := NewVerifier(logging.NewNopLogger())
	ctx := context.Background()

	good := v.VerifyCitation(ctx, Citation{Type: CommitReference, SHA: "abc1234"}, "")
	assert.Equal(t, Verified, good.Status)
	requireCheck(t, good, "sha_format_valid", true)

	bad := v.VerifyCitation(ctx, Citation{Type: CommitReference, SHA: "nothex!"}, "")
	assert.Equal(t, Refuted, bad.Status)
	requireCheck(t, bad, "sha_format_valid", false)

	issue := v.VerifyCitation(ctx, Citation{Type: IssueReference, Identifier: "owner/repo#456"}, "")
	assert.Equal(t, Verified, issue.Status)
}

func TestVerifyBatch(t *testing.T) {
	v := NewVerifier(logging.NewNopLogger())
	root := fixtureRepo(t)

	citations := []Citation{
		{Type: CodeReference, File: "src/bar.ts", StartLine: 4, EndLine: 4},
		{Type: CodeReference, File: "src/gone.ts", StartLine: 1, EndLine: 1},
		{Type: ExternalURL, URL: "https://example.com"},
	}

	batch := v.VerifyBatch(context.Background(), citations, root, 2)
	require.Len(t, batch.Results, 3)

	// order is preserved despite concurrent verification
	assert.Equal(t, "src/bar.ts", batch.Results[0].Citation.File)
	assert.Equal(t, "src/gone.ts", batch.Results[1].Citation.File)

	assert.Equal(t, 3, batch.Statistics.Total)
	assert.Equal(t, 2, batch.Statistics.Verified)
	assert.Equal(t, 1, batch.Statistics.Refuted)
	assert.InDelta(t, 2.0/3.0, batch.Statistics.VerificationRate, 1e-9)
	assert.Equal(t, 1, batch.Statistics.ByType[CodeReference].Refuted)
	assert.False(t, batch.CompletedAt.IsZero())
}

func TestVerifyBatchEmpty(t *testing.T) {
	v := NewVerifier(logging.NewNopLogger())

	batch := v.VerifyBatch(context.Background(), nil, "", 4)
	assert.Empty(t, batch.Results)
	assert.Zero(t, batch.Statistics.Total)
	assert.Zero(t, batch.AggregateConfidence)
}

func TestGenerateReport(t *testing.T) {
	v := NewVerifier(logging.NewNopLogger())
	root := fixtureRepo(t)

	good := v.GenerateReport(context.Background(),
		"The function at src/bar.ts:4 loads a user.", root, 2)
	assert.Equal(t, QualityExcellent, good.Quality)
	assert.NotEmpty(t, good.GroundingChain)
	assert.Empty(t, good.Recommendations)

	bad := v.GenerateReport(context.Background(),
		"See src/gone.ts:12 and src/lost.ts:3 for details.", root, 2)
	assert.Equal(t, QualityFailing, bad.Quality)
	require.NotEmpty(t, bad.Recommendations)
	assert.Equal(t, "critical", bad.Recommendations[0].Severity)

	none := v.GenerateReport(context.Background(), "no references here", root, 2)
	assert.Equal(t, QualityAcceptable, none.Quality)
	require.Len(t, none.Recommendations, 1)
	assert.Equal(t, "info", none.Recommendations[0].Severity)
}

func requireCheck(t *testing.T, r VerificationResult, name string, passed bool) {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			assert.Equal(t, passed, c.Passed, "check %s", name)
			return
		}
	}
	t.Fatalf("check %s not recorded", name)
}
