package entailment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarian/internal/claims"
	"librarian/internal/facts"
	"librarian/internal/logging"
)

func testFacts() []facts.ASTFact {
	return []facts.ASTFact{
		{
			Type:       facts.FactFunctionDef,
			Identifier: "foo",
			File:       "src/bar.ts",
			Line:       10,
			Details: facts.Details{
				ReturnType: "string",
				Parameters: []facts.Parameter{{Name: "a"}, {Name: "b"}},
			},
		},
		{
			Type:       facts.FactFunctionDef,
			Identifier: "fetchData",
			File:       "src/api.ts",
			Line:       4,
			Details:    facts.Details{Async: true, ReturnType: "Promise<Data>"},
		},
		{
			Type:       facts.FactClass,
			Identifier: "UserService",
			File:       "src/service.ts",
			Line:       20,
			Details: facts.Details{
				Extends:    "BaseService",
				Implements: []string{"Disposable"},
			},
		},
		{
			Type:       facts.FactImport,
			Identifier: "express",
			File:       "src/app.ts",
			Line:       1,
			Details:    facts.Details{Source: "express"},
		},
		{
			Type:       facts.FactCall,
			Identifier: "validate",
			File:       "src/app.ts",
			Line:       30,
			Details:    facts.Details{Caller: "handleRequest", Callee: "validate"},
		},
	}
}

func newChecker() *Checker {
	return NewChecker(logging.NewNopLogger())
}

func claimOf(text string) claims.Claim {
	return claims.Claim{Text: text, Type: claims.ClaimFactual}
}

func TestCheckEntailmentCorrectnessTable(t *testing.T) {
	c := newChecker()
	fs := testFacts()

	entailed := c.CheckEntailment(claimOf("foo returns string"), fs, "")
	assert.Equal(t, Entailed, entailed.Verdict)
	assert.Greater(t, entailed.Confidence, 0.7)

	contradicted := c.CheckEntailment(claimOf("foo returns number"), fs, "")
	assert.Equal(t, Contradicted, contradicted.Verdict)
	assert.Greater(t, contradicted.Confidence, 0.7)

	neutral := c.CheckEntailment(claimOf("foo is well-designed"), fs, "")
	assert.Equal(t, Neutral, neutral.Verdict)
	assert.Less(t, neutral.Confidence, 0.5)
}

func TestCheckEntailmentUnknownEntity(t *testing.T) {
	c := newChecker()

	result := c.CheckEntailment(claimOf("missingFn returns string"), testFacts(), "")
	assert.Equal(t, Neutral, result.Verdict)
	assert.Less(t, result.Confidence, 0.5)
	assert.Contains(t, result.Explanation, "missingFn")
}

func TestCheckEntailmentParameterCount(t *testing.T) {
	c := newChecker()
	fs := testFacts()

	ok := c.CheckEntailment(claimOf("foo has 2 parameters"), fs, "")
	assert.Equal(t, Entailed, ok.Verdict)

	wordCount := c.CheckEntailment(claimOf("foo takes two parameters"), fs, "")
	assert.Equal(t, Entailed, wordCount.Verdict)

	wrong := c.CheckEntailment(claimOf("foo has 3 parameters"), fs, "")
	assert.Equal(t, Contradicted, wrong.Verdict)
}

func TestCheckEntailmentAsync(t *testing.T) {
	c := newChecker()
	fs := testFacts()

	assert.Equal(t, Entailed, c.CheckEntailment(claimOf("fetchData is async"), fs, "").Verdict)
	assert.Equal(t, Contradicted, c.CheckEntailment(claimOf("foo is async"), fs, "").Verdict)
}

func TestCheckEntailmentRelations(t *testing.T) {
	c := newChecker()
	fs := testFacts()

	assert.Equal(t, Entailed, c.CheckEntailment(claimOf("UserService extends BaseService"), fs, "").Verdict)
	assert.Equal(t, Contradicted, c.CheckEntailment(claimOf("UserService extends Controller"), fs, "").Verdict)
	assert.Equal(t, Entailed, c.CheckEntailment(claimOf("UserService implements Disposable"), fs, "").Verdict)
}

func TestCheckEntailmentImportsAndCalls(t *testing.T) {
	c := newChecker()
	fs := testFacts()

	assert.Equal(t, Entailed, c.CheckEntailment(claimOf("app imports express"), fs, "").Verdict)
	assert.Equal(t, Neutral, c.CheckEntailment(claimOf("app imports fastify"), fs, "").Verdict)
	assert.Equal(t, Entailed, c.CheckEntailment(claimOf("handleRequest calls validate"), fs, "").Verdict)
}

func TestCheckEntailmentDefinedIn(t *testing.T) {
	c := newChecker()
	fs := testFacts()

	ok := c.CheckEntailment(claimOf("foo is defined in src/bar.ts"), fs, "")
	assert.Equal(t, Entailed, ok.Verdict)

	wrong := c.CheckEntailment(claimOf("foo is defined in src/other.ts"), fs, "")
	assert.Equal(t, Contradicted, wrong.Verdict)
}

func TestFindEvidence(t *testing.T) {
	c := newChecker()
	fs := testFacts()

	evidence := c.FindEvidence(claimOf("foo returns string"), fs, "// foo concatenates its inputs")
	require.NotEmpty(t, evidence)

	hasSupporting := false
	hasContext := false
	for _, ev := range evidence {
		if ev.Supports {
			hasSupporting = true
		}
		if ev.Type == "context" {
			hasContext = true
		}
	}
	assert.True(t, hasSupporting)
	assert.True(t, hasContext)
}

func TestCheckResponseInvalidRepoPath(t *testing.T) {
	c := newChecker()

	summary := c.CheckResponse(context.Background(), "foo returns string", "/does/not/exist")
	require.Len(t, summary.Results, 1)
	assert.Equal(t, Neutral, summary.Results[0].Verdict)
	assert.Equal(t, 1, summary.Neutral)
	assert.Zero(t, summary.EntailmentRate)
}

func TestCheckResponseEmptyText(t *testing.T) {
	c := newChecker()

	summary := c.CheckResponse(context.Background(), "plain prose without code assertions", t.TempDir())
	assert.Empty(t, summary.Results)
	assert.Zero(t, summary.EntailmentRate)
}
