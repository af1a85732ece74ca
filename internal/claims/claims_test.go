package claims

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAtomic(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"The function returns a string.", true},
		{"The function returns a string and takes two parameters.", false},
		{"", false},
		{"   ", false},
		{"The cache is fast because entries stay in memory.", false},
		{"The handler retries the request, but gives up after three attempts.", false},
		{"The parser handles input and output streams.", true},
		{"The worker reads and writes the queue.", true},
		{strings.Repeat("very ", 50) + "long claim.", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAtomic(tt.text), "text: %q", tt.text)
	}
}

func TestDecomposeAtomicSentence(t *testing.T) {
	d := NewDecomposer()

	out := d.Decompose("The function returns a string.")
	require.Len(t, out, 1)
	assert.Equal(t, "The function returns a string", out[0].Content)
	assert.Equal(t, AtomicFactual, out[0].Type)
	assert.Empty(t, out[0].ParentClaimID)
	assert.NotEmpty(t, out[0].ID)
}

func TestDecomposeCompoundSentence(t *testing.T) {
	d := NewDecomposer()

	out := d.Decompose("The function returns a string and takes two parameters.")
	require.Len(t, out, 2)

	assert.Equal(t, "The function returns a string", out[0].Content)
	assert.Equal(t, "takes two parameters", out[1].Content)

	// children of the same compound share a parent
	require.NotEmpty(t, out[0].ParentClaimID)
	assert.Equal(t, out[0].ParentClaimID, out[1].ParentClaimID)
	assert.NotEqual(t, out[0].ID, out[1].ID)

	for _, c := range out {
		assert.True(t, IsAtomic(c.Content), "child should be atomic: %q", c.Content)
	}
}

func TestDecomposeCausalConnective(t *testing.T) {
	d := NewDecomposer()

	out := d.Decompose("The lookup is fast because results are cached.")
	require.Len(t, out, 2)
	assert.Equal(t, "The lookup is fast", out[0].Content)
	assert.Equal(t, "results are cached", out[1].Content)
}

func TestDecomposePreservesIdioms(t *testing.T) {
	d := NewDecomposer()

	out := d.Decompose("The stream handles input and output buffering.")
	require.Len(t, out, 1)
	assert.Empty(t, out[0].ParentClaimID)
}

func TestDecomposeMultipleSentences(t *testing.T) {
	d := NewDecomposer()

	text := "The parser reads the file. The lexer emits tokens."
	out := d.Decompose(text)
	require.Len(t, out, 2)

	// source spans point back into the original text
	assert.Contains(t, text[out[0].SourceSpan.Start:out[0].SourceSpan.End], "parser")
	assert.Contains(t, text[out[1].SourceSpan.Start:out[1].SourceSpan.End], "lexer")
}

func TestDecomposeClassification(t *testing.T) {
	d := NewDecomposer()

	tests := []struct {
		text string
		want AtomicClaimType
	}{
		{"The function returns a string.", AtomicFactual},
		{"First the loader reads the manifest.", AtomicProcedural},
		{"A mutex is a lock guarding shared state.", AtomicDefinitional},
		{"The code is well-designed.", AtomicEvaluative},
	}

	for _, tt := range tests {
		out := d.Decompose(tt.text)
		require.Len(t, out, 1, "text: %q", tt.text)
		assert.Equal(t, tt.want, out[0].Type, "text: %q", tt.text)
	}
}

func TestDecomposeAtomicityRate(t *testing.T) {
	d := NewDecomposer()

	corpus := []string{
		"The server validates the token and refreshes the session.",
		"The queue drains slowly because consumers back off, but producers keep writing.",
		"The module exports a parser. It also provides a formatter.",
		"Requests are batched, therefore latency drops.",
		"The watcher polls the directory and emits change events since inotify is unavailable.",
	}

	total := 0
	atomic := 0
	for _, text := range corpus {
		for _, c := range d.Decompose(text) {
			total++
			if IsAtomic(c.Content) {
				atomic++
			}
		}
	}
	require.Greater(t, total, 0)
	assert.GreaterOrEqual(t, float64(atomic)/float64(total), 0.95)
}

func TestDecomposeEmptyInput(t *testing.T) {
	d := NewDecomposer()
	assert.Empty(t, d.Decompose(""))
	assert.Empty(t, d.Decompose("   \n  "))
}

func TestDecomposeCodeResponse(t *testing.T) {
	d := NewDecomposer()

	code := "function add(a, b) { return a + b; }"
	out := d.DecomposeCodeResponse(code, "The function add returns the sum.")
	require.NotEmpty(t, out)

	found := false
	for _, c := range out {
		if strings.Contains(c.Content, "add returns") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractClaims(t *testing.T) {
	text := "The `getUser` function returns a Promise. UserService extends BaseService. " +
		"The handler calls validateInput before saving."

	out := ExtractClaims(text)
	require.GreaterOrEqual(t, len(out), 3)

	byText := func(fragment string) *Claim {
		for i := range out {
			if strings.Contains(out[i].Text, fragment) {
				return &out[i]
			}
		}
		return nil
	}

	returns := byText("returns a Promise")
	require.NotNil(t, returns)
	assert.Equal(t, ClaimFactual, returns.Type)

	extends := byText("extends BaseService")
	require.NotNil(t, extends)
	assert.Equal(t, ClaimStructural, extends.Type)

	calls := byText("calls validateInput")
	require.NotNil(t, calls)
	assert.Equal(t, ClaimBehavioral, calls.Type)
}

func TestExtractClaimsOrdering(t *testing.T) {
	text := "Alpha extends Beta. Gamma calls Delta. Epsilon returns string."
	out := ExtractClaims(text)
	require.Len(t, out, 3)

	assert.Contains(t, out[0].Text, "Alpha")
	assert.Contains(t, out[1].Text, "Gamma")
	assert.Contains(t, out[2].Text, "Epsilon")
}

func TestExtractClaimsNoMatch(t *testing.T) {
	out := ExtractClaims("Nothing here resembles a code assertion at all.")
	assert.Empty(t, out)
}
