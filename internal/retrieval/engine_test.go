package retrieval

import (
	"context"
	"strings"
	"testing"
)

// endToEndCorpus mirrors a small knowledge base of short topical sentences.
func endToEndCorpus() []Document {
	return []Document{
		{ID: "d1", Content: "Authentication verifies login credentials before issuing a session."},
		{ID: "d2", Content: "The login form posts credentials to the authentication endpoint."},
		{ID: "d3", Content: "Caching keeps frequently used values in memory."},
		{ID: "d4", Content: "The cache is invalidated when the underlying record changes."},
		{ID: "d5", Content: "Routing maps incoming paths to their handlers."},
		{ID: "d6", Content: "The router supports wildcard segments in URL patterns."},
		{ID: "d7", Content: "Password hashing protects stored credentials."},
		{ID: "d8", Content: "A TTL cache evicts stale entries automatically."},
		{ID: "d9", Content: "Middleware runs before the route handler executes."},
		{ID: "d10", Content: "Session tokens expire after a configurable duration."},
	}
}

func TestRetrieveEndToEnd(t *testing.T) {
	// Dense channel: similarity by shared topical keyword.
	scorer := ScorerFunc(func(_ context.Context, query, doc string) (float64, error) {
		q := strings.ToLower(query)
		d := strings.ToLower(doc)
		switch {
		case strings.Contains(q, "authentication") &&
			(strings.Contains(d, "authentication") || strings.Contains(d, "password") || strings.Contains(d, "session")):
			return 0.85, nil
		default:
			return 0.05, nil
		}
	})

	engine := NewEngine(NewLexicalSearcher(), NewDenseSearcher(scorer, nil), nil, nil)
	out := engine.Retrieve(context.Background(), "authentication login credentials", endToEndCorpus(), DefaultOptions())

	if out.Metrics.LexicalCount < 1 {
		t.Errorf("lexical channel returned %d hits, want >= 1", out.Metrics.LexicalCount)
	}
	if out.Metrics.DenseCount < 1 {
		t.Errorf("dense channel returned %d hits, want >= 1", out.Metrics.DenseCount)
	}
	if len(out.Results) == 0 {
		t.Fatal("expected fused results")
	}

	top := out.Results[0]
	if !strings.Contains(strings.ToLower(top.Content), "authentication") {
		t.Errorf("top fused result should mention authentication, got %q", top.Content)
	}

	// Ranks 1..N with no gaps or duplicates, sorted descending.
	seen := make(map[string]bool)
	for i, r := range out.Results {
		if r.Rank != i+1 {
			t.Errorf("rank at %d = %d, want %d", i, r.Rank, i+1)
		}
		if seen[r.ID] {
			t.Errorf("duplicate document %s in fused output", r.ID)
		}
		seen[r.ID] = true
		if i > 0 && r.FusedScore > out.Results[i-1].FusedScore {
			t.Errorf("fused results not sorted at %d", i)
		}
	}
}

func TestRetrieveZeroWeightSkipsChannel(t *testing.T) {
	calls := 0
	scorer := ScorerFunc(func(context.Context, string, string) (float64, error) {
		calls++
		return 0.5, nil
	})

	engine := NewEngine(NewLexicalSearcher(), NewDenseSearcher(scorer, nil), nil, nil)
	opts := DefaultOptions()
	opts.DenseWeight = 0

	out := engine.Retrieve(context.Background(), "authentication", endToEndCorpus(), opts)
	if calls != 0 {
		t.Errorf("dense scorer invoked %d times despite zero weight", calls)
	}
	if out.Metrics.DenseCount != 0 {
		t.Errorf("dense count = %d, want 0", out.Metrics.DenseCount)
	}
}

func TestRetrieveTruncatesToMaxResults(t *testing.T) {
	engine := NewEngine(NewLexicalSearcher(), nil, nil, nil)
	opts := DefaultOptions()
	opts.MaxResults = 2

	out := engine.Retrieve(context.Background(), "the cache entries", endToEndCorpus(), opts)
	if len(out.Results) > 2 {
		t.Errorf("got %d results, want <= 2", len(out.Results))
	}
}

func TestRetrieveEmptyInputs(t *testing.T) {
	engine := NewEngine(NewLexicalSearcher(), nil, nil, nil)

	if out := engine.Retrieve(context.Background(), "", endToEndCorpus(), DefaultOptions()); len(out.Results) != 0 {
		t.Error("empty query should yield empty output")
	}
	if out := engine.Retrieve(context.Background(), "query", nil, DefaultOptions()); len(out.Results) != 0 {
		t.Error("empty corpus should yield empty output")
	}
}
