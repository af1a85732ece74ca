package retrieval

import (
	"testing"
)

func corpus() []Document {
	return []Document{
		{ID: "auth", Content: "User authentication validates login credentials against the directory."},
		{ID: "cache", Content: "The cache layer stores hot entries with a TTL eviction policy."},
		{ID: "routing", Content: "Request routing dispatches handlers based on URL patterns."},
		{ID: "session", Content: "Sessions persist login state after authentication succeeds."},
	}
}

func TestLexicalSearchRanksRelevantFirst(t *testing.T) {
	s := NewLexicalSearcher()

	results := s.Search("authentication login credentials", corpus())
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].ID != "auth" {
		t.Errorf("top result = %s, want auth", results[0].ID)
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score %v outside [0,1]", r.Score)
		}
		if r.Source != SourceLexical {
			t.Errorf("source = %s, want lexical", r.Source)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("not sorted at %d", i)
		}
	}
}

func TestLexicalSearchEmptyInputs(t *testing.T) {
	s := NewLexicalSearcher()

	if got := s.Search("", corpus()); len(got) != 0 {
		t.Errorf("empty query: got %d results", len(got))
	}
	if got := s.Search("authentication", nil); len(got) != 0 {
		t.Errorf("empty corpus: got %d results", len(got))
	}
	if got := s.Search("zzgwx qqplr", corpus()); len(got) != 0 {
		t.Errorf("no matching terms: got %d results", len(got))
	}
}

func TestLexicalSearchDedupesByID(t *testing.T) {
	s := NewLexicalSearcher()
	docs := append(corpus(), Document{ID: "auth", Content: "Duplicate auth doc about authentication."})

	results := s.Search("authentication", docs)
	seen := make(map[string]int)
	for _, r := range results {
		seen[r.ID]++
	}
	if seen["auth"] != 1 {
		t.Errorf("auth appears %d times, want 1", seen["auth"])
	}
}

func TestTokenizeSplitsIdentifiers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"getUserName", []string{"get", "user", "name"}},
		{"snake_case_name", []string{"snake", "case", "name"}},
		{"HTTP2Server", []string{"http2", "server"}},
		{"a b", nil}, // single-char tokens dropped
	}

	for _, tt := range tests {
		got := tokenize(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("tokenize(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLexicalTermFrequencySaturates(t *testing.T) {
	s := NewLexicalSearcher()
	docs := []Document{
		{ID: "spam", Content: "cache cache cache cache cache cache cache cache cache cache cache cache"},
		{ID: "real", Content: "cache eviction policy with bounded memory"},
	}

	results := s.Search("cache eviction", docs)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Two distinct matching terms beat one repeated term.
	if results[0].ID != "real" {
		t.Errorf("top result = %s, want real (idf should beat tf spam)", results[0].ID)
	}
}
