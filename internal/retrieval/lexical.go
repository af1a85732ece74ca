package retrieval

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// BM25 parameters. k1 controls term-frequency saturation, b controls
// document-length normalization. Standard values from the literature.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// LexicalSearcher ranks documents against a query using BM25 term
// weighting over an in-memory corpus. Scores are min-max normalized to
// [0,1] per query so they are comparable within one result set.
type LexicalSearcher struct{}

// NewLexicalSearcher creates a lexical searcher.
func NewLexicalSearcher() *LexicalSearcher {
	return &LexicalSearcher{}
}

// Search scores the corpus against the query. Empty query or empty corpus
// returns an empty slice. Results are deduplicated by document ID and
// sorted by score descending.
func (s *LexicalSearcher) Search(query string, corpus []Document) []RetrievalResult {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || len(corpus) == 0 {
		return []RetrievalResult{}
	}

	// Dedup corpus by ID, keeping first occurrence.
	seen := make(map[string]bool, len(corpus))
	docs := make([]Document, 0, len(corpus))
	for _, d := range corpus {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		docs = append(docs, d)
	}

	docTerms := make([]map[string]int, len(docs))
	docLens := make([]int, len(docs))
	totalLen := 0
	for i, d := range docs {
		terms := tokenize(d.Content)
		freq := make(map[string]int, len(terms))
		for _, t := range terms {
			freq[t]++
		}
		docTerms[i] = freq
		docLens[i] = len(terms)
		totalLen += len(terms)
	}
	avgLen := float64(totalLen) / float64(len(docs))
	if avgLen == 0 {
		return []RetrievalResult{}
	}

	// Document frequency per query term.
	df := make(map[string]int, len(queryTerms))
	for _, t := range queryTerms {
		if _, done := df[t]; done {
			continue
		}
		for i := range docs {
			if docTerms[i][t] > 0 {
				df[t]++
			}
		}
	}

	n := float64(len(docs))
	scores := make([]float64, len(docs))
	for i := range docs {
		var score float64
		for _, t := range queryTerms {
			tf := float64(docTerms[i][t])
			if tf == 0 {
				continue
			}
			// BM25 idf with +1 smoothing so terms present in every
			// document still contribute a small positive weight.
			idf := math.Log(1 + (n-float64(df[t])+0.5)/(float64(df[t])+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(docLens[i])/avgLen))
			score += idf * norm
		}
		scores[i] = score
	}

	results := make([]RetrievalResult, 0, len(docs))
	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore == 0 {
		return []RetrievalResult{}
	}

	for i, d := range docs {
		if scores[i] <= 0 {
			continue
		}
		results = append(results, RetrievalResult{
			ID:      d.ID,
			Content: d.Content,
			Score:   scores[i] / maxScore,
			Source:  SourceLexical,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// tokenize lowercases, splits on non-alphanumeric boundaries, and breaks
// camelCase identifiers so "getUserName" matches "user name".
func tokenize(text string) []string {
	// Split camelCase before lowercasing.
	var sb strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			sb.WriteRune(' ')
		}
		sb.WriteRune(r)
	}

	fields := strings.FieldsFunc(strings.ToLower(sb.String()), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 { // single characters are noise
			tokens = append(tokens, f)
		}
	}
	return tokens
}
