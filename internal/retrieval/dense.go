package retrieval

import (
	"context"
	"sort"

	"librarian/internal/logging"
)

// Scorer is the pluggable similarity capability the dense channel is
// polymorphic over. Implementations may call an embedding service, use an
// in-memory cosine table, or stub scores for tests. Score must return a
// similarity in [0,1] for (query, document content).
type Scorer interface {
	Score(ctx context.Context, query, doc string) (float64, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(ctx context.Context, query, doc string) (float64, error)

// Score implements Scorer.
func (f ScorerFunc) Score(ctx context.Context, query, doc string) (float64, error) {
	return f(ctx, query, doc)
}

// DenseSearcher ranks documents by semantic similarity using a pluggable
// Scorer. It surfaces topically related documents that share no lexical
// terms with the query.
type DenseSearcher struct {
	scorer Scorer
	logger *logging.Logger

	// MinScore drops documents below this similarity (default 0, keep all
	// positive scores).
	MinScore float64
}

// NewDenseSearcher creates a dense searcher over the given scorer.
func NewDenseSearcher(scorer Scorer, logger *logging.Logger) *DenseSearcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DenseSearcher{scorer: scorer, logger: logger}
}

// Search scores every corpus document against the query. A scorer error
// on one document skips that document rather than aborting the search;
// out-of-range scores are clamped to [0,1]. Empty query, empty corpus, or
// a nil scorer returns an empty slice.
func (s *DenseSearcher) Search(ctx context.Context, query string, corpus []Document) []RetrievalResult {
	if query == "" || len(corpus) == 0 || s.scorer == nil {
		return []RetrievalResult{}
	}

	seen := make(map[string]bool, len(corpus))
	results := make([]RetrievalResult, 0, len(corpus))
	for _, d := range corpus {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true

		score, err := s.scorer.Score(ctx, query, d.Content)
		if err != nil {
			s.logger.Debug("dense scorer failed for document", logging.Fields{
				"docId": d.ID,
				"error": err.Error(),
			})
			continue
		}
		score = clamp01(score)
		if score <= s.MinScore {
			continue
		}

		results = append(results, RetrievalResult{
			ID:      d.ID,
			Content: d.Content,
			Score:   score,
			Source:  SourceDense,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
