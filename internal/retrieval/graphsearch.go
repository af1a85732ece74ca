package retrieval

import (
	"context"
	"sort"

	"librarian/internal/graph"
	"librarian/internal/logging"
)

// GraphHit is one ranked node from a relationship provider.
type GraphHit struct {
	ID    string
	Score float64 // relevance in [0,1]
	Hops  int     // traversal depth from the query's seed set
}

// GraphProvider is the pluggable relationship capability the graph channel
// is polymorphic over. Related returns ranked hits for a query; it may
// return fewer than limit.
type GraphProvider interface {
	Related(ctx context.Context, query string, limit int) ([]GraphHit, error)
}

// GraphSearcher ranks documents by relationship-graph proximity.
type GraphSearcher struct {
	provider GraphProvider
	logger   *logging.Logger
}

// NewGraphSearcher creates a graph searcher over the given provider.
func NewGraphSearcher(provider GraphProvider, logger *logging.Logger) *GraphSearcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GraphSearcher{provider: provider, logger: logger}
}

// Search asks the provider for related nodes and joins them against the
// corpus by document ID. Hits without a corpus document are dropped; hop
// depth is recorded in result metadata. Provider failure degrades to an
// empty result set.
func (s *GraphSearcher) Search(ctx context.Context, query string, corpus []Document, limit int) []RetrievalResult {
	if query == "" || len(corpus) == 0 || s.provider == nil {
		return []RetrievalResult{}
	}
	if limit <= 0 {
		limit = len(corpus)
	}

	hits, err := s.provider.Related(ctx, query, limit)
	if err != nil {
		s.logger.Debug("graph provider failed", logging.Fields{"error": err.Error()})
		return []RetrievalResult{}
	}

	byID := make(map[string]Document, len(corpus))
	for _, d := range corpus {
		if _, ok := byID[d.ID]; !ok {
			byID[d.ID] = d
		}
	}

	seen := make(map[string]bool, len(hits))
	results := make([]RetrievalResult, 0, len(hits))
	for _, h := range hits {
		doc, ok := byID[h.ID]
		if !ok || seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		results = append(results, RetrievalResult{
			ID:      doc.ID,
			Content: doc.Content,
			Score:   clamp01(h.Score),
			Source:  SourceGraph,
			Metadata: map[string]interface{}{
				"hops": h.Hops,
			},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// ProximityProvider adapts an in-process relationship graph to the
// GraphProvider interface. The query is tokenized and tokens matching
// graph node IDs become BFS seeds.
type ProximityProvider struct {
	Graph   *graph.Graph
	MaxHops int
}

// Related implements GraphProvider using hop-bounded proximity search.
func (p *ProximityProvider) Related(_ context.Context, query string, limit int) ([]GraphHit, error) {
	if p.Graph == nil || p.Graph.NumNodes() == 0 {
		return nil, nil
	}

	seeds := make([]string, 0, 4)
	for _, tok := range tokenize(query) {
		if p.Graph.HasNode(tok) {
			seeds = append(seeds, tok)
		}
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	proximity := p.Graph.ProximitySearch(seeds, p.MaxHops, limit)
	hits := make([]GraphHit, len(proximity))
	for i, r := range proximity {
		hits[i] = GraphHit{ID: r.NodeID, Score: r.Score, Hops: r.Hops}
	}
	return hits, nil
}
