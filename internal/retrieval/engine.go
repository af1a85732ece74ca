package retrieval

import (
	"context"
	"time"

	"librarian/internal/logging"
)

// Options controls one retrieval call.
type Options struct {
	// K is the RRF constant; zero or negative falls back to DefaultRRFK.
	K int
	// MaxResults truncates the fused list; zero keeps everything.
	MaxResults int
	// Channel weights bias which retrievers run. A weight of exactly 0
	// skips that retriever's execution; any positive weight runs it. The
	// fusion itself is rank-based and ignores weight magnitude.
	LexicalWeight float64
	DenseWeight   float64
	GraphWeight   float64
}

// DefaultOptions returns sensible retrieval defaults.
func DefaultOptions() Options {
	return Options{
		K:             DefaultRRFK,
		MaxResults:    20,
		LexicalWeight: 1.0,
		DenseWeight:   1.0,
		GraphWeight:   1.0,
	}
}

// Metrics reports per-channel hit counts and fusion timing for one call.
type Metrics struct {
	LexicalCount int           `json:"lexicalCount"`
	DenseCount   int           `json:"denseCount"`
	GraphCount   int           `json:"graphCount"`
	FusionTime   time.Duration `json:"fusionTime"`
}

// Output is the full retrieval result: the fused ranking plus metrics.
type Output struct {
	Results []FusedResult `json:"results"`
	Metrics Metrics       `json:"metrics"`
}

// Engine orchestrates the three retrieval channels and RRF fusion.
type Engine struct {
	lexical *LexicalSearcher
	dense   *DenseSearcher
	graph   *GraphSearcher
	logger  *logging.Logger
}

// NewEngine creates a retrieval engine. The dense and graph searchers may
// be nil when no provider is available; those channels then contribute
// nothing.
func NewEngine(lexical *LexicalSearcher, dense *DenseSearcher, graphSearcher *GraphSearcher, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if lexical == nil {
		lexical = NewLexicalSearcher()
	}
	return &Engine{
		lexical: lexical,
		dense:   dense,
		graph:   graphSearcher,
		logger:  logger,
	}
}

// Retrieve runs the enabled channels, fuses their rankings, and truncates
// to MaxResults. Empty query or corpus yields an empty output with zeroed
// metrics, never an error.
func (e *Engine) Retrieve(ctx context.Context, query string, corpus []Document, opts Options) Output {
	out := Output{Results: []FusedResult{}}

	if query == "" || len(corpus) == 0 {
		return out
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = len(corpus)
	}

	resultSets := make([][]RetrievalResult, 0, 3)

	if opts.LexicalWeight != 0 {
		hits := e.lexical.Search(query, corpus)
		out.Metrics.LexicalCount = len(hits)
		resultSets = append(resultSets, hits)
	}
	if opts.DenseWeight != 0 && e.dense != nil {
		hits := e.dense.Search(ctx, query, corpus)
		out.Metrics.DenseCount = len(hits)
		resultSets = append(resultSets, hits)
	}
	if opts.GraphWeight != 0 && e.graph != nil {
		hits := e.graph.Search(ctx, query, corpus, limit)
		out.Metrics.GraphCount = len(hits)
		resultSets = append(resultSets, hits)
	}

	start := time.Now()
	fused := ReciprocalRankFusion(resultSets, opts.K)
	out.Metrics.FusionTime = time.Since(start)

	if len(fused) > limit {
		fused = fused[:limit]
	}
	out.Results = fused

	e.logger.Debug("retrieval complete", logging.Fields{
		"query":   query,
		"lexical": out.Metrics.LexicalCount,
		"dense":   out.Metrics.DenseCount,
		"graph":   out.Metrics.GraphCount,
		"fused":   len(fused),
	})

	return out
}
