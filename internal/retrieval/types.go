// Package retrieval implements the hybrid multi-signal retrieval engine:
// lexical (BM25), dense (pluggable scorer), and graph-proximity search,
// merged via reciprocal rank fusion.
package retrieval

// Source identifies the retrieval channel that produced a result.
type Source string

const (
	// SourceLexical marks results from term-frequency (BM25) search
	SourceLexical Source = "lexical"
	// SourceDense marks results from semantic-similarity search
	SourceDense Source = "dense"
	// SourceGraph marks results from relationship-proximity search
	SourceGraph Source = "graph"
)

// Document is one searchable unit of the corpus.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// RetrievalResult is one hit from a single-signal retriever.
// Score is normalized to [0,1] within the query; results from different
// channels are only compared by rank, never by raw score.
type RetrievalResult struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Source   Source                 `json:"source"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// FusedResult is one entry of the merged, deduplicated ranking.
type FusedResult struct {
	ID              string             `json:"id"`
	Content         string             `json:"content"`
	FusedScore      float64            `json:"fusedScore"`
	ComponentScores map[Source]float64 `json:"componentScores,omitempty"`
	Rank            int                `json:"rank"` // 1-based, assigned after sorting
}
