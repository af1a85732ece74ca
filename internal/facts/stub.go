//go:build !cgo

package facts

import "context"

// Extractor is a no-op when tree-sitter is not compiled in.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// IsAvailable reports whether tree-sitter extraction is compiled in.
func IsAvailable() bool {
	return false
}

func (e *Extractor) ExtractFile(ctx context.Context, path string) []ASTFact {
	return []ASTFact{}
}

func (e *Extractor) ExtractSource(ctx context.Context, path string, source []byte, lang Language) []ASTFact {
	return []ASTFact{}
}

func (e *Extractor) ExtractDirectory(ctx context.Context, root string) []ASTFact {
	return []ASTFact{}
}
