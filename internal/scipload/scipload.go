// Package scipload loads SCIP indexes and exposes them as relationship
// graphs for proximity retrieval.
package scipload

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"librarian/internal/errors"
	"librarian/internal/graph"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// Index is a loaded SCIP index.
type Index struct {
	ProjectRoot string
	ToolName    string
	ToolVersion string
	Documents   []*scippb.Document
	Symbols     map[string]*scippb.SymbolInformation
	LoadedAt    time.Time
}

// Load reads and parses a SCIP index file.
func Load(path string) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.New(
			errors.IndexUnavailable,
			fmt.Sprintf("SCIP index not found at %s", path),
			err,
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(
			errors.IndexUnavailable,
			fmt.Sprintf("failed to read SCIP index from %s", path),
			err,
		)
	}

	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(
			errors.ParseFailed,
			fmt.Sprintf("failed to parse SCIP index from %s", path),
			err,
		)
	}

	idx := &Index{
		Documents: raw.Documents,
		Symbols:   make(map[string]*scippb.SymbolInformation),
		LoadedAt:  time.Now(),
	}
	if raw.Metadata != nil {
		idx.ProjectRoot = raw.Metadata.ProjectRoot
		if raw.Metadata.ToolInfo != nil {
			idx.ToolName = raw.Metadata.ToolInfo.Name
			idx.ToolVersion = raw.Metadata.ToolInfo.Version
		}
	}

	for _, doc := range raw.Documents {
		for _, sym := range doc.Symbols {
			idx.Symbols[sym.Symbol] = sym
		}
	}
	for _, sym := range raw.ExternalSymbols {
		idx.Symbols[sym.Symbol] = sym
	}

	return idx, nil
}

// Document returns the document at the given relative path, or nil.
func (i *Index) Document(relativePath string) *scippb.Document {
	for _, doc := range i.Documents {
		if doc.RelativePath == relativePath {
			return doc
		}
	}
	return nil
}

// Symbol returns symbol information by SCIP symbol ID, or nil.
func (i *Index) Symbol(id string) *scippb.SymbolInformation {
	return i.Symbols[id]
}

// Edge weights by relationship kind. Definitions bind a document to a
// symbol more strongly than references do.
var edgeWeights = map[string]float64{
	"defines":    1.0,
	"references": 0.8,
	"implements": 0.7,
	"type_of":    0.6,
	"related":    0.5,
}

// BuildGraph converts the index into a relationship graph. Nodes are
// document paths and symbol display names. Documents link to the symbols
// they define or reference; symbols link to the symbols they relate to.
func (i *Index) BuildGraph() *graph.Graph {
	g := graph.NewGraph()

	for _, doc := range i.Documents {
		g.AddNode(doc.RelativePath)

		for _, occ := range doc.Occurrences {
			name := i.displayName(occ.Symbol)
			if name == "" {
				continue
			}
			g.AddNode(name)
			kind := "references"
			if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
				kind = "defines"
			}
			g.AddEdge(doc.RelativePath, name, edgeWeights[kind], kind)
		}
	}

	for _, sym := range i.Symbols {
		from := i.displayName(sym.Symbol)
		if from == "" {
			continue
		}
		for _, rel := range sym.Relationships {
			to := i.displayName(rel.Symbol)
			if to == "" {
				continue
			}
			kind := "related"
			switch {
			case rel.IsImplementation:
				kind = "implements"
			case rel.IsTypeDefinition:
				kind = "type_of"
			case rel.IsReference:
				kind = "references"
			}
			g.AddNode(from)
			g.AddNode(to)
			g.AddEdge(from, to, edgeWeights[kind], kind)
		}
	}

	return g
}

// displayName prefers the indexed display name and falls back to the
// last path segment of the raw symbol ID.
func (i *Index) displayName(symbolID string) string {
	if symbolID == "" {
		return ""
	}
	if sym, ok := i.Symbols[symbolID]; ok && sym.DisplayName != "" {
		return sym.DisplayName
	}
	parsed, err := scippb.ParseSymbol(symbolID)
	if err != nil || len(parsed.Descriptors) == 0 {
		return ""
	}
	return parsed.Descriptors[len(parsed.Descriptors)-1].Name
}

// ResolvePath resolves a possibly relative index path against the repo root.
func ResolvePath(repoRoot, indexPath string) string {
	if filepath.IsAbs(indexPath) {
		return indexPath
	}
	return filepath.Join(repoRoot, indexPath)
}
