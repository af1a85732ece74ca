package scipload

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	liberrors "librarian/internal/errors"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func writeIndex(t *testing.T, idx *scippb.Index) string {
	t.Helper()
	data, err := proto.Marshal(idx)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "index.scip")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sampleIndex() *scippb.Index {
	return &scippb.Index{
		Metadata: &scippb.Metadata{
			ProjectRoot: "file:///repo",
			ToolInfo:    &scippb.ToolInfo{Name: "scip-go", Version: "0.1.0"},
		},
		Documents: []*scippb.Document{
			{
				RelativePath: "auth/login.go",
				Language:     "go",
				Occurrences: []*scippb.Occurrence{
					{
						Symbol:      "scip-go . . . auth/Login().",
						SymbolRoles: int32(scippb.SymbolRole_Definition),
					},
					{Symbol: "scip-go . . . session/Create()."},
				},
				Symbols: []*scippb.SymbolInformation{
					{Symbol: "scip-go . . . auth/Login().", DisplayName: "Login"},
				},
			},
			{
				RelativePath: "session/store.go",
				Language:     "go",
				Occurrences: []*scippb.Occurrence{
					{
						Symbol:      "scip-go . . . session/Create().",
						SymbolRoles: int32(scippb.SymbolRole_Definition),
					},
				},
				Symbols: []*scippb.SymbolInformation{
					{Symbol: "scip-go . . . session/Create().", DisplayName: "Create"},
				},
			},
		},
	}
}

func TestLoad(t *testing.T) {
	path := writeIndex(t, sampleIndex())

	idx, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file:///repo", idx.ProjectRoot)
	assert.Equal(t, "scip-go", idx.ToolName)
	assert.Len(t, idx.Documents, 2)
	assert.Len(t, idx.Symbols, 2)

	doc := idx.Document("auth/login.go")
	require.NotNil(t, doc)
	assert.Equal(t, "go", doc.Language)
	assert.Nil(t, idx.Document("missing.go"))

	sym := idx.Symbol("scip-go . . . auth/Login().")
	require.NotNil(t, sym)
	assert.Equal(t, "Login", sym.DisplayName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.scip"))
	require.Error(t, err)

	var lerr *liberrors.LibrarianError
	require.True(t, stderrors.As(err, &lerr))
	assert.Equal(t, liberrors.IndexUnavailable, lerr.Code)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.scip")
	require.NoError(t, os.WriteFile(path, []byte("\xff\xff not protobuf \xff"), 0o644))

	_, err := Load(path)
	require.Error(t, err)

	var lerr *liberrors.LibrarianError
	require.True(t, stderrors.As(err, &lerr))
	assert.Equal(t, liberrors.ParseFailed, lerr.Code)
}

func TestBuildGraph(t *testing.T) {
	path := writeIndex(t, sampleIndex())
	idx, err := Load(path)
	require.NoError(t, err)

	g := idx.BuildGraph()

	assert.True(t, g.HasNode("auth/login.go"))
	assert.True(t, g.HasNode("Login"))
	assert.True(t, g.HasNode("Create"))
	assert.Equal(t, "defines", g.GetEdgeKind("auth/login.go", "Login"))
	assert.Equal(t, "references", g.GetEdgeKind("auth/login.go", "Create"))

	// login.go reaches store.go through the Create symbol
	results := g.ProximitySearch([]string{"auth/login.go"}, 3, 10)
	found := false
	for _, r := range results {
		if r.NodeID == "session/store.go" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/abs/index.scip", ResolvePath("/repo", "/abs/index.scip"))
	assert.Equal(t, filepath.Join("/repo", "index.scip"), ResolvePath("/repo", "index.scip"))
}
