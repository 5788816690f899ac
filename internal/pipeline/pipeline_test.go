package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/config"
	"docgraph/internal/export"
	"docgraph/internal/logging"
	"docgraph/internal/scan"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// project lays out two R scripts linked by an AUTO import, a shell script
// with a dangling use edge and an unrelated note.
func project(t *testing.T) string {
	root := t.TempDir()
	write(t, filepath.Join(root, "R", "load.R"), `# @name: loader
# @imports: AUTO
# @notes: reads the raw extract
source("util.R")
`)
	write(t, filepath.Join(root, "R", "util.R"), "# @name: util\n")
	write(t, filepath.Join(root, "run.sh"), "# @name: runner\n# @uses: loader, ghost\n")
	write(t, filepath.Join(root, "docs", "island.md"), "@name: island\n")
	write(t, filepath.Join(root, "README"), "not annotated\n")
	return root
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Workers = 2
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	return cfg
}

func TestRun_WritesDocument(t *testing.T) {
	root := project(t)
	out := filepath.Join(t.TempDir(), "graph.json")

	sum, err := Run(context.Background(), testConfig(t), Request{Dirs: []string{root}, Output: out}, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Files)
	assert.Equal(t, 4, sum.Nodes)
	assert.Equal(t, 2, sum.Edges)
	assert.Equal(t, 2, sum.Components)
	require.Len(t, sum.Rejected, 1)
	assert.Equal(t, "ghost", sum.Rejected[0].Target)
	assert.Equal(t, 1, sum.Imports.Added)
	assert.Equal(t, out, sum.Output)

	doc, err := export.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 4)

	byID := map[string]export.NodeRecord{}
	for _, n := range doc.Nodes {
		byID[n.ID] = n
	}
	assert.Equal(t, "reads the raw extract", byID["loader"].Notes)
	assert.Equal(t, export.NoNotes, byID["util"].Notes)
	assert.Equal(t, byID["loader"].Color, byID["util"].Color)
	assert.Equal(t, byID["loader"].Color, byID["runner"].Color)
	assert.NotEqual(t, byID["loader"].Color, byID["island"].Color)

	assert.ElementsMatch(t, []export.EdgeRecord{
		{ID: "loader_e0", Source: "util", Target: "loader", Type: "curvedArrow", SemanticType: "import", Size: 3},
		{ID: "runner_e0", Source: "loader", Target: "runner", Type: "dotted", SemanticType: "use", Size: 3},
	}, doc.Edges)
}

func TestRun_AutoImportsDisabled(t *testing.T) {
	root := project(t)
	cfg := testConfig(t)
	cfg.AutoImports = false

	sum, err := Run(context.Background(), cfg, Request{Dirs: []string{root}, Check: true}, logging.Discard())
	require.ErrorIs(t, err, ErrRejectedEdges)

	assert.Equal(t, 1, sum.Edges)
	assert.Equal(t, 3, sum.Components)
	assert.Zero(t, sum.Imports.Expanded)
}

func TestRun_CompressedOutput(t *testing.T) {
	root := project(t)
	out := filepath.Join(t.TempDir(), "graph.json.zst")

	sum, err := Run(context.Background(), testConfig(t), Request{Dirs: []string{root}, Output: out}, logging.Discard())
	require.NoError(t, err)
	assert.Zero(t, sum.CacheEntries)

	doc, err := export.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 4)
}

func TestRun_CheckMode(t *testing.T) {
	root := project(t)

	sum, err := Run(context.Background(), testConfig(t), Request{Dirs: []string{root}, Check: true}, logging.Discard())
	assert.ErrorIs(t, err, ErrRejectedEdges)
	require.NotNil(t, sum)
	assert.Empty(t, sum.Output)

	clean := t.TempDir()
	write(t, filepath.Join(clean, "a.R"), "@name: a\n@parent: b\n")
	write(t, filepath.Join(clean, "b.R"), "@name: b\n")
	sum, err = Run(context.Background(), testConfig(t), Request{Dirs: []string{clean}, Check: true}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Components)
}

func TestRun_NoAnnotatedFiles(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "plain.txt"), "nothing\n")
	out := filepath.Join(t.TempDir(), "graph.json")

	_, err := Run(context.Background(), testConfig(t), Request{Dirs: []string{root}, Output: out}, logging.Discard())
	assert.ErrorIs(t, err, scan.ErrNoAnnotatedFiles)
	assert.NoFileExists(t, out)
}

func TestRun_MultipleDirsAndCache(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	write(t, filepath.Join(first, "a.py"), "# @name: a\n# @uses: b\n")
	write(t, filepath.Join(second, "b.py"), "# @name: b\n")

	cfg := testConfig(t)
	cfg.Cache.Enabled = true
	out := filepath.Join(t.TempDir(), "graph.json")
	req := Request{Dirs: []string{first, second}, Output: out}

	sum, err := Run(context.Background(), cfg, req, logging.Discard())
	require.NoError(t, err)
	assert.Zero(t, sum.CacheHits)
	assert.Equal(t, int64(2), sum.CacheEntries)
	assert.Equal(t, 1, sum.Components)

	sum, err = Run(context.Background(), cfg, req, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.CacheHits)

	req.ClearCache = true
	sum, err = Run(context.Background(), cfg, req, logging.Discard())
	require.NoError(t, err)
	assert.Zero(t, sum.CacheHits)
}

func TestRun_ExtraKinds(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.R"), "@name: a\n@call: b\n")
	write(t, filepath.Join(root, "b.R"), "@name: b\n")

	cfg := testConfig(t)
	cfg.EdgeKinds = []config.EdgeKindConfig{{Name: "calls", Style: "arrow"}}
	require.NoError(t, cfg.Validate())
	out := filepath.Join(t.TempDir(), "graph.json")

	_, err := Run(context.Background(), cfg, Request{Dirs: []string{root}, Output: out}, logging.Discard())
	require.NoError(t, err)

	doc, err := export.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "arrow", doc.Edges[0].Type)
	assert.Equal(t, "calls", doc.Edges[0].SemanticType)
}

func TestRun_BadRequest(t *testing.T) {
	_, err := Run(context.Background(), testConfig(t), Request{Output: "x.json"}, logging.Discard())
	assert.Error(t, err)

	_, err = Run(context.Background(), testConfig(t), Request{Dirs: []string{t.TempDir()}}, logging.Discard())
	assert.Error(t, err)
}
