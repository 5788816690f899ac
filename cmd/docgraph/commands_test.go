package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/config"
	"docgraph/internal/export"
	"docgraph/internal/pipeline"
	"docgraph/internal/scan"
)

// execute runs the root command with fresh flag state and returns stdout
// and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "docgraph", rootCmd.Name())
	assert.NotEmpty(t, rootCmd.Short)
	assert.Equal(t, Version, rootCmd.Version)
	assert.NotNil(t, rootCmd.RunE)

	for _, name := range []string{"config", "workers", "no-auto-imports", "cache", "cache-dir", "clear-cache", "check", "log-level", "log-format", "verbose"} {
		assert.NotNil(t, rootCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "j", rootCmd.Flags().Lookup("workers").Shorthand)
	assert.Equal(t, "v", rootCmd.Flags().Lookup("verbose").Shorthand)
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.R"), "# @name: a\n# @parents: b\n")
	writeFile(t, filepath.Join(dir, "b.R"), "# @name: b\n# @notes: the root\n")
	out := filepath.Join(t.TempDir(), "graph.json")

	stdout, _, err := execute(t, "--log-level", "error", dir, out)
	require.NoError(t, err)
	assert.Equal(t, "Extracted 2 nodes with 1 edges from 2 files\n", stdout)

	doc, err := export.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "arrow", doc.Edges[0].Type)
	assert.Equal(t, doc.Nodes[0].Color, doc.Nodes[1].Color)
}

func TestGenerate_MissingArgs(t *testing.T) {
	stdout, stderr, err := execute(t, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, stdout+stderr, "Usage:")

	_, _, err = execute(t)
	assert.Error(t, err)
}

func TestGenerate_NoAnnotatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plain.txt"), "nothing\n")
	out := filepath.Join(t.TempDir(), "graph.json")

	_, _, err := execute(t, "--log-level", "error", dir, out)
	assert.ErrorIs(t, err, scan.ErrNoAnnotatedFiles)
	assert.NoFileExists(t, out)
}

func TestGenerate_Check(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.R"), "# @name: a\n# @uses: missing\n")

	_, stderr, err := execute(t, "--check", dir)
	assert.ErrorIs(t, err, pipeline.ErrRejectedEdges)
	assert.Contains(t, stderr, "dropped edges to unknown nodes")

	clean := t.TempDir()
	writeFile(t, filepath.Join(clean, "a.R"), "# @name: a\n")
	stdout, _, err := execute(t, "--check", "--log-level", "error", clean)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Extracted 1 nodes")
}

func TestGenerate_ConfigFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.R"), "# @name: a\n# @calls: b\n")
	writeFile(t, filepath.Join(dir, "b.R"), "# @name: b\n")

	cfgPath := filepath.Join(t.TempDir(), config.DefaultFile)
	writeFile(t, cfgPath, "edge_kinds:\n  - name: calls\n    style: dashed\noutput:\n  indent: 0\nlog:\n  level: error\n")
	out := filepath.Join(t.TempDir(), "graph.json.zst")

	_, stderr, err := execute(t, "--config", cfgPath, "-v", "--log-format", "json", "-j", "2", dir, out)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"parsing file"`)

	doc, err := export.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "dashed", doc.Edges[0].Type)
}

func TestGenerate_InvalidFlags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.R"), "# @name: a\n")
	out := filepath.Join(t.TempDir(), "graph.json")

	_, _, err := execute(t, "--workers", "0", dir, out)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, _, err = execute(t, "--log-format", "xml", dir, out)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestGenerate_Cache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.R"), "# @name: a\n")
	cacheDir := filepath.Join(t.TempDir(), "cache")
	out := filepath.Join(t.TempDir(), "graph.json")

	_, _, err := execute(t, "--log-level", "error", "--cache-dir", cacheDir, dir, out)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cacheDir, "parse.db"))
}
