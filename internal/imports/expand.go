package imports

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docgraph/internal/graph"
)

// ExpandReport summarizes one expansion pass.
type ExpandReport struct {
	// Expanded counts nodes that carried an AUTO import marker.
	Expanded int
	// Added counts import edges appended.
	Added int
	// Unresolved lists "<importer>: <import>" for imports naming no
	// existing file.
	Unresolved []string
	// NoResolver lists source paths no resolver claimed.
	NoResolver []string
}

// Expander replaces AUTO import markers with import edges derived from each
// node's own source file. It implements graph.Expander.
type Expander struct {
	registry *Registry
	logger   *slog.Logger
	readFile func(string) ([]byte, error)
	exists   func(string) bool
	last     ExpandReport
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithLogger sets the logger used for expansion diagnostics.
func WithLogger(l *slog.Logger) ExpanderOption {
	return func(e *Expander) {
		e.logger = l
	}
}

// WithReadFile replaces the function used to read source files.
func WithReadFile(fn func(string) ([]byte, error)) ExpanderOption {
	return func(e *Expander) {
		e.readFile = fn
	}
}

// WithExists replaces the regular-file existence check used on resolved
// import paths.
func WithExists(fn func(string) bool) ExpanderOption {
	return func(e *Expander) {
		e.exists = fn
	}
}

// NewExpander creates an expander backed by registry.
func NewExpander(registry *Registry, opts ...ExpanderOption) *Expander {
	e := &Expander{
		registry: registry,
		logger:   slog.Default(),
		readFile: os.ReadFile,
		exists:   isRegularFile,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand runs Run and keeps its report for LastReport.
func (e *Expander) Expand(g *graph.Graph) {
	e.last = e.Run(g)
}

// LastReport returns the report of the most recent Expand call.
func (e *Expander) LastReport() ExpandReport {
	return e.last
}

// Run expands every node holding an AUTO import marker. It never fails:
// problems are logged and the marker is removed regardless, so a second run
// over the same graph changes nothing.
func (e *Expander) Run(g *graph.Graph) ExpandReport {
	var report ExpandReport

	byPath := make(map[string]string, g.Len())
	for _, n := range g.Nodes() {
		byPath[normalizePath(n.SourcePath)] = n.Name
	}

	for _, n := range g.Nodes() {
		if !n.HasEdge(graph.AutoTarget, graph.KindImport) {
			continue
		}
		report.Expanded++

		targets := e.resolve(n, &report)
		n.Edges = withoutAuto(n.Edges)

		for _, path := range targets {
			name, ok := byPath[path]
			if !ok || name == n.Name {
				continue
			}
			if n.HasEdge(name, graph.KindImport) {
				continue
			}
			n.AddEdge(name, graph.KindImport)
			report.Added++
			e.logger.Debug("added import edge", "from", n.Name, "to", name)
		}
	}

	return report
}

// resolve returns the normalized paths of the files n imports.
func (e *Expander) resolve(n *graph.Node, report *ExpandReport) []string {
	res, ok := e.registry.For(n.SourcePath)
	if !ok {
		report.NoResolver = append(report.NoResolver, n.SourcePath)
		e.logger.Warn("no import resolver for file", "node", n.Name, "path", n.SourcePath)
		return nil
	}

	data, err := e.readFile(n.SourcePath)
	if err != nil {
		e.logger.Warn("reading file for import expansion", "node", n.Name, "path", n.SourcePath, "error", err)
		return nil
	}

	dir := filepath.Dir(n.SourcePath)
	lister, _ := res.(CandidateLister)

	var paths []string
	for _, imp := range res.ExtractImports(string(data)) {
		path, ok := e.locate(dir, imp, lister)
		if !ok {
			report.Unresolved = append(report.Unresolved, n.SourcePath+": "+imp)
			e.logger.Debug("unresolved import", "node", n.Name, "import", imp)
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// locate resolves imp against dir and returns the first existing candidate.
func (e *Expander) locate(dir, imp string, lister CandidateLister) (string, bool) {
	candidates := []string{imp}
	if lister != nil {
		candidates = lister.Candidates(imp)
	}

	for _, c := range candidates {
		if !filepath.IsAbs(c) {
			c = filepath.Join(dir, c)
		}
		if e.exists(c) {
			return normalizePath(c), true
		}
	}
	return "", false
}

func withoutAuto(edges []graph.Edge) []graph.Edge {
	kept := edges[:0]
	for _, edge := range edges {
		if edge.IsAuto() {
			continue
		}
		kept = append(kept, edge)
	}
	return kept
}

// normalizePath makes path absolute, clean and lowercase so that files can be
// matched across platforms with case-insensitive filesystems.
func normalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return strings.ToLower(filepath.Clean(path))
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
