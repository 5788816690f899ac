package graph

import (
	"log/slog"
)

// Expander rewrites node edges once the whole node set is known.
// imports.Expander is the implementation used for AUTO import markers.
type Expander interface {
	Expand(g *Graph)
}

// RejectedEdge is an edge dropped during validation.
type RejectedEdge struct {
	Owner  string   `json:"owner"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// Report summarizes what a build discarded.
type Report struct {
	Rejected []RejectedEdge
	// Duplicates lists names whose earlier node was overwritten.
	Duplicates []string
}

// RejectedCount returns the number of dropped edges.
func (r *Report) RejectedCount() int {
	return len(r.Rejected)
}

// Builder assembles parsed nodes into a validated graph.
type Builder struct {
	expander Expander
	logger   *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithExpander runs e after all nodes are inserted and before validation.
func WithExpander(e Expander) BuilderOption {
	return func(b *Builder) {
		b.expander = e
	}
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build inserts nodes in order (later duplicates win), runs the expander if
// one is configured and then validates every edge.
func (b *Builder) Build(nodes []*Node) (*Graph, *Report) {
	g := New()
	report := &Report{}

	for _, n := range nodes {
		if n == nil {
			continue
		}
		if g.Add(n) {
			report.Duplicates = append(report.Duplicates, n.Name)
			b.logger.Debug("duplicate node name, keeping later file",
				"name", n.Name, "path", n.SourcePath)
		}
	}

	if b.expander != nil {
		b.expander.Expand(g)
	}

	report.Rejected = Validate(g)
	for _, r := range report.Rejected {
		b.logger.Debug("dropping edge to unknown node",
			"owner", r.Owner, "target", r.Target, "kind", r.Kind)
	}

	return g, report
}

// Validate drops every edge whose target is not a node in g, along with any
// AUTO import marker still present, and returns the dropped edges. AUTO
// markers are not counted as rejected.
func Validate(g *Graph) []RejectedEdge {
	var rejected []RejectedEdge

	for _, n := range g.Nodes() {
		kept := n.Edges[:0]
		for _, e := range n.Edges {
			if e.IsAuto() {
				continue
			}
			if !g.Has(e.Target) {
				rejected = append(rejected, RejectedEdge{Owner: n.Name, Target: e.Target, Kind: e.Kind})
				continue
			}
			kept = append(kept, e)
		}
		n.Edges = kept
	}

	return rejected
}
