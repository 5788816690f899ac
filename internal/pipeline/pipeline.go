// Package pipeline runs a complete docgraph pass: walk, parse, build,
// expand, validate, color and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"docgraph/internal/annotation"
	"docgraph/internal/cache"
	"docgraph/internal/config"
	"docgraph/internal/dirio"
	"docgraph/internal/export"
	"docgraph/internal/graph"
	"docgraph/internal/imports"
	"docgraph/internal/scan"
)

// ErrRejectedEdges is returned in check mode when any edge names an unknown
// node.
var ErrRejectedEdges = errors.New("graph has edges to unknown nodes")

// Request describes one run.
type Request struct {
	Dirs []string
	// Output is the document path. It is ignored in check mode.
	Output string
	// Check validates without writing and fails on rejected edges.
	Check      bool
	ClearCache bool
}

// Summary reports what a run produced.
type Summary struct {
	Files      int
	Nodes      int
	Edges      int
	Components int
	CacheHits  int

	// CacheEntries is the parse cache size after the scan, zero when the
	// cache is disabled.
	CacheEntries int64

	Rejected   []graph.RejectedEdge
	Duplicates []string
	Imports    imports.ExpandReport

	// Output is empty in check mode.
	Output string
}

// Run executes req with cfg. It returns scan.ErrNoAnnotatedFiles when
// nothing was annotated, in which case no document is written.
func Run(ctx context.Context, cfg *config.Config, req Request, logger *slog.Logger) (*Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(req.Dirs) == 0 {
		return nil, errors.New("no directories to scan")
	}
	if !req.Check && req.Output == "" {
		return nil, errors.New("no output path")
	}

	walker, err := dirio.NewWalker(dirio.WithIgnorePatterns(cfg.Ignore), dirio.WithInclude(cfg.Include))
	if err != nil {
		return nil, err
	}
	files, err := walker.Walk(req.Dirs)
	if err != nil {
		return nil, err
	}
	logger.Debug("discovered files", "count", len(files))

	parser := annotation.NewParser(cfg.ExtraKinds()...)

	scanOpts := []scan.Option{scan.WithWorkers(cfg.Workers), scan.WithLogger(logger)}
	var parseCache *cache.Cache
	if cfg.Cache.Enabled {
		parseCache, err = openCache(cfg.Cache.Dir, parser.Fingerprint(), req.ClearCache)
		if err != nil {
			return nil, err
		}
		defer parseCache.Close()
		scanOpts = append(scanOpts, scan.WithCache(parseCache))
	}

	sum := &Summary{Files: len(files)}

	res, err := scan.New(parser, scanOpts...).Scan(ctx, files)
	if err != nil {
		return sum, err
	}
	sum.CacheHits = res.CacheHits
	if parseCache != nil {
		stats, err := parseCache.Stats()
		if err != nil {
			logger.Warn("reading parse cache stats failed", "error", err)
		} else {
			sum.CacheEntries = stats.Entries
			logger.Debug("parse cache", "hits", sum.CacheHits, "entries", stats.Entries)
		}
	}

	builderOpts := []graph.BuilderOption{graph.WithLogger(logger)}
	var expander *imports.Expander
	if cfg.AutoImports {
		registry, err := imports.RegistryFor(cfg.Resolvers)
		if err != nil {
			return nil, err
		}
		expander = imports.NewExpander(registry, imports.WithLogger(logger))
		builderOpts = append(builderOpts, graph.WithExpander(expander))
	}

	g, report := graph.NewBuilder(builderOpts...).Build(res.Nodes)
	sum.Rejected = report.Rejected
	sum.Duplicates = report.Duplicates
	if expander != nil {
		sum.Imports = expander.LastReport()
		logger.Debug("expanded auto imports",
			"nodes", sum.Imports.Expanded, "added", sum.Imports.Added,
			"unresolved", len(sum.Imports.Unresolved))
	}
	if report.RejectedCount() > 0 {
		logger.Warn("dropped edges to unknown nodes",
			"count", report.RejectedCount(), "edges", describe(report.Rejected))
	}

	components := graph.NewColorAssigner(nil).Assign(g)

	sum.Nodes = g.Len()
	sum.Edges = g.EdgeCount()
	sum.Components = len(components)

	if req.Check {
		logger.Info("checked graph", summaryAttrs(sum)...)
		if len(sum.Rejected) > 0 {
			return sum, fmt.Errorf("%w: %d dropped", ErrRejectedEdges, len(sum.Rejected))
		}
		return sum, nil
	}

	opts := export.Options{
		NodeSize: cfg.Output.NodeSize,
		EdgeSize: cfg.Output.EdgeSize,
		Styles:   export.DefaultStyles().With(cfg.StyleOverrides()),
	}
	if err := export.WriteFile(req.Output, export.Render(g, opts), cfg.Output.Indent); err != nil {
		return sum, fmt.Errorf("writing %s: %w", req.Output, err)
	}
	sum.Output = req.Output

	logger.Info("extracted graph", append(summaryAttrs(sum), "output", sum.Output)...)
	return sum, nil
}

func openCache(dir, fingerprint string, reset bool) (*cache.Cache, error) {
	c, err := cache.Open(dir, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("opening parse cache: %w", err)
	}
	if reset {
		if err := c.Clear(); err != nil {
			c.Close()
			return nil, fmt.Errorf("clearing parse cache: %w", err)
		}
	}
	return c, nil
}

func summaryAttrs(s *Summary) []any {
	return []any{
		"nodes", s.Nodes,
		"edges", s.Edges,
		"files", s.Files,
		"components", s.Components,
		"rejected", len(s.Rejected),
	}
}

func describe(rejected []graph.RejectedEdge) []string {
	out := make([]string, len(rejected))
	for i, r := range rejected {
		out[i] = fmt.Sprintf("%s -> %s (%s)", r.Owner, r.Target, r.Kind)
	}
	return out
}
