// Package scan parses discovered files into graph nodes on a bounded worker
// pool.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"docgraph/internal/annotation"
	"docgraph/internal/cache"
	"docgraph/internal/dirio"
	"docgraph/internal/graph"
)

// ErrNoAnnotatedFiles is returned when a scan finds no annotated file.
var ErrNoAnnotatedFiles = errors.New("no annotated files found")

type outcome int

const (
	outcomeNode outcome = iota
	outcomeNotAnnotated
	outcomeUnreadable
)

type slot struct {
	node     *graph.Node
	outcome  outcome
	cacheHit bool
}

// Result is the outcome of a scan.
type Result struct {
	// Nodes holds one node per annotated file, in file order.
	Nodes []*graph.Node
	// Files counts every file examined.
	Files        int
	NotAnnotated int
	Unreadable   int
	CacheHits    int
}

// Scanner parses files with an annotation.Parser.
type Scanner struct {
	parser  *annotation.Parser
	cache   *cache.Cache
	workers int
	logger  *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers bounds the number of files parsed at once. Values below one
// keep the default of one worker per CPU.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithCache enables the parse cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Scanner) {
		s.cache = c
	}
}

// WithLogger sets the logger for per-file diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// New creates a scanner using parser.
func New(parser *annotation.Parser, opts ...Option) *Scanner {
	s := &Scanner{
		parser:  parser,
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan parses files concurrently. Each worker writes only its own slot and
// nodes are collected afterwards in file order, so the result does not
// depend on scheduling. Unreadable and unannotated files are logged and
// skipped. Scan returns ErrNoAnnotatedFiles, along with the result, when no
// file produced a node, and the context error if ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, files []dirio.File) (*Result, error) {
	slots := make([]slot, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = s.parse(files[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scanning files: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scanning files: %w", err)
	}

	res := &Result{Files: len(files)}
	for _, sl := range slots {
		if sl.cacheHit {
			res.CacheHits++
		}
		switch sl.outcome {
		case outcomeNode:
			res.Nodes = append(res.Nodes, sl.node)
		case outcomeNotAnnotated:
			res.NotAnnotated++
		case outcomeUnreadable:
			res.Unreadable++
		}
	}

	if len(res.Nodes) == 0 {
		return res, ErrNoAnnotatedFiles
	}
	return res, nil
}

func (s *Scanner) parse(f dirio.File) slot {
	s.logger.Debug("parsing file", "path", f.Path)

	node, hit, err := s.parseCached(f)
	if err != nil {
		s.logger.Warn("skipping unreadable file", "path", f.Path, "error", err)
		return slot{outcome: outcomeUnreadable}
	}
	if node == nil {
		s.logger.Warn("file is not annotated", "path", f.Path)
		return slot{outcome: outcomeNotAnnotated, cacheHit: hit}
	}

	node.LastModified = f.ModTime.Format(annotation.TimeLayout)
	return slot{node: node, outcome: outcomeNode, cacheHit: hit}
}

// parseCached consults the cache by stat, then by content digest, before
// parsing. Cache failures fall back to a plain parse.
func (s *Scanner) parseCached(f dirio.File) (*graph.Node, bool, error) {
	if s.cache != nil {
		node, ok, err := s.cache.Lookup(f.Path, f.Size, f.ModTime)
		if err != nil {
			s.logger.Warn("parse cache lookup failed", "path", f.Path, "error", err)
		} else if ok {
			return node, true, nil
		}
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, false, err
	}

	if s.cache == nil {
		return s.parser.ParseContent(f.Path, data), false, nil
	}

	digest := cache.Digest(data)
	node, ok, err := s.cache.LookupDigest(f.Path, digest, f.Size, f.ModTime)
	if err != nil {
		s.logger.Warn("parse cache lookup failed", "path", f.Path, "error", err)
	} else if ok {
		return node, true, nil
	}

	node = s.parser.ParseContent(f.Path, data)
	if err := s.cache.Store(f.Path, f.Size, f.ModTime, digest, node); err != nil {
		s.logger.Warn("parse cache write failed", "path", f.Path, "error", err)
	}
	return node, false, nil
}
