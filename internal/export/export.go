// Package export renders a colored graph to the JSON document read by the
// graph viewer.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"docgraph/internal/graph"
)

// ErrEmptyGraph is returned when asked to encode a document without nodes.
var ErrEmptyGraph = errors.New("graph has no nodes")

// NoNotes is rendered for nodes without a note.
const NoNotes = "No Notes"

// CompressedExt marks output paths that are written zstd-compressed.
const CompressedExt = ".zst"

// NodeRecord is one node in the output document.
type NodeRecord struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Color        string `json:"color,omitempty"`
	Filepath     string `json:"filepath"`
	LastModified string `json:"last_modified"`
	Notes        string `json:"notes"`
	Size         int    `json:"size"`
}

// EdgeRecord is one edge in the output document. Source is the node the edge
// points at and Target the node that declared it, so arrows run from parent
// to child and from imported to importer.
type EdgeRecord struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Type         string `json:"type"`
	SemanticType string `json:"semantic_type"`
	Size         int    `json:"size"`
}

// Document is the complete output.
type Document struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// StyleTable maps edge kinds to viewer edge styles.
type StyleTable map[graph.EdgeKind]string

// DefaultStyles returns the style table for the built-in kinds.
func DefaultStyles() StyleTable {
	return StyleTable{
		graph.KindParent:  "arrow",
		graph.KindSibling: "line",
		graph.KindImport:  "curvedArrow",
		graph.KindFork:    "dashed",
		graph.KindUse:     "dotted",
	}
}

// Style returns the style for kind.
func (s StyleTable) Style(kind graph.EdgeKind) (string, bool) {
	style, ok := s[kind]
	return style, ok
}

// With returns a copy of s with overrides applied.
func (s StyleTable) With(overrides map[graph.EdgeKind]string) StyleTable {
	out := make(StyleTable, len(s)+len(overrides))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Kinds returns the kinds with a style, sorted.
func (s StyleTable) Kinds() []graph.EdgeKind {
	kinds := make([]graph.EdgeKind, 0, len(s))
	for k := range s {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Options controls rendering.
type Options struct {
	NodeSize int
	EdgeSize int
	Styles   StyleTable
}

// DefaultOptions returns the stock node and edge sizes with the default
// style table.
func DefaultOptions() Options {
	return Options{
		NodeSize: 10,
		EdgeSize: 3,
		Styles:   DefaultStyles(),
	}
}

// Render builds the output document from g in node insertion order. It
// panics if an edge has a kind with no style: edge kinds are fixed when the
// parser is configured, so a missing style is a programming error.
func Render(g *graph.Graph, opts Options) *Document {
	if opts.Styles == nil {
		opts.Styles = DefaultStyles()
	}

	doc := &Document{
		Nodes: make([]NodeRecord, 0, g.Len()),
		Edges: make([]EdgeRecord, 0, g.EdgeCount()),
	}

	for _, n := range g.Nodes() {
		notes := n.Note
		if notes == "" {
			notes = NoNotes
		}
		doc.Nodes = append(doc.Nodes, NodeRecord{
			ID:           n.Name,
			Label:        n.Name,
			Color:        n.Color,
			Filepath:     n.SourcePath,
			LastModified: n.LastModified,
			Notes:        notes,
			Size:         opts.NodeSize,
		})

		for idx, e := range n.Edges {
			style, ok := opts.Styles.Style(e.Kind)
			if !ok {
				panic(fmt.Sprintf("export: no style for edge kind %q on node %q", e.Kind, n.Name))
			}
			doc.Edges = append(doc.Edges, EdgeRecord{
				ID:           fmt.Sprintf("%s_e%d", n.Name, idx),
				Source:       e.Target,
				Target:       n.Name,
				Type:         style,
				SemanticType: string(e.Kind),
				Size:         opts.EdgeSize,
			})
		}
	}

	return doc
}

// Encode writes doc as JSON indented by indent spaces; zero means compact.
func Encode(w io.Writer, doc *Document, indent int) error {
	if doc == nil || len(doc.Nodes) == 0 {
		return ErrEmptyGraph
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return nil
}

// OutputMode is the permission given to a newly created document.
const OutputMode os.FileMode = 0644

// WriteFile encodes doc to path, compressing with zstd when path ends in
// .zst. The file is written to a temporary sibling and renamed into place,
// so a failed run never leaves a truncated document behind. An existing
// document keeps its permissions; a new one gets OutputMode.
func WriteFile(path string, doc *Document, indent int) error {
	if doc == nil || len(doc.Nodes) == 0 {
		return ErrEmptyGraph
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".docgraph-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := encodeTo(tmp, doc, indent, IsCompressed(path)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(outputMode(path)); err != nil {
		tmp.Close()
		return fmt.Errorf("setting output mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming output: %w", err)
	}
	return nil
}

func outputMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return info.Mode().Perm()
	}
	return OutputMode
}

func encodeTo(w io.Writer, doc *Document, indent int, compress bool) error {
	if !compress {
		return Encode(w, doc, indent)
	}

	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	if err := Encode(encoder, doc, indent); err != nil {
		encoder.Close()
		return err
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}
	return nil
}

// ReadFile loads a document written by WriteFile.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if IsCompressed(path) {
		decoder, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		r = decoder
	}

	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &doc, nil
}

// IsCompressed reports whether path names a zstd-compressed document.
func IsCompressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CompressedExt)
}
