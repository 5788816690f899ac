// Package annotation extracts node identity and typed edges from files
// carrying @tag annotations.
//
// A file is annotated with one tag per line:
//
//	@name: loader
//	@imports: util, config
//	@uses: warehouse
//	@notes: nightly batch job
//
// Tags are case-insensitive and singular or plural spellings are accepted.
// When a tag appears more than once only its first line is used.
package annotation

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"docgraph/internal/graph"
)

// TimeLayout is the format used for Node.LastModified.
const TimeLayout = "2006-01-02 15:04:05.000000"

type kindTag struct {
	kind graph.EdgeKind
	re   *regexp.Regexp
}

// Parser extracts nodes from annotated text.
type Parser struct {
	name  *regexp.Regexp
	note  *regexp.Regexp
	kinds []kindTag
}

// NewParser creates a parser for the built-in edge kinds followed by any
// extra kinds, in that order. Extra kinds that duplicate a built-in are
// ignored.
func NewParser(extra ...graph.EdgeKind) *Parser {
	p := &Parser{
		name: tagPattern("name", false),
		note: tagPattern("note", true),
	}

	seen := make(map[graph.EdgeKind]bool)
	for _, k := range append(append([]graph.EdgeKind{}, graph.BuiltinKinds...), extra...) {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		p.kinds = append(p.kinds, kindTag{kind: k, re: tagPattern(TagStem(k), true)})
	}

	return p
}

// TagStem is the singular, lowercased tag spelling for kind. "@call:" and
// "@calls:" both select the kind "calls".
func TagStem(kind graph.EdgeKind) string {
	return strings.TrimSuffix(strings.ToLower(string(kind)), "s")
}

// tagPattern matches "@tag:" (and "@tags:" when plural is set) anywhere on a
// line and captures the rest of that line.
func tagPattern(tag string, plural bool) *regexp.Regexp {
	suffix := ""
	if plural {
		suffix = "s?"
	}
	return regexp.MustCompile(`(?im)@` + regexp.QuoteMeta(tag) + suffix + `:(.*)$`)
}

// Kinds returns the edge kinds the parser reads, in edge order.
func (p *Parser) Kinds() []graph.EdgeKind {
	kinds := make([]graph.EdgeKind, len(p.kinds))
	for i, k := range p.kinds {
		kinds[i] = k.kind
	}
	return kinds
}

// Fingerprint identifies the parser configuration. Two parsers with the same
// fingerprint produce the same node for the same text.
func (p *Parser) Fingerprint() string {
	var b strings.Builder
	b.WriteString("v2")
	for _, k := range p.kinds {
		b.WriteByte(':')
		b.WriteString(string(k.kind))
	}
	return b.String()
}

// Parse extracts a node from text. It returns nil when the text has no
// @name line or the name is blank. LastModified is left at the unavailable
// sentinel; ParseFile fills it in.
func (p *Parser) Parse(path, text string) *graph.Node {
	name, ok := firstValue(p.name, text)
	if !ok {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	node := graph.NewNode(name, path)

	for _, k := range p.kinds {
		value, ok := firstValue(k.re, text)
		if !ok {
			continue
		}
		for _, target := range SplitList(value) {
			node.AddEdge(target, k.kind)
		}
	}

	if note, ok := firstValue(p.note, text); ok {
		node.Note = strings.TrimSpace(note)
	}

	return node
}

// ParseFile reads and parses the file at path. Files that are not valid
// UTF-8 produce (nil, nil).
func (p *Parser) ParseFile(path string) (*graph.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	node := p.ParseContent(path, data)
	if node == nil {
		return nil, nil
	}
	node.LastModified = LastModified(path)
	return node, nil
}

// ParseContent parses raw file content, returning nil for content that is
// not valid UTF-8.
func (p *Parser) ParseContent(path string, data []byte) *graph.Node {
	if !utf8.Valid(data) {
		return nil
	}
	return p.Parse(path, string(data))
}

// LastModified returns the file's modification time formatted with
// TimeLayout, or graph.LastModifiedUnavailable if it cannot be stat'ed.
func LastModified(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return graph.LastModifiedUnavailable
	}
	return info.ModTime().Format(TimeLayout)
}

// SplitList splits a comma-separated value, trimming items and dropping
// empty ones.
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func firstValue(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
