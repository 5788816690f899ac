// Package imports infers import edges from source code. Each Resolver
// understands one dialect; a Registry picks the first resolver that claims a
// file, and the Expander turns AUTO import markers into real edges.
package imports

import (
	"fmt"
	"sort"
	"strings"
)

// Resolver extracts the files a source file imports.
type Resolver interface {
	// Name identifies the resolver in configuration and diagnostics.
	Name() string

	// CanHandle reports whether the resolver understands the file at path.
	// It must not touch the filesystem.
	CanHandle(path string) bool

	// ExtractImports returns the relative paths imported by text, sorted and
	// deduplicated. Comment lines are ignored.
	ExtractImports(text string) []string
}

// CandidateLister is implemented by resolvers whose dialect lets imports omit
// a file extension. Candidates returns the paths to try, in order.
type CandidateLister interface {
	Candidates(importPath string) []string
}

// Registry is an ordered list of resolvers.
type Registry struct {
	resolvers []Resolver
}

// NewRegistry creates a registry that consults resolvers in the given order.
func NewRegistry(resolvers ...Resolver) *Registry {
	return &Registry{resolvers: resolvers}
}

// DefaultRegistry returns a registry with every built-in resolver.
func DefaultRegistry() *Registry {
	return NewRegistry(NewRResolver(), NewShellResolver(), NewPythonResolver(), NewJavaScriptResolver())
}

// Builtin returns the built-in resolver with the given name.
func Builtin(name string) (Resolver, error) {
	switch strings.ToLower(name) {
	case "r":
		return NewRResolver(), nil
	case "shell", "sh":
		return NewShellResolver(), nil
	case "python", "py":
		return NewPythonResolver(), nil
	case "javascript", "js", "typescript", "ts":
		return NewJavaScriptResolver(), nil
	default:
		return nil, fmt.Errorf("unknown import resolver %q", name)
	}
}

// BuiltinNames lists the canonical names accepted by Builtin.
func BuiltinNames() []string {
	return []string{"r", "shell", "python", "javascript"}
}

// RegistryFor builds a registry from resolver names.
func RegistryFor(names []string) (*Registry, error) {
	var resolvers []Resolver
	for _, name := range names {
		r, err := Builtin(name)
		if err != nil {
			return nil, err
		}
		resolvers = append(resolvers, r)
	}
	return NewRegistry(resolvers...), nil
}

// Register appends a resolver; it is consulted after those already present.
func (r *Registry) Register(res Resolver) {
	r.resolvers = append(r.resolvers, res)
}

// For returns the first resolver that can handle path. There is no fallback
// to later resolvers once one matches.
func (r *Registry) For(path string) (Resolver, bool) {
	for _, res := range r.resolvers {
		if res.CanHandle(path) {
			return res, true
		}
	}
	return nil, false
}

// Resolvers returns the registered resolvers in order.
func (r *Registry) Resolvers() []Resolver {
	out := make([]Resolver, len(r.resolvers))
	copy(out, r.resolvers)
	return out
}

// stripCommentLines blanks every line whose trimmed form starts with marker.
// Line count is preserved.
func stripCommentLines(text, marker string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), marker) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// uniqueSorted deduplicates items and sorts them.
func uniqueSorted(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func hasExt(path string, exts ...string) bool {
	lower := strings.ToLower(path)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
