// Package ignore decides which paths a scan skips, using gitignore-style
// patterns.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the per-root ignore file read by LoadFromDir.
const FileName = ".docgraphignore"

// rule is one compiled pattern.
type rule struct {
	glob     string
	negated  bool
	dirOnly  bool
	anchored bool
}

// Matcher evaluates ignore rules in order; the last matching rule decides.
type Matcher struct {
	rules []rule
}

// NewMatcher creates a matcher with no rules.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Compile creates a matcher from pattern lines.
func Compile(patterns []string) *Matcher {
	m := NewMatcher()
	m.AddPatterns(patterns)
	return m
}

// AddPattern adds one gitignore-style line. Blank lines and # comments are
// ignored, "!" negates, a trailing "/" restricts the rule to directories and
// a leading "/" anchors it at the root. Patterns without a slash match a
// name at any depth.
func (m *Matcher) AddPattern(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	var r rule
	if strings.HasPrefix(line, "!") {
		r.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = line[1:]
	}
	if line == "" {
		return
	}
	if !r.anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}

	r.glob = line
	m.rules = append(m.rules, r)
}

// AddPatterns adds several lines.
func (m *Matcher) AddPatterns(lines []string) {
	for _, line := range lines {
		m.AddPattern(line)
	}
}

// LoadFile adds the patterns in a gitignore-style file. A missing file adds
// nothing.
func (m *Matcher) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	return scanner.Err()
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Match reports whether path, relative to the scan root, is ignored.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = strings.TrimPrefix(filepath.ToSlash(path), "./")
	if path == "" || path == "." {
		return false
	}

	ignored := false
	for _, r := range m.rules {
		var matched bool
		if r.dirOnly && !isDir {
			matched = underMatchingDir(r.glob, path)
		} else {
			matched = matchGlob(r.glob, path)
		}
		if matched {
			ignored = !r.negated
		}
	}
	return ignored
}

// underMatchingDir reports whether any proper parent directory of path
// matches glob.
func underMatchingDir(glob, path string) bool {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if matchGlob(glob, strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

// matchGlob matches path against glob or anything beneath it.
func matchGlob(glob, path string) bool {
	if ok, _ := doublestar.Match(glob, path); ok {
		return true
	}
	if strings.HasSuffix(glob, "/**") {
		return false
	}
	ok, _ := doublestar.Match(glob+"/**", path)
	return ok
}

// Defaults are skipped in every scan: version control metadata, the
// docgraph cache directory and common generated or dependency trees.
var Defaults = []string{
	".git/",
	".svn/",
	".hg/",
	".docgraph/",

	".DS_Store",
	"Thumbs.db",
	"*.swp",
	"*.swo",
	"*~",

	"node_modules/",
	"bower_components/",
	".next/",
	"coverage/",

	"__pycache__/",
	"*.pyc",
	".venv/",
	".tox/",
	".mypy_cache/",
	".pytest_cache/",

	".Rproj.user/",
	".Rhistory",
	"renv/library/",
}

// LoadDefaults adds Defaults.
func (m *Matcher) LoadDefaults() {
	m.AddPatterns(Defaults)
}

// LoadFromDir builds the matcher for one scan root: defaults, then extra
// (typically from configuration), then the root's .docgraphignore. Later
// rules may re-include paths with "!".
func LoadFromDir(dir string, extra []string) (*Matcher, error) {
	m := NewMatcher()
	m.LoadDefaults()
	m.AddPatterns(extra)
	if err := m.LoadFile(filepath.Join(dir, FileName)); err != nil {
		return nil, err
	}
	return m, nil
}
