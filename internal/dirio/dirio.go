// Package dirio discovers the files a scan reads from one or more directory
// trees.
package dirio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"docgraph/internal/ignore"
)

// File is one discovered regular file.
type File struct {
	// Path is the root joined with RelPath, as the root was given.
	Path string
	// Root is the scan root the file was found under.
	Root string
	// RelPath is slash-separated and relative to Root.
	RelPath string
	Size    int64
	ModTime time.Time
}

// Walker lists files under scan roots.
type Walker struct {
	ignorePatterns []string
	include        []string
	matcher        *ignore.Matcher
}

// Option configures a Walker.
type Option func(*Walker)

// WithIgnorePatterns adds gitignore-style patterns on top of the defaults
// and each root's .docgraphignore.
func WithIgnorePatterns(patterns []string) Option {
	return func(w *Walker) {
		w.ignorePatterns = append(w.ignorePatterns, patterns...)
	}
}

// WithInclude restricts the walk to files whose root-relative path matches
// at least one doublestar glob.
func WithInclude(globs []string) Option {
	return func(w *Walker) {
		w.include = append(w.include, globs...)
	}
}

// WithMatcher replaces per-root ignore loading with a fixed matcher.
func WithMatcher(m *ignore.Matcher) Option {
	return func(w *Walker) {
		w.matcher = m
	}
}

// NewWalker creates a walker.
func NewWalker(opts ...Option) (*Walker, error) {
	w := &Walker{}
	for _, opt := range opts {
		opt(w)
	}
	for _, g := range w.include {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid include pattern %q", g)
		}
	}
	return w, nil
}

// Walk lists the files under every root, roots in the given order and
// files in lexical order within each root. A root that is missing or not a
// directory is an error; unreadable entries below a root are skipped.
func (w *Walker) Walk(roots []string) ([]File, error) {
	var files []File
	for _, root := range roots {
		found, err := w.walkRoot(root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func (w *Walker) walkRoot(root string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	matcher := w.matcher
	if matcher == nil {
		matcher, err = ignore.LoadFromDir(root, w.ignorePatterns)
		if err != nil {
			return nil, fmt.Errorf("loading ignore patterns: %w", err)
		}
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)

		if matcher.Match(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !w.included(relPath) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, File{
			Path:    path,
			Root:    root,
			RelPath: relPath,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return files, nil
}

func (w *Walker) included(relPath string) bool {
	if len(w.include) == 0 {
		return true
	}
	for _, g := range w.include {
		if ok, _ := doublestar.Match(g, relPath); ok {
			return true
		}
	}
	return false
}

// Paths returns the Path of each file.
func Paths(files []File) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}
