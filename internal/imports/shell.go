package imports

import (
	"regexp"
	"strings"
)

// A source command starts a line or follows a command separator or one of
// the keywords then, do and else.
var shellSourcePattern = regexp.MustCompile(`(?m)(?:^|[;&|]|\b(?:then|do|else)\b)[ \t]*(?:source|\.)[ \t]+["']?([^\s"';|&]+)["']?`)

// ShellResolver finds files pulled in with "source" or ".".
type ShellResolver struct{}

// NewShellResolver creates a shell resolver.
func NewShellResolver() *ShellResolver {
	return &ShellResolver{}
}

func (s *ShellResolver) Name() string { return "shell" }

// CanHandle reports whether path is a shell script.
func (s *ShellResolver) CanHandle(path string) bool {
	return hasExt(path, ".sh", ".bash", ".zsh")
}

// ExtractImports returns the sourced paths. Paths built from variables
// cannot be resolved statically and are skipped.
func (s *ShellResolver) ExtractImports(text string) []string {
	text = stripCommentLines(text, "#")

	var found []string
	for _, m := range shellSourcePattern.FindAllStringSubmatch(text, -1) {
		if strings.Contains(m[1], "$") {
			continue
		}
		found = append(found, m[1])
	}
	return uniqueSorted(found)
}
