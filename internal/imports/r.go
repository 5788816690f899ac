package imports

import "regexp"

var rImportPattern = regexp.MustCompile(`(library|require|source)\(["']([^"']*\.(R|r))["']\)`)

// RResolver finds library(), require() and source() calls naming .R files.
type RResolver struct{}

// NewRResolver creates an R resolver.
func NewRResolver() *RResolver {
	return &RResolver{}
}

func (r *RResolver) Name() string { return "r" }

// CanHandle reports whether path has an .r or .R extension.
func (r *RResolver) CanHandle(path string) bool {
	return hasExt(path, ".r")
}

// ExtractImports returns the quoted .R paths of every import call outside a
// comment line.
func (r *RResolver) ExtractImports(text string) []string {
	text = stripCommentLines(text, "#")

	var found []string
	for _, m := range rImportPattern.FindAllStringSubmatch(text, -1) {
		found = append(found, m[2])
	}
	return uniqueSorted(found)
}
