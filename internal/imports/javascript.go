package imports

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// JavaScriptResolver finds relative imports in JavaScript and TypeScript
// sources: ES imports and re-exports, dynamic import() and CommonJS
// require(). TypeScript is read with the JavaScript grammar, which is enough
// for import statements.
type JavaScriptResolver struct{}

// NewJavaScriptResolver creates a JavaScript/TypeScript resolver.
func NewJavaScriptResolver() *JavaScriptResolver {
	return &JavaScriptResolver{}
}

func (j *JavaScriptResolver) Name() string { return "javascript" }

// CanHandle reports whether path is a JavaScript or TypeScript source.
func (j *JavaScriptResolver) CanHandle(path string) bool {
	return hasExt(path, ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx")
}

// ExtractImports returns every relative import source. Package imports such
// as "lodash" are left out since they never name a file in the tree.
func (j *JavaScriptResolver) ExtractImports(text string) []string {
	content := []byte(stripCommentLines(text, "//"))

	tree, err := parseSource(content, javascript.GetLanguage())
	if err != nil {
		return []string{}
	}
	defer tree.Close()

	var found []string
	iter := sitter.NewIterator(tree.RootNode(), sitter.DFSMode)
	for {
		n, err := iter.Next()
		if err != nil || n == nil {
			break
		}

		var source string
		switch n.Type() {
		case "import_statement", "export_statement":
			source = findSourceString(n, content)
		case "call_expression":
			source = callSource(n, content)
		}

		if isRelative(source) {
			found = append(found, source)
		}
	}

	return uniqueSorted(found)
}

// Candidates lists the files an extensionless import may refer to.
func (j *JavaScriptResolver) Candidates(importPath string) []string {
	switch strings.ToLower(filepath.Ext(importPath)) {
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
		return []string{importPath}
	}

	return []string{
		importPath + ".ts",
		importPath + ".tsx",
		importPath + ".js",
		importPath + ".jsx",
		importPath + ".mjs",
		importPath + ".cjs",
		filepath.Join(importPath, "index.ts"),
		filepath.Join(importPath, "index.tsx"),
		filepath.Join(importPath, "index.js"),
		filepath.Join(importPath, "index.jsx"),
	}
}

// findSourceString returns the string literal directly under an import or
// export statement, the "from" clause.
func findSourceString(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "string" {
			return trimQuotes(child.Content(content))
		}
	}
	return ""
}

// callSource handles import("./x") and require("./x").
func callSource(node *sitter.Node, content []byte) string {
	if node.ChildCount() < 2 {
		return ""
	}

	callee := node.Child(0)
	switch {
	case callee == nil:
		return ""
	case callee.Type() == "import":
	case callee.Type() == "identifier" && callee.Content(content) == "require":
	default:
		return ""
	}

	args := node.Child(1)
	if args == nil || args.Type() != "arguments" {
		return ""
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		child := args.Child(i)
		if child.Type() == "string" {
			return trimQuotes(child.Content(content))
		}
	}
	return ""
}

func trimQuotes(s string) string {
	return strings.Trim(s, "\"'`")
}

func isRelative(source string) bool {
	return strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../")
}

func parseSource(content []byte, lang *sitter.Language) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing failed: %w", err)
	}
	return tree, nil
}
