package imports

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonResolver finds module imports in Python sources. Relative imports
// keep their leading dots as ./ and ../ prefixes; absolute module names are
// looked up next to the importing file.
type PythonResolver struct{}

// NewPythonResolver creates a Python resolver.
func NewPythonResolver() *PythonResolver {
	return &PythonResolver{}
}

func (p *PythonResolver) Name() string { return "python" }

// CanHandle reports whether path is a Python source.
func (p *PythonResolver) CanHandle(path string) bool {
	return hasExt(path, ".py")
}

// ExtractImports returns the module paths named by import and from-import
// statements, e.g. "from ..pkg import mod" yields "../pkg".
func (p *PythonResolver) ExtractImports(text string) []string {
	content := []byte(stripCommentLines(text, "#"))

	tree, err := parseSource(content, python.GetLanguage())
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

		switch n.Type() {
		case "import_statement":
			for _, name := range importedNames(n, nil, content) {
				found = append(found, modulePath("", name))
			}
		case "import_from_statement":
			found = append(found, fromImport(n, content)...)
		}
	}

	return uniqueSorted(found)
}

// Candidates lists the module file and the package __init__ for importPath.
func (p *PythonResolver) Candidates(importPath string) []string {
	if strings.EqualFold(filepath.Ext(importPath), ".py") {
		return []string{importPath}
	}
	return []string{
		importPath + ".py",
		filepath.Join(importPath, "__init__.py"),
	}
}

// fromImport handles "from <module> import <names>". When the module is a
// bare prefix ("from . import a, b") the imported names are modules
// themselves.
func fromImport(node *sitter.Node, content []byte) []string {
	module := node.ChildByFieldName("module_name")
	if module == nil {
		return nil
	}

	if module.Type() == "dotted_name" {
		return []string{modulePath("", module.Content(content))}
	}

	// relative_import: import_prefix followed by an optional dotted_name
	var prefix, dotted string
	for i := 0; i < int(module.ChildCount()); i++ {
		child := module.Child(i)
		switch child.Type() {
		case "import_prefix":
			prefix = child.Content(content)
		case "dotted_name":
			dotted = child.Content(content)
		}
	}

	if dotted != "" {
		return []string{modulePath(prefix, dotted)}
	}

	var out []string
	for _, name := range importedNames(node, module, content) {
		out = append(out, modulePath(prefix, name))
	}
	return out
}

// importedNames returns the dotted names listed by an import statement,
// unwrapping "x as y" aliases. skip excludes the from-clause module.
func importedNames(node, skip *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if skip != nil && child.StartByte() == skip.StartByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			names = append(names, child.Content(content))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, name.Content(content))
			}
		}
	}
	return names
}

// modulePath converts a Python module reference to a relative path. A single
// leading dot is the current package, each further dot one level up.
func modulePath(prefix, dotted string) string {
	base := "./"
	if n := len(prefix); n > 1 {
		base = strings.Repeat("../", n-1)
	}
	if dotted == "" {
		return strings.TrimSuffix(base, "/")
	}
	return base + strings.ReplaceAll(dotted, ".", "/")
}
