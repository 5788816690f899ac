// Package graph provides the node/edge model for annotated files and the
// algorithms that run over it: validation and component coloring.
package graph

// EdgeKind is the semantic tag of an edge.
type EdgeKind string

const (
	KindParent  EdgeKind = "parent"
	KindSibling EdgeKind = "sibling"
	KindImport  EdgeKind = "import"
	KindFork    EdgeKind = "fork"
	KindUse     EdgeKind = "use"
)

// BuiltinKinds lists the kinds every deployment understands, in the order
// their annotation tags are read.
var BuiltinKinds = []EdgeKind{KindParent, KindSibling, KindImport, KindFork, KindUse}

// AutoTarget marks an import edge whose targets are inferred from the file's
// source code rather than listed by hand.
const AutoTarget = "AUTO"

// LastModifiedUnavailable is stored when a file cannot be stat'ed.
const LastModifiedUnavailable = "Error: can't find file"

// Edge is a typed reference declared by the node that owns it.
type Edge struct {
	Target string   `json:"id"`
	Kind   EdgeKind `json:"type"`
}

// IsAuto reports whether the edge is a deferred import marker.
func (e Edge) IsAuto() bool {
	return e.Target == AutoTarget && e.Kind == KindImport
}

// Node is one annotated file.
type Node struct {
	Name         string
	SourcePath   string
	Edges        []Edge
	Note         string
	LastModified string

	// Color is empty until a ColorAssigner runs.
	Color string
	// Visited is only meaningful during a coloring run.
	Visited bool
}

// NewNode creates a node with no edges.
func NewNode(name, sourcePath string) *Node {
	return &Node{
		Name:         name,
		SourcePath:   sourcePath,
		Edges:        []Edge{},
		LastModified: LastModifiedUnavailable,
	}
}

// AddEdge appends an edge to the node.
func (n *Node) AddEdge(target string, kind EdgeKind) {
	n.Edges = append(n.Edges, Edge{Target: target, Kind: kind})
}

// HasEdge reports whether the node already holds an identical edge.
func (n *Node) HasEdge(target string, kind EdgeKind) bool {
	for _, e := range n.Edges {
		if e.Target == target && e.Kind == kind {
			return true
		}
	}
	return false
}

// HasNote reports whether the node carries a note.
func (n *Node) HasNote() bool {
	return n.Note != ""
}

// Graph is a name-keyed node map that remembers insertion order.
type Graph struct {
	nodes map[string]*Node
	order []string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Add inserts a node. A node with the same name replaces the earlier one but
// keeps its position. Add reports whether a previous node was replaced.
func (g *Graph) Add(n *Node) bool {
	if _, ok := g.nodes[n.Name]; ok {
		g.nodes[n.Name] = n
		return true
	}
	g.nodes[n.Name] = n
	g.order = append(g.order, n.Name)
	return false
}

// Get returns the node with the given name.
func (g *Graph) Get(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Has reports whether a node with the given name exists.
func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Names returns node names in insertion order.
func (g *Graph) Names() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		nodes = append(nodes, g.nodes[name])
	}
	return nodes
}

// EdgeCount returns the total number of edges held by all nodes.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, n := range g.nodes {
		count += len(n.Edges)
	}
	return count
}
