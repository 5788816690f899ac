package graph

import (
	"fmt"
	"math"
)

// ReservedColor is the front end's highlight color and is never issued.
const ReservedColor = "rgba(0, 0, 255, 1)"

// Accumulator steps. Irrational increments keep successive hues far apart
// without tracking how many colors have been handed out.
const (
	hueStep        = 0.618033988749895
	lightnessStep  = 0.7548776662466927
	saturationStep = 0.5698402909980532
)

// Palette generates pairwise-distinct colors for one run.
type Palette struct {
	hue        float64
	lightness  float64
	saturation float64
	issued     map[string]struct{}
}

// NewPalette creates a palette with the default starting point.
func NewPalette() *Palette {
	return NewPaletteAt(0.1, 0.5, 0.5)
}

// NewPaletteAt creates a palette whose accumulators start at the given
// offsets, each taken modulo 1.
func NewPaletteAt(hue, lightness, saturation float64) *Palette {
	return &Palette{
		hue:        frac(hue),
		lightness:  frac(lightness),
		saturation: frac(saturation),
		issued:     map[string]struct{}{ReservedColor: {}},
	}
}

// Next returns a color that this palette has not returned before.
func (p *Palette) Next() string {
	for {
		p.hue = frac(p.hue + hueStep)
		p.lightness = frac(p.lightness + lightnessStep)
		p.saturation = frac(p.saturation + saturationStep)

		l := 0.40 + 0.25*p.lightness
		s := 0.55 + 0.40*p.saturation
		r, g, b := hslToRGB(p.hue, s, l)

		color := fmt.Sprintf("rgba(%d, %d, %d, 1)", r, g, b)
		if _, dup := p.issued[color]; dup {
			continue
		}
		p.issued[color] = struct{}{}
		return color
	}
}

// Issued returns how many colors the palette has handed out.
func (p *Palette) Issued() int {
	return len(p.issued) - 1
}

func frac(x float64) float64 {
	return x - math.Floor(x)
}

// hslToRGB converts h, s, l in [0, 1] to 8-bit channels.
func hslToRGB(h, s, l float64) (int, int, int) {
	if s == 0 {
		v := int(math.Round(l * 255))
		return v, v, v
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r := hueToChannel(p, q, h+1.0/3)
	g := hueToChannel(p, q, h)
	b := hueToChannel(p, q, h-1.0/3)

	return int(math.Round(r * 255)), int(math.Round(g * 255)), int(math.Round(b * 255))
}

func hueToChannel(p, q, t float64) float64 {
	t = frac(t)
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

// Component is one connected set of nodes and the color they share.
type Component struct {
	Color   string
	Members []string
}

// ColorAssigner partitions a graph into connected components, treating every
// edge as undirected, and gives each component its own color.
type ColorAssigner struct {
	palette *Palette
}

// NewColorAssigner creates an assigner drawing from p, or from a fresh
// palette if p is nil.
func NewColorAssigner(p *Palette) *ColorAssigner {
	if p == nil {
		p = NewPalette()
	}
	return &ColorAssigner{palette: p}
}

// Adjacency returns the symmetric closure of g's edges keyed by node name.
// Neighbors are deduplicated and kept in first-seen order; edges pointing at
// names outside g are ignored.
func Adjacency(g *Graph) map[string][]string {
	adj := make(map[string][]string, g.Len())
	seen := make(map[[2]string]bool)

	link := func(a, b string) {
		if seen[[2]string{a, b}] {
			return
		}
		seen[[2]string{a, b}] = true
		adj[a] = append(adj[a], b)
	}

	for _, n := range g.Nodes() {
		if _, ok := adj[n.Name]; !ok {
			adj[n.Name] = nil
		}
		for _, e := range n.Edges {
			if !g.Has(e.Target) {
				continue
			}
			link(n.Name, e.Target)
			link(e.Target, n.Name)
		}
	}

	return adj
}

// Assign clears any previous coloring, then colors every node of g. Seeds are
// taken in insertion order, so a run is reproducible for a given palette.
// Every node ends with a color and Visited set.
func (a *ColorAssigner) Assign(g *Graph) []Component {
	for _, n := range g.Nodes() {
		n.Color = ""
		n.Visited = false
	}

	adj := Adjacency(g)
	var components []Component

	for _, seed := range g.Nodes() {
		if seed.Color != "" {
			continue
		}

		color := a.palette.Next()
		comp := Component{Color: color}

		stack := []*Node{seed}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if n.Visited && n.Color == color {
				continue
			}
			n.Color = color
			n.Visited = true
			comp.Members = append(comp.Members, n.Name)

			for _, name := range adj[n.Name] {
				next := g.nodes[name]
				if next.Visited && next.Color == color {
					continue
				}
				stack = append(stack, next)
			}
		}

		components = append(components, comp)
	}

	return components
}
