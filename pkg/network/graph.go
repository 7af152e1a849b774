package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Graph represents a weighted graph over contiguous node indices [0, NumNodes).
// An absent edge has weight 0. Undirected graphs keep the weight matrix symmetric.
type Graph struct {
	NumNodes int  `json:"num_nodes"`
	Directed bool `json:"directed"`

	weights *mat.Dense // nil when NumNodes == 0
}

// Edge is a weighted edge between two node indices
type Edge struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
}

// NewGraph creates an edgeless graph with n nodes
func NewGraph(numNodes int, directed bool) *Graph {
	g := &Graph{NumNodes: numNodes, Directed: directed}
	if numNodes > 0 {
		g.weights = mat.NewDense(numNodes, numNodes, nil)
	}
	return g
}

// NewGraphFromMatrix builds a graph from a square non-negative weight matrix.
// Undirected graphs require a symmetric matrix.
func NewGraphFromMatrix(m mat.Matrix, directed bool) (*Graph, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("weight matrix is not square: %dx%d", r, c)
	}

	g := NewGraph(r, directed)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w := m.At(i, j)
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("invalid weight %v at (%d,%d)", w, i, j)
			}
			if !directed && math.Abs(w-m.At(j, i)) > 1e-9 {
				return nil, fmt.Errorf("undirected graph is not symmetric at (%d,%d)", i, j)
			}
			if w > 0 {
				g.weights.Set(i, j, w)
			}
		}
	}
	return g, nil
}

// SetEdge sets the weight of edge u->v (and v->u for undirected graphs).
// A zero weight removes the edge.
func (g *Graph) SetEdge(u, v int, weight float64) error {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return fmt.Errorf("node index out of range: u=%d, v=%d, numNodes=%d", u, v, g.NumNodes)
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("edge weight must be finite and non-negative: %v", weight)
	}

	g.weights.Set(u, v, weight)
	if !g.Directed {
		g.weights.Set(v, u, weight)
	}
	return nil
}

// RemoveEdge removes edge u->v (and v->u for undirected graphs)
func (g *Graph) RemoveEdge(u, v int) error {
	return g.SetEdge(u, v, 0)
}

// Weight returns the weight of edge u->v, 0 when absent or out of range
func (g *Graph) Weight(u, v int) float64 {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return 0
	}
	return g.weights.At(u, v)
}

// HasEdge reports whether u->v has positive weight
func (g *Graph) HasEdge(u, v int) bool {
	return g.Weight(u, v) > 0
}

// Neighbors returns the out-neighbors of a node in ascending order with their weights
func (g *Graph) Neighbors(node int) ([]int, []float64) {
	if node < 0 || node >= g.NumNodes {
		return nil, nil
	}

	var neighbors []int
	var weights []float64
	for j := 0; j < g.NumNodes; j++ {
		if w := g.weights.At(node, j); w > 0 {
			neighbors = append(neighbors, j)
			weights = append(weights, w)
		}
	}
	return neighbors, weights
}

// Degree returns the weighted out-degree of a node
func (g *Graph) Degree(node int) float64 {
	if node < 0 || node >= g.NumNodes {
		return 0
	}
	return mat.Sum(g.weights.RowView(node))
}

// TotalWeight returns the sum of edge weights, counting undirected edges once
func (g *Graph) TotalWeight() float64 {
	total := 0.0
	for _, e := range g.Edges() {
		total += e.Weight
	}
	return total
}

// NumEdges returns the number of edges, counting undirected edges once
func (g *Graph) NumEdges() int {
	return len(g.Edges())
}

// Edges lists all edges in row-major order. Undirected edges appear once with From <= To.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for i := 0; i < g.NumNodes; i++ {
		start := 0
		if !g.Directed {
			start = i
		}
		for j := start; j < g.NumNodes; j++ {
			if w := g.weights.At(i, j); w > 0 {
				edges = append(edges, Edge{From: i, To: j, Weight: w})
			}
		}
	}
	return edges
}

// Matrix returns a copy of the weight matrix
func (g *Graph) Matrix() *mat.Dense {
	if g.weights == nil {
		return nil
	}
	return mat.DenseCopyOf(g.weights)
}

// Clone creates a deep copy of the graph
func (g *Graph) Clone() *Graph {
	clone := &Graph{NumNodes: g.NumNodes, Directed: g.Directed}
	if g.weights != nil {
		clone.weights = mat.DenseCopyOf(g.weights)
	}
	return clone
}

// Equal reports whether two graphs have the same size, direction and weights
func (g *Graph) Equal(other *Graph) bool {
	if other == nil || g.NumNodes != other.NumNodes || g.Directed != other.Directed {
		return false
	}
	if g.NumNodes == 0 {
		return true
	}
	return mat.Equal(g.weights, other.weights)
}

// Binary returns a copy where every present edge has weight 1
func (g *Graph) Binary() *Graph {
	b := NewGraph(g.NumNodes, g.Directed)
	for i := 0; i < g.NumNodes; i++ {
		for j := 0; j < g.NumNodes; j++ {
			if g.weights.At(i, j) > 0 {
				b.weights.Set(i, j, 1)
			}
		}
	}
	return b
}

// Validate checks graph consistency
func (g *Graph) Validate() error {
	if g.NumNodes <= 0 {
		return fmt.Errorf("graph must have positive number of nodes")
	}
	r, c := g.weights.Dims()
	if r != g.NumNodes || c != g.NumNodes {
		return fmt.Errorf("weight matrix is %dx%d, expected %dx%d", r, c, g.NumNodes, g.NumNodes)
	}

	for i := 0; i < g.NumNodes; i++ {
		for j := 0; j < g.NumNodes; j++ {
			w := g.weights.At(i, j)
			if w < 0 {
				return fmt.Errorf("negative weight %f for edge %d-%d", w, i, j)
			}
			if !g.Directed && w != g.weights.At(j, i) {
				return fmt.Errorf("graph is not symmetric: edge %d->%d", i, j)
			}
		}
	}
	return nil
}
