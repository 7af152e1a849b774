package network

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	gonumnet "gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// stationaryDamping keeps PageRank close to the pure random-walk stationary
// distribution while still converging on graphs with dangling nodes.
const stationaryDamping = 0.99

// ToGonum converts a graph to a gonum weighted graph. Node IDs equal node
// indices; self-loops are dropped because gonum simple graphs reject them.
func ToGonum(g *Graph) graph.Weighted {
	if g.Directed {
		dg := simple.NewWeightedDirectedGraph(0, 0)
		for i := 0; i < g.NumNodes; i++ {
			dg.AddNode(simple.Node(int64(i)))
		}
		for _, e := range g.Edges() {
			if e.From == e.To {
				continue
			}
			dg.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(int64(e.From)), T: simple.Node(int64(e.To)), W: e.Weight})
		}
		return dg
	}

	ug := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < g.NumNodes; i++ {
		ug.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		if e.From == e.To {
			continue
		}
		ug.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(int64(e.From)), T: simple.Node(int64(e.To)), W: e.Weight})
	}
	return ug
}

// StationaryDistribution returns the long-run visit probability of each node
// for a random walk on g. Undirected graphs use the exact degree-proportional
// distribution; directed graphs use weighted PageRank. Returns nil when the
// graph has no edges.
func StationaryDistribution(g *Graph) []float64 {
	if g.NumNodes == 0 || g.TotalWeight() == 0 {
		return nil
	}

	dist := make([]float64, g.NumNodes)
	if !g.Directed {
		total := 0.0
		for i := 0; i < g.NumNodes; i++ {
			dist[i] = g.Degree(i)
			total += dist[i]
		}
		for i := range dist {
			dist[i] /= total
		}
		return dist
	}

	dg := ToGonum(g).(graph.Directed)
	ranks := gonumnet.PageRank(dg, stationaryDamping, 1e-10)
	for id, score := range ranks {
		dist[id] = score
	}
	return dist
}

// Components returns the weakly connected components of g, each sorted
// ascending, ordered by their smallest node.
func Components(g *Graph) [][]int {
	ug := simple.NewUndirectedGraph()
	for i := 0; i < g.NumNodes; i++ {
		ug.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		if e.From == e.To || ug.HasEdgeBetween(int64(e.From), int64(e.To)) {
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(int64(e.From)), T: simple.Node(int64(e.To))})
	}

	var components [][]int
	for _, cc := range topo.ConnectedComponents(ug) {
		nodes := make([]int, len(cc))
		for i, n := range cc {
			nodes[i] = int(n.ID())
		}
		sort.Ints(nodes)
		components = append(components, nodes)
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
	return components
}
