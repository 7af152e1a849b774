package reconstruct

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// occurrences returns, per item, a 0/1 vector over lists marking the lists
// the item appears in
func occurrences(corpus walk.WalkList, numNodes int) [][]float64 {
	occ := make([][]float64, numNodes)
	for i := range occ {
		occ[i] = make([]float64, len(corpus))
	}
	for l, list := range corpus {
		for _, item := range list {
			occ[item][l] = 1
		}
	}
	return occ
}

func varies(v []float64) bool {
	for _, x := range v {
		if x != v[0] {
			return true
		}
	}
	return false
}

// KenettGraph correlates item occurrence across lists and keeps the
// maximum-correlation spanning forest over positively correlated pairs.
// Items that occur in every list or in none carry no signal and stay isolated.
func KenettGraph(corpus walk.WalkList, numNodes int) *network.Graph {
	occ := occurrences(corpus, numNodes)

	corr := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := 0; i < numNodes; i++ {
		corr.AddNode(simple.Node(i))
	}
	for i := 0; i < numNodes; i++ {
		if !varies(occ[i]) {
			continue
		}
		for j := i + 1; j < numNodes; j++ {
			if !varies(occ[j]) {
				continue
			}
			r := stat.Correlation(occ[i], occ[j], nil)
			if !(r > 0) {
				continue
			}
			// correlation distance: highest correlation is the shortest edge
			d := math.Sqrt(2 * (1 - math.Min(r, 1)))
			corr.SetWeightedEdge(corr.NewWeightedEdge(simple.Node(i), simple.Node(j), d))
		}
	}

	forest := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	path.Kruskal(forest, corr)

	g := network.NewGraph(numNodes, false)
	edges := forest.Edges()
	for edges.Next() {
		e := edges.Edge()
		link(g, int(e.From().ID()), int(e.To().ID()))
	}
	return g
}
