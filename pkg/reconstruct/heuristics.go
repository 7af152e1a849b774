package reconstruct

import (
	"fmt"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// checkCorpus verifies every item is a node of an n-node graph
func checkCorpus(corpus walk.WalkList, n int) error {
	if n <= 0 {
		return fmt.Errorf("graph must have at least one node, got %d", n)
	}
	for i, list := range corpus {
		for j, item := range list {
			if item < 0 || item >= n {
				return fmt.Errorf("list %d position %d: item %d outside [0,%d)", i, j, item, n)
			}
		}
	}
	return nil
}

func link(g *network.Graph, from, to int) {
	if from == to {
		return
	}
	// indices were checked by checkCorpus
	_ = g.SetEdge(from, to, 1)
}

// NRW links every pair of consecutive items
func NRW(corpus walk.WalkList, numNodes int, directed bool) *network.Graph {
	g := network.NewGraph(numNodes, directed)
	for _, list := range corpus {
		for i := 1; i < len(list); i++ {
			link(g, list[i-1], list[i])
		}
	}
	return g
}

// FirstEdge links the first two items of every list
func FirstEdge(corpus walk.WalkList, numNodes int, directed bool) *network.Graph {
	g := network.NewGraph(numNodes, directed)
	for _, list := range corpus {
		if len(list) >= 2 {
			link(g, list[0], list[1])
		}
	}
	return g
}

// GoniGraph links items co-occurring within goni_size positions of each other
// in at least goni_threshold places across the corpus
func GoniGraph(corpus walk.WalkList, numNodes int, fit Fitinfo) *network.Graph {
	type pair struct{ a, b int }
	counts := make(map[pair]int)
	for _, list := range corpus {
		for i := range list {
			for j := i + 1; j < len(list) && j-i <= fit.GoniSize; j++ {
				a, b := list[i], list[j]
				if a == b {
					continue
				}
				if !fit.Directed && b < a {
					a, b = b, a
				}
				counts[pair{a, b}]++
			}
		}
	}

	g := network.NewGraph(numNodes, fit.Directed)
	for p, c := range counts {
		if c >= fit.GoniThreshold {
			link(g, p.a, p.b)
		}
	}
	return g
}

// startGraph builds the initial U-INVITE graph. goni_valid adds the
// consecutive-item edges to the Goni graph so every list stays possible.
func startGraph(corpus walk.WalkList, numNodes int, fit Fitinfo) *network.Graph {
	g := NRW(corpus, numNodes, fit.Directed)
	if fit.StartGraph != StartGoniValid {
		return g
	}
	for _, e := range GoniGraph(corpus, numNodes, fit).Edges() {
		link(g, e.From, e.To)
	}
	return g
}

// compress relabels the items present in corpus to [0,k) in first-appearance
// order and returns the relabelled corpus with the original ids
func compress(corpus walk.WalkList) (walk.WalkList, []int) {
	index := make(map[int]int)
	var ids []int
	out := make(walk.WalkList, len(corpus))
	for i, list := range corpus {
		out[i] = make([]int, len(list))
		for j, item := range list {
			idx, ok := index[item]
			if !ok {
				idx = len(ids)
				index[item] = idx
				ids = append(ids, item)
			}
			out[i][j] = idx
		}
	}
	return out, ids
}

// expand maps a graph over compressed ids back onto numNodes nodes
func expand(g *network.Graph, ids []int, numNodes int) *network.Graph {
	out := network.NewGraph(numNodes, g.Directed)
	for _, e := range g.Edges() {
		_ = out.SetEdge(ids[e.From], ids[e.To], e.Weight)
	}
	return out
}
