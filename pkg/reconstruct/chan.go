package reconstruct

import (
	"math"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// listDistances returns the aggregated positional distance between every
// pair of items that share a list; pairs that never share one are +Inf.
// Positions are first appearances.
func listDistances(corpus walk.WalkList, numNodes int, followType string) [][]float64 {
	sum := make([][]float64, numNodes)
	num := make([][]int, numNodes)
	agg := make([][]float64, numNodes)
	for i := range agg {
		sum[i] = make([]float64, numNodes)
		num[i] = make([]int, numNodes)
		agg[i] = make([]float64, numNodes)
	}

	for _, list := range corpus {
		unique := walk.FirstVisits(list)
		for a := range unique {
			for b := a + 1; b < len(unique); b++ {
				d := float64(b - a)
				for _, p := range [2][2]int{{unique[a], unique[b]}, {unique[b], unique[a]}} {
					i, j := p[0], p[1]
					switch {
					case num[i][j] == 0:
						agg[i][j] = d
					case followType == FollowMin:
						agg[i][j] = math.Min(agg[i][j], d)
					case followType == FollowMax:
						agg[i][j] = math.Max(agg[i][j], d)
					}
					sum[i][j] += d
					num[i][j]++
				}
			}
		}
	}

	for i := range agg {
		for j := range agg[i] {
			switch {
			case i == j:
				agg[i][j] = 0
			case num[i][j] == 0:
				agg[i][j] = math.Inf(1)
			case followType == FollowAvg:
				agg[i][j] = sum[i][j] / float64(num[i][j])
			}
		}
	}
	return agg
}

// ChanGraph builds the Pathfinder network PFNET(r=inf, q=n-1) over list
// distances: a link survives when no indirect path has a smaller maximum step.
func ChanGraph(corpus walk.WalkList, numNodes int, fit Fitinfo) *network.Graph {
	dist := listDistances(corpus, numNodes, fit.FollowType)

	minimax := make([][]float64, numNodes)
	for i := range dist {
		minimax[i] = append([]float64(nil), dist[i]...)
	}
	for k := 0; k < numNodes; k++ {
		for i := 0; i < numNodes; i++ {
			if math.IsInf(minimax[i][k], 1) {
				continue
			}
			for j := 0; j < numNodes; j++ {
				if via := math.Max(minimax[i][k], minimax[k][j]); via < minimax[i][j] {
					minimax[i][j] = via
				}
			}
		}
	}

	g := network.NewGraph(numNodes, fit.Directed)
	for i := 0; i < numNodes; i++ {
		for j := 0; j < numNodes; j++ {
			if i == j || math.IsInf(dist[i][j], 1) {
				continue
			}
			if dist[i][j] <= minimax[i][j] {
				link(g, i, j)
			}
		}
	}
	return g
}
