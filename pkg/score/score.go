// Package score compares a reconstructed graph with the ground truth.
package score

import (
	"fmt"
	"math"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
)

// SDT holds the signal-detection confusion counts over unordered node pairs
type SDT struct {
	Hit              int `json:"hit"`
	Miss             int `json:"miss"`
	FalseAlarm       int `json:"falsealarms"`
	CorrectRejection int `json:"correctrejections"`
}

// Total is the number of classified pairs
func (s SDT) Total() int { return s.Hit + s.Miss + s.FalseAlarm + s.CorrectRejection }

// HitRate is hits over ground-truth edges; NaN when the truth has none
func (s SDT) HitRate() float64 {
	return ratio(s.Hit, s.Hit+s.Miss)
}

// FalseAlarmRate is false alarms over ground-truth non-edges
func (s SDT) FalseAlarmRate() float64 {
	return ratio(s.FalseAlarm, s.FalseAlarm+s.CorrectRejection)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}

// Record is one row of the results report
type Record struct {
	Method    string
	SimNum    int
	SSNum     int
	SDT       SDT
	Cost      float64
	StartSeed int64
}

// Scorer classifies node pairs. An edge is present when its weight exceeds
// Threshold in either direction.
type Scorer struct {
	Threshold float64
}

// Score compares reconstructed against truth over truth's node set. Nodes
// truth has but reconstructed lacks count as unconnected.
func (s Scorer) Score(reconstructed, truth *network.Graph) (SDT, float64, error) {
	if reconstructed == nil || truth == nil {
		return SDT{}, 0, fmt.Errorf("score: nil graph")
	}
	if reconstructed.NumNodes > truth.NumNodes {
		return SDT{}, 0, &simerr.DimensionMismatchError{Reconstructed: reconstructed.NumNodes, Truth: truth.NumNodes}
	}

	n := truth.NumNodes
	var sdt SDT
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			inTruth := s.present(truth, i, j)
			inRecon := s.present(reconstructed, i, j)
			switch {
			case inTruth && inRecon:
				sdt.Hit++
			case inTruth:
				sdt.Miss++
			case inRecon:
				sdt.FalseAlarm++
			default:
				sdt.CorrectRejection++
			}
		}
	}
	return sdt, Cost(reconstructed, truth), nil
}

func (s Scorer) present(g *network.Graph, i, j int) bool {
	return g.Weight(i, j) > s.Threshold || g.Weight(j, i) > s.Threshold
}

// Cost is the summed absolute weight difference over ordered pairs of
// distinct nodes of truth, halved when truth is undirected so every edge
// counts once. Weight reads outside a graph are zero.
func Cost(reconstructed, truth *network.Graph) float64 {
	n := truth.NumNodes
	var cost float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				cost += math.Abs(reconstructed.Weight(i, j) - truth.Weight(i, j))
			}
		}
	}
	if !truth.Directed {
		cost /= 2
	}
	return cost
}
