package reconstruct

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mathext"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
)

// PairPrior is the pooled evidence for one item pair
type PairPrior struct {
	A, B   string
	Edges  int // participants whose graph has the edge
	Trials int // participants who produced both items
	Prob   float64
}

type pairKey struct{ a, b string }

// Prior is an edge prior keyed by item labels. Pairs absent from the prior
// get Default, the probability implied by zero observations.
type Prior struct {
	Directed bool
	Default  float64
	pairs    map[pairKey]PairPrior
}

func (p *Prior) key(a, b string) pairKey {
	if !p.Directed && b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Prob returns the prior probability of an edge between labels a and b
func (p *Prior) Prob(a, b string) float64 {
	if pp, ok := p.pairs[p.key(a, b)]; ok {
		return pp.Prob
	}
	return p.Default
}

// Len is the number of pairs with their own estimate
func (p *Prior) Len() int { return len(p.pairs) }

// Pairs returns every estimated pair sorted by label
func (p *Prior) Pairs() []PairPrior {
	out := make([]PairPrior, 0, len(p.pairs))
	for _, pp := range p.pairs {
		out = append(out, pp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// edgeProbability is the posterior mean edge probability after k edges in n
// trials. The zero-inflated variant treats a pair that was never observed as
// possibly structurally absent with probability zibb_p.
func edgeProbability(k, n int, fit Fitinfo) float64 {
	a, b := fit.PriorA, fit.PriorB
	mean := (float64(k) + a) / (float64(n) + a + b)
	if fit.PriorMethod != PriorZIBB || k > 0 {
		return mean
	}

	p := fit.ZIBBP
	// beta-binomial probability of zero successes in n trials
	bb0 := math.Exp(mathext.Lbeta(a, float64(n)+b) - mathext.Lbeta(a, b))
	notZero := (1 - p) * bb0 / (p + (1-p)*bb0)
	return notZero * mean
}

// GenGraphPrior pools participant graphs (each in its own local index space,
// labelled by items[i]) into a Prior. Only pairs with at least mincount
// supporting participants get their own estimate.
func GenGraphPrior(graphs []*network.Graph, items []*network.Items, fit Fitinfo, mincount int) (*Prior, error) {
	if len(graphs) != len(items) {
		return nil, fmt.Errorf("%d graphs but %d item dictionaries", len(graphs), len(items))
	}
	if mincount < 0 {
		return nil, fmt.Errorf("mincount %d must be non-negative", mincount)
	}

	prior := &Prior{Directed: fit.Directed, pairs: make(map[pairKey]PairPrior)}
	counts := make(map[pairKey][2]int)

	for gi, g := range graphs {
		if g == nil {
			return nil, fmt.Errorf("graph %d is nil", gi)
		}
		if g.NumNodes != items[gi].Len() {
			return nil, fmt.Errorf("graph %d has %d nodes but %d items", gi, g.NumNodes, items[gi].Len())
		}
		labels := items[gi].Labels()
		for i := 0; i < g.NumNodes; i++ {
			for j := 0; j < g.NumNodes; j++ {
				if i == j || (!fit.Directed && j < i) {
					continue
				}
				edge := g.HasEdge(i, j)
				if !fit.Directed {
					edge = edge || g.HasEdge(j, i)
				}
				k := prior.key(labels[i], labels[j])
				c := counts[k]
				if edge {
					c[0]++
				}
				c[1]++
				counts[k] = c
			}
		}
	}

	for k, c := range counts {
		if c[0] < mincount {
			continue
		}
		prior.pairs[k] = PairPrior{A: k.a, B: k.b, Edges: c[0], Trials: c[1], Prob: edgeProbability(c[0], c[1], fit)}
	}
	prior.Default = edgeProbability(0, 0, fit)
	return prior, nil
}

// PriorToGraph keeps every global pair whose prior exceeds fit.EdgeThreshold
func PriorToGraph(prior *Prior, global *network.Items, fit Fitinfo) (*network.Graph, error) {
	if prior == nil {
		return nil, errors.New("nil prior")
	}
	labels := global.Labels()
	g := network.NewGraph(len(labels), prior.Directed)
	for i := range labels {
		for j := range labels {
			if i == j || (!prior.Directed && j < i) {
				continue
			}
			if prior.Prob(labels[i], labels[j]) > fit.EdgeThreshold {
				if err := g.SetEdge(i, j, 1); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

// logPrior is the log probability of a local graph under a prior
func logPrior(g *network.Graph, labels []string, prior *Prior) float64 {
	var total float64
	for i := 0; i < g.NumNodes; i++ {
		for j := 0; j < g.NumNodes; j++ {
			if i == j || (!prior.Directed && j < i) {
				continue
			}
			total += logEdgePrior(prior.Prob(labels[i], labels[j]), g.HasEdge(i, j))
		}
	}
	return total
}

func logEdgePrior(prob float64, present bool) float64 {
	prob = clamp(prob)
	if present {
		return math.Log(prob)
	}
	return math.Log(1 - prob)
}
