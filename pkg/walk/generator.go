package walk

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
)

// pcgStream is the fixed PCG stream selector; the seed alone picks the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// WalkList holds the ordered lists (trials) of one participant
type WalkList [][]int

// Generate simulates cfg.NumX censored random walks on g. List i draws from
// its own random stream seeded with seed+i, so the seeds consumed are exactly
// [seed, seed+NumX) and the returned next seed is seed+NumX.
//
// Per step the random draws happen in a fixed order: jump, jump target or
// priming or edge choice, censor fault, emission fault, spurious node.
// When both faults trigger on one step the true node is suppressed and the
// spurious node is still emitted.
func Generate(g *network.Graph, cfg Config, seed int64) (WalkList, int64, error) {
	if g == nil || g.NumNodes == 0 {
		return nil, seed, &simerr.GraphError{Reason: "graph has no nodes"}
	}
	if err := cfg.Validate(g.NumNodes); err != nil {
		return nil, seed, err
	}
	if g.TotalWeight() == 0 && cfg.Jump < 1 {
		return nil, seed, &simerr.GraphError{Reason: fmt.Sprintf("graph has zero total edge weight and jump=%g < 1", cfg.Jump)}
	}

	w := newWalker(g, cfg)
	lists := make(WalkList, cfg.NumX)
	for i := 0; i < cfg.NumX; i++ {
		list, err := w.walk(seed + int64(i))
		if err != nil {
			return nil, seed, err
		}
		lists[i] = list
	}
	return lists, seed + int64(cfg.NumX), nil
}

// walker holds the per-graph precomputation shared by every list
type walker struct {
	graph      *network.Graph
	cfg        Config
	neighbors  [][]int
	weights    [][]float64
	stationary []float64
	uniform    []float64
	maxSteps   int
}

func newWalker(g *network.Graph, cfg Config) *walker {
	w := &walker{
		graph:     g,
		cfg:       cfg,
		neighbors: make([][]int, g.NumNodes),
		weights:   make([][]float64, g.NumNodes),
		uniform:   make([]float64, g.NumNodes),
		maxSteps:  cfg.maxSteps(g.NumNodes),
	}
	for i := 0; i < g.NumNodes; i++ {
		w.neighbors[i], w.weights[i] = g.Neighbors(i)
		w.uniform[i] = 1
	}

	w.stationary = network.StationaryDistribution(g)
	if w.stationary == nil {
		w.stationary = w.uniform
	}
	return w
}

// listState is the mutable state of one list being generated
type listState struct {
	rng      *rand.Rand
	src      rand.Source
	steps    []*distuv.Categorical
	jumps    distuv.Categorical
	trim     int
	emitted  []int
	seen     []bool
	censored bool
}

func (w *walker) walk(seed int64) ([]int, error) {
	src := rand.NewPCG(uint64(seed), pcgStream)
	st := &listState{
		rng:     rand.New(src),
		src:     src,
		steps:   make([]*distuv.Categorical, w.graph.NumNodes),
		jumps:   distuv.NewCategorical(w.jumpWeights(), src),
		trim:    w.cfg.Trim,
		emitted: make([]int, 0, w.cfg.Trim),
		seen:    make([]bool, w.graph.NumNodes),
	}

	current := w.start(st)
	previous := -1
	w.observe(st, current)

	for step := 0; len(st.emitted) < w.cfg.Trim; step++ {
		if step >= w.maxSteps {
			return nil, &simerr.GraphError{Reason: fmt.Sprintf("walk emitted %d of %d items after %d steps", len(st.emitted), w.cfg.Trim, w.maxSteps)}
		}

		next := w.move(st, current, previous)
		previous, current = current, next
		w.observe(st, current)
	}
	return st.emitted, nil
}

func (w *walker) start(st *listState) int {
	switch w.cfg.Start.Kind {
	case StartNode:
		return w.cfg.Start.Node
	case StartUniform:
		return st.rng.IntN(w.graph.NumNodes)
	default:
		return int(distuv.NewCategorical(w.stationary, st.src).Rand())
	}
}

func (w *walker) jumpWeights() []float64 {
	if w.cfg.JumpType == JumpUniform {
		return w.uniform
	}
	return w.stationary
}

// move performs one internal step from current and returns the new node
func (w *walker) move(st *listState, current, previous int) int {
	jump := w.cfg.Jump
	if st.censored && w.cfg.JumpOnCensored != nil {
		jump = *w.cfg.JumpOnCensored
	}

	neighbors := w.neighbors[current]
	if st.rng.Float64() < jump || len(neighbors) == 0 {
		return int(st.jumps.Rand())
	}

	if w.cfg.Priming > 0 && previous >= 0 && previous != current && w.graph.HasEdge(current, previous) {
		if st.rng.Float64() < w.cfg.Priming {
			return previous
		}
	}

	if st.steps[current] == nil {
		dist := distuv.NewCategorical(w.weights[current], st.src)
		st.steps[current] = &dist
	}
	return neighbors[int(st.steps[current].Rand())]
}

// observe decides what the visit of node emits
func (w *walker) observe(st *listState, node int) {
	st.censored = false
	switch {
	case st.rng.Float64() < w.cfg.CensorFault:
		st.censored = true
	case w.cfg.CensorRepeats && st.seen[node]:
		st.censored = true
	default:
		st.emit(node)
	}

	if len(st.emitted) < w.cfg.Trim && st.rng.Float64() < w.cfg.EmissionFault {
		st.emit(st.rng.IntN(w.graph.NumNodes))
	}
}

func (st *listState) emit(node int) {
	if len(st.emitted) >= st.trim {
		return
	}
	st.emitted = append(st.emitted, node)
	st.seen[node] = true
}
