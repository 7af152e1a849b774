package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

const (
	probEpsilon = 1e-10
	improvement = 1e-9
)

func clamp(p float64) float64 {
	return math.Min(math.Max(p, probEpsilon), 1-probEpsilon)
}

// walkModel is the part of the generator configuration the likelihood
// depends on
type walkModel struct {
	jump     float64
	jumpType walk.JumpType
}

func newWalkModel(cfg walk.Config) walkModel {
	return walkModel{jump: cfg.Jump, jumpType: cfg.JumpType}
}

// transitions returns the one-step transition matrix of a random walk with
// restarts on g. Nodes without outgoing weight always restart.
func (m walkModel) transitions(g *network.Graph) *mat.Dense {
	n := g.NumNodes
	restart := make([]float64, n)
	var stationary []float64
	if m.jumpType == walk.JumpStationary {
		stationary = network.StationaryDistribution(g)
	}
	for i := range restart {
		if stationary != nil {
			restart[i] = stationary[i]
		} else {
			restart[i] = 1 / float64(n)
		}
	}

	t := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		deg := g.Degree(i)
		for j := 0; j < n; j++ {
			if deg == 0 {
				t.Set(i, j, restart[j])
				continue
			}
			t.Set(i, j, (1-m.jump)*g.Weight(i, j)/deg+m.jump*restart[j])
		}
	}
	return t
}

// logLikelihood is the log probability of observing each list as the
// first-visit sequence of a censored random walk on g, conditioned on the
// first item. It returns -Inf when some list is impossible.
func (m walkModel) logLikelihood(g *network.Graph, lists walk.WalkList) float64 {
	t := m.transitions(g)
	var ll float64
	for _, list := range lists {
		unique := walk.FirstVisits(list)
		for k := 0; k+1 < len(unique); k++ {
			p := absorption(t, unique[:k+1], unique[k+1])
			if !(p > 0) {
				return math.Inf(-1)
			}
			ll += math.Log(math.Min(p, 1))
		}
	}
	return ll
}

// absorption is the probability that a walk started at the last visited node,
// moving freely among visited nodes, first leaves them by entering target
func absorption(t *mat.Dense, visited []int, target int) float64 {
	n := len(visited)
	a := mat.NewDense(n, n, nil)
	r := mat.NewVecDense(n, nil)
	for i, vi := range visited {
		for j, vj := range visited {
			v := -t.At(vi, vj)
			if i == j {
				v++
			}
			a.Set(i, j, v)
		}
		r.SetVec(i, t.At(vi, target))
	}

	var y mat.VecDense
	if err := y.SolveVec(a, r); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return 0
		}
	}
	p := y.AtVec(n - 1)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// search is a greedy edge-toggling maximisation of likelihood plus prior
type search struct {
	ctx    context.Context
	model  walkModel
	lists  walk.WalkList
	fit    Fitinfo
	prior  *Prior
	labels []string

	graph   *network.Graph
	ll      float64
	score   float64
	history []Step
}

func newSearch(ctx context.Context, model walkModel, lists walk.WalkList, start *network.Graph, fit Fitinfo, prior *Prior, labels []string) (*search, error) {
	s := &search{ctx: ctx, model: model, lists: lists, fit: fit, prior: prior, labels: labels, graph: start}
	s.ll, s.score = s.evaluate(start)
	if math.IsInf(s.ll, -1) {
		return nil, errors.New("start graph cannot produce the observed lists")
	}
	return s, nil
}

func (s *search) evaluate(g *network.Graph) (ll, score float64) {
	ll = s.model.logLikelihood(g, s.lists)
	score = ll
	if s.prior != nil && !math.IsInf(ll, -1) {
		score += logPrior(g, s.labels, s.prior)
	}
	return ll, score
}

// toggle tries flipping one edge and keeps the change if it improves the score
func (s *search) toggle(phase string, i, j int, add bool) bool {
	if s.graph.HasEdge(i, j) == add {
		return false
	}

	cand := s.graph.Clone()
	if add {
		_ = cand.SetEdge(i, j, 1)
	} else {
		_ = cand.RemoveEdge(i, j)
	}

	ll, score := s.evaluate(cand)
	if math.IsInf(ll, -1) || score <= s.score+improvement {
		return false
	}

	s.graph, s.ll, s.score = cand, ll, score
	if s.fit.Record {
		s.history = append(s.history, Step{Phase: phase, From: i, To: j, Added: add, LogLikelihood: ll})
	}
	return true
}

func (s *search) pairs(keep func(i, j int) bool) [][2]int {
	var out [][2]int
	n := s.graph.NumNodes
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || (!s.graph.Directed && j < i) {
				continue
			}
			if keep(i, j) {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}

func (s *search) connected(i, j int) bool {
	return s.graph.HasEdge(i, j) || s.graph.HasEdge(j, i)
}

func (s *search) sharesNeighbor(i, j int) bool {
	for k := 0; k < s.graph.NumNodes; k++ {
		if k != i && k != j && s.connected(i, k) && s.connected(k, j) {
			return true
		}
	}
	return false
}

func (s *search) phase(name string, candidates [][2]int, add bool, bound Bound) (bool, error) {
	changed := false
	for used, c := range candidates {
		if !bound.Allows(used) {
			break
		}
		if err := s.ctx.Err(); err != nil {
			return changed, err
		}
		if s.toggle(name, c[0], c[1], add) {
			changed = true
		}
	}
	return changed, nil
}

// run cycles prune, triangle and other phases until a full cycle changes nothing
func (s *search) run() error {
	for {
		changed, err := s.phase("prune", s.pairs(s.graph.HasEdge), false, s.fit.PruneLimit)
		if err != nil {
			return err
		}
		if changed {
			continue
		}

		triangles := s.pairs(func(i, j int) bool { return !s.graph.HasEdge(i, j) && s.sharesNeighbor(i, j) })
		changed, err = s.phase("triangle", triangles, true, s.fit.TriangleLimit)
		if err != nil {
			return err
		}
		if changed {
			continue
		}

		others := s.pairs(func(i, j int) bool { return !s.graph.HasEdge(i, j) && !s.sharesNeighbor(i, j) })
		changed, err = s.phase("other", others, true, s.fit.OtherLimit)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
}

// fitUInvite fits a U-INVITE graph on a corpus whose items are exactly
// [0,numNodes). prior and labels are nil for a flat fit.
func fitUInvite(ctx context.Context, model walkModel, corpus walk.WalkList, numNodes int, start *network.Graph, fit Fitinfo, prior *Prior, labels []string) (Result, error) {
	if start == nil {
		start = startGraph(corpus, numNodes, fit)
	}
	s, err := newSearch(ctx, model, corpus, start, fit, prior, labels)
	if err != nil {
		return Result{}, err
	}
	if err := s.run(); err != nil {
		return Result{}, fmt.Errorf("u-invite search: %w", err)
	}
	return Result{Graph: s.graph, LogLikelihood: s.ll, HasLikelihood: true, History: s.history}, nil
}

// UInvite fits a flat U-INVITE graph over numNodes global nodes. The search
// runs over the items present in the corpus; the rest stay isolated.
func UInvite(ctx context.Context, gen walk.Config, corpus walk.WalkList, numNodes int, fit Fitinfo) (Result, error) {
	if err := checkCorpus(corpus, numNodes); err != nil {
		return Result{}, err
	}
	local, ids := compress(corpus)
	if len(ids) == 0 {
		return Result{Graph: network.NewGraph(numNodes, fit.Directed), HasLikelihood: true}, nil
	}

	res, err := fitUInvite(ctx, newWalkModel(gen), local, len(ids), nil, fit, nil, nil)
	if err != nil {
		return Result{}, err
	}
	for i := range res.History {
		res.History[i].From = ids[res.History[i].From]
		res.History[i].To = ids[res.History[i].To]
	}
	res.Graph = expand(res.Graph, ids, numNodes)
	return res, nil
}
