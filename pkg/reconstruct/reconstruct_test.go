package reconstruct

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/participant"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

func edgeSet(g *network.Graph) [][2]int {
	var out [][2]int
	for _, e := range g.Edges() {
		out = append(out, [2]int{e.From, e.To})
	}
	return out
}

func pathGraph(t *testing.T, n int) *network.Graph {
	t.Helper()
	g := network.NewGraph(n, false)
	for i := 1; i < n; i++ {
		require.NoError(t, g.SetEdge(i-1, i, 1))
	}
	return g
}

func TestParseMethod(t *testing.T) {
	for _, e := range Methods() {
		m, err := ParseMethod(e.Name)
		require.NoError(t, err)
		assert.Equal(t, e.Method, m)
		assert.Equal(t, e.Name, m.String())
	}

	_, err := ParseMethod("spreading")
	assert.ErrorIs(t, err, simerr.ErrConfig)

	methods, err := ParseMethods([]string{"rw", " FE ", "uinvite_hierarchical"})
	require.NoError(t, err)
	assert.Equal(t, []Method{NaiveRandomWalk, FirstEdge, UInviteHierarchical}, methods)

	_, err = ParseMethods([]string{"rw", "rw"})
	assert.ErrorIs(t, err, simerr.ErrConfig)
	_, err = ParseMethods(nil)
	assert.ErrorIs(t, err, simerr.ErrConfig)

	entry, ok := UInviteHierarchical.Lookup()
	require.True(t, ok)
	assert.Equal(t, participant.Local, entry.Space)
	assert.Equal(t, Hierarchical, entry.Shape)

	_, ok = Method(42).Lookup()
	assert.False(t, ok)
}

func TestBound(t *testing.T) {
	tests := []struct {
		value   string
		limited bool
		allows  int // largest used count still allowed, -1 for none
	}{
		{"inf", false, 0},
		{"none", false, 0},
		{"", false, 0},
		{"3", true, 2},
		{"0", true, -1},
	}
	for _, tt := range tests {
		b, err := ParseBound(tt.value)
		require.NoError(t, err, tt.value)
		assert.Equal(t, tt.limited, b.IsLimited(), tt.value)
		if !tt.limited {
			assert.True(t, b.Allows(1<<30))
			continue
		}
		assert.Equal(t, tt.allows >= 0, b.Allows(0), tt.value)
		assert.False(t, b.Allows(tt.allows+1), tt.value)
	}

	_, err := ParseBound("-1")
	assert.Error(t, err)
	_, err = ParseBound("lots")
	assert.Error(t, err)
	assert.Equal(t, "inf", Unbounded().String())
	assert.Equal(t, "7", Limit(7).String())
}

func TestFitinfoValidate(t *testing.T) {
	require.NoError(t, DefaultFitinfo().Validate())

	tests := []struct {
		name   string
		mutate func(*Fitinfo)
	}{
		{"start graph", func(f *Fitinfo) { f.StartGraph = "kenett" }},
		{"prior method", func(f *Fitinfo) { f.PriorMethod = "poisson" }},
		{"followtype", func(f *Fitinfo) { f.FollowType = "median" }},
		{"zibb_p", func(f *Fitinfo) { f.ZIBBP = 2 }},
		{"prior_a", func(f *Fitinfo) { f.PriorA = 0 }},
		{"prior_b", func(f *Fitinfo) { f.PriorB = -1 }},
		{"goni_size", func(f *Fitinfo) { f.GoniSize = 0 }},
		{"goni_threshold", func(f *Fitinfo) { f.GoniThreshold = 0 }},
		{"group_mincount", func(f *Fitinfo) { f.GroupMinCount = -1 }},
		{"max_passes", func(f *Fitinfo) { f.MaxPasses = 0 }},
		{"edge_threshold", func(f *Fitinfo) { f.EdgeThreshold = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fit := DefaultFitinfo()
			tt.mutate(&fit)
			assert.ErrorIs(t, fit.Validate(), simerr.ErrConfig)
		})
	}
}

func TestHeuristicGraphs(t *testing.T) {
	fit := DefaultFitinfo()

	nrw := NRW(walk.WalkList{{0, 1, 1, 2}, {2, 3}}, 5, false)
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 3}}, edgeSet(nrw))

	fe := FirstEdge(walk.WalkList{{0, 1, 2}, {3, 2}, {4}}, 5, false)
	assert.Equal(t, [][2]int{{0, 1}, {2, 3}}, edgeSet(fe))

	goni := GoniGraph(walk.WalkList{{0, 1, 2}, {0, 1, 3}}, 4, fit)
	assert.Equal(t, [][2]int{{0, 1}}, edgeSet(goni))

	fit.GoniThreshold = 1
	goni = GoniGraph(walk.WalkList{{0, 1, 2, 3}}, 4, fit)
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {1, 2}, {1, 3}, {2, 3}}, edgeSet(goni))
}

func TestStartGraph(t *testing.T) {
	fit := DefaultFitinfo()
	corpus := walk.WalkList{{0, 1, 2}, {0, 2, 1}}

	fit.StartGraph = StartNRW
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {1, 2}}, edgeSet(startGraph(corpus, 4, fit)))

	fit.StartGraph = StartGoniValid
	fit.GoniThreshold = 1
	fit.GoniSize = 3
	corpus = walk.WalkList{{0, 1, 2, 3}}
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, edgeSet(startGraph(corpus, 4, fit)))
}

func TestChanGraph(t *testing.T) {
	fit := DefaultFitinfo()
	g := ChanGraph(walk.WalkList{{0, 1, 2}}, 4, fit)
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, edgeSet(g))

	fit.FollowType = FollowMin
	g = ChanGraph(walk.WalkList{{0, 1, 2}, {0, 2}}, 3, fit)
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {1, 2}}, edgeSet(g))
}

func TestKenettGraph(t *testing.T) {
	corpus := walk.WalkList{{0, 1}, {0, 1}, {2, 3}, {2}}
	g := KenettGraph(corpus, 5)
	assert.Equal(t, [][2]int{{0, 1}, {2, 3}}, edgeSet(g))
}

func TestLogLikelihood(t *testing.T) {
	model := walkModel{jump: 0, jumpType: walk.JumpStationary}
	g := pathGraph(t, 3)

	assert.InDelta(t, 0.0, model.logLikelihood(g, walk.WalkList{{0, 1, 2}}), 1e-9)
	assert.InDelta(t, math.Log(0.5), model.logLikelihood(g, walk.WalkList{{1, 0, 2}}), 1e-9)
	assert.True(t, math.IsInf(model.logLikelihood(g, walk.WalkList{{0, 2, 1}}), -1))

	// repeats are ignored after the first visit
	assert.InDelta(t, math.Log(0.5), model.logLikelihood(g, walk.WalkList{{1, 0, 1, 0, 2}}), 1e-9)

	jumpy := walkModel{jump: 0.5, jumpType: walk.JumpUniform}
	assert.False(t, math.IsInf(jumpy.logLikelihood(g, walk.WalkList{{0, 2, 1}}), -1))
}

func TestUInviteBoundedSearchKeepsStartGraph(t *testing.T) {
	fit := DefaultFitinfo()
	fit.PruneLimit = Limit(0)
	fit.TriangleLimit = Limit(0)
	fit.OtherLimit = Limit(0)
	corpus := walk.WalkList{{0, 1, 2, 3}, {3, 2, 1, 0}}

	res, err := UInvite(context.Background(), walk.DefaultConfig(), corpus, 6, fit)
	require.NoError(t, err)
	assert.True(t, res.HasLikelihood)
	assert.Empty(t, res.History)
	assert.True(t, startGraph(corpus, 6, fit).Equal(res.Graph))
}

func TestUInviteImprovesOnStartGraph(t *testing.T) {
	fit := DefaultFitinfo()
	fit.Record = true
	corpus := walk.WalkList{{0, 1, 2, 3}, {1, 2, 3, 0}, {2, 3, 0, 1}}
	model := newWalkModel(walk.DefaultConfig())

	res, err := UInvite(context.Background(), walk.DefaultConfig(), corpus, 5, fit)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Graph.NumNodes)
	assert.Equal(t, 0.0, res.Graph.Degree(4))
	assert.False(t, math.IsInf(res.LogLikelihood, -1))

	start := model.logLikelihood(startGraph(corpus, 5, fit), corpus)
	assert.GreaterOrEqual(t, res.LogLikelihood+1e-9, start)
	if n := len(res.History); n > 0 {
		assert.InDelta(t, res.LogLikelihood, res.History[n-1].LogLikelihood, 1e-9)
	}
}

func TestUInviteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := UInvite(ctx, walk.DefaultConfig(), walk.WalkList{{0, 1, 2}}, 3, DefaultFitinfo())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenGraphPrior(t *testing.T) {
	itemsA, _ := network.NewItems([]string{"a", "b", "c"})
	itemsB, _ := network.NewItems([]string{"b", "a"})
	gA := network.NewGraph(3, false)
	require.NoError(t, gA.SetEdge(0, 1, 1))
	gB := network.NewGraph(2, false)
	require.NoError(t, gB.SetEdge(0, 1, 1))

	graphs := []*network.Graph{gA, gB}
	items := []*network.Items{itemsA, itemsB}
	fit := DefaultFitinfo()

	prior, err := GenGraphPrior(graphs, items, fit, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, prior.Len())
	assert.InDelta(t, 0.8, prior.Prob("a", "b"), 1e-12)
	assert.InDelta(t, 0.8, prior.Prob("b", "a"), 1e-12)
	assert.InDelta(t, 1.0/3, prior.Prob("a", "c"), 1e-12)
	assert.InDelta(t, 1.0/3, prior.Default, 1e-12)
	assert.Equal(t, []PairPrior{{A: "a", B: "b", Edges: 2, Trials: 2, Prob: prior.Prob("a", "b")}}, prior.Pairs())

	prior, err = GenGraphPrior(graphs, items, fit, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, prior.Len())

	prior, err = GenGraphPrior(graphs, items, fit, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, prior.Len())
	assert.InDelta(t, 0.125, prior.Prob("c", "a"), 1e-12)

	fit.PriorMethod = PriorBetaBinomial
	prior, err = GenGraphPrior(graphs, items, fit, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, prior.Prob("a", "c"), 1e-12)

	_, err = GenGraphPrior(graphs, items[:1], fit, 1)
	assert.Error(t, err)
}

func TestPriorToGraph(t *testing.T) {
	itemsA, _ := network.NewItems([]string{"a", "b", "c"})
	gA := network.NewGraph(3, false)
	require.NoError(t, gA.SetEdge(0, 1, 1))
	require.NoError(t, gA.SetEdge(1, 2, 1))
	itemsB, _ := network.NewItems([]string{"b", "a"})
	gB := network.NewGraph(2, false)
	require.NoError(t, gB.SetEdge(0, 1, 1))

	fit := DefaultFitinfo()
	global, _ := network.NewItems([]string{"d", "c", "b", "a"})

	// a-b is supported by both participants, b-c by one
	prior, err := GenGraphPrior([]*network.Graph{gA, gB}, []*network.Items{itemsA, itemsB}, fit, 2)
	require.NoError(t, err)
	g, err := PriorToGraph(prior, global, fit)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{2, 3}}, edgeSet(g))

	prior, err = GenGraphPrior([]*network.Graph{gA, gB}, []*network.Items{itemsA, itemsB}, fit, 1)
	require.NoError(t, err)
	g, err = PriorToGraph(prior, global, fit)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 3}}, edgeSet(g))

	_, err = PriorToGraph(nil, global, fit)
	assert.Error(t, err)
}

// fakeBackend records what the dispatcher hands it
type fakeBackend struct {
	err        error
	nilGraph   bool
	corpus     walk.WalkList
	numNodes   int
	corpora    []walk.WalkList
	mincount   int
	likelihood float64
}

func (f *fakeBackend) Reconstruct(_ context.Context, _ Method, corpus walk.WalkList, numNodes int, _ Fitinfo) (Result, error) {
	f.corpus, f.numNodes = corpus, numNodes
	if f.err != nil {
		return Result{}, f.err
	}
	if f.nilGraph {
		return Result{}, nil
	}
	return Result{Graph: network.NewGraph(numNodes, false), LogLikelihood: f.likelihood, HasLikelihood: true}, nil
}

func (f *fakeBackend) HierarchicalFit(_ context.Context, corpora []walk.WalkList, items []*network.Items, numNodes []int, _ Fitinfo) (HierarchicalResult, error) {
	f.corpora = corpora
	if f.err != nil {
		return HierarchicalResult{}, f.err
	}
	graphs := make([]*network.Graph, len(corpora))
	for i := range graphs {
		graphs[i] = network.NewGraph(numNodes[i], false)
	}
	return HierarchicalResult{Graphs: graphs}, nil
}

func (f *fakeBackend) GraphPrior(graphs []*network.Graph, items []*network.Items, fit Fitinfo, mincount int) (*Prior, error) {
	f.mincount = mincount
	return GenGraphPrior(graphs, items, fit, mincount)
}

func (f *fakeBackend) PriorToGraph(prior *Prior, global *network.Items, fit Fitinfo) (*network.Graph, error) {
	return PriorToGraph(prior, global, fit)
}

func dispatchFixture(t *testing.T, backend Backend) (*Dispatcher, []*participant.Record) {
	t.Helper()
	labels := []string{"a", "b", "c", "d", "e"}
	items, err := network.NewItems(labels)
	require.NoError(t, err)
	g := pathGraph(t, len(labels))

	cfg := walk.DefaultConfig()
	cfg.NumX = 2
	cfg.Trim = 4
	records, _, err := participant.Generate(g, items, cfg, 3, 0)
	require.NoError(t, err)

	d, err := NewDispatcher(backend, DefaultFitinfo(), items, zerolog.Nop())
	require.NoError(t, err)
	return d, records
}

func TestDispatcherFlat(t *testing.T) {
	fake := &fakeBackend{likelihood: -3}
	d, records := dispatchFixture(t, fake)

	res, err := d.Reconstruct(context.Background(), Goni, records, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, participant.CumulativeCorpus(records[:2], participant.Global), fake.corpus)
	assert.Equal(t, 5, fake.numNodes)
	assert.False(t, res.HasLikelihood)

	res, err = d.Reconstruct(context.Background(), UInviteFlat, records, 0, 3)
	require.NoError(t, err)
	assert.Len(t, fake.corpus, 6)
	assert.True(t, res.HasLikelihood)
	assert.Equal(t, -3.0, res.LogLikelihood)
}

func TestDispatcherHierarchicalUsesGroupMinCount(t *testing.T) {
	fake := &fakeBackend{}
	d, records := dispatchFixture(t, fake)

	res, err := d.Reconstruct(context.Background(), UInviteHierarchical, records, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.mincount)
	require.Len(t, fake.corpora, 2)
	assert.Equal(t, records[1].LocalWalks(), fake.corpora[1])
	assert.Equal(t, 5, res.Graph.NumNodes)
	assert.Len(t, res.Participants, 2)
}

func TestDispatcherWrapsFailures(t *testing.T) {
	cause := errors.New("solver diverged")
	d, records := dispatchFixture(t, &fakeBackend{err: cause})

	for _, m := range []Method{Chan, UInviteHierarchical} {
		_, err := d.Reconstruct(context.Background(), m, records, 4, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, simerr.ErrReconstruction)
		assert.ErrorIs(t, err, cause)

		var re *simerr.ReconstructionError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, m.String(), re.Method)
		assert.Equal(t, 4, re.SimNum)
		assert.Equal(t, 1, re.SSNum)
		assert.True(t, simerr.IsRecoverable(err))
	}

	_, err := d.Reconstruct(context.Background(), Chan, records, 0, 4)
	assert.ErrorIs(t, err, simerr.ErrReconstruction)

	d, records = dispatchFixture(t, &fakeBackend{nilGraph: true})
	_, err = d.Reconstruct(context.Background(), FirstEdge, records, 0, 1)
	assert.ErrorIs(t, err, simerr.ErrReconstruction)
}

func TestNewDispatcherValidates(t *testing.T) {
	items, _ := network.NewItems([]string{"a"})
	fit := DefaultFitinfo()
	fit.FollowType = "mode"

	_, err := NewDispatcher(&fakeBackend{}, fit, items, zerolog.Nop())
	assert.ErrorIs(t, err, simerr.ErrConfig)

	_, err = NewDispatcher(nil, DefaultFitinfo(), items, zerolog.Nop())
	assert.Error(t, err)
}

func TestBuiltinEndToEnd(t *testing.T) {
	backend := NewBuiltin(walk.DefaultConfig(), zerolog.Nop())
	d, records := dispatchFixture(t, backend)

	for _, e := range Methods() {
		t.Run(e.Name, func(t *testing.T) {
			res, err := d.Reconstruct(context.Background(), e.Method, records, 0, 2)
			require.NoError(t, err)
			assert.Equal(t, 5, res.Graph.NumNodes)
			assert.Equal(t, e.HasLikelihood, res.HasLikelihood)
		})
	}

	_, err := backend.Reconstruct(context.Background(), Goni, walk.WalkList{{0, 9}}, 5, DefaultFitinfo())
	assert.Error(t, err)
	_, err = backend.Reconstruct(context.Background(), UInviteHierarchical, walk.WalkList{{0, 1}}, 5, DefaultFitinfo())
	assert.Error(t, err)
}
