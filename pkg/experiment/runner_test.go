package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/recall-network-sim/pkg/config"
	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/participant"
	"github.com/gilchrisn/recall-network-sim/pkg/reconstruct"
	"github.com/gilchrisn/recall-network-sim/pkg/report"
	"github.com/gilchrisn/recall-network-sim/pkg/score"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// memorySink keeps rows in memory
type memorySink struct {
	mu   sync.Mutex
	rows []score.Record
	err  error
}

func (m *memorySink) Write(rec score.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, rec)
	return nil
}

// stubBackend answers flat methods with the naive random walk graph, except
// for the methods it is told to break
type stubBackend struct {
	*reconstruct.Builtin
	fail     map[reconstruct.Method]error
	oversize map[reconstruct.Method]bool
}

func (b *stubBackend) Reconstruct(ctx context.Context, method reconstruct.Method, corpus walk.WalkList, numNodes int, fit reconstruct.Fitinfo) (reconstruct.Result, error) {
	if err := b.fail[method]; err != nil {
		return reconstruct.Result{}, err
	}
	if b.oversize[method] {
		return reconstruct.Result{Graph: network.NewGraph(numNodes+1, false)}, nil
	}
	return reconstruct.Result{Graph: reconstruct.NRW(corpus, numNodes, false)}, nil
}

// blockingBackend holds every reconstruction until the run is cancelled
type blockingBackend struct {
	*reconstruct.Builtin
}

func (b *blockingBackend) Reconstruct(ctx context.Context, method reconstruct.Method, corpus walk.WalkList, numNodes int, fit reconstruct.Fitinfo) (reconstruct.Result, error) {
	<-ctx.Done()
	return reconstruct.Result{}, ctx.Err()
}

func ringFixture(t *testing.T, n int) (*network.Graph, *network.Items) {
	t.Helper()
	labels := make([]string, n)
	g := network.NewGraph(n, false)
	for i := 0; i < n; i++ {
		labels[i] = string(rune('a' + i))
		require.NoError(t, g.SetEdge(i, (i+1)%n, 1))
	}
	items, err := network.NewItems(labels)
	require.NoError(t, err)
	return g, items
}

func newTestRunner(t *testing.T, truth *network.Graph, items *network.Items, backend reconstruct.Backend, methods []reconstruct.Method, workers int, sink report.Sink) *Runner {
	t.Helper()
	gen := walk.DefaultConfig()
	gen.NumX = 2
	gen.Trim = 6
	gen.Start = walk.Start{Kind: walk.StartUniform}

	d, err := reconstruct.NewDispatcher(backend, reconstruct.DefaultFitinfo(), items, zerolog.Nop())
	require.NoError(t, err)

	r, err := NewRunner(Options{
		Truth: truth,
		Items: items,
		Settings: config.Settings{
			NumSubs:    2,
			NumLists:   2,
			ListLength: 6,
			NumSims:    3,
			Methods:    methods,
			SeedNum:    5,
			NumWorkers: workers,
		},
		Generator:  gen,
		Dispatcher: d,
		Sink:       sink,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return r
}

func TestSeedForSimulation(t *testing.T) {
	assert.Equal(t, int64(0), SeedForSimulation(0, 0, 2, 3))
	assert.Equal(t, int64(12), SeedForSimulation(0, 2, 2, 3))
	assert.Equal(t, int64(17), SeedForSimulation(5, 2, 2, 3))
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "INIT", StageInit.String())
	assert.Equal(t, "GENERATE_PARTICIPANTS", StageGenerateParticipants.String())
	assert.Equal(t, "DONE", StageDone.String())
	assert.Equal(t, "Stage(99)", Stage(99).String())
}

func TestRunEmitsRowsInOrder(t *testing.T) {
	truth, items := ringFixture(t, 6)
	methods := []reconstruct.Method{reconstruct.NaiveRandomWalk, reconstruct.FirstEdge}
	sink := &memorySink{}
	r := newTestRunner(t, truth, items, reconstruct.NewBuiltin(walk.DefaultConfig(), zerolog.Nop()), methods, 3, sink)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, summary.Rows)
	assert.Empty(t, summary.Skips)
	require.Len(t, sink.rows, 12)

	i := 0
	for simnum := 0; simnum < 3; simnum++ {
		for ssnum := 1; ssnum <= 2; ssnum++ {
			for _, m := range methods {
				row := sink.rows[i]
				assert.Equal(t, m.String(), row.Method)
				assert.Equal(t, simnum, row.SimNum)
				assert.Equal(t, ssnum, row.SSNum)
				assert.Equal(t, int64(5+simnum*4), row.StartSeed)
				assert.Equal(t, 15, row.SDT.Total())
				i++
			}
		}
	}

	require.Len(t, summary.Simulations, 3)
	assert.Equal(t, report.SimulationSeeds{SimNum: 2, StartSeed: 13, EndSeed: 17}, summary.Simulations[2])
}

func TestRunDeterministicAcrossWorkers(t *testing.T) {
	truth, items := ringFixture(t, 5)
	methods := []reconstruct.Method{reconstruct.NaiveRandomWalk, reconstruct.Goni, reconstruct.Chan}
	backend := reconstruct.NewBuiltin(walk.DefaultConfig(), zerolog.Nop())

	serial := &memorySink{}
	_, err := newTestRunner(t, truth, items, backend, methods, 1, serial).Run(context.Background())
	require.NoError(t, err)

	parallel := &memorySink{}
	_, err = newTestRunner(t, truth, items, backend, methods, 4, parallel).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, serial.rows, parallel.rows)
}

func TestRunSkipsFailedUnits(t *testing.T) {
	truth, items := ringFixture(t, 5)
	backend := &stubBackend{
		Builtin:  reconstruct.NewBuiltin(walk.DefaultConfig(), zerolog.Nop()),
		fail:     map[reconstruct.Method]error{reconstruct.Chan: errors.New("no convergence")},
		oversize: map[reconstruct.Method]bool{reconstruct.Kenett: true},
	}
	methods := []reconstruct.Method{reconstruct.Chan, reconstruct.NaiveRandomWalk, reconstruct.Kenett}
	sink := &memorySink{}
	r := newTestRunner(t, truth, items, backend, methods, 2, sink)

	skipPath := filepath.Join(t.TempDir(), "skips.csv")
	skips, err := report.OpenSkipLog(skipPath)
	require.NoError(t, err)
	r.opts.Skips = skips

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, skips.Close())

	assert.Equal(t, 6, summary.Rows)
	for _, row := range sink.rows {
		assert.Equal(t, "rw", row.Method)
	}

	require.Len(t, summary.Skips, 12)
	assert.Equal(t, report.Skip{Method: "chan", SimNum: 0, SSNum: 1, Reason: "no convergence"}, summary.Skips[0])
	assert.Equal(t, "kenett", summary.Skips[1].Method)
	assert.Contains(t, summary.Skips[1].Reason, "6 nodes")

	data, err := os.ReadFile(skipPath)
	require.NoError(t, err)
	assert.Equal(t, 13, strings.Count(string(data), "\n"))
}

func TestRunAbortsOnGraphError(t *testing.T) {
	_, items := ringFixture(t, 4)
	edgeless := network.NewGraph(4, false)
	sink := &memorySink{}
	r := newTestRunner(t, edgeless, items, reconstruct.NewBuiltin(walk.DefaultConfig(), zerolog.Nop()), []reconstruct.Method{reconstruct.NaiveRandomWalk}, 2, sink)

	summary, err := r.Run(context.Background())
	assert.ErrorIs(t, err, simerr.ErrGraph)
	assert.Equal(t, 0, summary.Rows)
	assert.Empty(t, sink.rows)
}

func TestRunReportsLaterSimulationFailure(t *testing.T) {
	truth, items := ringFixture(t, 4)
	gen := walk.DefaultConfig()
	gen.NumX = 1
	gen.Trim = 4
	gen.Start = walk.Start{Kind: walk.StartUniform}
	gen.CensorFault = 0.6
	gen.MaxSteps = 6

	// find a seednum whose simulation 0 generates fine and simulation 1 runs
	// out of steps
	seednum := int64(-1)
	for s := int64(0); s < 1000 && seednum < 0; s++ {
		_, _, err0 := participant.Generate(truth, items, gen, 1, s)
		_, _, err1 := participant.Generate(truth, items, gen, 1, s+1)
		if err0 == nil && err1 != nil {
			seednum = s
		}
	}
	require.GreaterOrEqual(t, seednum, int64(0))

	d, err := reconstruct.NewDispatcher(&blockingBackend{}, reconstruct.DefaultFitinfo(), items, zerolog.Nop())
	require.NoError(t, err)
	sink := &memorySink{}
	r, err := NewRunner(Options{
		Truth: truth,
		Items: items,
		Settings: config.Settings{
			NumSubs:    1,
			NumLists:   1,
			ListLength: 4,
			NumSims:    2,
			Methods:    []reconstruct.Method{reconstruct.NaiveRandomWalk},
			SeedNum:    seednum,
			NumWorkers: 2,
		},
		Generator:  gen,
		Dispatcher: d,
		Sink:       sink,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	// simulation 0 only returns once simulation 1 has failed
	summary, err := r.Run(context.Background())
	assert.ErrorIs(t, err, simerr.ErrGraph)
	assert.NotErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Rows)
	assert.Empty(t, sink.rows)
}

func TestRunStopsOnSinkError(t *testing.T) {
	truth, items := ringFixture(t, 4)
	sink := &memorySink{err: errors.New("disk full")}
	r := newTestRunner(t, truth, items, reconstruct.NewBuiltin(walk.DefaultConfig(), zerolog.Nop()), []reconstruct.Method{reconstruct.FirstEdge}, 2, sink)

	_, err := r.Run(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestRunCancelled(t *testing.T) {
	truth, items := ringFixture(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(t, truth, items, reconstruct.NewBuiltin(walk.DefaultConfig(), zerolog.Nop()), []reconstruct.Method{reconstruct.FirstEdge}, 2, &memorySink{})
	summary, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Rows)
}

func TestNewRunnerValidates(t *testing.T) {
	truth, items := ringFixture(t, 4)
	d, err := reconstruct.NewDispatcher(reconstruct.NewBuiltin(walk.DefaultConfig(), zerolog.Nop()), reconstruct.DefaultFitinfo(), items, zerolog.Nop())
	require.NoError(t, err)

	base := Options{
		Truth:      truth,
		Items:      items,
		Settings:   config.Settings{NumSubs: 1, NumLists: 3, ListLength: 4, NumSims: 1, Methods: []reconstruct.Method{reconstruct.FirstEdge}},
		Generator:  walk.DefaultConfig(),
		Dispatcher: d,
		Sink:       &memorySink{},
	}
	_, err = NewRunner(base)
	require.NoError(t, err)

	broken := base
	broken.Truth = nil
	_, err = NewRunner(broken)
	assert.Error(t, err)

	broken = base
	broken.Settings.Methods = nil
	_, err = NewRunner(broken)
	assert.ErrorIs(t, err, simerr.ErrConfig)

	broken = base
	broken.Settings.NumLists = 4
	_, err = NewRunner(broken)
	assert.ErrorIs(t, err, simerr.ErrConfig)
}
