package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/participant"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// Step is one accepted change of a greedy search, kept when Fitinfo.Record is set
type Step struct {
	Phase         string  `json:"phase"`
	From          int     `json:"from"`
	To            int     `json:"to"`
	Added         bool    `json:"added"`
	LogLikelihood float64 `json:"log_likelihood"`
}

// Result is a reconstructed graph with its optional fit statistics
type Result struct {
	Graph         *network.Graph
	LogLikelihood float64
	HasLikelihood bool
	History       []Step

	// Participants holds the per-participant latent graphs of a
	// hierarchical fit, in local index space
	Participants []*network.Graph
}

// HierarchicalResult is the output of a per-participant fit
type HierarchicalResult struct {
	Graphs []*network.Graph
	Prior  *Prior
}

// Backend implements the reconstruction methods. The harness treats it as a
// black box; every call receives its own copy of the data.
type Backend interface {
	// Reconstruct fits a flat method on a corpus over numNodes global nodes
	Reconstruct(ctx context.Context, method Method, corpus walk.WalkList, numNodes int, fit Fitinfo) (Result, error)

	// HierarchicalFit fits one latent graph per participant from local corpora
	HierarchicalFit(ctx context.Context, corpora []walk.WalkList, items []*network.Items, numNodes []int, fit Fitinfo) (HierarchicalResult, error)

	// GraphPrior pools participant graphs into an edge prior keyed by item labels,
	// ignoring edges supported by fewer than mincount participants
	GraphPrior(graphs []*network.Graph, items []*network.Items, fit Fitinfo, mincount int) (*Prior, error)

	// PriorToGraph builds the group graph over the global items
	PriorToGraph(prior *Prior, global *network.Items, fit Fitinfo) (*network.Graph, error)
}

// Dispatcher routes the cumulative corpus of a run to the configured backend
type Dispatcher struct {
	backend Backend
	fit     Fitinfo
	global  *network.Items
	logger  zerolog.Logger
}

// NewDispatcher validates fit and binds a backend to the global item set
func NewDispatcher(backend Backend, fit Fitinfo, global *network.Items, logger zerolog.Logger) (*Dispatcher, error) {
	if backend == nil {
		return nil, errors.New("reconstruct: nil backend")
	}
	if global == nil || global.Len() == 0 {
		return nil, errors.New("reconstruct: empty global item dictionary")
	}
	if err := fit.Validate(); err != nil {
		return nil, err
	}
	return &Dispatcher{
		backend: backend,
		fit:     fit,
		global:  global,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}, nil
}

// Fitinfo returns the fitting options in use
func (d *Dispatcher) Fitinfo() Fitinfo { return d.fit }

// Reconstruct runs method on the first ssnum participants of records.
// Any failure comes back as a *simerr.ReconstructionError; nothing is retried.
func (d *Dispatcher) Reconstruct(ctx context.Context, method Method, records []*participant.Record, simnum, ssnum int) (Result, error) {
	fail := func(err error) (Result, error) {
		return Result{}, &simerr.ReconstructionError{Method: method.String(), SimNum: simnum, SSNum: ssnum, Err: err}
	}

	entry, ok := method.Lookup()
	if !ok {
		return fail(fmt.Errorf("method %d has no dispatch entry", int(method)))
	}
	if ssnum < 1 || ssnum > len(records) {
		return fail(fmt.Errorf("ssnum %d outside [1,%d]", ssnum, len(records)))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	start := time.Now()
	var (
		res Result
		err error
	)
	switch entry.Shape {
	case Hierarchical:
		res, err = d.hierarchical(ctx, records[:ssnum])
	default:
		corpus := participant.CumulativeCorpus(records[:ssnum], entry.Space)
		res, err = d.backend.Reconstruct(ctx, method, corpus, d.global.Len(), d.fit)
	}
	if err != nil {
		return fail(err)
	}
	if res.Graph == nil {
		return fail(errors.New("backend returned no graph"))
	}
	if !entry.HasLikelihood {
		res.HasLikelihood = false
	}

	d.logger.Debug().
		Str("method", entry.Name).
		Int("simnum", simnum).
		Int("ssnum", ssnum).
		Int("edges", res.Graph.NumEdges()).
		Dur("elapsed", time.Since(start)).
		Msg("Reconstruction finished")
	return res, nil
}

// hierarchical fits per-participant graphs, then regenerates the pooling
// prior with GroupMinCount before building the group graph
func (d *Dispatcher) hierarchical(ctx context.Context, records []*participant.Record) (Result, error) {
	corpora := make([]walk.WalkList, len(records))
	items := make([]*network.Items, len(records))
	numNodes := make([]int, len(records))
	for i, rec := range records {
		corpora[i] = rec.LocalWalks()
		items[i] = rec.Items()
		numNodes[i] = rec.UniqueNodes()
	}

	fitted, err := d.backend.HierarchicalFit(ctx, corpora, items, numNodes, d.fit)
	if err != nil {
		return Result{}, fmt.Errorf("hierarchical fit: %w", err)
	}
	if len(fitted.Graphs) != len(records) {
		return Result{}, fmt.Errorf("hierarchical fit returned %d graphs for %d participants", len(fitted.Graphs), len(records))
	}

	prior, err := d.backend.GraphPrior(fitted.Graphs, items, d.fit, d.fit.GroupMinCount)
	if err != nil {
		return Result{}, fmt.Errorf("group prior: %w", err)
	}

	group, err := d.backend.PriorToGraph(prior, d.global, d.fit)
	if err != nil {
		return Result{}, fmt.Errorf("prior to graph: %w", err)
	}
	return Result{Graph: group, Participants: fitted.Graphs}, nil
}
