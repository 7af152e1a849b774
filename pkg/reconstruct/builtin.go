package reconstruct

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// Builtin is the in-process implementation of every method
type Builtin struct {
	gen    walk.Config
	logger zerolog.Logger
}

// NewBuiltin returns a backend whose likelihood-based methods assume data
// generated with gen's jump settings
func NewBuiltin(gen walk.Config, logger zerolog.Logger) *Builtin {
	return &Builtin{gen: gen, logger: logger.With().Str("component", "builtin").Logger()}
}

func (b *Builtin) Reconstruct(ctx context.Context, method Method, corpus walk.WalkList, numNodes int, fit Fitinfo) (Result, error) {
	if err := checkCorpus(corpus, numNodes); err != nil {
		return Result{}, err
	}

	switch method {
	case NaiveRandomWalk:
		return Result{Graph: NRW(corpus, numNodes, fit.Directed)}, nil
	case Goni:
		return Result{Graph: GoniGraph(corpus, numNodes, fit)}, nil
	case Chan:
		return Result{Graph: ChanGraph(corpus, numNodes, fit)}, nil
	case Kenett:
		return Result{Graph: KenettGraph(corpus, numNodes)}, nil
	case FirstEdge:
		return Result{Graph: FirstEdge(corpus, numNodes, fit.Directed)}, nil
	case UInviteFlat:
		return UInvite(ctx, b.gen, corpus, numNodes, fit)
	default:
		return Result{}, fmt.Errorf("method %s is not a flat method", method)
	}
}

// HierarchicalFit fits every participant on its own, then refits each one
// with a prior pooled from the others until no graph changes or
// fit.MaxPasses passes have run
func (b *Builtin) HierarchicalFit(ctx context.Context, corpora []walk.WalkList, items []*network.Items, numNodes []int, fit Fitinfo) (HierarchicalResult, error) {
	n := len(corpora)
	if len(items) != n || len(numNodes) != n {
		return HierarchicalResult{}, fmt.Errorf("got %d corpora, %d item dictionaries and %d node counts", n, len(items), len(numNodes))
	}
	if n == 0 {
		return HierarchicalResult{}, fmt.Errorf("no participants")
	}

	model := newWalkModel(b.gen)
	labels := make([][]string, n)
	for i := range corpora {
		if items[i].Len() != numNodes[i] {
			return HierarchicalResult{}, fmt.Errorf("participant %d: %d items but %d nodes", i, items[i].Len(), numNodes[i])
		}
		if err := checkCorpus(corpora[i], numNodes[i]); err != nil {
			return HierarchicalResult{}, fmt.Errorf("participant %d: %w", i, err)
		}
		labels[i] = items[i].Labels()
	}

	graphs := make([]*network.Graph, n)
	eg, egCtx := errgroup.WithContext(ctx)
	for i := range corpora {
		eg.Go(func() error {
			res, err := fitUInvite(egCtx, model, corpora[i], numNodes[i], nil, fit, nil, nil)
			if err != nil {
				return fmt.Errorf("participant %d: %w", i, err)
			}
			graphs[i] = res.Graph
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return HierarchicalResult{}, err
	}

	for pass := 1; pass <= fit.MaxPasses; pass++ {
		changed := 0
		for i := range corpora {
			others, otherItems := exclude(graphs, items, i)
			prior, err := GenGraphPrior(others, otherItems, fit, fit.PriorMinCount)
			if err != nil {
				return HierarchicalResult{}, err
			}

			res, err := fitUInvite(ctx, model, corpora[i], numNodes[i], graphs[i], fit, prior, labels[i])
			if err != nil {
				return HierarchicalResult{}, fmt.Errorf("participant %d pass %d: %w", i, pass, err)
			}
			if !res.Graph.Equal(graphs[i]) {
				graphs[i] = res.Graph
				changed++
			}
		}

		b.logger.Debug().Int("pass", pass).Int("changed", changed).Int("participants", n).Msg("Hierarchical pass")
		if changed == 0 {
			break
		}
	}

	prior, err := GenGraphPrior(graphs, items, fit, fit.PriorMinCount)
	if err != nil {
		return HierarchicalResult{}, err
	}
	return HierarchicalResult{Graphs: graphs, Prior: prior}, nil
}

func (b *Builtin) GraphPrior(graphs []*network.Graph, items []*network.Items, fit Fitinfo, mincount int) (*Prior, error) {
	return GenGraphPrior(graphs, items, fit, mincount)
}

func (b *Builtin) PriorToGraph(prior *Prior, global *network.Items, fit Fitinfo) (*network.Graph, error) {
	return PriorToGraph(prior, global, fit)
}

func exclude(graphs []*network.Graph, items []*network.Items, skip int) ([]*network.Graph, []*network.Items) {
	g := make([]*network.Graph, 0, len(graphs)-1)
	it := make([]*network.Items, 0, len(items)-1)
	for i := range graphs {
		if i != skip {
			g = append(g, graphs[i])
			it = append(it, items[i])
		}
	}
	return g, it
}
