// Package experiment drives simulation runs: it generates participants,
// reconstructs networks from growing subsets of them, scores the results and
// emits report rows in a fixed order.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/recall-network-sim/pkg/config"
	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/participant"
	"github.com/gilchrisn/recall-network-sim/pkg/reconstruct"
	"github.com/gilchrisn/recall-network-sim/pkg/report"
	"github.com/gilchrisn/recall-network-sim/pkg/score"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// Stage is a step of the per-simulation state machine
type Stage int

const (
	StageInit Stage = iota
	StageGenerateParticipants
	StageBuildCorpus
	StageReconstruct
	StageScore
	StageEmitRow
	StageDone
)

var stageNames = [...]string{"INIT", "GENERATE_PARTICIPANTS", "BUILD_CORPUS", "RECONSTRUCT", "SCORE", "EMIT_ROW", "DONE"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// SeedForSimulation is the first seed of simulation simnum. Every simulation
// owns numsubs*numlists consecutive seeds, so this equals the value a
// sequential run would have reached.
func SeedForSimulation(seednum int64, simnum, numsubs, numlists int) int64 {
	return seednum + int64(simnum)*int64(numsubs)*int64(numlists)
}

// Options wires a Runner
type Options struct {
	Truth      *network.Graph
	Items      *network.Items
	Settings   config.Settings
	Generator  walk.Config
	Dispatcher *reconstruct.Dispatcher
	Scorer     score.Scorer
	Sink       report.Sink

	// optional
	Skips  *report.SkipLog
	Walks  *report.WalkTracker
	Logger zerolog.Logger
}

// Summary describes a finished (or aborted) run
type Summary struct {
	Rows        int
	Skips       []report.Skip
	Simulations []report.SimulationSeeds
	Elapsed     time.Duration
}

// Runner executes the simulations of one run
type Runner struct {
	opts   Options
	logger zerolog.Logger
}

// NewRunner checks that every required collaborator is present
func NewRunner(opts Options) (*Runner, error) {
	switch {
	case opts.Truth == nil:
		return nil, errors.New("experiment: no ground-truth graph")
	case opts.Items == nil || opts.Items.Len() != opts.Truth.NumNodes:
		return nil, errors.New("experiment: item dictionary does not match the ground-truth graph")
	case opts.Dispatcher == nil:
		return nil, errors.New("experiment: no dispatcher")
	case opts.Sink == nil:
		return nil, errors.New("experiment: no report sink")
	case len(opts.Settings.Methods) == 0:
		return nil, simerr.Config("simulation.methods", nil, "at least one method is required")
	case opts.Settings.NumSubs < 1 || opts.Settings.NumSims < 1:
		return nil, simerr.Config("simulation", nil, "numsubs and numsims must be at least 1")
	}
	if opts.Generator.NumX != opts.Settings.NumLists {
		return nil, simerr.Config("simulation.numlists", opts.Settings.NumLists, "generator produces %d lists per participant", opts.Generator.NumX)
	}
	if opts.Settings.NumWorkers < 1 {
		opts.Settings.NumWorkers = 1
	}
	return &Runner{opts: opts, logger: opts.Logger.With().Str("component", "experiment").Logger()}, nil
}

// simResult is everything one simulation hands to the emitter
type simResult struct {
	simnum  int
	seeds   report.SimulationSeeds
	records []*participant.Record
	rows    []score.Record
	skips   []report.Skip
	err     error
}

// Run executes every simulation. Simulations run concurrently, but rows are
// written strictly in (simnum, ssnum, method) order. A recoverable failure
// skips its unit; any other failure or cancellation stops the run after the
// rows already written.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	s := r.opts.Settings

	r.logger.Info().
		Int("numsims", s.NumSims).
		Int("numsubs", s.NumSubs).
		Int("numlists", s.NumLists).
		Int("listlength", s.ListLength).
		Int("workers", s.NumWorkers).
		Int64("seednum", s.SeedNum).
		Msg("Starting run")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, egCtx := errgroup.WithContext(runCtx)
	eg.SetLimit(s.NumWorkers)

	slots := make([]chan simResult, s.NumSims)
	for i := range slots {
		slots[i] = make(chan simResult, 1)
	}

	scheduled := make(chan struct{})
	go func() {
		defer close(scheduled)
		for simnum := 0; simnum < s.NumSims; simnum++ {
			if err := egCtx.Err(); err != nil {
				slots[simnum] <- simResult{simnum: simnum, err: err}
				continue
			}
			eg.Go(func() error {
				res := r.simulate(egCtx, simnum)
				slots[simnum] <- res
				return res.err
			})
		}
	}()

	var summary Summary
	var runErr error
	for simnum := 0; simnum < s.NumSims; simnum++ {
		res := <-slots[simnum]
		if res.err == nil {
			res.err = r.emit(&summary, res)
		}
		if res.err != nil {
			runErr = res.err
			cancel()
			break
		}
	}

	<-scheduled
	if err := eg.Wait(); err != nil && (runErr == nil || cancelledBySibling(ctx, runErr)) {
		runErr = err
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	summary.Elapsed = time.Since(start)
	var event *zerolog.Event
	if runErr != nil {
		event = r.logger.Error().Err(runErr)
	} else {
		event = r.logger.Info()
	}
	event.Int("rows", summary.Rows).
		Int("skips", len(summary.Skips)).
		Dur("elapsed", summary.Elapsed).
		Msg("Run finished")
	return summary, runErr
}

// cancelledBySibling reports whether err is only the cancellation caused by
// another simulation failing, while the caller's own context is still live.
func cancelledBySibling(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// emit writes the output of one simulation
func (r *Runner) emit(summary *Summary, res simResult) error {
	for i, rec := range res.records {
		if err := r.opts.Walks.LogParticipant(res.simnum, i, rec); err != nil {
			return fmt.Errorf("failed to record participant walks: %w", err)
		}
	}

	for _, skip := range res.skips {
		if err := r.opts.Skips.Log(skip); err != nil {
			return fmt.Errorf("failed to record skip: %w", err)
		}
	}
	summary.Skips = append(summary.Skips, res.skips...)

	for _, row := range res.rows {
		if err := r.opts.Sink.Write(row); err != nil {
			return fmt.Errorf("failed to write results row: %w", err)
		}
		summary.Rows++
	}
	summary.Simulations = append(summary.Simulations, res.seeds)

	r.logger.Debug().Int("simnum", res.simnum).Str("stage", StageEmitRow.String()).Int("rows", len(res.rows)).Msg("Rows emitted")
	return nil
}

func (r *Runner) stage(simnum int, st Stage) *zerolog.Event {
	return r.logger.Debug().Int("simnum", simnum).Str("stage", st.String())
}

// simulate runs the state machine of one simulation up to the rows it produces
func (r *Runner) simulate(ctx context.Context, simnum int) simResult {
	s := r.opts.Settings
	startSeed := SeedForSimulation(s.SeedNum, simnum, s.NumSubs, s.NumLists)
	res := simResult{simnum: simnum}
	r.stage(simnum, StageInit).Int64("start_seed", startSeed).Msg("Simulation started")

	r.stage(simnum, StageGenerateParticipants).Msg("Generating participants")
	records, next, err := participant.Generate(r.opts.Truth, r.opts.Items, r.opts.Generator, s.NumSubs, startSeed)
	if err != nil {
		res.err = fmt.Errorf("simulation %d: %w", simnum, err)
		return res
	}
	res.records = records
	res.seeds = report.SimulationSeeds{SimNum: simnum, StartSeed: startSeed, EndSeed: next}

	for ssnum := 1; ssnum <= s.NumSubs; ssnum++ {
		r.stage(simnum, StageBuildCorpus).Int("ssnum", ssnum).Msg("Building corpus")
		r.logger.Info().Int("simnum", simnum).Int("ssnum", ssnum).Msg("Reconstructing")

		for _, method := range s.Methods {
			if err := ctx.Err(); err != nil {
				res.err = err
				return res
			}

			row, err := r.unit(ctx, method, records, simnum, ssnum, startSeed)
			if err == nil {
				res.rows = append(res.rows, row)
				continue
			}
			if ctx.Err() != nil {
				res.err = ctx.Err()
				return res
			}
			if !simerr.IsRecoverable(err) {
				res.err = err
				return res
			}

			r.logger.Warn().
				Err(err).
				Str("method", method.String()).
				Int("simnum", simnum).
				Int("ssnum", ssnum).
				Msg("Skipping unit")
			res.skips = append(res.skips, report.Skip{Method: method.String(), SimNum: simnum, SSNum: ssnum, Reason: reason(err)})
		}
	}

	r.stage(simnum, StageDone).Int("rows", len(res.rows)).Msg("Simulation finished")
	return res
}

// unit reconstructs and scores one (method, simnum, ssnum) combination
func (r *Runner) unit(ctx context.Context, method reconstruct.Method, records []*participant.Record, simnum, ssnum int, startSeed int64) (score.Record, error) {
	r.stage(simnum, StageReconstruct).Int("ssnum", ssnum).Str("method", method.String()).Msg("Dispatching")
	res, err := r.opts.Dispatcher.Reconstruct(ctx, method, records, simnum, ssnum)
	if err != nil {
		return score.Record{}, err
	}

	r.stage(simnum, StageScore).Int("ssnum", ssnum).Str("method", method.String()).Msg("Scoring")
	sdt, cost, err := r.opts.Scorer.Score(res.Graph, r.opts.Truth)
	if err != nil {
		return score.Record{}, &simerr.ReconstructionError{Method: method.String(), SimNum: simnum, SSNum: ssnum, Err: err}
	}

	return score.Record{
		Method:    method.String(),
		SimNum:    simnum,
		SSNum:     ssnum,
		SDT:       sdt,
		Cost:      cost,
		StartSeed: startSeed,
	}, nil
}

// reason is the innermost cause of a skipped unit
func reason(err error) string {
	var re *simerr.ReconstructionError
	if errors.As(err, &re) && re.Err != nil {
		return re.Err.Error()
	}
	return err.Error()
}
