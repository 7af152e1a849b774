package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/recall-network-sim/pkg/experiment"
	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/reconstruct"
	"github.com/gilchrisn/recall-network-sim/pkg/report"
	"github.com/gilchrisn/recall-network-sim/pkg/score"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate participants, reconstruct the network and score every method",
		Long: `Run numsims simulations. Each simulation generates numsubs participants
with numlists lists of listlength items, then reconstructs the network with
every configured method from the first 1..numsubs participants and appends
one row per (method, simnum, ssnum) to the results file.

Examples:
  recallsim run --graph usf_animal.snet --numsims 10 --methods rw,goni,uinvite_hierarchical
  recallsim run --config experiment.yaml --results out.csv --manifest out.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.Int("numsims", 10, "Number of simulations")
	f.Int("numsubs", 1, "Participants per simulation")
	f.Int("numlists", 3, "Lists per participant")
	f.Int("listlength", 35, "Items per list")
	f.Int64("seednum", 0, "First seed of the run")
	f.StringSlice("methods", nil, "Reconstruction methods (see 'recallsim methods')")
	f.Int("workers", 0, "Simulations run concurrently (default: number of CPUs)")
	f.Float64("threshold", 0, "Edge weight above which an edge counts as present when scoring")
	f.String("results", "", "Results CSV, appended to (default usf_reconstruction_results.csv)")
	f.String("walks", "", "Write every generated participant to this JSONL file")
	f.String("skips", "", "Write skipped units to this CSV file")
	f.String("manifest", "", "Write a YAML run manifest to this file")
	return cmd
}

// run validates every setting before any output file is touched
func (a *app) run(ctx context.Context, out io.Writer) (err error) {
	started := time.Now()

	truth, items, err := a.loadGraph()
	if err != nil {
		return err
	}
	settings, err := a.cfg.Settings()
	if err != nil {
		return err
	}
	gen, err := a.cfg.GeneratorConfig(items)
	if err != nil {
		return err
	}
	fit, err := a.cfg.Fitinfo()
	if err != nil {
		return err
	}
	dispatcher, err := reconstruct.NewDispatcher(reconstruct.NewBuiltin(gen, a.logger), fit, items, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info().
		Str("generator", gen.String()).
		Strs("methods", a.cfg.MethodNames()).
		Str("results", a.cfg.ResultsPath()).
		Msg("Configuration loaded")

	results, err := report.OpenCSV(a.cfg.ResultsPath())
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, results.Close()) }()

	var skips *report.SkipLog
	if path := a.cfg.SkipsPath(); path != "" {
		if skips, err = report.OpenSkipLog(path); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, skips.Close()) }()
	}

	var walks *report.WalkTracker
	if path := a.cfg.WalksPath(); path != "" {
		if walks, err = report.NewWalkTracker(path, a.runID, items); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, walks.Close()) }()
	}

	runner, err := experiment.NewRunner(experiment.Options{
		Truth:      truth,
		Items:      items,
		Settings:   settings,
		Generator:  gen,
		Dispatcher: dispatcher,
		Scorer:     score.Scorer{Threshold: settings.Threshold},
		Sink:       results,
		Skips:      skips,
		Walks:      walks,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}

	summary, runErr := runner.Run(ctx)

	if path := a.cfg.ManifestPath(); path != "" {
		manifest := &report.Manifest{
			RunID:       a.runID,
			StartedAt:   started,
			FinishedAt:  time.Now(),
			Graph:       graphInfo(a.cfg.GraphPath(), truth),
			Methods:     methodNames(settings.Methods),
			Settings:    a.cfg.AllSettings(),
			Simulations: summary.Simulations,
			Rows:        summary.Rows,
			Skips:       summary.Skips,
		}
		if runErr != nil {
			manifest.Error = runErr.Error()
		}
		if err := report.WriteManifest(path, manifest); err != nil {
			return errors.Join(runErr, err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run aborted after %d rows: %w", summary.Rows, runErr)
	}
	fmt.Fprintf(out, "Wrote %d rows to %s (%d skipped) in %v\n", summary.Rows, a.cfg.ResultsPath(), len(summary.Skips), summary.Elapsed.Round(time.Millisecond))
	return nil
}

func graphInfo(path string, g *network.Graph) report.GraphInfo {
	return report.GraphInfo{
		Path:       path,
		Directed:   g.Directed,
		Nodes:      g.NumNodes,
		Edges:      g.NumEdges(),
		Components: len(network.Components(g)),
	}
}

func methodNames(methods []reconstruct.Method) []string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.String()
	}
	return names
}
