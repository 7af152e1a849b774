package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/recall-network-sim/pkg/experiment"
	"github.com/gilchrisn/recall-network-sim/pkg/participant"
	"github.com/gilchrisn/recall-network-sim/pkg/report"
)

func newGenerateCmd(a *app) *cobra.Command {
	var out string
	var simnum int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the participants of one simulation without reconstructing",
		Long: `Generate the numsubs participants simulation simnum would see in a run
with the same settings, and write them as JSON lines (global walks, local
walks, item labels and seed range per participant).

Example:
  recallsim generate --graph usf_animal.snet --numsubs 5 --simnum 3 --out sim3.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd.OutOrStdout(), out, simnum)
		},
	}

	f := cmd.Flags()
	f.StringVar(&out, "out", "participants.jsonl", "Output JSONL file")
	f.IntVar(&simnum, "simnum", 0, "Simulation whose seeds are used")
	f.Int("numsubs", 1, "Participants to generate")
	f.Int("numlists", 3, "Lists per participant")
	f.Int("listlength", 35, "Items per list")
	f.Int64("seednum", 0, "First seed of the run")
	return cmd
}

func (a *app) generate(stdout io.Writer, out string, simnum int) (err error) {
	if simnum < 0 {
		return fmt.Errorf("simnum must be non-negative, got %d", simnum)
	}

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

	seed := experiment.SeedForSimulation(settings.SeedNum, simnum, settings.NumSubs, settings.NumLists)
	records, next, err := participant.Generate(truth, items, gen, settings.NumSubs, seed)
	if err != nil {
		return err
	}

	tracker, err := report.NewWalkTracker(out, a.runID, items)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tracker.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for i, rec := range records {
		if err := tracker.LogParticipant(simnum, i, rec); err != nil {
			return fmt.Errorf("failed to write participant %d: %w", i, err)
		}
		start, end := rec.SeedRange()
		fmt.Fprintf(stdout, "participant %d: %d unique items, seeds [%d, %d)\n", i, rec.UniqueNodes(), start, end)
	}

	a.logger.Info().
		Int("simnum", simnum).
		Int("participants", len(records)).
		Int64("start_seed", seed).
		Int64("next_seed", next).
		Str("out", out).
		Msg("Participants written")
	return nil
}
