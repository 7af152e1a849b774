package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/score"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
)

func newScoreCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "score <reconstructed> <truth>",
		Short: "Score one graph file against a ground-truth graph file",
		Long: `Score compares a reconstructed graph with a ground-truth graph, matching
nodes by item label. Items of the truth the reconstruction never mentions
count as unconnected; an item the truth does not know is an error.

Example:
  recallsim score reconstructed.csv usf_animal.snet --threshold 0.5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.score(cmd.OutOrStdout(), args[0], args[1], jsonOut)
		},
	}

	cmd.Flags().Float64("threshold", 0, "Edge weight above which an edge counts as present")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

type scoreOutput struct {
	score.SDT
	Cost           float64 `json:"cost"`
	HitRate        float64 `json:"hit_rate"`
	FalseAlarmRate float64 `json:"falsealarm_rate"`
}

func (a *app) score(stdout io.Writer, reconPath, truthPath string, jsonOut bool) error {
	directed := a.cfg.Directed()
	truth, items, err := a.reader.Read(truthPath, directed)
	if err != nil {
		return err
	}
	recon, reconItems, err := a.reader.Read(reconPath, directed)
	if err != nil {
		return err
	}
	aligned, err := alignGraph(recon, reconItems, items, truth.NumNodes)
	if err != nil {
		return err
	}

	sdt, cost, err := score.Scorer{Threshold: a.cfg.Threshold()}.Score(aligned, truth)
	if err != nil {
		return err
	}

	if jsonOut {
		// NaN rates are not valid JSON
		out := scoreOutput{SDT: sdt, Cost: cost}
		if sdt.Hit+sdt.Miss > 0 {
			out.HitRate = sdt.HitRate()
		}
		if sdt.FalseAlarm+sdt.CorrectRejection > 0 {
			out.FalseAlarmRate = sdt.FalseAlarmRate()
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, line := range []struct {
		label string
		value string
	}{
		{"hit", fmt.Sprint(sdt.Hit)},
		{"miss", fmt.Sprint(sdt.Miss)},
		{"false alarms", fmt.Sprint(sdt.FalseAlarm)},
		{"correct rejections", fmt.Sprint(sdt.CorrectRejection)},
		{"cost", fmt.Sprintf("%g", cost)},
		{"hit rate", fmt.Sprintf("%.4f", sdt.HitRate())},
		{"false alarm rate", fmt.Sprintf("%.4f", sdt.FalseAlarmRate())},
	} {
		fmt.Fprintf(stdout, "%-20s%s\n", line.label+":", line.value)
	}
	return nil
}

// alignGraph re-indexes g, whose node labels are from, onto the indices of to
func alignGraph(g *network.Graph, from, to *network.Items, numNodes int) (*network.Graph, error) {
	index := make([]int, from.Len())
	for i, label := range from.Labels() {
		j, ok := to.Index(label)
		if !ok {
			return nil, &simerr.GraphError{Reason: fmt.Sprintf("item %q is not in the ground truth", label)}
		}
		index[i] = j
	}

	aligned := network.NewGraph(numNodes, g.Directed)
	for _, e := range g.Edges() {
		if err := aligned.SetEdge(index[e.From], index[e.To], e.Weight); err != nil {
			return nil, err
		}
	}
	return aligned, nil
}
