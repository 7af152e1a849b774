package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/recall-network-sim/pkg/reconstruct"
)

type methodInfo struct {
	Name          string `json:"name"`
	Shape         string `json:"shape"`
	Space         string `json:"space"`
	HasLikelihood bool   `json:"has_likelihood"`
	Description   string `json:"description"`
}

func newMethodsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "methods",
		Short: "List the available reconstruction methods",
		Args:  cobra.NoArgs,
		// no configuration needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []methodInfo
			for _, e := range reconstruct.Methods() {
				infos = append(infos, methodInfo{
					Name:          e.Name,
					Shape:         e.Shape.String(),
					Space:         e.Space.String(),
					HasLikelihood: e.HasLikelihood,
					Description:   e.Description,
				})
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(infos)
			}
			for _, m := range infos {
				fmt.Fprintf(out, "%-22s %-13s %-7s %s\n", m.Name, m.Shape, m.Space, m.Description)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
