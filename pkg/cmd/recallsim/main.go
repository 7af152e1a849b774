// Command recallsim simulates verbal-fluency participants on a ground-truth
// semantic network, reconstructs the network with each configured method and
// scores the reconstructions against the truth.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/recall-network-sim/pkg/config"
	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once flags are parsed
type app struct {
	cfg    *config.Config
	reader network.Reader
	logger zerolog.Logger
	runID  string
}

// flagKeys maps command-line flags onto configuration keys. Only flags that
// were set on the command line override the file and environment.
var flagKeys = map[string]string{
	"graph":      "input.graph",
	"directed":   "input.directed",
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"numsims":    "simulation.numsims",
	"numsubs":    "simulation.numsubs",
	"numlists":   "simulation.numlists",
	"listlength": "simulation.listlength",
	"seednum":    "simulation.seednum",
	"methods":    "simulation.methods",
	"workers":    "performance.num_workers",
	"threshold":  "scoring.threshold",
	"results":    "output.results",
	"walks":      "output.walks_file",
	"skips":      "output.skips_file",
	"manifest":   "output.manifest",
}

func newRootCmd() *cobra.Command {
	a := &app{reader: network.FileReader{}}
	rootCmd := &cobra.Command{
		Use:   "recallsim",
		Short: "Recall network simulation and reconstruction harness",
		Long: `recallsim generates censored random walks over a ground-truth semantic
network, reconstructs the network from growing groups of simulated
participants and writes one scored row per method and group size.

Configuration comes from defaults, an optional --config file, RECALLSIM_*
environment variables (a .env file is loaded first) and flags, in
increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Configuration file (yaml, json or toml)")
	flags.String("graph", "", "Ground-truth graph file (edge list or labelled JSON matrix)")
	flags.Bool("directed", false, "Treat the ground-truth graph as directed")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")

	rootCmd.AddCommand(
		newRunCmd(a),
		newGenerateCmd(a),
		newSummarizeCmd(a),
		newScoreCmd(a),
		newMethodsCmd(),
	)
	return rootCmd
}

// load builds the configuration and logger for the command about to run
func (a *app) load(cmd *cobra.Command) error {
	a.cfg = config.NewConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := a.cfg.LoadFromFile(path); err != nil {
			return err
		}
	}

	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := a.cfg.Viper().BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}

	a.runID = uuid.NewString()
	a.logger = a.cfg.CreateLogger().With().Str("run_id", a.runID).Logger()
	return nil
}

// loadGraph reads the configured ground-truth graph
func (a *app) loadGraph() (*network.Graph, *network.Items, error) {
	path := a.cfg.GraphPath()
	if path == "" {
		return nil, nil, simerr.Config("input.graph", nil, "a ground-truth graph is required (--graph)")
	}
	g, items, err := a.reader.Read(path, a.cfg.Directed())
	if err != nil {
		return nil, nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: "invalid graph", Err: err}
	}

	a.logger.Info().
		Str("path", path).
		Int("nodes", g.NumNodes).
		Int("edges", g.NumEdges()).
		Bool("directed", g.Directed).
		Msg("Loaded ground-truth graph")
	return g, items, nil
}
