// Package config loads run configuration with viper and builds the typed
// settings of every stage of the harness.
package config

import (
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/reconstruct"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// EnvPrefix prefixes environment overrides, e.g. RECALLSIM_SIMULATION_NUMSIMS
const EnvPrefix = "RECALLSIM"

// Config manages run configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Simulation parameters
	v.SetDefault("simulation.numsubs", 1)
	v.SetDefault("simulation.numlists", 3)
	v.SetDefault("simulation.listlength", 35)
	v.SetDefault("simulation.numsims", 10)
	v.SetDefault("simulation.methods", []string{"uinvite_hierarchical"})
	v.SetDefault("simulation.seednum", 0)

	// Generator parameters
	v.SetDefault("generator.jump", 0.0)
	v.SetDefault("generator.jumptype", string(walk.JumpStationary))
	v.SetDefault("generator.priming", 0.0)
	v.SetDefault("generator.jumponcensored", "")
	v.SetDefault("generator.censor_fault", 0.0)
	v.SetDefault("generator.emission_fault", 0.0)
	v.SetDefault("generator.startX", "stationary")
	v.SetDefault("generator.censor_repeats", false)
	v.SetDefault("generator.max_steps", 0)

	// Fitting parameters
	fit := reconstruct.DefaultFitinfo()
	v.SetDefault("fit.startGraph", fit.StartGraph)
	v.SetDefault("fit.record", fit.Record)
	v.SetDefault("fit.directed", fit.Directed)
	v.SetDefault("fit.prior_method", fit.PriorMethod)
	v.SetDefault("fit.zibb_p", fit.ZIBBP)
	v.SetDefault("fit.prior_a", fit.PriorA)
	v.SetDefault("fit.prior_b", fit.PriorB)
	v.SetDefault("fit.goni_size", fit.GoniSize)
	v.SetDefault("fit.goni_threshold", fit.GoniThreshold)
	v.SetDefault("fit.followtype", fit.FollowType)
	v.SetDefault("fit.prune_limit", "inf")
	v.SetDefault("fit.triangle_limit", "inf")
	v.SetDefault("fit.other_limit", "inf")
	v.SetDefault("fit.prior_mincount", fit.PriorMinCount)
	v.SetDefault("fit.group_mincount", fit.GroupMinCount)
	v.SetDefault("fit.max_passes", fit.MaxPasses)
	v.SetDefault("fit.edge_threshold", fit.EdgeThreshold)

	// Input and output
	v.SetDefault("input.graph", "")
	v.SetDefault("input.directed", false)
	v.SetDefault("output.results", "usf_reconstruction_results.csv")
	v.SetDefault("output.walks_file", "")
	v.SetDefault("output.skips_file", "")
	v.SetDefault("output.manifest", "")

	v.SetDefault("scoring.threshold", 0.0)

	// Performance parameters
	v.SetDefault("performance.num_workers", runtime.NumCPU())

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return simerr.Config("config", path, "cannot load: %v", err)
	}
	return nil
}

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// Viper exposes the underlying store for flag binding
func (c *Config) Viper() *viper.Viper { return c.v }

// AllSettings returns every resolved key, for the run manifest
func (c *Config) AllSettings() map[string]any { return c.v.AllSettings() }

func (c *Config) NumSubs() int    { return c.v.GetInt("simulation.numsubs") }
func (c *Config) NumLists() int   { return c.v.GetInt("simulation.numlists") }
func (c *Config) ListLength() int { return c.v.GetInt("simulation.listlength") }
func (c *Config) NumSims() int    { return c.v.GetInt("simulation.numsims") }
func (c *Config) SeedNum() int64  { return c.v.GetInt64("simulation.seednum") }

// MethodNames accepts a list or a comma/space separated string
func (c *Config) MethodNames() []string {
	var names []string
	for _, entry := range c.v.GetStringSlice("simulation.methods") {
		for _, name := range strings.FieldsFunc(entry, func(r rune) bool { return r == ',' || r == ' ' }) {
			names = append(names, name)
		}
	}
	return names
}

func (c *Config) GraphPath() string    { return c.v.GetString("input.graph") }
func (c *Config) Directed() bool       { return c.v.GetBool("input.directed") }
func (c *Config) ResultsPath() string  { return c.v.GetString("output.results") }
func (c *Config) WalksPath() string    { return c.v.GetString("output.walks_file") }
func (c *Config) SkipsPath() string    { return c.v.GetString("output.skips_file") }
func (c *Config) ManifestPath() string { return c.v.GetString("output.manifest") }
func (c *Config) Threshold() float64   { return c.v.GetFloat64("scoring.threshold") }
func (c *Config) NumWorkers() int      { return c.v.GetInt("performance.num_workers") }
func (c *Config) LogLevel() string     { return c.v.GetString("logging.level") }
func (c *Config) LogFormat() string    { return c.v.GetString("logging.format") }

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	return c.createLogger(os.Stderr)
}

func (c *Config) createLogger(out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	if c.LogFormat() != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "recallsim").Logger()
}

// Settings are the run-level knobs
type Settings struct {
	NumSubs    int
	NumLists   int
	ListLength int
	NumSims    int
	Methods    []reconstruct.Method
	SeedNum    int64
	Threshold  float64
	NumWorkers int
}

// Settings builds and validates the run-level knobs
func (c *Config) Settings() (Settings, error) {
	s := Settings{
		NumSubs:    c.NumSubs(),
		NumLists:   c.NumLists(),
		ListLength: c.ListLength(),
		NumSims:    c.NumSims(),
		SeedNum:    c.SeedNum(),
		Threshold:  c.Threshold(),
		NumWorkers: c.NumWorkers(),
	}

	for _, p := range []struct {
		key   string
		value int
	}{
		{"simulation.numsubs", s.NumSubs},
		{"simulation.numlists", s.NumLists},
		{"simulation.listlength", s.ListLength},
		{"simulation.numsims", s.NumSims},
		{"performance.num_workers", s.NumWorkers},
	} {
		if p.value < 1 {
			return Settings{}, simerr.Config(p.key, p.value, "must be at least 1")
		}
	}
	if s.SeedNum < 0 {
		return Settings{}, simerr.Config("simulation.seednum", s.SeedNum, "must be non-negative")
	}
	if s.Threshold < 0 {
		return Settings{}, simerr.Config("scoring.threshold", s.Threshold, "must be non-negative")
	}

	methods, err := reconstruct.ParseMethods(c.MethodNames())
	if err != nil {
		return Settings{}, err
	}
	s.Methods = methods
	return s, nil
}

// GeneratorConfig builds the walk generator configuration. numlists and
// listlength supply NumX and Trim. items resolves a startX given as a label
// and bounds a numeric one; it may be nil.
func (c *Config) GeneratorConfig(items *network.Items) (walk.Config, error) {
	cfg := walk.Config{
		Jump:          c.v.GetFloat64("generator.jump"),
		JumpType:      walk.JumpType(strings.ToLower(c.v.GetString("generator.jumptype"))),
		Priming:       c.v.GetFloat64("generator.priming"),
		CensorFault:   c.v.GetFloat64("generator.censor_fault"),
		EmissionFault: c.v.GetFloat64("generator.emission_fault"),
		NumX:          c.NumLists(),
		Trim:          c.ListLength(),
		CensorRepeats: c.v.GetBool("generator.censor_repeats"),
		MaxSteps:      c.v.GetInt("generator.max_steps"),
	}

	joc, err := optionalFloat(c.v.GetString("generator.jumponcensored"))
	if err != nil {
		return walk.Config{}, simerr.Config("generator.jumponcensored", c.v.GetString("generator.jumponcensored"), "expected a probability or none")
	}
	cfg.JumpOnCensored = joc

	cfg.Start, err = walk.ParseStart(c.v.GetString("generator.startX"), items)
	if err != nil {
		return walk.Config{}, err
	}

	numNodes := 0
	if items != nil {
		numNodes = items.Len()
	} else if cfg.Start.Kind == walk.StartNode {
		numNodes = cfg.Start.Node + 1
	}
	if items == nil && cfg.CensorRepeats {
		numNodes = max(numNodes, cfg.Trim)
	}
	if err := cfg.Validate(numNodes); err != nil {
		return walk.Config{}, err
	}
	return cfg, nil
}

func optionalFloat(value string) (*float64, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none", "null", "nil":
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Fitinfo builds and validates the fitting options
func (c *Config) Fitinfo() (reconstruct.Fitinfo, error) {
	fit := reconstruct.Fitinfo{
		StartGraph:    c.v.GetString("fit.startGraph"),
		Record:        c.v.GetBool("fit.record"),
		Directed:      c.v.GetBool("fit.directed"),
		PriorMethod:   c.v.GetString("fit.prior_method"),
		ZIBBP:         c.v.GetFloat64("fit.zibb_p"),
		PriorA:        c.v.GetFloat64("fit.prior_a"),
		PriorB:        c.v.GetFloat64("fit.prior_b"),
		GoniSize:      c.v.GetInt("fit.goni_size"),
		GoniThreshold: c.v.GetInt("fit.goni_threshold"),
		FollowType:    c.v.GetString("fit.followtype"),
		PriorMinCount: c.v.GetInt("fit.prior_mincount"),
		GroupMinCount: c.v.GetInt("fit.group_mincount"),
		MaxPasses:     c.v.GetInt("fit.max_passes"),
		EdgeThreshold: c.v.GetFloat64("fit.edge_threshold"),
	}

	for _, b := range []struct {
		key string
		dst *reconstruct.Bound
	}{
		{"fit.prune_limit", &fit.PruneLimit},
		{"fit.triangle_limit", &fit.TriangleLimit},
		{"fit.other_limit", &fit.OtherLimit},
	} {
		bound, err := reconstruct.ParseBound(c.v.GetString(b.key))
		if err != nil {
			return reconstruct.Fitinfo{}, simerr.Config(b.key, c.v.GetString(b.key), "%v", err)
		}
		*b.dst = bound
	}

	if err := fit.Validate(); err != nil {
		return reconstruct.Fitinfo{}, err
	}
	return fit, nil
}
