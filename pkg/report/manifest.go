package report

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SimulationSeeds records the seed slice a simulation consumed
type SimulationSeeds struct {
	SimNum    int   `yaml:"simnum"`
	StartSeed int64 `yaml:"start_seed"`
	EndSeed   int64 `yaml:"end_seed"`
}

// GraphInfo describes the ground-truth graph of a run
type GraphInfo struct {
	Path       string `yaml:"path"`
	Directed   bool   `yaml:"directed"`
	Nodes      int    `yaml:"nodes"`
	Edges      int    `yaml:"edges"`
	Components int    `yaml:"components"`
}

// Manifest summarises one run so its results file can be reproduced
type Manifest struct {
	RunID       string            `yaml:"run_id"`
	StartedAt   time.Time         `yaml:"started_at"`
	FinishedAt  time.Time         `yaml:"finished_at"`
	Graph       GraphInfo         `yaml:"graph"`
	Methods     []string          `yaml:"methods"`
	Settings    map[string]any    `yaml:"settings"`
	Simulations []SimulationSeeds `yaml:"simulations"`
	Rows        int               `yaml:"rows"`
	Skips       []Skip            `yaml:"skips,omitempty"`
	Error       string            `yaml:"error,omitempty"`
}

// WriteManifest writes m as YAML, replacing any previous file
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}
