// Package simerr defines the error taxonomy shared by the simulation harness.
//
// Every structured error matches one sentinel through errors.Is, so callers
// can branch on the category without caring which package produced it:
//
//	if errors.Is(err, simerr.ErrReconstruction) {
//		// skip this (simnum, ssnum, method) unit and carry on
//	}
package simerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure category.
var (
	// ErrConfig indicates invalid generator, fit, or run parameters.
	ErrConfig = errors.New("invalid configuration")

	// ErrFileFormat indicates a malformed ground-truth input file.
	ErrFileFormat = errors.New("malformed graph file")

	// ErrGraph indicates a degenerate graph that prevents walk generation.
	ErrGraph = errors.New("degenerate graph")

	// ErrReconstruction indicates a reconstruction method failed for one unit.
	ErrReconstruction = errors.New("reconstruction failed")

	// ErrDimensionMismatch indicates the scorer was given incompatible graphs.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// ConfigError reports an invalid parameter value.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("config: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// Config is shorthand for building a ConfigError.
func Config(field string, value any, format string, args ...any) error {
	return &ConfigError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// FileFormatError reports a problem with a ground-truth input file.
// Line is 1-based and zero when the problem is not tied to a line.
type FileFormatError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *FileFormatError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("graph file %s:%d: %s", e.Path, e.Line, msg)
	}
	return fmt.Sprintf("graph file %s: %s", e.Path, msg)
}

func (e *FileFormatError) Unwrap() error { return e.Err }

func (e *FileFormatError) Is(target error) bool { return target == ErrFileFormat }

// GraphError reports a graph on which no walk can be generated.
type GraphError struct {
	Reason string
}

func (e *GraphError) Error() string { return "graph: " + e.Reason }

func (e *GraphError) Is(target error) bool { return target == ErrGraph }

// ReconstructionError wraps a failure of one reconstruction method call.
// SimNum and SSNum are -1 when the call happened outside a simulation run.
type ReconstructionError struct {
	Method string
	SimNum int
	SSNum  int
	Err    error
}

func (e *ReconstructionError) Error() string {
	if e.SimNum < 0 {
		return fmt.Sprintf("reconstruction %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("reconstruction %s (sim %d, ssnum %d): %v", e.Method, e.SimNum, e.SSNum, e.Err)
}

func (e *ReconstructionError) Unwrap() error { return e.Err }

func (e *ReconstructionError) Is(target error) bool { return target == ErrReconstruction }

// DimensionMismatchError reports a reconstructed graph whose node set is not
// a subset of the ground-truth node set.
type DimensionMismatchError struct {
	Reconstructed int
	Truth         int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("reconstructed graph has %d nodes, ground truth has %d", e.Reconstructed, e.Truth)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// IsRecoverable reports whether err only affects a single
// (simnum, ssnum, method) unit and the run may continue.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrReconstruction) || errors.Is(err, ErrDimensionMismatch)
}
