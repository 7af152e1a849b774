// Package reconstruct dispatches a recall corpus to network-reconstruction
// methods and ships a built-in implementation of each of them.
package reconstruct

import (
	"strings"

	"github.com/gilchrisn/recall-network-sim/pkg/participant"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
)

// Method is one of the supported reconstruction methods
type Method int

const (
	NaiveRandomWalk Method = iota
	Goni
	Chan
	Kenett
	FirstEdge
	UInviteFlat
	UInviteHierarchical
)

// Shape describes what a method produces
type Shape int

const (
	// Flat methods return one graph over the global node set
	Flat Shape = iota
	// Hierarchical methods fit one graph per participant and pool them into a group graph
	Hierarchical
)

func (s Shape) String() string {
	if s == Hierarchical {
		return "hierarchical"
	}
	return "flat"
}

// Entry is the dispatch table row of a method
type Entry struct {
	Method        Method
	Name          string
	Description   string
	Space         participant.IndexSpace
	Shape         Shape
	HasLikelihood bool
}

var table = []Entry{
	{NaiveRandomWalk, "rw", "naive random walk: edges between consecutive items", participant.Global, Flat, false},
	{Goni, "goni", "co-occurrence within a sliding window", participant.Global, Flat, false},
	{Chan, "chan", "pathfinder network over list distances", participant.Global, Flat, false},
	{Kenett, "kenett", "maximum-correlation spanning forest over item occurrences", participant.Global, Flat, false},
	{FirstEdge, "fe", "first edge of every list", participant.Global, Flat, false},
	{UInviteFlat, "uinvite_flat", "censored random walk likelihood over the pooled corpus", participant.Global, Flat, true},
	{UInviteHierarchical, "uinvite_hierarchical", "per-participant U-INVITE pooled through an edge prior", participant.Local, Hierarchical, false},
}

// Methods returns the dispatch table in declaration order
func Methods() []Entry {
	return append([]Entry(nil), table...)
}

// Lookup returns the dispatch table entry of m
func (m Method) Lookup() (Entry, bool) {
	if m < 0 || int(m) >= len(table) {
		return Entry{}, false
	}
	return table[m], true
}

func (m Method) String() string {
	if e, ok := m.Lookup(); ok {
		return e.Name
	}
	return "unknown"
}

// ParseMethod resolves a method name; unknown names are a ConfigError
func ParseMethod(name string) (Method, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, e := range table {
		if e.Name == n {
			return e.Method, nil
		}
	}
	return 0, simerr.Config("methods", name, "unknown reconstruction method")
}

// ParseMethods resolves a list of names, rejecting duplicates
func ParseMethods(names []string) ([]Method, error) {
	if len(names) == 0 {
		return nil, simerr.Config("methods", nil, "at least one method is required")
	}
	seen := make(map[Method]bool, len(names))
	methods := make([]Method, 0, len(names))
	for _, name := range names {
		m, err := ParseMethod(name)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			return nil, simerr.Config("methods", name, "listed twice")
		}
		seen[m] = true
		methods = append(methods, m)
	}
	return methods, nil
}
