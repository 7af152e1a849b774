package reconstruct

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
)

// Bound caps the number of candidate edges examined in a search phase
type Bound struct {
	limited bool
	limit   int
}

// Unbounded places no cap on a phase
func Unbounded() Bound { return Bound{} }

// Limit caps a phase at n candidates
func Limit(n int) Bound { return Bound{limited: true, limit: n} }

// ParseBound accepts "inf", "none", "unbounded", "" or a non-negative integer
func ParseBound(value string) (Bound, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "", "inf", "+inf", "infinity", "none", "unbounded":
		return Unbounded(), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return Bound{}, fmt.Errorf("bound %q: expected a non-negative integer or inf", value)
	}
	return Limit(n), nil
}

// Allows reports whether another candidate may be examined after used ones
func (b Bound) Allows(used int) bool {
	return !b.limited || used < b.limit
}

// IsLimited reports whether the bound caps anything
func (b Bound) IsLimited() bool { return b.limited }

func (b Bound) String() string {
	if !b.limited {
		return "inf"
	}
	return strconv.Itoa(b.limit)
}

// Start graph heuristics for U-INVITE
const (
	StartGoniValid = "goni_valid"
	StartNRW       = "nrw"
)

// Prior methods
const (
	PriorZIBB         = "zeroinflatedbetabinomial"
	PriorBetaBinomial = "betabinomial"
)

// Follow types aggregate list distances in the Chan method
const (
	FollowAvg = "avg"
	FollowMin = "min"
	FollowMax = "max"
)

// Fitinfo holds the options of the fitting process
type Fitinfo struct {
	StartGraph    string  `yaml:"startGraph"`
	Record        bool    `yaml:"record"`
	Directed      bool    `yaml:"directed"`
	PriorMethod   string  `yaml:"prior_method"`
	ZIBBP         float64 `yaml:"zibb_p"`
	PriorA        float64 `yaml:"prior_a"`
	PriorB        float64 `yaml:"prior_b"`
	GoniSize      int     `yaml:"goni_size"`
	GoniThreshold int     `yaml:"goni_threshold"`
	FollowType    string  `yaml:"followtype"`
	PruneLimit    Bound   `yaml:"-"`
	TriangleLimit Bound   `yaml:"-"`
	OtherLimit    Bound   `yaml:"-"`

	// PriorMinCount is the participant support an edge needs to enter the
	// prior used while fitting; GroupMinCount is the support it needs to
	// enter the final group graph.
	PriorMinCount int `yaml:"prior_mincount"`
	GroupMinCount int `yaml:"group_mincount"`

	MaxPasses     int     `yaml:"max_passes"`
	EdgeThreshold float64 `yaml:"edge_threshold"`
}

// DefaultFitinfo returns the settings used by the USF reconstruction study
func DefaultFitinfo() Fitinfo {
	return Fitinfo{
		StartGraph:    StartGoniValid,
		PriorMethod:   PriorZIBB,
		ZIBBP:         0.5,
		PriorA:        2,
		PriorB:        1,
		GoniSize:      2,
		GoniThreshold: 2,
		FollowType:    FollowAvg,
		PruneLimit:    Unbounded(),
		TriangleLimit: Unbounded(),
		OtherLimit:    Unbounded(),
		PriorMinCount: 1,
		GroupMinCount: 2,
		MaxPasses:     10,
		EdgeThreshold: 0.5,
	}
}

// Validate returns a ConfigError for the first invalid option
func (f Fitinfo) Validate() error {
	switch f.StartGraph {
	case StartGoniValid, StartNRW:
	default:
		return simerr.Config("startGraph", f.StartGraph, "expected %s or %s", StartGoniValid, StartNRW)
	}
	switch f.PriorMethod {
	case PriorZIBB, PriorBetaBinomial:
	default:
		return simerr.Config("prior_method", f.PriorMethod, "expected %s or %s", PriorZIBB, PriorBetaBinomial)
	}
	switch f.FollowType {
	case FollowAvg, FollowMin, FollowMax:
	default:
		return simerr.Config("followtype", f.FollowType, "expected avg, min or max")
	}
	if !(f.ZIBBP >= 0 && f.ZIBBP <= 1) {
		return simerr.Config("zibb_p", f.ZIBBP, "probability must be in [0,1]")
	}
	if !(f.PriorA > 0) {
		return simerr.Config("prior_a", f.PriorA, "must be positive")
	}
	if !(f.PriorB > 0) {
		return simerr.Config("prior_b", f.PriorB, "must be positive")
	}
	if f.GoniSize < 1 {
		return simerr.Config("goni_size", f.GoniSize, "must be at least 1")
	}
	if f.GoniThreshold < 1 {
		return simerr.Config("goni_threshold", f.GoniThreshold, "must be at least 1")
	}
	if f.PriorMinCount < 0 {
		return simerr.Config("prior_mincount", f.PriorMinCount, "must be non-negative")
	}
	if f.GroupMinCount < 0 {
		return simerr.Config("group_mincount", f.GroupMinCount, "must be non-negative")
	}
	if f.MaxPasses < 1 {
		return simerr.Config("max_passes", f.MaxPasses, "must be at least 1")
	}
	if !(f.EdgeThreshold >= 0 && f.EdgeThreshold < 1) {
		return simerr.Config("edge_threshold", f.EdgeThreshold, "must be in [0,1)")
	}
	return nil
}
