package walk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
)

// JumpType selects the distribution a random restart draws its target from
type JumpType string

const (
	JumpStationary JumpType = "stationary"
	JumpUniform    JumpType = "uniform"
)

// StartKind selects how the first node of each list is chosen
type StartKind int

const (
	StartStationary StartKind = iota
	StartUniform
	StartNode
)

// Start is the starting-node policy of a list (startX)
type Start struct {
	Kind StartKind
	Node int // only for StartNode
}

func (s Start) String() string {
	switch s.Kind {
	case StartStationary:
		return "stationary"
	case StartUniform:
		return "uniform"
	default:
		return strconv.Itoa(s.Node)
	}
}

// ParseStart parses "stationary", "uniform", a node index, or an item label.
// items may be nil when only numeric node ids are expected.
func ParseStart(value string, items *network.Items) (Start, error) {
	v := strings.TrimSpace(value)
	switch strings.ToLower(v) {
	case "stationary", "":
		return Start{Kind: StartStationary}, nil
	case "uniform":
		return Start{Kind: StartUniform}, nil
	}
	if node, err := strconv.Atoi(v); err == nil {
		return Start{Kind: StartNode, Node: node}, nil
	}
	if items != nil {
		if node, ok := items.Index(v); ok {
			return Start{Kind: StartNode, Node: node}, nil
		}
	}
	return Start{}, simerr.Config("startX", value, "expected stationary, uniform, a node index or a known item label")
}

// Config describes what the simulated data should look like
type Config struct {
	Jump           float64  `json:"jump" yaml:"jump"`
	JumpType       JumpType `json:"jumptype" yaml:"jumptype"`
	Priming        float64  `json:"priming" yaml:"priming"`
	JumpOnCensored *float64 `json:"jumponcensored,omitempty" yaml:"jumponcensored,omitempty"`
	CensorFault    float64  `json:"censor_fault" yaml:"censor_fault"`
	EmissionFault  float64  `json:"emission_fault" yaml:"emission_fault"`
	Start          Start    `json:"-" yaml:"-"`
	NumX           int      `json:"numx" yaml:"numx"`
	Trim           int      `json:"trim" yaml:"trim"`

	// CensorRepeats suppresses emission of nodes already emitted in the
	// same list, producing lists of unique items.
	CensorRepeats bool `json:"censor_repeats" yaml:"censor_repeats"`

	// MaxSteps caps internal walk steps per list; 0 means 1000*Trim*N.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`
}

// DefaultConfig mirrors the toy-data settings of the USF reconstruction study
func DefaultConfig() Config {
	return Config{
		Jump:          0.0,
		JumpType:      JumpStationary,
		Priming:       0.0,
		CensorFault:   0.0,
		EmissionFault: 0.0,
		Start:         Start{Kind: StartStationary},
		NumX:          3,
		Trim:          35,
	}
}

// Validate checks the configuration against a graph of numNodes nodes
func (c Config) Validate(numNodes int) error {
	if c.Trim <= 0 {
		return simerr.Config("trim", c.Trim, "must be positive")
	}
	if c.NumX <= 0 {
		return simerr.Config("numx", c.NumX, "must be positive")
	}

	type namedProb struct {
		name  string
		value float64
	}
	probs := []namedProb{
		{"jump", c.Jump},
		{"priming", c.Priming},
		{"censor_fault", c.CensorFault},
		{"emission_fault", c.EmissionFault},
	}
	if c.JumpOnCensored != nil {
		probs = append(probs, namedProb{"jumponcensored", *c.JumpOnCensored})
	}
	for _, p := range probs {
		if !(p.value >= 0 && p.value <= 1) {
			return simerr.Config(p.name, p.value, "probability must be in [0,1]")
		}
	}

	if c.CensorFault == 1 && c.EmissionFault == 0 {
		return simerr.Config("censor_fault", c.CensorFault, "no item could ever be emitted")
	}

	switch c.JumpType {
	case JumpStationary, JumpUniform:
	default:
		return simerr.Config("jumptype", c.JumpType, "expected stationary or uniform")
	}

	switch c.Start.Kind {
	case StartStationary, StartUniform:
	case StartNode:
		if c.Start.Node < 0 || c.Start.Node >= numNodes {
			return simerr.Config("startX", c.Start.Node, "start node out of range [0,%d)", numNodes)
		}
	default:
		return simerr.Config("startX", c.Start.Kind, "unknown start policy")
	}

	if c.CensorRepeats && c.Trim > numNodes {
		return simerr.Config("trim", c.Trim, "cannot emit %d unique items from %d nodes", c.Trim, numNodes)
	}
	if c.MaxSteps < 0 {
		return simerr.Config("max_steps", c.MaxSteps, "must be non-negative")
	}
	return nil
}

func (c Config) maxSteps(numNodes int) int {
	if c.MaxSteps > 0 {
		return c.MaxSteps
	}
	return 1000 * c.Trim * max(numNodes, 1)
}

func (c Config) String() string {
	joc := "unset"
	if c.JumpOnCensored != nil {
		joc = strconv.FormatFloat(*c.JumpOnCensored, 'g', -1, 64)
	}
	return fmt.Sprintf("jump=%g jumptype=%s priming=%g jumponcensored=%s censor_fault=%g emission_fault=%g startX=%s numx=%d trim=%d",
		c.Jump, c.JumpType, c.Priming, joc, c.CensorFault, c.EmissionFault, c.Start, c.NumX, c.Trim)
}
