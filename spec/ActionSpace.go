package spec

import (
	"errors"
	"fmt"
)

// ErrUnsupportedActionSpace is returned when an action space is neither
// discrete nor continuous. It indicates a configuration error.
var ErrUnsupportedActionSpace = errors.New("unsupported action space")

// ActionSpace describes the space of actions a policy selects from. The
// only implementations are DiscreteSpace and ContinuousSpace.
type ActionSpace interface {
	// Cardinality returns whether actions are discrete or continuous
	Cardinality() Cardinality

	// Outputs returns the number of distribution outputs needed to
	// parameterize a distribution over the space: the number of
	// actions for a discrete space and the action dimension for a
	// continuous space.
	Outputs() int

	actionSpace()
}

// DiscreteSpace is a space of N actions, indexed 0, 1, ..., N-1
type DiscreteSpace struct {
	N int
}

// NewDiscrete returns a new discrete action space with n actions
func NewDiscrete(n int) (DiscreteSpace, error) {
	if n <= 0 {
		return DiscreteSpace{}, fmt.Errorf("newDiscrete: number of actions "+
			"must be positive but got %v", n)
	}
	return DiscreteSpace{N: n}, nil
}

// Cardinality implements the ActionSpace interface
func (DiscreteSpace) Cardinality() Cardinality { return Discrete }

// Outputs implements the ActionSpace interface
func (d DiscreteSpace) Outputs() int { return d.N }

func (DiscreteSpace) actionSpace() {}

// String implements the fmt.Stringer interface
func (d DiscreteSpace) String() string {
	return fmt.Sprintf("Discrete(%d)", d.N)
}

// ContinuousSpace is a space of real-valued action vectors of length
// Dim
type ContinuousSpace struct {
	Dim int
}

// NewContinuous returns a new continuous action space of dimension dim
func NewContinuous(dim int) (ContinuousSpace, error) {
	if dim <= 0 {
		return ContinuousSpace{}, fmt.Errorf("newContinuous: action "+
			"dimension must be positive but got %v", dim)
	}
	return ContinuousSpace{Dim: dim}, nil
}

// Cardinality implements the ActionSpace interface
func (ContinuousSpace) Cardinality() Cardinality { return Continuous }

// Outputs implements the ActionSpace interface
func (c ContinuousSpace) Outputs() int { return c.Dim }

func (ContinuousSpace) actionSpace() {}

// String implements the fmt.Stringer interface
func (c ContinuousSpace) String() string {
	return fmt.Sprintf("Continuous(%d)", c.Dim)
}

// NewActionSpace converts an action specification of an environment
// into an ActionSpace. Discrete actions are assumed to be the integers
// 0, 1, ..., UpperBound[0], so that the number of actions is
// UpperBound[0] + 1. Continuous actions have dimension equal to the
// length of the specification's shape.
func NewActionSpace(env Environment) (ActionSpace, error) {
	if env.Type != Action {
		return nil, fmt.Errorf("newActionSpace: expected an %v "+
			"specification but got %v", Action, env.Type)
	}

	switch env.Cardinality {
	case Discrete:
		if env.UpperBound == nil || env.UpperBound.Len() != 1 {
			return nil, fmt.Errorf("newActionSpace: discrete actions must "+
				"be scalar: %w", ErrUnsupportedActionSpace)
		}
		return NewDiscrete(int(env.UpperBound.AtVec(0)) + 1)

	case Continuous:
		if env.Shape == nil {
			return nil, fmt.Errorf("newActionSpace: continuous actions " +
				"require a shape")
		}
		return NewContinuous(env.Shape.Len())

	default:
		return nil, fmt.Errorf("newActionSpace: cardinality %q: %w",
			env.Cardinality, ErrUnsupportedActionSpace)
	}
}

// ActionSpaceConfig is a serializable description of an ActionSpace.
// Only N is consulted for discrete spaces and only Dim for continuous
// spaces.
type ActionSpaceConfig struct {
	Cardinality Cardinality `json:"Cardinality" mapstructure:"cardinality"`
	N           int         `json:"N,omitempty" mapstructure:"n"`
	Dim         int         `json:"Dim,omitempty" mapstructure:"dim"`
}

// ActionSpace returns the ActionSpace described by the configuration
func (a ActionSpaceConfig) ActionSpace() (ActionSpace, error) {
	switch a.Cardinality {
	case Discrete:
		return NewDiscrete(a.N)

	case Continuous:
		return NewContinuous(a.Dim)

	default:
		return nil, fmt.Errorf("actionSpace: cardinality %q: %w",
			a.Cardinality, ErrUnsupportedActionSpace)
	}
}

// ConfigOf returns the configuration describing an ActionSpace
func ConfigOf(space ActionSpace) (ActionSpaceConfig, error) {
	switch s := space.(type) {
	case DiscreteSpace:
		return ActionSpaceConfig{Cardinality: Discrete, N: s.N}, nil

	case ContinuousSpace:
		return ActionSpaceConfig{Cardinality: Continuous, Dim: s.Dim}, nil

	default:
		return ActionSpaceConfig{}, fmt.Errorf("configOf: %T: %w", space,
			ErrUnsupportedActionSpace)
	}
}
