// Package spec implements specifications of the spaces an agent acts
// in. The action space descriptors in this package decide, once and at
// construction, which family of action distribution a policy uses.
package spec

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification an Environment is. An
// Environment can specify the layout of an action, an observation, a
// discount, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

// String implements the fmt.Stringer interface
func (s SpecType) String() string {
	switch s {
	case Action:
		return "Action"
	case Observation:
		return "Observation"
	case Discount:
		return "Discount"
	case Reward:
		return "Reward"
	default:
		return fmt.Sprintf("SpecType(%d)", int(s))
	}
}

// Cardinality determines the cardinality of a number (discrete or
// continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Environment implements an environment specification, which tells the
// type, shape, and bounds of an action, observation, discount, or
// reward in an environment
type Environment struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewEnvironment constructs a new environment specification.
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// argument describes whether the values that the spec describes are
// continuous or discrete.
func NewEnvironment(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector, cardinality Cardinality) (Environment, error) {
	if shape.Len() != lowerBound.Len() {
		return Environment{}, fmt.Errorf("newEnvironment: shape length %v "+
			"must match lower bounds length %v", shape.Len(),
			lowerBound.Len())
	}
	if shape.Len() != upperBound.Len() {
		return Environment{}, fmt.Errorf("newEnvironment: shape length %v "+
			"must match upper bounds length %v", shape.Len(),
			upperBound.Len())
	}
	return Environment{shape, t, lowerBound, upperBound, cardinality}, nil
}
