package distribution

import (
	"fmt"

	"github.com/samuelfneumann/actiondist/initwfn"
	"github.com/samuelfneumann/actiondist/spec"
	G "gorgonia.org/gorgonia"
)

// New returns the default head for an action space: a Categorical
// head for a spec.DiscreteSpace and a DiagGaussian head for a
// spec.ContinuousSpace. Any other action space results in an error
// wrapping ErrUnsupportedActionSpace.
func New(g *G.ExprGraph, features int, space spec.ActionSpace,
	seed uint64) (Head, error) {
	switch s := space.(type) {
	case spec.DiscreteSpace:
		head, err := NewDefaultCategorical(g, features, s.N, seed)
		if err != nil {
			return nil, fmt.Errorf("new: %w", err)
		}
		return head, nil

	case spec.ContinuousSpace:
		head, err := NewDefaultDiagGaussian(g, features, s.Dim, seed)
		if err != nil {
			return nil, fmt.Errorf("new: %w", err)
		}
		return head, nil

	default:
		return nil, fmt.Errorf("new: %v: %w", space, ErrUnsupportedActionSpace)
	}
}

// Config describes a head so that it can be stored in and loaded
// from JSON configuration files. If WeightInit is nil, the default
// weight initializer of the head is used, seeded with Seed. If
// BiasInit is nil, the bias is initialized to zero.
type Config struct {
	Features    int
	ActionSpace spec.ActionSpaceConfig
	WeightInit  *initwfn.InitWFn `json:",omitempty"`
	BiasInit    *initwfn.InitWFn `json:",omitempty"`
	Seed        uint64
}

// Create adds the head described by the Config to graph g
func (c Config) Create(g *G.ExprGraph) (Head, error) {
	space, err := c.ActionSpace.ActionSpace()
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if c.WeightInit == nil && c.BiasInit == nil {
		return New(g, c.Features, space, c.Seed)
	}

	weightInit := c.WeightInit
	biasInit := c.BiasInit
	if biasInit == nil {
		if biasInit, err = initwfn.DefaultBias(); err != nil {
			return nil, fmt.Errorf("create: %v", err)
		}
	}

	switch s := space.(type) {
	case spec.DiscreteSpace:
		if weightInit == nil {
			weightInit, err = initwfn.DefaultCategoricalWeights(c.Seed)
			if err != nil {
				return nil, fmt.Errorf("create: %v", err)
			}
		}
		head, err := NewCategorical(g, c.Features, s.N, weightInit, biasInit,
			c.Seed+1)
		if err != nil {
			return nil, fmt.Errorf("create: %w", err)
		}
		return head, nil

	case spec.ContinuousSpace:
		if weightInit == nil {
			weightInit, err = initwfn.DefaultGaussianWeights(c.Seed)
			if err != nil {
				return nil, fmt.Errorf("create: %v", err)
			}
		}
		head, err := NewDiagGaussian(g, c.Features, s.Dim, weightInit,
			biasInit, c.Seed+1)
		if err != nil {
			return nil, fmt.Errorf("create: %w", err)
		}
		return head, nil

	default:
		return nil, fmt.Errorf("create: %v: %w", space,
			ErrUnsupportedActionSpace)
	}
}
