package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// rmsPropEta is the only value of η that Gorgonia's RMSProp supports
const rmsPropEta = 0.001

// RMSPropConfig describes a configuration of the RMSProp solver. Rho
// is the decay rate of the running average of squared gradients.
type RMSPropConfig struct {
	StepSize float64
	Epsilon  float64
	Eta      float64
	Rho      float64
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

// NewDefaultRMSProp returns a new RMSProp Solver with ε = 1e-8 and
// ρ = 0.999, without gradient clipping.
func NewDefaultRMSProp(stepSize float64, batchSize int) (*Solver, error) {
	return NewRMSProp(stepSize, 1e-8, rmsPropEta, 0.999, batchSize, -1.0)
}

// NewRMSProp returns a new RMSProp Solver
func NewRMSProp(stepSize, epsilon, eta, rho float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(RMSProp, RMSPropConfig{
		StepSize: stepSize,
		Epsilon:  epsilon,
		Eta:      eta,
		Rho:      rho,
		Batch:    batchSize,
		Clip:     clip,
	})
}

// Create returns a new Gorgonia RMSProp Solver as described by the
// RMSPropConfig
func (r RMSPropConfig) Create() G.Solver {
	opts := append(
		options(r.StepSize, r.Batch, r.Clip),
		G.WithEps(r.Epsilon),
		G.WithRho(r.Rho),
	)
	return G.NewRMSPropSolver(opts...)
}

// Validate implements the Config interface
func (r RMSPropConfig) Validate() error {
	if err := validate(r.StepSize, r.Batch); err != nil {
		return err
	}
	if r.Eta != rmsPropEta {
		return fmt.Errorf("only η = %v is supported, got %v", rmsPropEta,
			r.Eta)
	}
	if r.Rho <= 0 || r.Rho >= 1 {
		return fmt.Errorf("rho must be in (0, 1), got %v", r.Rho)
	}
	return nil
}

// ValidType implements the Config interface
func (r RMSPropConfig) ValidType(t Type) bool {
	return t == RMSProp
}
