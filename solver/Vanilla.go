package solver

import G "gorgonia.org/gorgonia"

// VanillaConfig describes stochastic gradient descent with a fixed
// step size, optionally clipping gradients to [-Clip, Clip].
type VanillaConfig struct {
	StepSize float64
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

// NewVanilla returns a new Vanilla Solver. Gradients are averaged over
// batchSize before the step is taken.
func NewVanilla(stepSize float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(Vanilla, VanillaConfig{
		StepSize: stepSize,
		Batch:    batchSize,
		Clip:     clip,
	})
}

// Create returns a Gorgonia Vanilla Solver as described by the
// VanillaConfig
func (v VanillaConfig) Create() G.Solver {
	return G.NewVanillaSolver(options(v.StepSize, v.Batch, v.Clip)...)
}

// Validate implements the Config interface
func (v VanillaConfig) Validate() error {
	return validate(v.StepSize, v.Batch)
}

// ValidType implements the Config interface
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}
