package initwfn

// DefaultCategoricalWeights returns the default weight initializer of
// categorical action heads: orthogonal with a gain of 0.01, so that
// the initial action distributions are close to uniform.
func DefaultCategoricalWeights(seed uint64) (*InitWFn, error) {
	return NewOrthogonal(0.01, seed)
}

// DefaultGaussianWeights returns the default weight initializer of
// the mean of Gaussian action heads: normalized columns with a gain
// of 1.
func DefaultGaussianWeights(seed uint64) (*InitWFn, error) {
	return NewNormC(1.0, seed)
}

// DefaultBias returns the default bias initializer of action heads
func DefaultBias() (*InitWFn, error) {
	return NewZeroes()
}
