package initwfn

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ZeroesConfig implements a configuration of a weight initializer that
// sets all weights to 0. This is the default bias initializer of
// action heads.
type ZeroesConfig struct{}

// NewZeroes returns a new zeroes weight initializer
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(ZeroesConfig{})
}

// Type returns Zeroes
func (z ZeroesConfig) Type() Type { return Zeroes }

// Validate implements the Config interface
func (z ZeroesConfig) Validate() error { return nil }

// Create returns the Gorgonia InitWFn
func (z ZeroesConfig) Create() G.InitWFn {
	return filled(0)
}

// OnesConfig implements a configuration of a weight initializer that
// sets all weights to 1
type OnesConfig struct{}

// NewOnes returns a new ones weight initializer
func NewOnes() (*InitWFn, error) {
	return newInitWFn(OnesConfig{})
}

// Type returns Ones
func (o OnesConfig) Type() Type { return Ones }

// Validate implements the Config interface
func (o OnesConfig) Validate() error { return nil }

// Create returns the Gorgonia InitWFn
func (o OnesConfig) Create() G.InitWFn {
	return filled(1)
}

// ConstantConfig implements a configuration of a weight initializer
// that sets all weights to Value
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight initializer
func NewConstant(value float64) (*InitWFn, error) {
	return newInitWFn(ConstantConfig{Value: value})
}

// Type returns Constant
func (c ConstantConfig) Type() Type { return Constant }

// Validate implements the Config interface
func (c ConstantConfig) Validate() error { return nil }

// Create returns the Gorgonia InitWFn
func (c ConstantConfig) Create() G.InitWFn {
	return filled(c.Value)
}

// filled returns an InitWFn which fills tensors of any shape with
// value
func filled(value float64) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		backing := make([]float64, tensor.Shape(s).TotalSize())
		for i := range backing {
			backing[i] = value
		}
		return castTo(dt, backing)
	}
}
