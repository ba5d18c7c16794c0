package initwfn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// rander is a distribution which can be sampled from
type rander interface {
	Rand() float64
}

// sampled returns an InitWFn which fills tensors of any shape with
// draws from the distribution returned by dist for the tensor's fan in
// and fan out. All draws come from a single source seeded with seed,
// so an InitWFn created from a given configuration always produces
// the same sequence of tensors.
func sampled(seed uint64, dist func(fanIn, fanOut float64,
	src rand.Source) rander) G.InitWFn {
	src := rand.NewSource(seed)

	return func(dt tensor.Dtype, s ...int) interface{} {
		fanIn, fanOut := fans(s)
		d := dist(fanIn, fanOut, src)

		backing := make([]float64, tensor.Shape(s).TotalSize())
		for i := range backing {
			backing[i] = d.Rand()
		}
		return castTo(dt, backing)
	}
}

// fans returns the fan in and fan out of a weight tensor of shape s.
// Layers compute x·W, so the first dimension of W indexes inputs and
// the remaining dimensions index outputs.
func fans(s []int) (fanIn, fanOut float64) {
	switch len(s) {
	case 0:
		return 1, 1
	case 1:
		return float64(s[0]), float64(s[0])
	default:
		return float64(s[0]), float64(tensor.Shape(s[1:]).TotalSize())
	}
}

// GaussianConfig implements a configuration of a weight initializer
// which draws weights from a Gaussian
type GaussianConfig struct {
	Mean   float64
	StdDev float64
	Seed   uint64
}

// NewGaussian returns a new Gaussian weight initializer
func NewGaussian(mean, stddev float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev, Seed: seed})
}

// Type returns Gaussian
func (g GaussianConfig) Type() Type { return Gaussian }

// Validate implements the Config interface
func (g GaussianConfig) Validate() error {
	if g.StdDev <= 0 {
		return fmt.Errorf("standard deviation must be positive but got %v",
			g.StdDev)
	}
	return nil
}

// Create returns the Gorgonia InitWFn
func (g GaussianConfig) Create() G.InitWFn {
	return sampled(g.Seed, func(_, _ float64, src rand.Source) rander {
		return distuv.Normal{Mu: g.Mean, Sigma: g.StdDev, Src: src}
	})
}

// UniformConfig implements a configuration of a weight initializer
// which draws weights uniformly from [Low, High)
type UniformConfig struct {
	Low  float64
	High float64
	Seed uint64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(UniformConfig{Low: low, High: high, Seed: seed})
}

// Type returns Uniform
func (u UniformConfig) Type() Type { return Uniform }

// Validate implements the Config interface
func (u UniformConfig) Validate() error {
	if u.Low >= u.High {
		return fmt.Errorf("low (%v) must be less than high (%v)", u.Low,
			u.High)
	}
	return nil
}

// Create returns the Gorgonia InitWFn
func (u UniformConfig) Create() G.InitWFn {
	return sampled(u.Seed, func(_, _ float64, src rand.Source) rander {
		return distuv.Uniform{Min: u.Low, Max: u.High, Src: src}
	})
}

// GlorotUConfig implements a configuration of the Glorot uniform
// initialization algorithm. Weights are drawn uniformly from
// [-w, w) with w = Gain * sqrt(6 / (fanIn + fanOut)).
type GlorotUConfig struct {
	Gain float64
	Seed uint64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain, Seed: seed})
}

// Type returns GlorotU
func (g GlorotUConfig) Type() Type { return GlorotU }

// Validate implements the Config interface
func (g GlorotUConfig) Validate() error { return checkGain(g.Gain) }

// Create returns the Gorgonia InitWFn
func (g GlorotUConfig) Create() G.InitWFn {
	return sampled(g.Seed, func(fanIn, fanOut float64,
		src rand.Source) rander {
		width := g.Gain * math.Sqrt(6/(fanIn+fanOut))
		return distuv.Uniform{Min: -width, Max: width, Src: src}
	})
}

// GlorotNConfig implements a configuration of the Glorot normal
// initialization algorithm. Weights are drawn from a zero-mean
// Gaussian with standard deviation Gain * sqrt(2 / (fanIn + fanOut)).
type GlorotNConfig struct {
	Gain float64
	Seed uint64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain, Seed: seed})
}

// Type returns GlorotN
func (g GlorotNConfig) Type() Type { return GlorotN }

// Validate implements the Config interface
func (g GlorotNConfig) Validate() error { return checkGain(g.Gain) }

// Create returns the Gorgonia InitWFn
func (g GlorotNConfig) Create() G.InitWFn {
	return sampled(g.Seed, func(fanIn, fanOut float64,
		src rand.Source) rander {
		stddev := g.Gain * math.Sqrt(2/(fanIn+fanOut))
		return distuv.Normal{Mu: 0, Sigma: stddev, Src: src}
	})
}

// HeUConfig implements a configuration of the He uniform
// initialization algorithm. Weights are drawn uniformly from [-w, w)
// with w = Gain * sqrt(3 / fanIn).
type HeUConfig struct {
	Gain float64
	Seed uint64
}

// NewHeU returns a new He uniform weight initializer
func NewHeU(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(HeUConfig{Gain: gain, Seed: seed})
}

// Type returns HeU
func (h HeUConfig) Type() Type { return HeU }

// Validate implements the Config interface
func (h HeUConfig) Validate() error { return checkGain(h.Gain) }

// Create returns the Gorgonia InitWFn
func (h HeUConfig) Create() G.InitWFn {
	return sampled(h.Seed, func(fanIn, _ float64, src rand.Source) rander {
		width := h.Gain * math.Sqrt(3/fanIn)
		return distuv.Uniform{Min: -width, Max: width, Src: src}
	})
}

// HeNConfig implements a configuration of the He normal initialization
// algorithm. Weights are drawn from a zero-mean Gaussian with standard
// deviation Gain / sqrt(fanIn).
type HeNConfig struct {
	Gain float64
	Seed uint64
}

// NewHeN returns a new He normal weight initializer
func NewHeN(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(HeNConfig{Gain: gain, Seed: seed})
}

// Type returns HeN
func (h HeNConfig) Type() Type { return HeN }

// Validate implements the Config interface
func (h HeNConfig) Validate() error { return checkGain(h.Gain) }

// Create returns the Gorgonia InitWFn
func (h HeNConfig) Create() G.InitWFn {
	return sampled(h.Seed, func(fanIn, _ float64, src rand.Source) rander {
		return distuv.Normal{Mu: 0, Sigma: h.Gain / math.Sqrt(fanIn), Src: src}
	})
}

// checkGain returns an error if gain is not positive
func checkGain(gain float64) error {
	if gain <= 0 {
		return fmt.Errorf("gain must be positive but got %v", gain)
	}
	return nil
}
