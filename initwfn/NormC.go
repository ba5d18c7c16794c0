package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NormCConfig implements a configuration of the normalized-column
// initialization algorithm. Weights are drawn from a standard normal
// and each column, holding the weights into a single output unit, is
// rescaled to have L2 norm Gain.
type NormCConfig struct {
	Gain float64
	Seed uint64
}

// NewNormC returns a new normalized-column weight initializer
func NewNormC(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(NormCConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (n NormCConfig) Type() Type {
	return NormC
}

// Validate implements the Config interface
func (n NormCConfig) Validate() error {
	return checkGain(n.Gain)
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (n NormCConfig) Create() G.InitWFn {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(n.Seed)}

	return func(dt tensor.Dtype, s ...int) interface{} {
		rows, cols := 1, 1
		switch len(s) {
		case 0:
		case 1:
			rows = s[0]
		default:
			rows = s[0]
			cols = tensor.Shape(s[1:]).TotalSize()
		}

		return castTo(dt, normC(rows, cols, n.Gain, normal))
	}
}

// normC returns the row-major backing of a rows x cols matrix of
// standard normal draws with each column scaled to norm gain.
func normC(rows, cols int, gain float64, normal distuv.Normal) []float64 {
	backing := make([]float64, rows*cols)
	for i := range backing {
		backing[i] = normal.Rand()
	}

	for j := 0; j < cols; j++ {
		var sumSq float64
		for i := 0; i < rows; i++ {
			sumSq += backing[i*cols+j] * backing[i*cols+j]
		}
		scale := gain / math.Sqrt(sumSq)
		for i := 0; i < rows; i++ {
			backing[i*cols+j] *= scale
		}
	}

	return backing
}

// castTo converts a float64 backing to the backing type of dt
func castTo(dt tensor.Dtype, backing []float64) interface{} {
	switch dt {
	case tensor.Float64:
		return backing

	case tensor.Float32:
		out := make([]float32, len(backing))
		for i := range backing {
			out[i] = float32(backing[i])
		}
		return out

	default:
		panic("castTo: unsupported dtype " + dt.String())
	}
}
