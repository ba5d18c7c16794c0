package initwfn

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// OrthogonalConfig implements a configuration of the orthogonal
// initialization algorithm. Weights are the orthonormal factor of the
// QR decomposition of a standard normal matrix, scaled by Gain. For a
// weight matrix with r rows and c columns, the rows are orthonormal
// (before scaling) if r < c and the columns are orthonormal otherwise.
type OrthogonalConfig struct {
	Gain float64
	Seed uint64
}

// NewOrthogonal returns a new orthogonal weight initializer
func NewOrthogonal(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(OrthogonalConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (o OrthogonalConfig) Type() Type {
	return Orthogonal
}

// Validate implements the Config interface
func (o OrthogonalConfig) Validate() error {
	return checkGain(o.Gain)
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (o OrthogonalConfig) Create() G.InitWFn {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(o.Seed)}

	return func(dt tensor.Dtype, s ...int) interface{} {
		if len(s) < 2 {
			panic(fmt.Sprintf("orthogonal: only shapes with 2 or more "+
				"dimensions are supported, got %v", s))
		}
		rows := s[0]
		cols := tensor.Shape(s[1:]).TotalSize()

		return castTo(dt, orthogonal(rows, cols, o.Gain, normal))
	}
}

// orthogonal returns the row-major backing of a rows x cols matrix
// with orthonormal rows or columns, scaled by gain.
func orthogonal(rows, cols int, gain float64, normal distuv.Normal) []float64 {
	r, c := rows, cols
	if rows < cols {
		r, c = cols, rows
	}

	a := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a.Set(i, j, normal.Rand())
		}
	}

	var qr mat.QR
	qr.Factorize(a)

	var q, upper mat.Dense
	qr.QTo(&q)
	qr.RTo(&upper)

	// Keep the thin factor and fix the signs so that the result is
	// uniformly distributed over orthogonal matrices
	thin := mat.DenseCopyOf(q.Slice(0, r, 0, c))
	for j := 0; j < c; j++ {
		if upper.At(j, j) < 0 {
			for i := 0; i < r; i++ {
				thin.Set(i, j, -thin.At(i, j))
			}
		}
	}

	if rows < cols {
		thin = mat.DenseCopyOf(thin.T())
	}
	thin.Scale(gain, thin)

	return thin.RawMatrix().Data
}
