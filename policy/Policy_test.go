package policy

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/actiondist/distribution"
	"github.com/samuelfneumann/actiondist/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

const tol = 1e-9

var features = []float64{
	1, -2, 3, 0.5,
	-1, 4, 0, 2,
}

func newPolicy(t *testing.T, space spec.ActionSpace) *Policy {
	t.Helper()
	head, err := distribution.New(G.NewGraph(), 4, space, 42)
	require.NoError(t, err)

	p, err := New(head, 2)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	return p
}

func TestCategoricalPolicy(t *testing.T) {
	p := newPolicy(t, spec.DiscreteSpace{N: 3})
	assert.Equal(t, 2, p.BatchSize())

	params, err := p.Params(features)
	require.NoError(t, err)
	require.Len(t, params, 1)
	r, c := params[0].Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)

	deterministic, err := p.Sample(features, true)
	require.NoError(t, err)
	r, c = deterministic.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 1, c)
	for i := 0; i < 2; i++ {
		logits := params[0].RawRowView(i)
		assert.Equal(t, float64(floats.MaxIdx(logits)), deterministic.At(i, 0))
	}

	again, err := p.Sample(features, true)
	require.NoError(t, err)
	assert.True(t, mat.Equal(deterministic, again))

	stochastic, err := p.Sample(features, false)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		a := stochastic.At(i, 0)
		assert.True(t, a == 0 || a == 1 || a == 2, "invalid action %v", a)
	}

	actions := []float64{0, 2}
	logProbs, entropy, err := p.LogProbsAndEntropy(features, actions)
	require.NoError(t, err)
	require.Equal(t, 2, logProbs.Len())

	wantEntropy := 0.0
	for i := 0; i < 2; i++ {
		logits := params[0].RawRowView(i)
		lse := floats.LogSumExp(logits)
		assert.InDelta(t, logits[int(actions[i])]-lse, logProbs.AtVec(i), tol)

		for _, l := range logits {
			wantEntropy -= math.Exp(l-lse) * (l - lse)
		}
	}
	assert.InDelta(t, wantEntropy/2, entropy, tol)
}

func TestCategoricalPolicyErrors(t *testing.T) {
	p := newPolicy(t, spec.DiscreteSpace{N: 3})

	_, _, err := p.LogProbsAndEntropy(features, []float64{0, 3})
	assert.True(t, errors.Is(err, distribution.ErrIndexOutOfRange), "%v", err)

	_, _, err = p.LogProbsAndEntropy(features, []float64{0, 1.5})
	assert.True(t, errors.Is(err, distribution.ErrIndexOutOfRange), "%v", err)

	_, _, err = p.LogProbsAndEntropy(features, []float64{0})
	assert.True(t, errors.Is(err, distribution.ErrShapeMismatch), "%v", err)

	_, err = p.Sample(features[:4], false)
	assert.True(t, errors.Is(err, distribution.ErrShapeMismatch), "%v", err)

	// The policy stays usable after invalid inputs
	_, _, err = p.LogProbsAndEntropy(features, []float64{1, 1})
	assert.NoError(t, err)
}

func TestGaussianPolicy(t *testing.T) {
	p := newPolicy(t, spec.ContinuousSpace{Dim: 2})

	params, err := p.Params(features)
	require.NoError(t, err)
	require.Len(t, params, 2)
	mean, logStd := params[0], params[1]
	assert.True(t, mat.Equal(logStd, mat.NewDense(2, 2, nil)))

	deterministic, err := p.Sample(features, true)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mean, deterministic))

	stochastic, err := p.Sample(features, false)
	require.NoError(t, err)
	r, c := stochastic.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.False(t, mat.Equal(mean, stochastic))

	logProbs, entropy, err := p.LogProbsAndEntropy(features, mean.RawMatrix().Data)
	require.NoError(t, err)
	halfLog2Pi := 0.5 * math.Log(2*math.Pi)
	for i := 0; i < logProbs.Len(); i++ {
		assert.InDelta(t, -2*halfLog2Pi, logProbs.AtVec(i), tol)
	}
	assert.InDelta(t, 2*(0.5+halfLog2Pi), entropy, tol)
}

func TestNew(t *testing.T) {
	_, err := New(nil, 1)
	assert.Error(t, err)

	head, err := distribution.New(G.NewGraph(), 4, spec.DiscreteSpace{N: 2}, 0)
	require.NoError(t, err)
	_, err = New(head, 0)
	assert.Error(t, err)
}
