package distribution

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/actiondist/initwfn"
	"github.com/samuelfneumann/actiondist/network"
	"github.com/samuelfneumann/actiondist/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const tol = 1e-9

// input returns a new matrix node in g holding data
func input(g *G.ExprGraph, rows, cols int, data []float64) *G.Node {
	return G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(rows, cols),
		G.WithName(network.NodeName(g, "input")),
		G.WithValue(tensor.New(
			tensor.WithShape(rows, cols),
			tensor.WithBacking(data),
		)),
	)
}

// runRead runs g and returns the values of nodes, in order. Each node
// is bound with G.Read before the machine is compiled, so the values
// are copies taken when the node is computed. The tape machine reuses
// the memory of intermediate nodes, and reading Value() after RunAll
// may see a later operation's result.
func runRead(t *testing.T, g *G.ExprGraph, nodes ...*G.Node) [][]float64 {
	t.Helper()
	vals := make([]G.Value, len(nodes))
	for i, n := range nodes {
		G.Read(n, &vals[i])
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	out := make([][]float64, len(nodes))
	for i, v := range vals {
		out[i] = floatsOf(t, v)
	}
	return out
}

// valuesOf returns a copy of the values of a node that no graph run
// computes, such as a parameter
func valuesOf(t *testing.T, n *G.Node) []float64 {
	t.Helper()
	return floatsOf(t, n.Value())
}

// floatsOf returns a copy of the data of v
func floatsOf(t *testing.T, v G.Value) []float64 {
	t.Helper()
	require.NotNil(t, v)
	switch data := v.Data().(type) {
	case []float64:
		out := make([]float64, len(data))
		copy(out, data)
		return out
	case float64:
		return []float64{data}
	default:
		t.Fatalf("unexpected data type %T", data)
		return nil
	}
}

func mustInit(t *testing.T) func(*initwfn.InitWFn, error) *initwfn.InitWFn {
	return func(init *initwfn.InitWFn, err error) *initwfn.InitWFn {
		t.Helper()
		require.NoError(t, err)
		return init
	}
}

func TestCategoricalSoftmaxAndLogProbs(t *testing.T) {
	g := G.NewGraph()
	head, err := NewDefaultCategorical(g, 4, 3, 7)
	require.NoError(t, err)

	assert.Equal(t, 4, head.Features())
	assert.Equal(t, 3, head.Outputs())
	assert.Equal(t, spec.Discrete, head.Cardinality())
	assert.Len(t, head.Learnables(), 2)

	features := input(g, 2, 4, []float64{
		1, -2, 3, 0.5,
		-1, 4, 0, 2,
	})
	actions := input(g, 2, 1, []float64{0, 2})

	params, err := head.Fwd(features)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, tensor.Shape{2, 3}, params[0].Shape())

	probs, err := head.Probs(features)
	require.NoError(t, err)
	allLogProbs, err := head.LogProbs(features)
	require.NoError(t, err)

	logProbs, entropy, err := head.LogProbsAndEntropy(features, actions)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1}, logProbs.Shape())
	assert.True(t, entropy.IsScalar())

	vals := runRead(t, g, probs, allLogProbs, logProbs, entropy)
	p, lp, selected := vals[0], vals[1], vals[2]
	for i := 0; i < 2; i++ {
		row := p[i*3 : (i+1)*3]
		assert.InDelta(t, 1.0, floats.Sum(row), tol)
		for j := range row {
			assert.InDelta(t, math.Log(row[j]), lp[i*3+j], tol)
		}
	}

	assert.InDelta(t, lp[0], selected[0], tol)
	assert.InDelta(t, lp[5], selected[1], tol)

	want := 0.0
	for i := range p {
		want -= p[i] * lp[i]
	}
	assert.InDelta(t, want/2, vals[3][0], tol)
}

func TestCategoricalLargeLogits(t *testing.T) {
	g := G.NewGraph()
	weights := mustInit(t)(initwfn.NewConstant(500))
	head, err := NewCategorical(g, 2, 3, weights, nil, 0)
	require.NoError(t, err)

	features := input(g, 1, 2, []float64{1, 1})
	probs, err := head.Probs(features)
	require.NoError(t, err)
	allLogProbs, err := head.LogProbs(features)
	require.NoError(t, err)

	vals := runRead(t, g, probs, allLogProbs)

	for _, v := range vals[0] {
		assert.InDelta(t, 1.0/3.0, v, tol)
	}
	for _, v := range vals[1] {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestCategoricalUniformEntropy(t *testing.T) {
	const actions = 5
	g := G.NewGraph()
	zeroes := mustInit(t)(initwfn.NewZeroes())
	head, err := NewCategorical(g, 3, actions, zeroes, zeroes, 0)
	require.NoError(t, err)

	features := input(g, 2, 3, []float64{1, 2, 3, 4, 5, 6})
	indices := input(g, 2, 1, []float64{1, 4})
	logProbs, entropy, err := head.LogProbsAndEntropy(features, indices)
	require.NoError(t, err)

	sample, err := head.Sample(features, true)
	require.NoError(t, err)

	vals := runRead(t, g, entropy, logProbs, sample)

	assert.InDelta(t, math.Log(actions), vals[0][0], tol)
	for _, lp := range vals[1] {
		assert.InDelta(t, -math.Log(actions), lp, tol)
	}

	// Ties are broken by selecting the first action
	assert.Equal(t, []float64{0, 0}, vals[2])
}

func TestCategoricalDeterministicSample(t *testing.T) {
	g := G.NewGraph()
	head, err := NewDefaultCategorical(g, 4, 3, 11)
	require.NoError(t, err)

	features := input(g, 2, 4, []float64{
		0.3, -1, 2, 1,
		5, 1, -3, 0,
	})
	probs, err := head.Probs(features)
	require.NoError(t, err)
	first, err := head.Sample(features, true)
	require.NoError(t, err)
	second, err := head.Sample(features, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1}, first.Shape())

	vals := runRead(t, g, probs, first, second)

	p := vals[0]
	want := []float64{
		float64(floats.MaxIdx(p[:3])),
		float64(floats.MaxIdx(p[3:])),
	}
	assert.Equal(t, want, vals[1])
	assert.Equal(t, want, vals[2])
}

func TestCategoricalStochasticSample(t *testing.T) {
	const (
		batch   = 3000
		actions = 3
	)

	sample := func(seed uint64) []float64 {
		g := G.NewGraph()
		zeroes := mustInit(t)(initwfn.NewZeroes())
		head, err := NewCategorical(g, 1, actions, zeroes, zeroes, seed)
		require.NoError(t, err)

		features := input(g, batch, 1, make([]float64, batch))
		sample, err := head.Sample(features, false)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{batch, 1}, sample.Shape())

		return runRead(t, g, sample)[0]
	}

	samples := sample(3)
	counts := make([]int, actions)
	for _, a := range samples {
		require.NoError(t, checkIndex(a, actions))
		counts[int(a)]++
	}
	for _, c := range counts {
		assert.Greater(t, c, batch/actions-150)
		assert.Less(t, c, batch/actions+150)
	}

	assert.Equal(t, samples, sample(3))
	assert.NotEqual(t, samples, sample(4))
}

func TestCategoricalIndexOutOfRange(t *testing.T) {
	for _, index := range []float64{3, -1, 0.5} {
		g := G.NewGraph()
		head, err := NewDefaultCategorical(g, 2, 3, 0)
		require.NoError(t, err)

		features := input(g, 1, 2, []float64{1, 1})
		actions := input(g, 1, 1, []float64{index})
		_, _, err = head.LogProbsAndEntropy(features, actions)
		require.NoError(t, err)

		vm := G.NewTapeMachine(g)
		err = vm.RunAll()
		vm.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrIndexOutOfRange.Error())

		err = CheckIndices([]float64{0, index}, 3)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	}

	assert.NoError(t, CheckIndices([]float64{0, 1, 2}, 3))
}

func TestGaussianScenario(t *testing.T) {
	g := G.NewGraph()
	weights := mustInit(t)(initwfn.NewZeroes())
	bias := mustInit(t)(initwfn.NewConstant(0.5))
	head, err := NewDiagGaussian(g, 4, 2, weights, bias, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, head.Outputs())
	assert.Equal(t, spec.Continuous, head.Cardinality())
	assert.Len(t, head.Learnables(), 3)

	features := input(g, 2, 4, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	params, err := head.Fwd(features)
	require.NoError(t, err)
	require.Len(t, params, 2)
	mean, logStd := params[0], params[1]
	assert.Equal(t, tensor.Shape{2, 2}, mean.Shape())
	assert.Equal(t, tensor.Shape{2, 2}, logStd.Shape())

	deterministic, err := head.Sample(features, true)
	require.NoError(t, err)
	stochastic, err := head.Sample(features, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, stochastic.Shape())

	atMean := input(g, 2, 2, []float64{0.5, 0.5, 0.5, 0.5})
	atMeanLogProbs, entropy, err := head.LogProbsAndEntropy(features, atMean)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1}, atMeanLogProbs.Shape())
	assert.True(t, entropy.IsScalar())

	actions := input(g, 2, 2, []float64{1.5, -0.5, 0, 2})
	logProbs, _, err := head.LogProbsAndEntropy(features, actions)
	require.NoError(t, err)

	vals := runRead(t, g, mean, deterministic, logStd, atMeanLogProbs,
		entropy, logProbs)

	m := vals[0]
	assert.Equal(t, m, vals[1])
	assert.Equal(t, []float64{0, 0, 0, 0}, vals[2])
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, m)

	for _, lp := range vals[3] {
		assert.InDelta(t, -2*halfLog2Pi, lp, tol)
	}
	assert.InDelta(t, 2*(0.5+halfLog2Pi), vals[4][0], tol)

	normal := distuv.Normal{Mu: 0.5, Sigma: 1}
	a := []float64{1.5, -0.5, 0, 2}
	lp := vals[5]
	for i := 0; i < 2; i++ {
		want := normal.LogProb(a[2*i]) + normal.LogProb(a[2*i+1])
		assert.InDelta(t, want, lp[i], tol)
	}
}

func TestGaussianDefaultDeterministicSample(t *testing.T) {
	g := G.NewGraph()
	head, err := NewDefaultDiagGaussian(g, 4, 2, 5)
	require.NoError(t, err)

	features := input(g, 2, 4, []float64{0.1, -0.2, 0.3, 0.4, 1, 0, -1, 2})
	mean, _, err := head.MeanLogStd(features)
	require.NoError(t, err)
	sample, err := head.Sample(features, true)
	require.NoError(t, err)

	vals := runRead(t, g, mean, sample)
	assert.Equal(t, vals[0], vals[1])
}

func TestGaussianStochasticSample(t *testing.T) {
	const batch = 4000

	sample := func(seed uint64) []float64 {
		g := G.NewGraph()
		zeroes := mustInit(t)(initwfn.NewZeroes())
		head, err := NewDiagGaussian(g, 1, 1, zeroes, zeroes, seed)
		require.NoError(t, err)

		features := input(g, batch, 1, make([]float64, batch))
		sample, err := head.Sample(features, false)
		require.NoError(t, err)

		return runRead(t, g, sample)[0]
	}

	samples := sample(1)
	mean, std := stat.MeanStdDev(samples, nil)
	assert.InDelta(t, 0.0, mean, 0.1)
	assert.InDelta(t, 1.0, std, 0.1)

	assert.Equal(t, samples, sample(1))
	assert.NotEqual(t, samples, sample(2))
}

func TestGaussianLogStdGradSumsOverBatch(t *testing.T) {
	const batch = 3
	g := G.NewGraph()
	zeroes := mustInit(t)(initwfn.NewZeroes())
	head, err := NewDiagGaussian(g, 2, 2, zeroes, zeroes, 0)
	require.NoError(t, err)

	features := input(g, batch, 2, []float64{1, 2, 3, 4, 5, 6})
	actions := input(g, batch, 2, make([]float64, batch*2))
	logProbs, _, err := head.LogProbsAndEntropy(features, actions)
	require.NoError(t, err)

	// With actions at the mean, d(logProb)/d(logStd) = -1 for each
	// sample
	cost := G.Must(G.Sum(logProbs))
	grads, err := G.Grad(cost, head.LogStd())
	require.NoError(t, err)

	logStdGrad := runRead(t, g, grads[0])[0]
	assert.Equal(t, []float64{-batch, -batch}, logStdGrad)
}

func TestGaussianSampleIsReparameterized(t *testing.T) {
	const batch = 4
	g := G.NewGraph()
	zeroes := mustInit(t)(initwfn.NewZeroes())
	head, err := NewDiagGaussian(g, 2, 2, zeroes, zeroes, 0)
	require.NoError(t, err)

	features := input(g, batch, 2, make([]float64, batch*2))
	sample, err := head.Sample(features, false)
	require.NoError(t, err)

	cost := G.Must(G.Sum(sample))
	grads, err := G.Grad(cost, head.MeanLayer().Bias(), head.LogStd())
	require.NoError(t, err)

	vals := runRead(t, g, grads[0], sample, grads[1])

	// d(sum of samples)/d(mean bias) = batch, and with a zero log
	// standard deviation, d/d(logStd) is the column sum of the noise
	assert.Equal(t, []float64{batch, batch}, vals[0])

	s := vals[1]
	noiseSums := []float64{0, 0}
	for i := 0; i < batch; i++ {
		noiseSums[0] += s[2*i]
		noiseSums[1] += s[2*i+1]
	}
	logStdGrad := vals[2]
	assert.InDelta(t, noiseSums[0], logStdGrad[0], tol)
	assert.InDelta(t, noiseSums[1], logStdGrad[1], tol)
}

func TestInvalidInputs(t *testing.T) {
	g := G.NewGraph()
	heads := []Head{}
	categorical, err := NewDefaultCategorical(g, 4, 3, 0)
	require.NoError(t, err)
	gaussian, err := NewDefaultDiagGaussian(g, 4, 2, 0)
	require.NoError(t, err)
	heads = append(heads, categorical, gaussian)

	other := G.NewGraph()
	for _, head := range heads {
		_, err := head.Fwd(input(other, 2, 4, make([]float64, 8)))
		assert.True(t, errors.Is(err, ErrGraphMismatch), "%v", err)

		_, err = head.Sample(input(g, 2, 3, make([]float64, 6)), false)
		assert.True(t, errors.Is(err, ErrShapeMismatch), "%v", err)

		_, err = head.Sample(nil, true)
		assert.True(t, errors.Is(err, ErrShapeMismatch), "%v", err)

		float32Features := G.NewMatrix(g, tensor.Float32, G.WithShape(2, 4),
			G.WithName(network.NodeName(g, "float32")), G.WithInit(G.Zeroes()))
		_, err = head.Fwd(float32Features)
		assert.True(t, errors.Is(err, ErrDtype), "%v", err)

		features := input(g, 2, 4, make([]float64, 8))
		cols := ActionColumns(head)

		_, _, err = head.LogProbsAndEntropy(features,
			input(g, 3, cols, make([]float64, 3*cols)))
		assert.True(t, errors.Is(err, ErrShapeMismatch), "%v", err)

		_, _, err = head.LogProbsAndEntropy(features,
			input(g, 2, cols+1, make([]float64, 2*(cols+1))))
		assert.True(t, errors.Is(err, ErrShapeMismatch), "%v", err)

		_, _, err = head.LogProbsAndEntropy(features,
			input(other, 2, cols, make([]float64, 2*cols)))
		assert.True(t, errors.Is(err, ErrGraphMismatch), "%v", err)
	}

	_, err = NewDefaultCategorical(g, 0, 3, 0)
	assert.Error(t, err)
	_, err = NewDefaultDiagGaussian(g, 4, 0, 0)
	assert.Error(t, err)
	_, err = NewCategorical(g, 4, 3, nil, nil, 0)
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	g := G.NewGraph()

	head, err := New(g, 4, spec.DiscreteSpace{N: 3}, 0)
	require.NoError(t, err)
	require.IsType(t, &Categorical{}, head)
	assert.Equal(t, 3, head.Outputs())
	assert.Equal(t, 1, ActionColumns(head))

	head, err = New(g, 4, spec.ContinuousSpace{Dim: 2}, 0)
	require.NoError(t, err)
	require.IsType(t, &DiagGaussian{}, head)
	assert.Equal(t, 2, head.Outputs())
	assert.Equal(t, 2, ActionColumns(head))

	head, err = New(g, 4, nil, 0)
	assert.Nil(t, head)
	assert.True(t, errors.Is(err, ErrUnsupportedActionSpace))
}

func TestFactoryIsSeeded(t *testing.T) {
	weights := func(seed uint64) []float64 {
		g := G.NewGraph()
		head, err := New(g, 4, spec.DiscreteSpace{N: 3}, seed)
		require.NoError(t, err)
		return valuesOf(t, head.Learnables()[0])
	}

	assert.Equal(t, weights(1), weights(1))
	assert.NotEqual(t, weights(1), weights(2))
}

func TestConfig(t *testing.T) {
	data := []byte(`{
		"Features": 4,
		"ActionSpace": {"Cardinality": "Continuous", "Dim": 2},
		"WeightInit": {"Type": "Constant", "Config": {"Value": 0.25}},
		"Seed": 3
	}`)

	var config Config
	require.NoError(t, json.Unmarshal(data, &config))

	g := G.NewGraph()
	head, err := config.Create(g)
	require.NoError(t, err)
	require.IsType(t, &DiagGaussian{}, head)
	assert.Equal(t, 4, head.Features())
	assert.Equal(t, 2, head.Outputs())
	for _, w := range valuesOf(t, head.Learnables()[0]) {
		assert.Equal(t, 0.25, w)
	}
	for _, b := range valuesOf(t, head.Learnables()[1]) {
		assert.Equal(t, 0.0, b)
	}

	config.ActionSpace = spec.ActionSpaceConfig{Cardinality: spec.Discrete, N: 6}
	config.WeightInit = nil
	head, err = config.Create(g)
	require.NoError(t, err)
	require.IsType(t, &Categorical{}, head)
	assert.Equal(t, 6, head.Outputs())

	config.ActionSpace = spec.ActionSpaceConfig{Cardinality: "Hybrid"}
	_, err = config.Create(g)
	assert.True(t, errors.Is(err, ErrUnsupportedActionSpace))
}
