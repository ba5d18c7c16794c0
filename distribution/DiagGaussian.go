package distribution

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/actiondist/initwfn"
	"github.com/samuelfneumann/actiondist/network"
	"github.com/samuelfneumann/actiondist/spec"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
)

var (
	// halfLog2Pi is 0.5 * log(2π)
	halfLog2Pi = 0.5 * math.Log(2*math.Pi)

	// gaussianEntropyOffset is the entropy of a standard normal
	gaussianEntropyOffset = 0.5 + halfLog2Pi
)

// DiagGaussian is a head for continuous action spaces. A linear layer
// maps features to the mean of a Gaussian with diagonal covariance.
// The log standard deviation is a learned vector which does not depend
// on the features and is shared by all samples in a batch.
type DiagGaussian struct {
	g        *G.ExprGraph
	mean     *network.Linear
	logStd   *network.AddBias
	features int
	dims     int

	normal distuv.Normal
}

// NewDiagGaussian returns a new DiagGaussian head in graph g over
// actions with dims dimensions. The weights of the mean are
// initialized with weightInit and its bias with biasInit; if biasInit
// is nil the mean has no bias. The log standard deviation is
// initialized to zero. Noise for stochastic samples is drawn using a
// source seeded with seed.
func NewDiagGaussian(g *G.ExprGraph, features, dims int, weightInit,
	biasInit *initwfn.InitWFn, seed uint64) (*DiagGaussian, error) {
	if g == nil {
		return nil, fmt.Errorf("newDiagGaussian: nil graph")
	}
	if weightInit == nil {
		return nil, fmt.Errorf("newDiagGaussian: weight initializer required")
	}

	var bias G.InitWFn
	if biasInit != nil {
		bias = biasInit.InitWFn()
	}
	mean, err := network.NewLinear(g, features, dims, weightInit.InitWFn(),
		bias, "gaussianMean")
	if err != nil {
		return nil, fmt.Errorf("newDiagGaussian: %v", err)
	}

	logStd, err := network.NewAddBias(g, dims, G.Zeroes(), "gaussianLogStd")
	if err != nil {
		return nil, fmt.Errorf("newDiagGaussian: %v", err)
	}

	return &DiagGaussian{
		g:        g,
		mean:     mean,
		logStd:   logStd,
		features: features,
		dims:     dims,
		normal: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewSource(seed),
		},
	}, nil
}

// NewDefaultDiagGaussian returns a new DiagGaussian head whose mean
// has normalized-column weights of gain 1 and a zero bias. Weights are
// initialized using seed and noise is drawn using seed + 1.
func NewDefaultDiagGaussian(g *G.ExprGraph, features, dims int,
	seed uint64) (*DiagGaussian, error) {
	weightInit, err := initwfn.DefaultGaussianWeights(seed)
	if err != nil {
		return nil, fmt.Errorf("newDefaultDiagGaussian: %v", err)
	}
	biasInit, err := initwfn.DefaultBias()
	if err != nil {
		return nil, fmt.Errorf("newDefaultDiagGaussian: %v", err)
	}

	return NewDiagGaussian(g, features, dims, weightInit, biasInit, seed+1)
}

// Graph returns the computational graph of the head
func (d *DiagGaussian) Graph() *G.ExprGraph { return d.g }

// Features returns the number of input features
func (d *DiagGaussian) Features() int { return d.features }

// Outputs returns the dimension of the actions
func (d *DiagGaussian) Outputs() int { return d.dims }

// Cardinality returns spec.Continuous
func (d *DiagGaussian) Cardinality() spec.Cardinality { return spec.Continuous }

// Learnables returns the weights and bias of the mean followed by the
// log standard deviation
func (d *DiagGaussian) Learnables() G.Nodes {
	return append(d.mean.Learnables(), d.logStd.Learnables()...)
}

// Model returns the learnables of the head with their gradients
func (d *DiagGaussian) Model() []G.ValueGrad {
	return append(d.mean.Model(), d.logStd.Model()...)
}

// MeanLayer returns the linear layer which computes the mean
func (d *DiagGaussian) MeanLayer() *network.Linear { return d.mean }

// LogStd returns the learned log standard deviation vector
func (d *DiagGaussian) LogStd() *G.Node { return d.logStd.Bias() }

// MeanLogStd adds the computation of the mean and log standard
// deviation of the action distributions to the graph. Both have shape
// (batch, Outputs()).
func (d *DiagGaussian) MeanLogStd(features *G.Node) (mean, logStd *G.Node,
	err error) {
	if err := checkMatrix(d.g, features, d.features, "features"); err != nil {
		return nil, nil, fmt.Errorf("meanLogStd: %w", err)
	}

	mean, err = d.mean.Fwd(features)
	if err != nil {
		return nil, nil, fmt.Errorf("meanLogStd: %v", err)
	}

	// The log standard deviation is broadcast onto a zero matrix
	// created in the graph of the mean, with the mean's shape
	logStd, err = d.logStd.Fwd(zerosLike(mean, "logStdBase"))
	if err != nil {
		return nil, nil, fmt.Errorf("meanLogStd: %v", err)
	}

	return mean, logStd, nil
}

// Fwd returns the mean and log standard deviation of the action
// distributions
func (d *DiagGaussian) Fwd(features *G.Node) (G.Nodes, error) {
	mean, logStd, err := d.MeanLogStd(features)
	if err != nil {
		return nil, fmt.Errorf("fwd: %w", err)
	}
	return G.Nodes{mean, logStd}, nil
}

// Sample returns a node of shape (batch, Outputs()) holding one action
// per row of features. Stochastic actions are computed as
// mean + exp(logStd) * ε with ε standard normal, so that gradients
// flow to both the mean and the log standard deviation. If
// deterministic, the mean node itself is returned.
func (d *DiagGaussian) Sample(features *G.Node, deterministic bool) (*G.Node,
	error) {
	mean, logStd, err := d.MeanLogStd(features)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}
	if deterministic {
		return mean, nil
	}

	std := G.Must(G.Exp(logStd))
	noise, err := G.ApplyOp(newStandardNormalOp(d.normal),
		zerosLike(mean, "noiseBase"))
	if err != nil {
		return nil, fmt.Errorf("sample: could not create noise: %v", err)
	}

	scaled := G.Must(G.HadamardProd(std, noise))
	return G.Add(mean, scaled)
}

// LogProbsAndEntropy returns the log density of each row of actions,
// of shape (batch, 1), and the entropy of the action distributions
// averaged over the batch. For each dimension, the log density is
//
//	-0.5 * ((a - mean) / std)^2 - 0.5 * log(2π) - logStd
//
// and the entropy is 0.5 + 0.5 * log(2π) + logStd. Both are summed
// over the action dimensions.
func (d *DiagGaussian) LogProbsAndEntropy(features,
	actions *G.Node) (logProbs, entropy *G.Node, err error) {
	mean, logStd, err := d.MeanLogStd(features)
	if err != nil {
		return nil, nil, fmt.Errorf("logProbsAndEntropy: %w", err)
	}
	if err := checkActions(d.g, features, actions, d.dims); err != nil {
		return nil, nil, fmt.Errorf("logProbsAndEntropy: %w", err)
	}
	batch := features.Shape()[0]

	std := G.Must(G.Exp(logStd))
	z := G.Must(G.Sub(actions, mean))
	z = G.Must(G.HadamardDiv(z, std))
	z = G.Must(G.Square(z))

	logProbs = G.Must(G.Mul(constant(d.g, -0.5), z))
	logProbs = G.Must(G.Sub(logProbs, constant(d.g, halfLog2Pi)))
	logProbs = G.Must(G.Sub(logProbs, logStd))
	logProbs = G.Must(G.Sum(logProbs, 1))
	logProbs, err = G.Reshape(logProbs, []int{batch, 1})
	if err != nil {
		return nil, nil, fmt.Errorf("logProbsAndEntropy: %v", err)
	}

	entropy = G.Must(G.Add(logStd, constant(d.g, gaussianEntropyOffset)))
	entropy = G.Must(G.Sum(entropy, 1))
	entropy = G.Must(G.Mean(entropy))

	return logProbs, entropy, nil
}
