// Package policy implements an eager policy which wraps an action
// distribution head with fixed-size input nodes and a virtual machine,
// so that actions, log probabilities, and distribution parameters can
// be computed from plain slices.
package policy

import (
	"fmt"

	"github.com/samuelfneumann/actiondist/distribution"
	"github.com/samuelfneumann/actiondist/network"
	"github.com/samuelfneumann/actiondist/spec"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Policy computes actions and log probabilities of a distribution
// head for batches of a fixed size.
//
// The virtual machine of a Policy is compiled over the whole graph of
// its head when the Policy is created, so every node in the graph at
// that time is computed on each call. Nodes added to the graph later
// are not run by the Policy.
type Policy struct {
	head  distribution.Head
	batch int

	features *G.Node
	actions  *G.Node

	stochastic    *G.Node
	deterministic *G.Node
	logProbs      *G.Node
	entropy       *G.Node
	params        G.Nodes

	stochasticVal    G.Value
	deterministicVal G.Value
	logProbsVal      G.Value
	entropyVal       G.Value
	paramsVal        []G.Value

	vm G.VM
}

// New returns a new Policy which evaluates head on batches of batch
// feature vectors
func New(head distribution.Head, batch int) (*Policy, error) {
	if head == nil {
		return nil, fmt.Errorf("new: nil head")
	}
	if batch <= 0 {
		return nil, fmt.Errorf("new: batch size must be positive but "+
			"got %v", batch)
	}
	g := head.Graph()

	features := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, head.Features()),
		G.WithName(network.NodeName(g, "policyFeatures")),
		G.WithInit(G.Zeroes()),
	)

	// Zero is a valid action for both discrete and continuous heads
	actions := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, distribution.ActionColumns(head)),
		G.WithName(network.NodeName(g, "policyActions")),
		G.WithInit(G.Zeroes()),
	)

	stochastic, err := head.Sample(features, false)
	if err != nil {
		return nil, fmt.Errorf("new: could not sample: %v", err)
	}
	deterministic, err := head.Sample(features, true)
	if err != nil {
		return nil, fmt.Errorf("new: could not sample: %v", err)
	}
	logProbs, entropy, err := head.LogProbsAndEntropy(features, actions)
	if err != nil {
		return nil, fmt.Errorf("new: could not compute log "+
			"probabilities: %v", err)
	}
	params, err := head.Fwd(features)
	if err != nil {
		return nil, fmt.Errorf("new: could not compute distribution "+
			"parameters: %v", err)
	}

	p := &Policy{
		head:          head,
		batch:         batch,
		features:      features,
		actions:       actions,
		stochastic:    stochastic,
		deterministic: deterministic,
		logProbs:      logProbs,
		entropy:       entropy,
		params:        params,
		paramsVal:     make([]G.Value, len(params)),
	}

	G.Read(p.stochastic, &p.stochasticVal)
	G.Read(p.deterministic, &p.deterministicVal)
	G.Read(p.logProbs, &p.logProbsVal)
	G.Read(p.entropy, &p.entropyVal)
	for i := range params {
		G.Read(params[i], &p.paramsVal[i])
	}

	p.vm = G.NewTapeMachine(g)

	return p, nil
}

// Head returns the distribution head of the policy
func (p *Policy) Head() distribution.Head { return p.head }

// BatchSize returns the number of feature vectors per call
func (p *Policy) BatchSize() int { return p.batch }

// Sample returns one action per feature vector in features, which
// must hold BatchSize() feature vectors in row-major order. Discrete
// actions are returned as a column of action indices.
func (p *Policy) Sample(features []float64, deterministic bool) (*mat.Dense,
	error) {
	if err := p.run(features); err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}

	value := p.stochasticVal
	if deterministic {
		value = p.deterministicVal
	}
	return toDense(value, p.batch, distribution.ActionColumns(p.head))
}

// LogProbsAndEntropy returns the log probability of each action in
// actions given the corresponding feature vector in features, as well
// as the entropy of the action distributions averaged over the batch.
func (p *Policy) LogProbsAndEntropy(features,
	actions []float64) (*mat.VecDense, float64, error) {
	if err := p.setActions(actions); err != nil {
		return nil, 0, fmt.Errorf("logProbsAndEntropy: %w", err)
	}
	if err := p.run(features); err != nil {
		return nil, 0, fmt.Errorf("logProbsAndEntropy: %w", err)
	}

	logProbs, err := toDense(p.logProbsVal, p.batch, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("logProbsAndEntropy: %v", err)
	}
	entropy, err := scalar(p.entropyVal)
	if err != nil {
		return nil, 0, fmt.Errorf("logProbsAndEntropy: %v", err)
	}

	return mat.VecDenseCopyOf(logProbs.ColView(0)), entropy, nil
}

// Params returns the distribution parameters computed from features:
// the logits of a categorical head or the mean and log standard
// deviation of a Gaussian head.
func (p *Policy) Params(features []float64) ([]*mat.Dense, error) {
	if err := p.run(features); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}

	out := make([]*mat.Dense, len(p.paramsVal))
	for i := range p.paramsVal {
		param, err := toDense(p.paramsVal[i], p.batch, p.head.Outputs())
		if err != nil {
			return nil, fmt.Errorf("params: %v", err)
		}
		out[i] = param
	}
	return out, nil
}

// Close releases the resources held by the policy's virtual machine
func (p *Policy) Close() error {
	return p.vm.Close()
}

// run sets the input features and runs the virtual machine
func (p *Policy) run(features []float64) error {
	if err := p.setFeatures(features); err != nil {
		return err
	}

	// Read values of a run are copied out after RunAll returns, so
	// the machine is reset before each run
	p.vm.Reset()
	if err := p.vm.RunAll(); err != nil {
		return fmt.Errorf("could not run policy: %v", err)
	}
	return nil
}

func (p *Policy) setFeatures(features []float64) error {
	return let(p.features, features)
}

// setActions validates and sets the input actions
func (p *Policy) setActions(actions []float64) error {
	if p.head.Cardinality() == spec.Discrete {
		if err := distribution.CheckIndices(actions,
			p.head.Outputs()); err != nil {
			return err
		}
	}
	return let(p.actions, actions)
}

// let binds a copy of values to the matrix node n
func let(n *G.Node, values []float64) error {
	shape := n.Shape()
	if len(values) != shape.TotalSize() {
		return fmt.Errorf("expected %v values for shape %v but got %v: %w",
			shape.TotalSize(), shape, len(values),
			distribution.ErrShapeMismatch)
	}

	backing := make([]float64, len(values))
	copy(backing, values)
	t := tensor.New(tensor.WithShape(shape.Clone()...),
		tensor.WithBacking(backing))

	return G.Let(n, t)
}

// toDense copies a value into a new rows x cols matrix
func toDense(v G.Value, rows, cols int) (*mat.Dense, error) {
	if v == nil {
		return nil, fmt.Errorf("toDense: no value computed")
	}

	var data []float64
	switch d := v.Data().(type) {
	case []float64:
		data = d
	case float64:
		data = []float64{d}
	default:
		return nil, fmt.Errorf("toDense: unexpected data type %T", d)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("toDense: cannot fit %v values into a (%v, "+
			"%v) matrix", len(data), rows, cols)
	}

	backing := make([]float64, len(data))
	copy(backing, data)
	return mat.NewDense(rows, cols, backing), nil
}

// scalar returns the single value held by v
func scalar(v G.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("scalar: no value computed")
	}

	switch d := v.Data().(type) {
	case float64:
		return d, nil
	case []float64:
		if len(d) != 1 {
			return 0, fmt.Errorf("scalar: expected 1 value but got %v", len(d))
		}
		return d[0], nil
	default:
		return 0, fmt.Errorf("scalar: unexpected data type %T", d)
	}
}
