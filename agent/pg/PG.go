// Package pg implements a policy gradient training step for action
// distribution heads.
//
// The loss minimized by each step is
//
//	-mean(logProbs * advantages) - EntropyCoef * entropy
//
// where logProbs are the log probabilities of the taken actions under
// the head and entropy is the batch-averaged entropy of the head's
// action distributions. This implementation is adapted from:
//
// https://spinningup.openai.com/en/latest/algorithms/vpg.html
package pg

import (
	"fmt"
	"os"

	"github.com/samuelfneumann/actiondist/distribution"
	"github.com/samuelfneumann/actiondist/network"
	"github.com/samuelfneumann/actiondist/solver"
	"github.com/samuelfneumann/actiondist/spec"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// PG updates the parameters of a distribution head with the policy
// gradient. The head itself never changes its parameters; PG computes
// gradients of the loss and hands them to a Solver.
type PG struct {
	head        distribution.Head
	batch       int
	entropyCoef float64

	features   *G.Node
	actions    *G.Node
	advantages *G.Node

	loss       *G.Node
	lossVal    G.Value
	entropy    *G.Node
	entropyVal G.Value

	solver *solver.Solver
	vm     G.VM
}

// New returns a new PG which updates head on batches of batch
// transitions using the argument solver
func New(head distribution.Head, batch int, s *solver.Solver,
	entropyCoef float64) (*PG, error) {
	if head == nil {
		return nil, fmt.Errorf("new: nil head")
	}
	if s == nil {
		return nil, fmt.Errorf("new: nil solver")
	}
	if batch <= 0 {
		return nil, fmt.Errorf("new: batch size must be positive but "+
			"got %v", batch)
	}
	if entropyCoef < 0 {
		fmt.Fprintf(os.Stderr, "Warning: negative entropy coefficient %v "+
			"penalizes exploration\n", entropyCoef)
	}
	g := head.Graph()

	features := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, head.Features()),
		G.WithName(network.NodeName(g, "pgFeatures")),
		G.WithInit(G.Zeroes()),
	)
	actions := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, distribution.ActionColumns(head)),
		G.WithName(network.NodeName(g, "pgActions")),
		G.WithInit(G.Zeroes()),
	)
	advantages := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, 1),
		G.WithName(network.NodeName(g, "pgAdvantages")),
		G.WithInit(G.Zeroes()),
	)

	logProbs, entropy, err := head.LogProbsAndEntropy(features, actions)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	loss := G.Must(G.HadamardProd(logProbs, advantages))
	loss = G.Must(G.Mean(loss))
	loss = G.Must(G.Neg(loss))
	if entropyCoef != 0 {
		bonus := G.Must(G.Mul(g.Constant(G.NewF64(entropyCoef)), entropy))
		loss = G.Must(G.Sub(loss, bonus))
	}

	if _, err := G.Grad(loss, head.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}

	pg := &PG{
		head:        head,
		batch:       batch,
		entropyCoef: entropyCoef,
		features:    features,
		actions:     actions,
		advantages:  advantages,
		loss:        loss,
		entropy:     entropy,
		solver:      s,
	}
	G.Read(pg.loss, &pg.lossVal)
	G.Read(pg.entropy, &pg.entropyVal)

	pg.vm = G.NewTapeMachine(g, G.BindDualValues(head.Learnables()...))

	return pg, nil
}

// BatchSize returns the number of transitions per step
func (p *PG) BatchSize() int { return p.batch }

// EntropyCoef returns the weight of the entropy bonus
func (p *PG) EntropyCoef() float64 { return p.entropyCoef }

// Step takes one gradient step on a batch of transitions. features,
// actions, and advantages hold BatchSize() feature vectors, actions,
// and advantages in row-major order. The loss and entropy before the
// step are returned.
func (p *PG) Step(features, actions, advantages []float64) (loss,
	entropy float64, err error) {
	if p.head.Cardinality() == spec.Discrete {
		if err := distribution.CheckIndices(actions,
			p.head.Outputs()); err != nil {
			return 0, 0, fmt.Errorf("step: %w", err)
		}
	}
	for _, in := range []struct {
		node   *G.Node
		values []float64
	}{
		{p.features, features},
		{p.actions, actions},
		{p.advantages, advantages},
	} {
		if err := let(in.node, in.values); err != nil {
			return 0, 0, fmt.Errorf("step: %w", err)
		}
	}

	p.vm.Reset()
	if err := p.vm.RunAll(); err != nil {
		return 0, 0, fmt.Errorf("step: could not compute gradient: %v", err)
	}
	if err := p.solver.Step(p.head.Model()); err != nil {
		return 0, 0, fmt.Errorf("step: could not update parameters: %v", err)
	}

	loss, err = scalar(p.lossVal)
	if err != nil {
		return 0, 0, fmt.Errorf("step: %v", err)
	}
	entropy, err = scalar(p.entropyVal)
	if err != nil {
		return 0, 0, fmt.Errorf("step: %v", err)
	}
	return loss, entropy, nil
}

// Close releases the resources held by the virtual machine
func (p *PG) Close() error {
	return p.vm.Close()
}

// let binds a copy of values to the matrix node n
func let(n *G.Node, values []float64) error {
	shape := n.Shape()
	if len(values) != shape.TotalSize() {
		return fmt.Errorf("%v: expected %v values but got %v: %w", n.Name(),
			shape.TotalSize(), len(values), distribution.ErrShapeMismatch)
	}

	backing := make([]float64, len(values))
	copy(backing, values)
	return G.Let(n, tensor.New(tensor.WithShape(shape.Clone()...),
		tensor.WithBacking(backing)))
}

func scalar(v G.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("scalar: no value computed")
	}
	switch d := v.Data().(type) {
	case float64:
		return d, nil
	case []float64:
		if len(d) == 1 {
			return d[0], nil
		}
	}
	return 0, fmt.Errorf("scalar: expected a single float64 but got %v", v)
}
