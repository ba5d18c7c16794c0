package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Linear implements a fully connected layer with no activation. Given
// input x of shape (batch, in), the layer computes x·W + b where W has
// shape (in, out) and the bias b of shape (out) is broadcast along the
// batch dimension.
type Linear struct {
	weights *G.Node
	bias    *G.Node
	in, out int
}

// NewLinear adds the weights and bias of a new Linear layer to graph
// g. The weights are initialized by weightInit and the bias by
// biasInit. If biasInit is nil, the layer has no bias.
func NewLinear(g *G.ExprGraph, in, out int, weightInit,
	biasInit G.InitWFn, name string) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("newLinear: input and output sizes must be "+
			"positive but got (%v, %v)", in, out)
	}
	if weightInit == nil {
		return nil, fmt.Errorf("newLinear: weight initializer required")
	}

	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(NodeName(g, name+"W")),
		G.WithInit(weightInit),
	)

	var bias *G.Node
	if biasInit != nil {
		bias = G.NewVector(
			g,
			tensor.Float64,
			G.WithShape(out),
			G.WithName(NodeName(g, name+"b")),
			G.WithInit(biasInit),
		)
	}

	return &Linear{
		weights: weights,
		bias:    bias,
		in:      in,
		out:     out,
	}, nil
}

// Fwd adds the forward pass of the Linear layer to the computational
// graph
func (l *Linear) Fwd(x *G.Node) (*G.Node, error) {
	if err := checkInput(l.weights.Graph(), x, l.in); err != nil {
		return nil, fmt.Errorf("fwd: %v", err)
	}

	x, err := G.Mul(x, l.weights)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not compute weighted sum: %v", err)
	}

	if l.bias == nil {
		return x, nil
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, l.bias, nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("fwd: could not add bias: %v", err)
	}
	return x, nil
}

// Weights returns the weight node of the layer
func (l *Linear) Weights() *G.Node {
	return l.weights
}

// Bias returns the bias node of the layer, which is nil if the layer
// has no bias
func (l *Linear) Bias() *G.Node {
	return l.bias
}

// In returns the number of input features to the layer
func (l *Linear) In() int { return l.in }

// Out returns the number of outputs of the layer
func (l *Linear) Out() int { return l.out }

// Learnables returns the learnable nodes of the layer
func (l *Linear) Learnables() G.Nodes {
	if l.bias == nil {
		return G.Nodes{l.weights}
	}
	return G.Nodes{l.weights, l.bias}
}

// Model returns the learnable nodes of the layer with their gradients
func (l *Linear) Model() []G.ValueGrad {
	return model(l.Learnables())
}
