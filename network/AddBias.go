package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// AddBias is a layer which holds only a bias vector. Its forward pass
// broadcasts the bias along the batch dimension of its input and adds
// it. The gradient of the broadcast addition with respect to the bias
// is the sum of the incoming gradient over the batch dimension, so
// every sample in a batch contributes to the update of the bias.
type AddBias struct {
	bias *G.Node
	size int
}

// NewAddBias adds a bias vector of the argument size to graph g,
// initialized by init.
func NewAddBias(g *G.ExprGraph, size int, init G.InitWFn,
	name string) (*AddBias, error) {
	if size <= 0 {
		return nil, fmt.Errorf("newAddBias: size must be positive but "+
			"got %v", size)
	}
	if init == nil {
		init = G.Zeroes()
	}

	bias := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(size),
		G.WithName(NodeName(g, name)),
		G.WithInit(init),
	)

	return &AddBias{bias: bias, size: size}, nil
}

// Fwd adds the bias to each row of x
func (a *AddBias) Fwd(x *G.Node) (*G.Node, error) {
	if err := checkInput(a.bias.Graph(), x, a.size); err != nil {
		return nil, fmt.Errorf("fwd: %v", err)
	}

	out, err := G.BroadcastAdd(x, a.bias, nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("fwd: could not add bias: %v", err)
	}
	return out, nil
}

// Bias returns the bias node
func (a *AddBias) Bias() *G.Node {
	return a.bias
}

// Learnables returns the learnable nodes of the layer
func (a *AddBias) Learnables() G.Nodes {
	return G.Nodes{a.bias}
}

// Model returns the learnable nodes of the layer with their gradients
func (a *AddBias) Model() []G.ValueGrad {
	return model(a.Learnables())
}
