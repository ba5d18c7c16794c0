package distribution

import (
	"fmt"

	"github.com/samuelfneumann/actiondist/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// checkMatrix checks that x is a float64 matrix in graph g with the
// argument number of columns
func checkMatrix(g *G.ExprGraph, x *G.Node, cols int, what string) error {
	if x == nil {
		return fmt.Errorf("%v is nil: %w", what, ErrShapeMismatch)
	}
	if x.Graph() != g {
		return fmt.Errorf("%v: %w", what, ErrGraphMismatch)
	}
	if x.Dtype() != tensor.Float64 {
		return fmt.Errorf("%v has dtype %v: %w", what, x.Dtype(), ErrDtype)
	}
	if !x.IsMatrix() {
		return fmt.Errorf("%v must be a matrix but got shape %v: %w", what,
			x.Shape(), ErrShapeMismatch)
	}
	if x.Shape()[1] != cols {
		return fmt.Errorf("%v has %v columns but expected %v: %w", what,
			x.Shape()[1], cols, ErrShapeMismatch)
	}
	return nil
}

// checkActions checks that actions can be evaluated under the
// distributions computed from features
func checkActions(g *G.ExprGraph, features, actions *G.Node, cols int) error {
	if err := checkMatrix(g, actions, cols, "actions"); err != nil {
		return err
	}
	if features.Shape()[0] != actions.Shape()[0] {
		return fmt.Errorf("actions batch size %v != features batch size "+
			"%v: %w", actions.Shape()[0], features.Shape()[0],
			ErrShapeMismatch)
	}
	return nil
}

// zerosLike returns a new matrix of zeros with the same shape and
// dtype as ref, in the same graph as ref.
func zerosLike(ref *G.Node, name string) *G.Node {
	return G.NewMatrix(
		ref.Graph(),
		ref.Dtype(),
		G.WithShape(ref.Shape()...),
		G.WithName(network.NodeName(ref.Graph(), name)),
		G.WithInit(G.Zeroes()),
	)
}

// constant returns a float64 scalar constant in graph g
func constant(g *G.ExprGraph, v float64) *G.Node {
	return g.Constant(G.NewF64(v))
}
