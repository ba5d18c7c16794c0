package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Module is anything that owns learnable parameters in a computational
// graph. The parameters of a Module are only ever changed by an
// external solver.
type Module interface {
	// Learnables returns the learnable nodes of the Module
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients
	Model() []G.ValueGrad
}

// Layer is a Module that adds its forward pass to a computational
// graph
type Layer interface {
	Module
	Fwd(x *G.Node) (*G.Node, error)
}

// model converts learnable nodes to their ValueGrads
func model(learnables G.Nodes) []G.ValueGrad {
	model := make([]G.ValueGrad, 0, len(learnables))
	for _, node := range learnables {
		model = append(model, node)
	}
	return model
}

// NodeName returns a name for a new input node in graph g. Gorgonia
// deduplicates input nodes of equal type, shape, and name, so nodes
// which must stay distinct, such as the parameters of two layers, are
// suffixed with the current size of the graph.
func NodeName(g *G.ExprGraph, base string) string {
	return fmt.Sprintf("%v_%d", base, len(g.AllNodes()))
}

// checkInput checks that x can be the input of a layer with the
// argument number of features in graph g
func checkInput(g *G.ExprGraph, x *G.Node, features int) error {
	if x.Graph() != g {
		return fmt.Errorf("input is in a different graph than the layer")
	}
	if !x.IsMatrix() {
		return fmt.Errorf("input must be a matrix but got shape %v",
			x.Shape())
	}
	if x.Shape()[1] != features {
		return fmt.Errorf("invalid number of input features \n\twant(%v)"+
			"\n\thave(%v)", features, x.Shape()[1])
	}
	return nil
}
