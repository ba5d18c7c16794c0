// Package distribution implements stochastic action distribution heads
// for policy networks.
//
// A head maps a batch of features, produced by some upstream encoder
// in a Gorgonia computational graph, to the parameters of a
// distribution over actions. Heads can add nodes to the graph which
// sample actions (stochastically or deterministically) and nodes which
// compute the log probability of given actions and the entropy of the
// distribution. The log probability and entropy nodes are
// differentiable with respect to the head's parameters, so they can be
// used to build policy gradient losses.
//
// Two heads are implemented: Categorical, for discrete action spaces,
// and DiagGaussian, for continuous action spaces. New selects the
// appropriate head for an action space.
//
// The computational graph of a head plays the role of a compute
// device: every node given to a head must belong to the head's graph,
// and every node a head creates is created in the graph of the node it
// is derived from.
//
// Heads never modify their own parameters. Parameters only change when
// an external Solver applies gradients. Heads are not safe for
// concurrent use.
package distribution

import (
	"errors"

	"github.com/samuelfneumann/actiondist/spec"
	G "gorgonia.org/gorgonia"
)

var (
	// ErrUnsupportedActionSpace is returned when a head is requested
	// for an action space which is neither discrete nor continuous
	ErrUnsupportedActionSpace = spec.ErrUnsupportedActionSpace

	// ErrIndexOutOfRange is returned when a discrete action is not an
	// integer in [0, number of actions)
	ErrIndexOutOfRange = errors.New("action index out of range")

	// ErrShapeMismatch is returned when an input has a shape that is
	// incompatible with a head or with another input
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrGraphMismatch is returned when a node does not belong to the
	// computational graph of a head
	ErrGraphMismatch = errors.New("node belongs to a different graph")

	// ErrDtype is returned when a node does not hold float64 values
	ErrDtype = errors.New("unsupported dtype")
)

// Head is a stochastic action distribution head. Given features of
// shape (batch, Features()), a Head parameterizes a batch of
// distributions over actions.
//
// Each method adds new nodes to the head's graph: distribution
// parameters are recomputed for every call and are never cached,
// since the head's parameters change after each gradient step.
type Head interface {
	// Graph returns the computational graph holding the parameters
	Graph() *G.ExprGraph

	// Features returns the number of input features
	Features() int

	// Outputs returns the number of actions of a categorical head or
	// the action dimension of a Gaussian head
	Outputs() int

	// Cardinality returns the cardinality of the actions of the head
	Cardinality() spec.Cardinality

	// Learnables returns the learnable parameters of the head
	Learnables() G.Nodes

	// Model returns the learnable parameters with their gradients
	Model() []G.ValueGrad

	// Fwd adds the computation of the distribution parameters to the
	// graph. A categorical head returns the logits, a Gaussian head
	// returns the mean and log standard deviation, each of shape
	// (batch, Outputs()).
	Fwd(features *G.Node) (G.Nodes, error)

	// Sample returns a node holding one action per row of features.
	// If deterministic is true, the action is the mode of the
	// distribution. Categorical actions have shape (batch, 1) and
	// hold action indices; Gaussian actions have shape
	// (batch, Outputs()).
	Sample(features *G.Node, deterministic bool) (*G.Node, error)

	// LogProbsAndEntropy returns a node holding the log probability
	// of each row of actions, of shape (batch, 1), and a scalar node
	// holding the entropy of the distributions averaged over the
	// batch. Categorical action indices are range checked when the
	// graph runs; see CheckIndices.
	LogProbsAndEntropy(features, actions *G.Node) (logProbs,
		entropy *G.Node, err error)
}

// ActionColumns returns the number of columns in a batch of actions
// for the head: 1 for a categorical head, which takes action indices,
// and Outputs() for a Gaussian head.
func ActionColumns(h Head) int {
	if h.Cardinality() == spec.Discrete {
		return 1
	}
	return h.Outputs()
}
