package distribution

import (
	"fmt"

	"github.com/samuelfneumann/actiondist/initwfn"
	"github.com/samuelfneumann/actiondist/network"
	"github.com/samuelfneumann/actiondist/spec"
	"github.com/samuelfneumann/actiondist/utils/op"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// Categorical is a head for discrete action spaces. A linear layer
// maps features to one logit per action; the probability of each
// action is the softmax of the logits.
type Categorical struct {
	g        *G.ExprGraph
	linear   *network.Linear
	features int
	actions  int

	rng *rand.Rand
}

// NewCategorical returns a new Categorical head in graph g over the
// argument number of actions. The weights of the head are initialized
// with weightInit and the bias with biasInit; if biasInit is nil, the
// head has no bias. Stochastic samples are drawn using a source seeded
// with seed.
func NewCategorical(g *G.ExprGraph, features, actions int, weightInit,
	biasInit *initwfn.InitWFn, seed uint64) (*Categorical, error) {
	if g == nil {
		return nil, fmt.Errorf("newCategorical: nil graph")
	}
	if weightInit == nil {
		return nil, fmt.Errorf("newCategorical: weight initializer required")
	}

	var bias G.InitWFn
	if biasInit != nil {
		bias = biasInit.InitWFn()
	}
	linear, err := network.NewLinear(g, features, actions,
		weightInit.InitWFn(), bias, "categorical")
	if err != nil {
		return nil, fmt.Errorf("newCategorical: %v", err)
	}

	return &Categorical{
		g:        g,
		linear:   linear,
		features: features,
		actions:  actions,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// NewDefaultCategorical returns a new Categorical head with orthogonal
// weights of gain 0.01 and a zero bias. Weights are initialized using
// seed and samples are drawn using seed + 1.
func NewDefaultCategorical(g *G.ExprGraph, features, actions int,
	seed uint64) (*Categorical, error) {
	weightInit, err := initwfn.DefaultCategoricalWeights(seed)
	if err != nil {
		return nil, fmt.Errorf("newDefaultCategorical: %v", err)
	}
	biasInit, err := initwfn.DefaultBias()
	if err != nil {
		return nil, fmt.Errorf("newDefaultCategorical: %v", err)
	}

	return NewCategorical(g, features, actions, weightInit, biasInit, seed+1)
}

// Graph returns the computational graph of the head
func (c *Categorical) Graph() *G.ExprGraph { return c.g }

// Features returns the number of input features
func (c *Categorical) Features() int { return c.features }

// Outputs returns the number of actions
func (c *Categorical) Outputs() int { return c.actions }

// Cardinality returns spec.Discrete
func (c *Categorical) Cardinality() spec.Cardinality { return spec.Discrete }

// Learnables returns the weights and bias of the head
func (c *Categorical) Learnables() G.Nodes { return c.linear.Learnables() }

// Model returns the weights and bias of the head with their gradients
func (c *Categorical) Model() []G.ValueGrad { return c.linear.Model() }

// Layer returns the linear layer which computes the logits
func (c *Categorical) Layer() *network.Linear { return c.linear }

// Logits adds the computation of the logits of the action
// distributions to the graph
func (c *Categorical) Logits(features *G.Node) (*G.Node, error) {
	if err := checkMatrix(c.g, features, c.features, "features"); err != nil {
		return nil, fmt.Errorf("logits: %w", err)
	}

	logits, err := c.linear.Fwd(features)
	if err != nil {
		return nil, fmt.Errorf("logits: %v", err)
	}
	return logits, nil
}

// Fwd returns the logits of the action distributions
func (c *Categorical) Fwd(features *G.Node) (G.Nodes, error) {
	logits, err := c.Logits(features)
	if err != nil {
		return nil, fmt.Errorf("fwd: %w", err)
	}
	return G.Nodes{logits}, nil
}

// LogProbs returns the log probabilities of all actions, computed as
// logits - LogSumExp(logits) in each row
func (c *Categorical) LogProbs(features *G.Node) (*G.Node, error) {
	logits, err := c.Logits(features)
	if err != nil {
		return nil, fmt.Errorf("logProbs: %w", err)
	}

	logProbs, err := op.LogSoftmax(logits)
	if err != nil {
		return nil, fmt.Errorf("logProbs: %v", err)
	}
	return logProbs, nil
}

// Probs returns the probabilities of all actions. Each row sums to 1.
func (c *Categorical) Probs(features *G.Node) (*G.Node, error) {
	logProbs, err := c.LogProbs(features)
	if err != nil {
		return nil, fmt.Errorf("probs: %w", err)
	}

	probs, err := G.Exp(logProbs)
	if err != nil {
		return nil, fmt.Errorf("probs: %v", err)
	}
	return probs, nil
}

// Sample returns a node of shape (batch, 1) holding one action index
// per row of features. If deterministic, each index is the first
// action of largest probability.
func (c *Categorical) Sample(features *G.Node, deterministic bool) (*G.Node,
	error) {
	probs, err := c.Probs(features)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}

	actions, err := G.ApplyOp(newCategoricalSampleOp(deterministic, c.rng),
		probs)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}
	return actions, nil
}

// LogProbsAndEntropy returns the log probability of each action index
// in actions, of shape (batch, 1), and the entropy of the action
// distributions averaged over the batch.
//
// Action indices are only known once the graph runs. An index outside
// [0, Outputs()) makes the run fail with an error whose message
// contains ErrIndexOutOfRange but which does not wrap it. Callers that
// need errors.Is should check the actions with CheckIndices before
// binding them, as the policy and pg packages do.
func (c *Categorical) LogProbsAndEntropy(features,
	actions *G.Node) (logProbs, entropy *G.Node, err error) {
	allLogProbs, err := c.LogProbs(features)
	if err != nil {
		return nil, nil, fmt.Errorf("logProbsAndEntropy: %w", err)
	}
	if err := checkActions(c.g, features, actions, 1); err != nil {
		return nil, nil, fmt.Errorf("logProbsAndEntropy: %w", err)
	}
	batch := features.Shape()[0]

	// Gather the log probabilities of the argument actions
	oneHot, err := G.ApplyOp(newOneHotOp(c.actions), actions)
	if err != nil {
		return nil, nil, fmt.Errorf("logProbsAndEntropy: could not encode "+
			"actions: %v", err)
	}
	logProbs = G.Must(G.HadamardProd(oneHot, allLogProbs))
	logProbs = G.Must(G.Sum(logProbs, 1))
	logProbs, err = G.Reshape(logProbs, []int{batch, 1})
	if err != nil {
		return nil, nil, fmt.Errorf("logProbsAndEntropy: %v", err)
	}

	// -Σ p log(p) in each row, averaged over the batch
	probs := G.Must(G.Exp(allLogProbs))
	entropy = G.Must(G.HadamardProd(probs, allLogProbs))
	entropy = G.Must(G.Sum(entropy, 1))
	entropy = G.Must(G.Mean(entropy))
	entropy = G.Must(G.Neg(entropy))

	return logProbs, entropy, nil
}
