// Package op provides extended Gorgonia graph operations.
//
// Adapted from aunum/G.ld on GitHub
package op

import (
	"fmt"
	"hash/fnv"

	G "gorgonia.org/gorgonia"
)

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis. The maximum logit along the axis is
// subtracted before exponentiating, so the result is finite for any
// finite logits.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) (*G.Node, error) {
	max, err := G.Max(logits, along)
	if err != nil {
		return nil, fmt.Errorf("logSumExp: could not compute max: %v", err)
	}

	exponent, err := G.BroadcastSub(logits, max, nil, []byte{byte(along)})
	if err != nil {
		return nil, fmt.Errorf("logSumExp: could not shift logits: %v", err)
	}
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Add(max, log)
}

// LogSoftmax computes the log of the softmax of a matrix of logits
// along the row (axis 1) dimension as logits - LogSumExp(logits).
func LogSoftmax(logits *G.Node) (*G.Node, error) {
	if !logits.IsMatrix() {
		return nil, fmt.Errorf("logSoftmax: expected a matrix but got "+
			"shape %v", logits.Shape())
	}

	lse, err := LogSumExp(logits, 1)
	if err != nil {
		return nil, fmt.Errorf("logSoftmax: %v", err)
	}

	return G.BroadcastSub(logits, lse, nil, []byte{1})
}

// SimpleHash constructs the 32-bit FNV-1a hash of a Gorgonia Op.
// Taken from Gorgonia.
func SimpleHash(op G.Op) uint32 {
	h := fnv.New32a()
	op.WriteHash(h)
	return h.Sum32()
}

// CheckArity returns an error if the number of inputs does not match
// the arity of op
func CheckArity(op G.Op, inputs int) error {
	if inputs != op.Arity() && op.Arity() >= 0 {
		return fmt.Errorf("%v has an arity of %d. Got %d instead", op,
			op.Arity(), inputs)
	}
	return nil
}
