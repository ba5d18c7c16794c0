// Package gae implements a generalized advantage estimate buffer which
// collects the batches consumed by policy gradient steps
package gae

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Buffer implements a forward view generalized advantage estimate -
// GAE(λ) - buffer following https://arxiv.org/abs/1506.02438. This
// implementation is adapted from:
//
// https://github.com/openai/spinningup/tree/master/spinup/algos/tf1/vpg
//
// Features and actions are stored row-major, one row per timestep,
// so that the slices returned by Get can be given directly to a
// policy gradient step.
type Buffer struct {
	features   int // Number of features per timestep
	actionCols int // Number of action columns per timestep
	size       int // Number of timesteps per batch

	pos       int // Current position in the buffer
	pathStart int // Position where the current trajectory starts

	lambda float64 // λ for GAE(λ) calculation
	gamma  float64 // Discount factor ℽ

	featureBuffer []float64
	actionBuffer  []float64
	advBuffer     []float64
	rewBuffer     []float64
	retBuffer     []float64
	valBuffer     []float64
}

// New creates and returns a new GAE(λ) buffer holding batches of size
// timesteps
func New(features, actionCols, size int, lambda, gamma float64) (*Buffer,
	error) {
	if features <= 0 || actionCols <= 0 || size <= 0 {
		return nil, fmt.Errorf("new: features, action columns, and size "+
			"must be positive but got (%v, %v, %v)", features, actionCols,
			size)
	}
	if lambda < 0 || lambda > 1 || gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("new: λ and ℽ must be in [0, 1] but got "+
			"(%v, %v)", lambda, gamma)
	}

	return &Buffer{
		features:      features,
		actionCols:    actionCols,
		size:          size,
		lambda:        lambda,
		gamma:         gamma,
		featureBuffer: make([]float64, size*features),
		actionBuffer:  make([]float64, size*actionCols),
		advBuffer:     make([]float64, size),
		rewBuffer:     make([]float64, size),
		retBuffer:     make([]float64, size),
		valBuffer:     make([]float64, size),
	}, nil
}

// Len returns the number of stored timesteps
func (b *Buffer) Len() int { return b.pos }

// Full returns whether a batch is ready
func (b *Buffer) Full() bool { return b.pos == b.size }

// Store stores the features, action, reward, and value estimate of a
// single timestep
func (b *Buffer) Store(features, action []float64, rew, val float64) error {
	if b.pos >= b.size {
		return fmt.Errorf("store: cannot add new transition, buffer at " +
			"maximum capacity")
	}
	if len(features) != b.features {
		return fmt.Errorf("store: illegal features length \n\twant(%v)"+
			"\n\thave(%v)", b.features, len(features))
	}
	if len(action) != b.actionCols {
		return fmt.Errorf("store: illegal action length \n\twant(%v)"+
			"\n\thave(%v)", b.actionCols, len(action))
	}

	copy(b.featureBuffer[b.pos*b.features:], features)
	copy(b.actionBuffer[b.pos*b.actionCols:], action)
	b.rewBuffer[b.pos] = rew
	b.valBuffer[b.pos] = val
	b.pos++

	return nil
}

// FinishPath computes advantage estimates using GAE(λ) and
// rewards-to-go for each timestep of the current trajectory. It
// should be called at the end of a trajectory or when one gets cut
// off by the buffer filling up.
//
// lastVal should be 0 if the trajectory ended in a terminal state, and
// otherwise v(s), the value estimate of the state the trajectory was
// cut off at, which bootstraps both the advantages and the
// rewards-to-go.
func (b *Buffer) FinishPath(lastVal float64) {
	start, stop := b.pathStart, b.pos
	rews := b.rewBuffer[start:stop]
	vals := b.valBuffer[start:stop]

	// TD errors δ_t = r_t + ℽv(s_{t+1}) - v(s_t)
	deltas := make([]float64, len(rews))
	for t := range rews {
		next := lastVal
		if t+1 < len(vals) {
			next = vals[t+1]
		}
		deltas[t] = rews[t] + b.gamma*next - vals[t]
	}

	copy(b.advBuffer[start:stop], discountCumSum(deltas, 0,
		b.gamma*b.lambda))
	copy(b.retBuffer[start:stop], discountCumSum(rews, lastVal, b.gamma))

	b.pathStart = b.pos
}

// Get returns the features, actions, advantages, and rewards-to-go of
// a full buffer and empties it. Advantages are standardized to mean 0
// and standard deviation 1. The returned slices are copies.
func (b *Buffer) Get() (features, actions, adv, ret []float64, err error) {
	if !b.Full() {
		return nil, nil, nil, nil, fmt.Errorf("get: buffer must be full "+
			"before sampling (%v/%v)", b.pos, b.size)
	}
	if b.pathStart != b.pos {
		return nil, nil, nil, nil, fmt.Errorf("get: current trajectory " +
			"must be finished before sampling")
	}

	b.pos = 0
	b.pathStart = 0

	adv = make([]float64, b.size)
	copy(adv, b.advBuffer)
	mean, std := stat.MeanStdDev(adv, nil)
	floats.AddConst(-mean, adv)
	floats.Scale(1/(std+1e-8), adv)

	features = make([]float64, len(b.featureBuffer))
	copy(features, b.featureBuffer)
	actions = make([]float64, len(b.actionBuffer))
	copy(actions, b.actionBuffer)
	ret = make([]float64, len(b.retBuffer))
	copy(ret, b.retBuffer)

	return features, actions, adv, ret, nil
}

// discountCumSum computes the discounted cumulative sum of x,
// bootstrapped by last. Given x = [x0 x1 ... xN] and discount ℽ, the
// i-th element of the result is:
//
//	xi + ℽ x(i+1) + ... + ℽ^(N-i) xN + ℽ^(N-i+1) last
func discountCumSum(x []float64, last, discount float64) []float64 {
	cumSums := make([]float64, len(x))
	next := last
	for i := len(x) - 1; i >= 0; i-- {
		next = x[i] + discount*next
		cumSums[i] = next
	}
	return cumSums
}
