package distribution

import (
	"fmt"
	"hash"
	"math"
	"sync/atomic"

	"github.com/chewxy/hm"
	"github.com/samuelfneumann/actiondist/utils/floatutils"
	"github.com/samuelfneumann/actiondist/utils/op"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// opID distinguishes stochastic op nodes. Gorgonia merges op nodes with
// equal hashes and children, which would otherwise make two samples
// from the same distribution identical.
var opID uint64

func nextOpID() uint64 {
	return atomic.AddUint64(&opID, 1)
}

// matrixFloat64 returns the backing data and shape of a float64 matrix
// value
func matrixFloat64(v G.Value) ([]float64, tensor.Shape, error) {
	t, ok := v.(tensor.Tensor)
	if !ok {
		return nil, nil, fmt.Errorf("expected a tensor but got %T", v)
	}
	if t.Dtype() != tensor.Float64 {
		return nil, nil, fmt.Errorf("expected float64 but got %v: %w",
			t.Dtype(), ErrDtype)
	}
	if t.Dims() != 2 {
		return nil, nil, fmt.Errorf("expected a matrix but got shape %v: %w",
			t.Shape(), ErrShapeMismatch)
	}
	data, ok := t.Data().([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("expected []float64 backing but got %T",
			t.Data())
	}
	return data, t.Shape(), nil
}

// categoricalSampleOp draws one action index per row of a matrix of
// probabilities of shape (batch, actions). The output has shape
// (batch, 1). If deterministic, the first index of the largest
// probability in each row is selected.
type categoricalSampleOp struct {
	id            uint64
	deterministic bool
	rng           *rand.Rand
}

func newCategoricalSampleOp(deterministic bool,
	rng *rand.Rand) *categoricalSampleOp {
	return &categoricalSampleOp{
		id:            nextOpID(),
		deterministic: deterministic,
		rng:           rng,
	}
}

func (c *categoricalSampleOp) Arity() int { return 1 }

func (c *categoricalSampleOp) ReturnsPtr() bool { return false }

func (c *categoricalSampleOp) CallsExtern() bool { return false }

func (c *categoricalSampleOp) OverwritesInput() int { return -1 }

func (c *categoricalSampleOp) Hashcode() uint32 { return op.SimpleHash(c) }

func (c *categoricalSampleOp) WriteHash(h hash.Hash) { fmt.Fprint(h, c.String()) }

func (c *categoricalSampleOp) String() string {
	return fmt.Sprintf("CategoricalSample{id=%v, deterministic=%v}()", c.id,
		c.deterministic)
}

func (c *categoricalSampleOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (c *categoricalSampleOp) InferShape(inputs ...G.DimSizer) (tensor.Shape,
	error) {
	if err := op.CheckArity(c, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	shapes, err := G.DimSizersToShapes(inputs)
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if shapes[0].Dims() != 2 {
		return nil, fmt.Errorf("inferShape: expected probabilities to be "+
			"a matrix but got shape %v", shapes[0])
	}
	return tensor.Shape{shapes[0][0], 1}, nil
}

// DiffWRT returns false for the probabilities: sampling is not
// differentiable
func (c *categoricalSampleOp) DiffWRT(inputs int) []bool {
	return make([]bool, inputs)
}

func (c *categoricalSampleOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return nil, fmt.Errorf("symDiff: %v is not differentiable", c)
}

func (c *categoricalSampleOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := op.CheckArity(c, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	probs, shape, err := matrixFloat64(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}

	rows, cols := shape[0], shape[1]
	actions := make([]float64, rows)
	for i := 0; i < rows; i++ {
		row := probs[i*cols : (i+1)*cols]
		for _, p := range row {
			if math.IsNaN(p) {
				return nil, fmt.Errorf("do: NaN probability in row %v", i)
			}
		}

		if c.deterministic {
			_, indices := floatutils.MaxSlice(row)
			actions[i] = float64(indices[0])
		} else {
			actions[i] = float64(c.inverseCDF(row))
		}
	}

	return tensor.New(
		tensor.WithShape(rows, 1),
		tensor.WithBacking(actions),
	), nil
}

// inverseCDF draws an index from the categorical distribution with
// the argument probabilities
func (c *categoricalSampleOp) inverseCDF(probs []float64) int {
	u := c.rng.Float64()
	cumulative := 0.0
	for i, p := range probs {
		cumulative += p
		if u < cumulative {
			return i
		}
	}

	// Rounding can leave the cumulative sum slightly below 1, in which
	// case the last action with nonzero probability is selected
	for i := len(probs) - 1; i > 0; i-- {
		if probs[i] > 0 {
			return i
		}
	}
	return 0
}

// oneHotOp converts a matrix of action indices of shape (batch, 1) to
// a matrix of one-hot rows of shape (batch, classes). Indices that are
// not integers in [0, classes) result in an error wrapping
// ErrIndexOutOfRange.
type oneHotOp struct {
	classes int
}

func newOneHotOp(classes int) *oneHotOp {
	return &oneHotOp{classes: classes}
}

func (o *oneHotOp) Arity() int { return 1 }

func (o *oneHotOp) ReturnsPtr() bool { return false }

func (o *oneHotOp) CallsExtern() bool { return false }

func (o *oneHotOp) OverwritesInput() int { return -1 }

func (o *oneHotOp) Hashcode() uint32 { return op.SimpleHash(o) }

func (o *oneHotOp) WriteHash(h hash.Hash) { fmt.Fprint(h, o.String()) }

func (o *oneHotOp) String() string {
	return fmt.Sprintf("OneHot{classes=%v}()", o.classes)
}

func (o *oneHotOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (o *oneHotOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := op.CheckArity(o, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	shapes, err := G.DimSizersToShapes(inputs)
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if shapes[0].Dims() != 2 || shapes[0][1] != 1 {
		return nil, fmt.Errorf("inferShape: expected indices of shape "+
			"(batch, 1) but got %v", shapes[0])
	}
	return tensor.Shape{shapes[0][0], o.classes}, nil
}

// DiffWRT returns false for the indices, which are constants of the
// log probability computation
func (o *oneHotOp) DiffWRT(inputs int) []bool {
	return make([]bool, inputs)
}

func (o *oneHotOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return nil, fmt.Errorf("symDiff: %v is not differentiable", o)
}

func (o *oneHotOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := op.CheckArity(o, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	indices, shape, err := matrixFloat64(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	if shape[1] != 1 {
		return nil, fmt.Errorf("do: expected indices of shape (batch, 1) "+
			"but got %v: %w", shape, ErrShapeMismatch)
	}

	rows := shape[0]
	backing := make([]float64, rows*o.classes)
	for i, index := range indices {
		if err := checkIndex(index, o.classes); err != nil {
			return nil, fmt.Errorf("do: row %v: %w", i, err)
		}
		backing[i*o.classes+int(index)] = 1.0
	}

	return tensor.New(
		tensor.WithShape(rows, o.classes),
		tensor.WithBacking(backing),
	), nil
}

// checkIndex returns an error wrapping ErrIndexOutOfRange if index is
// not an integer in [0, classes)
func checkIndex(index float64, classes int) error {
	if index != math.Trunc(index) || index < 0 || index >= float64(classes) {
		return fmt.Errorf("index %v not in [0, %v): %w", index, classes,
			ErrIndexOutOfRange)
	}
	return nil
}

// CheckIndices returns an error wrapping ErrIndexOutOfRange if any of
// the argument actions is not a valid action index for a categorical
// distribution over the argument number of classes.
func CheckIndices(actions []float64, classes int) error {
	for i, a := range actions {
		if err := checkIndex(a, classes); err != nil {
			return fmt.Errorf("checkIndices: action %v: %w", i, err)
		}
	}
	return nil
}

// standardNormalOp outputs a tensor of independent standard normal
// draws with the shape of its input. The input only serves as a shape
// and graph reference; its values are ignored.
type standardNormalOp struct {
	id     uint64
	normal distuv.Normal
}

func newStandardNormalOp(normal distuv.Normal) *standardNormalOp {
	return &standardNormalOp{
		id:     nextOpID(),
		normal: normal,
	}
}

func (s *standardNormalOp) Arity() int { return 1 }

func (s *standardNormalOp) ReturnsPtr() bool { return false }

func (s *standardNormalOp) CallsExtern() bool { return false }

func (s *standardNormalOp) OverwritesInput() int { return -1 }

func (s *standardNormalOp) Hashcode() uint32 { return op.SimpleHash(s) }

func (s *standardNormalOp) WriteHash(h hash.Hash) { fmt.Fprint(h, s.String()) }

func (s *standardNormalOp) String() string {
	return fmt.Sprintf("StandardNormal{id=%v}()", s.id)
}

func (s *standardNormalOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (s *standardNormalOp) InferShape(inputs ...G.DimSizer) (tensor.Shape,
	error) {
	if err := op.CheckArity(s, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	shapes, err := G.DimSizersToShapes(inputs)
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return shapes[0].Clone(), nil
}

func (s *standardNormalOp) DiffWRT(inputs int) []bool {
	return make([]bool, inputs)
}

func (s *standardNormalOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return nil, fmt.Errorf("symDiff: %v is not differentiable", s)
}

func (s *standardNormalOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := op.CheckArity(s, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	_, shape, err := matrixFloat64(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}

	backing := make([]float64, shape.TotalSize())
	for i := range backing {
		backing[i] = s.normal.Rand()
	}

	return tensor.New(
		tensor.WithShape(shape.Clone()...),
		tensor.WithBacking(backing),
	), nil
}
