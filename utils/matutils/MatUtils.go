// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Format formats a matrix for printing
func Format(X mat.Matrix) string {
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}

// Columns returns the matrix of the argument values, with cols
// columns per row
func Columns(values []float64, cols int) (*mat.Dense, error) {
	if cols <= 0 || len(values) == 0 || len(values)%cols != 0 {
		return nil, fmt.Errorf("columns: cannot arrange %v values into "+
			"%v columns", len(values), cols)
	}
	backing := make([]float64, len(values))
	copy(backing, values)
	return mat.NewDense(len(values)/cols, cols, backing), nil
}
