// Package operators provides compressed-sparse-row storage for Hermitian
// operators. The layout is the classic three-array CSR form: nonzero values,
// their column indices, and row pointers marking each row's offset into the
// value array. Operators are immutable once constructed; every constructor
// validates the layout invariants up front so the expectation kernel can
// traverse rows without bounds checks of its own.
package operators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CSR is a square sparse operator in compressed-sparse-row form.
//
// Invariants (enforced by NewCSR and Validate):
//   - len(RowPtr) == Dim+1, RowPtr[0] == 0, RowPtr[Dim] == len(Values)
//   - RowPtr is non-decreasing
//   - len(Values) == len(ColIndex)
//   - every column index is in [0, Dim)
type CSR struct {
	Dim      int
	Values   []complex128
	ColIndex []int
	RowPtr   []int
}

// NewCSR builds a CSR operator from its three parallel arrays and validates
// the layout. The slices are retained, not copied.
func NewCSR(dim int, values []complex128, colIndex []int, rowPtr []int) (*CSR, error) {
	op := &CSR{
		Dim:      dim,
		Values:   values,
		ColIndex: colIndex,
		RowPtr:   rowPtr,
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	return op, nil
}

// Validate checks the CSR layout invariants
func (op *CSR) Validate() error {
	if op.Dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrMalformedOperator, op.Dim)
	}
	if len(op.RowPtr) != op.Dim+1 {
		return fmt.Errorf("%w: row pointer length %d, want %d", ErrMalformedOperator, len(op.RowPtr), op.Dim+1)
	}
	if len(op.Values) != len(op.ColIndex) {
		return fmt.Errorf("%w: %d values but %d column indices", ErrMalformedOperator, len(op.Values), len(op.ColIndex))
	}
	if op.RowPtr[0] != 0 {
		return fmt.Errorf("%w: row pointers must start at 0, got %d", ErrMalformedOperator, op.RowPtr[0])
	}
	if op.RowPtr[op.Dim] != len(op.Values) {
		return fmt.Errorf("%w: final row pointer %d, want %d", ErrMalformedOperator, op.RowPtr[op.Dim], len(op.Values))
	}
	for i := 0; i < op.Dim; i++ {
		if op.RowPtr[i+1] < op.RowPtr[i] {
			return fmt.Errorf("%w: row pointers decrease at row %d", ErrMalformedOperator, i)
		}
	}
	for _, col := range op.ColIndex {
		if col < 0 || col >= op.Dim {
			return fmt.Errorf("%w: column index %d out of range [0, %d)", ErrMalformedOperator, col, op.Dim)
		}
	}
	return nil
}

// NNZ returns the number of stored nonzero entries
func (op *CSR) NNZ() int {
	return len(op.Values)
}

// Identity returns the n-dimensional identity operator
func Identity(n int) *CSR {
	values := make([]complex128, n)
	colIndex := make([]int, n)
	rowPtr := make([]int, n+1)
	for i := 0; i < n; i++ {
		values[i] = 1
		colIndex[i] = i
		rowPtr[i+1] = i + 1
	}
	return &CSR{Dim: n, Values: values, ColIndex: colIndex, RowPtr: rowPtr}
}

// Zero returns the n-dimensional all-zero operator (no stored entries,
// all row pointers equal)
func Zero(n int) *CSR {
	return &CSR{
		Dim:      n,
		Values:   []complex128{},
		ColIndex: []int{},
		RowPtr:   make([]int, n+1),
	}
}

// FromDense converts a dense square matrix to CSR form, dropping exact zeros
func FromDense(m *mat.CDense) (*CSR, error) {
	rows, cols := m.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: dense matrix is %dx%d, want square", ErrMalformedOperator, rows, cols)
	}

	values := make([]complex128, 0)
	colIndex := make([]int, 0)
	rowPtr := make([]int, rows+1)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if v != 0 {
				values = append(values, v)
				colIndex = append(colIndex, j)
			}
		}
		rowPtr[i+1] = len(values)
	}

	return &CSR{Dim: rows, Values: values, ColIndex: colIndex, RowPtr: rowPtr}, nil
}

// ToDense materializes the operator as a dense gonum matrix.
// Used by the dense benchmark baseline and for small-operator debugging.
func (op *CSR) ToDense() *mat.CDense {
	dense := mat.NewCDense(op.Dim, op.Dim, nil)
	for i := 0; i < op.Dim; i++ {
		for idx := op.RowPtr[i]; idx < op.RowPtr[i+1]; idx++ {
			dense.Set(i, op.ColIndex[idx], op.Values[idx])
		}
	}
	return dense
}

// Add returns alpha*a + beta*b. Both operands must share a dimension.
// Entries that cancel to exactly zero are kept out of the result.
func Add(a, b *CSR, alpha, beta complex128) (*CSR, error) {
	if a.Dim != b.Dim {
		return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, a.Dim, b.Dim)
	}

	n := a.Dim
	values := make([]complex128, 0, a.NNZ()+b.NNZ())
	colIndex := make([]int, 0, a.NNZ()+b.NNZ())
	rowPtr := make([]int, n+1)

	// Merge row by row; scatter into a per-row accumulator keyed by column.
	row := make(map[int]complex128, 16)
	cols := make([]int, 0, 16)

	for i := 0; i < n; i++ {
		for k := range row {
			delete(row, k)
		}
		cols = cols[:0]

		for idx := a.RowPtr[i]; idx < a.RowPtr[i+1]; idx++ {
			col := a.ColIndex[idx]
			if _, seen := row[col]; !seen {
				cols = append(cols, col)
			}
			row[col] += alpha * a.Values[idx]
		}
		for idx := b.RowPtr[i]; idx < b.RowPtr[i+1]; idx++ {
			col := b.ColIndex[idx]
			if _, seen := row[col]; !seen {
				cols = append(cols, col)
			}
			row[col] += beta * b.Values[idx]
		}

		sortInts(cols)
		for _, col := range cols {
			if v := row[col]; v != 0 {
				values = append(values, v)
				colIndex = append(colIndex, col)
			}
		}
		rowPtr[i+1] = len(values)
	}

	return &CSR{Dim: n, Values: values, ColIndex: colIndex, RowPtr: rowPtr}, nil
}

// sortInts is an insertion sort; per-row column counts are small
func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
