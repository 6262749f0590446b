package expectation

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ValueDense is the dense multiply-then-reduce baseline: A·ψ via a gonum
// dense matrix product, followed by the inner product reduction. The
// benchmark runner compares the fused sparse kernel against this path.
func ValueDense(op *mat.CDense, psi Ket) (float64, error) {
	rows, cols := op.Dims()
	if rows != cols || cols != psi.Dim() {
		return 0, ErrInvalidDimension
	}

	col := mat.NewCDense(cols, 1, psi)
	var product mat.CDense
	product.Mul(op, col)

	var acc complex128
	for i := 0; i < rows; i++ {
		acc += cmplx.Conj(psi[i]) * product.At(i, 0)
	}
	return real(acc), nil
}
