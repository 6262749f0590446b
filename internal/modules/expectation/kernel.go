package expectation

import (
	"errors"
	"math/cmplx"

	"github.com/aristath/qbench/internal/modules/operators"
)

// ErrInvalidDimension indicates the operator dimension does not match the
// state dimension. It is detected before any arithmetic is performed.
var ErrInvalidDimension = errors.New("operator and state dimensions do not match")

// RawKet computes the full complex accumulator ⟨ψ|A|ψ⟩ in a single fused
// pass over the CSR rows: each row's (Aψ)[i] is folded into the inner
// product immediately, so the intermediate vector Aψ is never materialized.
// For a Hermitian operator the imaginary part is rounding noise.
func RawKet(op *operators.CSR, psi Ket) (complex128, error) {
	if op.Dim != psi.Dim() {
		return 0, ErrInvalidDimension
	}

	var acc complex128
	for i := 0; i < op.Dim; i++ {
		var row complex128
		for idx := op.RowPtr[i]; idx < op.RowPtr[i+1]; idx++ {
			row += op.Values[idx] * psi[op.ColIndex[idx]]
		}
		acc += cmplx.Conj(psi[i]) * row
	}
	return acc, nil
}

// ValueKet computes the real expectation value ⟨ψ|A|ψ⟩ for a Hermitian
// operator, discarding the (negligible) imaginary part of the accumulator.
func ValueKet(op *operators.CSR, psi Ket) (float64, error) {
	acc, err := RawKet(op, psi)
	if err != nil {
		return 0, err
	}
	return real(acc), nil
}

// RawDensity computes Tr(Aρ) through the vectorized/superoperator layout:
// the operator is lifted to Iₙ⊗A acting on vec(ρ), and the result is
// reduced against vec(Iₙ). Mathematically identical to the wavefunction
// path for ρ = ψψ*, but works in the n² effective dimension and is
// correspondingly slower.
func RawDensity(op *operators.CSR, rho *DensityMatrix) (complex128, error) {
	if op.Dim != rho.Dim() {
		return 0, ErrInvalidDimension
	}

	n := op.Dim
	vec := rho.Vectorize()

	// w = (Iₙ⊗A)·vec(ρ): block j of w applies A to block j of vec(ρ).
	w := make([]complex128, n*n)
	for j := 0; j < n; j++ {
		base := j * n
		for i := 0; i < n; i++ {
			var row complex128
			for idx := op.RowPtr[i]; idx < op.RowPtr[i+1]; idx++ {
				row += op.Values[idx] * vec[base+op.ColIndex[idx]]
			}
			w[base+i] = row
		}
	}

	// Tr(Aρ) = vec(Iₙ)ᵀ·w picks the diagonal positions j*n+j.
	var acc complex128
	for j := 0; j < n; j++ {
		acc += w[j*n+j]
	}
	return acc, nil
}

// ValueDensity computes the real expectation value Tr(Aρ) for a Hermitian
// operator via the vectorized path.
func ValueDensity(op *operators.CSR, rho *DensityMatrix) (float64, error) {
	acc, err := RawDensity(op, rho)
	if err != nil {
		return 0, err
	}
	return real(acc), nil
}

// Value dispatches over the closed set of state representations and returns
// the real expectation value for the given Hermitian operator.
func Value(op *operators.CSR, st State) (float64, error) {
	switch st.Kind {
	case KindDensity:
		return ValueDensity(op, st.Rho)
	case KindKet:
		return ValueKet(op, st.Ket)
	default:
		return 0, errors.New("unknown state kind")
	}
}

// Raw dispatches like Value but returns the raw complex accumulator before
// the real-part truncation.
func Raw(op *operators.CSR, st State) (complex128, error) {
	switch st.Kind {
	case KindDensity:
		return RawDensity(op, st.Rho)
	case KindKet:
		return RawKet(op, st.Ket)
	default:
		return 0, errors.New("unknown state kind")
	}
}
