package expectation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qbench/internal/modules/operators"
)

const tolerance = 1e-9

func TestRepresentationConsistency(t *testing.T) {
	// The wavefunction path and the vectorized density path must agree for
	// ρ = ψψ* up to floating-point summation order.
	op, err := operators.RandomHermitian(50, 0.1, 1234)
	require.NoError(t, err)
	psi := RandomKet(50, 5678)

	viaKet, err := ValueKet(op, psi)
	require.NoError(t, err)

	viaDensity, err := ValueDensity(op, FromKet(psi))
	require.NoError(t, err)

	assert.InDelta(t, viaKet, viaDensity, tolerance)
}

func TestDenseBaselineConsistency(t *testing.T) {
	op, err := operators.RandomHermitian(30, 0.2, 11)
	require.NoError(t, err)
	psi := RandomKet(30, 22)

	sparse, err := ValueKet(op, psi)
	require.NoError(t, err)

	dense, err := ValueDense(op.ToDense(), psi)
	require.NoError(t, err)

	assert.InDelta(t, sparse, dense, tolerance)
}

func TestDimensionMismatchRejection(t *testing.T) {
	op, err := operators.RandomHermitian(10, 0.3, 1)
	require.NoError(t, err)

	_, err = ValueKet(op, RandomKet(7, 1))
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = RawKet(op, RandomKet(11, 1))
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = ValueDensity(op, NewDensityMatrix(7))
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = ValueDense(op.ToDense(), RandomKet(9, 1))
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestLinearity(t *testing.T) {
	a, err := operators.RandomHermitian(20, 0.2, 3)
	require.NoError(t, err)
	b, err := operators.RandomHermitian(20, 0.2, 4)
	require.NoError(t, err)
	psi := RandomKet(20, 5)

	alpha, beta := 2.5, -1.5
	combined, err := operators.Add(a, b, complex(alpha, 0), complex(beta, 0))
	require.NoError(t, err)

	ea, err := ValueKet(a, psi)
	require.NoError(t, err)
	eb, err := ValueKet(b, psi)
	require.NoError(t, err)
	ec, err := ValueKet(combined, psi)
	require.NoError(t, err)

	assert.InDelta(t, alpha*ea+beta*eb, ec, tolerance)
}

func TestZeroOperator(t *testing.T) {
	psi := RandomKet(15, 9)

	v, err := ValueKet(operators.Zero(15), psi)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	raw, err := RawKet(operators.Zero(15), psi)
	require.NoError(t, err)
	assert.Equal(t, complex128(0), raw)
}

func TestIdentityOperator(t *testing.T) {
	psi := RandomKet(25, 13)

	v, err := ValueKet(operators.Identity(25), psi)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, tolerance)

	// Same through the density path
	v, err = ValueDensity(operators.Identity(25), FromKet(psi))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, tolerance)
}

func TestRawAccumulatorImaginaryPartNegligible(t *testing.T) {
	op, err := operators.RandomHermitian(40, 0.15, 77)
	require.NoError(t, err)
	psi := RandomKet(40, 88)

	raw, err := RawKet(op, psi)
	require.NoError(t, err)

	// Hermitian operator: the imaginary part is pure rounding noise
	assert.InDelta(t, 0.0, imag(raw), tolerance)

	v, err := ValueKet(op, psi)
	require.NoError(t, err)
	assert.Equal(t, real(raw), v)
}

func TestStateDispatch(t *testing.T) {
	op, err := operators.RandomHermitian(16, 0.25, 21)
	require.NoError(t, err)
	psi := RandomKet(16, 34)

	viaKet, err := Value(op, KetState(psi))
	require.NoError(t, err)

	viaDensity, err := Value(op, DensityState(FromKet(psi)))
	require.NoError(t, err)

	assert.InDelta(t, viaKet, viaDensity, tolerance)

	rawKet, err := Raw(op, KetState(psi))
	require.NoError(t, err)
	assert.Equal(t, viaKet, real(rawKet))
}

func TestKetNormalization(t *testing.T) {
	psi := Ket{3, 4}
	assert.InDelta(t, 5.0, psi.Norm(), 1e-15)

	unit := psi.Normalized()
	assert.InDelta(t, 1.0, unit.Norm(), 1e-15)

	// Zero vector stays zero
	zero := Ket{0, 0}
	assert.Equal(t, zero, zero.Normalized())
}

func TestRandomKetIsUnitNorm(t *testing.T) {
	for _, n := range []int{1, 5, 50} {
		psi := RandomKet(n, 3)
		assert.InDelta(t, 1.0, psi.Norm(), 1e-12)
	}
}

func TestVectorizeColumnStacking(t *testing.T) {
	rho := NewDensityMatrix(2)
	rho.Set(0, 0, 1)
	rho.Set(0, 1, 2)
	rho.Set(1, 0, 3)
	rho.Set(1, 1, 4)

	// Column stacking: (0,0), (1,0), (0,1), (1,1)
	assert.Equal(t, []complex128{1, 3, 2, 4}, rho.Vectorize())
}

func TestExpectationIsReal(t *testing.T) {
	// The fixed-seed value must be stable across runs
	op, err := operators.RandomHermitian(50, 0.1, 2024)
	require.NoError(t, err)
	psi := RandomKet(50, 2024)

	a, err := ValueKet(op, psi)
	require.NoError(t, err)
	b, err := ValueKet(op, psi)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.False(t, math.IsNaN(a))
}
