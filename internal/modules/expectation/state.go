// Package expectation computes quantum-mechanical expectation values
// ⟨ψ|A|ψ⟩ and Tr(Aρ) for Hermitian operators in compressed-sparse-row form.
//
// The kernel trusts its Hermiticity precondition: callers assert the
// operator is Hermitian and the kernel never verifies it. The only contract
// error is a dimension mismatch between operator and state.
package expectation

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
)

// Ket is a dense complex state vector. The kernel never enforces
// normalization; callers wanting probabilistic interpretation supply a
// unit-norm vector.
type Ket []complex128

// Dim returns the vector dimension
func (k Ket) Dim() int {
	return len(k)
}

// Norm returns the Euclidean norm of the vector
func (k Ket) Norm() float64 {
	sum := 0.0
	for _, v := range k {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}

// Normalized returns a unit-norm copy of the vector.
// A zero vector is returned unchanged.
func (k Ket) Normalized() Ket {
	norm := k.Norm()
	if norm == 0 {
		return k
	}
	out := make(Ket, len(k))
	scale := complex(1/norm, 0)
	for i, v := range k {
		out[i] = v * scale
	}
	return out
}

// RandomKet generates a seeded random unit-norm ket of dimension n
func RandomKet(n int, seed int64) Ket {
	rng := rand.New(rand.NewSource(seed))
	k := make(Ket, n)
	for i := range k {
		k[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return k.Normalized()
}

// DensityMatrix is a dense n×n representation of a (possibly mixed) quantum
// state. Data is stored row-major.
type DensityMatrix struct {
	dim  int
	data []complex128
}

// NewDensityMatrix creates a zero density matrix of the given dimension
func NewDensityMatrix(dim int) *DensityMatrix {
	return &DensityMatrix{
		dim:  dim,
		data: make([]complex128, dim*dim),
	}
}

// NewDensityMatrixFromData creates a density matrix from row-major data
func NewDensityMatrixFromData(dim int, data []complex128) (*DensityMatrix, error) {
	if len(data) != dim*dim {
		return nil, fmt.Errorf("density matrix data has %d entries, want %d", len(data), dim*dim)
	}
	return &DensityMatrix{dim: dim, data: data}, nil
}

// FromKet builds the pure-state density operator ρ = ψψ*
func FromKet(psi Ket) *DensityMatrix {
	n := psi.Dim()
	rho := NewDensityMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rho.data[i*n+j] = psi[i] * cmplx.Conj(psi[j])
		}
	}
	return rho
}

// Dim returns the matrix dimension
func (d *DensityMatrix) Dim() int {
	return d.dim
}

// At returns the element at row i, column j
func (d *DensityMatrix) At(i, j int) complex128 {
	return d.data[i*d.dim+j]
}

// Set assigns the element at row i, column j
func (d *DensityMatrix) Set(i, j int, v complex128) {
	d.data[i*d.dim+j] = v
}

// Vectorize returns the column-stacked vector form vec(ρ): element (i,j)
// lands at index j*n+i. This is the layout the superoperator path consumes.
func (d *DensityMatrix) Vectorize() []complex128 {
	n := d.dim
	out := make([]complex128, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			out[j*n+i] = d.data[i*n+j]
		}
	}
	return out
}

// StateKind tags the representation variants the kernel dispatches over
type StateKind int

const (
	// KindKet marks a pure state given as a wavefunction vector
	KindKet StateKind = iota
	// KindDensity marks a state given as a density operator
	KindDensity
)

// State is the tagged union over the closed set of state representations.
// Exactly one of Ket and Rho is set, selected by Kind.
type State struct {
	Kind StateKind
	Ket  Ket
	Rho  *DensityMatrix
}

// KetState wraps a wavefunction as a State
func KetState(psi Ket) State {
	return State{Kind: KindKet, Ket: psi}
}

// DensityState wraps a density operator as a State
func DensityState(rho *DensityMatrix) State {
	return State{Kind: KindDensity, Rho: rho}
}

// Dim returns the dimension of the underlying state
func (s State) Dim() int {
	switch s.Kind {
	case KindDensity:
		return s.Rho.Dim()
	default:
		return s.Ket.Dim()
	}
}
