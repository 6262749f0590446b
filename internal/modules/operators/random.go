package operators

import (
	"fmt"
	"math/rand"
)

// RandomHermitian generates a seeded random Hermitian operator in CSR form.
// density is the approximate fraction of nonzero entries in the upper
// triangle; the lower triangle mirrors it by conjugation and the diagonal is
// real, so the result is Hermitian by construction. The same (n, density,
// seed) triple always yields the same operator.
func RandomHermitian(n int, density float64, seed int64) (*CSR, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrMalformedOperator, n)
	}
	if density <= 0 || density > 1 {
		return nil, fmt.Errorf("%w: density must be in (0, 1], got %v", ErrMalformedOperator, density)
	}

	rng := rand.New(rand.NewSource(seed))

	// Sample the upper triangle (diagonal included), then mirror.
	// rows[i] maps column -> value for row i.
	rows := make([]map[int]complex128, n)
	for i := range rows {
		rows[i] = make(map[int]complex128)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if rng.Float64() >= density {
				continue
			}
			if i == j {
				// Real diagonal keeps the operator Hermitian
				rows[i][i] = complex(rng.NormFloat64(), 0)
				continue
			}
			v := complex(rng.NormFloat64(), rng.NormFloat64())
			rows[i][j] = v
			rows[j][i] = complex(real(v), -imag(v))
		}
	}

	values := make([]complex128, 0)
	colIndex := make([]int, 0)
	rowPtr := make([]int, n+1)

	cols := make([]int, 0, n)
	for i := 0; i < n; i++ {
		cols = cols[:0]
		for col := range rows[i] {
			cols = append(cols, col)
		}
		sortInts(cols)
		for _, col := range cols {
			values = append(values, rows[i][col])
			colIndex = append(colIndex, col)
		}
		rowPtr[i+1] = len(values)
	}

	return &CSR{Dim: n, Values: values, ColIndex: colIndex, RowPtr: rowPtr}, nil
}
