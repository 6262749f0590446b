package operators

import "errors"

var (
	// ErrMalformedOperator indicates a CSR layout invariant violation
	ErrMalformedOperator = errors.New("malformed sparse operator")

	// ErrDimensionMismatch indicates two operators of unequal dimension
	// were combined
	ErrDimensionMismatch = errors.New("operator dimensions do not match")
)
