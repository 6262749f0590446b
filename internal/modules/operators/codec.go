package operators

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// csrWire is the msgpack wire form of a CSR operator. Complex values are
// split into parallel real/imaginary arrays since msgpack has no native
// complex type.
type csrWire struct {
	Dim      int       `msgpack:"dim"`
	Re       []float64 `msgpack:"re"`
	Im       []float64 `msgpack:"im"`
	ColIndex []int     `msgpack:"col_index"`
	RowPtr   []int     `msgpack:"row_ptr"`
}

// Marshal encodes the operator to msgpack for blob storage
func (op *CSR) Marshal() ([]byte, error) {
	wire := csrWire{
		Dim:      op.Dim,
		Re:       make([]float64, len(op.Values)),
		Im:       make([]float64, len(op.Values)),
		ColIndex: op.ColIndex,
		RowPtr:   op.RowPtr,
	}
	for i, v := range op.Values {
		wire.Re[i] = real(v)
		wire.Im[i] = imag(v)
	}

	data, err := msgpack.Marshal(&wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal operator: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an operator from its msgpack blob form and validates it
func Unmarshal(data []byte) (*CSR, error) {
	var wire csrWire
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal operator: %w", err)
	}
	if len(wire.Re) != len(wire.Im) {
		return nil, fmt.Errorf("%w: %d real parts but %d imaginary parts", ErrMalformedOperator, len(wire.Re), len(wire.Im))
	}

	values := make([]complex128, len(wire.Re))
	for i := range wire.Re {
		values[i] = complex(wire.Re[i], wire.Im[i])
	}

	return NewCSR(wire.Dim, values, wire.ColIndex, wire.RowPtr)
}
