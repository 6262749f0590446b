package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qbench/internal/modules/expectation"
	"github.com/aristath/qbench/internal/modules/operators"
)

func operatorPayload(op *operators.CSR) OperatorPayload {
	p := OperatorPayload{
		Dim:      op.Dim,
		ValuesRe: make([]float64, op.NNZ()),
		ValuesIm: make([]float64, op.NNZ()),
		ColIndex: op.ColIndex,
		RowPtr:   op.RowPtr,
	}
	for i, v := range op.Values {
		p.ValuesRe[i] = real(v)
		p.ValuesIm[i] = imag(v)
	}
	return p
}

func vectorPayload(v []complex128) VectorPayload {
	p := VectorPayload{
		Re: make([]float64, len(v)),
		Im: make([]float64, len(v)),
	}
	for i, c := range v {
		p.Re[i] = real(c)
		p.Im[i] = imag(c)
	}
	return p
}

func TestHandleKetExpectation(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(logger)

	op, err := operators.RandomHermitian(8, 0.4, 3)
	require.NoError(t, err)
	psi := expectation.RandomKet(8, 4)

	body, _ := json.Marshal(KetRequest{
		Operator: operatorPayload(op),
		Ket:      vectorPayload(psi),
	})

	req := httptest.NewRequest("POST", "/api/expectation/ket", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleKetExpectation(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err = json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)

	assert.Contains(t, response, "data")
	data := response["data"].(map[string]interface{})
	assert.Contains(t, data, "value")
	assert.Contains(t, data, "raw")
	assert.Contains(t, data, "norm")

	want, err := expectation.ValueKet(op, psi)
	require.NoError(t, err)
	assert.InDelta(t, want, data["value"].(float64), 1e-9)
	assert.InDelta(t, 1.0, data["norm"].(float64), 1e-9)
}

func TestHandleDensityExpectation(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(logger)

	op, err := operators.RandomHermitian(6, 0.4, 7)
	require.NoError(t, err)
	psi := expectation.RandomKet(6, 8)
	rho := expectation.FromKet(psi)

	rhoData := make([]complex128, 0, 36)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			rhoData = append(rhoData, rho.At(i, j))
		}
	}

	body, _ := json.Marshal(DensityRequest{
		Operator: operatorPayload(op),
		Rho:      vectorPayload(rhoData),
	})

	req := httptest.NewRequest("POST", "/api/expectation/density", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleDensityExpectation(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err = json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)

	data := response["data"].(map[string]interface{})

	// Density path must agree with the wavefunction path
	want, err := expectation.ValueKet(op, psi)
	require.NoError(t, err)
	assert.InDelta(t, want, data["value"].(float64), 1e-9)
}

func TestHandleKetExpectationDimensionMismatch(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(logger)

	op, err := operators.RandomHermitian(8, 0.4, 3)
	require.NoError(t, err)
	psi := expectation.RandomKet(5, 4) // wrong dimension

	body, _ := json.Marshal(KetRequest{
		Operator: operatorPayload(op),
		Ket:      vectorPayload(psi),
	})

	req := httptest.NewRequest("POST", "/api/expectation/ket", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleKetExpectation(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleKetExpectationMalformedOperator(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(logger)

	body, _ := json.Marshal(KetRequest{
		Operator: OperatorPayload{
			Dim:      2,
			ValuesRe: []float64{1},
			ValuesIm: []float64{0},
			ColIndex: []int{5}, // out of range
			RowPtr:   []int{0, 1, 1},
		},
		Ket: vectorPayload([]complex128{1, 0}),
	})

	req := httptest.NewRequest("POST", "/api/expectation/ket", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleKetExpectation(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidJSONRequest(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(logger)

	req := httptest.NewRequest("POST", "/api/expectation/ket", bytes.NewReader([]byte("invalid json")))
	w := httptest.NewRecorder()

	handler.HandleKetExpectation(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
