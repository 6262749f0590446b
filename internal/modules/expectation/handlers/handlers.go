// Package handlers provides HTTP handlers for expectation-value operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qbench/internal/modules/expectation"
	"github.com/aristath/qbench/internal/modules/operators"
)

// Handler handles expectation HTTP requests
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new expectation handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		log: log.With().Str("handler", "expectation").Logger(),
	}
}

// OperatorPayload is the CSR triplet form of an operator in request bodies
type OperatorPayload struct {
	Dim      int       `json:"dim"`
	ValuesRe []float64 `json:"values_re"`
	ValuesIm []float64 `json:"values_im"`
	ColIndex []int     `json:"col_index"`
	RowPtr   []int     `json:"row_ptr"`
}

// VectorPayload is a dense complex vector in request bodies
type VectorPayload struct {
	Re []float64 `json:"re"`
	Im []float64 `json:"im"`
}

// KetRequest represents a request for a wavefunction expectation value
type KetRequest struct {
	Operator OperatorPayload `json:"operator"`
	Ket      VectorPayload   `json:"ket"`
}

// DensityRequest represents a request for a density-operator expectation value.
// Rho is the row-major n² matrix data.
type DensityRequest struct {
	Operator OperatorPayload `json:"operator"`
	Rho      VectorPayload   `json:"rho"`
}

// toCSR converts the payload to a validated CSR operator
func (p *OperatorPayload) toCSR() (*operators.CSR, error) {
	if len(p.ValuesRe) != len(p.ValuesIm) {
		return nil, operators.ErrMalformedOperator
	}
	values := make([]complex128, len(p.ValuesRe))
	for i := range p.ValuesRe {
		values[i] = complex(p.ValuesRe[i], p.ValuesIm[i])
	}
	return operators.NewCSR(p.Dim, values, p.ColIndex, p.RowPtr)
}

// toComplex converts the payload to a complex slice
func (p *VectorPayload) toComplex() ([]complex128, error) {
	if len(p.Re) != len(p.Im) {
		return nil, errors.New("re and im arrays must have equal length")
	}
	out := make([]complex128, len(p.Re))
	for i := range p.Re {
		out[i] = complex(p.Re[i], p.Im[i])
	}
	return out, nil
}

// HandleKetExpectation handles POST /api/expectation/ket
func (h *Handler) HandleKetExpectation(w http.ResponseWriter, r *http.Request) {
	var req KetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	op, err := req.Operator.toCSR()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	vec, err := req.Ket.toComplex()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	psi := expectation.Ket(vec)

	raw, err := expectation.RawKet(op, psi)
	if err != nil {
		h.writeKernelError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"value": real(raw),
			"raw": map[string]interface{}{
				"real":      real(raw),
				"imaginary": imag(raw),
			},
			"norm": psi.Norm(),
			"dim":  op.Dim,
			"nnz":  op.NNZ(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDensityExpectation handles POST /api/expectation/density
func (h *Handler) HandleDensityExpectation(w http.ResponseWriter, r *http.Request) {
	var req DensityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	op, err := req.Operator.toCSR()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := req.Rho.toComplex()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rho, err := expectation.NewDensityMatrixFromData(op.Dim, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := expectation.RawDensity(op, rho)
	if err != nil {
		h.writeKernelError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"value": real(raw),
			"raw": map[string]interface{}{
				"real":      real(raw),
				"imaginary": imag(raw),
			},
			"dim": op.Dim,
			"nnz": op.NNZ(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeKernelError maps kernel contract errors to 400, everything else to 500
func (h *Handler) writeKernelError(w http.ResponseWriter, err error) {
	if errors.Is(err, expectation.ErrInvalidDimension) || errors.Is(err, operators.ErrMalformedOperator) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.log.Error().Err(err).Msg("Expectation computation failed")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
