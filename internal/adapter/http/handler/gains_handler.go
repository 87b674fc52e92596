package handler

import (
	"net/http"

	"github.com/iho/taxledger/internal/adapter/http/dto"
)

// GainsHandler handles realized gains requests.
type GainsHandler struct {
	gains GainsService
}

// NewGainsHandler creates a new GainsHandler.
func NewGainsHandler(gains GainsService) *GainsHandler {
	return &GainsHandler{gains: gains}
}

// Compute returns the gains realized in the requested range.
func (h *GainsHandler) Compute(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRangeQuery(r)
	if err != nil {
		writeDomainError(w, "invalid date range", err)
		return
	}

	result, err := h.gains.ComputeGains(r.Context(), rng, r.URL.Query().Get("symbol"))
	if err != nil {
		writeDomainError(w, "failed to compute gains", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GainsFromDomain(result))
}

// Activity returns monthly gains and dividends per symbol.
func (h *GainsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRangeQuery(r)
	if err != nil {
		writeDomainError(w, "invalid date range", err)
		return
	}

	rows, err := h.gains.Activity(r.Context(), rng, r.URL.Query().Get("symbol"))
	if err != nil {
		writeDomainError(w, "failed to summarize activity", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ActivityFromDomain(rows))
}
