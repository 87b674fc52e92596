package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
)

// RateHandler handles exchange rate requests.
type RateHandler struct {
	rates RateService
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(rates RateService) *RateHandler {
	return &RateHandler{rates: rates}
}

// Save stores a rate table.
func (h *RateHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveRatesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	rates, err := req.ToDomain()
	if err != nil {
		writeDomainError(w, "invalid rate", err)
		return
	}

	added, err := h.rates.SaveRates(r.Context(), rates)
	if err != nil {
		writeDomainError(w, "failed to save rates", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SaveRatesResponse{Added: added})
}

// Lookup resolves the rate used for a currency on a date.
func (h *RateHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(chi.URLParam(r, "currency"))
	date, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeDomainError(w, "invalid date", err)
		return
	}

	rate, err := h.rates.Lookup(r.Context(), currency, date)
	if err != nil {
		writeDomainError(w, "failed to resolve rate", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RateResponse{
		Currency: currency,
		Date:     date.Format(domain.DateLayout),
		Rate:     rate,
	})
}
