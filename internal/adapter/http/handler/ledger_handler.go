package handler

import (
	"errors"
	"net/http"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// LedgerHandler handles transaction ledger requests.
type LedgerHandler struct {
	ledger LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Upsert merges a batch of one source into the ledger.
func (h *LedgerHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	batch, err := req.ToDomain()
	if err != nil {
		writeDomainError(w, "invalid transaction", err)
		return
	}

	report, err := h.ledger.Upsert(r.Context(), batch)
	if err != nil {
		writeDomainError(w, "failed to upsert transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MergeReportFromDomain(report))
}

// Reconcile merges an imported and an authoritative batch atomically.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	imported, authoritative, err := req.ToDomain()
	if err != nil {
		writeDomainError(w, "invalid transaction", err)
		return
	}

	report, err := h.ledger.Reconcile(r.Context(), imported, authoritative)
	if err != nil {
		writeDomainError(w, "failed to reconcile transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MergeReportFromDomain(report))
}

// Query lists records by date range, symbol and type.
func (h *LedgerHandler) Query(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRangeQuery(r)
	if err != nil {
		writeDomainError(w, "invalid date range", err)
		return
	}

	filter := domain.TransactionFilter{
		Range:  rng,
		Symbol: r.URL.Query().Get("symbol"),
	}
	for _, t := range r.URL.Query()["type"] {
		filter.Types = append(filter.Types, domain.TransactionType(t))
	}

	txns, err := h.ledger.QueryFilter(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to query transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}

// Consistency reports whether stored records satisfy the merge invariants.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	ok, err := h.ledger.CheckConsistency(r.Context())
	if errors.Is(err, usecase.ErrInconsistentLedger) {
		writeError(w, http.StatusConflict, "ledger is inconsistent", err.Error())
		return
	}
	if err != nil {
		writeDomainError(w, "failed to check consistency", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"consistent": ok})
}
