package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
)

// DeclarationHandler handles declaration requests.
type DeclarationHandler struct {
	declarations DeclarationService
}

// NewDeclarationHandler creates a new DeclarationHandler.
func NewDeclarationHandler(declarations DeclarationService) *DeclarationHandler {
	return &DeclarationHandler{declarations: declarations}
}

// Preview builds declarations for a range without storing them.
func (h *DeclarationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRangeQuery(r)
	if err != nil {
		writeDomainError(w, "invalid date range", err)
		return
	}

	result, err := h.declarations.Preview(r.Context(), rng)
	if err != nil {
		writeDomainError(w, "failed to build declarations", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BuildFromUseCase(result))
}

// Build builds declarations for a range and stores the new drafts. An empty
// body builds the last complete half-year.
func (h *DeclarationHandler) Build(w http.ResponseWriter, r *http.Request) {
	var req dto.BuildDeclarationsRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, "invalid request body", err)
			return
		}
	}

	rng, err := req.ToDomain()
	if err != nil {
		writeDomainError(w, "invalid date range", err)
		return
	}

	result, err := h.declarations.BuildAndCreate(r.Context(), rng)
	if err != nil {
		writeDomainError(w, "failed to create declarations", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreateFromUseCase(result))
}

// List lists declarations, optionally filtered by type and status.
func (h *DeclarationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.DeclarationFilter{
		Type:   domain.DeclarationType(q.Get("type")),
		Status: domain.ParseDeclarationStatus(q.Get("status")),
		Limit:  parseIntQuery(r, "limit", domain.DefaultPageSize),
		Offset: parseIntQuery(r, "offset", 0),
	}

	declarations, err := h.declarations.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to list declarations", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeclarationsFromDomain(declarations))
}

// Get retrieves a declaration by ID.
func (h *DeclarationHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.declarations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get declaration", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeclarationFromDomain(d))
}

// Document renders the output record set of a declaration.
func (h *DeclarationHandler) Document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.declarations.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to render declaration", err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// Transition moves a declaration to another status.
func (h *DeclarationHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req dto.TransitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	d, err := h.declarations.Transition(r.Context(), chi.URLParam(r, "id"), domain.ParseDeclarationStatus(req.Status))
	if err != nil {
		writeDomainError(w, "failed to transition declaration", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeclarationFromDomain(d))
}

// SetAssessedTax records the tax office assessment.
func (h *DeclarationHandler) SetAssessedTax(w http.ResponseWriter, r *http.Request) {
	var req dto.AssessedTaxRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	d, err := h.declarations.SetAssessedTax(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeDomainError(w, "failed to set assessed tax", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeclarationFromDomain(d))
}

// Attach stores the raw request body as an attachment.
func (h *DeclarationHandler) Attach(w http.ResponseWriter, r *http.Request) {
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, domain.MaxAttachmentSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "attachment too large",
				fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read attachment", err.Error())
		return
	}

	result, err := h.declarations.Attach(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "filename"), content)
	if err != nil {
		writeDomainError(w, "failed to attach file", err)
		return
	}

	status := http.StatusCreated
	if result.Replaced {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.AttachFromUseCase(result))
}

// Detach removes an attachment.
func (h *DeclarationHandler) Detach(w http.ResponseWriter, r *http.Request) {
	d, err := h.declarations.Detach(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "filename"))
	if err != nil {
		writeDomainError(w, "failed to detach file", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeclarationFromDomain(d))
}
