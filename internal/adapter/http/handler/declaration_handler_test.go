package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func testDeclaration(status domain.DeclarationStatus) *domain.Declaration {
	p := domain.HalfYear(2024, domain.H1)
	return &domain.Declaration{
		ID:       "01HZ",
		Type:     domain.DeclarationTypeCapitalGains,
		Status:   status,
		Period:   p,
		Currency: "RSD",
		DueDate:  p.DueDate(),
	}
}

func TestDeclarationHandler_Transition(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"submit", `{"status":"submitted"}`, nil, http.StatusOK},
		{"unknown status", `{"status":"archived"}`, &domain.InvalidTransitionError{From: "draft", To: "archived"}, http.StatusConflict},
		{"missing", `{}`, nil, http.StatusBadRequest},
		{"not found", `{"status":"submitted"}`, domain.ErrDeclarationNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewDeclarationHandler(&declarationServiceStub{
				transitionFn: func(ctx context.Context, id string, target domain.DeclarationStatus) (*domain.Declaration, error) {
					if id != "01HZ" {
						t.Fatalf("unexpected id %s", id)
					}
					if tt.err != nil {
						return nil, tt.err
					}
					return testDeclaration(target), nil
				},
			})

			req := withParams(httptest.NewRequest(http.MethodPost, "/declarations/01HZ/transition", strings.NewReader(tt.body)), "id", "01HZ")
			rec := httptest.NewRecorder()

			handler.Transition(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeclarationHandler_Attach(t *testing.T) {
	now := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	handler := NewDeclarationHandler(&declarationServiceStub{
		attachFn: func(ctx context.Context, id, filename string, content []byte) (*usecase.AttachResult, error) {
			calls++
			if filename != "receipt.pdf" || string(content) != "%PDF-1.4" {
				t.Fatalf("unexpected attach %s %q", filename, content)
			}
			result := &usecase.AttachResult{
				Declaration: testDeclaration(domain.DeclarationStatusSubmitted),
				Attachment:  domain.NewAttachment(filename, content, now),
			}
			if calls > 1 {
				result.Replaced = true
				result.Notice = &domain.Warning{Kind: domain.WarningDuplicateAttachment, Message: "replaced receipt.pdf"}
			}
			return result, nil
		},
	})

	for i, want := range []int{http.StatusCreated, http.StatusOK} {
		req := withParams(httptest.NewRequest(http.MethodPut, "/declarations/01HZ/attachments/receipt.pdf", strings.NewReader("%PDF-1.4")),
			"id", "01HZ", "filename", "receipt.pdf")
		rec := httptest.NewRecorder()

		handler.Attach(rec, req)

		if rec.Code != want {
			t.Fatalf("attach %d: expected %d, got %d", i, want, rec.Code)
		}
		if i == 1 && !strings.Contains(rec.Body.String(), string(domain.WarningDuplicateAttachment)) {
			t.Fatalf("expected replacement notice, got %s", rec.Body.String())
		}
	}
}

func TestDeclarationHandler_DetachUnknown(t *testing.T) {
	handler := NewDeclarationHandler(&declarationServiceStub{
		detachFn: func(ctx context.Context, id, filename string) (*domain.Declaration, error) {
			return nil, domain.ErrAttachmentNotFound
		},
	})

	req := withParams(httptest.NewRequest(http.MethodDelete, "/declarations/01HZ/attachments/x.pdf", nil), "id", "01HZ", "filename", "x.pdf")
	rec := httptest.NewRecorder()

	handler.Detach(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeclarationHandler_BuildAndPreview(t *testing.T) {
	var previewRange domain.DateRange
	handler := NewDeclarationHandler(&declarationServiceStub{
		previewFn: func(ctx context.Context, rng domain.DateRange) (*usecase.BuildResult, error) {
			previewRange = rng
			return &usecase.BuildResult{Declarations: []*domain.Declaration{testDeclaration(domain.DeclarationStatusDraft)}}, nil
		},
		buildFn: func(ctx context.Context, rng domain.DateRange) (*usecase.CreateResult, error) {
			return &usecase.CreateResult{
				Created: []*domain.Declaration{testDeclaration(domain.DeclarationStatusDraft)},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/declarations/preview?from=2024-01-01&to=2024-06-30", nil)
	rec := httptest.NewRecorder()
	handler.Preview(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d", rec.Code)
	}
	if previewRange.To.Format(domain.DateLayout) != "2024-06-30" {
		t.Fatalf("unexpected preview range %+v", previewRange)
	}

	req = httptest.NewRequest(http.MethodPost, "/declarations/build", strings.NewReader(`{"from":"2024-01-01","to":"2024-06-30"}`))
	rec = httptest.NewRecorder()
	handler.Build(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("build: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"skipped":[]`) {
		t.Fatalf("expected empty skipped list, got %s", rec.Body.String())
	}
}

func TestDeclarationHandler_BuildWithoutBodyLeavesRangeOpen(t *testing.T) {
	called := false
	handler := NewDeclarationHandler(&declarationServiceStub{
		buildFn: func(ctx context.Context, rng domain.DateRange) (*usecase.CreateResult, error) {
			called = true
			if !rng.From.IsZero() || !rng.To.IsZero() {
				t.Fatalf("expected an open range, got %+v", rng)
			}
			return &usecase.CreateResult{}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Build(rec, httptest.NewRequest(http.MethodPost, "/declarations/build", nil))

	if rec.Code != http.StatusCreated || !called {
		t.Fatalf("expected 201 from the service, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeclarationHandler_SetAssessedTaxOnDraft(t *testing.T) {
	handler := NewDeclarationHandler(&declarationServiceStub{
		setAssessedTaxFn: func(ctx context.Context, id string, amount decimal.Decimal) (*domain.Declaration, error) {
			if !amount.Equal(decimal.RequireFromString("1234.50")) {
				t.Fatalf("unexpected amount %s", amount)
			}
			return nil, domain.ErrDeclarationIsDraft
		},
	})

	req := withParams(httptest.NewRequest(http.MethodPut, "/declarations/01HZ/assessed-tax", strings.NewReader(`{"amount":"1234.50"}`)), "id", "01HZ")
	rec := httptest.NewRecorder()

	handler.SetAssessedTax(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestDeclarationHandler_ListPassesFilter(t *testing.T) {
	var captured domain.DeclarationFilter
	handler := NewDeclarationHandler(&declarationServiceStub{
		listFn: func(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error) {
			captured = filter
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/declarations?type=PP-OPO&status=Submitted&limit=5&offset=10", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.Type != domain.DeclarationTypeIncome || captured.Status != domain.DeclarationStatusSubmitted ||
		captured.Limit != 5 || captured.Offset != 10 {
		t.Fatalf("unexpected filter %+v", captured)
	}
}
