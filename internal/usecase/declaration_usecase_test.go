package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
	"github.com/iho/taxledger/internal/usecase/mocks"
)

type declarationFixture struct {
	uc    *usecase.DeclarationUseCase
	repo  *mocks.MockDeclarationRepository
	clock *mocks.MockClock
}

func newDeclarations(t *testing.T, txns ...*domain.Transaction) *declarationFixture {
	t.Helper()
	f := newBuilder(t, nil, txns...)
	repo := mocks.NewMockDeclarationRepository()
	clock := mocks.NewMockClock(day("2024-08-01"))
	uc := usecase.NewDeclarationUseCase(mocks.NewMockTransactionManager(), repo, f.builder, mocks.NewMockIDGenerator(), clock, nil, zerolog.Nop())
	return &declarationFixture{uc: uc, repo: repo, clock: clock}
}

// draft stores a single capital gains draft and returns its ID.
func (f *declarationFixture) draft(t *testing.T) string {
	t.Helper()
	p := domain.HalfYear(2024, domain.H1)
	result, err := f.uc.Create(context.Background(), []*domain.Declaration{{
		Type:     domain.DeclarationTypeCapitalGains,
		Period:   p,
		Currency: "RSD",
		DueDate:  p.DueDate(),
	}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return result.Created[0].ID
}

func TestDeclarationUseCase_BuildAndCreateNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newDeclarations(t,
		rsd(authTrade("B1", "2024-01-10", "AAPL", domain.SideBuy, "100", "10")),
		rsd(authTrade("S1", "2024-03-01", "AAPL", domain.SideSell, "110", "2")),
		rsd(authTrade("S2", "2024-09-01", "AAPL", domain.SideSell, "120", "3")),
	)

	first, err := f.uc.BuildAndCreate(ctx, year2024)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	if len(first.Created) != 2 || len(first.Skipped) != 0 {
		t.Fatalf("expected 2 created, got %d created %d skipped", len(first.Created), len(first.Skipped))
	}
	if _, err := f.uc.Transition(ctx, first.Created[0].ID, domain.DeclarationStatusSubmitted); err != nil {
		t.Fatalf("submit: %v", err)
	}

	second, err := f.uc.BuildAndCreate(ctx, year2024)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if len(second.Created) != 0 || len(second.Skipped) != 2 {
		t.Fatalf("expected 2 skipped, got %d created %d skipped", len(second.Created), len(second.Skipped))
	}

	stored, err := f.uc.Get(ctx, first.Created[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.DeclarationStatusSubmitted {
		t.Fatalf("expected submitted declaration to survive rebuild, got %s", stored.Status)
	}

	list, err := f.uc.List(ctx, domain.DeclarationFilter{Type: domain.DeclarationTypeCapitalGains})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(list))
	}
}

func TestDeclarationUseCase_PartialRangeDoesNotBlockHalfYear(t *testing.T) {
	ctx := context.Background()
	f := newDeclarations(t,
		rsd(authTrade("B1", "2024-01-10", "AAPL", domain.SideBuy, "100", "10")),
		rsd(authTrade("S1", "2024-02-10", "AAPL", domain.SideSell, "110", "2")),
		rsd(authTrade("S2", "2024-04-10", "AAPL", domain.SideSell, "120", "3")),
	)

	partial, err := f.uc.BuildAndCreate(ctx, domain.DateRange{From: day("2024-03-01"), To: day("2024-06-30")})
	if err != nil {
		t.Fatalf("partial build: %v", err)
	}
	if len(partial.Created) != 1 {
		t.Fatalf("expected one partial declaration, got %d", len(partial.Created))
	}

	full, err := f.uc.BuildAndCreate(ctx, domain.DateRange{From: day("2024-01-01"), To: day("2024-06-30")})
	if err != nil {
		t.Fatalf("full build: %v", err)
	}
	if len(full.Created) != 1 || len(full.Skipped) != 0 {
		t.Fatalf("expected the half-year to be created, got %d created %d skipped", len(full.Created), len(full.Skipped))
	}
	d := full.Created[0]
	if d.Period.Label != "2024-H1" || len(d.GainLines) != 2 {
		t.Fatalf("expected 2024-H1 with both sales, got %s with %d lines", d.Period.Label, len(d.GainLines))
	}
}

func TestDeclarationUseCase_Transition(t *testing.T) {
	tests := []struct {
		name    string
		path    []domain.DeclarationStatus
		want    domain.DeclarationStatus
		wantErr bool
	}{
		{name: "submit", path: []domain.DeclarationStatus{"submitted"}, want: "submitted"},
		{name: "submit twice", path: []domain.DeclarationStatus{"submitted", "submitted"}, want: "submitted"},
		{name: "pay", path: []domain.DeclarationStatus{"submitted", "paid"}, want: "paid"},
		{name: "back to draft", path: []domain.DeclarationStatus{"submitted", "draft"}, want: "draft"},
		{name: "unpay", path: []domain.DeclarationStatus{"submitted", "paid", "submitted"}, want: "submitted"},
		{name: "pay a draft", path: []domain.DeclarationStatus{"paid"}, want: "paid"},
		{name: "paid back to draft", path: []domain.DeclarationStatus{"submitted", "paid", "draft"}, want: "draft"},
		{name: "unknown state", path: []domain.DeclarationStatus{"archived"}, want: "draft", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newDeclarations(t)
			id := f.draft(t)

			var err error
			for _, target := range tt.path {
				f.clock.Advance(time.Hour)
				if _, err = f.uc.Transition(ctx, id, target); err != nil {
					break
				}
			}

			if tt.wantErr {
				var invalid *domain.InvalidTransitionError
				if !errors.As(err, &invalid) {
					t.Fatalf("expected InvalidTransitionError, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			stored, _ := f.uc.Get(ctx, id)
			if stored.Status != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, stored.Status)
			}
		})
	}
}

func TestDeclarationUseCase_SubmitTwiceKeepsTimestamp(t *testing.T) {
	ctx := context.Background()
	f := newDeclarations(t)
	id := f.draft(t)

	first, err := f.uc.Transition(ctx, id, domain.DeclarationStatusSubmitted)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.clock.Advance(24 * time.Hour)
	second, err := f.uc.Transition(ctx, id, domain.DeclarationStatusSubmitted)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if second.SubmittedAt == nil || !second.SubmittedAt.Equal(*first.SubmittedAt) {
		t.Fatalf("expected submission time to stay %v, got %v", first.SubmittedAt, second.SubmittedAt)
	}
}

func TestDeclarationUseCase_Attachments(t *testing.T) {
	ctx := context.Background()
	f := newDeclarations(t)
	id := f.draft(t)

	first, err := f.uc.Attach(ctx, id, "/home/me/statements/broker.pdf", []byte("%PDF-1.4 first"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if first.Replaced || first.Notice != nil {
		t.Fatal("first attach must not replace anything")
	}

	second, err := f.uc.Attach(ctx, id, `C:\Users\me\broker.pdf`, []byte("%PDF-1.4 second"))
	if err != nil {
		t.Fatalf("attach again: %v", err)
	}
	if !second.Replaced || second.Notice == nil || second.Notice.Kind != domain.WarningDuplicateAttachment {
		t.Fatalf("expected duplicate attachment notice, got %+v", second)
	}

	stored, _ := f.uc.Get(ctx, id)
	names := stored.AttachmentNames()
	if len(names) != 1 || names[0] != "broker.pdf" {
		t.Fatalf("expected single broker.pdf, got %v", names)
	}
	if string(stored.Attachments["broker.pdf"].Content) != "%PDF-1.4 second" {
		t.Fatal("expected last write to win")
	}

	if _, err := f.uc.Detach(ctx, id, "broker.pdf"); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if _, err := f.uc.Detach(ctx, id, "broker.pdf"); !errors.Is(err, domain.ErrAttachmentNotFound) {
		t.Fatalf("expected ErrAttachmentNotFound, got %v", err)
	}
}

func TestDeclarationUseCase_AttachRejectsEmptyName(t *testing.T) {
	f := newDeclarations(t)
	id := f.draft(t)

	_, err := f.uc.Attach(context.Background(), id, "  ", []byte("x"))
	if !errors.Is(err, domain.ErrInvalidAttachment) {
		t.Fatalf("expected ErrInvalidAttachment, got %v", err)
	}
}

func TestDeclarationUseCase_SetAssessedTax(t *testing.T) {
	ctx := context.Background()
	f := newDeclarations(t)
	id := f.draft(t)

	if _, err := f.uc.SetAssessedTax(ctx, id, dec("100.005")); !errors.Is(err, domain.ErrDeclarationIsDraft) {
		t.Fatalf("expected ErrDeclarationIsDraft, got %v", err)
	}

	if _, err := f.uc.Transition(ctx, id, domain.DeclarationStatusSubmitted); err != nil {
		t.Fatalf("submit: %v", err)
	}
	d, err := f.uc.SetAssessedTax(ctx, id, dec("100.005"))
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if d.AssessedTax == nil || !d.AssessedTax.Equal(dec("100.01")) {
		t.Fatalf("expected 100.01, got %v", d.AssessedTax)
	}
}

func TestDeclarationUseCase_Document(t *testing.T) {
	ctx := context.Background()
	f := newDeclarations(t)
	id := f.draft(t)

	doc, err := f.uc.Document(ctx, id)
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.Reference != "ppdg3r-2024-H1" || doc.PeriodStart != "2024-01-01" || doc.PeriodEnd != "2024-06-30" {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	if doc.ProofOfActivity != domain.ProofOfActivityPlaceholder {
		t.Fatalf("expected proof placeholder, got %q", doc.ProofOfActivity)
	}

	if _, err := f.uc.Document(ctx, "missing"); !errors.Is(err, domain.ErrDeclarationNotFound) {
		t.Fatalf("expected ErrDeclarationNotFound, got %v", err)
	}
}

func TestDeclarationUseCase_CreateIsAllOrNothing(t *testing.T) {
	f := newDeclarations(t)
	txMgr := mocks.NewMockTransactionManager()
	uc := usecase.NewDeclarationUseCase(txMgr, f.repo, nil, mocks.NewMockIDGenerator(), f.clock, nil, zerolog.Nop())

	_, err := uc.Create(context.Background(), []*domain.Declaration{
		{Type: domain.DeclarationTypeCapitalGains, Period: domain.HalfYear(2024, domain.H1)},
		{Type: "PP-UNKNOWN", Period: domain.HalfYear(2024, domain.H1)},
	})

	if !errors.Is(err, domain.ErrInvalidDeclaration) {
		t.Fatalf("expected ErrInvalidDeclaration, got %v", err)
	}
	if txMgr.Last.Committed {
		t.Fatal("expected transaction to be rolled back")
	}
}

func TestDeclarationUseCase_DefaultsToLastCompleteHalf(t *testing.T) {
	f := newDeclarations(t,
		rsd(authTrade("B1", "2024-01-10", "AAPL", domain.SideBuy, "100", "10")),
		rsd(authTrade("S1", "2024-03-01", "AAPL", domain.SideSell, "110", "2")),
		rsd(authTrade("S2", "2024-07-15", "AAPL", domain.SideSell, "120", "3")),
	)

	// The fixture clock stands at 2024-08-01, so 2024-H1 is the last complete half.
	preview, err := f.uc.Preview(context.Background(), domain.DateRange{})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(preview.Declarations) != 1 || preview.Declarations[0].Period.Label != "2024-H1" {
		t.Fatalf("expected only 2024-H1, got %+v", preview.Declarations)
	}

	created, err := f.uc.BuildAndCreate(context.Background(), domain.DateRange{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(created.Created) != 1 || created.Created[0].Period.Label != "2024-H1" {
		t.Fatalf("expected 2024-H1 to be created, got %+v", created.Created)
	}
}
