package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
	"github.com/iho/taxledger/internal/usecase/mocks"
)

type builderFixture struct {
	builder *usecase.DeclarationBuilder
	rates   *mocks.MockRateRepository
	repo    *mocks.MockTransactionRepository
}

func newBuilder(t *testing.T, gains usecase.GainsComputer, txns ...*domain.Transaction) *builderFixture {
	t.Helper()
	repo := mocks.NewMockTransactionRepository()
	seed(t, repo, txns...)
	rateRepo := mocks.NewMockRateRepository()
	conv := newConverter(rateRepo, nil)
	if gains == nil {
		gains = usecase.NewGainsUseCase(repo, conv, usecase.GainsConfig{ExemptHoldingYears: 10}, nil, zerolog.Nop())
	}
	clock := mocks.NewMockClock(day("2025-01-15"))
	return &builderFixture{
		builder: usecase.NewDeclarationBuilder(repo, gains, conv, usecase.BuilderConfig{}, clock, zerolog.Nop()),
		rates:   rateRepo,
		repo:    repo,
	}
}

var year2024 = domain.DateRange{From: day("2024-01-01"), To: day("2024-12-31")}

func TestDeclarationBuilder_PeriodBoundary(t *testing.T) {
	f := newBuilder(t, nil,
		rsd(authTrade("B1", "2024-01-10", "AAPL", domain.SideBuy, "100", "10")),
		rsd(authTrade("S1", "2024-06-30", "AAPL", domain.SideSell, "110", "2")),
		rsd(authTrade("S2", "2024-07-01", "AAPL", domain.SideSell, "120", "3")),
	)

	result, err := f.builder.Build(context.Background(), year2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Declarations) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(result.Declarations))
	}

	h1, h2 := result.Declarations[0], result.Declarations[1]
	if h1.Period.Label != "2024-H1" || h2.Period.Label != "2024-H2" {
		t.Fatalf("expected 2024-H1 and 2024-H2, got %s and %s", h1.Period.Label, h2.Period.Label)
	}
	for _, d := range result.Declarations {
		if d.Type != domain.DeclarationTypeCapitalGains || d.Status != domain.DeclarationStatusDraft {
			t.Fatalf("unexpected declaration %s %s", d.Type, d.Status)
		}
		if len(d.GainLines) != 1 {
			t.Fatalf("%s: expected one line, got %d", d.Period.Label, len(d.GainLines))
		}
	}
	if !h1.GainLines[0].CloseDate.Equal(day("2024-06-30")) || !h1.GainLines[0].GainRSD.Equal(dec("20")) {
		t.Fatalf("unexpected H1 line: %+v", h1.GainLines[0])
	}
	if !h2.GainLines[0].CloseDate.Equal(day("2024-07-01")) || !h2.GainLines[0].GainRSD.Equal(dec("60")) {
		t.Fatalf("unexpected H2 line: %+v", h2.GainLines[0])
	}
	if !h1.Totals.TaxCalculatedRSD.Equal(dec("3")) {
		t.Fatalf("expected H1 tax 3, got %s", h1.Totals.TaxCalculatedRSD)
	}
	if !h1.DueDate.Equal(day("2024-07-30")) {
		t.Fatalf("expected H1 due 2024-07-30, got %s", h1.DueDate)
	}
	if h1.ID != "" {
		t.Fatal("built declarations must not carry an ID before they are stored")
	}
}

func TestDeclarationBuilder_RoundsAtLineAggregation(t *testing.T) {
	f := newBuilder(t, nil,
		rsd(authTrade("B1", "2024-02-01", "AAPL", domain.SideBuy, "100", "2")),
		rsd(authTrade("S1", "2024-03-01", "AAPL", domain.SideSell, "100.005", "1")),
		rsd(authTrade("S2", "2024-03-04", "AAPL", domain.SideSell, "100.005", "1")),
	)

	result, err := f.builder.Build(context.Background(), year2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Declarations) != 1 {
		t.Fatalf("expected one declaration, got %d", len(result.Declarations))
	}

	d := result.Declarations[0]
	for i, l := range d.GainLines {
		if !l.GainRSD.Equal(dec("0.01")) {
			t.Fatalf("line %d: expected half-up 0.01, got %s", i, l.GainRSD)
		}
	}
	if !d.Totals.GrossRSD.Equal(dec("0.01")) {
		t.Fatalf("expected total from full precision 0.01, got %s", d.Totals.GrossRSD)
	}
}

func TestDeclarationBuilder_GainTotals(t *testing.T) {
	f := newBuilder(t, nil,
		rsd(authTrade("B1", "2024-01-10", "AAPL", domain.SideBuy, "100", "10")),
		rsd(authTrade("B2", "2024-01-10", "MSFT", domain.SideBuy, "300", "1")),
		rsd(authTrade("S1", "2024-02-01", "AAPL", domain.SideSell, "130", "10")),
		rsd(authTrade("S2", "2024-03-01", "MSFT", domain.SideSell, "200", "1")),
	)

	result, err := f.builder.Build(context.Background(), year2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	totals := result.Declarations[0].Totals
	if !totals.GrossRSD.Equal(dec("300")) || !totals.LossesRSD.Equal(dec("100")) {
		t.Fatalf("expected gross 300 and losses 100, got %s and %s", totals.GrossRSD, totals.LossesRSD)
	}
	if !totals.TaxBaseRSD.Equal(dec("200")) || !totals.TaxDueRSD.Equal(dec("30")) {
		t.Fatalf("expected base 200 and tax 30, got %s and %s", totals.TaxBaseRSD, totals.TaxDueRSD)
	}
}

func TestDeclarationBuilder_IncomeWithWithholding(t *testing.T) {
	ctrl := gomock.NewController(t)
	gains := mocks.NewMockGainsComputer(ctrl)
	gains.EXPECT().ComputeGains(gomock.Any(), year2024, "").Return(&domain.GainsResult{}, nil)

	f := newBuilder(t, gains,
		cash("D1", domain.TransactionTypeDividend, "2024-03-15", "AAPL", "100", "USD"),
		cash("W1", domain.TransactionTypeWithholdingTax, "2024-03-18", "AAPL", "-15", "USD"),
		cash("I1", domain.TransactionTypeInterest, "2024-04-01", "CASH", "1000", "RSD"),
		cash("W2", domain.TransactionTypeWithholdingTax, "2024-05-01", "MSFT", "-3", "USD"),
		cash("W3", domain.TransactionTypeWithholdingTax, "2024-03-26", "AAPL", "-1", "USD"),
	)
	rates(t, f.rates, "USD", map[string]string{"2024-03-15": "110"})

	result, err := f.builder.Build(context.Background(), year2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Declarations) != 1 {
		t.Fatalf("expected one income declaration, got %d", len(result.Declarations))
	}
	d := result.Declarations[0]
	if d.Type != domain.DeclarationTypeIncome || d.Period.Label != "2024-H1" {
		t.Fatalf("unexpected declaration %s %s", d.Type, d.Period.Label)
	}
	if len(d.IncomeLines) != 2 {
		t.Fatalf("expected 2 income lines, got %d", len(d.IncomeLines))
	}

	div, interest := d.IncomeLines[0], d.IncomeLines[1]
	if div.IncomeCode != domain.IncomeCodeDividend || !div.GrossRSD.Equal(dec("11000")) ||
		!div.WithheldRSD.Equal(dec("1650")) || !div.TaxDueRSD.IsZero() {
		t.Fatalf("unexpected dividend line: %+v", div)
	}
	if interest.IncomeCode != domain.IncomeCodeInterest || !interest.TaxRSD.Equal(dec("150")) ||
		!interest.TaxDueRSD.Equal(dec("150")) {
		t.Fatalf("unexpected interest line: %+v", interest)
	}
	if !d.Totals.GrossRSD.Equal(dec("12000")) || !d.Totals.ForeignTaxRSD.Equal(dec("1650")) ||
		!d.Totals.TaxDueRSD.Equal(dec("150")) {
		t.Fatalf("unexpected totals: %+v", d.Totals)
	}

	unmatched := 0
	for _, w := range result.Warnings {
		if w.Kind == domain.WarningUnmatchedWithholding {
			unmatched++
		}
	}
	if unmatched != 2 {
		t.Fatalf("expected W2 and W3 to be unmatched, got %+v", result.Warnings)
	}
}

func TestDeclarationBuilder_NoContent(t *testing.T) {
	f := newBuilder(t, nil,
		rsd(authTrade("B1", "2024-01-10", "AAPL", domain.SideBuy, "100", "10")),
	)

	result, err := f.builder.Build(context.Background(), year2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Declarations) != 0 {
		t.Fatalf("expected no declarations, got %d", len(result.Declarations))
	}
}

func TestDeclarationBuilder_RequiresBoundedRange(t *testing.T) {
	f := newBuilder(t, nil)

	_, err := f.builder.Build(context.Background(), domain.DateRange{From: day("2024-01-01")})
	if !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestDeclarationBuilder_PropagatesMissingRate(t *testing.T) {
	f := newBuilder(t, nil,
		authTrade("B1", "2024-01-10", "AAPL", domain.SideBuy, "100", "1"),
		authTrade("S1", "2024-02-10", "AAPL", domain.SideSell, "120", "1"),
	)

	_, err := f.builder.Build(context.Background(), year2024)
	if !errors.Is(err, domain.ErrMissingRate) {
		t.Fatalf("expected missing rate, got %v", err)
	}
}

func TestDeclarationBuilder_CustomRangeClipsPeriod(t *testing.T) {
	f := newBuilder(t, nil,
		rsd(authTrade("B1", "2024-01-10", "AAPL", domain.SideBuy, "100", "10")),
		rsd(authTrade("S1", "2024-02-10", "AAPL", domain.SideSell, "110", "2")),
		rsd(authTrade("S2", "2024-04-10", "AAPL", domain.SideSell, "120", "3")),
	)

	rng := domain.DateRange{From: day("2024-03-01"), To: day("2024-06-30")}
	result, err := f.builder.Build(context.Background(), rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Declarations) != 1 {
		t.Fatalf("expected one declaration, got %d", len(result.Declarations))
	}

	d := result.Declarations[0]
	if len(d.GainLines) != 1 || !d.GainLines[0].CloseDate.Equal(day("2024-04-10")) {
		t.Fatalf("expected only the April sale, got %+v", d.GainLines)
	}
	if !d.Period.Start.Equal(day("2024-03-01")) || !d.Period.End.Equal(day("2024-06-30")) {
		t.Fatalf("expected period 2024-03-01..2024-06-30, got %s..%s",
			d.Period.Start.Format(domain.DateLayout), d.Period.End.Format(domain.DateLayout))
	}
	if d.Period.Label == "2024-H1" {
		t.Fatal("a partial half-year must not carry the half-year label")
	}
	if !d.DueDate.Equal(day("2024-07-30")) {
		t.Fatalf("expected the H1 deadline, got %s", d.DueDate)
	}

	doc := d.Document()
	if doc.PeriodStart != "2024-03-01" || doc.PeriodEnd != "2024-06-30" {
		t.Fatalf("expected document bounds 2024-03-01..2024-06-30, got %s..%s", doc.PeriodStart, doc.PeriodEnd)
	}
}

func TestDeclarationBuilder_WithholdingForPaymentBeforeRange(t *testing.T) {
	rng := domain.DateRange{From: day("2024-03-01"), To: day("2024-06-30")}

	ctrl := gomock.NewController(t)
	gains := mocks.NewMockGainsComputer(ctrl)
	gains.EXPECT().ComputeGains(gomock.Any(), rng, "").Return(&domain.GainsResult{}, nil)

	f := newBuilder(t, gains,
		cash("D1", domain.TransactionTypeDividend, "2024-02-27", "AAPL", "100", "USD"),
		cash("W1", domain.TransactionTypeWithholdingTax, "2024-03-02", "AAPL", "-15", "USD"),
		cash("I1", domain.TransactionTypeInterest, "2024-04-01", "CASH", "1000", "RSD"),
	)

	result, err := f.builder.Build(context.Background(), rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, w := range result.Warnings {
		if w.Kind == domain.WarningUnmatchedWithholding {
			t.Fatalf("withholding of a payment before the range must not be unmatched: %+v", w)
		}
	}
	if len(result.Declarations) != 1 || len(result.Declarations[0].IncomeLines) != 1 {
		t.Fatalf("expected only the interest line, got %+v", result.Declarations)
	}
	if line := result.Declarations[0].IncomeLines[0]; line.Symbol != "CASH" || !line.WithheldRSD.IsZero() {
		t.Fatalf("unexpected income line: %+v", line)
	}
}
