package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
)

// BuilderConfig configures a DeclarationBuilder.
type BuilderConfig struct {
	TaxRate               decimal.Decimal
	WithholdingWindowDays int
}

// BuildResult holds freshly built draft declarations. They carry no ID
// until persisted.
type BuildResult struct {
	Declarations []*domain.Declaration
	Warnings     []domain.Warning
}

// DeclarationBuilder partitions gains and income into half-year declarations.
type DeclarationBuilder struct {
	repo      TransactionRepository
	gains     GainsComputer
	converter RateConverter
	cfg       BuilderConfig
	clock     Clock
	logger    zerolog.Logger
}

// NewDeclarationBuilder creates a new DeclarationBuilder.
func NewDeclarationBuilder(
	repo TransactionRepository,
	gains GainsComputer,
	converter RateConverter,
	cfg BuilderConfig,
	clock Clock,
	logger zerolog.Logger,
) *DeclarationBuilder {
	if cfg.TaxRate.IsZero() {
		cfg.TaxRate = DefaultTaxRate
	}
	if cfg.WithholdingWindowDays <= 0 {
		cfg.WithholdingWindowDays = DefaultWithholdingWindowDays
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &DeclarationBuilder{
		repo:      repo,
		gains:     gains,
		converter: converter,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
	}
}

type periodKey struct {
	typ   domain.DeclarationType
	label string
}

// Build produces one draft per (type, half-year) with content inside rng.
// Both bounds of rng must be set. A half-year that rng covers only in part
// yields a declaration bounded by the overlap.
func (b *DeclarationBuilder) Build(ctx context.Context, rng domain.DateRange) (*BuildResult, error) {
	if rng.From.IsZero() || rng.To.IsZero() {
		return nil, fmt.Errorf("%w: declarations need both bounds", domain.ErrInvalidDateRange)
	}

	result := &BuildResult{}
	periods := domain.PeriodsBetween(rng)
	now := b.clock.Now()
	cur := b.converter.ReportingCurrency()

	gains, err := b.gains.ComputeGains(ctx, rng, "")
	if err != nil {
		return nil, fmt.Errorf("compute gains: %w", err)
	}
	result.Warnings = append(result.Warnings, gains.Warnings...)

	income, warnings, err := b.incomeLines(ctx, rng)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warnings...)

	gainsByPeriod := make(map[string][]domain.RealizedGainEvent)
	for _, e := range gains.Events {
		label := domain.PeriodFor(e.CloseDate).Label
		gainsByPeriod[label] = append(gainsByPeriod[label], e)
	}
	incomeByPeriod := make(map[string][]domain.IncomeLine)
	for _, l := range income {
		label := domain.PeriodFor(l.Date).Label
		incomeByPeriod[label] = append(incomeByPeriod[label], l)
	}

	for _, half := range periods {
		p := half.Clip(rng)
		if events := gainsByPeriod[half.Label]; len(events) > 0 {
			d := b.newDeclaration(domain.DeclarationTypeCapitalGains, p, half.DueDate(), cur, now)
			d.GainLines = gainLines(events, cur)
			d.Totals = b.gainTotals(events, cur)
			result.Declarations = append(result.Declarations, d)
		}
		if lines := incomeByPeriod[half.Label]; len(lines) > 0 {
			d := b.newDeclaration(domain.DeclarationTypeIncome, p, half.DueDate(), cur, now)
			d.IncomeLines = lines
			d.Totals = incomeTotals(lines)
			result.Declarations = append(result.Declarations, d)
		}
	}

	b.logger.Debug().
		Time("from", rng.From).
		Time("to", rng.To).
		Int("declarations", len(result.Declarations)).
		Int("warnings", len(result.Warnings)).
		Msg("declarations built")

	return result, nil
}

// newDeclaration starts a draft for p. The filing deadline follows the
// half-year p belongs to.
func (b *DeclarationBuilder) newDeclaration(typ domain.DeclarationType, p domain.Period, due time.Time, cur string, now time.Time) *domain.Declaration {
	return &domain.Declaration{
		Type:            typ,
		Status:          domain.DeclarationStatusDraft,
		Period:          p,
		Currency:        cur,
		DueDate:         due,
		ProofOfActivity: domain.ProofOfActivityPlaceholder,
		Attachments:     make(map[string]domain.Attachment),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func gainLines(events []domain.RealizedGainEvent, cur string) []domain.GainLine {
	lines := make([]domain.GainLine, 0, len(events))
	for _, e := range events {
		lines = append(lines, domain.GainLine{
			Symbol:       e.Symbol,
			OpenDate:     e.OpenDate,
			CloseDate:    e.CloseDate,
			Quantity:     e.Quantity,
			OpenPrice:    e.OpenPrice,
			ClosePrice:   e.ClosePrice,
			Currency:     e.Currency,
			OpenRate:     e.OpenRate,
			CloseRate:    e.CloseRate,
			ProceedsRSD:  domain.RoundHalfUp(e.ProceedsRSD, cur),
			CostBasisRSD: domain.RoundHalfUp(e.CostBasisRSD, cur),
			GainRSD:      domain.RoundHalfUp(e.GainRSD, cur),
			TaxExempt:    e.TaxExempt,
		})
	}
	return lines
}

// gainTotals sums full-precision gains and rounds once.
func (b *DeclarationBuilder) gainTotals(events []domain.RealizedGainEvent, cur string) domain.DeclarationTotals {
	gross, losses := sumGains(events)
	base := decimal.Max(decimal.Zero, gross.Sub(losses))
	tax := base.Mul(b.cfg.TaxRate)
	return domain.DeclarationTotals{
		GrossRSD:         domain.RoundHalfUp(gross, cur),
		LossesRSD:        domain.RoundHalfUp(losses, cur),
		TaxBaseRSD:       domain.RoundHalfUp(base, cur),
		TaxCalculatedRSD: domain.RoundHalfUp(tax, cur),
		ForeignTaxRSD:    decimal.Zero,
		TaxDueRSD:        domain.RoundHalfUp(tax, cur),
	}
}

// incomeTotals adds up already rounded income lines.
func incomeTotals(lines []domain.IncomeLine) domain.DeclarationTotals {
	t := domain.DeclarationTotals{
		GrossRSD:         decimal.Zero,
		LossesRSD:        decimal.Zero,
		TaxBaseRSD:       decimal.Zero,
		TaxCalculatedRSD: decimal.Zero,
		ForeignTaxRSD:    decimal.Zero,
		TaxDueRSD:        decimal.Zero,
	}
	for _, l := range lines {
		t.GrossRSD = t.GrossRSD.Add(l.GrossRSD)
		t.TaxCalculatedRSD = t.TaxCalculatedRSD.Add(l.TaxRSD)
		t.ForeignTaxRSD = t.ForeignTaxRSD.Add(l.WithheldRSD)
		t.TaxDueRSD = t.TaxDueRSD.Add(l.TaxDueRSD)
	}
	t.TaxBaseRSD = t.GrossRSD
	return t
}

// incomeAccumulator collects full-precision figures of one income line.
type incomeAccumulator struct {
	date     time.Time
	symbol   string
	typ      domain.TransactionType
	reported bool
	gross    decimal.Decimal
	withheld decimal.Decimal
}

// incomeLines groups dividends and interest by payment date, symbol and type
// and attributes withholding tax to them.
func (b *DeclarationBuilder) incomeLines(ctx context.Context, rng domain.DateRange) ([]domain.IncomeLine, []domain.Warning, error) {
	window := time.Duration(b.cfg.WithholdingWindowDays) * 24 * time.Hour

	// Payments up to window before rng still claim withholding dated inside
	// it; they are matched but not reported.
	records, err := b.repo.Query(ctx, domain.TransactionFilter{
		Range: domain.DateRange{From: rng.From.Add(-window), To: rng.To.Add(window)},
		Types: []domain.TransactionType{
			domain.TransactionTypeDividend,
			domain.TransactionTypeInterest,
			domain.TransactionTypeWithholdingTax,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	sort.SliceStable(records, func(i, j int) bool { return domain.LessTransaction(records[i], records[j]) })

	cur := b.converter.ReportingCurrency()
	var (
		accs     []*incomeAccumulator
		index    = make(map[string]*incomeAccumulator)
		withheld []*domain.Transaction
	)

	for _, r := range records {
		if r.Type == domain.TransactionTypeWithholdingTax {
			withheld = append(withheld, r)
			continue
		}
		reported := rng.Contains(r.Date)
		if !reported && r.Date.After(rng.To) {
			continue
		}
		key := r.Date.Format(domain.DateLayout) + "|" + r.Symbol + "|" + string(r.Type)
		acc, ok := index[key]
		if !ok {
			acc = &incomeAccumulator{
				date:     r.Date,
				symbol:   r.Symbol,
				typ:      r.Type,
				reported: reported,
				gross:    decimal.Zero,
				withheld: decimal.Zero,
			}
			index[key] = acc
			accs = append(accs, acc)
		}
		if !reported {
			continue
		}
		rate, err := b.converter.Rate(ctx, r.Currency, r.Date)
		if err != nil {
			return nil, nil, err
		}
		acc.gross = acc.gross.Add(r.Amount.Mul(rate))
	}

	var warnings []domain.Warning
	for _, w := range withheld {
		acc := attributeWithholding(accs, w, window)
		if acc == nil {
			if rng.Contains(w.Date) {
				warnings = append(warnings, domain.Warning{
					Kind:    domain.WarningUnmatchedWithholding,
					Message: fmt.Sprintf("withholding %s has no income payment within %d days", w.Identity(), b.cfg.WithholdingWindowDays),
					Symbol:  w.Symbol,
					Date:    w.Date,
					Refs:    []string{w.Identity()},
				})
			}
			continue
		}
		if !acc.reported {
			continue
		}
		rate, err := b.converter.Rate(ctx, w.Currency, w.Date)
		if err != nil {
			return nil, nil, err
		}
		acc.withheld = acc.withheld.Add(w.Amount.Mul(rate).Abs())
	}

	lines := make([]domain.IncomeLine, 0, len(accs))
	for _, acc := range accs {
		if !acc.reported || acc.gross.IsZero() && acc.withheld.IsZero() {
			continue
		}
		tax := acc.gross.Mul(b.cfg.TaxRate)
		due := decimal.Max(decimal.Zero, tax.Sub(acc.withheld))
		lines = append(lines, domain.IncomeLine{
			Date:        acc.date,
			Symbol:      acc.symbol,
			Type:        acc.typ,
			IncomeCode:  domain.IncomeCode(acc.typ),
			GrossRSD:    domain.RoundHalfUp(acc.gross, cur),
			WithheldRSD: domain.RoundHalfUp(acc.withheld, cur),
			TaxRSD:      domain.RoundHalfUp(tax, cur),
			TaxDueRSD:   domain.RoundHalfUp(due, cur),
		})
	}

	return lines, warnings, nil
}

// attributeWithholding picks the latest payment of the same symbol dated on
// or before the withholding and no more than window earlier.
func attributeWithholding(accs []*incomeAccumulator, w *domain.Transaction, window time.Duration) *incomeAccumulator {
	var best *incomeAccumulator
	for _, acc := range accs {
		if acc.symbol != w.Symbol || acc.date.After(w.Date) || w.Date.Sub(acc.date) > window {
			continue
		}
		if best == nil || acc.date.After(best.date) {
			best = acc
		}
	}
	return best
}
