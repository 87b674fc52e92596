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

// GainsConfig configures a GainsUseCase.
type GainsConfig struct {
	// ExemptHoldingYears marks gains on positions held at least this long as
	// tax exempt. Zero disables the exemption.
	ExemptHoldingYears int
}

// GainsUseCase matches sells against FIFO lots and realizes gains in the
// reporting currency.
type GainsUseCase struct {
	repo      TransactionRepository
	converter RateConverter
	cfg       GainsConfig
	metrics   RecordedMetrics
	logger    zerolog.Logger
}

// NewGainsUseCase creates a new GainsUseCase.
func NewGainsUseCase(repo TransactionRepository, converter RateConverter, cfg GainsConfig, metrics RecordedMetrics, logger zerolog.Logger) *GainsUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &GainsUseCase{
		repo:      repo,
		converter: converter,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// ComputeGains replays trade history up to rng.To and returns the gains of
// sells closing inside rng. A missing rate for any reported leg aborts the
// computation with *domain.MissingRateError.
func (uc *GainsUseCase) ComputeGains(ctx context.Context, rng domain.DateRange, symbol string) (*domain.GainsResult, error) {
	trades, err := uc.repo.Query(ctx, domain.TransactionFilter{
		Range:  domain.DateRange{To: rng.To},
		Symbol: symbol,
		Types:  []domain.TransactionType{domain.TransactionTypeTrade},
	})
	if err != nil {
		return nil, err
	}

	result, err := uc.Match(ctx, trades, rng)
	if err != nil {
		return nil, err
	}

	uc.metrics.ObserveGains(len(result.Events), len(result.Unmatched))
	for _, w := range result.Warnings {
		uc.logger.Warn().
			Str("kind", string(w.Kind)).
			Str("symbol", w.Symbol).
			Time("date", w.Date).
			Msg(w.Message)
	}
	uc.logger.Debug().
		Int("trades", len(trades)).
		Int("events", len(result.Events)).
		Int("unmatched", len(result.Unmatched)).
		Str("total_gain", result.TotalGain().String()).
		Msg("gains computed")

	return result, nil
}

// Activity summarizes realized gains and dividends in rng by month and
// symbol, ordered by month then symbol. Amounts are rounded per row.
func (uc *GainsUseCase) Activity(ctx context.Context, rng domain.DateRange, symbol string) ([]domain.MonthlyActivity, error) {
	gains, err := uc.ComputeGains(ctx, rng, symbol)
	if err != nil {
		return nil, err
	}

	dividends, err := uc.repo.Query(ctx, domain.TransactionFilter{
		Range:  rng,
		Symbol: symbol,
		Types:  []domain.TransactionType{domain.TransactionTypeDividend},
	})
	if err != nil {
		return nil, err
	}

	rows := make(map[string]*domain.MonthlyActivity)
	row := func(date time.Time, sym string) *domain.MonthlyActivity {
		month := date.Format(domain.MonthLayout)
		key := month + "|" + sym
		r, ok := rows[key]
		if !ok {
			r = &domain.MonthlyActivity{Month: month, Symbol: sym, GainRSD: decimal.Zero, DividendsRSD: decimal.Zero}
			rows[key] = r
		}
		return r
	}

	counted := make(map[string]bool)
	for _, e := range gains.Events {
		r := row(e.CloseDate, e.Symbol)
		if !counted[e.SellID] {
			counted[e.SellID] = true
			r.Sales++
		}
		r.GainRSD = r.GainRSD.Add(e.GainRSD)
	}

	for _, d := range dividends {
		rate, err := uc.converter.Rate(ctx, d.Currency, d.Date)
		if err != nil {
			return nil, err
		}
		r := row(d.Date, d.Symbol)
		r.DividendsRSD = r.DividendsRSD.Add(d.Amount.Mul(rate))
	}

	cur := uc.converter.ReportingCurrency()
	out := make([]domain.MonthlyActivity, 0, len(rows))
	for _, r := range rows {
		r.GainRSD = domain.RoundHalfUp(r.GainRSD, cur)
		r.DividendsRSD = domain.RoundHalfUp(r.DividendsRSD, cur)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

// Match runs FIFO matching over trades. Sells outside rng still consume lots
// but produce no output.
func (uc *GainsUseCase) Match(ctx context.Context, trades []*domain.Transaction, rng domain.DateRange) (*domain.GainsResult, error) {
	ordered := make([]*domain.Transaction, 0, len(trades))
	for _, t := range trades {
		if t.IsTrade() {
			ordered = append(ordered, t)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return lessExecution(ordered[i], ordered[j]) })

	book := domain.NewLotBook()
	result := &domain.GainsResult{}

	for _, t := range ordered {
		if !t.IsSell() {
			book.Open(domain.Lot{
				ID:                t.Identity(),
				Symbol:            t.Symbol,
				OpenDate:          t.Date,
				OpenPrice:         t.Price,
				Currency:          t.Currency,
				RemainingQuantity: t.Quantity,
			})
			continue
		}

		var link *domain.LotLink
		if t.OriginalTradeDate != nil && t.OriginalTradePrice != nil {
			link = &domain.LotLink{OpenDate: *t.OriginalTradeDate, OpenPrice: *t.OriginalTradePrice}
		}

		fills, uncovered, linked := book.Consume(t.Symbol, t.Quantity, link)
		if !rng.Contains(t.Date) {
			continue
		}

		if link != nil && !linked {
			result.Warnings = append(result.Warnings, domain.Warning{
				Kind: domain.WarningUnknownLinkage,
				Message: fmt.Sprintf("sell %s links to %s@%s but no such lot is open; using FIFO",
					t.Identity(), link.OpenDate.Format(domain.DateLayout), link.OpenPrice.String()),
				Symbol: t.Symbol,
				Date:   t.Date,
				Refs:   []string{t.Identity()},
			})
		}

		for _, f := range fills {
			event, err := uc.realize(ctx, t, f)
			if err != nil {
				return nil, err
			}
			result.Events = append(result.Events, event)
		}

		if uncovered.IsPositive() {
			result.Unmatched = append(result.Unmatched, domain.UnmatchedSell{Trade: t, Quantity: uncovered})
			result.Warnings = append(result.Warnings, domain.Warning{
				Kind:    domain.WarningUnmatchedSell,
				Message: fmt.Sprintf("sell %s has %s units without an open lot", t.Identity(), uncovered.String()),
				Symbol:  t.Symbol,
				Date:    t.Date,
				Refs:    []string{t.Identity()},
			})
		}
	}

	return result, nil
}

// realize converts both legs of a fill separately before subtracting.
func (uc *GainsUseCase) realize(ctx context.Context, sell *domain.Transaction, f domain.LotFill) (domain.RealizedGainEvent, error) {
	openRate, err := uc.converter.Rate(ctx, f.Lot.Currency, f.Lot.OpenDate)
	if err != nil {
		return domain.RealizedGainEvent{}, err
	}
	closeRate, err := uc.converter.Rate(ctx, sell.Currency, sell.Date)
	if err != nil {
		return domain.RealizedGainEvent{}, err
	}

	cost := f.Lot.OpenPrice.Mul(f.Quantity).Mul(openRate)
	proceeds := sell.Price.Mul(f.Quantity).Mul(closeRate)

	return domain.RealizedGainEvent{
		Symbol:       sell.Symbol,
		SellID:       sell.Identity(),
		LotID:        f.Lot.ID,
		OpenDate:     f.Lot.OpenDate,
		CloseDate:    sell.Date,
		Quantity:     f.Quantity,
		Currency:     sell.Currency,
		OpenPrice:    f.Lot.OpenPrice,
		ClosePrice:   sell.Price,
		OpenRate:     openRate,
		CloseRate:    closeRate,
		ProceedsRSD:  proceeds,
		CostBasisRSD: cost,
		GainRSD:      proceeds.Sub(cost),
		TaxExempt:    domain.HeldAtLeast(f.Lot.OpenDate, sell.Date, uc.cfg.ExemptHoldingYears),
	}, nil
}

// lessExecution orders trades by date, buys before sells, then identity.
func lessExecution(a, b *domain.Transaction) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.IsSell() != b.IsSell() {
		return !a.IsSell()
	}
	return a.Identity() < b.Identity()
}

// sumGains adds up full-precision gains split by sign, skipping exempt events.
func sumGains(events []domain.RealizedGainEvent) (gross, losses decimal.Decimal) {
	gross, losses = decimal.Zero, decimal.Zero
	for _, e := range events {
		if e.TaxExempt {
			continue
		}
		if e.GainRSD.IsPositive() {
			gross = gross.Add(e.GainRSD)
		} else {
			losses = losses.Add(e.GainRSD.Abs())
		}
	}
	return gross, losses
}
