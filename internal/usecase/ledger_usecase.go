package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/taxledger/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when stored records break the merge invariants.
	ErrInconsistentLedger = errors.New("ledger is inconsistent")

	// ErrBatchTooLarge is returned for batches above domain.MaxBatchTransactions.
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)

// LedgerUseCase owns the canonical transaction ledger.
type LedgerUseCase struct {
	txManager  TransactionManager
	repo       TransactionRepository
	reconciler *Reconciler
	retrier    Retrier
	metrics    RecordedMetrics
	logger     zerolog.Logger
}

// LedgerOption customizes a LedgerUseCase.
type LedgerOption func(*LedgerUseCase)

// WithLedgerRetrier retries whole upserts on transient storage errors.
func WithLedgerRetrier(r Retrier) LedgerOption {
	return func(uc *LedgerUseCase) { uc.retrier = r }
}

// WithLedgerMetrics reports merge outcomes.
func WithLedgerMetrics(m RecordedMetrics) LedgerOption {
	return func(uc *LedgerUseCase) { uc.metrics = m }
}

// WithLedgerLogger sets the logger.
func WithLedgerLogger(l zerolog.Logger) LedgerOption {
	return func(uc *LedgerUseCase) { uc.logger = l }
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(txManager TransactionManager, repo TransactionRepository, opts ...LedgerOption) *LedgerUseCase {
	uc := &LedgerUseCase{
		txManager:  txManager,
		repo:       repo,
		reconciler: NewReconciler(),
		metrics:    nopMetrics{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Upsert merges batch into the ledger. The batch is validated up front and
// applied atomically: either every mutation lands or none does.
func (uc *LedgerUseCase) Upsert(ctx context.Context, batch []*domain.Transaction) (*domain.MergeReport, error) {
	if len(batch) > domain.MaxBatchTransactions {
		return nil, fmt.Errorf("%w: %d records", ErrBatchTooLarge, len(batch))
	}

	normalized := make([]*domain.Transaction, 0, len(batch))
	for i, txn := range batch {
		c := txn.Clone()
		c.Seq = 0
		c.Normalize()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		normalized = append(normalized, c)
	}

	var report domain.MergeReport
	apply := func() error {
		r, err := uc.upsert(ctx, normalized)
		if err != nil {
			return err
		}
		report = r
		return nil
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, apply)
	} else {
		err = apply()
	}
	if err != nil {
		return nil, err
	}

	uc.metrics.ObserveMerge(report)
	for _, w := range report.Warnings {
		uc.logger.Warn().
			Str("kind", string(w.Kind)).
			Str("symbol", w.Symbol).
			Time("date", w.Date).
			Strs("refs", w.Refs).
			Msg(w.Message)
	}
	uc.logger.Info().
		Int("identical", report.Identical).
		Int("updated", report.Updated).
		Int("new", report.New).
		Int("removed", report.Removed).
		Int("superseded", report.Superseded).
		Msg("ledger batch merged")

	return &report, nil
}

func (uc *LedgerUseCase) upsert(ctx context.Context, batch []*domain.Transaction) (domain.MergeReport, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return domain.MergeReport{}, err
	}
	defer tx.Rollback(ctx)

	existing, err := uc.repo.FindByDates(ctx, tx, batchDates(batch))
	if err != nil {
		return domain.MergeReport{}, err
	}

	// Authoritative records may be refreshed with a different date.
	byID, err := uc.repo.FindByIdentities(ctx, tx, authoritativeIDs(batch))
	if err != nil {
		return domain.MergeReport{}, err
	}
	existing = mergeByIdentity(existing, byID)

	plan := uc.reconciler.Plan(existing, batch)

	if plan.HasChanges() {
		if err := uc.apply(ctx, tx, plan); err != nil {
			return domain.MergeReport{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.MergeReport{}, err
	}

	return plan.Report(), nil
}

func (uc *LedgerUseCase) apply(ctx context.Context, tx Transaction, plan *domain.MergePlan) error {
	for _, removed := range plan.Removals {
		if err := uc.repo.Delete(ctx, tx, removed.Identity()); err != nil {
			return fmt.Errorf("remove %s: %w", removed.Identity(), err)
		}
	}

	for _, o := range plan.Outcomes {
		switch o.Action {
		case domain.MergeUpdated:
			if o.Replaces != "" && o.Replaces != o.Record.Identity() {
				if err := uc.repo.Delete(ctx, tx, o.Replaces); err != nil {
					return fmt.Errorf("replace %s: %w", o.Replaces, err)
				}
			}
			if err := uc.repo.Save(ctx, tx, o.Record); err != nil {
				return fmt.Errorf("update %s: %w", o.Record.Identity(), err)
			}
		case domain.MergeNew:
			if err := uc.repo.Save(ctx, tx, o.Record); err != nil {
				return fmt.Errorf("insert %s: %w", o.Record.Identity(), err)
			}
		}
	}

	return nil
}

// Reconcile merges an imported batch and an authoritative batch in one
// atomic step. Sources are stamped from the argument position.
func (uc *LedgerUseCase) Reconcile(ctx context.Context, imported, authoritative []*domain.Transaction) (*domain.MergeReport, error) {
	batch := make([]*domain.Transaction, 0, len(imported)+len(authoritative))
	for _, txn := range imported {
		c := txn.Clone()
		c.Source = domain.SourceImported
		batch = append(batch, c)
	}
	for _, txn := range authoritative {
		c := txn.Clone()
		c.Source = domain.SourceAuthoritative
		batch = append(batch, c)
	}
	return uc.Upsert(ctx, batch)
}

// Query returns records in range, optionally for one symbol, ordered by
// date then identity.
func (uc *LedgerUseCase) Query(ctx context.Context, rng domain.DateRange, symbol string) ([]*domain.Transaction, error) {
	return uc.QueryFilter(ctx, domain.TransactionFilter{Range: rng, Symbol: symbol})
}

// QueryFilter returns records matching filter in ledger order.
func (uc *LedgerUseCase) QueryFilter(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	txns, err := uc.repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txns, func(i, j int) bool { return domain.LessTransaction(txns[i], txns[j]) })
	return txns, nil
}

// CheckConsistency verifies that no imported record shares a date, symbol
// and category with an authoritative record.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (bool, error) {
	txns, err := uc.repo.Query(ctx, domain.TransactionFilter{})
	if err != nil {
		return false, err
	}

	covered := make(map[string]bool)
	for _, txn := range txns {
		if txn.Source == domain.SourceAuthoritative {
			covered[txn.GroupKey()] = true
		}
	}

	seen := make(map[string]bool, len(txns))
	for _, txn := range txns {
		id := txn.Identity()
		if seen[id] {
			return false, fmt.Errorf("%w: duplicate identity %s", ErrInconsistentLedger, id)
		}
		seen[id] = true

		if txn.Source == domain.SourceImported && covered[txn.GroupKey()] {
			return false, fmt.Errorf("%w: imported %s overlaps authoritative data", ErrInconsistentLedger, id)
		}
	}

	return true, nil
}

func batchDates(batch []*domain.Transaction) []time.Time {
	set := make(map[time.Time]struct{}, len(batch))
	dates := make([]time.Time, 0, len(batch))
	for _, txn := range batch {
		if _, ok := set[txn.Date]; ok {
			continue
		}
		set[txn.Date] = struct{}{}
		dates = append(dates, txn.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func authoritativeIDs(batch []*domain.Transaction) []string {
	ids := make([]string, 0, len(batch))
	for _, txn := range batch {
		if txn.Source == domain.SourceAuthoritative {
			ids = append(ids, txn.Identity())
		}
	}
	return ids
}

func mergeByIdentity(a, b []*domain.Transaction) []*domain.Transaction {
	seen := make(map[string]bool, len(a))
	for _, txn := range a {
		seen[txn.Identity()] = true
	}
	for _, txn := range b {
		if !seen[txn.Identity()] {
			seen[txn.Identity()] = true
			a = append(a, txn)
		}
	}
	return a
}
