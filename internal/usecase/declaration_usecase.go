package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
)

// CreateResult reports which declarations were persisted and which periods
// already had one.
type CreateResult struct {
	Created  []*domain.Declaration
	Skipped  []*domain.Declaration
	Warnings []domain.Warning
}

// AttachResult is the outcome of an attach.
type AttachResult struct {
	Declaration *domain.Declaration
	Attachment  domain.Attachment
	// Replaced is set when an attachment with the same name was overwritten.
	Replaced bool
	Notice   *domain.Warning
}

// DeclarationUseCase manages declaration lifecycle and attachments.
type DeclarationUseCase struct {
	txManager TransactionManager
	repo      DeclarationRepository
	builder   *DeclarationBuilder
	idGen     IDGenerator
	clock     Clock
	metrics   RecordedMetrics
	logger    zerolog.Logger
}

// NewDeclarationUseCase creates a new DeclarationUseCase.
func NewDeclarationUseCase(
	txManager TransactionManager,
	repo DeclarationRepository,
	builder *DeclarationBuilder,
	idGen IDGenerator,
	clock Clock,
	metrics RecordedMetrics,
	logger zerolog.Logger,
) *DeclarationUseCase {
	if clock == nil {
		clock = SystemClock()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &DeclarationUseCase{
		txManager: txManager,
		repo:      repo,
		builder:   builder,
		idGen:     idGen,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Preview builds declarations for rng without storing them. An unbounded
// rng means the last complete half-year.
func (uc *DeclarationUseCase) Preview(ctx context.Context, rng domain.DateRange) (*BuildResult, error) {
	return uc.builder.Build(ctx, uc.buildRange(rng))
}

// BuildAndCreate builds declarations for rng and stores the new ones.
func (uc *DeclarationUseCase) BuildAndCreate(ctx context.Context, rng domain.DateRange) (*CreateResult, error) {
	built, err := uc.builder.Build(ctx, uc.buildRange(rng))
	if err != nil {
		return nil, err
	}
	result, err := uc.Create(ctx, built.Declarations)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(built.Warnings, result.Warnings...)
	return result, nil
}

// buildRange defaults an unbounded range to the last complete half-year.
func (uc *DeclarationUseCase) buildRange(rng domain.DateRange) domain.DateRange {
	if rng.From.IsZero() && rng.To.IsZero() {
		return domain.LastCompleteHalf(uc.clock.Now()).Range()
	}
	return rng
}

// Create stores drafts in one transaction. A (type, period) that already
// has a declaration is never overwritten; the stored one is reported in
// Skipped instead.
func (uc *DeclarationUseCase) Create(ctx context.Context, drafts []*domain.Declaration) (*CreateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result := &CreateResult{}
	for _, draft := range drafts {
		if !draft.Type.IsValid() {
			return nil, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidDeclaration, draft.Type)
		}

		existing, err := uc.repo.FindByPeriod(ctx, tx, draft.Type, draft.Period)
		if err != nil && !errors.Is(err, domain.ErrDeclarationNotFound) {
			return nil, err
		}
		if existing != nil {
			result.Skipped = append(result.Skipped, existing)
			continue
		}

		d := draft.Clone()
		d.ID = uc.idGen.Generate()
		d.Status = domain.DeclarationStatusDraft
		now := uc.clock.Now()
		d.CreatedAt = now
		d.UpdatedAt = now

		if err := uc.repo.Create(ctx, tx, d); err != nil {
			return nil, err
		}
		result.Created = append(result.Created, d)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	built := make(map[domain.DeclarationType]int)
	for _, d := range result.Created {
		built[d.Type]++
		uc.logger.Info().
			Str("declaration_id", d.ID).
			Str("type", string(d.Type)).
			Str("period", d.Period.Label).
			Msg("declaration created")
	}
	for typ, n := range built {
		uc.metrics.ObserveDeclarationsBuilt(typ, n)
	}
	for _, d := range result.Skipped {
		uc.logger.Info().
			Str("declaration_id", d.ID).
			Str("type", string(d.Type)).
			Str("period", d.Period.Label).
			Msg("declaration already exists, skipped")
	}

	return result, nil
}

// Get returns a declaration by ID.
func (uc *DeclarationUseCase) Get(ctx context.Context, id string) (*domain.Declaration, error) {
	return uc.repo.GetByID(ctx, id)
}

// List returns declarations matching filter.
func (uc *DeclarationUseCase) List(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error) {
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.repo.List(ctx, filter)
}

// Transition moves a declaration to target. Requesting the current state is
// a no-op. Disallowed moves return *domain.InvalidTransitionError and leave
// the declaration unchanged.
func (uc *DeclarationUseCase) Transition(ctx context.Context, id string, target domain.DeclarationStatus) (*domain.Declaration, error) {
	var from domain.DeclarationStatus
	changed := false

	d, err := uc.mutate(ctx, id, func(d *domain.Declaration) (bool, error) {
		from = d.Status
		ok, err := d.Transition(target, uc.clock.Now())
		changed = ok
		return ok, err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		uc.metrics.ObserveTransition(from, target)
		uc.logger.Info().
			Str("declaration_id", id).
			Str("from", string(from)).
			Str("to", string(target)).
			Msg("declaration transitioned")
	}

	return d, nil
}

// Attach stores content under the base name of filename. An existing
// attachment of that name is replaced and a notice returned.
func (uc *DeclarationUseCase) Attach(ctx context.Context, id, filename string, content []byte) (*AttachResult, error) {
	name, err := domain.AttachmentName(filename)
	if err != nil {
		return nil, err
	}
	if len(content) > domain.MaxAttachmentSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidAttachment, name, domain.MaxAttachmentSize)
	}

	a := domain.NewAttachment(name, content, uc.clock.Now())
	replaced := false

	d, err := uc.mutate(ctx, id, func(d *domain.Declaration) (bool, error) {
		replaced = d.Attach(a)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	result := &AttachResult{Declaration: d, Attachment: a, Replaced: replaced}
	if replaced {
		result.Notice = &domain.Warning{
			Kind:    domain.WarningDuplicateAttachment,
			Message: fmt.Sprintf("attachment %s replaced the previous file with the same name", name),
			Refs:    []string{id, name},
		}
		uc.logger.Info().Str("declaration_id", id).Str("attachment", name).Msg(result.Notice.Message)
	}

	return result, nil
}

// Detach removes the attachment with the base name of filename.
func (uc *DeclarationUseCase) Detach(ctx context.Context, id, filename string) (*domain.Declaration, error) {
	name, err := domain.AttachmentName(filename)
	if err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, func(d *domain.Declaration) (bool, error) {
		return true, d.Detach(name, uc.clock.Now())
	})
}

// SetAssessedTax records the tax office assessment. Drafts have not been
// filed and cannot be assessed.
func (uc *DeclarationUseCase) SetAssessedTax(ctx context.Context, id string, amount decimal.Decimal) (*domain.Declaration, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: assessed tax must not be negative", domain.ErrInvalidDeclaration)
	}
	return uc.mutate(ctx, id, func(d *domain.Declaration) (bool, error) {
		if d.Status == domain.DeclarationStatusDraft {
			return false, domain.ErrDeclarationIsDraft
		}
		v := domain.RoundHalfUp(amount, d.Currency)
		d.AssessedTax = &v
		d.UpdatedAt = uc.clock.Now()
		return true, nil
	})
}

// Document renders the output record set of a declaration.
func (uc *DeclarationUseCase) Document(ctx context.Context, id string) (*domain.Document, error) {
	d, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := d.Document()
	return &doc, nil
}

// mutate loads a declaration for update, applies fn to a copy and stores the
// copy when fn reports a change. Errors from fn leave storage untouched.
func (uc *DeclarationUseCase) mutate(ctx context.Context, id string, fn func(*domain.Declaration) (bool, error)) (*domain.Declaration, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	stored, err := uc.repo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	d := stored.Clone()
	changed, err := fn(d)
	if err != nil {
		return nil, err
	}
	if !changed {
		return stored, nil
	}

	if err := uc.repo.Update(ctx, tx, d); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return d, nil
}
