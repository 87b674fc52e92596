package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/postgres/generated"
	"github.com/iho/taxledger/internal/usecase"
)

// DeclarationRepository implements usecase.DeclarationRepository. Lines and
// totals are stored as JSONB, attachments in their own table.
type DeclarationRepository struct {
	queries *generated.Queries
}

// NewDeclarationRepository creates a new DeclarationRepository.
func NewDeclarationRepository(pool *pgxpool.Pool) *DeclarationRepository {
	return newDeclarationRepository(pool)
}

func newDeclarationRepository(pool pgxPool) *DeclarationRepository {
	return &DeclarationRepository{queries: generated.New(pool)}
}

// Create stores a new declaration with its attachments.
func (r *DeclarationRepository) Create(ctx context.Context, tx usecase.Transaction, d *domain.Declaration) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	gainLines, incomeLines, totals, err := marshalContent(d)
	if err != nil {
		return err
	}

	err = queries.CreateDeclaration(ctx, generated.CreateDeclarationParams{
		ID:              d.ID,
		Type:            string(d.Type),
		Status:          string(d.Status),
		PeriodLabel:     d.Period.Label,
		PeriodStart:     dateToPg(d.Period.Start),
		PeriodEnd:       dateToPg(d.Period.End),
		Currency:        d.Currency,
		DueDate:         dateToPg(d.DueDate),
		GainLines:       gainLines,
		IncomeLines:     incomeLines,
		Totals:          totals,
		AssessedTax:     optionalDecimalToNumeric(d.AssessedTax),
		ProofOfActivity: d.ProofOfActivity,
		CreatedAt:       timeToPgTimestamptz(d.CreatedAt),
		UpdatedAt:       timeToPgTimestamptz(d.UpdatedAt),
		SubmittedAt:     optionalTimeToPgTimestamptz(d.SubmittedAt),
		PaidAt:          optionalTimeToPgTimestamptz(d.PaidAt),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDeclarationExists
		}
		return err
	}

	return syncAttachments(ctx, queries, d)
}

// GetByID retrieves a declaration by ID.
func (r *DeclarationRepository) GetByID(ctx context.Context, id string) (*domain.Declaration, error) {
	row, err := r.queries.GetDeclarationByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return loadDeclaration(ctx, r.queries, row)
}

// GetByIDForUpdate retrieves a declaration by ID with a FOR UPDATE lock.
func (r *DeclarationRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Declaration, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetDeclarationByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return loadDeclaration(ctx, queries, row)
}

// FindByPeriod returns the declaration of typ for period.
func (r *DeclarationRepository) FindByPeriod(ctx context.Context, tx usecase.Transaction, typ domain.DeclarationType, period domain.Period) (*domain.Declaration, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetDeclarationByPeriod(ctx, generated.GetDeclarationByPeriodParams{
		Type:        string(typ),
		PeriodStart: dateToPg(period.Start),
		PeriodEnd:   dateToPg(period.End),
	})
	if err != nil {
		return nil, notFound(err)
	}
	return loadDeclaration(ctx, queries, row)
}

// Update stores the mutable fields and brings the attachment table in line
// with d.Attachments.
func (r *DeclarationRepository) Update(ctx context.Context, tx usecase.Transaction, d *domain.Declaration) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	gainLines, incomeLines, totals, err := marshalContent(d)
	if err != nil {
		return err
	}

	n, err := queries.UpdateDeclaration(ctx, generated.UpdateDeclarationParams{
		ID:              d.ID,
		Status:          string(d.Status),
		GainLines:       gainLines,
		IncomeLines:     incomeLines,
		Totals:          totals,
		AssessedTax:     optionalDecimalToNumeric(d.AssessedTax),
		ProofOfActivity: d.ProofOfActivity,
		DueDate:         dateToPg(d.DueDate),
		UpdatedAt:       timeToPgTimestamptz(d.UpdatedAt),
		SubmittedAt:     optionalTimeToPgTimestamptz(d.SubmittedAt),
		PaidAt:          optionalTimeToPgTimestamptz(d.PaidAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDeclarationNotFound
	}

	return syncAttachments(ctx, queries, d)
}

// List lists declarations ordered by period, then type.
func (r *DeclarationRepository) List(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error) {
	rows, err := r.queries.ListDeclarations(ctx, generated.ListDeclarationsParams{
		Type:   string(filter.Type),
		Status: string(filter.Status),
		Lim:    int32(filter.Limit),
		Off:    int32(filter.Offset),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*domain.Declaration{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	attachments, err := r.queries.ListAttachments(ctx, ids)
	if err != nil {
		return nil, err
	}
	byDeclaration := make(map[string][]generated.DeclarationAttachment)
	for _, a := range attachments {
		byDeclaration[a.DeclarationID] = append(byDeclaration[a.DeclarationID], a)
	}

	out := make([]*domain.Declaration, 0, len(rows))
	for _, row := range rows {
		d, err := rowToDeclaration(row, byDeclaration[row.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrDeclarationNotFound
	}
	return err
}

func loadDeclaration(ctx context.Context, queries *generated.Queries, row generated.Declaration) (*domain.Declaration, error) {
	attachments, err := queries.ListAttachments(ctx, []string{row.ID})
	if err != nil {
		return nil, err
	}
	return rowToDeclaration(row, attachments)
}

// syncAttachments deletes attachments missing from d and writes the ones
// whose digest changed.
func syncAttachments(ctx context.Context, queries *generated.Queries, d *domain.Declaration) error {
	stored, err := queries.ListAttachmentDigests(ctx, d.ID)
	if err != nil {
		return err
	}

	digests := make(map[string]string, len(stored))
	for _, s := range stored {
		digests[s.Name] = s.Sha256
		if _, keep := d.Attachments[s.Name]; keep {
			continue
		}
		if err := queries.DeleteAttachment(ctx, generated.DeleteAttachmentParams{DeclarationID: d.ID, Name: s.Name}); err != nil {
			return err
		}
	}

	for _, name := range d.AttachmentNames() {
		a := d.Attachments[name]
		if digest, ok := digests[name]; ok && digest == a.SHA256 {
			continue
		}
		err := queries.UpsertAttachment(ctx, generated.UpsertAttachmentParams{
			DeclarationID: d.ID,
			Name:          a.Name,
			ContentType:   a.ContentType,
			Size:          a.Size,
			Sha256:        a.SHA256,
			Content:       a.Content,
			AttachedAt:    timeToPgTimestamptz(a.AttachedAt),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func marshalContent(d *domain.Declaration) (gainLines, incomeLines, totals []byte, err error) {
	if gainLines, err = json.Marshal(nonNil(d.GainLines)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode gain lines: %w", err)
	}
	if incomeLines, err = json.Marshal(nonNil(d.IncomeLines)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode income lines: %w", err)
	}
	if totals, err = json.Marshal(d.Totals); err != nil {
		return nil, nil, nil, fmt.Errorf("encode totals: %w", err)
	}
	return gainLines, incomeLines, totals, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func rowToDeclaration(row generated.Declaration, attachments []generated.DeclarationAttachment) (*domain.Declaration, error) {
	d := &domain.Declaration{
		ID:     row.ID,
		Type:   domain.DeclarationType(row.Type),
		Status: domain.DeclarationStatus(row.Status),
		Period: domain.Period{
			Start: pgToDate(row.PeriodStart),
			End:   pgToDate(row.PeriodEnd),
			Label: row.PeriodLabel,
		},
		Currency:        strings.TrimSpace(row.Currency),
		DueDate:         pgToDate(row.DueDate),
		AssessedTax:     numericToOptionalDecimal(row.AssessedTax),
		ProofOfActivity: row.ProofOfActivity,
		CreatedAt:       row.CreatedAt.Time.UTC(),
		UpdatedAt:       row.UpdatedAt.Time.UTC(),
		SubmittedAt:     pgTimestamptzToOptionalTime(row.SubmittedAt),
		PaidAt:          pgTimestamptzToOptionalTime(row.PaidAt),
	}

	if err := json.Unmarshal(row.GainLines, &d.GainLines); err != nil {
		return nil, fmt.Errorf("decode gain lines of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.IncomeLines, &d.IncomeLines); err != nil {
		return nil, fmt.Errorf("decode income lines of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Totals, &d.Totals); err != nil {
		return nil, fmt.Errorf("decode totals of %s: %w", row.ID, err)
	}

	if len(attachments) > 0 {
		d.Attachments = make(map[string]domain.Attachment, len(attachments))
		for _, a := range attachments {
			d.Attachments[a.Name] = domain.Attachment{
				Name:        a.Name,
				ContentType: a.ContentType,
				Size:        a.Size,
				SHA256:      a.Sha256,
				Content:     a.Content,
				AttachedAt:  a.AttachedAt.Time.UTC(),
			}
		}
	}
	return d, nil
}
