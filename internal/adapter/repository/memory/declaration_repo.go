package memory

import (
	"context"
	"sort"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// DeclarationRepository implements usecase.DeclarationRepository.
type DeclarationRepository struct {
	store *Store
}

// NewDeclarationRepository creates a new DeclarationRepository.
func NewDeclarationRepository(store *Store) *DeclarationRepository {
	return &DeclarationRepository{store: store}
}

// Create stores a new declaration. A (type, period) pair is unique.
func (r *DeclarationRepository) Create(ctx context.Context, tx usecase.Transaction, d *domain.Declaration) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}
	if findByPeriod(st, d.Type, d.Period) != nil {
		return domain.ErrDeclarationExists
	}
	st.decls[d.ID] = d.Clone()
	return nil
}

// GetByID returns a committed declaration.
func (r *DeclarationRepository) GetByID(ctx context.Context, id string) (*domain.Declaration, error) {
	d, ok := r.store.snapshot().decls[id]
	if !ok {
		return nil, domain.ErrDeclarationNotFound
	}
	return d.Clone(), nil
}

// GetByIDForUpdate returns a declaration as seen by tx. The writer slot held
// by tx already excludes other writers.
func (r *DeclarationRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Declaration, error) {
	st, err := stateOf(tx)
	if err != nil {
		return nil, err
	}
	d, ok := st.decls[id]
	if !ok {
		return nil, domain.ErrDeclarationNotFound
	}
	return d.Clone(), nil
}

// FindByPeriod returns the declaration of typ for period.
func (r *DeclarationRepository) FindByPeriod(ctx context.Context, tx usecase.Transaction, typ domain.DeclarationType, period domain.Period) (*domain.Declaration, error) {
	st, err := stateOf(tx)
	if err != nil {
		return nil, err
	}
	d := findByPeriod(st, typ, period)
	if d == nil {
		return nil, domain.ErrDeclarationNotFound
	}
	return d.Clone(), nil
}

// Update replaces a stored declaration.
func (r *DeclarationRepository) Update(ctx context.Context, tx usecase.Transaction, d *domain.Declaration) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}
	if _, ok := st.decls[d.ID]; !ok {
		return domain.ErrDeclarationNotFound
	}
	st.decls[d.ID] = d.Clone()
	return nil
}

// List returns committed declarations ordered by period, then type.
func (r *DeclarationRepository) List(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error) {
	st := r.store.snapshot()

	var out []*domain.Declaration
	for _, d := range st.decls {
		if filter.Matches(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Period.Start.Equal(b.Period.Start) {
			return a.Period.Start.Before(b.Period.Start)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ID < b.ID
	})

	if filter.Offset >= len(out) {
		return []*domain.Declaration{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}

	page := make([]*domain.Declaration, len(out))
	for i, d := range out {
		page[i] = d.Clone()
	}
	return page, nil
}

func findByPeriod(st *state, typ domain.DeclarationType, period domain.Period) *domain.Declaration {
	for _, d := range st.decls {
		if d.Type == typ && d.Period.SameBounds(period) {
			return d
		}
	}
	return nil
}
