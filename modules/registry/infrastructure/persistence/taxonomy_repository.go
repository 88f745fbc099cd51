package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/eduatlas/eduatlas/modules/registry/domain/entities/taxonomy"
	"github.com/eduatlas/eduatlas/pkg/composables"
)

var ErrTaxonomyEntryNotFound = fmt.Errorf("taxonomy entry: %w", ErrNotFound)

// taxonomyTables maps the entry kind to its table. All taxonomy tables share
// the same (id, name) shape with a unique constraint on name.
var taxonomyTables = map[taxonomy.Kind]string{
	taxonomy.KindSchoolType:        "school_types",
	taxonomy.KindLegalStatus:       "legal_statuses",
	taxonomy.KindStudentCategory:   "student_categories",
	taxonomy.KindEducationStage:    "education_stages",
	taxonomy.KindVocationalProgram: "vocational_programs",
}

type TaxonomyRepository struct{}

func NewTaxonomyRepository() taxonomy.Repository {
	return &TaxonomyRepository{}
}

func (r *TaxonomyRepository) GetByName(ctx context.Context, kind taxonomy.Kind, name string) (*taxonomy.Entry, error) {
	table, ok := taxonomyTables[kind]
	if !ok {
		return nil, errors.Errorf("unknown taxonomy kind: %q", kind)
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	e := taxonomy.Entry{Kind: kind}
	row := tx.QueryRow(ctx, fmt.Sprintf(`SELECT id, name FROM %s WHERE name = $1`, table), name)
	if err := row.Scan(&e.ID, &e.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaxonomyEntryNotFound
		}
		return nil, errors.Wrapf(err, "query %s", table)
	}
	return &e, nil
}

func (r *TaxonomyRepository) Create(ctx context.Context, e *taxonomy.Entry) error {
	table, ok := taxonomyTables[e.Kind]
	if !ok {
		return errors.Errorf("unknown taxonomy kind: %q", e.Kind)
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(
		ctx,
		fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) RETURNING id`, table),
		e.Name,
	).Scan(&e.ID)
	return errors.Wrapf(err, "insert %s", table)
}
