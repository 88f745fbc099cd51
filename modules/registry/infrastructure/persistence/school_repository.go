package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/eduatlas/eduatlas/modules/registry/domain/aggregates/school"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence/models"
	"github.com/eduatlas/eduatlas/pkg/composables"
)

var ErrSchoolNotFound = fmt.Errorf("school: %w", ErrNotFound)

const (
	schoolFindQuery = `
		SELECT id, registry_number, name, nip, regon, student_count,
		       director_first_name, director_last_name, postal_code,
		       building_number, apartment_number, phone, email, website,
		       latitude, longitude, score,
		       region_id, county_id, borough_id, locality_id,
		       school_type_id, legal_status_id, student_category_id
		FROM schools`

	schoolInsertQuery = `
		INSERT INTO schools (
			registry_number, name, nip, regon, student_count,
			director_first_name, director_last_name, postal_code,
			building_number, apartment_number, phone, email, website,
			latitude, longitude,
			region_id, county_id, borough_id, locality_id,
			school_type_id, legal_status_id, student_category_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		          $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id`
)

type SchoolRepository struct{}

func NewSchoolRepository() school.Repository {
	return &SchoolRepository{}
}

func (r *SchoolRepository) GetByID(ctx context.Context, id int64) (*school.School, error) {
	s, err := r.queryOne(ctx, schoolFindQuery+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadAssociations(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SchoolRepository) GetByRegistryNumber(ctx context.Context, number int64) (*school.School, error) {
	s, err := r.queryOne(ctx, schoolFindQuery+` WHERE registry_number = $1`, number)
	if err != nil {
		return nil, err
	}
	if err := r.loadAssociations(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SchoolRepository) ExistsByRegistryNumber(ctx context.Context, number int64) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	row := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schools WHERE registry_number = $1)`, number)
	if err := row.Scan(&exists); err != nil {
		return false, errors.Wrap(err, "query school existence")
	}
	return exists, nil
}

func (r *SchoolRepository) Create(ctx context.Context, s *school.School) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBSchool(s)
	err = tx.QueryRow(
		ctx,
		schoolInsertQuery,
		m.RegistryNumber, m.Name, m.NIP, m.REGON, m.StudentCount,
		m.DirectorFirst, m.DirectorLast, m.PostalCode,
		m.BuildingNo, m.ApartmentNo, m.Phone, m.Email, m.Website,
		m.Latitude, m.Longitude,
		m.RegionID, m.CountyID, m.BoroughID, m.LocalityID,
		m.SchoolTypeID, m.LegalStatusID, m.StudentCategoryID,
	).Scan(&s.ID)
	if err != nil {
		return errors.Wrap(err, "insert school")
	}

	for _, streetID := range s.StreetIDs {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO school_streets (school_id, street_id) VALUES ($1, $2)`,
			s.ID, streetID,
		); err != nil {
			return errors.Wrap(err, "insert school street")
		}
	}
	for _, stageID := range s.EducationStageIDs {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO school_education_stages (school_id, education_stage_id) VALUES ($1, $2)`,
			s.ID, stageID,
		); err != nil {
			return errors.Wrap(err, "insert school education stage")
		}
	}
	for _, programID := range s.VocationalProgramIDs {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO school_vocational_programs (school_id, vocational_program_id) VALUES ($1, $2)`,
			s.ID, programID,
		); err != nil {
			return errors.Wrap(err, "insert school vocational program")
		}
	}
	return nil
}

func (r *SchoolRepository) FindInBounds(ctx context.Context, b school.Bounds) ([]*school.School, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(
		ctx,
		schoolFindQuery+` WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4 ORDER BY id`,
		b.South, b.North, b.West, b.East,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query schools in bounds")
	}
	defer rows.Close()

	var result []*school.School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *SchoolRepository) UpdateScores(ctx context.Context, updates []school.ScoreUpdate) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if _, err := tx.Exec(
			ctx,
			`UPDATE schools SET score = $1 WHERE id = $2`,
			u.Score, u.SchoolID,
		); err != nil {
			return errors.Wrapf(err, "update score for school %d", u.SchoolID)
		}
	}
	return nil
}

func (r *SchoolRepository) queryOne(ctx context.Context, query string, args ...any) (*school.School, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, query, args...)
	s, err := scanSchool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSchoolNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanSchool(row pgx.Row) (*school.School, error) {
	var m models.School
	err := row.Scan(
		&m.ID, &m.RegistryNumber, &m.Name, &m.NIP, &m.REGON, &m.StudentCount,
		&m.DirectorFirst, &m.DirectorLast, &m.PostalCode,
		&m.BuildingNo, &m.ApartmentNo, &m.Phone, &m.Email, &m.Website,
		&m.Latitude, &m.Longitude, &m.Score,
		&m.RegionID, &m.CountyID, &m.BoroughID, &m.LocalityID,
		&m.SchoolTypeID, &m.LegalStatusID, &m.StudentCategoryID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, errors.Wrap(err, "scan school")
	}
	return toDomainSchool(&m), nil
}

func (r *SchoolRepository) loadAssociations(ctx context.Context, s *school.School) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	assocs := []struct {
		query string
		dst   *[]int64
	}{
		{`SELECT street_id FROM school_streets WHERE school_id = $1 ORDER BY street_id`, &s.StreetIDs},
		{`SELECT education_stage_id FROM school_education_stages WHERE school_id = $1 ORDER BY education_stage_id`, &s.EducationStageIDs},
		{`SELECT vocational_program_id FROM school_vocational_programs WHERE school_id = $1 ORDER BY vocational_program_id`, &s.VocationalProgramIDs},
	}
	for _, a := range assocs {
		rows, err := tx.Query(ctx, a.query, s.ID)
		if err != nil {
			return errors.Wrap(err, "query school associations")
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return errors.Wrap(err, "scan association id")
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return errors.Wrap(err, "iterate school associations")
		}
		*a.dst = ids
	}
	return nil
}
