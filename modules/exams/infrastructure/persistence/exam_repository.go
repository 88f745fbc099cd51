package persistence

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/eduatlas/eduatlas/modules/exams/domain/entities/exam"
	"github.com/eduatlas/eduatlas/pkg/composables"
	"github.com/eduatlas/eduatlas/pkg/mapping"
)

var ErrSubjectNotFound = errors.New("subject not found")

const resultFindQuery = `
	SELECT id, school_id, subject_id, year, kind,
	       examinee_count, median, mean, pass_rate, laureate_count
	FROM exam_results`

type SubjectRepository struct{}

func NewSubjectRepository() exam.SubjectRepository {
	return &SubjectRepository{}
}

func (r *SubjectRepository) GetByName(ctx context.Context, name string) (*exam.Subject, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var s exam.Subject
	row := tx.QueryRow(ctx, `SELECT id, name FROM subjects WHERE name = $1`, name)
	if err := row.Scan(&s.ID, &s.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, errors.Wrap(err, "query subject")
	}
	return &s, nil
}

func (r *SubjectRepository) ListByNames(ctx context.Context, names []string) ([]*exam.Subject, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT id, name FROM subjects WHERE name = ANY($1) ORDER BY name`, names)
	if err != nil {
		return nil, errors.Wrap(err, "query subjects")
	}
	defer rows.Close()

	var subjects []*exam.Subject
	for rows.Next() {
		var s exam.Subject
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, errors.Wrap(err, "scan subject")
		}
		subjects = append(subjects, &s)
	}
	return subjects, rows.Err()
}

func (r *SubjectRepository) Create(ctx context.Context, s *exam.Subject) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `INSERT INTO subjects (name) VALUES ($1) RETURNING id`, s.Name).Scan(&s.ID)
	return errors.Wrap(err, "insert subject")
}

type ResultRepository struct{}

func NewResultRepository() exam.ResultRepository {
	return &ResultRepository{}
}

func (r *ResultRepository) Create(ctx context.Context, res *exam.Result) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(
		ctx,
		`INSERT INTO exam_results (
			school_id, subject_id, year, kind,
			examinee_count, median, mean, pass_rate, laureate_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		res.SchoolID, res.SubjectID, res.Year, string(res.Kind),
		mapping.PointerToSQLNullInt32(res.ExamineeCount),
		mapping.PointerToSQLNullFloat64(res.Median),
		mapping.PointerToSQLNullFloat64(res.Mean),
		mapping.PointerToSQLNullFloat64(res.PassRate),
		mapping.PointerToSQLNullInt32(res.LaureateCount),
	).Scan(&res.ID)
	return errors.Wrap(err, "insert exam result")
}

func (r *ResultRepository) ListBySubjectIDs(ctx context.Context, subjectIDs []int64) ([]*exam.Result, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(
		ctx,
		resultFindQuery+` WHERE subject_id = ANY($1) ORDER BY school_id, subject_id, year`,
		subjectIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query exam results")
	}
	defer rows.Close()

	var results []*exam.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func scanResult(row pgx.Row) (*exam.Result, error) {
	var (
		res           exam.Result
		kind          string
		examineeCount sql.NullInt32
		median        sql.NullFloat64
		mean          sql.NullFloat64
		passRate      sql.NullFloat64
		laureateCount sql.NullInt32
	)
	err := row.Scan(
		&res.ID, &res.SchoolID, &res.SubjectID, &res.Year, &kind,
		&examineeCount, &median, &mean, &passRate, &laureateCount,
	)
	if err != nil {
		return nil, errors.Wrap(err, "scan exam result")
	}
	res.Kind = exam.Kind(kind)
	res.ExamineeCount = mapping.SQLNullInt32ToPointer(examineeCount)
	res.Median = mapping.SQLNullFloat64ToPointer(median)
	res.Mean = mapping.SQLNullFloat64ToPointer(mean)
	res.PassRate = mapping.SQLNullFloat64ToPointer(passRate)
	res.LaureateCount = mapping.SQLNullInt32ToPointer(laureateCount)
	return &res, nil
}
