// Package exam models per-school, per-subject, per-year exam statistics.
//
// Two exam variants share a base shape (examinee count, median, mean) and the
// matura variant carries extra columns. The variant is a tag on the row, not a
// separate type, so downstream aggregation never branches on concrete types.
package exam

import "context"

// Kind tags which exam a result row came from.
type Kind string

const (
	// KindPrimary is the end-of-primary-school exam.
	KindPrimary Kind = "primary"
	// KindMatura is the secondary-school final exam.
	KindMatura Kind = "matura"
)

func (k Kind) Valid() bool {
	return k == KindPrimary || k == KindMatura
}

type Subject struct {
	ID   int64
	Name string
}

// Result is one observation: school x subject x year for one exam kind.
// Statistic fields are sparse; files differ in which ones they carry.
type Result struct {
	ID        int64
	SchoolID  int64
	SubjectID int64
	Year      int
	Kind      Kind

	ExamineeCount *int
	Median        *float64
	Mean          *float64

	// Matura-only extension fields.
	PassRate      *float64
	LaureateCount *int
}

// EffectiveStatistic is the single value used for weighting: the median when
// present, otherwise the mean. The second return reports whether any value
// exists at all.
func (r *Result) EffectiveStatistic() (float64, bool) {
	if r.Median != nil {
		return *r.Median, true
	}
	if r.Mean != nil {
		return *r.Mean, true
	}
	return 0, false
}

// Usable reports whether the observation carries enough signal to feed the
// scorer: an examinee count plus at least one of median/mean.
func (r *Result) Usable() bool {
	if r.ExamineeCount == nil {
		return false
	}
	_, ok := r.EffectiveStatistic()
	return ok
}

type SubjectRepository interface {
	GetByName(ctx context.Context, name string) (*Subject, error)
	ListByNames(ctx context.Context, names []string) ([]*Subject, error)
	Create(ctx context.Context, s *Subject) error
}

type ResultRepository interface {
	Create(ctx context.Context, r *Result) error
	ListBySubjectIDs(ctx context.Context, subjectIDs []int64) ([]*Result, error)
}
