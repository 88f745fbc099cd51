// Package taxonomy models the lazily-created classification entities a school
// references: its type, legal status, student category, education stages and
// vocational programs. All of them are keyed by exact (case-sensitive) name.
package taxonomy

import "context"

type Kind string

const (
	KindSchoolType        Kind = "school_type"
	KindLegalStatus       Kind = "legal_status"
	KindStudentCategory   Kind = "student_category"
	KindEducationStage    Kind = "education_stage"
	KindVocationalProgram Kind = "vocational_program"
)

// Entry is one row of a taxonomy table, tagged by which table it belongs to.
type Entry struct {
	ID   int64
	Kind Kind
	Name string
}

type Repository interface {
	GetByName(ctx context.Context, kind Kind, name string) (*Entry, error)
	Create(ctx context.Context, e *Entry) error
}
