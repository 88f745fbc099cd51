// Package school holds the School aggregate root. A school is created exactly
// once per registry number; re-imports of the same number are skipped, never
// merged or updated.
package school

import "context"

type School struct {
	ID             int64
	RegistryNumber int64
	Name           string
	NIP            *string
	REGON          string
	StudentCount   *int
	DirectorFirst  *string
	DirectorLast   *string
	PostalCode     string
	BuildingNo     *string
	ApartmentNo    *string
	Phone          *string
	Email          *string
	Website        *string
	Latitude       float64
	Longitude      float64

	// Score is the composite ranking score. nil means "never scored"; a
	// scored school always has at least one real observation behind the
	// value, so 0 is never written without one.
	Score *float64

	RegionID          int64
	CountyID          int64
	BoroughID         int64
	LocalityID        int64
	SchoolTypeID      int64
	LegalStatusID     int64
	StudentCategoryID int64

	StreetIDs            []int64
	EducationStageIDs    []int64
	VocationalProgramIDs []int64
}

// Bounds is a geographic bounding box for map lookups.
type Bounds struct {
	North float64
	South float64
	West  float64
	East  float64
}

type ScoreUpdate struct {
	SchoolID int64
	Score    float64
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*School, error)
	GetByRegistryNumber(ctx context.Context, number int64) (*School, error)
	ExistsByRegistryNumber(ctx context.Context, number int64) (bool, error)
	// Create inserts the school row and its association rows. Relationship
	// IDs must already be resolved.
	Create(ctx context.Context, s *School) error
	FindInBounds(ctx context.Context, b Bounds) ([]*School, error)
	// UpdateScores overwrites the score column for the given schools only.
	UpdateScores(ctx context.Context, updates []ScoreUpdate) error
}
