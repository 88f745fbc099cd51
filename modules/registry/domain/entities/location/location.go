// Package location models the administrative hierarchy schools are attached
// to: Region -> County -> Borough -> Locality, plus free-standing Streets.
//
// Every level carries a government-assigned territorial code which is its
// natural key. Names are descriptive only and may repeat between rows.
package location

import "context"

type Region struct {
	ID              int64
	Name            string
	TerritorialCode string
}

type County struct {
	ID              int64
	Name            string
	TerritorialCode string
	RegionID        int64
}

type Borough struct {
	ID              int64
	Name            string
	TerritorialCode string
	CountyID        int64
}

type Locality struct {
	ID              int64
	Name            string
	TerritorialCode string
	BoroughID       int64
}

type Street struct {
	ID              int64
	Name            string
	TerritorialCode string
}

// Repository looks rows up by territorial code and inserts new ones. Lookups
// honor the transaction carried in ctx when one is present.
type Repository interface {
	GetRegionByCode(ctx context.Context, code string) (*Region, error)
	CreateRegion(ctx context.Context, r *Region) error

	GetCountyByCode(ctx context.Context, code string) (*County, error)
	CreateCounty(ctx context.Context, c *County) error

	GetBoroughByCode(ctx context.Context, code string) (*Borough, error)
	CreateBorough(ctx context.Context, b *Borough) error

	GetLocalityByCode(ctx context.Context, code string) (*Locality, error)
	CreateLocality(ctx context.Context, l *Locality) error

	GetStreetByCode(ctx context.Context, code string) (*Street, error)
	CreateStreet(ctx context.Context, s *Street) error
}
