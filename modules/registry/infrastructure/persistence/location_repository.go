package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/eduatlas/eduatlas/modules/registry/domain/entities/location"
	"github.com/eduatlas/eduatlas/pkg/composables"
)

var (
	ErrRegionNotFound   = fmt.Errorf("region: %w", ErrNotFound)
	ErrCountyNotFound   = fmt.Errorf("county: %w", ErrNotFound)
	ErrBoroughNotFound  = fmt.Errorf("borough: %w", ErrNotFound)
	ErrLocalityNotFound = fmt.Errorf("locality: %w", ErrNotFound)
	ErrStreetNotFound   = fmt.Errorf("street: %w", ErrNotFound)
)

type LocationRepository struct{}

func NewLocationRepository() location.Repository {
	return &LocationRepository{}
}

func (r *LocationRepository) GetRegionByCode(ctx context.Context, code string) (*location.Region, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var reg location.Region
	row := tx.QueryRow(ctx, `SELECT id, name, territorial_code FROM regions WHERE territorial_code = $1`, code)
	if err := row.Scan(&reg.ID, &reg.Name, &reg.TerritorialCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRegionNotFound
		}
		return nil, errors.Wrap(err, "query region")
	}
	return &reg, nil
}

func (r *LocationRepository) CreateRegion(ctx context.Context, reg *location.Region) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(
		ctx,
		`INSERT INTO regions (name, territorial_code) VALUES ($1, $2) RETURNING id`,
		reg.Name, reg.TerritorialCode,
	).Scan(&reg.ID)
	return errors.Wrap(err, "insert region")
}

func (r *LocationRepository) GetCountyByCode(ctx context.Context, code string) (*location.County, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var c location.County
	row := tx.QueryRow(ctx, `SELECT id, name, territorial_code, region_id FROM counties WHERE territorial_code = $1`, code)
	if err := row.Scan(&c.ID, &c.Name, &c.TerritorialCode, &c.RegionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCountyNotFound
		}
		return nil, errors.Wrap(err, "query county")
	}
	return &c, nil
}

func (r *LocationRepository) CreateCounty(ctx context.Context, c *location.County) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(
		ctx,
		`INSERT INTO counties (name, territorial_code, region_id) VALUES ($1, $2, $3) RETURNING id`,
		c.Name, c.TerritorialCode, c.RegionID,
	).Scan(&c.ID)
	return errors.Wrap(err, "insert county")
}

func (r *LocationRepository) GetBoroughByCode(ctx context.Context, code string) (*location.Borough, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var b location.Borough
	row := tx.QueryRow(ctx, `SELECT id, name, territorial_code, county_id FROM boroughs WHERE territorial_code = $1`, code)
	if err := row.Scan(&b.ID, &b.Name, &b.TerritorialCode, &b.CountyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBoroughNotFound
		}
		return nil, errors.Wrap(err, "query borough")
	}
	return &b, nil
}

func (r *LocationRepository) CreateBorough(ctx context.Context, b *location.Borough) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(
		ctx,
		`INSERT INTO boroughs (name, territorial_code, county_id) VALUES ($1, $2, $3) RETURNING id`,
		b.Name, b.TerritorialCode, b.CountyID,
	).Scan(&b.ID)
	return errors.Wrap(err, "insert borough")
}

func (r *LocationRepository) GetLocalityByCode(ctx context.Context, code string) (*location.Locality, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var l location.Locality
	row := tx.QueryRow(ctx, `SELECT id, name, territorial_code, borough_id FROM localities WHERE territorial_code = $1`, code)
	if err := row.Scan(&l.ID, &l.Name, &l.TerritorialCode, &l.BoroughID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocalityNotFound
		}
		return nil, errors.Wrap(err, "query locality")
	}
	return &l, nil
}

func (r *LocationRepository) CreateLocality(ctx context.Context, l *location.Locality) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(
		ctx,
		`INSERT INTO localities (name, territorial_code, borough_id) VALUES ($1, $2, $3) RETURNING id`,
		l.Name, l.TerritorialCode, l.BoroughID,
	).Scan(&l.ID)
	return errors.Wrap(err, "insert locality")
}

func (r *LocationRepository) GetStreetByCode(ctx context.Context, code string) (*location.Street, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var s location.Street
	row := tx.QueryRow(ctx, `SELECT id, name, territorial_code FROM streets WHERE territorial_code = $1`, code)
	if err := row.Scan(&s.ID, &s.Name, &s.TerritorialCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStreetNotFound
		}
		return nil, errors.Wrap(err, "query street")
	}
	return &s, nil
}

func (r *LocationRepository) CreateStreet(ctx context.Context, s *location.Street) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(
		ctx,
		`INSERT INTO streets (name, territorial_code) VALUES ($1, $2) RETURNING id`,
		s.Name, s.TerritorialCode,
	).Scan(&s.ID)
	return errors.Wrap(err, "insert street")
}
