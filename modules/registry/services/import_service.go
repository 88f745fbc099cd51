package services

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eduatlas/eduatlas/modules/registry/domain/aggregates/school"
	"github.com/eduatlas/eduatlas/modules/registry/domain/entities/location"
	"github.com/eduatlas/eduatlas/modules/registry/domain/entities/taxonomy"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/registryapi"
	"github.com/eduatlas/eduatlas/pkg/composables"
	"github.com/eduatlas/eduatlas/pkg/entitycache"
)

var (
	// ErrRecordInvalid marks a record skipped at the validation boundary.
	ErrRecordInvalid = errors.New("record failed validation")
	// ErrAlreadyImported marks a record whose registry number is already in
	// the store. Re-running an import over the same data is a no-op.
	ErrAlreadyImported = errors.New("school already imported")
)

// TxRunner runs fn inside a store transaction.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

// BatchStats are the running totals reported at the end of an import batch.
type BatchStats struct {
	Processed int
	Skipped   int
	Failed    int
}

// ImportService decomposes denormalized registry records into the normalized
// entity graph and persists each school in its own transaction.
//
// The caches are scoped to this instance, i.e. to one import run. They are a
// read-through optimization only; the store's unique constraints are what
// actually prevent duplicates.
type ImportService struct {
	schools    school.Repository
	locations  location.Repository
	taxonomies taxonomy.Repository

	validate *validator.Validate
	logger   logrus.FieldLogger
	inTx     TxRunner

	regions    *entitycache.Cache[*location.Region]
	counties   *entitycache.Cache[*location.County]
	boroughs   *entitycache.Cache[*location.Borough]
	localities *entitycache.Cache[*location.Locality]
	streets    *entitycache.Cache[*location.Street]
	taxa       *entitycache.Cache[*taxonomy.Entry]
}

func NewImportService(
	schools school.Repository,
	locations location.Repository,
	taxonomies taxonomy.Repository,
	logger logrus.FieldLogger,
) *ImportService {
	return &ImportService{
		schools:    schools,
		locations:  locations,
		taxonomies: taxonomies,
		validate:   validator.New(),
		logger:     logger,
		inTx:       composables.InTx,
		regions:    entitycache.New[*location.Region](persistence.ErrNotFound),
		counties:   entitycache.New[*location.County](persistence.ErrNotFound),
		boroughs:   entitycache.New[*location.Borough](persistence.ErrNotFound),
		localities: entitycache.New[*location.Locality](persistence.ErrNotFound),
		streets:    entitycache.New[*location.Street](persistence.ErrNotFound),
		taxa:       entitycache.New[*taxonomy.Entry](persistence.ErrNotFound),
	}
}

// ProcessBatch imports a slice of raw records, counting rather than
// propagating per-record failures.
func (s *ImportService) ProcessBatch(ctx context.Context, records []registryapi.Record) BatchStats {
	runID := uuid.New()
	log := s.logger.WithField("run_id", runID)
	log.WithField("total", len(records)).Info("starting school import batch")

	var stats BatchStats
	for i := range records {
		err := s.ProcessRecord(ctx, records[i])
		switch {
		case err == nil:
			stats.Processed++
		case errors.Is(err, ErrRecordInvalid), errors.Is(err, ErrAlreadyImported):
			stats.Skipped++
		default:
			stats.Failed++
		}
	}

	log.WithFields(logrus.Fields{
		"processed": stats.Processed,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
	}).Info("school import batch complete")
	return stats
}

// ProcessRecord validates and persists a single registry record. Validation
// failures and already-imported registry numbers are skips; anything else is a
// failure whose transaction has been rolled back in full.
func (s *ImportService) ProcessRecord(ctx context.Context, rec registryapi.Record) error {
	if err := s.validate.Struct(rec); err != nil {
		s.logger.WithFields(logrus.Fields{
			"registry_number": rec.RegistryNumber,
			"name":            rec.Name,
		}).WithError(err).Warn("invalid school record, skipping")
		return fmt.Errorf("%w: %v", ErrRecordInvalid, err)
	}

	err := s.inTx(ctx, func(txCtx context.Context) error {
		exists, err := s.schools.ExistsByRegistryNumber(txCtx, rec.RegistryNumber)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyImported
		}

		sch, err := s.decompose(txCtx, &rec)
		if err != nil {
			return err
		}
		return s.schools.Create(txCtx, sch)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyImported) {
			s.logger.WithField("registry_number", rec.RegistryNumber).Info("school already imported, skipping")
			return err
		}
		// entities resolved inside the rolled-back transaction reference rows
		// that were never committed
		s.resetCaches()
		s.logger.WithFields(logrus.Fields{
			"registry_number": rec.RegistryNumber,
			"name":            rec.Name,
		}).WithError(err).Error("failed to import school record")
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"registry_number": rec.RegistryNumber,
		"name":            rec.Name,
	}).Info("imported school")
	return nil
}

// decompose resolves the full entity graph for one record, creating missing
// rows inside the current transaction.
func (s *ImportService) decompose(ctx context.Context, rec *registryapi.Record) (*school.School, error) {
	region, err := s.regions.Resolve(ctx, rec.RegionCode,
		func(ctx context.Context) (*location.Region, error) {
			return s.locations.GetRegionByCode(ctx, rec.RegionCode)
		},
		func(ctx context.Context) (*location.Region, error) {
			r := &location.Region{Name: rec.Region, TerritorialCode: rec.RegionCode}
			if err := s.locations.CreateRegion(ctx, r); err != nil {
				return nil, err
			}
			return r, nil
		})
	if err != nil {
		return nil, errors.Wrap(err, "resolve region")
	}

	county, err := s.counties.Resolve(ctx, rec.CountyCode,
		func(ctx context.Context) (*location.County, error) {
			return s.locations.GetCountyByCode(ctx, rec.CountyCode)
		},
		func(ctx context.Context) (*location.County, error) {
			c := &location.County{Name: rec.County, TerritorialCode: rec.CountyCode, RegionID: region.ID}
			if err := s.locations.CreateCounty(ctx, c); err != nil {
				return nil, err
			}
			return c, nil
		})
	if err != nil {
		return nil, errors.Wrap(err, "resolve county")
	}

	borough, err := s.boroughs.Resolve(ctx, rec.BoroughCode,
		func(ctx context.Context) (*location.Borough, error) {
			return s.locations.GetBoroughByCode(ctx, rec.BoroughCode)
		},
		func(ctx context.Context) (*location.Borough, error) {
			b := &location.Borough{Name: rec.Borough, TerritorialCode: rec.BoroughCode, CountyID: county.ID}
			if err := s.locations.CreateBorough(ctx, b); err != nil {
				return nil, err
			}
			return b, nil
		})
	if err != nil {
		return nil, errors.Wrap(err, "resolve borough")
	}

	locality, err := s.localities.Resolve(ctx, rec.LocalityCode,
		func(ctx context.Context) (*location.Locality, error) {
			return s.locations.GetLocalityByCode(ctx, rec.LocalityCode)
		},
		func(ctx context.Context) (*location.Locality, error) {
			l := &location.Locality{Name: rec.Locality, TerritorialCode: rec.LocalityCode, BoroughID: borough.ID}
			if err := s.locations.CreateLocality(ctx, l); err != nil {
				return nil, err
			}
			return l, nil
		})
	if err != nil {
		return nil, errors.Wrap(err, "resolve locality")
	}

	var streetIDs []int64
	if rec.Street != nil && rec.StreetCode != nil {
		street, err := s.streets.Resolve(ctx, *rec.StreetCode,
			func(ctx context.Context) (*location.Street, error) {
				return s.locations.GetStreetByCode(ctx, *rec.StreetCode)
			},
			func(ctx context.Context) (*location.Street, error) {
				st := &location.Street{Name: *rec.Street, TerritorialCode: *rec.StreetCode}
				if err := s.locations.CreateStreet(ctx, st); err != nil {
					return nil, err
				}
				return st, nil
			})
		if err != nil {
			return nil, errors.Wrap(err, "resolve street")
		}
		streetIDs = append(streetIDs, street.ID)
	}

	schoolType, err := s.resolveTaxon(ctx, taxonomy.KindSchoolType, rec.Type.Name)
	if err != nil {
		return nil, err
	}
	legalStatus, err := s.resolveTaxon(ctx, taxonomy.KindLegalStatus, rec.LegalStatus.Name)
	if err != nil {
		return nil, err
	}
	studentCategory, err := s.resolveTaxon(ctx, taxonomy.KindStudentCategory, rec.StudentCategory.Name)
	if err != nil {
		return nil, err
	}

	stageIDs, err := s.resolveTaxa(ctx, taxonomy.KindEducationStage, rec.EducationStages)
	if err != nil {
		return nil, err
	}
	programIDs, err := s.resolveTaxa(ctx, taxonomy.KindVocationalProgram, rec.VocationalPrograms)
	if err != nil {
		return nil, err
	}

	return &school.School{
		RegistryNumber:       rec.RegistryNumber,
		Name:                 rec.Name,
		NIP:                  rec.NIP,
		REGON:                rec.REGON,
		StudentCount:         rec.StudentCount,
		DirectorFirst:        rec.DirectorFirst,
		DirectorLast:         rec.DirectorLast,
		PostalCode:           rec.PostalCode,
		BuildingNo:           rec.BuildingNo,
		ApartmentNo:          rec.ApartmentNo,
		Phone:                rec.Phone,
		Email:                rec.Email,
		Website:              rec.Website,
		Latitude:             rec.Geolocation.Latitude,
		Longitude:            rec.Geolocation.Longitude,
		RegionID:             region.ID,
		CountyID:             county.ID,
		BoroughID:            borough.ID,
		LocalityID:           locality.ID,
		SchoolTypeID:         schoolType.ID,
		LegalStatusID:        legalStatus.ID,
		StudentCategoryID:    studentCategory.ID,
		StreetIDs:            streetIDs,
		EducationStageIDs:    stageIDs,
		VocationalProgramIDs: programIDs,
	}, nil
}

func (s *ImportService) resolveTaxon(ctx context.Context, kind taxonomy.Kind, name string) (*taxonomy.Entry, error) {
	key := string(kind) + ":" + name
	entry, err := s.taxa.Resolve(ctx, key,
		func(ctx context.Context) (*taxonomy.Entry, error) {
			return s.taxonomies.GetByName(ctx, kind, name)
		},
		func(ctx context.Context) (*taxonomy.Entry, error) {
			e := &taxonomy.Entry{Kind: kind, Name: name}
			if err := s.taxonomies.Create(ctx, e); err != nil {
				return nil, err
			}
			return e, nil
		})
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s %q", kind, name)
	}
	return entry, nil
}

func (s *ImportService) resolveTaxa(ctx context.Context, kind taxonomy.Kind, refs []registryapi.Named) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, ref := range refs {
		entry, err := s.resolveTaxon(ctx, kind, ref.Name)
		if err != nil {
			return nil, err
		}
		if seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		ids = append(ids, entry.ID)
	}
	return ids, nil
}

func (s *ImportService) resetCaches() {
	s.regions.Reset()
	s.counties.Reset()
	s.boroughs.Reset()
	s.localities.Reset()
	s.streets.Reset()
	s.taxa.Reset()
}
