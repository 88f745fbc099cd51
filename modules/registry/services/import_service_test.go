package services

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduatlas/eduatlas/modules/registry/domain/aggregates/school"
	"github.com/eduatlas/eduatlas/modules/registry/domain/entities/location"
	"github.com/eduatlas/eduatlas/modules/registry/domain/entities/taxonomy"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/registryapi"
)

type fakeSchoolRepo struct {
	created   []*school.School
	nextID    int64
	createErr error
}

func (f *fakeSchoolRepo) GetByID(context.Context, int64) (*school.School, error) {
	return nil, persistence.ErrSchoolNotFound
}

func (f *fakeSchoolRepo) GetByRegistryNumber(context.Context, int64) (*school.School, error) {
	return nil, persistence.ErrSchoolNotFound
}

func (f *fakeSchoolRepo) ExistsByRegistryNumber(_ context.Context, number int64) (bool, error) {
	for _, s := range f.created {
		if s.RegistryNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSchoolRepo) Create(_ context.Context, s *school.School) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	s.ID = f.nextID
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSchoolRepo) FindInBounds(context.Context, school.Bounds) ([]*school.School, error) {
	return nil, nil
}

func (f *fakeSchoolRepo) UpdateScores(context.Context, []school.ScoreUpdate) error {
	return nil
}

type fakeLocationRepo struct {
	regions    map[string]*location.Region
	counties   map[string]*location.County
	boroughs   map[string]*location.Borough
	localities map[string]*location.Locality
	streets    map[string]*location.Street
	nextID     int64
	lookups    int
	creates    int
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{
		regions:    map[string]*location.Region{},
		counties:   map[string]*location.County{},
		boroughs:   map[string]*location.Borough{},
		localities: map[string]*location.Locality{},
		streets:    map[string]*location.Street{},
	}
}

func (f *fakeLocationRepo) GetRegionByCode(_ context.Context, code string) (*location.Region, error) {
	f.lookups++
	if r, ok := f.regions[code]; ok {
		return r, nil
	}
	return nil, persistence.ErrRegionNotFound
}

func (f *fakeLocationRepo) CreateRegion(_ context.Context, r *location.Region) error {
	f.creates++
	f.nextID++
	r.ID = f.nextID
	f.regions[r.TerritorialCode] = r
	return nil
}

func (f *fakeLocationRepo) GetCountyByCode(_ context.Context, code string) (*location.County, error) {
	f.lookups++
	if c, ok := f.counties[code]; ok {
		return c, nil
	}
	return nil, persistence.ErrCountyNotFound
}

func (f *fakeLocationRepo) CreateCounty(_ context.Context, c *location.County) error {
	f.creates++
	f.nextID++
	c.ID = f.nextID
	f.counties[c.TerritorialCode] = c
	return nil
}

func (f *fakeLocationRepo) GetBoroughByCode(_ context.Context, code string) (*location.Borough, error) {
	f.lookups++
	if b, ok := f.boroughs[code]; ok {
		return b, nil
	}
	return nil, persistence.ErrBoroughNotFound
}

func (f *fakeLocationRepo) CreateBorough(_ context.Context, b *location.Borough) error {
	f.creates++
	f.nextID++
	b.ID = f.nextID
	f.boroughs[b.TerritorialCode] = b
	return nil
}

func (f *fakeLocationRepo) GetLocalityByCode(_ context.Context, code string) (*location.Locality, error) {
	f.lookups++
	if l, ok := f.localities[code]; ok {
		return l, nil
	}
	return nil, persistence.ErrLocalityNotFound
}

func (f *fakeLocationRepo) CreateLocality(_ context.Context, l *location.Locality) error {
	f.creates++
	f.nextID++
	l.ID = f.nextID
	f.localities[l.TerritorialCode] = l
	return nil
}

func (f *fakeLocationRepo) GetStreetByCode(_ context.Context, code string) (*location.Street, error) {
	f.lookups++
	if st, ok := f.streets[code]; ok {
		return st, nil
	}
	return nil, persistence.ErrStreetNotFound
}

func (f *fakeLocationRepo) CreateStreet(_ context.Context, st *location.Street) error {
	f.creates++
	f.nextID++
	st.ID = f.nextID
	f.streets[st.TerritorialCode] = st
	return nil
}

type fakeTaxonomyRepo struct {
	entries map[string]*taxonomy.Entry
	nextID  int64
}

func newFakeTaxonomyRepo() *fakeTaxonomyRepo {
	return &fakeTaxonomyRepo{entries: map[string]*taxonomy.Entry{}}
}

func (f *fakeTaxonomyRepo) GetByName(_ context.Context, kind taxonomy.Kind, name string) (*taxonomy.Entry, error) {
	if e, ok := f.entries[string(kind)+":"+name]; ok {
		return e, nil
	}
	return nil, persistence.ErrTaxonomyEntryNotFound
}

func (f *fakeTaxonomyRepo) Create(_ context.Context, e *taxonomy.Entry) error {
	f.nextID++
	e.ID = f.nextID
	f.entries[string(e.Kind)+":"+e.Name] = e
	return nil
}

func newTestImportService(schools *fakeSchoolRepo, locations *fakeLocationRepo, taxonomies *fakeTaxonomyRepo) *ImportService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := NewImportService(schools, locations, taxonomies, logger)
	svc.inTx = func(ctx context.Context, fn func(context.Context) error) error {
		return fn(ctx)
	}
	return svc
}

func strPtr(s string) *string { return &s }

func validRecord(registryNumber int64) registryapi.Record {
	return registryapi.Record{
		RegistryNumber: registryNumber,
		Name:           "Szkola Podstawowa nr 1",
		REGON:          "123456789",
		PostalCode:     "00-001",
		Region:         "MAZOWIECKIE",
		RegionCode:     "14",
		County:         "Warszawa",
		CountyCode:     "1465",
		Borough:        "Mokotow",
		BoroughCode:    "1465058",
		Locality:       "Warszawa",
		LocalityCode:   "0918123",
		Street:         strPtr("Pulawska"),
		StreetCode:     strPtr("18201"),
		Geolocation:    registryapi.Geolocation{Latitude: 52.19, Longitude: 21.02},
		Type:           registryapi.Named{ID: 1, Name: "Szkola podstawowa"},
		LegalStatus:    registryapi.Named{ID: 2, Name: "publiczna"},
		StudentCategory: registryapi.Named{
			ID:   3,
			Name: "Dzieci lub mlodziez",
		},
		EducationStages: []registryapi.Named{
			{ID: 4, Name: "podstawowa"},
		},
	}
}

func TestProcessRecord_DecomposesFullGraph(t *testing.T) {
	schools := &fakeSchoolRepo{}
	locations := newFakeLocationRepo()
	taxonomies := newFakeTaxonomyRepo()
	svc := newTestImportService(schools, locations, taxonomies)

	require.NoError(t, svc.ProcessRecord(context.Background(), validRecord(123)))

	require.Len(t, schools.created, 1)
	got := schools.created[0]
	assert.Equal(t, int64(123), got.RegistryNumber)
	assert.Equal(t, locations.regions["14"].ID, got.RegionID)
	assert.Equal(t, locations.counties["1465"].ID, got.CountyID)
	assert.Equal(t, locations.boroughs["1465058"].ID, got.BoroughID)
	assert.Equal(t, locations.localities["0918123"].ID, got.LocalityID)
	require.Len(t, got.StreetIDs, 1)
	assert.Equal(t, locations.streets["18201"].ID, got.StreetIDs[0])
	assert.NotZero(t, got.SchoolTypeID)
	assert.NotZero(t, got.LegalStatusID)
	assert.NotZero(t, got.StudentCategoryID)
	assert.Len(t, got.EducationStageIDs, 1)
	assert.Empty(t, got.VocationalProgramIDs)
}

func TestProcessRecord_DoubleImportIsSkipped(t *testing.T) {
	schools := &fakeSchoolRepo{}
	svc := newTestImportService(schools, newFakeLocationRepo(), newFakeTaxonomyRepo())

	require.NoError(t, svc.ProcessRecord(context.Background(), validRecord(123)))

	err := svc.ProcessRecord(context.Background(), validRecord(123))
	require.ErrorIs(t, err, ErrAlreadyImported)
	assert.Len(t, schools.created, 1)
}

func TestProcessRecord_SharedHierarchyCreatedOnce(t *testing.T) {
	schools := &fakeSchoolRepo{}
	locations := newFakeLocationRepo()
	svc := newTestImportService(schools, locations, newFakeTaxonomyRepo())

	first := validRecord(1)
	second := validRecord(2)
	second.Name = "Szkola Podstawowa nr 2"
	second.Street = strPtr("Marszalkowska")
	second.StreetCode = strPtr("12400")

	require.NoError(t, svc.ProcessRecord(context.Background(), first))
	require.NoError(t, svc.ProcessRecord(context.Background(), second))

	assert.Len(t, locations.regions, 1)
	assert.Len(t, locations.counties, 1)
	assert.Len(t, locations.boroughs, 1)
	assert.Len(t, locations.localities, 1)
	assert.Len(t, locations.streets, 2)
	assert.Equal(t, schools.created[0].RegionID, schools.created[1].RegionID)
	assert.Equal(t, schools.created[0].LocalityID, schools.created[1].LocalityID)
}

func TestProcessRecord_RegionNameVariantReusesStoredEntity(t *testing.T) {
	schools := &fakeSchoolRepo{}
	locations := newFakeLocationRepo()
	svc := newTestImportService(schools, locations, newFakeTaxonomyRepo())

	require.NoError(t, svc.ProcessRecord(context.Background(), validRecord(1)))

	variant := validRecord(2)
	variant.Region = "Mazowieckie"
	require.NoError(t, svc.ProcessRecord(context.Background(), variant))

	require.Len(t, locations.regions, 1)
	assert.Equal(t, "MAZOWIECKIE", locations.regions["14"].Name)
}

func TestProcessRecord_InvalidRecordSkipped(t *testing.T) {
	schools := &fakeSchoolRepo{}
	locations := newFakeLocationRepo()
	svc := newTestImportService(schools, locations, newFakeTaxonomyRepo())

	rec := validRecord(123)
	rec.Name = ""

	err := svc.ProcessRecord(context.Background(), rec)
	require.ErrorIs(t, err, ErrRecordInvalid)
	assert.Empty(t, schools.created)
	assert.Zero(t, locations.creates, "invalid records must not touch the store")
}

func TestProcessRecord_NoStreet(t *testing.T) {
	schools := &fakeSchoolRepo{}
	svc := newTestImportService(schools, newFakeLocationRepo(), newFakeTaxonomyRepo())

	rec := validRecord(123)
	rec.Street = nil
	rec.StreetCode = nil

	require.NoError(t, svc.ProcessRecord(context.Background(), rec))
	require.Len(t, schools.created, 1)
	assert.Empty(t, schools.created[0].StreetIDs)
}

func TestProcessRecord_FailureResetsCaches(t *testing.T) {
	schools := &fakeSchoolRepo{createErr: errors.New("connection reset")}
	locations := newFakeLocationRepo()
	svc := newTestImportService(schools, locations, newFakeTaxonomyRepo())

	require.Error(t, svc.ProcessRecord(context.Background(), validRecord(123)))

	// A failed transaction rolled back every row the caches point at, so the
	// next record has to go back to the store.
	lookupsAfterFailure := locations.lookups
	schools.createErr = nil
	require.NoError(t, svc.ProcessRecord(context.Background(), validRecord(123)))
	assert.Greater(t, locations.lookups, lookupsAfterFailure)
	assert.Len(t, schools.created, 1)
}

func TestProcessBatch_Counters(t *testing.T) {
	schools := &fakeSchoolRepo{}
	svc := newTestImportService(schools, newFakeLocationRepo(), newFakeTaxonomyRepo())

	invalid := validRecord(3)
	invalid.REGON = ""

	stats := svc.ProcessBatch(context.Background(), []registryapi.Record{
		validRecord(1),
		validRecord(2),
		validRecord(1), // duplicate
		invalid,
	})

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)
	assert.Len(t, schools.created, 2)
}
