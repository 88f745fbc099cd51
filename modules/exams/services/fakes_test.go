package services

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/eduatlas/eduatlas/modules/exams/domain/entities/exam"
	examspersistence "github.com/eduatlas/eduatlas/modules/exams/infrastructure/persistence"
	"github.com/eduatlas/eduatlas/modules/registry/domain/aggregates/school"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence"
)

func passthroughTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeSchoolRepo struct {
	byRegistryNumber map[int64]*school.School
	scoreUpdates     [][]school.ScoreUpdate
	updateErr        error
}

func newFakeSchoolRepo(schools ...*school.School) *fakeSchoolRepo {
	f := &fakeSchoolRepo{byRegistryNumber: map[int64]*school.School{}}
	for _, s := range schools {
		f.byRegistryNumber[s.RegistryNumber] = s
	}
	return f
}

func (f *fakeSchoolRepo) GetByID(context.Context, int64) (*school.School, error) {
	return nil, persistence.ErrSchoolNotFound
}

func (f *fakeSchoolRepo) GetByRegistryNumber(_ context.Context, number int64) (*school.School, error) {
	if s, ok := f.byRegistryNumber[number]; ok {
		return s, nil
	}
	return nil, persistence.ErrSchoolNotFound
}

func (f *fakeSchoolRepo) ExistsByRegistryNumber(_ context.Context, number int64) (bool, error) {
	_, ok := f.byRegistryNumber[number]
	return ok, nil
}

func (f *fakeSchoolRepo) Create(context.Context, *school.School) error { return nil }

func (f *fakeSchoolRepo) FindInBounds(context.Context, school.Bounds) ([]*school.School, error) {
	return nil, nil
}

func (f *fakeSchoolRepo) UpdateScores(_ context.Context, updates []school.ScoreUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	batch := make([]school.ScoreUpdate, len(updates))
	copy(batch, updates)
	f.scoreUpdates = append(f.scoreUpdates, batch)
	return nil
}

func (f *fakeSchoolRepo) allScores() map[int64]float64 {
	scores := map[int64]float64{}
	for _, batch := range f.scoreUpdates {
		for _, u := range batch {
			scores[u.SchoolID] = u.Score
		}
	}
	return scores
}

type fakeSubjectRepo struct {
	byName map[string]*exam.Subject
	nextID int64
}

func newFakeSubjectRepo(names ...string) *fakeSubjectRepo {
	f := &fakeSubjectRepo{byName: map[string]*exam.Subject{}}
	for _, name := range names {
		f.nextID++
		f.byName[name] = &exam.Subject{ID: f.nextID, Name: name}
	}
	return f
}

func (f *fakeSubjectRepo) GetByName(_ context.Context, name string) (*exam.Subject, error) {
	if s, ok := f.byName[name]; ok {
		return s, nil
	}
	return nil, examspersistence.ErrSubjectNotFound
}

func (f *fakeSubjectRepo) ListByNames(_ context.Context, names []string) ([]*exam.Subject, error) {
	var out []*exam.Subject
	for _, name := range names {
		if s, ok := f.byName[name]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubjectRepo) Create(_ context.Context, s *exam.Subject) error {
	f.nextID++
	s.ID = f.nextID
	f.byName[s.Name] = s
	return nil
}

type fakeResultRepo struct {
	results  []*exam.Result
	nextID   int64
	failNext bool
}

func (f *fakeResultRepo) Create(_ context.Context, r *exam.Result) error {
	if f.failNext {
		f.failNext = false
		return errors.New("connection reset")
	}
	f.nextID++
	r.ID = f.nextID
	stored := *r
	f.results = append(f.results, &stored)
	return nil
}

func (f *fakeResultRepo) ListBySubjectIDs(_ context.Context, subjectIDs []int64) ([]*exam.Result, error) {
	want := map[int64]bool{}
	for _, id := range subjectIDs {
		want[id] = true
	}
	var out []*exam.Result
	for _, r := range f.results {
		if want[r.SubjectID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
