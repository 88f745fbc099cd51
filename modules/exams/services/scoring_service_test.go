package services

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduatlas/eduatlas/modules/exams/domain/entities/exam"
)

func newTestScorer(schools *fakeSchoolRepo, subjects *fakeSubjectRepo, results *fakeResultRepo, batchSize int) *ScoringService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s := NewScoringService(schools, subjects, results, batchSize, logger)
	s.inTx = passthroughTx
	return s
}

func TestScoreAll_ExamineeWeightedAverage(t *testing.T) {
	subjects := newFakeSubjectRepo("matematyka")
	mathID := subjects.byName["matematyka"].ID
	results := &fakeResultRepo{results: []*exam.Result{
		{SchoolID: 1, SubjectID: mathID, Year: 2022, Kind: exam.KindPrimary, ExamineeCount: intPtr(10), Median: floatPtr(80)},
		{SchoolID: 1, SubjectID: mathID, Year: 2023, Kind: exam.KindPrimary, ExamineeCount: intPtr(5), Median: floatPtr(60)},
	}}
	schools := newFakeSchoolRepo()
	scorer := newTestScorer(schools, subjects, results, 0)

	stats, err := scorer.ScoreAll(context.Background(), Weights{Subjects: map[string]float64{"matematyka": 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scored)
	assert.Zero(t, stats.Unscored)

	scores := schools.allScores()
	require.Contains(t, scores, int64(1))
	// (80*10 + 60*5) / 15
	assert.InDelta(t, 73.3333, scores[1], 0.0001)
}

func TestScoreAll_MedianPreferredOverMean(t *testing.T) {
	subjects := newFakeSubjectRepo("matematyka")
	mathID := subjects.byName["matematyka"].ID
	results := &fakeResultRepo{results: []*exam.Result{
		{SchoolID: 1, SubjectID: mathID, Year: 2023, Kind: exam.KindPrimary, ExamineeCount: intPtr(10), Median: floatPtr(70), Mean: floatPtr(50)},
	}}
	schools := newFakeSchoolRepo()
	scorer := newTestScorer(schools, subjects, results, 0)

	_, err := scorer.ScoreAll(context.Background(), Weights{Subjects: map[string]float64{"matematyka": 1}})
	require.NoError(t, err)
	assert.InDelta(t, 70, schools.allScores()[1], 0.0001)
}

func TestScoreAll_WeightsCombineSubjects(t *testing.T) {
	subjects := newFakeSubjectRepo("matematyka", "jezyk_polski")
	mathID := subjects.byName["matematyka"].ID
	polishID := subjects.byName["jezyk_polski"].ID
	results := &fakeResultRepo{results: []*exam.Result{
		{SchoolID: 1, SubjectID: mathID, Year: 2023, Kind: exam.KindPrimary, ExamineeCount: intPtr(10), Median: floatPtr(60)},
		{SchoolID: 1, SubjectID: polishID, Year: 2023, Kind: exam.KindPrimary, ExamineeCount: intPtr(10), Median: floatPtr(80)},
	}}
	schools := newFakeSchoolRepo()
	scorer := newTestScorer(schools, subjects, results, 0)

	weights := Weights{Subjects: map[string]float64{"matematyka": 0.6, "jezyk_polski": 0.4}}
	_, err := scorer.ScoreAll(context.Background(), weights)
	require.NoError(t, err)
	// 0.6*60 + 0.4*80
	assert.InDelta(t, 68, schools.allScores()[1], 0.0001)
}

func TestScoreAll_NoRealExamineesLeavesSchoolUnscored(t *testing.T) {
	subjects := newFakeSubjectRepo("matematyka")
	mathID := subjects.byName["matematyka"].ID
	results := &fakeResultRepo{results: []*exam.Result{
		{SchoolID: 1, SubjectID: mathID, Year: 2023, Kind: exam.KindPrimary, ExamineeCount: intPtr(0), Median: floatPtr(80)},
	}}
	schools := newFakeSchoolRepo()
	scorer := newTestScorer(schools, subjects, results, 0)

	stats, err := scorer.ScoreAll(context.Background(), Weights{Subjects: map[string]float64{"matematyka": 1}})
	require.NoError(t, err)
	assert.Zero(t, stats.Scored)
	assert.Equal(t, 1, stats.Unscored)
	assert.Empty(t, schools.scoreUpdates, "a school with no real examinees must not get a score row")
}

func TestScoreAll_ZeroExamineeSubjectContributesNothing(t *testing.T) {
	subjects := newFakeSubjectRepo("matematyka", "fizyka")
	mathID := subjects.byName["matematyka"].ID
	physicsID := subjects.byName["fizyka"].ID
	results := &fakeResultRepo{results: []*exam.Result{
		{SchoolID: 1, SubjectID: mathID, Year: 2023, Kind: exam.KindPrimary, ExamineeCount: intPtr(10), Median: floatPtr(50)},
		{SchoolID: 1, SubjectID: physicsID, Year: 2023, Kind: exam.KindPrimary, ExamineeCount: intPtr(0), Median: floatPtr(90)},
	}}
	schools := newFakeSchoolRepo()
	scorer := newTestScorer(schools, subjects, results, 0)

	weights := Weights{Subjects: map[string]float64{"matematyka": 1, "fizyka": 1}}
	_, err := scorer.ScoreAll(context.Background(), weights)
	require.NoError(t, err)
	assert.InDelta(t, 50, schools.allScores()[1], 0.0001)
}

func TestScoreAll_MissingWeightedSubjectIsFatal(t *testing.T) {
	subjects := newFakeSubjectRepo("matematyka")
	scorer := newTestScorer(newFakeSchoolRepo(), subjects, &fakeResultRepo{}, 0)

	weights := Weights{Subjects: map[string]float64{"matematyka": 1, "chemia": 1}}
	_, err := scorer.ScoreAll(context.Background(), weights)
	require.ErrorContains(t, err, `weighted subject "chemia" not found`)
}

func TestScoreAll_BatchesUpdates(t *testing.T) {
	subjects := newFakeSubjectRepo("matematyka")
	mathID := subjects.byName["matematyka"].ID
	results := &fakeResultRepo{}
	for schoolID := int64(1); schoolID <= 5; schoolID++ {
		results.results = append(results.results, &exam.Result{
			SchoolID: schoolID, SubjectID: mathID, Year: 2023, Kind: exam.KindPrimary,
			ExamineeCount: intPtr(10), Median: floatPtr(60),
		})
	}
	schools := newFakeSchoolRepo()
	scorer := newTestScorer(schools, subjects, results, 2)

	stats, err := scorer.ScoreAll(context.Background(), Weights{Subjects: map[string]float64{"matematyka": 1}})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Scored)
	assert.Equal(t, 3, stats.Batches)
	require.Len(t, schools.scoreUpdates, 3)
	assert.Len(t, schools.scoreUpdates[0], 2)
	assert.Len(t, schools.scoreUpdates[2], 1)
}

func TestScoreAll_BatchFailureReportsOffset(t *testing.T) {
	subjects := newFakeSubjectRepo("matematyka")
	mathID := subjects.byName["matematyka"].ID
	results := &fakeResultRepo{results: []*exam.Result{
		{SchoolID: 1, SubjectID: mathID, Year: 2023, Kind: exam.KindPrimary, ExamineeCount: intPtr(10), Median: floatPtr(60)},
	}}
	schools := newFakeSchoolRepo()
	schools.updateErr = errors.New("connection reset")
	scorer := newTestScorer(schools, subjects, results, 0)

	stats, err := scorer.ScoreAll(context.Background(), Weights{Subjects: map[string]float64{"matematyka": 1}})
	require.ErrorContains(t, err, "persist scores at offset 0")
	assert.Zero(t, stats.Batches)
}
