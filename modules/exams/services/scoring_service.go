package services

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/eduatlas/eduatlas/modules/exams/domain/entities/exam"
	"github.com/eduatlas/eduatlas/modules/registry/domain/aggregates/school"
	"github.com/eduatlas/eduatlas/pkg/composables"
)

// ScoreStats summarizes one scoring run.
type ScoreStats struct {
	// Scored counts schools whose score was computed and written.
	Scored int
	// Unscored counts schools seen in the results but left untouched because
	// no weighted subject had a single real examinee.
	Unscored int
	// Batches counts committed score-update transactions.
	Batches int
}

// ScoringService folds multi-year exam observations into one composite score
// per school. Scores are written in batches, each in its own transaction, so
// a failure mid-run leaves earlier batches committed and reports where to
// look.
type ScoringService struct {
	schools  school.Repository
	subjects exam.SubjectRepository
	results  exam.ResultRepository

	logger    logrus.FieldLogger
	inTx      TxRunner
	batchSize int
}

func NewScoringService(
	schools school.Repository,
	subjects exam.SubjectRepository,
	results exam.ResultRepository,
	batchSize int,
	logger logrus.FieldLogger,
) *ScoringService {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &ScoringService{
		schools:   schools,
		subjects:  subjects,
		results:   results,
		logger:    logger,
		inTx:      composables.InTx,
		batchSize: batchSize,
	}
}

// ScoreAll recomputes the composite score for every school that has
// observations in any weighted subject. Schools outside that set keep their
// current score value, including the never-scored NULL.
func (s *ScoringService) ScoreAll(ctx context.Context, weights Weights) (ScoreStats, error) {
	names := weights.SubjectNames()
	subjects, err := s.subjects.ListByNames(ctx, names)
	if err != nil {
		return ScoreStats{}, errors.Wrap(err, "list weighted subjects")
	}
	// Every weighted subject must exist. A missing one means the weights file
	// does not match the loaded data, and scoring against a partial subject
	// set would silently shift every score.
	if len(subjects) != len(names) {
		found := make(map[string]bool, len(subjects))
		for _, sub := range subjects {
			found[sub.Name] = true
		}
		for _, name := range names {
			if !found[name] {
				return ScoreStats{}, errors.Errorf("weighted subject %q not found in store", name)
			}
		}
	}

	weightBySubjectID := make(map[int64]float64, len(subjects))
	subjectIDs := make([]int64, 0, len(subjects))
	for _, sub := range subjects {
		weightBySubjectID[sub.ID] = weights.Subjects[sub.Name]
		subjectIDs = append(subjectIDs, sub.ID)
	}

	observations, err := s.results.ListBySubjectIDs(ctx, subjectIDs)
	if err != nil {
		return ScoreStats{}, errors.Wrap(err, "list exam results")
	}

	bySchool := make(map[int64][]*exam.Result)
	for _, obs := range observations {
		bySchool[obs.SchoolID] = append(bySchool[obs.SchoolID], obs)
	}

	schoolIDs := make([]int64, 0, len(bySchool))
	for id := range bySchool {
		schoolIDs = append(schoolIDs, id)
	}
	sort.Slice(schoolIDs, func(i, j int) bool { return schoolIDs[i] < schoolIDs[j] })

	var stats ScoreStats
	var updates []school.ScoreUpdate
	partialSubjects := 0
	for _, schoolID := range schoolIDs {
		score, partial, ok := compositeScore(bySchool[schoolID], weightBySubjectID)
		partialSubjects += partial
		if !ok {
			stats.Unscored++
			continue
		}
		updates = append(updates, school.ScoreUpdate{SchoolID: schoolID, Score: score})
	}
	stats.Scored = len(updates)
	if partialSubjects > 0 {
		s.logger.WithField("subjects", partialSubjects).Debug("subject aggregates without examinees contributed nothing")
	}

	s.logger.WithFields(logrus.Fields{
		"schools":  len(schoolIDs),
		"scored":   stats.Scored,
		"unscored": stats.Unscored,
	}).Info("computed composite scores")

	for start := 0; start < len(updates); start += s.batchSize {
		end := start + s.batchSize
		if end > len(updates) {
			end = len(updates)
		}
		batch := updates[start:end]
		err := s.inTx(ctx, func(txCtx context.Context) error {
			return s.schools.UpdateScores(txCtx, batch)
		})
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"committed_batches": stats.Batches,
				"failed_offset":     start,
			}).WithError(err).Error("score batch failed, earlier batches remain committed")
			return stats, errors.Wrapf(err, "persist scores at offset %d", start)
		}
		stats.Batches++
	}

	s.logger.WithField("batches", stats.Batches).Info("scores persisted")
	return stats, nil
}

// compositeScore is the examinee-weighted average over all observations of
// all weighted subjects, scaled by the subject weights.
//
// Per subject the aggregate is sum(value*examinees)/sum(examinees) across
// years, where value is the median when present and the mean otherwise.
// Subjects with zero examinees overall contribute 0 and are counted in the
// second return. The third return is false when no subject had a real
// examinee, in which case no score exists.
func compositeScore(observations []*exam.Result, weightBySubjectID map[int64]float64) (float64, int, bool) {
	type acc struct {
		weighted float64
		count    float64
	}
	perSubject := make(map[int64]*acc)
	for _, obs := range observations {
		if !obs.Usable() {
			continue
		}
		value, _ := obs.EffectiveStatistic()
		a, ok := perSubject[obs.SubjectID]
		if !ok {
			a = &acc{}
			perSubject[obs.SubjectID] = a
		}
		a.weighted += value * float64(*obs.ExamineeCount)
		a.count += float64(*obs.ExamineeCount)
	}

	var score float64
	partial := 0
	hasReal := false
	for subjectID, a := range perSubject {
		if a.count == 0 {
			partial++
			continue
		}
		hasReal = true
		score += weightBySubjectID[subjectID] * (a.weighted / a.count)
	}
	if !hasReal {
		return 0, partial, false
	}
	return score, partial, true
}
