package services

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/eduatlas/eduatlas/modules/exams/domain/entities/exam"
	examspersistence "github.com/eduatlas/eduatlas/modules/exams/infrastructure/persistence"
	"github.com/eduatlas/eduatlas/modules/registry/domain/aggregates/school"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence"
	"github.com/eduatlas/eduatlas/pkg/composables"
	"github.com/eduatlas/eduatlas/pkg/entitycache"
	"github.com/eduatlas/eduatlas/pkg/textutil"
)

// TxRunner runs fn inside a store transaction.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

var yearPattern = regexp.MustCompile(`20\d{2}`)

// Canonical statistic keys after label cleaning. Mean appears under two
// spellings across publication years.
const (
	statExaminees = "liczba_zdajacych"
	statMedian    = "mediana"
	statMeanA     = "wynik_sredni"
	statMeanB     = "sredni_wynik"
	statPassRate  = "zdawalnosc"
	statLaureates = "liczba_laureatow_finalistow"
)

// column describes one spreadsheet column that carries a statistic for a
// subject. Subject comes from the first header row, statistic from the second.
type column struct {
	index   int
	subject string
	stat    string
}

// LoadStats summarizes one results file or directory load.
type LoadStats struct {
	Rows           int
	Inserted       int
	SkippedSchools int
	// InvalidRows counts non-empty rows whose registry-number cell is absent
	// or non-numeric.
	InvalidRows int
	FailedRows  int
}

func (s *LoadStats) add(other LoadStats) {
	s.Rows += other.Rows
	s.Inserted += other.Inserted
	s.SkippedSchools += other.SkippedSchools
	s.InvalidRows += other.InvalidRows
	s.FailedRows += other.FailedRows
}

// ResultsLoader ingests published exam-result workbooks. Each workbook carries
// one year of one exam kind: rows are schools keyed by registry number,
// column groups are subjects, and the columns within a group are statistics.
type ResultsLoader struct {
	schools  school.Repository
	subjects exam.SubjectRepository
	results  exam.ResultRepository

	logger logrus.FieldLogger
	inTx   TxRunner

	subjectCache *entitycache.Cache[*exam.Subject]
}

func NewResultsLoader(
	schools school.Repository,
	subjects exam.SubjectRepository,
	results exam.ResultRepository,
	logger logrus.FieldLogger,
) *ResultsLoader {
	return &ResultsLoader{
		schools:      schools,
		subjects:     subjects,
		results:      results,
		logger:       logger,
		inTx:         composables.InTx,
		subjectCache: entitycache.New[*exam.Subject](examspersistence.ErrSubjectNotFound),
	}
}

// LoadDir loads every .xlsx workbook in dir as the given exam kind, in
// filename order. A file that cannot be read at all aborts the run; bad rows
// inside a readable file are counted and skipped.
func (l *ResultsLoader) LoadDir(ctx context.Context, dir string, kind exam.Kind) (LoadStats, error) {
	if !kind.Valid() {
		return LoadStats{}, errors.Errorf("unknown exam kind %q", kind)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return LoadStats{}, errors.Wrap(err, "read results directory")
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xlsx") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var total LoadStats
	for _, path := range paths {
		stats, err := l.LoadFile(ctx, path, kind)
		total.add(stats)
		if err != nil {
			return total, errors.Wrapf(err, "load %s", filepath.Base(path))
		}
	}
	return total, nil
}

// LoadFile loads one workbook. The publication year is taken from the
// filename, not the cell contents.
func (l *ResultsLoader) LoadFile(ctx context.Context, path string, kind exam.Kind) (LoadStats, error) {
	if !kind.Valid() {
		return LoadStats{}, errors.Errorf("unknown exam kind %q", kind)
	}
	year, err := yearFromFilename(path)
	if err != nil {
		return LoadStats{}, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return LoadStats{}, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return LoadStats{}, errors.Wrap(err, "read sheet")
	}
	if len(rows) < 2 {
		return LoadStats{}, errors.New("workbook has no header rows")
	}

	columns, rspoCol, err := parseHeader(rows[0], rows[1])
	if err != nil {
		return LoadStats{}, err
	}

	log := l.logger.WithFields(logrus.Fields{
		"file": filepath.Base(path),
		"kind": kind,
		"year": year,
	})
	log.WithField("subject_columns", len(columns)).Info("loading exam results")

	var stats LoadStats
	for i, row := range rows[2:] {
		registryNumber, ok := parseRegistryNumber(cell(row, rspoCol))
		if !ok {
			if rowEmpty(row) {
				continue
			}
			stats.InvalidRows++
			log.WithFields(logrus.Fields{
				"row":  i + 3,
				"cell": cell(row, rspoCol),
			}).Warn("registry-number cell absent or non-numeric, skipping row")
			continue
		}
		stats.Rows++

		if err := l.loadRow(ctx, row, columns, registryNumber, year, kind, &stats); err != nil {
			stats.FailedRows++
			log.WithField("registry_number", registryNumber).WithError(err).Error("failed to load result row")
		}
	}

	log.WithFields(logrus.Fields{
		"rows":            stats.Rows,
		"inserted":        stats.Inserted,
		"skipped_schools": stats.SkippedSchools,
		"invalid_rows":    stats.InvalidRows,
		"failed_rows":     stats.FailedRows,
	}).Info("exam results file loaded")
	return stats, nil
}

// loadRow persists all usable observations of one school row in a single
// transaction.
func (l *ResultsLoader) loadRow(
	ctx context.Context,
	row []string,
	columns []column,
	registryNumber int64,
	year int,
	kind exam.Kind,
	stats *LoadStats,
) error {
	sch, err := l.schools.GetByRegistryNumber(ctx, registryNumber)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			stats.SkippedSchools++
			l.logger.WithField("registry_number", registryNumber).Debug("school not in registry, skipping results row")
			return nil
		}
		return err
	}

	results := collectRow(row, columns, year, kind)
	if len(results) == 0 {
		return nil
	}

	inserted := 0
	err = l.inTx(ctx, func(txCtx context.Context) error {
		for _, res := range results {
			subject, err := l.resolveSubject(txCtx, res.subjectName)
			if err != nil {
				return err
			}
			res.result.SchoolID = sch.ID
			res.result.SubjectID = subject.ID
			if err := l.results.Create(txCtx, res.result); err != nil {
				return errors.Wrapf(err, "subject %q", res.subjectName)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		// subjects created inside the rolled-back transaction reference rows
		// that no longer exist
		l.subjectCache.Reset()
		return err
	}
	stats.Inserted += inserted
	return nil
}

type rowResult struct {
	subjectName string
	result      *exam.Result
}

// collectRow folds the statistic columns of one row into per-subject results,
// keeping only observations with enough signal to score.
func collectRow(row []string, columns []column, year int, kind exam.Kind) []rowResult {
	bySubject := make(map[string]*exam.Result)
	var order []string
	for _, col := range columns {
		raw := cell(row, col.index)
		res, ok := bySubject[col.subject]
		if !ok {
			res = &exam.Result{Year: year, Kind: kind}
			bySubject[col.subject] = res
			order = append(order, col.subject)
		}
		switch col.stat {
		case statExaminees:
			res.ExamineeCount = parseIntCell(raw)
		case statMedian:
			res.Median = parseFloatCell(raw)
		case statMeanA, statMeanB:
			res.Mean = parseFloatCell(raw)
		case statPassRate:
			res.PassRate = parseFloatCell(raw)
		case statLaureates:
			res.LaureateCount = parseIntCell(raw)
		}
	}

	var out []rowResult
	for _, subject := range order {
		if res := bySubject[subject]; res.Usable() {
			out = append(out, rowResult{subjectName: subject, result: res})
		}
	}
	return out
}

func (l *ResultsLoader) resolveSubject(ctx context.Context, name string) (*exam.Subject, error) {
	return l.subjectCache.Resolve(ctx, name,
		func(ctx context.Context) (*exam.Subject, error) {
			return l.subjects.GetByName(ctx, name)
		},
		func(ctx context.Context) (*exam.Subject, error) {
			s := &exam.Subject{Name: name}
			if err := l.subjects.Create(ctx, s); err != nil {
				return nil, err
			}
			return s, nil
		})
}

// parseHeader resolves the two header rows into statistic columns plus the
// position of the registry-number column. Merged subject cells arrive empty
// after the first column of the group and are forward-filled.
func parseHeader(level0, level1 []string) ([]column, int, error) {
	width := len(level0)
	if len(level1) > width {
		width = len(level1)
	}

	rspoCol := -1
	var columns []column
	subject := ""
	for i := 0; i < width; i++ {
		top := strings.TrimSpace(cell(level0, i))
		if top != "" {
			subject = top
		}
		bottom := strings.TrimSpace(cell(level1, i))

		if strings.Contains(textutil.CleanLabel(top), "rspo") || strings.Contains(textutil.CleanLabel(bottom), "rspo") {
			rspoCol = i
			continue
		}
		if subject == "" || bottom == "" {
			continue
		}

		stat := textutil.CleanLabel(bottom)
		switch stat {
		case statExaminees, statMedian, statMeanA, statMeanB, statPassRate, statLaureates:
			// Subjects are keyed by the normalized label so cosmetic header
			// variants across publication years land on one subject row.
			name := textutil.CleanLabel(subject)
			if name == "" {
				continue
			}
			columns = append(columns, column{index: i, subject: name, stat: stat})
		}
	}
	if rspoCol < 0 {
		return nil, 0, errors.New("no registry-number column in header")
	}
	if len(columns) == 0 {
		return nil, 0, errors.New("no statistic columns in header")
	}
	return columns, rspoCol, nil
}

func yearFromFilename(path string) (int, error) {
	match := yearPattern.FindString(filepath.Base(path))
	if match == "" {
		return 0, errors.Errorf("no year in filename %q", filepath.Base(path))
	}
	return strconv.Atoi(match)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func rowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRegistryNumber(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Published workbooks use a comma decimal separator and a dash for "no data".
func parseFloatCell(raw string) *float64 {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" || raw == "-" {
		return nil
	}
	raw = strings.TrimSuffix(raw, "%")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseIntCell(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}
