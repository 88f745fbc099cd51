package services

import (
	"os"
	"sort"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/eduatlas/eduatlas/pkg/textutil"
)

// Weights maps normalized subject names, as stored by the results loader, to
// their share of the composite score.
type Weights struct {
	Subjects map[string]float64 `yaml:"subjects"`
}

// SubjectNames returns the weighted subject names in stable order.
func (w Weights) SubjectNames() []string {
	names := make([]string, 0, len(w.Subjects))
	for name := range w.Subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, errors.Wrap(err, "read weights file")
	}
	var w Weights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, errors.Wrap(err, "parse weights file")
	}
	if len(w.Subjects) == 0 {
		return Weights{}, errors.New("weights file lists no subjects")
	}

	// Keys are folded the same way the loader folds workbook headers, so the
	// file can carry human-readable subject names.
	normalized := make(map[string]float64, len(w.Subjects))
	for name, weight := range w.Subjects {
		if weight <= 0 {
			return Weights{}, errors.Errorf("subject %q has non-positive weight %v", name, weight)
		}
		key := textutil.CleanLabel(name)
		if key == "" {
			return Weights{}, errors.Errorf("subject name %q normalizes to nothing", name)
		}
		if _, dup := normalized[key]; dup {
			return Weights{}, errors.Errorf("subject name %q duplicates another entry after normalization", name)
		}
		normalized[key] = weight
	}
	w.Subjects = normalized
	return w, nil
}
