package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWeights(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWeights(t *testing.T) {
	path := writeWeights(t, `
subjects:
  "Matematyka": 0.5
  "Język polski": 0.3
  "Język angielski": 0.2
`)

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, w.Subjects["matematyka"], "keys are normalized like workbook headers")
	assert.Equal(t, []string{"jezyk_angielski", "jezyk_polski", "matematyka"}, w.SubjectNames())
}

func TestLoadWeights_DuplicateAfterNormalization(t *testing.T) {
	path := writeWeights(t, "subjects:\n  \"Matematyka\": 0.5\n  \"Matematyka*\": 0.5\n")
	_, err := LoadWeights(path)
	require.ErrorContains(t, err, "duplicates another entry after normalization")
}

func TestLoadWeights_Empty(t *testing.T) {
	path := writeWeights(t, "subjects: {}\n")
	_, err := LoadWeights(path)
	require.ErrorContains(t, err, "no subjects")
}

func TestLoadWeights_NonPositive(t *testing.T) {
	path := writeWeights(t, "subjects:\n  Matematyka: -1\n")
	_, err := LoadWeights(path)
	require.ErrorContains(t, err, "non-positive weight")
}

func TestLoadWeights_MissingFile(t *testing.T) {
	_, err := LoadWeights(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
