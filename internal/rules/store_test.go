package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, content string) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return NewFileStore(path, nil)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t, "")
	rs, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, rs)
	assert.Empty(t, s.CurrentRules())
}

func TestFileStoreLoadPreservesOrder(t *testing.T) {
	s := newTestStore(t, `rules:
  - id: "1"
    left: 0
    top: 0
    right: 100
    bottom: 50
    color: "#FF000000"
    enabled: true
  - id: "2"
    left: 50
    top: 50
    right: 40
    bottom: 90
    color: "#FF0000FF"
    enabled: true
  - id: "3"
    color: "#FFFFFFFF"
`)
	rs, err := s.Load()
	require.NoError(t, err)
	require.Len(t, rs, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{rs[0].ID, rs[1].ID, rs[2].ID})
	assert.Equal(t, Rule{ID: "1", Right: 100, Bottom: 50, Color: 0xFF000000, Enabled: true}, rs[0])
	assert.False(t, rs[2].Enabled)
}

func TestFileStoreRejectsDuplicateIDs(t *testing.T) {
	s := newTestStore(t, "rules:\n  - id: a\n  - id: a\n")
	_, err := s.Load()
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Contains(t, err.Error(), s.Path())
}

func TestFileStoreRejectsUnknownFields(t *testing.T) {
	s := newTestStore(t, "rules:\n  - id: a\n    width: 10\n")
	_, err := s.Load()
	require.Error(t, err)
}

func TestFileStoreCurrentRulesSwallowsErrors(t *testing.T) {
	s := newTestStore(t, "rules: [\n")
	assert.Nil(t, s.CurrentRules())
}

func TestFileStoreAddRemoveEnable(t *testing.T) {
	s := newTestStore(t, "")

	added, err := s.Add(Rule{Left: 1, Top: 2, Right: 3, Bottom: 4, Color: 0xFF112233, Enabled: true})
	require.NoError(t, err)
	_, err = uuid.Parse(added.ID)
	require.NoError(t, err, "generated id should be a uuid")

	_, err = s.Add(Rule{ID: "fixed"})
	require.NoError(t, err)
	_, err = s.Add(Rule{ID: "fixed"})
	require.ErrorIs(t, err, ErrDuplicateID)

	require.NoError(t, s.SetEnabled("fixed", true))
	rs, err := s.Load()
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, added, rs[0])
	assert.True(t, rs[1].Enabled)

	require.NoError(t, s.Remove(added.ID))
	require.ErrorIs(t, s.Remove(added.ID), ErrRuleNotFound)
	require.ErrorIs(t, s.SetEnabled("missing", false), ErrRuleNotFound)

	rs, err = s.Load()
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "fixed", rs[0].ID)
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t, "")
	require.NoError(t, s.Save([]Rule{{ID: "x", Right: 5, Bottom: 5}}))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "rules.yaml", entries[0].Name())

	require.Error(t, s.Save([]Rule{{ID: ""}}))
}

func TestFileStoreSetPath(t *testing.T) {
	s := newTestStore(t, "rules:\n  - id: first\n")
	require.Len(t, s.CurrentRules(), 1)

	other := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("rules:\n  - id: x\n  - id: y\n"), 0644))
	s.SetPath(other)
	assert.Equal(t, other, s.Path())
	assert.Len(t, s.CurrentRules(), 2)
}
