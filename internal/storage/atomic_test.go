package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "collection.json")
	in := map[string][]string{"groceries": {"milk", "eggs"}, "books": {}}

	require.NoError(t, WriteJSON(path, in))

	var out map[string][]string
	require.True(t, LoadJSON(path, &out, nil))
	assert.Equal(t, in, out)
}

func TestWriteJSON_NoTempResidue(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "collection.json")
	require.NoError(t, WriteJSON(path, []int{1, 2, 3}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "collection.json", entries[0].Name())
}

func TestWriteJSON_RenameFailureLeavesPreviousContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collection.json")
	require.NoError(t, WriteJSON(path, []string{"committed"}))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	orig := renameFile
	renameFile = func(string, string) error { return errors.New("disk on fire") }
	defer func() { renameFile = orig }()

	err = WriteJSON(path, []string{"lost"})
	require.Error(t, err)

	after, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, before, after, "interrupted write must not disturb committed content")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must be cleaned up after failure")
}

func TestWriteJSON_UnserializableValue(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "collection.json")
	require.Error(t, WriteJSON(path, func() {}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadJSON_MissingFile(t *testing.T) {
	t.Parallel()

	var out []string
	assert.False(t, LoadJSON(filepath.Join(t.TempDir(), "absent.json"), &out, nil))
	assert.Nil(t, out)
}

func TestLoadJSON_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "collection.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var out []string
	assert.False(t, LoadJSON(path, &out, nil))
}

func TestLoadJSON_WrongTopLevelType(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "collection.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": 1}`), 0o644))

	var out []string
	assert.False(t, LoadJSON(path, &out, nil))
	assert.Nil(t, out)
}

func TestLoadJSON_EmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "collection.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	var out map[string]string
	assert.False(t, LoadJSON(path, &out, nil))
}
