package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(runID string) Entry {
	return Entry{
		Timestamp:  time.Date(2024, 3, 20, 10, 30, 0, 0, time.UTC),
		RunID:      runID,
		AccountID:  "everyday",
		Action:     "import",
		SourceFile: "march.csv",
		Imported:   42,
		Skipped:    3,
		Duplicates: 1,
		CommitHash: "abc1234",
	}
}

func TestAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Append(dir, []Entry{sampleEntry("2024-03-001")}))
	require.NoError(t, Append(dir, []Entry{sampleEntry("2024-03-002")}))

	entries, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "2024-03-001", entries[0].RunID)
	assert.Equal(t, 42, entries[0].Imported)
	assert.Equal(t, 3, entries[0].Skipped)
	assert.Equal(t, 1, entries[0].Duplicates)
	assert.Equal(t, "abc1234", entries[0].CommitHash)
	assert.Equal(t, "2024-03-002", entries[1].RunID)
}

func TestAppend_WritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{sampleEntry("2024-03-001")}))
	require.NoError(t, Append(dir, []Entry{sampleEntry("2024-03-002")}))

	data, err := os.ReadFile(filepath.Join(dir, "logs", "import-log.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "timestamp,"))
}

func TestAppend_NoEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, nil))

	_, err := os.Stat(filepath.Join(dir, "logs", "import-log.csv"))
	assert.True(t, os.IsNotExist(err), "no file should be created for an empty append")
}

func TestReadAll_MissingFile(t *testing.T) {
	entries, err := ReadAll(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestMarshalUnmarshalEntry(t *testing.T) {
	e := sampleEntry("2024-03-007")
	got, err := UnmarshalEntry(MarshalEntry(e))
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestUnmarshalEntry_WrongFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"only", "three", "fields"})
	require.Error(t, err)
}
