package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUT_EN_08_01_WriteHostResult_ThenReadHostResult_RoundTrips tests that a published host result reads back identically
func TestUT_EN_08_01_WriteHostResult_ThenReadHostResult_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_result.json")
	want := HostResult{
		Host:     "node-a",
		Counters: Counters{Created: 5, TotalErrors: 1},
		Threads:  map[string]Counters{"0": {Created: 5}},
		OK:       true,
	}

	require.NoError(t, WriteHostResult(path, want))

	got, err := ReadHostResult(path)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestUT_EN_08_02_WriteHostResult_PublishesAtomically tests that no ".notyet" temp file is left behind after a successful publish
func TestUT_EN_08_02_WriteHostResult_PublishesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_result.json")

	require.NoError(t, WriteHostResult(path, HostResult{Host: "node-b"}))

	_, err := os.Stat(path + ".notyet")
	assert.True(t, os.IsNotExist(err))
}

// TestUT_EN_08_03_ReadHostResult_WithMissingFile_ReturnsError tests that reading a never-published result surfaces an error
func TestUT_EN_08_03_ReadHostResult_WithMissingFile_ReturnsError(t *testing.T) {
	_, err := ReadHostResult(filepath.Join(t.TempDir(), "missing.json"))

	assert.Error(t, err)
}

// TestUT_EN_08_04_SnapshotWriter_ProducesParseableJSONArray tests that the snapshot file is a valid JSON array once closed
func TestUT_EN_08_04_SnapshotWriter_ProducesParseableJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.json")

	w, err := NewSnapshotWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Append(Counters{Created: 1}))
	require.NoError(t, w.Append(Counters{Created: 2}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(trimmed, "["))
	assert.True(t, strings.HasSuffix(trimmed, "]"))
	assert.Equal(t, 1, strings.Count(trimmed, "},\n{"))
}

// TestUT_EN_08_05_SnapshotWriter_WithNoAppends_StillClosesValidly tests that a snapshot file opened and closed with zero appends is still a parseable (empty) array
func TestUT_EN_08_05_SnapshotWriter_WithNoAppends_StillClosesValidly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	w, err := NewSnapshotWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(trimmed, "["))
	assert.True(t, strings.HasSuffix(trimmed, "]"))
}

// TestUT_EN_08_06_AppendCheckeredFlag_LinesAreFixedWidth tests that every appended line is exactly checkeredFlagLineWidth bytes including the newline
func TestUT_EN_08_06_AppendCheckeredFlag_LinesAreFixedWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkered_flag.tmp")

	require.NoError(t, appendCheckeredFlag(path, "node-a", 0))
	require.NoError(t, appendCheckeredFlag(path, "node-a", 1))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Len(t, line+"\n", checkeredFlagLineWidth)
	}
}

// TestUT_EN_08_07_ResponseTimeCSV_RecordsOneLinePerOperation tests that each Record call appends exactly one CSV line
func TestUT_EN_08_07_ResponseTimeCSV_RecordsOneLinePerOperation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "response_times.csv")
	start := time.Now()

	rt, err := NewResponseTimeCSV(path, start)
	require.NoError(t, err)

	rt.Record(OpRead, start, 10*time.Millisecond)
	rt.Record(OpWrite, start.Add(time.Second), 5*time.Millisecond)
	require.NoError(t, rt.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "read,"))
	assert.True(t, strings.HasPrefix(lines[1], "write,"))
}
