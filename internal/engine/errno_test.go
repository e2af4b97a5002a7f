package engine

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestUT_EN_06_01_Classify_ENOSPC_OnData_BumpsNoSpace tests the default ENOSPC classification for an ordinary write
func TestUT_EN_06_01_Classify_ENOSPC_OnData_BumpsNoSpace(t *testing.T) {
	var c AtomicCounters

	ok := classify(syscall.ENOSPC, false, spaceData, false, &c)

	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Snapshot(0).NoSpace)
}

// TestUT_EN_06_02_Classify_ENOSPC_OnDir_BumpsNoDirSpace tests that a directory-entry allocation failure maps to NoDirSpace, not NoSpace
func TestUT_EN_06_02_Classify_ENOSPC_OnDir_BumpsNoDirSpace(t *testing.T) {
	var c AtomicCounters

	ok := classify(syscall.ENOSPC, false, spaceDir, false, &c)

	assert.True(t, ok)
	snap := c.Snapshot(0)
	assert.Equal(t, uint64(1), snap.NoDirSpace)
	assert.Equal(t, uint64(0), snap.NoSpace)
}

// TestUT_EN_06_03_Classify_ENOSPC_OnInode_BumpsNoInodeSpace tests that an inode allocation failure maps to NoInodeSpace
func TestUT_EN_06_03_Classify_ENOSPC_OnInode_BumpsNoInodeSpace(t *testing.T) {
	var c AtomicCounters

	ok := classify(syscall.ENOSPC, false, spaceInode, false, &c)

	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Snapshot(0).NoInodeSpace)
}

// TestUT_EN_06_04_Classify_ENOENT_OnFile_BumpsFileNotFound tests file-vs-directory not-found discrimination
func TestUT_EN_06_04_Classify_ENOENT_OnFile_BumpsFileNotFound(t *testing.T) {
	var c AtomicCounters

	ok := classify(syscall.ENOENT, false, spaceData, false, &c)

	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Snapshot(0).FileNotFound)
}

// TestUT_EN_06_05_Classify_ENOENT_OnDir_BumpsDirNotFound tests the directory variant of not-found classification
func TestUT_EN_06_05_Classify_ENOENT_OnDir_BumpsDirNotFound(t *testing.T) {
	var c AtomicCounters

	ok := classify(syscall.ENOENT, true, spaceData, false, &c)

	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Snapshot(0).DirNotFound)
}

// TestUT_EN_06_06_Classify_ESTALE_WithToleranceOn_BumpsStaleFH tests that ESTALE is absorbed when tolerate_stale_file_handles is enabled
func TestUT_EN_06_06_Classify_ESTALE_WithToleranceOn_BumpsStaleFH(t *testing.T) {
	var c AtomicCounters

	ok := classify(syscall.ESTALE, false, spaceData, true, &c)

	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Snapshot(0).StaleFH)
}

// TestUT_EN_06_07_Classify_ESTALE_WithToleranceOff_IsUnrecognized tests that ESTALE falls through to total_errors when tolerance is disabled
func TestUT_EN_06_07_Classify_ESTALE_WithToleranceOff_IsUnrecognized(t *testing.T) {
	var c AtomicCounters

	ok := classify(syscall.ESTALE, false, spaceData, false, &c)

	assert.False(t, ok)
	assert.Equal(t, uint64(0), c.Snapshot(0).StaleFH)
}

// TestUT_EN_06_08_Classify_NilError_ReturnsTrueWithoutCounting tests that a nil error is treated as success
func TestUT_EN_06_08_Classify_NilError_ReturnsTrueWithoutCounting(t *testing.T) {
	var c AtomicCounters

	ok := classify(nil, false, spaceData, false, &c)

	assert.True(t, ok)
	assert.Equal(t, Counters{}, c.Snapshot(0))
}

// TestUT_EN_06_09_Classify_WrappedNotExistError_BumpsFileNotFound tests that a not-exist error wrapped in os.Open's *PathError is unwrapped to its ENOENT errno and counted as file_not_found
func TestUT_EN_06_09_Classify_WrappedNotExistError_BumpsFileNotFound(t *testing.T) {
	var c AtomicCounters
	_, rawErr := os.Open("/nonexistent/path/that/should/not/exist")

	ok := classify(rawErr, false, spaceData, false, &c)

	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Snapshot(0).FileNotFound)
}

// TestUT_EN_06_10_Classify_UnrecognizedError_ReturnsFalse tests that a plain, non-errno error is reported as unrecognized so callers bump total_errors
func TestUT_EN_06_10_Classify_UnrecognizedError_ReturnsFalse(t *testing.T) {
	var c AtomicCounters

	ok := classify(errors.New("something unrelated"), false, spaceData, false, &c)

	assert.False(t, ok)
}
