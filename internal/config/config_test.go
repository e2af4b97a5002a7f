package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTop(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "workload-top")
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}

// TestUT_CFG_01_01_ResolveRecordSize_WithMaxRecordSizeKB_WinsOverRecordSize tests the legacy precedence: max_record_size_kb beats record_size when both are set
func TestUT_CFG_01_01_ResolveRecordSize_WithMaxRecordSizeKB_WinsOverRecordSize(t *testing.T) {
	p := &Parameters{RecordSizeRaw: "8k", MaxRecordSizeKB: 64}

	require.NoError(t, resolveRecordSize(p))

	assert.Equal(t, SizeRange{Lo: 1, Hi: 64 * 1024}, p.RecordSize)
}

// TestUT_CFG_01_02_ResolveRecordSize_WithOnlyRecordSizeRaw_ParsesRange tests a plain "lo:hi" record_size string
func TestUT_CFG_01_02_ResolveRecordSize_WithOnlyRecordSizeRaw_ParsesRange(t *testing.T) {
	p := &Parameters{RecordSizeRaw: "4k:64k"}

	require.NoError(t, resolveRecordSize(p))

	assert.Equal(t, SizeRange{Lo: 4096, Hi: 65536}, p.RecordSize)
}

// TestUT_CFG_01_03_ResolveRecordSize_WithScalarSize_CollapsesToEqualBounds tests that a bare size with no range collapses to Lo==Hi
func TestUT_CFG_01_03_ResolveRecordSize_WithScalarSize_CollapsesToEqualBounds(t *testing.T) {
	p := &Parameters{RecordSizeRaw: "4096"}

	require.NoError(t, resolveRecordSize(p))

	assert.True(t, p.RecordSize.Scalar())
	assert.Equal(t, int64(4096), p.RecordSize.Lo)
}

// TestUT_CFG_01_04_ResolveRecordSize_WithNeitherSet_LeavesRecordSizeUntouched tests that resolveRecordSize is a no-op when neither field is configured
func TestUT_CFG_01_04_ResolveRecordSize_WithNeitherSet_LeavesRecordSizeUntouched(t *testing.T) {
	p := &Parameters{RecordSize: SizeRange{Lo: 1, Hi: 2}}

	require.NoError(t, resolveRecordSize(p))

	assert.Equal(t, SizeRange{Lo: 1, Hi: 2}, p.RecordSize)
}

// TestUT_CFG_02_01_Validate_WithFsyncAndFdatasyncOver100_ReturnsError tests the Open Question 2 resolution: the combined percentage is rejected, not silently tolerated
func TestUT_CFG_02_01_Validate_WithFsyncAndFdatasyncOver100_ReturnsError(t *testing.T) {
	p := Defaults()
	p.Top = validTop(t)
	p.FsyncPct = 60
	p.FdatasyncPct = 50

	err := Validate(&p)

	assert.Error(t, err)
}

// TestUT_CFG_02_02_Validate_WithFsyncAndFdatasyncAt100_Succeeds tests that exactly 100 is the accepted boundary
func TestUT_CFG_02_02_Validate_WithFsyncAndFdatasyncAt100_Succeeds(t *testing.T) {
	p := Defaults()
	p.Top = validTop(t)
	p.FsyncPct = 60
	p.FdatasyncPct = 40

	assert.NoError(t, Validate(&p))
}

// TestUT_CFG_02_03_Validate_WithShortTop_ReturnsError tests the minimum top-directory length guard against accidentally pointing at a system path
func TestUT_CFG_02_03_Validate_WithShortTop_ReturnsError(t *testing.T) {
	p := Defaults()
	p.Top = "/tmp"

	assert.Error(t, Validate(&p))
}

// TestUT_CFG_02_04_Validate_WithNonexistentTop_ReturnsError tests that Top must already exist on disk
func TestUT_CFG_02_04_Validate_WithNonexistentTop_ReturnsError(t *testing.T) {
	p := Defaults()
	p.Top = filepath.Join(t.TempDir(), "does-not-exist-dir")

	assert.Error(t, Validate(&p))
}

// TestUT_CFG_02_05_Validate_WithDirectIO_AlignsRecordSizeTo4KiB tests the directIO boundary case: a sub-4KiB record size is coerced up to the alignment, not rejected
func TestUT_CFG_02_05_Validate_WithDirectIO_AlignsRecordSizeTo4KiB(t *testing.T) {
	p := Defaults()
	p.Top = validTop(t)
	p.DirectIO = true
	p.RecordSize = SizeRange{Lo: 512, Hi: 2048}

	require.NoError(t, Validate(&p))

	assert.Equal(t, SizeRange{Lo: 4096, Hi: 4096}, p.RecordSize)
}

// TestUT_CFG_02_06_Validate_WithDirectIOAndRawDevice_ReturnsError tests that the two bypass modes are mutually exclusive
func TestUT_CFG_02_06_Validate_WithDirectIOAndRawDevice_ReturnsError(t *testing.T) {
	p := Defaults()
	p.Top = validTop(t)
	p.DirectIO = true
	p.RawDevice = "/dev/sdb1"

	assert.Error(t, Validate(&p))
}

// TestUT_CFG_02_07_Validate_WithZeroThreads_ReturnsError tests the threads >= 1 invariant
func TestUT_CFG_02_07_Validate_WithZeroThreads_ReturnsError(t *testing.T) {
	p := Defaults()
	p.Top = validTop(t)
	p.Threads = 0

	assert.Error(t, Validate(&p))
}

// TestUT_CFG_02_08_Validate_WithDefaults_Succeeds tests that the out-of-the-box defaults (plus a valid Top) pass validation
func TestUT_CFG_02_08_Validate_WithDefaults_Succeeds(t *testing.T) {
	p := Defaults()
	p.Top = validTop(t)

	assert.NoError(t, Validate(&p))
}

// TestUT_CFG_03_01_Load_WithEmptyPath_ValidatesBareDefaults tests that Load("") runs Defaults() through the same finalize/Validate path as a file load, and that bare defaults fail validation since Top is unset
func TestUT_CFG_03_01_Load_WithEmptyPath_ValidatesBareDefaults(t *testing.T) {
	p, err := Load("")

	require.Error(t, err)
	assert.Nil(t, p)
}

// TestUT_CFG_03_03_Load_WithMissingFile_FallsBackToDefaults tests that a configured-but-absent parameter file path behaves like Load(""), not like a read error
func TestUT_CFG_03_03_Load_WithMissingFile_FallsBackToDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-file.yaml")

	_, err := Load(missing)

	// Still fails Validate (no Top set), but via the same "file not found
	// treated as defaults" branch Load documents, not a read error.
	require.Error(t, err)
}

// TestUT_CFG_03_02_Load_WithValidYAMLFile_MergesOverDefaults tests that a minimal YAML file overrides only the fields it sets, keeping the rest at their defaults
func TestUT_CFG_03_02_Load_WithValidYAMLFile_MergesOverDefaults(t *testing.T) {
	top := validTop(t)
	path := filepath.Join(t.TempDir(), "params.yaml")
	content := "top: " + top + "\nthreads: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 4, p.Threads)
	assert.Equal(t, Defaults().MaxFiles, p.MaxFiles)
}
