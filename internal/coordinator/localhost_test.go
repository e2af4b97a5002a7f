package coordinator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/fsdrive/internal/config"
	"github.com/auriora/fsdrive/internal/engine"
)

func writeWeightTable(t *testing.T, dir string, line string) string {
	t.Helper()
	path := filepath.Join(dir, "weights.csv")
	require.NoError(t, os.WriteFile(path, []byte(line), 0644))
	return path
}

// TestUT_CO_05_01_RunLocalHost_WithStartingGunPresent_CompletesAndMarksHostReady
// tests the per-host happy path end to end: workers run to completion, the
// host_ready sentinel is published, and the merged counters reflect the
// single nonzero-weight operation every thread sampled.
func TestUT_CO_05_01_RunLocalHost_WithStartingGunPresent_CompletesAndMarksHostReady(t *testing.T) {
	top := t.TempDir()
	p := config.Defaults()
	p.Top = top
	p.Threads = 2
	p.MaxFiles = 10
	p.Levels = 0
	p.DirsPerLevel = 0
	p.DurationSeconds = 1
	p.ReportInterval = 0
	p.RecordSize = config.SizeRange{Lo: 128, Hi: 128}
	p.WorkloadTable = writeWeightTable(t, top, "create,1\n")
	require.NoError(t, os.MkdirAll(p.NetworkShared(), 0755))
	require.NoError(t, FireStartingGun(p.NetworkShared()))

	result, err := RunLocalHost(&p, "h", 2*time.Second)

	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "h", result.Host)
	assert.Len(t, result.Threads, 2)
	assert.True(t, exists(hostReadyPath(p.NetworkShared(), "h")))
	assert.GreaterOrEqual(t, result.Counters.Created, uint64(1))
}

// TestUT_CO_05_02_RunLocalHost_WithBadWeightTable_ReturnsErrorWithoutStartingWorkers
// tests that a config fault from the weight-table parser surfaces before any
// worker goroutine is spawned.
func TestUT_CO_05_02_RunLocalHost_WithBadWeightTable_ReturnsErrorWithoutStartingWorkers(t *testing.T) {
	top := t.TempDir()
	p := config.Defaults()
	p.Top = top
	p.Threads = 1
	p.WorkloadTable = filepath.Join(top, "missing.csv")
	require.NoError(t, os.MkdirAll(p.NetworkShared(), 0755))

	result, err := RunLocalHost(&p, "h", time.Second)

	require.Error(t, err)
	assert.Equal(t, engine.HostResult{}, result)
}

// TestUT_CO_05_03_WaitLocalThreadsReady_WithAllThreadsTouched_ReturnsNil tests
// the local-thread barrier poll's happy path. It explicitly (re)touches
// indices 0-2 itself, so it is unaffected by any sentinel another test in
// this package may have already left behind under the shared RunID temp
// directory.
func TestUT_CO_05_03_WaitLocalThreadsReady_WithAllThreadsTouched_ReturnsNil(t *testing.T) {
	for i := 0; i < 3; i++ {
		require.NoError(t, touch(engine.ThreadReadyPath(i)))
	}

	err := waitLocalThreadsReady(3, time.Second)

	assert.NoError(t, err)
}
