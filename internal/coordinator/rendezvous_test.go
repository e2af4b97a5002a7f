package coordinator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUT_CO_01_01_PerHostTimeout_WithSmallHostCount_ReturnsFloor tests the "at least 10 seconds" floor of the timeout formula
func TestUT_CO_01_01_PerHostTimeout_WithSmallHostCount_ReturnsFloor(t *testing.T) {
	assert.Equal(t, 10*time.Second, PerHostTimeout(1))
	assert.Equal(t, 10*time.Second, PerHostTimeout(3))
}

// TestUT_CO_01_02_PerHostTimeout_WithLargeHostCount_GrowsWithFleetSize tests that the timeout grows once 5 + hostCount/3 exceeds the floor
func TestUT_CO_01_02_PerHostTimeout_WithLargeHostCount_GrowsWithFleetSize(t *testing.T) {
	assert.Equal(t, 20*time.Second, PerHostTimeout(45))
}

// TestUT_CO_02_01_MarkHostReady_ThenWaitAllHostsReady_Succeeds tests the happy-path barrier: every host marks ready before the deadline
func TestUT_CO_02_01_MarkHostReady_ThenWaitAllHostsReady_Succeeds(t *testing.T) {
	shared := t.TempDir()
	hosts := []string{"a", "b", "c"}

	for _, h := range hosts {
		require.NoError(t, MarkHostReady(shared, h))
	}

	err := WaitAllHostsReady(shared, hosts, 2*time.Second)

	assert.NoError(t, err)
}

// TestUT_CO_02_02_WaitAllHostsReady_WithMissingHost_TimesOutAndWritesAbort tests that a host that never reports ready causes a RendezvousFault and publishes abort.tmp
func TestUT_CO_02_02_WaitAllHostsReady_WithMissingHost_TimesOutAndWritesAbort(t *testing.T) {
	shared := t.TempDir()
	require.NoError(t, MarkHostReady(shared, "a"))

	err := WaitAllHostsReady(shared, []string{"a", "b"}, 100*time.Millisecond)

	assert.Error(t, err)
	_, statErr := os.Stat(abortPath(shared))
	assert.NoError(t, statErr, "abort.tmp should be published on rendezvous timeout")
}

// TestUT_CO_03_01_FireStartingGun_PublishesAtomically tests that no ".notyet" temp file survives a successful publish
func TestUT_CO_03_01_FireStartingGun_PublishesAtomically(t *testing.T) {
	shared := t.TempDir()

	require.NoError(t, FireStartingGun(shared))

	_, err := os.Stat(startingGunPath(shared))
	assert.NoError(t, err)
	_, err = os.Stat(startingGunPath(shared) + ".notyet")
	assert.True(t, os.IsNotExist(err))
}

// TestUT_CO_03_02_Abort_TouchesAbortSentinel tests that Abort creates the impolite-stop file
func TestUT_CO_03_02_Abort_TouchesAbortSentinel(t *testing.T) {
	shared := t.TempDir()

	require.NoError(t, Abort(shared))

	assert.True(t, exists(abortPath(shared)))
}

// TestUT_CO_03_03_Stop_TouchesStopSentinel tests that Stop creates the polite-stop file
func TestUT_CO_03_03_Stop_TouchesStopSentinel(t *testing.T) {
	shared := t.TempDir()

	require.NoError(t, Stop(shared))

	assert.True(t, exists(stopPath(shared)))
}

// TestUT_CO_03_04_Exists_WithAbsentFile_ReturnsFalse tests the exists helper's negative case
func TestUT_CO_03_04_Exists_WithAbsentFile_ReturnsFalse(t *testing.T) {
	assert.False(t, exists(filepath.Join(t.TempDir(), "nope")))
}
