package coordinator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/fsdrive/internal/engine"
	"github.com/auriora/fsdrive/internal/logging"
)

// TestUT_CO_06_01_DispatchRemote_PublishesLaunchFileAndWaitsForResult tests
// the file-drop half of the remote-host protocol: a launch file appears for
// the target host, and once its result file shows up DispatchRemote returns
// the parsed HostResult instead of timing out.
func TestUT_CO_06_01_DispatchRemote_PublishesLaunchFileAndWaitsForResult(t *testing.T) {
	shared := t.TempDir()
	want := engine.HostResult{Host: "remote1", Counters: engine.Counters{Created: 9}, OK: true}

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = engine.WriteHostResult(ResultFilePath(shared, "remote1"), want)
	}()

	got, err := DispatchRemote(shared, "remote1", []string{"fsdrive", "--as-host", "remote1"}, 3*time.Second)

	require.NoError(t, err)
	assert.Equal(t, want.Host, got.Host)
	assert.Equal(t, want.Counters.Created, got.Counters.Created)

	data, readErr := os.ReadFile(launchFilePath(shared, "remote1"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "--as-host")
}

// TestUT_CO_06_02_DispatchRemote_WithNoResultPublished_TimesOutWithRendezvousFault
// tests that a host that never reports back is surfaced as a timeout rather
// than hanging forever.
func TestUT_CO_06_02_DispatchRemote_WithNoResultPublished_TimesOutWithRendezvousFault(t *testing.T) {
	shared := t.TempDir()

	_, err := DispatchRemote(shared, "ghost", []string{"fsdrive"}, 200*time.Millisecond)

	require.Error(t, err)
}

// TestUT_CO_06_03_RunLauncherDaemon_StopsOnAbortSentinel tests the daemon's
// shutdown path: once abort.tmp appears, the poll loop returns nil instead
// of continuing to poll for launch files.
func TestUT_CO_06_03_RunLauncherDaemon_StopsOnAbortSentinel(t *testing.T) {
	shared := t.TempDir()
	require.NoError(t, Abort(shared))

	done := make(chan error, 1)
	go func() { done <- RunLauncherDaemon(shared, "self", logging.DefaultLogger, 10*time.Millisecond) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunLauncherDaemon did not stop after abort.tmp was already present")
	}
}

// TestUT_CO_06_04_RunLauncherDaemon_ExecutesDroppedLaunchFile tests that a
// dropped launch command is picked up, removed, and actually executed by
// running a trivial command that writes a marker file.
func TestUT_CO_06_04_RunLauncherDaemon_ExecutesDroppedLaunchFile(t *testing.T) {
	shared := t.TempDir()
	marker := filepath.Join(shared, "ran.marker")

	done := make(chan error, 1)
	go func() { done <- RunLauncherDaemon(shared, "self", logging.DefaultLogger, 10*time.Millisecond) }()

	data, err := json.Marshal(LaunchCommand{Argv: []string{"touch", marker}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(launchFilePath(shared, "self"), data, 0644))

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, Abort(shared))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunLauncherDaemon did not stop after abort.tmp was written")
	}
}
