package coordinator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/fsdrive/internal/config"
	"github.com/auriora/fsdrive/internal/engine"
)

// TestUT_CO_04_01_Aggregate_SingleHost_CollapsesInHostIntoInThread tests the
// single-host result-shape rule: InHost stays nil and InThread is populated
// at the top level instead.
func TestUT_CO_04_01_Aggregate_SingleHost_CollapsesInHostIntoInThread(t *testing.T) {
	p := config.Defaults()
	p.Threads = 2
	d := &Driver{Params: &p}

	results := map[string]engine.HostResult{
		"a": {
			Host:     "a",
			Counters: engine.Counters{Created: 3, ElapsedTime: 2},
			Threads:  map[string]engine.Counters{"0": {Created: 2}, "1": {Created: 1}},
			OK:       true,
		},
	}

	cluster := d.aggregate(results, time.Now())

	assert.Nil(t, cluster.Results.InHost)
	assert.Equal(t, results["a"].Threads, cluster.Results.InThread)
	assert.Equal(t, uint64(3), cluster.Results.Files)
}

// TestUT_CO_04_02_Aggregate_MultiHost_PopulatesInHostSummaries tests that
// more than one host result produces a per-host InHost map instead of a
// collapsed top-level InThread.
func TestUT_CO_04_02_Aggregate_MultiHost_PopulatesInHostSummaries(t *testing.T) {
	p := config.Defaults()
	p.Threads = 1
	d := &Driver{Params: &p}

	results := map[string]engine.HostResult{
		"a": {Host: "a", Counters: engine.Counters{Created: 1}, Threads: map[string]engine.Counters{"0": {Created: 1}}},
		"b": {Host: "b", Counters: engine.Counters{Created: 2}, Threads: map[string]engine.Counters{"0": {Created: 2}}},
	}

	cluster := d.aggregate(results, time.Now())

	assert.Nil(t, cluster.Results.InThread)
	require.Len(t, cluster.Results.InHost, 2)
	assert.Equal(t, uint64(3), cluster.Results.Files)
	assert.Equal(t, "b", cluster.Results.InHost["b"].Hostname)
}

// TestUT_CO_04_03_Aggregate_WithZeroElapsed_OmitsDerivedRates tests that
// the rate fields stay at their zero value rather than dividing by zero
// when no host reports elapsed time.
func TestUT_CO_04_03_Aggregate_WithZeroElapsed_OmitsDerivedRates(t *testing.T) {
	p := config.Defaults()
	d := &Driver{Params: &p}

	cluster := d.aggregate(map[string]engine.HostResult{"a": {Host: "a"}}, time.Now())

	assert.Equal(t, 0.0, cluster.Results.FilesPerSec)
	assert.Equal(t, 0.0, cluster.Results.IOPS)
	assert.Equal(t, 0.0, cluster.Results.MiBPerSec)
}

// TestUT_CO_04_04_ExitCode_WithRunError_ReturnsOne tests that any non-nil
// Run error forces exit code 1 regardless of the result contents.
func TestUT_CO_04_04_ExitCode_WithRunError_ReturnsOne(t *testing.T) {
	assert.Equal(t, 1, ExitCode(&ClusterResult{}, assert.AnError))
}

// TestUT_CO_04_05_ExitCode_WithNilResult_ReturnsOne tests the defensive nil
// case (a driver that produced no result document at all).
func TestUT_CO_04_05_ExitCode_WithNilResult_ReturnsOne(t *testing.T) {
	assert.Equal(t, 1, ExitCode(nil, nil))
}

// TestUT_CO_04_06_ExitCode_WithTotalErrors_ReturnsOne tests that a clean
// Run with a nonzero total_errors counter still reports failure.
func TestUT_CO_04_06_ExitCode_WithTotalErrors_ReturnsOne(t *testing.T) {
	result := &ClusterResult{Results: ResultBody{FSOpCounters: engine.Counters{TotalErrors: 1}}}
	assert.Equal(t, 1, ExitCode(result, nil))
}

// TestUT_CO_04_07_ExitCode_WithCleanResult_ReturnsZero tests the success
// path: no run error and zero total errors.
func TestUT_CO_04_07_ExitCode_WithCleanResult_ReturnsZero(t *testing.T) {
	result := &ClusterResult{Results: ResultBody{FSOpCounters: engine.Counters{Created: 5}}}
	assert.Equal(t, 0, ExitCode(result, nil))
}

// TestUT_CO_04_08_WriteClusterResult_RoundTrips tests that the published
// JSON document can be read back with the same counter values.
func TestUT_CO_04_08_WriteClusterResult_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "result.json")
	result := &ClusterResult{
		Parameters: map[string]interface{}{"top": "/x"},
		Results:    ResultBody{FSOpCounters: engine.Counters{Created: 7}},
	}

	require.NoError(t, WriteClusterResult(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var readBack ClusterResult
	require.NoError(t, json.Unmarshal(data, &readBack))
	assert.Equal(t, uint64(7), readBack.Results.FSOpCounters.Created)
}

// TestUT_CO_04_09_ResultStore_SaveThenPersisted tests that a saved host
// result survives a round trip through the durable bbolt-backed store.
func TestUT_CO_04_09_ResultStore_SaveThenPersisted(t *testing.T) {
	shared := t.TempDir()
	store, err := openResultStore(shared)
	require.NoError(t, err)
	defer store.Close()

	result := engine.HostResult{Host: "a", Counters: engine.Counters{Created: 4}, OK: true}
	require.NoError(t, store.save("a", result))

	all, err := store.Persisted()
	require.NoError(t, err)
	require.Contains(t, all, "a")
	assert.Equal(t, uint64(4), all["a"].Counters.Created)
}

// TestUT_CO_04_10_HostList_WithEmptyHostSet_DefaultsToLocalhost tests the
// "empty host_set = local-only" rule.
func TestUT_CO_04_10_HostList_WithEmptyHostSet_DefaultsToLocalhost(t *testing.T) {
	p := config.Defaults()
	d := &Driver{Params: &p}

	assert.Equal(t, []string{"localhost"}, d.hostList())
}

