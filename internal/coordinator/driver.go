package coordinator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/auriora/fsdrive/internal/config"
	"github.com/auriora/fsdrive/internal/engine"
	"github.com/auriora/fsdrive/internal/errors"
	"github.com/auriora/fsdrive/internal/logging"
)

var resultsBucket = []byte("host_results")

// resultStore is a small durable record of host results as they arrive, so
// an operator inspecting a driver that crashed mid-aggregation can see what
// it had already collected. Run writes to it but never reads it back on
// a later start. It plays the role OneMount's
// bbolt-backed metadata store plays for cached file state, here repurposed
// to the driver's own aggregation bookkeeping (see DESIGN.md).
type resultStore struct {
	db *bbolt.DB
}

func openResultStore(networkShared string) (*resultStore, error) {
	path := filepath.Join(networkShared, "driver-state.db")
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening driver state store")
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing driver state store")
	}
	return &resultStore{db: db}, nil
}

func (s *resultStore) save(host string, result engine.HostResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "marshaling host result for durable store")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(resultsBucket).Put([]byte(host), data)
	})
}

// Persisted returns every host result already recorded by a previous (or
// this) run, keyed by host name — useful for an operator inspecting a
// driver that crashed mid-aggregation.
func (s *resultStore) Persisted() (map[string]engine.HostResult, error) {
	out := make(map[string]engine.HostResult)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(resultsBucket).ForEach(func(k, v []byte) error {
			var r engine.HostResult
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			out[string(k)] = r
			return nil
		})
	})
	return out, err
}

func (s *resultStore) Close() error { return s.db.Close() }

// Driver runs the multi-host coordination protocol end to end: it starts
// SelfHost's workers in-process, dispatches every other host in
// Params.HostSet via the file-drop launcher, waits for the cross-host
// rendezvous, fires the starting gun, and aggregates every host's result
// into a ClusterResult (spec §4.5).
type Driver struct {
	Params     *config.Parameters
	SelfHost   string // which entry of Params.HostSet (if any) this process runs locally
	BinaryPath string // argv[0] used to dispatch a remote host via the launcher
	Log        logging.Logger
}

type hostOutcome struct {
	host   string
	result engine.HostResult
	err    error
}

// hostList returns the configured host set, defaulting to a single
// synthetic "localhost" entry when empty (spec: "empty = local-only").
func (d *Driver) hostList() []string {
	if len(d.Params.HostSet) == 0 {
		return []string{"localhost"}
	}
	return d.Params.HostSet
}

// Run executes the full protocol and returns the aggregated cluster
// result. A rendezvous timeout or operator abort still returns a result
// built from whatever host outcomes did arrive, with a non-nil error —
// spec §7's "driver still produces a results JSON with partial counters".
func (d *Driver) Run() (*ClusterResult, error) {
	hosts := d.hostList()
	networkShared := d.Params.NetworkShared()
	if err := os.MkdirAll(networkShared, 0755); err != nil {
		return nil, errors.Wrap(err, "creating network-shared directory")
	}

	store, err := openResultStore(networkShared)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if len(hosts) > 1 {
		if err := d.Params.Write(filepath.Join(networkShared, "params.yaml")); err != nil {
			return nil, errors.Wrap(err, "publishing parameters for remote hosts")
		}
	}

	selfHost := d.SelfHost
	if selfHost == "" && len(hosts) == 1 {
		selfHost = hosts[0]
	}

	maxWait := PerHostTimeout(len(hosts))
	outcomes := make(chan hostOutcome, len(hosts))

	for _, h := range hosts {
		go func(host string) {
			var result engine.HostResult
			var runErr error
			if host == selfHost {
				result, runErr = RunLocalHost(d.Params, host, maxWait)
			} else {
				result, runErr = DispatchRemote(networkShared, host, d.remoteArgv(host), maxWait+10*time.Second)
			}
			if runErr == nil {
				if err := store.save(host, result); err != nil {
					d.Log.Warn().Err(err).Str(logging.FieldHost, host).Msg("failed to persist host result")
				}
			}
			outcomes <- hostOutcome{host: host, result: result, err: runErr}
		}(h)
	}

	rendezvousErr := WaitAllHostsReady(networkShared, hosts, maxWait)
	if rendezvousErr == nil {
		rendezvousErr = FireStartingGun(networkShared)
	}

	results := make(map[string]engine.HostResult, len(hosts))
	var firstErr error
	for i := 0; i < len(hosts); i++ {
		o := <-outcomes
		results[o.host] = o.result
		if o.err != nil && firstErr == nil {
			firstErr = o.err
		}
		if o.err == nil && !o.result.OK && firstErr == nil {
			firstErr = errors.New("host " + o.host + " reported a failed worker")
		}
	}

	cluster := d.aggregate(results, time.Now())
	if rendezvousErr != nil {
		return cluster, rendezvousErr
	}
	return cluster, firstErr
}

// remoteArgv builds the command line the launcher daemon on host should
// exec: this binary, told which host identity to assume and where to find
// the parameters the driver already published.
func (d *Driver) remoteArgv(host string) []string {
	return []string{
		d.BinaryPath,
		"--config", filepath.Join(d.Params.NetworkShared(), "params.yaml"),
		"--as-host", host,
	}
}

// aggregate folds every host's result into the final ClusterResult,
// collapsing the in-host layer into in-thread when there's only one host
// (spec §6's final result JSON rule).
func (d *Driver) aggregate(results map[string]engine.HostResult, now time.Time) *ClusterResult {
	var total engine.Counters
	var totalIOs, totalFiles uint64
	var totalMiB float64

	for _, r := range results {
		total = engine.Merge(total, r.Counters)
	}
	totalIOs = total.TotalIOs()
	totalFiles = total.Created + total.Deleted
	totalMiB = float64(total.TotalBytes()) / (1024 * 1024)

	body := ResultBody{
		Elapsed:      total.ElapsedTime,
		Threads:      d.Params.Threads * len(results),
		Files:        totalFiles,
		IOs:          totalIOs,
		MiB:          totalMiB,
		FSOpCounters: total,
		StartTime:    now.Unix(),
		Date:         now.UTC().Format(time.RFC3339),
	}
	if body.Elapsed > 0 {
		body.FilesPerSec = float64(totalFiles) / body.Elapsed
		body.IOPS = float64(totalIOs) / body.Elapsed
		body.MiBPerSec = totalMiB / body.Elapsed
	}

	if len(results) <= 1 {
		for _, r := range results {
			body.InThread = r.Threads
		}
	} else {
		body.InHost = make(map[string]*HostSummary, len(results))
		for host, r := range results {
			body.InHost[host] = &HostSummary{
				Hostname:     r.Host,
				Files:        r.Counters.Created + r.Counters.Deleted,
				IOs:          r.Counters.TotalIOs(),
				MiB:          float64(r.Counters.TotalBytes()) / (1024 * 1024),
				FSOpCounters: r.Counters,
				InThread:     r.Threads,
			}
		}
	}

	return &ClusterResult{
		Parameters: paramsToMap(d.Params),
		Results:    body,
	}
}

func paramsToMap(p *config.Parameters) map[string]interface{} {
	data, err := json.Marshal(p)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	_ = json.Unmarshal(data, &m)
	return m
}

// WriteClusterResult serializes the final result to path.
func WriteClusterResult(path string, result *ClusterResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling cluster result")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "writing cluster result")
}

// ExitCode maps a Driver.Run outcome to the spec's exit-code contract: 0
// when every host's workers finished OK, 1 for a configuration error,
// abort, or any worker reporting NOTOK.
func ExitCode(result *ClusterResult, runErr error) int {
	if runErr != nil {
		return 1
	}
	if result == nil {
		return 1
	}
	if result.Results.FSOpCounters.TotalErrors > 0 {
		return 1
	}
	return 0
}
