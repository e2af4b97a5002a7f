package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	"golang.org/x/sys/unix"

	"github.com/auriora/fsdrive/internal/config"
	"github.com/auriora/fsdrive/internal/errors"
	"github.com/auriora/fsdrive/internal/logging"
)

// statvfsRefreshEvery is how many iterations elapse between housekeeping
// passes: checking the pause/stop sentinels and re-polling the filesystem's
// fullness via statvfs. The spec's worker-loop design note gives this as a
// fixed constant rather than a time-based tick so its cost is predictable
// regardless of op latency.
const statvfsRefreshEvery = 1000

// RunID identifies one local invocation of the barrier: the local
// thread_ready sentinel lives in a run-scoped subdirectory of the host's
// temp dir so two runs launched in quick succession on the same host never
// collide on a stale sentinel from a previous run.
var RunID = xid.New().String()

// Worker drives one thread's entire lifecycle: touching its ready sentinel,
// waiting at the starting gate, running the main sample/dispatch/count loop
// until duration elapses or a stop sentinel appears, and publishing its
// final snapshot.
type Worker struct {
	Host   string
	Thread int

	Params   *config.Parameters
	Events   *EventGenerator
	Paths    *PathGenerator
	Counters *AtomicCounters

	Log logging.Logger

	// RespWriter, if non-nil, receives one line per operation:
	// "<opname>,<start_offset_s>,<rsp_time_s>\n" (response_times).
	RespWriter *ResponseTimeCSV
}

// NewWorker wires up a Worker's FSOp and the sentinel paths it needs,
// deriving a distinct RNG seed per (host, thread) pair so two threads never
// walk an identical sample sequence.
func NewWorker(p *config.Parameters, events *EventGenerator, host string, thread int) (*Worker, *FSOp, error) {
	paths := NewPathGenerator(p.MaxFiles, p.Levels, p.DirsPerLevel)
	counters := &AtomicCounters{}
	seed := seedFor(host, thread)

	checkpointPath := checkpointName(p.NetworkShared(), host, thread)
	op, err := NewFSOp(p, paths, counters, logging.DefaultLogger, host, thread, seed, checkpointPath)
	if err != nil {
		return nil, nil, err
	}

	w := &Worker{
		Host:     host,
		Thread:   thread,
		Params:   p,
		Events:   events,
		Paths:    paths,
		Counters: counters,
		Log:      logging.DefaultLogger,
	}

	if p.ResponseTimes {
		rtPath := filepath.Join(p.NetworkShared(), fmt.Sprintf("host-%s_thrd-%d_rsptimes.csv", host, thread))
		w.RespWriter, err = NewResponseTimeCSV(rtPath, time.Now())
		if err != nil {
			return nil, nil, err
		}
	}

	return w, op, nil
}

// seedFor combines the host name and thread id into a deterministic but
// distinct RNG seed, FNV-1a style, avoiding a dependency on time.Now (which
// would make every thread within a second collide if threads start in a
// tight loop).
func seedFor(host string, thread int) int64 {
	var h uint64 = 1469598103934665603
	for _, b := range []byte(host) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	h ^= uint64(thread)
	h *= 1099511628211
	return int64(h)
}

// readySentinel lives in a local temp directory, not the network-shared
// directory: the per-host coordinator that reads it runs on the same host
// as the worker, so there is no need for it to be network-visible (spec
// §4.4's barrier step).
func (w *Worker) readySentinel() string {
	return ThreadReadyPath(w.Thread)
}

// ThreadReadyPath returns the local sentinel path a given thread touches
// once it is ready to run, so the host-level coordinator (package
// coordinator) can poll for it without depending on a Worker value.
func ThreadReadyPath(thread int) string {
	return filepath.Join(os.TempDir(), "fsdrive-"+RunID, fmt.Sprintf("thread_ready.%d.tmp", thread))
}

func (w *Worker) startingGun() string {
	return filepath.Join(w.Params.NetworkShared(), "starting-gun.tmp")
}

func (w *Worker) pauseSentinel() string {
	return filepath.Join(w.Params.NetworkShared(), "pause.tmp")
}

func (w *Worker) stopSentinel() string {
	return filepath.Join(w.Params.NetworkShared(), "stop-file.tmp")
}

func (w *Worker) abortSentinel() string {
	return filepath.Join(w.Params.NetworkShared(), "abort.tmp")
}

func (w *Worker) checkeredFlag() string {
	return filepath.Join(w.Params.NetworkShared(), "checkered_flag.tmp")
}

// verbositySentinel is an optional control file an operator can drop into
// the network-shared directory, containing a decimal or 0x-hex bitmask, to
// change a running invocation's debug tracing without a restart.
func (w *Worker) verbositySentinel() string {
	return filepath.Join(w.Params.NetworkShared(), "verbosity.tmp")
}

// refreshVerbosity re-reads the verbosity sentinel, if present, and applies
// it to op. A missing or unparsable sentinel leaves the last known value in
// place rather than falling back to the configured default, since an
// operator clearing the file mid-run should not be read as "go quiet."
func (w *Worker) refreshVerbosity(op *FSOp) {
	data, err := os.ReadFile(w.verbositySentinel())
	if err != nil {
		return
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 0, 64)
	if err != nil {
		w.Log.Debug().Str(logging.FieldPath, w.verbositySentinel()).Msg("ignoring unparsable verbosity sentinel")
		return
	}
	op.SetVerbosity(v)
}

func (w *Worker) snapshotPath() string {
	return filepath.Join(w.Params.NetworkShared(), fmt.Sprintf("counters.%d.%s.json", w.Thread, w.Host))
}

// Run is the full lifecycle: announce readiness, wait for the starting gun,
// run the main loop, and publish the checkered flag with a final snapshot.
// It returns the final Counters so the caller (the per-host runner) can fold
// it into the host-level result without re-reading the snapshot file.
func (w *Worker) Run(op *FSOp, gate WorkerGate, maxWait time.Duration) (Counters, error) {
	if err := touch(w.readySentinel()); err != nil {
		return Counters{}, errors.Wrap(err, "announcing thread readiness")
	}

	if err := gate.Wait(w.startingGun(), maxWait); err != nil {
		return Counters{}, err
	}

	var snap *SnapshotWriter
	if w.Params.ReportInterval > 0 {
		var err error
		snap, err = NewSnapshotWriter(w.snapshotPath())
		if err != nil {
			return Counters{}, err
		}
	}

	start := time.Now()
	deadline := start.Add(time.Duration(w.Params.DurationSeconds) * time.Second)
	full := w.isFull()
	iter := 0
	lastReport := start
	aborted := false

	for {
		if w.Params.DurationSeconds > 0 && time.Now().After(deadline) {
			break
		}

		iter++
		if iter%statvfsRefreshEvery == 0 {
			w.refreshVerbosity(op)
			if exists(w.stopSentinel()) {
				break
			}
			if exists(w.abortSentinel()) {
				aborted = true
				break
			}
			for exists(w.pauseSentinel()) {
				time.Sleep(5 * time.Second)
			}
			full = w.isFull()
		}

		sampled := w.Events.Sample(op.rng)
		if op.verbosity.Load()&VerbosityEvent != 0 {
			w.Log.Debug().Str(logging.FieldOp, sampled.String()).Int(logging.FieldThread, w.Thread).Msg("dispatched event")
		}
		opStart := time.Now()
		if err := op.Execute(sampled, full); err != nil {
			var fault *errors.Fault
			if errors.As(err, &fault) {
				if snap != nil {
					snap.Close()
				}
				return op.counters.Snapshot(time.Since(start).Seconds()), err
			}
			w.Log.Warn().Err(err).Str(logging.FieldOp, sampled.String()).Int(logging.FieldThread, w.Thread).
				Dur(logging.FieldDuration, time.Since(opStart)).Msg("operation returned an unswallowed error")
		}
		if w.RespWriter != nil {
			w.RespWriter.Record(sampled, opStart, time.Since(opStart))
		}

		if snap != nil {
			if since := time.Since(lastReport); since >= time.Duration(w.Params.ReportInterval)*time.Second {
				lastReport = time.Now()
				if err := snap.Append(op.counters.Snapshot(time.Since(start).Seconds())); err != nil {
					w.Log.Debug().Err(err).Int(logging.FieldIteration, iter).Msg("failed to append periodic snapshot")
				}
			}
		}

		if w.Params.PauseBetweenOpsUS > 0 {
			time.Sleep(time.Duration(w.Params.PauseBetweenOpsUS) * time.Microsecond)
		}
	}

	final := op.counters.Snapshot(time.Since(start).Seconds())
	if w.RespWriter != nil {
		w.RespWriter.Close()
	}
	if snap != nil {
		if err := snap.Close(); err != nil {
			w.Log.Debug().Err(err).Msg("failed to close snapshot file")
		}
	}
	if err := appendCheckeredFlag(w.checkeredFlag(), w.Host, w.Thread); err != nil {
		return final, err
	}
	if aborted {
		return final, errors.NewAbortFault("aborted during the main loop")
	}
	return final, nil
}

// isFull polls statvfs on the top directory and compares used capacity
// against fullness_limit_percent. A statvfs failure is treated as "not
// full" so a transient stat error never permanently wedges create/append.
func (w *Worker) isFull() bool {
	var st unix.Statfs_t
	if err := unix.Statfs(w.Params.Top, &st); err != nil {
		return false
	}
	if st.Blocks == 0 {
		return false
	}
	usedPct := 100 - int((st.Bfree*100)/st.Blocks)
	return usedPct >= w.Params.FullnessLimitPercent
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
