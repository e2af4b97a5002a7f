// Package coordinator implements the multi-host rendezvous protocol: the
// per-host worker-group runner, the shared-directory starting-gate
// handshake, the file-drop launcher that substitutes for SSH on a remote
// host, and the final cluster result aggregation. This is the "worker
// loop + coordinator" component of the system design (spec §4.4-4.5),
// layered on top of the engine package's per-worker mechanics.
package coordinator

import (
	"time"

	"github.com/auriora/fsdrive/internal/engine"
)

// ThreadResult pairs a thread id with the counters it produced. The nested
// in-thread maps of the final result document are built from
// engine.HostResult.Threads, not from this type.
type ThreadResult struct {
	Thread   int
	Counters engine.Counters
}

// ClusterResult is the final result document described in spec §6: a
// cluster-wide counter total plus, when more than one host ran, a nested
// per-host breakdown each carrying its own per-thread breakdown. With a
// single host the in-host layer collapses into in-thread at the top, per
// the spec's explicit rule.
type ClusterResult struct {
	Parameters map[string]interface{} `json:"parameters"`
	Results    ResultBody              `json:"results"`
}

// ResultBody is the "results" object of ClusterResult. InHost is omitted
// (nil) for a single-host run; InThread is populated either way — at the
// cluster level when collapsed, or per-host inside InHost otherwise.
type ResultBody struct {
	Elapsed      float64                 `json:"elapsed"`
	Threads      int                     `json:"threads"`
	Files        uint64                  `json:"files"`
	IOs          uint64                  `json:"ios"`
	MiB          float64                 `json:"MiB"`
	FilesPerSec  float64                 `json:"files-per-sec"`
	IOPS         float64                 `json:"IOPS"`
	MiBPerSec    float64                 `json:"MiB-per-sec"`
	FSOpCounters engine.Counters         `json:"fsop-counters"`
	StartTime    int64                   `json:"start-time"`
	Date         string                  `json:"date"`
	InHost       map[string]*HostSummary `json:"in-host,omitempty"`
	InThread     map[string]engine.Counters `json:"in-thread,omitempty"`
}

// HostSummary is one host's nested summary inside a multi-host
// ResultBody.InHost map.
type HostSummary struct {
	Hostname     string                     `json:"hostname"`
	Files        uint64                     `json:"files"`
	IOs          uint64                     `json:"ios"`
	MiB          float64                    `json:"MiB"`
	FSOpCounters engine.Counters            `json:"fsop-counters"`
	InThread     map[string]engine.Counters `json:"in-thread"`
}

// runStart holds a run's start instant. Nothing in this package sets or
// reads it: ResultBody.Elapsed and the derived rates are computed from the
// merged counters' elapsed time.
type runStart struct {
	at time.Time
}
