package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/auriora/fsdrive/internal/errors"
)

// ResponseTimeCSV writes one "<op>,<start_offset_s>,<rsp_time_s>" line per
// operation when response_times is enabled, mirroring the spec's per-op
// latency capture without holding every sample in memory.
type ResponseTimeCSV struct {
	w     *bufio.Writer
	f     *os.File
	start time.Time
}

// NewResponseTimeCSV opens (creating) the response-time file for appending.
func NewResponseTimeCSV(path string, start time.Time) (*ResponseTimeCSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "opening response-time file")
	}
	return &ResponseTimeCSV{w: bufio.NewWriter(f), f: f, start: start}, nil
}

// Record appends one response-time sample: the operation name, the offset
// (seconds since the worker's start_time) at which it began, and its
// response time in seconds.
func (r *ResponseTimeCSV) Record(op OpCode, opStart time.Time, d time.Duration) {
	fmt.Fprintf(r.w, "%s,%.6f,%.6f\n", op.String(), opStart.Sub(r.start).Seconds(), d.Seconds())
}

// Close flushes and closes the underlying file.
func (r *ResponseTimeCSV) Close() error {
	if err := r.w.Flush(); err != nil {
		r.f.Close()
		return errors.Wrap(err, "flushing response-time file")
	}
	return r.f.Close()
}

// checkeredFlagLineWidth is the fixed width of every line appended to the
// shared checkered_flag.tmp file, so an observer can count finished
// workers from the file's size alone (spec §4.4's termination step)
// without parsing it.
const checkeredFlagLineWidth = 64

// appendCheckeredFlag appends one fixed-width, newline-terminated line to
// the single shared checkered_flag.tmp file recording that (host, thread)
// finished. Multiple workers append concurrently; a write smaller than
// PIPE_BUF through O_APPEND is atomic on POSIX, so lines never interleave.
func appendCheckeredFlag(path, host string, thread int) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, "opening checkered flag")
	}
	defer f.Close()

	line := fmt.Sprintf("host=%s thread=%d", host, thread)
	if len(line) > checkeredFlagLineWidth-1 {
		line = line[:checkeredFlagLineWidth-1]
	}
	for len(line) < checkeredFlagLineWidth-1 {
		line += " "
	}
	line += "\n"
	_, err = f.WriteString(line)
	return errors.Wrap(err, "appending checkered flag")
}

// SnapshotWriter appends per-interval counter snapshots to a per-worker
// file as a single JSON array, per the spec's counter-snapshot format:
// "[" is written at open, each snapshot is comma-joined, and Close writes
// the closing "]" so even a run aborted mid-interval leaves a file a
// truncate-trailing-comma-then-append-"]" reader can parse (spec §5's
// ordering guarantee on snapshot files).
type SnapshotWriter struct {
	f        *os.File
	wroteAny bool
}

// NewSnapshotWriter creates (truncating) the snapshot file and writes the
// opening bracket.
func NewSnapshotWriter(path string) (*SnapshotWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "creating snapshot file")
	}
	if _, err := f.WriteString("[\n"); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "writing snapshot array open")
	}
	return &SnapshotWriter{f: f}, nil
}

// Append writes one snapshot object into the array.
func (s *SnapshotWriter) Append(snapshot Counters) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshaling snapshot")
	}
	if s.wroteAny {
		if _, err := s.f.WriteString(",\n"); err != nil {
			return errors.Wrap(err, "appending snapshot separator")
		}
	}
	s.wroteAny = true
	if _, err := s.f.Write(data); err != nil {
		return errors.Wrap(err, "appending snapshot")
	}
	return s.f.Sync()
}

// Close writes the closing bracket and closes the file.
func (s *SnapshotWriter) Close() error {
	if _, err := s.f.WriteString("\n]\n"); err != nil {
		s.f.Close()
		return errors.Wrap(err, "writing snapshot array close")
	}
	return s.f.Close()
}

// HostResult is one host's aggregated outcome: its own counters (the sum
// of every local worker's final snapshot) plus the per-thread snapshots
// that produced it, serialized to <host>_result.json (the spec's JSON
// substitute for <host>_result.pickle — see DESIGN.md).
type HostResult struct {
	Host     string              `json:"hostname"`
	Counters Counters            `json:"fsop-counters"`
	Threads  map[string]Counters `json:"in-thread"`
	OK       bool                `json:"ok"`
}

// WriteHostResult publishes a host result atomically (temp + rename), the
// same pattern used for the starting gun and simtime checkpoints.
func WriteHostResult(path string, result HostResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling host result")
	}
	tmp := path + ".notyet"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "writing host result")
	}
	return errors.Wrap(os.Rename(tmp, path), "publishing host result")
}

// ReadHostResult loads a previously published host result file.
func ReadHostResult(path string) (HostResult, error) {
	var result HostResult
	data, err := os.ReadFile(path)
	if err != nil {
		return result, errors.Wrap(err, "reading host result")
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, errors.Wrap(err, "parsing host result")
	}
	return result, nil
}
