package engine

import (
	"os"
	"time"

	"github.com/auriora/fsdrive/internal/errors"
)

// WorkerGate lets a worker wait for the coordinator's starting-gun publish
// without depending on the coordinator package directly (avoiding an import
// cycle: coordinator depends on engine for Counters, not the reverse).
type WorkerGate interface {
	Wait(path string, maxWait time.Duration) error
}

// PollGate waits for a file to appear by polling, the same rendezvous
// mechanism the multi-host coordinator uses for every other handshake file:
// no inotify, because the shared directory is frequently a network mount
// where local filesystem-event APIs don't fire for a remote host's writes.
// AbortPath, if set, is also polled: its appearance aborts the wait
// immediately instead of running out the barrier's timeout (spec §5's
// "barrier wait aborts immediately" under the impolite-stop mechanism).
type PollGate struct {
	Interval  time.Duration
	AbortPath string
}

// NewPollGate returns a PollGate with a sensible default poll interval.
func NewPollGate(abortPath string) PollGate {
	return PollGate{Interval: 200 * time.Millisecond, AbortPath: abortPath}
}

// Wait blocks until path exists, AbortPath appears, or maxWait elapses.
func (g PollGate) Wait(path string, maxWait time.Duration) error {
	if g.Interval <= 0 {
		g.Interval = 200 * time.Millisecond
	}
	deadline := time.Now().Add(maxWait)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if g.AbortPath != "" {
			if _, err := os.Stat(g.AbortPath); err == nil {
				return errors.NewAbortFault("aborted while waiting for starting gun at " + path)
			}
		}
		if time.Now().After(deadline) {
			return errors.NewRendezvousFault("timed out waiting for starting gun at "+path, nil)
		}
		time.Sleep(g.Interval)
	}
}
