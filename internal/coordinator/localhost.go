package coordinator

import (
	"strconv"
	"time"

	"github.com/auriora/fsdrive/internal/config"
	"github.com/auriora/fsdrive/internal/engine"
	"github.com/auriora/fsdrive/internal/errors"
	"github.com/auriora/fsdrive/internal/logging"
)

// threadOutcome carries one local worker's result back to RunLocalHost.
type threadOutcome struct {
	thread   int
	counters engine.Counters
	err      error
}

// RunLocalHost starts threads-per-host worker goroutines for one host,
// waits for them all to reach the starting-gate barrier, publishes this
// host's host_ready sentinel, then blocks until every worker has run to
// completion (duration expiry, stop, or abort). It is the per-host
// coordinator of spec §4.4-4.5, minus the cross-host rendezvous that
// Driver layers on top.
func RunLocalHost(p *config.Parameters, host string, maxWait time.Duration) (engine.HostResult, error) {
	weights, err := engine.ParseWeightTable(p.WorkloadTable)
	if err != nil {
		return engine.HostResult{}, err
	}
	events, err := engine.NewEventGenerator(weights)
	if err != nil {
		return engine.HostResult{}, err
	}

	gate := engine.NewPollGate(abortPath(p.NetworkShared()))
	results := make(chan threadOutcome, p.Threads)

	for t := 0; t < p.Threads; t++ {
		go func(thread int) {
			w, op, err := engine.NewWorker(p, events, host, thread)
			if err != nil {
				results <- threadOutcome{thread: thread, err: err}
				return
			}
			counters, err := w.Run(op, gate, maxWait)
			results <- threadOutcome{thread: thread, counters: counters, err: err}
		}(t)
	}

	if err := waitLocalThreadsReady(p.Threads, maxWait); err != nil {
		return engine.HostResult{}, err
	}
	if err := MarkHostReady(p.NetworkShared(), host); err != nil {
		return engine.HostResult{}, errors.Wrap(err, "publishing host_ready sentinel")
	}

	threadCounters := make(map[string]engine.Counters, p.Threads)
	var total engine.Counters
	ok := true
	for i := 0; i < p.Threads; i++ {
		o := <-results
		if o.err != nil {
			ok = false
		}
		threadCounters[strconv.Itoa(o.thread)] = o.counters
		total = engine.Merge(total, o.counters)
	}
	if total.TotalErrors > 0 {
		ok = false
		logging.DefaultLogger.Debug().Str(logging.FieldHost, host).
			Uint64(logging.FieldCounter, total.TotalErrors).Msg("host finished with unclassified errors")
	}

	return engine.HostResult{Host: host, Counters: total, Threads: threadCounters, OK: ok}, nil
}

// waitLocalThreadsReady polls each thread's local ready sentinel until all
// threads have touched theirs or maxWait elapses.
func waitLocalThreadsReady(threads int, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	remaining := make(map[int]bool, threads)
	for t := 0; t < threads; t++ {
		remaining[t] = true
	}
	for len(remaining) > 0 {
		for t := range remaining {
			if exists(engine.ThreadReadyPath(t)) {
				delete(remaining, t)
			}
		}
		if len(remaining) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.NewRendezvousFault("timed out waiting for local threads to reach the starting gate", nil)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
