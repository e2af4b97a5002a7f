package coordinator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/auriora/fsdrive/internal/errors"
)

// PerHostTimeout is the spec's rendezvous timeout formula: at least 10
// seconds, growing with the size of the host set so a large fleet gets
// proportionally more slack to report ready.
func PerHostTimeout(hostCount int) time.Duration {
	secs := 5 + hostCount/3
	if secs < 10 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

func hostReadyPath(networkShared, host string) string {
	return filepath.Join(networkShared, fmt.Sprintf("host_ready.%s.tmp", host))
}

func startingGunPath(networkShared string) string {
	return filepath.Join(networkShared, "starting-gun.tmp")
}

func abortPath(networkShared string) string {
	return filepath.Join(networkShared, "abort.tmp")
}

func stopPath(networkShared string) string {
	return filepath.Join(networkShared, "stop-file.tmp")
}

// MarkHostReady publishes this host's readiness sentinel, called once all
// of a host's local workers have touched their thread_ready files.
func MarkHostReady(networkShared, host string) error {
	return touch(hostReadyPath(networkShared, host))
}

// WaitAllHostsReady polls the network-shared directory until every host in
// hosts has published its host_ready file, or timeout elapses — in which
// case it writes abort.tmp (per the design's "on timeout, touch abort.tmp
// and terminate all child threads") and returns a RendezvousFault.
func WaitAllHostsReady(networkShared string, hosts []string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	remaining := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		remaining[h] = true
	}

	for len(remaining) > 0 {
		for h := range remaining {
			if exists(hostReadyPath(networkShared, h)) {
				delete(remaining, h)
			}
		}
		if len(remaining) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			_ = touch(abortPath(networkShared))
			return errors.NewRendezvousFault(fmt.Sprintf("timed out waiting for hosts to become ready: %v", keys(remaining)), nil)
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil
}

// FireStartingGun publishes the cluster-wide starting gate atomically
// (write to a ".notyet" sibling, then rename) so every worker's barrier
// wait observes either nothing or the complete file, never a partial one.
func FireStartingGun(networkShared string) error {
	path := startingGunPath(networkShared)
	tmp := path + ".notyet"
	if err := os.WriteFile(tmp, []byte(time.Now().Format(time.RFC3339Nano)), 0644); err != nil {
		return errors.Wrap(err, "writing starting gun")
	}
	return errors.Wrap(os.Rename(tmp, path), "publishing starting gun")
}

// Abort publishes the impolite-stop sentinel: barrier waits abort
// immediately and the main loop breaks on its next housekeeping pass.
func Abort(networkShared string) error {
	return touch(abortPath(networkShared))
}

// Stop publishes the polite-stop sentinel: workers finish their in-flight
// operation and exit on the next housekeeping pass.
func Stop(networkShared string) error {
	return touch(stopPath(networkShared))
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

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
