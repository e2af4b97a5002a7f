package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/auriora/fsdrive/internal/engine"
	"github.com/auriora/fsdrive/internal/errors"
	"github.com/auriora/fsdrive/internal/logging"
	"github.com/auriora/fsdrive/pkg/retry"
)

// LaunchCommand is the file-drop payload a driver writes for a remote
// host: the argv of the fsdrive invocation that host should run, standing
// in for an SSH session the spec explicitly keeps out of this module's
// scope (an external launcher daemon is the documented substitute).
type LaunchCommand struct {
	Argv []string `json:"argv"`
}

func launchFilePath(networkShared, host string) string {
	return filepath.Join(networkShared, host+".fsd_launch")
}

func resultFilePath(networkShared, host string) string {
	return filepath.Join(networkShared, host+"_result.json")
}

// ResultFilePath exposes the result-file naming convention to callers
// outside this package: an --as-host process publishes its own result here
// once its workers finish, for a driver's DispatchRemote to pick up.
func ResultFilePath(networkShared, host string) string {
	return resultFilePath(networkShared, host)
}

// DispatchRemote writes the launch command for host and blocks until that
// host's result file appears or timeout elapses. It never execs anything
// itself: the remote daemon (RunLauncherDaemon, running on that host) is
// the one that reads the launch file and invokes the binary.
func DispatchRemote(networkShared, host string, argv []string, timeout time.Duration) (engine.HostResult, error) {
	cmd := LaunchCommand{Argv: argv}
	data, err := json.Marshal(cmd)
	if err != nil {
		return engine.HostResult{}, errors.Wrap(err, "marshaling launch command")
	}
	path := launchFilePath(networkShared, host)
	tmp := path + ".notyet"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return engine.HostResult{}, errors.Wrap(err, "writing launch file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return engine.HostResult{}, errors.Wrap(err, "publishing launch file")
	}

	deadline := time.Now().Add(timeout)
	resultPath := resultFilePath(networkShared, host)
	for {
		if exists(resultPath) {
			// NFS client-side attribute caching can mean a just-renamed
			// file's content isn't visible yet on this node; retry the read
			// with backoff rather than a single fixed sleep (spec §4.5's
			// "waiting up to ~1.2s extra for NFS client cache").
			return retry.DoWithResult(context.Background(), func() (engine.HostResult, error) {
				return engine.ReadHostResult(resultPath)
			}, retry.NFSVisibility())
		}
		if time.Now().After(deadline) {
			return engine.HostResult{}, errors.NewRendezvousFault(fmt.Sprintf("timed out waiting for %s's result", host), nil)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// RunLauncherDaemon polls networkShared for a launch file addressed to
// self, executes the command it names, and repeats until ctx-equivalent
// stop is requested via the shared abort sentinel. This is the thin
// "remote launcher daemon" the spec names as an external collaborator
// substituting for SSH; it is included here because the file-drop
// protocol it speaks is part of the in-scope coordination contract.
func RunLauncherDaemon(networkShared, self string, log logging.Logger, pollInterval time.Duration) error {
	path := launchFilePath(networkShared, self)
	for {
		if exists(abortPath(networkShared)) {
			return nil
		}
		if exists(path) {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Msg("failed to read launch file")
				time.Sleep(pollInterval)
				continue
			}
			var cmd LaunchCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				log.Warn().Err(err).Msg("failed to parse launch file")
				_ = os.Remove(path)
				continue
			}
			_ = os.Remove(path)
			if len(cmd.Argv) > 0 {
				execCmd := exec.Command(cmd.Argv[0], cmd.Argv[1:]...)
				execCmd.Stdout = os.Stdout
				execCmd.Stderr = os.Stderr
				log.Info().Str(logging.FieldHost, self).Msg("launcher daemon executing dispatched command")
				if err := execCmd.Run(); err != nil {
					log.Warn().Err(err).Msg("dispatched command exited non-zero")
				}
			}
		}
		time.Sleep(pollInterval)
	}
}
