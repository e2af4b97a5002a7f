// Command fsdrive drives a filesystem-aging and stress workload across one
// or more hosts: a single process plays either the driving coordinator, one
// named host's worker group (--as-host), or a launcher daemon that accepts
// dispatched commands in place of an SSH session (--launcher).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/auriora/fsdrive/internal/config"
	"github.com/auriora/fsdrive/internal/coordinator"
	"github.com/auriora/fsdrive/internal/engine"
	"github.com/auriora/fsdrive/internal/logging"
)

func usage() {
	fmt.Printf(`fsdrive - a filesystem aging and stress workload generator.

Drives a configurable mix of create/read/write/link/rename/delete/remount
operations across a tree of files, optionally fanning the workload out
across several hosts coordinated through a shared network directory.

Usage: fsdrive [options]

Valid options:
`)
	flag.PrintDefaults()
}

func setupFlags() (configPath string, asHost, launcher string, dumpConfig bool, overrides config.Parameters, overrideSet map[string]bool) {
	configPathFlag := flag.StringP("config", "f", "", "YAML parameter file. Unset uses built-in defaults.")
	topFlag := flag.StringP("top", "t", "", "Top-level directory the workload runs under.")
	hostSetFlag := flag.String("host-set", "", "Comma-separated list of hosts to run across. Empty means local-only.")
	threadsFlag := flag.IntP("threads", "n", 0, "Worker threads per host.")
	durationFlag := flag.Int("duration", 0, "Run duration in seconds. 0 uses the parameter file's value.")
	workloadTableFlag := flag.StringP("workload-table", "w", "", "Path to the opname,weight CSV workload table.")
	outputFlag := flag.StringP("output", "o", "", "Path to write the final result JSON.")
	logLevelFlag := flag.StringP("log", "l", "", "Logging level: trace, debug, info, warn, error, fatal.")
	asHostFlag := flag.String("as-host", "", "Run only this host's worker group, publish its result, then exit. "+
		"Used by a remote launcher daemon in place of an interactive invocation.")
	launcherFlag := flag.String("launcher", "", "Run as a launcher daemon for this host name, polling the "+
		"network-shared directory for dispatched commands in place of an SSH session.")
	dumpConfigFlag := flag.Bool("dump-config", false, "Write the fully merged parameter set to stdout and exit.")
	versionFlag := flag.BoolP("version", "v", false, "Display program version.")
	help := flag.BoolP("help", "h", false, "Display this help message.")
	flag.Usage = usage
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Println("fsdrive", Version())
		os.Exit(0)
	}

	overrideSet = make(map[string]bool)
	if *topFlag != "" {
		overrides.Top = *topFlag
		overrideSet["top"] = true
	}
	if *hostSetFlag != "" {
		overrides.HostSet = strings.Split(*hostSetFlag, ",")
		overrideSet["host_set"] = true
	}
	if *threadsFlag > 0 {
		overrides.Threads = *threadsFlag
		overrideSet["threads"] = true
	}
	if *durationFlag > 0 {
		overrides.DurationSeconds = *durationFlag
		overrideSet["duration"] = true
	}
	if *workloadTableFlag != "" {
		overrides.WorkloadTable = *workloadTableFlag
		overrideSet["workload_table"] = true
	}
	if *outputFlag != "" {
		overrides.OutputJSON = *outputFlag
		overrideSet["output_json"] = true
	}

	if *logLevelFlag != "" {
		if lvl, err := logging.ParseLevel(*logLevelFlag); err == nil {
			logging.SetGlobalLevel(lvl)
		} else {
			logging.Warn().Str("level", *logLevelFlag).Msg("unrecognized log level, leaving default")
		}
	}

	return *configPathFlag, *asHostFlag, *launcherFlag, *dumpConfigFlag, overrides, overrideSet
}

// applyOverrides layers CLI-supplied overrides over the loaded parameters,
// the same "command line options override config options" precedence
// onemount's setupFlags uses for its own Config fields.
func applyOverrides(p *config.Parameters, o config.Parameters, set map[string]bool) {
	if set["top"] {
		p.Top = o.Top
	}
	if set["host_set"] {
		p.HostSet = o.HostSet
	}
	if set["threads"] {
		p.Threads = o.Threads
	}
	if set["duration"] {
		p.DurationSeconds = o.DurationSeconds
	}
	if set["workload_table"] {
		p.WorkloadTable = o.WorkloadTable
	}
	if set["output_json"] {
		p.OutputJSON = o.OutputJSON
	}
}

func main() {
	logging.DefaultLogger = logging.New(logging.NewConsoleWriter(os.Stderr))

	configPath, asHost, launcherHost, dumpConfig, overrides, overrideSet := setupFlags()

	params, err := config.Load(configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load parameters")
	}
	applyOverrides(params, overrides, overrideSet)

	if dumpConfig {
		tmp := filepath.Join(os.TempDir(), "fsdrive-dump-config.yaml")
		if err := params.Write(tmp); err != nil {
			logging.Fatal().Err(err).Msg("failed to render parameters")
		}
		data, _ := os.ReadFile(tmp)
		os.Remove(tmp)
		fmt.Print(string(data))
		os.Exit(0)
	}

	if params.Top == "" {
		logging.Fatal().Msg("no top directory configured; pass --top or set it in the parameter file")
	}

	if launcherHost != "" {
		runLauncherDaemon(params, launcherHost)
		return
	}

	if asHost != "" {
		runAsHost(params, asHost)
		return
	}

	runDriver(params)
}

func runLauncherDaemon(p *config.Parameters, host string) {
	logging.Info().Str(logging.FieldHost, host).Msg("starting launcher daemon")
	if err := coordinator.RunLauncherDaemon(p.NetworkShared(), host, logging.DefaultLogger, time.Second); err != nil {
		logging.Fatal().Err(err).Msg("launcher daemon exited with an error")
	}
}

// runAsHost is what a remote launcher daemon execs on a non-driving host: it
// runs that host's worker group locally, then publishes the result where the
// driver's DispatchRemote is waiting for it.
func runAsHost(p *config.Parameters, host string) {
	maxWait := coordinator.PerHostTimeout(hostCountOrOne(p))
	result, err := coordinator.RunLocalHost(p, host, maxWait)
	if err != nil {
		logging.Error().Err(err).Str(logging.FieldHost, host).Msg("host worker group exited with an error")
	}
	resultPath := coordinator.ResultFilePath(p.NetworkShared(), host)
	if werr := engine.WriteHostResult(resultPath, result); werr != nil {
		logging.Fatal().Err(werr).Msg("failed to publish host result")
	}
	if err != nil {
		os.Exit(1)
	}
}

func hostCountOrOne(p *config.Parameters) int {
	if len(p.HostSet) == 0 {
		return 1
	}
	return len(p.HostSet)
}

// localHostIdentity picks which entry of HostSet (if any) this driver
// process should run locally, preferring a match on os.Hostname() and
// falling back to the first entry so a single-machine multi-"host" test
// setup (distinct HostSet entries sharing one real machine) still has
// exactly one local runner.
func localHostIdentity(p *config.Parameters) string {
	if len(p.HostSet) == 0 {
		return "localhost"
	}
	if name, err := os.Hostname(); err == nil {
		for _, h := range p.HostSet {
			if h == name {
				return h
			}
		}
	}
	return p.HostSet[0]
}

func runDriver(p *config.Parameters) {
	binary, err := filepath.Abs(os.Args[0])
	if err != nil {
		binary = os.Args[0]
	}

	d := &coordinator.Driver{
		Params:     p,
		SelfHost:   localHostIdentity(p),
		BinaryPath: binary,
		Log:        logging.DefaultLogger,
	}

	start := time.Now()
	result, runErr := d.Run()
	elapsed := time.Since(start)

	if result != nil {
		result.Results.Elapsed = elapsed.Seconds()
		if p.OutputJSON != "" {
			if werr := coordinator.WriteClusterResult(p.OutputJSON, result); werr != nil {
				logging.Error().Err(werr).Msg("failed to write result JSON")
			}
		}
		printSummary(result)
	}

	if runErr != nil {
		logging.Error().Err(runErr).Msg("run finished with an error")
	}

	os.Exit(coordinator.ExitCode(result, runErr))
}

// printSummary renders a short human-readable recap of the run, the same
// role onemount's displayStats plays for its own cache/queue counters.
func printSummary(result *coordinator.ClusterResult) {
	body := result.Results
	fmt.Println("fsdrive run summary")
	fmt.Println("====================")
	fmt.Printf("Elapsed:      %.1fs\n", body.Elapsed)
	fmt.Printf("Threads:      %d\n", body.Threads)
	fmt.Printf("Files:        %s\n", humanize.Comma(int64(body.Files)))
	fmt.Printf("I/O ops:      %s\n", humanize.Comma(int64(body.IOs)))
	fmt.Printf("Data moved:   %s\n", humanize.Bytes(uint64(body.MiB*1024*1024)))
	if body.Elapsed > 0 {
		fmt.Printf("Files/sec:    %.2f\n", body.FilesPerSec)
		fmt.Printf("IOPS:         %.2f\n", body.IOPS)
		fmt.Printf("Throughput:   %s/s\n", humanize.Bytes(uint64(body.MiBPerSec*1024*1024)))
	}
	if body.FSOpCounters.TotalErrors > 0 {
		fmt.Printf("Total errors: %s\n", humanize.Comma(int64(body.FSOpCounters.TotalErrors)))
	}
	if len(body.InHost) > 0 {
		fmt.Printf("Hosts:        %d\n", len(body.InHost))
	}
}
