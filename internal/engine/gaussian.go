package engine

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/auriora/fsdrive/internal/errors"
)

// checkpointVersion is the leading integer of the four-line simtime
// checkpoint format (spec §6); bumping it would let a future release
// detect and reject a checkpoint written by an older build.
const checkpointVersion = 1

// defaultTimeSaveRate is how many simulated ticks elapse between checkpoint
// rewrites, per the spec's "(default 5)".
const defaultTimeSaveRate = 5

// GaussianDrift is one worker's time-drifting Gaussian sampler: a simulated
// time cursor t, a center c that ages forward at velocity v, reseeded from
// (or persisted to) a checkpoint file in the network-shared directory so a
// worker resuming a long-running aging job keeps touching the same region
// of the file-index space it was in before.
type GaussianDrift struct {
	pg *PathGenerator

	stddev             float64
	createStddevsAhead float64
	timeSaveRate       int

	t int64
	c float64
	v float64

	checkpointPath string
	sinceSave      int
}

// NewGaussianDrift constructs a drift sampler for one worker, loading its
// checkpoint if one already exists, or seeding fresh constructor defaults
// otherwise: c uniform in [0, maxFiles*0.99], v uniform in
// [0, 2*meanVelocity] so per-thread velocities vary while their mean
// matches the configured mean_velocity (spec §4.2).
func NewGaussianDrift(pg *PathGenerator, rng *rand.Rand, stddev, meanVelocity, createStddevsAhead float64, checkpointPath string) (*GaussianDrift, error) {
	d := &GaussianDrift{
		pg:                 pg,
		stddev:             stddev,
		createStddevsAhead: createStddevsAhead,
		timeSaveRate:       defaultTimeSaveRate,
		checkpointPath:     checkpointPath,
	}

	loaded, err := loadCheckpoint(checkpointPath)
	if err != nil {
		return nil, err
	}
	if loaded != nil {
		d.t, d.c, d.v = loaded.t, loaded.c, loaded.v
		return d, nil
	}

	d.t = 0
	d.c = rng.Float64() * float64(pg.MaxFiles()) * 0.99
	d.v = rng.Float64() * 2 * meanVelocity
	return d, nil
}

// Index advances the drift state and samples one file index. forCreate
// biases the center ahead by create_stddevs_ahead standard deviations so
// creates lead the herd and reads/updates trail it (spec §4.2).
func (d *GaussianDrift) Index(rng *rand.Rand, forCreate bool) int {
	d.c += d.v
	center := d.c
	if forCreate {
		center += d.createStddevsAhead * d.stddev
	}

	normal := distuv.Normal{Mu: center, Sigma: d.stddev, Src: rng}
	x := normal.Rand()

	d.t++
	d.sinceSave++
	if d.sinceSave >= d.timeSaveRate {
		d.sinceSave = 0
		// Best-effort: a failed checkpoint write degrades to "resample
		// fresh next run" rather than aborting an in-flight worker.
		_ = saveCheckpoint(d.checkpointPath, d.t, d.c, d.v)
	}

	max := d.pg.MaxFiles()
	i := int(math.Floor(x)) % max
	if i < 0 {
		i += max
	}
	return i
}

// Center exposes the current Gaussian center, mainly for tests that assert
// the starting center of a fresh run matches a pre-seeded checkpoint.
func (d *GaussianDrift) Center() float64 { return d.c }

type checkpointState struct {
	t int64
	c float64
	v float64
}

func checkpointName(networkShared, host string, tid int) string {
	return filepath.Join(networkShared, fmt.Sprintf("fs-drift-simtime-hst-%s-thrd-%d.tmp", host, tid))
}

func loadCheckpoint(path string) (*checkpointState, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading simtime checkpoint")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := make([]string, 0, 4)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) < 4 {
		return nil, errors.New("truncated simtime checkpoint " + path)
	}
	version, err := strconv.Atoi(lines[0])
	if err != nil || version != checkpointVersion {
		return nil, errors.New("unsupported simtime checkpoint version in " + path)
	}
	t, err := strconv.ParseInt(lines[1], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "parsing checkpoint t")
	}
	c, err := strconv.ParseFloat(lines[2], 64)
	if err != nil {
		return nil, errors.Wrap(err, "parsing checkpoint c")
	}
	v, err := strconv.ParseFloat(lines[3], 64)
	if err != nil {
		return nil, errors.Wrap(err, "parsing checkpoint v")
	}
	return &checkpointState{t: t, c: c, v: v}, nil
}

// saveCheckpoint writes the four-line checkpoint atomically: write to a
// ".notyet" sibling, then rename, so a concurrent reader on another host
// never observes a partial destination (design note "Atomic publish =
// temp + rename").
func saveCheckpoint(path string, t int64, c, v float64) error {
	tmp := path + ".notyet"
	content := fmt.Sprintf("%d\n%d\n%g\n%g\n", checkpointVersion, t, c, v)
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return errors.Wrap(err, "writing simtime checkpoint")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "publishing simtime checkpoint")
	}
	return nil
}
