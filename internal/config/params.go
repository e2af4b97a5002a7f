// Package config defines the immutable parameter set consumed by the engine,
// worker and coordinator packages, and the YAML/default-merge loader that
// builds it. Command-line flag parsing lives in cmd/fsdrive; this package
// only knows how to validate and fill in a Parameters value, the same
// division OneMount draws between its flags (cmd) and its Config (this
// package's ancestor, cmd/common/config.go).
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/imdario/mergo"
	yaml "gopkg.in/yaml.v3"

	"github.com/auriora/fsdrive/internal/errors"
)

// SizeRange is a scalar or [lo,hi] byte range, as accepted for record_size.
type SizeRange struct {
	Lo int64
	Hi int64
}

// Scalar reports whether the range collapses to a single size.
func (r SizeRange) Scalar() bool { return r.Lo == r.Hi }

// Distribution selects how file indices are sampled.
type Distribution string

const (
	DistributionUniform  Distribution = "uniform"
	DistributionGaussian Distribution = "gaussian"
)

// Parameters is the immutable configuration every other component consumes.
// Field names mirror the option table in the spec's external interfaces
// section; YAML keys use the hyphen-to-underscore convention the spec
// requires so a YAML file and the equivalent flags name the same option.
type Parameters struct {
	Top              string   `yaml:"top"`
	HostSet          []string `yaml:"host_set"`
	Threads          int      `yaml:"threads"`
	DurationSeconds  int      `yaml:"duration"`
	WorkloadTable    string   `yaml:"workload_table"`

	MaxFiles      int `yaml:"max_files"`
	Levels        int `yaml:"levels"`
	DirsPerLevel  int `yaml:"dirs_per_level"`

	MaxFileSizeKB   int64     `yaml:"max_file_size_kb"`
	RecordSize      SizeRange `yaml:"-"`
	RecordSizeRaw   string    `yaml:"record_size"`
	MaxRecordSizeKB int64     `yaml:"max_record_size_kb"`

	MaxRandomReads  int `yaml:"max_random_reads"`
	MaxRandomWrites int `yaml:"max_random_writes"`

	FsyncPct     int `yaml:"fsync_pct"`
	FdatasyncPct int `yaml:"fdatasync_pct"`

	RandomDistribution Distribution `yaml:"random_distribution"`
	MeanVelocity       float64      `yaml:"mean_velocity"`
	GaussianStddev     float64      `yaml:"gaussian_stddev"`
	CreateStddevsAhead float64      `yaml:"create_stddevs_ahead"`

	PauseBetweenOpsUS int `yaml:"pause_between_ops"`
	ReportInterval    int `yaml:"report_interval"`
	ResponseTimes     bool `yaml:"response_times"`

	FullnessLimitPercent      int    `yaml:"fullness_limit_percent"`
	TolerateStaleFileHandles  bool   `yaml:"tolerate_stale_file_handles"`
	MountCommand              string `yaml:"mount_command"`

	Incompressible bool    `yaml:"incompressible"`
	CompressRatio  float64 `yaml:"compress_ratio"`
	DedupePct      int     `yaml:"dedupe_pct"`
	DirectIO       bool    `yaml:"directIO"`
	RawDevice      string  `yaml:"rawdevice"`

	Verbosity      uint64 `yaml:"verbosity"`
	LaunchAsDaemon bool   `yaml:"launch_as_daemon"`
	OutputJSON     string `yaml:"output_json"`
}

// NetworkShared is always <top>/network-shared and is never independently
// configurable (spec §3).
func (p *Parameters) NetworkShared() string {
	return filepath.Join(p.Top, "network-shared")
}

// Defaults returns a Parameters pre-filled with the same values the source
// tooling ships, the way OneMount's createDefaultConfig seeds CacheDir/
// LogLevel/DeltaInterval before a config file is merged in.
func Defaults() Parameters {
	return Parameters{
		Threads:             1,
		DurationSeconds:     60,
		MaxFiles:            1000,
		Levels:              2,
		DirsPerLevel:        4,
		MaxFileSizeKB:       64,
		RecordSize:          SizeRange{Lo: 4096, Hi: 4096},
		MaxRandomReads:      4,
		MaxRandomWrites:     4,
		FsyncPct:            0,
		FdatasyncPct:        0,
		RandomDistribution:  DistributionUniform,
		MeanVelocity:        1,
		GaussianStddev:      50,
		CreateStddevsAhead:  3,
		PauseBetweenOpsUS:   0,
		ReportInterval:      10,
		FullnessLimitPercent: 95,
	}
}

// Load reads a YAML parameter file, merges it over Defaults and validates
// the result. A missing path is not an error: it yields the defaults,
// mirroring LoadConfig's "file not found, using defaults" behavior.
func Load(path string) (*Parameters, error) {
	defaults := Defaults()

	if path == "" {
		if err := finalize(&defaults); err != nil {
			return nil, err
		}
		return &defaults, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if ferr := finalize(&defaults); ferr != nil {
				return nil, ferr
			}
			return &defaults, nil
		}
		return nil, errors.NewConfigFault("reading parameter file", err)
	}

	params := &Parameters{}
	if err := yaml.Unmarshal(raw, params); err != nil {
		return nil, errors.NewConfigFault("parsing parameter file "+path, err)
	}
	if err := mergo.Merge(params, defaults); err != nil {
		return nil, errors.NewConfigFault("merging parameter defaults", err)
	}
	if err := finalize(params); err != nil {
		return nil, err
	}
	return params, nil
}

// finalize applies the record-size precedence rule and validates invariants
// that are cheap to check once, regardless of how Parameters was built.
func finalize(p *Parameters) error {
	if err := resolveRecordSize(p); err != nil {
		return err
	}
	return Validate(p)
}

// resolveRecordSize applies the legacy-precedence open question from the
// spec's design notes: when both record_size and max_record_size_kb are
// set, max_record_size_kb wins and is promoted to a (1, N*1024) range.
func resolveRecordSize(p *Parameters) error {
	if p.MaxRecordSizeKB > 0 {
		p.RecordSize = SizeRange{Lo: 1, Hi: p.MaxRecordSizeKB * 1024}
		return nil
	}
	if p.RecordSizeRaw == "" {
		return nil
	}
	lo, hi, err := parseSizeRange(p.RecordSizeRaw)
	if err != nil {
		return errors.NewConfigFault("parsing record_size", err)
	}
	p.RecordSize = SizeRange{Lo: lo, Hi: hi}
	return nil
}

// parseSizeRange parses "N", "N[bkmg]" or "lo:hi" forms, the same unit
// suffixes (b/k/m/g) the spec's option table names for record_size.
func parseSizeRange(raw string) (int64, int64, error) {
	parts := strings.SplitN(raw, ":", 2)
	lo, err := parseSize(parts[0])
	if err != nil {
		return 0, 0, err
	}
	if len(parts) == 1 {
		return lo, lo, nil
	}
	hi, err := parseSize(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'b', 'B':
		mult, s = 1, s[:len(s)-1]
	case 'k', 'K':
		mult, s = 1024, s[:len(s)-1]
	case 'm', 'M':
		mult, s = 1024*1024, s[:len(s)-1]
	case 'g', 'G':
		mult, s = 1024*1024*1024, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "invalid size "+s)
	}
	return n * mult, nil
}

// Write serializes p back to YAML, mirroring the teacher's WriteConfig,
// useful for --dump-config style debugging of a merged parameter set. The
// file is written to a ".notyet" sibling and renamed into place, so a
// reader sees either the complete file or none.
func (p *Parameters) Write(path string) error {
	out, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshaling parameters")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "creating parameter file directory")
	}
	tmp := path + ".notyet"
	if err := os.WriteFile(tmp, out, 0600); err != nil {
		return errors.Wrap(err, "writing parameter file")
	}
	return errors.Wrap(os.Rename(tmp, path), "publishing parameter file")
}
