// Package engine implements the workload dispatcher: the weighted event
// generator, the uniform/Gaussian filename model, the per-worker operation
// context with its eleven-to-fourteen filesystem operations, and the
// counter schema those operations mutate. This is the "FSOp" component of
// the system design and carries the bulk of the repository's unique logic,
// the way OneMount's internal/fs carried the bulk of its FUSE semantics.
package engine

import "sync/atomic"

// Counters is the fixed, non-negative counter schema every worker
// accumulates and that hosts/clusters merge by pointwise addition. All
// fields are exported so encoding/json can marshal the struct directly
// into the per-worker snapshot files and the final result document.
type Counters struct {
	// Per-operation success counts.
	Created          uint64 `json:"created"`
	Deleted          uint64 `json:"deleted"`
	Softlinked       uint64 `json:"softlinked"`
	Hardlinked       uint64 `json:"hardlinked"`
	Appended         uint64 `json:"appended"`
	Written          uint64 `json:"written"`
	RandomlyWritten  uint64 `json:"randomly_written"`
	Read             uint64 `json:"read"`
	RandomlyRead     uint64 `json:"randomly_read"`
	Renamed          uint64 `json:"renamed"`
	Truncated        uint64 `json:"truncated"`
	Remounted        uint64 `json:"remounted"`
	Readdir          uint64 `json:"readdir"`
	RandomlyDiscarded uint64 `json:"randomly_discarded"`

	// Throughput.
	ReadRequests       uint64 `json:"read_requests"`
	ReadBytes          uint64 `json:"read_bytes"`
	RandreadRequests   uint64 `json:"randread_requests"`
	RandreadBytes      uint64 `json:"randread_bytes"`
	WriteRequests      uint64 `json:"write_requests"`
	WriteBytes         uint64 `json:"write_bytes"`
	RandwriteRequests  uint64 `json:"randwrite_requests"`
	RandwriteBytes     uint64 `json:"randwrite_bytes"`
	RanddiscardRequests uint64 `json:"randdiscard_requests"`
	RanddiscardBytes    uint64 `json:"randdiscard_bytes"`
	Fsyncs             uint64 `json:"fsyncs"`
	Fdatasyncs         uint64 `json:"fdatasyncs"`
	DirsCreated        uint64 `json:"dirs_created"`

	// Classified errors.
	AlreadyExists    uint64 `json:"already_exists"`
	FileNotFound     uint64 `json:"file_not_found"`
	NoDirSpace       uint64 `json:"no_dir_space"`
	NoInodeSpace     uint64 `json:"no_inode_space"`
	NoSpace          uint64 `json:"no_space"`
	NotMounted       uint64 `json:"not_mounted"`
	CouldNotMount    uint64 `json:"could_not_mount"`
	CouldNotUnmount  uint64 `json:"could_not_unmount"`
	StaleFH          uint64 `json:"stale_fh"`
	DirNotFound      uint64 `json:"dir_not_found"`

	// Loop-level bookkeeping, carried alongside the counters in every
	// snapshot and the final result (spec §6's counter-snapshot JSON).
	ElapsedTime float64 `json:"elapsed-time"`
	TotalErrors uint64  `json:"total-errors"`
}

// TotalBytes sums the four byte counters that represent "real" I/O work.
// The spec flags a historical variant that double-counts ReadBytes and
// omits RandreadBytes as a likely bug (§9, Open Questions); this computes
// the corrected definition.
func (c Counters) TotalBytes() uint64 {
	return c.ReadBytes + c.RandreadBytes + c.WriteBytes + c.RandwriteBytes
}

// TotalIOs sums every request counter, used for files-per-sec/IOPS style
// derived metrics in the final result document.
func (c Counters) TotalIOs() uint64 {
	return c.ReadRequests + c.RandreadRequests + c.WriteRequests +
		c.RandwriteRequests + c.RanddiscardRequests
}

// Merge returns the pointwise sum of a and b. Merge is the only
// aggregation operation counters support (spec §3): per-worker counters
// merge into a per-host counter, per-host counters merge into the cluster
// counter, by repeated application of this function.
func Merge(a, b Counters) Counters {
	return Counters{
		Created:           a.Created + b.Created,
		Deleted:           a.Deleted + b.Deleted,
		Softlinked:        a.Softlinked + b.Softlinked,
		Hardlinked:        a.Hardlinked + b.Hardlinked,
		Appended:          a.Appended + b.Appended,
		Written:           a.Written + b.Written,
		RandomlyWritten:   a.RandomlyWritten + b.RandomlyWritten,
		Read:              a.Read + b.Read,
		RandomlyRead:      a.RandomlyRead + b.RandomlyRead,
		Renamed:           a.Renamed + b.Renamed,
		Truncated:         a.Truncated + b.Truncated,
		Remounted:         a.Remounted + b.Remounted,
		Readdir:           a.Readdir + b.Readdir,
		RandomlyDiscarded: a.RandomlyDiscarded + b.RandomlyDiscarded,

		ReadRequests:        a.ReadRequests + b.ReadRequests,
		ReadBytes:           a.ReadBytes + b.ReadBytes,
		RandreadRequests:    a.RandreadRequests + b.RandreadRequests,
		RandreadBytes:       a.RandreadBytes + b.RandreadBytes,
		WriteRequests:       a.WriteRequests + b.WriteRequests,
		WriteBytes:          a.WriteBytes + b.WriteBytes,
		RandwriteRequests:   a.RandwriteRequests + b.RandwriteRequests,
		RandwriteBytes:      a.RandwriteBytes + b.RandwriteBytes,
		RanddiscardRequests: a.RanddiscardRequests + b.RanddiscardRequests,
		RanddiscardBytes:    a.RanddiscardBytes + b.RanddiscardBytes,
		Fsyncs:              a.Fsyncs + b.Fsyncs,
		Fdatasyncs:          a.Fdatasyncs + b.Fdatasyncs,
		DirsCreated:         a.DirsCreated + b.DirsCreated,

		AlreadyExists:   a.AlreadyExists + b.AlreadyExists,
		FileNotFound:    a.FileNotFound + b.FileNotFound,
		NoDirSpace:      a.NoDirSpace + b.NoDirSpace,
		NoInodeSpace:    a.NoInodeSpace + b.NoInodeSpace,
		NoSpace:         a.NoSpace + b.NoSpace,
		NotMounted:      a.NotMounted + b.NotMounted,
		CouldNotMount:   a.CouldNotMount + b.CouldNotMount,
		CouldNotUnmount: a.CouldNotUnmount + b.CouldNotUnmount,
		StaleFH:         a.StaleFH + b.StaleFH,
		DirNotFound:     a.DirNotFound + b.DirNotFound,

		ElapsedTime: a.ElapsedTime + b.ElapsedTime,
		TotalErrors: a.TotalErrors + b.TotalErrors,
	}
}

// MergeAll folds Merge over a slice, returning the zero value for an empty
// slice so callers can always treat the result as a valid Counters.
func MergeAll(cs []Counters) Counters {
	var total Counters
	for _, c := range cs {
		total = Merge(total, c)
	}
	return total
}

// AtomicCounters is the mutable form a single worker accumulates into while
// running; operations call its Add* methods rather than mutating Counters
// fields directly so the hot path never allocates and is immune to data
// races if a caller decides to read a snapshot concurrently (e.g. from a
// stats-reporting goroutine).
type AtomicCounters struct {
	created, deleted, softlinked, hardlinked, appended, written           uint64
	randomlyWritten, read, randomlyRead, renamed, truncated, remounted    uint64
	readdir, randomlyDiscarded                                           uint64
	readRequests, readBytes, randreadRequests, randreadBytes             uint64
	writeRequests, writeBytes, randwriteRequests, randwriteBytes         uint64
	randdiscardRequests, randdiscardBytes, fsyncs, fdatasyncs, dirsCreated uint64
	alreadyExists, fileNotFound, noDirSpace, noInodeSpace, noSpace       uint64
	notMounted, couldNotMount, couldNotUnmount, staleFH, dirNotFound     uint64
	totalErrors uint64
}

func (a *AtomicCounters) AddCreated()      { atomic.AddUint64(&a.created, 1) }
func (a *AtomicCounters) AddDeleted()      { atomic.AddUint64(&a.deleted, 1) }
func (a *AtomicCounters) AddSoftlinked()   { atomic.AddUint64(&a.softlinked, 1) }
func (a *AtomicCounters) AddHardlinked()   { atomic.AddUint64(&a.hardlinked, 1) }
func (a *AtomicCounters) AddAppended() {
	atomic.AddUint64(&a.appended, 1)
	atomic.AddUint64(&a.written, 1)
}
func (a *AtomicCounters) AddRandomlyWritten()   { atomic.AddUint64(&a.randomlyWritten, 1) }
func (a *AtomicCounters) AddRead()              { atomic.AddUint64(&a.read, 1) }
func (a *AtomicCounters) AddRandomlyRead()       { atomic.AddUint64(&a.randomlyRead, 1) }
func (a *AtomicCounters) AddRenamed()            { atomic.AddUint64(&a.renamed, 1) }
func (a *AtomicCounters) AddTruncated()          { atomic.AddUint64(&a.truncated, 1) }
func (a *AtomicCounters) AddRemounted()          { atomic.AddUint64(&a.remounted, 1) }
func (a *AtomicCounters) AddReaddir()            { atomic.AddUint64(&a.readdir, 1) }
func (a *AtomicCounters) AddRandomlyDiscarded()  { atomic.AddUint64(&a.randomlyDiscarded, 1) }

func (a *AtomicCounters) AddRead_(requests, bytes uint64) {
	atomic.AddUint64(&a.readRequests, requests)
	atomic.AddUint64(&a.readBytes, bytes)
}
func (a *AtomicCounters) AddRandread(requests, bytes uint64) {
	atomic.AddUint64(&a.randreadRequests, requests)
	atomic.AddUint64(&a.randreadBytes, bytes)
}
func (a *AtomicCounters) AddWrite(requests, bytes uint64) {
	atomic.AddUint64(&a.writeRequests, requests)
	atomic.AddUint64(&a.writeBytes, bytes)
}
func (a *AtomicCounters) AddRandwrite(requests, bytes uint64) {
	atomic.AddUint64(&a.randwriteRequests, requests)
	atomic.AddUint64(&a.randwriteBytes, bytes)
}
func (a *AtomicCounters) AddRanddiscard(requests, bytes uint64) {
	atomic.AddUint64(&a.randdiscardRequests, requests)
	atomic.AddUint64(&a.randdiscardBytes, bytes)
}
func (a *AtomicCounters) AddFsync()       { atomic.AddUint64(&a.fsyncs, 1) }
func (a *AtomicCounters) AddFdatasync()   { atomic.AddUint64(&a.fdatasyncs, 1) }
func (a *AtomicCounters) AddDirsCreated() { atomic.AddUint64(&a.dirsCreated, 1) }

func (a *AtomicCounters) AddAlreadyExists()   { atomic.AddUint64(&a.alreadyExists, 1) }
func (a *AtomicCounters) AddFileNotFound()    { atomic.AddUint64(&a.fileNotFound, 1) }
func (a *AtomicCounters) AddNoDirSpace()      { atomic.AddUint64(&a.noDirSpace, 1) }
func (a *AtomicCounters) AddNoInodeSpace()    { atomic.AddUint64(&a.noInodeSpace, 1) }
func (a *AtomicCounters) AddNoSpace()         { atomic.AddUint64(&a.noSpace, 1) }
func (a *AtomicCounters) AddNotMounted()      { atomic.AddUint64(&a.notMounted, 1) }
func (a *AtomicCounters) AddCouldNotMount()   { atomic.AddUint64(&a.couldNotMount, 1) }
func (a *AtomicCounters) AddCouldNotUnmount() { atomic.AddUint64(&a.couldNotUnmount, 1) }
func (a *AtomicCounters) AddStaleFH()         { atomic.AddUint64(&a.staleFH, 1) }
func (a *AtomicCounters) AddDirNotFound()     { atomic.AddUint64(&a.dirNotFound, 1) }
func (a *AtomicCounters) AddTotalError()      { atomic.AddUint64(&a.totalErrors, 1) }

// Snapshot reads every field with atomic loads and returns an immutable
// Counters, suitable for JSON encoding or merging. elapsed is stamped in by
// the caller, which owns the wall-clock start time.
func (a *AtomicCounters) Snapshot(elapsed float64) Counters {
	return Counters{
		Created:             atomic.LoadUint64(&a.created),
		Deleted:             atomic.LoadUint64(&a.deleted),
		Softlinked:          atomic.LoadUint64(&a.softlinked),
		Hardlinked:          atomic.LoadUint64(&a.hardlinked),
		Appended:            atomic.LoadUint64(&a.appended),
		Written:             atomic.LoadUint64(&a.written),
		RandomlyWritten:     atomic.LoadUint64(&a.randomlyWritten),
		Read:                atomic.LoadUint64(&a.read),
		RandomlyRead:        atomic.LoadUint64(&a.randomlyRead),
		Renamed:             atomic.LoadUint64(&a.renamed),
		Truncated:           atomic.LoadUint64(&a.truncated),
		Remounted:           atomic.LoadUint64(&a.remounted),
		Readdir:             atomic.LoadUint64(&a.readdir),
		RandomlyDiscarded:   atomic.LoadUint64(&a.randomlyDiscarded),
		ReadRequests:        atomic.LoadUint64(&a.readRequests),
		ReadBytes:           atomic.LoadUint64(&a.readBytes),
		RandreadRequests:    atomic.LoadUint64(&a.randreadRequests),
		RandreadBytes:       atomic.LoadUint64(&a.randreadBytes),
		WriteRequests:       atomic.LoadUint64(&a.writeRequests),
		WriteBytes:          atomic.LoadUint64(&a.writeBytes),
		RandwriteRequests:   atomic.LoadUint64(&a.randwriteRequests),
		RandwriteBytes:      atomic.LoadUint64(&a.randwriteBytes),
		RanddiscardRequests: atomic.LoadUint64(&a.randdiscardRequests),
		RanddiscardBytes:    atomic.LoadUint64(&a.randdiscardBytes),
		Fsyncs:              atomic.LoadUint64(&a.fsyncs),
		Fdatasyncs:          atomic.LoadUint64(&a.fdatasyncs),
		DirsCreated:         atomic.LoadUint64(&a.dirsCreated),
		AlreadyExists:       atomic.LoadUint64(&a.alreadyExists),
		FileNotFound:        atomic.LoadUint64(&a.fileNotFound),
		NoDirSpace:          atomic.LoadUint64(&a.noDirSpace),
		NoInodeSpace:        atomic.LoadUint64(&a.noInodeSpace),
		NoSpace:             atomic.LoadUint64(&a.noSpace),
		NotMounted:          atomic.LoadUint64(&a.notMounted),
		CouldNotMount:       atomic.LoadUint64(&a.couldNotMount),
		CouldNotUnmount:     atomic.LoadUint64(&a.couldNotUnmount),
		StaleFH:             atomic.LoadUint64(&a.staleFH),
		DirNotFound:         atomic.LoadUint64(&a.dirNotFound),
		ElapsedTime:         elapsed,
		TotalErrors:         atomic.LoadUint64(&a.totalErrors),
	}
}
