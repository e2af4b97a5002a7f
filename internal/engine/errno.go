package engine

import (
	"errors"
	"os"
	"syscall"
)

// spaceKind distinguishes the three different counters an ENOSPC can map
// to, per the operation contracts' errno table: a directory-entry
// allocation failure while creating a parent directory, an inode
// allocation failure during open(CREAT)/symlink/link/rename, or ordinary
// data-block exhaustion during a write.
type spaceKind int

const (
	spaceData spaceKind = iota
	spaceDir
	spaceInode
)

// classify maps a raw filesystem error to the counter it bumps, per the
// operation contracts' errno table. tolerateStale controls whether ESTALE
// is absorbed into StaleFH (true) or falls through unclassified (false) —
// with tolerate_stale_file_handles off, a stale handle is a real failure
// the operator wants to see in total_errors.
//
// The return value reports whether the error was recognized at all; an
// unrecognized error should bump TotalErrors instead.
func classify(err error, isDir bool, space spaceKind, tolerateStale bool, c *AtomicCounters) bool {
	if err == nil {
		return true
	}

	var errno syscall.Errno
	if !errors.As(err, &errno) {
		if os.IsNotExist(err) {
			if isDir {
				c.AddDirNotFound()
			} else {
				c.AddFileNotFound()
			}
			return true
		}
		if os.IsExist(err) {
			c.AddAlreadyExists()
			return true
		}
		return false
	}

	switch errno {
	case syscall.ENOENT:
		if isDir {
			c.AddDirNotFound()
		} else {
			c.AddFileNotFound()
		}
		return true
	case syscall.EEXIST:
		c.AddAlreadyExists()
		return true
	case syscall.ENOSPC:
		switch space {
		case spaceDir:
			c.AddNoDirSpace()
		case spaceInode:
			c.AddNoInodeSpace()
		default:
			c.AddNoSpace()
		}
		return true
	case syscall.EDQUOT:
		c.AddNoSpace()
		return true
	case syscall.ENOTDIR:
		c.AddDirNotFound()
		return true
	// EMLINK surfaces on directory-fanout overflow; it is counted as
	// inode-space exhaustion since it means the namespace can't absorb
	// another entry. ENOTEMPTY is not classified.
	case syscall.EMLINK:
		c.AddNoInodeSpace()
		return true
	case syscall.ESTALE:
		if tolerateStale {
			c.AddStaleFH()
			return true
		}
		return false
	case syscall.ENOTCONN, syscall.ESHUTDOWN:
		c.AddNotMounted()
		return true
	default:
		return false
	}
}
