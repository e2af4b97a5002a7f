package engine

// Verbosity bit values gate per-operation debug tracing. Each operation
// family owns a distinct bit, the same scheme fs-drift's fsop.py used (see
// its verbosity & 0x... checks in read/random_read/create/append/
// random_write/truncate/link/hlink), so an operator can enable exactly the
// traces they need without flooding the log with every operation's output.
const (
	VerbosityEvent       uint64 = 0x1     // dispatched event selection
	VerbosityFilenameGen uint64 = 0x20    // filename/index generation, gaussian drift
	VerbosityCreate      uint64 = 0x1000
	VerbosityRandomRead  uint64 = 0x2000
	VerbosityRead        uint64 = 0x4000
	VerbosityAppend      uint64 = 0x8000
	VerbosityLink        uint64 = 0x10000 // softlink and hardlink
	VerbosityRandomWrite uint64 = 0x20000 // also covers delete, rename, write
	VerbosityTruncate    uint64 = 0x40000
)
