package logging

// Field names used consistently across the driver, coordinator and workers so
// log lines can be filtered/aggregated the same way regardless of which
// component emitted them.
const (
	FieldHost      = "host"
	FieldThread    = "thread"
	FieldOp        = "op"
	FieldPath      = "path"
	FieldErrno     = "errno"
	FieldCounter   = "counter"
	FieldDuration  = "duration_ms"
	FieldIteration = "iteration"
	FieldBytes     = "bytes"
	FieldOffset    = "offset"
	FieldSize      = "size"
	FieldCount     = "count"
	FieldNewPath   = "new_path"
	FieldIndex     = "index"
)
