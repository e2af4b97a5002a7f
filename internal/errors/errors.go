// Package errors provides the error wrapping helpers and the typed
// configuration/driver fault used across fsdrive. Classified filesystem
// errnos (ENOENT, EEXIST, ...) are not represented here: those are
// translated directly into counter increments by the engine package,
// per the error taxonomy in the operation contracts.
package errors

import (
	"errors"
	"fmt"
)

func Unwrap(err error) error                 { return errors.Unwrap(err) }
func Is(err, target error) bool              { return errors.Is(err, target) }
func As(err error, target interface{}) bool  { return errors.As(err, target) }
func New(message string) error               { return errors.New(message) }

func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// FaultKind distinguishes the driver-level faults that stop a run or a
// worker: a configuration fault, a rendezvous timeout, or an abort.
// Classified and unclassified filesystem errors are not Faults; the engine
// absorbs them into counters (an error counter or total_errors) and the
// worker continues.
type FaultKind int

const (
	// FaultConfig covers bad parameters, unparseable weight tables, unknown
	// opnames, and a missing mount command when remount is enabled.
	FaultConfig FaultKind = iota
	// FaultRendezvous covers a multi-host starting-gate timeout.
	FaultRendezvous
	// FaultAbort covers a driver- or operator-initiated abort.
	FaultAbort
)

func (k FaultKind) String() string {
	switch k {
	case FaultConfig:
		return "ConfigError"
	case FaultRendezvous:
		return "RendezvousTimeout"
	case FaultAbort:
		return "Aborted"
	default:
		return "Fault"
	}
}

// Fault is a typed driver-level error. The coordinator and parameter loader
// raise these to exit NOTOK without ever starting (or while tearing down)
// workers.
type Fault struct {
	Kind    FaultKind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

func NewConfigFault(message string, err error) error {
	return &Fault{Kind: FaultConfig, Message: message, Err: err}
}

func NewRendezvousFault(message string, err error) error {
	return &Fault{Kind: FaultRendezvous, Message: message, Err: err}
}

func NewAbortFault(message string) error {
	return &Fault{Kind: FaultAbort, Message: message}
}

// IsConfigFault reports whether err is a configuration/parameter fault.
func IsConfigFault(err error) bool {
	var f *Fault
	return As(err, &f) && f.Kind == FaultConfig
}

// IsRendezvousFault reports whether err is a starting-gate timeout.
func IsRendezvousFault(err error) bool {
	var f *Fault
	return As(err, &f) && f.Kind == FaultRendezvous
}
