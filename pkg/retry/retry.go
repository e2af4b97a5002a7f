// Package retry provides exponential backoff for operations against the
// network-shared directory that are expected to succeed only after a short,
// bounded delay — most notably reading a per-host result file that a remote
// host just renamed into place, where NFS client-side attribute caching can
// make the file briefly invisible to a lstat/open from the driver.
package retry

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/auriora/fsdrive/internal/errors"
	"github.com/auriora/fsdrive/internal/logging"
)

// Func is an operation that may need a few attempts before it succeeds.
type Func func() error

// FuncWithResult is the same, but yields a value on success.
type FuncWithResult[T any] func() (T, error)

// ShouldRetry decides whether a given error is worth retrying.
type ShouldRetry func(error) bool

// Config controls the backoff schedule.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
	Retryable    ShouldRetry
}

// NFSVisibility is the backoff the coordinator uses when reading a
// just-written result file: six retries starting at 100ms, growing 1.6x per
// retry and capped at 400ms, about 1.7s of waiting in all (plus up to 20%
// jitter per wait) before giving up on a host.
func NFSVisibility() Config {
	return Config{
		MaxRetries:   6,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     400 * time.Millisecond,
		Multiplier:   1.6,
		Jitter:       0.2,
		Retryable:    IsNotYetVisible,
	}
}

// IsNotYetVisible matches the errors a stat/open against a file another host
// just renamed into place can transiently return. A not-found error is
// recognized anywhere in a wrap chain.
func IsNotYetVisible(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// Do retries op until it succeeds, ctx is canceled, or retries are exhausted.
func Do(ctx context.Context, op Func, cfg Config) error {
	_, err := DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	}, cfg)
	return err
}

// DoWithResult is Do for an operation that also produces a value.
func DoWithResult[T any](ctx context.Context, op FuncWithResult[T], cfg Config) (T, error) {
	delay := cfg.InitialDelay
	var result T
	var err error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err = op()
		if err == nil {
			return result, nil
		}

		retryable := cfg.Retryable
		if retryable == nil {
			retryable = IsNotYetVisible
		}
		if !retryable(err) || attempt == cfg.MaxRetries {
			return result, err
		}

		jitter := time.Duration(rand.Float64() * cfg.Jitter * float64(delay))
		wait := delay + jitter

		logging.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Int("maxRetries", cfg.MaxRetries).
			Dur("delay", wait).
			Msg("retrying shared-directory read")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			var zero T
			return zero, errors.Wrap(ctx.Err(), "retry canceled")
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return result, err
}
