package acquire

import (
	"context"
	"errors"
	"time"
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry calls fn up to maxRetries+1 times, waiting backoff*attempt between
// attempts. It stops early on success, a permanent error or a cancelled
// context, and returns the number of attempts made.
func Retry(ctx context.Context, maxRetries int, backoff time.Duration, sleep func(context.Context, time.Duration) error, fn func(attempt int) error) (int, error) {
	if sleep == nil {
		sleep = sleepCtx
	}
	var err error
	attempt := 0
	for attempt < maxRetries+1 {
		attempt++
		if err = fn(attempt); err == nil || IsPermanent(err) {
			return attempt, err
		}
		if ctx.Err() != nil {
			return attempt, err
		}
		if attempt <= maxRetries {
			if werr := sleep(ctx, backoff*time.Duration(attempt)); werr != nil {
				return attempt, err
			}
		}
	}
	return attempt, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
