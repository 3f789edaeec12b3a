package health

import (
	"context"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-faster/errors"
)

// ErrUnavailable is returned by WaitUntil when the dependency never answered.
var ErrUnavailable = errors.New("backend unavailable")

// UnavailableError reports a dependency that failed every WaitUntil attempt.
// It matches ErrUnavailable and unwraps to the last check error.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return ErrUnavailable.Error() + " after " + strconv.Itoa(e.Attempts) + " attempts: " + e.Err.Error()
}

// Is reports whether target is ErrUnavailable.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func (e *UnavailableError) Unwrap() error { return e.Err }

// KeepAlive starts a single-check Prober that pings check immediately and then
// every interval until Stop is called or ctx is cancelled. The returned
// Prober is the handle used to stop the cycle at teardown.
func KeepAlive(ctx context.Context, interval, timeout time.Duration, check CheckFunc) *Prober {
	p := New()
	p.Add("keepalive", timeout, check)
	p.Start(ctx, interval)
	return p
}

// WaitUntil calls check up to attempts times, sleeping delay between calls,
// and returns nil on the first success. When every attempt fails it returns
// an *UnavailableError wrapping the last check error.
func WaitUntil(ctx context.Context, attempts int, delay time.Duration, check CheckFunc) error {
	attempts = max(attempts, 1)
	op := func() (struct{}, error) {
		return struct{}{}, check(ctx)
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(uint(attempts)),
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return errors.Wrap(ctx.Err(), "wait for backend")
	default:
		return &UnavailableError{Attempts: attempts, Err: err}
	}
}
