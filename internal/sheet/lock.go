package sheet

import (
	"context"
	"time"
)

// DefaultLockTimeout bounds lock acquisition when no value is configured.
const DefaultLockTimeout = 2 * time.Minute

// Locker is the process-wide mutual exclusion guarding the store. Every
// mutation's full read-check-write sequence runs inside one acquisition;
// acquiring for the read and re-acquiring for the write would let another
// writer invalidate the overlap check in between.
type Locker struct {
	token   chan struct{}
	timeout time.Duration
}

func NewLocker(timeout time.Duration) *Locker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	l := &Locker{token: make(chan struct{}, 1), timeout: timeout}
	l.token <- struct{}{}
	return l
}

// WithLock runs fn holding the lock. Waiting is bounded by the configured
// timeout and by ctx; once fn starts it is not cancellable. A timed-out
// caller gets ErrLockTimeout and must reissue the call itself.
func (l *Locker) WithLock(ctx context.Context, fn func() error) error {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	select {
	case <-l.token:
	case <-timer.C:
		return ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { l.token <- struct{}{} }()
	return fn()
}
