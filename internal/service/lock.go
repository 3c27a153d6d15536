package service

import (
	"context"
	"fmt"
	"time"
)

// Locker serializes matching runs for the same conference and lunch date.
type Locker interface {
	// Acquire tries to take key for ttl. ok is false if another holder owns
	// it. The returned unlock func releases the lock only if still held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// NoopLocker always grants the lock.
type NoopLocker struct{}

// Acquire implements Locker.
func (NoopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

// RunLockKey returns the lock key of a matching run.
func RunLockKey(conferenceID, lunchDate string) string {
	return fmt.Sprintf("powerlunch:match:%s:%s", conferenceID, lunchDate)
}
