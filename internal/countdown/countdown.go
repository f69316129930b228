// Package countdown keeps timers as absolute expiry timestamps so that a
// restarted process resumes them instead of starting over.
package countdown

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Store persists expiry timestamps. Implementations may drop a key once
// its ttl has passed.
type Store interface {
	SetExpiry(ctx context.Context, key string, expiresAt time.Time, ttl time.Duration) error
	// SetExpiryIfIdle stores expiresAt only when key holds no countdown
	// that is still running at now. The check and the write are atomic.
	SetExpiryIfIdle(ctx context.Context, key string, expiresAt, now time.Time, ttl time.Duration) (bool, error)
	// GetExpiry reports ok=false when no countdown is stored.
	GetExpiry(ctx context.Context, key string) (expiresAt time.Time, ok bool, err error)
	Delete(ctx context.Context, key string) error
}

type Countdown struct {
	store Store
	now   func() time.Time
}

type Option func(*Countdown)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Countdown) { c.now = now }
}

func New(store Store, opts ...Option) *Countdown {
	c := &Countdown{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start (re)starts the countdown under key and returns its expiry.
func (c *Countdown) Start(ctx context.Context, key string, duration time.Duration) (time.Time, error) {
	if duration <= 0 {
		return time.Time{}, fmt.Errorf("countdown %s: duration must be positive", key)
	}
	// stored at millisecond precision
	expiresAt := c.now().Add(duration).Truncate(time.Millisecond)
	if err := c.store.SetExpiry(ctx, key, expiresAt, duration); err != nil {
		return time.Time{}, fmt.Errorf("start countdown %s: %w", key, err)
	}
	return expiresAt, nil
}

// StartIfIdle starts the countdown only when none is running under key.
// ok is false when another countdown still holds the key.
func (c *Countdown) StartIfIdle(ctx context.Context, key string, duration time.Duration) (expiresAt time.Time, ok bool, err error) {
	if duration <= 0 {
		return time.Time{}, false, fmt.Errorf("countdown %s: duration must be positive", key)
	}
	now := c.now()
	expiresAt = now.Add(duration).Truncate(time.Millisecond)
	ok, err = c.store.SetExpiryIfIdle(ctx, key, expiresAt, now, duration)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("start countdown %s: %w", key, err)
	}
	return expiresAt, ok, nil
}

// Remaining returns the whole seconds left, rounded up, and the expiry.
// A missing or elapsed countdown yields 0.
func (c *Countdown) Remaining(ctx context.Context, key string) (int, time.Time, error) {
	expiresAt, ok, err := c.store.GetExpiry(ctx, key)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("read countdown %s: %w", key, err)
	}
	if !ok {
		return 0, time.Time{}, nil
	}
	return secondsLeft(expiresAt.Sub(c.now())), expiresAt, nil
}

func (c *Countdown) Cancel(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("cancel countdown %s: %w", key, err)
	}
	return nil
}

func secondsLeft(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
