// ABOUTME: Day-keyed quota counters backed by the credential store
// ABOUTME: Keys are {kind}:{subject}:{YYYY-MM-DD} and expire after 24 hours

// Package quota counts events per subject per UTC calendar day.
//
// Counters live in a store.Store so they survive restarts and are shared
// between gateway instances that share a database. Each day gets a fresh
// key, and keys expire 24 hours after their first increment.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/2389/press-gateway/internal/store"
)

// Window is the lifetime of a counter key.
const Window = 24 * time.Hour

// Counter kinds used by the gateway.
const (
	KindRegistration = "reg-ip"
	KindSubmission   = "rate"
)

// Counter is a family of daily counters sharing a key prefix.
type Counter struct {
	store store.Store
	kind  string
	now   func() time.Time
}

// Option configures a Counter.
type Option func(*Counter)

// WithClock overrides the time source used to pick the day.
func WithClock(now func() time.Time) Option {
	return func(c *Counter) {
		c.now = now
	}
}

// NewCounter creates a counter family named kind.
func NewCounter(s store.Store, kind string, opts ...Option) *Counter {
	c := &Counter{store: s, kind: kind, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Day returns the UTC calendar day used in keys.
func (c *Counter) Day() string {
	return c.now().UTC().Format(time.DateOnly)
}

// Key returns today's key for subject.
func (c *Counter) Key(subject string) string {
	return fmt.Sprintf("%s:%s:%s", c.kind, subject, c.Day())
}

// Count returns today's count for subject; a missing counter is zero.
func (c *Counter) Count(ctx context.Context, subject string) (int64, error) {
	raw, err := c.store.Get(ctx, c.Key(subject))
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s counter: %w", c.kind, err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reading %s counter: %w", c.kind, store.ErrNotCounter)
	}
	return n, nil
}

// Increment adds one to today's count for subject and returns the new value.
func (c *Counter) Increment(ctx context.Context, subject string) (int64, error) {
	n, err := c.store.Incr(ctx, c.Key(subject), Window)
	if err != nil {
		return 0, fmt.Errorf("incrementing %s counter: %w", c.kind, err)
	}
	return n, nil
}
