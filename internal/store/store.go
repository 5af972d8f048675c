// ABOUTME: Store interface for the credential store plus the key namespace wrapper
// ABOUTME: Backends: MemoryStore, SQLStore (SQLite or PostgreSQL)

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired
var ErrNotFound = errors.New("not found")

// ErrNotCounter is returned when Incr meets a value that is not an integer
var ErrNotCounter = errors.New("value is not a counter")

// Store is a key/value map with optional per-key expiry.
// A ttl of zero means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// PutIfAbsent writes the key only if it is absent or expired.
	// It reports whether the write happened.
	PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Incr atomically adds one to an integer counter and returns the new value.
	// The ttl applies only when the counter is created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store
	Close() error
}

// namespaced prefixes every key with a fixed namespace.
type namespaced struct {
	inner  Store
	prefix string
}

// Namespaced returns a Store that prefixes every key with ns + ":".
// An empty namespace returns s unchanged.
func Namespaced(s Store, ns string) Store {
	if ns == "" {
		return s
	}
	return &namespaced{inner: s, prefix: ns + ":"}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return n.inner.Put(ctx, n.prefix+key, value, ttl)
}

func (n *namespaced) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return n.inner.PutIfAbsent(ctx, n.prefix+key, value, ttl)
}

func (n *namespaced) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return n.inner.Incr(ctx, n.prefix+key, ttl)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Close() error {
	return n.inner.Close()
}
