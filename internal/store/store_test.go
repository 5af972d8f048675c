// ABOUTME: Behavioral tests shared by every Store implementation
// ABOUTME: Covers get/put, conditional puts, counters, expiry, concurrency and namespacing

package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/2389/press-gateway/internal/config"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storeFactory func(t *testing.T, clock *fakeClock) Store

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, clock *fakeClock) Store {
			return NewMemoryStore(WithClock(clock.Now))
		},
		"sqlite-modernc": func(t *testing.T, clock *fakeClock) Store {
			return newTestSQLiteStore(t, DriverModernc, clock)
		},
		"sqlite-cgo": func(t *testing.T, clock *fakeClock) Store {
			return newTestSQLiteStore(t, DriverCGO, clock)
		},
	}
}

func newTestSQLiteStore(t *testing.T, driver string, clock *fakeClock) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), driver)
	if err != nil {
		if driver == DriverCGO {
			t.Skipf("cgo sqlite driver unavailable: %v", err)
		}
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if clock != nil {
		s.now = clock.Now
	}
	return s
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store, clock *fakeClock)) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			s := factory(t, clock)
			defer s.Close()
			fn(t, s, clock)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		_, err := s.Get(context.Background(), "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_PutAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		if err := s.Put(ctx, "agent:abc", `{"name":"Scout"}`, 0); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get(ctx, "agent:abc")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != `{"name":"Scout"}` {
			t.Errorf("got %q", got)
		}

		if err := s.Put(ctx, "agent:abc", "replaced", 0); err != nil {
			t.Fatalf("second Put failed: %v", err)
		}
		got, _ = s.Get(ctx, "agent:abc")
		if got != "replaced" {
			t.Errorf("expected overwrite, got %q", got)
		}
	})
}

func TestStore_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		_ = s.Put(ctx, "k", "v", 0)
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Errorf("deleting a missing key should succeed, got %v", err)
		}
	})
}

func TestStore_PutIfAbsent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		ok, err := s.PutIfAbsent(ctx, "name:scout", "first", 0)
		if err != nil || !ok {
			t.Fatalf("first PutIfAbsent = %v, %v", ok, err)
		}
		ok, err = s.PutIfAbsent(ctx, "name:scout", "second", 0)
		if err != nil {
			t.Fatalf("second PutIfAbsent failed: %v", err)
		}
		if ok {
			t.Error("second PutIfAbsent should not win")
		}
		got, _ := s.Get(ctx, "name:scout")
		if got != "first" {
			t.Errorf("value changed to %q", got)
		}
	})
}

func TestStore_PutIfAbsentReplacesExpired(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		if ok, _ := s.PutIfAbsent(ctx, "k", "old", time.Hour); !ok {
			t.Fatal("initial PutIfAbsent should win")
		}
		clock.Advance(2 * time.Hour)
		ok, err := s.PutIfAbsent(ctx, "k", "new", 0)
		if err != nil || !ok {
			t.Fatalf("PutIfAbsent over expired = %v, %v", ok, err)
		}
		got, _ := s.Get(ctx, "k")
		if got != "new" {
			t.Errorf("got %q", got)
		}
	})
}

func TestStore_Expiry(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		_ = s.Put(ctx, "short", "v", time.Minute)
		_ = s.Put(ctx, "forever", "v", 0)

		clock.Advance(59 * time.Second)
		if _, err := s.Get(ctx, "short"); err != nil {
			t.Errorf("key expired early: %v", err)
		}

		clock.Advance(2 * time.Second)
		if _, err := s.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected expired key to be gone, got %v", err)
		}
		if _, err := s.Get(ctx, "forever"); err != nil {
			t.Errorf("key without ttl expired: %v", err)
		}
	})
}

func TestStore_Incr(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		for want := int64(1); want <= 3; want++ {
			got, err := s.Incr(ctx, "rate:k:2026-03-14", 24*time.Hour)
			if err != nil {
				t.Fatalf("Incr failed: %v", err)
			}
			if got != want {
				t.Errorf("Incr = %d, want %d", got, want)
			}
		}
		raw, _ := s.Get(ctx, "rate:k:2026-03-14")
		if raw != "3" {
			t.Errorf("stored counter = %q, want \"3\"", raw)
		}
	})
}

func TestStore_IncrRestartsAfterExpiry(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		_, _ = s.Incr(ctx, "c", time.Hour)
		_, _ = s.Incr(ctx, "c", time.Hour)

		clock.Advance(90 * time.Minute)
		got, err := s.Incr(ctx, "c", time.Hour)
		if err != nil {
			t.Fatalf("Incr failed: %v", err)
		}
		if got != 1 {
			t.Errorf("expected counter to restart at 1, got %d", got)
		}
	})
}

func TestStore_IncrConcurrent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		const workers = 25

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Incr(ctx, "hits", 0); err != nil {
					t.Errorf("Incr failed: %v", err)
				}
			}()
		}
		wg.Wait()

		raw, err := s.Get(ctx, "hits")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if raw != "25" {
			t.Errorf("counter = %s, want 25", raw)
		}
	})
}

func TestStore_PutIfAbsentConcurrent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		const workers = 20

		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.PutIfAbsent(ctx, "name:contested", "x", 0)
				if err != nil {
					t.Errorf("PutIfAbsent failed: %v", err)
					return
				}
				if ok {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if winners != 1 {
			t.Errorf("expected exactly one winner, got %d", winners)
		}
	})
}

func TestNamespaced(t *testing.T) {
	base := NewMemoryStore()
	defer base.Close()
	ctx := context.Background()

	ns := Namespaced(base, "press")
	if err := ns.Put(ctx, "agent:1", "v", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := base.Get(ctx, "agent:1"); !errors.Is(err, ErrNotFound) {
		t.Error("unprefixed key should not exist in base store")
	}
	got, err := base.Get(ctx, "press:agent:1")
	if err != nil || got != "v" {
		t.Errorf("base.Get(prefixed) = %q, %v", got, err)
	}

	n, err := ns.Incr(ctx, "rate", 0)
	if err != nil || n != 1 {
		t.Errorf("Incr = %d, %v", n, err)
	}

	if Namespaced(base, "") != Store(base) {
		t.Error("empty namespace should return the base store")
	}
}

func TestMemoryStore_IncrNonCounter(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_ = s.Put(ctx, "k", "not-a-number", 0)
	if _, err := s.Incr(ctx, "k", 0); !errors.Is(err, ErrNotCounter) {
		t.Errorf("expected ErrNotCounter, got %v", err)
	}
}

func TestMemoryStore_Len(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(WithClock(clock.Now))
	defer s.Close()
	ctx := context.Background()

	_ = s.Put(ctx, "a", "1", time.Second)
	_ = s.Put(ctx, "b", "2", 0)
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	clock.Advance(time.Minute)
	if s.Len() != 1 {
		t.Errorf("Len after expiry = %d, want 1", s.Len())
	}
}

func TestMemoryStore_CloseIdempotent(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestSQLiteStore_PurgeExpired(t *testing.T) {
	clock := newFakeClock()
	s := newTestSQLiteStore(t, DriverModernc, clock)
	defer s.Close()
	ctx := context.Background()

	_ = s.Put(ctx, "a", "1", time.Second)
	_ = s.Put(ctx, "b", "2", time.Second)
	_ = s.Put(ctx, "c", "3", 0)
	clock.Advance(time.Minute)

	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 2 {
		t.Errorf("purged %d rows, want 2", n)
	}
}

func TestSQLiteStore_UnknownDriver(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"), "oracle")
	if err == nil || !strings.Contains(err.Error(), "unsupported sqlite driver") {
		t.Errorf("expected unsupported driver error, got %v", err)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "press.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, "")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	_ = s.Put(ctx, "name:scout", "fp", 0)
	s.Close()

	s, err = NewSQLiteStore(path, "")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "name:scout")
	if err != nil || got != "fp" {
		t.Errorf("after reopen Get = %q, %v", got, err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "p.db"), Namespace: "press"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*namespaced); !ok {
		t.Errorf("expected namespaced store, got %T", s)
	}

	m, err := Open(ctx, config.DatabaseConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open memory failed: %v", err)
	}
	defer m.Close()
	if _, ok := m.(*MemoryStore); !ok {
		t.Errorf("expected bare MemoryStore without namespace, got %T", m)
	}

	if _, err := Open(ctx, config.DatabaseConfig{Driver: "redis"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
