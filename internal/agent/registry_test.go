// ABOUTME: Tests for agent registration, authentication and administration
// ABOUTME: Uses the in-memory store with a controllable clock

package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/press-gateway/internal/apierr"
	"github.com/2389/press-gateway/internal/auth"
	"github.com/2389/press-gateway/internal/config"
	"github.com/2389/press-gateway/internal/store"
)

// testClock is a mutable time source shared by the store and registry.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{
		DefaultDailyLimit:   10,
		MaxDailyLimit:       100,
		RegistrationsPerDay: 5,
		Categories:          config.DefaultCategories,
	}
}

func newTestRegistry(t *testing.T) (*Registry, *store.MemoryStore, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore(store.WithClock(clock.Now))
	t.Cleanup(func() { s.Close() })
	return NewRegistry(s, testLimits(), WithClock(clock.Now)), s, clock
}

func requireKind(t *testing.T, err error, kind apierr.Kind) *apierr.Error {
	t.Helper()
	require.Error(t, err)
	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr), "expected *apierr.Error, got %T: %v", err, err)
	require.Equal(t, kind, apiErr.Kind, "message: %s", apiErr.Message)
	return apiErr
}

func TestRegister_Success(t *testing.T) {
	reg, s, _ := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Register(ctx, "  Scout  ", "Covers tech", "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "Scout", res.Name)
	assert.Equal(t, 10, res.DailyLimit)
	assert.True(t, strings.HasPrefix(res.Credential, auth.CredentialPrefix))

	// The credential itself never reaches the store
	fp := auth.Fingerprint(res.Credential)
	_, err = s.Get(ctx, "agent:"+res.Credential)
	assert.ErrorIs(t, err, store.ErrNotFound)

	owner, err := s.Get(ctx, "name:scout")
	require.NoError(t, err)
	assert.Equal(t, fp, owner)

	count, err := s.Get(ctx, "reg-ip:203.0.113.7:2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, "1", count)

	rec, err := reg.Lookup(ctx, "SCOUT")
	require.NoError(t, err)
	assert.Equal(t, "Covers tech", rec.Description)
	assert.True(t, rec.Active)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), rec.Registered)
}

func TestRegister_DistinctCredentials(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "Alpha", "", "198.51.100.1")
	require.NoError(t, err)
	b, err := reg.Register(ctx, "Bravo", "", "198.51.100.2")
	require.NoError(t, err)

	assert.NotEqual(t, a.Credential, b.Credential)
}

func TestRegister_NameValidation(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"", " ", "x", "  y  "} {
		_, err := reg.Register(ctx, name, "", "198.51.100.1")
		apiErr := requireKind(t, err, apierr.KindInvalidInput)
		assert.Equal(t, "Name required (min 2 characters)", apiErr.Message)
	}

	long := strings.Repeat("ñ", 80)
	res, err := reg.Register(ctx, long, strings.Repeat("d", 500), "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ñ", 50), res.Name)

	rec, err := reg.Lookup(ctx, res.Name)
	require.NoError(t, err)
	assert.Len(t, rec.Description, 200)
}

func TestRegister_NameTakenCaseInsensitive(t *testing.T) {
	reg, s, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "Scout", "", "198.51.100.1")
	require.NoError(t, err)

	_, err = reg.Register(ctx, "sCoUt", "", "198.51.100.2")
	apiErr := requireKind(t, err, apierr.KindNameTaken)
	assert.Equal(t, "Agent name already taken. Choose another.", apiErr.Message)

	// The refused attempt did not count against its address
	_, err = s.Get(ctx, "reg-ip:198.51.100.2:2026-03-14")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegister_AddressCap(t *testing.T) {
	reg, _, clock := newTestRegistry(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := reg.Register(ctx, "Agent"+string(rune('A'+i)), "", "203.0.113.9")
		require.NoError(t, err)
	}

	_, err := reg.Register(ctx, "AgentF", "", "203.0.113.9")
	apiErr := requireKind(t, err, apierr.KindRateLimited)
	assert.Equal(t, "Too many registrations from this IP today. Try tomorrow.", apiErr.Message)

	_, err = reg.Lookup(ctx, "AgentF")
	requireKind(t, err, apierr.KindNotFound)

	// Another address is unaffected
	_, err = reg.Register(ctx, "Elsewhere", "", "203.0.113.10")
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	_, err = reg.Register(ctx, "AgentF", "", "203.0.113.9")
	require.NoError(t, err)
}

func TestRegister_ReservationRaceCompensates(t *testing.T) {
	reg, s, _ := newTestRegistry(t)
	ctx := context.Background()

	racing := &racingStore{MemoryStore: s, steal: "name:scout"}
	reg.store = racing

	_, err := reg.Register(ctx, "Scout", "", "198.51.100.1")
	requireKind(t, err, apierr.KindNameTaken)

	// Only the stolen reservation remains; the losing record was removed
	assert.Equal(t, 1, s.Len())
}

// racingStore simulates a concurrent registration claiming a name between
// the availability check and the reservation.
type racingStore struct {
	*store.MemoryStore
	steal string
}

func (r *racingStore) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if key == r.steal {
		_ = r.MemoryStore.Put(ctx, key, "someone-else", 0)
	}
	return r.MemoryStore.PutIfAbsent(ctx, key, value, ttl)
}

func TestRegister_ConcurrentSameName(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.Register(ctx, "Contested", "", "198.51.100."+string(rune('0'+i)))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		requireKind(t, err, apierr.KindNameTaken)
	}
	assert.Equal(t, 1, wins)
}

func TestAuthenticate(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Register(ctx, "Scout", "", "198.51.100.1")
	require.NoError(t, err)

	sess, err := reg.Authenticate(ctx, "Bearer "+res.Credential)
	require.NoError(t, err)
	assert.Equal(t, "Scout", sess.Agent.Name)
	assert.Equal(t, 10, sess.Limit)
	assert.Zero(t, sess.Count)
	assert.Equal(t, 9, sess.Remaining())
	assert.Equal(t, "rate:"+auth.Fingerprint(res.Credential)+":2026-03-14", sess.QuotaKey)
}

func TestAuthenticate_Failures(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Missing API key"},
		{"empty bearer", "Bearer   ", "Missing API key"},
		{"unknown credential", "Bearer pp_doesnotexist", "Invalid API key"},
		{"wrong scheme", "Token pp_doesnotexist", "Invalid API key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Authenticate(ctx, tt.header)
			apiErr := requireKind(t, err, apierr.KindUnauthenticated)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestAuthenticate_Suspended(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Register(ctx, "Scout", "", "198.51.100.1")
	require.NoError(t, err)

	suspended := false
	_, err = reg.Update(ctx, "scout", Update{Active: &suspended})
	require.NoError(t, err)

	_, err = reg.Authenticate(ctx, "Bearer "+res.Credential)
	apiErr := requireKind(t, err, apierr.KindForbidden)
	assert.Equal(t, "Agent suspended", apiErr.Message)
}

func TestAuthenticate_DailyLimit(t *testing.T) {
	reg, _, clock := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Register(ctx, "Scout", "", "198.51.100.1")
	require.NoError(t, err)
	limit := 3
	_, err = reg.Update(ctx, "Scout", Update{DailyLimit: &limit})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		sess, err := reg.Authenticate(ctx, "Bearer "+res.Credential)
		require.NoError(t, err)
		assert.Equal(t, int64(i), sess.Count)
		n, err := reg.RecordSubmission(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), n)
	}

	_, err = reg.Authenticate(ctx, "Bearer "+res.Credential)
	apiErr := requireKind(t, err, apierr.KindRateLimited)
	assert.Equal(t, 3, apiErr.Limit)
	assert.Equal(t, "Daily limit reached (3 stories/day). Try tomorrow.", apiErr.Message)

	clock.Advance(24 * time.Hour)
	_, err = reg.Authenticate(ctx, "Bearer "+res.Credential)
	require.NoError(t, err)
}

func TestAuthenticate_ZeroLimitUsesDefault(t *testing.T) {
	reg, s, _ := newTestRegistry(t)
	ctx := context.Background()

	cred := "pp_legacy"
	require.NoError(t, s.Put(ctx, "agent:"+auth.Fingerprint(cred), `{"name":"Legacy","active":true}`, 0))

	sess, err := reg.Authenticate(ctx, "Bearer "+cred)
	require.NoError(t, err)
	assert.Equal(t, 10, sess.Limit)
}

func TestUpdate(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "Scout", "", "198.51.100.1")
	require.NoError(t, err)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"within range", 25, 25},
		{"clamped high", 5000, 100},
		{"clamped low", 0, 1},
		{"negative", -4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit := tt.limit
			rec, err := reg.Update(ctx, "Scout", Update{DailyLimit: &limit})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.DailyLimit)
		})
	}

	_, err = reg.Update(ctx, "Nobody", Update{})
	requireKind(t, err, apierr.KindNotFound)
}

func TestSubmissionsToday(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Register(ctx, "Scout", "", "198.51.100.1")
	require.NoError(t, err)
	sess, err := reg.Authenticate(ctx, "Bearer "+res.Credential)
	require.NoError(t, err)
	_, err = reg.RecordSubmission(ctx, sess)
	require.NoError(t, err)

	n, err := reg.SubmissionsToday(ctx, "scout")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestParseRegisterRequest(t *testing.T) {
	req, err := ParseRegisterRequest([]byte(`{"name":"Scout","description":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, RegisterRequest{Name: "Scout", Description: "hi"}, req)

	req, err = ParseRegisterRequest([]byte(`{"name":42}`))
	require.NoError(t, err)
	assert.Empty(t, req.Name)

	_, err = ParseRegisterRequest([]byte(`{"name":"Scout","description":7}`))
	requireKind(t, err, apierr.KindInvalidInput)

	for _, body := range []string{`not json`, `null`, `[]`, ``} {
		_, err = ParseRegisterRequest([]byte(body))
		apiErr := requireKind(t, err, apierr.KindInvalidInput)
		assert.Equal(t, "Invalid JSON", apiErr.Message)
	}
}
