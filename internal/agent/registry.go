// ABOUTME: Registry for agent registration, authentication and administration
// ABOUTME: Enforces per-address registration caps and per-agent daily quotas

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2389/press-gateway/internal/apierr"
	"github.com/2389/press-gateway/internal/auth"
	"github.com/2389/press-gateway/internal/config"
	"github.com/2389/press-gateway/internal/quota"
	"github.com/2389/press-gateway/internal/store"
)

// Registration is the result of a successful Register call. Credential is
// never available again.
type Registration struct {
	Name       string
	Credential string
	DailyLimit int
}

// Session is an authenticated agent and its quota position.
type Session struct {
	Agent       *Agent
	Fingerprint string
	QuotaKey    string
	Limit       int
	Count       int64 // submissions already made today
}

// Remaining returns the submissions left today after one more is recorded.
func (s *Session) Remaining() int {
	return s.Limit - int(s.Count) - 1
}

// Update changes administrative fields. Nil fields are left alone.
type Update struct {
	Active     *bool `json:"active,omitempty"`
	DailyLimit *int  `json:"daily_limit,omitempty"`
}

// Registry manages agents in a store.Store.
type Registry struct {
	store         store.Store
	registrations *quota.Counter
	submissions   *quota.Counter
	limits        config.LimitsConfig
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source for timestamps and quota days.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a Registry. limits supplies the registration cap and
// default daily limit.
func NewRegistry(s store.Store, limits config.LimitsConfig, opts ...Option) *Registry {
	r := &Registry{
		store:  s,
		limits: limits,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "registry")
	r.registrations = quota.NewCounter(s, quota.KindRegistration, quota.WithClock(r.now))
	r.submissions = quota.NewCounter(s, quota.KindSubmission, quota.WithClock(r.now))
	return r
}

// Register creates an agent named name for a caller at address.
func (r *Registry) Register(ctx context.Context, name, description, address string) (*Registration, error) {
	name = normalizeName(name)
	if utf8.RuneCountInString(name) < minNameLength {
		return nil, apierr.InvalidInput("Name required (min 2 characters)")
	}
	description = truncate(description, maxDescriptionLength)

	regCount, err := r.registrations.Count(ctx, address)
	if err != nil {
		return nil, err
	}
	if regCount >= int64(r.limits.RegistrationsPerDay) {
		r.logger.Info("registration refused", "reason", "address cap", "address", address)
		return nil, apierr.RateLimited(r.limits.RegistrationsPerDay, "Too many registrations from this IP today. Try tomorrow.")
	}

	nk := nameKey(name)
	if _, err := r.store.Get(ctx, nk); err == nil {
		return nil, errNameTaken()
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking name: %w", err)
	}

	credential, err := auth.GenerateCredential()
	if err != nil {
		return nil, err
	}
	fingerprint := auth.Fingerprint(credential)

	rec := &Agent{
		Name:        name,
		Description: description,
		Registered:  r.now().UTC(),
		DailyLimit:  r.limits.DefaultDailyLimit,
		Active:      true,
	}
	if err := r.putAgent(ctx, fingerprint, rec); err != nil {
		return nil, err
	}

	won, err := r.store.PutIfAbsent(ctx, nk, fingerprint, 0)
	if err != nil {
		r.discardAgent(ctx, fingerprint)
		return nil, fmt.Errorf("reserving name: %w", err)
	}
	if !won {
		// Another registration took the name between the check and now
		r.discardAgent(ctx, fingerprint)
		return nil, errNameTaken()
	}

	if _, err := r.registrations.Increment(ctx, address); err != nil {
		// The agent exists and owns its name; a missed bump only under-counts
		r.logger.Warn("failed to count registration", "address", address, "error", err)
	}

	r.logger.Info("agent registered", "name", name, "address", address)
	return &Registration{Name: name, Credential: credential, DailyLimit: rec.DailyLimit}, nil
}

// Authenticate resolves an Authorization header to an active agent with
// quota remaining. It does not charge the quota.
func (r *Registry) Authenticate(ctx context.Context, authorization string) (*Session, error) {
	credential, err := auth.ExtractBearerToken(authorization)
	if errors.Is(err, auth.ErrMissingToken) {
		return nil, apierr.Unauthenticated("Missing API key")
	}
	if err != nil {
		return nil, apierr.Unauthenticated("Invalid API key")
	}

	fingerprint := auth.Fingerprint(credential)
	rec, err := r.getAgent(ctx, fingerprint)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apierr.Unauthenticated("Invalid API key")
	}
	if err != nil {
		return nil, err
	}

	if !rec.Active {
		return nil, apierr.Forbidden("Agent suspended")
	}

	limit := r.effectiveLimit(rec)
	count, err := r.submissions.Count(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if count >= int64(limit) {
		return nil, apierr.RateLimited(limit, fmt.Sprintf("Daily limit reached (%d stories/day). Try tomorrow.", limit))
	}

	return &Session{
		Agent:       rec,
		Fingerprint: fingerprint,
		QuotaKey:    r.submissions.Key(fingerprint),
		Limit:       limit,
		Count:       count,
	}, nil
}

// RecordSubmission charges one submission to the session's daily quota.
func (r *Registry) RecordSubmission(ctx context.Context, sess *Session) (int64, error) {
	return r.submissions.Increment(ctx, sess.Fingerprint)
}

// Lookup returns the agent holding name (case-insensitive).
func (r *Registry) Lookup(ctx context.Context, name string) (*Agent, error) {
	_, rec, err := r.lookup(ctx, name)
	return rec, err
}

// Update applies u to the agent holding name and returns the new record.
// DailyLimit is clamped to [1, max_daily_limit].
func (r *Registry) Update(ctx context.Context, name string, u Update) (*Agent, error) {
	fingerprint, rec, err := r.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	if u.Active != nil {
		rec.Active = *u.Active
	}
	if u.DailyLimit != nil {
		rec.DailyLimit = min(max(*u.DailyLimit, 1), r.limits.MaxDailyLimit)
	}

	if err := r.putAgent(ctx, fingerprint, rec); err != nil {
		return nil, err
	}
	r.logger.Info("agent updated", "name", rec.Name, "active", rec.Active, "daily_limit", rec.DailyLimit)
	return rec, nil
}

// SubmissionsToday returns how many stories the agent holding name has
// published today.
func (r *Registry) SubmissionsToday(ctx context.Context, name string) (int64, error) {
	fingerprint, _, err := r.lookup(ctx, name)
	if err != nil {
		return 0, err
	}
	return r.submissions.Count(ctx, fingerprint)
}

func (r *Registry) lookup(ctx context.Context, name string) (string, *Agent, error) {
	name = strings.TrimSpace(name)
	fingerprint, err := r.store.Get(ctx, nameKey(name))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, apierr.NotFound("Agent not found")
	}
	if err != nil {
		return "", nil, fmt.Errorf("resolving name: %w", err)
	}

	rec, err := r.getAgent(ctx, fingerprint)
	if errors.Is(err, store.ErrNotFound) {
		// Reservation without a record: a registration died between writes
		return "", nil, apierr.NotFound("Agent not found")
	}
	if err != nil {
		return "", nil, err
	}
	return fingerprint, rec, nil
}

func (r *Registry) effectiveLimit(rec *Agent) int {
	if rec.DailyLimit > 0 {
		return rec.DailyLimit
	}
	return r.limits.DefaultDailyLimit
}

func (r *Registry) getAgent(ctx context.Context, fingerprint string) (*Agent, error) {
	raw, err := r.store.Get(ctx, agentKey(fingerprint))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reading agent: %w", err)
	}
	var rec Agent
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decoding agent record: %w", err)
	}
	return &rec, nil
}

func (r *Registry) putAgent(ctx context.Context, fingerprint string, rec *Agent) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding agent record: %w", err)
	}
	if err := r.store.Put(ctx, agentKey(fingerprint), string(data), 0); err != nil {
		return fmt.Errorf("writing agent record: %w", err)
	}
	return nil
}

func (r *Registry) discardAgent(ctx context.Context, fingerprint string) {
	if err := r.store.Delete(ctx, agentKey(fingerprint)); err != nil {
		r.logger.Warn("failed to remove orphaned agent record", "error", err)
	}
}

func errNameTaken() error {
	return apierr.NameTaken("Agent name already taken. Choose another.")
}
