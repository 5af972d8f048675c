// ABOUTME: Publisher runs the submission pipeline and the listing read path
// ABOUTME: Quota is charged only after the content repository accepted the commit

package story

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/2389/press-gateway/internal/agent"
	"github.com/2389/press-gateway/internal/apierr"
	"github.com/2389/press-gateway/internal/cache"
	"github.com/2389/press-gateway/internal/content"
)

const (
	// ListLimit is how many of the newest story files List returns.
	ListLimit = 20

	// defaultFetchConcurrency bounds parallel file reads in List.
	defaultFetchConcurrency = 8
)

// Authenticator resolves credentials and charges quota. *agent.Registry
// implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*agent.Session, error)
	RecordSubmission(ctx context.Context, sess *agent.Session) (int64, error)
}

// Result describes a published story.
type Result struct {
	Title          string
	Path           string
	URL            string
	RemainingToday int
}

// Publisher publishes and lists stories in a content repository.
type Publisher struct {
	auth          Authenticator
	repo          content.Repository
	categories    []string
	publicBaseURL string
	concurrency   int
	now           func() time.Time
	logger        *slog.Logger

	// listCache holds the last listing; listGen is bumped on every publish
	// so listings started before it are neither shared nor cached.
	listTTL   time.Duration
	listCache *cache.Cache[[]Summary]
	listGen   atomic.Uint64
	listGroup singleflight.Group
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock overrides the publication time source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithLogger sets the publisher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithFetchConcurrency bounds parallel reads during List.
func WithFetchConcurrency(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithListCache keeps listings for ttl between repository reads. A
// successful Submit invalidates the cached listing. Zero disables caching.
func WithListCache(ttl time.Duration) Option {
	return func(p *Publisher) {
		p.listTTL = ttl
	}
}

// NewPublisher creates a Publisher. publicBaseURL prefixes story page URLs.
func NewPublisher(auth Authenticator, repo content.Repository, categories []string, publicBaseURL string, opts ...Option) *Publisher {
	p := &Publisher{
		auth:          auth,
		repo:          repo,
		categories:    categories,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		concurrency:   defaultFetchConcurrency,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.listTTL > 0 {
		p.listCache = cache.New[[]Summary](p.listTTL, 1)
	}
	p.logger = p.logger.With("component", "publisher")
	return p
}

// Close releases the listing cache.
func (p *Publisher) Close() {
	if p.listCache != nil {
		p.listCache.Close()
	}
}

// Submit authenticates the caller, validates body and publishes the story.
func (p *Publisher) Submit(ctx context.Context, authorization string, body []byte) (*Result, error) {
	sess, err := p.auth.Authenticate(ctx, authorization)
	if err != nil {
		return nil, err
	}

	sub, err := ParseSubmission(body, p.categories)
	if err != nil {
		return nil, err
	}

	now := p.now()
	doc := sub.Sanitize(sess.Agent.Name, now)
	slug := Slugify(doc.Title)
	path := Path(slug, now)

	data, err := doc.Marshal()
	if err != nil {
		return nil, err
	}

	if err := p.repo.PutFile(ctx, path, data, "Add story: "+doc.Title); err != nil {
		p.logger.Error("story commit failed", "writer", doc.Writer, "path", path, "error", err)
		return nil, apierr.Upstream("Story commit failed", err)
	}

	p.listGen.Add(1)

	if _, err := p.auth.RecordSubmission(ctx, sess); err != nil {
		// The story is live; failing the request would invite a duplicate retry
		p.logger.Warn("failed to charge submission quota", "writer", doc.Writer, "error", err)
	}

	p.logger.Info("story published", "writer", doc.Writer, "path", path, "category", doc.Category)
	return &Result{
		Title:          doc.Title,
		Path:           path,
		URL:            p.StoryURL(slug),
		RemainingToday: sess.Remaining(),
	}, nil
}

// StoryURL returns the public page URL for slug.
func (p *Publisher) StoryURL(slug string) string {
	return p.publicBaseURL + "/story-" + slug + ".html"
}

// List returns summaries of the newest ListLimit stories in repository order.
func (p *Publisher) List(ctx context.Context) ([]Summary, error) {
	if p.listCache == nil {
		return p.list(ctx)
	}

	key := "list:" + strconv.FormatUint(p.listGen.Load(), 10)
	if summaries, ok := p.listCache.Get(key); ok {
		return slices.Clone(summaries), nil
	}

	// Concurrent callers share one repository read; it must not be cut
	// short by whichever caller happened to start it.
	v, err, _ := p.listGroup.Do(key, func() (any, error) {
		summaries, err := p.list(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		p.listCache.Set(key, summaries)
		return summaries, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]Summary)), nil
}

func (p *Publisher) list(ctx context.Context) ([]Summary, error) {
	entries, err := Recent(ctx, p.repo, ListLimit)
	if err != nil {
		p.logger.Error("listing stories failed", "error", err)
		return nil, apierr.Upstream("Failed to list stories", err)
	}

	stories, err := Fetch(ctx, p.repo, entries, p.concurrency)
	if err != nil {
		p.logger.Error("fetching stories failed", "error", err)
		return nil, apierr.Upstream("Failed to list stories", err)
	}

	summaries := make([]Summary, len(stories))
	for i, s := range stories {
		summaries[i] = s.Summarize()
	}
	return summaries, nil
}

// Recent returns the last limit story files in name order. A missing
// stories directory is an empty listing. limit <= 0 returns every file.
func Recent(ctx context.Context, repo content.Repository, limit int) ([]content.Entry, error) {
	entries, err := repo.ListDir(ctx, Dir)
	if errors.Is(err, content.ErrNotFound) {
		return []content.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]content.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name, ".json") {
			files = append(files, e)
		}
	}
	if limit > 0 && len(files) > limit {
		files = files[len(files)-limit:]
	}
	return files, nil
}

// Fetch reads and decodes entries with at most concurrency reads in
// flight. The result is in entry order; the first failure cancels the rest.
func Fetch(ctx context.Context, repo content.Repository, entries []content.Entry, concurrency int) ([]*Story, error) {
	stories := make([]*Story, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, e := range entries {
		g.Go(func() error {
			data, err := repo.GetFile(gctx, e.Path)
			if err != nil {
				return err
			}
			s, err := Decode(data)
			if err != nil {
				return err
			}
			stories[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stories, nil
}
