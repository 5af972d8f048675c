// ABOUTME: Static site builder for published stories
// ABOUTME: Renders story-{slug}.html pages and an index.html with goldmark and html/template

package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/press-gateway/internal/content"
	"github.com/2389/press-gateway/internal/story"
)

const defaultFetchConcurrency = 8

// Builder renders the content repository into a directory of HTML files.
type Builder struct {
	repo        content.Repository
	siteName    string
	md          goldmark.Markdown
	index       *template.Template
	page        *template.Template
	concurrency int
	logger      *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithFetchConcurrency bounds parallel story reads.
func WithFetchConcurrency(n int) Option {
	return func(b *Builder) { b.concurrency = n }
}

// NewBuilder creates a builder. siteName titles every page.
func NewBuilder(repo content.Repository, siteName string, opts ...Option) (*Builder, error) {
	index, err := template.ParseFS(templateFS, "templates/layout.html", "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}
	page, err := template.ParseFS(templateFS, "templates/layout.html", "templates/story.html")
	if err != nil {
		return nil, fmt.Errorf("parsing story template: %w", err)
	}

	b := &Builder{
		repo:        repo,
		siteName:    siteName,
		md:          goldmark.New(goldmark.WithExtensions(extension.GFM)),
		index:       index,
		page:        page,
		concurrency: defaultFetchConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "site")
	return b, nil
}

type storyView struct {
	Title     string
	Summary   string
	Category  string
	Writer    string
	Date      string
	SourceURL string
	Href      string
}

type indexData struct {
	SiteName string
	Stories  []storyView
}

type pageData struct {
	SiteName string
	Story    storyView
	Body     template.HTML
}

// Build writes every story page and the index into outDir and returns the
// number of stories rendered.
func (b *Builder) Build(ctx context.Context, outDir string) (int, error) {
	entries, err := story.Recent(ctx, b.repo, 0)
	if err != nil {
		return 0, fmt.Errorf("listing stories: %w", err)
	}
	stories, err := story.Fetch(ctx, b.repo, entries, b.concurrency)
	if err != nil {
		return 0, fmt.Errorf("fetching stories: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	views := make([]storyView, len(stories))
	for i, s := range stories {
		slug := story.SlugFromPath(entries[i].Path)
		views[i] = newStoryView(s, slug)

		body, err := b.renderMarkdown(s.Content)
		if err != nil {
			b.logger.Warn("rendering story content failed", "path", entries[i].Path, "error", err)
			body = template.HTML("<p>" + template.HTMLEscapeString(s.Content) + "</p>")
		}

		data := pageData{SiteName: b.siteName, Story: views[i], Body: body}
		if err := b.write(b.page, "story.html", filepath.Join(outDir, "story-"+slug+".html"), data); err != nil {
			return 0, err
		}
	}

	// File names sort oldest first.
	slices.Reverse(views)
	if err := b.write(b.index, "index.html", filepath.Join(outDir, "index.html"), indexData{SiteName: b.siteName, Stories: views}); err != nil {
		return 0, err
	}

	b.logger.Info("site built", "stories", len(stories), "out", outDir)
	return len(stories), nil
}

func (b *Builder) renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := b.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (b *Builder) write(tmpl *template.Template, name, path string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func newStoryView(s *story.Story, slug string) storyView {
	date := s.Published
	if t, err := time.Parse(story.PublishedLayout, s.Published); err == nil {
		date = t.Format("January 2, 2006")
	}
	return storyView{
		Title:     s.Title,
		Summary:   s.Summary,
		Category:  s.Category,
		Writer:    s.Writer,
		Date:      date,
		SourceURL: s.SourceURL,
		Href:      "story-" + slug + ".html",
	}
}
