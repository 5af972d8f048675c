// ABOUTME: Story document type, field validation, sanitizing and slug derivation
// ABOUTME: Stories are stored as 2-space indented JSON files

package story

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2389/press-gateway/internal/apierr"
)

// Field limits in characters.
const (
	maxTitle     = 200
	maxSummary   = 500
	maxContent   = 10000
	maxSourceURL = 500
	maxSlug      = 60
)

// Dir is the repository directory holding story files.
const Dir = "stories"

// PublishedLayout formats publication times as UTC with millisecond precision.
const PublishedLayout = "2006-01-02T15:04:05.000Z"

// requiredFields are checked in order; the first bad one is reported.
var requiredFields = []string{"title", "summary", "content", "category"}

// Story is a published story document.
type Story struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	Writer    string `json:"writer"`
	Published string `json:"published"`
	SourceURL string `json:"source_url"`
}

// Summary is the listing projection of a Story.
type Summary struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
	Writer    string `json:"writer"`
}

// Summarize projects s for listings.
func (s *Story) Summarize() Summary {
	return Summary{
		Title:     s.Title,
		Category:  s.Category,
		Summary:   s.Summary,
		Published: s.Published,
		Writer:    s.Writer,
	}
}

// Marshal encodes s as 2-space indented JSON without HTML escaping.
func (s *Story) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a stored story file.
func Decode(data []byte) (*Story, error) {
	var s Story
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding story: %w", err)
	}
	return &s, nil
}

// Submission is a validated story request before sanitizing.
type Submission struct {
	Title     string
	Summary   string
	Content   string
	Category  string
	SourceURL string
}

// ParseSubmission decodes and validates a submission body against the
// accepted categories.
func ParseSubmission(body []byte, categories []string) (*Submission, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, apierr.InvalidInput("Invalid JSON")
	}

	values := make(map[string]string, len(requiredFields))
	for _, field := range requiredFields {
		v, ok := raw[field].(string)
		if !ok || v == "" {
			return nil, apierr.InvalidInput("Missing or invalid field: %s", field)
		}
		values[field] = v
	}

	if !slices.Contains(categories, values["category"]) {
		return nil, apierr.InvalidInput("Invalid category. Use: %s", strings.Join(categories, ", "))
	}

	// A non-string source_url is dropped rather than rejected
	sourceURL, _ := raw["source_url"].(string)

	return &Submission{
		Title:     values["title"],
		Summary:   values["summary"],
		Content:   values["content"],
		Category:  values["category"],
		SourceURL: sourceURL,
	}, nil
}

// Sanitize truncates fields and stamps the writer and publication time.
// writer is always the authenticated agent's name.
func (s *Submission) Sanitize(writer string, now time.Time) *Story {
	return &Story{
		Title:     truncate(s.Title, maxTitle),
		Summary:   truncate(s.Summary, maxSummary),
		Content:   truncate(s.Content, maxContent),
		Category:  s.Category,
		Writer:    writer,
		Published: now.UTC().Format(PublishedLayout),
		SourceURL: truncate(s.SourceURL, maxSourceURL),
	}
}

// Slugify lower-cases title, collapses every run of characters outside
// [a-z0-9] to one hyphen, truncates to 60 characters and strips one
// trailing hyphen.
func Slugify(title string) string {
	lower := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lower))
	inRun := false
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('-')
			inRun = true
		}
	}

	slug := b.String()
	if len(slug) > maxSlug {
		slug = slug[:maxSlug]
	}
	return strings.TrimSuffix(slug, "-")
}

// Path returns the repository path for a story published at now.
func Path(slug string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s.json", Dir, now.UnixMilli(), slug)
}

// SlugFromPath recovers the slug from a story file name.
func SlugFromPath(p string) string {
	name := p[strings.LastIndex(p, "/")+1:]
	name = strings.TrimSuffix(name, ".json")
	if i := strings.IndexByte(name, '-'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
