// ABOUTME: Tests for story parsing, sanitizing, slugs and paths
// ABOUTME: Table-driven checks of field validation and truncation

package story

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/press-gateway/internal/apierr"
	"github.com/2389/press-gateway/internal/config"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"Hello, World!", "hello-world"},
		{"  Leading spaces", "-leading-spaces"},
		{"AI & Robots: 2026 Outlook", "ai-robots-2026-outlook"},
		{"Café au lait", "caf-au-lait"},
		{"!!!", ""},
		{strings.Repeat("a", 59) + " tail", strings.Repeat("a", 59)},
		{strings.Repeat("b", 70), strings.Repeat("b", 60)},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestPath(t *testing.T) {
	at := time.UnixMilli(1773478800123)
	assert.Equal(t, "stories/1773478800123-hello-world.json", Path("hello-world", at))
	assert.Equal(t, "hello-world", SlugFromPath("stories/1773478800123-hello-world.json"))
	assert.Equal(t, "", SlugFromPath("stories/1773478800123-.json"))
}

func TestParseSubmission(t *testing.T) {
	cats := config.DefaultCategories

	sub, err := ParseSubmission([]byte(`{"title":"T","summary":"S","content":"C","category":"tech","source_url":"https://example.com"}`), cats)
	require.NoError(t, err)
	assert.Equal(t, &Submission{Title: "T", Summary: "S", Content: "C", Category: "tech", SourceURL: "https://example.com"}, sub)

	sub, err = ParseSubmission([]byte(`{"title":"T","summary":"S","content":"C","category":"tech","source_url":12}`), cats)
	require.NoError(t, err)
	assert.Empty(t, sub.SourceURL)
}

func TestParseSubmission_Errors(t *testing.T) {
	cats := config.DefaultCategories

	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{title`, "Invalid JSON"},
		{"null", `null`, "Invalid JSON"},
		{"missing title", `{"summary":"S","content":"C","category":"tech"}`, "Missing or invalid field: title"},
		{"empty title", `{"title":"","summary":"S","content":"C","category":"tech"}`, "Missing or invalid field: title"},
		{"numeric summary", `{"title":"T","summary":5,"content":"C","category":"tech"}`, "Missing or invalid field: summary"},
		{"first bad field wins", `{"title":"T"}`, "Missing or invalid field: summary"},
		{"missing category", `{"title":"T","summary":"S","content":"C"}`, "Missing or invalid field: category"},
		{
			"unknown category",
			`{"title":"T","summary":"S","content":"C","category":"sports-news"}`,
			"Invalid category. Use: world, tech, science, business, politics, health, culture, sports, opinion",
		},
		{"category is case sensitive", `{"title":"T","summary":"S","content":"C","category":"Tech"}`, "Invalid category. Use: world, tech, science, business, politics, health, culture, sports, opinion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSubmission([]byte(tt.body), cats)
			require.Error(t, err)
			assert.True(t, apierr.Is(err, apierr.KindInvalidInput))
			var apiErr *apierr.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestSanitize(t *testing.T) {
	sub := &Submission{
		Title:     strings.Repeat("t", 250),
		Summary:   strings.Repeat("é", 600),
		Content:   strings.Repeat("c", 12000),
		Category:  "world",
		SourceURL: strings.Repeat("u", 700),
	}
	at := time.Date(2026, 3, 14, 9, 30, 15, 123456789, time.FixedZone("CET", 3600))

	doc := sub.Sanitize("Scout", at)
	assert.Len(t, doc.Title, 200)
	assert.Equal(t, 500, len([]rune(doc.Summary)))
	assert.Len(t, doc.Content, 10000)
	assert.Len(t, doc.SourceURL, 500)
	assert.Equal(t, "Scout", doc.Writer)
	assert.Equal(t, "2026-03-14T08:30:15.123Z", doc.Published)
}

func TestStoryMarshal(t *testing.T) {
	doc := &Story{
		Title:     "A <b>bold</b> claim & more",
		Summary:   "S",
		Content:   "C",
		Category:  "tech",
		Writer:    "Scout",
		Published: "2026-03-14T09:00:00.000Z",
	}
	data, err := doc.Marshal()
	require.NoError(t, err)

	want := `{
  "title": "A <b>bold</b> claim & more",
  "summary": "S",
  "content": "C",
  "category": "tech",
  "writer": "Scout",
  "published": "2026-03-14T09:00:00.000Z",
  "source_url": ""
}`
	assert.Equal(t, want, string(data))

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}
