// ABOUTME: GitHub contents API implementation of Repository
// ABOUTME: Each PutFile is a commit; reads use the raw media type

package content

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/2389/press-gateway/internal/config"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4096

// GitHubRepository commits files through the GitHub REST contents API.
type GitHubRepository struct {
	client    *http.Client
	apiURL    string
	repo      string
	token     string
	branch    string
	userAgent string
	logger    *slog.Logger
}

// NewGitHubRepository creates a repository for cfg.Repo ("owner/name").
func NewGitHubRepository(cfg config.GitHubConfig, client *http.Client) *GitHubRepository {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "PinchPress-Gateway"
	}
	return &GitHubRepository{
		client:    client,
		apiURL:    strings.TrimRight(apiURL, "/"),
		repo:      cfg.Repo,
		token:     cfg.Token,
		branch:    cfg.Branch,
		userAgent: userAgent,
		logger:    slog.Default().With("component", "content.github"),
	}
}

// StatusError is a non-2xx response from the GitHub API. Body holds the
// start of the response body.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (g *GitHubRepository) contentsURL(path string) string {
	u := fmt.Sprintf("%s/repos/%s/contents/%s", g.apiURL, g.repo, escapePath(path))
	if g.branch != "" {
		u += "?ref=" + url.QueryEscape(g.branch)
	}
	return u
}

func escapePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (g *GitHubRepository) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return req, nil
}

func (g *GitHubRepository) do(req *http.Request, path string) (*http.Response, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github %s %s: %w", req.Method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &StatusError{
		Method: req.Method,
		Path:   path,
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", ErrNotFound, statusErr)
	case resp.StatusCode == http.StatusUnprocessableEntity && req.Method == http.MethodPut:
		// The contents API answers 422 when a PUT without sha hits an existing file
		return nil, fmt.Errorf("%w: %w", ErrExists, statusErr)
	default:
		return nil, statusErr
	}
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
}

// PutFile commits content at path. The commit fails if the file exists.
func (g *GitHubRepository) PutFile(ctx context.Context, path string, content []byte, message string) error {
	payload, err := json.Marshal(putContentsRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  g.branch,
	})
	if err != nil {
		return fmt.Errorf("encoding commit: %w", err)
	}

	u := fmt.Sprintf("%s/repos/%s/contents/%s", g.apiURL, g.repo, escapePath(path))
	req, err := g.newRequest(ctx, http.MethodPut, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.do(req, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	g.logger.Debug("file committed", "path", path, "bytes", len(content))
	return nil
}

type contentsEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// ListDir lists the files directly under dir. Subdirectories are skipped.
func (g *GitHubRepository) ListDir(ctx context.Context, dir string) ([]Entry, error) {
	req, err := g.newRequest(ctx, http.MethodGet, g.contentsURL(dir), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.do(req, dir)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw []contentsEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding listing of %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if e.Type != "file" {
			continue
		}
		entries = append(entries, Entry{Name: e.Name, Path: e.Path, Size: e.Size})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// GetFile fetches the raw content of path.
func (g *GitHubRepository) GetFile(ctx context.Context, path string) ([]byte, error) {
	req, err := g.newRequest(ctx, http.MethodGet, g.contentsURL(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.raw+json")

	resp, err := g.do(req, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Ensure GitHubRepository implements Repository.
var _ Repository = (*GitHubRepository)(nil)
