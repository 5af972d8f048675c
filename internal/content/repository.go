// ABOUTME: Repository interface and shared types for the content repository
// ABOUTME: Open selects the GitHub, S3 or in-memory backend from configuration

package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/2389/press-gateway/internal/config"
)

var (
	// ErrNotFound is returned when a file or directory does not exist
	ErrNotFound = errors.New("content not found")

	// ErrExists is returned when writing to a path that already has content
	ErrExists = errors.New("content already exists")
)

// Entry is one file in a directory listing.
type Entry struct {
	Name string // base name, e.g. 1700000000000-hello.json
	Path string // full path, e.g. stories/1700000000000-hello.json
	Size int64
}

// Repository is a versioned, append-only file store.
type Repository interface {
	// PutFile creates path with content, recording message as the change
	// description. It returns ErrExists if path already exists.
	PutFile(ctx context.Context, path string, content []byte, message string) error

	// ListDir returns the files directly under dir, sorted by name.
	ListDir(ctx context.Context, dir string) ([]Entry, error)

	// GetFile returns the content stored at path.
	GetFile(ctx context.Context, path string) ([]byte, error)
}

// Open creates the repository named by cfg.Backend. httpClient is used by
// the GitHub backend; nil means a client with cfg.Timeout.
func Open(ctx context.Context, cfg config.RepositoryConfig, httpClient *http.Client) (Repository, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	switch cfg.Backend {
	case "github":
		return NewGitHubRepository(cfg.GitHub, httpClient), nil
	case "s3":
		return NewS3Repository(ctx, cfg.S3, httpClient)
	case "memory":
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown repository backend %q", cfg.Backend)
	}
}
