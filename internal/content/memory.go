// ABOUTME: In-memory Repository used by tests and the "memory" backend
// ABOUTME: Supports failure injection for each operation

package content

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
)

// Commit records one successful PutFile.
type Commit struct {
	Path    string
	Message string
}

// MemoryRepository keeps files in a map. Set the Fail* fields to make the
// corresponding operation return that error.
type MemoryRepository struct {
	mu      sync.Mutex
	files   map[string][]byte
	commits []Commit

	FailPut  error
	FailList error
	FailGet  error
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{files: make(map[string][]byte)}
}

// PutFile stores a copy of content at p.
func (m *MemoryRepository) PutFile(ctx context.Context, p string, content []byte, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPut != nil {
		return m.FailPut
	}
	p = strings.Trim(p, "/")
	if _, ok := m.files[p]; ok {
		return ErrExists
	}
	m.files[p] = append([]byte(nil), content...)
	m.commits = append(m.commits, Commit{Path: p, Message: message})
	return nil
}

// ListDir returns the files directly under dir, sorted by name.
func (m *MemoryRepository) ListDir(ctx context.Context, dir string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailList != nil {
		return nil, m.FailList
	}
	dir = strings.Trim(dir, "/")

	var entries []Entry
	for p, data := range m.files {
		if path.Dir(p) != dir {
			continue
		}
		entries = append(entries, Entry{Name: path.Base(p), Path: p, Size: int64(len(data))})
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// GetFile returns a copy of the content at p.
func (m *MemoryRepository) GetFile(ctx context.Context, p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailGet != nil {
		return nil, m.FailGet
	}
	data, ok := m.files[strings.Trim(p, "/")]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// SetFailPut makes subsequent PutFile calls fail with err (nil clears it).
func (m *MemoryRepository) SetFailPut(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailPut = err
}

// SetFailGet makes subsequent GetFile calls fail with err (nil clears it).
func (m *MemoryRepository) SetFailGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailGet = err
}

// Commits returns the successful writes in order.
func (m *MemoryRepository) Commits() []Commit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Commit(nil), m.commits...)
}

// Len returns the number of stored files.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// Ensure MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)
