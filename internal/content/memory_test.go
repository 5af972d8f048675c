// ABOUTME: Tests for the in-memory repository fake
// ABOUTME: Covers no-overwrite, directory listing and failure injection

package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_RoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.PutFile(ctx, "stories/2-b.json", []byte("b"), "Add story: B"))
	require.NoError(t, repo.PutFile(ctx, "stories/1-a.json", []byte("a"), "Add story: A"))
	require.NoError(t, repo.PutFile(ctx, "other/x.json", []byte("x"), "other"))

	entries, err := repo.ListDir(ctx, "stories")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1-a.json", entries[0].Name)
	assert.Equal(t, "stories/2-b.json", entries[1].Path)

	data, err := repo.GetFile(ctx, "stories/2-b.json")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	assert.Equal(t, []Commit{
		{Path: "stories/2-b.json", Message: "Add story: B"},
		{Path: "stories/1-a.json", Message: "Add story: A"},
		{Path: "other/x.json", Message: "other"},
	}, repo.Commits())
}

func TestMemoryRepository_NoOverwrite(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.PutFile(ctx, "stories/1-a.json", []byte("first"), "m"))
	err := repo.PutFile(ctx, "stories/1-a.json", []byte("second"), "m")
	assert.True(t, errors.Is(err, ErrExists))

	data, _ := repo.GetFile(ctx, "stories/1-a.json")
	assert.Equal(t, "first", string(data))
}

func TestMemoryRepository_Missing(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetFile(ctx, "stories/nope.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.ListDir(ctx, "stories")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryRepository_FailureInjection(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	boom := errors.New("boom")

	repo.SetFailPut(boom)
	assert.ErrorIs(t, repo.PutFile(ctx, "a", []byte("x"), "m"), boom)
	assert.Equal(t, 0, repo.Len())

	repo.SetFailPut(nil)
	require.NoError(t, repo.PutFile(ctx, "stories/a", []byte("x"), "m"))

	repo.SetFailGet(boom)
	_, err := repo.GetFile(ctx, "stories/a")
	assert.ErrorIs(t, err, boom)

	repo.FailList = boom
	_, err = repo.ListDir(ctx, "stories")
	assert.ErrorIs(t, err, boom)
}
