package repositoryimpl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhub/tasksync/pkg/cerr"
)

const directoryYAML = `users:
  - id: u1
    name: Anna Kovacs
    initials: AK
  - id: u2
    name: Bela Toth
    initials: BT
`

func writeDirectory(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestYAMLRepository_GetAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	writeDirectory(t, path, directoryYAML)

	repo, err := NewYAMLRepository(path)
	require.NoError(t, err)

	ctx := context.Background()
	u, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Anna Kovacs", u.Name)
	assert.Equal(t, "AK", u.Initials)

	_, err = repo.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "u2", users[1].ID)
}

func TestYAMLRepository_MissingFileIsEmptyDirectory(t *testing.T) {
	repo, err := NewYAMLRepository(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestYAMLRepository_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	writeDirectory(t, path, directoryYAML)

	repo, err := NewYAMLRepository(path)
	require.NoError(t, err)

	writeDirectory(t, path, "users:\n  - id: u3\n    name: Csaba Nagy\n    initials: CN\n")
	require.NoError(t, repo.Reload())

	ctx := context.Background()
	_, err = repo.Get(ctx, "u1")
	require.Error(t, err)
	u, err := repo.Get(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, "Csaba Nagy", u.Name)
}

func TestYAMLRepository_WatchPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.yaml")
	writeDirectory(t, path, directoryYAML)

	repo, err := NewYAMLRepository(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- repo.Watch(ctx) }()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	writeDirectory(t, path, directoryYAML+"  - id: u3\n    name: Csaba Nagy\n    initials: CN\n")

	require.Eventually(t, func() bool {
		_, err := repo.Get(context.Background(), "u3")
		return err == nil
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
