package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_ReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "tasks/t1.yaml", []byte("title: hello")))

	data, err := s.Read(ctx, "tasks/t1.yaml")
	require.NoError(t, err)
	assert.Equal(t, "title: hello", string(data))

	exists, err := s.Exists(ctx, "tasks/t1.yaml")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "tasks/t1.yaml"))
	exists, err = s.Exists(ctx, "tasks/t1.yaml")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_MissingFileIsErrNotFound(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(ctx, "nope.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Delete(ctx, "nope.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorage_ListIsSorted(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "tasks/b.yaml", []byte("b")))
	require.NoError(t, s.Write(ctx, "tasks/a.yaml", []byte("a")))
	require.NoError(t, s.Write(ctx, "tasks/c.yaml", []byte("c")))

	paths, err := s.List(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks/a.yaml", "tasks/b.yaml", "tasks/c.yaml"}, paths)
}

func TestLocalStorage_ListMissingPrefixIsEmpty(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	paths, err := s.List(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalStorage_OverwriteIsAtomicReplace(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "f.yaml", []byte("first")))
	require.NoError(t, s.Write(ctx, "f.yaml", []byte("second")))

	data, err := s.Read(ctx, "f.yaml")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp file left behind.
	paths, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"f.yaml"}, paths)
}
