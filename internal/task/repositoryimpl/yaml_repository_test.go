package repositoryimpl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/pkg/cerr"
	"github.com/deskhub/tasksync/pkg/storage"
)

func newYAMLRepo(t *testing.T) *YAMLRepository {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewYAMLRepository(st)
}

func sampleTask(id, title string) *task.Task {
	now := time.Now().UTC().Truncate(time.Second)
	return &task.Task{
		ID:          id,
		Title:       title,
		Status:      task.StatusNew,
		Priority:    task.PriorityMedium,
		NetworkType: task.NetworkInternet,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestYAMLRepository_CreateAssignsMonotonicNumbers(t *testing.T) {
	ctx := context.Background()
	repo := newYAMLRepo(t)

	for i := 1; i <= 3; i++ {
		tk := sampleTask(fmt.Sprintf("t%d", i), fmt.Sprintf("task %d", i))
		require.NoError(t, repo.Create(ctx, tk))
		assert.Equal(t, i, tk.TaskNumber)
	}

	// Creating an existing id fails.
	err := repo.Create(ctx, sampleTask("t1", "dup"))
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))
}

func TestYAMLRepository_NumberingSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	repo := NewYAMLRepository(st)
	require.NoError(t, repo.Create(ctx, sampleTask("t1", "one")))
	require.NoError(t, repo.Create(ctx, sampleTask("t2", "two")))

	// A new repository over the same storage continues the sequence.
	reopened := NewYAMLRepository(st)
	tk := sampleTask("t3", "three")
	require.NoError(t, reopened.Create(ctx, tk))
	assert.Equal(t, 3, tk.TaskNumber)
}

func TestYAMLRepository_GetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newYAMLRepo(t)

	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	tk := sampleTask("t1", "round trip")
	tk.Description = "with details"
	tk.DueDate = &due
	require.NoError(t, repo.Create(ctx, tk))

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "round trip", got.Title)
	assert.Equal(t, "with details", got.Description)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))

	_, err = repo.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestYAMLRepository_ListSplitsArchived(t *testing.T) {
	ctx := context.Background()
	repo := newYAMLRepo(t)

	active := sampleTask("t1", "active")
	archived := sampleTask("t2", "archived")
	archived.IsArchived = true
	require.NoError(t, repo.Create(ctx, active))
	require.NoError(t, repo.Create(ctx, archived))

	got, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)

	got, err = repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ID)
}

func TestYAMLRepository_ListOrdersByNumberDesc(t *testing.T) {
	ctx := context.Background()
	repo := newYAMLRepo(t)

	for i := 1; i <= 4; i++ {
		require.NoError(t, repo.Create(ctx, sampleTask(fmt.Sprintf("t%d", i), "x")))
	}

	got, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, tk := range got {
		assert.Equal(t, 4-i, tk.TaskNumber)
	}
}

func TestYAMLRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := newYAMLRepo(t)

	tk := sampleTask("t1", "before")
	require.NoError(t, repo.Create(ctx, tk))

	tk.Title = "after"
	tk.Status = task.StatusCompleted
	require.NoError(t, repo.Update(ctx, tk))

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, task.StatusCompleted, got.Status)

	err = repo.Update(ctx, sampleTask("missing", "x"))
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestYAMLRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newYAMLRepo(t)

	require.NoError(t, repo.Create(ctx, sampleTask("t1", "doomed")))
	require.NoError(t, repo.Delete(ctx, "t1"))

	_, err := repo.Get(ctx, "t1")
	require.Error(t, err)

	err = repo.Delete(ctx, "t1")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
