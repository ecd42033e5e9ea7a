package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/internal/user"
)

func newTask(id string, number int, title string) *task.Task {
	return &task.Task{
		ID:          id,
		TaskNumber:  number,
		Title:       title,
		Status:      task.StatusNew,
		Priority:    task.PriorityMedium,
		NetworkType: task.NetworkInternet,
	}
}

func TestCollection_UpsertAndGet(t *testing.T) {
	c := NewCollection()
	c.Upsert(newTask("t1", 1, "first"))
	c.Upsert(newTask("t2", 2, "second"))

	got, ok := c.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, 2, c.Len())

	// Upserting an existing id replaces in place, no duplicate.
	updated := newTask("t1", 1, "first renamed")
	c.Upsert(updated)
	assert.Equal(t, 2, c.Len())
	got, ok = c.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "first renamed", got.Title)
}

func TestCollection_ReplaceUnknownIsNoop(t *testing.T) {
	c := NewCollection()
	c.Upsert(newTask("t1", 1, "first"))

	replaced := c.Replace(newTask("unknown", 9, "ghost"))
	assert.False(t, replaced)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("unknown")
	assert.False(t, ok)
}

func TestCollection_PrependIsIdempotent(t *testing.T) {
	c := NewCollection()
	c.Upsert(newTask("t1", 1, "first"))

	created := newTask("t2", 2, "second")
	c.Prepend(created)
	c.Prepend(created)

	assert.Equal(t, 2, c.Len())
	tasks := c.Tasks()
	assert.Equal(t, "t2", tasks[0].ID)
	assert.Equal(t, "t1", tasks[1].ID)
}

func TestCollection_RemoveIsIdempotent(t *testing.T) {
	c := NewCollection()
	c.Upsert(newTask("t1", 1, "first"))

	assert.True(t, c.Remove("t1"))
	assert.False(t, c.Remove("t1"))
	assert.Equal(t, 0, c.Len())
}

func TestCollection_Patch(t *testing.T) {
	c := NewCollection()
	orig := newTask("t1", 1, "first")
	orig.Assignee = &user.User{ID: "u1", Name: "Anna"}
	c.Upsert(orig)

	status := task.StatusInProgress
	got, ok := c.Patch("t1", &task.Patch{Status: &status})
	require.True(t, ok)
	assert.Equal(t, task.StatusInProgress, got.Status)
	assert.Equal(t, "Anna", got.Assignee.Name)

	// Empty assignee id clears the assignee.
	empty := ""
	got, ok = c.Patch("t1", &task.Patch{AssigneeID: &empty})
	require.True(t, ok)
	assert.Nil(t, got.Assignee)

	_, ok = c.Patch("missing", &task.Patch{Status: &status})
	assert.False(t, ok)
}

func TestCollection_SetAssignee(t *testing.T) {
	c := NewCollection()
	c.Upsert(newTask("t1", 1, "first"))

	got, ok := c.SetAssignee("t1", &user.User{ID: "u2", Name: "Bela"})
	require.True(t, ok)
	assert.Equal(t, "u2", got.Assignee.ID)

	got, ok = c.SetAssignee("t1", nil)
	require.True(t, ok)
	assert.Nil(t, got.Assignee)
}

func TestCollection_ClonesAtBoundary(t *testing.T) {
	c := NewCollection()
	in := newTask("t1", 1, "first")
	c.Upsert(in)

	// Mutating the input after insert must not leak into the store.
	in.Title = "mutated"
	got, _ := c.Get("t1")
	assert.Equal(t, "first", got.Title)

	// Mutating a returned task must not leak either.
	got.Title = "also mutated"
	again, _ := c.Get("t1")
	assert.Equal(t, "first", again.Title)
}

func TestCollection_ReplaceAllKeepsOrder(t *testing.T) {
	c := NewCollection()
	c.Upsert(newTask("old", 1, "old"))

	c.ReplaceAll([]*task.Task{
		newTask("t3", 3, "three"),
		newTask("t2", 2, "two"),
	})
	tasks := c.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "t3", tasks[0].ID)
	assert.Equal(t, "t2", tasks[1].ID)
	_, ok := c.Get("old")
	assert.False(t, ok)
}
