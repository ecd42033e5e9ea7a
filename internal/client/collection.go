package client

import (
	"sync"

	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/internal/user"
)

// Collection is the in-memory task store the reconciler and the mutation
// pipeline both write into. Every operation is keyed by task ID and
// idempotent, so replaying an event or racing an optimistic write with its
// confirmation converges to the same state. Tasks are cloned at the
// boundary in both directions; callers never share memory with the store.
type Collection struct {
	mu    sync.RWMutex
	tasks []*task.Task
}

func NewCollection() *Collection {
	return &Collection{}
}

// ReplaceAll swaps the whole collection, preserving the given order.
func (c *Collection) ReplaceAll(tasks []*task.Task) {
	cloned := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		cloned = append(cloned, t.Clone())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = cloned
}

// Upsert replaces the task with the same ID in place, or prepends it when
// the ID is unknown.
func (c *Collection) Upsert(t *task.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.tasks {
		if existing.ID == t.ID {
			c.tasks[i] = t.Clone()
			return
		}
	}
	c.tasks = append([]*task.Task{t.Clone()}, c.tasks...)
}

// Replace replaces the task with the same ID and reports whether it was
// present. Unknown IDs are left alone.
func (c *Collection) Replace(t *task.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.tasks {
		if existing.ID == t.ID {
			c.tasks[i] = t.Clone()
			return true
		}
	}
	return false
}

// Prepend inserts the task at the head of the collection. When the ID is
// already present the existing entry is replaced instead, so a duplicated
// create event cannot yield two copies.
func (c *Collection) Prepend(t *task.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.tasks {
		if existing.ID == t.ID {
			c.tasks[i] = t.Clone()
			return
		}
	}
	c.tasks = append([]*task.Task{t.Clone()}, c.tasks...)
}

// Remove deletes the task and reports whether it was present. Removing an
// unknown ID is a no-op.
func (c *Collection) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.tasks {
		if existing.ID == id {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Patch applies the scalar fields of the patch to the task with the given
// ID and returns the updated task. A set but empty AssigneeID clears the
// assignee; a non-empty AssigneeID is ignored here because the store holds
// resolved users, use SetAssignee for that.
func (c *Collection) Patch(id string, p *task.Patch) (*task.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.tasks {
		if existing.ID != id {
			continue
		}
		if p.Title != nil {
			existing.Title = *p.Title
		}
		if p.Description != nil {
			existing.Description = *p.Description
		}
		if p.Status != nil {
			existing.Status = *p.Status
		}
		if p.Priority != nil {
			existing.Priority = *p.Priority
		}
		if p.NetworkType != nil {
			existing.NetworkType = *p.NetworkType
		}
		if p.DueDate != nil {
			existing.DueDate = p.DueDate
		}
		if p.IsArchived != nil {
			existing.IsArchived = *p.IsArchived
		}
		if p.AssigneeID != nil && *p.AssigneeID == "" {
			existing.Assignee = nil
		}
		return existing.Clone(), true
	}
	return nil, false
}

// SetAssignee sets (or clears, with nil) the assignee of the task.
func (c *Collection) SetAssignee(id string, u *user.User) (*task.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.tasks {
		if existing.ID != id {
			continue
		}
		if u == nil {
			existing.Assignee = nil
		} else {
			existing.Assignee = u.Clone()
		}
		return existing.Clone(), true
	}
	return nil, false
}

// Get returns a clone of the task with the given ID.
func (c *Collection) Get(id string) (*task.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, existing := range c.tasks {
		if existing.ID == id {
			return existing.Clone(), true
		}
	}
	return nil, false
}

// Tasks returns a cloned snapshot of the collection in store order.
func (c *Collection) Tasks() []*task.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cloned := make([]*task.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		cloned = append(cloned, t.Clone())
	}
	return cloned
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tasks)
}
