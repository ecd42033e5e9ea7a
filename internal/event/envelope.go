// Package event defines the push channel wire contract: a JSON envelope
// discriminated by the "type" field. Every task-bearing event carries the
// authoritative full record so subscribers never have to call back to apply
// it; the count-only task_created variant is the one degraded case where a
// client must refetch.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/deskhub/tasksync/internal/task"
)

type Type string

const (
	TypeTaskCreated            Type = "task_created"
	TypeTaskUpdated            Type = "task_updated"
	TypeTaskStatusChanged      Type = "task_status_changed"
	TypeTaskPriorityChanged    Type = "task_priority_changed"
	TypeTaskNetworkTypeChanged Type = "task_network_type_changed"
	TypeTaskDeleted            Type = "task_deleted"
	TypeTaskArchived           Type = "task_archived"
	TypeTaskAssigned           Type = "task_assigned"

	// Control messages. They keep the channel alive and never reach
	// the reconciler.
	TypeConnected Type = "connected"
	TypePing      Type = "ping"
)

type Envelope struct {
	Type          Type       `json:"type"`
	TaskID        string     `json:"taskId,omitempty"`
	Task          *task.Task `json:"task,omitempty"`
	UserID        string     `json:"userId,omitempty"`
	NewTasksCount *int       `json:"newTasksCount,omitempty"`
}

// IsControl reports whether the envelope is a keepalive rather than a task
// mutation.
func (e *Envelope) IsControl() bool {
	return e.Type == TypeConnected || e.Type == TypePing
}

func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	return data, nil
}

// Decode parses an envelope. It only checks that a type tag is present;
// shape validation per type is the reconciler's job so that unknown or
// malformed events can be dropped there without breaking the stream.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("event has no type")
	}
	return &e, nil
}

func NewTaskCreated(t *task.Task) *Envelope {
	return &Envelope{Type: TypeTaskCreated, TaskID: t.ID, Task: t}
}

// NewTasksCount announces creations without their payloads. Receivers cannot
// reconstruct the rows and are expected to refetch.
func NewTasksCount(n int) *Envelope {
	return &Envelope{Type: TypeTaskCreated, NewTasksCount: &n}
}

func NewTaskChanged(typ Type, t *task.Task) *Envelope {
	return &Envelope{Type: typ, TaskID: t.ID, Task: t}
}

func NewTaskDeleted(id string) *Envelope {
	return &Envelope{Type: TypeTaskDeleted, TaskID: id}
}

func NewTaskArchived(t *task.Task) *Envelope {
	return &Envelope{Type: TypeTaskArchived, TaskID: t.ID, Task: t}
}

// NewTaskAssigned carries the id of the new assignee so clients can decide
// whether the task just landed on their own desk.
func NewTaskAssigned(t *task.Task, userID string) *Envelope {
	return &Envelope{Type: TypeTaskAssigned, TaskID: t.ID, Task: t, UserID: userID}
}

func NewConnected() *Envelope {
	return &Envelope{Type: TypeConnected}
}

func NewPing() *Envelope {
	return &Envelope{Type: TypePing}
}
