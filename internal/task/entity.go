package task

import (
	"time"

	"github.com/deskhub/tasksync/internal/user"
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusCompleted  Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// NetworkType classifies which network segment a task concerns. It is a
// plain tag, not a workflow.
type NetworkType string

const (
	NetworkEMVS     NetworkType = "EMVS"
	NetworkInternet NetworkType = "INTERNET"
	NetworkASZI     NetworkType = "ASZI"
)

func (n NetworkType) Valid() bool {
	switch n {
	case NetworkEMVS, NetworkInternet, NetworkASZI:
		return true
	}
	return false
}

// Task is the unit of work tracked by the system. The server owns ID,
// TaskNumber and CreatedAt; clients never originate them.
type Task struct {
	ID          string      `json:"id" yaml:"id"`
	TaskNumber  int         `json:"taskNumber" yaml:"task_number"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Assignee    *user.User  `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Status      Status      `json:"status" yaml:"status"`
	Priority    Priority    `json:"priority" yaml:"priority"`
	NetworkType NetworkType `json:"networkType" yaml:"network_type"`
	DueDate     *time.Time  `json:"dueDate,omitempty" yaml:"due_date,omitempty"`
	IsArchived  bool        `json:"isArchived" yaml:"is_archived"`
	CreatedAt   time.Time   `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" yaml:"updated_at"`
}

// Clone returns a deep copy. Collection snapshots and optimistic rollback
// depend on clones never sharing pointers with stored entries.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Assignee = t.Assignee.Clone()
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}
