package task

import (
	"time"

	"github.com/deskhub/tasksync/pkg/cerr"
)

// CreateRequest is the payload of POST /api/tasks.
type CreateRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      Status      `json:"status,omitempty"`
	Priority    Priority    `json:"priority,omitempty"`
	NetworkType NetworkType `json:"networkType,omitempty"`
	AssigneeID  string      `json:"assigneeId,omitempty"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
}

func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return cerr.NewError(cerr.InvalidArgument, "title is required", nil)
	}
	if r.Status != "" && !r.Status.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid status", nil)
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid priority", nil)
	}
	if r.NetworkType != "" && !r.NetworkType.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid network type", nil)
	}
	return nil
}

// Patch is the payload of PUT /api/tasks/{id}: any subset of mutable fields.
// Nil means "leave unchanged"; for AssigneeID an empty string means
// "unassign", which is distinct from leaving the assignee untouched.
type Patch struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Status      *Status      `json:"status,omitempty"`
	Priority    *Priority    `json:"priority,omitempty"`
	NetworkType *NetworkType `json:"networkType,omitempty"`
	AssigneeID  *string      `json:"assigneeId,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	IsArchived  *bool        `json:"isArchived,omitempty"`
}

func (p *Patch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return cerr.NewError(cerr.InvalidArgument, "title must not be empty", nil)
	}
	if p.Status != nil && !p.Status.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid status", nil)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid priority", nil)
	}
	if p.NetworkType != nil && !p.NetworkType.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid network type", nil)
	}
	return nil
}

// FieldCount reports how many fields the patch touches.
func (p *Patch) FieldCount() int {
	n := 0
	if p.Title != nil {
		n++
	}
	if p.Description != nil {
		n++
	}
	if p.Status != nil {
		n++
	}
	if p.Priority != nil {
		n++
	}
	if p.NetworkType != nil {
		n++
	}
	if p.AssigneeID != nil {
		n++
	}
	if p.DueDate != nil {
		n++
	}
	if p.IsArchived != nil {
		n++
	}
	return n
}
