package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/internal/user"
	"github.com/deskhub/tasksync/pkg/cerr"
)

// Mutation is the tagged union of things the pipeline can apply. QuickUpdate
// is the optimistic single-field path; FormSubmit waits for the server.
type Mutation interface {
	mutation()
}

// QuickUpdate changes exactly one field of one task and shows the change
// immediately. Assignee carries the resolved user when the patch sets a
// non-empty AssigneeID, since the collection stores users, not ids.
type QuickUpdate struct {
	TaskID   string
	Patch    *task.Patch
	Assignee *user.User
}

func (QuickUpdate) mutation() {}

// FormSubmit changes any subset of fields and only updates the collection
// once the server has confirmed.
type FormSubmit struct {
	TaskID string
	Patch  *task.Patch
}

func (FormSubmit) mutation() {}

// Pipeline turns user actions into server calls with optimistic local
// writes. A quick update snapshots the task, patches the collection, then
// calls the server: on success the confirmed record replaces the guess, on
// failure the snapshot is restored, the collection refetched and the
// notifier told. A per task-and-field sequence counter discards responses
// of superseded requests so a slow confirmation can never clobber a newer
// optimistic state.
type Pipeline struct {
	api        TaskAPI
	collection *Collection
	notifier   Notifier
	logger     *slog.Logger
	refetch    func(ctx context.Context) error

	seqMu sync.Mutex
	seq   map[string]uint64
}

func NewPipeline(
	api TaskAPI,
	collection *Collection,
	notifier Notifier,
	logger *slog.Logger,
	refetch func(ctx context.Context) error,
) *Pipeline {
	return &Pipeline{
		api:        api,
		collection: collection,
		notifier:   notifier,
		logger:     logger,
		refetch:    refetch,
		seq:        map[string]uint64{},
	}
}

// Apply runs one mutation and returns the server's record.
func (p *Pipeline) Apply(ctx context.Context, m Mutation) (*task.Task, error) {
	switch m := m.(type) {
	case QuickUpdate:
		return p.quickUpdate(ctx, m)
	case FormSubmit:
		return p.formSubmit(ctx, m)
	default:
		return nil, cerr.NewError(cerr.Internal, "unknown mutation", nil)
	}
}

func (p *Pipeline) quickUpdate(ctx context.Context, m QuickUpdate) (*task.Task, error) {
	if err := m.Patch.Validate(); err != nil {
		return nil, err
	}
	if m.Patch.FieldCount() != 1 {
		return nil, cerr.NewError(cerr.InvalidArgument, "quick update must change exactly one field", nil)
	}

	snapshot, ok := p.collection.Get(m.TaskID)
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "task not in collection", nil)
	}

	field := patchField(m.Patch)
	mySeq := p.nextSeq(m.TaskID, field)

	if m.Patch.AssigneeID != nil && *m.Patch.AssigneeID != "" {
		p.collection.SetAssignee(m.TaskID, m.Assignee)
	} else {
		p.collection.Patch(m.TaskID, m.Patch)
	}

	updated, err := p.api.UpdateTask(ctx, m.TaskID, m.Patch)

	if !p.isCurrent(m.TaskID, field, mySeq) {
		// A newer update on the same field owns the collection now.
		if err != nil {
			p.logger.WarnContext(ctx, "discarding stale failed update", "taskId", m.TaskID, "field", field, "error", err)
			return nil, err
		}
		return updated, nil
	}

	if err != nil {
		p.collection.Replace(snapshot)
		if rerr := p.refetch(ctx); rerr != nil {
			p.logger.WarnContext(ctx, "refetch after rollback failed", "error", rerr)
		}
		p.notifier.ActionFailed("update "+field, err)
		return nil, err
	}

	p.collection.Replace(updated)
	return updated, nil
}

func (p *Pipeline) formSubmit(ctx context.Context, m FormSubmit) (*task.Task, error) {
	if err := m.Patch.Validate(); err != nil {
		return nil, err
	}
	updated, err := p.api.UpdateTask(ctx, m.TaskID, m.Patch)
	if err != nil {
		return nil, err
	}
	p.collection.Upsert(updated)
	return updated, nil
}

// Create is not optimistic: the server assigns the id and task number, so
// there is nothing sensible to show before it answers.
func (p *Pipeline) Create(ctx context.Context, req *task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	created, err := p.api.CreateTask(ctx, req)
	if err != nil {
		return nil, err
	}
	p.collection.Prepend(created)
	return created, nil
}

func (p *Pipeline) Delete(ctx context.Context, id string) error {
	if err := p.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	p.collection.Remove(id)
	return nil
}

func (p *Pipeline) SetStatus(ctx context.Context, id string, s task.Status) (*task.Task, error) {
	return p.Apply(ctx, QuickUpdate{TaskID: id, Patch: &task.Patch{Status: &s}})
}

func (p *Pipeline) SetPriority(ctx context.Context, id string, pr task.Priority) (*task.Task, error) {
	return p.Apply(ctx, QuickUpdate{TaskID: id, Patch: &task.Patch{Priority: &pr}})
}

func (p *Pipeline) SetNetworkType(ctx context.Context, id string, n task.NetworkType) (*task.Task, error) {
	return p.Apply(ctx, QuickUpdate{TaskID: id, Patch: &task.Patch{NetworkType: &n}})
}

func (p *Pipeline) Archive(ctx context.Context, id string) (*task.Task, error) {
	archived := true
	return p.Apply(ctx, QuickUpdate{TaskID: id, Patch: &task.Patch{IsArchived: &archived}})
}

func (p *Pipeline) Restore(ctx context.Context, id string) (*task.Task, error) {
	archived := false
	return p.Apply(ctx, QuickUpdate{TaskID: id, Patch: &task.Patch{IsArchived: &archived}})
}

func (p *Pipeline) Assign(ctx context.Context, id string, u *user.User) (*task.Task, error) {
	assigneeID := u.ID
	return p.Apply(ctx, QuickUpdate{TaskID: id, Patch: &task.Patch{AssigneeID: &assigneeID}, Assignee: u})
}

func (p *Pipeline) Unassign(ctx context.Context, id string) (*task.Task, error) {
	empty := ""
	return p.Apply(ctx, QuickUpdate{TaskID: id, Patch: &task.Patch{AssigneeID: &empty}})
}

func (p *Pipeline) nextSeq(taskID, field string) uint64 {
	p.seqMu.Lock()
	defer p.seqMu.Unlock()
	key := taskID + "/" + field
	p.seq[key]++
	return p.seq[key]
}

func (p *Pipeline) isCurrent(taskID, field string, seq uint64) bool {
	p.seqMu.Lock()
	defer p.seqMu.Unlock()
	return p.seq[taskID+"/"+field] == seq
}

func patchField(p *task.Patch) string {
	switch {
	case p.Title != nil:
		return "title"
	case p.Description != nil:
		return "description"
	case p.Status != nil:
		return "status"
	case p.Priority != nil:
		return "priority"
	case p.NetworkType != nil:
		return "networkType"
	case p.AssigneeID != nil:
		return "assignee"
	case p.DueDate != nil:
		return "dueDate"
	case p.IsArchived != nil:
		return "archived"
	default:
		return "none"
	}
}
