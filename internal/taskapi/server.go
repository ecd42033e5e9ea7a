// Package taskapi exposes the task domain over REST and publishes the
// matching wire events. It sits above both the task domain and the event
// envelope so that neither has to know about the other.
package taskapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/deskhub/tasksync/internal/event"
	"github.com/deskhub/tasksync/internal/eventbus"
	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/internal/user"
	"github.com/deskhub/tasksync/pkg/cerr"
)

type Server struct {
	repo     task.Repository
	userRepo user.Repository
	bus      *eventbus.Bus
}

func NewServer(repo task.Repository, userRepo user.Repository, bus *eventbus.Bus) *Server {
	return &Server{
		repo:     repo,
		userRepo: userRepo,
		bus:      bus,
	}
}

func (s *Server) Register(r chi.Router) {
	r.Get("/tasks", s.handleList)
	r.Post("/tasks", s.handleCreate)
	r.Put("/tasks/{id}", s.handleUpdate)
	r.Delete("/tasks/{id}", s.handleDelete)
}

func (s *Server) handleList(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	showArchived, _ := strconv.ParseBool(r.URL.Query().Get("showArchived"))
	tasks, err := s.repo.List(ctx, showArchived)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	cerr.SetJSONResponse(ctx, tasks)
}

func (s *Server) handleCreate(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req task.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	now := time.Now()
	t := &task.Task{
		ID:          ulid.Make().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		NetworkType: req.NetworkType,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = task.StatusNew
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	if t.NetworkType == "" {
		t.NetworkType = task.NetworkInternet
	}
	if req.AssigneeID != "" {
		assignee, err := s.userRepo.Get(ctx, req.AssigneeID)
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "assignee not found", err)
			return
		}
		t.Assignee = assignee
	}

	if err := s.repo.Create(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.bus.Publish(event.NewTaskCreated(t))
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

func (s *Server) handleUpdate(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var patch task.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if err := patch.Validate(); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.NetworkType != nil {
		t.NetworkType = *patch.NetworkType
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.IsArchived != nil {
		t.IsArchived = *patch.IsArchived
	}
	if patch.AssigneeID != nil {
		if *patch.AssigneeID == "" {
			t.Assignee = nil
		} else {
			// Resolve the id to the full directory record; clients send ids
			// and receive users.
			assignee, err := s.userRepo.Get(ctx, *patch.AssigneeID)
			if err != nil {
				cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "assignee not found", err)
				return
			}
			t.Assignee = assignee
		}
	}
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.bus.Publish(eventForPatch(&patch, t))
	cerr.SetJSONResponse(ctx, t)
}

// eventForPatch chooses the event type for an update. Single-field quick
// edits map to their dedicated types so subscribers can distinguish them;
// anything broader is a generic task_updated.
func eventForPatch(p *task.Patch, t *task.Task) *event.Envelope {
	if p.FieldCount() == 1 {
		switch {
		case p.Status != nil:
			return event.NewTaskChanged(event.TypeTaskStatusChanged, t)
		case p.Priority != nil:
			return event.NewTaskChanged(event.TypeTaskPriorityChanged, t)
		case p.NetworkType != nil:
			return event.NewTaskChanged(event.TypeTaskNetworkTypeChanged, t)
		case p.IsArchived != nil:
			return event.NewTaskArchived(t)
		case p.AssigneeID != nil && *p.AssigneeID != "":
			return event.NewTaskAssigned(t, *p.AssigneeID)
		}
	}
	return event.NewTaskChanged(event.TypeTaskUpdated, t)
}

func (s *Server) handleDelete(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := s.repo.Delete(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.bus.Publish(event.NewTaskDeleted(id))
	cerr.SetJSONResponse(ctx, struct{}{})
}
