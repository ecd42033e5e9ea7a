// Package client implements the browser-side half of the task
// synchronization layer: the event stream subscription, the in-memory task
// collection, the reconciler folding remote events into it, the optimistic
// mutation pipeline, and the persisted filter view. The server is only ever
// reached through the TaskAPI contract and the SSE endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/internal/user"
	"github.com/deskhub/tasksync/pkg/cerr"
)

// TaskAPI is the CRUD surface of the task store. The pipeline depends on the
// interface so tests can substitute a scripted implementation.
type TaskAPI interface {
	ListTasks(ctx context.Context, showArchived bool) ([]*task.Task, error)
	CreateTask(ctx context.Context, req *task.CreateRequest) (*task.Task, error)
	UpdateTask(ctx context.Context, id string, patch *task.Patch) (*task.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// API is the HTTP implementation of TaskAPI against a tasksync server.
type API struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewAPI(baseURL, apiKey string) *API {
	return &API{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (a *API) ListTasks(ctx context.Context, showArchived bool) ([]*task.Task, error) {
	var tasks []*task.Task
	path := fmt.Sprintf("/api/tasks?showArchived=%t", showArchived)
	if err := a.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (a *API) CreateTask(ctx context.Context, req *task.CreateRequest) (*task.Task, error) {
	var t task.Task
	if err := a.do(ctx, http.MethodPost, "/api/tasks", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (a *API) UpdateTask(ctx context.Context, id string, patch *task.Patch) (*task.Task, error) {
	var t task.Task
	if err := a.do(ctx, http.MethodPut, "/api/tasks/"+id, patch, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (a *API) DeleteTask(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

func (a *API) ListUsers(ctx context.Context) ([]*user.User, error) {
	var users []*user.User
	if err := a.do(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return cerr.NewError(cerr.Internal, "failed to encode request", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return cerr.NewError(cerr.Unavailable, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var httpErr cerr.HTTPError
		msg := http.StatusText(resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&httpErr); err == nil && httpErr.Message != "" {
			msg = httpErr.Message
		}
		return cerr.NewError(cerr.NewCodeFromHTTPStatus(resp.StatusCode), msg, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cerr.NewError(cerr.Internal, "failed to decode response", err)
	}
	return nil
}
