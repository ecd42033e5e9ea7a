package taskapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhub/tasksync/internal/event"
	"github.com/deskhub/tasksync/internal/eventbus"
	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/internal/task/repositoryimpl"
	"github.com/deskhub/tasksync/internal/taskapi"
	"github.com/deskhub/tasksync/internal/user"
	"github.com/deskhub/tasksync/pkg/cerr"
	"github.com/deskhub/tasksync/pkg/storage"
)

type stubUserRepo struct {
	users map[string]*user.User
}

func (r *stubUserRepo) Get(_ context.Context, id string) (*user.User, error) {
	if u, ok := r.users[id]; ok {
		return u.Clone(), nil
	}
	return nil, cerr.NewError(cerr.NotFound, "user not found", nil)
}

func (r *stubUserRepo) List(context.Context) ([]*user.User, error) {
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Clone())
	}
	return out, nil
}

type serverFixture struct {
	router *chi.Mux
	bus    *eventbus.Bus
	events <-chan *event.Envelope
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := repositoryimpl.NewYAMLRepository(st)
	users := &stubUserRepo{users: map[string]*user.User{
		"u1": {ID: "u1", Name: "Anna", Initials: "AN"},
	}}
	bus := eventbus.New()
	subID, events := bus.Subscribe(16)
	t.Cleanup(func() { bus.Unsubscribe(subID) })

	router := chi.NewRouter()
	router.Use(cerr.NewJSONResponseChiMiddleware())
	taskapi.NewServer(repo, users, bus).Register(router)
	return &serverFixture{router: router, bus: bus, events: events}
}

func (f *serverFixture) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) createTask(t *testing.T, title string) *task.Task {
	t.Helper()
	rec := f.request(t, http.MethodPost, "/tasks", &task.CreateRequest{Title: title})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created task.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	<-f.events // consume the create event
	return &created
}

func TestServer_CreateAppliesDefaultsAndPublishes(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/tasks", &task.CreateRequest{Title: "new task"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created task.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.TaskNumber)
	assert.Equal(t, task.StatusNew, created.Status)
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, task.NetworkInternet, created.NetworkType)

	env := <-f.events
	assert.Equal(t, event.TypeTaskCreated, env.Type)
	assert.Equal(t, created.ID, env.TaskID)
	require.NotNil(t, env.Task)
}

func TestServer_CreateRejectsMissingTitle(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/tasks", &task.CreateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateResolvesAssignee(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/tasks", &task.CreateRequest{Title: "assigned", AssigneeID: "u1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created task.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotNil(t, created.Assignee)
	assert.Equal(t, "Anna", created.Assignee.Name)

	rec = f.request(t, http.MethodPost, "/tasks", &task.CreateRequest{Title: "bad", AssigneeID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListFiltersArchived(t *testing.T) {
	f := newServerFixture(t)
	created := f.createTask(t, "active")
	archivedTask := f.createTask(t, "archived")

	archived := true
	rec := f.request(t, http.MethodPut, "/tasks/"+archivedTask.ID, &task.Patch{IsArchived: &archived})
	require.Equal(t, http.StatusOK, rec.Code)
	<-f.events

	rec = f.request(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active []*task.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&active))
	require.Len(t, active, 1)
	assert.Equal(t, created.ID, active[0].ID)

	rec = f.request(t, http.MethodGet, "/tasks?showArchived=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var archivedList []*task.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&archivedList))
	require.Len(t, archivedList, 1)
	assert.Equal(t, archivedTask.ID, archivedList[0].ID)
}

func TestServer_SingleFieldUpdatesPublishDedicatedEvents(t *testing.T) {
	f := newServerFixture(t)
	created := f.createTask(t, "quick edits")

	status := task.StatusInProgress
	rec := f.request(t, http.MethodPut, "/tasks/"+created.ID, &task.Patch{Status: &status})
	require.Equal(t, http.StatusOK, rec.Code)
	env := <-f.events
	assert.Equal(t, event.TypeTaskStatusChanged, env.Type)

	priority := task.PriorityHigh
	rec = f.request(t, http.MethodPut, "/tasks/"+created.ID, &task.Patch{Priority: &priority})
	require.Equal(t, http.StatusOK, rec.Code)
	env = <-f.events
	assert.Equal(t, event.TypeTaskPriorityChanged, env.Type)

	network := task.NetworkEMVS
	rec = f.request(t, http.MethodPut, "/tasks/"+created.ID, &task.Patch{NetworkType: &network})
	require.Equal(t, http.StatusOK, rec.Code)
	env = <-f.events
	assert.Equal(t, event.TypeTaskNetworkTypeChanged, env.Type)

	archived := true
	rec = f.request(t, http.MethodPut, "/tasks/"+created.ID, &task.Patch{IsArchived: &archived})
	require.Equal(t, http.StatusOK, rec.Code)
	env = <-f.events
	assert.Equal(t, event.TypeTaskArchived, env.Type)
}

func TestServer_AssignmentPublishesAssigneeID(t *testing.T) {
	f := newServerFixture(t)
	created := f.createTask(t, "to assign")

	assignee := "u1"
	rec := f.request(t, http.MethodPut, "/tasks/"+created.ID, &task.Patch{AssigneeID: &assignee})
	require.Equal(t, http.StatusOK, rec.Code)

	env := <-f.events
	assert.Equal(t, event.TypeTaskAssigned, env.Type)
	assert.Equal(t, "u1", env.UserID)
	require.NotNil(t, env.Task)
	require.NotNil(t, env.Task.Assignee)
	assert.Equal(t, "Anna", env.Task.Assignee.Name)

	// Unassigning is a plain archived/updated style event, not an assignment.
	empty := ""
	rec = f.request(t, http.MethodPut, "/tasks/"+created.ID, &task.Patch{AssigneeID: &empty})
	require.Equal(t, http.StatusOK, rec.Code)
	env = <-f.events
	assert.Equal(t, event.TypeTaskUpdated, env.Type)
	assert.Nil(t, env.Task.Assignee)
}

func TestServer_MultiFieldUpdatePublishesTaskUpdated(t *testing.T) {
	f := newServerFixture(t)
	created := f.createTask(t, "form edit")

	title := "renamed"
	status := task.StatusReview
	rec := f.request(t, http.MethodPut, "/tasks/"+created.ID, &task.Patch{Title: &title, Status: &status})
	require.Equal(t, http.StatusOK, rec.Code)

	env := <-f.events
	assert.Equal(t, event.TypeTaskUpdated, env.Type)
	assert.Equal(t, "renamed", env.Task.Title)
}

func TestServer_UpdateUnknownTaskIs404(t *testing.T) {
	f := newServerFixture(t)

	title := "x"
	rec := f.request(t, http.MethodPut, "/tasks/missing", &task.Patch{Title: &title})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DeletePublishes(t *testing.T) {
	f := newServerFixture(t)
	created := f.createTask(t, "doomed")

	rec := f.request(t, http.MethodDelete, "/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := <-f.events
	assert.Equal(t, event.TypeTaskDeleted, env.Type)
	assert.Equal(t, created.ID, env.TaskID)

	rec = f.request(t, http.MethodDelete, "/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
