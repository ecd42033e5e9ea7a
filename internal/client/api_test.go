package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/pkg/cerr"
)

func TestAPI_ListTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("showArchived"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]*task.Task{newTask("t1", 1, "one")})
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "secret")
	tasks, err := api.ListTasks(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}

func TestAPI_UpdateTaskSendsPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/tasks/t1", r.URL.Path)
		var patch task.Patch
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		assert.NotNil(t, patch.Status)

		updated := newTask("t1", 1, "one")
		updated.Status = *patch.Status
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "secret")
	status := task.StatusReview
	updated, err := api.UpdateTask(context.Background(), "t1", &task.Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, task.StatusReview, updated.Status)
}

func TestAPI_ErrorResponseMapsToCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(cerr.HTTPError{Code: "not_found", Message: "task not found"})
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "secret")
	_, err := api.ListTasks(context.Background(), false)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
	assert.Contains(t, err.Error(), "task not found")
}

func TestAPI_ErrorWithoutBodyStillMapsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, "secret")
	err := api.DeleteTask(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.Unavailable))
}
