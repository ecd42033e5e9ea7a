package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhub/tasksync/internal/eventbus"
)

func TestHealthChecker_ReportsSubscriberCount(t *testing.T) {
	bus := eventbus.New()
	bus.Subscribe(1)
	bus.Subscribe(1)

	hc := &HealthChecker{bus: bus}
	rec := httptest.NewRecorder()
	hc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Status      string `json:"status"`
		Subscribers int    `json:"subscribers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.Subscribers)
}
