// Package stream exposes the event bus to browsers as a Server-Sent-Events
// endpoint. One subscription per connection; the envelope JSON is the SSE
// data payload.
package stream

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deskhub/tasksync/internal/event"
	"github.com/deskhub/tasksync/internal/eventbus"
)

// pingInterval keeps intermediaries from timing out idle connections.
const pingInterval = 25 * time.Second

type Server struct {
	bus *eventbus.Bus
}

func NewServer(bus *eventbus.Bus) *Server {
	return &Server{bus: bus}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	connID := uuid.NewString()
	subID, ch := s.bus.Subscribe(64)
	defer s.bus.Unsubscribe(subID)

	slog.Info("event stream opened", "conn_id", connID, "remote", r.RemoteAddr)
	defer slog.Info("event stream closed", "conn_id", connID)

	if err := writeEnvelope(w, event.NewConnected()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writeEnvelope(w, event.NewPing()); err != nil {
				return
			}
			flusher.Flush()
		case env, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEnvelope(w, env); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEnvelope(w http.ResponseWriter, env *event.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		// Encoding failure must not kill the stream; skip the event.
		slog.Error("failed to encode event", "type", env.Type, "error", err)
		return nil
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
