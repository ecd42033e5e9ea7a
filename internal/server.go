package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/deskhub/tasksync/internal/config"
	"github.com/deskhub/tasksync/internal/eventbus"
	"github.com/deskhub/tasksync/internal/pushnotification"
	"github.com/deskhub/tasksync/internal/stream"
	"github.com/deskhub/tasksync/internal/taskapi"
	"github.com/deskhub/tasksync/internal/user"
	"github.com/deskhub/tasksync/pkg/cerr"
	"github.com/deskhub/tasksync/pkg/clog"
)

type Server struct {
	server     *http.Server
	env        *config.Env
	taskServer *taskapi.Server
	userServer *user.Server
	pushServer *pushnotification.Server
	sseServer  *stream.Server
	bus        *eventbus.Bus
}

func NewServer(
	env *config.Env,
	taskServer *taskapi.Server,
	userServer *user.Server,
	pushServer *pushnotification.Server,
	sseServer *stream.Server,
	bus *eventbus.Bus,
) *Server {
	return &Server{
		env:        env,
		taskServer: taskServer,
		userServer: userServer,
		pushServer: pushServer,
		sseServer:  sseServer,
		bus:        bus,
	}
}

// ListenAndServe starts the HTTP server. The provided context is used as the
// base context for all incoming requests via http.Server.BaseContext, so
// cancelling it (on shutdown signal) also ends every open event stream.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		s.taskServer.Register(r)
		s.userServer.Register(r)
		s.pushServer.Register(r)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{bus: s.bus})
	// The event stream writes its own response; it must bypass the JSON
	// response middleware.
	mux.Handle("/api/events", clog.SlogChiMiddleware()(s.sseServer))
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HealthChecker reports liveness plus the number of live bus subscribers
// (open event streams and the push dispatcher).
type HealthChecker struct {
	bus *eventbus.Bus
}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"subscribers": hc.bus.SubscriberCount(),
	})
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
