package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deskhub/tasksync/pkg/cerr"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) Register(r chi.Router) {
	r.Get("/users", s.handleList)
}

func (s *Server) handleList(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, users)
}
