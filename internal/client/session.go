package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/pkg/storage"
)

// Session wires one user's synchronization stack together: the HTTP API,
// the collection, the reconciler behind an event stream, the optimistic
// pipeline and the persisted filter view.
type Session struct {
	userID string

	api        *API
	collection *Collection
	pipeline   *Pipeline
	reconciler *Reconciler
	stream     *Stream
	filters    *FilterStore
	logger     *slog.Logger

	filterMu sync.RWMutex
	view     Filters

	refetchMu sync.Mutex
}

type SessionConfig struct {
	BaseURL string
	APIKey  string
	// UserID identifies the session's user for assignment notifications
	// and filter persistence.
	UserID string
	// FilterStorage holds the persisted per-user filters, typically local
	// storage under the user's state directory.
	FilterStorage storage.Storage
	Notifier      Notifier
	Logger        *slog.Logger
}

func NewSession(ctx context.Context, cfg SessionConfig) *Session {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}

	s := &Session{
		userID:     cfg.UserID,
		api:        NewAPI(cfg.BaseURL, cfg.APIKey),
		collection: NewCollection(),
		filters:    NewFilterStore(cfg.FilterStorage, cfg.Logger),
		logger:     cfg.Logger,
	}
	s.view = s.filters.Load(ctx, cfg.UserID)

	s.reconciler = NewReconciler(s.collection, notifier, cfg.Logger, cfg.UserID, s.Refetch)
	s.pipeline = NewPipeline(s.api, s.collection, notifier, cfg.Logger, s.Refetch)
	s.stream = NewStream(cfg.BaseURL+"/api/events", cfg.APIKey, cfg.Logger, s.reconciler.HandleRaw)
	return s
}

// Run loads the collection and then consumes the event stream until ctx is
// cancelled.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Refetch(ctx); err != nil {
		return err
	}
	return s.stream.Run(ctx)
}

// Refetch reloads the whole collection from the server. Concurrent calls
// are serialized so a burst of create notifications does not stampede the
// API.
func (s *Session) Refetch(ctx context.Context) error {
	s.refetchMu.Lock()
	defer s.refetchMu.Unlock()
	tasks, err := s.api.ListTasks(ctx, s.Filters().ShowArchived)
	if err != nil {
		return err
	}
	s.collection.ReplaceAll(tasks)
	return nil
}

// Visible applies the session's filters to the current collection.
func (s *Session) Visible() []*task.Task {
	return s.Filters().Apply(s.collection.Tasks())
}

func (s *Session) Filters() Filters {
	s.filterMu.RLock()
	defer s.filterMu.RUnlock()
	return s.view
}

// SetFilters updates the view and schedules its persistence. Toggling
// ShowArchived changes which rows the server returns, so the caller should
// Refetch afterwards.
func (s *Session) SetFilters(f Filters) {
	s.filterMu.Lock()
	s.view = f
	s.filterMu.Unlock()
	s.filters.Save(s.userID, f)
}

// FlushFilters writes any pending filter change immediately.
func (s *Session) FlushFilters(ctx context.Context) error {
	return s.filters.Flush(ctx, s.userID)
}

// ResetFilters restores the defaults and clears the persisted copy.
func (s *Session) ResetFilters(ctx context.Context) error {
	s.filterMu.Lock()
	s.view = DefaultFilters()
	s.filterMu.Unlock()
	return s.filters.Reset(ctx, s.userID)
}

func (s *Session) Connected() bool {
	return s.stream.Connected()
}

func (s *Session) Pipeline() *Pipeline {
	return s.pipeline
}

func (s *Session) API() *API {
	return s.api
}

func (s *Session) Collection() *Collection {
	return s.collection
}
