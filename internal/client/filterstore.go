package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deskhub/tasksync/pkg/cerr"
	"github.com/deskhub/tasksync/pkg/storage"
)

const filterSaveDelay = 500 * time.Millisecond

// FilterStore persists one Filters value per user. Saves are debounced so a
// burst of view tweaks produces a single write; a corrupt or missing file
// degrades to defaults instead of failing the session.
type FilterStore struct {
	storage storage.Storage
	logger  *slog.Logger

	mu      sync.Mutex
	current map[string]Filters
	timers  map[string]*time.Timer
}

func NewFilterStore(st storage.Storage, logger *slog.Logger) *FilterStore {
	return &FilterStore{
		storage: st,
		logger:  logger,
		current: map[string]Filters{},
		timers:  map[string]*time.Timer{},
	}
}

func filterPath(userID string) string {
	return "filters/" + userID + ".yaml"
}

// Load returns the persisted filters for the user, or defaults when nothing
// usable is stored.
func (s *FilterStore) Load(ctx context.Context, userID string) Filters {
	s.mu.Lock()
	if f, ok := s.current[userID]; ok {
		s.mu.Unlock()
		return f
	}
	s.mu.Unlock()

	data, err := s.storage.Read(ctx, filterPath(userID))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to read filters, using defaults", "userId", userID, "error", err)
		}
		return DefaultFilters()
	}
	var f Filters
	if err := yaml.Unmarshal(data, &f); err != nil {
		s.logger.WarnContext(ctx, "stored filters are corrupt, using defaults", "userId", userID, "error", err)
		return DefaultFilters()
	}
	if f.SortField == "" {
		f.SortField = SortByNumber
	}
	if f.SortDirection == "" {
		f.SortDirection = SortDesc
	}
	s.mu.Lock()
	s.current[userID] = f
	s.mu.Unlock()
	return f
}

// Save records the filters and schedules a debounced write.
func (s *FilterStore) Save(userID string, f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[userID] = f
	if t, ok := s.timers[userID]; ok {
		t.Stop()
	}
	s.timers[userID] = time.AfterFunc(filterSaveDelay, func() {
		if err := s.flush(context.Background(), userID); err != nil {
			s.logger.Warn("failed to persist filters", "userId", userID, "error", err)
		}
	})
}

// Flush writes any pending filters immediately.
func (s *FilterStore) Flush(ctx context.Context, userID string) error {
	s.mu.Lock()
	if t, ok := s.timers[userID]; ok {
		t.Stop()
		delete(s.timers, userID)
	}
	s.mu.Unlock()
	return s.flush(ctx, userID)
}

func (s *FilterStore) flush(ctx context.Context, userID string) error {
	s.mu.Lock()
	f, ok := s.current[userID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to encode filters", err)
	}
	if err := s.storage.Write(ctx, filterPath(userID), data); err != nil {
		return cerr.WrapStorageWriteError("filters", err)
	}
	return nil
}

// Reset drops the user's filters from memory and disk.
func (s *FilterStore) Reset(ctx context.Context, userID string) error {
	s.mu.Lock()
	if t, ok := s.timers[userID]; ok {
		t.Stop()
		delete(s.timers, userID)
	}
	delete(s.current, userID)
	s.mu.Unlock()
	if err := s.storage.Delete(ctx, filterPath(userID)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return cerr.WrapStorageDeleteError("filters", err)
	}
	return nil
}
