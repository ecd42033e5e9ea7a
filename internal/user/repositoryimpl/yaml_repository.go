package repositoryimpl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/deskhub/tasksync/internal/user"
	"github.com/deskhub/tasksync/pkg/cerr"
)

// debounceInterval is the delay after an fsnotify event before reloading,
// so editors that write in multiple steps trigger a single reload.
const debounceInterval = 100 * time.Millisecond

// YAMLRepository serves the employee directory from a single YAML file and
// reloads it when the file changes on disk.
type YAMLRepository struct {
	path string

	mu    sync.RWMutex
	byID  map[string]*user.User
	users []*user.User
}

type directoryFile struct {
	Users []*user.User `yaml:"users"`
}

func NewYAMLRepository(path string) (*YAMLRepository, error) {
	r := &YAMLRepository{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload reads the directory file. A missing file yields an empty directory.
func (r *YAMLRepository) Reload() error {
	var file directoryFile
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read user directory %s: %w", r.path, err)
		}
	} else if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse user directory %s: %w", r.path, err)
	}

	byID := make(map[string]*user.User, len(file.Users))
	for _, u := range file.Users {
		byID[u.ID] = u
	}

	r.mu.Lock()
	r.byID = byID
	r.users = file.Users
	r.mu.Unlock()
	return nil
}

// Watch reloads the directory whenever the file changes. Blocks until ctx is
// cancelled.
func (r *YAMLRepository) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create directory watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the parent directory: atomic rename-style saves replace the file
	// and would silently detach a watch on the file itself.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(r.path), err)
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.path) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, func() {
				if err := r.Reload(); err != nil {
					slog.Error("failed to reload user directory", "path", r.path, "error", err)
					return
				}
				slog.Info("user directory reloaded", "path", r.path)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("user directory watcher error", "error", err)
		}
	}
}

func (r *YAMLRepository) Get(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "user not found", nil)
	}
	return u.Clone(), nil
}

func (r *YAMLRepository) List(_ context.Context) ([]*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*user.User, len(r.users))
	for i, u := range r.users {
		out[i] = u.Clone()
	}
	return out, nil
}
