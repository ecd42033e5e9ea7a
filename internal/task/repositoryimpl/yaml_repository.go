package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/pkg/cerr"
	"github.com/deskhub/tasksync/pkg/storage"
)

const tasksPrefix = "tasks"

// YAMLRepository stores one YAML file per task under the tasks/ prefix of the
// given storage backend.
type YAMLRepository struct {
	storage storage.Storage

	// numberMu serializes task number assignment; the counter itself is
	// derived from the stored tasks so it survives restarts.
	numberMu   sync.Mutex
	lastNumber int
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", tasksPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	exists, err := r.storage.Exists(ctx, path(t.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}

	number, err := r.nextTaskNumber(ctx)
	if err != nil {
		return err
	}
	t.TaskNumber = number

	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, path(t.ID), data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}

func (r *YAMLRepository) nextTaskNumber(ctx context.Context) (int, error) {
	r.numberMu.Lock()
	defer r.numberMu.Unlock()

	if r.lastNumber == 0 {
		all, err := r.readAll(ctx)
		if err != nil {
			return 0, err
		}
		for _, t := range all {
			if t.TaskNumber > r.lastNumber {
				r.lastNumber = t.TaskNumber
			}
		}
	}
	r.lastNumber++
	return r.lastNumber, nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal task: %w", err))
	}
	return &t, nil
}

func (r *YAMLRepository) readAll(ctx context.Context) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}

	var all []*task.Task
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var t task.Task
		if err := yaml.Unmarshal(data, &t); err != nil {
			continue
		}
		all = append(all, &t)
	}
	return all, nil
}

func (r *YAMLRepository) List(ctx context.Context, showArchived bool) ([]*task.Task, error) {
	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	tasks := all[:0]
	for _, t := range all {
		if t.IsArchived == showArchived {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].TaskNumber > tasks[j].TaskNumber
	})
	return tasks, nil
}

func (r *YAMLRepository) Update(ctx context.Context, t *task.Task) error {
	exists, err := r.storage.Exists(ctx, path(t.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, path(t.ID), data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	return nil
}
