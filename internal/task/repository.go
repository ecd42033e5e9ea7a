package task

import "context"

type Repository interface {
	// Create stores a new task. The repository assigns TaskNumber: the next
	// value of a monotonic per-store counter (not guaranteed gap-free).
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// List returns tasks ordered by TaskNumber descending. With showArchived
	// false only active tasks are returned, with true only archived ones.
	List(ctx context.Context, showArchived bool) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}
