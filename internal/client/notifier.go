package client

import "github.com/deskhub/tasksync/internal/task"

// Notifier receives user-facing signals from the reconciler and the mutation
// pipeline. Implementations render toasts, terminal lines or desktop
// notifications.
type Notifier interface {
	// TaskAssignedToYou fires when a remote event assigns a task to the
	// session's user.
	TaskAssignedToYou(t *task.Task)
	// ActionFailed fires when an optimistic mutation was rolled back.
	ActionFailed(action string, err error)
}

// NopNotifier discards all signals.
type NopNotifier struct{}

func (NopNotifier) TaskAssignedToYou(*task.Task) {}
func (NopNotifier) ActionFailed(string, error)   {}
