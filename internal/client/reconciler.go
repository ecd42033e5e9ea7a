package client

import (
	"context"
	"log/slog"

	"github.com/deskhub/tasksync/internal/event"
)

// Reconciler folds remote task events into the collection. It is the single
// writer for remote state; the optimistic pipeline is the single writer for
// local state, and because every collection operation is idempotent the two
// converge regardless of arrival order.
type Reconciler struct {
	collection *Collection
	notifier   Notifier
	logger     *slog.Logger

	// userID is the session's own user, used to spot assignments to us.
	userID string

	// refetch reloads the whole collection from the server. It is invoked
	// for count-only create events, which carry no task payload.
	refetch func(ctx context.Context) error
}

func NewReconciler(
	collection *Collection,
	notifier Notifier,
	logger *slog.Logger,
	userID string,
	refetch func(ctx context.Context) error,
) *Reconciler {
	return &Reconciler{
		collection: collection,
		notifier:   notifier,
		logger:     logger,
		userID:     userID,
		refetch:    refetch,
	}
}

// HandleRaw decodes and applies one wire frame. Malformed frames are logged
// and dropped; a bad event must never take the stream down.
func (r *Reconciler) HandleRaw(ctx context.Context, data []byte) {
	env, err := event.Decode(data)
	if err != nil {
		r.logger.WarnContext(ctx, "dropping malformed event", "error", err)
		return
	}
	r.Apply(ctx, env)
}

// Apply dispatches one envelope into the collection.
func (r *Reconciler) Apply(ctx context.Context, env *event.Envelope) {
	switch env.Type {
	case event.TypeTaskCreated:
		if env.Task != nil {
			r.collection.Prepend(env.Task)
			return
		}
		if env.NewTasksCount != nil {
			// Count-only creates carry no rows, reload instead.
			if err := r.refetch(ctx); err != nil {
				r.logger.WarnContext(ctx, "refetch after create notification failed", "error", err)
			}
			return
		}
		r.logger.WarnContext(ctx, "dropping create event without task or count")

	case event.TypeTaskUpdated,
		event.TypeTaskStatusChanged,
		event.TypeTaskPriorityChanged,
		event.TypeTaskNetworkTypeChanged,
		event.TypeTaskArchived:
		if env.Task == nil {
			r.logger.WarnContext(ctx, "dropping event without task payload", "type", env.Type)
			return
		}
		// Upsert, not replace: an update for an id we have not seen yet
		// (missed create, fresh session) still carries the full record.
		r.collection.Upsert(env.Task)

	case event.TypeTaskAssigned:
		if env.Task == nil {
			r.logger.WarnContext(ctx, "dropping event without task payload", "type", env.Type)
			return
		}
		r.collection.Upsert(env.Task)
		if r.userID != "" && env.UserID == r.userID {
			r.notifier.TaskAssignedToYou(env.Task)
		}

	case event.TypeTaskDeleted:
		if env.TaskID == "" {
			r.logger.WarnContext(ctx, "dropping delete event without task id")
			return
		}
		r.collection.Remove(env.TaskID)

	case event.TypeConnected, event.TypePing:
		// Keepalives, nothing to fold in.

	default:
		r.logger.WarnContext(ctx, "dropping event of unknown type", "type", env.Type)
	}
}
