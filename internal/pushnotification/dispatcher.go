package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deskhub/tasksync/internal/event"
	"github.com/deskhub/tasksync/internal/eventbus"
)

// Dispatcher turns task_assigned events into Web Push notifications for the
// new assignee. It runs alongside the SSE endpoint so employees hear about
// assignments even with no tab open.
type Dispatcher struct {
	bus    *eventbus.Bus
	sender *Sender
}

func NewDispatcher(bus *eventbus.Bus, sender *Sender) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		sender: sender,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	subID, ch := d.bus.Subscribe(256)
	defer d.bus.Unsubscribe(subID)

	slog.Info("push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("push notification dispatcher stopped")
			return nil
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			if env.Type == event.TypeTaskAssigned {
				d.handleTaskAssigned(ctx, env)
			}
		}
	}
}

func (d *Dispatcher) handleTaskAssigned(ctx context.Context, env *event.Envelope) {
	if env.Task == nil || env.UserID == "" {
		return
	}
	d.sender.SendToUser(ctx, env.UserID, &NotificationPayload{
		Title: "Task assigned to you",
		Body:  fmt.Sprintf("#%d %s", env.Task.TaskNumber, env.Task.Title),
		URL:   fmt.Sprintf("/tasks/%s", env.Task.ID),
		Tag:   env.Task.ID,
	})
}
