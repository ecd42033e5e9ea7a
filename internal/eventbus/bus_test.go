package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhub/tasksync/internal/event"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	b := New()
	id1, ch1 := b.Subscribe(4)
	id2, ch2 := b.Subscribe(4)
	defer b.Unsubscribe(id1)
	defer b.Unsubscribe(id2)

	b.Publish(event.NewTaskDeleted("t1"))

	env := <-ch1
	assert.Equal(t, event.TypeTaskDeleted, env.Type)
	env = <-ch2
	assert.Equal(t, event.TypeTaskDeleted, env.Type)
}

func TestBus_FullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	id, ch := b.Subscribe(1)
	defer b.Unsubscribe(id)

	// Second publish overflows the buffer and must not block.
	b.Publish(event.NewTaskDeleted("t1"))
	b.Publish(event.NewTaskDeleted("t2"))

	env := <-ch
	assert.Equal(t, "t1", env.TaskID)
	select {
	case env := <-ch:
		t.Fatalf("expected dropped event, got %s", env.TaskID)
	default:
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := New()
	id, ch := b.Subscribe(1)

	require.Equal(t, 1, b.SubscriberCount())
	b.Unsubscribe(id)
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-ch
	assert.False(t, ok)

	// Unsubscribing twice is harmless.
	b.Unsubscribe(id)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	b := New()
	b.Publish(event.NewPing())
	assert.Equal(t, 0, b.SubscriberCount())
}
