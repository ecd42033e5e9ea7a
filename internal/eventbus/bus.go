package eventbus

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/deskhub/tasksync/internal/event"
)

// Bus fans every published envelope out to all subscribers. Delivery is
// best-effort: a subscriber whose buffer is full misses the event rather
// than blocking the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *event.Envelope
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *event.Envelope),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *event.Envelope) {
	id := ulid.Make().String()
	ch := make(chan *event.Envelope, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(env *event.Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- env:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}

// SubscriberCount reports the number of live subscriptions. Exposed on the
// health endpoint as a rough count of open event streams.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
