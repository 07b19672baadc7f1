package stream

import (
	"context"
	"sync"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/needs"
)

// Stream fan-outs workflow status-change events to all active subscribers
// (SSE clients). It implements needs.Publisher.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan needs.Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan needs.Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan needs.Event {
	ch := make(chan needs.Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers. It never blocks the
// workflow: slow subscribers lose events.
func (s *Stream) Publish(evt needs.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// SubscriberCount reports how many clients are currently attached.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
