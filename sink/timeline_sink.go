package sink

import (
	"context"
	"sync"

	"messaging-lab/domain"
	"messaging-lab/domain/event"
)

// Timeline accumulates appended messages in memory. Used by tests and
// tooling that want to observe the event stream without a store.
type Timeline struct {
	mu       sync.Mutex
	Owner    string
	Messages []domain.Message
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageAppended:
		t.mu.Lock()
		t.Messages = append(t.Messages, evt.Message)
		t.mu.Unlock()
	}
	return nil
}

func (t *Timeline) Snapshot() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Message(nil), t.Messages...)
}
