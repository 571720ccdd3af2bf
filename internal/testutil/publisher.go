package testutil

import (
	"context"
	"sync"

	"github.com/alexanderramin/dealroom/internal/domain"
)

// RecordingPublisher captures published events for assertions.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.Err
}

func (p *RecordingPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the recorded event types in order.
func (p *RecordingPublisher) Types() []domain.EventType {
	var types []domain.EventType
	for _, e := range p.Events() {
		types = append(types, e.Type)
	}
	return types
}

// Count returns how many events of type t were published.
func (p *RecordingPublisher) Count(t domain.EventType) int {
	n := 0
	for _, e := range p.Events() {
		if e.Type == t {
			n++
		}
	}
	return n
}
