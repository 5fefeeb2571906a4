package api

import (
	"sync"
)

// PlanEvent is one broker message: a trial finishing or a plan reaching
// a terminal state.
type PlanEvent struct {
	Type string
	Data map[string]any
}

// Broker is the in-process event fanout, keyed by plan id.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan PlanEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan PlanEvent]struct{}{}}
}

func (b *Broker) Subscribe(planID string) chan PlanEvent {
	ch := make(chan PlanEvent, 8)
	b.mu.Lock()
	if b.subs[planID] == nil {
		b.subs[planID] = map[chan PlanEvent]struct{}{}
	}
	b.subs[planID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(planID string, ch chan PlanEvent) {
	b.mu.Lock()
	if m := b.subs[planID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, planID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

// Publish drops the event for slow subscribers rather than blocking the
// search goroutine.
func (b *Broker) Publish(planID string, evt PlanEvent) {
	b.mu.Lock()
	for ch := range b.subs[planID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
