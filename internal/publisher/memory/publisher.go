// Package memory implements announce.Publisher by recording
// new-announcement events instead of sending them to a broker. Used in
// tests and brokerless development runs.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Event is one recorded publish: the topic and the announcement payload
// the pipeline emitted after persistence.
type Event struct {
	Topic   string
	Payload any
}

// Publisher accumulates announcement events for later inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns a pseudo event ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Payload: payload})
	return fmt.Sprintf("event-%d", len(p.events)), nil
}

// Events returns the recorded publishes in emission order.
func (p *Publisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
