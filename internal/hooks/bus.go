// Package hooks provides the synchronous fan-out event bus the Agent
// Orchestrator and Background Job Runner use to notify subscribers
// (telemetry, the Proactive Router, audit logging) about lifecycle
// events without coupling to them directly.
package hooks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// EventType names a kind of lifecycle event published on the Bus.
type EventType string

const (
	EventAgentStarted         EventType = "agent_started"
	EventAgentCompleted       EventType = "agent_completed"
	EventAgentFailed          EventType = "agent_failed"
	EventWorkflowStepStarted  EventType = "workflow_step_started"
	EventWorkflowStepFinished EventType = "workflow_step_finished"
	EventWorkflowAwaiting     EventType = "workflow_awaiting_approval"
	EventJobRunStarted        EventType = "job_run_started"
	EventJobRunFinished       EventType = "job_run_finished"
	EventInsightDelivered     EventType = "insight_delivered"
)

// Event is a single occurrence published on the Bus.
type Event struct {
	Type      EventType
	At        time.Time
	UserID    string
	AgentName string
	GoalID    string
	Data      map[string]any
	Err       error
}

type (
	// Bus publishes lifecycle events to registered subscribers in a
	// fan-out pattern. It is safe for concurrent Publish, Register, and
	// Close.
	//
	// Events are delivered synchronously in the publisher's goroutine;
	// iteration stops at the first subscriber error, so a critical
	// subscriber (for example a durable audit sink) can halt the
	// publishing call on unrecoverable failure.
	Bus interface {
		Publish(ctx context.Context, event Event) error
		Register(sub Subscriber) (Subscription, error)
	}

	// Subscriber reacts to published events.
	Subscriber interface {
		HandleEvent(ctx context.Context, event Event) error
	}

	// SubscriberFunc adapts a plain function to Subscriber.
	SubscriberFunc func(ctx context.Context, event Event) error

	// Subscription represents an active registration on a Bus. Close is
	// idempotent.
	Subscription interface {
		Close() error
	}

	bus struct {
		mu          sync.RWMutex
		subscribers map[*subscription]Subscriber
	}

	subscription struct {
		bus  *bus
		once sync.Once
	}
)

// HandleEvent implements Subscriber.
func (f SubscriberFunc) HandleEvent(ctx context.Context, event Event) error { return f(ctx, event) }

// NewBus constructs an in-memory event bus ready for immediate use.
func NewBus() Bus {
	return &bus{subscribers: make(map[*subscription]Subscriber)}
}

func (b *bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()
	for _, sub := range subs {
		if err := sub.HandleEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *bus) Register(sub Subscriber) (Subscription, error) {
	if sub == nil {
		return nil, errors.New("subscriber is required")
	}
	s := &subscription{bus: b}
	b.mu.Lock()
	b.subscribers[s] = sub
	b.mu.Unlock()
	return s, nil
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subscribers, s)
		s.bus.mu.Unlock()
	})
	return nil
}
