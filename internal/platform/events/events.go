// Package events publishes domain events (user.created, contributor.linked, ...)
// to Kafka so downstream metric pipelines can react to registry changes.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"contribution-metrics/pkg/requestcontext"
)

// Type names a domain event.
type Type string

const (
	UserCreated         Type = "user.created"
	UserUpdated         Type = "user.updated"
	UserDeleted         Type = "user.deleted"
	OrganizationCreated Type = "organization.created"
	OrganizationUpdated Type = "organization.updated"
	OrganizationDeleted Type = "organization.deleted"
	ContributorCreated  Type = "contributor.created"
	ContributorUpdated  Type = "contributor.updated"
	ContributorLinked   Type = "contributor.linked"
	ContributorUnlinked Type = "contributor.unlinked"
	ContributorDeleted  Type = "contributor.deleted"
)

// Event is the envelope written to the topic. Data never carries secrets.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	AggregateID string    `json:"aggregateId"`
	RequestID   string    `json:"requestId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
	Data        any       `json:"data,omitempty"`
}

// New stamps an event with an id, the request clock, and the request id.
func New(ctx context.Context, typ Type, aggregateID string, data any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        typ,
		AggregateID: aggregateID,
		RequestID:   requestcontext.RequestID(ctx),
		OccurredAt:  requestcontext.Now(ctx),
		Data:        data,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Emit publishes ev and logs, rather than returns, delivery failures. The
// registry write has already committed, so a lost event must not fail the request.
func Emit(ctx context.Context, p Publisher, logger *slog.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to publish event",
			"event_type", string(ev.Type),
			"aggregate_id", ev.AggregateID,
			"request_id", ev.RequestID,
			"error", err,
		)
	}
}

// MemoryPublisher records events in memory. Used by tests and when Kafka is not configured.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types lists published event types in order.
func (p *MemoryPublisher) Types() []Type {
	evs := p.Events()
	out := make([]Type, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}
