// Package audit records authorization and credential lifecycle events.
//
// Events are best-effort: a failing sink never blocks or fails the operation
// that produced the event, it only logs. Event IDs are ULIDs so the trail
// sorts chronologically.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"warrant/internal/platform/middleware"
	id "warrant/pkg/domain"
)

// EventType classifies an audit event.
type EventType string

const (
	EventAuthorizationGranted EventType = "authorization.granted"
	EventAuthorizationDenied  EventType = "authorization.denied"
	EventCredentialAdded      EventType = "credential.added"
	EventCredentialRemoved    EventType = "credential.removed"
	EventAgentRegistered      EventType = "agent.registered"
	EventAgentDeregistered    EventType = "agent.deregistered"
)

// Event is a single audit trail entry. Client describes the calling client
// when the event originated from an HTTP request.
type Event struct {
	ID      string     `json:"id"`
	Type    EventType  `json:"type"`
	AgentID id.AgentID `json:"agent_id,omitempty"`
	Role    id.Role    `json:"role,omitempty"`
	Detail  string     `json:"detail,omitempty"`
	Client  string     `json:"client,omitempty"`
	At      time.Time  `json:"at"`
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// Option configures the publisher.
type Option func(*Publisher)

// Publisher assigns IDs and timestamps to events and hands them to a sink.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates an audit publisher over the given sink.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink: sink,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// WithLogger configures a logger for the publisher.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// Emit records an event. The calling client's description, when the request
// middleware annotated the context with one, is carried on the event. Sink
// failures are logged and swallowed.
func (p *Publisher) Emit(ctx context.Context, eventType EventType, agentID id.AgentID, role id.Role, detail string) {
	event := Event{
		ID:      ulid.Make().String(),
		Type:    eventType,
		AgentID: agentID,
		Role:    role,
		Detail:  detail,
		Client:  middleware.GetClientInfo(ctx),
		At:      p.now(),
	}
	if err := p.sink.Record(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "audit event dropped",
			"event_type", string(eventType), "error", err)
	}
}
