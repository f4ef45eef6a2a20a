package telemetry

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AuditEvent describes one security relevant action.
type AuditEvent struct {
	Level     string
	Action    string
	Text      string
	Resource  string
	RequestID string
	UserID    *string
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	TraceID       string       `json:"trace_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level    string `json:"level"`
	Action   string `json:"action"`
	Text     string `json:"text"`
	Resource string `json:"resource,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes the event. A nil emitter drops it, so handlers can run
// without auditing in tests.
func (e *AuditEmitter) Emit(ctx context.Context, event AuditEvent) {
	if e == nil || e.publisher == nil {
		return
	}

	log.Printf("audit emit: level=%s action=%s request_id=%s resource=%s", event.Level, event.Action, event.RequestID, event.Resource)
	envelope := AuditEnvelope{
		SchemaVersion: 2,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     event.RequestID,
		UserID:        event.UserID,
		TraceID:       traceID(ctx),
		Payload: AuditPayload{
			Level:    event.Level,
			Action:   event.Action,
			Text:     event.Text,
			Resource: event.Resource,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
