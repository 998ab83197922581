package events

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/nannyhub/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

type Type string

const (
	BookingCreated       Type = "booking.created"
	BookingCancelled     Type = "booking.cancelled"
	BookingConfirmed     Type = "booking.confirmed"
	BookingActivated     Type = "booking.activated"
	BookingCompleted     Type = "booking.completed"
	BookingReassigned    Type = "booking.reassigned"
	BookingEscalated     Type = "booking.escalated"
	ReassignmentResolved Type = "reassignment.resolved"
	PaymentAuthorized    Type = "payment.authorized"
	PaymentFailed        Type = "payment.failed"
	PaymentCaptured      Type = "payment.captured"
	FinancialsCorrected  Type = "financials.corrected"
)

// Event is the envelope published to the broker. Type doubles as the
// routing key.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	BookingID  string            `json:"booking_id,omitempty"`
	Payload    map[string]any    `json:"payload,omitempty"`
	Metadata   map[string]string `json:"metadata"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// New builds an event stamped with a ULID and the correlation metadata
// found on ctx.
func New(ctx context.Context, eventType Type, bookingID string, payload map[string]any, now time.Time) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		BookingID:  bookingID,
		Payload:    payload,
		Metadata:   correlation.Metadata(ctx, now),
		OccurredAt: now.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NoOpPublisher struct{}

func (NoOpPublisher) Publish(context.Context, Event) error { return nil }

// Emit publishes after a committed state change. Broker failures are
// logged and dropped since the database row is the source of truth.
func Emit(ctx context.Context, pub Publisher, log *zap.Logger, eventType Type, bookingID string, payload map[string]any) {
	if pub == nil {
		return
	}
	event := New(ctx, eventType, bookingID, payload, time.Now())
	if err := pub.Publish(ctx, event); err != nil && log != nil {
		log.Warn("failed to publish domain event",
			zap.String("event_type", string(eventType)),
			zap.String("booking_id", bookingID),
			zap.Error(err),
		)
	}
}
