package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/nannyhub/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error { return nil }

func TestNewCarriesCorrelation(t *testing.T) {
	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-7")
	event := New(ctx, BookingReassigned, "1849", map[string]any{"newPayeeId": "nanny-2"}, time.Now())

	assert.Len(t, event.ID, 26)
	assert.Equal(t, "cid-7", event.Metadata["correlation_id"])
	assert.Equal(t, "1849", event.BookingID)
}

func TestAMQPPublisherRoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	pub := &AMQPPublisher{ch: ch, exchange: "nannyhub.events"}

	event := New(context.Background(), PaymentCaptured, "1849", map[string]any{"amount": 1_050_000}, time.Now())
	require.NoError(t, pub.Publish(context.Background(), event))

	assert.Equal(t, "nannyhub.events", ch.exchange)
	assert.Equal(t, "payment.captured", ch.key)
	assert.Equal(t, event.ID, ch.msg.MessageId)
	assert.Equal(t, event.Metadata["correlation_id"], ch.msg.CorrelationId)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var decoded Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, PaymentCaptured, decoded.Type)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &AMQPPublisher{ch: &fakeChannel{err: errors.New("channel closed")}, exchange: "x"}

	assert.NotPanics(t, func() {
		Emit(context.Background(), pub, zap.New(core), BookingCreated, "1", nil)
	})
	assert.Equal(t, 1, logs.FilterMessage("failed to publish domain event").Len())
}

func TestNoOpPublisher(t *testing.T) {
	assert.NoError(t, NoOpPublisher{}.Publish(context.Background(), Event{}))
	Emit(context.Background(), nil, nil, BookingCreated, "1", nil)
}
