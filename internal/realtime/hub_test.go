package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub()
	topic := Topic("notifications", "user_id", "client-1")

	sub, backlog, err := hub.Subscribe(topic)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, backlog)

	hub.Deliver(Event{Topic: topic, Type: "INSERT", Payload: json.RawMessage(`{"id":"1"}`)})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "INSERT", ev.Type)
		assert.JSONEq(t, `{"id":"1"}`, string(ev.Payload))
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHubReplaysBufferToLateSubscriber(t *testing.T) {
	hub := NewHub()
	topic := Topic("bookings", "client_id", "c")

	first, _, err := hub.Subscribe(topic)
	require.NoError(t, err)
	defer first.Close()

	for i := 0; i < DefaultBufferSize+5; i++ {
		hub.Deliver(Event{Topic: topic, Type: "UPDATE"})
	}

	second, backlog, err := hub.Subscribe(topic)
	require.NoError(t, err)
	defer second.Close()
	assert.Len(t, backlog, DefaultBufferSize)
}

func TestHubDropsTopicsWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	topic := Topic("bookings", "nanny_id", "n")

	hub.Deliver(Event{Topic: topic, Type: "UPDATE"})
	sub, backlog, err := hub.Subscribe(topic)
	require.NoError(t, err)
	sub.Close()
	assert.Empty(t, backlog)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.streams)
}

func TestSubscribeRejectsMalformedTopic(t *testing.T) {
	_, _, err := NewHub().Subscribe("notifications")
	assert.ErrorIs(t, err, ErrInvalidTopic)
}

func TestBroadcasterWithoutRedisDeliversLocally(t *testing.T) {
	hub := NewHub()
	b := NewBroadcaster(BroadcasterParams{Hub: hub, Log: zap.NewNop()})
	topic := Topic("notifications", "user_id", "admin-1")

	sub, _, err := hub.Subscribe(topic)
	require.NoError(t, err)
	defer sub.Close()

	b.Publish(context.Background(), topic, "INSERT", map[string]string{"title": "Escalation"})

	select {
	case ev := <-sub.Events():
		assert.JSONEq(t, `{"title":"Escalation"}`, string(ev.Payload))
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}
