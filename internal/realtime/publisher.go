package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redisChannel = "nannyhub:realtime"

// Publisher is what services use to push row changes.
type Publisher interface {
	Publish(ctx context.Context, topic, eventType string, payload any)
}

// Broadcaster publishes through Redis when configured so every API
// replica delivers to its own subscribers. Without Redis it delivers to
// the local hub directly.
type Broadcaster struct {
	hub    *Hub
	client *redis.Client
	log    *zap.Logger
	now    func() time.Time
}

type BroadcasterParams struct {
	fx.In

	Hub   *Hub
	Redis *redis.Client `optional:"true"`
	Log   *zap.Logger
}

func NewBroadcaster(p BroadcasterParams) *Broadcaster {
	return &Broadcaster{
		hub:    p.Hub,
		client: p.Redis,
		log:    p.Log.Named("realtime"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (b *Broadcaster) Publish(ctx context.Context, topic, eventType string, payload any) {
	if b == nil {
		return
	}
	topic = strings.TrimSpace(topic)
	raw, err := json.Marshal(payload)
	if err != nil {
		b.log.Warn("realtime payload not serializable", zap.String("topic", topic), zap.Error(err))
		return
	}
	event := Event{Topic: topic, Type: eventType, Payload: raw, OccurredAt: b.now()}

	if b.client == nil {
		b.hub.Deliver(event)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := b.client.Publish(ctx, redisChannel, body).Err(); err != nil {
		b.log.Warn("redis publish failed, delivering locally", zap.String("topic", topic), zap.Error(err))
		b.hub.Deliver(event)
	}
}

// Run relays events from Redis into the local hub until ctx ends.
func (b *Broadcaster) Run(ctx context.Context) {
	if b == nil || b.client == nil {
		return
	}
	sub := b.client.Subscribe(ctx, redisChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn("invalid realtime message", zap.Error(err))
				continue
			}
			b.hub.Deliver(event)
		}
	}
}

var Module = fx.Module("realtime",
	fx.Provide(NewHub),
	fx.Provide(NewBroadcaster),
	fx.Provide(func(b *Broadcaster) Publisher { return b }),
	fx.Invoke(func(lc fx.Lifecycle, b *Broadcaster) {
		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go b.Run(ctx)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)
