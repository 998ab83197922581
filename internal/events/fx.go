package events

import (
	"context"

	"github.com/smallbiznis/nannyhub/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

// NewPublisher dials RabbitMQ when AMQP_URL is set and otherwise drops
// events.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	if !cfg.AMQP.Enabled() {
		log.Info("amqp not configured, domain events disabled")
		return NoOpPublisher{}, nil
	}
	pub, err := DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
	log.Info("amqp publisher ready", zap.String("exchange", cfg.AMQP.Exchange))
	return pub, nil
}
