package payment

import (
	"github.com/smallbiznis/nannyhub/internal/config"
	"github.com/smallbiznis/nannyhub/internal/payment/adapters"
	"github.com/smallbiznis/nannyhub/internal/payment/adapters/paystack"
	"github.com/smallbiznis/nannyhub/internal/payment/adapters/sandbox"
	"github.com/smallbiznis/nannyhub/internal/payment/domain"
	"github.com/smallbiznis/nannyhub/internal/payment/repository"
	paymentservice "github.com/smallbiznis/nannyhub/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			paystack.NewFactory(),
			sandbox.NewFactory(),
		)
	}),
	fx.Provide(NewGateway),
	fx.Provide(paymentservice.NewService),
)

// NewGateway builds the configured provider's gateway.
func NewGateway(cfg config.Config, registry *adapters.Registry, policy *config.PolicyHolder, log *zap.Logger) (domain.Gateway, error) {
	adapterCfg := domain.AdapterConfig{
		SecretKey: cfg.Payment.SecretKey,
		BaseURL:   cfg.Payment.BaseURL,
	}
	if policy != nil {
		adapterCfg.Timeout = policy.Get().Payment.GatewayTimeout
	}
	gw, err := registry.NewGateway(cfg.Payment.Provider, adapterCfg)
	if err != nil {
		return nil, err
	}
	log.Info("payment gateway ready", zap.String("provider", cfg.Payment.Provider))
	return gw, nil
}
