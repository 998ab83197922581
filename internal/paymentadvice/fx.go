package paymentadvice

import (
	"github.com/smallbiznis/nannyhub/internal/paymentadvice/repository"
	"github.com/smallbiznis/nannyhub/internal/paymentadvice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentadvice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
