package escalation

import (
	"github.com/smallbiznis/nannyhub/internal/escalation/repository"
	"github.com/smallbiznis/nannyhub/internal/escalation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("escalation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
