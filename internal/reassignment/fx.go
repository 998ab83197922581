package reassignment

import (
	"github.com/smallbiznis/nannyhub/internal/reassignment/repository"
	"github.com/smallbiznis/nannyhub/internal/reassignment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reassignment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
