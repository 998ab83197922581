package providers

import (
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/internal/providers/pdf"
	"go.uber.org/fx"
)

// Module bundles the outbound document and mail providers.
var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
