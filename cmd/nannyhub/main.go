package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/audit"
	"github.com/smallbiznis/nannyhub/internal/auth"
	"github.com/smallbiznis/nannyhub/internal/authorization"
	"github.com/smallbiznis/nannyhub/internal/booking"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/config"
	"github.com/smallbiznis/nannyhub/internal/escalation"
	"github.com/smallbiznis/nannyhub/internal/events"
	"github.com/smallbiznis/nannyhub/internal/invoice"
	"github.com/smallbiznis/nannyhub/internal/ledger"
	"github.com/smallbiznis/nannyhub/internal/lock"
	"github.com/smallbiznis/nannyhub/internal/migration"
	"github.com/smallbiznis/nannyhub/internal/notification"
	"github.com/smallbiznis/nannyhub/internal/observability"
	"github.com/smallbiznis/nannyhub/internal/payment"
	"github.com/smallbiznis/nannyhub/internal/paymentadvice"
	"github.com/smallbiznis/nannyhub/internal/profile"
	"github.com/smallbiznis/nannyhub/internal/providers"
	"github.com/smallbiznis/nannyhub/internal/ratelimit"
	"github.com/smallbiznis/nannyhub/internal/realtime"
	"github.com/smallbiznis/nannyhub/internal/reassignment"
	"github.com/smallbiznis/nannyhub/internal/scheduler"
	"github.com/smallbiznis/nannyhub/internal/server"
	"github.com/smallbiznis/nannyhub/pkg/db"
	"go.uber.org/fx"
)

// Single process: HTTP API plus the scheduler.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,
		realtime.Module,
		events.Module,
		providers.Module,

		// Functional Domains
		audit.Module,
		profile.Module,
		notification.Module,
		escalation.Module,
		booking.Module,
		reassignment.Module,
		ledger.Module,
		invoice.Module,
		paymentadvice.Module,
		payment.Module,

		// Access
		auth.Module,
		authorization.Module,
		ratelimit.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
