package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/nannyhub/internal/audit/domain"
	authdomain "github.com/smallbiznis/nannyhub/internal/auth/domain"
	"github.com/smallbiznis/nannyhub/internal/authorization"
	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	"github.com/smallbiznis/nannyhub/internal/config"
	escalationdomain "github.com/smallbiznis/nannyhub/internal/escalation/domain"
	invoicedomain "github.com/smallbiznis/nannyhub/internal/invoice/domain"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	"github.com/smallbiznis/nannyhub/internal/observability"
	obslogger "github.com/smallbiznis/nannyhub/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/nannyhub/internal/observability/metrics"
	obstracing "github.com/smallbiznis/nannyhub/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
	advicedomain "github.com/smallbiznis/nannyhub/internal/paymentadvice/domain"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/ratelimit"
	"github.com/smallbiznis/nannyhub/internal/realtime"
	reassignmentdomain "github.com/smallbiznis/nannyhub/internal/reassignment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the HTTP API. Domain modules are composed by the binary.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authSvc         authdomain.Service
	authzSvc        authorization.Service
	bookingSvc      bookingdomain.Service
	reassignmentSvc reassignmentdomain.Service
	paymentSvc      paymentdomain.Service
	profileSvc      profiledomain.Service
	notificationSvc notificationdomain.Service
	adviceSvc       advicedomain.Service
	invoiceSvc      invoicedomain.Service
	escalationSvc   escalationdomain.Service
	auditSvc        auditdomain.Service
	hub             *realtime.Hub
	writeLimiter    *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AuthSvc         authdomain.Service
	AuthzSvc        authorization.Service
	BookingSvc      bookingdomain.Service
	ReassignmentSvc reassignmentdomain.Service
	PaymentSvc      paymentdomain.Service
	ProfileSvc      profiledomain.Service
	NotificationSvc notificationdomain.Service
	AdviceSvc       advicedomain.Service
	InvoiceSvc      invoicedomain.Service
	EscalationSvc   escalationdomain.Service
	AuditSvc        auditdomain.Service
	Hub             *realtime.Hub           `optional:"true"`
	WriteLimiter    *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authSvc:         p.AuthSvc,
		authzSvc:        p.AuthzSvc,
		bookingSvc:      p.BookingSvc,
		reassignmentSvc: p.ReassignmentSvc,
		paymentSvc:      p.PaymentSvc,
		profileSvc:      p.ProfileSvc,
		notificationSvc: p.NotificationSvc,
		adviceSvc:       p.AdviceSvc,
		invoiceSvc:      p.InvoiceSvc,
		escalationSvc:   p.EscalationSvc,
		auditSvc:        p.AuditSvc,
		hub:             p.Hub,
		writeLimiter:    p.WriteLimiter,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	s.registerAPIRoutes()
	s.registerAdminRoutes()
	s.registerFallback()
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Quotes --------
	api.POST("/quotes", s.Authorize(authorization.ObjectQuote, authorization.ActionQuoteCreate), s.CreateQuote)

	// -------- Bookings --------
	api.POST("/bookings", s.Authorize(authorization.ObjectBooking, authorization.ActionBookingCreate), s.WriteRateLimit(), s.CreateBooking)
	api.GET("/bookings", s.Authorize(authorization.ObjectBooking, authorization.ActionBookingView), s.ListBookings)
	api.GET("/bookings/:id", s.Authorize(authorization.ObjectBooking, authorization.ActionBookingView), s.GetBooking)
	api.POST("/bookings/:id/cancel", s.Authorize(authorization.ObjectBooking, authorization.ActionBookingCancel), s.CancelBooking)
	api.POST("/bookings/:id/reject", s.Authorize(authorization.ObjectBooking, authorization.ActionBookingReject), s.RejectBooking)

	// -------- Reassignments --------
	api.GET("/bookings/:id/reassignments", s.Authorize(authorization.ObjectReassignment, authorization.ActionReassignmentView), s.ListReassignments)
	api.POST("/reassignments/:id/respond", s.Authorize(authorization.ObjectReassignment, authorization.ActionReassignmentRespond), s.RespondReassignment)

	// -------- Payments --------
	api.POST("/bookings/:id/authorize", s.Authorize(authorization.ObjectPayment, authorization.ActionPaymentAuthorize), s.WriteRateLimit(), s.AuthorizeBooking)
	api.GET("/bookings/:id/payments", s.Authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListBookingPayments)
	api.PUT("/payment-methods", s.Authorize(authorization.ObjectPaymentMethod, authorization.ActionPaymentMethodUpdate), s.WriteRateLimit(), s.SavePaymentMethod)

	// -------- Profile --------
	api.GET("/profile", s.Authorize(authorization.ObjectProfile, authorization.ActionProfileView), s.GetProfile)
	api.PUT("/profile", s.Authorize(authorization.ObjectProfile, authorization.ActionProfileUpdate), s.SaveProfile)

	// -------- Notifications --------
	api.GET("/notifications", s.Authorize(authorization.ObjectNotification, authorization.ActionNotificationView), s.ListNotifications)
	api.POST("/notifications/:id/read", s.Authorize(authorization.ObjectNotification, authorization.ActionNotificationRead), s.MarkNotificationRead)
	api.GET("/stream", s.Stream)

	// -------- Documents --------
	api.GET("/payment-advices", s.Authorize(authorization.ObjectAdvice, authorization.ActionAdviceView), s.ListPaymentAdvices)
	api.GET("/payment-advices/:id/pdf", s.Authorize(authorization.ObjectAdvice, authorization.ActionAdviceView), s.DownloadPaymentAdvice)
	api.GET("/invoices", s.Authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)
	api.GET("/invoices/:id/pdf", s.Authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.DownloadInvoice)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired())

	admin.GET("/bookings", s.Authorize(authorization.ObjectBooking, authorization.ActionBookingViewAll), s.ListBookings)
	admin.POST("/bookings/:id/reassign", s.Authorize(authorization.ObjectBooking, authorization.ActionBookingReassign), s.AdminReassignBooking)
	admin.PUT("/bookings/:id/financials", s.Authorize(authorization.ObjectBooking, authorization.ActionBookingFinancials), s.CorrectFinancials)
	admin.POST("/payments/:id/capture", s.Authorize(authorization.ObjectPayment, authorization.ActionPaymentCapture), s.CapturePayment)
	admin.GET("/escalations", s.Authorize(authorization.ObjectEscalation, authorization.ActionEscalationView), s.ListEscalations)
	admin.POST("/escalations/:id/resolve", s.Authorize(authorization.ObjectEscalation, authorization.ActionEscalationResolve), s.ResolveEscalation)
	admin.GET("/audit-logs", s.Authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
