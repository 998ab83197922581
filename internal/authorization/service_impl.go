package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/nannyhub/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	roleClient = "client"
	roleNanny  = "nanny"
	roleAdmin  = "admin"
	roleSystem = "system"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actorID string, role string, object string, action string) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case roleClient, roleNanny, roleAdmin, roleSystem:
	default:
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := subjectFor(role, actorID)
	if err := s.ensureGrouping(subject, "role:"+role); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.audit(ctx, role, actorID, "authorization.denied", object, action)
		return ErrForbidden
	}
	if shouldAuditGrant(action) {
		s.audit(ctx, role, actorID, "authorization.granted", object, action)
	}
	return nil
}

func subjectFor(role, actorID string) string {
	if role == roleSystem {
		return roleSystem
	}
	return fmt.Sprintf("user:%s", actorID)
}

// ensureGrouping keeps exactly one role link per subject. A user whose
// role claim changes loses the previous grant.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) audit(ctx context.Context, role, actorID, auditAction, object, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := "capability"
	actorType := "user"
	var actor *string
	if role == roleSystem {
		actorType = roleSystem
	} else {
		actor = &actorID
	}
	if err := s.auditSvc.AuditLog(ctx, actorType, actor, auditAction, "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
		"role":   role,
	}); err != nil {
		s.log.Warn("failed to audit authorization decision", zap.String("action", action), zap.Error(err))
	}
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionBookingReassign, ActionBookingFinancials, ActionPaymentCapture, ActionEscalationResolve:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Clients book care and pay for it.
		{"role:client", ObjectQuote, ActionQuoteCreate},
		{"role:client", ObjectBooking, ActionBookingCreate},
		{"role:client", ObjectBooking, ActionBookingView},
		{"role:client", ObjectBooking, ActionBookingCancel},
		{"role:client", ObjectReassignment, ActionReassignmentView},
		{"role:client", ObjectReassignment, ActionReassignmentRespond},
		{"role:client", ObjectPayment, ActionPaymentAuthorize},
		{"role:client", ObjectPayment, ActionPaymentView},
		{"role:client", ObjectPaymentMethod, ActionPaymentMethodUpdate},
		{"role:client", ObjectInvoice, ActionInvoiceView},
		{"role:client", ObjectProfile, "*"},
		{"role:client", ObjectNotification, "*"},

		// Nannies work bookings and receive payouts.
		{"role:nanny", ObjectQuote, ActionQuoteCreate},
		{"role:nanny", ObjectBooking, ActionBookingView},
		{"role:nanny", ObjectBooking, ActionBookingReject},
		{"role:nanny", ObjectReassignment, ActionReassignmentView},
		{"role:nanny", ObjectAdvice, ActionAdviceView},
		{"role:nanny", ObjectProfile, "*"},
		{"role:nanny", ObjectNotification, "*"},

		// Admins operate the marketplace.
		{"role:admin", ObjectQuote, ActionQuoteCreate},
		{"role:admin", ObjectBooking, "*"},
		{"role:admin", ObjectReassignment, ActionReassignmentView},
		{"role:admin", ObjectPayment, "*"},
		{"role:admin", ObjectAdvice, ActionAdviceView},
		{"role:admin", ObjectInvoice, ActionInvoiceView},
		{"role:admin", ObjectEscalation, "*"},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
		{"role:admin", ObjectProfile, "*"},
		{"role:admin", ObjectNotification, "*"},

		// Scheduled sweeps.
		{"role:system", ObjectBooking, "*"},
		{"role:system", ObjectReassignment, "*"},
		{"role:system", ObjectPayment, "*"},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
