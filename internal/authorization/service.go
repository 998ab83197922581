package authorization

import (
	"context"

	"github.com/smallbiznis/nannyhub/internal/apperror"
)

const (
	ObjectQuote         = "quote"
	ObjectBooking       = "booking"
	ObjectReassignment  = "reassignment"
	ObjectPayment       = "payment"
	ObjectPaymentMethod = "payment_method"
	ObjectProfile       = "profile"
	ObjectNotification  = "notification"
	ObjectAdvice        = "payment_advice"
	ObjectInvoice       = "invoice"
	ObjectEscalation    = "escalation"
	ObjectAuditLog      = "audit_log"
)

const (
	ActionQuoteCreate = "quote.create"

	ActionBookingCreate     = "booking.create"
	ActionBookingView       = "booking.view"
	ActionBookingViewAll    = "booking.view_all"
	ActionBookingCancel     = "booking.cancel"
	ActionBookingReject     = "booking.reject"
	ActionBookingReassign   = "booking.reassign"
	ActionBookingFinancials = "booking.financials"

	ActionReassignmentView    = "reassignment.view"
	ActionReassignmentRespond = "reassignment.respond"

	ActionPaymentAuthorize = "payment.authorize"
	ActionPaymentCapture   = "payment.capture"
	ActionPaymentView      = "payment.view"

	ActionPaymentMethodUpdate = "payment_method.update"

	ActionProfileView   = "profile.view"
	ActionProfileUpdate = "profile.update"

	ActionNotificationView = "notification.view"
	ActionNotificationRead = "notification.read"

	ActionAdviceView  = "payment_advice.view"
	ActionInvoiceView = "invoice.view"

	ActionEscalationView    = "escalation.view"
	ActionEscalationResolve = "escalation.resolve"

	ActionAuditLogView = "audit_log.view"
)

// Service decides whether an actor holding a role may perform an action.
type Service interface {
	Authorize(ctx context.Context, actorID string, role string, object string, action string) error
}

var (
	ErrInvalidActor  = apperror.Validation("invalid_actor")
	ErrInvalidRole   = apperror.Validation("invalid_role")
	ErrInvalidObject = apperror.Validation("invalid_object")
	ErrInvalidAction = apperror.Validation("invalid_action")
	ErrForbidden     = apperror.Forbidden("forbidden")
)
