package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/smallbiznis/nannyhub/internal/apperror"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/bookings/:id"),
		attribute.String("payer.email", "a@b.c"),
		attribute.String("payment.card_last4", "4242"),
		attribute.String("booking.status", "confirmed"),
	)
	keys := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		keys = append(keys, string(attr.Key))
	}
	assert.Equal(t, []string{"http.route", "booking.status"}, keys)
}

func TestSafeErrorKeepsOnlyCode(t *testing.T) {
	err := fmt.Errorf("capture: %w", apperror.Conflict("authorization_not_capturable"))
	assert.EqualError(t, SafeError(err), "authorization_not_capturable")
	assert.EqualError(t, SafeError(errors.New("card 4242 declined")), "internal_error")
	assert.NoError(t, SafeError(nil))
}
