package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEveryServiceTemplate(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		subject string
		want    string
	}{
		{
			name:    TemplatePaymentAdvice,
			data:    map[string]any{"nanny_name": "Thandi", "net_amount": "R 6 800.00"},
			subject: "Your payment advice",
			want:    "R 6 800.00",
		},
		{
			name:    TemplateInvoice,
			data:    map[string]any{"client_name": "Ayesha", "invoice_number": "NH-20260401-00001"},
			subject: "Your NannyHub invoice",
			want:    "NH-20260401-00001",
		},
		{
			name:    TemplateAdminEscalation,
			data:    map[string]any{"booking_id": "42", "reason": "no_candidate"},
			subject: "URGENT: booking needs admin intervention",
			want:    "no_candidate",
		},
		{
			name:    TemplateBookingReassigned,
			data:    map[string]any{"client_name": "Ayesha", "booking_id": "42", "new_nanny_name": "Lerato"},
			subject: "Your booking has a new nanny",
			want:    "Lerato",
		},
		{
			name:    TemplateBookingAssignment,
			data:    map[string]any{"nanny_name": "Lerato", "booking_id": "42", "start_date": "2026-03-01"},
			subject: "New booking assignment",
			want:    "2026-03-01",
		},
		{
			name:    TemplatePaymentCaptureFail,
			data:    map[string]any{"booking_id": "42", "period_start": "2026-03-01", "reason": "card_declined"},
			subject: "Payment capture failed",
			want:    "card_declined",
		},
		{
			name: TemplateReassignmentAdminInfo,
			data: map[string]any{
				"booking_id":        "42",
				"original_nanny_id": "nanny-1",
				"new_nanny_id":      "nanny-2",
				"reason":            "nanny_rejected",
				"alternatives":      "nanny-3, nanny-4",
			},
			subject: "Booking reassigned",
			want:    "nanny-3, nanny-4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body, err := Render(tt.name, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, subject)
			assert.Contains(t, body, tt.want)
		})
	}
}

func TestEveryTemplateHasSubject(t *testing.T) {
	for _, tmpl := range templates.Templates() {
		name, ok := strings.CutSuffix(tmpl.Name(), ".html")
		if !ok {
			continue
		}
		_, found := defaultSubjects[name]
		assert.True(t, found, "missing subject for %s", name)
	}
}
