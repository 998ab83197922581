package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Template names accepted by Render.
const (
	TemplatePaymentAdvice         = "payment_advice"
	TemplateInvoice               = "invoice"
	TemplateAdminEscalation       = "admin_escalation"
	TemplateBookingReassigned     = "booking_reassigned"
	TemplateBookingAssignment     = "booking_assignment"
	TemplatePaymentCaptureFail    = "payment_capture_fail"
	TemplateReassignmentAdminInfo = "reassignment_admin_info"
)

var defaultSubjects = map[string]string{
	TemplatePaymentAdvice:         "Your payment advice",
	TemplateInvoice:               "Your NannyHub invoice",
	TemplateAdminEscalation:       "URGENT: booking needs admin intervention",
	TemplateBookingReassigned:     "Your booking has a new nanny",
	TemplateBookingAssignment:     "New booking assignment",
	TemplatePaymentCaptureFail:    "Payment capture failed",
	TemplateReassignmentAdminInfo: "Booking reassigned",
}

// Render executes templateName and resolves its subject. A "subject" key
// in data overrides the default.
func Render(templateName string, data map[string]any) (string, string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return "", "", fmt.Errorf("render template %s: %w", templateName, err)
	}
	subject := defaultSubjects[templateName]
	if custom, ok := data["subject"].(string); ok && custom != "" {
		subject = custom
	}
	if subject == "" {
		subject = "Notification from NannyHub"
	}
	return subject, body.String(), nil
}
