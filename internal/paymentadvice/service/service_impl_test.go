package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/clock"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	"github.com/smallbiznis/nannyhub/internal/paymentadvice/domain"
	"github.com/smallbiznis/nannyhub/internal/paymentadvice/repository"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/internal/providers/pdf"
	"github.com/smallbiznis/nannyhub/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProfiles struct {
	profiledomain.Service
}

func (stubProfiles) Get(ctx context.Context, userID string) (*profiledomain.View, error) {
	if userID == "ghost" {
		return nil, profiledomain.ErrProfileNotFound
	}
	return &profiledomain.View{Profile: profiledomain.Profile{
		UserID:   userID,
		FullName: "Thandi Mokoena",
		Email:    userID + "@example.com",
	}}, nil
}

type stubMailer struct {
	notificationdomain.Service
	err         error
	templates   []string
	data        []map[string]any
	attachments []email.Attachment
}

func (m *stubMailer) SendEmail(ctx context.Context, to []string, templateName string, data map[string]any, attachments ...email.Attachment) error {
	if m.err != nil {
		return m.err
	}
	m.templates = append(m.templates, templateName)
	m.data = append(m.data, data)
	m.attachments = append(m.attachments, attachments...)
	return nil
}

type stubPDF struct {
	pdf.NoOpProvider
}

func (stubPDF) RenderPaymentAdvice(ctx context.Context, data pdf.PaymentAdviceData) ([]byte, error) {
	return []byte("%PDF-1.3 " + data.NannyName), nil
}

var periodStart = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (domain.Service, *stubMailer) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	mailer := &stubMailer{}
	return NewService(Params{
		DB:            dbtest.Open(t),
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          repository.Provide(),
		Profiles:      stubProfiles{},
		Notifications: mailer,
		PDF:           stubPDF{},
		Clock:         clock.NewFakeClock(time.Date(2026, 4, 8, 6, 0, 0, 0, time.UTC)),
	}), mailer
}

func issueRequest(nannyID string) domain.IssueRequest {
	return domain.IssueRequest{
		BookingID:          1849,
		AuthorizationID:    77,
		NannyID:            nannyID,
		PeriodStart:        periodStart,
		PeriodEnd:          time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		GrossAmount:        800_000,
		CommissionDeducted: 120_000,
		Currency:           "zar",
	}
}

func TestIssueIsOncePerPeriod(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.IssueTx(context.Background(), nil, issueRequest("nanny-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(680_000), first.NetAmount)
	assert.Equal(t, "ZAR", first.Currency)

	again := issueRequest("nanny-1")
	again.GrossAmount = 900_000
	second, err := svc.IssueTx(context.Background(), nil, again)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(800_000), second.GrossAmount)
}

func TestIssueValidates(t *testing.T) {
	svc, _ := newTestService(t)

	req := issueRequest("")
	_, err := svc.IssueTx(context.Background(), nil, req)
	assert.ErrorIs(t, err, domain.ErrInvalidNanny)

	req = issueRequest("nanny-1")
	req.CommissionDeducted = req.GrossAmount + 1
	_, err = svc.IssueTx(context.Background(), nil, req)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	req = issueRequest("nanny-1")
	req.PeriodEnd = req.PeriodStart.AddDate(0, 0, -1)
	_, err = svc.IssueTx(context.Background(), nil, req)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestDeliverAttachesPDF(t *testing.T) {
	svc, mailer := newTestService(t)
	advice, err := svc.IssueTx(context.Background(), nil, issueRequest("nanny-1"))
	require.NoError(t, err)

	require.NoError(t, svc.Deliver(context.Background(), advice.ID))
	require.Equal(t, []string{"payment_advice"}, mailer.templates)
	assert.Equal(t, "R 6 800.00", mailer.data[0]["net_amount"])
	require.Len(t, mailer.attachments, 1)
	assert.Equal(t, "payment-advice-1849-2026-04-01.pdf", mailer.attachments[0].Filename)
	assert.Contains(t, string(mailer.attachments[0].Content), "Thandi Mokoena")

	stored, err := svc.Get(context.Background(), advice.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DeliveredAt)
	assert.Equal(t, 1, stored.DeliveryAttempts)

	require.NoError(t, svc.Deliver(context.Background(), advice.ID))
	assert.Len(t, mailer.templates, 1)
}

func TestDeliverPendingRetriesFailures(t *testing.T) {
	svc, mailer := newTestService(t)
	advice, err := svc.IssueTx(context.Background(), nil, issueRequest("nanny-1"))
	require.NoError(t, err)

	mailer.err = errors.New("smtp down")
	delivered, err := svc.DeliverPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, delivered)

	stored, err := svc.Get(context.Background(), advice.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DeliveredAt)
	assert.Equal(t, 1, stored.DeliveryAttempts)

	mailer.err = nil
	delivered, err = svc.DeliverPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	delivered, err = svc.DeliverPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestDeliverGivesUpAfterMaxAttempts(t *testing.T) {
	svc, mailer := newTestService(t)
	_, err := svc.IssueTx(context.Background(), nil, issueRequest("ghost"))
	require.NoError(t, err)

	for i := 0; i < domain.MaxDeliveryAttempts+2; i++ {
		_, err := svc.DeliverPending(context.Background(), 10)
		require.NoError(t, err)
	}
	assert.Empty(t, mailer.templates)

	page, err := svc.ListForNanny(context.Background(), domain.ListRequest{NannyID: "ghost"})
	require.NoError(t, err)
	require.Len(t, page.Advices, 1)
	assert.Equal(t, domain.MaxDeliveryAttempts, page.Advices[0].DeliveryAttempts)
}

func TestListForNannyScopes(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.IssueTx(context.Background(), nil, issueRequest("nanny-1"))
	require.NoError(t, err)
	other := issueRequest("nanny-2")
	other.BookingID = 1850
	_, err = svc.IssueTx(context.Background(), nil, other)
	require.NoError(t, err)

	page, err := svc.ListForNanny(context.Background(), domain.ListRequest{NannyID: "nanny-2"})
	require.NoError(t, err)
	require.Len(t, page.Advices, 1)
	assert.Equal(t, snowflake.ID(1850), page.Advices[0].BookingID)
}
