package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/nannyhub/internal/audit/domain"
	"github.com/smallbiznis/nannyhub/internal/audit/repository"
	"github.com/smallbiznis/nannyhub/internal/auditcontext"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/pkg/db/dbtest"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) auditdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(Params{
		DB:    dbtest.Open(t),
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)),
	})
}

func TestAuditLogResolvesActorFromContext(t *testing.T) {
	svc := newTestService(t)

	ctx := auditcontext.WithActor(context.Background(), "admin", "admin-1")
	ctx = auditcontext.WithRequestID(ctx, "req-42")
	ctx = auditcontext.WithIPAddress(ctx, "10.0.0.7")

	bookingID := "1849"
	require.NoError(t, svc.AuditLog(ctx, "", nil, "booking.reassign", "booking", &bookingID, map[string]any{
		"new_nanny_id": "nanny-2",
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Action: "booking.reassign"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "admin", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "admin-1", *entry.ActorID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.7", *entry.IPAddress)
	assert.Equal(t, "req-42", entry.Metadata["request_id"])
	assert.Equal(t, "nanny-2", entry.Metadata["new_nanny_id"])
}

func TestAuditLogDefaultsToSystemActor(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.AuditLog(context.Background(), "", nil, "booking.escalate", "", nil, nil))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "system", resp.AuditLogs[0].ActorType)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc := newTestService(t)
	err := svc.AuditLog(context.Background(), "admin", nil, "  ", "booking", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginates(t *testing.T) {
	svc := newTestService(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(context.Background(), "admin", nil, "financials.correct", "booking", nil, nil))
	}

	first, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	require.True(t, first.HasMore)
	assert.Greater(t, first.AuditLogs[0].ID.Int64(), first.AuditLogs[1].ID.Int64())

	second, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc := newTestService(t)
	start := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: "%%%"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}

func TestBookingTrail(t *testing.T) {
	svc := newTestService(t)

	bookingID := "1849"
	require.NoError(t, svc.AuditLog(context.Background(), "admin", nil, "booking.reassign", auditdomain.TargetBooking, &bookingID, nil))

	escalationID := "77"
	ctx := auditcontext.WithBookingID(context.Background(), bookingID)
	require.NoError(t, svc.AuditLog(ctx, "admin", nil, "escalation.resolve", auditdomain.TargetEscalation, &escalationID, nil))

	require.NoError(t, svc.AuditLog(context.Background(), "system", nil, "payment.capture_failed", auditdomain.TargetPaymentAuthorization, nil, map[string]any{
		"booking_id": bookingID,
	}))
	require.NoError(t, svc.AuditLog(context.Background(), "system", nil, "payment.capture_failed", auditdomain.TargetPaymentAuthorization, nil, map[string]any{
		"booking_id": "2000",
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{BookingID: bookingID})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 3)
	for _, entry := range resp.AuditLogs {
		require.NotNil(t, entry.BookingID)
		assert.Equal(t, bookingID, *entry.BookingID)
	}
}

func TestAuditLogMasksSecrets(t *testing.T) {
	svc := newTestService(t)

	clientID := "client-1"
	require.NoError(t, svc.AuditLog(context.Background(), "client", &clientID, "payment_method.saved", auditdomain.TargetPaymentMethod, &clientID, map[string]any{
		"authorization_code": "AUTH_8x2k19qz",
		"provider":           "paystack",
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{ActorID: clientID})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "AUTH_****19qz", resp.AuditLogs[0].Metadata["authorization_code"])
	assert.Equal(t, "paystack", resp.AuditLogs[0].Metadata["provider"])
}
