package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/escalation/domain"
	"github.com/smallbiznis/nannyhub/internal/escalation/repository"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubNotifications struct {
	notificationdomain.Service
	notices []notificationdomain.AdminNotice
}

func (s *stubNotifications) NotifyAdmins(ctx context.Context, notice notificationdomain.AdminNotice) (int, error) {
	s.notices = append(s.notices, notice)
	return 2, nil
}

func (s *stubNotifications) SendEmail(context.Context, []string, string, map[string]any, ...email.Attachment) error {
	return nil
}

func newTestService(t *testing.T) (domain.Service, *stubNotifications) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	notifications := &stubNotifications{}
	return NewService(Params{
		DB:            dbtest.Open(t),
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          repository.Provide(),
		Notifications: notifications,
		Clock:         clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)),
	}), notifications
}

func TestRaiseRecordsAndNotifies(t *testing.T) {
	svc, notifications := newTestService(t)

	e, err := svc.Raise(context.Background(), domain.RaiseRequest{
		BookingID: 1849,
		Reason:    domain.ReasonNoCandidate,
		Context:   map[string]any{"rejectedBy": "nanny-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, e.Status)
	assert.Equal(t, "1849", e.Context["bookingId"])

	require.Len(t, notifications.notices, 1)
	notice := notifications.notices[0]
	assert.Equal(t, notificationdomain.TypeAdminEscalation, notice.Type)
	assert.Equal(t, "admin_escalation", notice.EmailTemplate)
	assert.Equal(t, "nanny-1", notice.Data["rejectedBy"])
	assert.Equal(t, e.ID.String(), notice.Data["escalationId"])
}

func TestRaiseValidates(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Raise(context.Background(), domain.RaiseRequest{Reason: domain.ReasonNoCandidate})
	assert.ErrorIs(t, err, domain.ErrInvalidBooking)
	_, err = svc.Raise(context.Background(), domain.RaiseRequest{BookingID: 1, Reason: "lost_keys"})
	assert.ErrorIs(t, err, domain.ErrInvalidReason)
}

func TestListDefaultsToOpen(t *testing.T) {
	svc, _ := newTestService(t)
	first, err := svc.Raise(context.Background(), domain.RaiseRequest{BookingID: 1, Reason: domain.ReasonCaptureFailed})
	require.NoError(t, err)
	_, err = svc.Raise(context.Background(), domain.RaiseRequest{BookingID: 2, Reason: domain.ReasonReassignmentTimeout})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), domain.ResolveRequest{ID: first.ID, ResolvedBy: "admin-1"})
	require.NoError(t, err)

	open, err := svc.List(context.Background(), domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, open.Escalations, 1)
	assert.Equal(t, snowflake.ID(2), open.Escalations[0].BookingID)

	all, err := svc.List(context.Background(), domain.ListRequest{Status: "all"})
	require.NoError(t, err)
	assert.Len(t, all.Escalations, 2)

	byBooking, err := svc.List(context.Background(), domain.ListRequest{Status: "resolved", BookingID: "1"})
	require.NoError(t, err)
	require.Len(t, byBooking.Escalations, 1)
	require.NotNil(t, byBooking.Escalations[0].ResolvedBy)
	assert.Equal(t, "admin-1", *byBooking.Escalations[0].ResolvedBy)

	_, err = svc.List(context.Background(), domain.ListRequest{Status: "pending"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestResolveIsGuarded(t *testing.T) {
	svc, _ := newTestService(t)
	e, err := svc.Raise(context.Background(), domain.RaiseRequest{BookingID: 7, Reason: domain.ReasonClientRequestedHelp})
	require.NoError(t, err)

	note := "assigned nanny-4 manually"
	resolved, err := svc.Resolve(context.Background(), domain.ResolveRequest{ID: e.ID, ResolvedBy: "admin-1", Note: &note})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = svc.Resolve(context.Background(), domain.ResolveRequest{ID: e.ID})
	assert.ErrorIs(t, err, domain.ErrEscalationResolved)

	_, err = svc.Resolve(context.Background(), domain.ResolveRequest{ID: 999})
	assert.ErrorIs(t, err, domain.ErrEscalationNotFound)
}
