package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/config"
	"github.com/smallbiznis/nannyhub/internal/notification/domain"
	"github.com/smallbiznis/nannyhub/internal/notification/repository"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	profilerepo "github.com/smallbiznis/nannyhub/internal/profile/repository"
	profilesvc "github.com/smallbiznis/nannyhub/internal/profile/service"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/pkg/db/dbtest"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) Send(ctx context.Context, msg email.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockEmail) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any, attachments ...email.Attachment) error {
	return m.Called(ctx, to, templateName, data).Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

type fixture struct {
	svc       domain.Service
	profiles  profiledomain.Service
	email     *mockEmail
	publisher *recordingPublisher
}

func newFixture(t *testing.T, fallback ...string) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))

	profiles := profilesvc.NewService(profilesvc.Params{
		DB: db, Log: zap.NewNop(), Repo: profilerepo.Provide(), Clock: clk,
	})
	mailer := &mockEmail{}
	publisher := &recordingPublisher{}
	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Config:   config.Config{AdminEmailFallback: fallback},
		Repo:     repository.Provide(),
		Profiles: profiles,
		Email:    mailer,
		Realtime: publisher,
		Clock:    clk,
	})
	return &fixture{svc: svc, profiles: profiles, email: mailer, publisher: publisher}
}

func (f *fixture) addAdmin(t *testing.T, id string) {
	t.Helper()
	_, err := f.profiles.Save(context.Background(), profiledomain.SaveProfileRequest{
		UserID: id, Role: profiledomain.RoleAdmin, FullName: id, Email: id + "@nannyhub.co.za",
	})
	require.NoError(t, err)
}

func TestSendPersistsAndPublishes(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.Send(context.Background(), domain.SendRequest{
		UserID:  "client-1",
		Type:    domain.TypeBookingReassigned,
		Title:   "Your booking has a new nanny",
		Message: "Please review the new assignment.",
		Data:    map[string]any{"bookingId": "1849"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityNormal, n.Priority)
	assert.Equal(t, []string{"notifications:user_id=client-1"}, f.publisher.topics)

	resp, err := f.svc.ListForUser(context.Background(), domain.ListRequest{UserID: "client-1"})
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "1849", resp.Notifications[0].Data["bookingId"])
}

func TestSendValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), domain.SendRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
	_, err = f.svc.Send(context.Background(), domain.SendRequest{UserID: "u"})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)
}

func TestNotifyAdminsSendsOnePerAdmin(t *testing.T) {
	f := newFixture(t)
	f.addAdmin(t, "admin-1")
	f.addAdmin(t, "admin-2")

	f.email.On("SendTemplate", mock.Anything,
		[]string{"admin-1@nannyhub.co.za", "admin-2@nannyhub.co.za"},
		"admin_escalation", mock.Anything,
	).Return(nil).Once()

	count, err := f.svc.NotifyAdmins(context.Background(), domain.AdminNotice{
		Type:          domain.TypeAdminEscalation,
		Title:         "Booking needs admin intervention",
		Data:          map[string]any{"bookingId": "1849", "reason": "no_candidate"},
		EmailTemplate: "admin_escalation",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	f.email.AssertExpectations(t)

	for _, id := range []string{"admin-1", "admin-2"} {
		resp, err := f.svc.ListForUser(context.Background(), domain.ListRequest{UserID: id})
		require.NoError(t, err)
		require.Len(t, resp.Notifications, 1)
		assert.Equal(t, domain.PriorityUrgent, resp.Notifications[0].Priority)
	}
}

func TestNotifyAdminsFallsBackToConfiguredEmails(t *testing.T) {
	f := newFixture(t, "ops@nannyhub.co.za")
	f.email.On("SendTemplate", mock.Anything, []string{"ops@nannyhub.co.za"}, "admin_escalation", mock.Anything).
		Return(errors.New("smtp down")).Once()

	count, err := f.svc.NotifyAdmins(context.Background(), domain.AdminNotice{
		Type:          domain.TypeAdminEscalation,
		Title:         "Booking needs admin intervention",
		EmailTemplate: "admin_escalation",
	})
	require.NoError(t, err)
	assert.Zero(t, count)
	f.email.AssertExpectations(t)
}

func TestSendEmailRequiresRecipients(t *testing.T) {
	f := newFixture(t)
	err := f.svc.SendEmail(context.Background(), []string{" "}, "invoice", nil)
	assert.ErrorIs(t, err, email.ErrNoRecipients)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	n, err := f.svc.Send(context.Background(), domain.SendRequest{UserID: "nanny-1", Title: "New booking assignment"})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRead(context.Background(), "nanny-1", n.ID))
	require.NoError(t, f.svc.MarkRead(context.Background(), "nanny-1", n.ID))
	assert.ErrorIs(t, f.svc.MarkRead(context.Background(), "nanny-2", n.ID), domain.ErrNotificationNotFound)

	resp, err := f.svc.ListForUser(context.Background(), domain.ListRequest{UserID: "nanny-1", UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Notifications)
}

func TestListForUserPaginates(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Send(context.Background(), domain.SendRequest{UserID: "client-1", Title: "t"})
		require.NoError(t, err)
	}

	page, err := f.svc.ListForUser(context.Background(), domain.ListRequest{
		UserID: "client-1", Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.True(t, page.HasMore)

	_, err = f.svc.ListForUser(context.Background(), domain.ListRequest{
		UserID: "client-1", Pagination: pagination.Pagination{PageToken: "!!"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
