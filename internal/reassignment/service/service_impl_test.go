package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	bookingrepository "github.com/smallbiznis/nannyhub/internal/booking/repository"
	bookingservice "github.com/smallbiznis/nannyhub/internal/booking/service"
	"github.com/smallbiznis/nannyhub/internal/clock"
	escalationdomain "github.com/smallbiznis/nannyhub/internal/escalation/domain"
	escalationrepository "github.com/smallbiznis/nannyhub/internal/escalation/repository"
	escalationservice "github.com/smallbiznis/nannyhub/internal/escalation/service"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	profilerepository "github.com/smallbiznis/nannyhub/internal/profile/repository"
	profileservice "github.com/smallbiznis/nannyhub/internal/profile/service"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/internal/reassignment/domain"
	"github.com/smallbiznis/nannyhub/internal/reassignment/repository"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"github.com/smallbiznis/nannyhub/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type recordingNotifications struct {
	notificationdomain.Service
	sent    []notificationdomain.SendRequest
	emails  []string
	mails   []recordedEmail
	notices []notificationdomain.AdminNotice
}

type recordedEmail struct {
	to       []string
	template string
	data     map[string]any
}

func (r *recordingNotifications) Send(ctx context.Context, req notificationdomain.SendRequest) (*notificationdomain.Notification, error) {
	r.sent = append(r.sent, req)
	return &notificationdomain.Notification{UserID: req.UserID, Type: req.Type}, nil
}

func (r *recordingNotifications) SendEmail(ctx context.Context, to []string, templateName string, data map[string]any, attachments ...email.Attachment) error {
	r.emails = append(r.emails, templateName)
	r.mails = append(r.mails, recordedEmail{to: to, template: templateName, data: data})
	return nil
}

func (r *recordingNotifications) NotifyAdmins(ctx context.Context, notice notificationdomain.AdminNotice) (int, error) {
	r.notices = append(r.notices, notice)
	return 1, nil
}

func (r *recordingNotifications) sentTo(userID string) []notificationdomain.Type {
	var out []notificationdomain.Type
	for _, req := range r.sent {
		if req.UserID == userID {
			out = append(out, req.Type)
		}
	}
	return out
}

type fixture struct {
	db            *gorm.DB
	node          *snowflake.Node
	clock         *clock.FakeClock
	svc           domain.Service
	bookings      bookingdomain.Service
	profiles      profiledomain.Service
	escalations   escalationdomain.Service
	notifications *recordingNotifications
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(testNow)
	log := zap.NewNop()
	notifications := &recordingNotifications{}

	profiles := profileservice.NewService(profileservice.Params{
		DB:    db,
		Log:   log,
		Repo:  profilerepository.Provide(),
		Clock: fake,
	})
	bookings := bookingservice.NewService(bookingservice.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          bookingrepository.Provide(),
		Profiles:      profiles,
		Notifications: notifications,
		Clock:         fake,
	})
	escalations := escalationservice.NewService(escalationservice.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          escalationrepository.Provide(),
		Notifications: notifications,
		Clock:         fake,
	})
	svc := NewService(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          repository.Provide(),
		Bookings:      bookings,
		Profiles:      profiles,
		Escalations:   escalations,
		Notifications: notifications,
		Clock:         fake,
	})
	return &fixture{
		db:            db,
		node:          node,
		clock:         fake,
		svc:           svc,
		bookings:      bookings,
		profiles:      profiles,
		escalations:   escalations,
		notifications: notifications,
	}
}

func (f *fixture) nanny(t *testing.T, userID string, rating float64, skills ...string) {
	t.Helper()
	_, err := f.profiles.Save(context.Background(), profiledomain.SaveProfileRequest{
		UserID:   userID,
		Role:     profiledomain.RoleNanny,
		FullName: "Nanny " + userID,
		Email:    userID + "@example.com",
		Nanny: &profiledomain.NannyDetails{
			Skills:       skills,
			Arrangements: []string{"live_out"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`UPDATE nanny_profiles SET rating = ? WHERE user_id = ?`, rating, userID).Error)
}

func (f *fixture) booking(t *testing.T, nannyID string) *bookingdomain.Booking {
	t.Helper()
	b := &bookingdomain.Booking{
		ID:                f.node.Generate(),
		ClientID:          "client-1",
		NannyID:           nannyID,
		Category:          revenuesplit.CategoryLongTerm,
		Status:            bookingdomain.StatusPending,
		StartDate:         time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		BaseRate:          800_000,
		TotalCost:         800_000,
		Currency:          "ZAR",
		HomeSize:          revenuesplit.HomeSizeFamilyHub,
		LivingArrangement: "live_out",
		RequiredSkills:    datatypes.NewJSONSlice([]string{"first_aid"}),
		CreatedAt:         testNow,
		UpdatedAt:         testNow,
	}
	require.NoError(t, bookingrepository.Provide().Insert(context.Background(), f.db, b))
	return b
}

// staffed seeds the assigned nanny plus three ranked replacements and
// one nanny without the required skill.
func (f *fixture) staffed(t *testing.T) *bookingdomain.Booking {
	t.Helper()
	f.nanny(t, "nanny-1", 4.2, "first_aid")
	f.nanny(t, "nanny-a", 4.9, "first_aid")
	f.nanny(t, "nanny-b", 4.5, "first_aid")
	f.nanny(t, "nanny-c", 4.0, "first_aid")
	f.nanny(t, "nanny-unskilled", 5.0, "cooking")
	return f.booking(t, "nanny-1")
}

func (f *fixture) reject(t *testing.T, b *bookingdomain.Booking, nannyID string) *domain.BookingReassignment {
	t.Helper()
	item, err := f.svc.HandleRejection(context.Background(), domain.RejectRequest{BookingID: b.ID, NannyID: nannyID})
	require.NoError(t, err)
	return item
}

func (f *fixture) status(t *testing.T, id snowflake.ID) *bookingdomain.Booking {
	t.Helper()
	b, err := f.bookings.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func TestHandleRejectionAssignsTopCandidate(t *testing.T) {
	f := newFixture(t)
	b := f.staffed(t)

	item := f.reject(t, b, "nanny-1")
	assert.Equal(t, "nanny-1", item.OriginalNannyID)
	assert.Equal(t, "nanny-a", item.NewNannyID)
	assert.Equal(t, []string{"nanny-b", "nanny-c"}, []string(item.AlternativeNannyIDs))
	assert.Equal(t, domain.ReasonNannyRejected, item.Reason)
	assert.Equal(t, domain.ResponsePending, item.ClientResponse)
	require.NotNil(t, item.ExpiresAt)
	assert.Equal(t, testNow.Add(48*time.Hour), *item.ExpiresAt)

	booking := f.status(t, b.ID)
	assert.Equal(t, bookingdomain.StatusReassigned, booking.Status)
	assert.Equal(t, "nanny-a", booking.NannyID)

	assert.Equal(t, []notificationdomain.Type{notificationdomain.TypeReassignmentConfirm}, f.notifications.sentTo("client-1"))
	assert.Equal(t, []notificationdomain.Type{notificationdomain.TypeBookingAssignment}, f.notifications.sentTo("nanny-a"))
	assert.Contains(t, f.notifications.emails, "booking_assignment")
	require.Len(t, f.notifications.notices, 1)
	notice := f.notifications.notices[0]
	assert.Equal(t, notificationdomain.TypeReassignmentInfo, notice.Type)
	assert.Equal(t, "nanny-a", notice.Data["newPayeeId"])
	assert.Equal(t, []string{"nanny-b", "nanny-c"}, notice.Data["alternativePayeeIds"])
}

func TestHandleRejectionEmailsRenderWithRealTemplates(t *testing.T) {
	f := newFixture(t)
	b := f.staffed(t)
	_, err := f.profiles.Save(context.Background(), profiledomain.SaveProfileRequest{
		UserID:   "client-1",
		Role:     profiledomain.RoleClient,
		FullName: "Ayesha Client",
		Email:    "client-1@example.com",
		Client: &profiledomain.ClientDetails{
			HomeSize:          string(revenuesplit.HomeSizeFamilyHub),
			LivingArrangement: "live_out",
		},
	})
	require.NoError(t, err)

	f.reject(t, b, "nanny-1")

	var clientMail *recordedEmail
	for i := range f.notifications.mails {
		mail := f.notifications.mails[i]
		if mail.template == email.TemplateBookingReassigned {
			clientMail = &mail
		}
		_, body, err := email.Render(mail.template, mail.data)
		require.NoError(t, err, mail.template)
		assert.NotEmpty(t, body)
	}
	require.NotNil(t, clientMail)
	assert.Equal(t, []string{"client-1@example.com"}, clientMail.to)
	_, body, err := email.Render(clientMail.template, clientMail.data)
	require.NoError(t, err)
	assert.Contains(t, body, "Nanny nanny-a")

	require.Len(t, f.notifications.notices, 1)
	notice := f.notifications.notices[0]
	assert.Equal(t, email.TemplateReassignmentAdminInfo, notice.EmailTemplate)
	subject, body, err := email.Render(notice.EmailTemplate, notice.EmailData)
	require.NoError(t, err)
	assert.Equal(t, "Booking reassigned", subject)
	assert.Contains(t, body, "nanny-b, nanny-c")
}

func TestHandleRejectionValidates(t *testing.T) {
	f := newFixture(t)
	b := f.staffed(t)

	_, err := f.svc.HandleRejection(context.Background(), domain.RejectRequest{BookingID: b.ID, NannyID: "nanny-a"})
	assert.ErrorIs(t, err, domain.ErrNotAssignedNanny)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.HandleRejection(context.Background(), domain.RejectRequest{BookingID: b.ID, NannyID: "nanny-1", Reason: "bored"})
	assert.ErrorIs(t, err, domain.ErrInvalidReason)

	_, err = f.bookings.Transition(context.Background(), nil, b.ID, []bookingdomain.Status{bookingdomain.StatusPending}, bookingdomain.StatusCancelled)
	require.NoError(t, err)
	_, err = f.svc.HandleRejection(context.Background(), domain.RejectRequest{BookingID: b.ID, NannyID: "nanny-1"})
	assert.ErrorIs(t, err, domain.ErrBookingNotReassigning)
}

func TestHandleRejectionWithoutCandidatesEscalates(t *testing.T) {
	f := newFixture(t)
	f.nanny(t, "nanny-1", 4.2, "first_aid")
	f.nanny(t, "nanny-unskilled", 5.0, "cooking")
	b := f.booking(t, "nanny-1")

	_, err := f.svc.HandleRejection(context.Background(), domain.RejectRequest{
		BookingID: b.ID,
		NannyID:   "nanny-1",
		Reason:    "nanny_unavailable",
	})
	assert.ErrorIs(t, err, domain.ErrNoCandidate)
	assert.True(t, apperror.IsNoCandidate(err))

	booking := f.status(t, b.ID)
	assert.Equal(t, bookingdomain.StatusAdminInterventionRequired, booking.Status)
	assert.Equal(t, "nanny-1", booking.NannyID)

	open, err := f.escalations.List(context.Background(), escalationdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, open.Escalations, 1)
	assert.Equal(t, escalationdomain.ReasonNoCandidate, open.Escalations[0].Reason)

	require.Len(t, f.notifications.notices, 1)
	assert.Equal(t, notificationdomain.TypeAdminEscalation, f.notifications.notices[0].Type)

	items, err := f.svc.List(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSecondRejectionSkipsPreviousNannies(t *testing.T) {
	f := newFixture(t)
	b := f.staffed(t)

	first := f.reject(t, b, "nanny-1")
	second := f.reject(t, b, "nanny-a")
	assert.Equal(t, "nanny-b", second.NewNannyID)
	assert.Equal(t, []string{"nanny-c"}, []string(second.AlternativeNannyIDs))

	closed, err := f.svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.False(t, closed.Open())
	require.NotNil(t, closed.ResolvedBy)
	assert.Equal(t, domain.ResolvedBySystem, *closed.ResolvedBy)

	items, err := f.svc.List(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
}

func TestRespondAcceptLocksInAlternative(t *testing.T) {
	f := newFixture(t)
	b := f.staffed(t)
	item := f.reject(t, b, "nanny-1")
	ctx := context.Background()

	_, err := f.svc.Respond(ctx, domain.RespondRequest{ReassignmentID: item.ID, ClientID: "client-2", Accept: true})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Respond(ctx, domain.RespondRequest{ReassignmentID: item.ID, ClientID: "client-1", Accept: true, NannyID: "nanny-unskilled"})
	assert.ErrorIs(t, err, domain.ErrInvalidAlternative)

	accepted, err := f.svc.Respond(ctx, domain.RespondRequest{ReassignmentID: item.ID, ClientID: "client-1", Accept: true, NannyID: "nanny-b"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseAccepted, accepted.ClientResponse)
	require.NotNil(t, accepted.ResolvedBy)
	assert.Equal(t, "client-1", *accepted.ResolvedBy)

	booking := f.status(t, b.ID)
	assert.Equal(t, bookingdomain.StatusActive, booking.Status)
	assert.Equal(t, "nanny-b", booking.NannyID)
	assert.Contains(t, f.notifications.sentTo("nanny-b"), notificationdomain.TypeBookingAssignment)
	assert.Contains(t, f.notifications.sentTo("nanny-a"), notificationdomain.TypeBookingCancelled)

	_, err = f.svc.Respond(ctx, domain.RespondRequest{ReassignmentID: item.ID, ClientID: "client-1", Accept: false})
	assert.ErrorIs(t, err, domain.ErrReassignmentClosed)
	assert.True(t, apperror.IsConflict(err))
}

func TestRespondRejectEscalates(t *testing.T) {
	f := newFixture(t)
	b := f.staffed(t)
	item := f.reject(t, b, "nanny-1")

	rejected, err := f.svc.Respond(context.Background(), domain.RespondRequest{ReassignmentID: item.ID, ClientID: "client-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseRejected, rejected.ClientResponse)

	assert.Equal(t, bookingdomain.StatusAdminInterventionRequired, f.status(t, b.ID).Status)

	open, err := f.escalations.List(context.Background(), escalationdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, open.Escalations, 1)
	assert.Equal(t, escalationdomain.ReasonClientRequestedHelp, open.Escalations[0].Reason)
}

func TestEscalateExpired(t *testing.T) {
	f := newFixture(t)
	b := f.staffed(t)
	item := f.reject(t, b, "nanny-1")
	ctx := context.Background()

	count, err := f.svc.EscalateExpired(ctx, testNow.Add(47*time.Hour), 10)
	require.NoError(t, err)
	assert.Zero(t, count)

	f.clock.Set(testNow.Add(49 * time.Hour))
	count, err = f.svc.EscalateExpired(ctx, f.clock.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, bookingdomain.StatusAdminInterventionRequired, f.status(t, b.ID).Status)
	stored, err := f.svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.Open())
	require.NotNil(t, stored.ResolvedBy)
	assert.Equal(t, domain.ResolvedBySystem, *stored.ResolvedBy)

	open, err := f.escalations.List(ctx, escalationdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, open.Escalations, 1)
	assert.Equal(t, escalationdomain.ReasonReassignmentTimeout, open.Escalations[0].Reason)

	count, err = f.svc.EscalateExpired(ctx, f.clock.Now(), 10)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEscalateExpiredClosesStaleWithoutEscalating(t *testing.T) {
	f := newFixture(t)
	b := f.staffed(t)
	item := f.reject(t, b, "nanny-1")
	ctx := context.Background()

	_, err := f.bookings.Transition(ctx, nil, b.ID, []bookingdomain.Status{bookingdomain.StatusReassigned}, bookingdomain.StatusCancelled)
	require.NoError(t, err)

	count, err := f.svc.EscalateExpired(ctx, testNow.Add(49*time.Hour), 10)
	require.NoError(t, err)
	assert.Zero(t, count)

	stored, err := f.svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.Open())
}

func TestAdminReassignConfirmsBooking(t *testing.T) {
	f := newFixture(t)
	b := f.staffed(t)
	pending := f.reject(t, b, "nanny-1")
	ctx := context.Background()

	_, err := f.svc.AdminReassign(ctx, domain.AdminReassignRequest{BookingID: b.ID, AdminID: "admin-1", NannyID: "ghost"})
	assert.ErrorIs(t, err, bookingdomain.ErrRequestedNannyUnavailable)

	item, err := f.svc.AdminReassign(ctx, domain.AdminReassignRequest{BookingID: b.ID, AdminID: "admin-1", NannyID: "nanny-c", Note: "client asked for nanny-c"})
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonAdminInitiated, item.Reason)
	assert.Equal(t, "nanny-a", item.OriginalNannyID)
	assert.False(t, item.Open())

	booking := f.status(t, b.ID)
	assert.Equal(t, bookingdomain.StatusConfirmed, booking.Status)
	assert.Equal(t, "nanny-c", booking.NannyID)

	closed, err := f.svc.Get(ctx, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.ResolvedBy)
	assert.Equal(t, "admin-1", *closed.ResolvedBy)

	assert.Contains(t, f.notifications.sentTo("client-1"), notificationdomain.TypeBookingReassigned)
	assert.Contains(t, f.notifications.sentTo("nanny-c"), notificationdomain.TypeBookingAssignment)

	_, err = f.svc.Respond(ctx, domain.RespondRequest{ReassignmentID: pending.ID, ClientID: "client-1", Accept: true})
	assert.ErrorIs(t, err, domain.ErrReassignmentClosed)
}
