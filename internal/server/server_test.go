package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/nannyhub/internal/auth/domain"
	authservice "github.com/smallbiznis/nannyhub/internal/auth/service"
	"github.com/smallbiznis/nannyhub/internal/authorization"
	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	"github.com/smallbiznis/nannyhub/internal/config"
	invoicedomain "github.com/smallbiznis/nannyhub/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	reassignmentdomain "github.com/smallbiznis/nannyhub/internal/reassignment/domain"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"github.com/smallbiznis/nannyhub/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBookings struct {
	bookingdomain.Service
	created  bookingdomain.CreateBookingRequest
	bookings map[snowflake.ID]*bookingdomain.Booking
}

func (s *stubBookings) Create(ctx context.Context, req bookingdomain.CreateBookingRequest) (*bookingdomain.CreateBookingResponse, error) {
	s.created = req
	return &bookingdomain.CreateBookingResponse{Booking: &bookingdomain.Booking{
		ID:       1849,
		ClientID: req.ClientID,
		NannyID:  "nanny-1",
		Category: revenuesplit.CategoryShortTerm,
		Status:   bookingdomain.StatusPending,
	}}, nil
}

func (s *stubBookings) Get(ctx context.Context, id snowflake.ID, actor bookingdomain.Actor) (*bookingdomain.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, bookingdomain.ErrBookingNotFound
	}
	if actor.Role != profiledomain.RoleAdmin && b.ClientID != actor.ID && b.NannyID != actor.ID {
		return nil, bookingdomain.ErrBookingNotFound
	}
	return b, nil
}

type stubPayments struct {
	paymentdomain.Service
	authorizeNextErr error
	authorized       []paymentdomain.AuthorizeRequest
}

func (s *stubPayments) AuthorizeNext(ctx context.Context, bookingID snowflake.ID) ([]paymentdomain.Authorization, error) {
	return nil, s.authorizeNextErr
}

func (s *stubPayments) Authorize(ctx context.Context, req paymentdomain.AuthorizeRequest) (*paymentdomain.Authorization, error) {
	s.authorized = append(s.authorized, req)
	return &paymentdomain.Authorization{ID: 77, BookingID: req.BookingID, Amount: 60_500, Currency: "ZAR"}, nil
}

type stubProfiles struct {
	profiledomain.Service
}

func (stubProfiles) Get(ctx context.Context, userID string) (*profiledomain.View, error) {
	return &profiledomain.View{Profile: profiledomain.Profile{UserID: userID, FullName: "Thandi Mokoena"}}, nil
}

type stubInvoices struct {
	invoicedomain.Service
	invoices map[snowflake.ID]*invoicedomain.Invoice
}

func (s *stubInvoices) Get(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return inv, nil
}

func (s *stubInvoices) Render(ctx context.Context, inv *invoicedomain.Invoice) ([]byte, error) {
	return []byte("%PDF-1.3"), nil
}

type stubReassignments struct {
	reassignmentdomain.Service
	rejected []reassignmentdomain.RejectRequest
}

func (s *stubReassignments) HandleRejection(ctx context.Context, req reassignmentdomain.RejectRequest) (*reassignmentdomain.BookingReassignment, error) {
	s.rejected = append(s.rejected, req)
	return &reassignmentdomain.BookingReassignment{ID: 9001, BookingID: req.BookingID, OriginalNannyID: req.NannyID, NewNannyID: "nanny-2"}, nil
}

type testServer struct {
	engine        *gin.Engine
	auth          authdomain.Service
	bookings      *stubBookings
	payments      *stubPayments
	reassignments *stubReassignments
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewEnforcer(dbtest.Open(t))
	require.NoError(t, err)

	authSvc := authservice.New(authservice.Params{
		Cfg: config.Config{AuthJWTSecret: "test-secret"},
		Log: zap.NewNop(),
	})
	bookings := &stubBookings{bookings: map[snowflake.ID]*bookingdomain.Booking{
		1849: {ID: 1849, ClientID: "client-1", NannyID: "nanny-1", Status: bookingdomain.StatusConfirmed},
	}}
	payments := &stubPayments{}
	reassignments := &stubReassignments{}

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	s := NewServer(ServerParams{
		Gin:             engine,
		Log:             zap.NewNop(),
		AuthSvc:         authSvc,
		AuthzSvc:        authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		BookingSvc:      bookings,
		PaymentSvc:      payments,
		ProfileSvc:      stubProfiles{},
		ReassignmentSvc: reassignments,
		InvoiceSvc: &stubInvoices{invoices: map[snowflake.ID]*invoicedomain.Invoice{
			501: {ID: 501, ClientID: "client-1", InvoiceNumber: "NH-20260401-00001"},
		}},
	})
	s.RegisterRoutes()

	return &testServer{engine: engine, auth: authSvc, bookings: bookings, payments: payments, reassignments: reassignments}
}

func (ts *testServer) token(t *testing.T, userID string, role profiledomain.Role) string {
	t.Helper()
	tok, err := ts.auth.Issue(context.Background(), authdomain.Identity{UserID: userID, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok.AccessToken
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRequestsWithoutTokenAreUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/bookings/1849", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/bookings/1849", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccessTokenQueryParam(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "client-1", profiledomain.RoleClient)

	rec := ts.do(t, http.MethodGet, "/api/profile?access_token="+tok, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thandi Mokoena")
}

func TestRolePolicyGuardsRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bookings", ts.token(t, "nanny-1", profiledomain.RoleNanny), map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Message)

	rec = ts.do(t, http.MethodGet, "/api/admin/escalations", ts.token(t, "client-1", profiledomain.RoleClient), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateShortTermBookingKeepsBookingWhenHoldFails(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.authorizeNextErr = paymentdomain.ErrPaymentMethodMissing

	rec := ts.do(t, http.MethodPost, "/api/bookings", ts.token(t, "client-1", profiledomain.RoleClient), map[string]any{
		"category":  "short_term",
		"client_id": "someone-else",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "client-1", ts.bookings.created.ClientID)

	var body struct {
		Data struct {
			Booking      bookingdomain.Booking `json:"booking"`
			PaymentError string                `json:"payment_error"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, snowflake.ID(1849), body.Data.Booking.ID)
	assert.Equal(t, "payment_method_missing", body.Data.PaymentError)
}

func TestRejectBookingAcceptsEmptyBody(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "nanny-1", profiledomain.RoleNanny)

	rec := ts.do(t, http.MethodPost, "/api/bookings/1849/reject", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, ts.reassignments.rejected, 1)
	assert.Equal(t, snowflake.ID(1849), ts.reassignments.rejected[0].BookingID)
	assert.Equal(t, "nanny-1", ts.reassignments.rejected[0].NannyID)
	assert.Empty(t, ts.reassignments.rejected[0].Reason)

	rec = ts.do(t, http.MethodPost, "/api/bookings/1849/reject", tok, map[string]any{"reason": "nanny_unavailable"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.reassignments.rejected, 2)
	assert.Equal(t, "nanny_unavailable", ts.reassignments.rejected[1].Reason)
}

func TestBookingVisibility(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/bookings/1849", ts.token(t, "client-2", profiledomain.RoleClient), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking_not_found", decodeError(t, rec).Message)

	rec = ts.do(t, http.MethodGet, "/api/bookings/1849", ts.token(t, "nanny-1", profiledomain.RoleNanny), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/bookings/abc", ts.token(t, "client-1", profiledomain.RoleClient), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decodeError(t, rec).Errors[0].Code)
}

func TestAuthorizeBookingChecksOwnership(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bookings/1849/authorize", ts.token(t, "client-2", profiledomain.RoleClient), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, ts.payments.authorized)

	rec = ts.do(t, http.MethodPost, "/api/bookings/1849/authorize", ts.token(t, "client-1", profiledomain.RoleClient), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.payments.authorized, 1)
	assert.Equal(t, snowflake.ID(1849), ts.payments.authorized[0].BookingID)
	assert.True(t, ts.payments.authorized[0].PeriodStart.IsZero())
}

func TestDownloadInvoice(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/invoices/501/pdf", ts.token(t, "client-2", profiledomain.RoleClient), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/invoices/501/pdf", ts.token(t, "client-1", profiledomain.RoleClient), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pdfContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-nh-20260401-00001.pdf")

	rec = ts.do(t, http.MethodGet, "/api/invoices/501/pdf", ts.token(t, "admin-1", profiledomain.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamWithoutHubIsUnavailable(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/stream", ts.token(t, "client-1", profiledomain.RoleClient), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStreamTopics(t *testing.T) {
	assert.Equal(t, []string{
		"notifications:user_id=client-1",
		"bookings:client_id=client-1",
	}, streamTopics(authdomain.Identity{UserID: "client-1", Role: profiledomain.RoleClient}))
	assert.Equal(t, []string{
		"notifications:user_id=admin-1",
	}, streamTopics(authdomain.Identity{UserID: "admin-1", Role: profiledomain.RoleAdmin}))
}

func TestSelectTopics(t *testing.T) {
	allowed := streamTopics(authdomain.Identity{UserID: "nanny-1", Role: profiledomain.RoleNanny})

	topics, ok := selectTopics(allowed, "")
	assert.True(t, ok)
	assert.Equal(t, allowed, topics)

	topics, ok = selectTopics(allowed, "bookings:nanny_id=nanny-1")
	assert.True(t, ok)
	assert.Equal(t, []string{"bookings:nanny_id=nanny-1"}, topics)

	_, ok = selectTopics(allowed, "bookings:client_id=client-1")
	assert.False(t, ok)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
