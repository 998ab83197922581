package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"go.uber.org/zap"
)

type createBookingResponse struct {
	*bookingdomain.CreateBookingResponse
	Authorizations []paymentdomain.Authorization `json:"authorizations,omitempty"`
	PaymentError   string                        `json:"payment_error,omitempty"`
}

func (s *Server) CreateQuote(c *gin.Context) {
	var req bookingdomain.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.Quote(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CreateBooking stores the booking and, for short-term care, places the
// payment hold straight away. A failed hold does not undo the booking;
// the scheduler retries it.
func (s *Server) CreateBooking(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req bookingdomain.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ClientID = id.UserID

	ctx := c.Request.Context()
	created, err := s.bookingSvc.Create(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := createBookingResponse{CreateBookingResponse: created}
	if created.Booking.Category == revenuesplit.CategoryShortTerm {
		auths, err := s.paymentSvc.AuthorizeNext(ctx, created.Booking.ID)
		if err != nil {
			s.log.Warn("initial authorization failed",
				zap.String("booking_id", created.Booking.ID.String()),
				zap.Error(err),
			)
			resp.PaymentError = paymentErrorCode(err)
		}
		resp.Authorizations = auths
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func paymentErrorCode(err error) string {
	if code := apperror.CodeOf(err); code != "" {
		return code
	}
	return "authorization_failed"
}

func (s *Server) ListBookings(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req bookingdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Actor = bookingActor(id)

	resp, err := s.bookingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetBooking(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}

	b, err := s.bookingSvc.Get(c.Request.Context(), bookingID, bookingActor(id))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (s *Server) CancelBooking(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}
	var req bookingdomain.CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	req.ID = bookingID
	req.Actor = bookingActor(id)

	b, err := s.bookingSvc.Cancel(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (s *Server) CorrectFinancials(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}
	var req bookingdomain.CorrectFinancialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BookingID = bookingID
	req.CorrectedBy = id.UserID

	f, err := s.bookingSvc.CorrectFinancials(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": f})
}
