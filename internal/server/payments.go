package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
)

// AuthorizeBooking places a hold on demand. Without a body it covers the
// period in progress or, before the start date, the first period.
func (s *Server) AuthorizeBooking(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}
	var req paymentdomain.AuthorizeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	req.BookingID = bookingID

	ctx := c.Request.Context()
	if _, err := s.bookingSvc.Get(ctx, bookingID, bookingActor(id)); err != nil {
		AbortWithError(c, err)
		return
	}
	auth, err := s.paymentSvc.Authorize(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": auth})
}

func (s *Server) ListBookingPayments(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}
	var req paymentdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BookingID = bookingID

	ctx := c.Request.Context()
	if _, err := s.bookingSvc.Get(ctx, bookingID, bookingActor(id)); err != nil {
		AbortWithError(c, err)
		return
	}
	resp, err := s.paymentSvc.ListForBooking(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) SavePaymentMethod(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req paymentdomain.SavePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ClientID = id.UserID
	if req.Email == "" {
		req.Email = id.Email
	}

	method, err := s.paymentSvc.SavePaymentMethod(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": method})
}

func (s *Server) CapturePayment(c *gin.Context) {
	authorizationID, ok := pathID(c)
	if !ok {
		return
	}

	auth, err := s.paymentSvc.Capture(c.Request.Context(), authorizationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": auth})
}
