package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reassignmentdomain "github.com/smallbiznis/nannyhub/internal/reassignment/domain"
)

// RejectBooking is the assigned nanny declining the booking. The
// response carries the proposed replacement.
func (s *Server) RejectBooking(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}
	var req reassignmentdomain.RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	req.BookingID = bookingID
	req.NannyID = id.UserID

	r, err := s.reassignmentSvc.HandleRejection(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reassignmentdomain.RejectResponse{Reassignment: r}})
}

func (s *Server) ListReassignments(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := s.bookingSvc.Get(ctx, bookingID, bookingActor(id)); err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.reassignmentSvc.List(ctx, bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) RespondReassignment(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	reassignmentID, ok := pathID(c)
	if !ok {
		return
	}
	var req reassignmentdomain.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ReassignmentID = reassignmentID
	req.ClientID = id.UserID

	r, err := s.reassignmentSvc.Respond(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": r})
}

func (s *Server) AdminReassignBooking(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}
	var req reassignmentdomain.AdminReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BookingID = bookingID
	req.AdminID = id.UserID

	r, err := s.reassignmentSvc.AdminReassign(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": r})
}
