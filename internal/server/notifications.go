package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
)

func (s *Server) ListNotifications(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req notificationdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = id.UserID

	resp, err := s.notificationSvc.ListForUser(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	notificationID, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.notificationSvc.MarkRead(c.Request.Context(), id.UserID, notificationID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
