package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
)

func (s *Server) GetProfile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	view, err := s.profileSvc.Get(c.Request.Context(), id.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// SaveProfile writes the caller's own profile. The role always comes from
// the token.
func (s *Server) SaveProfile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req profiledomain.SaveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = id.UserID
	req.Role = id.Role
	if req.Email == "" {
		req.Email = id.Email
	}

	view, err := s.profileSvc.Save(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}
