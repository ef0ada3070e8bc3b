package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

func (s *Server) handleListCredentials(c *gin.Context) {
	list, err := s.access.ListCredentials(c.Request.Context())
	if err != nil {
		s.fail(c, "list credentials", err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (s *Server) handleAddCredential(c *gin.Context) {
	var req types.AddCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "body must include uid and name")
		return
	}

	cred, err := s.access.AddCredential(c.Request.Context(), req)
	if err != nil {
		s.fail(c, "add credential", err)
		return
	}
	c.JSON(http.StatusCreated, cred)
}

func (s *Server) handleRemoveCredential(c *gin.Context) {
	uid := c.Param("uid")
	if err := s.access.RemoveCredential(c.Request.Context(), uid); err != nil {
		s.fail(c, "remove credential", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "uid": uid})
}

func (s *Server) handleTestCredential(c *gin.Context) {
	var req types.TestCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "body must include uid")
		return
	}

	res, err := s.access.TestCredential(c.Request.Context(), req.UID)
	if err != nil {
		s.fail(c, "test credential", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleAccessLogs(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}

	logs, err := s.access.AccessLogs(c.Request.Context(), c.Query("uid"), limit)
	if err != nil {
		s.fail(c, "access logs", err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(logs))
}
