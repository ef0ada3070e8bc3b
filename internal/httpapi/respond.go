package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/service"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
)

const maxListLimit = 1000

var errBadLimit = errors.New("limit must be a positive integer")

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": msg})
}

// fail maps service errors to responses. Validation and state sentinels are
// 4xx; anything else is a store failure.
func (s *Server) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUID):
		writeError(c, http.StatusBadRequest, "invalid_uid", err.Error())
	case errors.Is(err, service.ErrInvalidPlate):
		writeError(c, http.StatusBadRequest, "invalid_license_plate", err.Error())
	case errors.Is(err, service.ErrInvalidName):
		writeError(c, http.StatusBadRequest, "invalid_name", err.Error())
	case errors.Is(err, store.ErrCredentialExists):
		writeError(c, http.StatusConflict, "credential_exists", "credential already exists")
	case errors.Is(err, store.ErrCredentialNotFound):
		writeError(c, http.StatusNotFound, "credential_not_found", "credential not found")
	default:
		s.logger.Error(c.Request.Context(), op+" failed", "error", err)
		writeError(c, http.StatusServiceUnavailable, "store_unavailable", "storage is unavailable")
	}
}

// queryLimit reads ?limit=. Absent means 0, which the service replaces
// with its default.
func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errBadLimit
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
