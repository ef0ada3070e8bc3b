package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/Parkgate/server/internal/auth"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

func (s *Server) handleVehiclesInside(c *gin.Context) {
	list, err := s.access.VehiclesInside(c.Request.Context())
	if err != nil {
		s.fail(c, "vehicles inside", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "vehicles": orEmpty(list)})
}

// handleHistory serves both /vehicles/history and /vehicles/history/:uid.
func (s *Server) handleHistory(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}

	list, err := s.access.History(c.Request.Context(), c.Param("uid"), limit)
	if err != nil {
		s.fail(c, "history", err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (s *Server) handleMismatches(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}

	list, err := s.access.Mismatches(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, "mismatches", err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (s *Server) handleForceExit(c *gin.Context) {
	var req types.ForceExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "body must include uid")
		return
	}

	res, err := s.access.ForceExit(c.Request.Context(), req.UID, req.Reason)
	if err != nil {
		s.fail(c, "force exit", err)
		return
	}
	if res.Reason == types.ReasonNoEntryRecord {
		writeError(c, http.StatusNotFound, types.ReasonNoEntryRecord, res.Message)
		return
	}

	if op, ok := c.Get(auth.OperatorKey); ok {
		s.logger.Info(c.Request.Context(), "force exit by operator", "operator", op, "uid", req.UID)
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleManualEntry(c *gin.Context) {
	var req types.ManualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "body must include license_plate")
		return
	}

	res, err := s.access.ManualEntry(c.Request.Context(), req.LicensePlate)
	if err != nil {
		s.fail(c, "manual entry", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleListPlates(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}

	list, err := s.access.RecentObservations(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, "list plates", err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (s *Server) handleSavePlate(c *gin.Context) {
	var req types.SaveObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "body must include license_plate")
		return
	}

	o, err := s.access.SaveObservation(c.Request.Context(), req.LicensePlate, "")
	if err != nil {
		s.fail(c, "save plate", err)
		return
	}
	c.JSON(http.StatusCreated, o)
}
