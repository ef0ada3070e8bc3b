package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/service"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

const scanTopicHTTP = "http"

type scanRequest struct {
	UID      string `json:"uid"`
	DeviceID string `json:"device_id"`
}

// handleScan runs the scan workflow for a reader posting over HTTP. The body
// is JSON {uid, device_id} or a protobuf google.protobuf.Struct with the
// same fields; the response uses the request's encoding.
func (s *Server) handleScan(c *gin.Context) {
	if s.workflow == nil {
		writeError(c, http.StatusServiceUnavailable, "workflow_unavailable", "scan intake is disabled")
		return
	}

	var dir types.Direction
	switch c.DefaultQuery("direction", string(types.DirectionEntry)) {
	case string(types.DirectionEntry):
		dir = types.DirectionEntry
	case string(types.DirectionExit):
		dir = types.DirectionExit
	default:
		writeError(c, http.StatusBadRequest, "invalid_direction", "direction must be entry or exit")
		return
	}

	useProto := isProtobuf(c.Request)

	var req scanRequest
	if useProto {
		var st structpb.Struct
		if err := readProto(c.Request, &st); err != nil {
			writeError(c, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
		f := st.GetFields()
		req.UID = f["uid"].GetStringValue()
		req.DeviceID = f["device_id"].GetStringValue()
	} else {
		dec := json.NewDecoder(io.LimitReader(c.Request.Body, maxRequestBody))
		if err := dec.Decode(&req); err != nil {
			writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
			return
		}
	}

	res, err := s.workflow.Handle(c.Request.Context(), types.ScanEvent{
		UID:        req.UID,
		DeviceID:   req.DeviceID,
		Direction:  dir,
		Topic:      scanTopicHTTP,
		ReceivedAt: time.Now().UTC(),
	})
	switch {
	case errors.Is(err, service.ErrEmptyScan):
		writeError(c, http.StatusBadRequest, "invalid_uid", "uid is required")
		return
	case err != nil:
		s.logger.Error(c.Request.Context(), "scan failed", "error", err)
		writeError(c, http.StatusServiceUnavailable, "store_unavailable", res.Message)
		return
	}

	if useProto {
		writeProto(c, http.StatusOK, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
