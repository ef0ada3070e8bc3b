package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/Parkgate/server/internal/camera"
	"github.com/BrandonDHaskell/Parkgate/server/internal/imagestore"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

const mjpegBoundary = "frame"

// handleVideoFeed streams plain frames as multipart JPEG until the client
// goes away.
func (s *Server) handleVideoFeed(c *gin.Context) {
	if !s.camera.IsOpen() {
		writeError(c, http.StatusServiceUnavailable, "camera_unavailable", "camera is not open")
		return
	}

	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(c, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	err := s.camera.Stream(c.Request.Context(), func(jpeg []byte) error {
		if _, err := w.Write([]byte("--" + mjpegBoundary + "\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
			return err
		}
		if _, err := w.Write(jpeg); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn(c.Request.Context(), "video feed ended", "error", err)
	}
}

// handleSnapshot returns one frame. flag=1 is mandatory; crop defaults to 1.
// With extract_plate=1 the response is JSON and accepted frames are stored.
func (s *Server) handleSnapshot(c *gin.Context) {
	if c.Query("flag") != "1" {
		writeError(c, http.StatusBadRequest, "flag_required", "snapshot requires flag=1")
		return
	}
	crop := c.DefaultQuery("crop", "1") == "1"
	extract := c.Query("extract_plate") == "1"

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	f, err := s.camera.GetFrame(ctx, extract, crop)
	if err != nil {
		s.logger.Warn(ctx, "snapshot failed", "error", err)
		if extract {
			c.JSON(http.StatusServiceUnavailable, types.SnapshotResponse{
				AllPlates: []string{},
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				Error:     err.Error(),
			})
			return
		}
		writeError(c, http.StatusServiceUnavailable, "camera_unavailable", err.Error())
		return
	}

	if !extract {
		c.Data(http.StatusOK, "image/jpeg", f.JPEG)
		return
	}

	now := time.Now().UTC()
	resp := types.SnapshotResponse{
		AllPlates: orEmpty(f.Plates),
		Timestamp: now.Format(time.RFC3339Nano),
	}
	if len(f.Plates) == 0 {
		resp.Error = "no license plate detected"
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Success = true
	resp.LicensePlate = f.Plates[0]

	ref, err := s.images.Put(ctx, imagestore.NewKey("snapshot", now), f.JPEG)
	if err != nil {
		s.logger.Warn(ctx, "snapshot image not stored", "error", err)
	}
	resp.ImageRef = ref

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()

	resp := types.StatusResponse{
		CameraOpen:  s.camera.IsOpen(),
		CameraIndex: s.camera.Index(),
		AutoSave:    s.camera.AutoSave(),
		Readers:     []types.Reader{},
		ServerTime:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if s.transport != nil {
		resp.TransportUp = s.transport.Connected()
		resp.TransportBroker = s.transport.Broker()
	}
	if s.readers != nil {
		rs, err := s.readers.List(ctx)
		if err != nil {
			s.logger.Warn(ctx, "reader list failed", "error", err)
		} else {
			resp.Readers = orEmpty(rs)
		}
	}

	switch {
	case !resp.CameraOpen:
		resp.Message = "camera closed"
	case !resp.TransportUp:
		resp.Message = "camera open, event transport offline"
	default:
		resp.Message = "ok"
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAutoSave(c *gin.Context) {
	var req types.AutoSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "body must be {\"enabled\": true|false}")
		return
	}
	s.camera.SetAutoSave(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"auto_save": s.camera.AutoSave()})
}

var _ Camera = (*camera.Manager)(nil)
