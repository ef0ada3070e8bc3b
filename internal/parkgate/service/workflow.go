package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/camera"
	"github.com/BrandonDHaskell/Parkgate/server/internal/imagestore"
	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

// ErrEmptyScan is returned for scans without a uid. Such scans are dropped
// before authorization and never reach the access log.
var ErrEmptyScan = errors.New("scan has no uid")

// Capturer is the camera surface the workflow needs.
type Capturer interface {
	GetFrame(ctx context.Context, extractPlate, cropToVehicle bool) (camera.Frame, error)
}

// Publisher delivers a scan result to readers and operators. Publish must
// not block for long; failures are logged by the workflow and ignored.
type Publisher interface {
	Publish(ctx context.Context, res types.ScanResult) error
}

// Workflow runs one scan event from receipt to a published result. Handle
// is safe to call concurrently; camera access is serialized by the camera
// itself and per-uid session writes by the store.
type Workflow struct {
	access     *AccessService
	readers    *ReaderRegistry
	camera     Capturer
	images     imagestore.Store
	publishers []Publisher
	logger     logging.Logger
}

type WorkflowDeps struct {
	Access     *AccessService
	Readers    *ReaderRegistry
	Camera     Capturer
	Images     imagestore.Store // nil stores nothing
	Publishers []Publisher
	Logger     logging.Logger
}

func NewWorkflow(d WorkflowDeps) *Workflow {
	if d.Images == nil {
		d.Images = imagestore.Nop{}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	return &Workflow{
		access:     d.Access,
		readers:    d.Readers,
		camera:     d.Camera,
		images:     d.Images,
		publishers: d.Publishers,
		logger:     d.Logger.With("component", "workflow"),
	}
}

// Handle processes ev and returns the published result. Business outcomes
// (denial, extraction failure, already inside, no entry record) are results
// with a nil error. A non-nil error means the scan was dropped
// (ErrEmptyScan) or the store failed; in the latter case a failure result
// is still published.
func (w *Workflow) Handle(ctx context.Context, ev types.ScanEvent) (types.ScanResult, error) {
	// Received
	ev.UID = strings.TrimSpace(ev.UID)
	if ev.UID == "" {
		return types.ScanResult{}, ErrEmptyScan
	}
	ev.DeviceID = strings.TrimSpace(ev.DeviceID)
	if ev.DeviceID == "" {
		ev.DeviceID = types.UnknownDevice
	}
	if ev.Direction != types.DirectionExit {
		ev.Direction = types.DirectionEntry
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}

	log := w.logger.With("uid", ev.UID, "direction", string(ev.Direction), "device_id", ev.DeviceID)
	log.Info(ctx, "scan received", "topic", ev.Topic)

	if w.readers != nil {
		if err := w.readers.NoteSeen(ctx, ev.DeviceID); err != nil {
			log.Warn(ctx, "reader registry update failed", "error", err)
		}
	}

	res := types.ScanResult{
		UID:       ev.UID,
		DeviceID:  ev.DeviceID,
		Direction: ev.Direction,
		State:     types.StateAuthorizing,
	}

	// Authorizing
	check, err := w.access.CheckCredential(ctx, ev.UID)
	if err != nil {
		res.State = types.StateRejected
		res.Reason = types.ReasonStoreError
		res.Message = "system error: credential store unavailable"
		w.publish(ctx, log, &res)
		return res, fmt.Errorf("Handle: %w", err)
	}
	w.access.RecordAccessAttempt(ctx, ev.UID, check.Allowed, map[string]string{
		"device_id": ev.DeviceID,
		"topic":     ev.Topic,
		"scan_type": string(ev.Direction),
		"timestamp": ev.ReceivedAt.Format(time.RFC3339Nano),
	})

	res.Allowed = check.Allowed
	res.HolderName = check.HolderName
	res.Department = check.Department

	if !check.Allowed {
		res.State = types.StateRejected
		res.Reason = types.ReasonDenied
		res.Message = check.Message
		log.Info(ctx, "scan denied", "reason", check.Reason)
		w.publish(ctx, log, &res)
		return res, nil
	}

	// Capturing
	res.State = types.StateCapturing
	frame, err := w.camera.GetFrame(ctx, true, true)
	if err != nil {
		res.State = types.StateExtractionFailed
		res.Reason = types.ReasonCaptureFailed
		res.Message = "image capture failed: " + err.Error()
		log.Warn(ctx, "capture failed", "error", err)
		w.publish(ctx, log, &res)
		return res, nil
	}
	if len(frame.Plates) == 0 {
		res.State = types.StateExtractionFailed
		res.Reason = types.ReasonExtractionFailed
		res.Message = "no license plate recognized"
		log.Warn(ctx, "no plate extracted", "detections", len(frame.Detections))
		w.publish(ctx, log, &res)
		return res, nil
	}

	// Extracted
	res.State = types.StateExtracted
	res.LicensePlate = frame.Plates[0]

	ref, err := w.images.Put(ctx, imagestore.NewKey(string(ev.Direction), ev.ReceivedAt), frame.JPEG)
	if err != nil {
		log.Warn(ctx, "image store failed", "error", err)
	}
	res.ImageRef = ref

	if ev.Direction == types.DirectionEntry {
		er, err := w.access.EnterVehicle(ctx, ev.UID, res.LicensePlate, ref)
		if err != nil {
			return w.storeFailure(ctx, log, res, err)
		}
		res.Success = er.Success
		res.Reason = er.Reason
		res.Message = er.Message
		if er.Reason == types.ReasonAlreadyInside {
			res.EntryPlate = er.ExistingPlate
		}
	} else {
		xr, err := w.access.ExitVehicle(ctx, ev.UID, res.LicensePlate, ref)
		if err != nil {
			return w.storeFailure(ctx, log, res, err)
		}
		res.Success = xr.Success
		res.Reason = xr.Reason
		res.Message = xr.Message
		res.MatchStatus = xr.MatchStatus
		res.EntryPlate = xr.EntryPlate
	}

	// Persisted
	res.State = types.StatePersisted
	log.Info(ctx, "scan completed",
		"plate", res.LicensePlate, "success", res.Success, "reason", res.Reason, "match_status", string(res.MatchStatus))
	w.publish(ctx, log, &res)
	return res, nil
}

func (w *Workflow) storeFailure(ctx context.Context, log logging.Logger, res types.ScanResult, err error) (types.ScanResult, error) {
	res.Success = false
	res.Reason = types.ReasonStoreError
	res.Message = "system error: tracking store unavailable"
	log.Error(ctx, "tracking write failed", "error", err)
	w.publish(ctx, log, &res)
	return res, fmt.Errorf("Handle: %w", err)
}

func (w *Workflow) publish(ctx context.Context, log logging.Logger, res *types.ScanResult) {
	res.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	for _, p := range w.publishers {
		if err := p.Publish(ctx, *res); err != nil {
			log.Warn(ctx, "publish failed", "error", err)
		}
	}
}
