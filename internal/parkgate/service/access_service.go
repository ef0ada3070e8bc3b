// Package service holds the gate's business logic: credential checks,
// vehicle sessions and the scan workflow that ties camera, store and
// transport together.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

const (
	DefaultHistoryLimit      = 50
	DefaultMismatchLimit     = 20
	DefaultAccessLogLimit    = 50
	DefaultObservationLimit  = 50
	DefaultDepartment        = "Unknown"
	ReasonAllowed            = "allowed"
	ReasonUnknownCredential  = "unknown_credential"
	ReasonInactiveCredential = "inactive_credential"
)

// AccessService is the only path from callers to the store. Business
// outcomes come back as results; errors mean the store failed.
type AccessService struct {
	store  store.Store
	logger logging.Logger
}

func NewAccessService(st store.Store, logger logging.Logger) *AccessService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AccessService{store: st, logger: logger.With("component", "access")}
}

func (s *AccessService) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// ── Credentials ──────────────────────────────────────────────────────────────

// CheckCredential reports whether uid may pass. Unknown and inactive
// credentials are denials, not errors.
func (s *AccessService) CheckCredential(ctx context.Context, uid string) (types.CheckResult, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return types.CheckResult{}, ErrInvalidUID
	}

	c, err := s.store.GetCredential(ctx, uid)
	switch {
	case errors.Is(err, store.ErrCredentialNotFound):
		return types.CheckResult{
			UID:     uid,
			Reason:  ReasonUnknownCredential,
			Message: "access denied: credential not registered",
		}, nil
	case err != nil:
		return types.CheckResult{}, fmt.Errorf("CheckCredential: %w", err)
	}

	if c.Status != types.CredentialActive {
		return types.CheckResult{
			UID:        uid,
			HolderName: c.HolderName,
			Department: c.Department,
			Reason:     ReasonInactiveCredential,
			Message:    "access denied: credential revoked",
		}, nil
	}

	return types.CheckResult{
		UID:        uid,
		Allowed:    true,
		HolderName: c.HolderName,
		Department: c.Department,
		Reason:     ReasonAllowed,
		Message:    "access granted",
	}, nil
}

// RecordAccessAttempt appends to the access log. A failed write is logged
// and swallowed so the caller still gets its decision.
func (s *AccessService) RecordAccessAttempt(ctx context.Context, uid string, allowed bool, info map[string]string) {
	e := types.AccessLogEntry{
		ID:        uuid.NewString(),
		UID:       strings.TrimSpace(uid),
		Allowed:   allowed,
		Timestamp: time.Now().UTC(),
		Context:   info,
	}
	if err := s.store.AppendAccessLog(ctx, e); err != nil {
		s.logger.Error(ctx, "access log write failed", "uid", e.UID, "error", err)
	}
}

// TestCredential runs a check from the admin surface and logs it with
// source=admin_test.
func (s *AccessService) TestCredential(ctx context.Context, uid string) (types.CheckResult, error) {
	res, err := s.CheckCredential(ctx, uid)
	if err != nil {
		return res, err
	}
	s.RecordAccessAttempt(ctx, res.UID, res.Allowed, map[string]string{
		"source":    "admin_test",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	return res, nil
}

func (s *AccessService) AddCredential(ctx context.Context, req types.AddCredentialRequest) (types.Credential, error) {
	uid := strings.TrimSpace(req.UID)
	name := strings.TrimSpace(req.Name)
	if uid == "" {
		return types.Credential{}, ErrInvalidUID
	}
	if name == "" {
		return types.Credential{}, ErrInvalidName
	}
	dept := strings.TrimSpace(req.Department)
	if dept == "" {
		dept = DefaultDepartment
	}

	now := time.Now().UTC()
	c := types.Credential{
		UID:        uid,
		HolderName: name,
		Department: dept,
		Status:     types.CredentialActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.AddCredential(ctx, c); err != nil {
		return types.Credential{}, fmt.Errorf("AddCredential: %w", err)
	}

	s.logger.Info(ctx, "credential added", "uid", uid, "department", dept)
	return c, nil
}

// RemoveCredential soft-deletes uid.
func (s *AccessService) RemoveCredential(ctx context.Context, uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return ErrInvalidUID
	}
	if err := s.store.DeactivateCredential(ctx, uid, time.Now().UTC()); err != nil {
		return fmt.Errorf("RemoveCredential: %w", err)
	}
	s.logger.Info(ctx, "credential deactivated", "uid", uid)
	return nil
}

func (s *AccessService) ListCredentials(ctx context.Context) ([]types.Credential, error) {
	out, err := s.store.ListActiveCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCredentials: %w", err)
	}
	return out, nil
}

func (s *AccessService) AccessLogs(ctx context.Context, uid string, limit int) ([]types.AccessLogEntry, error) {
	if limit <= 0 {
		limit = DefaultAccessLogLimit
	}
	out, err := s.store.ListAccessLogs(ctx, strings.TrimSpace(uid), limit)
	if err != nil {
		return nil, fmt.Errorf("AccessLogs: %w", err)
	}
	return out, nil
}

// ── Vehicle sessions ─────────────────────────────────────────────────────────

func (s *AccessService) EnterVehicle(ctx context.Context, uid, plateText, imageRef string) (types.EntryResult, error) {
	uid = strings.TrimSpace(uid)
	plateText = strings.TrimSpace(plateText)
	if uid == "" {
		return types.EntryResult{}, ErrInvalidUID
	}
	if plateText == "" {
		return types.EntryResult{}, ErrInvalidPlate
	}

	rec, err := s.store.EnterVehicle(ctx, store.EntryRecord{
		ID:       uuid.NewString(),
		UID:      uid,
		Plate:    plateText,
		ImageRef: imageRef,
		At:       time.Now().UTC(),
	})
	switch {
	case errors.Is(err, store.ErrAlreadyInside):
		at := rec.EntryTime
		return types.EntryResult{
			Reason:            types.ReasonAlreadyInside,
			Message:           fmt.Sprintf("vehicle already inside since %s", at.Format(time.RFC3339)),
			RecordID:          rec.ID,
			ExistingPlate:     rec.EntryPlate,
			ExistingEntryTime: &at,
		}, nil
	case err != nil:
		return types.EntryResult{}, fmt.Errorf("EnterVehicle: %w", err)
	}

	return types.EntryResult{
		Success:  true,
		Reason:   types.ReasonEntered,
		Message:  "entry recorded, plate " + rec.EntryPlate,
		RecordID: rec.ID,
	}, nil
}

// ExitVehicle closes uid's session. A plate mismatch is a successful exit
// with MatchStatus=mismatch.
func (s *AccessService) ExitVehicle(ctx context.Context, uid, plateText, imageRef string) (types.ExitResult, error) {
	uid = strings.TrimSpace(uid)
	plateText = strings.TrimSpace(plateText)
	if uid == "" {
		return types.ExitResult{}, ErrInvalidUID
	}
	if plateText == "" {
		return types.ExitResult{}, ErrInvalidPlate
	}

	rec, err := s.store.ExitVehicle(ctx, store.ExitRecord{
		UID:      uid,
		Plate:    plateText,
		ImageRef: imageRef,
		At:       time.Now().UTC(),
	})
	switch {
	case errors.Is(err, store.ErrNoEntryRecord):
		return types.ExitResult{
			Reason:    types.ReasonNoEntryRecord,
			Message:   fmt.Sprintf("no vehicle inside for uid %s", uid),
			ExitPlate: plateText,
		}, nil
	case err != nil:
		return types.ExitResult{}, fmt.Errorf("ExitVehicle: %w", err)
	}

	msg := "exit recorded, plates match"
	if rec.MatchStatus == types.MatchMismatch {
		msg = fmt.Sprintf("exit recorded, plate mismatch: entry %s, exit %s", rec.EntryPlate, rec.ExitPlate)
		s.logger.Warn(ctx, "plate mismatch on exit",
			"uid", uid, "entry_plate", rec.EntryPlate, "exit_plate", rec.ExitPlate, "record_id", rec.ID)
	}

	return types.ExitResult{
		Success:     true,
		Reason:      types.ReasonExited,
		Message:     msg,
		RecordID:    rec.ID,
		MatchStatus: rec.MatchStatus,
		EntryPlate:  rec.EntryPlate,
		ExitPlate:   rec.ExitPlate,
	}, nil
}

func (s *AccessService) ForceExit(ctx context.Context, uid, reason string) (types.ExitResult, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return types.ExitResult{}, ErrInvalidUID
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "admin override"
	}

	rec, err := s.store.ForceExit(ctx, uid, reason, time.Now().UTC())
	switch {
	case errors.Is(err, store.ErrNoEntryRecord):
		return types.ExitResult{
			Reason:  types.ReasonNoEntryRecord,
			Message: fmt.Sprintf("no vehicle inside for uid %s", uid),
		}, nil
	case err != nil:
		return types.ExitResult{}, fmt.Errorf("ForceExit: %w", err)
	}

	s.logger.Warn(ctx, "forced exit", "uid", uid, "reason", reason, "record_id", rec.ID)
	return types.ExitResult{
		Success:     true,
		Reason:      types.ReasonForceExited,
		Message:     "forced exit: " + reason,
		RecordID:    rec.ID,
		MatchStatus: rec.MatchStatus,
		EntryPlate:  rec.EntryPlate,
		ExitPlate:   rec.ExitPlate,
	}, nil
}

// ManualEntry records a vehicle let in without a card.
func (s *AccessService) ManualEntry(ctx context.Context, plateText string) (types.EntryResult, error) {
	plateText = strings.TrimSpace(plateText)
	if plateText == "" {
		return types.EntryResult{}, ErrInvalidPlate
	}

	rec, err := s.store.ManualEntry(ctx, store.EntryRecord{
		ID:    uuid.NewString(),
		Plate: plateText,
		At:    time.Now().UTC(),
	})
	if err != nil {
		return types.EntryResult{}, fmt.Errorf("ManualEntry: %w", err)
	}

	return types.EntryResult{
		Success:  true,
		Reason:   types.ReasonManualEntry,
		Message:  "manual entry recorded, plate " + rec.EntryPlate,
		RecordID: rec.ID,
	}, nil
}

func (s *AccessService) VehiclesInside(ctx context.Context) ([]types.TrackingRecord, error) {
	out, err := s.store.ListInside(ctx)
	if err != nil {
		return nil, fmt.Errorf("VehiclesInside: %w", err)
	}
	return out, nil
}

// History lists sessions newest-first; an empty uid lists every session.
func (s *AccessService) History(ctx context.Context, uid string, limit int) ([]types.TrackingRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	out, err := s.store.History(ctx, strings.TrimSpace(uid), limit)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return out, nil
}

func (s *AccessService) Mismatches(ctx context.Context, limit int) ([]types.TrackingRecord, error) {
	if limit <= 0 {
		limit = DefaultMismatchLimit
	}
	out, err := s.store.Mismatches(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("Mismatches: %w", err)
	}
	return out, nil
}

// ── Plate observations ───────────────────────────────────────────────────────

func (s *AccessService) SaveObservation(ctx context.Context, plateText, imageRef string) (types.PlateObservation, error) {
	plateText = strings.TrimSpace(plateText)
	if plateText == "" {
		return types.PlateObservation{}, ErrInvalidPlate
	}
	o := types.PlateObservation{
		ID:        uuid.NewString(),
		PlateText: plateText,
		Timestamp: time.Now().UTC(),
		ImageRef:  imageRef,
	}
	if err := s.store.SaveObservation(ctx, o); err != nil {
		return types.PlateObservation{}, fmt.Errorf("SaveObservation: %w", err)
	}
	return o, nil
}

// RecordPlate lets the camera auto-save accepted plate texts.
func (s *AccessService) RecordPlate(ctx context.Context, text string) error {
	_, err := s.SaveObservation(ctx, text, "")
	return err
}

func (s *AccessService) RecentObservations(ctx context.Context, limit int) ([]types.PlateObservation, error) {
	if limit <= 0 {
		limit = DefaultObservationLimit
	}
	out, err := s.store.RecentObservations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentObservations: %w", err)
	}
	return out, nil
}
