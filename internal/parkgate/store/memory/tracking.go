package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/plate"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

// openIndex returns the index of uid's inside record or -1. Caller holds mu.
func (s *Store) openIndex(uid string) int {
	for i := range s.tracking {
		if s.tracking[i].UID == uid && s.tracking[i].Status == types.StatusInside {
			return i
		}
	}
	return -1
}

func (s *Store) EnterVehicle(_ context.Context, rec store.EntryRecord) (types.TrackingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.openIndex(rec.UID); i >= 0 {
		return s.tracking[i], store.ErrAlreadyInside
	}

	tr := types.TrackingRecord{
		ID:            rec.ID,
		UID:           rec.UID,
		EntryPlate:    rec.Plate,
		EntryTime:     rec.At,
		EntryImageRef: rec.ImageRef,
		Status:        types.StatusInside,
		CreatedAt:     rec.At,
		UpdatedAt:     rec.At,
	}
	s.tracking = append(s.tracking, tr)
	return tr, nil
}

func (s *Store) ExitVehicle(_ context.Context, rec store.ExitRecord) (types.TrackingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.openIndex(rec.UID)
	if i < 0 {
		return types.TrackingRecord{}, store.ErrNoEntryRecord
	}

	tr := &s.tracking[i]
	at := rec.At
	tr.Status = types.StatusCompleted
	tr.ExitTime = &at
	tr.ExitPlate = rec.Plate
	tr.ExitImageRef = rec.ImageRef
	tr.MatchStatus = types.MatchMismatch
	if plate.Match(tr.EntryPlate, rec.Plate) {
		tr.MatchStatus = types.MatchOK
	}
	tr.UpdatedAt = at
	return *tr, nil
}

func (s *Store) ForceExit(_ context.Context, uid, reason string, at time.Time) (types.TrackingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.openIndex(uid)
	if i < 0 {
		return types.TrackingRecord{}, store.ErrNoEntryRecord
	}

	tr := &s.tracking[i]
	tr.Status = types.StatusForceExit
	tr.ExitTime = &at
	tr.ExitPlate = types.ForceExitPlate
	tr.MatchStatus = types.MatchAdminOverride
	tr.AdminReason = reason
	tr.UpdatedAt = at
	return *tr, nil
}

func (s *Store) ManualEntry(_ context.Context, rec store.EntryRecord) (types.TrackingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr := types.TrackingRecord{
		ID:            rec.ID,
		EntryPlate:    rec.Plate,
		EntryTime:     rec.At,
		EntryImageRef: rec.ImageRef,
		Status:        types.StatusManualEntry,
		CreatedAt:     rec.At,
		UpdatedAt:     rec.At,
	}
	s.tracking = append(s.tracking, tr)
	return tr, nil
}

func (s *Store) ListInside(context.Context) ([]types.TrackingRecord, error) {
	return s.filter(func(r types.TrackingRecord) bool { return r.Status == types.StatusInside }, byEntryDesc, 0), nil
}

func (s *Store) History(_ context.Context, uid string, limit int) ([]types.TrackingRecord, error) {
	return s.filter(func(r types.TrackingRecord) bool { return uid == "" || r.UID == uid }, byEntryDesc, limit), nil
}

func (s *Store) Mismatches(_ context.Context, limit int) ([]types.TrackingRecord, error) {
	return s.filter(func(r types.TrackingRecord) bool { return r.MatchStatus == types.MatchMismatch }, byExitDesc, limit), nil
}

func (s *Store) filter(keep func(types.TrackingRecord) bool, less func(a, b types.TrackingRecord) bool, limit int) []types.TrackingRecord {
	s.mu.RLock()
	var out []types.TrackingRecord
	for _, r := range s.tracking {
		if keep(r) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return limitSlice(out, limit)
}

func byEntryDesc(a, b types.TrackingRecord) bool { return a.EntryTime.After(b.EntryTime) }

func byExitDesc(a, b types.TrackingRecord) bool {
	var ta, tb time.Time
	if a.ExitTime != nil {
		ta = *a.ExitTime
	}
	if b.ExitTime != nil {
		tb = *b.ExitTime
	}
	return ta.After(tb)
}
