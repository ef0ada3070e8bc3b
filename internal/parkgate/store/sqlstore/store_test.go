package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

// ── Credentials ──────────────────────────────────────────────────────────────

func TestCredentials_AddGetDeactivate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	c := types.Credential{
		UID: "A1B2C3D4", HolderName: "Nguyễn Văn A", Department: "IT",
		Status: types.CredentialActive, CreatedAt: t0, UpdatedAt: t0,
	}
	if err := s.AddCredential(ctx, c); err != nil {
		t.Fatalf("AddCredential: %v", err)
	}
	if err := s.AddCredential(ctx, c); !errors.Is(err, store.ErrCredentialExists) {
		t.Fatalf("expected ErrCredentialExists, got %v", err)
	}

	got, err := s.GetCredential(ctx, "A1B2C3D4")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if got.HolderName != "Nguyễn Văn A" || got.Status != types.CredentialActive {
		t.Errorf("unexpected credential %+v", got)
	}

	if err := s.DeactivateCredential(ctx, "A1B2C3D4", t0.Add(time.Hour)); err != nil {
		t.Fatalf("DeactivateCredential: %v", err)
	}
	got, err = s.GetCredential(ctx, "A1B2C3D4")
	if err != nil {
		t.Fatalf("GetCredential after deactivate: %v", err)
	}
	if got.Status != types.CredentialInactive || !got.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("expected soft-deleted credential, got %+v", got)
	}

	active, err := s.ListActiveCredentials(ctx)
	if err != nil {
		t.Fatalf("ListActiveCredentials: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active credentials, got %d", len(active))
	}

	n, err := s.CountCredentials(ctx)
	if err != nil {
		t.Fatalf("CountCredentials: %v", err)
	}
	if n != 1 {
		t.Errorf("soft delete must keep the row, count=%d", n)
	}

	if _, err := s.GetCredential(ctx, "nope"); !errors.Is(err, store.ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound, got %v", err)
	}
	if err := s.DeactivateCredential(ctx, "nope", t0); !errors.Is(err, store.ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound on deactivate, got %v", err)
	}
}

// ── Access logs ──────────────────────────────────────────────────────────────

func TestAccessLogs_AppendAndList(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	entries := []types.AccessLogEntry{
		{ID: "l1", UID: "U1", Allowed: true, Timestamp: t0, Context: map[string]string{"device_id": "gate-in", "scan_type": "entry"}},
		{ID: "l2", UID: "U2", Allowed: false, Timestamp: t0.Add(time.Second)},
		{ID: "l3", UID: "U1", Allowed: false, Timestamp: t0.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := s.AppendAccessLog(ctx, e); err != nil {
			t.Fatalf("AppendAccessLog: %v", err)
		}
	}

	all, err := s.ListAccessLogs(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListAccessLogs: %v", err)
	}
	if len(all) != 3 || all[0].ID != "l3" {
		t.Fatalf("expected newest-first 3 entries, got %+v", all)
	}

	u1, err := s.ListAccessLogs(ctx, "U1", 1)
	if err != nil {
		t.Fatalf("ListAccessLogs U1: %v", err)
	}
	if len(u1) != 1 || u1[0].ID != "l3" {
		t.Fatalf("expected l3 only, got %+v", u1)
	}

	oldest := all[2]
	if !oldest.Allowed || oldest.Context["device_id"] != "gate-in" || oldest.Context["scan_type"] != "entry" {
		t.Errorf("context not round-tripped: %+v", oldest)
	}
}

// ── Observations ─────────────────────────────────────────────────────────────

func TestObservations_RecentAndPrune(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i, p := range []string{"30A-001", "30A-002", "30A-003"} {
		err := s.SaveObservation(ctx, types.PlateObservation{
			ID: p, PlateText: p, Timestamp: t0.Add(time.Duration(i) * 24 * time.Hour),
		})
		if err != nil {
			t.Fatalf("SaveObservation: %v", err)
		}
	}

	recent, err := s.RecentObservations(ctx, 2)
	if err != nil {
		t.Fatalf("RecentObservations: %v", err)
	}
	if len(recent) != 2 || recent[0].PlateText != "30A-003" {
		t.Errorf("unexpected recent list %+v", recent)
	}

	n, err := s.PruneObservationsOlderThan(ctx, t0.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}
}

// ── Readers ──────────────────────────────────────────────────────────────────

func TestReaders_MarkSeenCounts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.MarkSeen(ctx, "RFID_READER_001", t0.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("MarkSeen: %v", err)
		}
	}

	readers, err := s.ListReaders(ctx)
	if err != nil {
		t.Fatalf("ListReaders: %v", err)
	}
	if len(readers) != 1 {
		t.Fatalf("expected 1 reader, got %d", len(readers))
	}
	if readers[0].Scans != 3 || !readers[0].LastSeen.Equal(t0.Add(2*time.Second)) {
		t.Errorf("unexpected reader %+v", readers[0])
	}
}
