// Package store defines the persistence contracts for credentials, access
// logs, vehicle tracking, plate observations and readers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialExists   = errors.New("credential already exists")

	// ErrAlreadyInside is returned by EnterVehicle when the uid has an open
	// session. The open session is returned alongside the error.
	ErrAlreadyInside = errors.New("vehicle already inside")

	// ErrNoEntryRecord is returned by ExitVehicle and ForceExit when the
	// uid has no open session. Nothing is written.
	ErrNoEntryRecord = errors.New("no entry record")
)

type CredentialStore interface {
	// GetCredential returns the credential regardless of status.
	GetCredential(ctx context.Context, uid string) (types.Credential, error)
	AddCredential(ctx context.Context, c types.Credential) error
	// DeactivateCredential soft-deletes uid. Deactivating an inactive
	// credential is not an error.
	DeactivateCredential(ctx context.Context, uid string, at time.Time) error
	ListActiveCredentials(ctx context.Context) ([]types.Credential, error)
	CountCredentials(ctx context.Context) (int, error)
}

// AccessLogStore is an append-only log of authorization checks.
type AccessLogStore interface {
	AppendAccessLog(ctx context.Context, e types.AccessLogEntry) error
	// ListAccessLogs returns newest-first; an empty uid lists all.
	ListAccessLogs(ctx context.Context, uid string, limit int) ([]types.AccessLogEntry, error)
}

// EntryRecord carries what EnterVehicle needs to open a session.
type EntryRecord struct {
	ID       string
	UID      string
	Plate    string
	ImageRef string
	At       time.Time
}

// ExitRecord carries what ExitVehicle needs to close a session.
type ExitRecord struct {
	UID      string
	Plate    string
	ImageRef string
	At       time.Time
}

// TrackingStore owns vehicle sessions. Every method that checks for an open
// session and then writes does so as one atomic operation.
type TrackingStore interface {
	EnterVehicle(ctx context.Context, rec EntryRecord) (types.TrackingRecord, error)
	// ExitVehicle closes the open session for rec.UID, setting MatchStatus
	// from plate.Match(entryPlate, rec.Plate).
	ExitVehicle(ctx context.Context, rec ExitRecord) (types.TrackingRecord, error)
	ForceExit(ctx context.Context, uid, reason string, at time.Time) (types.TrackingRecord, error)
	ManualEntry(ctx context.Context, rec EntryRecord) (types.TrackingRecord, error)

	// Queries return newest-first.
	ListInside(ctx context.Context) ([]types.TrackingRecord, error)
	History(ctx context.Context, uid string, limit int) ([]types.TrackingRecord, error)
	Mismatches(ctx context.Context, limit int) ([]types.TrackingRecord, error)
}

type ObservationStore interface {
	SaveObservation(ctx context.Context, o types.PlateObservation) error
	RecentObservations(ctx context.Context, limit int) ([]types.PlateObservation, error)
	PruneObservationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ReaderStore interface {
	MarkSeen(ctx context.Context, deviceID string, at time.Time) error
	ListReaders(ctx context.Context) ([]types.Reader, error)
}

// Store bundles every contract a backend provides.
type Store interface {
	CredentialStore
	AccessLogStore
	TrackingStore
	ObservationStore
	ReaderStore
	Ping(ctx context.Context) error
}
