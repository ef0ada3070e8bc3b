// Package memory is an in-process Store for tests and bench setups.
package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

// Store keeps every collection behind one mutex, which makes each tracking
// check-then-act a single critical section.
type Store struct {
	mu           sync.RWMutex
	credentials  map[string]types.Credential
	accessLogs   []types.AccessLogEntry
	tracking     []types.TrackingRecord
	observations []types.PlateObservation
	readers      map[string]types.Reader
}

func New() *Store {
	return &Store{
		credentials: make(map[string]types.Credential),
		readers:     make(map[string]types.Reader),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func limitSlice[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
