package memory

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

func (s *Store) SaveObservation(_ context.Context, o types.PlateObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = append(s.observations, o)
	return nil
}

func (s *Store) RecentObservations(_ context.Context, limit int) ([]types.PlateObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.PlateObservation, 0, len(s.observations))
	for i := len(s.observations) - 1; i >= 0; i-- {
		out = append(out, s.observations[i])
	}
	return limitSlice(out, limit), nil
}

func (s *Store) PruneObservationsOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.observations[:0]
	var n int64
	for _, o := range s.observations {
		if o.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, o)
	}
	s.observations = kept
	return n, nil
}
