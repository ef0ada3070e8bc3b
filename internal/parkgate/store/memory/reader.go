package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

func (s *Store) MarkSeen(_ context.Context, deviceID string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.readers[deviceID]
	r.DeviceID = deviceID
	r.LastSeen = at
	r.Scans++
	s.readers[deviceID] = r
	return nil
}

func (s *Store) ListReaders(context.Context) ([]types.Reader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Reader, 0, len(s.readers))
	for _, r := range s.readers {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}
