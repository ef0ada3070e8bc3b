package memory

import (
	"context"
	"maps"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

func (s *Store) AppendAccessLog(_ context.Context, e types.AccessLogEntry) error {
	e.Context = maps.Clone(e.Context)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessLogs = append(s.accessLogs, e)
	return nil
}

func (s *Store) ListAccessLogs(_ context.Context, uid string, limit int) ([]types.AccessLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.AccessLogEntry
	for i := len(s.accessLogs) - 1; i >= 0; i-- {
		e := s.accessLogs[i]
		if uid != "" && e.UID != uid {
			continue
		}
		out = append(out, e)
	}
	return limitSlice(out, limit), nil
}

// AccessLogs returns a copy of all entries in append order.  Test-only helper.
func (s *Store) AccessLogs() []types.AccessLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AccessLogEntry, len(s.accessLogs))
	copy(out, s.accessLogs)
	return out
}
