package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

func (s *Store) GetCredential(_ context.Context, uid string) (types.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[uid]
	if !ok {
		return types.Credential{}, store.ErrCredentialNotFound
	}
	return c, nil
}

func (s *Store) AddCredential(_ context.Context, c types.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[c.UID]; ok {
		return store.ErrCredentialExists
	}
	s.credentials[c.UID] = c
	return nil
}

func (s *Store) DeactivateCredential(_ context.Context, uid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[uid]
	if !ok {
		return store.ErrCredentialNotFound
	}
	c.Status = types.CredentialInactive
	c.UpdatedAt = at
	s.credentials[uid] = c
	return nil
}

func (s *Store) ListActiveCredentials(context.Context) ([]types.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Credential, 0, len(s.credentials))
	for _, c := range s.credentials {
		if c.Status == types.CredentialActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s *Store) CountCredentials(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.credentials), nil
}
