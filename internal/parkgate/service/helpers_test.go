package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/camera"
	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/service"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store/memory"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

var errStoreDown = errors.New("store down")

func newAccess(t *testing.T) (*service.AccessService, *memory.Store) {
	t.Helper()
	ms := memory.New()
	return service.NewAccessService(ms, logging.Discard()), ms
}

func seedCredential(t *testing.T, ms *memory.Store, uid string, status types.CredentialStatus) {
	t.Helper()
	now := time.Now().UTC()
	err := ms.AddCredential(context.Background(), types.Credential{
		UID: uid, HolderName: "Holder " + uid, Department: "IT",
		Status: status, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", uid, err)
	}
}

// brokenStore fails every tracking write and credential lookup.
type brokenStore struct {
	*memory.Store
}

func (brokenStore) GetCredential(context.Context, string) (types.Credential, error) {
	return types.Credential{}, errStoreDown
}

func (brokenStore) EnterVehicle(context.Context, store.EntryRecord) (types.TrackingRecord, error) {
	return types.TrackingRecord{}, errStoreDown
}

// failingTrackingStore authorizes normally but cannot write sessions.
type failingTrackingStore struct {
	*memory.Store
}

func (failingTrackingStore) EnterVehicle(context.Context, store.EntryRecord) (types.TrackingRecord, error) {
	return types.TrackingRecord{}, errStoreDown
}

type fakeCamera struct {
	mu     sync.Mutex
	plates []string
	err    error
	calls  int
}

func (c *fakeCamera) GetFrame(_ context.Context, extract, crop bool) (camera.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return camera.Frame{}, c.err
	}
	return camera.Frame{JPEG: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Plates: c.plates, Cropped: crop}, nil
}

func (c *fakeCamera) set(plates ...string) {
	c.mu.Lock()
	c.plates = plates
	c.mu.Unlock()
}

func (c *fakeCamera) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type capturePublisher struct {
	mu      sync.Mutex
	results []types.ScanResult
	err     error
}

func (p *capturePublisher) Publish(_ context.Context, r types.ScanResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
	return p.err
}

func (p *capturePublisher) Results() []types.ScanResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.ScanResult, len(p.results))
	copy(out, p.results)
	return out
}

type memImages struct {
	mu   sync.Mutex
	keys []string
}

func (m *memImages) Put(_ context.Context, key string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "mem://" + key, nil
}
