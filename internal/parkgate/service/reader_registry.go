package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

// ReaderRegistry tracks which RFID readers have delivered scans.
type ReaderRegistry struct {
	store store.ReaderStore
}

func NewReaderRegistry(st store.ReaderStore) *ReaderRegistry {
	return &ReaderRegistry{store: st}
}

func (r *ReaderRegistry) NoteSeen(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = types.UnknownDevice
	}
	return r.store.MarkSeen(ctx, deviceID, time.Now().UTC())
}

func (r *ReaderRegistry) List(ctx context.Context) ([]types.Reader, error) {
	return r.store.ListReaders(ctx)
}
