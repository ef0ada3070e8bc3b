// Package imagestore keeps captured JPEGs and returns the reference stored
// on tracking records and observations.
package imagestore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store persists one image under key and returns its reference.
type Store interface {
	Put(ctx context.Context, key string, jpeg []byte) (string, error)
}

// NewKey builds a date-partitioned object key, e.g.
// "snapshots/2026/03/01/entry_<uuid>.jpg".
func NewKey(kind string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("snapshots/%04d/%02d/%02d/%s_%s.jpg", at.Year(), at.Month(), at.Day(), kind, uuid.New())
}

// Nop discards images and returns an empty reference.
type Nop struct{}

func (Nop) Put(context.Context, string, []byte) (string, error) { return "", nil }
