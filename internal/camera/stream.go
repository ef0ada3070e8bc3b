package camera

import (
	"context"
	"errors"
	"time"
)

// StreamBackoff is how long Stream waits after a missing frame.
const StreamBackoff = 100 * time.Millisecond

// Stream calls emit with one plain JPEG frame after another until ctx ends
// or emit fails. Missing frames are retried after StreamBackoff; the device
// lock is never held while waiting.
func (m *Manager) Stream(ctx context.Context, emit func(jpeg []byte) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := m.GetFrame(ctx, false, false)
		if err != nil {
			if !errors.Is(err, ErrNoFrame) {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(StreamBackoff):
			}
			continue
		}

		if err := emit(f.JPEG); err != nil {
			return err
		}
	}
}
