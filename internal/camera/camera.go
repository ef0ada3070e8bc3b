// Package camera owns the single physical camera. A Manager serializes every
// device read together with plate detection, OCR and JPEG encoding, so live
// streaming and on-demand snapshots share one device handle safely.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
)

var (
	// ErrNoFrame means the device produced nothing this call. Streams treat
	// it as "try again"; snapshots treat it as a failed request.
	ErrNoFrame = errors.New("camera: no frame available")

	// ErrNotOpen is an ErrNoFrame raised before the device was opened.
	ErrNotOpen = fmt.Errorf("%w: camera not open", ErrNoFrame)
)

// Device is a physical or simulated frame source. Implementations need not
// be safe for concurrent use; the Manager never calls them concurrently.
type Device interface {
	Open(ctx context.Context) error
	ReadFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// DeviceFactory builds the device for a camera index.
type DeviceFactory func(index int) (Device, error)

// Detection is one candidate plate region.
type Detection struct {
	Box        image.Rectangle `json:"box"`
	Confidence float64         `json:"confidence"`
	Text       string          `json:"text,omitempty"`
}

// Detector finds plate regions in a frame and reads text from a region.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]Detection, error)
	ReadText(ctx context.Context, region image.Image) (string, error)
}

// PlateRecorder receives accepted plate texts when auto-save is on.
type PlateRecorder interface {
	RecordPlate(ctx context.Context, text string) error
}

// Frame is the result of one Manager.GetFrame call.
type Frame struct {
	JPEG       []byte
	Detections []Detection // every detection, accepted or not
	Plates     []string    // accepted, non-empty texts in detection order
	Cropped    bool
}
