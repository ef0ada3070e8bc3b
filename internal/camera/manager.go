package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
)

const (
	DefaultConfidence   = 0.5
	DefaultCropMargin   = 50
	DefaultFrameTimeout = 2 * time.Second
	defaultJPEGQuality  = 90
)

type Options struct {
	Factory      DeviceFactory
	Detector     Detector      // nil disables detection and OCR
	Recorder     PlateRecorder // target for auto-saved plate texts
	Confidence   float64       // detections must score strictly above this
	CropMargin   int
	FrameTimeout time.Duration // bounds read + detect + OCR per call
	AutoSave     bool
	Logger       logging.Logger
}

type Manager struct {
	// mu covers device access end to end: read, detect, OCR, encode.
	mu    sync.Mutex
	dev   Device
	index int

	open     atomic.Bool
	autoSave atomic.Bool

	factory      DeviceFactory
	detector     Detector
	recorder     PlateRecorder
	confidence   float64
	margin       int
	frameTimeout time.Duration
	logger       logging.Logger
}

func NewManager(opts Options) *Manager {
	if opts.Confidence <= 0 {
		opts.Confidence = DefaultConfidence
	}
	if opts.CropMargin <= 0 {
		opts.CropMargin = DefaultCropMargin
	}
	if opts.FrameTimeout <= 0 {
		opts.FrameTimeout = DefaultFrameTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	m := &Manager{
		index:        -1,
		factory:      opts.Factory,
		detector:     opts.Detector,
		recorder:     opts.Recorder,
		confidence:   opts.Confidence,
		margin:       opts.CropMargin,
		frameTimeout: opts.FrameTimeout,
		logger:       opts.Logger.With("component", "camera"),
	}
	m.autoSave.Store(opts.AutoSave)
	return m
}

// OpenCamera opens the device at index. It returns nil immediately when a
// device is already open.
func (m *Manager) OpenCamera(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev != nil {
		return nil
	}
	if m.factory == nil {
		return errors.New("camera: no device factory configured")
	}

	dev, err := m.factory(index)
	if err != nil {
		return fmt.Errorf("camera: build device %d: %w", index, err)
	}

	openCtx, cancel := context.WithTimeout(ctx, m.frameTimeout)
	defer cancel()
	if err := dev.Open(openCtx); err != nil {
		return fmt.Errorf("camera: open device %d: %w", index, err)
	}

	m.dev = dev
	m.index = index
	m.open.Store(true)
	m.logger.Info(ctx, "camera opened", "index", index)
	return nil
}

// Close releases the device. Snapshots never call it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev == nil {
		return nil
	}
	err := m.dev.Close()
	m.dev = nil
	m.open.Store(false)
	return err
}

func (m *Manager) IsOpen() bool { return m.open.Load() }

// Index is the open device index, or the last one opened.
func (m *Manager) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Manager) AutoSave() bool { return m.autoSave.Load() }

func (m *Manager) SetAutoSave(on bool) { m.autoSave.Store(on) }

func (m *Manager) HasDetector() bool { return m.detector != nil }

// GetFrame reads one frame and runs detection. With extractPlate it reads
// text from every region above the confidence threshold and, when auto-save
// is on, forwards each accepted text to the recorder. With cropToVehicle it
// returns a margin-expanded crop around the first accepted region instead of
// the full frame. A missing or failing device yields ErrNoFrame.
func (m *Manager) GetFrame(ctx context.Context, extractPlate, cropToVehicle bool) (Frame, error) {
	frame, err := m.capture(ctx, extractPlate, cropToVehicle)
	if err != nil {
		return Frame{}, err
	}

	if extractPlate && len(frame.Plates) > 0 && m.autoSave.Load() && m.recorder != nil {
		for _, text := range frame.Plates {
			if err := m.recorder.RecordPlate(ctx, text); err != nil {
				m.logger.Warn(ctx, "auto-save plate failed", "plate", text, "err", err)
			}
		}
	}
	return frame, nil
}

func (m *Manager) capture(ctx context.Context, extractPlate, cropToVehicle bool) (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev == nil {
		return Frame{}, ErrNotOpen
	}

	ctx, cancel := context.WithTimeout(ctx, m.frameTimeout)
	defer cancel()

	img, err := m.dev.ReadFrame(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	if img == nil {
		return Frame{}, ErrNoFrame
	}

	var out Frame
	canvas := toRGBA(img)
	var first *image.Rectangle

	if m.detector != nil {
		dets, err := m.detector.Detect(ctx, img)
		if err != nil {
			// A detector outage degrades to an unannotated frame.
			m.logger.Warn(ctx, "plate detection failed", "err", err)
		}

		for i := range dets {
			d := &dets[i]
			d.Box = d.Box.Canon().Intersect(canvas.Bounds())
			if d.Box.Empty() || d.Confidence <= m.confidence {
				continue
			}

			if extractPlate {
				text, err := m.detector.ReadText(ctx, subImage(img, d.Box))
				if err != nil {
					m.logger.Warn(ctx, "plate OCR failed", "err", err)
				}
				// Keep the detector's own reading when OCR has nothing better.
				if t := strings.TrimSpace(text); t != "" {
					d.Text = t
				} else {
					d.Text = strings.TrimSpace(d.Text)
				}
				if d.Text != "" {
					out.Plates = append(out.Plates, d.Text)
				}
			}

			drawBox(canvas, d.Box, boxColor, 2)
			if first == nil {
				b := d.Box
				first = &b
			}
		}
		out.Detections = dets
	}

	result := image.Image(canvas)
	if cropToVehicle && first != nil {
		result = subImage(canvas, expand(*first, m.margin, canvas.Bounds()))
		out.Cropped = true
	}

	jpg, err := encodeJPEG(result, defaultJPEGQuality)
	if err != nil {
		return Frame{}, fmt.Errorf("camera: encode frame: %w", err)
	}
	out.JPEG = jpg
	return out, nil
}
