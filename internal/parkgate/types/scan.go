package types

import "time"

type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

// UnknownDevice is recorded when a scan does not name its reader.
const UnknownDevice = "UNKNOWN_DEVICE"

// ScanEvent is a decoded credential scan ready for the workflow.
type ScanEvent struct {
	UID        string
	DeviceID   string
	Direction  Direction
	Topic      string
	ReceivedAt time.Time
}

// ScanState is a step of the scan workflow.
type ScanState string

const (
	StateReceived         ScanState = "received"
	StateAuthorizing      ScanState = "authorizing"
	StateRejected         ScanState = "rejected"
	StateCapturing        ScanState = "capturing"
	StateExtractionFailed ScanState = "extraction_failed"
	StateExtracted        ScanState = "extracted"
	StatePersisted        ScanState = "persisted"
)

// ScanResult is published once per scan event.
type ScanResult struct {
	UID          string      `json:"uid"`
	DeviceID     string      `json:"device_id,omitempty"`
	Direction    Direction   `json:"direction"`
	Allowed      bool        `json:"allowed"`
	Success      bool        `json:"success"`
	State        ScanState   `json:"state"`
	Reason       string      `json:"reason"`
	HolderName   string      `json:"name,omitempty"`
	Department   string      `json:"department,omitempty"`
	LicensePlate string      `json:"license_plate,omitempty"`
	MatchStatus  MatchStatus `json:"match_status,omitempty"`
	EntryPlate   string      `json:"entry_plate,omitempty"`
	ImageRef     string      `json:"image_ref,omitempty"`
	Message      string      `json:"message"`
	Timestamp    string      `json:"timestamp"`
}

// Reason codes for workflow outcomes not covered by tracking reasons.
const (
	ReasonDenied           = "denied"
	ReasonExtractionFailed = "extraction_failed"
	ReasonCaptureFailed    = "capture_failed"
	ReasonStoreError       = "store_error"
)
