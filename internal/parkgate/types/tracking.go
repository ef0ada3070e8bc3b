package types

import "time"

type TrackingStatus string

const (
	StatusInside      TrackingStatus = "inside"
	StatusCompleted   TrackingStatus = "completed"
	StatusForceExit   TrackingStatus = "force_exit"
	StatusManualEntry TrackingStatus = "manual_entry"
)

type MatchStatus string

const (
	MatchNone          MatchStatus = ""
	MatchOK            MatchStatus = "match"
	MatchMismatch      MatchStatus = "mismatch"
	MatchAdminOverride MatchStatus = "admin_override"
)

// ForceExitPlate is recorded as the exit plate of an administrative exit.
const ForceExitPlate = "FORCE_EXIT"

// TrackingRecord is one parking session from entry to exit.
type TrackingRecord struct {
	ID            string         `json:"id"`
	UID           string         `json:"uid,omitempty"` // empty for manual entries
	EntryPlate    string         `json:"entry_plate"`
	EntryTime     time.Time      `json:"entry_time"`
	EntryImageRef string         `json:"entry_image_ref,omitempty"`
	Status        TrackingStatus `json:"status"`
	ExitTime      *time.Time     `json:"exit_time,omitempty"`
	ExitPlate     string         `json:"exit_plate,omitempty"`
	ExitImageRef  string         `json:"exit_image_ref,omitempty"`
	MatchStatus   MatchStatus    `json:"match_status,omitempty"`
	AdminReason   string         `json:"admin_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Reason codes carried by tracking results.
const (
	ReasonEntered       = "entered"
	ReasonAlreadyInside = "already_inside"
	ReasonExited        = "exited"
	ReasonNoEntryRecord = "no_entry_record"
	ReasonForceExited   = "force_exited"
	ReasonManualEntry   = "manual_entry"
)

type EntryResult struct {
	Success  bool   `json:"success"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	RecordID string `json:"record_id,omitempty"`

	// Set when Reason is already_inside.
	ExistingPlate     string     `json:"existing_plate,omitempty"`
	ExistingEntryTime *time.Time `json:"existing_entry_time,omitempty"`
}

type ExitResult struct {
	Success     bool        `json:"success"`
	Reason      string      `json:"reason"`
	Message     string      `json:"message"`
	RecordID    string      `json:"record_id,omitempty"`
	MatchStatus MatchStatus `json:"match_status,omitempty"`
	EntryPlate  string      `json:"entry_plate,omitempty"`
	ExitPlate   string      `json:"exit_plate,omitempty"`
}

type ForceExitRequest struct {
	UID    string `json:"uid" binding:"required"`
	Reason string `json:"reason"`
}

type ManualEntryRequest struct {
	LicensePlate string `json:"license_plate" binding:"required"`
}

// PlateObservation is a raw plate reading, independent of tracking.
type PlateObservation struct {
	ID        string    `json:"id"`
	PlateText string    `json:"license_plate"`
	Timestamp time.Time `json:"timestamp"`
	ImageRef  string    `json:"image_ref,omitempty"`
}

type SaveObservationRequest struct {
	LicensePlate string `json:"license_plate" binding:"required"`
}
