package types

import "time"

type CredentialStatus string

const (
	CredentialActive   CredentialStatus = "active"
	CredentialInactive CredentialStatus = "inactive"
)

// Credential is an RFID card and the holder it authorizes. Credentials are
// never removed; revocation flips Status to inactive.
type Credential struct {
	UID        string           `json:"uid"`
	HolderName string           `json:"name"`
	Department string           `json:"department"`
	Status     CredentialStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type AddCredentialRequest struct {
	UID        string `json:"uid" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Department string `json:"department,omitempty"`
}

type TestCredentialRequest struct {
	UID string `json:"uid" binding:"required"`
}

// CheckResult is the outcome of a credential lookup.
type CheckResult struct {
	UID        string `json:"uid"`
	Allowed    bool   `json:"allowed"`
	HolderName string `json:"name,omitempty"`
	Department string `json:"department,omitempty"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

// AccessLogEntry is one authorization check. The log is append-only.
type AccessLogEntry struct {
	ID        string            `json:"id"`
	UID       string            `json:"uid"`
	Allowed   bool              `json:"allowed"`
	Timestamp time.Time         `json:"timestamp"`
	Context   map[string]string `json:"context,omitempty"`
}

// Reader is an RFID reader that has delivered at least one scan.
type Reader struct {
	DeviceID string    `json:"device_id"`
	LastSeen time.Time `json:"last_seen"`
	Scans    int64     `json:"scans"`
}
