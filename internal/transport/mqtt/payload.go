package mqtt

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

// ScanPayload is a decoded scan message: either a BareUID or a Structured
// object. Readers send both forms.
type ScanPayload interface {
	uid() string
	deviceID() string
}

// BareUID is a payload that is just the card uid as text.
type BareUID string

func (b BareUID) uid() string    { return strings.TrimSpace(string(b)) }
func (BareUID) deviceID() string { return "" }

// Structured is the JSON form. Both device_id and deviceId are accepted.
type Structured struct {
	UID       string `json:"uid"`
	DeviceID  string `json:"device_id"`
	DeviceID2 string `json:"deviceId"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (s Structured) uid() string { return strings.TrimSpace(s.UID) }

func (s Structured) deviceID() string {
	if d := strings.TrimSpace(s.DeviceID); d != "" {
		return d
	}
	return strings.TrimSpace(s.DeviceID2)
}

// ParseScanPayload decodes raw message bytes. Anything that is not a JSON
// object or JSON string is taken as a bare uid. Numeric object fields are
// kept as their decimal text; other non-string values read as empty, so an
// object without a usable uid is dropped rather than treated as a uid.
func ParseScanPayload(raw []byte) ScanPayload {
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err == nil {
			return Structured{
				UID:       scalarText(obj["uid"]),
				DeviceID:  scalarText(obj["device_id"]),
				DeviceID2: scalarText(obj["deviceId"]),
				Timestamp: scalarText(obj["timestamp"]),
			}
		}
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err == nil {
			return BareUID(str)
		}
	}
	return BareUID(trimmed)
}

func scalarText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

// ToEvent converts p into a workflow event. ok is false when the payload
// carries no uid; such messages are dropped.
func ToEvent(p ScanPayload, topic string, dir types.Direction, at time.Time) (types.ScanEvent, bool) {
	uid := p.uid()
	if uid == "" {
		return types.ScanEvent{}, false
	}
	dev := p.deviceID()
	if dev == "" {
		dev = types.UnknownDevice
	}
	return types.ScanEvent{
		UID:        uid,
		DeviceID:   dev,
		Direction:  dir,
		Topic:      topic,
		ReceivedAt: at,
	}, true
}
