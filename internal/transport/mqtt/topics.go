package mqtt

import (
	"strings"

	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

const DefaultTopicPrefix = "yolouno/rfid"

// Topics are the scan and response topics under one prefix. ScanLegacy and
// ResponseLegacy serve readers that predate the in/out split.
type Topics struct {
	ScanIn         string
	ScanOut        string
	ScanLegacy     string
	ResponseIn     string
	ResponseOut    string
	ResponseLegacy string
}

func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		ScanIn:         prefix + "/scan/in",
		ScanOut:        prefix + "/scan/out",
		ScanLegacy:     prefix + "/scan",
		ResponseIn:     prefix + "/response/in",
		ResponseOut:    prefix + "/response/out",
		ResponseLegacy: prefix + "/response",
	}
}

func (t Topics) Subscriptions() []string {
	return []string{t.ScanIn, t.ScanOut, t.ScanLegacy}
}

// DirectionFor maps a scan topic to its direction. The legacy topic is
// handled as entry.
func (t Topics) DirectionFor(topic string) (types.Direction, bool) {
	switch topic {
	case t.ScanIn, t.ScanLegacy:
		return types.DirectionEntry, true
	case t.ScanOut:
		return types.DirectionExit, true
	default:
		return "", false
	}
}

func (t Topics) ResponseFor(d types.Direction) string {
	if d == types.DirectionExit {
		return t.ResponseOut
	}
	return t.ResponseIn
}
