package daemon

import (
	"strings"
	"time"
)

// SecurityMode is the security scheme advertised by a wireless network.
type SecurityMode uint32

const (
	SecurityNone SecurityMode = iota
	SecurityWEP
	SecurityWPA
	SecurityUnknown
)

// String returns the security mode name.
func (m SecurityMode) String() string {
	switch m {
	case SecurityNone:
		return "none"
	case SecurityWEP:
		return "wep"
	case SecurityWPA:
		return "wpa"
	default:
		return "unknown"
	}
}

// NeedsKey reports whether connecting requires a key.
func (m SecurityMode) NeedsKey() bool {
	return m == SecurityWEP || m == SecurityWPA
}

// SignalStrength is a bucketed signal level. Larger is stronger.
type SignalStrength int

const (
	SignalNone SignalStrength = iota
	SignalVeryWeak
	SignalWeak
	SignalGood
	SignalVeryGood
	SignalExcellent
)

var signalNames = []string{"none", "very weak", "weak", "good", "very good", "excellent"}

// String returns the bucket name.
func (s SignalStrength) String() string {
	if s < SignalNone || int(s) >= len(signalNames) {
		return "none"
	}
	return signalNames[s]
}

// ParseSignalStrength maps a bucket name back to its level. Unknown names
// map to SignalNone.
func ParseSignalStrength(name string) SignalStrength {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range signalNames {
		if n == name {
			return SignalStrength(i)
		}
	}
	return SignalNone
}

// SignalFromPercent buckets a 0-100 signal quality.
func SignalFromPercent(p uint32) SignalStrength {
	switch {
	case p == 0:
		return SignalNone
	case p < 20:
		return SignalVeryWeak
	case p < 40:
		return SignalWeak
	case p < 60:
		return SignalGood
	case p < 80:
		return SignalVeryGood
	default:
		return SignalExcellent
	}
}

// WLAN is one wireless network as reported in a scan or connection report.
type WLAN struct {
	ESSID     string
	BSSID     string
	Security  SecurityMode
	Signal    SignalStrength
	Channel   uint32
	Selected  bool
	Connected bool
	HaveKey   bool
}

// Event is a single asynchronous notification from the daemon.
//
// Which fields are meaningful depends on Type. Object events carry
// ObjectType, Name and Parent; link and interface events carry Link;
// WLAN events carry Link and WLANs.
type Event struct {
	Type       EventType
	ObjectType ObjectType
	// Name of the object. NCUs use typed names ("link:net0").
	Name   string
	Parent string
	Action Action

	State    State
	AuxState AuxState

	PriorityGroup int64
	Message       string

	Link      string
	WLANs     []WLAN
	Connected bool

	Received time.Time
}

// Synthetic builds a listener-generated event.
func Synthetic(t EventType, msg string) *Event {
	return &Event{Type: t, Message: msg, Received: time.Now()}
}
