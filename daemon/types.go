package daemon

import "fmt"

// ObjectType identifies the kind of a daemon object.
type ObjectType uint32

const (
	ObjectUnknown ObjectType = iota
	ObjectNCP
	ObjectNCU
	ObjectLocation
	ObjectENM
	ObjectKnownWLAN
)

// String returns the daemon's name for the object type.
func (t ObjectType) String() string {
	switch t {
	case ObjectNCP:
		return "ncp"
	case ObjectNCU:
		return "ncu"
	case ObjectLocation:
		return "loc"
	case ObjectENM:
		return "enm"
	case ObjectKnownWLAN:
		return "known-wlan"
	default:
		return "unknown"
	}
}

// State is the primary daemon-reported object state.
type State uint32

const (
	StateUninitialized State = iota
	StateInitialized
	StateOffline
	StateOfflineToOnline
	StateOnlineToOffline
	StateOnline
	StateMaintenance
	StateDegraded
	StateDisabled
)

var stateNames = map[State]string{
	StateUninitialized:   "uninitialized",
	StateInitialized:     "initialized",
	StateOffline:         "offline",
	StateOfflineToOnline: "offline*",
	StateOnlineToOffline: "online*",
	StateOnline:          "online",
	StateMaintenance:     "maintenance",
	StateDegraded:        "degraded",
	StateDisabled:        "disabled",
}

// String returns the daemon's short name for the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// AuxState refines State, e.g. "up" or "needs WiFi key".
type AuxState uint32

const (
	AuxUninitialized AuxState = iota
	AuxInitialized
	AuxConditionsNotMet
	AuxManualDisable
	AuxMethodFailed
	AuxMethodMissing
	AuxMethodRunning
	AuxInvalidConfig
	AuxActive
	AuxLinkWifiScanning
	AuxLinkWifiNeedSelection
	AuxLinkWifiNeedKey
	AuxLinkWifiConnecting
	AuxIfWaitingForAddr
	AuxIfDHCPTimedOut
	AuxIfDuplicateAddr
	AuxUp
	AuxDown
	AuxNotFound
)

var auxNames = map[AuxState]string{
	AuxUninitialized:         "uninitialized",
	AuxInitialized:           "initialized",
	AuxConditionsNotMet:      "conditions for activation are unmet",
	AuxManualDisable:         "disabled by administrator",
	AuxMethodFailed:          "method/service failed",
	AuxMethodMissing:         "method or FMRI not specified",
	AuxMethodRunning:         "method/service executing",
	AuxInvalidConfig:         "invalid configuration values",
	AuxActive:                "active",
	AuxLinkWifiScanning:      "scanning for WiFi networks",
	AuxLinkWifiNeedSelection: "need WiFi network selection",
	AuxLinkWifiNeedKey:       "need WiFi security key",
	AuxLinkWifiConnecting:    "connecting to WiFi network",
	AuxIfWaitingForAddr:      "waiting for IP address to be set",
	AuxIfDHCPTimedOut:        "DHCP wait timeout, still trying...",
	AuxIfDuplicateAddr:       "duplicate address detected",
	AuxUp:                    "interface/link is up",
	AuxDown:                  "interface/link is down",
	AuxNotFound:              "interface/link not found",
}

// String returns the daemon's description of the aux state.
func (a AuxState) String() string {
	if name, ok := auxNames[a]; ok {
		return name
	}
	return fmt.Sprintf("aux(%d)", uint32(a))
}

var auxShortNames = map[AuxState]string{
	AuxUninitialized:         "uninitialized",
	AuxInitialized:           "initialized",
	AuxConditionsNotMet:      "conditions-not-met",
	AuxManualDisable:         "manual-disable",
	AuxMethodFailed:          "method-failed",
	AuxMethodMissing:         "method-missing",
	AuxMethodRunning:         "method-running",
	AuxInvalidConfig:         "invalid-config",
	AuxActive:                "active",
	AuxLinkWifiScanning:      "link-wifi-scanning",
	AuxLinkWifiNeedSelection: "link-wifi-need-selection",
	AuxLinkWifiNeedKey:       "link-wifi-need-key",
	AuxLinkWifiConnecting:    "link-wifi-connecting",
	AuxIfWaitingForAddr:      "if-waiting-for-addr",
	AuxIfDHCPTimedOut:        "if-dhcp-timed-out",
	AuxIfDuplicateAddr:       "if-duplicate-addr",
	AuxUp:                    "up",
	AuxDown:                  "down",
	AuxNotFound:              "not-found",
}

// Name returns the short token for the aux state, suited to tables.
func (a AuxState) Name() string {
	if name, ok := auxShortNames[a]; ok {
		return name
	}
	return fmt.Sprintf("aux(%d)", uint32(a))
}

// Action is the verb of an object-action event.
type Action uint32

const (
	ActionUnknown Action = iota
	ActionAdd
	ActionRemove
	ActionRefresh
	ActionEnable
	ActionDisable
	ActionDestroy
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	case ActionRefresh:
		return "refresh"
	case ActionEnable:
		return "enable"
	case ActionDisable:
		return "disable"
	case ActionDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// EventType tags a daemon event.
type EventType uint32

const (
	EventNoop EventType = iota
	EventInit
	EventShutdown
	EventObjectAction
	EventObjectState
	EventPriorityGroup
	EventInfo
	EventWLANScanReport
	EventWLANNeedChoice
	EventWLANNeedKey
	EventWLANConnectionReport
	EventIfAction
	EventIfState
	EventLinkAction
	EventLinkState
)

// Synthetic event types produced by the agent's listener, never by the daemon.
const (
	EventDaemonActive EventType = 0x1000 + iota
	EventDaemonInactive
)

var eventNames = map[EventType]string{
	EventNoop:                 "noop",
	EventInit:                 "init",
	EventShutdown:             "shutdown",
	EventObjectAction:         "object-action",
	EventObjectState:          "object-state",
	EventPriorityGroup:        "priority-group",
	EventInfo:                 "info",
	EventWLANScanReport:       "wlan-scan-report",
	EventWLANNeedChoice:       "wlan-need-choice",
	EventWLANNeedKey:          "wlan-need-key",
	EventWLANConnectionReport: "wlan-connection-report",
	EventIfAction:             "if-action",
	EventIfState:              "if-state",
	EventLinkAction:           "link-action",
	EventLinkState:            "link-state",
	EventDaemonActive:         "daemon-active",
	EventDaemonInactive:       "daemon-inactive",
}

// String returns the event type name.
func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", uint32(t))
}

// Known reports whether the agent understands events of this type.
func (t EventType) Known() bool {
	_, ok := eventNames[t]
	return ok
}
