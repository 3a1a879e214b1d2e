package nwam

// MediaType is the physical kind of a connection.
type MediaType int

const (
	MediaWired MediaType = iota
	MediaWireless
	MediaTunnel
)

var mediaNames = []string{"wired", "wireless", "tunnel"}

func (m MediaType) String() string {
	if m < 0 || int(m) >= len(mediaNames) {
		return "unknown"
	}
	return mediaNames[m]
}

// ParseMediaType maps a daemon media name, defaulting to wired.
func ParseMediaType(s string) MediaType {
	for i, n := range mediaNames {
		if n == s {
			return MediaType(i)
		}
	}
	return MediaWired
}

// ActivationMode decides how the daemon brings an object up.
type ActivationMode uint64

const (
	ActivationManual ActivationMode = iota
	ActivationSystem
	ActivationPrioritized
	ActivationConditionalAny
	ActivationConditionalAll
)

func (a ActivationMode) String() string {
	switch a {
	case ActivationManual:
		return "manual"
	case ActivationSystem:
		return "system"
	case ActivationPrioritized:
		return "prioritized"
	case ActivationConditionalAny:
		return "conditional-any"
	case ActivationConditionalAll:
		return "conditional-all"
	default:
		return "unknown"
	}
}

// Conditional reports whether the mode is driven by conditions.
func (a ActivationMode) Conditional() bool {
	return a == ActivationConditionalAny || a == ActivationConditionalAll
}

// PriorityMode is how connections in one priority group share activation.
type PriorityMode uint64

const (
	PriorityExclusive PriorityMode = iota
	PriorityShared
	PriorityAll
)

func (p PriorityMode) String() string {
	switch p {
	case PriorityExclusive:
		return "exclusive"
	case PriorityShared:
		return "shared"
	case PriorityAll:
		return "all"
	default:
		return "unknown"
	}
}

// WifiStatus is the connection status of a wireless network.
type WifiStatus int

const (
	WifiDisconnected WifiStatus = iota
	WifiConnecting
	WifiConnected
	WifiFailed
)

func (s WifiStatus) String() string {
	switch s {
	case WifiConnecting:
		return "connecting"
	case WifiConnected:
		return "connected"
	case WifiFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// LifeState tracks a cached network across one scan merge pass.
type LifeState int

const (
	LifeNew LifeState = iota
	LifeModified
	LifeDead
)

func (l LifeState) String() string {
	switch l {
	case LifeNew:
		return "new"
	case LifeModified:
		return "modified"
	default:
		return "dead"
	}
}

// WifiRequirement is what a wireless connection is waiting on from the user.
type WifiRequirement int

const (
	NeedNothing WifiRequirement = iota
	NeedSelection
	NeedKey
)

func (r WifiRequirement) String() string {
	switch r {
	case NeedSelection:
		return "selection"
	case NeedKey:
		return "key"
	default:
		return "none"
	}
}
