package daemon

import (
	"context"
	"fmt"
	"strings"

	"github.com/yllada/nwam-agent/common"
)

// NCUType distinguishes the link and interface halves of a connection.
type NCUType int

const (
	NCULink NCUType = iota
	NCUInterface
)

func (t NCUType) String() string {
	if t == NCUInterface {
		return "interface"
	}
	return "link"
}

// TypedName returns the daemon name of one half of a connection.
func TypedName(t NCUType, device string) string {
	return t.String() + ":" + device
}

// ParseTypedName splits a typed NCU name into its half and device name.
func ParseTypedName(name string) (NCUType, string, error) {
	prefix, device, ok := strings.Cut(name, ":")
	if !ok || device == "" {
		return NCULink, "", fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	}
	switch prefix {
	case "link":
		return NCULink, device, nil
	case "interface":
		return NCUInterface, device, nil
	}
	return NCULink, "", fmt.Errorf("%w: unknown ncu type in %q", common.ErrInvalidName, name)
}

// Handle identifies a daemon object.
type Handle struct {
	Type ObjectType
	// Parent is the owning profile for NCUs and empty otherwise.
	Parent string
	// Name of the object. NCUs use typed names.
	Name string
}

func (h Handle) String() string {
	if h.Parent != "" {
		return fmt.Sprintf("%s:%s/%s", h.Type, h.Parent, h.Name)
	}
	return fmt.Sprintf("%s:%s", h.Type, h.Name)
}

// Property names shared with the daemon.
const (
	PropEnabled        = "enabled"
	PropActivationMode = "activation-mode"
	PropConditions     = "conditions"

	PropNCUType       = "type"
	PropNCUClass      = "class"
	PropMedia         = "media"
	PropPriorityGroup = "priority-group"
	PropPriorityMode  = "priority-mode"
	PropIPVersion     = "ip-version"
	PropIPv4AddrSrc   = "ipv4-addrsrc"
	PropIPv6AddrSrc   = "ipv6-addrsrc"

	PropENMFmri  = "fmri"
	PropENMStart = "start"
	PropENMStop  = "stop"

	PropWLANPriority = "priority"
	PropWLANBSSIDs   = "bssids"
	PropWLANKeyName  = "keyname"
	PropWLANKeySlot  = "keyslot"
	PropWLANSecurity = "security-mode"
)

// Client is the daemon RPC surface used by the agent.
//
// Reads return common.ErrNoValue when a property is unset and
// common.ErrObjectNotFound when the object is gone. All calls honour
// ctx cancellation.
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	ServiceOnline(ctx context.Context) (bool, error)
	// WaitForEvent blocks until the next daemon event arrives or the
	// connection fails.
	WaitForEvent(ctx context.Context) (*Event, error)

	Enumerate(ctx context.Context, t ObjectType, parent string) ([]Handle, error)
	ReadProperties(ctx context.Context, h Handle) (Properties, error)
	ReadProperty(ctx context.Context, h Handle, name string) (Value, error)
	State(ctx context.Context, h Handle) (State, AuxState, error)
	// ActivePriorityGroup returns the priority group the daemon is
	// activating in ncp, or common.ErrNoValue when none is.
	ActivePriorityGroup(ctx context.Context, ncp string) (int64, error)

	Create(ctx context.Context, t ObjectType, parent, name string) (Handle, error)
	Commit(ctx context.Context, h Handle, props Properties) error
	Enable(ctx context.Context, h Handle) error
	Disable(ctx context.Context, h Handle) error
	Destroy(ctx context.Context, h Handle) error

	ScanWLANs(ctx context.Context, link string) error
	SelectWLAN(ctx context.Context, link, essid, bssid string) error
	SetWLANKey(ctx context.Context, link, essid, bssid, key string) error
}
