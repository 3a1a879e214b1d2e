package nwam

import (
	"context"
	"errors"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// Connection is one network interface (NCU) within a profile. The daemon
// models it as a link half and an interface half; both are folded into
// one Connection keyed by device name.
type Connection struct {
	base // link half

	device        string
	media         MediaType
	activation    ActivationMode
	priorityGroup int64
	priorityMode  PriorityMode
	enabled       bool
	ifState       daemon.State
	ifAux         daemon.AuxState
	selected      string
	lastScanSize  int
	requirement   WifiRequirement
	requiredESSID string
	wifi          *Store[*WifiNetwork]
}

// NewConnection returns a connection for device in profile.
func NewConnection(profile, device string) *Connection {
	return &Connection{
		base: newBase(daemon.Handle{
			Type:   daemon.ObjectNCU,
			Parent: profile,
			Name:   daemon.TypedName(daemon.NCULink, device),
		}),
		device: device,
		wifi:   NewStore[*WifiNetwork](nil),
	}
}

func (c *Connection) Key() string  { return c.device }
func (c *Connection) Name() string { return c.device }

// Device returns the device name.
func (c *Connection) Device() string { return c.device }

// Profile returns the owning profile name.
func (c *Connection) Profile() string { return c.handle.Parent }

// InterfaceHandle addresses the interface half.
func (c *Connection) InterfaceHandle() daemon.Handle {
	return daemon.Handle{
		Type:   daemon.ObjectNCU,
		Parent: c.handle.Parent,
		Name:   daemon.TypedName(daemon.NCUInterface, c.device),
	}
}

// LinkState is the cached state of the link half.
func (c *Connection) LinkState() (daemon.State, daemon.AuxState) {
	return c.State()
}

// InterfaceState is the cached state of the interface half.
func (c *Connection) InterfaceState() (daemon.State, daemon.AuxState) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ifState, c.ifAux
}

func (c *Connection) SetInterfaceState(st daemon.State, aux daemon.AuxState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ifState == st && c.ifAux == aux {
		return false
	}
	c.ifState, c.ifAux = st, aux
	return true
}

// SetHalfState caches state for the half named by t.
func (c *Connection) SetHalfState(t daemon.NCUType, st daemon.State, aux daemon.AuxState) bool {
	if t == daemon.NCUInterface {
		return c.SetInterfaceState(st, aux)
	}
	return c.SetState(st, aux)
}

// Active reports whether the interface is (online, up).
func (c *Connection) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ifState == daemon.StateOnline && c.ifAux == daemon.AuxUp
}

func (c *Connection) Media() MediaType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.media
}

func (c *Connection) SetMedia(m MediaType) {
	c.mu.Lock()
	c.media = m
	c.mu.Unlock()
}

func (c *Connection) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled records a local edit of the enabled flag.
func (c *Connection) SetEnabled(v bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == v {
		return false
	}
	c.enabled = v
	c.markEdited(daemon.PropEnabled)
	return true
}

func (c *Connection) ActivationMode() ActivationMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activation
}

func (c *Connection) SetActivationMode(m ActivationMode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activation == m {
		return false
	}
	c.activation = m
	c.markEdited(daemon.PropActivationMode)
	return true
}

func (c *Connection) PriorityGroup() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.priorityGroup
}

func (c *Connection) SetPriorityGroup(g int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.priorityGroup == g {
		return false
	}
	c.priorityGroup = g
	c.markEdited(daemon.PropPriorityGroup)
	return true
}

func (c *Connection) PriorityMode() PriorityMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.priorityMode
}

func (c *Connection) SetPriorityMode(m PriorityMode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.priorityMode == m {
		return false
	}
	c.priorityMode = m
	c.markEdited(daemon.PropPriorityMode)
	return true
}

// SelectedWifi returns the ESSID of the currently selected network.
func (c *Connection) SelectedWifi() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// SetSelectedWifi stores a weak reference to a cached network by ESSID.
func (c *Connection) SetSelectedWifi(essid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == essid {
		return false
	}
	c.selected = essid
	return true
}

// Wifi returns the per-connection scan cache, keyed by ESSID.
func (c *Connection) Wifi() *Store[*WifiNetwork] {
	return c.wifi
}

// SelectedNetwork resolves the selected ESSID against the scan cache.
func (c *Connection) SelectedNetwork() (*WifiNetwork, bool) {
	essid := c.SelectedWifi()
	if essid == "" {
		return nil, false
	}
	return c.wifi.Find(essid)
}

func (c *Connection) LastScanSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastScanSize
}

func (c *Connection) SetLastScanSize(n int) {
	c.mu.Lock()
	c.lastScanSize = n
	c.mu.Unlock()
}

// Requirement returns what the connection is waiting on and for which
// ESSID, if known.
func (c *Connection) Requirement() (WifiRequirement, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requirement, c.requiredESSID
}

// Require records a requirement and reports whether it is new. Repeating
// the current requirement is not new.
func (c *Connection) Require(r WifiRequirement, essid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r == c.requirement && (r == NeedNothing || essid == c.requiredESSID) {
		return false
	}
	c.requirement = r
	c.requiredESSID = essid
	return r != NeedNothing
}

func (c *Connection) encode() daemon.Properties {
	return daemon.Properties{
		daemon.PropEnabled:        daemon.BoolValue(c.enabled),
		daemon.PropActivationMode: daemon.Uint64Value(uint64(c.activation)),
		daemon.PropPriorityGroup:  daemon.Int64Value(c.priorityGroup),
		daemon.PropPriorityMode:   daemon.Uint64Value(uint64(c.priorityMode)),
	}
}

func (c *Connection) decode(props daemon.Properties, skip map[string]bool) []string {
	var changed []string

	if s, ok := readText(props, daemon.PropMedia); ok {
		if m := ParseMediaType(s); m != c.media {
			c.media = m
			changed = append(changed, daemon.PropMedia)
		}
	}
	if v, ok := readBool(props, daemon.PropEnabled); ok && !skip[daemon.PropEnabled] && v != c.enabled {
		c.enabled = v
		changed = append(changed, daemon.PropEnabled)
	}
	if v, ok := readUint(props, daemon.PropActivationMode); ok && !skip[daemon.PropActivationMode] {
		if m := ActivationMode(v); m != c.activation {
			c.activation = m
			changed = append(changed, daemon.PropActivationMode)
		}
	}
	if v, ok := readInt(props, daemon.PropPriorityGroup); ok && !skip[daemon.PropPriorityGroup] && v != c.priorityGroup {
		c.priorityGroup = v
		changed = append(changed, daemon.PropPriorityGroup)
	}
	if v, ok := readUint(props, daemon.PropPriorityMode); ok && !skip[daemon.PropPriorityMode] {
		if m := PriorityMode(v); m != c.priorityMode {
			c.priorityMode = m
			changed = append(changed, daemon.PropPriorityMode)
		}
	}
	return changed
}

func (c *Connection) Commit(ctx context.Context, cl daemon.Client) error {
	return commitObject(ctx, cl, c)
}

// Reload refreshes link properties and the state of both halves. A missing
// interface half is not an error.
func (c *Connection) Reload(ctx context.Context, cl daemon.Client) ([]string, error) {
	changed, err := reloadObject(ctx, cl, c)
	if err != nil {
		return nil, err
	}
	st, aux, err := cl.State(ctx, c.InterfaceHandle())
	switch {
	case err == nil:
		if c.SetInterfaceState(st, aux) {
			changed = append(changed, "state")
		}
	case errors.Is(err, common.ErrObjectNotFound):
	default:
		return changed, err
	}
	return changed, nil
}

// Destroy removes both halves from the daemon.
func (c *Connection) Destroy(ctx context.Context, cl daemon.Client) error {
	if err := destroyObject(ctx, cl, c); err != nil {
		return err
	}
	if err := cl.Destroy(ctx, c.InterfaceHandle()); err != nil && !errors.Is(err, common.ErrObjectNotFound) {
		return err
	}
	return nil
}

// Toggle enables or disables the connection on the daemon.
func (c *Connection) Toggle(ctx context.Context, cl daemon.Client, on bool) (bool, error) {
	return toggle(ctx, cl, &c.base, &c.enabled, on)
}
