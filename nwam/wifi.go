package nwam

import (
	"context"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// Property names reported by WifiNetwork updates.
const (
	WifiPropSignal   = "signal"
	WifiPropSecurity = "security"
	WifiPropBSSID    = "bssid"
	WifiPropChannel  = "channel"
	WifiPropStatus   = "status"
	WifiPropHaveKey  = "have-key"
	WifiPropPriority = daemon.PropWLANPriority
)

// WifiNetwork is a wireless network, either seen in a scan or kept in the
// favorites list. Favorites are backed by daemon known-WLAN objects.
type WifiNetwork struct {
	base

	bssid    string
	bssids   []string
	security daemon.SecurityMode
	signal   daemon.SignalStrength
	channel  uint32
	status   WifiStatus
	haveKey  bool
	priority uint64
	life     LifeState
}

// NewWifiNetwork returns a network named essid.
func NewWifiNetwork(essid string) *WifiNetwork {
	return &WifiNetwork{
		base: newBase(daemon.Handle{Type: daemon.ObjectKnownWLAN, Name: essid}),
	}
}

// NewFavorite returns an uncommitted favorite with the given priority.
func NewFavorite(essid string, security daemon.SecurityMode, priority uint64) *WifiNetwork {
	w := NewWifiNetwork(essid)
	w.security = security
	w.priority = priority
	return w
}

// ESSID returns the network name.
func (w *WifiNetwork) ESSID() string { return w.handle.Name }

// Active reports whether the network is connected.
func (w *WifiNetwork) Active() bool {
	return w.Status() == WifiConnected
}

func (w *WifiNetwork) BSSID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.bssid
}

// BSSIDs returns the access points remembered for a favorite.
func (w *WifiNetwork) BSSIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.bssids...)
}

func (w *WifiNetwork) Security() daemon.SecurityMode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.security
}

func (w *WifiNetwork) Signal() daemon.SignalStrength {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.signal
}

func (w *WifiNetwork) Channel() uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.channel
}

func (w *WifiNetwork) HaveKey() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.haveKey
}

func (w *WifiNetwork) Status() WifiStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *WifiNetwork) SetStatus(s WifiStatus) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == s {
		return false
	}
	w.status = s
	return true
}

// Priority orders favorites; lower comes first.
func (w *WifiNetwork) Priority() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.priority
}

// SetPriority records a local edit of a favorite's priority.
func (w *WifiNetwork) SetPriority(p uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.priority == p {
		return false
	}
	w.priority = p
	w.markEdited(daemon.PropWLANPriority)
	return true
}

func (w *WifiNetwork) Life() LifeState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.life
}

func (w *WifiNetwork) SetLife(l LifeState) {
	w.mu.Lock()
	w.life = l
	w.mu.Unlock()
}

// ApplyScan copies every live field of a scan entry and returns the names
// of the fields that changed.
func (w *WifiNetwork) ApplyScan(s daemon.WLAN) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := w.applyLiveLocked(s)
	if s.BSSID != w.bssid {
		w.bssid = s.BSSID
		changed = append(changed, WifiPropBSSID)
	}
	if s.Channel != w.channel {
		w.channel = s.Channel
		changed = append(changed, WifiPropChannel)
	}
	if s.HaveKey != w.haveKey {
		w.haveKey = s.HaveKey
		changed = append(changed, WifiPropHaveKey)
	}
	return changed
}

// ApplyLive updates only signal and security. Favorites use it so scans
// never touch their priority.
func (w *WifiNetwork) ApplyLive(s daemon.WLAN) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applyLiveLocked(s)
}

func (w *WifiNetwork) applyLiveLocked(s daemon.WLAN) []string {
	var changed []string
	if s.Signal != w.signal {
		w.signal = s.Signal
		changed = append(changed, WifiPropSignal)
	}
	if s.Security != w.security {
		w.security = s.Security
		changed = append(changed, WifiPropSecurity)
	}
	return changed
}

func (w *WifiNetwork) encode() daemon.Properties {
	props := daemon.Properties{
		daemon.PropWLANPriority: daemon.Uint64Value(w.priority),
		daemon.PropWLANSecurity: daemon.Uint64Value(uint64(w.security)),
	}
	if len(w.bssids) > 0 {
		props[daemon.PropWLANBSSIDs] = daemon.StringValue(w.bssids...)
	}
	return props
}

func (w *WifiNetwork) decode(props daemon.Properties, skip map[string]bool) []string {
	var changed []string
	if v, ok := readUint(props, daemon.PropWLANPriority); ok && !skip[daemon.PropWLANPriority] && v != w.priority {
		w.priority = v
		changed = append(changed, WifiPropPriority)
	}
	if v, ok := readUint(props, daemon.PropWLANSecurity); ok {
		if m := daemon.SecurityMode(v); m != w.security {
			w.security = m
			changed = append(changed, WifiPropSecurity)
		}
	}
	if v, ok := readStrings(props, daemon.PropWLANBSSIDs); ok && !common.EqualStrings(v, w.bssids) {
		w.bssids = v
		changed = append(changed, daemon.PropWLANBSSIDs)
	}
	return changed
}

func (w *WifiNetwork) Commit(ctx context.Context, c daemon.Client) error {
	return commitObject(ctx, c, w)
}

// Reload refreshes a favorite's properties. Known WLANs have no state.
func (w *WifiNetwork) Reload(ctx context.Context, c daemon.Client) ([]string, error) {
	props, err := c.ReadProperties(ctx, w.handle)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := w.decode(props, w.edited)
	w.saved = props
	w.committed = true
	return changed, nil
}

func (w *WifiNetwork) Destroy(ctx context.Context, c daemon.Client) error {
	return destroyObject(ctx, c, w)
}

// ByPriority orders favorites by priority, then name.
func ByPriority(a, b *WifiNetwork) bool {
	pa, pb := a.Priority(), b.Priority()
	if pa != pb {
		return pa < pb
	}
	return a.ESSID() < b.ESSID()
}
