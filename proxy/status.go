package proxy

import (
	"strings"

	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
)

// Status is the aggregate network health.
type Status int

const (
	StatusAllOK Status = iota
	StatusNeedsAttention
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusAllOK:
		return "all ok"
	case StatusNeedsAttention:
		return "needs attention"
	default:
		return "error"
	}
}

// Reason is a bitmask explaining a non-OK status.
type Reason uint8

const (
	ReasonDaemon Reason = 1 << iota
	ReasonProfile
	ReasonLocation
	// ReasonModifier is tracked but modifiers are not scored.
	ReasonModifier
)

var reasonNames = []struct {
	bit  Reason
	name string
}{
	{ReasonDaemon, "daemon"},
	{ReasonProfile, "profile"},
	{ReasonLocation, "location"},
	{ReasonModifier, "modifier"},
}

func (r Reason) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for _, rn := range reasonNames {
		if r&rn.bit != 0 {
			parts = append(parts, rn.name)
		}
	}
	return strings.Join(parts, "|")
}

// StatusFor maps reason bits to a status. The daemon bit always wins.
func StatusFor(r Reason) Status {
	switch {
	case r == 0:
		return StatusAllOK
	case r&ReasonDaemon != 0:
		return StatusError
	default:
		return StatusNeedsAttention
	}
}

// wifiSignal is a selection or key request found while scoring a profile.
type wifiSignal struct {
	conn *nwam.Connection
	need nwam.WifiRequirement
}

// scoreProfile evaluates the activation rules of the active profile's
// connections. It returns whether the profile is satisfied plus any new
// WiFi requirements seen on the way.
func scoreProfile(p *nwam.Profile) (bool, []wifiSignal) {
	if p == nil {
		return false, nil
	}
	ok := true
	if st, aux := p.State(); st != daemon.StateUninitialized && !(st == daemon.StateOnline && aux == daemon.AuxActive) {
		ok = false
	}

	group := p.PriorityGroup()
	var manual, manualUp int
	type tally struct{ total, up int }
	groups := map[nwam.PriorityMode]*tally{}
	var signals []wifiSignal

	for _, c := range p.Connections().List() {
		up := c.Active()

		switch c.ActivationMode() {
		case nwam.ActivationManual:
			if c.Enabled() {
				manual++
				if up {
					manualUp++
				}
			}
		case nwam.ActivationPrioritized:
			if c.PriorityGroup() == group {
				t := groups[c.PriorityMode()]
				if t == nil {
					t = &tally{}
					groups[c.PriorityMode()] = t
				}
				t.total++
				if up {
					t.up++
				}
			}
		}

		if s, need := wifiNeed(c); need {
			signals = append(signals, s)
		}
	}

	if manual != manualUp {
		ok = false
	}
	for mode, t := range groups {
		switch mode {
		case nwam.PriorityExclusive, nwam.PriorityShared:
			if t.up == 0 {
				ok = false
			}
		case nwam.PriorityAll:
			if t.up != t.total {
				ok = false
			}
		}
	}
	return ok, signals
}

// wifiNeed maps the link aux state to a requirement and reports it only
// when the connection was not already waiting on the same thing.
func wifiNeed(c *nwam.Connection) (wifiSignal, bool) {
	_, aux := c.LinkState()
	want := nwam.NeedNothing
	switch aux {
	case daemon.AuxLinkWifiNeedSelection:
		want = nwam.NeedSelection
	case daemon.AuxLinkWifiNeedKey:
		want = nwam.NeedKey
	}

	current, _ := c.Requirement()
	if want == current {
		return wifiSignal{}, false
	}
	if want == nwam.NeedNothing {
		// a pending requirement clears once the link is up
		if aux == daemon.AuxUp {
			c.Require(nwam.NeedNothing, "")
		}
		return wifiSignal{}, false
	}
	if !c.Require(want, c.SelectedWifi()) {
		return wifiSignal{}, false
	}
	return wifiSignal{conn: c, need: want}, true
}

// locationOK reports whether the active location is usable.
func locationOK(l *nwam.Location) bool {
	return l != nil && l.Active() && !l.IsNoNet()
}

// recomputeStatus derives the reason bits and status, emits a transition
// if anything changed, then releases the queued WiFi signals. Caller
// holds p.mu.
func (p *Proxy) recomputeStatus() {
	// after a clean shutdown the last status holds until the daemon returns
	if p.link == linkShutdown {
		return
	}
	p.stateMu.RLock()
	connected := p.connected
	profile := p.activeProfile
	location := p.activeLocation
	oldStatus, oldReasons := p.status, p.reasons
	p.stateMu.RUnlock()

	var reasons Reason
	var signals []wifiSignal
	if !connected {
		reasons = ReasonDaemon
	} else {
		var ok bool
		ok, signals = scoreProfile(profile)
		if !ok {
			reasons |= ReasonProfile
		}
		if !locationOK(location) {
			reasons |= ReasonLocation
		}
	}
	status := StatusFor(reasons)

	if status != oldStatus || reasons != oldReasons {
		p.stateMu.Lock()
		p.status, p.reasons = status, reasons
		p.stateMu.Unlock()

		p.log.Info("status %s (%s) -> %s (%s)", oldStatus, oldReasons, status, reasons)
		p.emit(Notification{
			Kind:       StatusChanged,
			OldStatus:  oldStatus,
			Status:     status,
			OldReasons: oldReasons,
			Reasons:    reasons,
		})
	}

	for _, s := range signals {
		p.emitWifiNeed(s.conn, s.need)
	}
}

func (p *Proxy) emitWifiNeed(c *nwam.Connection, need nwam.WifiRequirement) {
	switch need {
	case nwam.NeedSelection:
		p.emit(Notification{Kind: WifiSelectionNeeded, Connection: c})
	case nwam.NeedKey:
		n, _ := c.SelectedNetwork()
		if _, essid := c.Requirement(); n == nil && essid != "" {
			n, _ = c.Wifi().Find(essid)
		}
		p.emit(Notification{Kind: WifiKeyNeeded, Connection: c, Network: n})
	}
}
