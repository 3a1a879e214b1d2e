package proxy

import (
	"errors"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
)

// HandleEvent applies one daemon event to the model. Events must be
// handed over in arrival order; the dispatcher goroutine does this for
// events from the listener.
func (p *Proxy) HandleEvent(ev *daemon.Event) {
	p.serialize(func() {
		p.dispatched.Add(1)
		p.apply(ev)
	})
}

// apply routes an event. Caller holds p.mu.
func (p *Proxy) apply(ev *daemon.Event) {
	switch ev.Type {
	case daemon.EventNoop:
	case daemon.EventDaemonInactive:
		p.daemonDown(ev)
	case daemon.EventDaemonActive, daemon.EventInit:
		p.daemonUp(ev)
	case daemon.EventShutdown:
		p.link = linkShutdown
		p.setConnected(false)
	case daemon.EventObjectAction:
		p.objectAction(ev)
	case daemon.EventObjectState:
		p.objectState(ev)
	case daemon.EventPriorityGroup:
		if pr := p.ActiveProfile(); pr != nil && pr.SetPriorityGroup(ev.PriorityGroup) {
			p.emit(Notification{Kind: PropertyChanged, Object: pr, Property: daemon.PropPriorityGroup})
		}
	case daemon.EventInfo:
		p.emit(Notification{Kind: DaemonInfo, Event: ev.Type, Message: ev.Message})
	case daemon.EventWLANScanReport, daemon.EventWLANNeedChoice,
		daemon.EventWLANNeedKey, daemon.EventWLANConnectionReport:
		p.wlanEvent(ev)
	case daemon.EventLinkState, daemon.EventIfState:
		p.halfState(ev)
	case daemon.EventLinkAction, daemon.EventIfAction:
		p.halfAction(ev)
	default:
		p.log.Debug("forwarding unknown event %s", ev.Type)
		p.emit(Notification{Kind: DaemonInfo, Event: ev.Type, Message: ev.Message})
	}
}

func (p *Proxy) daemonDown(ev *daemon.Event) {
	if p.link == linkUp {
		p.emit(Notification{Kind: DaemonInfo, Event: ev.Type, Message: ev.Message})
	}
	p.link = linkDown
	p.setConnected(false)
}

func (p *Proxy) daemonUp(ev *daemon.Event) {
	quiet := p.link == linkShutdown
	p.link = linkUp
	p.setConnected(true)
	p.enumerateAll()
	if !quiet {
		p.emit(Notification{Kind: DaemonInfo, Event: ev.Type, Message: ev.Message})
	}
}

// dropEvent logs an event that cannot be applied. The next enumeration
// corrects any drift.
func (p *Proxy) dropEvent(ev *daemon.Event, why string) {
	p.dropped.Add(1)
	p.log.Warn("dropping %s %s %q: %s", ev.Type, ev.ObjectType, ev.Name, why)
}

func (p *Proxy) objectAction(ev *daemon.Event) {
	switch ev.ObjectType {
	case daemon.ObjectNCP:
		p.profileAction(ev)
	case daemon.ObjectNCU:
		p.connectionAction(ev)
	case daemon.ObjectLocation:
		p.locationAction(ev)
	case daemon.ObjectENM:
		p.modifierAction(ev)
	case daemon.ObjectKnownWLAN:
		p.favoriteAction(ev)
	default:
		p.dropEvent(ev, "unknown object type")
	}
}

func isRemoval(a daemon.Action) bool {
	return a == daemon.ActionRemove || a == daemon.ActionDestroy
}

// reload refreshes o and publishes changed properties. It reports false if
// the object is gone.
func (p *Proxy) reload(o nwam.Object) bool {
	ctx, cancel := p.callCtx()
	defer cancel()
	changed, err := o.Reload(ctx, p.client)
	if err != nil {
		p.log.Warn("reload %s: %v", o.Handle(), err)
		return !errors.Is(err, common.ErrObjectNotFound)
	}
	p.emitChanged(o, changed)
	return true
}

func (p *Proxy) profileAction(ev *daemon.Event) {
	if isRemoval(ev.Action) {
		if pr, ok := p.profiles.Remove(ev.Name); ok && pr == p.ActiveProfile() {
			p.setActiveProfile(nil)
		}
		return
	}

	pr, ok := p.profiles.Find(ev.Name)
	if !ok {
		if ev.Action != daemon.ActionAdd && ev.Action != daemon.ActionEnable {
			p.dropEvent(ev, "unknown profile")
			return
		}
		pr = p.addProfile(ev.Name)
		if pr == nil {
			return
		}
	} else {
		p.reload(pr)
	}

	if ev.Action == daemon.ActionEnable {
		p.setActiveProfile(pr)
		p.reconcileConnections(pr)
	}
}

// addProfile creates and loads a profile announced by the daemon.
func (p *Proxy) addProfile(name string) *nwam.Profile {
	pr := nwam.NewProfile(name)
	p.watchConnections(pr)
	if !p.reload(pr) {
		return nil
	}
	pr, _ = p.profiles.Upsert(pr)
	return pr
}

func (p *Proxy) connectionAction(ev *daemon.Event) {
	half, device, err := daemon.ParseTypedName(ev.Name)
	if err != nil {
		p.dropEvent(ev, err.Error())
		return
	}
	pr, ok := p.profiles.Find(ev.Parent)
	if !ok {
		p.dropEvent(ev, "unknown profile "+ev.Parent)
		return
	}

	if isRemoval(ev.Action) {
		if half == daemon.NCUInterface {
			if c, ok := pr.Connections().Find(device); ok && c.SetInterfaceState(daemon.StateUninitialized, daemon.AuxUninitialized) {
				p.emit(Notification{Kind: PropertyChanged, Object: c, Property: "state"})
			}
			return
		}
		pr.Connections().Remove(device)
		return
	}

	c, ok := pr.Connections().Find(device)
	if !ok {
		if ev.Action != daemon.ActionAdd {
			p.dropEvent(ev, "unknown connection")
			return
		}
		// link and interface ADDs for the same device fold into one
		fresh := nwam.NewConnection(pr.Name(), device)
		if !p.reload(fresh) {
			return
		}
		pr.Connections().Upsert(fresh)
		return
	}
	p.reload(c)
}

func (p *Proxy) locationAction(ev *daemon.Event) {
	if isRemoval(ev.Action) {
		if l, ok := p.locations.Remove(ev.Name); ok && l == p.ActiveLocation() {
			p.setActiveLocation(nil)
		}
		return
	}

	l, ok := p.locations.Find(ev.Name)
	if !ok {
		if ev.Action != daemon.ActionAdd {
			p.dropEvent(ev, "unknown location")
			return
		}
		l = nwam.NewLocation(ev.Name)
		if !p.reload(l) {
			return
		}
		l, _ = p.locations.Upsert(l)
	} else {
		p.reload(l)
	}
	if l.Active() {
		p.setActiveLocation(l)
	}
}

func (p *Proxy) modifierAction(ev *daemon.Event) {
	if isRemoval(ev.Action) {
		p.modifiers.Remove(ev.Name)
		return
	}

	m, ok := p.modifiers.Find(ev.Name)
	if !ok {
		if ev.Action != daemon.ActionAdd {
			p.dropEvent(ev, "unknown modifier")
			return
		}
		m = nwam.NewModifier(ev.Name)
		if !p.reload(m) {
			return
		}
		p.modifiers.Upsert(m)
		return
	}
	p.reload(m)
}

func (p *Proxy) favoriteAction(ev *daemon.Event) {
	if isRemoval(ev.Action) {
		p.favorites.Remove(ev.Name)
		return
	}

	w, ok := p.favorites.Find(ev.Name)
	if !ok {
		if ev.Action != daemon.ActionAdd {
			p.dropEvent(ev, "unknown favorite")
			return
		}
		w = nwam.NewWifiNetwork(ev.Name)
		if !p.reload(w) {
			return
		}
		p.favorites.Upsert(w)
	} else {
		p.reload(w)
	}
	p.sortFavorites()
}

func (p *Proxy) objectState(ev *daemon.Event) {
	switch ev.ObjectType {
	case daemon.ObjectNCP:
		pr, ok := p.profiles.Find(ev.Name)
		if !ok {
			p.dropEvent(ev, "unknown profile")
			return
		}
		p.setState(pr, ev)
		if ev.State == daemon.StateOnline && ev.AuxState == daemon.AuxActive && pr != p.ActiveProfile() {
			p.setActiveProfile(pr)
			p.reconcileConnections(pr)
		}

	case daemon.ObjectNCU:
		half, device, err := daemon.ParseTypedName(ev.Name)
		if err != nil {
			p.dropEvent(ev, err.Error())
			return
		}
		pr, ok := p.profiles.Find(ev.Parent)
		if !ok {
			p.dropEvent(ev, "unknown profile "+ev.Parent)
			return
		}
		c, ok := pr.Connections().Find(device)
		if !ok {
			p.dropEvent(ev, "unknown connection")
			return
		}
		if c.SetHalfState(half, ev.State, ev.AuxState) {
			p.emit(Notification{Kind: PropertyChanged, Object: c, Property: "state"})
		}

	case daemon.ObjectLocation:
		l, ok := p.locations.Find(ev.Name)
		if !ok {
			p.dropEvent(ev, "unknown location")
			return
		}
		p.setState(l, ev)
		if l.Active() {
			p.setActiveLocation(l)
		}

	case daemon.ObjectENM:
		m, ok := p.modifiers.Find(ev.Name)
		if !ok {
			p.dropEvent(ev, "unknown modifier")
			return
		}
		p.setState(m, ev)

	default:
		p.dropEvent(ev, "no state for object type")
	}
}

type stateSetter interface {
	nwam.Object
	SetState(daemon.State, daemon.AuxState) bool
}

func (p *Proxy) setState(o stateSetter, ev *daemon.Event) {
	if o.SetState(ev.State, ev.AuxState) {
		p.log.Debug("%s is %s (%s)", o.Handle(), ev.State, ev.AuxState)
		p.emit(Notification{Kind: PropertyChanged, Object: o, Property: "state"})
	}
}

// halfState applies link-state and if-state events, which name the device
// in Link rather than a typed name.
func (p *Proxy) halfState(ev *daemon.Event) {
	pr := p.ActiveProfile()
	if pr == nil {
		p.dropEvent(ev, "no active profile")
		return
	}
	device := ev.Link
	if device == "" {
		device = ev.Name
	}
	c, ok := pr.FindConnection(device)
	if !ok {
		p.dropEvent(ev, "unknown device "+device)
		return
	}
	half := daemon.NCULink
	if ev.Type == daemon.EventIfState {
		half = daemon.NCUInterface
	}
	if c.SetHalfState(half, ev.State, ev.AuxState) {
		p.emit(Notification{Kind: PropertyChanged, Object: c, Property: "state"})
	}
}

// halfAction reacts to devices appearing or vanishing by reconciling the
// active profile's connections.
func (p *Proxy) halfAction(ev *daemon.Event) {
	if pr := p.ActiveProfile(); pr != nil {
		p.reconcileConnections(pr)
	}
}
