package proxy

import (
	"context"
	"fmt"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
)

// User commands run under the same lock as event dispatch. A daemon
// failure restores the local state and is returned to the caller.

// ActivateProfile asks the daemon to switch to the named profile.
func (p *Proxy) ActivateProfile(ctx context.Context, name string) error {
	var err error
	p.serialize(func() {
		pr, ok := p.profiles.Find(name)
		if !ok {
			err = fmt.Errorf("%w: profile %q", common.ErrObjectNotFound, name)
			return
		}
		prev := p.ActiveProfile()
		p.setActiveProfile(pr)
		if err = p.client.Enable(ctx, pr.Handle()); err != nil {
			p.setActiveProfile(prev)
			err = common.WrapError(err, "activate profile "+name)
			return
		}
		p.reconcileConnections(pr)
	})
	return err
}

// toggler is an object whose enabled flag goes through the daemon.
type toggler interface {
	nwam.Object
	Toggle(ctx context.Context, c daemon.Client, on bool) (bool, error)
}

func (p *Proxy) toggle(ctx context.Context, o toggler, on bool) error {
	changed, err := o.Toggle(ctx, p.client, on)
	if err != nil {
		verb := "disable"
		if on {
			verb = "enable"
		}
		return common.WrapError(err, fmt.Sprintf("%s %s", verb, o.Name()))
	}
	if changed {
		p.emit(Notification{Kind: PropertyChanged, Object: o, Property: daemon.PropEnabled})
	}
	return nil
}

// SetConnectionEnabled enables or disables a connection of the active
// profile.
func (p *Proxy) SetConnectionEnabled(ctx context.Context, device string, on bool) error {
	var err error
	p.serialize(func() {
		c, ok := p.FindConnection(device)
		if !ok {
			err = fmt.Errorf("%w: connection %q", common.ErrObjectNotFound, device)
			return
		}
		err = p.toggle(ctx, c, on)
	})
	return err
}

// ActivateLocation enables a location. For manually activated locations
// the user's choice becomes the active location straight away.
func (p *Proxy) ActivateLocation(ctx context.Context, name string) error {
	var err error
	p.serialize(func() {
		l, ok := p.locations.Find(name)
		if !ok {
			err = fmt.Errorf("%w: location %q", common.ErrObjectNotFound, name)
			return
		}
		if err = p.toggle(ctx, l, true); err != nil {
			return
		}
		if l.ActivationMode() == nwam.ActivationManual {
			p.setActiveLocation(l)
		}
	})
	return err
}

// SetLocationEnabled enables or disables a location without choosing it.
func (p *Proxy) SetLocationEnabled(ctx context.Context, name string, on bool) error {
	var err error
	p.serialize(func() {
		l, ok := p.locations.Find(name)
		if !ok {
			err = fmt.Errorf("%w: location %q", common.ErrObjectNotFound, name)
			return
		}
		err = p.toggle(ctx, l, on)
	})
	return err
}

func (p *Proxy) SetModifierEnabled(ctx context.Context, name string, on bool) error {
	var err error
	p.serialize(func() {
		m, ok := p.modifiers.Find(name)
		if !ok {
			err = fmt.Errorf("%w: modifier %q", common.ErrObjectNotFound, name)
			return
		}
		err = p.toggle(ctx, m, on)
	})
	return err
}

func checkNewName(name string, exists bool) error {
	if !common.ValidObjectName(name) {
		return fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	}
	if exists {
		return fmt.Errorf("%w: %q", common.ErrDuplicateName, name)
	}
	return nil
}

// CreateLocation adds an in-memory location. It reaches the daemon on
// Commit.
func (p *Proxy) CreateLocation(name string) (*nwam.Location, error) {
	var l *nwam.Location
	var err error
	p.serialize(func() {
		_, exists := p.locations.Find(name)
		if err = checkNewName(name, exists); err != nil {
			return
		}
		if common.IsReservedLocation(name) {
			err = common.WrapError(common.ErrReservedObject, name)
			return
		}
		l = nwam.NewLocation(name)
		p.locations.Add(l)
	})
	return l, err
}

// CreateModifier adds an in-memory modifier. It reaches the daemon on
// Commit.
func (p *Proxy) CreateModifier(name, start, stop string) (*nwam.Modifier, error) {
	var m *nwam.Modifier
	var err error
	p.serialize(func() {
		_, exists := p.modifiers.Find(name)
		if err = checkNewName(name, exists); err != nil {
			return
		}
		m = nwam.NewModifier(name)
		m.SetCommands(start, stop)
		p.modifiers.Add(m)
	})
	return m, err
}

// Commit writes o to the daemon, creating it first if it only exists
// locally. On failure the last committed properties are restored.
func (p *Proxy) Commit(ctx context.Context, o nwam.Object) error {
	var err error
	p.serialize(func() {
		if !o.Committed() {
			h := o.Handle()
			if _, err = p.client.Create(ctx, h.Type, h.Parent, h.Name); err != nil {
				err = common.WrapError(err, "create "+h.String())
				return
			}
		}
		if err = o.Commit(ctx, p.client); err != nil {
			p.log.Warn("commit %s: %v", o.Handle(), err)
			p.emit(Notification{Kind: PropertyChanged, Object: o, Property: "*"})
			return
		}
		if w, ok := o.(*nwam.WifiNetwork); ok {
			if _, known := p.favorites.Find(w.ESSID()); known {
				p.sortFavorites()
			}
		}
	})
	return err
}

// Destroy removes o from the daemon and from its store.
func (p *Proxy) Destroy(ctx context.Context, o nwam.Object) error {
	var err error
	p.serialize(func() {
		if err = o.Destroy(ctx, p.client); err != nil {
			return
		}
		switch v := o.(type) {
		case *nwam.Profile:
			p.profiles.Remove(v.Name())
			if v == p.ActiveProfile() {
				p.setActiveProfile(nil)
			}
		case *nwam.Connection:
			if pr, ok := p.profiles.Find(v.Profile()); ok {
				pr.Connections().Remove(v.Device())
			}
		case *nwam.Location:
			p.locations.Remove(v.Name())
			if v == p.ActiveLocation() {
				p.setActiveLocation(nil)
			}
		case *nwam.Modifier:
			p.modifiers.Remove(v.Name())
		case *nwam.WifiNetwork:
			p.favorites.Remove(v.ESSID())
		}
	})
	return err
}

// SelectWifi asks the daemon to join essid on device.
func (p *Proxy) SelectWifi(ctx context.Context, device, essid string) error {
	var err error
	p.serialize(func() {
		c, ok := p.FindConnection(device)
		if !ok {
			err = fmt.Errorf("%w: connection %q", common.ErrObjectNotFound, device)
			return
		}
		bssid := ""
		if w, ok := c.Wifi().Find(essid); ok {
			bssid = w.BSSID()
		}
		if err = p.client.SelectWLAN(ctx, device, essid, bssid); err != nil {
			err = common.WrapError(err, "select "+essid)
			return
		}
		if c.SetSelectedWifi(essid) {
			p.emit(Notification{Kind: PropertyChanged, Object: c, Property: "wifi"})
		}
		if w, ok := c.Wifi().Find(essid); ok && w.SetStatus(nwam.WifiConnecting) {
			p.emit(Notification{Kind: PropertyChanged, Object: w, Property: nwam.WifiPropStatus})
		}
		c.Require(nwam.NeedNothing, "")
	})
	return err
}

// SupplyWifiKey hands a key to the daemon and, if configured, remembers it.
func (p *Proxy) SupplyWifiKey(ctx context.Context, device, essid, key string) error {
	var err error
	p.serialize(func() {
		c, ok := p.FindConnection(device)
		if !ok {
			err = fmt.Errorf("%w: connection %q", common.ErrObjectNotFound, device)
			return
		}
		bssid := ""
		if w, ok := c.Wifi().Find(essid); ok {
			bssid = w.BSSID()
		}
		if err = p.client.SetWLANKey(ctx, device, essid, bssid, key); err != nil {
			err = common.WrapError(err, "set key for "+essid)
			return
		}
		c.Require(nwam.NeedNothing, "")
		delete(p.autoSupplied, device)

		if p.opts.RememberKeys && p.keys != nil {
			if kerr := p.keys.Store(essid, key); kerr != nil {
				p.log.Warn("remembering key for %q: %v", essid, kerr)
			}
		}
	})
	return err
}

// Rescan asks the daemon to scan device again. Results arrive as events.
func (p *Proxy) Rescan(ctx context.Context, device string) error {
	var err error
	p.serialize(func() {
		c, ok := p.FindConnection(device)
		if !ok {
			err = fmt.Errorf("%w: connection %q", common.ErrObjectNotFound, device)
			return
		}
		if err = p.client.ScanWLANs(ctx, device); err != nil {
			err = common.WrapError(err, "scan "+device)
			return
		}
		p.emit(Notification{Kind: WifiScanStarted, Connection: c})
	})
	return err
}

// Refresh re-enumerates everything from the daemon.
func (p *Proxy) Refresh() {
	p.serialize(func() {
		if p.Connected() {
			p.enumerateAll()
		}
	})
}
