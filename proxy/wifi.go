package proxy

import (
	"sort"

	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
)

// wlanEvent routes scan, choice, key and connection reports to the owning
// connection of the active profile.
func (p *Proxy) wlanEvent(ev *daemon.Event) {
	pr := p.ActiveProfile()
	if pr == nil {
		p.dropEvent(ev, "no active profile")
		return
	}
	c, ok := pr.FindConnection(ev.Link)
	if !ok {
		p.dropEvent(ev, "unknown link "+ev.Link)
		return
	}

	switch ev.Type {
	case daemon.EventWLANScanReport:
		p.applyScan(c, ev.WLANs)

	case daemon.EventWLANNeedChoice:
		p.applyScan(c, ev.WLANs)
		if c.Require(nwam.NeedSelection, "") {
			p.emit(Notification{Kind: WifiSelectionNeeded, Connection: c})
		}

	case daemon.EventWLANNeedKey:
		essid := c.SelectedWifi()
		if len(ev.WLANs) > 0 && ev.WLANs[0].ESSID != "" {
			essid = ev.WLANs[0].ESSID
		}
		if !c.Require(nwam.NeedKey, essid) {
			// a remembered key that was rejected falls back to the user
			if prev, ok := p.autoSupplied[c.Device()]; ok && prev == essid {
				delete(p.autoSupplied, c.Device())
				p.emitWifiNeed(c, nwam.NeedKey)
			}
			return
		}
		if p.autoSupplyKey(c, essid, ev.WLANs) {
			p.autoSupplied[c.Device()] = essid
			return
		}
		p.emitWifiNeed(c, nwam.NeedKey)

	case daemon.EventWLANConnectionReport:
		p.connectionReport(c, ev)
	}
}

// applyScan merges one scan batch into the connection's cache. Entries
// missing from the batch are removed; entries seen for the first time are
// announced once the batch is applied.
func (p *Proxy) applyScan(c *nwam.Connection, batch []daemon.WLAN) {
	c.SetLastScanSize(len(batch))
	p.emit(Notification{Kind: WifiScanStarted, Connection: c})

	cache := c.Wifi()
	for _, w := range cache.List() {
		w.SetLife(nwam.LifeDead)
	}

	// weakest first so the strongest duplicate is applied last
	sorted := make([]daemon.WLAN, len(batch))
	copy(sorted, batch)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Signal < sorted[j].Signal
	})

	for _, s := range sorted {
		if s.ESSID == "" {
			continue
		}

		w, ok := cache.Find(s.ESSID)
		if !ok {
			w = nwam.NewWifiNetwork(s.ESSID)
			w.SetLife(nwam.LifeNew)
			w.ApplyScan(s)
			cache.Add(w)
		} else {
			if w.Life() == nwam.LifeDead {
				w.SetLife(nwam.LifeModified)
			}
			changed := w.ApplyScan(s)
			if w.Life() == nwam.LifeModified {
				p.emitChanged(w, changed)
			}
		}

		if fav, ok := p.favorites.Find(s.ESSID); ok {
			p.emitChanged(fav, fav.ApplyLive(s))
		}

		p.applyLinkFlags(c, w, s)
	}

	for _, w := range cache.List() {
		switch w.Life() {
		case nwam.LifeDead:
			cache.Remove(w.ESSID())
			if c.SelectedWifi() == w.ESSID() && c.SetSelectedWifi("") {
				p.emit(Notification{Kind: PropertyChanged, Object: c, Property: "wifi"})
			}
			p.emit(Notification{Kind: ObjectRemoved, Object: w, Connection: c, Network: w})
		case nwam.LifeNew:
			p.emit(Notification{Kind: ObjectAdded, Object: w, Connection: c, Network: w})
			p.emit(Notification{Kind: WifiScanResult, Connection: c, Network: w})
		}
	}
	p.emit(Notification{Kind: WifiScanResult, Connection: c})
}

// applyLinkFlags applies selection before connection status so a
// connected network always has an owning reference.
func (p *Proxy) applyLinkFlags(c *nwam.Connection, w *nwam.WifiNetwork, s daemon.WLAN) {
	if s.Selected && c.SetSelectedWifi(w.ESSID()) {
		p.emit(Notification{Kind: PropertyChanged, Object: c, Property: "wifi"})
	}
	if !s.Connected {
		return
	}
	if c.SelectedWifi() != w.ESSID() {
		p.log.Warn("%s reported connected to %q without selecting it, selecting", c.Device(), w.ESSID())
		c.SetSelectedWifi(w.ESSID())
		p.emit(Notification{Kind: PropertyChanged, Object: c, Property: "wifi"})
	}
	if w.SetStatus(nwam.WifiConnected) {
		p.emit(Notification{Kind: PropertyChanged, Object: w, Property: nwam.WifiPropStatus})
	}
}

func (p *Proxy) connectionReport(c *nwam.Connection, ev *daemon.Event) {
	if len(ev.WLANs) == 0 {
		return
	}
	s := ev.WLANs[0]
	w, ok := c.Wifi().Find(s.ESSID)
	if !ok {
		w = nwam.NewWifiNetwork(s.ESSID)
		w.ApplyScan(s)
		w.SetLife(nwam.LifeNew)
		c.Wifi().Add(w)
		p.emit(Notification{Kind: ObjectAdded, Object: w, Connection: c, Network: w})
	}

	if c.SetSelectedWifi(w.ESSID()) {
		p.emit(Notification{Kind: PropertyChanged, Object: c, Property: "wifi"})
	}
	status := nwam.WifiFailed
	if ev.Connected {
		status = nwam.WifiConnected
		c.Require(nwam.NeedNothing, "")
		delete(p.autoSupplied, c.Device())
	}
	if w.SetStatus(status) {
		p.emit(Notification{Kind: PropertyChanged, Object: w, Property: nwam.WifiPropStatus})
	}
}

// autoSupplyKey answers a key request from the keyring. It reports true if
// a remembered key was handed to the daemon.
func (p *Proxy) autoSupplyKey(c *nwam.Connection, essid string, wlans []daemon.WLAN) bool {
	if !p.opts.AutoSupplyKeys || p.keys == nil || essid == "" {
		return false
	}
	key, err := p.keys.Get(essid)
	if err != nil || key == "" {
		return false
	}

	bssid := ""
	if len(wlans) > 0 {
		bssid = wlans[0].BSSID
	}
	ctx, cancel := p.callCtx()
	defer cancel()
	if err := p.client.SetWLANKey(ctx, c.Device(), essid, bssid, key); err != nil {
		p.log.Warn("supplying remembered key for %q: %v", essid, err)
		return false
	}
	p.log.Info("supplied remembered key for %q on %s", essid, c.Device())
	return true
}
