package proxy

import (
	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
)

// enumerateAll brings every store into line with the daemon. Caller holds
// p.mu.
func (p *Proxy) enumerateAll() {
	p.reconcileProfiles()
	p.reconcileLocations()
	p.reconcileModifiers()
	p.reconcileFavorites()
}

func (p *Proxy) enumerate(t daemon.ObjectType, parent string) ([]daemon.Handle, bool) {
	ctx, cancel := p.callCtx()
	defer cancel()
	handles, err := p.client.Enumerate(ctx, t, parent)
	if err != nil {
		p.log.Warn("enumerate %s: %v", t, err)
		return nil, false
	}
	return handles, true
}

// reconcile makes store match handles. Existing objects are reloaded in
// place, new ones created and loaded, and objects the daemon no longer has
// removed. Handles sharing a key are applied once.
func reconcile[T nwam.Object](p *Proxy, store *nwam.Store[T], handles []daemon.Handle,
	keyOf func(daemon.Handle) (string, bool), create func(key string) T) {

	pending := make(map[string]bool, store.Len())
	for _, k := range store.Keys() {
		pending[k] = true
	}

	seen := make(map[string]bool, len(handles))
	for _, h := range handles {
		key, ok := keyOf(h)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		delete(pending, key)

		if existing, ok := store.Find(key); ok {
			p.reload(existing)
			continue
		}
		obj := create(key)
		if !p.reload(obj) {
			continue
		}
		store.Add(obj)
	}

	for _, k := range store.Keys() {
		if pending[k] {
			p.log.Debug("%s gone from daemon", k)
			store.Remove(k)
		}
	}
}

func byName(h daemon.Handle) (string, bool) {
	return h.Name, h.Name != ""
}

func (p *Proxy) reconcileProfiles() {
	handles, ok := p.enumerate(daemon.ObjectNCP, "")
	if !ok {
		return
	}
	reconcile(p, p.profiles, handles, byName, func(name string) *nwam.Profile {
		pr := nwam.NewProfile(name)
		p.watchConnections(pr)
		return pr
	})

	var active *nwam.Profile
	for _, pr := range p.profiles.List() {
		p.reconcileConnections(pr)
		if st, aux := pr.State(); active == nil && st == daemon.StateOnline && aux == daemon.AuxActive {
			active = pr
		}
	}
	if active == nil {
		if cur := p.ActiveProfile(); cur != nil {
			if _, ok := p.profiles.Find(cur.Name()); ok {
				active = cur
			}
		}
	}
	if active == nil {
		active, _ = p.profiles.Find(common.AutomaticProfile)
	}
	p.setActiveProfile(active)
}

// reconcileConnections folds the link and interface NCUs of pr into one
// Connection per device.
func (p *Proxy) reconcileConnections(pr *nwam.Profile) {
	handles, ok := p.enumerate(daemon.ObjectNCU, pr.Name())
	if !ok {
		return
	}
	reconcile(p, pr.Connections(), handles, func(h daemon.Handle) (string, bool) {
		_, device, err := daemon.ParseTypedName(h.Name)
		if err != nil {
			p.log.Warn("skipping ncu %q: %v", h.Name, err)
			return "", false
		}
		return device, true
	}, func(device string) *nwam.Connection {
		return nwam.NewConnection(pr.Name(), device)
	})
}

func (p *Proxy) reconcileLocations() {
	handles, ok := p.enumerate(daemon.ObjectLocation, "")
	if !ok {
		return
	}
	reconcile(p, p.locations, handles, byName, nwam.NewLocation)

	locs := p.locations.List()
	for _, l := range locs {
		if l.Active() {
			p.setActiveLocation(l)
			return
		}
	}
	if cur := p.ActiveLocation(); cur != nil {
		if _, ok := p.locations.Find(cur.Name()); ok {
			return
		}
	}
	if len(locs) > 0 {
		p.log.Debug("no active location reported, falling back to %s", locs[0].Name())
		p.setActiveLocation(locs[0])
		return
	}
	p.setActiveLocation(nil)
}

func (p *Proxy) reconcileModifiers() {
	handles, ok := p.enumerate(daemon.ObjectENM, "")
	if !ok {
		return
	}
	reconcile(p, p.modifiers, handles, byName, nwam.NewModifier)
}

func (p *Proxy) reconcileFavorites() {
	handles, ok := p.enumerate(daemon.ObjectKnownWLAN, "")
	if !ok {
		return
	}
	reconcile(p, p.favorites, handles, byName, nwam.NewWifiNetwork)
	p.sortFavorites()
}

func (p *Proxy) sortFavorites() {
	p.favorites.SortStable(nwam.ByPriority)
}
