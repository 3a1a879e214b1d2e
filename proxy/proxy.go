package proxy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
)

// Options configures a Proxy.
type Options struct {
	Client daemon.Client
	Logger common.Logger
	// Keys stores WiFi keys. Nil disables key memory.
	Keys     common.CredentialStore
	Listener ListenerConfig

	CallTimeout time.Duration
	// RememberKeys stores keys passed to SupplyWifiKey.
	RememberKeys bool
	// AutoSupplyKeys answers key requests from Keys without a signal.
	AutoSupplyKeys bool
}

// Stats are diagnostic counters.
type Stats struct {
	EventsReceived   uint64
	EventsDispatched uint64
	EventsDropped    uint64
	Reconnects       uint64
	QueueDepth       int
}

// daemonLink is how the proxy last saw the daemon.
type daemonLink int

const (
	linkDown daemonLink = iota
	linkUp
	// linkShutdown follows a clean daemon shutdown; the next activation
	// is silent.
	linkShutdown
)

// Proxy mirrors daemon state into the object model. Events from the
// listener and user commands are applied one at a time under mu;
// notifications are delivered after mu is released.
type Proxy struct {
	client daemon.Client
	log    common.Logger
	keys   common.CredentialStore
	opts   Options

	// mu serializes every mutation of the model.
	mu      sync.Mutex
	pending []Notification
	// suppress skips daemon calls during a favorites import.
	suppress bool
	link     daemonLink
	// autoSupplied maps a device to the ESSID whose remembered key was
	// last handed to the daemon.
	autoSupplied map[string]string

	profiles  *nwam.Store[*nwam.Profile]
	locations *nwam.Store[*nwam.Location]
	modifiers *nwam.Store[*nwam.Modifier]
	favorites *nwam.Store[*nwam.WifiNetwork]

	// stateMu guards the fields queries read without mu.
	stateMu        sync.RWMutex
	connected      bool
	activeProfile  *nwam.Profile
	activeLocation *nwam.Location
	status         Status
	reasons        Reason

	queue    *eventQueue
	listener *Listener
	subs     subscriberList

	ctx          context.Context
	cancel       context.CancelFunc
	dispatchDone chan struct{}
	dispatched   atomic.Uint64
	dropped      atomic.Uint64
	closeOnce    sync.Once
}

// New builds a proxy around opts.Client. Call Start to begin listening.
func New(opts Options) *Proxy {
	if opts.Logger == nil {
		opts.Logger = common.DiscardLogger()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = common.CallTimeout
	}

	p := &Proxy{
		client:       opts.Client,
		log:          opts.Logger,
		keys:         opts.Keys,
		opts:         opts,
		queue:        newEventQueue(common.QueueCapacity),
		status:       StatusError,
		reasons:      ReasonDaemon,
		autoSupplied: map[string]string{},
		ctx:          context.Background(),
	}

	p.profiles = nwam.NewStore[*nwam.Profile](func(pr *nwam.Profile, added bool) {
		p.emitMembership(pr, added)
	})
	p.locations = nwam.NewStore[*nwam.Location](func(l *nwam.Location, added bool) {
		p.emitMembership(l, added)
	})
	p.modifiers = nwam.NewStore[*nwam.Modifier](func(m *nwam.Modifier, added bool) {
		p.emitMembership(m, added)
	})
	p.favorites = nwam.NewStore[*nwam.WifiNetwork](func(w *nwam.WifiNetwork, added bool) {
		kind := FavoriteAdded
		if !added {
			kind = FavoriteRemoved
		}
		p.emit(Notification{Kind: kind, Object: w, Network: w})
	})

	p.listener = newListener(opts.Client, p.queue, opts.Listener, p.taggedLog("listener"))
	return p
}

func (p *Proxy) taggedLog(tag string) common.Logger {
	if t, ok := p.log.(interface{ Tagged(string) common.Logger }); ok {
		return t.Tagged(tag)
	}
	return p.log
}

func (p *Proxy) emitMembership(o nwam.Object, added bool) {
	kind := ObjectAdded
	if !added {
		kind = ObjectRemoved
	}
	p.emit(Notification{Kind: kind, Object: o})
}

// watchConnections wires a profile's connection store to notifications.
func (p *Proxy) watchConnections(pr *nwam.Profile) {
	pr.Connections().SetOnChange(func(c *nwam.Connection, added bool) {
		p.emitMembership(c, added)
	})
}

// Start launches the listener and the dispatcher.
func (p *Proxy) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.dispatchDone = make(chan struct{})
	go p.dispatchLoop(p.ctx)
	p.listener.Start(p.ctx)
}

// Close stops the listener, drains queued events and waits for the
// dispatcher to finish.
func (p *Proxy) Close() error {
	p.closeOnce.Do(func() {
		p.listener.Stop()
		p.queue.Close()
		if p.dispatchDone != nil {
			<-p.dispatchDone
		}
		if p.cancel != nil {
			p.cancel()
		}
	})
	return nil
}

func (p *Proxy) dispatchLoop(ctx context.Context) {
	defer close(p.dispatchDone)
	for {
		env, err := p.queue.Pop(ctx)
		if err != nil {
			return
		}
		p.log.Debug("dispatch #%d %s (%s)", env.Seq, env.Event.Type, env.ID)
		p.HandleEvent(env.Event)
	}
}

// callCtx bounds one daemon round trip.
func (p *Proxy) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(p.ctx, p.opts.CallTimeout)
}

// serialize runs fn under the proxy lock, recomputes status and then
// delivers the notifications fn produced.
func (p *Proxy) serialize(fn func()) {
	p.mu.Lock()
	fn()
	p.recomputeStatus()
	notes := p.pending
	p.pending = nil
	p.mu.Unlock()

	p.deliver(notes)
}

// Stats returns diagnostic counters.
func (p *Proxy) Stats() Stats {
	return Stats{
		EventsReceived:   p.listener.events.Load(),
		EventsDispatched: p.dispatched.Load(),
		EventsDropped:    p.dropped.Load(),
		Reconnects:       p.listener.reconnects.Load(),
		QueueDepth:       p.queue.Len(),
	}
}

// Status returns the aggregate status and its reasons.
func (p *Proxy) Status() (Status, Reason) {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.status, p.reasons
}

// Connected reports whether the daemon is reachable.
func (p *Proxy) Connected() bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.connected
}

func (p *Proxy) ActiveProfile() *nwam.Profile {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.activeProfile
}

func (p *Proxy) ActiveLocation() *nwam.Location {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.activeLocation
}

// Profiles returns a snapshot of the profile list.
func (p *Proxy) Profiles() []*nwam.Profile { return p.profiles.List() }

func (p *Proxy) Locations() []*nwam.Location { return p.locations.List() }

func (p *Proxy) Modifiers() []*nwam.Modifier { return p.modifiers.List() }

// Favorites returns the favorites sorted by priority.
func (p *Proxy) Favorites() []*nwam.WifiNetwork { return p.favorites.List() }

func (p *Proxy) FindProfile(name string) (*nwam.Profile, bool) { return p.profiles.Find(name) }

func (p *Proxy) FindLocation(name string) (*nwam.Location, bool) { return p.locations.Find(name) }

func (p *Proxy) FindModifier(name string) (*nwam.Modifier, bool) { return p.modifiers.Find(name) }

func (p *Proxy) FindFavorite(essid string) (*nwam.WifiNetwork, bool) {
	return p.favorites.Find(essid)
}

// FindConnection looks a device up in the active profile.
func (p *Proxy) FindConnection(device string) (*nwam.Connection, bool) {
	pr := p.ActiveProfile()
	if pr == nil {
		return nil, false
	}
	return pr.FindConnection(device)
}

// FindObject resolves condition references by type and name.
func (p *Proxy) FindObject(t daemon.ObjectType, name string) (nwam.Object, bool) {
	switch t {
	case daemon.ObjectNCP:
		if o, ok := p.profiles.Find(name); ok {
			return o, true
		}
	case daemon.ObjectNCU:
		if o, ok := p.FindConnection(name); ok {
			return o, true
		}
	case daemon.ObjectLocation:
		if o, ok := p.locations.Find(name); ok {
			return o, true
		}
	case daemon.ObjectENM:
		if o, ok := p.modifiers.Find(name); ok {
			return o, true
		}
	case daemon.ObjectKnownWLAN:
		if o, ok := p.favorites.Find(name); ok {
			return o, true
		}
	}
	return nil, false
}

func (p *Proxy) setConnected(v bool) {
	p.stateMu.Lock()
	p.connected = v
	p.stateMu.Unlock()
}

// setActiveProfile swaps the active profile. Caller holds p.mu.
func (p *Proxy) setActiveProfile(pr *nwam.Profile) {
	p.stateMu.Lock()
	old := p.activeProfile
	p.activeProfile = pr
	p.stateMu.Unlock()

	if old == pr {
		return
	}
	if old != nil && old.SetActive(false) {
		p.emit(Notification{Kind: PropertyChanged, Object: old, Property: "active"})
	}
	if pr != nil && pr.SetActive(true) {
		p.emit(Notification{Kind: PropertyChanged, Object: pr, Property: "active"})
	}
}

// setActiveLocation swaps the active location. Caller holds p.mu.
func (p *Proxy) setActiveLocation(l *nwam.Location) {
	p.stateMu.Lock()
	old := p.activeLocation
	p.activeLocation = l
	p.stateMu.Unlock()

	if old != l && l != nil {
		p.log.Info("active location is now %s", l.Name())
		p.emit(Notification{Kind: PropertyChanged, Object: l, Property: "active"})
	}
}
