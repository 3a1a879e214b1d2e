package proxy

import (
	"sync"

	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
)

// NotificationKind tags an outward notification.
type NotificationKind int

const (
	ObjectAdded NotificationKind = iota
	ObjectRemoved
	PropertyChanged
	StatusChanged
	WifiKeyNeeded
	WifiSelectionNeeded
	WifiScanStarted
	WifiScanResult
	FavoriteAdded
	FavoriteRemoved
	DaemonInfo
)

var notificationNames = map[NotificationKind]string{
	ObjectAdded:         "object-added",
	ObjectRemoved:       "object-removed",
	PropertyChanged:     "property-changed",
	StatusChanged:       "status-changed",
	WifiKeyNeeded:       "wifi-key-needed",
	WifiSelectionNeeded: "wifi-selection-needed",
	WifiScanStarted:     "wifi-scan-started",
	WifiScanResult:      "wifi-scan-result",
	FavoriteAdded:       "favorite-added",
	FavoriteRemoved:     "favorite-removed",
	DaemonInfo:          "daemon-info",
}

func (k NotificationKind) String() string {
	if n, ok := notificationNames[k]; ok {
		return n
	}
	return "unknown"
}

// Notification is delivered to subscribers after the change it describes
// is complete.
type Notification struct {
	Kind NotificationKind

	// Object is the subject of add, remove and property notifications.
	Object nwam.Object
	// Connection owns the network for WiFi notifications.
	Connection *nwam.Connection
	// Network is the WiFi network concerned. A WifiScanResult with a nil
	// Network marks the end of a scan.
	Network  *nwam.WifiNetwork
	Property string

	OldStatus  Status
	Status     Status
	OldReasons Reason
	Reasons    Reason

	// Event carries the daemon event behind a DaemonInfo notification.
	Event   daemon.EventType
	Message string
}

// Subscriber receives notifications. It runs on the dispatcher goroutine
// with no proxy lock held and may call back into the proxy.
type Subscriber func(Notification)

type subscription struct {
	id uint64
	fn Subscriber
}

// subscriberList is a copy-on-write callback list.
type subscriberList struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

func (l *subscriberList) add(fn Subscriber) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	next := make([]subscription, len(l.subs), len(l.subs)+1)
	copy(next, l.subs)
	l.subs = append(next, subscription{id: l.nextID, fn: fn})
	return l.nextID
}

func (l *subscriberList) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]subscription, 0, len(l.subs))
	for _, s := range l.subs {
		if s.id != id {
			next = append(next, s)
		}
	}
	l.subs = next
}

func (l *subscriberList) get() []subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.subs
}

// Subscribe registers fn for every notification. The returned function
// unsubscribes.
func (p *Proxy) Subscribe(fn Subscriber) func() {
	id := p.subs.add(fn)
	return func() { p.subs.remove(id) }
}

// emit buffers a notification. Caller holds p.mu.
func (p *Proxy) emit(n Notification) {
	p.pending = append(p.pending, n)
}

func (p *Proxy) deliver(notes []Notification) {
	if len(notes) == 0 {
		return
	}
	subs := p.subs.get()
	for _, n := range notes {
		for _, s := range subs {
			s.fn(n)
		}
	}
}

func (p *Proxy) emitChanged(o nwam.Object, props []string) {
	for _, prop := range props {
		p.emit(Notification{Kind: PropertyChanged, Object: o, Property: prop})
	}
}
