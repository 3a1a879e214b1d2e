package proxy

import (
	"context"
	"sync"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
)

type fakeObject struct {
	h     daemon.Handle
	props daemon.Properties
	st    daemon.State
	aux   daemon.AuxState
}

// fakeClient is an in-memory daemon.
type fakeClient struct {
	mu      sync.Mutex
	order   []string
	objects map[string]*fakeObject
	calls   []string

	online     bool
	connectErr error
	connected  bool
	events     chan *daemon.Event
	waitErrs   []error

	// maxConnects refuses connections after that many succeeded
	maxConnects int
	connects    int

	fail   map[string]error
	keys   map[string]string
	groups map[string]int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		objects: map[string]*fakeObject{},
		online:  true,
		events:  make(chan *daemon.Event, 64),
		fail:    map[string]error{},
		keys:    map[string]string{},
		groups:  map[string]int64{},
	}
}

func (f *fakeClient) record(call string) error {
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakeClient) put(h daemon.Handle, props daemon.Properties, st daemon.State, aux daemon.AuxState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := h.String()
	if _, ok := f.objects[key]; !ok {
		f.order = append(f.order, key)
	}
	if props == nil {
		props = daemon.Properties{}
	}
	f.objects[key] = &fakeObject{h: h, props: props, st: st, aux: aux}
}

func (f *fakeClient) drop(h daemon.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := h.String()
	delete(f.objects, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *fakeClient) setState(h daemon.Handle, st daemon.State, aux daemon.AuxState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.objects[h.String()]; ok {
		o.st, o.aux = st, aux
	}
}

func (f *fakeClient) setGroup(profile string, group int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[profile] = group
}

func (f *fakeClient) failOn(call string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, call)
		return
	}
	f.fail[call] = err
}

func (f *fakeClient) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeClient) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Fixtures.

func ncpHandle(name string) daemon.Handle {
	return daemon.Handle{Type: daemon.ObjectNCP, Name: name}
}

func ncuHandle(profile string, t daemon.NCUType, dev string) daemon.Handle {
	return daemon.Handle{Type: daemon.ObjectNCU, Parent: profile, Name: daemon.TypedName(t, dev)}
}

func locHandle(name string) daemon.Handle {
	return daemon.Handle{Type: daemon.ObjectLocation, Name: name}
}

func enmHandle(name string) daemon.Handle {
	return daemon.Handle{Type: daemon.ObjectENM, Name: name}
}

func wlanHandle(essid string) daemon.Handle {
	return daemon.Handle{Type: daemon.ObjectKnownWLAN, Name: essid}
}

func (f *fakeClient) addProfile(name string, active bool) {
	st, aux := daemon.StateOffline, daemon.AuxConditionsNotMet
	if active {
		st, aux = daemon.StateOnline, daemon.AuxActive
	}
	f.put(ncpHandle(name), nil, st, aux)
}

type ncuSpec struct {
	media    string
	mode     nwam.ActivationMode
	enabled  bool
	group    int64
	prioMode nwam.PriorityMode
	up       bool
}

func (f *fakeClient) addNCU(profile, dev string, s ncuSpec) {
	if s.media == "" {
		s.media = "wired"
	}
	props := daemon.Properties{
		daemon.PropMedia:          daemon.StringValue(s.media),
		daemon.PropEnabled:        daemon.BoolValue(s.enabled),
		daemon.PropActivationMode: daemon.Uint64Value(uint64(s.mode)),
		daemon.PropPriorityGroup:  daemon.Int64Value(s.group),
		daemon.PropPriorityMode:   daemon.Uint64Value(uint64(s.prioMode)),
	}
	st, aux := daemon.StateOffline, daemon.AuxDown
	if s.up {
		st, aux = daemon.StateOnline, daemon.AuxUp
	}
	f.put(ncuHandle(profile, daemon.NCULink, dev), props, st, aux)
	f.put(ncuHandle(profile, daemon.NCUInterface, dev), daemon.Properties{}, st, aux)
}

func (f *fakeClient) addLocation(name string, active bool) {
	st, aux := daemon.StateOffline, daemon.AuxConditionsNotMet
	if active {
		st, aux = daemon.StateOnline, daemon.AuxActive
	}
	f.put(locHandle(name), daemon.Properties{
		daemon.PropEnabled:        daemon.BoolValue(active),
		daemon.PropActivationMode: daemon.Uint64Value(uint64(nwam.ActivationManual)),
	}, st, aux)
}

func (f *fakeClient) addFavorite(essid string, prio uint64) {
	f.put(wlanHandle(essid), daemon.Properties{
		daemon.PropWLANPriority: daemon.Uint64Value(prio),
		daemon.PropWLANSecurity: daemon.Uint64Value(uint64(daemon.SecurityWPA)),
	}, daemon.StateUninitialized, daemon.AuxUninitialized)
}

// daemon.Client

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Connect")
	if f.connectErr != nil {
		return f.connectErr
	}
	if f.maxConnects > 0 && f.connects >= f.maxConnects {
		return common.ErrDaemonUnavailable
	}
	f.connects++
	f.connected = true
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeClient) ServiceOnline(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online, nil
}

func (f *fakeClient) WaitForEvent(ctx context.Context) (*daemon.Event, error) {
	f.mu.Lock()
	if len(f.waitErrs) > 0 {
		err := f.waitErrs[0]
		f.waitErrs = f.waitErrs[1:]
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	select {
	case ev := <-f.events:
		return ev, nil
	case <-ctx.Done():
		return nil, common.ErrCancelled
	}
}

func (f *fakeClient) Enumerate(_ context.Context, t daemon.ObjectType, parent string) ([]daemon.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Enumerate"); err != nil {
		return nil, err
	}
	var out []daemon.Handle
	for _, k := range f.order {
		o := f.objects[k]
		if o.h.Type == t && o.h.Parent == parent {
			out = append(out, o.h)
		}
	}
	return out, nil
}

func (f *fakeClient) ReadProperties(_ context.Context, h daemon.Handle) (daemon.Properties, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ReadProperties"); err != nil {
		return nil, err
	}
	o, ok := f.objects[h.String()]
	if !ok {
		return nil, common.ErrObjectNotFound
	}
	return o.props.Clone(), nil
}

func (f *fakeClient) ReadProperty(_ context.Context, h daemon.Handle, name string) (daemon.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[h.String()]
	if !ok {
		return daemon.Value{}, common.ErrObjectNotFound
	}
	v, ok := o.props[name]
	if !ok {
		return daemon.Value{}, common.ErrNoValue
	}
	return v, nil
}

func (f *fakeClient) State(_ context.Context, h daemon.Handle) (daemon.State, daemon.AuxState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[h.String()]
	if !ok {
		return daemon.StateUninitialized, daemon.AuxUninitialized, common.ErrObjectNotFound
	}
	return o.st, o.aux, nil
}

func (f *fakeClient) ActivePriorityGroup(_ context.Context, ncp string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[ncp]
	if !ok {
		return 0, common.ErrNoValue
	}
	return g, nil
}

func (f *fakeClient) Create(_ context.Context, t daemon.ObjectType, parent, name string) (daemon.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Create"); err != nil {
		return daemon.Handle{}, err
	}
	return daemon.Handle{Type: t, Parent: parent, Name: name}, nil
}

func (f *fakeClient) Commit(_ context.Context, h daemon.Handle, props daemon.Properties) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Commit"); err != nil {
		return err
	}
	key := h.String()
	o, ok := f.objects[key]
	if !ok {
		o = &fakeObject{h: h}
		f.objects[key] = o
		f.order = append(f.order, key)
	}
	o.props = props.Clone()
	return nil
}

func (f *fakeClient) Enable(_ context.Context, h daemon.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("Enable")
}

func (f *fakeClient) Disable(_ context.Context, h daemon.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("Disable")
}

func (f *fakeClient) Destroy(_ context.Context, h daemon.Handle) error {
	f.mu.Lock()
	if err := f.record("Destroy"); err != nil {
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()
	f.drop(h)
	return nil
}

func (f *fakeClient) ScanWLANs(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("ScanWLANs")
}

func (f *fakeClient) SelectWLAN(context.Context, string, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("SelectWLAN")
}

func (f *fakeClient) SetWLANKey(_ context.Context, link, essid, _ string, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetWLANKey"); err != nil {
		return err
	}
	f.keys[link+"/"+essid] = key
	return nil
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func record(p *Proxy) *recorder {
	r := &recorder{}
	p.Subscribe(func(n Notification) {
		r.mu.Lock()
		r.notes = append(r.notes, n)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.notes = nil
	r.mu.Unlock()
}

func (r *recorder) count(kind NotificationKind) int {
	n := 0
	for _, note := range r.all() {
		if note.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) kinds() []NotificationKind {
	var out []NotificationKind
	for _, note := range r.all() {
		out = append(out, note.Kind)
	}
	return out
}

// memKeys is an in-memory credential store.
type memKeys struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemKeys() *memKeys { return &memKeys{keys: map[string]string{}} }

func (m *memKeys) Store(essid, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[essid] = key
	return nil
}

func (m *memKeys) Get(essid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[essid]
	if !ok {
		return "", common.ErrCredentialsNotFound
	}
	return k, nil
}

func (m *memKeys) Delete(essid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, essid)
	return nil
}

// newTestProxy returns a proxy over f that has already seen the daemon
// come up.
func newTestProxy(f *fakeClient) (*Proxy, *recorder) {
	p := New(Options{Client: f})
	r := record(p)
	p.HandleEvent(daemon.Synthetic(daemon.EventDaemonActive, "up"))
	return p, r
}

// standardDaemon has an active Automatic profile, one wired and one
// wireless connection, and an active Home location.
func standardDaemon() *fakeClient {
	f := newFakeClient()
	f.addProfile("Automatic", true)
	f.addNCU("Automatic", "net0", ncuSpec{mode: nwam.ActivationPrioritized, group: 0, prioMode: nwam.PriorityExclusive, up: true})
	f.addNCU("Automatic", "wpi0", ncuSpec{media: "wireless", mode: nwam.ActivationPrioritized, group: 1, prioMode: nwam.PriorityExclusive})
	f.addLocation("Automatic", false)
	f.addLocation("Home", true)
	return f
}
