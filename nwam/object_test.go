package nwam

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// stubClient serves properties and states from maps.
type stubClient struct {
	props     map[string]daemon.Properties
	states    map[string][2]uint32
	groups    map[string]int64
	commitErr error
	toggleErr error
	committed map[string]daemon.Properties
	destroyed []string
}

func newStubClient() *stubClient {
	return &stubClient{
		props:     map[string]daemon.Properties{},
		states:    map[string][2]uint32{},
		groups:    map[string]int64{},
		committed: map[string]daemon.Properties{},
	}
}

func (s *stubClient) Connect(context.Context) error               { return nil }
func (s *stubClient) Close() error                                { return nil }
func (s *stubClient) ServiceOnline(context.Context) (bool, error) { return true, nil }
func (s *stubClient) WaitForEvent(context.Context) (*daemon.Event, error) {
	return nil, common.ErrCancelled
}
func (s *stubClient) Enumerate(context.Context, daemon.ObjectType, string) ([]daemon.Handle, error) {
	return nil, nil
}

func (s *stubClient) ReadProperties(_ context.Context, h daemon.Handle) (daemon.Properties, error) {
	p, ok := s.props[h.String()]
	if !ok {
		return nil, common.ErrObjectNotFound
	}
	return p.Clone(), nil
}

func (s *stubClient) ReadProperty(_ context.Context, h daemon.Handle, name string) (daemon.Value, error) {
	v, ok := s.props[h.String()][name]
	if !ok {
		return daemon.Value{}, common.ErrNoValue
	}
	return v, nil
}

func (s *stubClient) State(_ context.Context, h daemon.Handle) (daemon.State, daemon.AuxState, error) {
	st, ok := s.states[h.String()]
	if !ok {
		return 0, 0, common.ErrObjectNotFound
	}
	return daemon.State(st[0]), daemon.AuxState(st[1]), nil
}

func (s *stubClient) ActivePriorityGroup(_ context.Context, ncp string) (int64, error) {
	g, ok := s.groups[ncp]
	if !ok {
		return 0, common.ErrNoValue
	}
	return g, nil
}

func (s *stubClient) Create(_ context.Context, t daemon.ObjectType, parent, name string) (daemon.Handle, error) {
	return daemon.Handle{Type: t, Parent: parent, Name: name}, nil
}

func (s *stubClient) Commit(_ context.Context, h daemon.Handle, props daemon.Properties) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.committed[h.String()] = props
	s.props[h.String()] = props
	return nil
}

func (s *stubClient) Enable(context.Context, daemon.Handle) error  { return s.toggleErr }
func (s *stubClient) Disable(context.Context, daemon.Handle) error { return s.toggleErr }

func (s *stubClient) Destroy(_ context.Context, h daemon.Handle) error {
	s.destroyed = append(s.destroyed, h.String())
	return nil
}

func (s *stubClient) ScanWLANs(context.Context, string) error                  { return nil }
func (s *stubClient) SelectWLAN(context.Context, string, string, string) error { return nil }
func (s *stubClient) SetWLANKey(context.Context, string, string, string, string) error {
	return nil
}

func TestLocation_ReloadKeepsLocalEdits(t *testing.T) {
	ctx := context.Background()
	c := newStubClient()
	loc := NewLocation("Home")
	h := loc.Handle().String()

	c.props[h] = daemon.Properties{
		daemon.PropEnabled:        daemon.BoolValue(false),
		daemon.PropActivationMode: daemon.Uint64Value(uint64(ActivationConditionalAny)),
		daemon.PropConditions:     daemon.StringValue("essid is home", "garbage"),
		"default-domain":          daemon.StringValue("example.com"),
	}
	c.states[h] = [2]uint32{uint32(daemon.StateOnline), uint32(daemon.AuxActive)}

	_, err := loc.Reload(ctx, c)
	assert.Equal(t, err, nil)
	assert.Equal(t, loc.Active(), true)
	assert.Equal(t, loc.Committed(), true)
	assert.Equal(t, loc.ActivationMode(), ActivationConditionalAny)
	assert.Equal(t, len(loc.Conditions()), 1)

	v, err := loc.Property("default-domain")
	assert.Equal(t, err, nil)
	text, _ := v.Text()
	assert.Equal(t, text, "example.com")

	_, err = loc.Property("nfsv4-domain")
	assert.Equal(t, errors.Is(err, common.ErrNoValue), true)

	loc.SetEnabled(true)
	c.props[h][daemon.PropActivationMode] = daemon.Uint64Value(uint64(ActivationManual))
	changed, err := loc.Reload(ctx, c)
	assert.Equal(t, err, nil)
	assert.Equal(t, changed, []string{daemon.PropActivationMode})
	assert.Equal(t, loc.Enabled(), true)
	assert.Equal(t, loc.Modified(), true)
}

func TestLocation_CommitFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	c := newStubClient()
	loc := NewLocation("Work")
	h := loc.Handle().String()
	c.props[h] = daemon.Properties{daemon.PropEnabled: daemon.BoolValue(false)}
	c.states[h] = [2]uint32{uint32(daemon.StateOffline), uint32(daemon.AuxConditionsNotMet)}
	_, _ = loc.Reload(ctx, c)

	loc.SetEnabled(true)
	c.commitErr = common.ErrCommitFailed
	err := loc.Commit(ctx, c)
	assert.Equal(t, errors.Is(err, common.ErrCommitFailed), true)
	assert.Equal(t, loc.Enabled(), false)
	assert.Equal(t, loc.Modified(), false)

	c.commitErr = nil
	loc.SetEnabled(true)
	assert.Equal(t, loc.Commit(ctx, c), nil)
	assert.Equal(t, loc.Modified(), false)
	on, _ := c.committed[h][daemon.PropEnabled].Bool()
	assert.Equal(t, on, true)
}

func TestLocation_CommitFailureDropsAddedProperty(t *testing.T) {
	ctx := context.Background()
	c := newStubClient()
	loc := NewLocation("Work")
	h := loc.Handle().String()
	c.props[h] = daemon.Properties{
		daemon.PropEnabled: daemon.BoolValue(false),
		"default-domain":   daemon.StringValue("example.com"),
	}
	c.states[h] = [2]uint32{uint32(daemon.StateOffline), uint32(daemon.AuxConditionsNotMet)}
	_, _ = loc.Reload(ctx, c)

	loc.SetProperty("nfsv4-domain", daemon.StringValue("example.com"))
	c.commitErr = common.ErrCommitFailed
	err := loc.Commit(ctx, c)
	assert.Equal(t, errors.Is(err, common.ErrCommitFailed), true)
	assert.Equal(t, loc.Modified(), false)

	_, err = loc.Property("nfsv4-domain")
	assert.Equal(t, errors.Is(err, common.ErrNoValue), true)
	_, err = loc.Property("default-domain")
	assert.Equal(t, err, nil)

	// a property the daemon dropped goes away on reload
	delete(c.props[h], "default-domain")
	changed, err := loc.Reload(ctx, c)
	assert.Equal(t, err, nil)
	assert.Equal(t, changed, []string{"default-domain"})
	_, err = loc.Property("default-domain")
	assert.Equal(t, errors.Is(err, common.ErrNoValue), true)
}

func TestProfile_ReloadReadsPriorityGroup(t *testing.T) {
	ctx := context.Background()
	c := newStubClient()
	p := NewProfile(common.AutomaticProfile)
	h := p.Handle().String()
	c.props[h] = daemon.Properties{}
	c.states[h] = [2]uint32{uint32(daemon.StateOnline), uint32(daemon.AuxActive)}

	// no group being activated
	changed, err := p.Reload(ctx, c)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(changed), 0)
	assert.Equal(t, p.PriorityGroup(), int64(0))

	c.groups[common.AutomaticProfile] = 2
	changed, err = p.Reload(ctx, c)
	assert.Equal(t, err, nil)
	assert.Equal(t, changed, []string{daemon.PropPriorityGroup})
	assert.Equal(t, p.PriorityGroup(), int64(2))

	changed, err = p.Reload(ctx, c)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(changed), 0)
}

func TestReservedObjectsCannotBeDestroyed(t *testing.T) {
	ctx := context.Background()
	c := newStubClient()

	err := NewLocation(common.NoNetLocation).Destroy(ctx, c)
	assert.Equal(t, errors.Is(err, common.ErrReservedObject), true)

	err = NewProfile(common.AutomaticProfile).Destroy(ctx, c)
	assert.Equal(t, errors.Is(err, common.ErrReservedObject), true)
	assert.Equal(t, len(c.destroyed), 0)
}

func TestConnection_Halves(t *testing.T) {
	ctx := context.Background()
	c := newStubClient()
	conn := NewConnection("Automatic", "net0")

	assert.Equal(t, conn.Key(), "net0")
	assert.Equal(t, conn.Handle().Name, "link:net0")
	assert.Equal(t, conn.InterfaceHandle().Name, "interface:net0")

	link := conn.Handle().String()
	c.props[link] = daemon.Properties{
		daemon.PropMedia:          daemon.StringValue("wireless"),
		daemon.PropEnabled:        daemon.BoolValue(true),
		daemon.PropActivationMode: daemon.Uint64Value(uint64(ActivationPrioritized)),
		daemon.PropPriorityGroup:  daemon.Int64Value(1),
		daemon.PropPriorityMode:   daemon.Uint64Value(uint64(PriorityShared)),
	}
	c.states[link] = [2]uint32{uint32(daemon.StateOnline), uint32(daemon.AuxUp)}

	// interface half missing is tolerated
	_, err := conn.Reload(ctx, c)
	assert.Equal(t, err, nil)
	assert.Equal(t, conn.Media(), MediaWireless)
	assert.Equal(t, conn.PriorityMode(), PriorityShared)
	assert.Equal(t, conn.Active(), false)

	c.states[conn.InterfaceHandle().String()] = [2]uint32{uint32(daemon.StateOnline), uint32(daemon.AuxUp)}
	changed, err := conn.Reload(ctx, c)
	assert.Equal(t, err, nil)
	assert.Equal(t, changed, []string{"state"})
	assert.Equal(t, conn.Active(), true)

	changed, err = conn.Reload(ctx, c)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(changed), 0)

	assert.Equal(t, conn.SetHalfState(daemon.NCUInterface, daemon.StateOffline, daemon.AuxDown), true)
	assert.Equal(t, conn.Active(), false)
}

func TestConnection_Require(t *testing.T) {
	conn := NewConnection("Automatic", "wpi0")

	assert.Equal(t, conn.Require(NeedSelection, ""), true)
	assert.Equal(t, conn.Require(NeedSelection, ""), false)
	assert.Equal(t, conn.Require(NeedKey, "home"), true)
	assert.Equal(t, conn.Require(NeedKey, "home"), false)
	assert.Equal(t, conn.Require(NeedKey, "cafe"), true)
	assert.Equal(t, conn.Require(NeedNothing, ""), false)
	assert.Equal(t, conn.Require(NeedKey, "cafe"), true)
}

func TestProfile_FindConnection(t *testing.T) {
	p := NewProfile("Automatic")
	p.Connections().Add(NewConnection("Automatic", "net0"))

	_, ok := p.FindConnection("interface:net0")
	assert.Equal(t, ok, true)
	_, ok = p.FindConnection("net0")
	assert.Equal(t, ok, true)
	_, ok = p.FindConnection("link:net1")
	assert.Equal(t, ok, false)
}

func TestWifiNetwork_ApplyScan(t *testing.T) {
	w := NewWifiNetwork("cafe")
	changed := w.ApplyScan(daemon.WLAN{ESSID: "cafe", BSSID: "aa:bb:cc:dd:ee:ff", Signal: daemon.SignalGood, Security: daemon.SecurityWPA})
	assert.Equal(t, changed, []string{WifiPropSignal, WifiPropSecurity, WifiPropBSSID})
	assert.Equal(t, len(w.ApplyScan(daemon.WLAN{ESSID: "cafe", BSSID: "aa:bb:cc:dd:ee:ff", Signal: daemon.SignalGood, Security: daemon.SecurityWPA})), 0)

	fav := NewFavorite("cafe", daemon.SecurityNone, 3)
	changed = fav.ApplyLive(daemon.WLAN{ESSID: "cafe", Signal: daemon.SignalExcellent, Security: daemon.SecurityWPA, BSSID: "x"})
	assert.Equal(t, changed, []string{WifiPropSignal, WifiPropSecurity})
	assert.Equal(t, fav.Priority(), uint64(3))
	assert.Equal(t, fav.BSSID(), "")
}

func TestByPriority(t *testing.T) {
	a := NewFavorite("a", daemon.SecurityNone, 2)
	b := NewFavorite("b", daemon.SecurityNone, 1)
	c := NewFavorite("c", daemon.SecurityNone, 2)
	assert.Equal(t, ByPriority(b, a), true)
	assert.Equal(t, ByPriority(a, c), true)
	assert.Equal(t, ByPriority(c, a), false)
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	c := newStubClient()
	m := NewModifier("vpn")

	changed, err := m.Toggle(ctx, c, true)
	assert.Equal(t, err, nil)
	assert.Equal(t, changed, true)
	assert.Equal(t, m.Enabled(), true)

	changed, err = m.Toggle(ctx, c, true)
	assert.Equal(t, err, nil)
	assert.Equal(t, changed, false)

	c.toggleErr = common.ErrDisableFailed
	changed, err = m.Toggle(ctx, c, false)
	assert.Equal(t, errors.Is(err, common.ErrDisableFailed), true)
	assert.Equal(t, changed, false)
	assert.Equal(t, m.Enabled(), true)
}
