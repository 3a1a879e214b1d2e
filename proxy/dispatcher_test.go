package proxy

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
)

func TestEnumeration_PopulatesStores(t *testing.T) {
	f := standardDaemon()
	f.addFavorite("cafe", 2)
	f.addFavorite("home", 1)
	p, _ := newTestProxy(f)

	assert.Equal(t, p.Connected(), true)
	assert.Equal(t, len(p.Profiles()), 1)
	assert.Equal(t, p.ActiveProfile().Name(), "Automatic")
	assert.Equal(t, p.ActiveProfile().Active(), true)
	assert.Equal(t, p.ActiveProfile().Connections().Keys(), []string{"net0", "wpi0"})
	assert.Equal(t, p.ActiveLocation().Name(), "Home")

	wpi, _ := p.FindConnection("wpi0")
	assert.Equal(t, wpi.Media(), nwam.MediaWireless)

	var names []string
	for _, w := range p.Favorites() {
		names = append(names, w.ESSID())
	}
	assert.Equal(t, names, []string{"home", "cafe"})

	st, reasons := p.Status()
	assert.Equal(t, st, StatusAllOK)
	assert.Equal(t, reasons, Reason(0))
}

func TestEnumeration_Idempotent(t *testing.T) {
	f := standardDaemon()
	f.addFavorite("home", 1)
	p, r := newTestProxy(f)
	assert.NotEqual(t, r.count(ObjectAdded), 0)

	r.reset()
	p.Refresh()
	assert.Equal(t, r.count(ObjectAdded), 0)
	assert.Equal(t, r.count(ObjectRemoved), 0)
	assert.Equal(t, r.count(FavoriteAdded), 0)
	assert.Equal(t, r.count(FavoriteRemoved), 0)
	assert.Equal(t, r.count(PropertyChanged), 0)
}

func TestEnumeration_RemovesVanishedObjects(t *testing.T) {
	f := standardDaemon()
	f.put(enmHandle("vpn"), nil, daemon.StateDisabled, daemon.AuxManualDisable)
	p, r := newTestProxy(f)
	_, ok := p.FindModifier("vpn")
	assert.Equal(t, ok, true)

	f.drop(enmHandle("vpn"))
	f.drop(ncuHandle("Automatic", daemon.NCULink, "wpi0"))
	f.drop(ncuHandle("Automatic", daemon.NCUInterface, "wpi0"))
	r.reset()
	p.Refresh()

	_, ok = p.FindModifier("vpn")
	assert.Equal(t, ok, false)
	_, ok = p.FindConnection("wpi0")
	assert.Equal(t, ok, false)
	assert.Equal(t, r.count(ObjectRemoved), 2)
	assert.Equal(t, r.count(ObjectAdded), 0)
}

func TestEnumeration_FallsBackToFirstLocation(t *testing.T) {
	f := newFakeClient()
	f.addProfile("Automatic", true)
	f.addLocation("Automatic", false)
	f.addLocation("Home", false)
	p, _ := newTestProxy(f)

	assert.Equal(t, p.ActiveLocation().Name(), "Automatic")
	_, reasons := p.Status()
	assert.Equal(t, reasons&ReasonLocation != 0, true)
}

func TestEnumeration_KeepsLocalEdits(t *testing.T) {
	f := standardDaemon()
	p, _ := newTestProxy(f)

	home, _ := p.FindLocation("Home")
	home.SetActivationMode(nwam.ActivationConditionalAll)
	p.Refresh()

	assert.Equal(t, home.ActivationMode(), nwam.ActivationConditionalAll)
	assert.Equal(t, home.Modified(), true)
	assert.Equal(t, home.Active(), true)
}

// Scenario A: one manual connection goes from offline to (online, up).
func TestStatus_ManualConnection(t *testing.T) {
	f := newFakeClient()
	f.addProfile("User", true)
	f.addNCU("User", "net0", ncuSpec{mode: nwam.ActivationManual, enabled: true})
	f.addLocation("Home", true)
	p, r := newTestProxy(f)

	st, reasons := p.Status()
	assert.Equal(t, st, StatusNeedsAttention)
	assert.Equal(t, reasons, ReasonProfile)

	r.reset()
	p.HandleEvent(&daemon.Event{
		Type: daemon.EventObjectState, ObjectType: daemon.ObjectNCU,
		Parent: "User", Name: "interface:net0",
		State: daemon.StateOnline, AuxState: daemon.AuxUp,
	})

	st, reasons = p.Status()
	assert.Equal(t, st, StatusAllOK)
	assert.Equal(t, reasons, Reason(0))
	assert.Equal(t, r.count(StatusChanged), 1)
	last := r.all()[len(r.all())-1]
	assert.Equal(t, last.Kind, StatusChanged)
	assert.Equal(t, last.OldStatus, StatusNeedsAttention)
	assert.Equal(t, last.OldReasons, ReasonProfile)
}

// Scenario B: one of two exclusive connections comes up.
func TestStatus_ExclusiveGroup(t *testing.T) {
	f := newFakeClient()
	f.addProfile("Automatic", true)
	f.addNCU("Automatic", "net0", ncuSpec{mode: nwam.ActivationPrioritized, prioMode: nwam.PriorityExclusive})
	f.addNCU("Automatic", "net1", ncuSpec{mode: nwam.ActivationPrioritized, prioMode: nwam.PriorityExclusive})
	f.addLocation("Home", true)
	p, _ := newTestProxy(f)

	_, reasons := p.Status()
	assert.Equal(t, reasons, ReasonProfile)

	p.HandleEvent(&daemon.Event{Type: daemon.EventIfState, Link: "net1", State: daemon.StateOnline, AuxState: daemon.AuxUp})
	st, reasons := p.Status()
	assert.Equal(t, st, StatusAllOK)
	assert.Equal(t, reasons, Reason(0))
}

func TestStatus_PriorityGroupChange(t *testing.T) {
	p, _ := newTestProxy(standardDaemon())

	// group 1 holds only wpi0, which is down
	p.HandleEvent(&daemon.Event{Type: daemon.EventPriorityGroup, PriorityGroup: 1})
	_, reasons := p.Status()
	assert.Equal(t, reasons, ReasonProfile)
	assert.Equal(t, p.ActiveProfile().PriorityGroup(), int64(1))
}

func TestStatus_NoStatusChangeWithoutTransition(t *testing.T) {
	p, r := newTestProxy(standardDaemon())
	r.reset()
	p.HandleEvent(&daemon.Event{Type: daemon.EventInfo, Message: "hello"})
	p.HandleEvent(&daemon.Event{Type: daemon.EventNoop})
	assert.Equal(t, r.count(StatusChanged), 0)
	assert.Equal(t, r.count(DaemonInfo), 1)
}

// Scenario D: losing the daemon forces ERROR, reconnecting re-enumerates.
func TestDaemonLostAndRegained(t *testing.T) {
	f := standardDaemon()
	p, r := newTestProxy(f)
	r.reset()

	p.HandleEvent(daemon.Synthetic(daemon.EventDaemonInactive, "connection reset"))
	st, reasons := p.Status()
	assert.Equal(t, st, StatusError)
	assert.Equal(t, reasons, ReasonDaemon)
	assert.Equal(t, r.kinds(), []NotificationKind{DaemonInfo, StatusChanged})

	// the daemon changed while we were away
	f.drop(locHandle("Automatic"))
	f.addLocation("Work", false)
	r.reset()

	p.HandleEvent(daemon.Synthetic(daemon.EventDaemonActive, "reconnected"))
	st, _ = p.Status()
	assert.Equal(t, st, StatusAllOK)
	assert.Equal(t, r.count(ObjectAdded), 1)
	assert.Equal(t, r.count(ObjectRemoved), 1)

	kinds := r.kinds()
	assert.Equal(t, kinds[len(kinds)-1], StatusChanged)
}

func TestDaemonShutdownIsQuiet(t *testing.T) {
	p, r := newTestProxy(standardDaemon())
	r.reset()

	p.HandleEvent(&daemon.Event{Type: daemon.EventShutdown})
	assert.Equal(t, p.Connected(), false)
	p.HandleEvent(daemon.Synthetic(daemon.EventDaemonActive, "daemon restarted"))
	assert.Equal(t, p.Connected(), true)

	assert.Equal(t, r.count(DaemonInfo), 0)
	assert.Equal(t, r.count(StatusChanged), 0)
}

func TestDaemonShutdownHoldsStatus(t *testing.T) {
	p, r := newTestProxy(standardDaemon())
	r.reset()

	p.HandleEvent(&daemon.Event{Type: daemon.EventShutdown})
	st, reasons := p.Status()
	assert.Equal(t, st, StatusAllOK)
	assert.Equal(t, reasons, Reason(0))
	assert.Equal(t, len(r.all()), 0)

	// a later connection loss is still reported
	p.HandleEvent(daemon.Synthetic(daemon.EventDaemonInactive, "connection reset"))
	st, reasons = p.Status()
	assert.Equal(t, st, StatusError)
	assert.Equal(t, reasons, ReasonDaemon)
}

func TestDaemonRegained_ReadsPriorityGroup(t *testing.T) {
	f := standardDaemon()
	p, r := newTestProxy(f)
	p.HandleEvent(daemon.Synthetic(daemon.EventDaemonInactive, "connection reset"))

	// the daemon moved to group 1 while we were away
	f.setGroup("Automatic", 1)
	f.setState(ncuHandle("Automatic", daemon.NCULink, "net0"), daemon.StateOffline, daemon.AuxDown)
	f.setState(ncuHandle("Automatic", daemon.NCUInterface, "net0"), daemon.StateOffline, daemon.AuxDown)
	f.setState(ncuHandle("Automatic", daemon.NCULink, "wpi0"), daemon.StateOnline, daemon.AuxUp)
	f.setState(ncuHandle("Automatic", daemon.NCUInterface, "wpi0"), daemon.StateOnline, daemon.AuxUp)
	r.reset()

	p.HandleEvent(daemon.Synthetic(daemon.EventDaemonActive, "reconnected"))
	assert.Equal(t, p.ActiveProfile().PriorityGroup(), int64(1))
	st, reasons := p.Status()
	assert.Equal(t, st, StatusAllOK)
	assert.Equal(t, reasons, Reason(0))

	var groupChanges int
	for _, n := range r.all() {
		if n.Kind == PropertyChanged && n.Property == daemon.PropPriorityGroup && n.Object == p.ActiveProfile() {
			groupChanges++
		}
	}
	assert.Equal(t, groupChanges, 1)

	r.reset()
	p.Refresh()
	assert.Equal(t, r.count(PropertyChanged), 0)
}

func TestRefresh_InterfaceStateChange(t *testing.T) {
	f := standardDaemon()
	p, r := newTestProxy(f)
	c, _ := p.FindConnection("net0")
	r.reset()

	f.setState(ncuHandle("Automatic", daemon.NCUInterface, "net0"), daemon.StateOffline, daemon.AuxIfWaitingForAddr)
	p.Refresh()

	st, aux := c.InterfaceState()
	assert.Equal(t, st, daemon.StateOffline)
	assert.Equal(t, aux, daemon.AuxIfWaitingForAddr)

	var props []string
	for _, n := range r.all() {
		if n.Kind == PropertyChanged && n.Object == c {
			props = append(props, n.Property)
		}
	}
	assert.Equal(t, props, []string{"state"})

	status, reasons := p.Status()
	assert.Equal(t, status, StatusNeedsAttention)
	assert.Equal(t, reasons, ReasonProfile)
}

func TestUnknownEventIsForwarded(t *testing.T) {
	p, r := newTestProxy(standardDaemon())
	r.reset()

	p.HandleEvent(&daemon.Event{Type: daemon.EventType(99), Message: "future"})
	notes := r.all()
	assert.Equal(t, len(notes), 1)
	assert.Equal(t, notes[0].Kind, DaemonInfo)
	assert.Equal(t, notes[0].Event, daemon.EventType(99))
	assert.Equal(t, notes[0].Message, "future")
}

func TestObjectAction_MissingParentDropped(t *testing.T) {
	p, r := newTestProxy(standardDaemon())
	r.reset()

	p.HandleEvent(&daemon.Event{
		Type: daemon.EventObjectAction, ObjectType: daemon.ObjectNCU, Action: daemon.ActionAdd,
		Parent: "Nowhere", Name: "link:net9",
	})
	assert.Equal(t, len(r.all()), 0)
	assert.Equal(t, p.Stats().EventsDropped, uint64(1))
}

func TestObjectAction_DuplicateNCUAddsFold(t *testing.T) {
	f := standardDaemon()
	p, r := newTestProxy(f)
	r.reset()

	f.addNCU("Automatic", "net1", ncuSpec{})
	for _, name := range []string{"interface:net1", "link:net1", "link:net1"} {
		p.HandleEvent(&daemon.Event{
			Type: daemon.EventObjectAction, ObjectType: daemon.ObjectNCU, Action: daemon.ActionAdd,
			Parent: "Automatic", Name: name,
		})
	}

	assert.Equal(t, r.count(ObjectAdded), 1)
	assert.Equal(t, p.ActiveProfile().Connections().Keys(), []string{"net0", "wpi0", "net1"})
}

func TestObjectAction_ProfileEnable(t *testing.T) {
	f := standardDaemon()
	f.addProfile("User", false)
	f.addNCU("User", "net0", ncuSpec{mode: nwam.ActivationManual, enabled: true, up: true})
	p, _ := newTestProxy(f)
	assert.Equal(t, p.ActiveProfile().Name(), "Automatic")

	p.HandleEvent(&daemon.Event{Type: daemon.EventObjectAction, ObjectType: daemon.ObjectNCP, Action: daemon.ActionEnable, Name: "User"})

	user := p.ActiveProfile()
	assert.Equal(t, user.Name(), "User")
	assert.Equal(t, user.Active(), true)
	auto, _ := p.FindProfile("Automatic")
	assert.Equal(t, auto.Active(), false)
}

func TestObjectAction_LocationLifecycle(t *testing.T) {
	f := standardDaemon()
	p, r := newTestProxy(f)
	r.reset()

	f.addLocation("Work", false)
	p.HandleEvent(&daemon.Event{Type: daemon.EventObjectAction, ObjectType: daemon.ObjectLocation, Action: daemon.ActionAdd, Name: "Work"})
	// a second ADD for an object we already have is reconciled, not duplicated
	p.HandleEvent(&daemon.Event{Type: daemon.EventObjectAction, ObjectType: daemon.ObjectLocation, Action: daemon.ActionAdd, Name: "Work"})
	assert.Equal(t, r.count(ObjectAdded), 1)

	p.HandleEvent(&daemon.Event{Type: daemon.EventObjectState, ObjectType: daemon.ObjectLocation, Name: "Work", State: daemon.StateOnline, AuxState: daemon.AuxActive})
	assert.Equal(t, p.ActiveLocation().Name(), "Work")

	p.HandleEvent(&daemon.Event{Type: daemon.EventObjectState, ObjectType: daemon.ObjectLocation, Name: "Work", State: daemon.StateOffline, AuxState: daemon.AuxConditionsNotMet})
	_, reasons := p.Status()
	assert.Equal(t, reasons, ReasonLocation)

	p.HandleEvent(&daemon.Event{Type: daemon.EventObjectAction, ObjectType: daemon.ObjectLocation, Action: daemon.ActionDestroy, Name: "Work"})
	_, ok := p.FindLocation("Work")
	assert.Equal(t, ok, false)
	assert.Equal(t, p.ActiveLocation() == nil, true)
	assert.Equal(t, r.count(ObjectRemoved), 1)
}

func TestNoNetLocationNeedsAttention(t *testing.T) {
	f := standardDaemon()
	f.setState(locHandle("Home"), daemon.StateOffline, daemon.AuxConditionsNotMet)
	f.addLocation("NoNet", true)
	p, _ := newTestProxy(f)

	assert.Equal(t, p.ActiveLocation().Name(), "NoNet")
	st, reasons := p.Status()
	assert.Equal(t, st, StatusNeedsAttention)
	assert.Equal(t, reasons, ReasonLocation)
}

func TestFindObject(t *testing.T) {
	p, _ := newTestProxy(standardDaemon())

	o, ok := p.FindObject(daemon.ObjectNCU, "wpi0")
	assert.Equal(t, ok, true)
	assert.Equal(t, o.Name(), "wpi0")

	c, _ := nwam.ParseCondition("loc is Home")
	o, ok = c.Resolve(p)
	assert.Equal(t, ok, true)
	assert.Equal(t, o.Kind(), daemon.ObjectLocation)
}
