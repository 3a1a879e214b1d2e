package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
	"github.com/yllada/nwam-agent/proxy"
)

type fakeAgent struct {
	status    proxy.Status
	reasons   proxy.Reason
	connected bool
	profile   *nwam.Profile
	location  *nwam.Location
	locations []*nwam.Location
	modifiers []*nwam.Modifier
	favorites []*nwam.WifiNetwork

	activated []string
	err       error
}

func (f *fakeAgent) Status() (proxy.Status, proxy.Reason) { return f.status, f.reasons }
func (f *fakeAgent) Connected() bool                      { return f.connected }
func (f *fakeAgent) ActiveProfile() *nwam.Profile         { return f.profile }
func (f *fakeAgent) ActiveLocation() *nwam.Location       { return f.location }
func (f *fakeAgent) Locations() []*nwam.Location          { return f.locations }
func (f *fakeAgent) Modifiers() []*nwam.Modifier          { return f.modifiers }
func (f *fakeAgent) Favorites() []*nwam.WifiNetwork       { return f.favorites }

func (f *fakeAgent) Profiles() []*nwam.Profile {
	if f.profile == nil {
		return nil
	}
	return []*nwam.Profile{f.profile}
}

func (f *fakeAgent) ActivateProfile(_ context.Context, name string) error {
	f.activated = append(f.activated, "ncp:"+name)
	return f.err
}

func (f *fakeAgent) ActivateLocation(_ context.Context, name string) error {
	f.activated = append(f.activated, "loc:"+name)
	return f.err
}

func (f *fakeAgent) Rescan(_ context.Context, device string) error {
	f.activated = append(f.activated, "scan:"+device)
	return f.err
}

func newFakeAgent() *fakeAgent {
	pr := nwam.NewProfile(common.AutomaticProfile)
	pr.SetActive(true)
	pr.SetState(daemon.StateOnline, daemon.AuxActive)

	wired := nwam.NewConnection(pr.Name(), "net0")
	wired.SetHalfState(daemon.NCUInterface, daemon.StateOnline, daemon.AuxUp)
	wireless := nwam.NewConnection(pr.Name(), "wpi0")
	wireless.SetMedia(nwam.MediaWireless)
	wireless.Require(nwam.NeedKey, "cafe")
	pr.Connections().Add(wired)
	pr.Connections().Add(wireless)

	home := nwam.NewLocation("Home")
	home.SetState(daemon.StateOnline, daemon.AuxActive)
	cond, _ := nwam.ParseCondition("essid is home")
	home.SetConditions([]*nwam.Condition{cond})

	return &fakeAgent{
		connected: true,
		profile:   pr,
		location:  home,
		locations: []*nwam.Location{nwam.NewLocation(common.AutomaticLocation), home},
		favorites: []*nwam.WifiNetwork{nwam.NewFavorite("home", daemon.SecurityWPA, 1)},
	}
}

func TestStatus(t *testing.T) {
	agent := newFakeAgent()
	agent.status = proxy.StatusNeedsAttention
	agent.reasons = proxy.ReasonProfile

	var buf bytes.Buffer
	c := &CLI{agent: agent, out: &buf}
	if err := c.Status(); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Daemon:   connected",
		"Status:   needs attention (profile)",
		"Profile:  Automatic",
		"Location: Home",
		"online (up)",
		"needs key (cafe)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Status() output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, daemon.AuxUp.String()) {
		t.Errorf("Status() printed the long aux description:\n%s", out)
	}
}

func TestStatus_NoDaemon(t *testing.T) {
	agent := &fakeAgent{status: proxy.StatusError, reasons: proxy.ReasonDaemon}

	var buf bytes.Buffer
	c := &CLI{agent: agent, out: &buf}
	if err := c.Status(); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Daemon:   unavailable") || !strings.Contains(out, "Profile:  -") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "DEVICE") {
		t.Errorf("connection table printed without a profile:\n%s", out)
	}
}

func TestList(t *testing.T) {
	var buf bytes.Buffer
	c := &CLI{agent: newFakeAgent(), out: &buf}
	if err := c.List(); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"PROFILE", "Automatic", "LOCATION", "essid is home", "FAVORITE", "home"} {
		if !strings.Contains(out, want) {
			t.Errorf("List() output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "MODIFIER") {
		t.Errorf("empty modifier table printed:\n%s", out)
	}
}

func TestCommands(t *testing.T) {
	agent := newFakeAgent()
	var buf bytes.Buffer
	c := &CLI{agent: agent, out: &buf}
	ctx := context.Background()

	if err := c.ActivateProfile(ctx, "User"); err != nil {
		t.Fatal(err)
	}
	if err := c.ActivateLocation(ctx, "Home"); err != nil {
		t.Fatal(err)
	}
	if err := c.Rescan(ctx, "wpi0"); err != nil {
		t.Fatal(err)
	}

	want := []string{"ncp:User", "loc:Home", "scan:wpi0"}
	if strings.Join(agent.activated, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", agent.activated, want)
	}

	agent.err = common.ErrObjectNotFound
	buf.Reset()
	if err := c.ActivateLocation(ctx, "Nowhere"); err == nil {
		t.Error("expected error")
	}
	if buf.Len() != 0 {
		t.Errorf("output on failure: %q", buf.String())
	}
}
