// Package cli provides command-line access to the network agent.
// It prints the daemon's view of profiles, locations and wireless
// networks without starting the desktop agent.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/nwam"
	"github.com/yllada/nwam-agent/proxy"
)

// Querier is the read side of the proxy.
type Querier interface {
	Status() (proxy.Status, proxy.Reason)
	Connected() bool
	ActiveProfile() *nwam.Profile
	ActiveLocation() *nwam.Location
	Profiles() []*nwam.Profile
	Locations() []*nwam.Location
	Modifiers() []*nwam.Modifier
	Favorites() []*nwam.WifiNetwork
}

// Commander is the write side of the proxy used from the command line.
type Commander interface {
	ActivateProfile(ctx context.Context, name string) error
	ActivateLocation(ctx context.Context, name string) error
	Rescan(ctx context.Context, device string) error
}

// Agent is everything the CLI needs from the proxy.
type Agent interface {
	Querier
	Commander
}

// CLI represents the command-line interface.
type CLI struct {
	agent Agent
	out   io.Writer
}

// New returns a CLI printing to stdout.
func New(agent Agent) *CLI {
	return &CLI{agent: agent, out: os.Stdout}
}

// Snapshot connects client, loads the daemon's objects into a fresh proxy
// and returns it. The caller closes client when done.
func Snapshot(ctx context.Context, client daemon.Client, log common.Logger) (*proxy.Proxy, error) {
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach network daemon: %w", err)
	}
	p := proxy.New(proxy.Options{Client: client, Logger: log})
	p.HandleEvent(daemon.Synthetic(daemon.EventDaemonActive, "snapshot"))
	return p, nil
}

// Status prints the aggregate status and the active profile's connections.
func (c *CLI) Status() error {
	st, reasons := c.agent.Status()

	daemonState := "unavailable"
	if c.agent.Connected() {
		daemonState = "connected"
	}
	fmt.Fprintf(c.out, "Daemon:   %s\n", daemonState)
	fmt.Fprintf(c.out, "Status:   %s", st)
	if reasons != 0 {
		fmt.Fprintf(c.out, " (%s)", reasons)
	}
	fmt.Fprintln(c.out)

	location := "-"
	if l := c.agent.ActiveLocation(); l != nil {
		location = l.Name()
	}
	pr := c.agent.ActiveProfile()
	profile := "-"
	if pr != nil {
		profile = pr.Name()
	}
	fmt.Fprintf(c.out, "Profile:  %s\n", profile)
	fmt.Fprintf(c.out, "Location: %s\n", location)

	if pr == nil || pr.Connections().Len() == 0 {
		return nil
	}

	fmt.Fprintln(c.out)
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tMEDIA\tMODE\tENABLED\tLINK\tINTERFACE\tWIFI")
	fmt.Fprintln(w, "------\t-----\t----\t-------\t----\t---------\t----")
	for _, conn := range pr.Connections().List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			conn.Device(),
			conn.Media(),
			conn.ActivationMode(),
			yesNo(conn.Enabled()),
			formatState(conn.LinkState()),
			formatState(conn.InterfaceState()),
			wifiSummary(conn))
	}
	return w.Flush()
}

// List prints every profile, location, modifier and favorite network.
func (c *CLI) List() error {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "PROFILE\tACTIVE\tSTATE\tCONNECTIONS")
	fmt.Fprintln(w, "-------\t------\t-----\t-----------")
	for _, p := range c.agent.Profiles() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.Name(), yesNo(p.Active()), formatState(p.State()), p.Connections().Len())
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "LOCATION\tENABLED\tMODE\tSTATE\tCONDITIONS")
	fmt.Fprintln(w, "--------\t-------\t----\t-----\t----------")
	for _, l := range c.agent.Locations() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.Name(), yesNo(l.Enabled()), l.ActivationMode(),
			formatState(l.State()), formatConditions(l.Conditions()))
	}

	if mods := c.agent.Modifiers(); len(mods) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "MODIFIER\tENABLED\tMODE\tSTATE\tCONDITIONS")
		fmt.Fprintln(w, "--------\t-------\t----\t-----\t----------")
		for _, m := range mods {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Name(), yesNo(m.Enabled()), m.ActivationMode(),
				formatState(m.State()), formatConditions(m.Conditions()))
		}
	}

	if favs := c.agent.Favorites(); len(favs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "FAVORITE\tPRIORITY\tSECURITY")
		fmt.Fprintln(w, "--------\t--------\t--------")
		for _, f := range favs {
			fmt.Fprintf(w, "%s\t%d\t%s\n", f.ESSID(), f.Priority(), f.Security())
		}
	}

	return w.Flush()
}

// ActivateProfile switches to the named profile.
func (c *CLI) ActivateProfile(ctx context.Context, name string) error {
	if err := c.agent.ActivateProfile(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "✓ Profile %s activated\n", name)
	return nil
}

// ActivateLocation switches to the named location.
func (c *CLI) ActivateLocation(ctx context.Context, name string) error {
	if err := c.agent.ActivateLocation(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "✓ Location %s activated\n", name)
	return nil
}

// Rescan asks for a new wireless scan on device.
func (c *CLI) Rescan(ctx context.Context, device string) error {
	if err := c.agent.Rescan(ctx, device); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Scanning on %s...\n", device)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatState(st daemon.State, aux daemon.AuxState) string {
	if st == daemon.StateUninitialized {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", st, aux.Name())
}

func formatConditions(list []*nwam.Condition) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(nwam.FormatConditions(list), "; ")
}

func wifiSummary(c *nwam.Connection) string {
	if c.Media() != nwam.MediaWireless {
		return "-"
	}
	if w, ok := c.SelectedNetwork(); ok {
		return fmt.Sprintf("%s [%s]", w.ESSID(), w.Status())
	}
	if req, essid := c.Requirement(); req != nwam.NeedNothing {
		if essid != "" {
			return fmt.Sprintf("needs %s (%s)", req, essid)
		}
		return "needs " + req.String()
	}
	return fmt.Sprintf("%d seen", c.Wifi().Len())
}

// PrintHelp prints CLI usage help.
func PrintHelp() {
	fmt.Println(`Network Agent - Command Line Interface

Usage:
  nwam-agent [OPTIONS]

Options:
  --version            Show version and exit
  --verbose            Enable verbose logging
  --config PATH        Read configuration from PATH
  --status             Show the network status and active connections
  --list               List profiles, locations, modifiers and favorites
  --profile NAME       Activate a profile
  --location NAME      Activate a location
  --rescan DEVICE      Request a wireless scan on DEVICE
  --help               Show this help message

Examples:
  nwam-agent --status
  nwam-agent --location Home
  nwam-agent --rescan wpi0

Notes:
  - Run without options to start the desktop agent`)
}
