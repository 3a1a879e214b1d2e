// Package notify shows desktop notifications for network events.
package notify

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/nwam-agent/common"
)

const (
	notificationsService   = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"

	appName     = "Network Manager"
	sendTimeout = 5 * time.Second
)

// Urgency levels from the desktop notifications protocol.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Icons used by the agent.
const (
	IconNetwork      = "network-wired"
	IconWireless     = "network-wireless"
	IconWirelessKey  = "network-wireless-encrypted"
	IconNetworkError = "network-error"
	IconWarning      = "dialog-warning"
)

// urgencyFor picks an urgency from the icon the caller chose.
func urgencyFor(icon string) Urgency {
	switch icon {
	case IconNetworkError:
		return UrgencyCritical
	case IconWarning, IconWirelessKey:
		return UrgencyNormal
	default:
		return UrgencyLow
	}
}

// DesktopNotifier sends notifications over the session bus. When the bus
// is unavailable it falls back to notify-send.
type DesktopNotifier struct {
	log common.Logger

	mu     sync.Mutex
	conn   *dbus.Conn
	lastID uint32
}

// NewDesktopNotifier returns a notifier that connects lazily.
func NewDesktopNotifier(log common.Logger) *DesktopNotifier {
	if log == nil {
		log = common.DiscardLogger()
	}
	return &DesktopNotifier{log: log}
}

// Notify implements common.Notifier.
func (d *DesktopNotifier) Notify(title, message string) error {
	return d.NotifyWithIcon(title, message, IconNetwork)
}

// NotifyWithIcon implements common.Notifier.
func (d *DesktopNotifier) NotifyWithIcon(title, message, icon string) error {
	urgency := urgencyFor(icon)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connectLocked(); err != nil {
		d.log.Debug("session bus unavailable, using notify-send: %v", err)
		return notifySend(title, message, icon, urgency)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	obj := d.conn.Object(notificationsService, notificationsPath)
	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(urgency))}
	call := obj.CallWithContext(ctx, notificationsInterface+".Notify", 0,
		appName, uint32(0), icon, title, message, []string{}, hints, int32(-1))
	if call.Err != nil {
		// the connection may have gone stale; retry on the next send
		d.conn.Close()
		d.conn = nil
		return common.WrapError(call.Err, "send notification")
	}
	if err := call.Store(&d.lastID); err != nil {
		d.log.Debug("notification id: %v", err)
	}
	return nil
}

func (d *DesktopNotifier) connectLocked() error {
	if d.conn != nil {
		return nil
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return err
	}
	d.conn = conn
	return nil
}

// Close drops the session bus connection.
func (d *DesktopNotifier) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

func notifySend(title, message, icon string, urgency Urgency) error {
	cmd := exec.Command("notify-send",
		"--app-name="+appName,
		"--icon="+icon,
		"--urgency="+urgency.String(),
		title,
		message,
	)
	if err := cmd.Run(); err != nil {
		return common.WrapError(err, "notify-send")
	}
	return nil
}
