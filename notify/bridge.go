package notify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/config"
	"github.com/yllada/nwam-agent/nwam"
	"github.com/yllada/nwam-agent/proxy"
)

const bridgeBuffer = 32

// Message is one desktop notification.
type Message struct {
	Title string
	Body  string
	Icon  string
}

// Source publishes proxy notifications.
type Source interface {
	Subscribe(fn proxy.Subscriber) func()
}

// Bridge turns proxy notifications into desktop notifications. Sending
// happens on its own goroutine so a slow notification service never holds
// up event dispatch.
type Bridge struct {
	notifier common.Notifier
	cfg      config.NotificationsConfig
	log      common.Logger

	queue       chan Message
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

// Attach subscribes a bridge to src.
func Attach(src Source, n common.Notifier, cfg config.NotificationsConfig, log common.Logger) *Bridge {
	if log == nil {
		log = common.DiscardLogger()
	}
	b := &Bridge{
		notifier: n,
		cfg:      cfg,
		log:      log,
		queue:    make(chan Message, bridgeBuffer),
		done:     make(chan struct{}),
	}
	go b.run()
	b.unsubscribe = src.Subscribe(b.handle)
	return b
}

func (b *Bridge) handle(n proxy.Notification) {
	msg, ok := Format(n, b.cfg)
	if !ok {
		return
	}
	select {
	case b.queue <- msg:
	default:
		b.log.Debug("notification backlog full, dropping %q", msg.Title)
	}
}

func (b *Bridge) run() {
	defer close(b.done)
	for msg := range b.queue {
		if err := b.notifier.NotifyWithIcon(msg.Title, msg.Body, msg.Icon); err != nil {
			b.log.Warn("notification %q: %v", msg.Title, err)
		}
	}
}

// Close unsubscribes and waits for queued notifications to be sent.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.unsubscribe()
		close(b.queue)
		<-b.done
	})
}

// Format maps a proxy notification to a desktop message. It reports false
// for notifications the user should not see.
func Format(n proxy.Notification, cfg config.NotificationsConfig) (Message, bool) {
	if !cfg.Enabled {
		return Message{}, false
	}

	switch n.Kind {
	case proxy.StatusChanged:
		if !cfg.StatusChanges || n.Status == n.OldStatus {
			return Message{}, false
		}
		return statusMessage(n), true

	case proxy.WifiSelectionNeeded:
		if n.Connection == nil {
			return Message{}, false
		}
		return Message{
			Title: "Choose a wireless network",
			Body:  fmt.Sprintf("%d networks found on %s", n.Connection.LastScanSize(), n.Connection.Device()),
			Icon:  IconWireless,
		}, true

	case proxy.WifiKeyNeeded:
		essid := ""
		if n.Network != nil {
			essid = n.Network.ESSID()
		} else if n.Connection != nil {
			_, essid = n.Connection.Requirement()
		}
		body := "A wireless network needs a key"
		if essid != "" {
			body = fmt.Sprintf("Enter the key for %s", essid)
		}
		return Message{Title: "Wireless key required", Body: body, Icon: IconWirelessKey}, true

	case proxy.PropertyChanged:
		w, ok := n.Object.(*nwam.WifiNetwork)
		if !ok || n.Property != nwam.WifiPropStatus {
			return Message{}, false
		}
		switch w.Status() {
		case nwam.WifiConnected:
			return Message{Title: "Wireless connected", Body: "Connected to " + w.ESSID(), Icon: IconWireless}, true
		case nwam.WifiFailed:
			return Message{Title: "Wireless connection failed", Body: "Could not connect to " + w.ESSID(), Icon: IconWarning}, true
		}

	case proxy.DaemonInfo:
		if cfg.DaemonInfo && n.Message != "" {
			return Message{Title: "Network daemon", Body: n.Message, Icon: IconNetwork}, true
		}
	}
	return Message{}, false
}

func statusMessage(n proxy.Notification) Message {
	switch n.Status {
	case proxy.StatusAllOK:
		return Message{Title: "Network ready", Body: "All required connections are up", Icon: IconNetwork}
	case proxy.StatusNeedsAttention:
		return Message{Title: "Network needs attention", Body: reasonText(n.Reasons), Icon: IconWarning}
	default:
		return Message{
			Title: "Network daemon unavailable",
			Body:  "Network status is unknown until the daemon returns",
			Icon:  IconNetworkError,
		}
	}
}

func reasonText(r proxy.Reason) string {
	var parts []string
	if r&proxy.ReasonProfile != 0 {
		parts = append(parts, "a required connection is down")
	}
	if r&proxy.ReasonLocation != 0 {
		parts = append(parts, "no usable location is active")
	}
	if r&proxy.ReasonModifier != 0 {
		parts = append(parts, "a modifier is not running")
	}
	if len(parts) == 0 {
		return r.String()
	}
	s := strings.Join(parts, "; ")
	return strings.ToUpper(s[:1]) + s[1:]
}
