package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/nwam-agent/common"
)

const (
	managerInterface = "org.opensolaris.nwam1.Manager"
	eventSignal      = "Event"

	errNoValue  = "org.opensolaris.nwam1.Error.NoValue"
	errNotFound = "org.opensolaris.nwam1.Error.NotFound"
	errExists   = "org.opensolaris.nwam1.Error.Exists"
	errInvalid  = "org.opensolaris.nwam1.Error.Invalid"
	errReadOnly = "org.opensolaris.nwam1.Error.ReadOnly"

	signalBuffer = 64
)

// DBusConfig locates the daemon on the bus.
type DBusConfig struct {
	// Bus is "system" or "session".
	Bus         string
	Service     string
	ObjectPath  string
	CallTimeout time.Duration
}

// DBusClient talks to the daemon over D-Bus.
type DBusClient struct {
	cfg DBusConfig
	log common.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	obj     dbus.BusObject
	signals chan *dbus.Signal
}

// NewDBusClient returns an unconnected client.
func NewDBusClient(cfg DBusConfig, log common.Logger) *DBusClient {
	if cfg.Service == "" {
		cfg.Service = common.DefaultService
	}
	if cfg.ObjectPath == "" {
		cfg.ObjectPath = common.DefaultObjectPath
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = common.CallTimeout
	}
	if log == nil {
		log = common.DiscardLogger()
	}
	return &DBusClient{cfg: cfg, log: log}
}

func (c *DBusClient) dial() (*dbus.Conn, error) {
	if c.cfg.Bus == "session" {
		return dbus.ConnectSessionBus()
	}
	return dbus.ConnectSystemBus()
}

// Connect opens the bus connection and subscribes to daemon events.
func (c *DBusClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, err := c.dial()
	if err != nil {
		return common.WrapError(common.ErrDaemonUnavailable, err.Error())
	}

	path := dbus.ObjectPath(c.cfg.ObjectPath)
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(managerInterface),
		dbus.WithMatchMember(eventSignal),
	); err != nil {
		conn.Close()
		return common.WrapError(common.ErrDaemonUnavailable, "subscribe: "+err.Error())
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, c.cfg.Service),
	); err != nil {
		conn.Close()
		return common.WrapError(common.ErrDaemonUnavailable, "subscribe: "+err.Error())
	}

	signals := make(chan *dbus.Signal, signalBuffer)
	conn.Signal(signals)

	c.conn = conn
	c.obj = conn.Object(c.cfg.Service, path)
	c.signals = signals
	c.log.Debug("connected to %s on %s bus", c.cfg.Service, c.busName())
	return nil
}

func (c *DBusClient) busName() string {
	if c.cfg.Bus == "session" {
		return "session"
	}
	return "system"
}

// Close drops the bus connection. It is safe to call more than once.
func (c *DBusClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	c.conn.RemoveSignal(c.signals)
	err := c.conn.Close()
	c.conn = nil
	c.obj = nil
	c.signals = nil
	return err
}

// ServiceOnline asks the bus whether the daemon currently owns its name.
func (c *DBusClient) ServiceOnline(ctx context.Context) (bool, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		var err error
		conn, err = c.dial()
		if err != nil {
			return false, common.WrapError(common.ErrDaemonUnavailable, err.Error())
		}
		defer conn.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	var owned bool
	err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, c.cfg.Service).Store(&owned)
	if err != nil {
		return false, mapError(err)
	}
	return owned, nil
}

// WaitForEvent returns the next daemon event. It fails with
// ErrDaemonUnavailable when the connection drops or the daemon loses its
// bus name.
func (c *DBusClient) WaitForEvent(ctx context.Context) (*Event, error) {
	c.mu.Lock()
	signals := c.signals
	c.mu.Unlock()

	if signals == nil {
		return nil, common.ErrNotConnected
	}

	for {
		select {
		case <-ctx.Done():
			return nil, common.ErrCancelled
		case sig, ok := <-signals:
			if !ok {
				return nil, common.WrapError(common.ErrDaemonUnavailable, "bus connection closed")
			}
			if sig.Name == "org.freedesktop.DBus.NameOwnerChanged" {
				if ownerLost(sig.Body) {
					return nil, common.WrapError(common.ErrDaemonUnavailable, "daemon left the bus")
				}
				continue
			}
			if sig.Name != managerInterface+"."+eventSignal {
				continue
			}
			ev, err := DecodeEvent(sig.Body)
			if err != nil {
				c.log.Warn("dropping malformed event: %v", err)
				continue
			}
			return ev, nil
		}
	}
}

func ownerLost(body []interface{}) bool {
	if len(body) < 3 {
		return false
	}
	newOwner, _ := body[2].(string)
	return newOwner == ""
}

func (c *DBusClient) call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	c.mu.Lock()
	obj := c.obj
	c.mu.Unlock()

	if obj == nil {
		return &dbus.Call{Err: common.ErrNotConnected}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	return obj.CallWithContext(ctx, managerInterface+"."+method, 0, args...)
}

// Enumerate lists objects of one type. parent selects the profile for NCUs.
func (c *DBusClient) Enumerate(ctx context.Context, t ObjectType, parent string) ([]Handle, error) {
	var names []string
	if err := c.call(ctx, "Enumerate", uint32(t), parent).Store(&names); err != nil {
		return nil, mapError(err)
	}
	handles := make([]Handle, 0, len(names))
	for _, n := range names {
		handles = append(handles, Handle{Type: t, Parent: parent, Name: n})
	}
	return handles, nil
}

// ReadProperties returns every set property of an object.
func (c *DBusClient) ReadProperties(ctx context.Context, h Handle) (Properties, error) {
	var raw map[string]dbus.Variant
	if err := c.call(ctx, "GetProperties", uint32(h.Type), h.Parent, h.Name).Store(&raw); err != nil {
		return nil, mapError(err)
	}
	props := make(Properties, len(raw))
	for name, v := range raw {
		val, err := FromVariant(v)
		if err != nil {
			c.log.Debug("%s: skipping property %s: %v", h, name, err)
			continue
		}
		props[name] = val
	}
	return props, nil
}

// ReadProperty returns one property or common.ErrNoValue.
func (c *DBusClient) ReadProperty(ctx context.Context, h Handle, name string) (Value, error) {
	var raw dbus.Variant
	if err := c.call(ctx, "GetProperty", uint32(h.Type), h.Parent, h.Name, name).Store(&raw); err != nil {
		return Value{}, mapError(err)
	}
	return FromVariant(raw)
}

// State returns the object's (state, aux state) pair.
func (c *DBusClient) State(ctx context.Context, h Handle) (State, AuxState, error) {
	var st, aux uint32
	if err := c.call(ctx, "GetState", uint32(h.Type), h.Parent, h.Name).Store(&st, &aux); err != nil {
		return StateUninitialized, AuxUninitialized, mapError(err)
	}
	return State(st), AuxState(aux), nil
}

func (c *DBusClient) ActivePriorityGroup(ctx context.Context, ncp string) (int64, error) {
	var group int64
	if err := c.call(ctx, "GetActivePriorityGroup", ncp).Store(&group); err != nil {
		return 0, mapError(err)
	}
	return group, nil
}

// Create makes a new, uncommitted object.
func (c *DBusClient) Create(ctx context.Context, t ObjectType, parent, name string) (Handle, error) {
	if err := c.call(ctx, "Create", uint32(t), parent, name).Err; err != nil {
		return Handle{}, mapError(err)
	}
	return Handle{Type: t, Parent: parent, Name: name}, nil
}

// Commit writes props and commits the object.
func (c *DBusClient) Commit(ctx context.Context, h Handle, props Properties) error {
	raw := make(map[string]dbus.Variant, len(props))
	for name, v := range props {
		raw[name] = ToVariant(v)
	}
	if err := c.call(ctx, "Commit", uint32(h.Type), h.Parent, h.Name, raw).Err; err != nil {
		return common.WrapError(common.ErrCommitFailed, mapError(err).Error())
	}
	return nil
}

func (c *DBusClient) Enable(ctx context.Context, h Handle) error {
	if err := c.call(ctx, "Enable", uint32(h.Type), h.Parent, h.Name).Err; err != nil {
		return common.WrapError(common.ErrEnableFailed, mapError(err).Error())
	}
	return nil
}

func (c *DBusClient) Disable(ctx context.Context, h Handle) error {
	if err := c.call(ctx, "Disable", uint32(h.Type), h.Parent, h.Name).Err; err != nil {
		return common.WrapError(common.ErrDisableFailed, mapError(err).Error())
	}
	return nil
}

func (c *DBusClient) Destroy(ctx context.Context, h Handle) error {
	if err := c.call(ctx, "Destroy", uint32(h.Type), h.Parent, h.Name).Err; err != nil {
		return common.WrapError(common.ErrDestroyFailed, mapError(err).Error())
	}
	return nil
}

// ScanWLANs asks the daemon to rescan a wireless link.
func (c *DBusClient) ScanWLANs(ctx context.Context, link string) error {
	return mapError(c.call(ctx, "ScanWLANs", link).Err)
}

func (c *DBusClient) SelectWLAN(ctx context.Context, link, essid, bssid string) error {
	return mapError(c.call(ctx, "SelectWLAN", link, essid, bssid).Err)
}

func (c *DBusClient) SetWLANKey(ctx context.Context, link, essid, bssid, key string) error {
	return mapError(c.call(ctx, "SetWLANKey", link, essid, bssid, key).Err)
}

// mapError translates bus errors into common sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.WrapError(common.ErrTimeout, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return common.ErrCancelled
	}

	var name, msg string
	var derr dbus.Error
	var pderr *dbus.Error
	switch {
	case errors.As(err, &derr):
		name, msg = derr.Name, derr.Error()
	case errors.As(err, &pderr):
		name, msg = pderr.Name, pderr.Error()
	default:
		return err
	}

	switch name {
	case errNoValue:
		return common.ErrNoValue
	case errNotFound:
		return common.WrapError(common.ErrObjectNotFound, msg)
	case errExists:
		return common.WrapError(common.ErrDuplicateName, msg)
	case errInvalid:
		return common.WrapError(common.ErrInvalidProperty, msg)
	case errReadOnly:
		return common.WrapError(common.ErrReservedObject, msg)
	}
	if strings.HasPrefix(name, "org.freedesktop.DBus.Error.ServiceUnknown") ||
		strings.HasPrefix(name, "org.freedesktop.DBus.Error.NameHasNoOwner") {
		return common.WrapError(common.ErrDaemonUnavailable, msg)
	}
	return fmt.Errorf("%s: %s", name, msg)
}
