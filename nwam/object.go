package nwam

import (
	"context"
	"sync"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// Object is the capability shared by profiles, connections, locations and
// modifiers.
type Object interface {
	Keyed
	Name() string
	Kind() daemon.ObjectType
	Handle() daemon.Handle
	Active() bool
	State() (daemon.State, daemon.AuxState)
	// Modified reports uncommitted local edits.
	Modified() bool
	// Committed reports whether the object exists on the daemon.
	Committed() bool

	Commit(ctx context.Context, c daemon.Client) error
	// Reload refreshes properties and state from the daemon. Properties
	// with local edits keep their local value. It returns the names of
	// properties whose local value changed.
	Reload(ctx context.Context, c daemon.Client) ([]string, error)
	Destroy(ctx context.Context, c daemon.Client) error
}

// base holds what every daemon-backed object caches.
type base struct {
	mu     sync.RWMutex
	handle daemon.Handle
	state  daemon.State
	aux    daemon.AuxState

	// edited names properties changed locally since the last commit.
	edited map[string]bool
	// saved is the last property set known to be on the daemon.
	saved     daemon.Properties
	committed bool
}

func newBase(h daemon.Handle) base {
	return base{handle: h}
}

func (b *base) Key() string { return b.handle.Name }

func (b *base) Name() string { return b.handle.Name }

func (b *base) Kind() daemon.ObjectType { return b.handle.Type }

func (b *base) Handle() daemon.Handle { return b.handle }

func (b *base) State() (daemon.State, daemon.AuxState) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state, b.aux
}

// SetState caches a daemon-reported state pair. It returns true on change.
func (b *base) SetState(st daemon.State, aux daemon.AuxState) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == st && b.aux == aux {
		return false
	}
	b.state, b.aux = st, aux
	return true
}

func (b *base) Modified() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.edited) > 0
}

func (b *base) Committed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.committed
}

// online reports (online, want). Caller holds the lock.
func (b *base) onlineLocked(want daemon.AuxState) bool {
	return b.state == daemon.StateOnline && b.aux == want
}

// markEdited records a local edit. Caller holds the write lock.
func (b *base) markEdited(prop string) {
	if b.edited == nil {
		b.edited = make(map[string]bool)
	}
	b.edited[prop] = true
}

func (b *base) core() *base { return b }

// codec is implemented by every concrete object.
type codec interface {
	Object
	core() *base
	// encode returns the committable properties. Caller holds a read lock.
	encode() daemon.Properties
	// decode applies props, skipping names in skip, and returns the names
	// that changed. Caller holds the write lock.
	decode(props daemon.Properties, skip map[string]bool) []string
}

func commitObject(ctx context.Context, c daemon.Client, o codec) error {
	b := o.core()

	b.mu.RLock()
	props := o.encode()
	h := b.handle
	b.mu.RUnlock()

	if err := c.Commit(ctx, h, props); err != nil {
		rollback(o)
		return err
	}

	b.mu.Lock()
	b.saved = props
	b.edited = nil
	b.committed = true
	b.mu.Unlock()
	return nil
}

// rollback restores the last committed properties. Objects that never
// reached the daemon keep their local values.
func rollback(o codec) {
	b := o.core()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saved == nil {
		return
	}
	o.decode(b.saved, nil)
	b.edited = nil
}

func reloadObject(ctx context.Context, c daemon.Client, o codec) ([]string, error) {
	b := o.core()
	h := b.handle

	props, err := c.ReadProperties(ctx, h)
	if err != nil {
		return nil, err
	}
	st, aux, err := c.State(ctx, h)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	changed := o.decode(props, b.edited)
	b.saved = props
	b.state, b.aux = st, aux
	b.committed = true
	return changed, nil
}

func destroyObject(ctx context.Context, c daemon.Client, o codec) error {
	b := o.core()
	if !b.Committed() {
		return nil
	}
	if err := c.Destroy(ctx, b.handle); err != nil {
		return err
	}
	b.mu.Lock()
	b.committed = false
	b.saved = nil
	b.mu.Unlock()
	return nil
}

// readBool returns props[name] as a bool when present and well typed.
func readBool(props daemon.Properties, name string) (bool, bool) {
	v, ok := props[name]
	if !ok {
		return false, false
	}
	return v.Bool()
}

func readUint(props daemon.Properties, name string) (uint64, bool) {
	v, ok := props[name]
	if !ok {
		return 0, false
	}
	return v.Uint64()
}

func readInt(props daemon.Properties, name string) (int64, bool) {
	v, ok := props[name]
	if !ok {
		return 0, false
	}
	return v.Int64()
}

func readText(props daemon.Properties, name string) (string, bool) {
	v, ok := props[name]
	if !ok {
		return "", false
	}
	return v.Text()
}

func readStrings(props daemon.Properties, name string) ([]string, bool) {
	v, ok := props[name]
	if !ok {
		return nil, false
	}
	return v.Strings()
}

func errReserved(name string) error {
	return common.WrapError(common.ErrReservedObject, name)
}

// toggle sets *flag optimistically, asks the daemon to enable or disable
// the object and puts the old value back if the daemon refuses.
func toggle(ctx context.Context, c daemon.Client, b *base, flag *bool, on bool) (bool, error) {
	b.mu.Lock()
	old := *flag
	*flag = on
	b.mu.Unlock()

	var err error
	if on {
		err = c.Enable(ctx, b.handle)
	} else {
		err = c.Disable(ctx, b.handle)
	}
	if err != nil {
		b.mu.Lock()
		*flag = old
		b.mu.Unlock()
		return false, err
	}
	return old != on, nil
}
