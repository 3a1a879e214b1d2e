package nwam

import (
	"context"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// Location is a bundle of location-specific settings (ENV). Properties the
// agent does not interpret are kept in an opaque bag and written back
// unchanged.
type Location struct {
	base
	rules
	bag daemon.Properties
}

// NewLocation returns an uncommitted location.
func NewLocation(name string) *Location {
	return &Location{
		base: newBase(daemon.Handle{Type: daemon.ObjectLocation, Name: name}),
		bag:  daemon.Properties{},
	}
}

// Reserved reports whether the location is one the daemon manages itself.
func (l *Location) Reserved() bool {
	return common.IsReservedLocation(l.handle.Name)
}

// IsNoNet reports whether this is the "no network" pseudo-location.
func (l *Location) IsNoNet() bool {
	return l.handle.Name == common.NoNetLocation
}

// Active reports whether the daemon has the location (online, active).
func (l *Location) Active() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.onlineLocked(daemon.AuxActive)
}

func (l *Location) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

func (l *Location) SetEnabled(v bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enabled == v {
		return false
	}
	l.enabled = v
	l.markEdited(daemon.PropEnabled)
	return true
}

func (l *Location) ActivationMode() ActivationMode {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.activation
}

func (l *Location) SetActivationMode(m ActivationMode) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.activation == m {
		return false
	}
	l.activation = m
	l.markEdited(daemon.PropActivationMode)
	return true
}

// Conditions returns a copy of the activation conditions.
func (l *Location) Conditions() []*Condition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyConditions(l.conditions)
}

func (l *Location) SetConditions(list []*Condition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conditions = copyConditions(list)
	l.markEdited(daemon.PropConditions)
}

// Property reads an opaque property.
func (l *Location) Property(name string) (daemon.Value, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.bag[name]
	if !ok {
		return daemon.Value{}, common.ErrNoValue
	}
	return v, nil
}

// SetProperty edits an opaque property.
func (l *Location) SetProperty(name string, v daemon.Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bag[name] = v
	l.markEdited(name)
}

func (l *Location) encode() daemon.Properties {
	props := l.bag.Clone()
	if props == nil {
		props = daemon.Properties{}
	}
	l.rules.encode(props)
	return props
}

func (l *Location) decode(props daemon.Properties, skip map[string]bool) []string {
	changed := l.rules.decode(l.handle.Name, props, skip)
	for name, v := range props {
		switch name {
		case daemon.PropEnabled, daemon.PropActivationMode, daemon.PropConditions:
			continue
		}
		if skip[name] {
			continue
		}
		if old, ok := l.bag[name]; !ok || !old.Equal(v) {
			l.bag[name] = v
			changed = append(changed, name)
		}
	}
	for name := range l.bag {
		if _, ok := props[name]; ok || skip[name] {
			continue
		}
		delete(l.bag, name)
		changed = append(changed, name)
	}
	return changed
}

func (l *Location) Commit(ctx context.Context, c daemon.Client) error {
	return commitObject(ctx, c, l)
}

func (l *Location) Reload(ctx context.Context, c daemon.Client) ([]string, error) {
	return reloadObject(ctx, c, l)
}

// Destroy removes the location. Reserved locations cannot be destroyed.
func (l *Location) Destroy(ctx context.Context, c daemon.Client) error {
	if l.Reserved() {
		return errReserved(l.handle.Name)
	}
	return destroyObject(ctx, c, l)
}

// Toggle enables or disables the location on the daemon.
func (l *Location) Toggle(ctx context.Context, c daemon.Client, on bool) (bool, error) {
	return toggle(ctx, c, &l.base, &l.enabled, on)
}
