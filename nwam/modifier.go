package nwam

import (
	"context"

	"github.com/yllada/nwam-agent/daemon"
)

// Modifier is an externally launched network modifying service (ENM),
// such as a VPN client.
type Modifier struct {
	base
	rules
	start string
	stop  string
	fmri  string
}

// NewModifier returns an uncommitted modifier.
func NewModifier(name string) *Modifier {
	return &Modifier{
		base: newBase(daemon.Handle{Type: daemon.ObjectENM, Name: name}),
	}
}

func (m *Modifier) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onlineLocked(daemon.AuxActive)
}

func (m *Modifier) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *Modifier) SetEnabled(v bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enabled == v {
		return false
	}
	m.enabled = v
	m.markEdited(daemon.PropEnabled)
	return true
}

func (m *Modifier) ActivationMode() ActivationMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activation
}

func (m *Modifier) SetActivationMode(a ActivationMode) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activation == a {
		return false
	}
	m.activation = a
	m.markEdited(daemon.PropActivationMode)
	return true
}

func (m *Modifier) Conditions() []*Condition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyConditions(m.conditions)
}

func (m *Modifier) SetConditions(list []*Condition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditions = copyConditions(list)
	m.markEdited(daemon.PropConditions)
}

// Commands returns the start and stop command lines.
func (m *Modifier) Commands() (start, stop string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.start, m.stop
}

func (m *Modifier) SetCommands(start, stop string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if start != m.start {
		m.start = start
		m.markEdited(daemon.PropENMStart)
	}
	if stop != m.stop {
		m.stop = stop
		m.markEdited(daemon.PropENMStop)
	}
}

// FMRI returns the service the modifier controls, if any.
func (m *Modifier) FMRI() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fmri
}

func (m *Modifier) encode() daemon.Properties {
	props := daemon.Properties{}
	m.rules.encode(props)
	if m.start != "" {
		props[daemon.PropENMStart] = daemon.StringValue(m.start)
	}
	if m.stop != "" {
		props[daemon.PropENMStop] = daemon.StringValue(m.stop)
	}
	if m.fmri != "" {
		props[daemon.PropENMFmri] = daemon.StringValue(m.fmri)
	}
	return props
}

func (m *Modifier) decode(props daemon.Properties, skip map[string]bool) []string {
	changed := m.rules.decode(m.handle.Name, props, skip)
	for name, field := range map[string]*string{
		daemon.PropENMStart: &m.start,
		daemon.PropENMStop:  &m.stop,
		daemon.PropENMFmri:  &m.fmri,
	} {
		if skip[name] {
			continue
		}
		v, _ := readText(props, name)
		if v != *field {
			*field = v
			changed = append(changed, name)
		}
	}
	return changed
}

func (m *Modifier) Commit(ctx context.Context, c daemon.Client) error {
	return commitObject(ctx, c, m)
}

func (m *Modifier) Reload(ctx context.Context, c daemon.Client) ([]string, error) {
	return reloadObject(ctx, c, m)
}

func (m *Modifier) Destroy(ctx context.Context, c daemon.Client) error {
	return destroyObject(ctx, c, m)
}

func (m *Modifier) Toggle(ctx context.Context, c daemon.Client, on bool) (bool, error) {
	return toggle(ctx, c, &m.base, &m.enabled, on)
}
