package nwam

import (
	"context"
	"errors"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// Profile is a network configuration profile (NCP) and the connections it
// owns.
type Profile struct {
	base
	active        bool
	priorityGroup int64
	connections   *Store[*Connection]
}

// NewProfile returns an uncommitted profile.
func NewProfile(name string) *Profile {
	return &Profile{
		base:        newBase(daemon.Handle{Type: daemon.ObjectNCP, Name: name}),
		connections: NewStore[*Connection](nil),
	}
}

// IsAutomatic reports whether this is the distinguished automatic profile.
func (p *Profile) IsAutomatic() bool {
	return p.handle.Name == common.AutomaticProfile
}

func (p *Profile) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// SetActive marks the profile as the active one. It returns true on change.
func (p *Profile) SetActive(active bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == active {
		return false
	}
	p.active = active
	return true
}

// PriorityGroup is the group the daemon is currently activating.
func (p *Profile) PriorityGroup() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.priorityGroup
}

func (p *Profile) SetPriorityGroup(g int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.priorityGroup == g {
		return false
	}
	p.priorityGroup = g
	return true
}

// Connections returns the profile's connection store, keyed by device.
func (p *Profile) Connections() *Store[*Connection] {
	return p.connections
}

// FindConnection looks a connection up by device or typed name.
func (p *Profile) FindConnection(name string) (*Connection, bool) {
	if _, dev, err := daemon.ParseTypedName(name); err == nil {
		name = dev
	}
	return p.connections.Find(name)
}

// encode returns nothing; profiles carry no committable properties of
// their own.
func (p *Profile) encode() daemon.Properties {
	return daemon.Properties{}
}

func (p *Profile) decode(daemon.Properties, map[string]bool) []string {
	return nil
}

func (p *Profile) Commit(ctx context.Context, c daemon.Client) error {
	return commitObject(ctx, c, p)
}

// Reload refreshes the profile's state and the priority group the daemon
// is activating in it.
func (p *Profile) Reload(ctx context.Context, c daemon.Client) ([]string, error) {
	changed, err := reloadObject(ctx, c, p)
	if err != nil {
		return changed, err
	}
	group, err := c.ActivePriorityGroup(ctx, p.handle.Name)
	switch {
	case err == nil:
		if p.SetPriorityGroup(group) {
			changed = append(changed, daemon.PropPriorityGroup)
		}
	case errors.Is(err, common.ErrNoValue):
	case errors.Is(err, common.ErrObjectNotFound):
		return changed, err
	default:
		common.LogWarn("priority group of %s: %v", p.handle.Name, err)
	}
	return changed, nil
}

// Destroy removes the profile from the daemon. The automatic profile
// cannot be destroyed.
func (p *Profile) Destroy(ctx context.Context, c daemon.Client) error {
	if p.IsAutomatic() {
		return errReserved(p.handle.Name)
	}
	return destroyObject(ctx, c, p)
}
