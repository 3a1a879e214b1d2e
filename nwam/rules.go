package nwam

import (
	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// rules is the activation state shared by locations and modifiers.
type rules struct {
	activation ActivationMode
	enabled    bool
	conditions []*Condition
}

func (r *rules) encode(props daemon.Properties) {
	props[daemon.PropEnabled] = daemon.BoolValue(r.enabled)
	props[daemon.PropActivationMode] = daemon.Uint64Value(uint64(r.activation))
	if len(r.conditions) > 0 {
		props[daemon.PropConditions] = daemon.StringValue(FormatConditions(r.conditions)...)
	}
}

func (r *rules) decode(owner string, props daemon.Properties, skip map[string]bool) []string {
	var changed []string

	if v, ok := readBool(props, daemon.PropEnabled); ok && !skip[daemon.PropEnabled] && v != r.enabled {
		r.enabled = v
		changed = append(changed, daemon.PropEnabled)
	}
	if v, ok := readUint(props, daemon.PropActivationMode); ok && !skip[daemon.PropActivationMode] {
		if m := ActivationMode(v); m != r.activation {
			r.activation = m
			changed = append(changed, daemon.PropActivationMode)
		}
	}
	if !skip[daemon.PropConditions] {
		list, _ := readStrings(props, daemon.PropConditions)
		conds, errs := ParseConditions(list)
		for _, err := range errs {
			common.LogWarn("%s: dropping condition: %v", owner, err)
		}
		if !sameConditions(conds, r.conditions) {
			r.conditions = conds
			changed = append(changed, daemon.PropConditions)
		}
	}
	return changed
}

func sameConditions(a, b []*Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if *a[i] != *b[i] {
			return false
		}
	}
	return true
}

func copyConditions(list []*Condition) []*Condition {
	out := make([]*Condition, len(list))
	for i, c := range list {
		cp := *c
		out[i] = &cp
	}
	return out
}
