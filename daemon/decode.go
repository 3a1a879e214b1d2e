package daemon

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/nwam-agent/common"
)

// Event signal fields.
const (
	fieldObjectType    = "object-type"
	fieldName          = "name"
	fieldParent        = "parent"
	fieldAction        = "action"
	fieldState         = "state"
	fieldAuxState      = "aux-state"
	fieldPriorityGroup = "priority-group"
	fieldMessage       = "message"
	fieldLink          = "link"
	fieldConnected     = "connected"
	fieldWLANs         = "wlans"

	wlanESSID    = "essid"
	wlanBSSID    = "bssid"
	wlanSecurity = "security-mode"
	wlanSignal   = "signal"
	wlanChannel  = "channel"
	wlanSelected = "selected"
	wlanConnect  = "connected"
	wlanHaveKey  = "have-key"
)

// DecodeEvent builds an Event from an Event signal body: (u type, a{sv} fields).
// Unknown fields are ignored and unknown event types are passed through.
func DecodeEvent(body []interface{}) (*Event, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("empty event body")
	}
	code, ok := body[0].(uint32)
	if !ok {
		return nil, fmt.Errorf("event type is %T, want uint32", body[0])
	}

	ev := &Event{Type: EventType(code), Received: time.Now()}
	if len(body) < 2 {
		return ev, nil
	}
	fields, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("event fields are %T, want a{sv}", body[1])
	}

	ev.ObjectType = ObjectType(variantUint(fields, fieldObjectType))
	ev.Name = variantString(fields, fieldName)
	ev.Parent = variantString(fields, fieldParent)
	ev.Action = Action(variantUint(fields, fieldAction))
	ev.State = State(variantUint(fields, fieldState))
	ev.AuxState = AuxState(variantUint(fields, fieldAuxState))
	ev.PriorityGroup = variantInt(fields, fieldPriorityGroup)
	ev.Message = variantString(fields, fieldMessage)
	ev.Link = variantString(fields, fieldLink)
	ev.Connected = variantBool(fields, fieldConnected)

	if v, ok := fields[fieldWLANs]; ok {
		list, ok := v.Value().([]map[string]dbus.Variant)
		if !ok {
			return nil, fmt.Errorf("wlans are %s, want aa{sv}", v.Signature())
		}
		ev.WLANs = make([]WLAN, 0, len(list))
		for _, w := range list {
			ev.WLANs = append(ev.WLANs, decodeWLAN(w))
		}
	}
	return ev, nil
}

func decodeWLAN(m map[string]dbus.Variant) WLAN {
	w := WLAN{
		ESSID:     variantString(m, wlanESSID),
		BSSID:     variantString(m, wlanBSSID),
		Security:  SecurityMode(variantUint(m, wlanSecurity)),
		Channel:   uint32(variantUint(m, wlanChannel)),
		Selected:  variantBool(m, wlanSelected),
		Connected: variantBool(m, wlanConnect),
		HaveKey:   variantBool(m, wlanHaveKey),
	}
	if v, ok := m[wlanSignal]; ok {
		switch s := v.Value().(type) {
		case string:
			w.Signal = ParseSignalStrength(s)
		case uint32:
			w.Signal = SignalFromPercent(s)
		}
	}
	return w
}

func variantString(m map[string]dbus.Variant, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func variantBool(m map[string]dbus.Variant, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

func variantUint(m map[string]dbus.Variant, key string) uint64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.Value().(type) {
	case uint32:
		return uint64(n)
	case uint64:
		return n
	case int32:
		if n >= 0 {
			return uint64(n)
		}
	case int64:
		if n >= 0 {
			return uint64(n)
		}
	}
	return 0
}

func variantInt(m map[string]dbus.Variant, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.Value().(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	}
	return 0
}

// FromVariant converts a bus property value. An empty array becomes
// common.ErrNoValue so callers never see a guessed default.
func FromVariant(v dbus.Variant) (Value, error) {
	var val Value
	switch x := v.Value().(type) {
	case bool:
		val = BoolValue(x)
	case []bool:
		val = BoolValue(x...)
	case int32:
		val = Int64Value(int64(x))
	case int64:
		val = Int64Value(x)
	case []int64:
		val = Int64Value(x...)
	case uint32:
		val = Uint64Value(uint64(x))
	case uint64:
		val = Uint64Value(x)
	case []uint64:
		val = Uint64Value(x...)
	case string:
		val = StringValue(x)
	case []string:
		val = StringValue(x...)
	default:
		return Value{}, common.WrapError(common.ErrInvalidProperty, "unsupported signature "+v.Signature().String())
	}
	if val.Len() == 0 {
		return Value{}, common.ErrNoValue
	}
	return val, nil
}

// ToVariant converts a Value for the bus. Values are always sent as arrays.
func ToVariant(v Value) dbus.Variant {
	switch v.kind {
	case KindBool:
		return dbus.MakeVariant(append([]bool{}, v.bools...))
	case KindInt64:
		return dbus.MakeVariant(append([]int64{}, v.ints...))
	case KindUint64:
		return dbus.MakeVariant(append([]uint64{}, v.uints...))
	default:
		return dbus.MakeVariant(append([]string{}, v.strs...))
	}
}
