package daemon

import (
	"fmt"
	"strings"
)

// ValueKind is the element type of a property value.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindBool
	KindInt64
	KindUint64
	KindString
)

// Value is a typed, possibly multi-valued daemon property.
// The zero Value holds nothing.
type Value struct {
	kind  ValueKind
	bools []bool
	ints  []int64
	uints []uint64
	strs  []string
}

// Properties is a set of named values for one object.
type Properties map[string]Value

func BoolValue(v ...bool) Value {
	return Value{kind: KindBool, bools: append([]bool(nil), v...)}
}

func Int64Value(v ...int64) Value {
	return Value{kind: KindInt64, ints: append([]int64(nil), v...)}
}

func Uint64Value(v ...uint64) Value {
	return Value{kind: KindUint64, uints: append([]uint64(nil), v...)}
}

func StringValue(v ...string) Value {
	return Value{kind: KindString, strs: append([]string(nil), v...)}
}

// Kind returns the element type.
func (v Value) Kind() ValueKind { return v.kind }

// Len returns the number of elements.
func (v Value) Len() int {
	switch v.kind {
	case KindBool:
		return len(v.bools)
	case KindInt64:
		return len(v.ints)
	case KindUint64:
		return len(v.uints)
	case KindString:
		return len(v.strs)
	}
	return 0
}

// Bool returns the first element if the value is a non-empty bool.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool || len(v.bools) == 0 {
		return false, false
	}
	return v.bools[0], true
}

// Int64 returns the first element, widening unsigned values that fit.
func (v Value) Int64() (int64, bool) {
	switch {
	case v.kind == KindInt64 && len(v.ints) > 0:
		return v.ints[0], true
	case v.kind == KindUint64 && len(v.uints) > 0 && v.uints[0] <= 1<<63-1:
		return int64(v.uints[0]), true
	}
	return 0, false
}

// Uint64 returns the first element, accepting non-negative signed values.
func (v Value) Uint64() (uint64, bool) {
	switch {
	case v.kind == KindUint64 && len(v.uints) > 0:
		return v.uints[0], true
	case v.kind == KindInt64 && len(v.ints) > 0 && v.ints[0] >= 0:
		return uint64(v.ints[0]), true
	}
	return 0, false
}

// Text returns the first element of a string value.
func (v Value) Text() (string, bool) {
	if v.kind != KindString || len(v.strs) == 0 {
		return "", false
	}
	return v.strs[0], true
}

// Strings returns a copy of all elements of a string value.
func (v Value) Strings() ([]string, bool) {
	if v.kind != KindString {
		return nil, false
	}
	return append([]string(nil), v.strs...), true
}

// Equal reports whether two values have the same kind and elements.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.Len() != o.Len() {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		switch v.kind {
		case KindBool:
			if v.bools[i] != o.bools[i] {
				return false
			}
		case KindInt64:
			if v.ints[i] != o.ints[i] {
				return false
			}
		case KindUint64:
			if v.uints[i] != o.uints[i] {
				return false
			}
		case KindString:
			if v.strs[i] != o.strs[i] {
				return false
			}
		}
	}
	return true
}

// Format renders the value for display.
func (v Value) Format() string {
	parts := make([]string, 0, v.Len())
	switch v.kind {
	case KindBool:
		for _, b := range v.bools {
			parts = append(parts, fmt.Sprint(b))
		}
	case KindInt64:
		for _, i := range v.ints {
			parts = append(parts, fmt.Sprint(i))
		}
	case KindUint64:
		for _, u := range v.uints {
			parts = append(parts, fmt.Sprint(u))
		}
	case KindString:
		parts = append(parts, v.strs...)
	}
	return strings.Join(parts, ",")
}

// Clone returns a deep copy of the property set.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
