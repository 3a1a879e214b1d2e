package nwam

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// ConditionField is the subject of a condition.
type ConditionField int

const (
	FieldConnection ConditionField = iota
	FieldModifier
	FieldLocation
	FieldIPAddress
	FieldAdvertisedDomain
	FieldSystemDomain
	FieldESSID
	FieldBSSID
)

var fieldNames = []string{
	"ncu",
	"enm",
	"loc",
	"ip-address",
	"advertised-domain",
	"system-domain",
	"essid",
	"bssid",
}

func (f ConditionField) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

// ObjectType returns the daemon type referenced by object fields.
func (f ConditionField) ObjectType() (daemon.ObjectType, bool) {
	switch f {
	case FieldConnection:
		return daemon.ObjectNCU, true
	case FieldModifier:
		return daemon.ObjectENM, true
	case FieldLocation:
		return daemon.ObjectLocation, true
	}
	return daemon.ObjectUnknown, false
}

// ConditionOp is a condition operator.
type ConditionOp int

const (
	OpIs ConditionOp = iota
	OpIsNot
	OpInclude
	OpExclude
	OpInRange
	OpNotInRange
	OpContains
	OpDoesNotContain
)

var opNames = []string{
	"is",
	"is-not",
	"include",
	"exclude",
	"is-in-range",
	"is-not-in-range",
	"contains",
	"does-not-contain",
}

func (o ConditionOp) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return "unknown"
	}
	return opNames[o]
}

// allowedOps lists the operators each field accepts.
var allowedOps = map[ConditionField][]ConditionOp{
	FieldConnection:       {OpIs, OpIsNot},
	FieldModifier:         {OpIs, OpIsNot},
	FieldLocation:         {OpIs, OpIsNot},
	FieldIPAddress:        {OpIs, OpIsNot, OpInRange, OpNotInRange},
	FieldAdvertisedDomain: {OpIs, OpIsNot, OpInclude, OpExclude, OpContains, OpDoesNotContain},
	FieldSystemDomain:     {OpIs, OpIsNot, OpInclude, OpExclude, OpContains, OpDoesNotContain},
	FieldESSID:            {OpIs, OpIsNot, OpContains, OpDoesNotContain},
	FieldBSSID:            {OpIs, OpIsNot},
}

// Condition is one activation rule: "<field> <op> <value>".
type Condition struct {
	Field ConditionField
	Op    ConditionOp
	Value string
}

// Resolver finds objects referenced by object-typed conditions.
type Resolver interface {
	FindObject(t daemon.ObjectType, name string) (Object, bool)
}

// NewCondition validates and builds a condition.
func NewCondition(field ConditionField, op ConditionOp, value string) (*Condition, error) {
	c := &Condition{Field: field, Op: op, Value: strings.TrimSpace(value)}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseCondition parses the daemon condition grammar. The value is the
// rest of the string after the operator and may contain spaces.
func ParseCondition(s string) (*Condition, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidCondition, s)
	}

	field, ok := lookup(fieldNames, parts[0])
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", common.ErrInvalidCondition, parts[0])
	}
	op, ok := lookup(opNames, parts[1])
	if !ok {
		return nil, fmt.Errorf("%w: unknown operator %q", common.ErrInvalidCondition, parts[1])
	}
	return NewCondition(ConditionField(field), ConditionOp(op), parts[2])
}

func lookup(names []string, s string) (int, bool) {
	for i, n := range names {
		if n == s {
			return i, true
		}
	}
	return 0, false
}

// Validate checks the operator against the field and the value's syntax.
func (c *Condition) Validate() error {
	ops, ok := allowedOps[c.Field]
	if !ok {
		return fmt.Errorf("%w: unknown field %d", common.ErrInvalidCondition, c.Field)
	}
	if !containsOp(ops, c.Op) {
		return fmt.Errorf("%w: %s does not accept %s", common.ErrInvalidCondition, c.Field, c.Op)
	}
	if c.Value == "" {
		return fmt.Errorf("%w: empty value", common.ErrInvalidCondition)
	}

	switch c.Field {
	case FieldIPAddress:
		if c.Op == OpInRange || c.Op == OpNotInRange {
			if _, err := netip.ParsePrefix(c.Value); err != nil {
				return fmt.Errorf("%w: bad range %q", common.ErrInvalidCondition, c.Value)
			}
		} else if _, err := netip.ParseAddr(c.Value); err != nil {
			return fmt.Errorf("%w: bad address %q", common.ErrInvalidCondition, c.Value)
		}
	case FieldBSSID:
		if _, err := net.ParseMAC(c.Value); err != nil {
			return fmt.Errorf("%w: bad bssid %q", common.ErrInvalidCondition, c.Value)
		}
	case FieldConnection, FieldModifier, FieldLocation:
		if !common.ValidObjectName(c.Value) {
			return fmt.Errorf("%w: bad object name %q", common.ErrInvalidCondition, c.Value)
		}
	}
	return nil
}

func containsOp(ops []ConditionOp, op ConditionOp) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

// String serializes the condition in daemon grammar.
func (c *Condition) String() string {
	return c.Field.String() + " " + c.Op.String() + " " + c.Value
}

// Resolve returns the object an object-typed condition refers to. The
// reference is weak; a missing object is not an error.
func (c *Condition) Resolve(r Resolver) (Object, bool) {
	t, ok := c.Field.ObjectType()
	if !ok || r == nil {
		return nil, false
	}
	return r.FindObject(t, c.Value)
}

// ParseConditions parses a list, dropping invalid entries. The dropped
// strings are returned with their errors for logging.
func ParseConditions(list []string) ([]*Condition, []error) {
	var out []*Condition
	var errs []error
	for _, s := range list {
		c, err := ParseCondition(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errs
}

// FormatConditions serializes a list.
func FormatConditions(list []*Condition) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.String())
	}
	return out
}
