package ir

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the closed set of attribute value kinds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindDateTime
	KindGUID
	KindOptionSet
	KindMoney
	KindReference
	KindReferenceCollection
	KindAliased
)

var kindNames = map[Kind]string{
	KindNull:                "null",
	KindString:              "string",
	KindInt:                 "int",
	KindFloat:               "float",
	KindBool:                "bool",
	KindDateTime:            "datetime",
	KindGUID:                "guid",
	KindOptionSet:           "optionset",
	KindMoney:               "money",
	KindReference:           "reference",
	KindReferenceCollection: "reference_collection",
	KindAliased:             "aliased",
}

// String returns the lower-case kind name used in faults and snapshots.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a sealed interface representing an attribute value.
// Only the types in this file implement it.
type Value interface {
	Kind() Kind
	irValue() // Sealed - only these types implement it
}

// Null represents an absent or cleared attribute value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) irValue()   {}

// String is a text value.
type String string

func (String) Kind() Kind { return KindString }
func (String) irValue()   {}

// Int is a whole-number value (integer and big-integer attributes).
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) irValue()   {}

// Float is a decimal or double value.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) irValue()   {}

// Bool is a two-option value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) irValue()   {}

// DateTime is a point in time. Times are normalized to UTC on construction.
type DateTime struct {
	Time time.Time
}

// NewDateTime returns a DateTime normalized to UTC.
func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t.UTC()}
}

func (DateTime) Kind() Kind { return KindDateTime }
func (DateTime) irValue()   {}

// GUID is a unique-identifier value that is not a reference.
type GUID uuid.UUID

func (GUID) Kind() Kind { return KindGUID }
func (GUID) irValue()   {}

// String returns the hyphenated form of the identifier.
func (g GUID) String() string { return uuid.UUID(g).String() }

// OptionSetValue is the integer value of a picklist, state or status option.
type OptionSetValue int

func (OptionSetValue) Kind() Kind { return KindOptionSet }
func (OptionSetValue) irValue()   {}

// Money is a currency amount.
type Money float64

func (Money) Kind() Kind { return KindMoney }
func (Money) irValue()   {}

// Aliased wraps a value that was projected from a joined record.
// EntityLogicalName and AttributeName identify where the value came from.
type Aliased struct {
	EntityLogicalName string
	AttributeName     string
	Value             Value
}

func (Aliased) Kind() Kind { return KindAliased }
func (Aliased) irValue()   {}

// ValueOf converts a plain Go value into a Value.
// Values already implementing Value are returned unchanged; nil becomes Null.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	case time.Time:
		return NewDateTime(val), nil
	case uuid.UUID:
		return GUID(val), nil
	case []Reference:
		return ReferenceCollection(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// MustValueOf is ValueOf that panics on unsupported input.
// Intended for literals in tests and seed data.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

// IsNull reports whether v is nil, Null, or an Aliased wrapper around null.
func IsNull(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return true
	case Aliased:
		return IsNull(val.Value)
	default:
		return false
	}
}

// Unwrap strips Aliased wrappers.
func Unwrap(v Value) Value {
	for {
		a, ok := v.(Aliased)
		if !ok {
			return v
		}
		v = a.Value
	}
}
