package metadata

import (
	"fmt"
	"slices"

	"github.com/roach88/recordsim/internal/ir"
)

// AttributeType is the declared type of an attribute.
type AttributeType int

const (
	TypeString AttributeType = iota
	TypeMemo
	TypeInteger
	TypeBigInt
	TypeDecimal
	TypeDouble
	TypeMoney
	TypeBoolean
	TypeDateTime
	TypeUniqueIdentifier
	TypePicklist
	TypeState
	TypeStatus
	TypeLookup
	TypeCustomer
	TypeOwner
	TypePartyList
	TypeVirtual
)

var typeNames = []string{
	TypeString:           "string",
	TypeMemo:             "memo",
	TypeInteger:          "integer",
	TypeBigInt:           "bigint",
	TypeDecimal:          "decimal",
	TypeDouble:           "double",
	TypeMoney:            "money",
	TypeBoolean:          "boolean",
	TypeDateTime:         "datetime",
	TypeUniqueIdentifier: "uniqueidentifier",
	TypePicklist:         "picklist",
	TypeState:            "state",
	TypeStatus:           "status",
	TypeLookup:           "lookup",
	TypeCustomer:         "customer",
	TypeOwner:            "owner",
	TypePartyList:        "partylist",
	TypeVirtual:          "virtual",
}

func (t AttributeType) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseAttributeType resolves a lower-case type name.
func ParseAttributeType(name string) (AttributeType, error) {
	if i := slices.Index(typeNames, ir.Key(name)); i >= 0 {
		return AttributeType(i), nil
	}
	return 0, fmt.Errorf("unknown attribute type %q", name)
}

// IsReference reports whether values of this type point at other records.
func (t AttributeType) IsReference() bool {
	switch t {
	case TypeLookup, TypeCustomer, TypeOwner, TypePartyList:
		return true
	}
	return false
}

// HasOptions reports whether the type is backed by an option set.
func (t AttributeType) HasOptions() bool {
	switch t {
	case TypePicklist, TypeState, TypeStatus:
		return true
	}
	return false
}

// Option is one value of an option set.
type Option struct {
	Value int    `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// OptionSet is an ordered list of options. A set with a Name and Global
// set is shared between attributes through the repository.
type OptionSet struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Global  bool     `json:"global,omitempty" yaml:"global,omitempty"`
	Options []Option `json:"options" yaml:"options"`
}

// Find returns the option with the given value.
func (s *OptionSet) Find(value int) (*Option, bool) {
	for i := range s.Options {
		if s.Options[i].Value == value {
			return &s.Options[i], true
		}
	}
	return nil, false
}

func (s *OptionSet) clone() *OptionSet {
	if s == nil {
		return nil
	}
	c := *s
	c.Options = slices.Clone(s.Options)
	return &c
}

// AttributeMetadata describes a single attribute.
type AttributeMetadata struct {
	LogicalName string        `json:"name" yaml:"name"`
	Type        AttributeType `json:"type" yaml:"type"`
	Required    bool          `json:"required,omitempty" yaml:"required,omitempty"`

	// OptionSet is set for picklist, state and status attributes.
	OptionSet *OptionSet `json:"options,omitempty" yaml:"options,omitempty"`

	// Targets lists the entities a lookup may reference.
	Targets []string `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// EntityMetadata describes an entity and its attributes.
type EntityMetadata struct {
	LogicalName          string              `json:"name" yaml:"name"`
	PrimaryIDAttribute   string              `json:"primary_id" yaml:"primary_id"`
	PrimaryNameAttribute string              `json:"primary_name,omitempty" yaml:"primary_name,omitempty"`
	Attributes           []AttributeMetadata `json:"attributes" yaml:"attributes"`
}

// Attribute finds an attribute by case-insensitive name.
func (e *EntityMetadata) Attribute(name string) (*AttributeMetadata, bool) {
	k := ir.Key(name)
	for i := range e.Attributes {
		if ir.Key(e.Attributes[i].LogicalName) == k {
			return &e.Attributes[i], true
		}
	}
	return nil, false
}

// AttributeNames returns the attribute names in declaration order.
func (e *EntityMetadata) AttributeNames() []string {
	out := make([]string, len(e.Attributes))
	for i, a := range e.Attributes {
		out[i] = a.LogicalName
	}
	return out
}

// Clone returns a deep copy.
func (e EntityMetadata) Clone() EntityMetadata {
	c := e
	c.Attributes = make([]AttributeMetadata, len(e.Attributes))
	for i, a := range e.Attributes {
		a.OptionSet = a.OptionSet.clone()
		a.Targets = slices.Clone(a.Targets)
		c.Attributes[i] = a
	}
	return c
}

// DefaultPrimaryID returns the conventional primary id attribute name.
func DefaultPrimaryID(logicalName string) string {
	return logicalName + "id"
}

// MarshalText renders the type name (used by JSON and YAML).
func (t AttributeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a type name (used by JSON and YAML).
func (t *AttributeType) UnmarshalText(b []byte) error {
	parsed, err := ParseAttributeType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
