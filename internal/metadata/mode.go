package metadata

import "strings"

// Mode selects which integrity checks run on writes.
type Mode uint8

const (
	// ModeOff disables every check (permissive mode).
	ModeOff Mode = 0

	// ModeReferences checks that reference targets exist.
	ModeReferences Mode = 1 << 0

	// ModeTypes checks value kinds against attribute metadata.
	ModeTypes Mode = 1 << 1

	// ModeBoth enables both checks.
	ModeBoth = ModeReferences | ModeTypes
)

// References reports whether reference checks are enabled.
func (m Mode) References() bool { return m&ModeReferences != 0 }

// Types reports whether type checks are enabled.
func (m Mode) Types() bool { return m&ModeTypes != 0 }

func (m Mode) String() string {
	if m == ModeOff {
		return "off"
	}
	var parts []string
	if m.References() {
		parts = append(parts, "references")
	}
	if m.Types() {
		parts = append(parts, "types")
	}
	return strings.Join(parts, "+")
}

// IntegrityOptions is the caller-facing configuration of integrity checks.
type IntegrityOptions struct {
	ValidateEntityReferences bool `yaml:"validate_entity_references" json:"validate_entity_references"`
	ValidateAttributeTypes   bool `yaml:"validate_attribute_types" json:"validate_attribute_types"`
}

// Mode converts the options to a Mode bit set.
func (o IntegrityOptions) Mode() Mode {
	var m Mode
	if o.ValidateEntityReferences {
		m |= ModeReferences
	}
	if o.ValidateAttributeTypes {
		m |= ModeTypes
	}
	return m
}
