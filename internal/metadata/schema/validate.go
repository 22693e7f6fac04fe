package schema

import (
	"fmt"

	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/metadata"
)

// Validation error codes (E100-E199)
const (
	ErrEntityNameEmpty     = "E101" // entity logical name is required
	ErrNoAttributes        = "E102" // at least one attribute is required
	ErrDuplicateAttribute  = "E103" // attribute names must be unique
	ErrPrimaryIDType       = "E104" // primary id must be a uniqueidentifier
	ErrPrimaryNameMissing  = "E105" // primary name attribute must be declared
	ErrOptionSetMissing    = "E106" // picklist/state/status needs an option set
	ErrDuplicateOption     = "E107" // option values must be unique
	ErrLookupTargets       = "E108" // lookup needs at least one target
	ErrUnknownTarget       = "E109" // lookup target is not a known entity
	ErrUnexpectedOptionSet = "E110" // option set on a non-option attribute
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Entity  string `json:"entity"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Entity, e.Field, e.Message)
}

// Validate checks a set of entities. Lookup targets are resolved against the
// set itself. Returns every error found.
func Validate(entities []metadata.EntityMetadata) []ValidationError {
	known := make(map[string]bool, len(entities))
	for _, e := range entities {
		known[ir.Key(e.LogicalName)] = true
	}
	var errs []ValidationError
	for i := range entities {
		errs = append(errs, validateEntity(&entities[i], known)...)
	}
	return errs
}

func validateEntity(e *metadata.EntityMetadata, known map[string]bool) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Entity:  e.LogicalName,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	if e.LogicalName == "" {
		add("name", ErrEntityNameEmpty, "logical name is required")
	}
	if len(e.Attributes) == 0 {
		add("attributes", ErrNoAttributes, "at least one attribute is required")
	}

	seen := make(map[string]bool, len(e.Attributes))
	for _, a := range e.Attributes {
		k := ir.Key(a.LogicalName)
		if seen[k] {
			add(a.LogicalName, ErrDuplicateAttribute, "duplicate attribute name")
		}
		seen[k] = true

		switch {
		case a.Type.HasOptions():
			if a.OptionSet == nil {
				add(a.LogicalName, ErrOptionSetMissing, "%s attribute requires an option set", a.Type)
			} else {
				values := make(map[int]bool, len(a.OptionSet.Options))
				for _, o := range a.OptionSet.Options {
					if values[o.Value] {
						add(a.LogicalName, ErrDuplicateOption, "duplicate option value %d", o.Value)
					}
					values[o.Value] = true
				}
			}
		case a.OptionSet != nil:
			add(a.LogicalName, ErrUnexpectedOptionSet, "%s attribute cannot have an option set", a.Type)
		}

		if a.Type == metadata.TypeLookup || a.Type == metadata.TypeCustomer {
			if len(a.Targets) == 0 {
				add(a.LogicalName, ErrLookupTargets, "%s attribute requires at least one target", a.Type)
			}
			for _, t := range a.Targets {
				if !known[ir.Key(t)] {
					add(a.LogicalName, ErrUnknownTarget, "target %s is not a declared entity", t)
				}
			}
		}
	}

	primaryID := e.PrimaryIDAttribute
	if primaryID == "" {
		primaryID = metadata.DefaultPrimaryID(e.LogicalName)
	}
	if a, ok := e.Attribute(primaryID); ok && a.Type != metadata.TypeUniqueIdentifier {
		add(primaryID, ErrPrimaryIDType, "primary id must be uniqueidentifier, got %s", a.Type)
	}
	if e.PrimaryNameAttribute != "" {
		if _, ok := e.Attribute(e.PrimaryNameAttribute); !ok {
			add(e.PrimaryNameAttribute, ErrPrimaryNameMissing, "primary name attribute is not declared")
		}
	}
	return errs
}
