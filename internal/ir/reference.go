package ir

import (
	"fmt"

	"github.com/google/uuid"
)

// Reference is a weak pointer to a record: it never owns the target and the
// target is not guaranteed to exist.
type Reference struct {
	LogicalName string
	ID          uuid.UUID
	Name        string // Display name (optional)
}

func (Reference) Kind() Kind { return KindReference }
func (Reference) irValue()   {}

// NewReference creates a Reference without a display name.
func NewReference(logicalName string, id uuid.UUID) Reference {
	return Reference{LogicalName: logicalName, ID: id}
}

// String renders the reference as "logicalname(id)".
func (r Reference) String() string {
	return fmt.Sprintf("%s(%s)", r.LogicalName, r.ID)
}

// Same reports whether two references point at the same record.
// Display names are ignored; logical names compare case-insensitively.
func (r Reference) Same(other Reference) bool {
	return r.ID == other.ID && Key(r.LogicalName) == Key(other.LogicalName)
}

// IsZero reports whether the reference has neither a logical name nor an id.
func (r Reference) IsZero() bool {
	return r.LogicalName == "" && r.ID == uuid.Nil
}

// ReferenceCollection is an ordered list of references (party lists,
// membership sets).
type ReferenceCollection []Reference

func (ReferenceCollection) Kind() Kind { return KindReferenceCollection }
func (ReferenceCollection) irValue()   {}

// Contains reports whether the collection holds a reference to the same record.
func (c ReferenceCollection) Contains(ref Reference) bool {
	for _, r := range c {
		if r.Same(ref) {
			return true
		}
	}
	return false
}
