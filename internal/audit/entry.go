package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/roach88/recordsim/internal/ir"
)

// Action is the kind of change an entry records.
type Action int

const (
	ActionCreate Action = 1
	ActionUpdate Action = 2
	ActionDelete Action = 3
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "Create"
	case ActionUpdate:
		return "Update"
	case ActionDelete:
		return "Delete"
	}
	return "Unknown"
}

// Change is one attribute's old and new value. Old is Null on create and
// New is Null on delete.
type Change struct {
	Attribute string
	Old       ir.Value
	New       ir.Value
}

// Entry is one audited write.
type Entry struct {
	ID        ulid.ULID
	Seq       int64
	Action    Action
	Operation string
	Target    ir.Reference
	UserID    uuid.UUID
	CreatedOn time.Time
	Changes   []Change
}

// Change returns the change recorded for attribute, matched
// case-insensitively.
func (e Entry) Change(attribute string) (Change, bool) {
	k := ir.Key(attribute)
	for _, c := range e.Changes {
		if ir.Key(c.Attribute) == k {
			return c, true
		}
	}
	return Change{}, false
}

// Diff lists the attributes that differ between before and after, in the
// attribute order of after followed by attributes only before carries.
// Either side may be nil.
func Diff(before, after *ir.Record) []Change {
	var out []Change
	seen := make(map[string]bool)
	if after != nil {
		for _, a := range after.Attributes() {
			seen[ir.Key(a.Name)] = true
			old := before.Value(a.Name)
			if same(old, a.Value) {
				continue
			}
			out = append(out, Change{Attribute: a.Name, Old: old, New: a.Value})
		}
	}
	if before != nil {
		for _, a := range before.Attributes() {
			if seen[ir.Key(a.Name)] || ir.IsNull(a.Value) {
				continue
			}
			out = append(out, Change{Attribute: a.Name, Old: a.Value, New: ir.Null{}})
		}
	}
	return out
}

// same treats two nulls as equal, unlike ir.Equal.
func same(a, b ir.Value) bool {
	if ir.IsNull(a) || ir.IsNull(b) {
		return ir.IsNull(a) && ir.IsNull(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	pa, errA := ir.MarshalCanonical(encodeValue(a))
	pb, errB := ir.MarshalCanonical(encodeValue(b))
	return errA == nil && errB == nil && string(pa) == string(pb)
}
