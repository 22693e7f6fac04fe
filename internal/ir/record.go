package ir

import (
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Key folds an attribute or logical name for case-insensitive lookup.
// A new Caser is created per call because Casers carry state.
func Key(name string) string {
	return cases.Fold().String(name)
}

// Attribute is a named value as exposed by Record.Attributes.
type Attribute struct {
	Name  string
	Value Value
}

// Record is an attribute bag identified by (LogicalName, ID).
//
// Attribute names are matched case-insensitively; the spelling used on first
// Set is preserved for output. Iteration order is insertion order.
type Record struct {
	LogicalName string
	ID          uuid.UUID

	// Formatted holds display strings keyed by attribute name (optional).
	Formatted map[string]string

	attrs map[string]*Attribute // folded name -> attribute
	order []string              // folded names in insertion order
}

// NewRecord creates an empty record.
func NewRecord(logicalName string, id uuid.UUID) *Record {
	return &Record{
		LogicalName: logicalName,
		ID:          id,
		attrs:       make(map[string]*Attribute),
	}
}

// Set assigns an attribute, replacing any value stored under the same folded
// name. A nil value is stored as Null. Returns the record for chaining.
func (r *Record) Set(name string, v Value) *Record {
	if r.attrs == nil {
		r.attrs = make(map[string]*Attribute)
	}
	if v == nil {
		v = Null{}
	}
	k := Key(name)
	if a, ok := r.attrs[k]; ok {
		a.Value = v
		return r
	}
	r.attrs[k] = &Attribute{Name: name, Value: v}
	r.order = append(r.order, k)
	return r
}

// Get returns the attribute value and whether it is present.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil || r.attrs == nil {
		return nil, false
	}
	a, ok := r.attrs[Key(name)]
	if !ok {
		return nil, false
	}
	return a.Value, true
}

// Value returns the attribute value, or Null when absent.
func (r *Record) Value(name string) Value {
	if v, ok := r.Get(name); ok {
		return v
	}
	return Null{}
}

// Has reports whether the attribute is present (even if Null).
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Remove deletes an attribute. Removing an absent attribute is a no-op.
func (r *Record) Remove(name string) {
	if r.attrs == nil {
		return
	}
	k := Key(name)
	if _, ok := r.attrs[k]; !ok {
		return
	}
	delete(r.attrs, k)
	for i, o := range r.order {
		if o == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of attributes.
func (r *Record) Len() int {
	return len(r.order)
}

// Attributes returns the attributes in insertion order.
func (r *Record) Attributes() []Attribute {
	out := make([]Attribute, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, *r.attrs[k])
	}
	return out
}

// Names returns the attribute names in insertion order.
func (r *Record) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.attrs[k].Name)
	}
	return out
}

// Reference returns a reference to this record.
func (r *Record) Reference() Reference {
	return Reference{LogicalName: r.LogicalName, ID: r.ID}
}

// Clone returns a deep copy. Reference collections are copied so the clone
// can be mutated independently.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := NewRecord(r.LogicalName, r.ID)
	for _, k := range r.order {
		a := r.attrs[k]
		c.Set(a.Name, cloneValue(a.Value))
	}
	if r.Formatted != nil {
		c.Formatted = make(map[string]string, len(r.Formatted))
		for k, v := range r.Formatted {
			c.Formatted[k] = v
		}
	}
	return c
}

// Merge copies every attribute of other onto r. Attributes of r that other
// does not mention are kept.
func (r *Record) Merge(other *Record) {
	for _, a := range other.Attributes() {
		r.Set(a.Name, cloneValue(a.Value))
	}
}

// Project returns a clone restricted to the named attributes.
// Names that are absent on r are skipped.
func (r *Record) Project(names []string) *Record {
	c := NewRecord(r.LogicalName, r.ID)
	for _, n := range names {
		if a, ok := r.attrs[Key(n)]; ok {
			c.Set(a.Name, cloneValue(a.Value))
		}
	}
	return c
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case ReferenceCollection:
		out := make(ReferenceCollection, len(val))
		copy(out, val)
		return out
	case Aliased:
		val.Value = cloneValue(val.Value)
		return val
	default:
		return v
	}
}
