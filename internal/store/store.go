package store

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/identity"
	"github.com/roach88/recordsim/internal/ir"
)

// House-keeping attribute names.
const (
	AttrCreatedOn  = "createdon"
	AttrModifiedOn = "modifiedon"
	AttrCreatedBy  = "createdby"
	AttrModifiedBy = "modifiedby"
	AttrOwnerID    = "ownerid"
)

type entry struct {
	rec *ir.Record
	seq int64
}

type table struct {
	name  string
	byID  map[uuid.UUID]*entry
	order []uuid.UUID
}

// Store is the in-memory record store. It is not safe for concurrent use.
type Store struct {
	tables map[string]*table
	names  []string

	seq       Sequence
	clock     Clock
	ids       IDGenerator
	identity  identity.Provider
	primaryID func(logicalName string) string
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for createdon/modifiedon.
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithIDs sets the generator used for records created without an id.
func WithIDs(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithIdentity sets the provider used for createdby/modifiedby/ownerid.
func WithIdentity(p identity.Provider) Option {
	return func(s *Store) {
		s.identity = p
	}
}

// WithPrimaryID sets the function resolving an entity's primary id
// attribute. The default is "<logicalname>id".
func WithPrimaryID(fn func(string) string) Option {
	return func(s *Store) {
		s.primaryID = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tables:    make(map[string]*table),
		clock:     SystemClock{},
		ids:       UUIDv7Generator{},
		identity:  identity.NewStatic(identity.Caller{}),
		primaryID: func(n string) string { return n + "id" },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a clone of rec with house-keeping stamps and returns its id.
// A nil id is replaced by a generated one.
func (s *Store) Create(rec *ir.Record) (uuid.UUID, error) {
	return s.insert(rec, true)
}

// Seed inserts a clone of rec without house-keeping stamps.
func (s *Store) Seed(rec *ir.Record) (uuid.UUID, error) {
	return s.insert(rec, false)
}

func (s *Store) insert(rec *ir.Record, stamp bool) (uuid.UUID, error) {
	c := rec.Clone()
	if c.ID == uuid.Nil {
		c.ID = s.idFromPrimaryAttribute(c)
	}
	if c.ID == uuid.Nil {
		c.ID = s.ids.NewID()
	}

	t := s.table(c.LogicalName)
	if _, exists := t.byID[c.ID]; exists {
		return uuid.Nil, fault.NewDuplicateID(c.LogicalName, c.ID.String())
	}

	c.Set(s.primaryID(c.LogicalName), ir.GUID(c.ID))
	if stamp {
		now := ir.NewDateTime(s.clock.Now())
		user := s.identity.Caller().UserRef()
		setDefault(c, AttrCreatedOn, now)
		setDefault(c, AttrModifiedOn, now)
		setDefault(c, AttrCreatedBy, user)
		setDefault(c, AttrModifiedBy, user)
		setDefault(c, AttrOwnerID, user)
	}

	t.byID[c.ID] = &entry{rec: c, seq: s.seq.Next()}
	t.order = append(t.order, c.ID)
	s.logger.Debug("record created",
		"entity", c.LogicalName,
		"id", c.ID,
		"stamped", stamp)
	return c.ID, nil
}

// IDOf returns the id a write of r addresses: r.ID, or the GUID held in
// the primary id attribute when r.ID is nil.
func (s *Store) IDOf(r *ir.Record) uuid.UUID {
	if r.ID != uuid.Nil {
		return r.ID
	}
	return s.idFromPrimaryAttribute(r)
}

// idFromPrimaryAttribute lets callers supply the id through the primary id
// attribute instead of Record.ID.
func (s *Store) idFromPrimaryAttribute(r *ir.Record) uuid.UUID {
	switch v := ir.Unwrap(r.Value(s.primaryID(r.LogicalName))).(type) {
	case ir.GUID:
		return uuid.UUID(v)
	case ir.String:
		if id, err := uuid.Parse(string(v)); err == nil {
			return id
		}
	}
	return uuid.Nil
}

// Retrieve returns a clone of the referenced record projected to columns.
// A nil columns slice returns every attribute. The primary id is always
// included.
func (s *Store) Retrieve(ref ir.Reference, columns []string) (*ir.Record, error) {
	e, err := s.lookup(ref)
	if err != nil {
		return nil, err
	}
	if columns == nil {
		return e.rec.Clone(), nil
	}
	names := append([]string{s.primaryID(ref.LogicalName)}, columns...)
	return e.rec.Project(names), nil
}

// Update merges the attributes of partial into the stored record.
// Attributes not present on partial are kept. The primary id cannot change.
func (s *Store) Update(partial *ir.Record) error {
	ref := ir.NewReference(partial.LogicalName, s.IDOf(partial))
	e, err := s.lookup(ref)
	if err != nil {
		return err
	}
	c := partial.Clone()
	c.Remove(s.primaryID(partial.LogicalName))
	setDefault(c, AttrModifiedOn, ir.NewDateTime(s.clock.Now()))
	setDefault(c, AttrModifiedBy, s.identity.Caller().UserRef())
	e.rec.Merge(c)
	for k, v := range partial.Formatted {
		if e.rec.Formatted == nil {
			e.rec.Formatted = make(map[string]string)
		}
		e.rec.Formatted[k] = v
	}
	s.logger.Debug("record updated",
		"entity", ref.LogicalName,
		"id", ref.ID,
		"attributes", partial.Len())
	return nil
}

// Delete removes the referenced record.
func (s *Store) Delete(ref ir.Reference) error {
	if _, err := s.lookup(ref); err != nil {
		return err
	}
	t := s.tables[ir.Key(ref.LogicalName)]
	delete(t.byID, ref.ID)
	for i, id := range t.order {
		if id == ref.ID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	s.logger.Debug("record deleted", "entity", ref.LogicalName, "id", ref.ID)
	return nil
}

// Enumerate returns clones of every record of a logical name in insertion
// order. An unknown logical name yields an empty slice.
func (s *Store) Enumerate(logicalName string) []*ir.Record {
	t, ok := s.tables[ir.Key(logicalName)]
	if !ok {
		return nil
	}
	out := make([]*ir.Record, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id].rec.Clone())
	}
	return out
}

// Exists reports whether the referenced record is stored.
func (s *Store) Exists(ref ir.Reference) bool {
	_, err := s.lookup(ref)
	return err == nil
}

// Count returns the number of records of a logical name.
func (s *Store) Count(logicalName string) int {
	if t, ok := s.tables[ir.Key(logicalName)]; ok {
		return len(t.order)
	}
	return 0
}

// Names returns the logical names that have ever held a record, in order of
// first insertion.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.names))
	for _, k := range s.names {
		out = append(out, s.tables[k].name)
	}
	return out
}

// Seq returns the insertion sequence number of a record, or 0 if absent.
func (s *Store) Seq(ref ir.Reference) int64 {
	if e, err := s.lookup(ref); err == nil {
		return e.seq
	}
	return 0
}

// PrimaryID returns the primary id attribute name for a logical name.
func (s *Store) PrimaryID(logicalName string) string {
	return s.primaryID(logicalName)
}

func (s *Store) lookup(ref ir.Reference) (*entry, error) {
	t, ok := s.tables[ir.Key(ref.LogicalName)]
	if !ok {
		return nil, fault.NewNotFound(ref.LogicalName, ref.ID.String())
	}
	e, ok := t.byID[ref.ID]
	if !ok {
		return nil, fault.NewNotFound(ref.LogicalName, ref.ID.String())
	}
	return e, nil
}

func (s *Store) table(logicalName string) *table {
	k := ir.Key(logicalName)
	t, ok := s.tables[k]
	if !ok {
		t = &table{name: logicalName, byID: make(map[uuid.UUID]*entry)}
		s.tables[k] = t
		s.names = append(s.names, k)
	}
	return t
}

func setDefault(r *ir.Record, name string, v ir.Value) {
	if !r.Has(name) {
		r.Set(name, v)
	}
}
