package executor

import (
	"context"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/store"
)

// Child names a dependent entity and the lookup that points at its parent.
type Child struct {
	Entity string
	Lookup string
}

// ReviseExecutor clones a parent record and its dependent children into
// new ids. The cloned children point at the new parent. The originals are
// left untouched.
type ReviseExecutor struct {
	Message  string
	Entity   string
	IDParam  string
	Children []Child

	// Counter, when set, names an integer attribute incremented on the
	// clone (revisionnumber on quotes).
	Counter string

	// Reset holds attribute values forced onto the new parent.
	Reset map[string]ir.Value
}

// CanExecute matches the configured message name.
func (r ReviseExecutor) CanExecute(req *message.Request) bool {
	return req.Name == r.Message
}

// Execute clones the parent and children and returns the new parent.
func (r ReviseExecutor) Execute(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	id, err := req.ID(r.IDParam)
	if err != nil {
		return nil, err
	}
	src, err := env.Store.Retrieve(ir.NewReference(r.Entity, id), nil)
	if err != nil {
		return nil, err
	}

	parent := r.fresh(src, env)
	if r.Counter != "" {
		if n, ok := src.Value(r.Counter).(ir.Int); ok {
			parent.Set(r.Counter, n+1)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(r.Reset)) {
		parent.Set(name, r.Reset[name])
	}
	newID, err := env.Create(parent)
	if err != nil {
		return nil, err
	}

	cloned := 0
	for _, child := range r.Children {
		for _, rec := range env.Store.Enumerate(child.Entity) {
			if !ir.Equal(rec.Value(child.Lookup), ir.GUID(id)) {
				continue
			}
			c := r.fresh(rec, env)
			c.Set(child.Lookup, ir.NewReference(r.Entity, newID))
			if _, err := env.Create(c); err != nil {
				return nil, err
			}
			cloned++
		}
	}
	env.logger().Debug("record revised",
		"entity", r.Entity,
		"from", id,
		"to", newID,
		"children", cloned)

	cs, err := req.Columns()
	if err != nil {
		return nil, err
	}
	var columns []string
	if !cs.All {
		columns = cs.Columns
	}
	out, err := env.Store.Retrieve(ir.NewReference(r.Entity, newID), columns)
	if err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name).
		Set(message.ResultID, newID).
		Set(message.ResultEntity, out), nil
}

// fresh copies rec without its id or house-keeping attributes so the
// store assigns and stamps them anew.
func (r ReviseExecutor) fresh(rec *ir.Record, env *Env) *ir.Record {
	c := rec.Clone()
	c.ID = uuid.Nil
	c.Remove(env.Store.PrimaryID(rec.LogicalName))
	for _, name := range []string{
		store.AttrCreatedOn, store.AttrModifiedOn,
		store.AttrCreatedBy, store.AttrModifiedBy,
	} {
		c.Remove(name)
	}
	return c
}

// ReviseQuote revises a quote and its quote details. The new quote is a
// draft with the revision number incremented.
var ReviseQuote = ReviseExecutor{
	Message:  message.ReviseQuote,
	Entity:   "quote",
	IDParam:  message.ParamQuoteID,
	Children: []Child{{Entity: "quotedetail", Lookup: "quoteid"}},
	Counter:  "revisionnumber",
	Reset: map[string]ir.Value{
		AttrStateCode:  ir.OptionSetValue(0),
		AttrStatusCode: ir.OptionSetValue(1),
	},
}
