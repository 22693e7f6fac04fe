package message

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/query"
)

func TestRequestTypedGetters(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000007")
	rec := ir.NewRecord("account", id)
	req := NewRequest("Custom").
		With("Rec", rec).
		With("Ref", ir.NewReference("contact", id)).
		With("IDString", id.String()).
		With("IDs", ir.ReferenceCollection{ir.NewReference("contact", id)}).
		With("Name", ir.String("x")).
		With("State", ir.OptionSetValue(2)).
		With("Flag", true)

	got, err := req.Record("Rec")
	require.NoError(t, err)
	assert.Same(t, rec, got)

	ref, err := req.Reference("Rec")
	require.NoError(t, err)
	assert.Equal(t, ir.NewReference("account", id), ref)

	ref, err = req.Reference("Ref")
	require.NoError(t, err)
	assert.Equal(t, "contact", ref.LogicalName)

	gotID, err := req.ID("IDString")
	require.NoError(t, err)
	assert.Equal(t, id, gotID)

	ids, err := req.IDs("IDs")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)

	s, err := req.String("Name")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	n, err := req.Int("State")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	b, err := req.Bool("Flag", false)
	require.NoError(t, err)
	assert.True(t, b)

	b, err = req.Bool("Absent", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestRequestGetterFaults(t *testing.T) {
	req := NewRequest(Create).With(ParamTarget, "not a record").With("Nil", nil)

	_, err := req.Record(ParamTarget)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.TypeMismatch, f.Code)
	assert.Equal(t, "string", f.Detail("actual"))

	_, err = req.Reference("Missing")
	assert.True(t, fault.Is(err, fault.MissingRequiredParameter))

	_, err = req.String("Nil")
	assert.True(t, fault.Is(err, fault.MissingRequiredParameter), "nil counts as absent")

	_, err = NewRequest("X").With("Id", "nope").ID("Id")
	assert.True(t, fault.Is(err, fault.TypeMismatch))
}

func TestRequestColumns(t *testing.T) {
	cs, err := NewRequest(Retrieve).Columns()
	require.NoError(t, err)
	assert.True(t, cs.All)

	cs, err = NewRequest(Retrieve).With(ParamColumnSet, []string{"name"}).Columns()
	require.NoError(t, err)
	assert.Equal(t, query.Columns("name"), cs)

	cs, err = NewRequest(Retrieve).With(ParamColumnSet, query.ColumnSet{Columns: []string{"a", "*"}}).Columns()
	require.NoError(t, err)
	assert.False(t, cs.All, "a ColumnSet value is taken as given")
}

func TestContracts(t *testing.T) {
	cs := BuiltinContracts()

	err := cs.Check(NewRequest(SetState).With(ParamEntityMoniker, ir.NewReference("account", uuid.New())).With(ParamState, 1))
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.MissingRequiredParameter, f.Code)
	assert.Equal(t, ParamStatus, f.Detail("parameter"))
	assert.Equal(t, SetState, f.Detail("request"))

	assert.NoError(t, cs.Check(NewRequest("new_custom")), "unknown messages pass")
	assert.NoError(t, cs.Check(NewRequest(WhoAmI)))

	c, ok := cs.Lookup(Retrieve)
	require.True(t, ok)
	assert.True(t, c.Accepts(ParamColumnSet))
	assert.False(t, c.Accepts(ParamQuery))

	cs.Register(Contract{Name: "new_custom", Required: []string{"Input"}})
	assert.True(t, fault.Is(cs.Check(NewRequest("new_custom")), fault.MissingRequiredParameter))
}

func TestResponseAccessors(t *testing.T) {
	id := uuid.New()
	resp := NewResponse(Upsert).Set(ResultID, id).Set(ResultRecordCreated, true)
	assert.Equal(t, id, resp.ID())
	assert.True(t, resp.RecordCreated())
	assert.Nil(t, resp.Entity())
	assert.Nil(t, resp.Entities())

	var nilResp *Response
	assert.Equal(t, uuid.Nil, nilResp.ID())
}

func TestPrimaryTarget(t *testing.T) {
	id := uuid.New()
	ref, ok := NewRequest(Update).With(ParamTarget, ir.NewRecord("account", id)).PrimaryTarget()
	require.True(t, ok)
	assert.Equal(t, ir.NewReference("account", id), ref)

	ref, ok = NewRequest(SetState).With(ParamEntityMoniker, ir.NewReference("incident", id)).PrimaryTarget()
	require.True(t, ok)
	assert.Equal(t, "incident", ref.LogicalName)

	_, ok = NewRequest(WhoAmI).PrimaryTarget()
	assert.False(t, ok)
}
