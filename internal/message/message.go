// Package message defines the request and response envelopes dispatched
// through the pipeline, the built-in message names and their parameter
// contracts.
package message

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/query"
)

// Built-in message names.
const (
	Create             = "Create"
	Retrieve           = "Retrieve"
	RetrieveMultiple   = "RetrieveMultiple"
	Update             = "Update"
	Delete             = "Delete"
	Upsert             = "Upsert"
	Assign             = "Assign"
	SetState           = "SetState"
	CloseIncident      = "CloseIncident"
	CloseQuote         = "CloseQuote"
	CloseOpportunity   = "CloseOpportunity"
	ReviseQuote        = "ReviseQuote"
	AddMembersTeam     = "AddMembersTeam"
	RemoveMembersTeam  = "RemoveMembersTeam"
	AddListMembersList = "AddListMembersList"
	AddMemberList      = "AddMemberList"
	RemoveMemberList   = "RemoveMemberList"
	InsertOptionValue  = "InsertOptionValue"
	UpdateOptionValue  = "UpdateOptionValue"
	WhoAmI             = "WhoAmI"
)

// Request and response parameter names.
const (
	ParamTarget               = "Target"
	ParamColumnSet            = "ColumnSet"
	ParamQuery                = "Query"
	ParamFetchXML             = "FetchXml"
	ParamAssignee             = "Assignee"
	ParamEntityMoniker        = "EntityMoniker"
	ParamState                = "State"
	ParamStatus               = "Status"
	ParamIncidentResolution   = "IncidentResolution"
	ParamQuoteClose           = "QuoteClose"
	ParamOpportunityClose     = "OpportunityClose"
	ParamQuoteID              = "QuoteId"
	ParamTeamID               = "TeamId"
	ParamMemberIDs            = "MemberIds"
	ParamListID               = "ListId"
	ParamEntityID             = "EntityId"
	ParamEntityLogicalName    = "EntityLogicalName"
	ParamAttributeLogicalName = "AttributeLogicalName"
	ParamOptionSetName        = "OptionSetName"
	ParamValue                = "Value"
	ParamLabel                = "Label"

	ResultID             = "id"
	ResultEntity         = "Entity"
	ResultEntities       = "EntityCollection"
	ResultRecordCreated  = "RecordCreated"
	ResultTarget         = "Target"
	ResultUserID         = "UserId"
	ResultBusinessUnitID = "BusinessUnitId"
	ResultOrganizationID = "OrganizationId"
	ResultNewOptionValue = "NewOptionValue"
)

// Parameters is a named parameter bag. Values are any of *ir.Record,
// ir.Reference, ir.Value, *query.Expression, *query.Result, []string,
// []uuid.UUID, uuid.UUID, string, int or bool.
type Parameters map[string]any

// Names returns the parameter names in sorted order.
func (p Parameters) Names() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Request is a named message with parameters.
type Request struct {
	Name       string
	Parameters Parameters
}

// NewRequest creates an empty request.
func NewRequest(name string) *Request {
	return &Request{Name: name, Parameters: Parameters{}}
}

// With sets a parameter and returns the request.
func (r *Request) With(name string, v any) *Request {
	if r.Parameters == nil {
		r.Parameters = Parameters{}
	}
	r.Parameters[name] = v
	return r
}

// Has reports whether the parameter is present and non-nil.
func (r *Request) Has(name string) bool {
	v, ok := r.Parameters[name]
	return ok && v != nil
}

// Get returns a parameter value.
func (r *Request) Get(name string) (any, bool) {
	v, ok := r.Parameters[name]
	return v, ok && v != nil
}

func (r *Request) require(name string) (any, error) {
	v, ok := r.Get(name)
	if !ok {
		return nil, fault.NewMissingParameter(r.Name, name)
	}
	return v, nil
}

func (r *Request) wrongType(name, want string, got any) error {
	return fault.New(fault.TypeMismatch, "%s parameter %s must be %s, got %T", r.Name, name, want, got).
		With("request", r.Name).
		With("parameter", name).
		With("expected", want).
		With("actual", fmt.Sprintf("%T", got))
}

// Record returns a record parameter such as Target on Create.
func (r *Request) Record(name string) (*ir.Record, error) {
	v, err := r.require(name)
	if err != nil {
		return nil, err
	}
	rec, ok := v.(*ir.Record)
	if !ok {
		return nil, r.wrongType(name, "a record", v)
	}
	return rec, nil
}

// Reference returns a reference parameter. A record parameter is accepted
// and converted to its reference.
func (r *Request) Reference(name string) (ir.Reference, error) {
	v, err := r.require(name)
	if err != nil {
		return ir.Reference{}, err
	}
	switch val := v.(type) {
	case ir.Reference:
		return val, nil
	case *ir.Record:
		return val.Reference(), nil
	default:
		return ir.Reference{}, r.wrongType(name, "a reference", v)
	}
}

// ID returns a uuid parameter. GUID values and strings are accepted.
func (r *Request) ID(name string) (uuid.UUID, error) {
	v, err := r.require(name)
	if err != nil {
		return uuid.Nil, err
	}
	switch val := v.(type) {
	case uuid.UUID:
		return val, nil
	case ir.GUID:
		return uuid.UUID(val), nil
	case ir.String:
		return r.parseID(name, string(val))
	case string:
		return r.parseID(name, val)
	default:
		return uuid.Nil, r.wrongType(name, "a guid", v)
	}
}

func (r *Request) parseID(name, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, r.wrongType(name, "a guid", s)
	}
	return id, nil
}

// IDs returns a list of uuids. Reference collections are accepted.
func (r *Request) IDs(name string) ([]uuid.UUID, error) {
	v, err := r.require(name)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case []uuid.UUID:
		return val, nil
	case ir.ReferenceCollection:
		out := make([]uuid.UUID, len(val))
		for i, ref := range val {
			out[i] = ref.ID
		}
		return out, nil
	case []string:
		out := make([]uuid.UUID, len(val))
		for i, s := range val {
			id, err := r.parseID(name, s)
			if err != nil {
				return nil, err
			}
			out[i] = id
		}
		return out, nil
	default:
		return nil, r.wrongType(name, "a list of guids", v)
	}
}

// String returns a string parameter.
func (r *Request) String(name string) (string, error) {
	v, err := r.require(name)
	if err != nil {
		return "", err
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case ir.String:
		return string(val), nil
	default:
		return "", r.wrongType(name, "a string", v)
	}
}

// Int returns an integer parameter. Option set values are accepted.
func (r *Request) Int(name string) (int, error) {
	v, err := r.require(name)
	if err != nil {
		return 0, err
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case ir.Int:
		return int(val), nil
	case ir.OptionSetValue:
		return int(val), nil
	default:
		return 0, r.wrongType(name, "an integer", v)
	}
}

// Bool returns a boolean parameter, or def when it is absent.
func (r *Request) Bool(name string, def bool) (bool, error) {
	v, ok := r.Get(name)
	if !ok {
		return def, nil
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case ir.Bool:
		return bool(val), nil
	default:
		return false, r.wrongType(name, "a boolean", v)
	}
}

// Columns returns the ColumnSet parameter. Absent means all columns.
// A query.ColumnSet or a list of names is accepted.
func (r *Request) Columns() (query.ColumnSet, error) {
	v, ok := r.Get(ParamColumnSet)
	if !ok {
		return query.AllColumns(), nil
	}
	switch val := v.(type) {
	case query.ColumnSet:
		return val, nil
	case []string:
		return query.Columns(val...), nil
	case bool:
		if val {
			return query.AllColumns(), nil
		}
		return query.ColumnSet{}, nil
	default:
		return query.ColumnSet{}, r.wrongType(ParamColumnSet, "a column set", v)
	}
}

// Response carries the results of a request.
type Response struct {
	Name    string
	Results Parameters
}

// NewResponse creates an empty response for the named request.
func NewResponse(name string) *Response {
	return &Response{Name: name, Results: Parameters{}}
}

// Set stores a result and returns the response.
func (r *Response) Set(name string, v any) *Response {
	if r.Results == nil {
		r.Results = Parameters{}
	}
	r.Results[name] = v
	return r
}

// Get returns a result value.
func (r *Response) Get(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.Results[name]
	return v, ok
}

// ID returns the "id" result, or uuid.Nil.
func (r *Response) ID() uuid.UUID {
	v, _ := r.Get(ResultID)
	id, _ := v.(uuid.UUID)
	return id
}

// Entity returns the "Entity" result, or nil.
func (r *Response) Entity() *ir.Record {
	v, _ := r.Get(ResultEntity)
	rec, _ := v.(*ir.Record)
	return rec
}

// Entities returns the "EntityCollection" result, or nil.
func (r *Response) Entities() *query.Result {
	v, _ := r.Get(ResultEntities)
	res, _ := v.(*query.Result)
	return res
}

// RecordCreated reports the Upsert outcome.
func (r *Response) RecordCreated() bool {
	v, _ := r.Get(ResultRecordCreated)
	b, _ := v.(bool)
	return b
}

// PrimaryTarget returns the record a request acts on, read from Target or
// EntityMoniker. Close messages name their parent through the activity
// record, which is not resolved here.
func (r *Request) PrimaryTarget() (ir.Reference, bool) {
	for _, name := range []string{ParamTarget, ParamEntityMoniker} {
		v, ok := r.Get(name)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case ir.Reference:
			return val, true
		case *ir.Record:
			return val.Reference(), true
		}
	}
	return ir.Reference{}, false
}
