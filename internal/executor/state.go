package executor

import (
	"context"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
)

// State and status attribute names.
const (
	AttrStateCode  = "statecode"
	AttrStatusCode = "statuscode"
)

func setState(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	ref, err := req.Reference(message.ParamEntityMoniker)
	if err != nil {
		return nil, err
	}
	state, err := req.Int(message.ParamState)
	if err != nil {
		return nil, err
	}
	status, err := req.Int(message.ParamStatus)
	if err != nil {
		return nil, err
	}
	if err := transition(env, ref, state, status); err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name), nil
}

// transition moves a record's state and status in place.
func transition(env *Env, ref ir.Reference, state, status int) error {
	if !env.Store.Exists(ref) {
		return fault.NewNotFound(ref.LogicalName, ref.ID.String())
	}
	partial := ir.NewRecord(ref.LogicalName, ref.ID).
		Set(AttrStateCode, ir.OptionSetValue(state)).
		Set(AttrStatusCode, ir.OptionSetValue(status))
	return env.Update(partial)
}

// CloseExecutor closes a parent record through a close activity, as in
// CloseIncident. The activity names the parent in ParentAttribute; the
// parent moves to State (or the request's State parameter) and the
// requested Status. No records are created.
type CloseExecutor struct {
	Message         string
	ActivityParam   string
	ParentEntity    string
	ParentAttribute string
	State           int
}

// CanExecute matches the configured message name.
func (c CloseExecutor) CanExecute(req *message.Request) bool {
	return req.Name == c.Message
}

// Execute transitions the parent named by the close activity.
func (c CloseExecutor) Execute(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	activity, err := req.Record(c.ActivityParam)
	if err != nil {
		return nil, err
	}
	parent, ok := ir.Unwrap(activity.Value(c.ParentAttribute)).(ir.Reference)
	if !ok {
		return nil, fault.NewMissingParameter(req.Name, c.ActivityParam+"."+c.ParentAttribute)
	}
	if parent.LogicalName == "" {
		parent.LogicalName = c.ParentEntity
	}

	state := c.State
	if req.Has(message.ParamState) {
		if state, err = req.Int(message.ParamState); err != nil {
			return nil, err
		}
	}
	status, err := req.Int(message.ParamStatus)
	if err != nil {
		return nil, err
	}

	if err := transition(env, parent, state, status); err != nil {
		return nil, err
	}
	env.logger().Debug("record closed",
		"message", c.Message,
		"entity", parent.LogicalName,
		"id", parent.ID,
		"state", state,
		"status", status)
	return message.NewResponse(req.Name), nil
}

// Close executors for the built-in close messages.
var (
	CloseIncident = CloseExecutor{
		Message:         message.CloseIncident,
		ActivityParam:   message.ParamIncidentResolution,
		ParentEntity:    "incident",
		ParentAttribute: "incidentid",
		State:           1, // resolved
	}
	CloseQuote = CloseExecutor{
		Message:         message.CloseQuote,
		ActivityParam:   message.ParamQuoteClose,
		ParentEntity:    "quote",
		ParentAttribute: "quoteid",
		State:           3, // closed
	}
	CloseOpportunity = CloseExecutor{
		Message:         message.CloseOpportunity,
		ActivityParam:   message.ParamOpportunityClose,
		ParentEntity:    "opportunity",
		ParentAttribute: "opportunityid",
		State:           2, // lost
	}
)
