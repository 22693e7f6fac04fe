package executor

import (
	"context"

	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/metadata"
)

// optionTarget reads either OptionSetName or the entity and attribute
// parameters.
func optionTarget(req *message.Request) (metadata.OptionTarget, error) {
	if req.Has(message.ParamOptionSetName) {
		name, err := req.String(message.ParamOptionSetName)
		return metadata.OptionTarget{OptionSetName: name}, err
	}
	entity, err := req.String(message.ParamEntityLogicalName)
	if err != nil {
		return metadata.OptionTarget{}, err
	}
	attr, err := req.String(message.ParamAttributeLogicalName)
	if err != nil {
		return metadata.OptionTarget{}, err
	}
	return metadata.OptionTarget{Entity: entity, Attribute: attr}, nil
}

func insertOptionValue(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	target, err := optionTarget(req)
	if err != nil {
		return nil, err
	}
	label, err := req.String(message.ParamLabel)
	if err != nil {
		return nil, err
	}
	var value int
	if req.Has(message.ParamValue) {
		value, err = req.Int(message.ParamValue)
	} else {
		value, err = env.Metadata.NextOptionValue(target)
	}
	if err != nil {
		return nil, err
	}
	if err := env.Metadata.InsertOption(target, metadata.Option{Value: value, Label: label}); err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name).Set(message.ResultNewOptionValue, value), nil
}

func updateOptionValue(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	target, err := optionTarget(req)
	if err != nil {
		return nil, err
	}
	value, err := req.Int(message.ParamValue)
	if err != nil {
		return nil, err
	}
	label, err := req.String(message.ParamLabel)
	if err != nil {
		return nil, err
	}
	if err := env.Metadata.SetOptionLabel(target, value, label); err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name), nil
}

func whoAmI(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	c := env.Caller()
	return message.NewResponse(req.Name).
		Set(message.ResultUserID, c.EffectiveUser()).
		Set(message.ResultBusinessUnitID, c.BusinessUnitID).
		Set(message.ResultOrganizationID, c.OrganizationID), nil
}
