// Package schema compiles entity schemas written in CUE into metadata.
//
// A schema file declares entities under "entity" and global option sets
// under "optionset":
//
//	entity: account: {
//		primary_name: "name"
//		attributes: {
//			name:            "string"
//			parentaccountid: {type: "lookup", targets: ["account"]}
//			industrycode:    {type: "picklist", options: [{value: 1, label: "Retail"}]}
//		}
//	}
//
//	optionset: priority: options: [{value: 1, label: "High"}]
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/recordsim/internal/metadata"
)

// CompileEntity parses a CUE value into EntityMetadata. The entity name is
// taken from the last path selector, e.g. entity.account -> "account".
func CompileEntity(v cue.Value) (*metadata.EntityMetadata, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	e := &metadata.EntityMetadata{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		e.LogicalName = labels[len(labels)-1].String()
	}
	if name, ok, err := optionalString(v, "name"); err != nil {
		return nil, err
	} else if ok {
		e.LogicalName = name
	}

	var err error
	if e.PrimaryIDAttribute, _, err = optionalString(v, "primary_id"); err != nil {
		return nil, err
	}
	if e.PrimaryNameAttribute, _, err = optionalString(v, "primary_name"); err != nil {
		return nil, err
	}

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, &CompileError{
			Field:   "attributes",
			Message: "attributes are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		attr, err := compileAttribute(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		e.Attributes = append(e.Attributes, attr)
	}
	return e, nil
}

// compileAttribute accepts either a bare type string or a struct with
// type, required, targets and options fields.
func compileAttribute(name string, v cue.Value) (metadata.AttributeMetadata, error) {
	attr := metadata.AttributeMetadata{LogicalName: name}

	if s, err := v.String(); err == nil {
		t, err := metadata.ParseAttributeType(s)
		if err != nil {
			return attr, &CompileError{Field: "attributes." + name, Message: err.Error(), Pos: v.Pos()}
		}
		attr.Type = t
		return attr, nil
	}

	typeName, ok, err := optionalString(v, "type")
	if err != nil {
		return attr, err
	}
	if !ok {
		return attr, &CompileError{
			Field:   "attributes." + name + ".type",
			Message: "type is required",
			Pos:     v.Pos(),
		}
	}
	t, err := metadata.ParseAttributeType(typeName)
	if err != nil {
		return attr, &CompileError{Field: "attributes." + name + ".type", Message: err.Error(), Pos: v.Pos()}
	}
	attr.Type = t

	if reqVal := v.LookupPath(cue.ParsePath("required")); reqVal.Exists() {
		req, err := reqVal.Bool()
		if err != nil {
			return attr, formatCUEError(err)
		}
		attr.Required = req
	}

	if targetsVal := v.LookupPath(cue.ParsePath("targets")); targetsVal.Exists() {
		list, err := targetsVal.List()
		if err != nil {
			return attr, formatCUEError(err)
		}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return attr, formatCUEError(err)
			}
			attr.Targets = append(attr.Targets, s)
		}
	}

	if optsVal := v.LookupPath(cue.ParsePath("options")); optsVal.Exists() {
		options, err := compileOptions(optsVal)
		if err != nil {
			return attr, err
		}
		attr.OptionSet = &metadata.OptionSet{Options: options}
	}
	if globalName, ok, err := optionalString(v, "optionset"); err != nil {
		return attr, err
	} else if ok {
		attr.OptionSet = &metadata.OptionSet{Name: globalName, Global: true}
	}

	return attr, nil
}

// CompileOptionSet parses a global option set.
func CompileOptionSet(v cue.Value) (*metadata.OptionSet, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	set := &metadata.OptionSet{Global: true}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		set.Name = labels[len(labels)-1].String()
	}
	optsVal := v.LookupPath(cue.ParsePath("options"))
	if !optsVal.Exists() {
		return nil, &CompileError{Field: "options", Message: "options are required", Pos: v.Pos()}
	}
	options, err := compileOptions(optsVal)
	if err != nil {
		return nil, err
	}
	set.Options = options
	return set, nil
}

func compileOptions(v cue.Value) ([]metadata.Option, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []metadata.Option
	for list.Next() {
		item := list.Value()
		valueVal := item.LookupPath(cue.ParsePath("value"))
		if !valueVal.Exists() {
			return nil, &CompileError{Field: "options.value", Message: "value is required", Pos: item.Pos()}
		}
		n, err := valueVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		label, _, err := optionalString(item, "label")
		if err != nil {
			return nil, err
		}
		out = append(out, metadata.Option{Value: int(n), Label: label})
	}
	return out, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

// CompileError is a compile failure with a CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
