package executor

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/fetchxml"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/query"
	"github.com/roach88/recordsim/internal/store"
)

func create(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	rec, err := req.Record(message.ParamTarget)
	if err != nil {
		return nil, err
	}
	id, err := env.Create(rec)
	if err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name).Set(message.ResultID, id), nil
}

func retrieve(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	ref, err := req.Reference(message.ParamTarget)
	if err != nil {
		return nil, err
	}
	cs, err := req.Columns()
	if err != nil {
		return nil, err
	}
	var columns []string
	if !cs.All {
		columns = cs.Columns
		if columns == nil {
			columns = []string{}
		}
	}
	rec, err := env.Store.Retrieve(ref, columns)
	if err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name).Set(message.ResultEntity, rec), nil
}

// retrieveMultiple accepts either a *query.Expression in Query or a
// FetchXML document in FetchXml.
func retrieveMultiple(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	var expr *query.Expression
	switch {
	case req.Has(message.ParamQuery):
		v, _ := req.Get(message.ParamQuery)
		q, ok := v.(*query.Expression)
		if !ok {
			return nil, fault.New(fault.TypeMismatch, "%s parameter %s must be a query expression, got %T",
				req.Name, message.ParamQuery, v).
				With("request", req.Name).
				With("parameter", message.ParamQuery)
		}
		expr = q
	case req.Has(message.ParamFetchXML):
		doc, err := req.String(message.ParamFetchXML)
		if err != nil {
			return nil, err
		}
		var opts []fetchxml.Option
		if env.Metadata != nil {
			opts = append(opts, fetchxml.WithSchema(env.Metadata))
		}
		if expr, err = fetchxml.Parse(doc, opts...); err != nil {
			return nil, err
		}
	default:
		return nil, fault.NewMissingParameter(req.Name, message.ParamQuery)
	}

	res, err := env.Evaluator.Evaluate(expr)
	if err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name).Set(message.ResultEntities, res), nil
}

func update(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	rec, err := req.Record(message.ParamTarget)
	if err != nil {
		return nil, err
	}
	if err := env.Update(rec); err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name), nil
}

func deleteRecord(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	ref, err := req.Reference(message.ParamTarget)
	if err != nil {
		return nil, err
	}
	if err := env.Store.Delete(ref); err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name), nil
}

// upsert updates the target when its id already exists in the logical
// name and creates it otherwise. The id may be carried on the record or
// in its primary id attribute.
func upsert(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	rec, err := req.Record(message.ParamTarget)
	if err != nil {
		return nil, err
	}
	id := env.Store.IDOf(rec)
	if id != uuid.Nil && env.Store.Exists(ir.NewReference(rec.LogicalName, id)) {
		partial := rec.Clone()
		partial.ID = id
		if err := env.Update(partial); err != nil {
			return nil, err
		}
		env.logger().Debug("upsert updated", "entity", rec.LogicalName, "id", id)
		return message.NewResponse(req.Name).
			Set(message.ResultID, id).
			Set(message.ResultTarget, ir.NewReference(rec.LogicalName, id)).
			Set(message.ResultRecordCreated, false), nil
	}

	created, err := env.Create(rec)
	if err != nil {
		return nil, err
	}
	env.logger().Debug("upsert created", "entity", rec.LogicalName, "id", created)
	return message.NewResponse(req.Name).
		Set(message.ResultID, created).
		Set(message.ResultTarget, ir.NewReference(rec.LogicalName, created)).
		Set(message.ResultRecordCreated, true), nil
}

// assign changes the owner of the target.
func assign(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	target, err := req.Reference(message.ParamTarget)
	if err != nil {
		return nil, err
	}
	assignee, err := req.Reference(message.ParamAssignee)
	if err != nil {
		return nil, err
	}
	partial := ir.NewRecord(target.LogicalName, target.ID).Set(store.AttrOwnerID, assignee)
	if err := env.Update(partial); err != nil {
		return nil, err
	}
	return message.NewResponse(req.Name), nil
}
