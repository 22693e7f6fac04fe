package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/audit"
	"github.com/roach88/recordsim/internal/executor"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
)

// Appender receives audit entries.
type Appender interface {
	Append(ctx context.Context, e audit.Entry) (audit.Entry, error)
}

// auditActions maps audited messages to the action they record. Upsert is
// resolved from the response.
var auditActions = map[string]audit.Action{
	message.Create:   audit.ActionCreate,
	message.Update:   audit.ActionUpdate,
	message.Assign:   audit.ActionUpdate,
	message.SetState: audit.ActionUpdate,
	message.Upsert:   audit.ActionUpdate,
	message.Delete:   audit.ActionDelete,
}

// AuditMiddleware appends an entry for every successful write. A nil
// appender skips the middleware.
func AuditMiddleware(log Appender) Registration {
	return Registration{
		Name: "audit",
		Builder: func(env *executor.Env) (Middleware, error) {
			if log == nil {
				return nil, nil
			}
			if env.Store == nil {
				return nil, errors.New("audit middleware requires a store")
			}
			a := &auditor{log: log, env: env}
			return a.middleware, nil
		},
	}
}

type auditor struct {
	log Appender
	env *executor.Env
}

func (a *auditor) middleware(next Dispatcher) Dispatcher {
	return func(ctx context.Context, req *message.Request) (*message.Response, error) {
		action, ok := auditActions[req.Name]
		if !ok {
			return next(ctx, req)
		}

		ref, _ := a.target(req)
		var before *ir.Record
		if ref.ID != uuid.Nil {
			before, _ = a.env.Store.Retrieve(ref, nil)
		}

		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}

		if ref.ID == uuid.Nil {
			ref.ID = resp.ID()
		}
		if req.Name == message.Upsert && resp.RecordCreated() {
			action = audit.ActionCreate
		}
		var after *ir.Record
		if action != audit.ActionDelete {
			after, _ = a.env.Store.Retrieve(ref, nil)
		}

		changes := audit.Diff(before, after)
		if action == audit.ActionUpdate && len(changes) == 0 {
			return resp, nil
		}
		_, err = a.log.Append(ctx, audit.Entry{
			Action:    action,
			Operation: req.Name,
			Target:    ref,
			UserID:    a.env.Caller().EffectiveUser(),
			Changes:   changes,
		})
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", req.Name, err)
		}
		return resp, nil
	}
}

// target resolves the record a write addresses. The id is nil for a
// create without a preset id.
func (a *auditor) target(req *message.Request) (ir.Reference, bool) {
	if rec, ok := req.Parameters[message.ParamTarget].(*ir.Record); ok && rec != nil {
		return ir.NewReference(rec.LogicalName, a.env.Store.IDOf(rec)), true
	}
	return req.PrimaryTarget()
}
