// Package executor maps request messages to the handlers that carry them
// out against the record store.
//
// Lookup tries the exact message name first and then asks every
// registered executor, in registration order, whether it can handle the
// request. Built-in executors cover CRUD, Upsert, state and close
// transitions, quote revision, membership and option-set editing.
package executor

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/identity"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/metadata"
	"github.com/roach88/recordsim/internal/query"
	"github.com/roach88/recordsim/internal/store"
	"github.com/roach88/recordsim/internal/validation"
)

// Executor carries out one kind of request.
type Executor interface {
	CanExecute(req *message.Request) bool
	Execute(ctx context.Context, req *message.Request, env *Env) (*message.Response, error)
}

// Func is the signature of a plain executor function.
type Func func(ctx context.Context, req *message.Request, env *Env) (*message.Response, error)

type named struct {
	name string
	fn   Func
}

// Named adapts fn to an Executor that handles requests called name.
func Named(name string, fn Func) Executor {
	return named{name: name, fn: fn}
}

func (n named) CanExecute(req *message.Request) bool {
	return req.Name == n.name
}

func (n named) Execute(ctx context.Context, req *message.Request, env *Env) (*message.Response, error) {
	return n.fn(ctx, req, env)
}

// Env is the bundle of store handles an executor works with.
type Env struct {
	Store     *store.Store
	Metadata  *metadata.Repository
	Validator *validation.Validator
	Evaluator *query.Evaluator
	Identity  identity.Provider
	Logger    *slog.Logger
}

// Create validates rec and inserts it.
func (e *Env) Create(rec *ir.Record) (uuid.UUID, error) {
	if rec.LogicalName == "" {
		return uuid.Nil, fault.New(fault.MissingRequiredParameter, "record has no logical name").
			With("parameter", "LogicalName")
	}
	if err := e.validate(rec); err != nil {
		return uuid.Nil, err
	}
	return e.Store.Create(rec)
}

// Update validates partial and merges it into the stored record.
func (e *Env) Update(partial *ir.Record) error {
	if err := e.validate(partial); err != nil {
		return err
	}
	return e.Store.Update(partial)
}

// Caller returns the identity of the current caller.
func (e *Env) Caller() identity.Caller {
	if e.Identity == nil {
		return identity.Caller{}
	}
	return e.Identity.Caller()
}

func (e *Env) validate(rec *ir.Record) error {
	if e.Validator == nil {
		return nil
	}
	return e.Validator.ValidateWrite(rec)
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Registry resolves requests to executors.
type Registry struct {
	byName map[string]Executor
	order  []Executor
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName: make(map[string]Executor),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds ex under name. An empty name registers ex for the
// CanExecute scan only. Registering a name again replaces the exact-name
// entry; the earlier executor stays in the scan order.
func (r *Registry) Register(name string, ex Executor) {
	if name != "" {
		r.byName[name] = ex
	}
	r.order = append(r.order, ex)
	r.logger.Debug("executor registered", "message", name)
}

// Lookup returns the executor for req, or an UnsupportedRequest fault.
func (r *Registry) Lookup(req *message.Request) (Executor, error) {
	if ex, ok := r.byName[req.Name]; ok {
		return ex, nil
	}
	for _, ex := range r.order {
		if ex.CanExecute(req) {
			return ex, nil
		}
	}
	return nil, fault.NewUnsupported(req.Name)
}

// Execute looks up and runs the executor for req.
func (r *Registry) Execute(ctx context.Context, req *message.Request, env *Env) (*message.Response, error) {
	ex, err := r.Lookup(req)
	if err != nil {
		return nil, err
	}
	return ex.Execute(ctx, req, env)
}

// Names returns the exact message names with a registered executor.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
