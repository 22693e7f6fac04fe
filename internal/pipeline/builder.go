// Package pipeline composes the request dispatcher: contributed executor
// sections at the bottom, the plugin stage runner around them and an
// ordered chain of middleware on top.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/recordsim/internal/executor"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/plugin"
)

// ErrBuilt is returned when a builder is changed after Build.
var ErrBuilt = errors.New("pipeline: already built")

// Dispatcher sends a request through the composed pipeline.
type Dispatcher func(ctx context.Context, req *message.Request) (*message.Response, error)

// Middleware wraps a dispatcher.
type Middleware func(next Dispatcher) Dispatcher

// MiddlewareBuilder constructs a middleware from the composed Env. A nil
// middleware with a nil error skips the registration.
type MiddlewareBuilder func(env *executor.Env) (Middleware, error)

// Registration names a middleware and how to obtain it.
type Registration struct {
	Name       string
	Middleware Middleware
	Builder    MiddlewareBuilder
}

// Section is a unit of configuration contributed to the builder.
type Section struct {
	Name      string
	Env       *executor.Env
	Executors []executor.Binding
	Steps     []plugin.Step
}

// Builder collects sections and middleware, then composes them once.
type Builder struct {
	env        *executor.Env
	registry   *executor.Registry
	steps      []plugin.Step
	regs       []Registration
	runnerOpts []plugin.Option
	runner     *plugin.Runner
	built      bool
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithRunnerOptions passes options to the plugin runner.
func WithRunnerOptions(opts ...plugin.Option) Option {
	return func(b *Builder) {
		b.runnerOpts = append(b.runnerOpts, opts...)
	}
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		env:    &executor.Env{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.registry = executor.NewRegistry(executor.WithLogger(b.logger))
	return b
}

// Contribute adds a section. Env fields already set by an earlier section
// are kept.
func (b *Builder) Contribute(s Section) error {
	if b.built {
		return ErrBuilt
	}
	if s.Env != nil {
		mergeEnv(b.env, s.Env)
	}
	for _, eb := range s.Executors {
		if eb.Executor == nil {
			return fmt.Errorf("section %q: executor %q is nil", s.Name, eb.Name)
		}
		b.registry.Register(eb.Name, eb.Executor)
	}
	b.steps = append(b.steps, s.Steps...)
	b.logger.Debug("section contributed",
		"section", s.Name,
		"executors", len(s.Executors),
		"steps", len(s.Steps),
	)
	return nil
}

// Use appends a middleware. The first registration is the outermost.
func (b *Builder) Use(r Registration) error {
	if b.built {
		return ErrBuilt
	}
	if r.Middleware == nil && r.Builder == nil {
		return fmt.Errorf("middleware %q: registration requires Middleware or Builder", r.Name)
	}
	b.regs = append(b.regs, r)
	return nil
}

// Build composes the dispatcher. It can be called once.
func (b *Builder) Build() (Dispatcher, error) {
	if b.built {
		return nil, ErrBuilt
	}

	env := b.env
	if env.Logger == nil {
		env.Logger = b.logger
	}
	main := func(ctx context.Context, req *message.Request) (*message.Response, error) {
		return b.registry.Execute(ctx, req, env)
	}

	opts := []plugin.Option{plugin.WithLogger(b.logger)}
	if env.Store != nil {
		opts = append(opts, plugin.WithImages(env.Store))
	}
	if env.Identity != nil {
		opts = append(opts, plugin.WithIdentity(env.Identity))
	}
	runner := plugin.NewRunner(main, append(opts, b.runnerOpts...)...)
	for _, st := range b.steps {
		if err := runner.Register(st); err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
	}

	d := Dispatcher(runner.Dispatch)
	for i := len(b.regs) - 1; i >= 0; i-- {
		r := b.regs[i]
		mw := r.Middleware
		if mw == nil {
			var err error
			if mw, err = r.Builder(env); err != nil {
				return nil, fmt.Errorf("build middleware %q: %w", r.Name, err)
			}
			if mw == nil {
				b.logger.Debug("middleware skipped", "middleware", r.Name)
				continue
			}
		}
		d = mw(d)
	}
	runner.Bind(plugin.Dispatch(d))

	b.runner = runner
	b.built = true
	b.logger.Debug("pipeline built",
		"middlewares", len(b.regs),
		"executors", len(b.registry.Names()),
		"steps", runner.Steps(),
	)
	return d, nil
}

// Env returns the composed Env.
func (b *Builder) Env() *executor.Env {
	return b.env
}

// Registry returns the executor registry.
func (b *Builder) Registry() *executor.Registry {
	return b.registry
}

// Runner returns the plugin runner, or nil before Build.
func (b *Builder) Runner() *plugin.Runner {
	return b.runner
}

func mergeEnv(dst, src *executor.Env) {
	if dst.Store == nil {
		dst.Store = src.Store
	}
	if dst.Metadata == nil {
		dst.Metadata = src.Metadata
	}
	if dst.Validator == nil {
		dst.Validator = src.Validator
	}
	if dst.Evaluator == nil {
		dst.Evaluator = src.Evaluator
	}
	if dst.Identity == nil {
		dst.Identity = src.Identity
	}
	if dst.Logger == nil {
		dst.Logger = src.Logger
	}
}
