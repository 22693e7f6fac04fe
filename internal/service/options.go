package service

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/recordsim/internal/executor"
	"github.com/roach88/recordsim/internal/identity"
	"github.com/roach88/recordsim/internal/metadata"
	"github.com/roach88/recordsim/internal/pipeline"
	"github.com/roach88/recordsim/internal/plugin"
	"github.com/roach88/recordsim/internal/store"
)

// InitializationLevel controls whether seed records receive house-keeping
// values.
type InitializationLevel int

const (
	// InitNone stores seed records as given.
	InitNone InitializationLevel = iota

	// InitPerEntity stamps createdon, modifiedon, createdby, modifiedby and
	// ownerid on seed records that lack them.
	InitPerEntity
)

func (l InitializationLevel) String() string {
	if l == InitPerEntity {
		return "PerEntity"
	}
	return "None"
}

type config struct {
	integrity   metadata.Mode
	maxDepth    int
	caller      identity.Caller
	clock       store.Clock
	ids         store.IDGenerator
	initLevel   InitializationLevel
	audit       bool
	logger      *slog.Logger
	steps       []plugin.Step
	executors   []executor.Binding
	middlewares []pipeline.Registration
	metrics     prometheus.Registerer
	tracer      trace.TracerProvider
}

// Option configures a Service.
type Option func(*config)

// WithIntegrity sets which integrity checks run on writes.
//
// Default: both checks off.
func WithIntegrity(opts metadata.IntegrityOptions) Option {
	return func(c *config) {
		c.integrity = opts.Mode()
	}
}

// WithMaxDepth sets the plugin recursion ceiling.
//
// Default: 8 (plugin.DefaultMaxDepth)
// Use WithMaxDepth(0) to disable the guard.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		c.maxDepth = n
	}
}

// WithCaller sets the initial calling user.
func WithCaller(caller identity.Caller) Option {
	return func(c *config) {
		c.caller = caller
	}
}

// WithClock sets the clock used for house-keeping timestamps.
func WithClock(clock store.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithIDs sets the generator for ids of records created without one.
func WithIDs(ids store.IDGenerator) Option {
	return func(c *config) {
		c.ids = ids
	}
}

// WithInitializationLevel sets how Initialize treats seed records.
func WithInitializationLevel(level InitializationLevel) Option {
	return func(c *config) {
		c.initLevel = level
	}
}

// WithAudit enables the audit log.
func WithAudit() Option {
	return func(c *config) {
		c.audit = true
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithStep registers a plugin step.
func WithStep(step plugin.Step) Option {
	return func(c *config) {
		c.steps = append(c.steps, step)
	}
}

// WithExecutor registers a custom executor for name. Custom executors are
// registered after the built-ins, so an exact name replaces a built-in.
func WithExecutor(name string, ex executor.Executor) Option {
	return func(c *config) {
		c.executors = append(c.executors, executor.Binding{Name: name, Executor: ex})
	}
}

// WithMiddleware adds a middleware inside the built-in ones.
func WithMiddleware(r pipeline.Registration) Option {
	return func(c *config) {
		c.middlewares = append(c.middlewares, r)
	}
}

// WithMetricsRegistry enables request metrics on reg.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.metrics = reg
	}
}

// WithTracerProvider enables one span per request.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracer = tp
	}
}
