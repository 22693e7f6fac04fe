// Package service is the entry point tests call. It wires the store,
// metadata, validator, evaluator, executors, plugin runner and middleware
// into one pipeline and exposes typed helpers over it.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/audit"
	"github.com/roach88/recordsim/internal/executor"
	"github.com/roach88/recordsim/internal/identity"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/metadata"
	"github.com/roach88/recordsim/internal/pipeline"
	"github.com/roach88/recordsim/internal/plugin"
	"github.com/roach88/recordsim/internal/query"
	"github.com/roach88/recordsim/internal/store"
	"github.com/roach88/recordsim/internal/validation"
)

// Service is an in-memory organization. It is not safe for concurrent use.
type Service struct {
	store     *store.Store
	metadata  *metadata.Repository
	validator *validation.Validator
	identity  *identity.Static
	audit     *audit.Log
	metrics   *pipeline.Metrics
	runner    *plugin.Runner
	dispatch  pipeline.Dispatcher
	caps      *Capabilities
	initLevel InitializationLevel
	logger    *slog.Logger
}

// New builds a Service.
func New(opts ...Option) (*Service, error) {
	cfg := config{
		maxDepth: plugin.DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Service{
		identity:  identity.NewStatic(cfg.caller),
		initLevel: cfg.initLevel,
		logger:    cfg.logger,
		caps:      &Capabilities{},
	}
	s.metadata = metadata.NewRepository(metadata.WithLogger(cfg.logger))

	storeOpts := []store.Option{
		store.WithIdentity(s.identity),
		store.WithPrimaryID(s.metadata.PrimaryID),
		store.WithLogger(cfg.logger),
	}
	if cfg.clock != nil {
		storeOpts = append(storeOpts, store.WithClock(cfg.clock))
	}
	if cfg.ids != nil {
		storeOpts = append(storeOpts, store.WithIDs(cfg.ids))
	}
	s.store = store.New(storeOpts...)
	s.validator = validation.New(cfg.integrity, s.store, s.metadata, validation.WithLogger(cfg.logger))

	env := &executor.Env{
		Store:     s.store,
		Metadata:  s.metadata,
		Validator: s.validator,
		Evaluator: query.NewEvaluator(s.store, query.WithSchema(s.metadata), query.WithLogger(cfg.logger)),
		Identity:  s.identity,
		Logger:    cfg.logger,
	}

	b := pipeline.NewBuilder(
		pipeline.WithLogger(cfg.logger),
		pipeline.WithRunnerOptions(plugin.WithMaxDepth(cfg.maxDepth)),
	)
	sections := []pipeline.Section{
		{Name: "builtin", Env: env, Executors: executor.Builtins()},
		{Name: "custom", Executors: cfg.executors, Steps: cfg.steps},
	}
	for _, sec := range sections {
		if err := b.Contribute(sec); err != nil {
			return nil, fmt.Errorf("new service: %w", err)
		}
	}

	regs := []pipeline.Registration{
		pipeline.LoggingMiddleware(cfg.logger),
		pipeline.TracingMiddleware(cfg.tracer),
	}
	if cfg.metrics != nil {
		m, err := pipeline.NewMetrics(cfg.metrics)
		if err != nil {
			return nil, fmt.Errorf("new service: metrics: %w", err)
		}
		s.metrics = m
		regs = append(regs, pipeline.MetricsMiddleware(m))
	}
	regs = append(regs, pipeline.ContractMiddleware(message.BuiltinContracts()))
	if cfg.audit {
		log, err := audit.Open(audit.WithLogger(cfg.logger))
		if err != nil {
			return nil, fmt.Errorf("new service: %w", err)
		}
		s.audit = log
		regs = append(regs, pipeline.AuditMiddleware(log))
	}
	regs = append(regs, cfg.middlewares...)
	for _, r := range regs {
		if err := b.Use(r); err != nil {
			return nil, fmt.Errorf("new service: %w", err)
		}
	}

	d, err := b.Build()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("new service: %w", err)
	}
	s.dispatch = d
	s.runner = b.Runner()

	s.caps.Register(s.identity)
	s.caps.Register(s.metadata)
	if s.audit != nil {
		s.caps.Register(s.audit)
	}

	s.logger.Info("service ready",
		"integrity", cfg.integrity.String(),
		"max_depth", cfg.maxDepth,
		"steps", s.runner.Steps(),
		"audit", cfg.audit,
	)
	return s, nil
}

// Close releases the audit log, if any.
func (s *Service) Close() error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Close()
}

// Execute dispatches req through the pipeline.
func (s *Service) Execute(ctx context.Context, req *message.Request) (*message.Response, error) {
	return s.dispatch(ctx, req)
}

// Create inserts rec and returns its id.
func (s *Service) Create(ctx context.Context, rec *ir.Record) (uuid.UUID, error) {
	resp, err := s.Execute(ctx, message.NewRequest(message.Create).With(message.ParamTarget, rec))
	if err != nil {
		return uuid.Nil, err
	}
	return resp.ID(), nil
}

// Retrieve reads one record.
func (s *Service) Retrieve(ctx context.Context, ref ir.Reference, columns query.ColumnSet) (*ir.Record, error) {
	resp, err := s.Execute(ctx, message.NewRequest(message.Retrieve).
		With(message.ParamTarget, ref).
		With(message.ParamColumnSet, columns))
	if err != nil {
		return nil, err
	}
	return resp.Entity(), nil
}

// RetrieveMultiple evaluates q.
func (s *Service) RetrieveMultiple(ctx context.Context, q *query.Expression) (*query.Result, error) {
	resp, err := s.Execute(ctx, message.NewRequest(message.RetrieveMultiple).With(message.ParamQuery, q))
	if err != nil {
		return nil, err
	}
	return resp.Entities(), nil
}

// RetrieveFetchXML evaluates a FetchXML document.
func (s *Service) RetrieveFetchXML(ctx context.Context, fetch string) (*query.Result, error) {
	resp, err := s.Execute(ctx, message.NewRequest(message.RetrieveMultiple).With(message.ParamFetchXML, fetch))
	if err != nil {
		return nil, err
	}
	return resp.Entities(), nil
}

// Update merges rec into the stored record.
func (s *Service) Update(ctx context.Context, rec *ir.Record) error {
	_, err := s.Execute(ctx, message.NewRequest(message.Update).With(message.ParamTarget, rec))
	return err
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, ref ir.Reference) error {
	_, err := s.Execute(ctx, message.NewRequest(message.Delete).With(message.ParamTarget, ref))
	return err
}

// Initialize loads seed records without running the pipeline. With
// InitPerEntity the records receive house-keeping values.
func (s *Service) Initialize(records ...*ir.Record) error {
	for _, rec := range records {
		var err error
		switch s.initLevel {
		case InitPerEntity:
			_, err = s.store.Create(rec)
		default:
			_, err = s.store.Seed(rec)
		}
		if err != nil {
			return fmt.Errorf("initialize %s: %w", rec.LogicalName, err)
		}
	}
	s.logger.Debug("seed records loaded",
		"count", len(records),
		"level", s.initLevel.String(),
	)
	return nil
}

// InitializeMetadata registers entity metadata.
func (s *Service) InitializeMetadata(entities ...metadata.EntityMetadata) error {
	for _, e := range entities {
		if err := s.metadata.Register(e); err != nil {
			return fmt.Errorf("initialize metadata: %w", err)
		}
	}
	return nil
}

// SetIntegrity changes the integrity checks for subsequent writes.
func (s *Service) SetIntegrity(opts metadata.IntegrityOptions) {
	s.validator.SetMode(opts.Mode())
}

// SetCaller changes the calling user for subsequent requests.
func (s *Service) SetCaller(c identity.Caller) {
	s.identity.Set(c)
}

// Caller returns the current calling user.
func (s *Service) Caller() identity.Caller {
	return s.identity.Caller()
}

// Store returns the record store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Metadata returns the metadata repository.
func (s *Service) Metadata() *metadata.Repository {
	return s.metadata
}

// Capabilities returns the capability registry.
func (s *Service) Capabilities() *Capabilities {
	return s.caps
}

// Metrics returns the request metrics, or nil when disabled.
func (s *Service) Metrics() *pipeline.Metrics {
	return s.metrics
}

// MaxDepth returns the plugin recursion ceiling.
func (s *Service) MaxDepth() int {
	return s.runner.MaxDepth()
}
