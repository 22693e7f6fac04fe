package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/metadata/schema"
	"github.com/roach88/recordsim/internal/pipeline"
	"github.com/roach88/recordsim/internal/query"
	"github.com/roach88/recordsim/internal/service"
	"github.com/roach88/recordsim/internal/testutil"
)

// Harness runs one scenario against a fresh service.
type Harness struct {
	svc      *service.Service
	recorder *pipeline.Recorder
	ids      *testutil.SequentialIDs
	vars     vars
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	extra  []service.Option
}

// WithLogger sets the service logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithServiceOptions appends options to the service the scenario runs on,
// such as custom executors.
func WithServiceOptions(opts ...service.Option) Option {
	return func(c *runConfig) {
		c.extra = append(c.extra, opts...)
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a new service with a deterministic clock and
// sequential ids, so traces are reproducible.
//
// Execution flow:
// 1. Build the service with the scenario's plugins and options
// 2. Load schemas, inline metadata and seed records
// 3. Execute flow requests, checking expect clauses
// 4. Evaluate assertions against the trace and the final state
//
// An error is returned only when the scenario cannot be set up; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	result := NewResult()
	h, err := setup(scenario, result, opts)
	if err != nil {
		return nil, err
	}
	defer h.svc.Close()

	ctx := context.Background()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute flow: %w", err)
		}
	}

	for _, ev := range h.recorder.Events() {
		result.Trace = append(result.Trace, TraceEvent(ev))
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h.svc.Store()) {
		result.AddError(msg)
	}
	return result, nil
}

// Query evaluates a FetchXML document against the scenario's metadata and
// seed records. The flow is not executed.
func Query(scenario *Scenario, fetch string, opts ...Option) (*query.Result, error) {
	h, err := setup(scenario, NewResult(), opts)
	if err != nil {
		return nil, err
	}
	defer h.svc.Close()
	return h.svc.RetrieveFetchXML(context.Background(), fetch)
}

// setup builds the service for scenario and loads its metadata and seed.
func setup(scenario *Scenario, result *Result, opts []Option) (*Harness, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Harness{
		recorder: pipeline.NewRecorder(),
		ids:      testutil.NewSequentialIDs(),
		vars:     vars(result.Vars),
		logger:   cfg.logger,
	}

	svcOpts := []service.Option{
		service.WithIntegrity(scenario.Integrity),
		service.WithClock(testutil.NewDeterministicClock()),
		service.WithIDs(h.ids),
		service.WithLogger(cfg.logger),
		service.WithMiddleware(h.recorder.Registration()),
	}
	if scenario.MaxDepth != nil {
		svcOpts = append(svcOpts, service.WithMaxDepth(*scenario.MaxDepth))
	}
	if scenario.Initialization == "per_entity" {
		svcOpts = append(svcOpts, service.WithInitializationLevel(service.InitPerEntity))
	}
	for _, p := range scenario.Plugins {
		step, err := buildStep(p, h.vars)
		if err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, service.WithStep(step))
	}
	svcOpts = append(svcOpts, cfg.extra...)

	svc, err := service.New(svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	h.svc = svc

	if err := h.loadMetadata(scenario); err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	if err := h.loadSeed(scenario.Seed); err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to load seed: %w", err)
	}
	return h, nil
}

// RunFile loads and runs a scenario file.
func RunFile(path string, opts ...Option) (*Scenario, *Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := Run(scenario, opts...)
	return scenario, result, err
}

func (h *Harness) loadMetadata(s *Scenario) error {
	for _, path := range s.Schemas {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		compiled, errs := schema.CompileString(string(src), path)
		if len(errs) > 0 {
			return fmt.Errorf("%s: %w", path, errors.Join(errs...))
		}
		if err := compiled.Apply(h.svc.Metadata()); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return h.svc.InitializeMetadata(s.Metadata...)
}

// loadSeed initializes seed records. Records without an id draw one from
// the scenario's generator so it can be saved.
func (h *Harness) loadSeed(seed []SeedRecord) error {
	for i, s := range seed {
		spec, err := h.vars.expandSpec(RecordSpec{Entity: s.Entity, ID: s.ID, Attributes: s.Attributes})
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		rec, err := spec.build()
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		if rec.ID == uuid.Nil {
			rec.ID = h.ids.NewID()
		}
		if err := h.svc.Initialize(rec); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		if s.Save != "" {
			h.vars[s.Save] = rec.ID.String()
		}
	}
	return nil
}

// executeStep runs one flow request. Parameter errors abort the scenario;
// outcome mismatches are recorded on result.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	req := message.NewRequest(step.Request)
	for _, name := range slices.Sorted(maps.Keys(step.Parameters)) {
		expanded, err := h.vars.expand(step.Parameters[name])
		if err != nil {
			return fmt.Errorf("flow[%d] %s: parameter %s: %w", i, step.Request, name, err)
		}
		p, err := toParameter(expanded)
		if err != nil {
			return fmt.Errorf("flow[%d] %s: parameter %s: %w", i, step.Request, name, err)
		}
		req.With(name, p)
	}

	resp, err := h.svc.Execute(ctx, req)
	h.logger.Debug("flow step executed",
		"step", i,
		"request", step.Request,
		"code", string(fault.CodeOf(err)))

	var want string
	if step.Expect != nil {
		want = step.Expect.Fault
	}
	switch {
	case err != nil && want == "":
		result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, step.Request, err))
		return nil
	case err == nil && want != "":
		result.AddError(fmt.Sprintf("flow[%d] %s: expected fault %s, got success", i, step.Request, want))
		return nil
	case err != nil:
		if got := string(fault.CodeOf(err)); got != want {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected fault %s, got %q: %v", i, step.Request, want, got, err))
		}
		return nil
	}

	if step.Save != "" {
		id := resp.ID()
		if id == uuid.Nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: no id to save as %s", i, step.Request, step.Save))
		} else {
			h.vars[step.Save] = id.String()
		}
	}

	if step.Expect == nil || len(step.Expect.Results) == 0 {
		return nil
	}
	expanded, err := h.vars.expand(step.Expect.Results)
	if err != nil {
		return fmt.Errorf("flow[%d] %s: expect: %w", i, step.Request, err)
	}
	expected := expanded.(map[string]any)
	for _, name := range slices.Sorted(maps.Keys(expected)) {
		got := plainResult(resp.Results[name])
		if !subset(expected[name], got) {
			result.AddError(fmt.Sprintf("flow[%d] %s: result %s = %s, want %s",
				i, step.Request, name, describeValue(got), describeValue(expected[name])))
		}
	}
	return nil
}
