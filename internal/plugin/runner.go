package plugin

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/identity"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
)

// Dispatch sends a request and returns its response.
type Dispatch func(ctx context.Context, req *message.Request) (*message.Response, error)

// Images reads the records captured as pre- and post-images.
type Images interface {
	Retrieve(ref ir.Reference, columns []string) (*ir.Record, error)
	IDOf(r *ir.Record) uuid.UUID
}

// IDSource generates correlation ids.
type IDSource interface {
	NewID() uuid.UUID
}

type randomIDs struct{}

func (randomIDs) NewID() uuid.UUID { return uuid.New() }

// imageMessages are the messages whose target is read before the main
// operation runs.
var imageMessages = map[string]bool{
	message.Update:   true,
	message.Delete:   true,
	message.SetState: true,
	message.Assign:   true,
}

// Runner drives the stage state machine around a main operation.
type Runner struct {
	main     Dispatch
	entry    Dispatch
	steps    Steps
	guard    *DepthGuard
	images   Images
	identity identity.Provider
	ids      IDSource
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxDepth sets the depth ceiling.
func WithMaxDepth(max int) Option {
	return func(r *Runner) {
		r.guard = NewDepthGuard(max)
	}
}

// WithImages sets the source of pre- and post-images.
func WithImages(images Images) Option {
	return func(r *Runner) {
		r.images = images
	}
}

// WithIdentity sets the provider of the calling user.
func WithIdentity(p identity.Provider) Option {
	return func(r *Runner) {
		r.identity = p
	}
}

// WithCorrelationIDs sets the generator of correlation ids.
func WithCorrelationIDs(ids IDSource) Option {
	return func(r *Runner) {
		r.ids = ids
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner around main, the core operation of stage 30.
func NewRunner(main Dispatch, opts ...Option) *Runner {
	r := &Runner{
		main:     main,
		guard:    NewDepthGuard(DefaultMaxDepth),
		identity: identity.NewStatic(identity.Caller{}),
		ids:      randomIDs{},
		logger:   slog.Default(),
	}
	r.entry = r.Dispatch
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a step.
func (r *Runner) Register(step Step) error {
	return r.steps.Register(step)
}

// Steps returns the number of registered steps.
func (r *Runner) Steps() int {
	return r.steps.Len()
}

// MaxDepth returns the depth ceiling.
func (r *Runner) MaxDepth() int {
	return r.guard.Max()
}

// Bind sets the entry point used by nested requests. Nested requests
// default to Dispatch; binding the outermost dispatcher lets them pass
// through the same middleware as top-level requests.
func (r *Runner) Bind(entry Dispatch) {
	r.entry = entry
}

// Dispatch runs req through every stage.
func (r *Runner) Dispatch(ctx context.Context, req *message.Request) (*message.Response, error) {
	parent, _ := FromContext(ctx)
	pc := r.newContext(req, parent)
	if err := r.guard.Check(pc.Depth); err != nil {
		r.logger.Warn("depth guard tripped",
			"message", req.Name,
			"depth", pc.Depth,
			"max_depth", r.guard.Max(),
		)
		return nil, err
	}
	ctx = WithExecutionContext(ctx, pc)

	resp, err := r.run(ctx, pc, req)
	if err != nil {
		pc.State = StateFaulted
		r.logger.Debug("invocation faulted",
			"message", req.Name,
			"entity", pc.PrimaryEntityName,
			"depth", pc.Depth,
			"error", err,
		)
		return nil, err
	}
	pc.State = StateCompleted
	return resp, nil
}

func (r *Runner) run(ctx context.Context, pc *ExecutionContext, req *message.Request) (*message.Response, error) {
	for _, stage := range []Stage{PreValidation, PreOperation} {
		if err := r.stage(ctx, pc, req, stage); err != nil {
			return nil, err
		}
	}

	if imageMessages[req.Name] {
		pc.PreImage = r.image(pc)
	}

	pc.Stage, pc.State = MainOperation, StateMainOperation
	resp, err := r.main(ctx, req)
	if err != nil {
		return nil, err
	}
	pc.OutputParameters = resp.Results
	if pc.PrimaryEntityID == uuid.Nil {
		pc.PrimaryEntityID = resp.ID()
	}
	if err := r.stage(ctx, pc, req, MainOperation); err != nil {
		return nil, err
	}

	if req.Name != message.Delete {
		pc.PostImage = r.image(pc)
	}
	if err := r.stage(ctx, pc, req, PostOperation); err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *Runner) stage(ctx context.Context, pc *ExecutionContext, req *message.Request, stage Stage) error {
	pc.Stage, pc.State = stage, stateFor(stage)
	for _, st := range r.steps.forStage(stage, req, pc.PrimaryEntityName) {
		r.logger.Debug("running step",
			"step", st.Name,
			"stage", stage.String(),
			"message", req.Name,
			"depth", pc.Depth,
		)
		svc := &boundService{entry: r.entry, pc: pc}
		if err := st.Handler(ctx, pc, svc); err != nil {
			if _, ok := fault.As(err); ok {
				return err
			}
			return fault.NewDomain(err).
				With("step", st.Name).
				With("stage", stage.String())
		}
	}
	return nil
}

func (r *Runner) newContext(req *message.Request, parent *ExecutionContext) *ExecutionContext {
	caller := r.identity.Caller()
	pc := &ExecutionContext{
		Depth:            1,
		MessageName:      req.Name,
		InputParameters:  req.Parameters,
		OutputParameters: message.Parameters{},
		UserID:           caller.UserRef(),
		InitiatingUserID: caller.InitiatingUserRef(),
		BusinessUnitID:   caller.BusinessUnitRef(),
		Parent:           parent,
	}
	if parent != nil {
		pc.Depth = parent.Depth + 1
		pc.Shared = parent.Shared
		pc.CorrelationID = parent.CorrelationID
	} else {
		pc.Shared = NewSharedVariables()
		pc.CorrelationID = r.ids.NewID()
	}

	if rec, ok := req.Parameters[message.ParamTarget].(*ir.Record); ok && rec != nil {
		pc.PrimaryEntityName, pc.PrimaryEntityID = rec.LogicalName, rec.ID
		if r.images != nil {
			pc.PrimaryEntityID = r.images.IDOf(rec)
		}
	} else if ref, ok := req.PrimaryTarget(); ok {
		pc.PrimaryEntityName, pc.PrimaryEntityID = ref.LogicalName, ref.ID
	}
	return pc
}

// image reads the primary record, or returns nil when it cannot be read.
func (r *Runner) image(pc *ExecutionContext) *ir.Record {
	if r.images == nil || pc.PrimaryEntityName == "" || pc.PrimaryEntityID == uuid.Nil {
		return nil
	}
	rec, err := r.images.Retrieve(ir.NewReference(pc.PrimaryEntityName, pc.PrimaryEntityID), nil)
	if err != nil {
		return nil
	}
	return rec
}
