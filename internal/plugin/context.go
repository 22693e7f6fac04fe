package plugin

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
)

// Stage is a pipeline stage number.
type Stage int

const (
	PreValidation Stage = 10
	PreOperation  Stage = 20
	MainOperation Stage = 30
	PostOperation Stage = 40
)

func (s Stage) String() string {
	switch s {
	case PreValidation:
		return "PreValidation"
	case PreOperation:
		return "PreOperation"
	case MainOperation:
		return "MainOperation"
	case PostOperation:
		return "PostOperation"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Valid reports whether s is one of the four stages.
func (s Stage) Valid() bool {
	switch s {
	case PreValidation, PreOperation, MainOperation, PostOperation:
		return true
	}
	return false
}

// ParseStage resolves a stage by name, case-insensitively.
func ParseStage(name string) (Stage, error) {
	for _, s := range []Stage{PreValidation, PreOperation, MainOperation, PostOperation} {
		if ir.Key(s.String()) == ir.Key(name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// State is the position of an invocation in its state machine.
type State int

const (
	StatePending State = iota
	StatePreValidation
	StatePreOperation
	StateMainOperation
	StatePostOperation
	StateCompleted
	StateFaulted
)

var stateNames = [...]string{
	StatePending:       "Pending",
	StatePreValidation: "PreValidation",
	StatePreOperation:  "PreOperation",
	StateMainOperation: "MainOperation",
	StatePostOperation: "PostOperation",
	StateCompleted:     "Completed",
	StateFaulted:       "Faulted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func stateFor(s Stage) State {
	switch s {
	case PreValidation:
		return StatePreValidation
	case PreOperation:
		return StatePreOperation
	case MainOperation:
		return StateMainOperation
	default:
		return StatePostOperation
	}
}

// SharedVariables is a bag of values shared by an invocation and every
// nested invocation it causes. Keys keep insertion order.
type SharedVariables struct {
	values map[string]any
	keys   []string
}

// NewSharedVariables creates an empty bag.
func NewSharedVariables() *SharedVariables {
	return &SharedVariables{values: make(map[string]any)}
}

// Set stores a value.
func (s *SharedVariables) Set(key string, v any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Get returns a value.
func (s *SharedVariables) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is set.
func (s *SharedVariables) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (s *SharedVariables) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of values.
func (s *SharedVariables) Len() int {
	return len(s.keys)
}

// ExecutionContext describes one invocation to the steps that run in it.
type ExecutionContext struct {
	// Depth is 1 for a top-level request and grows by one per nested
	// request.
	Depth int

	// Shared is owned by the outermost invocation.
	Shared *SharedVariables

	MessageName       string
	PrimaryEntityName string
	PrimaryEntityID   uuid.UUID

	InputParameters  message.Parameters
	OutputParameters message.Parameters

	Stage Stage
	State State

	UserID           ir.Reference
	InitiatingUserID ir.Reference
	BusinessUnitID   ir.Reference
	CorrelationID    uuid.UUID

	PreImage  *ir.Record
	PostImage *ir.Record

	// Parent is the invocation that issued this one, nil at depth 1.
	Parent *ExecutionContext
}

type contextKey struct{}

// WithExecutionContext returns ctx carrying pc.
func WithExecutionContext(ctx context.Context, pc *ExecutionContext) context.Context {
	return context.WithValue(ctx, contextKey{}, pc)
}

// FromContext returns the invocation carried by ctx.
func FromContext(ctx context.Context) (*ExecutionContext, bool) {
	pc, ok := ctx.Value(contextKey{}).(*ExecutionContext)
	return pc, ok && pc != nil
}

// NextDepth returns the depth a request dispatched with ctx will run at.
func NextDepth(ctx context.Context) int {
	if pc, ok := FromContext(ctx); ok {
		return pc.Depth + 1
	}
	return 1
}
