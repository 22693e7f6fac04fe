package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
)

// Handler is the body of a step.
type Handler func(ctx context.Context, pc *ExecutionContext, svc Service) error

// Step registers a handler for one stage of one message.
type Step struct {
	Name    string
	Stage   Stage
	Message string

	// Entity restricts the step to one primary entity; empty matches any.
	Entity string

	// FilteringAttributes restricts Update steps to targets that carry at
	// least one of the named attributes.
	FilteringAttributes []string

	Handler Handler
}

func (s Step) validate() error {
	var errs []error
	if s.Message == "" {
		errs = append(errs, errors.New("message is required"))
	}
	if !s.Stage.Valid() {
		errs = append(errs, fmt.Errorf("invalid stage %d", int(s.Stage)))
	}
	if s.Handler == nil {
		errs = append(errs, errors.New("handler is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("step %q: %w", s.Name, err)
	}
	return nil
}

func (s Step) matches(stage Stage, req *message.Request, entity string) bool {
	if s.Stage != stage || s.Message != req.Name {
		return false
	}
	if s.Entity != "" && ir.Key(s.Entity) != ir.Key(entity) {
		return false
	}
	if len(s.FilteringAttributes) > 0 && req.Name == message.Update {
		target, err := req.Record(message.ParamTarget)
		if err != nil {
			return false
		}
		for _, a := range s.FilteringAttributes {
			if target.Has(a) {
				return true
			}
		}
		return false
	}
	return true
}

// Steps holds registered steps in registration order.
type Steps struct {
	steps []Step
}

// Register adds a step.
func (s *Steps) Register(step Step) error {
	if err := step.validate(); err != nil {
		return err
	}
	s.steps = append(s.steps, step)
	return nil
}

// Len returns the number of registered steps.
func (s *Steps) Len() int {
	return len(s.steps)
}

func (s *Steps) forStage(stage Stage, req *message.Request, entity string) []Step {
	var out []Step
	for _, st := range s.steps {
		if st.matches(stage, req, entity) {
			out = append(out, st)
		}
	}
	return out
}
