package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/plugin"
)

// Event is one dispatched request as seen by a Recorder.
type Event struct {
	Seq     int
	Depth   int
	Message string
	Entity  string
	ID      uuid.UUID
	Outcome string
}

// Recorder captures every dispatch, nested ones included, in the order
// they start.
type Recorder struct {
	events []*Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Registration returns the middleware registration for r.
func (r *Recorder) Registration() Registration {
	return Registration{Name: "recorder", Middleware: r.middleware}
}

func (r *Recorder) middleware(next Dispatcher) Dispatcher {
	return func(ctx context.Context, req *message.Request) (*message.Response, error) {
		ev := &Event{
			Seq:     len(r.events) + 1,
			Depth:   plugin.NextDepth(ctx),
			Message: req.Name,
		}
		if rec, ok := req.Parameters[message.ParamTarget].(*ir.Record); ok && rec != nil {
			ev.Entity, ev.ID = rec.LogicalName, rec.ID
		} else if ref, ok := req.PrimaryTarget(); ok {
			ev.Entity, ev.ID = ref.LogicalName, ref.ID
		}
		r.events = append(r.events, ev)

		resp, err := next(ctx, req)
		ev.Outcome = outcome(err)
		if err == nil && ev.ID == uuid.Nil {
			ev.ID = resp.ID()
		}
		return resp, err
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	out := make([]Event, len(r.events))
	for i, ev := range r.events {
		out[i] = *ev
	}
	return out
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.events = nil
}
