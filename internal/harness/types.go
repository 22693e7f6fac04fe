package harness

import "github.com/google/uuid"

// TraceEvent is one dispatched request, nested ones included.
type TraceEvent struct {
	Seq     int       `json:"seq"`
	Depth   int       `json:"depth"`
	Message string    `json:"message"`
	Entity  string    `json:"entity,omitempty"`
	ID      uuid.UUID `json:"id"`
	Outcome string    `json:"outcome"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every request in the order it started.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Vars holds the ids bound by save.
	Vars map[string]string `json:"vars,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Vars:   make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
