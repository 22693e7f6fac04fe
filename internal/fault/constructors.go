package fault

import (
	"fmt"
	"strconv"
)

// NewNotFound reports a missing record.
func NewNotFound(logicalName, id string) *Fault {
	return New(NotFound, "%s with id %s does not exist", logicalName, id).
		With("entity", logicalName).
		With("id", id)
}

// NewEntityNotFound reports an entity with no registered metadata.
func NewEntityNotFound(logicalName string) *Fault {
	return New(NotFound, "entity %s is not registered", logicalName).
		With("entity", logicalName)
}

// NewDuplicateID reports a create with an id already in use.
func NewDuplicateID(logicalName, id string) *Fault {
	return New(DuplicateID, "a record of %s with id %s already exists", logicalName, id).
		With("entity", logicalName).
		With("id", id)
}

// NewReferenceIntegrity reports an attribute pointing at a missing record.
func NewReferenceIntegrity(logicalName, attribute, target, targetID string) *Fault {
	return New(ReferenceIntegrity, "%s.%s references %s with id %s, which does not exist",
		logicalName, attribute, target, targetID).
		With("entity", logicalName).
		With("attribute", attribute).
		With("target", target).
		With("id", targetID)
}

// NewTypeMismatch reports an attribute value of the wrong kind.
func NewTypeMismatch(logicalName, attribute, expected, actual string) *Fault {
	return New(TypeMismatch, "%s.%s expects %s but got %s", logicalName, attribute, expected, actual).
		With("entity", logicalName).
		With("attribute", attribute).
		With("expected", expected).
		With("actual", actual)
}

// NewMissingParameter reports a required request parameter that was not supplied.
func NewMissingParameter(request, parameter string) *Fault {
	return New(MissingRequiredParameter, "%s requires parameter %s", request, parameter).
		With("request", request).
		With("parameter", parameter)
}

// NewUnsupported reports a request no executor accepts.
func NewUnsupported(request string) *Fault {
	return New(UnsupportedRequest, "no executor handles request %s", request).
		With("request", request)
}

// NewDomain wraps an error raised by a plugin step.
func NewDomain(err error) *Fault {
	return &Fault{Code: DomainFault, Message: err.Error(), Err: err}
}

// NewInfiniteLoop reports a nested invocation beyond the depth ceiling.
func NewInfiniteLoop(depth, limit int) *Fault {
	return New(InfiniteLoopGuard, "invocation depth %d exceeds limit %d", depth, limit).
		With("depth", strconv.Itoa(depth)).
		With("max_depth", strconv.Itoa(limit))
}

// NewInvalidQuery reports a structural query error.
func NewInvalidQuery(format string, args ...any) *Fault {
	return &Fault{Code: InvalidQuery, Message: fmt.Sprintf(format, args...)}
}
