// Package plugin simulates staged plugin execution around each request.
//
// Every dispatch runs a fixed state machine:
//
//	PreValidation -> PreOperation -> MainOperation -> PostOperation -> Completed
//
// and moves to Faulted on the first error. Steps registered for a stage,
// message and entity run in registration order. A step receives the
// ExecutionContext of the current invocation and a Service bound to it;
// requests issued through that Service run one level deeper and share the
// outer invocation's SharedVariables. A DepthGuard stops runaway recursion
// with an InfiniteLoopGuard fault.
//
// Nothing is rolled back when a stage fails: mutations committed by
// earlier stages or nested requests stay in the store.
package plugin
