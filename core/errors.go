package core

import "errors"

// Error taxonomy for the executor.
//
// Construction errors (ErrResourceExhausted, ErrInvalidArgument) are returned
// immediately and leave no partially-constructed shared state. Scheduling
// errors (ErrDeadlineExceeded) are local to the call and retryable. Task
// execution failures are never returned across goroutines; they are recorded
// into the owning Scope's first-failure slot.
var (
	// ErrResourceExhausted indicates a fixed-capacity structure is full
	// (e.g. pushing a topology group past the group capacity).
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrInvalidArgument indicates a malformed configuration or submission.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDeadlineExceeded indicates a wait expired before its condition was
	// satisfied. It has no side effects on the underlying task graph.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrAborted is recorded into a scope by Scope.Abort.
	ErrAborted = errors.New("aborted")

	// ErrExecutorShutdown indicates a submission was rejected because the
	// executor is shutting down (or has shut down).
	ErrExecutorShutdown = errors.New("executor is shut down")
)
