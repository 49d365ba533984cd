package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task body panics on a worker.
// This allows custom panic handling, logging, and recovery strategies; the
// panic is always converted into a scope failure regardless of the handler.
//
// Implementations should be thread-safe as they may be called concurrently
// from multiple workers.
type PanicHandler interface {
	// HandlePanic is called when a task body panics.
	//
	// Parameters:
	// - ctx: The context the task was running under (carries worker info)
	// - scopeName: The name of the scope owning the panicked task
	// - workerID: The topology group index of the worker that ran the task
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, scopeName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, scopeName string, workerID int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
		workerID, scopeName, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution
// performance; they are called from worker hot paths.
type Metrics interface {
	// RecordTaskDuration records how long a task body took to execute.
	//
	// Parameters:
	// - scopeName: The name of the scope owning the task
	// - kind: The task kind
	// - duration: How long the task body took to execute
	RecordTaskDuration(scopeName string, kind TaskKind, duration time.Duration)

	// RecordTaskPanic records that a task body panicked during execution.
	//
	// Parameters:
	// - scopeName: The name of the scope owning the task
	// - panicInfo: The panic value recovered from the task
	RecordTaskPanic(scopeName string, panicInfo any)

	// RecordTaskFailed records that a task failed with an error, including
	// tasks rejected before invocation (local memory budget, poisoned
	// scope).
	RecordTaskFailed(scopeName string, err error)

	// RecordSteal records that a worker stole tasks from a sibling.
	//
	// Parameters:
	// - thiefID: The topology group index of the stealing worker
	// - victimID: The topology group index of the victim worker
	// - count: The number of tasks transferred
	RecordSteal(thiefID, victimID, count int)

	// RecordQueueDepth records a worker's pending-task depth. Called when
	// the worker flushes its mailbox, so it tracks bursts rather than a
	// steady sample.
	RecordQueueDepth(workerID, depth int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(scopeName string, kind TaskKind, duration time.Duration) {
}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(scopeName string, panicInfo any) {
}

// RecordTaskFailed is a no-op.
func (m *NilMetrics) RecordTaskFailed(scopeName string, err error) {
}

// RecordSteal is a no-op.
func (m *NilMetrics) RecordSteal(thiefID, victimID, count int) {
}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(workerID, depth int) {
}
