package core

// ExecutorStats represents runtime observability state for an executor.
// Counters are cumulative since creation; gauges are instantaneous.
type ExecutorStats struct {
	WorkerCount int
	Running     bool

	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TasksDiscarded uint64
	TasksStolen    uint64

	WorkerParks uint64
	WorkerWakes uint64

	// PendingWaits is the number of wait tasks currently parked in the
	// wait set.
	PendingWaits int
}

// WorkerStats represents runtime observability state for a single worker.
type WorkerStats struct {
	GroupIndex int
	Name       string

	TasksExecuted uint64
	TasksStolen   uint64
	Parks         uint64
}
