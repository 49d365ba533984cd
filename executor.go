package taskexecutor

import "sync"

// =============================================================================
// Global Executor Helper (Singleton)
// =============================================================================

var (
	globalExecutor *Executor
	globalMu       sync.Mutex
)

// InitGlobalExecutor initializes the process-wide executor with the given
// config. The first call wins; later calls are no-ops. Panics if the config
// is invalid, since a misconfigured singleton at startup is a programming
// error.
func InitGlobalExecutor(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalExecutor != nil {
		return // Already initialized
	}

	executor, err := CreateExecutor(cfg)
	if err != nil {
		panic("taskexecutor: invalid global executor config: " + err.Error())
	}
	globalExecutor = executor
}

// GetGlobalExecutor returns the global executor instance.
// It panics if InitGlobalExecutor has not been called.
func GetGlobalExecutor() *Executor {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalExecutor == nil {
		panic("GlobalExecutor not initialized. Call InitGlobalExecutor() first.")
	}
	return globalExecutor
}

// ShutdownGlobalExecutor shuts the global executor down and clears the
// singleton so tests can re-initialize.
func ShutdownGlobalExecutor() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalExecutor != nil {
		globalExecutor.Shutdown()
		globalExecutor = nil
	}
}

// Submit stages a submission against the global executor. Convenience for
// the common one-executor-per-process setup.
func Submit(scope *Scope, submission *Submission) error {
	return GetGlobalExecutor().Submit(scope, submission)
}
