package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// SchedulingMode: Executor behavior flags
// =============================================================================

// SchedulingMode is a bitmask of executor behavior flags.
type SchedulingMode uint32

const (
	// SchedulingModeDeferWorkerStartup delays launching worker goroutines
	// until the first Submit. Useful when an executor is created early in
	// process startup but may never receive work.
	SchedulingModeDeferWorkerStartup SchedulingMode = 1 << iota

	// SchedulingModeDedicatedWaitThread runs a dedicated goroutine that
	// blocks over all registered wait-task channels and re-injects tasks
	// the moment their signal fires. Without it, idle workers poll the
	// wait set before parking, trading wakeup latency for one fewer
	// goroutine.
	SchedulingModeDedicatedWaitThread
)

// DefaultWorkerLocalMemorySize is the per-worker scratch allocation used
// when ExecutorOptions leaves WorkerLocalMemorySize zero.
const DefaultWorkerLocalMemorySize = 64 * 1024

// ExecutorOptions configures NewExecutor. The zero value is usable: default
// local memory budget, no-op logger, default panic handler, nil metrics.
type ExecutorOptions struct {
	SchedulingMode SchedulingMode

	// WorkerLocalMemorySize is the scratch bytes allocated per worker and
	// exposed to task bodies via WorkerLocalMemory. Tasks declaring a
	// larger requirement fail with ErrResourceExhausted. Negative disables
	// the allocation entirely.
	WorkerLocalMemorySize int

	Logger       Logger
	PanicHandler PanicHandler
	Metrics      Metrics
}

// =============================================================================
// submissionTracker: ties a batch of tasks back to its scope
// =============================================================================

type taskOutcome uint8

const (
	outcomeCompleted taskOutcome = iota
	outcomeFailed
	outcomeDiscarded
)

// submissionTracker counts down the tasks of one Submit call; the last task
// to retire ends the scope's in-flight bracket. Shared by every task of the
// submission, including tasks that later migrate between workers.
type submissionTracker struct {
	executor  *Executor
	scope     *Scope
	remaining int32
}

func (st *submissionTracker) retire(outcome taskOutcome) {
	if st == nil {
		return
	}
	st.executor.recordOutcome(outcome)
	if atomic.AddInt32(&st.remaining, -1) == 0 {
		st.scope.End()
	}
}

// =============================================================================
// Executor: worker pool with work stealing and wait multiplexing
// =============================================================================

// Executor runs task graphs over a fixed pool of workers, one per topology
// group. Ready tasks are distributed to worker mailboxes; idle workers
// steal from busy siblings; wait tasks park in a wait set until their
// signal fires. Create with NewExecutor, feed with Submit, stop with
// Shutdown.
//
// All methods are safe for concurrent use.
type Executor struct {
	logger       Logger
	panicHandler PanicHandler
	metrics      Metrics
	mode         SchedulingMode

	workers []*worker
	waits   *waitSet

	// ctx is passed to task bodies; canceled on shutdown so long-running
	// bodies can bail out cooperatively.
	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	wg        sync.WaitGroup

	shutdownFlag uint32
	shutdownOnce sync.Once

	// nextWorker round-robins ready tasks with no usable affinity.
	nextWorker uint32

	tasksSubmitted uint64
	tasksCompleted uint64
	tasksFailed    uint64
	tasksDiscarded uint64
	tasksStolen    uint64
	workerParks    uint64
	workerWakes    uint64
}

// NewExecutor creates an executor with one worker per topology group. The
// topology is copied; later mutation of it has no effect. Unless
// SchedulingModeDeferWorkerStartup is set, worker goroutines are running
// when NewExecutor returns.
func NewExecutor(topology *Topology, opts ExecutorOptions) (*Executor, error) {
	if topology == nil || topology.GroupCount() == 0 {
		return nil, fmt.Errorf("topology must have at least one group: %w", ErrInvalidArgument)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewNoOpLogger()
	}
	panicHandler := opts.PanicHandler
	if panicHandler == nil {
		panicHandler = &DefaultPanicHandler{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = &NilMetrics{}
	}
	localMemorySize := opts.WorkerLocalMemorySize
	if localMemorySize == 0 {
		localMemorySize = DefaultWorkerLocalMemorySize
	} else if localMemorySize < 0 {
		localMemorySize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		logger:       logger,
		panicHandler: panicHandler,
		metrics:      metrics,
		mode:         opts.SchedulingMode,
		ctx:          ctx,
		cancel:       cancel,
	}
	e.waits = newWaitSet(e, opts.SchedulingMode&SchedulingModeDedicatedWaitThread != 0)

	e.workers = make([]*worker, topology.GroupCount())
	for i := range e.workers {
		group, _ := topology.Group(i)
		e.workers[i] = newWorker(e, group, localMemorySize)
	}

	logger.Info("executor created",
		F("workers", len(e.workers)),
		F("localMemorySize", localMemorySize),
		F("deferStartup", opts.SchedulingMode&SchedulingModeDeferWorkerStartup != 0),
		F("dedicatedWaitThread", opts.SchedulingMode&SchedulingModeDedicatedWaitThread != 0))

	if opts.SchedulingMode&SchedulingModeDeferWorkerStartup == 0 {
		e.start()
	}
	return e, nil
}

// start launches the worker goroutines and the wait thread. Idempotent.
func (e *Executor) start() {
	e.startOnce.Do(func() {
		for _, w := range e.workers {
			e.wg.Add(1)
			go w.run(e.ctx)
		}
		e.waits.start()
		e.logger.Debug("executor workers started", F("workers", len(e.workers)))
	})
}

// WorkerCount returns the number of workers (topology groups).
func (e *Executor) WorkerCount() int { return len(e.workers) }

func (e *Executor) isShutdown() bool {
	return atomic.LoadUint32(&e.shutdownFlag) != 0
}

// Submit hands a batch of tasks to the executor. Every task in the
// submission (and every dependent reachable from it) must belong to scope;
// mixed-scope batches are rejected with ErrInvalidArgument before any task
// is dispatched. On success the executor owns the tasks; the scope's
// in-flight count covers them until the last one retires.
//
// After shutdown begins, Submit returns ErrExecutorShutdown and leaves the
// submission untouched so the caller can Discard it.
func (e *Executor) Submit(scope *Scope, submission *Submission) error {
	if scope == nil {
		return fmt.Errorf("submission requires a scope: %w", ErrInvalidArgument)
	}
	if e.isShutdown() {
		return ErrExecutorShutdown
	}
	if submission.IsEmpty() {
		return nil
	}

	tracker := &submissionTracker{executor: e, scope: scope}
	total, err := e.adoptTasks(scope, tracker, submission)
	if err != nil {
		e.disownTasks(tracker, submission)
		return err
	}
	tracker.remaining = int32(total)
	atomic.AddUint64(&e.tasksSubmitted, uint64(total))

	scope.Begin()
	e.start() // no-op unless startup was deferred

	ready := submission.takeReady()
	waiting := submission.takeWaiting()
	e.dispatchWaiting(&waiting)
	e.dispatchReady(&ready)
	return nil
}

// adoptTasks walks both partitions plus all reachable dependents, verifying
// scope membership and attaching the tracker. Returns the total task count.
//
// Dependents enqueued in the same submission are visited twice (once via
// the list, once via their predecessor); the tracker pointer check keeps
// the count exact.
func (e *Executor) adoptTasks(scope *Scope, tracker *submissionTracker, submission *Submission) (int, error) {
	total := 0
	var adopt func(t *Task) error
	adopt = func(t *Task) error {
		if t.tracker == tracker {
			return nil
		}
		if t.scope != scope {
			return fmt.Errorf("task scope %q does not match submission scope %q: %w",
				t.scope.Name(), scope.Name(), ErrInvalidArgument)
		}
		t.tracker = tracker
		total++
		var err error
		t.eachDependent(func(dep *Task) {
			if err == nil {
				err = adopt(dep)
			}
		})
		return err
	}
	for _, list := range []*TaskList{&submission.ready, &submission.waiting} {
		for t := list.Front(); t != nil; t = t.next {
			if err := adopt(t); err != nil {
				return 0, err
			}
		}
	}
	return total, nil
}

// disownTasks undoes a partial adoptTasks after a rejected submission so a
// later Discard does not touch executor counters.
func (e *Executor) disownTasks(tracker *submissionTracker, submission *Submission) {
	var disown func(t *Task)
	disown = func(t *Task) {
		if t.tracker != tracker {
			return
		}
		t.tracker = nil
		t.eachDependent(disown)
	}
	for _, list := range []*TaskList{&submission.ready, &submission.waiting} {
		for t := list.Front(); t != nil; t = t.next {
			disown(t)
		}
	}
}

// dispatchReady distributes runnable tasks to worker mailboxes. Tasks with
// a valid affinity go to their preferred worker; the rest round-robin. All
// workers are woken, not just the targets: idle siblings that find their
// own mailbox empty will steal from the loaded ones.
func (e *Executor) dispatchReady(ready *TaskList) {
	if ready.IsEmpty() {
		return
	}
	buckets := make([]TaskList, len(e.workers))
	for {
		task := ready.PopFront()
		if task == nil {
			break
		}
		idx := int(task.affinity)
		if idx < 0 || idx >= len(e.workers) {
			idx = int(atomic.AddUint32(&e.nextWorker, 1)-1) % len(e.workers)
		}
		buckets[idx].PushBack(task)
	}
	for i, w := range e.workers {
		w.mailbox.PushAll(&buckets[i])
		w.wake.Post(1)
		atomic.AddUint64(&e.workerWakes, 1)
	}
}

// dispatchTask routes a single runnable task, used by the wait set when a
// signal fires. During shutdown the task is discarded instead; workers may
// already be draining their final queues.
func (e *Executor) dispatchTask(task *Task) {
	var list TaskList
	list.PushBack(task)
	if e.isShutdown() {
		list.Discard()
		return
	}
	e.dispatchReady(&list)
}

// dispatchWaiting registers dependency-free wait tasks with the wait set.
// Tasks still gated on in-graph dependencies are dropped from the list;
// they are owned through their predecessors' dependent links and re-enter
// circulation when their counter reaches zero.
func (e *Executor) dispatchWaiting(waiting *TaskList) {
	for {
		task := waiting.PopFront()
		if task == nil {
			return
		}
		if task.kind == TaskKindWait && task.IsReady() {
			e.waits.register(task)
		}
	}
}

func (e *Executor) recordOutcome(outcome taskOutcome) {
	switch outcome {
	case outcomeCompleted:
		atomic.AddUint64(&e.tasksCompleted, 1)
	case outcomeFailed:
		atomic.AddUint64(&e.tasksFailed, 1)
	case outcomeDiscarded:
		atomic.AddUint64(&e.tasksDiscarded, 1)
	}
}

// pendingTaskCount returns submitted tasks not yet retired.
func (e *Executor) pendingTaskCount() uint64 {
	retired := atomic.LoadUint64(&e.tasksCompleted) +
		atomic.LoadUint64(&e.tasksFailed) +
		atomic.LoadUint64(&e.tasksDiscarded)
	return atomic.LoadUint64(&e.tasksSubmitted) - retired
}

// Shutdown stops the executor: task bodies see their context canceled,
// undispatched tasks are discarded (their scopes end normally with
// discarded counts), and all worker goroutines are joined before Shutdown
// returns. Idempotent; later Submits fail with ErrExecutorShutdown.
func (e *Executor) Shutdown() {
	e.shutdownOnce.Do(func() {
		atomic.StoreUint32(&e.shutdownFlag, 1)
		e.logger.Info("executor shutting down",
			F("pendingTasks", e.pendingTaskCount()))
		e.cancel()

		// Workers launched lazily may have never started; start them so
		// each runs its exit path and discards its queues.
		e.start()
		e.waits.stop()
		for _, w := range e.workers {
			w.wake.Post(AllWaiters)
		}
		e.wg.Wait()
		e.logger.Info("executor shutdown complete",
			F("completed", atomic.LoadUint64(&e.tasksCompleted)),
			F("discarded", atomic.LoadUint64(&e.tasksDiscarded)))
	})
}

// ShutdownGraceful waits up to timeout for in-flight tasks to drain, then
// shuts down. Returns ErrDeadlineExceeded if the deadline passed with work
// still pending; the executor is shut down either way (remaining tasks are
// discarded).
func (e *Executor) ShutdownGraceful(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for e.pendingTaskCount() > 0 {
		if time.Now().After(deadline) {
			e.Shutdown()
			return fmt.Errorf("graceful shutdown timed out with %d tasks pending: %w",
				e.pendingTaskCount(), ErrDeadlineExceeded)
		}
		<-ticker.C
	}
	e.Shutdown()
	return nil
}

// Stats returns a snapshot of executor counters.
func (e *Executor) Stats() ExecutorStats {
	return ExecutorStats{
		WorkerCount:    len(e.workers),
		Running:        !e.isShutdown(),
		TasksSubmitted: atomic.LoadUint64(&e.tasksSubmitted),
		TasksCompleted: atomic.LoadUint64(&e.tasksCompleted),
		TasksFailed:    atomic.LoadUint64(&e.tasksFailed),
		TasksDiscarded: atomic.LoadUint64(&e.tasksDiscarded),
		TasksStolen:    atomic.LoadUint64(&e.tasksStolen),
		WorkerParks:    atomic.LoadUint64(&e.workerParks),
		WorkerWakes:    atomic.LoadUint64(&e.workerWakes),
		PendingWaits:   e.waits.size(),
	}
}

// WorkerStatsSnapshot returns per-worker counters, indexed by group.
func (e *Executor) WorkerStatsSnapshot() []WorkerStats {
	out := make([]WorkerStats, len(e.workers))
	for i, w := range e.workers {
		out[i] = WorkerStats{
			GroupIndex:    w.group.GroupIndex,
			Name:          w.group.Name,
			TasksExecuted: atomic.LoadUint64(&w.tasksExecuted),
			TasksStolen:   atomic.LoadUint64(&w.tasksStolen),
			Parks:         atomic.LoadUint64(&w.parks),
		}
	}
	return out
}
