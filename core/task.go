package core

import (
	"context"
	"sync/atomic"
)

// TaskKind identifies what a task does when it becomes runnable.
type TaskKind uint8

const (
	// TaskKindNop completes immediately. Useful as a join point when
	// building graphs incrementally.
	TaskKindNop TaskKind = iota

	// TaskKindCall invokes a user function on a worker.
	TaskKindCall

	// TaskKindBarrier completes when all of its declared dependencies have
	// completed, then readies its dependent tasks (fan-in/fan-out).
	TaskKindBarrier

	// TaskKindWait completes when an external signal channel is closed.
	// Wait tasks are parked in the executor's wait set and never occupy a
	// worker while pending.
	TaskKindWait
)

func (k TaskKind) String() string {
	switch k {
	case TaskKindNop:
		return "nop"
	case TaskKindCall:
		return "call"
	case TaskKindBarrier:
		return "barrier"
	case TaskKindWait:
		return "wait"
	default:
		return "unknown"
	}
}

// NoAffinity indicates a task has no preferred topology group.
const NoAffinity = -1

// TaskFn is the body of a call task. It runs to completion on a single
// worker once all declared dependencies have completed; it must not block
// waiting on other tasks. A non-nil error fails the owning scope (first
// failure wins) and discards the task's dependents.
type TaskFn func(ctx context.Context) error

// Task is a node in a work DAG.
//
// All dependencies must be declared (via constructors or SetCompletionTask)
// before the task is enqueued into a Submission. A task is runnable iff its
// outstanding-dependency counter is zero. The intrusive next link means a
// task belongs to at most one list at any instant.
//
// Tasks are single-use: once submitted, ownership transfers to the executor
// and the producer must not touch the task again until its scope reports
// idle. The task's scope must outlive the task.
type Task struct {
	kind  TaskKind
	scope *Scope

	// next links this task into the (at most one) list that owns it.
	next *Task

	// pendingDependencies counts incomplete predecessor tasks. The task is
	// ready when it reaches zero.
	pendingDependencies int32

	// affinity is the preferred topology group index, or NoAffinity.
	affinity int32

	// retired guards against double-discard: a discard cascade from a
	// predecessor may reach a task already discarded from a waiting list.
	retired bool

	// tracker accounts this task against its submission; assigned by
	// Executor.Submit.
	tracker *submissionTracker

	fn              TaskFn          // call
	localMemorySize int             // call
	completionTask  *Task           // call/wait/nop: the single dependent
	dependentTasks  []*Task         // barrier: fan-out set
	signal          <-chan struct{} // wait
}

// NewNopTask creates a task that completes immediately when runnable.
func NewNopTask(scope *Scope) *Task {
	return &Task{kind: TaskKindNop, scope: scope, affinity: NoAffinity}
}

// NewCallTask creates a task that invokes fn on a worker when runnable.
func NewCallTask(scope *Scope, fn TaskFn) *Task {
	return &Task{kind: TaskKindCall, scope: scope, affinity: NoAffinity, fn: fn}
}

// NewBarrierTask creates a task that joins its (later-declared)
// dependencies and then readies every task in dependents. Each dependent
// gains one outstanding dependency on the barrier.
func NewBarrierTask(scope *Scope, dependents ...*Task) *Task {
	t := &Task{kind: TaskKindBarrier, scope: scope, affinity: NoAffinity, dependentTasks: dependents}
	for _, dep := range dependents {
		atomic.AddInt32(&dep.pendingDependencies, 1)
	}
	return t
}

// NewWaitTask creates a task gated on signal. The task completes (readying
// its dependents) after signal is closed; until then it sits in the
// executor's wait set without occupying a worker.
func NewWaitTask(scope *Scope, signal <-chan struct{}) *Task {
	return &Task{kind: TaskKindWait, scope: scope, affinity: NoAffinity, signal: signal}
}

// SetCompletionTask declares that dep depends on t: dep gains one
// outstanding dependency that is released when t completes. Nop, call, and
// wait tasks have a single dependent slot; barriers accumulate dependents.
// Use a barrier when a non-barrier task needs to fan out.
//
// Must be called before either task is submitted.
func (t *Task) SetCompletionTask(dep *Task) {
	if t.kind == TaskKindBarrier {
		t.dependentTasks = append(t.dependentTasks, dep)
	} else {
		t.completionTask = dep
	}
	atomic.AddInt32(&dep.pendingDependencies, 1)
}

// SetAffinity sets the preferred topology group for this task. The hint
// biases initial placement only; work stealing may run the task elsewhere.
func (t *Task) SetAffinity(group int) {
	t.affinity = int32(group)
}

// SetLocalMemorySize declares how many bytes of worker-local scratch memory
// the task body requires. Tasks requiring more than the executor's
// per-worker budget fail with ErrResourceExhausted without being invoked.
func (t *Task) SetLocalMemorySize(size int) {
	t.localMemorySize = size
}

// Scope returns the owning scope.
func (t *Task) Scope() *Scope { return t.scope }

// Kind returns the task kind.
func (t *Task) Kind() TaskKind { return t.kind }

// IsReady reports whether all declared dependencies have completed.
func (t *Task) IsReady() bool {
	return atomic.LoadInt32(&t.pendingDependencies) == 0
}

// eachDependent visits every task that depends on t.
func (t *Task) eachDependent(visit func(*Task)) {
	if t.completionTask != nil {
		visit(t.completionTask)
	}
	for _, dep := range t.dependentTasks {
		visit(dep)
	}
}

// complete retires the task successfully: each dependent's outstanding
// counter is decremented and dependents reaching zero are enqueued into
// pending for the caller to route back into circulation.
func (t *Task) complete(pending *Submission) {
	if t.scope != nil {
		t.scope.onTaskCompleted()
	}
	t.tracker.retire(outcomeCompleted)
	t.eachDependent(func(dep *Task) {
		if atomic.AddInt32(&dep.pendingDependencies, -1) == 0 {
			pending.Enqueue(dep)
		}
	})
}

// fail retires the task with err: the error is recorded into the owning
// scope (first failure wins) and every dependent whose last outstanding
// predecessor this was is discarded transitively. Dependents still waiting
// on other predecessors are discarded later, when those predecessors retire
// and the poisoned scope is observed.
func (t *Task) fail(err error) {
	if t.scope != nil {
		t.scope.fail(err)
		t.scope.onTaskFailed()
	}
	t.tracker.retire(outcomeFailed)

	var discard TaskList
	t.unwindDependencies(&discard)
	discard.Discard()
}

// discard retires the task without invoking its body, appending dependents
// that reach zero outstanding dependencies to list so the caller can
// continue the cascade iteratively (bounded stack depth on arbitrarily deep
// graphs).
func (t *Task) discard(list *TaskList) {
	if t.retired {
		return
	}
	t.retired = true
	if t.scope != nil {
		t.scope.onTaskDiscarded()
	}
	t.tracker.retire(outcomeDiscarded)
	t.unwindDependencies(list)
}

func (t *Task) unwindDependencies(list *TaskList) {
	t.eachDependent(func(dep *Task) {
		if atomic.AddInt32(&dep.pendingDependencies, -1) == 0 {
			list.PushBack(dep)
		}
	})
}
