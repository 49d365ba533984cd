package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// WorkerInfo describes the worker executing the current task body.
type WorkerInfo struct {
	GroupIndex int
	Name       string
}

type workerKeyType struct{}

var workerKey workerKeyType

// WorkerInfoFromContext returns the identity of the worker running the
// current task body, if the context came from an executor worker.
func WorkerInfoFromContext(ctx context.Context) (WorkerInfo, bool) {
	if w, ok := ctx.Value(workerKey).(*worker); ok {
		return WorkerInfo{GroupIndex: w.group.GroupIndex, Name: w.group.Name}, true
	}
	return WorkerInfo{}, false
}

// WorkerLocalMemory returns the scratch buffer of the worker running the
// current task body, or nil outside a worker. The buffer is reused across
// tasks on the same worker and must not be retained past the body's return.
func WorkerLocalMemory(ctx context.Context) []byte {
	if w, ok := ctx.Value(workerKey).(*worker); ok {
		return w.localMemory
	}
	return nil
}

// stealWindow bounds how many tasks a thief takes from a victim in one
// steal, on top of the take-at-most-half rule.
const stealWindow = 16

// worker owns one goroutine of the executor pool. Inbound tasks arrive
// through the lock-free mailbox (any thread may push); the local list is
// touched only by the worker goroutine itself. Thieves never touch a
// victim's local list: they flush the victim's mailbox, split off their
// share, and push the remainder back.
type worker struct {
	executor *Executor
	group    TopologyGroup

	mailbox AtomicTaskList
	local   TaskList

	wake Notification

	localMemory []byte

	tasksExecuted uint64
	tasksStolen   uint64
	parks         uint64
}

func newWorker(e *Executor, group TopologyGroup, localMemorySize int) *worker {
	w := &worker{executor: e, group: group}
	if localMemorySize > 0 {
		w.localMemory = make([]byte, localMemorySize)
	}
	return w
}

// run is the worker goroutine body. It drains work until the executor shuts
// down, then discards whatever remains in its queues.
func (w *worker) run(ctx context.Context) {
	defer w.executor.wg.Done()
	ctx = context.WithValue(ctx, workerKey, w)
	e := w.executor
	e.logger.Debug("worker started", F("worker", w.group.Name))

	for !e.isShutdown() {
		if w.pump(ctx) {
			continue
		}
		w.park()
	}

	// Anything still queued at shutdown is abandoned without running.
	w.local.AppendFromFIFOSlist(&w.mailbox)
	discarded := w.local.Size()
	w.local.Discard()
	e.logger.Debug("worker exited",
		F("worker", w.group.Name),
		F("executed", atomic.LoadUint64(&w.tasksExecuted)),
		F("discardedAtExit", discarded))
}

// pump executes tasks until none can be found locally, in the mailbox, or
// at a victim. Reports whether any task was executed.
func (w *worker) pump(ctx context.Context) bool {
	executed := false
	e := w.executor
	for !e.isShutdown() {
		task := w.local.PopFront()
		if task == nil {
			w.flushMailbox()
			task = w.local.PopFront()
		}
		if task == nil {
			if !w.trySteal() {
				break
			}
			executed = true // stolen work lands in local; keep pumping
			continue
		}
		w.execute(ctx, task)
		executed = true
	}
	return executed
}

func (w *worker) flushMailbox() {
	w.local.AppendFromFIFOSlist(&w.mailbox)
	if depth := w.local.Size(); depth > 0 {
		w.executor.metrics.RecordQueueDepth(w.group.GroupIndex, depth)
	}
}

// trySteal flushes one victim's mailbox, keeps the tail half (bounded by
// stealWindow), and pushes the rest back to the victim. Victims in the same
// cache group are tried first. Reports whether any tasks were taken.
func (w *worker) trySteal() bool {
	if w.stealFrom(func(v *worker) bool { return v.group.CacheGroup == w.group.CacheGroup }) {
		return true
	}
	return w.stealFrom(func(v *worker) bool { return v.group.CacheGroup != w.group.CacheGroup })
}

func (w *worker) stealFrom(eligible func(*worker) bool) bool {
	e := w.executor
	n := len(e.workers)
	start := w.group.GroupIndex + 1
	for i := 0; i < n; i++ {
		victim := e.workers[(start+i)%n]
		if victim == w || !eligible(victim) {
			continue
		}
		loot := victim.mailbox.Flush(FlushOrderApproximateFIFO)
		if loot.IsEmpty() {
			continue
		}
		var stolen TaskList
		loot.Split(stealWindow, &stolen)
		if !loot.IsEmpty() {
			victim.mailbox.PushAll(&loot)
			victim.wake.Post(1)
		}
		count := stolen.Size()
		w.local.Append(&stolen)
		atomic.AddUint64(&w.tasksStolen, uint64(count))
		atomic.AddUint64(&e.tasksStolen, uint64(count))
		e.metrics.RecordSteal(w.group.GroupIndex, victim.group.GroupIndex, count)
		return true
	}
	return false
}

// park blocks until woken or until the next poll point. When wait tasks are
// pending without a dedicated wait thread, or other workers still hold
// stealable work, the park is bounded so this worker re-polls. A single
// prepare/commit round, not a predicate loop: any post returns control to
// the scheduling loop so the worker can re-evaluate the whole system state.
func (w *worker) park() {
	e := w.executor
	atomic.AddUint64(&w.parks, 1)
	atomic.AddUint64(&e.workerParks, 1)

	if signaled := e.waits.pollInline(); !signaled.IsEmpty() {
		w.local.Append(&signaled)
		return
	}

	token := w.wake.PrepareWait()
	if e.isShutdown() || !w.mailbox.IsEmpty() {
		w.wake.CancelWait()
		return
	}
	deadline := InfiniteFuture
	if e.waits.needsPolling() || e.pendingTaskCount() > 0 {
		deadline = time.Now().Add(time.Millisecond)
	}
	_ = w.wake.CommitWait(token, deadline)
}

// execute runs one task to retirement: body invocation for calls, immediate
// completion for nop/barrier/wait, discard when the scope has already
// failed. Dependents readied by completion are routed back into
// circulation.
func (w *worker) execute(ctx context.Context, task *Task) {
	e := w.executor
	atomic.AddUint64(&w.tasksExecuted, 1)

	scope := task.scope
	if scope != nil && scope.HasFailed() {
		var discard TaskList
		discard.PushBack(task)
		discard.Discard()
		return
	}

	if task.kind == TaskKindCall {
		if task.localMemorySize > len(w.localMemory) {
			err := fmt.Errorf("task requires %d bytes of worker-local memory, budget is %d: %w",
				task.localMemorySize, len(w.localMemory), ErrResourceExhausted)
			e.metrics.RecordTaskFailed(scopeName(scope), err)
			task.fail(err)
			return
		}
		if err := w.invoke(ctx, task); err != nil {
			e.metrics.RecordTaskFailed(scopeName(scope), err)
			e.logger.Warn("task failed",
				F("worker", w.group.Name),
				F("scope", scopeName(scope)),
				F("error", err))
			task.fail(err)
			return
		}
	}

	var pending Submission
	task.complete(&pending)
	w.routePending(&pending)
}

// invoke runs the task body with panic recovery and duration metrics.
func (w *worker) invoke(ctx context.Context, task *Task) (err error) {
	e := w.executor
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			e.panicHandler.HandlePanic(ctx, scopeName(task.scope), w.group.GroupIndex, r, stack)
			e.metrics.RecordTaskPanic(scopeName(task.scope), r)
			err = fmt.Errorf("task panicked: %v", r)
		}
		e.metrics.RecordTaskDuration(scopeName(task.scope), task.kind, time.Since(start))
	}()
	return task.fn(ctx)
}

// routePending puts the dependents readied by a completed task back into
// circulation: runnable tasks stay on this worker (they are continuations
// of work just finished here), signal-gated waits go to the wait set.
func (w *worker) routePending(pending *Submission) {
	ready := pending.takeReady()
	w.local.Prepend(&ready)
	waiting := pending.takeWaiting()
	w.executor.dispatchWaiting(&waiting)
}

func scopeName(s *Scope) string {
	if s == nil {
		return ""
	}
	return s.Name()
}
