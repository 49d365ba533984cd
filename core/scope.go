package core

import (
	"sync/atomic"
	"time"
)

// ScopeStats is a snapshot of per-scope dispatch counters.
type ScopeStats struct {
	TasksCompleted uint64
	TasksFailed    uint64
	TasksDiscarded uint64
}

type statusCell struct {
	err error
}

// Scope groups related task submissions so they can be tracked, failed, and
// awaited as a unit. A scope must outlive every task created against it;
// scopes are cheap and typically live for the duration of a component (one
// per pipeline, one per client session, and so on).
//
// All methods are safe for concurrent use.
type Scope struct {
	name string

	// mu guards pendingSubmissions. Begin/End are short critical sections;
	// the idle notification is always posted outside the lock so woken
	// waiters never contend with the poster.
	mu                 SlimMutex
	pendingSubmissions int

	// idle is posted each time pendingSubmissions returns to zero.
	idle Notification

	// status holds the first failure observed by any task in the scope.
	// Set once with a CAS; later failures lose the race and are dropped
	// (still counted in stats).
	status atomic.Pointer[statusCell]

	tasksCompleted uint64
	tasksFailed    uint64
	tasksDiscarded uint64
}

// NewScope creates a scope with a diagnostic name.
func NewScope(name string) *Scope {
	return &Scope{name: name}
}

// Name returns the diagnostic name given at construction.
func (s *Scope) Name() string { return s.name }

// Begin records that a submission against this scope is in flight. Each
// Begin must be paired with exactly one End. Called by Executor.Submit;
// exposed for code coordinating its own units of scope-tracked work.
func (s *Scope) Begin() {
	s.mu.Lock()
	s.pendingSubmissions++
	s.mu.Unlock()
}

// End retires one in-flight submission. When the count returns to zero the
// idle notification is posted to all waiters.
func (s *Scope) End() {
	s.mu.Lock()
	s.pendingSubmissions--
	idle := s.pendingSubmissions == 0
	s.mu.Unlock()
	if idle {
		s.idle.Post(AllWaiters)
	}
}

// IsIdle reports whether no submissions are in flight. The answer is
// instantaneous and may be stale by the time the caller acts on it; a new
// submission can arrive immediately after.
func (s *Scope) IsIdle() bool {
	s.mu.Lock()
	idle := s.pendingSubmissions == 0
	s.mu.Unlock()
	return idle
}

// WaitIdle blocks until the scope has no submissions in flight or the
// deadline passes (ErrDeadlineExceeded). A zero deadline polls: it returns
// nil iff the scope is idle right now. Idle is edge-triggered per quiescent
// point; tasks submitted after WaitIdle returns need a new wait.
func (s *Scope) WaitIdle(deadline time.Time) error {
	return s.idle.Await(s.IsIdle, deadline)
}

// fail records err as the scope's permanent status if no failure has been
// recorded yet. The first failure wins; all others are dropped.
func (s *Scope) fail(err error) {
	if err == nil {
		return
	}
	s.status.CompareAndSwap(nil, &statusCell{err: err})
}

// Abort poisons the scope with ErrAborted. In-flight task bodies run to
// completion; everything not yet started is discarded by workers when they
// observe the failed scope.
func (s *Scope) Abort() {
	s.fail(ErrAborted)
}

// HasFailed reports whether a failure has been recorded, without consuming
// it.
func (s *Scope) HasFailed() bool {
	return s.status.Load() != nil
}

// ConsumeStatus returns the scope's first recorded failure, or nil, and
// resets the slot so the scope can be reused for new submissions.
func (s *Scope) ConsumeStatus() error {
	cell := s.status.Swap(nil)
	if cell == nil {
		return nil
	}
	return cell.err
}

func (s *Scope) onTaskCompleted() { atomic.AddUint64(&s.tasksCompleted, 1) }
func (s *Scope) onTaskFailed()    { atomic.AddUint64(&s.tasksFailed, 1) }
func (s *Scope) onTaskDiscarded() { atomic.AddUint64(&s.tasksDiscarded, 1) }

// Statistics returns a snapshot of the scope's dispatch counters.
func (s *Scope) Statistics() ScopeStats {
	return ScopeStats{
		TasksCompleted: atomic.LoadUint64(&s.tasksCompleted),
		TasksFailed:    atomic.LoadUint64(&s.tasksFailed),
		TasksDiscarded: atomic.LoadUint64(&s.tasksDiscarded),
	}
}

// ConsumeStatistics returns a snapshot of the counters and resets them to
// zero. Counts accumulated between the loads and the stores of a concurrent
// dispatch may land in either snapshot.
func (s *Scope) ConsumeStatistics() ScopeStats {
	return ScopeStats{
		TasksCompleted: atomic.SwapUint64(&s.tasksCompleted, 0),
		TasksFailed:    atomic.SwapUint64(&s.tasksFailed, 0),
		TasksDiscarded: atomic.SwapUint64(&s.tasksDiscarded, 0),
	}
}
