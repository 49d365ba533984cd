package core

import "sync/atomic"

// =============================================================================
// TaskList: singly-linked intrusive task list (single-owner, no locking)
// =============================================================================

// TaskList links tasks through their intrusive next pointer. A task may be
// in at most one list at a time. The zero value is an empty list.
//
// TaskList performs no synchronization; callers own the list exclusively.
// Cross-thread handoff goes through AtomicTaskList.
type TaskList struct {
	head *Task
	tail *Task
}

// IsEmpty reports whether the list holds no tasks.
func (l *TaskList) IsEmpty() bool { return l.head == nil }

// Size walks the list and returns the number of tasks. O(n); intended for
// tests and diagnostics.
func (l *TaskList) Size() int {
	n := 0
	for t := l.head; t != nil; t = t.next {
		n++
	}
	return n
}

// Front returns the first task without removing it, or nil.
func (l *TaskList) Front() *Task { return l.head }

// Back returns the last task without removing it, or nil.
func (l *TaskList) Back() *Task { return l.tail }

// PushFront adds task to the head of the list.
func (l *TaskList) PushFront(task *Task) {
	task.next = l.head
	l.head = task
	if l.tail == nil {
		l.tail = task
	}
}

// PushBack adds task to the tail of the list.
func (l *TaskList) PushBack(task *Task) {
	if l.head == nil {
		l.head = task
	}
	if l.tail != nil {
		l.tail.next = task
	}
	l.tail = task
	task.next = nil
}

// PopFront removes and returns the first task, or nil if the list is empty.
func (l *TaskList) PopFront() *Task {
	task := l.head
	if task == nil {
		return nil
	}
	l.head = task.next
	if l.tail == task {
		l.tail = nil
	}
	task.next = nil
	return task
}

// Erase unlinks task from the list. prev must be the task immediately
// preceding it, or nil when task is the head.
func (l *TaskList) Erase(prev, task *Task) {
	switch task {
	case l.head:
		l.head = task.next
		if l.tail == task {
			l.tail = nil
		}
	case l.tail:
		l.tail = prev
		prev.next = nil
	default:
		prev.next = task.next
	}
	task.next = nil
}

// Prepend moves all tasks from prefix to the front of the list, leaving
// prefix empty.
func (l *TaskList) Prepend(prefix *TaskList) {
	if prefix.IsEmpty() {
		return
	}
	if l.IsEmpty() {
		l.head, l.tail = prefix.head, prefix.tail
	} else {
		prefix.tail.next = l.head
		l.head = prefix.head
	}
	prefix.head, prefix.tail = nil, nil
}

// Append moves all tasks from suffix to the back of the list, leaving
// suffix empty.
func (l *TaskList) Append(suffix *TaskList) {
	if suffix.IsEmpty() {
		return
	}
	if l.IsEmpty() {
		l.head, l.tail = suffix.head, suffix.tail
	} else {
		l.tail.next = suffix.head
		l.tail = suffix.tail
	}
	suffix.head, suffix.tail = nil, nil
}

// AppendFromFIFOSlist flushes slist in approximate-FIFO order and appends
// the result.
func (l *TaskList) AppendFromFIFOSlist(slist *AtomicTaskList) {
	suffix := slist.Flush(FlushOrderApproximateFIFO)
	l.Append(&suffix)
}

// MoveInto transfers the entire list into out, leaving the receiver empty.
// Any tasks already in out are dropped; callers pass an empty list.
func (l *TaskList) MoveInto(out *TaskList) {
	out.head, out.tail = l.head, l.tail
	l.head, l.tail = nil, nil
}

// Reverse reverses the list in place.
func (l *TaskList) Reverse() {
	if l.IsEmpty() {
		return
	}
	tail := l.head
	head := l.tail
	p := l.head
	for p != nil {
		next := p.next
		p.next = head
		head = p
		p = next
	}
	tail.next = nil
	l.head = head
	l.tail = tail
}

// Split removes up to maxTasks tasks from the tail of the list into out,
// never taking more than half. A single-task list is surrendered whole: the
// victim is likely working on its last item and handing it over lets the
// thief make progress immediately.
//
// Two cursors walk the list, one at double rate, to find the midpoint
// without a stored count; a trailing window then bounds the take to
// maxTasks off the tail.
func (l *TaskList) Split(maxTasks int, out *TaskList) {
	out.head, out.tail = nil, nil
	if l.head == nil {
		return
	}
	if l.head == l.tail {
		l.MoveInto(out)
		return
	}

	midPrev := l.head
	mid := l.head
	fast := l.head
	for fast.next != nil {
		midPrev = mid
		mid = mid.next
		fast = fast.next
		if fast.next != nil {
			fast = fast.next
		}
	}

	// mid is the start of the far half; slide a window of maxTasks from
	// there to the end so out receives only the last maxTasks tasks.
	windowPrev := midPrev
	windowHead := mid
	windowTail := mid
	for windowTail.next != nil && maxTasks > 1 {
		windowTail = windowTail.next
		maxTasks--
	}
	for windowTail.next != nil {
		windowPrev = windowHead
		windowHead = windowHead.next
		windowTail = windowTail.next
	}

	l.tail = windowPrev
	windowPrev.next = nil
	out.head = windowHead
	out.tail = windowTail
}

// Discard retires every task in the list without invoking task bodies.
// Dependents whose last outstanding dependency is discarded are appended
// and discarded too; the loop runs to a fixed point instead of recursing so
// arbitrarily deep graphs cannot blow the stack.
func (l *TaskList) Discard() {
	for !l.IsEmpty() {
		task := l.PopFront()
		task.discard(l)
	}
}

// =============================================================================
// AtomicTaskList: lock-free multi-producer single-consumer mailbox
// =============================================================================

// FlushOrder selects how AtomicTaskList.Flush orders the tasks it returns.
type FlushOrder int

const (
	// FlushOrderApproximateLIFO returns tasks roughly newest-first. This is
	// the natural order of the internal stack and costs nothing.
	FlushOrderApproximateLIFO FlushOrder = iota

	// FlushOrderApproximateFIFO returns tasks roughly oldest-first by
	// reversing the flushed segment. O(n) in the flushed tasks.
	FlushOrderApproximateFIFO
)

// AtomicTaskList is an intrusive concurrent stack of tasks. Any number of
// producers may Push concurrently; a consumer takes everything at once with
// Flush (a single pointer swap).
//
// Ordering is approximate under contention in either flush order: concurrent
// pushes may interleave arbitrarily. Code needing strict ordering must
// establish it at a higher level.
type AtomicTaskList struct {
	head atomic.Pointer[Task]
}

// Push adds task. Safe for concurrent use.
func (l *AtomicTaskList) Push(task *Task) {
	for {
		head := l.head.Load()
		task.next = head
		if l.head.CompareAndSwap(head, task) {
			return
		}
	}
}

// PushAll adds every task from list in a single linearizable step, leaving
// list empty. The tasks keep their relative order ahead of any previously
// pushed tasks under LIFO flushes.
func (l *AtomicTaskList) PushAll(list *TaskList) {
	if list.IsEmpty() {
		return
	}
	head, tail := list.head, list.tail
	list.head, list.tail = nil, nil
	for {
		old := l.head.Load()
		tail.next = old
		if l.head.CompareAndSwap(old, head) {
			return
		}
	}
}

// Flush atomically takes all pushed tasks and returns them as a TaskList in
// the requested order. Returns an empty list if nothing was pushed.
func (l *AtomicTaskList) Flush(order FlushOrder) TaskList {
	var out TaskList
	head := l.head.Swap(nil)
	if head == nil {
		return out
	}
	out.head = head
	tail := head
	for tail.next != nil {
		tail = tail.next
	}
	out.tail = tail
	if order == FlushOrderApproximateFIFO {
		out.Reverse()
	}
	return out
}

// IsEmpty reports whether the list appeared empty at the time of the call.
func (l *AtomicTaskList) IsEmpty() bool {
	return l.head.Load() == nil
}

// Discard flushes the list and retires every task without invoking bodies,
// cascading to dependents as TaskList.Discard does.
func (l *AtomicTaskList) Discard() {
	list := l.Flush(FlushOrderApproximateLIFO)
	list.Discard()
}
