package core

// Submission is a staging batch of tasks being readied for an executor.
//
// Tasks are partitioned as they are enqueued: tasks with no outstanding
// dependencies go to the ready list and everything else (dependent tasks and
// external-signal waits) goes to the waiting list. The executor consumes
// both lists on Submit; a submission is single-use and not safe for
// concurrent mutation.
type Submission struct {
	// ready holds tasks runnable immediately, in LIFO order so that the
	// most recently enqueued work is scheduled first (it is most likely to
	// be hot in cache near its producer).
	ready TaskList

	// waiting holds tasks that cannot run yet, in FIFO order.
	waiting TaskList
}

// Enqueue stages task into exactly one of the two internal lists based on
// its readiness at the time of the call. All of the task's dependencies must
// already be declared.
func (s *Submission) Enqueue(task *Task) {
	if task.kind == TaskKindWait || !task.IsReady() {
		s.waiting.PushBack(task)
	} else {
		s.ready.PushFront(task)
	}
}

// EnqueueFromLIFOSlist flushes slist and stages every task, preserving the
// approximate push order for the ready partition.
func (s *Submission) EnqueueFromLIFOSlist(slist *AtomicTaskList) {
	list := slist.Flush(FlushOrderApproximateLIFO)
	for {
		task := list.PopFront()
		if task == nil {
			return
		}
		s.Enqueue(task)
	}
}

// IsEmpty reports whether the submission stages no tasks.
func (s *Submission) IsEmpty() bool {
	return s.ready.IsEmpty() && s.waiting.IsEmpty()
}

// Size returns the total number of staged tasks.
func (s *Submission) Size() int {
	return s.ready.Size() + s.waiting.Size()
}

// Discard abandons the submission, retiring every staged task and its
// transitive dependents without invoking any task bodies. Used when a batch
// under construction cannot be submitted (for example the executor shut
// down first).
func (s *Submission) Discard() {
	// Waiting tasks first: they depend on ready tasks, so discarding the
	// ready list would cascade into tasks still linked into s.waiting.
	s.waiting.Discard()
	s.ready.Discard()
}

// takeReady removes and returns the ready partition.
func (s *Submission) takeReady() TaskList {
	var out TaskList
	s.ready.MoveInto(&out)
	return out
}

// takeWaiting removes and returns the waiting partition.
func (s *Submission) takeWaiting() TaskList {
	var out TaskList
	s.waiting.MoveInto(&out)
	return out
}
