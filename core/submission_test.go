package core

import (
	"context"
	"math/rand"
	"testing"
)

// =============================================================================
// Submission Partition Tests
// =============================================================================

// TestSubmission_Partition tests the ready/waiting split
// Given: a mix of dependency-free tasks, dependent tasks, and wait tasks
// When: each is enqueued
// Then: dependency-free non-wait tasks land in ready, everything else in waiting
func TestSubmission_Partition(t *testing.T) {
	scope := NewScope("partition")
	ch := make(chan struct{})

	free := NewNopTask(scope)
	parent := NewNopTask(scope)
	child := NewNopTask(scope)
	parent.SetCompletionTask(child)
	wait := NewWaitTask(scope, ch)

	var s Submission
	s.Enqueue(free)
	s.Enqueue(parent)
	s.Enqueue(child)
	s.Enqueue(wait)

	if got, want := s.ready.Size(), 2; got != want {
		t.Errorf("ready size: got = %d, want %d", got, want)
	}
	if got, want := s.waiting.Size(), 2; got != want {
		t.Errorf("waiting size: got = %d, want %d", got, want)
	}
	if got, want := s.Size(), 4; got != want {
		t.Errorf("total size: got = %d, want %d", got, want)
	}
}

// TestSubmission_ReadyIsLIFO tests that the last-enqueued ready task is
// scheduled first
func TestSubmission_ReadyIsLIFO(t *testing.T) {
	scope := NewScope("lifo")
	first := NewNopTask(scope)
	second := NewNopTask(scope)

	var s Submission
	s.Enqueue(first)
	s.Enqueue(second)

	if s.ready.Front() != second {
		t.Error("ready partition is not LIFO")
	}
}

// TestSubmission_PartitionInvariant tests the exactly-one-list invariant on
// randomized DAGs
// Given: 10000 random tasks, some with dependencies, some wait-gated
// When: enqueued into a submission
// Then: every task is in exactly one partition, and membership matches the
// readiness rule
func TestSubmission_PartitionInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	scope := NewScope("invariant")
	ch := make(chan struct{})

	const count = 10000
	tasks := make([]*Task, count)
	for i := range tasks {
		switch rng.Intn(3) {
		case 0:
			tasks[i] = NewNopTask(scope)
		case 1:
			tasks[i] = NewCallTask(scope, func(ctx context.Context) error { return nil })
		default:
			tasks[i] = NewWaitTask(scope, ch)
		}
		if i > 0 && rng.Intn(2) == 0 {
			tasks[rng.Intn(i)].SetCompletionTask(tasks[i])
		}
	}

	var s Submission
	for _, task := range tasks {
		s.Enqueue(task)
	}

	inReady := make(map[*Task]bool)
	for task := s.ready.Front(); task != nil; task = task.next {
		inReady[task] = true
	}
	inWaiting := make(map[*Task]bool)
	for task := s.waiting.Front(); task != nil; task = task.next {
		inWaiting[task] = true
	}

	for i, task := range tasks {
		if inReady[task] == inWaiting[task] {
			t.Fatalf("task %d is in %v partitions", i, inReady[task])
		}
		wantReady := task.Kind() != TaskKindWait && task.IsReady()
		if inReady[task] != wantReady {
			t.Fatalf("task %d: in ready = %v, want %v (kind=%v ready=%v)",
				i, inReady[task], wantReady, task.Kind(), task.IsReady())
		}
	}
}

// TestSubmission_Discard tests abandoning a staged batch
// Given: a submission with a dependency chain across both partitions
// When: Discard runs
// Then: no task body is invoked and every task is retired exactly once
func TestSubmission_Discard(t *testing.T) {
	scope := NewScope("discard")
	invoked := false

	a := NewCallTask(scope, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	b := NewCallTask(scope, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	a.SetCompletionTask(b)

	var s Submission
	s.Enqueue(a)
	s.Enqueue(b)
	s.Discard()

	if invoked {
		t.Error("Discard invoked a task body")
	}
	if !s.IsEmpty() {
		t.Error("submission not empty after Discard")
	}
	stats := scope.Statistics()
	if stats.TasksDiscarded != 2 {
		t.Errorf("discarded count: got = %d, want 2", stats.TasksDiscarded)
	}
	if stats.TasksCompleted != 0 || stats.TasksFailed != 0 {
		t.Errorf("unexpected completions or failures: %+v", stats)
	}
}

// TestSubmission_EnqueueFromLIFOSlist tests staging from a concurrent list
func TestSubmission_EnqueueFromLIFOSlist(t *testing.T) {
	scope := NewScope("slist")
	var slist AtomicTaskList
	a := NewNopTask(scope)
	b := NewNopTask(scope)
	slist.Push(a)
	slist.Push(b)

	var s Submission
	s.EnqueueFromLIFOSlist(&slist)

	if got, want := s.ready.Size(), 2; got != want {
		t.Errorf("ready size: got = %d, want %d", got, want)
	}
	if !slist.IsEmpty() {
		t.Error("slist not drained")
	}
}
