// Package taskexecutor provides a cooperative task scheduling system for Go,
// modeled on the task systems of machine-learning runtimes.
//
// This library implements a fixed worker pool that executes explicit task
// graphs: tasks declare their dependencies up front, get batched into
// submissions, and flow through per-worker mailboxes with work stealing to
// balance load. External events join the graph through wait tasks gated on
// channels, so a graph can fan out across workers, pause on IO, and resume
// without ever blocking a worker goroutine.
//
// # Quick Start
//
// Initialize the global executor at application startup:
//
//	taskexecutor.InitGlobalExecutor(taskexecutor.DefaultConfig())
//	defer taskexecutor.ShutdownGlobalExecutor()
//
// Build a small graph and run it:
//
//	scope := taskexecutor.NewScope("example")
//	a := taskexecutor.NewCallTask(scope, loadInput)
//	b := taskexecutor.NewCallTask(scope, transform)
//	a.SetCompletionTask(b) // b runs after a
//
//	var submission taskexecutor.Submission
//	submission.Enqueue(a)
//	submission.Enqueue(b)
//	taskexecutor.Submit(scope, &submission)
//
//	scope.WaitIdle(taskexecutor.InfiniteFuture)
//	if err := scope.ConsumeStatus(); err != nil {
//		// first failure in the graph
//	}
//
// # Key Concepts
//
// Task: a node in a work DAG. Call tasks run a function; barriers join and
// fan out; wait tasks complete when an external channel closes; nops are
// placeholders. Dependencies are declared before submission and never
// change afterward.
//
// Scope: groups related submissions so they can be awaited and failed as a
// unit. The first task error poisons the scope; everything not yet started
// is discarded, and WaitIdle still returns once the graph drains.
//
// Submission: a staging batch. Enqueued tasks are partitioned into
// immediately runnable work and gated work, so Submit hands the executor
// pre-sorted lists instead of a pile to inspect.
//
// Executor: the worker pool. One worker per topology group, each with a
// lock-free mailbox; idle workers steal the far half of a busy sibling's
// backlog. Configure with Config or drive core.NewExecutor directly.
//
// # Thread Safety
//
// Executors and scopes are safe for concurrent use. A task, and a
// submission under construction, belong to one goroutine until submitted;
// after Submit the executor owns them.
//
// For more details, see https://github.com/Swind/go-task-executor
package taskexecutor
