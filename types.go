package taskexecutor

import "github.com/Swind/go-task-executor/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the taskexecutor package for most use cases.

// Task is a node in a work DAG
type Task = core.Task

// TaskKind identifies what a task does when it becomes runnable
type TaskKind = core.TaskKind

// TaskFn is the body of a call task
type TaskFn = core.TaskFn

// Scope groups related submissions for tracking, failure, and idle waits
type Scope = core.Scope

// Submission is a staging batch of tasks being readied for an executor
type Submission = core.Submission

// Topology describes the worker layout of an executor
type Topology = core.Topology

// TopologyGroup describes one unit of compute backing a worker
type TopologyGroup = core.TopologyGroup

// Executor runs task graphs over a fixed pool of workers
type Executor = core.Executor

// ExecutorOptions configures core.NewExecutor directly; most users go
// through Config instead
type ExecutorOptions = core.ExecutorOptions

// SchedulingMode is a bitmask of executor behavior flags
type SchedulingMode = core.SchedulingMode

// ExecutorStats, WorkerStats and ScopeStats are observability snapshots
type ExecutorStats = core.ExecutorStats
type WorkerStats = core.WorkerStats
type ScopeStats = core.ScopeStats

// WorkerInfo identifies the worker running the current task body
type WorkerInfo = core.WorkerInfo

// Logger, Field, PanicHandler and Metrics are the pluggable observability
// surfaces shared with the core package
type Logger = core.Logger
type Field = core.Field
type PanicHandler = core.PanicHandler
type Metrics = core.Metrics

// Task kind constants
const (
	TaskKindNop     TaskKind = core.TaskKindNop
	TaskKindCall    TaskKind = core.TaskKindCall
	TaskKindBarrier TaskKind = core.TaskKindBarrier
	TaskKindWait    TaskKind = core.TaskKindWait
)

// Scheduling mode flags
const (
	SchedulingModeDeferWorkerStartup  SchedulingMode = core.SchedulingModeDeferWorkerStartup
	SchedulingModeDedicatedWaitThread SchedulingMode = core.SchedulingModeDedicatedWaitThread
)

// NoAffinity indicates a task has no preferred topology group
const NoAffinity = core.NoAffinity

// Error sentinels
var (
	ErrResourceExhausted = core.ErrResourceExhausted
	ErrInvalidArgument   = core.ErrInvalidArgument
	ErrDeadlineExceeded  = core.ErrDeadlineExceeded
	ErrAborted           = core.ErrAborted
	ErrExecutorShutdown  = core.ErrExecutorShutdown
)

// InfiniteFuture is a deadline that never expires; ImmediatePast polls
var (
	InfiniteFuture = core.InfiniteFuture
	ImmediatePast  = core.ImmediatePast
)

// Constructors re-exported from core
var (
	NewScope       = core.NewScope
	NewNopTask     = core.NewNopTask
	NewCallTask    = core.NewCallTask
	NewBarrierTask = core.NewBarrierTask
	NewWaitTask    = core.NewWaitTask

	NewTopology                      = core.NewTopology
	NewTopologyFromGroupCount        = core.NewTopologyFromGroupCount
	NewTopologyFromPhysicalCores     = core.NewTopologyFromPhysicalCores
	NewTopologyFromUniqueCacheGroups = core.NewTopologyFromUniqueCacheGroups

	NewExecutor = core.NewExecutor
)

// F creates a structured logging field
var F = core.F

// WorkerInfoFromContext and WorkerLocalMemory expose the identity and
// scratch buffer of the worker running the current task body
var (
	WorkerInfoFromContext = core.WorkerInfoFromContext
	WorkerLocalMemory     = core.WorkerLocalMemory
)
