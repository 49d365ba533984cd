package taskexecutor

import (
	"fmt"

	"github.com/Swind/go-task-executor/core"
)

// TopologyMode selects how CreateExecutor derives the worker layout.
type TopologyMode string

const (
	// TopologyModeGroupCount creates exactly GroupCount workers regardless
	// of machine shape.
	TopologyModeGroupCount TopologyMode = "group_count"

	// TopologyModePhysicalCores creates one worker per physical core, up
	// to MaxGroupCount.
	TopologyModePhysicalCores TopologyMode = "physical_cores"

	// TopologyModeUniqueCacheGroups creates one worker per shared cache
	// domain, up to MaxGroupCount.
	TopologyModeUniqueCacheGroups TopologyMode = "unique_l2_cache_groups"
)

// Config describes an executor to build. The zero value is not valid; start
// from DefaultConfig.
type Config struct {
	// TopologyMode selects the worker layout strategy.
	TopologyMode TopologyMode

	// GroupCount is the worker count for TopologyModeGroupCount; ignored
	// by the derived modes.
	GroupCount int

	// MaxGroupCount caps the worker count for the derived topology modes.
	// Zero means no cap beyond the topology capacity.
	MaxGroupCount int

	// DeferWorkerStartup delays launching worker goroutines until the
	// first Submit.
	DeferWorkerStartup bool

	// DedicatedWaitThread runs a dedicated goroutine multiplexing wait
	// task signals instead of having idle workers poll for them.
	DedicatedWaitThread bool

	// WorkerLocalMemorySize is the scratch bytes allocated per worker.
	// Zero means the default (64KiB); negative disables the allocation.
	WorkerLocalMemorySize int

	// Logger, PanicHandler and Metrics are optional; nil selects no-op
	// logging, the stdout panic handler, and no metrics.
	Logger       Logger
	PanicHandler PanicHandler
	Metrics      Metrics
}

// DefaultConfig returns the recommended configuration: one worker per
// physical core capped at 8, wait polling by idle workers, default local
// memory budget.
func DefaultConfig() Config {
	return Config{
		TopologyMode:  TopologyModePhysicalCores,
		MaxGroupCount: 8,
	}
}

// Validate checks the config for contradictions before any resources are
// allocated.
func (c Config) Validate() error {
	switch c.TopologyMode {
	case TopologyModeGroupCount:
		if c.GroupCount < 1 {
			return fmt.Errorf("topology mode %q requires GroupCount >= 1 (got %d): %w",
				c.TopologyMode, c.GroupCount, ErrInvalidArgument)
		}
		if c.GroupCount > core.TopologyGroupCapacity {
			return fmt.Errorf("GroupCount %d exceeds topology capacity %d: %w",
				c.GroupCount, core.TopologyGroupCapacity, ErrResourceExhausted)
		}
	case TopologyModePhysicalCores, TopologyModeUniqueCacheGroups:
		if c.MaxGroupCount < 0 {
			return fmt.Errorf("MaxGroupCount must be >= 0 (got %d): %w",
				c.MaxGroupCount, ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("unknown topology mode %q: %w", c.TopologyMode, ErrInvalidArgument)
	}
	return nil
}

func (c Config) topology() *Topology {
	switch c.TopologyMode {
	case TopologyModeGroupCount:
		return NewTopologyFromGroupCount(c.GroupCount)
	case TopologyModeUniqueCacheGroups:
		return NewTopologyFromUniqueCacheGroups(c.MaxGroupCount)
	default:
		return NewTopologyFromPhysicalCores(c.MaxGroupCount)
	}
}

func (c Config) schedulingMode() SchedulingMode {
	var mode SchedulingMode
	if c.DeferWorkerStartup {
		mode |= SchedulingModeDeferWorkerStartup
	}
	if c.DedicatedWaitThread {
		mode |= SchedulingModeDedicatedWaitThread
	}
	return mode
}

// CreateExecutor validates the config, derives a topology, and builds an
// executor.
func CreateExecutor(cfg Config) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return core.NewExecutor(cfg.topology(), core.ExecutorOptions{
		SchedulingMode:        cfg.schedulingMode(),
		WorkerLocalMemorySize: cfg.WorkerLocalMemorySize,
		Logger:                cfg.Logger,
		PanicHandler:          cfg.PanicHandler,
		Metrics:               cfg.Metrics,
	})
}
