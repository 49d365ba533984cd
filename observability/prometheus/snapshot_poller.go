package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-task-executor/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExecutorSnapshotProvider provides current executor stats snapshots.
type ExecutorSnapshotProvider interface {
	Stats() core.ExecutorStats
}

// ScopeSnapshotProvider provides current scope stats snapshots.
type ScopeSnapshotProvider interface {
	Statistics() core.ScopeStats
}

// SnapshotPoller periodically exports executor/scope Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	executorsMu sync.RWMutex
	executors   map[string]ExecutorSnapshotProvider

	scopesMu sync.RWMutex
	scopes   map[string]ScopeSnapshotProvider

	executorSubmitted    *prom.GaugeVec
	executorCompleted    *prom.GaugeVec
	executorFailed       *prom.GaugeVec
	executorDiscarded    *prom.GaugeVec
	executorStolen       *prom.GaugeVec
	executorPendingWaits *prom.GaugeVec
	executorWorkers      *prom.GaugeVec
	executorRunning      *prom.GaugeVec

	scopeCompleted *prom.GaugeVec
	scopeFailed    *prom.GaugeVec
	scopeDiscarded *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	executorSubmitted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "executor_tasks_submitted",
		Help:      "Cumulative submitted task count snapshot per executor.",
	}, []string{"executor"})
	executorCompleted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "executor_tasks_completed",
		Help:      "Cumulative completed task count snapshot per executor.",
	}, []string{"executor"})
	executorFailed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "executor_tasks_failed",
		Help:      "Cumulative failed task count snapshot per executor.",
	}, []string{"executor"})
	executorDiscarded := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "executor_tasks_discarded",
		Help:      "Cumulative discarded task count snapshot per executor.",
	}, []string{"executor"})
	executorStolen := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "executor_tasks_stolen",
		Help:      "Cumulative stolen task count snapshot per executor.",
	}, []string{"executor"})
	executorPendingWaits := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "executor_pending_waits",
		Help:      "Wait tasks currently parked in the wait set.",
	}, []string{"executor"})
	executorWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "executor_workers",
		Help:      "Worker count per executor.",
	}, []string{"executor"})
	executorRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "executor_running",
		Help:      "Executor running state (1=running, 0=shut down).",
	}, []string{"executor"})

	scopeCompleted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "scope_tasks_completed",
		Help:      "Cumulative completed task count snapshot per scope.",
	}, []string{"scope"})
	scopeFailed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "scope_tasks_failed",
		Help:      "Cumulative failed task count snapshot per scope.",
	}, []string{"scope"})
	scopeDiscarded := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskexecutor",
		Name:      "scope_tasks_discarded",
		Help:      "Cumulative discarded task count snapshot per scope.",
	}, []string{"scope"})

	var err error
	if executorSubmitted, err = registerCollector(reg, executorSubmitted); err != nil {
		return nil, err
	}
	if executorCompleted, err = registerCollector(reg, executorCompleted); err != nil {
		return nil, err
	}
	if executorFailed, err = registerCollector(reg, executorFailed); err != nil {
		return nil, err
	}
	if executorDiscarded, err = registerCollector(reg, executorDiscarded); err != nil {
		return nil, err
	}
	if executorStolen, err = registerCollector(reg, executorStolen); err != nil {
		return nil, err
	}
	if executorPendingWaits, err = registerCollector(reg, executorPendingWaits); err != nil {
		return nil, err
	}
	if executorWorkers, err = registerCollector(reg, executorWorkers); err != nil {
		return nil, err
	}
	if executorRunning, err = registerCollector(reg, executorRunning); err != nil {
		return nil, err
	}
	if scopeCompleted, err = registerCollector(reg, scopeCompleted); err != nil {
		return nil, err
	}
	if scopeFailed, err = registerCollector(reg, scopeFailed); err != nil {
		return nil, err
	}
	if scopeDiscarded, err = registerCollector(reg, scopeDiscarded); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:             interval,
		executors:            make(map[string]ExecutorSnapshotProvider),
		scopes:               make(map[string]ScopeSnapshotProvider),
		executorSubmitted:    executorSubmitted,
		executorCompleted:    executorCompleted,
		executorFailed:       executorFailed,
		executorDiscarded:    executorDiscarded,
		executorStolen:       executorStolen,
		executorPendingWaits: executorPendingWaits,
		executorWorkers:      executorWorkers,
		executorRunning:      executorRunning,
		scopeCompleted:       scopeCompleted,
		scopeFailed:          scopeFailed,
		scopeDiscarded:       scopeDiscarded,
	}, nil
}

// AddExecutor adds or replaces an executor snapshot provider by name.
func (p *SnapshotPoller) AddExecutor(name string, provider ExecutorSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "executor")
	p.executorsMu.Lock()
	p.executors[name] = provider
	p.executorsMu.Unlock()
}

// AddScope adds or replaces a scope snapshot provider by name.
func (p *SnapshotPoller) AddScope(name string, provider ScopeSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scope")
	p.scopesMu.Lock()
	p.scopes[name] = provider
	p.scopesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.executorsMu.RLock()
	for name, provider := range p.executors {
		stats := provider.Stats()
		p.executorSubmitted.WithLabelValues(name).Set(float64(stats.TasksSubmitted))
		p.executorCompleted.WithLabelValues(name).Set(float64(stats.TasksCompleted))
		p.executorFailed.WithLabelValues(name).Set(float64(stats.TasksFailed))
		p.executorDiscarded.WithLabelValues(name).Set(float64(stats.TasksDiscarded))
		p.executorStolen.WithLabelValues(name).Set(float64(stats.TasksStolen))
		p.executorPendingWaits.WithLabelValues(name).Set(float64(stats.PendingWaits))
		p.executorWorkers.WithLabelValues(name).Set(float64(stats.WorkerCount))
		if stats.Running {
			p.executorRunning.WithLabelValues(name).Set(1)
		} else {
			p.executorRunning.WithLabelValues(name).Set(0)
		}
	}
	p.executorsMu.RUnlock()

	p.scopesMu.RLock()
	for name, provider := range p.scopes {
		stats := provider.Statistics()
		p.scopeCompleted.WithLabelValues(name).Set(float64(stats.TasksCompleted))
		p.scopeFailed.WithLabelValues(name).Set(float64(stats.TasksFailed))
		p.scopeDiscarded.WithLabelValues(name).Set(float64(stats.TasksDiscarded))
	}
	p.scopesMu.RUnlock()
}
