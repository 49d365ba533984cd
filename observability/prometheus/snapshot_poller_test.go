package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-task-executor/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type executorStub struct {
	stats core.ExecutorStats
}

func (s executorStub) Stats() core.ExecutorStats { return s.stats }

type scopeStub struct {
	stats core.ScopeStats
}

func (s scopeStub) Statistics() core.ScopeStats { return s.stats }

func TestSnapshotPoller_CollectsExecutorAndScopeStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddExecutor("exec-a", executorStub{stats: core.ExecutorStats{
		WorkerCount:    8,
		Running:        true,
		TasksSubmitted: 10,
		TasksCompleted: 6,
		TasksFailed:    1,
		TasksDiscarded: 2,
		TasksStolen:    3,
		PendingWaits:   1,
	}})
	poller.AddScope("scope-a", scopeStub{stats: core.ScopeStats{
		TasksCompleted: 6,
		TasksFailed:    1,
		TasksDiscarded: 2,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		submitted := testutil.ToFloat64(poller.executorSubmitted.WithLabelValues("exec-a"))
		completed := testutil.ToFloat64(poller.scopeCompleted.WithLabelValues("scope-a"))
		return submitted == 10 && completed == 6
	})

	if got := testutil.ToFloat64(poller.executorRunning.WithLabelValues("exec-a")); got != 1 {
		t.Fatalf("executor running gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.executorStolen.WithLabelValues("exec-a")); got != 3 {
		t.Fatalf("executor stolen gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(poller.scopeDiscarded.WithLabelValues("scope-a")); got != 2 {
		t.Fatalf("scope discarded gauge = %v, want 2", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
