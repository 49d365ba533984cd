package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// SlimMutex Tests
// =============================================================================

// TestSlimMutex_MutualExclusion tests the basic lock contract
// Given: 8 goroutines incrementing a shared counter 1000 times each under a SlimMutex
// When: all goroutines finish
// Then: the counter equals 8000 with no lost increments
func TestSlimMutex_MutualExclusion(t *testing.T) {
	// Arrange - Shared counter guarded only by the mutex under test
	var mu SlimMutex
	counter := 0
	const goroutines = 8
	const iterations = 1000

	// Act - Hammer the lock from all goroutines
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				mu.Lock()
				counter++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Assert - Every increment must be visible
	got := counter
	want := goroutines * iterations
	if got != want {
		t.Errorf("counter: got = %d, want %d", got, want)
	}
}

// TestSlimMutex_TryLock tests the non-blocking acquire path
// Given: a SlimMutex held by the test goroutine
// When: TryLock is called
// Then: it fails while held and succeeds after Unlock
func TestSlimMutex_TryLock(t *testing.T) {
	var mu SlimMutex

	mu.Lock()
	if mu.TryLock() {
		t.Error("TryLock succeeded on a held mutex")
	}
	mu.Unlock()

	if !mu.TryLock() {
		t.Error("TryLock failed on a free mutex")
	}
	mu.Unlock()
}

// TestSlimMutex_ContendedHandoff tests that blocked waiters make progress
// Given: one goroutine holding the lock and many waiting
// When: the holder releases
// Then: every waiter eventually acquires the lock
func TestSlimMutex_ContendedHandoff(t *testing.T) {
	var mu SlimMutex
	const waiters = 16
	var acquired atomic.Int32

	mu.Lock()
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			acquired.Add(1)
			mu.Unlock()
		}()
	}
	time.Sleep(20 * time.Millisecond) // let waiters block
	mu.Unlock()
	wg.Wait()

	if got := acquired.Load(); got != waiters {
		t.Errorf("acquired waiters: got = %d, want %d", got, waiters)
	}
}

// =============================================================================
// Notification Tests
// =============================================================================

// TestNotification_NoLostWakeup tests the prepare/commit race window
// Given: a waiter using Await and a poster toggling a flag, repeated 1000 times
// When: the poster sets the flag and posts at arbitrary interleavings
// Then: the waiter always observes the flag and never blocks forever
func TestNotification_NoLostWakeup(t *testing.T) {
	for i := 0; i < 1000; i++ {
		var n Notification
		var flag atomic.Bool

		done := make(chan error, 1)
		go func() {
			done <- n.Await(flag.Load, time.Now().Add(5*time.Second))
		}()

		flag.Store(true)
		n.Post(AllWaiters)

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("iteration %d: Await failed: %v", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("iteration %d: waiter hung", i)
		}
	}
}

// TestNotification_AwaitDeadline tests bounded waits
// Given: a notification whose condition never becomes true
// When: Await is called with a short deadline
// Then: it returns ErrDeadlineExceeded in bounded time
func TestNotification_AwaitDeadline(t *testing.T) {
	var n Notification

	start := time.Now()
	err := n.Await(func() bool { return false }, time.Now().Add(50*time.Millisecond))

	if !errors.Is(err, ErrDeadlineExceeded) {
		t.Fatalf("Await error: got = %v, want ErrDeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Await took %v, expected prompt timeout", elapsed)
	}
}

// TestNotification_AwaitPoll tests the zero-deadline poll contract
// Given: a notification and a condition that is false then true
// When: Await is called with a zero deadline
// Then: it never blocks; result reflects the condition at call time
func TestNotification_AwaitPoll(t *testing.T) {
	var n Notification

	if err := n.Await(func() bool { return false }, ImmediatePast); !errors.Is(err, ErrDeadlineExceeded) {
		t.Errorf("poll on false condition: got = %v, want ErrDeadlineExceeded", err)
	}
	if err := n.Await(func() bool { return true }, ImmediatePast); err != nil {
		t.Errorf("poll on true condition: got = %v, want nil", err)
	}
}

// TestNotification_PostWakesAllWaiters tests broadcast semantics
// Given: several goroutines blocked in Await on a shared flag
// When: the flag is set and Post(AllWaiters) fires
// Then: all waiters return
func TestNotification_PostWakesAllWaiters(t *testing.T) {
	var n Notification
	var flag atomic.Bool
	const waiters = 8

	var wg sync.WaitGroup
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- n.Await(flag.Load, time.Now().Add(5*time.Second))
		}()
	}

	time.Sleep(10 * time.Millisecond)
	flag.Store(true)
	n.Post(AllWaiters)
	wg.Wait()

	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("waiter returned error: %v", err)
		}
	}
}

// TestNotification_CancelWait tests abandoning a prepared wait
// Given: a wait prepared but never committed
// When: the waiter cancels and the notification is later posted
// Then: no accounting is corrupted; a subsequent wait still works
func TestNotification_CancelWait(t *testing.T) {
	var n Notification

	n.PrepareWait()
	n.CancelWait()
	n.Post(AllWaiters)

	// A fresh wait against an already-advanced epoch must not block.
	token := n.PrepareWait()
	done := make(chan struct{})
	go func() {
		_ = n.CommitWait(token, time.Now().Add(time.Second))
		close(done)
	}()
	n.Post(AllWaiters)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("CommitWait hung after cancel/post cycle")
	}
}
