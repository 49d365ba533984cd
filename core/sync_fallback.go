//go:build !linux

package core

import (
	"sync"
	"time"
)

// Portable backend for platforms without a usable futex syscall. SlimMutex
// passes through to sync.Mutex and Notification uses a broadcast channel
// that is swapped out on every post. The contracts match the futex backend;
// only the blocking mechanism differs.

// SlimMutex is a single-word mutex that spins briefly under contention and
// then blocks. On this platform it delegates to sync.Mutex; the futex-backed
// variant is used on Linux. Wakes are unordered and unfair.
//
// The zero value is an unlocked mutex. Unlocking from a goroutine that does
// not hold the lock is undefined behavior. A SlimMutex must not be copied
// after first use.
type SlimMutex struct {
	impl sync.Mutex
}

// Lock acquires the mutex, blocking until it is available.
func (m *SlimMutex) Lock() { m.impl.Lock() }

// TryLock attempts to acquire the mutex without blocking and reports whether
// it succeeded.
func (m *SlimMutex) TryLock() bool { return m.impl.TryLock() }

// Unlock releases the mutex.
func (m *SlimMutex) Unlock() { m.impl.Unlock() }

// Notification is a wait/wake primitive keyed on a monotonically increasing
// epoch. Waiters capture the epoch with PrepareWait and block in CommitWait
// until a Post advances it, which closes the classic lost-wakeup race
// without holding a lock across the wait (see Await).
//
// The zero value is ready for use. A Notification must not be copied after
// first use and must have no waiters when it becomes unreachable.
type Notification struct {
	mu      sync.Mutex
	epoch   uint64
	waiters uint32
	posted  chan struct{}
}

func (n *Notification) postedLocked() chan struct{} {
	if n.posted == nil {
		n.posted = make(chan struct{})
	}
	return n.posted
}

// Post advances the epoch and wakes blocked waiters. On this backend any
// post wakes all waiters regardless of count; waiters re-check their
// condition on wake, so extra wakes are only a performance cost.
func (n *Notification) Post(count int32) {
	_ = count
	n.mu.Lock()
	n.epoch++
	if n.waiters != 0 && n.posted != nil {
		close(n.posted)
		n.posted = nil
	}
	n.mu.Unlock()
}

// PrepareWait registers the caller as a waiter and captures the current
// epoch. The caller must follow up with exactly one CommitWait or
// CancelWait.
func (n *Notification) PrepareWait() WaitToken {
	n.mu.Lock()
	token := WaitToken(n.epoch)
	n.waiters++
	n.mu.Unlock()
	return token
}

// CommitWait blocks until the epoch advances past the captured token or the
// deadline expires, then deregisters the waiter. Returns ErrDeadlineExceeded
// on expiry.
func (n *Notification) CommitWait(token WaitToken, deadline time.Time) error {
	for {
		n.mu.Lock()
		if WaitToken(n.epoch) != token {
			n.waiters--
			n.mu.Unlock()
			return nil
		}
		posted := n.postedLocked()
		n.mu.Unlock()

		ns, bounded := timeoutFor(deadline)
		if !bounded {
			<-posted
			continue
		}
		if ns <= 0 {
			n.CancelWait()
			return ErrDeadlineExceeded
		}
		timer := time.NewTimer(time.Duration(ns))
		select {
		case <-posted:
			timer.Stop()
		case <-timer.C:
			n.CancelWait()
			return ErrDeadlineExceeded
		}
	}
}

// CancelWait deregisters a waiter without blocking. Used when a recheck
// after PrepareWait found the awaited condition already satisfied.
func (n *Notification) CancelWait() {
	n.mu.Lock()
	n.waiters--
	n.mu.Unlock()
}
