//go:build linux

package core

import (
	"sync/atomic"
	"time"
	"unsafe"
)

// =============================================================================
// SlimMutex: spin-then-block mutex on a single atomic word
// =============================================================================

// The high bit of the word indicates whether the lock is held; the lower bits
// count interested waiters (the holder counts itself). Tracking waiters lets
// Unlock skip the wake syscall entirely in the uncontended case.
const (
	slimMutexLockedBit = uint32(0x80000000)

	// How many times a contending locker polls the word before blocking.
	// Roughly "how many loads equal one futexWait" - if blocking is faster
	// than spinning this long, we should not be spinning.
	slimMutexSpinCount = 100
)

// SlimMutex is a single-word mutex that spins briefly under contention and
// then blocks on a futex. Wakes are unordered and unfair; there is no FIFO
// guarantee among contending lockers.
//
// The zero value is an unlocked mutex. Unlocking from a goroutine that does
// not hold the lock is undefined behavior. A SlimMutex must not be copied
// after first use.
type SlimMutex struct {
	value uint32
}

// Lock acquires the mutex, blocking until it is available.
func (m *SlimMutex) Lock() {
	// Try first to acquire the lock from the unlocked state. This is the
	// only path taken when there is no contention.
	if atomic.CompareAndSwapUint32(&m.value, 0, slimMutexLockedBit|1) {
		return
	}

	// Count ourselves as an interested waiter. The lock may have been
	// released between the CAS above and this add; the loop below handles
	// both outcomes.
	value := atomic.AddUint32(&m.value, 1)

	for {
		// While the lock is available: try to take it for this goroutine.
		for value&slimMutexLockedBit == 0 {
			if atomic.CompareAndSwapUint32(&m.value, value, value|slimMutexLockedBit) {
				return
			}
			value = atomic.LoadUint32(&m.value)
			for i := 0; i < slimMutexSpinCount && value&slimMutexLockedBit != 0; i++ {
				value = atomic.LoadUint32(&m.value)
			}
		}

		// While the lock is held: block until the word changes.
		for value&slimMutexLockedBit != 0 {
			// Wait failures (spurious wake, value already changed) just
			// loop back around to re-check.
			_ = futexWait(&m.value, value, 0, false)
			value = atomic.LoadUint32(&m.value)
		}
	}
}

// TryLock attempts to acquire the mutex without blocking and reports whether
// it succeeded.
func (m *SlimMutex) TryLock() bool {
	return atomic.CompareAndSwapUint32(&m.value, 0, slimMutexLockedBit|1)
}

// Unlock releases the mutex and wakes a single waiter if any are blocked.
func (m *SlimMutex) Unlock() {
	// Fetch-subtract (lockedBit | 1): clears the lock bit and removes our
	// own waiter count. Any non-zero remainder means other waiters exist.
	if atomic.AddUint32(&m.value, ^(slimMutexLockedBit|1)+1) != 0 {
		// Wake exactly one waiter to avoid a thundering herd; only one of
		// multiple woken goroutines could win the lock anyway.
		futexWake(&m.value, 1)
	}
}

// =============================================================================
// Notification: epoch + waiter count in one 64-bit word
// =============================================================================

// The 64-bit state is treated as two independent 32-bit halves:
//
//	bits 63..32: epoch (incremented by Post)
//	bits 31..0 : waiter count
//
// The futex waits on the 32-bit epoch half only, so the address passed to
// the futex must point at the epoch bytes regardless of endianness.
const (
	notificationWaiterMask = uint64(0x00000000FFFFFFFF)
	notificationEpochShift = 32
	notificationEpochInc   = uint64(1) << notificationEpochShift
)

var notificationEpochOffset = func() uintptr {
	var probe uint16 = 1
	if *(*byte)(unsafe.Pointer(&probe)) == 1 {
		return 4 // little-endian: the high word occupies the upper bytes
	}
	return 0
}()

// Notification is a wait/wake primitive keyed on a monotonically increasing
// epoch. Waiters capture the epoch with PrepareWait and block in CommitWait
// until a Post advances it, which closes the classic lost-wakeup race
// without a mutex (see Await).
//
// The zero value is ready for use. A Notification must not be copied after
// first use and must have no waiters when it becomes unreachable.
type Notification struct {
	value uint64
}

func (n *Notification) epochAddress() *uint32 {
	return (*uint32)(unsafe.Add(unsafe.Pointer(&n.value), notificationEpochOffset))
}

// Post advances the epoch and wakes up to count blocked waiters. Use
// AllWaiters to wake everyone. Posting with no waiters is a single atomic
// add with no syscall.
func (n *Notification) Post(count int32) {
	previous := atomic.AddUint64(&n.value, notificationEpochInc) - notificationEpochInc
	if previous&notificationWaiterMask != 0 {
		futexWake(n.epochAddress(), count)
	}
}

// PrepareWait registers the caller as a waiter and captures the current
// epoch. The caller must follow up with exactly one CommitWait or
// CancelWait.
func (n *Notification) PrepareWait() WaitToken {
	previous := atomic.AddUint64(&n.value, 1) - 1
	return WaitToken(previous >> notificationEpochShift)
}

// CommitWait blocks until the epoch advances past the captured token or the
// deadline expires, then deregisters the waiter. Returns ErrDeadlineExceeded
// on expiry.
func (n *Notification) CommitWait(token WaitToken, deadline time.Time) error {
	for WaitToken(atomic.LoadUint64(&n.value)>>notificationEpochShift) == token {
		ns, bounded := timeoutFor(deadline)
		if bounded && ns <= 0 {
			n.CancelWait()
			return ErrDeadlineExceeded
		}
		if err := futexWait(n.epochAddress(), uint32(token), ns, bounded); err != nil {
			n.CancelWait()
			return err
		}
	}
	atomic.AddUint64(&n.value, ^uint64(0))
	return nil
}

// CancelWait deregisters a waiter without blocking. Used when a recheck
// after PrepareWait found the awaited condition already satisfied.
func (n *Notification) CancelWait() {
	atomic.AddUint64(&n.value, ^uint64(0))
}
