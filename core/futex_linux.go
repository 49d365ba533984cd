//go:build linux

package core

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Thin wrappers over the Linux futex syscall. The blocked OS thread is
// handed back to the Go runtime like any other syscall wait, so parked
// workers do not burn a P while waiting.

// Futex operation constants from the Linux kernel ABI (linux/futex.h).
// x/sys/unix exports SYS_FUTEX but not the operation codes.
const (
	futexOpWait      = 0   // FUTEX_WAIT
	futexOpWake      = 1   // FUTEX_WAKE
	futexPrivateFlag = 128 // FUTEX_PRIVATE_FLAG
)

// futexWait blocks until the 32-bit value at addr no longer equals expected
// or the timeout elapses. A bounded=false timeout waits forever.
//
// Returns ErrDeadlineExceeded on timeout. A nil return only means the caller
// should re-check the watched value: wakes may be spurious and the value may
// have changed before the syscall was entered.
func futexWait(addr *uint32, expected uint32, timeoutNs int64, bounded bool) error {
	var tsPtr *unix.Timespec
	if bounded {
		if timeoutNs <= 0 {
			return ErrDeadlineExceeded
		}
		ts := unix.NsecToTimespec(timeoutNs)
		tsPtr = &ts
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWait|futexPrivateFlag),
		uintptr(expected),
		uintptr(unsafe.Pointer(tsPtr)),
		0, 0)
	if errno == unix.ETIMEDOUT {
		return ErrDeadlineExceeded
	}
	// EAGAIN (value already changed) and EINTR are both "go re-check".
	return nil
}

// futexWake wakes up to count threads blocked in futexWait on addr.
// Which waiters wake is undefined (no FIFO guarantee).
func futexWake(addr *uint32, count int32) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWake|futexPrivateFlag),
		uintptr(count),
		0, 0, 0)
}
