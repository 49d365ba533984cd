package core

import (
	"math"
	"time"
)

// =============================================================================
// Deadlines
// =============================================================================

// AllWaiters wakes every blocked waiter when passed to Notification.Post.
const AllWaiters = int32(math.MaxInt32)

// InfiniteFuture is an absolute deadline that never expires. Waits given this
// deadline block until their condition is satisfied.
var InfiniteFuture = time.Unix(0, math.MaxInt64)

// ImmediatePast is an absolute deadline that has always already expired.
// Waits given this deadline poll the condition once and return.
var ImmediatePast = time.Time{}

// timeoutFor converts an absolute deadline into a relative timeout in
// nanoseconds. The second result is false when the deadline never expires.
func timeoutFor(deadline time.Time) (ns int64, bounded bool) {
	if deadline.Equal(InfiniteFuture) || deadline.After(InfiniteFuture) {
		return 0, false
	}
	return int64(time.Until(deadline)), true
}

// isPollDeadline reports whether a deadline requests an immediate poll
// instead of a blocking wait.
func isPollDeadline(deadline time.Time) bool {
	return deadline.IsZero() || !deadline.After(time.Now())
}

// =============================================================================
// Notification await composition
// =============================================================================

// WaitToken captures the notification epoch observed by PrepareWait. A
// subsequent CommitWait blocks until the epoch advances past the captured
// value.
type WaitToken uint32

// Await blocks until condition returns true or the deadline expires.
//
// The prepare/recheck/commit sequence closes the lost-wakeup race without a
// mutex: if a Post lands between the condition check and PrepareWait, the
// epoch captured by PrepareWait already reflects it and CommitWait returns
// immediately on the recheck.
//
// condition is invoked from the waiting goroutine and must be safe to call
// concurrently with posters.
func (n *Notification) Await(condition func() bool, deadline time.Time) error {
	if condition() {
		// Fast-path with condition already met.
		return nil
	}
	if isPollDeadline(deadline) {
		return ErrDeadlineExceeded
	}
	for {
		token := n.PrepareWait()
		if condition() {
			// Condition is now met; no need to block.
			n.CancelWait()
			return nil
		}
		if err := n.CommitWait(token, deadline); err != nil {
			return err
		}
		if condition() {
			return nil
		}
	}
}
