// Package clock implements a single-threaded cooperative scheduler over virtual
// elapsed time. Callbacks never run concurrently: Advance and Run drain each
// firing to completion before servicing the next one.
package clock

import (
	"container/heap"
	"context"
	"time"
)

// Clock schedules callbacks against a virtual "elapsed since start" time.
//
// A Clock is not safe for concurrent use; all calls must come from the
// goroutine that drives it (Advance or Run).
type Clock struct {
	now   time.Duration
	seq   uint64
	queue timerQueue
}

// New returns a Clock at virtual time zero.
func New() *Clock {
	return &Clock{}
}

// Now returns the current virtual time.
func (c *Clock) Now() time.Duration { return c.now }

// Pending returns the number of scheduled timers.
func (c *Clock) Pending() int { return len(c.queue) }

// NextDeadline returns the virtual time of the earliest scheduled timer.
//
// Postcondition: ok is false iff no timer is scheduled.
func (c *Clock) NextDeadline() (at time.Duration, ok bool) {
	if len(c.queue) == 0 {
		return 0, false
	}
	return c.queue[0].at, true
}

// AfterFunc schedules fn to run once, d after the current virtual time.
// A non-positive d fires on the next Advance, including Advance(0).
//
// Precondition: fn must not be nil.
func (c *Clock) AfterFunc(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	t := &Timer{clock: c, fn: fn, index: -1}
	c.schedule(t, c.now+d)
	return t
}

// Every schedules fn to run every period, first at Now()+period.
//
// Precondition: period > 0; fn must not be nil. Panics if period <= 0.
func (c *Clock) Every(period time.Duration, fn func()) *Timer {
	if period <= 0 {
		panic("clock: Every called with period <= 0")
	}
	t := &Timer{clock: c, fn: fn, period: period, index: -1}
	c.schedule(t, c.now+period)
	return t
}

func (c *Clock) schedule(t *Timer, at time.Duration) {
	c.seq++
	t.at = at
	t.seq = c.seq
	heap.Push(&c.queue, t)
}

// Advance moves virtual time forward by d, firing every timer whose deadline
// falls within the window in deadline order. Timers with equal deadlines fire
// in the order they were scheduled.
//
// Precondition: d >= 0.
// Postcondition: Now() has increased by d; returns the number of callbacks run.
func (c *Clock) Advance(d time.Duration) int {
	if d < 0 {
		d = 0
	}
	return c.advanceTo(c.now + d)
}

func (c *Clock) advanceTo(target time.Duration) int {
	fired := 0
	for len(c.queue) > 0 && c.queue[0].at <= target {
		t := heap.Pop(&c.queue).(*Timer)
		c.now = t.at
		if t.period > 0 {
			c.schedule(t, t.at+t.period)
		} else {
			t.finish()
		}
		t.fn()
		fired++
	}
	if target > c.now {
		c.now = target
	}
	return fired
}

// Run drives the clock from the wall clock: virtual time advances in step with
// real time elapsed since Run was called. Functions received on posts execute
// on the driving goroutine, serialized with timer callbacks, after virtual time
// has caught up to the moment they arrived.
//
// Run returns nil once no timers remain, or ctx.Err() when ctx is done.
// A nil posts channel is allowed.
func (c *Clock) Run(ctx context.Context, posts <-chan func()) error {
	start := time.Now()
	base := c.now
	elapsed := func() time.Duration { return base + time.Since(start) }

	for len(c.queue) > 0 {
		wait := time.Until(start.Add(c.queue[0].at - base))
		if wait < 0 {
			wait = 0
		}
		wake := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			wake.Stop()
			return ctx.Err()
		case fn := <-posts:
			wake.Stop()
			c.advanceTo(elapsed())
			fn()
		case <-wake.C:
			c.advanceTo(elapsed())
		}
	}
	return nil
}

// Timer is a handle to a scheduled callback.
type Timer struct {
	clock  *Clock
	group  *Group
	fn     func()
	at     time.Duration
	period time.Duration
	seq    uint64
	index  int
	done   bool
}

// Stop cancels the timer. A stopped timer never fires again, even when its
// deadline has already been reached in the current Advance. Safe to call
// multiple times and from within the timer's own callback.
//
// Postcondition: Returns true iff the call stopped a scheduled timer.
func (t *Timer) Stop() bool {
	if t == nil || t.done {
		return false
	}
	if t.index >= 0 {
		heap.Remove(&t.clock.queue, t.index)
	}
	t.finish()
	return true
}

// Active reports whether the timer is still scheduled.
func (t *Timer) Active() bool { return t != nil && !t.done }

// Deadline returns the virtual time of the next firing.
func (t *Timer) Deadline() time.Duration { return t.at }

func (t *Timer) finish() {
	t.done = true
	if t.group != nil {
		delete(t.group.timers, t)
		t.group = nil
	}
}

// timerQueue is a min-heap on (at, seq).
type timerQueue []*Timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
