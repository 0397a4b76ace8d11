package clock

import "time"

// Group tracks the live timers created through it so they can be cancelled
// together. Timers leave the group when they finish or are stopped.
type Group struct {
	clock  *Clock
	timers map[*Timer]struct{}
}

// NewGroup returns an empty Group scheduling on c.
func (c *Clock) NewGroup() *Group {
	return &Group{clock: c, timers: make(map[*Timer]struct{})}
}

// Clock returns the clock the group schedules on.
func (g *Group) Clock() *Clock { return g.clock }

// AfterFunc schedules a one-shot timer tracked by g.
func (g *Group) AfterFunc(d time.Duration, fn func()) *Timer {
	return g.track(g.clock.AfterFunc(d, fn))
}

// Every schedules a repeating timer tracked by g.
//
// Precondition: period > 0.
func (g *Group) Every(period time.Duration, fn func()) *Timer {
	return g.track(g.clock.Every(period, fn))
}

func (g *Group) track(t *Timer) *Timer {
	t.group = g
	g.timers[t] = struct{}{}
	return t
}

// Len returns the number of live timers in the group.
func (g *Group) Len() int { return len(g.timers) }

// StopAll stops every live timer in the group.
//
// Postcondition: Len() == 0; returns the number of timers stopped.
func (g *Group) StopAll() int {
	n := 0
	for t := range g.timers {
		if t.Stop() {
			n++
		}
	}
	return n
}
