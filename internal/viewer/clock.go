package viewer

import "time"

// Clock reports the time elapsed since it was last asked.
type Clock interface {
	// Delta returns seconds since the previous call, or since the clock
	// was created on the first call.
	Delta() float32
}

// SystemClock is a Clock backed by the wall clock.
type SystemClock struct {
	now  func() time.Time
	last time.Time
}

// NewSystemClock starts a clock at the current time.
func NewSystemClock() *SystemClock {
	return newClockAt(time.Now)
}

func newClockAt(now func() time.Time) *SystemClock {
	return &SystemClock{now: now, last: now()}
}

// Delta implements Clock.
func (c *SystemClock) Delta() float32 {
	t := c.now()
	d := t.Sub(c.last)
	c.last = t
	if d < 0 {
		return 0
	}
	return float32(d.Seconds())
}
